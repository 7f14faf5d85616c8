package redis

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lborres/tala/core"
	"github.com/lborres/tala/pkg/errutil"
)

var fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func setupSessionStore(t *testing.T) (*SessionStore, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client, err := Connect(context.Background(), "redis://"+mr.Addr())
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	store := New(client, "test:", nil)
	store.now = func() time.Time { return fixedNow }
	return store, mr
}

func testSession() *core.Session {
	return &core.Session{
		ID:        "01HZX",
		Username:  "alice",
		TokenHash: "hash",
		IPAddress: "10.0.0.1",
		UserAgent: "curl/8",
		CreatedAt: fixedNow,
		ExpiresAt: fixedNow.Add(time.Hour),
	}
}

func TestConnect_Failures(t *testing.T) {
	_, err := Connect(context.Background(), "invalid://url")
	errutil.AssertErrorCode(t, err, "REDIS_URL_INVALID")

	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()
	_, err = Connect(context.Background(), "redis://"+addr)
	errutil.AssertErrorCode(t, err, "REDIS_PING_FAILED")
}

// Requirement: sessions round-trip with their token hash and expire with Redis TTL.
func TestSessionStore_CreateAndGet(t *testing.T) {
	// Arrange
	ctx := context.Background()
	store, mr := setupSessionStore(t)
	session := testSession()

	// Act
	require.NoError(t, store.CreateSession(ctx, session))
	got, err := store.GetSessionByHash(ctx, "hash")

	// Assert
	require.NoError(t, err)
	assert.Equal(t, session, got)
	assert.True(t, mr.Exists("test:session:hash"))
	assert.Equal(t, time.Hour, mr.TTL("test:session:hash"))

	mr.FastForward(time.Hour)
	_, err = store.GetSessionByHash(ctx, "hash")
	assert.ErrorIs(t, err, core.ErrSessionNotFound)
}

func TestSessionStore_CreateExpiredIsDropped(t *testing.T) {
	ctx := context.Background()
	store, mr := setupSessionStore(t)
	session := testSession()
	session.ExpiresAt = fixedNow

	require.NoError(t, store.CreateSession(ctx, session))
	assert.False(t, mr.Exists("test:session:hash"))
}

func TestSessionStore_Delete(t *testing.T) {
	ctx := context.Background()
	store, _ := setupSessionStore(t)
	require.NoError(t, store.CreateSession(ctx, testSession()))

	require.NoError(t, store.DeleteSessionByHash(ctx, "hash"))
	require.NoError(t, store.DeleteSessionByHash(ctx, "hash"), "deleting twice is a no-op")

	_, err := store.GetSessionByHash(ctx, "hash")
	assert.ErrorIs(t, err, core.ErrSessionNotFound)

	count, err := store.DeleteExpiredSessions(ctx, fixedNow)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestSessionStore_CorruptEntry(t *testing.T) {
	ctx := context.Background()
	store, mr := setupSessionStore(t)
	require.NoError(t, mr.Set("test:session:bad", "{not json"))

	_, err := store.GetSessionByHash(ctx, "bad")

	assert.ErrorIs(t, err, core.ErrSessionNotFound)
	assert.False(t, mr.Exists("test:session:bad"))
}

// failDelHook fails every DEL sent through the client
type failDelHook struct{}

func (failDelHook) BeforeProcess(ctx context.Context, cmd goredis.Cmder) (context.Context, error) {
	if cmd.Name() == "del" {
		return ctx, errors.New("del refused")
	}
	return ctx, nil
}

func (failDelHook) AfterProcess(context.Context, goredis.Cmder) error { return nil }

func (failDelHook) BeforeProcessPipeline(ctx context.Context, _ []goredis.Cmder) (context.Context, error) {
	return ctx, nil
}

func (failDelHook) AfterProcessPipeline(context.Context, []goredis.Cmder) error { return nil }

// Requirement: a corrupt entry that cannot be dropped is still a miss, and the failure is logged
func TestSessionStore_CorruptEntryDropFailure(t *testing.T) {
	// Arrange
	ctx := context.Background()
	store, mr := setupSessionStore(t)
	var logs bytes.Buffer
	store.log = slog.New(slog.NewJSONHandler(&logs, nil))
	store.client.AddHook(failDelHook{})
	require.NoError(t, mr.Set("test:session:bad", "{not json"))

	// Act
	_, err := store.GetSessionByHash(ctx, "bad")

	// Assert
	assert.ErrorIs(t, err, core.ErrSessionNotFound)
	assert.True(t, mr.Exists("test:session:bad"))
	assert.Contains(t, logs.String(), "dropping corrupt session failed")
	assert.Contains(t, logs.String(), "SESSION_DROP_FAILED")
}

func TestSessionStore_ServerDown(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = client.Close() })
	store := New(client, "", nil)
	mr.Close()

	_, err := store.GetSessionByHash(ctx, "hash")

	require.Error(t, err)
	assert.NotErrorIs(t, err, core.ErrSessionNotFound)
}
