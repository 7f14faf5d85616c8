// Package redis keeps sessions in Redis. Keys expire with the session, so
// expired entries never need pruning.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	goredis "github.com/go-redis/redis/v8"
	"github.com/samber/oops"

	"github.com/lborres/tala/core"
	"github.com/lborres/tala/internal/logging"
	"github.com/lborres/tala/pkg/errutil"
)

const DefaultKeyPrefix = "tala:"

type SessionStore struct {
	client *goredis.Client
	prefix string
	now    func() time.Time
	log    *slog.Logger
}

var _ core.SessionStorage = (*SessionStore)(nil)

// sessionRecord is the stored form of core.Session, token hash included
type sessionRecord struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	TokenHash string    `json:"token_hash"`
	IPAddress string    `json:"ip_address"`
	UserAgent string    `json:"user_agent"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Connect parses redisURL and pings the server
func Connect(ctx context.Context, redisURL string) (*goredis.Client, error) {
	opts, err := goredis.ParseURL(redisURL)
	if err != nil {
		return nil, oops.Code("REDIS_URL_INVALID").Wrap(err)
	}

	opts.DialTimeout = 5 * time.Second
	opts.ReadTimeout = 3 * time.Second
	opts.WriteTimeout = 3 * time.Second

	client := goredis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, oops.Code("REDIS_PING_FAILED").Wrap(err)
	}
	return client, nil
}

func New(client *goredis.Client, prefix string, logger *slog.Logger) *SessionStore {
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	return &SessionStore{client: client, prefix: prefix, now: time.Now, log: logging.OrDefault(logger)}
}

func (s *SessionStore) key(tokenHash string) string {
	return s.prefix + "session:" + tokenHash
}

func (s *SessionStore) CreateSession(ctx context.Context, session *core.Session) error {
	ttl := session.ExpiresAt.Sub(s.now())
	if ttl <= 0 {
		// already expired; nothing could ever resolve it
		return nil
	}

	data, err := json.Marshal(sessionRecord{
		ID:        session.ID,
		Username:  session.Username,
		TokenHash: session.TokenHash,
		IPAddress: session.IPAddress,
		UserAgent: session.UserAgent,
		CreatedAt: session.CreatedAt,
		ExpiresAt: session.ExpiresAt,
	})
	if err != nil {
		return oops.With("operation", "encode session").Wrap(err)
	}

	if err := s.client.Set(ctx, s.key(session.TokenHash), data, ttl).Err(); err != nil {
		return oops.With("operation", "create session").With("session_id", session.ID).Wrap(err)
	}
	return nil
}

func (s *SessionStore) GetSessionByHash(ctx context.Context, tokenHash string) (*core.Session, error) {
	data, err := s.client.Get(ctx, s.key(tokenHash)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, core.ErrSessionNotFound
	}
	if err != nil {
		return nil, oops.With("operation", "get session").Wrap(err)
	}

	var rec sessionRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		// corrupt entries are dropped; a failed drop leaves the key to its TTL
		if err := s.client.Del(ctx, s.key(tokenHash)).Err(); err != nil {
			errutil.LogError(s.log, "dropping corrupt session failed",
				oops.Code("SESSION_DROP_FAILED").With("operation", "delete corrupt session").Wrap(err))
		}
		return nil, core.ErrSessionNotFound
	}

	return &core.Session{
		ID:        rec.ID,
		Username:  rec.Username,
		TokenHash: rec.TokenHash,
		IPAddress: rec.IPAddress,
		UserAgent: rec.UserAgent,
		CreatedAt: rec.CreatedAt,
		ExpiresAt: rec.ExpiresAt,
	}, nil
}

func (s *SessionStore) DeleteSessionByHash(ctx context.Context, tokenHash string) error {
	if err := s.client.Del(ctx, s.key(tokenHash)).Err(); err != nil {
		return oops.With("operation", "delete session").Wrap(err)
	}
	return nil
}

// DeleteExpiredSessions is a no-op: Redis expires keys on its own.
func (s *SessionStore) DeleteExpiredSessions(context.Context, time.Time) (int, error) {
	return 0, nil
}
