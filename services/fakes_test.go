package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/lborres/tala/adapters/memory"
	"github.com/lborres/tala/core"
)

var errStoreDown = errors.New("store unavailable")

// faultyStore wraps the memory adapter and lets tests inject failures per call
type faultyStore struct {
	*memory.Adapter

	createIdentityErr error
	lookupErr         error
	createSessionErr  error
	getSessionErr     error
	deleteSessionErr  error
	pruneErr          error
	appendErr         error
}

func newFaultyStore() *faultyStore {
	return &faultyStore{Adapter: memory.New()}
}

func (f *faultyStore) CreateIdentity(ctx context.Context, identity *core.Identity) (*core.PublicIdentity, error) {
	if f.createIdentityErr != nil {
		return nil, f.createIdentityErr
	}
	return f.Adapter.CreateIdentity(ctx, identity)
}

func (f *faultyStore) GetIdentityByUsername(ctx context.Context, username string) (*core.Identity, error) {
	if f.lookupErr != nil {
		return nil, f.lookupErr
	}
	return f.Adapter.GetIdentityByUsername(ctx, username)
}

func (f *faultyStore) GetIdentityByUsernameOrEmail(ctx context.Context, identifier string) (*core.Identity, error) {
	if f.lookupErr != nil {
		return nil, f.lookupErr
	}
	return f.Adapter.GetIdentityByUsernameOrEmail(ctx, identifier)
}

func (f *faultyStore) GetPublicIdentity(ctx context.Context, username string) (*core.PublicIdentity, error) {
	if f.lookupErr != nil {
		return nil, f.lookupErr
	}
	return f.Adapter.GetPublicIdentity(ctx, username)
}

func (f *faultyStore) CreateSession(ctx context.Context, session *core.Session) error {
	if f.createSessionErr != nil {
		return f.createSessionErr
	}
	return f.Adapter.CreateSession(ctx, session)
}

func (f *faultyStore) GetSessionByHash(ctx context.Context, tokenHash string) (*core.Session, error) {
	if f.getSessionErr != nil {
		return nil, f.getSessionErr
	}
	return f.Adapter.GetSessionByHash(ctx, tokenHash)
}

func (f *faultyStore) DeleteSessionByHash(ctx context.Context, tokenHash string) error {
	if f.deleteSessionErr != nil {
		return f.deleteSessionErr
	}
	return f.Adapter.DeleteSessionByHash(ctx, tokenHash)
}

func (f *faultyStore) DeleteExpiredSessions(ctx context.Context, now time.Time) (int, error) {
	if f.pruneErr != nil {
		return 0, f.pruneErr
	}
	return f.Adapter.DeleteExpiredSessions(ctx, now)
}

func (f *faultyStore) AppendEvent(ctx context.Context, event *core.Event) error {
	if f.appendErr != nil {
		return f.appendErr
	}
	return f.Adapter.AppendEvent(ctx, event)
}

// mapCache is a goroutine-free core.Cache for service tests
type mapCache struct {
	mu       sync.Mutex
	sessions map[string]*core.Session
	gets     int
	hits     int
}

func newMapCache() *mapCache {
	return &mapCache{sessions: make(map[string]*core.Session)}
}

func (c *mapCache) Get(tokenHash string) (*core.Session, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gets++
	s, ok := c.sessions[tokenHash]
	if !ok {
		return nil, core.ErrCacheNotFound
	}
	c.hits++
	return s, nil
}

func (c *mapCache) Set(tokenHash string, session *core.Session) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sessions[tokenHash] = session
	return nil
}

func (c *mapCache) Delete(tokenHash string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.sessions, tokenHash)
	return nil
}

func (c *mapCache) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.sessions)
}

// fixedClock is a settable time source shared by the session manager under test
type fixedClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFixedClock() *fixedClock {
	return &fixedClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fixedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fixedClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}
