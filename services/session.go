package services

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/lborres/tala/core"
	"github.com/lborres/tala/internal/logging"
	"github.com/lborres/tala/pkg/crypto"
	"github.com/lborres/tala/pkg/errutil"
)

// SessionManager maps opaque tokens to usernames.
//
// A token moves absent -> active -> destroyed and never comes back. Expired
// sessions are reported exactly like destroyed ones.
type SessionManager struct {
	config  core.SessionConfig
	storage core.SessionStorage
	cache   core.Cache // optional, can be nil if caching is disabled
	log     *slog.Logger
	now     func() time.Time
}

func NewSessionManager(config core.SessionConfig, storage core.SessionStorage, cache core.Cache, logger *slog.Logger) *SessionManager {
	if config.MaxAge <= 0 {
		config = core.DefaultSessionConfig()
	}
	return &SessionManager{
		config:  config,
		storage: storage,
		cache:   cache,
		log:     logging.OrDefault(logger),
		now:     time.Now,
	}
}

// MaxAge is the lifetime given to every issued session
func (sm *SessionManager) MaxAge() time.Duration {
	return sm.config.MaxAge
}

// Issue creates a session for username and returns it with the raw token
func (sm *SessionManager) Issue(ctx context.Context, username, ip, userAgent string) (*core.IssuedSession, error) {
	pair, err := crypto.NewSessionToken()
	if err != nil {
		return nil, oops.Code("SESSION_TOKEN_FAILED").Wrap(err)
	}

	now := sm.now()
	session := &core.Session{
		ID:        ulid.Make().String(),
		Username:  username,
		TokenHash: pair.Hash,
		IPAddress: ip,
		UserAgent: userAgent,
		CreatedAt: now,
		ExpiresAt: now.Add(sm.config.MaxAge),
	}

	if err := sm.storage.CreateSession(ctx, session); err != nil {
		return nil, oops.Code("SESSION_CREATE_FAILED").With("username", username).Wrap(err)
	}

	if sm.cache != nil {
		// We don't fail the request if caching fails
		_ = sm.cache.Set(pair.Hash, session)
	}

	return &core.IssuedSession{Session: session, Token: pair.Token}, nil
}

// Resolve returns the active session for token.
// Unknown, destroyed and expired tokens all yield core.ErrSessionNotFound
// (possibly wrapped); any other error is a store failure.
func (sm *SessionManager) Resolve(ctx context.Context, token string) (*core.Session, error) {
	if token == "" {
		return nil, core.ErrInvalidToken
	}

	tokenHash := crypto.HashToken(token)
	now := sm.now()

	if sm.cache != nil {
		if session, err := sm.cache.Get(tokenHash); err == nil {
			if !session.Expired(now) {
				return session, nil
			}
			_ = sm.cache.Delete(tokenHash)
		}
	}

	session, err := sm.storage.GetSessionByHash(ctx, tokenHash)
	if err != nil {
		if errors.Is(err, core.ErrSessionNotFound) {
			return nil, core.ErrSessionNotFound
		}
		return nil, oops.Code("SESSION_LOOKUP_FAILED").Wrap(err)
	}

	if !crypto.VerifyToken(token, session.TokenHash) {
		return nil, core.ErrInvalidToken
	}

	if session.Expired(now) {
		if err := sm.storage.DeleteSessionByHash(ctx, tokenHash); err != nil {
			errutil.LogError(sm.log, "delete expired session", err)
		}
		return nil, core.ErrSessionExpired
	}

	if sm.cache != nil {
		_ = sm.cache.Set(tokenHash, session)
	}

	return session, nil
}

// Destroy ends the session bound to token. Destroying an unknown or already
// destroyed token is a no-op; only store failures are returned.
func (sm *SessionManager) Destroy(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}

	tokenHash := crypto.HashToken(token)

	if sm.cache != nil {
		_ = sm.cache.Delete(tokenHash)
	}

	if err := sm.storage.DeleteSessionByHash(ctx, tokenHash); err != nil {
		return oops.Code("SESSION_DELETE_FAILED").Wrap(err)
	}

	return nil
}

// Prune removes expired sessions from the backing store
func (sm *SessionManager) Prune(ctx context.Context) (int, error) {
	count, err := sm.storage.DeleteExpiredSessions(ctx, sm.now())
	if err != nil {
		return 0, oops.Code("SESSION_PRUNE_FAILED").Wrap(err)
	}
	return count, nil
}
