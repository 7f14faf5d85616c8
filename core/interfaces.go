package core

import (
	"context"
	"time"
)

// Ports define interfaces for external dependencies

// ============================================
// STORAGE PORTS (Database operations)
// ============================================

// IdentityStorage defines identity-related database operations.
// Lookups return ErrUserNotFound when nothing matches.
type IdentityStorage interface {
	CreateIdentity(ctx context.Context, identity *Identity) (*PublicIdentity, error)
	GetIdentityByUsername(ctx context.Context, username string) (*Identity, error)
	GetIdentityByEmail(ctx context.Context, email string) (*Identity, error)
	GetIdentityByUsernameOrEmail(ctx context.Context, identifier string) (*Identity, error)
	GetPublicIdentity(ctx context.Context, username string) (*PublicIdentity, error)
}

// SessionStorage defines session-related operations keyed by token hash.
// DeleteSessionByHash must not fail for an unknown hash.
type SessionStorage interface {
	CreateSession(ctx context.Context, session *Session) error
	GetSessionByHash(ctx context.Context, tokenHash string) (*Session, error)
	DeleteSessionByHash(ctx context.Context, tokenHash string) error
	DeleteExpiredSessions(ctx context.Context, now time.Time) (int, error)
}

// EventStorage appends events. ID and CreatedAt are filled in by the store.
type EventStorage interface {
	AppendEvent(ctx context.Context, event *Event) error
}

type AuthStorage interface {
	IdentityStorage
	EventStorage
}

// ============================================
// CACHE PORT
// ============================================

// Cache defines session caching operations
type Cache interface {
	Get(tokenHash string) (*Session, error)
	Set(tokenHash string, session *Session) error
	Delete(tokenHash string) error
}

// CacheWithStats extends Cache with statistics tracking
type CacheWithStats interface {
	Cache
	Stats() CacheStats
}

// CacheStats tracks cache performance metrics
type CacheStats struct {
	Hits      int64         `json:"hits"`
	Misses    int64         `json:"misses"`
	Sets      int64         `json:"sets"`
	Deletes   int64         `json:"deletes"`
	Evictions int64         `json:"evictions"`
	Size      int           `json:"size"`
	TTL       time.Duration `json:"ttl"`
}

// ============================================
// HANDLERS (for HTTP adapters)
// ============================================

// AuthHandler provides authentication operations for HTTP adapters
type AuthHandler interface {
	SignUp(ctx context.Context, input SignUpInput) (*PublicIdentity, error)
	Login(ctx context.Context, input LoginInput, ipAddress, userAgent string) (*LoginResult, error)
	Logout(ctx context.Context, token string)
	Authenticate(ctx context.Context, token string) (*PublicIdentity, error)
	Profile(ctx context.Context, token string) (*PublicIdentity, error)
}

// EventHandler records events on behalf of an authenticated identity
type EventHandler interface {
	Record(ctx context.Context, actor *PublicIdentity, input EventInput) (*Event, error)
}

// ============================================
// HTTP PORT
// ============================================

type HTTPAdapter interface {
	RegisterRoutes(auth AuthHandler, events EventHandler, opts RouteOptions) error
}
