package core

import (
	"encoding/json"
	"time"
)

// Identity represents a registered account
//
// This is the "credential" - username is the primary key and never changes
type Identity struct {
	Username     string  `json:"username"`
	PasswordHash string  `json:"-"` // Never expose in JSON
	Email        *string `json:"email"`
}

// Public returns the projection of the identity that is safe to hand out
func (i *Identity) Public() *PublicIdentity {
	return &PublicIdentity{
		Username: i.Username,
		Email:    i.Email,
	}
}

// PublicIdentity is an identity without its password hash
type PublicIdentity struct {
	Username string  `json:"username"`
	Email    *string `json:"email"`
}

// Session represents an active login session
type Session struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	TokenHash string    `json:"-"` // Never expose in JSON (security!)
	IPAddress string    `json:"ipAddress"`
	UserAgent string    `json:"userAgent"`
	ExpiresAt time.Time `json:"expiresAt"`
	CreatedAt time.Time `json:"createdAt"`
}

// Expired reports whether the session is past its expiry at the given time
func (s *Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// IssuedSession is a freshly created session together with the raw token.
// The token is handed to the client once and only its hash is stored.
type IssuedSession struct {
	Session *Session `json:"session"`
	Token   string   `json:"token"`
}

// LoginResult contains the authenticated identity and its new session
type LoginResult struct {
	Identity  *PublicIdentity `json:"identity"`
	Token     string          `json:"token"` // The raw token (not the hash)
	ExpiresAt time.Time       `json:"expiresAt"`
}

// Event is an append-only, user-attributed log record
type Event struct {
	ID         int64           `json:"id"`
	Username   string          `json:"username"`
	EventType  string          `json:"event_type"`
	TargetType string          `json:"target_type"`
	TargetID   json.RawMessage `json:"target_id"`
	EventData  json.RawMessage `json:"event_data,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
}

// Receipt is the part of a stored event returned to the caller
func (e *Event) Receipt() EventReceipt {
	return EventReceipt{ID: e.ID, CreatedAt: e.CreatedAt}
}

type EventReceipt struct {
	ID        int64     `json:"id"`
	CreatedAt time.Time `json:"created_at"`
}
