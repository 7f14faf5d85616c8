// Package memory is a process-local storage adapter. It serves local
// development and tests; nothing survives a restart.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/lborres/tala/core"
)

type Adapter struct {
	mu sync.RWMutex

	identities map[string]*core.Identity // key: username
	emails     map[string]string         // email -> username
	sessions   map[string]*core.Session  // key: token hash
	events     []*core.Event
	nextEvent  int64

	now func() time.Time
}

var (
	_ core.AuthStorage    = (*Adapter)(nil)
	_ core.SessionStorage = (*Adapter)(nil)
)

func New() *Adapter {
	return &Adapter{
		identities: make(map[string]*core.Identity),
		emails:     make(map[string]string),
		sessions:   make(map[string]*core.Session),
		now:        time.Now,
	}
}

func (a *Adapter) CreateIdentity(_ context.Context, identity *core.Identity) (*core.PublicIdentity, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if _, exists := a.identities[identity.Username]; exists {
		return nil, core.ErrUsernameTaken
	}
	if identity.Email != nil {
		if _, exists := a.emails[*identity.Email]; exists {
			return nil, core.ErrEmailTaken
		}
	}

	stored := copyIdentity(identity)
	a.identities[stored.Username] = stored
	if stored.Email != nil {
		a.emails[*stored.Email] = stored.Username
	}

	return stored.Public(), nil
}

func (a *Adapter) GetIdentityByUsername(_ context.Context, username string) (*core.Identity, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	identity, ok := a.identities[username]
	if !ok {
		return nil, core.ErrUserNotFound
	}
	return copyIdentity(identity), nil
}

func (a *Adapter) GetIdentityByEmail(_ context.Context, email string) (*core.Identity, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	username, ok := a.emails[email]
	if !ok {
		return nil, core.ErrUserNotFound
	}
	return copyIdentity(a.identities[username]), nil
}

// GetIdentityByUsernameOrEmail prefers a username match, mirroring the
// ORDER BY of the postgres adapter.
func (a *Adapter) GetIdentityByUsernameOrEmail(ctx context.Context, identifier string) (*core.Identity, error) {
	if identity, err := a.GetIdentityByUsername(ctx, identifier); err == nil {
		return identity, nil
	}
	return a.GetIdentityByEmail(ctx, identifier)
}

func (a *Adapter) GetPublicIdentity(ctx context.Context, username string) (*core.PublicIdentity, error) {
	identity, err := a.GetIdentityByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	return identity.Public(), nil
}

// DeleteIdentity removes an identity. Sessions bound to it are left behind
// on purpose: they become dangling references.
func (a *Adapter) DeleteIdentity(username string) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if identity, ok := a.identities[username]; ok {
		if identity.Email != nil {
			delete(a.emails, *identity.Email)
		}
		delete(a.identities, username)
	}
}

func (a *Adapter) CreateSession(_ context.Context, session *core.Session) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	s := *session
	a.sessions[s.TokenHash] = &s
	return nil
}

func (a *Adapter) GetSessionByHash(_ context.Context, tokenHash string) (*core.Session, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	s, ok := a.sessions[tokenHash]
	if !ok {
		return nil, core.ErrSessionNotFound
	}
	out := *s
	return &out, nil
}

func (a *Adapter) DeleteSessionByHash(_ context.Context, tokenHash string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	delete(a.sessions, tokenHash)
	return nil
}

func (a *Adapter) DeleteExpiredSessions(_ context.Context, now time.Time) (int, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	count := 0
	for hash, s := range a.sessions {
		if s.Expired(now) {
			delete(a.sessions, hash)
			count++
		}
	}
	return count, nil
}

// SessionCount reports how many sessions are stored, expired ones included
func (a *Adapter) SessionCount() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.sessions)
}

func (a *Adapter) AppendEvent(_ context.Context, event *core.Event) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if _, ok := a.identities[event.Username]; !ok {
		return core.ErrUserNotFound
	}

	a.nextEvent++
	event.ID = a.nextEvent
	event.CreatedAt = a.now()

	stored := *event
	a.events = append(a.events, &stored)
	return nil
}

// Events returns a copy of all appended events in insertion order
func (a *Adapter) Events() []core.Event {
	a.mu.RLock()
	defer a.mu.RUnlock()

	out := make([]core.Event, 0, len(a.events))
	for _, e := range a.events {
		out = append(out, *e)
	}
	return out
}

func copyIdentity(identity *core.Identity) *core.Identity {
	out := *identity
	if identity.Email != nil {
		email := *identity.Email
		out.Email = &email
	}
	return &out
}
