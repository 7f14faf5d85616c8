package pgx

import (
	"context"
	"errors"

	pgx5 "github.com/jackc/pgx/v5"
	"github.com/samber/oops"

	"github.com/lborres/tala/core"
)

const identityColumns = `username, password_hash, email`

func (a *Adapter) CreateIdentity(ctx context.Context, identity *core.Identity) (*core.PublicIdentity, error) {
	_, err := a.db.Exec(ctx,
		`INSERT INTO users (username, password_hash, email) VALUES ($1, $2, $3)`,
		identity.Username, identity.PasswordHash, identity.Email,
	)
	if err != nil {
		return nil, oops.With("operation", "create identity").Wrap(translateError(err))
	}
	return identity.Public(), nil
}

func (a *Adapter) GetIdentityByUsername(ctx context.Context, username string) (*core.Identity, error) {
	return a.getIdentity(ctx, "get identity by username",
		`SELECT `+identityColumns+` FROM users WHERE username = $1`, username)
}

func (a *Adapter) GetIdentityByEmail(ctx context.Context, email string) (*core.Identity, error) {
	return a.getIdentity(ctx, "get identity by email",
		`SELECT `+identityColumns+` FROM users WHERE email = $1`, email)
}

// GetIdentityByUsernameOrEmail prefers the row whose username matches when
// the identifier is one identity's username and another's email.
func (a *Adapter) GetIdentityByUsernameOrEmail(ctx context.Context, identifier string) (*core.Identity, error) {
	return a.getIdentity(ctx, "get identity by username or email",
		`SELECT `+identityColumns+` FROM users
		 WHERE username = $1 OR email = $1
		 ORDER BY (username = $1) DESC
		 LIMIT 1`, identifier)
}

func (a *Adapter) GetPublicIdentity(ctx context.Context, username string) (*core.PublicIdentity, error) {
	var pub core.PublicIdentity
	err := a.db.QueryRow(ctx,
		`SELECT username, email FROM users WHERE username = $1`, username,
	).Scan(&pub.Username, &pub.Email)
	if errors.Is(err, pgx5.ErrNoRows) {
		return nil, core.ErrUserNotFound
	}
	if err != nil {
		return nil, oops.With("operation", "get public identity").With("username", username).Wrap(err)
	}
	return &pub, nil
}

func (a *Adapter) getIdentity(ctx context.Context, operation, query string, arg string) (*core.Identity, error) {
	var identity core.Identity
	err := a.db.QueryRow(ctx, query, arg).Scan(&identity.Username, &identity.PasswordHash, &identity.Email)
	if errors.Is(err, pgx5.ErrNoRows) {
		return nil, core.ErrUserNotFound
	}
	if err != nil {
		return nil, oops.With("operation", operation).Wrap(err)
	}
	return &identity, nil
}
