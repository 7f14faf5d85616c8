package pgx

import (
	"context"
	"errors"
	"time"

	pgx5 "github.com/jackc/pgx/v5"
	"github.com/samber/oops"

	"github.com/lborres/tala/core"
)

func (a *Adapter) CreateSession(ctx context.Context, session *core.Session) error {
	_, err := a.db.Exec(ctx,
		`INSERT INTO sessions (id, token_hash, username, ip_address, user_agent, created_at, expires_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		session.ID, session.TokenHash, session.Username, session.IPAddress, session.UserAgent,
		session.CreatedAt, session.ExpiresAt,
	)
	if err != nil {
		return oops.With("operation", "create session").With("session_id", session.ID).Wrap(err)
	}
	return nil
}

func (a *Adapter) GetSessionByHash(ctx context.Context, tokenHash string) (*core.Session, error) {
	var s core.Session
	err := a.db.QueryRow(ctx,
		`SELECT id, token_hash, username, ip_address, user_agent, created_at, expires_at
		 FROM sessions WHERE token_hash = $1`, tokenHash,
	).Scan(&s.ID, &s.TokenHash, &s.Username, &s.IPAddress, &s.UserAgent, &s.CreatedAt, &s.ExpiresAt)
	if errors.Is(err, pgx5.ErrNoRows) {
		return nil, core.ErrSessionNotFound
	}
	if err != nil {
		return nil, oops.With("operation", "get session").Wrap(err)
	}
	return &s, nil
}

func (a *Adapter) DeleteSessionByHash(ctx context.Context, tokenHash string) error {
	if _, err := a.db.Exec(ctx, `DELETE FROM sessions WHERE token_hash = $1`, tokenHash); err != nil {
		return oops.With("operation", "delete session").Wrap(err)
	}
	return nil
}

func (a *Adapter) DeleteExpiredSessions(ctx context.Context, now time.Time) (int, error) {
	tag, err := a.db.Exec(ctx, `DELETE FROM sessions WHERE expires_at <= $1`, now)
	if err != nil {
		return 0, oops.With("operation", "delete expired sessions").Wrap(err)
	}
	return int(tag.RowsAffected()), nil
}
