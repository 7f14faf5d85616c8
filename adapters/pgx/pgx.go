// Package pgx stores identities, sessions and events in PostgreSQL.
package pgx

import (
	"context"
	"errors"

	"github.com/jackc/pgerrcode"
	pgx5 "github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/samber/oops"

	"github.com/lborres/tala/core"
)

// Querier is the subset of *pgxpool.Pool the adapter uses
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx5.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx5.Row
}

type Adapter struct {
	db Querier
}

var (
	_ core.AuthStorage    = (*Adapter)(nil)
	_ core.SessionStorage = (*Adapter)(nil)
	_ Querier             = (*pgxpool.Pool)(nil)
)

func New(db Querier) *Adapter {
	return &Adapter{
		db: db,
	}
}

// Connect opens a pool and checks it is reachable
func Connect(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, oops.Code("DB_CONNECT_FAILED").Wrap(err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, oops.Code("DB_PING_FAILED").Wrap(err)
	}
	return pool, nil
}

// Constraint names from migrations/000001_init.up.sql
const (
	constraintUsersPkey  = "users_pkey"
	constraintUsersEmail = "users_email_key"
)

// translateError maps constraint violations onto domain errors.
// Anything else is returned unchanged.
func translateError(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}

	switch pgErr.Code {
	case pgerrcode.UniqueViolation:
		if pgErr.ConstraintName == constraintUsersEmail {
			return core.ErrEmailTaken
		}
		if pgErr.ConstraintName == constraintUsersPkey {
			return core.ErrUsernameTaken
		}
	case pgerrcode.ForeignKeyViolation:
		return core.ErrUserNotFound
	}
	return err
}
