package main

import (
	"context"
	"log/slog"

	"github.com/samber/oops"

	"github.com/lborres/tala/adapters/memory"
	pgxadapter "github.com/lborres/tala/adapters/pgx"
	redisadapter "github.com/lborres/tala/adapters/redis"
	"github.com/lborres/tala/core"
	"github.com/lborres/tala/internal/config"
)

// Backend is the storage selected by config
type Backend struct {
	Storage  core.AuthStorage
	Sessions core.SessionStorage

	closers []func()
}

// Close releases connections in reverse order of opening
func (b *Backend) Close() {
	for i := len(b.closers) - 1; i >= 0; i-- {
		b.closers[i]()
	}
}

// Deps contains injectable dependencies for the CLI commands.
// All fields with nil values will use their default implementations.
type Deps struct {
	// OpenBackend connects to the stores named in the config.
	// Default: openBackend
	OpenBackend func(ctx context.Context, cfg *config.Config, log *slog.Logger) (*Backend, error)

	// MigratorFactory creates a schema migrator from a database URL.
	// Default: pgxadapter.NewMigrator
	MigratorFactory func(databaseURL string) (Migrator, error)
}

// Migrator wraps the methods used from pgxadapter.Migrator
type Migrator interface {
	Up() error
	Down() error
	Version() (uint, bool, error)
	Close() error
}

func (d *Deps) withDefaults() *Deps {
	out := Deps{}
	if d != nil {
		out = *d
	}
	if out.OpenBackend == nil {
		out.OpenBackend = openBackend
	}
	if out.MigratorFactory == nil {
		out.MigratorFactory = func(databaseURL string) (Migrator, error) {
			return pgxadapter.NewMigrator(databaseURL)
		}
	}
	return &out
}

func openBackend(ctx context.Context, cfg *config.Config, log *slog.Logger) (*Backend, error) {
	if cfg.Session.Store == config.StoreMemory {
		log.Warn("using in-memory storage; nothing survives a restart")
		store := memory.New()
		return &Backend{Storage: store, Sessions: store}, nil
	}

	b := &Backend{}

	pool, err := pgxadapter.Connect(ctx, cfg.Database.URL)
	if err != nil {
		return nil, err
	}
	b.closers = append(b.closers, pool.Close)
	store := pgxadapter.New(pool)
	b.Storage = store
	b.Sessions = store
	log.Info("connected to database")

	if cfg.Session.Store == config.StoreRedis {
		client, err := redisadapter.Connect(ctx, cfg.Redis.URL)
		if err != nil {
			b.Close()
			return nil, err
		}
		b.closers = append(b.closers, func() {
			if err := client.Close(); err != nil {
				log.Warn("closing redis client", "error", err)
			}
		})
		b.Sessions = redisadapter.New(client, cfg.Redis.KeyPrefix, log)
		log.Info("sessions stored in redis")
	}

	return b, nil
}

// requireDatabase rejects commands that only make sense against postgres
func requireDatabase(cfg *config.Config) error {
	if cfg.Session.Store == config.StoreMemory {
		return oops.Code("CONFIG_INVALID").Errorf("this command needs a database; session.store is %q", cfg.Session.Store)
	}
	return nil
}
