// Package backend selects and opens the configured MentionStore.
package backend

import (
	"context"
	"fmt"

	"mention-radar/internal/storage"
	"mention-radar/internal/storage/memory"
	"mention-radar/internal/storage/migrations"
	pgstore "mention-radar/internal/storage/postgres"
	"mention-radar/internal/storage/sqlite"
)

// Options selects a storage backend. Precedence: memory, postgres, sqlite.
type Options struct {
	UseMemory   bool
	PostgresDSN string
	SQLitePath  string
}

// Name returns the backend the options resolve to.
func (o Options) Name() string {
	switch {
	case o.UseMemory:
		return "memory"
	case o.PostgresDSN != "":
		return "postgres"
	case o.SQLitePath != "":
		return "sqlite"
	default:
		return ""
	}
}

// WithSQLiteFallback returns o, selecting SQLite at path when no backend is set.
func (o Options) WithSQLiteFallback(path string) Options {
	if o.Name() == "" {
		o.SQLitePath = path
	}
	return o
}

// Open opens the store, applies migrations and returns a cleanup function.
// Any error here is a fatal startup failure.
func Open(ctx context.Context, opts Options) (storage.MentionStore, func(), error) {
	switch opts.Name() {
	case "memory":
		return memory.NewMentionStore(), func() {}, nil

	case "postgres":
		pool, err := pgstore.NewPool(ctx, opts.PostgresDSN)
		if err != nil {
			return nil, nil, fmt.Errorf("connect to postgres: %w", err)
		}
		if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("migrate postgres: %w", err)
		}
		return pgstore.NewMentionStore(pool), pool.Close, nil

	case "sqlite":
		db, err := sqlite.Open(ctx, opts.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		if err := migrations.RunSQLiteMigrations(ctx, db.DB); err != nil {
			db.Close()
			return nil, nil, fmt.Errorf("migrate sqlite: %w", err)
		}
		return sqlite.NewMentionStore(db), func() { db.Close() }, nil

	default:
		return nil, nil, fmt.Errorf("no storage configured: set --postgres-dsn, --sqlite-path or --use-memory: %w", storage.ErrInvalidInput)
	}
}
