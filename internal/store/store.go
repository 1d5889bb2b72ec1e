// Package store persists the lead universe in Postgres: entities, their
// signals, the latest score per entity and an audit row per pipeline run.
package store

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sepa-leadgen/internal/config"
)

// Store holds the database connection
type Store struct {
	db *sqlx.DB
}

// Open connects to Postgres, pings it and applies the pool settings.
func Open(ctx context.Context, cfg config.DatabaseSettings) (*Store, error) {
	db, err := sqlx.Open("postgres", cfg.DSN())
	if err != nil {
		return nil, eris.Wrap(err, "failed to open database")
	}

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, eris.Wrapf(err, "failed to ping database %s@%s:%d", cfg.Name, cfg.Host, cfg.Port)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(30 * time.Minute)

	zap.L().Info("database connected",
		zap.String("host", cfg.Host),
		zap.Int("port", cfg.Port),
		zap.String("database", cfg.Name))
	return &Store{db: db}, nil
}

// New wraps an existing connection.
func New(db *sqlx.DB) *Store {
	return &Store{db: db}
}

// DB exposes the underlying handle, used by migrations.
func (s *Store) DB() *sqlx.DB {
	return s.db
}

// Ping checks the connection is alive.
func (s *Store) Ping(ctx context.Context) error {
	return eris.Wrap(s.db.PingContext(ctx), "ping database")
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// inTx runs fn inside a transaction, committing on success.
func (s *Store) inTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "failed to begin transaction")
	}
	defer func() { _ = tx.Rollback() }()

	if err := fn(tx); err != nil {
		return err
	}
	return eris.Wrap(tx.Commit(), "failed to commit transaction")
}
