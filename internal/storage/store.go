// Package storage opens the configured relational backend.
package storage

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/go-sql-driver/mysql"

	"reservation_ingest/internal/domain"
	"reservation_ingest/internal/shared"
	mysqlrepo "reservation_ingest/internal/storage/mysql"
	pgrepo "reservation_ingest/internal/storage/postgres"
)

// Store is a reservation repository that also keeps channel cursors.
type Store interface {
	domain.ReservationRepository
	domain.CursorStore
	EnsureSchema(ctx context.Context) error
}

// Open connects to cfg.StoreDriver, makes sure channel_state exists and
// returns the store with its close function.
func Open(ctx context.Context, cfg shared.Config) (Store, func(), error) {
	var (
		st    Store
		closeFn func()
	)
	switch cfg.StoreDriver {
	case "postgres":
		pool, err := pgrepo.Open(ctx, cfg.PostgresDSN, cfg.PGMaxConns)
		if err != nil {
			return nil, nil, err
		}
		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("postgres ping: %w", err)
		}
		st, closeFn = pgrepo.New(pool), pool.Close
	case "mysql":
		db, err := sql.Open("mysql", cfg.MySQLDSN)
		if err != nil {
			return nil, nil, fmt.Errorf("sql.Open: %w", err)
		}
		if err := db.PingContext(ctx); err != nil {
			_ = db.Close()
			return nil, nil, fmt.Errorf("mysql ping: %w", err)
		}
		st, closeFn = mysqlrepo.New(db), func() { _ = db.Close() }
	default:
		return nil, nil, fmt.Errorf("%w (got %q)", shared.ErrInvalidDriver, cfg.StoreDriver)
	}

	if err := st.EnsureSchema(ctx); err != nil {
		closeFn()
		return nil, nil, fmt.Errorf("ensure schema: %w", err)
	}
	return st, closeFn, nil
}
