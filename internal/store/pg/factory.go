// Package pg implements the managed-mode stores on Postgres via the pgx
// stdlib driver. Schema lives in migrations/ and is applied with
// `leadclaw migrate up`.
package pg

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/nextlevelbuilder/leadclaw/internal/store"
)

// OpenDB opens a Postgres connection pool.
func OpenDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return db, nil
}

// NewStores creates all stores backed by Postgres (managed mode).
func NewStores(dsn string) (*store.Stores, error) {
	db, err := OpenDB(dsn)
	if err != nil {
		return nil, err
	}

	return &store.Stores{
		Tenants:   &tenantStore{db: db},
		Channels:  &channelStore{db: db},
		Campaigns: &campaignStore{db: db},
		Leads:     &leadStore{db: db},
		Roster:    &rosterStore{db: db},
		Cursors:   &cursorStore{db: db},
	}, nil
}
