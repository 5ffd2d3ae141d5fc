// Package archive provides an optional durable audit sink recording every
// batch delivered to a consumer, for post-hoc replay verification. The feed
// engine itself is stateless (spec §6, "Persisted state: none"); this is a
// downstream consumer-side concern layered on top.
package archive

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	pgxmigrate "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	_ "github.com/golang-migrate/migrate/v4/source/file" // file:// migrations loader
	_ "github.com/jackc/pgx/v5/stdlib"
)

// ApplyMigrations runs every pending migration under migrationsDir against
// the Postgres instance reachable via dsn.
func ApplyMigrations(ctx context.Context, dsn, migrationsDir string) error {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return fmt.Errorf("archive: open migrations connection: %w", err)
	}
	defer func() { _ = db.Close() }()

	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("archive: ping migrations database: %w", err)
	}

	driver, err := pgxmigrate.WithInstance(db, &pgxmigrate.Config{})
	if err != nil {
		return fmt.Errorf("archive: initialize pgx driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance("file://"+migrationsDir, "pgx5", driver)
	if err != nil {
		return fmt.Errorf("archive: initialize migrate instance: %w", err)
	}
	defer func() { _, _ = m.Close() }()

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("archive: apply migrations: %w", err)
	}
	return nil
}
