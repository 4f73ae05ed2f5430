// ABOUTME: Embedded schema migrations applied with golang-migrate
// ABOUTME: Backs the init_db command and the schema check performed before serving

package store

import (
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	migratesqlite3 "github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// newMigrate builds a migrator bound to the store's open handle.
// The returned migrator must not be closed: closing it would close s.db.
func (s *SQLiteStore) newMigrate() (*migrate.Migrate, error) {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return nil, fmt.Errorf("loading embedded migrations: %w", err)
	}

	var drv database.Driver
	switch s.driver {
	case DriverSQLite3:
		drv, err = migratesqlite3.WithInstance(s.db, &migratesqlite3.Config{})
	default:
		drv, err = migratesqlite.WithInstance(s.db, &migratesqlite.Config{})
	}
	if err != nil {
		return nil, fmt.Errorf("preparing migration driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, s.driver, drv)
	if err != nil {
		return nil, fmt.Errorf("creating migrator: %w", err)
	}
	return m, nil
}

// Migrate creates or upgrades the schema to the latest embedded version.
// Running it against an up-to-date database is a no-op.
func (s *SQLiteStore) Migrate() error {
	m, err := s.newMigrate()
	if err != nil {
		return err
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("applying migrations: %w", err)
	}

	version, _, err := m.Version()
	if err != nil {
		return fmt.Errorf("reading schema version: %w", err)
	}
	s.logger.Info("schema ready", "version", version)
	return nil
}

// SchemaVersion returns the applied schema version.
// It returns ErrSchemaMissing if init_db has never run and an error if a
// previous migration was interrupted.
func (s *SQLiteStore) SchemaVersion() (uint, error) {
	m, err := s.newMigrate()
	if err != nil {
		return 0, err
	}

	version, dirty, err := m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, ErrSchemaMissing
	}
	if err != nil {
		return 0, fmt.Errorf("reading schema version: %w", err)
	}
	if dirty {
		return version, fmt.Errorf("schema version %d is dirty; a previous migration failed", version)
	}
	return version, nil
}
