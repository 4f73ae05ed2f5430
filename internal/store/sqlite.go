// ABOUTME: SQLite implementation of the directory store using database/sql
// ABOUTME: Opens modernc.org/sqlite or mattn/go-sqlite3 and scopes work in transactions

package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/mattn/go-sqlite3"
	_ "modernc.org/sqlite"
)

// Supported database/sql driver names.
const (
	DriverSQLite  = "sqlite"  // modernc.org/sqlite, pure Go
	DriverSQLite3 = "sqlite3" // github.com/mattn/go-sqlite3, requires cgo
)

// Drivers lists the driver names accepted by NewSQLiteStore.
var Drivers = []string{DriverSQLite, DriverSQLite3}

// SQLiteStore persists directory records in SQLite
type SQLiteStore struct {
	db     *sql.DB
	driver string
	logger *slog.Logger
}

// NewSQLiteStore opens the database at uri using the named driver.
// Parent directories are created for plain file paths.
// The schema is not created here; call Migrate (init_db) for that.
func NewSQLiteStore(driver, uri string) (*SQLiteStore, error) {
	logger := slog.Default().With("component", "store")

	if !isKnownDriver(driver) {
		return nil, fmt.Errorf("unsupported database driver %q (use one of %s)", driver, strings.Join(Drivers, ", "))
	}

	if isFilePath(uri) {
		if err := os.MkdirAll(filepath.Dir(uri), 0755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	db, err := sql.Open(driver, dsn(uri))
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// SQLite allows a single writer; one connection also keeps :memory: databases alive
	// and makes the per-connection pragmas below stick.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, err
	}

	logger.Info("SQLite store opened", "driver", driver, "uri", uri)
	return &SQLiteStore{
		db:     db,
		driver: driver,
		logger: logger,
	}, nil
}

// applyPragmas sets the connection configuration the schema relies on.
func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("executing %q: %w", pragma, err)
		}
	}
	return nil
}

func isKnownDriver(driver string) bool {
	for _, d := range Drivers {
		if d == driver {
			return true
		}
	}
	return false
}

// dsn adds the connection parameters both drivers understand to uri.
// _txlock=immediate makes every transaction take the write lock at BEGIN, so a
// guard's read and the insert that follows cannot interleave with another
// process on the same file; busy_timeout then queues the contenders.
func dsn(uri string) string {
	sep := "?"
	if strings.Contains(uri, "?") {
		sep = "&"
	}
	return uri + sep + "_txlock=immediate"
}

// isFilePath reports whether uri names a file on disk rather than a memory or URI-style database.
func isFilePath(uri string) bool {
	return uri != "" && uri != ":memory:" && !strings.HasPrefix(uri, "file:")
}

// Driver returns the database/sql driver name the store was opened with.
func (s *SQLiteStore) Driver() string {
	return s.driver
}

// WithTx runs fn inside a single transaction started with BEGIN IMMEDIATE.
// The transaction commits when fn returns nil and rolls back otherwise.
// A uniqueness violation surfacing at commit is reported as ErrDuplicate.
func (s *SQLiteStore) WithTx(ctx context.Context, fn func(tx *Tx) error) error {
	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer sqlTx.Rollback() // no-op once committed

	if err := fn(&Tx{tx: sqlTx, logger: s.logger}); err != nil {
		return err
	}

	if err := sqlTx.Commit(); err != nil {
		if isUniqueConstraintError(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// Close releases the database handle
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// isUniqueConstraintError reports whether err is a SQLite uniqueness violation.
// Both drivers pass through SQLite's own message text.
func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") || strings.Contains(msg, "PRIMARY KEY constraint failed")
}
