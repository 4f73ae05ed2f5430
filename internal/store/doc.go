// Package store provides persistent storage for the service directory using SQLite.
//
// # Architecture
//
// SQLiteStore owns the database handle. All reads and writes happen inside a
// Tx obtained from WithTx, which commits when the callback returns nil and
// rolls back otherwise. One request maps to one transaction; the store keeps
// no state between transactions.
//
// # Data Models
//
//   - Record: id and label, shared by every entity
//   - API: a registrable interface (table apis)
//   - Service: an implementation with a type, an endpoint, and linked APIs (tables services, service_apis)
//   - Method: an operation namespaced under an API (table methods)
//
// # SQLite Configuration
//
// Two drivers are supported, selected by name:
//
//   - sqlite: modernc.org/sqlite (default, pure Go)
//   - sqlite3: github.com/mattn/go-sqlite3 (cgo)
//
// Every connection runs with:
//
//	PRAGMA journal_mode=WAL;
//	PRAGMA busy_timeout=5000;
//	PRAGMA foreign_keys=ON;
//
// # Error Handling
//
//   - ErrNotFound: a lookup matched no row
//   - ErrDuplicate: an insert or commit violated a uniqueness constraint
//   - ErrSchemaMissing: init_db has not been run
//
// # Migrations
//
// Migrations are embedded from internal/store/migrations and applied with
// golang-migrate by Migrate. NewSQLiteStore never changes the schema.
package store
