// ABOUTME: Contract tests for the directory schema to detect breaking schema changes.
// ABOUTME: Checks tables, columns, uniqueness, and cascading foreign keys after migration.

package contract

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/sd/internal/store"
)

// expectedSchema defines the contract for our database schema.
// If a table or column is removed or renamed, these tests will fail.
var expectedSchema = map[string][]string{
	"apis":         {"id", "label"},
	"services":     {"id", "label", "service_type", "endpoint"},
	"service_apis": {"service_id", "api_id"},
	"methods":      {"id", "label", "api_id"},
}

// setupTestDB creates a migrated SQLite database and a second handle to inspect it.
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "contract_test.db")

	sqliteStore, err := store.NewSQLiteStore(store.DriverSQLite, dbPath)
	require.NoError(t, err, "failed to create SQLite store")
	require.NoError(t, sqliteStore.Migrate(), "failed to migrate")

	// The store owns its single connection, so inspect through another one
	db, err := sql.Open(store.DriverSQLite, dbPath)
	require.NoError(t, err, "failed to open database")

	t.Cleanup(func() {
		db.Close()
		sqliteStore.Close()
	})

	return db
}

// getTableColumns queries SQLite to get column names for a table.
func getTableColumns(ctx context.Context, db *sql.DB, tableName string) (map[string]bool, error) {
	query := fmt.Sprintf("PRAGMA table_info(%s)", tableName)
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("querying table info: %w", err)
	}
	defer rows.Close()

	columns := make(map[string]bool)
	for rows.Next() {
		var (
			cid       int
			name      string
			colType   string
			notNull   int
			dfltValue sql.NullString
			pk        int
		)
		if err := rows.Scan(&cid, &name, &colType, &notNull, &dfltValue, &pk); err != nil {
			return nil, fmt.Errorf("scanning column info: %w", err)
		}
		columns[name] = true
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating columns: %w", err)
	}

	return columns, nil
}

func queryNames(t *testing.T, db *sql.DB, query string, args ...any) map[string]bool {
	t.Helper()

	rows, err := db.QueryContext(context.Background(), query, args...)
	require.NoError(t, err)
	defer rows.Close()

	names := make(map[string]bool)
	for rows.Next() {
		var name string
		require.NoError(t, rows.Scan(&name))
		names[name] = true
	}
	require.NoError(t, rows.Err())
	return names
}

func TestSchemaSurface(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	for table, expectedCols := range expectedSchema {
		t.Run(table, func(t *testing.T) {
			actualCols, err := getTableColumns(ctx, db, table)
			if !assert.NoError(t, err, "failed to get columns for table %s", table) {
				return
			}
			if !assert.NotEmpty(t, actualCols, "table %s should exist and have columns", table) {
				return
			}

			for _, col := range expectedCols {
				assert.True(t, actualCols[col], "column %s.%s should exist", table, col)
			}

			for col := range actualCols {
				if !slices.Contains(expectedCols, col) {
					t.Logf("INFO: extra column %s.%s not in contract (consider adding)", table, col)
				}
			}
		})
	}
}

func TestTablesExist(t *testing.T) {
	db := setupTestDB(t)

	actual := queryNames(t, db, "SELECT name FROM sqlite_master WHERE type='table' AND name NOT LIKE 'sqlite_%'")
	for table := range expectedSchema {
		assert.True(t, actual[table], "table %s should exist", table)
	}

	// golang-migrate bookkeeping
	assert.True(t, actual["schema_migrations"], "schema_migrations should exist")
}

func TestSchemaHasIndexes(t *testing.T) {
	db := setupTestDB(t)

	actual := queryNames(t, db, "SELECT name FROM sqlite_master WHERE type='index' AND name NOT LIKE 'sqlite_%'")
	assert.True(t, actual["idx_service_apis_api"], "index idx_service_apis_api should exist")
}

// TestForeignKeysCascade verifies that deleting an API or service cannot leave
// links or methods behind.
func TestForeignKeysCascade(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	expected := map[string][]string{
		"service_apis": {"services", "apis"},
		"methods":      {"apis"},
	}

	for table, parents := range expected {
		t.Run(table, func(t *testing.T) {
			rows, err := db.QueryContext(ctx, fmt.Sprintf("PRAGMA foreign_key_list(%s)", table))
			require.NoError(t, err)
			defer rows.Close()

			onDelete := make(map[string]string)
			for rows.Next() {
				var (
					id, seq                    int
					parent, from, to           string
					onUpdate, onDel, matchRule string
				)
				require.NoError(t, rows.Scan(&id, &seq, &parent, &from, &to, &onUpdate, &onDel, &matchRule))
				onDelete[parent] = onDel
			}
			require.NoError(t, rows.Err())

			for _, parent := range parents {
				assert.Equal(t, "CASCADE", onDelete[parent], "%s -> %s should cascade on delete", table, parent)
			}
		})
	}
}

// TestUniqueLabels verifies the schema rejects duplicates even without the guards.
func TestUniqueLabels(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	_, err := db.ExecContext(ctx, "INSERT INTO apis (label) VALUES ('gamma')")
	require.NoError(t, err)
	_, err = db.ExecContext(ctx, "INSERT INTO apis (label) VALUES ('gamma')")
	assert.Error(t, err, "duplicate api label should be rejected")

	_, err = db.ExecContext(ctx, "INSERT INTO services (label, service_type, endpoint) VALUES ('svc', 'http', 'x')")
	require.NoError(t, err)
	_, err = db.ExecContext(ctx, "INSERT INTO services (label, service_type, endpoint) VALUES ('svc', 'grpc', 'y')")
	assert.Error(t, err, "duplicate service label should be rejected")

	_, err = db.ExecContext(ctx, "INSERT INTO methods (label, api_id) SELECT 'get', id FROM apis WHERE label = 'gamma'")
	require.NoError(t, err)
	_, err = db.ExecContext(ctx, "INSERT INTO methods (label, api_id) SELECT 'get', id FROM apis WHERE label = 'gamma'")
	assert.Error(t, err, "duplicate method label on one api should be rejected")
}
