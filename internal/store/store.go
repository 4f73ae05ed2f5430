// ABOUTME: Record types, table names, and sentinel errors for sd persistence
// ABOUTME: Defines the API, Service, and Method entities and their shared label columns

package store

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when a requested record does not exist
var ErrNotFound = errors.New("not found")

// ErrDuplicate is returned when an insert or commit violates a uniqueness constraint
var ErrDuplicate = errors.New("already exists")

// ErrSchemaMissing is returned when the database has not been initialized with init_db
var ErrSchemaMissing = errors.New("database schema not initialized")

// Table names a persisted entity type.
type Table string

// Tables known to the store. Every table carries the shared id and label columns.
const (
	TableAPIs     Table = "apis"
	TableServices Table = "services"
	TableMethods  Table = "methods"
)

// ownership describes how a namespaced table points at its owner.
type ownership struct {
	owner  Table
	column string
}

// owners maps namespaced tables to their owning table and reference column.
var owners = map[Table]ownership{
	TableMethods: {owner: TableAPIs, column: "api_id"},
}

func (t Table) validate() error {
	switch t {
	case TableAPIs, TableServices, TableMethods:
		return nil
	}
	return fmt.Errorf("unknown table %q", string(t))
}

// ownerColumn returns the column on t referencing owner.
func (t Table) ownerColumn(owner Table) (string, error) {
	o, ok := owners[t]
	if !ok {
		return "", fmt.Errorf("table %q is not namespaced", string(t))
	}
	if o.owner != owner {
		return "", fmt.Errorf("table %q is owned by %q, not %q", string(t), string(o.owner), string(owner))
	}
	return o.column, nil
}

// Record holds the columns common to every stored entity.
// Label is the symbolic name used by every lookup.
type Record struct {
	ID    int64
	Label string
	Table Table
}

// Service is a concrete implementation registered in the directory.
type Service struct {
	Record
	ServiceType string
	Endpoint    string
	APIs        []string // labels of linked APIs
}
