// ABOUTME: Existence guards run before every directory mutation
// ABOUTME: Turn label lookups (global or per-owner) into DuplicateError / NotFoundError

package directory

import (
	"context"
	"errors"
	"fmt"

	"github.com/2389/sd/internal/store"
)

// Kind names a record type for lookups and error messages.
type Kind struct {
	Name  string
	Table store.Table
}

// Record kinds managed by the directory.
var (
	KindAPI     = Kind{Name: "API", Table: store.TableAPIs}
	KindService = Kind{Name: "Service", Table: store.TableServices}
	KindMethod  = Kind{Name: "Method", Table: store.TableMethods}
)

// kindOf returns the Kind stored in table.
func kindOf(table store.Table) Kind {
	for _, k := range []Kind{KindAPI, KindService, KindMethod} {
		if k.Table == table {
			return k
		}
	}
	return Kind{Name: string(table), Table: table}
}

// Scope is the transactional unit guards query against. *store.Tx implements it.
type Scope interface {
	FindByLabel(ctx context.Context, table store.Table, label string) (store.Record, error)
	FindOwnedByLabel(ctx context.Context, owner store.Record, table store.Table, label string) (store.Record, error)
}

// AssertAbsent returns a *DuplicateError if a record of kind labelled name exists in scope.
func AssertAbsent(ctx context.Context, scope Scope, kind Kind, name string) error {
	_, err := scope.FindByLabel(ctx, kind.Table, name)
	switch {
	case err == nil:
		return &DuplicateError{Kind: kind.Name, Name: name}
	case errors.Is(err, store.ErrNotFound):
		return nil
	default:
		return fmt.Errorf("looking up %s %s: %w", kind.Name, name, err)
	}
}

// MustFind returns the record of kind labelled name, or a *NotFoundError if there is none.
func MustFind(ctx context.Context, scope Scope, kind Kind, name string) (store.Record, error) {
	r, err := scope.FindByLabel(ctx, kind.Table, name)
	switch {
	case err == nil:
		return r, nil
	case errors.Is(err, store.ErrNotFound):
		return store.Record{}, &NotFoundError{Kind: kind.Name, Name: name}
	default:
		return store.Record{}, fmt.Errorf("looking up %s %s: %w", kind.Name, name, err)
	}
}

// AssertAbsentNamespaced is AssertAbsent restricted to records owned by owner.
func AssertAbsentNamespaced(ctx context.Context, scope Scope, owner store.Record, inner Kind, name string) error {
	_, err := scope.FindOwnedByLabel(ctx, owner, inner.Table, name)
	switch {
	case err == nil:
		return &DuplicateError{Kind: inner.Name, Name: name, Owner: ownerOf(owner)}
	case errors.Is(err, store.ErrNotFound):
		return nil
	default:
		return fmt.Errorf("looking up %s %s on %s: %w", inner.Name, name, owner.Label, err)
	}
}

// MustFindNamespaced is MustFind restricted to records owned by owner.
func MustFindNamespaced(ctx context.Context, scope Scope, owner store.Record, inner Kind, name string) (store.Record, error) {
	r, err := scope.FindOwnedByLabel(ctx, owner, inner.Table, name)
	switch {
	case err == nil:
		return r, nil
	case errors.Is(err, store.ErrNotFound):
		return store.Record{}, &NotFoundError{Kind: inner.Name, Name: name, Owner: ownerOf(owner)}
	default:
		return store.Record{}, fmt.Errorf("looking up %s %s on %s: %w", inner.Name, name, owner.Label, err)
	}
}

func ownerOf(r store.Record) *Owner {
	return &Owner{Kind: kindOf(r.Table).Name, Label: r.Label}
}
