// ABOUTME: Transactional scope for directory reads and mutations
// ABOUTME: Label lookups (global and per-owner), inserts, deletes, and listings

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
)

// Tx is a unit of work against the store. Obtain one from SQLiteStore.WithTx.
type Tx struct {
	tx     *sql.Tx
	logger *slog.Logger
}

// FindByLabel returns the record in table whose label equals label.
// Returns ErrNotFound if there is none.
func (t *Tx) FindByLabel(ctx context.Context, table Table, label string) (Record, error) {
	if err := table.validate(); err != nil {
		return Record{}, err
	}

	query := fmt.Sprintf(`SELECT id, label FROM %s WHERE label = ? LIMIT 1`, table)
	return t.scanRecord(t.tx.QueryRowContext(ctx, query, label), table)
}

// FindOwnedByLabel returns the record in table owned by owner whose label equals label.
// Returns ErrNotFound if there is none.
func (t *Tx) FindOwnedByLabel(ctx context.Context, owner Record, table Table, label string) (Record, error) {
	column, err := table.ownerColumn(owner.Table)
	if err != nil {
		return Record{}, err
	}

	query := fmt.Sprintf(`SELECT id, label FROM %s WHERE %s = ? AND label = ? LIMIT 1`, table, column)
	return t.scanRecord(t.tx.QueryRowContext(ctx, query, owner.ID, label), table)
}

func (t *Tx) scanRecord(row *sql.Row, table Table) (Record, error) {
	r := Record{Table: table}
	err := row.Scan(&r.ID, &r.Label)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, ErrNotFound
	}
	if err != nil {
		return Record{}, fmt.Errorf("querying %s: %w", table, err)
	}
	return r, nil
}

// InsertAPI stores a new API labelled label.
func (t *Tx) InsertAPI(ctx context.Context, label string) (Record, error) {
	res, err := t.tx.ExecContext(ctx, `INSERT INTO apis (label) VALUES (?)`, label)
	if err != nil {
		return Record{}, insertError(TableAPIs, err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return Record{}, fmt.Errorf("reading api id: %w", err)
	}

	t.logger.Debug("inserted api", "id", id, "label", label)
	return Record{ID: id, Label: label, Table: TableAPIs}, nil
}

// InsertService stores svc and links it to each API in apis.
// svc.ID and svc.APIs are filled in on success.
func (t *Tx) InsertService(ctx context.Context, svc *Service, apis []Record) error {
	res, err := t.tx.ExecContext(ctx,
		`INSERT INTO services (label, service_type, endpoint) VALUES (?, ?, ?)`,
		svc.Label, svc.ServiceType, svc.Endpoint,
	)
	if err != nil {
		return insertError(TableServices, err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("reading service id: %w", err)
	}

	svc.ID = id
	svc.Table = TableServices
	svc.APIs = make([]string, 0, len(apis))
	for _, api := range apis {
		if _, err := t.tx.ExecContext(ctx,
			`INSERT INTO service_apis (service_id, api_id) VALUES (?, ?)`,
			id, api.ID,
		); err != nil {
			return insertError("service_apis", err)
		}
		svc.APIs = append(svc.APIs, api.Label)
	}

	t.logger.Debug("inserted service", "id", id, "label", svc.Label, "apis", svc.APIs)
	return nil
}

// InsertMethod stores a new method labelled label under the API owner.
func (t *Tx) InsertMethod(ctx context.Context, owner Record, label string) (Record, error) {
	if _, err := TableMethods.ownerColumn(owner.Table); err != nil {
		return Record{}, err
	}

	res, err := t.tx.ExecContext(ctx, `INSERT INTO methods (label, api_id) VALUES (?, ?)`, label, owner.ID)
	if err != nil {
		return Record{}, insertError(TableMethods, err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return Record{}, fmt.Errorf("reading method id: %w", err)
	}

	t.logger.Debug("inserted method", "id", id, "label", label, "api", owner.Label)
	return Record{ID: id, Label: label, Table: TableMethods}, nil
}

// Delete removes r. Rows referencing it are removed by cascade.
// Returns ErrNotFound if r no longer exists.
func (t *Tx) Delete(ctx context.Context, r Record) error {
	if err := r.Table.validate(); err != nil {
		return err
	}

	query := fmt.Sprintf(`DELETE FROM %s WHERE id = ?`, r.Table)
	res, err := t.tx.ExecContext(ctx, query, r.ID)
	if err != nil {
		return fmt.Errorf("deleting from %s: %w", r.Table, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}

	t.logger.Debug("deleted record", "table", string(r.Table), "id", r.ID, "label", r.Label)
	return nil
}

// ListLabels returns every label in table, sorted.
func (t *Tx) ListLabels(ctx context.Context, table Table) ([]string, error) {
	if err := table.validate(); err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`SELECT label FROM %s ORDER BY label`, table)
	return t.queryLabels(ctx, query)
}

// ListOwnedLabels returns the labels in table owned by owner, sorted.
func (t *Tx) ListOwnedLabels(ctx context.Context, owner Record, table Table) ([]string, error) {
	column, err := table.ownerColumn(owner.Table)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`SELECT label FROM %s WHERE %s = ? ORDER BY label`, table, column)
	return t.queryLabels(ctx, query, owner.ID)
}

// ServicesImplementing returns the labels of services linked to api, sorted.
func (t *Tx) ServicesImplementing(ctx context.Context, api Record) ([]string, error) {
	return t.queryLabels(ctx, `
		SELECT s.label FROM services s
		JOIN service_apis sa ON sa.service_id = s.id
		WHERE sa.api_id = ?
		ORDER BY s.label
	`, api.ID)
}

// GetService loads the full service row for r, including its linked API labels.
func (t *Tx) GetService(ctx context.Context, r Record) (*Service, error) {
	svc := &Service{Record: Record{Table: TableServices}}
	err := t.tx.QueryRowContext(ctx,
		`SELECT id, label, service_type, endpoint FROM services WHERE id = ?`, r.ID,
	).Scan(&svc.ID, &svc.Label, &svc.ServiceType, &svc.Endpoint)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying service: %w", err)
	}

	svc.APIs, err = t.queryLabels(ctx, `
		SELECT a.label FROM apis a
		JOIN service_apis sa ON sa.api_id = a.id
		WHERE sa.service_id = ?
		ORDER BY a.label
	`, svc.ID)
	if err != nil {
		return nil, err
	}
	return svc, nil
}

func (t *Tx) queryLabels(ctx context.Context, query string, args ...any) ([]string, error) {
	rows, err := t.tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying labels: %w", err)
	}
	defer rows.Close()

	labels := []string{}
	for rows.Next() {
		var label string
		if err := rows.Scan(&label); err != nil {
			return nil, fmt.Errorf("scanning label: %w", err)
		}
		labels = append(labels, label)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating labels: %w", err)
	}
	return labels, nil
}

// insertError maps a failed insert to ErrDuplicate when a uniqueness constraint rejected it.
func insertError(table Table, err error) error {
	if isUniqueConstraintError(err) {
		return ErrDuplicate
	}
	return fmt.Errorf("inserting into %s: %w", table, err)
}
