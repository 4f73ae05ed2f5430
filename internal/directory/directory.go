// ABOUTME: Directory operations composed as guard, mutate, commit in one scope
// ABOUTME: Create/delete/show/list for APIs, services, and methods namespaced under APIs

package directory

import (
	"context"
	"errors"
	"log/slog"

	"github.com/2389/sd/internal/store"
)

// Store opens the transactional scope each operation runs in.
type Store interface {
	WithTx(ctx context.Context, fn func(tx *store.Tx) error) error
}

// APIInfo describes a registered API.
type APIInfo struct {
	Label    string   `json:"label"`
	Methods  []string `json:"methods"`
	Services []string `json:"services"`
}

// ServiceInfo describes a registered service.
type ServiceInfo struct {
	Label       string   `json:"label"`
	ServiceType string   `json:"service_type"`
	Endpoint    string   `json:"endpoint"`
	APIs        []string `json:"apis"`
}

// Directory mediates every read and mutation against the store.
// It holds no state of its own between calls.
type Directory struct {
	store  Store
	logger *slog.Logger
}

// New creates a Directory backed by s.
func New(s Store, logger *slog.Logger) *Directory {
	if logger == nil {
		logger = slog.Default()
	}
	return &Directory{store: s, logger: logger.With("component", "directory")}
}

// conflict replaces a store-level uniqueness violation with dup.
// This covers a racing create that passed the guard before the other committed.
func conflict(err error, dup *DuplicateError) error {
	if errors.Is(err, store.ErrDuplicate) {
		return dup
	}
	return err
}

// CreateAPI registers an API named name.
func (d *Directory) CreateAPI(ctx context.Context, name string) error {
	if err := required(argument{"api", name}); err != nil {
		return err
	}

	dup := &DuplicateError{Kind: KindAPI.Name, Name: name}
	err := d.store.WithTx(ctx, func(tx *store.Tx) error {
		if err := AssertAbsent(ctx, tx, KindAPI, name); err != nil {
			return err
		}
		_, err := tx.InsertAPI(ctx, name)
		return conflict(err, dup)
	})
	if err != nil {
		return conflict(err, dup)
	}

	d.logger.Info("api created", "api", name)
	return nil
}

// DeleteAPI removes the API named name along with its methods and service links.
func (d *Directory) DeleteAPI(ctx context.Context, name string) error {
	if err := required(argument{"api", name}); err != nil {
		return err
	}

	err := d.store.WithTx(ctx, func(tx *store.Tx) error {
		api, err := MustFind(ctx, tx, KindAPI, name)
		if err != nil {
			return err
		}
		return deleteFound(ctx, tx, api)
	})
	if err != nil {
		return err
	}

	d.logger.Info("api deleted", "api", name)
	return nil
}

// ShowAPI returns the API named name with its methods and the services implementing it.
func (d *Directory) ShowAPI(ctx context.Context, name string) (*APIInfo, error) {
	if err := required(argument{"api", name}); err != nil {
		return nil, err
	}

	var info *APIInfo
	err := d.store.WithTx(ctx, func(tx *store.Tx) error {
		api, err := MustFind(ctx, tx, KindAPI, name)
		if err != nil {
			return err
		}

		methods, err := tx.ListOwnedLabels(ctx, api, store.TableMethods)
		if err != nil {
			return err
		}
		services, err := tx.ServicesImplementing(ctx, api)
		if err != nil {
			return err
		}

		info = &APIInfo{Label: api.Label, Methods: methods, Services: services}
		return nil
	})
	return info, err
}

// ListAPIs returns the labels of every registered API, sorted.
func (d *Directory) ListAPIs(ctx context.Context) ([]string, error) {
	return d.listLabels(ctx, KindAPI)
}

// CreateService registers a service named name implementing the API named api.
// Nothing is persisted if the API does not exist.
func (d *Directory) CreateService(ctx context.Context, name, serviceType, api, endpoint string) error {
	if err := required(
		argument{"service", name},
		argument{"service_type", serviceType},
		argument{"api", api},
		argument{"endpoint", endpoint},
	); err != nil {
		return err
	}

	dup := &DuplicateError{Kind: KindService.Name, Name: name}
	err := d.store.WithTx(ctx, func(tx *store.Tx) error {
		if err := AssertAbsent(ctx, tx, KindService, name); err != nil {
			return err
		}
		apiRecord, err := MustFind(ctx, tx, KindAPI, api)
		if err != nil {
			return err
		}

		svc := &store.Service{
			Record:      store.Record{Label: name},
			ServiceType: serviceType,
			Endpoint:    endpoint,
		}
		return conflict(tx.InsertService(ctx, svc, []store.Record{apiRecord}), dup)
	})
	if err != nil {
		return conflict(err, dup)
	}

	d.logger.Info("service created", "service", name, "service_type", serviceType, "api", api, "endpoint", endpoint)
	return nil
}

// DeleteService removes the service named name.
func (d *Directory) DeleteService(ctx context.Context, name string) error {
	if err := required(argument{"service", name}); err != nil {
		return err
	}

	err := d.store.WithTx(ctx, func(tx *store.Tx) error {
		svc, err := MustFind(ctx, tx, KindService, name)
		if err != nil {
			return err
		}
		return deleteFound(ctx, tx, svc)
	})
	if err != nil {
		return err
	}

	d.logger.Info("service deleted", "service", name)
	return nil
}

// ShowService returns the service named name.
func (d *Directory) ShowService(ctx context.Context, name string) (*ServiceInfo, error) {
	if err := required(argument{"service", name}); err != nil {
		return nil, err
	}

	var info *ServiceInfo
	err := d.store.WithTx(ctx, func(tx *store.Tx) error {
		r, err := MustFind(ctx, tx, KindService, name)
		if err != nil {
			return err
		}

		svc, err := tx.GetService(ctx, r)
		if errors.Is(err, store.ErrNotFound) {
			return &NotFoundError{Kind: KindService.Name, Name: name}
		}
		if err != nil {
			return err
		}

		info = &ServiceInfo{
			Label:       svc.Label,
			ServiceType: svc.ServiceType,
			Endpoint:    svc.Endpoint,
			APIs:        svc.APIs,
		}
		return nil
	})
	return info, err
}

// ListServices returns the labels of every registered service, sorted.
func (d *Directory) ListServices(ctx context.Context) ([]string, error) {
	return d.listLabels(ctx, KindService)
}

// CreateMethod registers a method named method under the API named api.
func (d *Directory) CreateMethod(ctx context.Context, api, method string) error {
	if err := required(argument{"api", api}, argument{"method", method}); err != nil {
		return err
	}

	dup := &DuplicateError{Kind: KindMethod.Name, Name: method, Owner: &Owner{Kind: KindAPI.Name, Label: api}}
	err := d.store.WithTx(ctx, func(tx *store.Tx) error {
		owner, err := MustFind(ctx, tx, KindAPI, api)
		if err != nil {
			return err
		}
		if err := AssertAbsentNamespaced(ctx, tx, owner, KindMethod, method); err != nil {
			return err
		}
		_, err = tx.InsertMethod(ctx, owner, method)
		return conflict(err, dup)
	})
	if err != nil {
		return conflict(err, dup)
	}

	d.logger.Info("method created", "api", api, "method", method)
	return nil
}

// DeleteMethod removes the method named method from the API named api.
func (d *Directory) DeleteMethod(ctx context.Context, api, method string) error {
	if err := required(argument{"api", api}, argument{"method", method}); err != nil {
		return err
	}

	err := d.store.WithTx(ctx, func(tx *store.Tx) error {
		owner, err := MustFind(ctx, tx, KindAPI, api)
		if err != nil {
			return err
		}
		m, err := MustFindNamespaced(ctx, tx, owner, KindMethod, method)
		if err != nil {
			return err
		}
		return deleteFound(ctx, tx, m)
	})
	if err != nil {
		return err
	}

	d.logger.Info("method deleted", "api", api, "method", method)
	return nil
}

func (d *Directory) listLabels(ctx context.Context, kind Kind) ([]string, error) {
	var labels []string
	err := d.store.WithTx(ctx, func(tx *store.Tx) error {
		var err error
		labels, err = tx.ListLabels(ctx, kind.Table)
		return err
	})
	return labels, err
}

// deleteFound deletes a record a guard just returned.
// A row that vanished in between is reported like any other missing record.
func deleteFound(ctx context.Context, tx *store.Tx, r store.Record) error {
	err := tx.Delete(ctx, r)
	if errors.Is(err, store.ErrNotFound) {
		return &NotFoundError{Kind: kindOf(r.Table).Name, Name: r.Label}
	}
	return err
}
