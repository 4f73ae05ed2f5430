// ABOUTME: The sd command table: name, positional arguments, summary, and action
// ABOUTME: Directory commands map one to one onto HTTP routes of the API server

package cli

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"github.com/2389/sd/internal/directory"
	"github.com/2389/sd/internal/server"
	"github.com/2389/sd/internal/store"
)

// command describes one sd subcommand.
type command struct {
	name    string
	args    []string
	summary string
	run     func(ctx context.Context, a *app, args []string) error
}

// commandTable returns every sd subcommand except help, sorted by name.
// A fresh slice is built on each call so callers cannot alter the table.
func commandTable() []command {
	return []command{
		{
			name:    "api_create",
			args:    []string{"api"},
			summary: "Register an API",
			run: func(ctx context.Context, a *app, args []string) error {
				return a.client().Put(ctx, nil, "api", args[0])
			},
		},
		{
			name:    "api_delete",
			args:    []string{"api"},
			summary: "Remove an API",
			run: func(ctx context.Context, a *app, args []string) error {
				return a.client().Delete(ctx, "api", args[0])
			},
		},
		{
			name:    "api_list",
			summary: "List registered APIs",
			run: func(ctx context.Context, a *app, _ []string) error {
				return a.client().Get(ctx, "api")
			},
		},
		{
			name:    "api_show",
			args:    []string{"api"},
			summary: "Show an API with its methods and services",
			run: func(ctx context.Context, a *app, args []string) error {
				return a.client().Get(ctx, "api", args[0])
			},
		},
		{
			name:    "health",
			summary: "Check that the API server is up",
			run: func(ctx context.Context, a *app, _ []string) error {
				return a.client().Get(ctx, "health")
			},
		},
		{
			name:    "init_db",
			summary: "Initialize the database",
			run:     runInitDB,
		},
		{
			name:    "method_create",
			args:    []string{"api", "method"},
			summary: "Register a method on an API",
			run: func(ctx context.Context, a *app, args []string) error {
				return a.client().Put(ctx, nil, "api", args[0], "method", args[1])
			},
		},
		{
			name:    "method_delete",
			args:    []string{"api", "method"},
			summary: "Remove a method from an API",
			run: func(ctx context.Context, a *app, args []string) error {
				return a.client().Delete(ctx, "api", args[0], "method", args[1])
			},
		},
		{
			name:    "serve",
			summary: "Start the sd API server",
			run:     runServe,
		},
		{
			name:    "service_create",
			args:    []string{"service", "service_type", "api", "endpoint"},
			summary: "Create a service",
			run: func(ctx context.Context, a *app, args []string) error {
				return a.client().Put(ctx, url.Values{
					"service_type": {args[1]},
					"api":          {args[2]},
					"endpoint":     {args[3]},
				}, "service", args[0])
			},
		},
		{
			name:    "service_delete",
			args:    []string{"service"},
			summary: "Delete a service",
			run: func(ctx context.Context, a *app, args []string) error {
				return a.client().Delete(ctx, "service", args[0])
			},
		},
		{
			name:    "service_list",
			summary: "List registered services",
			run: func(ctx context.Context, a *app, _ []string) error {
				return a.client().Get(ctx, "service")
			},
		},
		{
			name:    "service_show",
			args:    []string{"service"},
			summary: "Show a service",
			run: func(ctx context.Context, a *app, args []string) error {
				return a.client().Get(ctx, "service", args[0])
			},
		},
	}
}

// openStore opens the configured database.
func (a *app) openStore() (*store.SQLiteStore, error) {
	s, err := store.NewSQLiteStore(a.cfg.Database.Driver, a.cfg.Database.URI)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	return s, nil
}

func runInitDB(_ context.Context, a *app, _ []string) error {
	s, err := a.openStore()
	if err != nil {
		return err
	}
	defer s.Close()

	if err := s.Migrate(); err != nil {
		return fmt.Errorf("initializing database: %w", err)
	}
	a.logger.Info("database initialized", "uri", a.cfg.Database.URI)
	return nil
}

func runServe(ctx context.Context, a *app, _ []string) error {
	s, err := a.openStore()
	if err != nil {
		return err
	}
	defer s.Close()

	version, err := s.SchemaVersion()
	if errors.Is(err, store.ErrSchemaMissing) {
		return fmt.Errorf("database %s has no schema: run init_db first", a.cfg.Database.URI)
	}
	if err != nil {
		return fmt.Errorf("checking schema: %w", err)
	}
	a.logger.Debug("schema version", "version", version)

	srv := server.New(a.cfg, directory.New(s, a.logger), a.logger)
	return srv.Run(ctx)
}
