// ABOUTME: Cobra root command for sd built from the command table
// ABOUTME: Loads config and logging lazily and reports usage on bad argument counts

package cli

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/2389/sd/internal/client"
	"github.com/2389/sd/internal/config"
	"github.com/2389/sd/internal/logging"
)

// ErrUsage is returned when a command line cannot be run as given.
// Usage has already been printed to stderr.
var ErrUsage = errors.New("usage error")

// app carries state shared by one invocation.
type app struct {
	configPath string
	stdout     io.Writer
	stderr     io.Writer

	cfg    *config.Config
	logger *slog.Logger
}

// setup loads configuration and builds the logger.
// An explicit --config path must exist; the default location may be absent.
func (a *app) setup() error {
	var (
		cfg *config.Config
		err error
	)
	if a.configPath != "" {
		cfg, err = config.Load(a.configPath)
	} else {
		cfg, err = config.LoadOrDefault(config.DefaultPath())
	}
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	a.cfg = cfg
	a.logger = logging.New(cfg.General, a.stderr)
	slog.SetDefault(a.logger)
	return nil
}

func (a *app) client() *client.Client {
	return client.New(a.cfg.Client.Endpoint, a.stdout, a.stderr)
}

// NewRootCommand creates the root command for the sd CLI.
func NewRootCommand(version string) *cobra.Command {
	a := &app{}
	table := commandTable()

	root := &cobra.Command{
		Use:           "sd",
		Short:         "sd - service directory",
		Long:          "Register APIs and the services implementing them, and look them up by name.",
		Version:       version,
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			a.stdout = cmd.OutOrStdout()
			a.stderr = cmd.ErrOrStderr()
		},
		RunE: func(_ *cobra.Command, args []string) error {
			_ = printHelp(a.stderr, table, nil)
			if len(args) > 0 {
				return ErrUsage
			}
			return nil
		},
	}
	root.PersistentFlags().StringVar(&a.configPath, "config", "", "config file (default $SD_CONFIG or ~/.config/sd/sd.yaml)")
	root.CompletionOptions.DisableDefaultCmd = true

	for _, c := range table {
		root.AddCommand(c.cobra(a, table))
	}

	help := &cobra.Command{
		Use:   helpEntry.usage(),
		Short: helpEntry.summary,
		Args:  cobra.ArbitraryArgs,
		RunE: func(_ *cobra.Command, args []string) error {
			return printHelp(a.stderr, table, args)
		},
	}
	root.SetHelpCommand(help)
	root.InitDefaultHelpCmd()
	root.SetHelpFunc(func(cmd *cobra.Command, _ []string) {
		stderr := cmd.ErrOrStderr()
		if cmd == root {
			_ = printHelp(stderr, table, nil)
			return
		}
		_ = printHelp(stderr, table, []string{cmd.Name()})
	})

	return root
}

// cobra converts a table entry into a subcommand.
// Arguments starting with "-" are parsed as flags unless they follow "--";
// a flag error is reported like a bad argument count.
func (c command) cobra(a *app, table []command) *cobra.Command {
	cmd := &cobra.Command{
		Use:   c.usage(),
		Short: c.summary,
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) == len(c.args) {
				return nil
			}
			stderr := cmd.ErrOrStderr()
			fmt.Fprintf(stderr, "Wrong number of arguments.  Usage:\n")
			_ = printHelp(stderr, table, []string{c.name})
			return ErrUsage
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.setup(); err != nil {
				return err
			}
			return c.run(cmd.Context(), a, args)
		},
	}
	cmd.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		stderr := cmd.ErrOrStderr()
		fmt.Fprintf(stderr, "Invalid arguments (%v).  Usage:\n", err)
		_ = printHelp(stderr, table, []string{c.name})
		fmt.Fprintf(stderr, "%s\n", dashHint)
		return ErrUsage
	})
	return cmd
}
