// Package cli implements the apiquery command line: explain translates a
// query string without a database, serve exposes a DuckDB database over HTTP.
package cli

import (
	"fmt"
	"io"
	"log/slog"
	"slices"

	"github.com/spf13/cobra"

	"github.com/hugr-lab/apiquery"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	ConfigPath string
	LogLevel   string
	Format     string // "json" | "text"
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the apiquery CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "apiquery",
		Short: "Translate HTTP query strings into database queries",
		Long: `apiquery compiles query-string filters, sorts, projections, eager loads
and pagination into query-builder operations gated by per-entity whitelists.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			if _, err := parseLevel(opts.LogLevel); err != nil {
				return err
			}
			return nil
		},
	}

	// Global flags
	cmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", "", "path to YAML config file")
	cmd.PersistentFlags().StringVar(&opts.LogLevel, "log-level", "info", "log level (debug|info|warn|error)")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")

	// Add subcommands
	cmd.AddCommand(NewExplainCommand(opts))
	cmd.AddCommand(NewServeCommand(opts))

	return cmd
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return level, fmt.Errorf("invalid log level %q: %w", s, err)
	}
	return level, nil
}

// logger creates a text logger writing to w at the configured level.
func (o *RootOptions) logger(w io.Writer) *slog.Logger {
	level, _ := parseLevel(o.LogLevel)
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// loadConfig reads the config file and returns the translator config with
// logger set.
func (o *RootOptions) loadConfig(logger *slog.Logger) (apiquery.Config, error) {
	fc, err := apiquery.LoadConfig(o.ConfigPath)
	if err != nil {
		return apiquery.Config{}, WrapExitError(ExitCommandError, "failed to load config", err)
	}
	cfg, err := fc.Config()
	if err != nil {
		return apiquery.Config{}, WrapExitError(ExitCommandError, "invalid config", err)
	}
	cfg.Logger = logger
	return cfg, nil
}
