package cli

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	_ "github.com/duckdb/duckdb-go/v2"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/hugr-lab/apiquery"
	"github.com/hugr-lab/apiquery/auth"
	"github.com/hugr-lab/apiquery/internal/httpapi"
)

// Serve defaults.
const (
	DefaultAddr            = ":8080"
	DefaultShutdownTimeout = 30 * time.Second
)

// ServeSettings configures the HTTP server. They are read from the
// "server" section of the config file; flags override them.
type ServeSettings struct {
	Addr        string            `mapstructure:"addr"`
	Database    string            `mapstructure:"db"`
	Init        string            `mapstructure:"init"`
	CORSOrigins []string          `mapstructure:"cors_origins"`
	Tokens      []auth.TokenGrant `mapstructure:"tokens"`
}

// ServeOptions holds flags for the serve command.
type ServeOptions struct {
	*RootOptions
	Tokens []string
}

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ServeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve catalog entities from a DuckDB database over HTTP",
		Long: `Start an HTTP server exposing every catalog entity as GET /{entity}
and GET /{entity}/{id}. Query strings are translated into DuckDB queries.
With no catalog configured, every table is served unrestricted.

Example:
  apiquery serve --config api.yaml --db ./blog.duckdb
  apiquery serve --init schema.sql --token secret:alice --cors-origin http://localhost:3000`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := loadServeSettings(opts.ConfigPath, cmd)
			if err != nil {
				return err
			}
			grants, err := parseTokens(opts.Tokens)
			if err != nil {
				return err
			}
			settings.Tokens = append(settings.Tokens, grants...)
			return runServe(opts, settings, cmd)
		},
	}

	cmd.Flags().String("addr", DefaultAddr, "listen address")
	cmd.Flags().String("db", "", "DuckDB database path (empty for in-memory)")
	cmd.Flags().String("init", "", "SQL file executed at startup")
	cmd.Flags().StringSlice("cors-origin", nil, "allowed CORS origin (repeatable)")
	cmd.Flags().StringSliceVar(&opts.Tokens, "token", nil, "bearer token as token[:identity] (repeatable)")

	return cmd
}

// loadServeSettings merges the config file "server" section with flags
// set on cmd.
func loadServeSettings(path string, cmd *cobra.Command) (ServeSettings, error) {
	v := viper.New()
	v.SetDefault("server.addr", DefaultAddr)
	v.SetEnvPrefix(apiquery.EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	bindings := map[string]string{
		"server.addr":         "addr",
		"server.db":           "db",
		"server.init":         "init",
		"server.cors_origins": "cors-origin",
	}
	for key, flag := range bindings {
		if f := cmd.Flags().Lookup(flag); f != nil && f.Changed {
			if err := v.BindPFlag(key, f); err != nil {
				return ServeSettings{}, WrapExitError(ExitCommandError, "bind flag "+flag, err)
			}
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return ServeSettings{}, WrapExitError(ExitCommandError, "failed to load config", err)
		}
	}

	var s ServeSettings
	if err := v.UnmarshalKey("server", &s); err != nil {
		return ServeSettings{}, WrapExitError(ExitCommandError, "invalid server config", err)
	}
	// UnmarshalKey skips values only present in env or flags.
	s.Addr = v.GetString("server.addr")
	s.Database = v.GetString("server.db")
	s.Init = v.GetString("server.init")
	if origins := v.GetStringSlice("server.cors_origins"); len(origins) > 0 {
		s.CORSOrigins = origins
	}
	return s, nil
}

// parseTokens parses token[:identity] flag values.
func parseTokens(values []string) ([]auth.TokenGrant, error) {
	grants := make([]auth.TokenGrant, 0, len(values))
	for _, v := range values {
		token, identity, _ := strings.Cut(v, ":")
		if token == "" {
			return nil, NewExitError(ExitCommandError, fmt.Sprintf("invalid token %q", v))
		}
		grants = append(grants, auth.TokenGrant{Token: token, Identity: identity})
	}
	return grants, nil
}

func runServe(opts *ServeOptions, settings ServeSettings, cmd *cobra.Command) error {
	logger := opts.logger(cmd.ErrOrStderr())

	cfg, err := opts.loadConfig(logger)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv, db, err := openServer(ctx, settings, cfg, logger)
	if err != nil {
		return err
	}
	defer db.Close()
	defer srv.Close()

	httpServer := &http.Server{
		Addr:              settings.Addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Starting HTTP query API", "addr", settings.Addr, "db", settings.Database)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return WrapExitError(ExitFailure, "server failed", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("Shutting down HTTP query API")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), DefaultShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return WrapExitError(ExitFailure, "shutdown failed", err)
	}
	return nil
}

// openServer opens the database, runs the init script and builds the HTTP
// server. Caller must close both.
func openServer(ctx context.Context, settings ServeSettings, cfg apiquery.Config, logger *slog.Logger) (*httpapi.Server, *sql.DB, error) {
	f, err := apiquery.NewFactory(cfg)
	if err != nil {
		return nil, nil, WrapExitError(ExitCommandError, "invalid config", err)
	}

	db, err := sql.Open("duckdb", settings.Database)
	if err != nil {
		return nil, nil, WrapExitError(ExitCommandError, "open database", err)
	}

	if settings.Init != "" {
		script, err := os.ReadFile(settings.Init)
		if err != nil {
			db.Close()
			return nil, nil, WrapExitError(ExitCommandError, "read init script", err)
		}
		if _, err := db.ExecContext(ctx, string(script)); err != nil {
			db.Close()
			return nil, nil, WrapExitError(ExitCommandError, "run init script", err)
		}
		logger.Debug("Init script executed", "path", settings.Init)
	}

	var authenticator auth.Authenticator
	if len(settings.Tokens) > 0 {
		authenticator = auth.StaticTokens(settings.Tokens...)
	}

	srv, err := httpapi.New(httpapi.Config{
		DB:          db,
		Factory:     f,
		Catalog:     cfg.Catalog,
		Auth:        authenticator,
		CORSOrigins: settings.CORSOrigins,
		Logger:      logger,
	})
	if err != nil {
		db.Close()
		return nil, nil, WrapExitError(ExitCommandError, "create server", err)
	}
	return srv, db, nil
}
