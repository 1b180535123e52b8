package apiquery

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/hugr-lab/apiquery/builder"
	"github.com/hugr-lab/apiquery/catalog"
)

// Factory creates per-request Handlers sharing one configuration.
// A Factory is immutable and safe for concurrent use; Handlers are not.
type Factory struct {
	config   Config
	logger   *slog.Logger
	reserved map[string]bool
	ignored  map[string]bool
}

// NewFactory validates config, applies defaults and returns a Factory.
//
// Example:
//
//	f, err := apiquery.NewFactory(apiquery.Config{Limit: 50})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	h := f.FromRequest(r, query, posts)
//	rows, err := h.Get(r.Context())
func NewFactory(config Config) (*Factory, error) {
	if err := validateConfig(config); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	// Use defaults for optional fields
	if config.Prefix == "" {
		config.Prefix = DefaultPrefix
	}
	if config.Limit == 0 {
		config.Limit = DefaultLimit
	}

	logger := config.Logger
	if logger == nil {
		level := slog.LevelInfo
		if config.LogLevel != nil {
			level = *config.LogLevel
		}
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: level,
		}))
	}

	f := &Factory{
		config:   config,
		logger:   logger,
		reserved: make(map[string]bool),
		ignored:  make(map[string]bool, len(config.Ignores)),
	}
	for _, name := range []string{ParamSort, ParamFields, ParamLimit, ParamWith, ParamPage} {
		f.reserved[config.Prefix+name] = true
	}
	for _, name := range config.Ignores {
		f.ignored[name] = true
	}

	return f, nil
}

// Config returns the effective configuration, defaults applied.
func (f *Factory) Config() Config {
	return f.config
}

// Make creates a Handler translating params onto b.
//
// entity selects the whitelist gate; nil permits filtering and sorting on any
// column and no eager loading. b may be nil, in which case every terminal
// operation fails with ErrMissingBuilder.
func (f *Factory) Make(params Params, b builder.Builder, entity catalog.Entity) *Handler {
	return newHandler(f, params, b, entity)
}

// FromRequest creates a Handler for the query string of r.
func (f *Factory) FromRequest(r *http.Request, b builder.Builder, entity catalog.Entity) *Handler {
	return f.Make(ParseQuery(r.URL.RawQuery), b, entity)
}

// param returns the reserved parameter name with the configured prefix.
func (f *Factory) param(name string) string {
	return f.config.Prefix + name
}
