package apiquery

import (
	"errors"
	"log/slog"
	"strings"

	"github.com/hugr-lab/apiquery/catalog"
)

// Defaults applied by NewFactory to zero-valued Config fields.
const (
	DefaultPrefix = "_"
	DefaultLimit  = 20
)

// Reserved parameter names, used with the configured prefix.
const (
	ParamSort   = "sort"
	ParamFields = "fields"
	ParamLimit  = "limit"
	ParamWith   = "with"
	ParamPage   = "page"
)

// Config contains configuration for the query translator.
type Config struct {
	// Prefix is prepended to the reserved parameter names (sort, fields,
	// limit, with, page).
	// OPTIONAL: Uses DefaultPrefix if empty.
	// MUST NOT contain '&', '=' or '~'.
	Prefix string

	// Limit is the page size used when pagination is requested without an
	// explicit limit parameter.
	// OPTIONAL: Uses DefaultLimit if 0. MUST NOT be negative.
	Limit int

	// Ignores lists parameter names never compiled as filters.
	// OPTIONAL.
	Ignores []string

	// Catalog resolves related entities for nested filters and sorts.
	// OPTIONAL: If nil, relation columns are only checked against the
	// owning entity's eager-load whitelist.
	Catalog catalog.Catalog

	// Logger for dropped-parameter diagnostics.
	// OPTIONAL: Uses a stderr text logger at LogLevel if nil.
	Logger *slog.Logger

	// LogLevel sets the logging level.
	// OPTIONAL: If nil, uses Info level.
	// If Logger is also provided, LogLevel is ignored.
	LogLevel *slog.Level
}

// DefaultConfig returns the configuration used when nothing is set.
func DefaultConfig() Config {
	return Config{
		Prefix: DefaultPrefix,
		Limit:  DefaultLimit,
	}
}

// Standard errors returned by apiquery package.
var (
	// ErrMissingBuilder indicates a terminal operation was invoked on a
	// handler without a query builder.
	ErrMissingBuilder = errors.New("missing query builder")

	// ErrInvalidConfig indicates Config validation failed.
	ErrInvalidConfig = errors.New("invalid apiquery config")
)

// validateConfig checks Config fields that have no usable default.
func validateConfig(config Config) error {
	if strings.ContainsAny(config.Prefix, "&=~") {
		return errors.New("prefix must not contain '&', '=' or '~'")
	}
	if config.Limit < 0 {
		return errors.New("limit must not be negative")
	}
	return nil
}
