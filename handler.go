package apiquery

import (
	"context"
	"log/slog"

	"github.com/hugr-lab/apiquery/builder"
	"github.com/hugr-lab/apiquery/catalog"
	"github.com/hugr-lab/apiquery/filter"
)

// Handler translates one request's parameters onto one builder and runs a
// terminal operation. It owns the builder for its lifetime.
// Create one per request; not safe for concurrent use.
type Handler struct {
	factory *Factory
	logger  *slog.Logger
	params  Params
	only    map[string]bool
	except  map[string]bool

	builder   builder.Builder
	relations builder.RelationBuilder
	gate      *catalog.Gate

	fields        filter.FieldSpec
	pendingSorts  []filter.SortSpec
	relationSet   map[string]bool
	relationOrder []string
	limit         int
	page          int
	paginating    bool
	capped        bool
	parsed        bool
}

func newHandler(f *Factory, params Params, b builder.Builder, entity catalog.Entity) *Handler {
	h := &Handler{
		factory:     f,
		logger:      f.logger,
		params:      params,
		builder:     b,
		gate:        catalog.Resolve(entity),
		relationSet: make(map[string]bool),
	}
	if b != nil && b.SupportsRelations() {
		if rb, ok := b.(builder.RelationBuilder); ok {
			h.relations = rb
		}
	}
	return h
}

// Only restricts filter compilation to the given parameter keys.
// Reserved parameters are unaffected.
func (h *Handler) Only(keys ...string) *Handler {
	h.only = toSet(keys)
	return h
}

// Except excludes the given parameter keys from filter compilation.
func (h *Handler) Except(keys ...string) *Handler {
	h.except = toSet(keys)
	return h
}

// Builder returns the builder the handler mutates.
func (h *Handler) Builder() builder.Builder {
	return h.builder
}

// Fields returns the requested base-resource columns, parsing if needed.
func (h *Handler) Fields() []string {
	h.ensureParsed()
	return h.fields.Columns
}

// AdditionalFields returns the requested relation fields (relation.column).
// They are recorded but never applied to the projection.
func (h *Handler) AdditionalFields() []string {
	h.ensureParsed()
	return h.fields.Additional
}

// Relations returns the eager-loaded relations in request order.
func (h *Handler) Relations() []string {
	h.ensureParsed()
	return h.relationOrder
}

// First returns the first matching row, or nil if none matches.
func (h *Handler) First(ctx context.Context) (builder.Row, error) {
	if err := h.prepare(); err != nil {
		return nil, err
	}
	return h.builder.First(ctx, h.columns())
}

// Find returns the row with primary key id. Builder errors, including
// builder.ErrNotFound, are returned unchanged.
func (h *Handler) Find(ctx context.Context, id any) (builder.Row, error) {
	if err := h.prepare(); err != nil {
		return nil, err
	}
	return h.builder.Find(ctx, id, h.columns())
}

// Get returns all matching rows, bounded by the limit parameter if given.
// With the page parameter present it returns at most one page size of rows.
func (h *Handler) Get(ctx context.Context) ([]builder.Row, error) {
	if err := h.prepare(); err != nil {
		return nil, err
	}
	if h.paginating && !h.capped {
		h.builder.Limit(h.pageSize())
		h.capped = true
	}
	return h.builder.Get(ctx, h.columns())
}

// Paginate returns the requested page. The page size is the limit parameter
// or Config.Limit; the page number is the page parameter or 1.
func (h *Handler) Paginate(ctx context.Context) (*builder.Page, error) {
	if !h.parsed {
		h.paginating = true
	}
	if err := h.prepare(); err != nil {
		return nil, err
	}

	page := max(h.page, 1)

	return h.builder.Paginate(ctx, h.pageSize(), page, h.columns())
}

// pageSize is the limit parameter or Config.Limit.
func (h *Handler) pageSize() int {
	if h.limit > 0 {
		return h.limit
	}
	return h.factory.config.Limit
}

// Collection paginates when the page parameter is present and otherwise
// performs a bounded fetch. Bounded results carry no Pagination.
func (h *Handler) Collection(ctx context.Context) (*builder.Page, error) {
	if err := h.prepare(); err != nil {
		return nil, err
	}
	if h.paginating {
		return h.Paginate(ctx)
	}

	rows, err := h.builder.Get(ctx, h.columns())
	if err != nil {
		return nil, err
	}
	return &builder.Page{Items: rows}, nil
}

// prepare checks the builder and compiles the parameters once.
func (h *Handler) prepare() error {
	if h.builder == nil {
		return ErrMissingBuilder
	}
	h.ensureParsed()
	return nil
}

func (h *Handler) ensureParsed() {
	if h.parsed || h.builder == nil {
		return
	}
	h.parsed = true
	h.parse()
}

// columns returns the projection for terminal operations.
func (h *Handler) columns() []string {
	if len(h.fields.Columns) > 0 {
		return h.fields.Columns
	}
	return []string{"*"}
}

func toSet(keys []string) map[string]bool {
	set := make(map[string]bool, len(keys))
	for _, k := range keys {
		set[k] = true
	}
	return set
}
