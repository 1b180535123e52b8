package apiquery

import (
	"strconv"
	"strings"

	"github.com/hugr-lab/apiquery/builder"
	"github.com/hugr-lab/apiquery/filter"
)

// phase compiles one reserved parameter onto the handler's builder.
type phase struct {
	name       string
	relational bool
	compile    func(h *Handler, value string)
}

// phases run in this order. with follows sort so that nested sorts are
// pending when relations are resolved; filters run after all phases so
// nested filters see the final relation set.
var phases = []phase{
	{name: ParamSort, compile: (*Handler).compileSort},
	{name: ParamFields, compile: (*Handler).compileFields},
	{name: ParamLimit, compile: (*Handler).compileLimit},
	{name: ParamWith, relational: true, compile: (*Handler).compileWith},
}

// parse runs every phase and then the free-form filters.
func (h *Handler) parse() {
	h.readPage()

	for _, p := range phases {
		if p.relational && h.relations == nil {
			continue
		}
		value, ok := h.params.Get(h.factory.param(p.name))
		if !ok || strings.TrimSpace(value) == "" {
			continue
		}
		p.compile(h, value)
	}

	h.dropPendingSorts()
	h.compileFilters()
}

// readPage records whether pagination was requested. An unparsable page
// still paginates, starting at page 1.
func (h *Handler) readPage() {
	value, ok := h.params.Get(h.factory.param(ParamPage))
	if !ok {
		return
	}
	h.paginating = true

	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil || n < 1 {
		h.drop(ParamPage, value, "invalid page number")
		n = 1
	}
	h.page = n
}

func (h *Handler) compileSort(value string) {
	for _, s := range filter.ParseSort(value) {
		if s.Nested() {
			h.pendingSorts = append(h.pendingSorts, s)
			continue
		}
		if !h.gate.CanSort(s.Path) {
			h.drop(ParamSort, s.Path, "column not sortable")
			continue
		}
		h.builder.OrderBy(s.Path, builder.Direction(s.Direction))
	}
}

func (h *Handler) compileFields(value string) {
	h.fields = filter.ParseFields(value)
}

func (h *Handler) compileLimit(value string) {
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil || n < 1 {
		h.drop(ParamLimit, value, "invalid limit")
		return
	}
	h.limit = n
	if !h.paginating {
		h.builder.Limit(n)
	}
}

func (h *Handler) compileWith(value string) {
	var loads []builder.EagerLoad
	for _, name := range filter.ParseRelations(value) {
		if !h.gate.CanLoad(name) {
			h.drop(ParamWith, name, "relation not eager-loadable")
			continue
		}

		load := builder.EagerLoad{Relation: name}
		if sorts := h.takeNestedSorts(name); len(sorts) > 0 {
			load.Order = func(o builder.Orderer) {
				for _, s := range sorts {
					o.OrderBy(s.Column(), builder.Direction(s.Direction))
				}
			}
		}

		loads = append(loads, load)
		h.relationSet[name] = true
		h.relationOrder = append(h.relationOrder, name)
	}

	if len(loads) > 0 {
		h.relations.With(loads...)
	}
}

// takeNestedSorts removes and returns the pending sorts on relation that the
// related entity permits.
func (h *Handler) takeNestedSorts(relation string) []filter.SortSpec {
	related, known := h.gate.Related(h.factory.config.Catalog, relation)

	var matched []filter.SortSpec
	rest := h.pendingSorts[:0]
	for _, s := range h.pendingSorts {
		if s.Relation() != relation {
			rest = append(rest, s)
			continue
		}
		if known && !related.CanSort(s.Column()) {
			h.drop(ParamSort, s.Path, "column not sortable")
			continue
		}
		matched = append(matched, s)
	}
	h.pendingSorts = rest
	return matched
}

// dropPendingSorts discards nested sorts whose relation was not loaded.
func (h *Handler) dropPendingSorts() {
	for _, s := range h.pendingSorts {
		h.drop(ParamSort, s.Path, "relation not loaded")
	}
	h.pendingSorts = nil
}

func (h *Handler) compileFilters() {
	for _, p := range h.params.All() {
		if !h.isFilterParam(p.Key) {
			continue
		}
		if h.isUnknownReserved(p.Key) {
			h.drop(p.Key, p.Value, "unknown reserved parameter")
			continue
		}
		if h.relations != nil && filter.HasRelationSeparator(p.Key) {
			h.compileNestedFilter(p.Key, p.Value)
			continue
		}
		h.compileFlatFilter(p.Key, p.Value)
	}
}

func (h *Handler) isFilterParam(key string) bool {
	if h.factory.reserved[key] || h.factory.ignored[key] {
		return false
	}
	if h.only != nil && !h.only[key] {
		return false
	}
	return !h.except[key]
}

// isUnknownReserved reports whether key carries the reserved prefix but
// names no phase.
func (h *Handler) isUnknownReserved(key string) bool {
	prefix := h.factory.config.Prefix
	return prefix != "" && strings.HasPrefix(key, prefix)
}

func (h *Handler) compileFlatFilter(key, value string) {
	spec, ok := filter.Compile(key, value)
	if !ok {
		h.drop(key, value, "empty column")
		return
	}
	if !h.gate.CanFilter(spec.Column) {
		h.drop(key, spec.Column, "column not filterable")
		return
	}
	applyFilter(h.builder, spec)
}

func (h *Handler) compileNestedFilter(key, value string) {
	spec, ok := filter.Compile(filter.NestedKey(key), value)
	if !ok {
		h.drop(key, value, "empty column")
		return
	}

	relation, column := filter.SplitPath(spec.Column)
	if relation == "" || column == "" {
		h.drop(key, spec.Column, "malformed relation column")
		return
	}
	if !h.relationSet[relation] {
		h.drop(key, relation, "relation not loaded")
		return
	}
	if related, known := h.gate.Related(h.factory.config.Catalog, relation); known && !related.CanFilter(column) {
		h.drop(key, column, "column not filterable")
		return
	}

	spec.Column = column
	h.relations.WhereHas(relation, func(q builder.Conditions) {
		applyFilter(q, spec)
	})
}

// applyFilter adds spec to c. Multi-value groups become one parenthesized
// group joined with OR, or with AND for exclusions.
func applyFilter(c builder.Conditions, spec filter.Spec) {
	switch {
	case spec.Comparator.IsNull():
		c.WhereNull(spec.Column, spec.Comparator == filter.CompareIsNotNull)
	case spec.Comparator == filter.CompareIn:
		c.WhereIn(spec.Column, toValues(spec.Values))
	case spec.Comparator == filter.CompareNotIn:
		c.WhereNotIn(spec.Column, toValues(spec.Values))
	case len(spec.Values) == 1:
		c.Where(spec.Column, spec.Comparator.Operator(), spec.Values[0])
	default:
		op := spec.Comparator.Operator()
		c.WhereGroup(func(g builder.Conditions) {
			for _, v := range spec.Values {
				if spec.Comparator.Conjunctive() {
					g.Where(spec.Column, op, v)
				} else {
					g.OrWhere(spec.Column, op, v)
				}
			}
		})
	}
}

func toValues(values []string) []any {
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}

// drop logs a parameter fragment that was silently omitted.
func (h *Handler) drop(param, subject, reason string) {
	h.logger.Debug("query parameter dropped",
		"param", param,
		"subject", subject,
		"reason", reason,
	)
}
