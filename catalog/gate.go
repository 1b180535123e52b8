package catalog

import (
	"maps"
	"slices"
)

// WildcardRelation in an eager-loadable list permits any relation name.
const WildcardRelation = "*"

// Gate answers whether a column may be filtered or sorted and whether a
// relation may be eager-loaded for one entity.
type Gate struct {
	entity     Entity
	filterable map[string]bool
	sortable   map[string]bool
	loadable   map[string]bool
	loadAny    bool
}

// Resolve builds the gate for e.
//
// Declared filterable/sortable sets are used as is; undeclared ones default to
// the writable attributes. Eager-loadable relations are never defaulted.
// A nil entity yields Unrestricted.
func Resolve(e Entity) *Gate {
	if e == nil {
		return Unrestricted()
	}

	g := &Gate{
		entity:     e,
		filterable: toSet(e.Fillable()),
		sortable:   toSet(e.Fillable()),
		loadable:   map[string]bool{},
	}

	if fe, ok := e.(FilterableEntity); ok {
		if cols := fe.Filterable(); cols != nil {
			g.filterable = toSet(cols)
		}
	}
	if se, ok := e.(SortableEntity); ok {
		if cols := se.Sortable(); cols != nil {
			g.sortable = toSet(cols)
		}
	}
	if re, ok := e.(RelationalEntity); ok {
		g.loadable = toSet(re.EagerLoadable())
		g.loadAny = g.loadable[WildcardRelation]
	}

	return g
}

// Unrestricted returns a gate that permits filtering and sorting on any
// non-empty column and no eager loading. Used for targets without an entity.
func Unrestricted() *Gate {
	return &Gate{loadable: map[string]bool{}}
}

// Entity returns the entity the gate was resolved for, or nil.
func (g *Gate) Entity() Entity { return g.entity }

// CanFilter reports whether column may be filtered.
func (g *Gate) CanFilter(column string) bool {
	if column == "" {
		return false
	}
	if g.filterable == nil {
		return true
	}
	return g.filterable[column]
}

// CanSort reports whether column may be sorted.
func (g *Gate) CanSort(column string) bool {
	if column == "" {
		return false
	}
	if g.sortable == nil {
		return true
	}
	return g.sortable[column]
}

// CanLoad reports whether relation may be eager-loaded.
func (g *Gate) CanLoad(relation string) bool {
	if relation == "" {
		return false
	}
	return g.loadAny || g.loadable[relation]
}

// Related resolves the gate of the entity behind relation using cat.
// Returns false when the relation or its target entity is unknown.
func (g *Gate) Related(cat Catalog, relation string) (*Gate, bool) {
	re, ok := g.entity.(RelationalEntity)
	if !ok || cat == nil {
		return nil, false
	}
	rel, ok := re.Relation(relation)
	if !ok {
		return nil, false
	}
	target, ok := cat.Entity(rel.Entity)
	if !ok {
		return nil, false
	}
	return Resolve(target), true
}

// Filterable returns the filterable columns, sorted.
// Returns nil when any column is permitted.
func (g *Gate) Filterable() []string { return sortedKeys(g.filterable) }

// Sortable returns the sortable columns, sorted.
// Returns nil when any column is permitted.
func (g *Gate) Sortable() []string { return sortedKeys(g.sortable) }

// EagerLoadable returns the eager-loadable relations, sorted.
func (g *Gate) EagerLoadable() []string { return sortedKeys(g.loadable) }

func sortedKeys(set map[string]bool) []string {
	if set == nil {
		return nil
	}
	keys := slices.AppendSeq(make([]string, 0, len(set)), maps.Keys(set))
	slices.Sort(keys)
	return keys
}

func toSet(items []string) map[string]bool {
	set := make(map[string]bool, len(items))
	for _, item := range items {
		if item != "" {
			set[item] = true
		}
	}
	return set
}
