// Package catalog declares the entities a query can target and which of their
// columns and relations clients are allowed to touch.
//
// An Entity exposes its writable attributes. Entities may additionally
// implement FilterableEntity, SortableEntity and RelationalEntity to narrow
// or extend what the Gate permits:
//   - Filterable and sortable columns default to the writable attributes.
//   - Eager-loadable relations default to none and must be declared.
//
// Static entities are built with NewStaticEntity or the root package's
// CatalogBuilder. All implementations MUST be safe for concurrent reads.
package catalog

// DefaultPrimaryKey is used when an entity does not declare a primary key.
const DefaultPrimaryKey = "id"

// Entity is a queryable resource, typically backed by one table.
type Entity interface {
	// Name returns the entity name, also used as its table name.
	// MUST return non-empty string.
	Name() string

	// PrimaryKey returns the primary key column.
	// Returns empty string to use DefaultPrimaryKey.
	PrimaryKey() string

	// Fillable returns the writable attributes of the entity.
	Fillable() []string
}

// FilterableEntity is implemented by entities that declare their filterable columns.
// A nil result means "not declared" and falls back to Fillable.
type FilterableEntity interface {
	Entity
	Filterable() []string
}

// SortableEntity is implemented by entities that declare their sortable columns.
// A nil result means "not declared" and falls back to Fillable.
type SortableEntity interface {
	Entity
	Sortable() []string
}

// RelationalEntity is implemented by entities with relations.
type RelationalEntity interface {
	Entity

	// EagerLoadable returns relation names clients may eager-load.
	// The WildcardRelation member permits any relation.
	EagerLoadable() []string

	// Relation returns the relation metadata for name.
	// Returns false if the entity has no such relation.
	Relation(name string) (Relation, bool)
}

// Catalog resolves entities by name.
type Catalog interface {
	// Entity returns the entity named name, or false if unknown.
	Entity(name string) (Entity, bool)

	// Entities returns all entities in declaration order.
	Entities() []Entity
}

// RelationKind identifies how two entities are linked.
type RelationKind string

const (
	HasMany   RelationKind = "has_many"
	HasOne    RelationKind = "has_one"
	BelongsTo RelationKind = "belongs_to"
)

// Valid reports whether k is a known relation kind.
func (k RelationKind) Valid() bool {
	switch k {
	case HasMany, HasOne, BelongsTo:
		return true
	}
	return false
}

// Relation links an entity to a related entity.
type Relation struct {
	// Name is the relation name used by the with parameter.
	Name string

	// Kind is the relation cardinality.
	Kind RelationKind

	// Entity is the related entity name.
	Entity string

	// ForeignKey is the referencing column: on the related entity for
	// HasMany/HasOne, on the owning entity for BelongsTo.
	ForeignKey string

	// LocalKey is the referenced column: on the owning entity for
	// HasMany/HasOne, on the related entity for BelongsTo.
	// Empty means the primary key of the referenced side.
	LocalKey string
}

// Keys returns the join columns as (owner column, related column).
func (r Relation) Keys(owner, related Entity) (string, string) {
	if r.Kind == BelongsTo {
		key := r.LocalKey
		if key == "" {
			key = PrimaryKeyOf(related)
		}
		return r.ForeignKey, key
	}

	key := r.LocalKey
	if key == "" {
		key = PrimaryKeyOf(owner)
	}
	return key, r.ForeignKey
}

// PrimaryKeyOf returns e's primary key or DefaultPrimaryKey.
func PrimaryKeyOf(e Entity) string {
	if e == nil {
		return DefaultPrimaryKey
	}
	if pk := e.PrimaryKey(); pk != "" {
		return pk
	}
	return DefaultPrimaryKey
}
