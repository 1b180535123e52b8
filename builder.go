package apiquery

import (
	"fmt"

	"github.com/hugr-lab/apiquery/catalog"
)

// CatalogBuilder builds static catalogs using fluent API.
// Not thread-safe - use only during initialization.
type CatalogBuilder struct {
	entities []*entityBuilder
	built    bool
}

// NewCatalogBuilder creates a new fluent catalog builder.
// Returns builder in "empty" state (no entities).
//
// Example:
//
//	cat, err := apiquery.NewCatalogBuilder().
//	    Entity("posts").
//	        Fillable("title", "status", "created_at").
//	        EagerLoad("comments").
//	        HasMany("comments", "comments", "post_id").
//	    Entity("comments").
//	        Fillable("body", "created_at").
//	    Build()
func NewCatalogBuilder() *CatalogBuilder {
	return &CatalogBuilder{
		entities: make([]*entityBuilder, 0),
	}
}

// Entity starts defining a new entity.
// Entity name MUST be non-empty and unique within catalog.
func (cb *CatalogBuilder) Entity(name string) *EntityBuilder {
	eb := &entityBuilder{
		def:            catalog.EntityDef{Name: name},
		catalogBuilder: cb,
	}
	cb.entities = append(cb.entities, eb)
	return &EntityBuilder{builder: eb}
}

// Build finalizes the catalog and returns immutable Catalog implementation.
// Can only be called once.
// Returns error if catalog is invalid (e.g., duplicate entity names or a
// relation to an undeclared entity).
func (cb *CatalogBuilder) Build() (catalog.Catalog, error) {
	if cb.built {
		return nil, fmt.Errorf("catalog already built")
	}

	// Validate entity names are unique and non-empty
	seenNames := make(map[string]bool)
	for _, eb := range cb.entities {
		if eb.def.Name == "" {
			return nil, fmt.Errorf("entity name cannot be empty")
		}
		if seenNames[eb.def.Name] {
			return nil, fmt.Errorf("duplicate entity name: %s", eb.def.Name)
		}
		seenNames[eb.def.Name] = true
	}

	for _, eb := range cb.entities {
		if err := validateEntity(eb.def, seenNames); err != nil {
			return nil, err
		}
	}

	cb.built = true

	cat := catalog.NewStaticCatalog()
	for _, eb := range cb.entities {
		cat.AddEntity(catalog.NewStaticEntity(eb.def))
	}

	return cat, nil
}

// validateEntity checks relations and eager-load declarations of one entity.
func validateEntity(def catalog.EntityDef, entities map[string]bool) error {
	relations := make(map[string]bool)
	for _, r := range def.Relations {
		if r.Name == "" {
			return fmt.Errorf("relation name cannot be empty in entity %s", def.Name)
		}
		if relations[r.Name] {
			return fmt.Errorf("duplicate relation %s in entity %s", r.Name, def.Name)
		}
		relations[r.Name] = true

		if !r.Kind.Valid() {
			return fmt.Errorf("relation %s.%s has unknown kind %q", def.Name, r.Name, r.Kind)
		}
		if !entities[r.Entity] {
			return fmt.Errorf("relation %s.%s targets undeclared entity %q", def.Name, r.Name, r.Entity)
		}
		if r.ForeignKey == "" {
			return fmt.Errorf("relation %s.%s has no foreign key", def.Name, r.Name)
		}
	}

	for _, name := range def.EagerLoad {
		if name != catalog.WildcardRelation && !relations[name] {
			return fmt.Errorf("entity %s eager-loads undeclared relation %s", def.Name, name)
		}
	}
	return nil
}

// EntityBuilder builds an entity within a catalog.
type EntityBuilder struct {
	builder *entityBuilder
}

// entityBuilder is the internal state for building an entity.
type entityBuilder struct {
	def            catalog.EntityDef
	catalogBuilder *CatalogBuilder
}

// PrimaryKey sets the primary key column. Defaults to "id".
func (eb *EntityBuilder) PrimaryKey(column string) *EntityBuilder {
	eb.builder.def.PrimaryKey = column
	return eb
}

// Fillable adds writable attributes. They are filterable and sortable
// unless Filterable or Sortable is declared.
func (eb *EntityBuilder) Fillable(columns ...string) *EntityBuilder {
	eb.builder.def.Fillable = append(eb.builder.def.Fillable, columns...)
	return eb
}

// Filterable declares the filterable columns. Calling it without arguments
// declares an empty set.
func (eb *EntityBuilder) Filterable(columns ...string) *EntityBuilder {
	eb.builder.def.Filterable = append(nonNil(eb.builder.def.Filterable), columns...)
	return eb
}

// Sortable declares the sortable columns. Calling it without arguments
// declares an empty set.
func (eb *EntityBuilder) Sortable(columns ...string) *EntityBuilder {
	eb.builder.def.Sortable = append(nonNil(eb.builder.def.Sortable), columns...)
	return eb
}

// EagerLoad declares relations clients may load with the with parameter.
// Use catalog.WildcardRelation to allow all relations.
func (eb *EntityBuilder) EagerLoad(relations ...string) *EntityBuilder {
	eb.builder.def.EagerLoad = append(eb.builder.def.EagerLoad, relations...)
	return eb
}

// Relation adds a relation.
func (eb *EntityBuilder) Relation(r catalog.Relation) *EntityBuilder {
	eb.builder.def.Relations = append(eb.builder.def.Relations, r)
	return eb
}

// HasMany adds a one-to-many relation; foreignKey lives on entity.
func (eb *EntityBuilder) HasMany(name, entity, foreignKey string) *EntityBuilder {
	return eb.Relation(catalog.Relation{Name: name, Kind: catalog.HasMany, Entity: entity, ForeignKey: foreignKey})
}

// HasOne adds a one-to-one relation; foreignKey lives on entity.
func (eb *EntityBuilder) HasOne(name, entity, foreignKey string) *EntityBuilder {
	return eb.Relation(catalog.Relation{Name: name, Kind: catalog.HasOne, Entity: entity, ForeignKey: foreignKey})
}

// BelongsTo adds an inverse relation; foreignKey lives on this entity.
func (eb *EntityBuilder) BelongsTo(name, entity, foreignKey string) *EntityBuilder {
	return eb.Relation(catalog.Relation{Name: name, Kind: catalog.BelongsTo, Entity: entity, ForeignKey: foreignKey})
}

// Entity finishes the current entity and starts a new one.
func (eb *EntityBuilder) Entity(name string) *EntityBuilder {
	return eb.builder.catalogBuilder.Entity(name)
}

// Build finalizes the catalog.
func (eb *EntityBuilder) Build() (catalog.Catalog, error) {
	return eb.builder.catalogBuilder.Build()
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
