package catalog

// EntityDef describes a static entity.
type EntityDef struct {
	Name       string
	PrimaryKey string
	Fillable   []string

	// Filterable and Sortable are nil when not declared.
	Filterable []string
	Sortable   []string

	EagerLoad []string
	Relations []Relation
}

// StaticEntity is an immutable Entity built from an EntityDef.
// It implements FilterableEntity, SortableEntity and RelationalEntity.
type StaticEntity struct {
	def       EntityDef
	relations map[string]Relation
}

// NewStaticEntity creates a static entity. Slices are copied.
func NewStaticEntity(def EntityDef) *StaticEntity {
	e := &StaticEntity{
		def: EntityDef{
			Name:       def.Name,
			PrimaryKey: def.PrimaryKey,
			Fillable:   cloneStrings(def.Fillable),
			Filterable: cloneStrings(def.Filterable),
			Sortable:   cloneStrings(def.Sortable),
			EagerLoad:  cloneStrings(def.EagerLoad),
			Relations:  append([]Relation(nil), def.Relations...),
		},
		relations: make(map[string]Relation, len(def.Relations)),
	}
	for _, r := range def.Relations {
		e.relations[r.Name] = r
	}
	return e
}

// Name implements Entity interface.
func (e *StaticEntity) Name() string { return e.def.Name }

// PrimaryKey implements Entity interface.
func (e *StaticEntity) PrimaryKey() string { return e.def.PrimaryKey }

// Fillable implements Entity interface.
func (e *StaticEntity) Fillable() []string { return e.def.Fillable }

// Filterable implements FilterableEntity interface.
func (e *StaticEntity) Filterable() []string { return e.def.Filterable }

// Sortable implements SortableEntity interface.
func (e *StaticEntity) Sortable() []string { return e.def.Sortable }

// EagerLoadable implements RelationalEntity interface.
func (e *StaticEntity) EagerLoadable() []string { return e.def.EagerLoad }

// Relation implements RelationalEntity interface.
func (e *StaticEntity) Relation(name string) (Relation, bool) {
	r, ok := e.relations[name]
	return r, ok
}

// Relations returns all declared relations in declaration order.
func (e *StaticEntity) Relations() []Relation { return e.def.Relations }

// StaticCatalog is an in-memory Catalog.
// Populate it during initialization; lookups are then safe for concurrent use.
type StaticCatalog struct {
	entities map[string]Entity
	order    []string
}

// NewStaticCatalog creates an empty static catalog.
func NewStaticCatalog() *StaticCatalog {
	return &StaticCatalog{
		entities: make(map[string]Entity),
	}
}

// AddEntity adds or replaces an entity.
func (c *StaticCatalog) AddEntity(e Entity) {
	if _, ok := c.entities[e.Name()]; !ok {
		c.order = append(c.order, e.Name())
	}
	c.entities[e.Name()] = e
}

// Entity implements Catalog interface.
func (c *StaticCatalog) Entity(name string) (Entity, bool) {
	e, ok := c.entities[name]
	return e, ok
}

// Entities implements Catalog interface.
func (c *StaticCatalog) Entities() []Entity {
	out := make([]Entity, 0, len(c.order))
	for _, name := range c.order {
		out = append(out, c.entities[name])
	}
	return out
}

func cloneStrings(s []string) []string {
	if s == nil {
		return nil
	}
	return append(make([]string, 0, len(s)), s...)
}
