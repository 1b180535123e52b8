package filter

// Comparator identifies the comparison a filter applies between a column and its values.
type Comparator int

const (
	CompareEqual Comparator = iota
	CompareNotEqual
	CompareLessThan
	CompareGreaterThan
	CompareLessThanOrEqual
	CompareGreaterThanOrEqual
	CompareLike
	CompareNotLike
	CompareIn
	CompareNotIn
	CompareIsNull
	CompareIsNotNull
)

// Operator returns the SQL-style operator passed to query builders.
func (c Comparator) Operator() string {
	switch c {
	case CompareEqual:
		return "="
	case CompareNotEqual:
		return "!="
	case CompareLessThan:
		return "<"
	case CompareGreaterThan:
		return ">"
	case CompareLessThanOrEqual:
		return "<="
	case CompareGreaterThanOrEqual:
		return ">="
	case CompareLike:
		return "LIKE"
	case CompareNotLike:
		return "NOT LIKE"
	case CompareIn:
		return "IN"
	case CompareNotIn:
		return "NOT IN"
	case CompareIsNull:
		return "IS NULL"
	case CompareIsNotNull:
		return "IS NOT NULL"
	default:
		return ""
	}
}

// String implements fmt.Stringer.
func (c Comparator) String() string { return c.Operator() }

// IsSet reports whether the comparator takes a comma-separated member list.
func (c Comparator) IsSet() bool {
	return c == CompareIn || c == CompareNotIn
}

// IsNull reports whether the comparator is a null check that ignores values.
func (c Comparator) IsNull() bool {
	return c == CompareIsNull || c == CompareIsNotNull
}

// IsPattern reports whether values are LIKE patterns subject to wildcard rewriting.
func (c Comparator) IsPattern() bool {
	return c == CompareLike || c == CompareNotLike
}

// Conjunctive reports whether the branches of a multi-value group must all hold.
// Exclusions (!= and NOT LIKE) are joined with AND, everything else with OR.
func (c Comparator) Conjunctive() bool {
	return c == CompareNotEqual || c == CompareNotLike
}

// Key is the result of compiling a single parameter key.
type Key struct {
	// Column is the column path; may be dotted for relation columns.
	Column string

	// Suffix is the matched comparator suffix token, empty if none.
	Suffix string

	// Negated is true when the key used the standalone "not-" prefix.
	Negated bool
}

// Spec is a compiled filter: one boolean condition over Column.
type Spec struct {
	Column     string
	Comparator Comparator

	// Values holds the operands. Empty for null checks, the member list for
	// IN/NOT IN, and the OR/AND group branches otherwise.
	Values []string
}

// Direction is a sort direction.
type Direction string

const (
	Asc  Direction = "asc"
	Desc Direction = "desc"
)

// SortSpec is one entry of the sort parameter.
type SortSpec struct {
	Path      string
	Direction Direction
}

// Nested reports whether the sort targets a relation column (relation.column).
func (s SortSpec) Nested() bool {
	return isDotted(s.Path)
}

// Relation returns the relation part of a nested sort path.
func (s SortSpec) Relation() string {
	rel, _ := SplitPath(s.Path)
	return rel
}

// Column returns the column part of the sort path.
func (s SortSpec) Column() string {
	_, col := SplitPath(s.Path)
	return col
}

// FieldSpec is the parsed projection parameter.
type FieldSpec struct {
	// Columns are base-resource columns, applied as the projection.
	Columns []string

	// Additional are dotted relation fields. Recorded but never applied.
	Additional []string
}
