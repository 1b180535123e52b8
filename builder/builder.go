// Package builder defines the query-builder capabilities the translator drives.
//
// The translator never renders queries itself. It calls Where, OrderBy, With
// and friends on a Builder supplied by the caller, then runs one terminal
// operation. Two implementations ship with this module:
//   - Recorder records the call sequence (tests, explain output).
//   - sqlquery.Query renders parameterized SQL and runs it on DuckDB.
//
// Builders that can eager-load and filter through relations implement
// RelationBuilder and report SupportsRelations() == true.
package builder

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Find when no row has the requested key.
var ErrNotFound = errors.New("record not found")

// Row is one fetched record. Eager-loaded relations are stored under the
// relation name as []Row (to-many) or Row (to-one).
type Row map[string]any

// Direction is an ORDER BY direction.
type Direction string

const (
	Asc  Direction = "asc"
	Desc Direction = "desc"
)

// Conditions is the predicate surface shared by builders and nested groups.
// Consecutive conditions are joined with AND unless added with OrWhere.
type Conditions interface {
	// Where adds "column operator value".
	Where(column, operator string, value any)

	// OrWhere adds "column operator value" joined with OR.
	OrWhere(column, operator string, value any)

	// WhereIn adds "column IN (values...)".
	WhereIn(column string, values []any)

	// WhereNotIn adds "column NOT IN (values...)".
	WhereNotIn(column string, values []any)

	// WhereNull adds "column IS NULL", or "column IS NOT NULL" when not is true.
	WhereNull(column string, not bool)

	// WhereGroup adds a parenthesized group built by fn, joined with AND.
	WhereGroup(fn func(Conditions))
}

// Orderer adds orderings. Eager-load ordering callbacks receive one.
type Orderer interface {
	OrderBy(column string, dir Direction)
}

// Builder is the minimal capability set of a query target.
type Builder interface {
	Conditions
	Orderer

	// Limit caps the number of rows returned by Get.
	Limit(n int)

	// SupportsRelations reports whether the builder also implements
	// RelationBuilder and may receive relation operations.
	SupportsRelations() bool

	// First returns the first matching row, or nil if none matches.
	First(ctx context.Context, columns []string) (Row, error)

	// Find returns the row whose primary key equals id.
	// Returns ErrNotFound (possibly wrapped) if there is none.
	Find(ctx context.Context, id any, columns []string) (Row, error)

	// Get returns all matching rows.
	Get(ctx context.Context, columns []string) ([]Row, error)

	// Paginate returns page (1-based) of perPage rows with totals.
	Paginate(ctx context.Context, perPage, page int, columns []string) (*Page, error)
}

// EagerLoad requests one relation to be loaded alongside the results.
type EagerLoad struct {
	// Relation is the relation name.
	Relation string

	// Order orders the related rows. Nil loads them unordered.
	Order func(Orderer)
}

// RelationBuilder is the optional extension for relational targets.
type RelationBuilder interface {
	Builder

	// With eager-loads the given relations.
	With(loads ...EagerLoad)

	// WhereHas keeps rows with at least one related row satisfying fn.
	WhereHas(relation string, fn func(Conditions))
}

// Pagination describes one page of a paginated fetch.
type Pagination struct {
	Total       int64 `json:"total" msgpack:"total"`
	PerPage     int   `json:"per_page" msgpack:"per_page"`
	CurrentPage int   `json:"current_page" msgpack:"current_page"`
	LastPage    int   `json:"last_page" msgpack:"last_page"`
}

// NewPagination computes pagination metadata. LastPage is at least 1.
func NewPagination(total int64, perPage, page int) Pagination {
	last := 1
	if perPage > 0 && total > 0 {
		last = int((total + int64(perPage) - 1) / int64(perPage))
	}
	return Pagination{
		Total:       total,
		PerPage:     perPage,
		CurrentPage: page,
		LastPage:    last,
	}
}

// Offset returns the number of rows skipped before page.
func (p Pagination) Offset() int {
	if p.CurrentPage < 1 {
		return 0
	}
	return (p.CurrentPage - 1) * p.PerPage
}

// Page is the result of a collection fetch. Pagination is nil for
// bounded (non-paginated) fetches.
type Page struct {
	Items      []Row       `json:"data" msgpack:"data"`
	Pagination *Pagination `json:"meta,omitempty" msgpack:"meta,omitempty"`
}
