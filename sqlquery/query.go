package sqlquery

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/hugr-lab/apiquery/builder"
	"github.com/hugr-lab/apiquery/catalog"
)

var _ builder.RelationBuilder = (*Query)(nil)

// Standard errors returned by sqlquery package. Faults raised while the
// query is assembled are collected and returned by the next terminal
// operation.
var (
	// ErrUnknownEntity indicates the catalog has no entity of that name.
	ErrUnknownEntity = errors.New("unknown entity")

	// ErrUnknownRelation indicates the entity declares no relation of that name.
	ErrUnknownRelation = errors.New("unknown relation")

	// ErrUnsupportedOperator indicates a comparison operator outside the
	// supported set.
	ErrUnsupportedOperator = errors.New("unsupported operator")
)

// Querier runs SQL queries. *sql.DB, *sql.Conn and *sql.Tx satisfy it.
type Querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// Query is a DuckDB builder for one entity table. Predicates are rendered
// as parameterized SQL; nothing runs until a terminal operation.
// Not thread-safe.
type Query struct {
	*conditions

	db      Querier
	catalog catalog.Catalog
	entity  catalog.Entity
	table   string

	orders  []string
	limit   int
	loads   []builder.EagerLoad
	errs    []error
	columns []string
	aliases int
}

// New creates a query over the table named entity.
//
// With a nil catalog the table is queried without relations. Otherwise the
// entity must exist in cat; relations declared on it become available to
// With and WhereHas.
func New(db Querier, cat catalog.Catalog, entity string) *Query {
	q := &Query{
		db:      db,
		catalog: cat,
		table:   entity,
	}
	q.conditions = &conditions{alias: entity, errs: &q.errs}

	if cat != nil {
		e, ok := cat.Entity(entity)
		if !ok {
			q.fail(fmt.Errorf("%w: %s", ErrUnknownEntity, entity))
		}
		q.entity = e
	}
	return q
}

// SupportsRelations implements builder.Builder interface.
func (q *Query) SupportsRelations() bool {
	_, ok := q.entity.(catalog.RelationalEntity)
	return ok && q.catalog != nil
}

// OrderBy implements builder.Orderer interface.
func (q *Query) OrderBy(column string, dir builder.Direction) {
	switch dir {
	case builder.Asc, builder.Desc:
	default:
		q.fail(fmt.Errorf("invalid sort direction %q", dir))
		return
	}
	q.orders = append(q.orders, qualify(q.alias, column)+" "+strings.ToUpper(string(dir)))
}

// Limit implements builder.Builder interface. Paginate ignores it.
func (q *Query) Limit(n int) {
	q.limit = n
}

// With implements builder.RelationBuilder interface.
func (q *Query) With(loads ...builder.EagerLoad) {
	q.loads = append(q.loads, loads...)
}

// WhereHas implements builder.RelationBuilder interface. It renders an
// EXISTS subquery correlated on the relation keys.
func (q *Query) WhereHas(relation string, fn func(builder.Conditions)) {
	rel, related, err := q.relation(relation)
	if err != nil {
		q.fail(err)
		return
	}

	q.aliases++
	alias := "r" + strconv.Itoa(q.aliases)
	ownerCol, relatedCol := rel.Keys(q.entity, related)

	sub := q.scope(alias)
	fn(sub)
	cond, args := sub.render()

	where := qualify(alias, relatedCol) + " = " + qualify(q.alias, ownerCol)
	if cond != "" {
		where += " AND (" + cond + ")"
	}
	q.add(false, "EXISTS (SELECT 1 FROM "+quoteIdentifier(related.Name())+" AS "+quoteIdentifier(alias)+" WHERE "+where+")", args...)
}

// relation resolves a relation of the query's entity and its target entity.
func (q *Query) relation(name string) (catalog.Relation, catalog.Entity, error) {
	re, ok := q.entity.(catalog.RelationalEntity)
	if !ok || q.catalog == nil {
		return catalog.Relation{}, nil, fmt.Errorf("%w: %s.%s", ErrUnknownRelation, q.table, name)
	}
	rel, ok := re.Relation(name)
	if !ok {
		return catalog.Relation{}, nil, fmt.Errorf("%w: %s.%s", ErrUnknownRelation, q.table, name)
	}
	related, ok := q.catalog.Entity(rel.Entity)
	if !ok {
		return catalog.Relation{}, nil, fmt.Errorf("%w: %s", ErrUnknownEntity, rel.Entity)
	}
	return rel, related, nil
}

// Columns returns the column names of the last base fetch.
func (q *Query) Columns() []string {
	return q.columns
}

// SQL renders the SELECT statement Get would run.
func (q *Query) SQL(columns []string) (string, []any, error) {
	if err := q.err(); err != nil {
		return "", nil, err
	}
	s, args := q.selectSQL(selectOpts{columns: columns, limit: q.limit})
	return s, args, nil
}

// First implements builder.Builder interface.
// Returns nil and no error when no row matches.
func (q *Query) First(ctx context.Context, columns []string) (builder.Row, error) {
	rows, err := q.fetch(ctx, selectOpts{columns: columns, limit: 1})
	if err != nil || len(rows) == 0 {
		return nil, err
	}
	return rows[0], nil
}

// Find implements builder.Builder interface.
// Returns builder.ErrNotFound when no row has the given primary key.
func (q *Query) Find(ctx context.Context, id any, columns []string) (builder.Row, error) {
	rows, err := q.fetch(ctx, selectOpts{columns: columns, limit: 1, key: &id})
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%s %v: %w", q.table, id, builder.ErrNotFound)
	}
	return rows[0], nil
}

// Get implements builder.Builder interface.
func (q *Query) Get(ctx context.Context, columns []string) ([]builder.Row, error) {
	return q.fetch(ctx, selectOpts{columns: columns, limit: q.limit})
}

// Paginate implements builder.Builder interface.
func (q *Query) Paginate(ctx context.Context, perPage, page int, columns []string) (*builder.Page, error) {
	if perPage < 1 {
		return nil, fmt.Errorf("invalid page size %d", perPage)
	}
	if err := q.err(); err != nil {
		return nil, err
	}

	total, err := q.count(ctx)
	if err != nil {
		return nil, err
	}

	meta := builder.NewPagination(total, perPage, max(page, 1))
	rows, err := q.fetch(ctx, selectOpts{columns: columns, limit: perPage, offset: meta.Offset()})
	if err != nil {
		return nil, err
	}

	return &builder.Page{Items: rows, Pagination: &meta}, nil
}

func (q *Query) err() error {
	return errors.Join(q.errs...)
}

type selectOpts struct {
	columns []string
	limit   int
	offset  int
	key     *any
}

// from renders the FROM and WHERE clauses.
func (q *Query) from(key *any) (string, []any) {
	var sb strings.Builder
	sb.WriteString(" FROM ")
	sb.WriteString(quoteIdentifier(q.table))
	sb.WriteString(" AS ")
	sb.WriteString(quoteIdentifier(q.alias))

	where, args := q.render()
	if key != nil {
		keyCond := qualify(q.alias, catalog.PrimaryKeyOf(q.entity)) + " = ?"
		if where != "" {
			where = "(" + where + ") AND " + keyCond
		} else {
			where = keyCond
		}
		args = append(args, *key)
	}
	if where != "" {
		sb.WriteString(" WHERE ")
		sb.WriteString(where)
	}
	return sb.String(), args
}

func (q *Query) selectSQL(opts selectOpts) (string, []any) {
	from, args := q.from(opts.key)

	var sb strings.Builder
	sb.WriteString("SELECT ")
	sb.WriteString(q.projection(opts.columns))
	sb.WriteString(from)
	if len(q.orders) > 0 {
		sb.WriteString(" ORDER BY ")
		sb.WriteString(strings.Join(q.orders, ", "))
	}
	if opts.limit > 0 {
		sb.WriteString(" LIMIT " + strconv.Itoa(opts.limit))
	}
	if opts.offset > 0 {
		sb.WriteString(" OFFSET " + strconv.Itoa(opts.offset))
	}
	return sb.String(), args
}

func (q *Query) projection(columns []string) string {
	if len(columns) == 0 {
		return "*"
	}
	parts := make([]string, 0, len(columns))
	for _, c := range columns {
		if c == "*" {
			return "*"
		}
		parts = append(parts, qualify(q.alias, c))
	}
	return strings.Join(parts, ", ")
}

func (q *Query) count(ctx context.Context) (int64, error) {
	from, args := q.from(nil)
	rows, err := q.db.QueryContext(ctx, "SELECT count(*)"+from, args...)
	if err != nil {
		return 0, fmt.Errorf("count %s: %w", q.table, err)
	}
	defer rows.Close()

	var total int64
	if rows.Next() {
		if err := rows.Scan(&total); err != nil {
			return 0, fmt.Errorf("count %s: %w", q.table, err)
		}
	}
	return total, rows.Err()
}

// fetch runs the select and eager-loads the requested relations.
func (q *Query) fetch(ctx context.Context, opts selectOpts) ([]builder.Row, error) {
	if err := q.err(); err != nil {
		return nil, err
	}

	keys := q.missingOwnerKeys(opts.columns)
	if len(keys) > 0 {
		opts.columns = append(slices.Clone(opts.columns), keys...)
	}

	query, args := q.selectSQL(opts)
	rows, columns, err := scanRows(ctx, q.db, query, args)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", q.table, err)
	}

	if err := q.loadRelations(ctx, rows); err != nil {
		return nil, err
	}

	for _, row := range rows {
		for _, k := range keys {
			delete(row, k)
		}
	}
	q.columns = slices.DeleteFunc(columns, func(c string) bool {
		return slices.Contains(keys, c)
	})
	return rows, nil
}

// missingOwnerKeys returns the owner key columns eager loads join on that
// an explicit projection leaves out.
func (q *Query) missingOwnerKeys(columns []string) []string {
	if len(q.loads) == 0 || len(columns) == 0 || slices.Contains(columns, "*") {
		return nil
	}

	var keys []string
	for _, load := range q.loads {
		rel, related, err := q.relation(load.Relation)
		if err != nil {
			continue
		}
		ownerCol, _ := rel.Keys(q.entity, related)
		if !slices.Contains(columns, ownerCol) && !slices.Contains(keys, ownerCol) {
			keys = append(keys, ownerCol)
		}
	}
	return keys
}

// scanRows runs query and returns every row keyed by column name.
func scanRows(ctx context.Context, db Querier, query string, args []any) ([]builder.Row, []string, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, nil, err
	}

	out := make([]builder.Row, 0)
	for rows.Next() {
		values := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, nil, err
		}

		row := make(builder.Row, len(columns))
		for i, c := range columns {
			row[c] = values[i]
		}
		out = append(out, row)
	}
	return out, columns, rows.Err()
}
