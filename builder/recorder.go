package builder

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/hugr-lab/apiquery/internal/msgpack"
)

var _ RelationBuilder = (*Recorder)(nil)

// Call is one recorded builder operation.
type Call struct {
	Method string   `msgpack:"method" json:"method"`
	Args   []string `msgpack:"args,omitempty" json:"args,omitempty"`
	Nested []Call   `msgpack:"nested,omitempty" json:"nested,omitempty"`
}

// String renders the call as method(arg, ...) { nested; ... }.
func (c Call) String() string {
	var sb strings.Builder
	sb.WriteString(c.Method)
	sb.WriteByte('(')
	sb.WriteString(strings.Join(c.Args, ", "))
	sb.WriteByte(')')
	if len(c.Nested) > 0 {
		sb.WriteString(" { ")
		for i, n := range c.Nested {
			if i > 0 {
				sb.WriteString("; ")
			}
			sb.WriteString(n.String())
		}
		sb.WriteString(" }")
	}
	return sb.String()
}

// Recorder is a Builder that records every call instead of querying.
// Terminal operations return the canned rows set with WithRows.
// Not thread-safe, like every builder.
type Recorder struct {
	calls      []Call
	relational bool
	rows       []Row
}

// NewRecorder creates a recorder. When relational is true it reports
// SupportsRelations and records With/WhereHas.
func NewRecorder(relational bool) *Recorder {
	return &Recorder{relational: relational}
}

// WithRows sets the rows terminal operations return.
func (r *Recorder) WithRows(rows ...Row) *Recorder {
	r.rows = rows
	return r
}

// Calls returns the recorded calls in order.
func (r *Recorder) Calls() []Call {
	return r.calls
}

// Snapshot encodes the recorded calls as MessagePack. Equal call sequences
// produce equal snapshots.
func (r *Recorder) Snapshot() ([]byte, error) {
	return msgpack.Encode(r.calls)
}

// String renders one call per line.
func (r *Recorder) String() string {
	lines := make([]string, len(r.calls))
	for i, c := range r.calls {
		lines[i] = c.String()
	}
	return strings.Join(lines, "\n")
}

func (r *Recorder) record(method string, args ...string) {
	r.calls = append(r.calls, Call{Method: method, Args: args})
}

// Where implements Conditions interface.
func (r *Recorder) Where(column, operator string, value any) {
	r.record("where", column, operator, fmt.Sprint(value))
}

// OrWhere implements Conditions interface.
func (r *Recorder) OrWhere(column, operator string, value any) {
	r.record("orWhere", column, operator, fmt.Sprint(value))
}

// WhereIn implements Conditions interface.
func (r *Recorder) WhereIn(column string, values []any) {
	r.record("whereIn", column, joinValues(values))
}

// WhereNotIn implements Conditions interface.
func (r *Recorder) WhereNotIn(column string, values []any) {
	r.record("whereNotIn", column, joinValues(values))
}

// WhereNull implements Conditions interface.
func (r *Recorder) WhereNull(column string, not bool) {
	r.record("whereNull", column, strconv.FormatBool(not))
}

// WhereGroup implements Conditions interface.
func (r *Recorder) WhereGroup(fn func(Conditions)) {
	sub := &Recorder{}
	fn(sub)
	r.calls = append(r.calls, Call{Method: "whereGroup", Nested: sub.calls})
}

// OrderBy implements Orderer interface.
func (r *Recorder) OrderBy(column string, dir Direction) {
	r.record("orderBy", column, string(dir))
}

// Limit implements Builder interface.
func (r *Recorder) Limit(n int) {
	r.record("limit", strconv.Itoa(n))
}

// SupportsRelations implements Builder interface.
func (r *Recorder) SupportsRelations() bool {
	return r.relational
}

// With implements RelationBuilder interface. Each load is recorded with its
// ordering calls nested under it.
func (r *Recorder) With(loads ...EagerLoad) {
	call := Call{Method: "with"}
	for _, l := range loads {
		load := Call{Method: l.Relation}
		if l.Order != nil {
			sub := &Recorder{}
			l.Order(sub)
			load.Nested = sub.calls
		}
		call.Nested = append(call.Nested, load)
	}
	r.calls = append(r.calls, call)
}

// WhereHas implements RelationBuilder interface.
func (r *Recorder) WhereHas(relation string, fn func(Conditions)) {
	sub := &Recorder{}
	fn(sub)
	r.calls = append(r.calls, Call{Method: "whereHas", Args: []string{relation}, Nested: sub.calls})
}

// First implements Builder interface.
func (r *Recorder) First(_ context.Context, columns []string) (Row, error) {
	r.record("first", strings.Join(columns, ","))
	if len(r.rows) == 0 {
		return nil, nil
	}
	return r.rows[0], nil
}

// Find implements Builder interface.
func (r *Recorder) Find(_ context.Context, id any, columns []string) (Row, error) {
	r.record("find", fmt.Sprint(id), strings.Join(columns, ","))
	if len(r.rows) == 0 {
		return nil, fmt.Errorf("find %v: %w", id, ErrNotFound)
	}
	return r.rows[0], nil
}

// Get implements Builder interface.
func (r *Recorder) Get(_ context.Context, columns []string) ([]Row, error) {
	r.record("get", strings.Join(columns, ","))
	return r.rows, nil
}

// Paginate implements Builder interface.
func (r *Recorder) Paginate(_ context.Context, perPage, page int, columns []string) (*Page, error) {
	r.record("paginate", strconv.Itoa(perPage), strconv.Itoa(page), strings.Join(columns, ","))

	meta := NewPagination(int64(len(r.rows)), perPage, page)
	start := min(meta.Offset(), len(r.rows))
	end := min(start+perPage, len(r.rows))

	return &Page{
		Items:      r.rows[start:end],
		Pagination: &meta,
	}, nil
}

func joinValues(values []any) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = fmt.Sprint(v)
	}
	return strings.Join(parts, ",")
}
