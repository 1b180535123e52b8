package sqlquery

import (
	"fmt"
	"strings"

	"github.com/hugr-lab/apiquery/builder"
)

var _ builder.Conditions = (*conditions)(nil)

// allowedOperators are the comparison operators Where and OrWhere accept.
var allowedOperators = map[string]string{
	"=":        "=",
	"!=":       "<>",
	"<>":       "<>",
	"<":        "<",
	">":        ">",
	"<=":       "<=",
	">=":       ">=",
	"LIKE":     "LIKE",
	"NOT LIKE": "NOT LIKE",
}

// predicate is one rendered condition. or joins it to the previous one
// with OR instead of AND.
type predicate struct {
	or   bool
	sql  string
	args []any
}

// conditions is an ordered list of predicates on one table alias.
type conditions struct {
	alias string
	items []predicate

	// errs collects builder faults; shared with the owning query.
	errs *[]error
}

func (c *conditions) add(or bool, sql string, args ...any) {
	c.items = append(c.items, predicate{or: or, sql: sql, args: args})
}

func (c *conditions) fail(err error) {
	*c.errs = append(*c.errs, err)
}

func (c *conditions) compare(or bool, column, operator string, value any) {
	op, ok := allowedOperators[strings.ToUpper(strings.TrimSpace(operator))]
	if !ok {
		c.fail(fmt.Errorf("%w: %q", ErrUnsupportedOperator, operator))
		return
	}
	c.add(or, qualify(c.alias, column)+" "+op+" ?", value)
}

// Where implements builder.Conditions interface.
func (c *conditions) Where(column, operator string, value any) {
	c.compare(false, column, operator, value)
}

// OrWhere implements builder.Conditions interface.
func (c *conditions) OrWhere(column, operator string, value any) {
	c.compare(true, column, operator, value)
}

// WhereIn implements builder.Conditions interface.
func (c *conditions) WhereIn(column string, values []any) {
	c.in(column, "IN", values)
}

// WhereNotIn implements builder.Conditions interface.
func (c *conditions) WhereNotIn(column string, values []any) {
	c.in(column, "NOT IN", values)
}

func (c *conditions) in(column, op string, values []any) {
	if len(values) == 0 {
		// An empty IN list matches nothing; an empty NOT IN matches everything.
		if op == "IN" {
			c.add(false, "FALSE")
		}
		return
	}
	c.add(false, qualify(c.alias, column)+" "+op+" ("+placeholders(len(values))+")", values...)
}

// WhereNull implements builder.Conditions interface.
func (c *conditions) WhereNull(column string, not bool) {
	if not {
		c.add(false, qualify(c.alias, column)+" IS NOT NULL")
		return
	}
	c.add(false, qualify(c.alias, column)+" IS NULL")
}

// WhereGroup implements builder.Conditions interface.
func (c *conditions) WhereGroup(fn func(builder.Conditions)) {
	sub := c.scope(c.alias)
	fn(sub)
	sql, args := sub.render()
	if sql == "" {
		return
	}
	c.add(false, "("+sql+")", args...)
}

// scope returns an empty condition list sharing the error sink.
func (c *conditions) scope(alias string) *conditions {
	return &conditions{alias: alias, errs: c.errs}
}

// render joins the predicates. The first connector is ignored.
func (c *conditions) render() (string, []any) {
	var sb strings.Builder
	var args []any
	for i, p := range c.items {
		if i > 0 {
			if p.or {
				sb.WriteString(" OR ")
			} else {
				sb.WriteString(" AND ")
			}
		}
		sb.WriteString(p.sql)
		args = append(args, p.args...)
	}
	return sb.String(), args
}
