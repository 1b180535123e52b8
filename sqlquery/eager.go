package sqlquery

import (
	"context"
	"fmt"

	"github.com/hugr-lab/apiquery/builder"
	"github.com/hugr-lab/apiquery/catalog"
)

// loadRelations runs one query per eager load and attaches the related rows
// under the relation name: a slice for HasMany, a single row or nil
// otherwise. Owner rows must include the owner key column.
func (q *Query) loadRelations(ctx context.Context, rows []builder.Row) error {
	if len(rows) == 0 {
		return nil
	}

	for _, load := range q.loads {
		rel, related, err := q.relation(load.Relation)
		if err != nil {
			return err
		}
		ownerCol, relatedCol := rel.Keys(q.entity, related)

		keys := ownerKeys(rows, ownerCol)
		groups := make(map[string][]builder.Row)
		if len(keys) > 0 {
			child := New(q.db, q.catalog, related.Name())
			child.WhereIn(relatedCol, keys)
			if load.Order != nil {
				load.Order(child)
			}

			children, err := child.Get(ctx, nil)
			if err != nil {
				return fmt.Errorf("load %s.%s: %w", q.table, load.Relation, err)
			}
			for _, c := range children {
				k := keyOf(c[relatedCol])
				groups[k] = append(groups[k], c)
			}
		}

		for _, row := range rows {
			matched := groups[keyOf(row[ownerCol])]
			if row[ownerCol] == nil {
				matched = nil
			}
			if rel.Kind == catalog.HasMany {
				if matched == nil {
					matched = []builder.Row{}
				}
				row[load.Relation] = matched
				continue
			}
			if len(matched) > 0 {
				row[load.Relation] = matched[0]
			} else {
				row[load.Relation] = nil
			}
		}
	}
	return nil
}

// ownerKeys returns the distinct non-null values of column in row order.
func ownerKeys(rows []builder.Row, column string) []any {
	seen := make(map[string]bool)
	var keys []any
	for _, row := range rows {
		v, ok := row[column]
		if !ok || v == nil {
			continue
		}
		k := keyOf(v)
		if seen[k] {
			continue
		}
		seen[k] = true
		keys = append(keys, v)
	}
	return keys
}

// keyOf normalizes a key value so that integer widths compare equal.
func keyOf(v any) string {
	return fmt.Sprint(v)
}
