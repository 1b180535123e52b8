// Package serialize describes catalogs for discovery endpoints, as JSON-ready
// values or Arrow IPC, and compresses payloads with ZStandard.
package serialize

import (
	"bytes"
	"fmt"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/ipc"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/hugr-lab/apiquery/catalog"
)

// EntityInfo is the effective whitelist of one entity.
type EntityInfo struct {
	Name       string   `json:"name"`
	PrimaryKey string   `json:"primary_key"`
	Filterable []string `json:"filterable"`
	Sortable   []string `json:"sortable"`
	EagerLoad  []string `json:"eager_load"`
	Relations  []string `json:"relations"`
}

// EntitiesSchema is the schema of records built by EntitiesRecord.
var EntitiesSchema = arrow.NewSchema([]arrow.Field{
	{Name: "name", Type: arrow.BinaryTypes.String, Nullable: false},
	{Name: "primary_key", Type: arrow.BinaryTypes.String, Nullable: false},
	{Name: "filterable", Type: arrow.ListOf(arrow.BinaryTypes.String), Nullable: false},
	{Name: "sortable", Type: arrow.ListOf(arrow.BinaryTypes.String), Nullable: false},
	{Name: "eager_load", Type: arrow.ListOf(arrow.BinaryTypes.String), Nullable: false},
	{Name: "relations", Type: arrow.ListOf(arrow.BinaryTypes.String), Nullable: false},
}, nil)

// Describe resolves the gate of every entity in cat, in declaration order.
func Describe(cat catalog.Catalog) []EntityInfo {
	if cat == nil {
		return []EntityInfo{}
	}

	entities := cat.Entities()
	out := make([]EntityInfo, 0, len(entities))
	for _, e := range entities {
		gate := catalog.Resolve(e)
		info := EntityInfo{
			Name:       e.Name(),
			PrimaryKey: catalog.PrimaryKeyOf(e),
			Filterable: nonNil(gate.Filterable()),
			Sortable:   nonNil(gate.Sortable()),
			EagerLoad:  nonNil(gate.EagerLoadable()),
			Relations:  []string{},
		}
		if lister, ok := e.(interface{ Relations() []catalog.Relation }); ok {
			for _, r := range lister.Relations() {
				info.Relations = append(info.Relations, r.Name)
			}
		}
		out = append(out, info)
	}
	return out
}

// EntitiesRecord builds an Arrow record with one row per entity.
// Caller must Release the record.
func EntitiesRecord(cat catalog.Catalog, allocator memory.Allocator) arrow.RecordBatch {
	builder := array.NewRecordBuilder(allocator, EntitiesSchema)
	defer builder.Release()

	nameBuilder := builder.Field(0).(*array.StringBuilder)
	keyBuilder := builder.Field(1).(*array.StringBuilder)
	lists := []*array.ListBuilder{
		builder.Field(2).(*array.ListBuilder),
		builder.Field(3).(*array.ListBuilder),
		builder.Field(4).(*array.ListBuilder),
		builder.Field(5).(*array.ListBuilder),
	}

	for _, info := range Describe(cat) {
		nameBuilder.Append(info.Name)
		keyBuilder.Append(info.PrimaryKey)
		for i, values := range [][]string{info.Filterable, info.Sortable, info.EagerLoad, info.Relations} {
			lists[i].Append(true)
			lists[i].ValueBuilder().(*array.StringBuilder).AppendValues(values, nil)
		}
	}

	return builder.NewRecordBatch()
}

// SerializeEntities encodes EntitiesRecord as an Arrow IPC stream.
func SerializeEntities(cat catalog.Catalog, allocator memory.Allocator) ([]byte, error) {
	record := EntitiesRecord(cat, allocator)
	defer record.Release()

	var buf bytes.Buffer
	writer := ipc.NewWriter(&buf, ipc.WithSchema(EntitiesSchema), ipc.WithAllocator(allocator))

	if err := writer.Write(record); err != nil {
		writer.Close()
		return nil, fmt.Errorf("failed to write IPC record: %w", err)
	}

	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to close IPC writer: %w", err)
	}

	return buf.Bytes(), nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
