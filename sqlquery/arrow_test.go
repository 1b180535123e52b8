package sqlquery

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/ipc"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/hugr-lab/apiquery/builder"
)

func TestToRecordTypes(t *testing.T) {
	mem := memory.NewCheckedAllocator(memory.NewGoAllocator())
	defer mem.AssertSize(t, 0)

	ts := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	rows := []builder.Row{
		{"id": int32(1), "score": 1.5, "ok": true, "at": ts, "name": "a", "tags": []builder.Row{{"x": 1}}},
		{"id": int64(2), "score": nil, "ok": false, "at": nil, "name": nil, "tags": nil},
	}
	columns := []string{"id", "score", "ok", "at", "name", "tags", "missing"}

	rec, err := ToRecord(mem, rows, columns)
	if err != nil {
		t.Fatalf("ToRecord failed: %v", err)
	}
	defer rec.Release()

	if rec.NumRows() != 2 || rec.NumCols() != int64(len(columns)) {
		t.Fatalf("record shape = %dx%d", rec.NumRows(), rec.NumCols())
	}

	wantTypes := []arrow.DataType{
		arrow.PrimitiveTypes.Int64,
		arrow.PrimitiveTypes.Float64,
		arrow.FixedWidthTypes.Boolean,
		arrow.FixedWidthTypes.Timestamp_us,
		arrow.BinaryTypes.String,
		arrow.BinaryTypes.String,
		arrow.BinaryTypes.String,
	}
	for i, want := range wantTypes {
		if got := rec.Schema().Field(i).Type; !arrow.TypeEqual(got, want) {
			t.Errorf("field %s type = %s, want %s", columns[i], got, want)
		}
	}

	ids := rec.Column(0).(*array.Int64)
	if ids.Value(0) != 1 || ids.Value(1) != 2 {
		t.Errorf("ids = %v", ids)
	}
	if !rec.Column(1).IsNull(1) || !rec.Column(6).IsNull(0) {
		t.Error("Expected nulls for missing values")
	}
	at := rec.Column(3).(*array.Timestamp)
	if int64(at.Value(0)) != ts.UnixMicro() {
		t.Errorf("timestamp = %v", at.Value(0))
	}
	tags := rec.Column(5).(*array.String)
	if tags.Value(0) != `[{"x":1}]` {
		t.Errorf("tags = %q", tags.Value(0))
	}
}

func TestToRecordMixedTypes(t *testing.T) {
	rows := []builder.Row{{"id": int32(1)}, {"id": "two"}}

	if _, err := ToRecord(nil, rows, []string{"id"}); err == nil {
		t.Error("Expected error for string in integer column")
	}
}

func TestWriteIPC(t *testing.T) {
	db := openTestDB(t)

	q := New(db, testCatalog(), "posts")
	q.With(builder.EagerLoad{Relation: "comments"})
	rows, err := q.Get(context.Background(), nil)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}

	columns := append(q.Columns(), "comments")
	rec, err := ToRecord(memory.DefaultAllocator, rows, columns)
	if err != nil {
		t.Fatalf("ToRecord failed: %v", err)
	}
	defer rec.Release()

	var buf bytes.Buffer
	if err := WriteIPC(&buf, memory.DefaultAllocator, rec); err != nil {
		t.Fatalf("WriteIPC failed: %v", err)
	}

	reader, err := ipc.NewReader(&buf)
	if err != nil {
		t.Fatalf("NewReader failed: %v", err)
	}
	defer reader.Release()

	var total int64
	for reader.Next() {
		total += reader.Record().NumRows()
	}
	if total != 3 {
		t.Errorf("Expected 3 rows, got %d", total)
	}
	if got := reader.Schema().NumFields(); got != 5 {
		t.Errorf("Expected 5 fields, got %d", got)
	}
}
