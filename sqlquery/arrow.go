package sqlquery

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/ipc"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/hugr-lab/apiquery/builder"
)

// ToRecord converts rows into an Arrow record with one field per column.
// Field types are inferred from the first non-null value of each column;
// columns without values, and nested relation values, are strings (nested
// values are JSON-encoded). Caller must Release the record.
func ToRecord(mem memory.Allocator, rows []builder.Row, columns []string) (arrow.RecordBatch, error) {
	if mem == nil {
		mem = memory.DefaultAllocator
	}

	fields := make([]arrow.Field, len(columns))
	for i, c := range columns {
		fields[i] = arrow.Field{Name: c, Type: inferType(rows, c), Nullable: true}
	}
	schema := arrow.NewSchema(fields, nil)

	rb := array.NewRecordBuilder(mem, schema)
	defer rb.Release()

	for _, row := range rows {
		for i, c := range columns {
			if err := appendValue(rb.Field(i), row[c]); err != nil {
				return nil, fmt.Errorf("column %s: %w", c, err)
			}
		}
	}

	return rb.NewRecordBatch(), nil
}

// WriteIPC writes rec to w as an Arrow IPC stream.
func WriteIPC(w io.Writer, mem memory.Allocator, rec arrow.RecordBatch) error {
	if mem == nil {
		mem = memory.DefaultAllocator
	}

	writer := ipc.NewWriter(w, ipc.WithSchema(rec.Schema()), ipc.WithAllocator(mem))
	if err := writer.Write(rec); err != nil {
		writer.Close()
		return fmt.Errorf("failed to write record: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to close IPC writer: %w", err)
	}
	return nil
}

func inferType(rows []builder.Row, column string) arrow.DataType {
	for _, row := range rows {
		switch row[column].(type) {
		case nil:
			continue
		case int, int8, int16, int32, int64:
			return arrow.PrimitiveTypes.Int64
		case uint8, uint16, uint32, uint64:
			return arrow.PrimitiveTypes.Uint64
		case float32, float64:
			return arrow.PrimitiveTypes.Float64
		case bool:
			return arrow.FixedWidthTypes.Boolean
		case time.Time:
			return arrow.FixedWidthTypes.Timestamp_us
		default:
			return arrow.BinaryTypes.String
		}
	}
	return arrow.BinaryTypes.String
}

func appendValue(b array.Builder, v any) error {
	if v == nil {
		b.AppendNull()
		return nil
	}

	switch fb := b.(type) {
	case *array.Int64Builder:
		n, ok := toInt64(v)
		if !ok {
			return fmt.Errorf("unexpected %T in integer column", v)
		}
		fb.Append(n)
	case *array.Uint64Builder:
		n, ok := toUint64(v)
		if !ok {
			return fmt.Errorf("unexpected %T in unsigned column", v)
		}
		fb.Append(n)
	case *array.Float64Builder:
		switch f := v.(type) {
		case float64:
			fb.Append(f)
		case float32:
			fb.Append(float64(f))
		default:
			return fmt.Errorf("unexpected %T in float column", v)
		}
	case *array.BooleanBuilder:
		bv, ok := v.(bool)
		if !ok {
			return fmt.Errorf("unexpected %T in boolean column", v)
		}
		fb.Append(bv)
	case *array.TimestampBuilder:
		t, ok := v.(time.Time)
		if !ok {
			return fmt.Errorf("unexpected %T in timestamp column", v)
		}
		fb.Append(arrow.Timestamp(t.UnixMicro()))
	case *array.StringBuilder:
		s, err := toString(v)
		if err != nil {
			return err
		}
		fb.Append(s)
	default:
		return fmt.Errorf("unsupported builder %T", b)
	}
	return nil
}

func toInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int8:
		return int64(n), true
	case int16:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	}
	return 0, false
}

func toUint64(v any) (uint64, bool) {
	switch n := v.(type) {
	case uint8:
		return uint64(n), true
	case uint16:
		return uint64(n), true
	case uint32:
		return uint64(n), true
	case uint64:
		return n, true
	}
	return 0, false
}

func toString(v any) (string, error) {
	switch s := v.(type) {
	case string:
		return s, nil
	case []byte:
		return string(s), nil
	case fmt.Stringer:
		return s.String(), nil
	case builder.Row, []builder.Row, map[string]any, []any:
		data, err := json.Marshal(s)
		if err != nil {
			return "", err
		}
		return string(data), nil
	}
	return fmt.Sprint(v), nil
}
