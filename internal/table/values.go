package table

import (
	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/syedtoushik06/deplyr/internal/errors"
)

// buildColumn assembles a column of the given Arrow type from untyped
// scalar values; nil entries become nulls. Timestamps travel as int64
// epoch nanoseconds.
func buildColumn(name string, t arrow.Type, values []any) (ISeries, error) {
	mem := memory.NewGoAllocator()

	switch t {
	case arrow.INT64:
		b := array.NewInt64Builder(mem)
		defer b.Release()
		for _, v := range values {
			if v == nil {
				b.AppendNull()
				continue
			}
			b.Append(v.(int64))
		}
		return wrapArray(name, b.NewArray())
	case arrow.FLOAT64:
		b := array.NewFloat64Builder(mem)
		defer b.Release()
		for _, v := range values {
			switch n := v.(type) {
			case nil:
				b.AppendNull()
			case float64:
				b.Append(n)
			case int64:
				// A numeric column widened after some groups produced
				// integer scalars.
				b.Append(float64(n))
			default:
				return nil, errors.NewTypeMismatch("Summarise", name, "non-numeric value in numeric column")
			}
		}
		return wrapArray(name, b.NewArray())
	case arrow.STRING:
		b := array.NewStringBuilder(mem)
		defer b.Release()
		for _, v := range values {
			if v == nil {
				b.AppendNull()
				continue
			}
			b.Append(v.(string))
		}
		return wrapArray(name, b.NewArray())
	case arrow.BOOL:
		b := array.NewBooleanBuilder(mem)
		defer b.Release()
		for _, v := range values {
			if v == nil {
				b.AppendNull()
				continue
			}
			b.Append(v.(bool))
		}
		return wrapArray(name, b.NewArray())
	case arrow.TIMESTAMP:
		b := array.NewTimestampBuilder(mem, &arrow.TimestampType{Unit: arrow.Nanosecond})
		defer b.Release()
		for _, v := range values {
			if v == nil {
				b.AppendNull()
				continue
			}
			b.Append(arrow.Timestamp(v.(int64)))
		}
		return wrapArray(name, b.NewArray())
	default:
		return nil, errors.NewInvalidInput("Summarise", "unsupported result type "+t.String())
	}
}

// wrapArray turns a freshly built array into a column, transferring
// ownership.
func wrapArray(name string, arr arrow.Array) (ISeries, error) {
	defer arr.Release()
	return fromArray(name, arr)
}

// arrayValue extracts the non-null value at index as the untyped
// scalar convention used by buildColumn.
func arrayValue(arr arrow.Array, index int) any {
	switch typed := arr.(type) {
	case *array.String:
		return typed.Value(index)
	case *array.Int64:
		return typed.Value(index)
	case *array.Float64:
		return typed.Value(index)
	case *array.Boolean:
		return typed.Value(index)
	case *array.Timestamp:
		return int64(typed.Value(index))
	default:
		return nil
	}
}
