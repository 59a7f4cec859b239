// Package series provides the typed, Apache-Arrow-backed column type
// underlying every table. A Series owns one Arrow array and never
// mutates it; all column transforms build new Series values.
package series

import (
	"fmt"
	"strconv"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
)

// timestampType is the Arrow type used for time.Time values.
var timestampType = &arrow.TimestampType{Unit: arrow.Nanosecond}

// Series represents a named, typed column backed by an Arrow array.
type Series[T any] struct {
	name  string
	array arrow.Array
}

// New creates a Series from a slice of values. Supported element types
// are string, int64, float64, bool and time.Time; anything else panics,
// use NewSafe when the element type is not statically known.
func New[T any](name string, values []T, mem memory.Allocator) *Series[T] {
	s, err := NewSafe(name, values, mem)
	if err != nil {
		panic(err)
	}
	return s
}

// NewSafe creates a Series from a slice of values, returning an error
// for unsupported element types.
func NewSafe[T any](name string, values []T, mem memory.Allocator) (*Series[T], error) {
	if mem == nil {
		mem = memory.NewGoAllocator()
	}

	var arr arrow.Array

	switch v := any(values).(type) {
	case []string:
		builder := array.NewStringBuilder(mem)
		defer builder.Release()
		builder.AppendValues(v, nil)
		arr = builder.NewArray()
	case []int64:
		builder := array.NewInt64Builder(mem)
		defer builder.Release()
		builder.AppendValues(v, nil)
		arr = builder.NewArray()
	case []float64:
		builder := array.NewFloat64Builder(mem)
		defer builder.Release()
		builder.AppendValues(v, nil)
		arr = builder.NewArray()
	case []bool:
		builder := array.NewBooleanBuilder(mem)
		defer builder.Release()
		builder.AppendValues(v, nil)
		arr = builder.NewArray()
	case []time.Time:
		builder := array.NewTimestampBuilder(mem, timestampType)
		defer builder.Release()
		for _, val := range v {
			builder.Append(arrow.Timestamp(val.UnixNano()))
		}
		arr = builder.NewArray()
	default:
		return nil, fmt.Errorf("series %q: unsupported element type %T", name, values)
	}

	return &Series[T]{name: name, array: arr}, nil
}

// Name returns the column name.
func (s *Series[T]) Name() string {
	return s.name
}

// Len returns the number of values.
func (s *Series[T]) Len() int {
	return s.array.Len()
}

// DataType returns the Arrow data type.
func (s *Series[T]) DataType() arrow.DataType {
	return s.array.DataType()
}

// IsNull reports whether the value at index is null.
func (s *Series[T]) IsNull(index int) bool {
	return s.array.IsNull(index)
}

// Values returns the data as a Go slice.
func (s *Series[T]) Values() []T {
	result := make([]T, s.array.Len())

	switch arr := s.array.(type) {
	case *array.String:
		values := any(result).([]string)
		for i := 0; i < arr.Len(); i++ {
			values[i] = arr.Value(i)
		}
	case *array.Int64:
		values := any(result).([]int64)
		for i := 0; i < arr.Len(); i++ {
			values[i] = arr.Value(i)
		}
	case *array.Float64:
		values := any(result).([]float64)
		for i := 0; i < arr.Len(); i++ {
			values[i] = arr.Value(i)
		}
	case *array.Boolean:
		values := any(result).([]bool)
		for i := 0; i < arr.Len(); i++ {
			values[i] = arr.Value(i)
		}
	case *array.Timestamp:
		values := any(result).([]time.Time)
		for i := 0; i < arr.Len(); i++ {
			values[i] = time.Unix(0, int64(arr.Value(i))).UTC()
		}
	default:
		panic(fmt.Sprintf("series %q: unsupported array type %T", s.name, arr))
	}

	return result
}

// Value returns the value at the given index, or the zero value when
// the index is out of range.
func (s *Series[T]) Value(index int) T {
	var result T
	if index < 0 || index >= s.array.Len() {
		return result
	}

	switch arr := s.array.(type) {
	case *array.String:
		if v, ok := any(&result).(*string); ok {
			*v = arr.Value(index)
		}
	case *array.Int64:
		if v, ok := any(&result).(*int64); ok {
			*v = arr.Value(index)
		}
	case *array.Float64:
		if v, ok := any(&result).(*float64); ok {
			*v = arr.Value(index)
		}
	case *array.Boolean:
		if v, ok := any(&result).(*bool); ok {
			*v = arr.Value(index)
		}
	case *array.Timestamp:
		if v, ok := any(&result).(*time.Time); ok {
			*v = time.Unix(0, int64(arr.Value(index))).UTC()
		}
	}

	return result
}

// GetAsString returns the value at index rendered as a string. Used for
// group keys and row-identity keys where exact, type-stable rendering
// matters more than presentation.
func (s *Series[T]) GetAsString(index int) string {
	if index < 0 || index >= s.array.Len() || s.array.IsNull(index) {
		return ""
	}
	return FormatValue(s.array, index)
}

// String returns a diagnostic representation of the series.
func (s *Series[T]) String() string {
	return fmt.Sprintf("Series[%s]: %s (len=%d)", s.array.DataType().Name(), s.name, s.Len())
}

// Array returns the underlying Arrow array (retains a reference).
func (s *Series[T]) Array() arrow.Array {
	if s.array != nil {
		s.array.Retain()
		return s.array
	}
	return nil
}

// Release releases the underlying Arrow memory.
func (s *Series[T]) Release() {
	if s.array != nil {
		s.array.Release()
	}
}

// FormatValue renders the non-null value at index of any supported
// array as a stable string.
func FormatValue(arr arrow.Array, index int) string {
	switch typed := arr.(type) {
	case *array.String:
		return typed.Value(index)
	case *array.Int64:
		return strconv.FormatInt(typed.Value(index), 10)
	case *array.Float64:
		return strconv.FormatFloat(typed.Value(index), 'g', -1, 64)
	case *array.Boolean:
		return strconv.FormatBool(typed.Value(index))
	case *array.Timestamp:
		return strconv.FormatInt(int64(typed.Value(index)), 10)
	default:
		return ""
	}
}
