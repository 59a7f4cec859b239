package expr

import (
	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"golang.org/x/exp/constraints"

	"github.com/syedtoushik06/deplyr/internal/errors"
)

// RowComparator returns a three-way comparator between two rows of one
// array, as used by stable sorting. Nulls order before every non-null
// value.
func RowComparator(arr arrow.Array) (func(a, b int) int, error) {
	switch typed := arr.(type) {
	case *array.String:
		return orderedRowComparator(typed, typed.Value), nil
	case *array.Int64:
		return orderedRowComparator(typed, typed.Value), nil
	case *array.Float64:
		return orderedRowComparator(typed, typed.Value), nil
	case *array.Timestamp:
		return orderedRowComparator(typed, func(i int) int64 { return int64(typed.Value(i)) }), nil
	case *array.Boolean:
		return orderedRowComparator(typed, func(i int) int8 {
			if typed.Value(i) {
				return 1
			}
			return 0
		}), nil
	default:
		return nil, errors.NewTypeMismatch("Arrange", arr.DataType().Name(),
			"column type cannot be ordered")
	}
}

func orderedRowComparator[T constraints.Ordered](arr arrow.Array, value func(int) T) func(a, b int) int {
	return func(a, b int) int {
		aNull, bNull := arr.IsNull(a), arr.IsNull(b)
		switch {
		case aNull && bNull:
			return 0
		case aNull:
			return -1
		case bNull:
			return 1
		}
		av, bv := value(a), value(b)
		switch {
		case av < bv:
			return -1
		case av > bv:
			return 1
		default:
			return 0
		}
	}
}
