package expr

import (
	"math"
	"sort"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"golang.org/x/exp/constraints"

	"github.com/syedtoushik06/deplyr/internal/errors"
	"github.com/syedtoushik06/deplyr/internal/series"
)

const aggOp = "Summarise"

// Aggregate reduces the selected rows of a column array to one scalar.
// The returned arrow.Type is the output column type for this
// aggregation; counts are int64, rank statistics are float64, sum and
// min/max keep the input type. Aggregates that need a non-empty input
// (min, max, median, quantile, IQR) fail with an empty-aggregate error
// over zero rows.
func Aggregate(a *AggregationExpr, arr arrow.Array, indices []int) (any, arrow.Type, error) {
	switch a.aggType {
	case AggCount:
		return int64(len(indices)), arrow.INT64, nil
	case AggNDistinct:
		return nDistinct(arr, indices), arrow.INT64, nil
	case AggSum:
		return sum(a, arr, indices)
	case AggMean:
		vals, err := numericValues(a, arr, indices)
		if err != nil {
			return nil, arrow.FLOAT64, err
		}
		if len(vals) == 0 {
			return math.NaN(), arrow.FLOAT64, nil
		}
		total := 0.0
		for _, v := range vals {
			total += v
		}
		return total / float64(len(vals)), arrow.FLOAT64, nil
	case AggMedian:
		return rankStatistic(a, arr, indices, 0.5)
	case AggQuantile:
		return rankStatistic(a, arr, indices, a.quantile)
	case AggIQR:
		q75, _, err := rankStatistic(a, arr, indices, 0.75)
		if err != nil {
			return nil, arrow.FLOAT64, err
		}
		q25, _, err := rankStatistic(a, arr, indices, 0.25)
		if err != nil {
			return nil, arrow.FLOAT64, err
		}
		return q75.(float64) - q25.(float64), arrow.FLOAT64, nil
	case AggMin:
		return extremum(a, arr, indices, false)
	case AggMax:
		return extremum(a, arr, indices, true)
	default:
		return nil, arrow.NULL, errors.NewInvalidInput(aggOp, "unsupported aggregation "+a.String())
	}
}

func (a *AggregationExpr) columnName() string {
	if col, ok := a.column.(*ColumnExpr); ok {
		return col.Name()
	}
	return a.String()
}

func nDistinct(arr arrow.Array, indices []int) int64 {
	seen := make(map[string]bool, len(indices))
	sawNull := false
	for _, idx := range indices {
		if arr.IsNull(idx) {
			sawNull = true
			continue
		}
		seen[series.FormatValue(arr, idx)] = true
	}
	n := int64(len(seen))
	if sawNull {
		n++
	}
	return n
}

func sum(a *AggregationExpr, arr arrow.Array, indices []int) (any, arrow.Type, error) {
	switch typed := arr.(type) {
	case *array.Int64:
		var total int64
		for _, idx := range indices {
			if !typed.IsNull(idx) {
				total += typed.Value(idx)
			}
		}
		return total, arrow.INT64, nil
	case *array.Float64:
		var total float64
		for _, idx := range indices {
			if !typed.IsNull(idx) {
				total += typed.Value(idx)
			}
		}
		return total, arrow.FLOAT64, nil
	default:
		return nil, arrow.NULL, errors.NewTypeMismatch(aggOp, a.columnName(),
			"sum requires a numeric column, got "+arr.DataType().Name())
	}
}

// numericValues extracts non-null numeric values for the given rows.
func numericValues(a *AggregationExpr, arr arrow.Array, indices []int) ([]float64, error) {
	get, err := asFloat64(arr)
	if err != nil {
		return nil, errors.NewTypeMismatch(aggOp, a.columnName(),
			a.aggType.Name()+" requires a numeric column, got "+arr.DataType().Name())
	}
	vals := make([]float64, 0, len(indices))
	for _, idx := range indices {
		if !arr.IsNull(idx) {
			vals = append(vals, get(idx))
		}
	}
	return vals, nil
}

// rankStatistic computes the p-quantile with linear interpolation
// between order statistics.
func rankStatistic(a *AggregationExpr, arr arrow.Array, indices []int, p float64) (any, arrow.Type, error) {
	if p < 0 || p > 1 {
		return nil, arrow.FLOAT64, errors.NewInvalidInput(aggOp, "quantile probability must be in [0, 1]")
	}
	vals, err := numericValues(a, arr, indices)
	if err != nil {
		return nil, arrow.FLOAT64, err
	}
	if len(vals) == 0 {
		return nil, arrow.FLOAT64, errors.NewEmptyAggregate(aggOp, a.columnName())
	}
	sort.Float64s(vals)
	h := float64(len(vals)-1) * p
	lo := int(math.Floor(h))
	hi := int(math.Ceil(h))
	if lo == hi {
		return vals[lo], arrow.FLOAT64, nil
	}
	frac := h - float64(lo)
	return vals[lo]*(1-frac) + vals[hi]*frac, arrow.FLOAT64, nil
}

func extremum(a *AggregationExpr, arr arrow.Array, indices []int, wantMax bool) (any, arrow.Type, error) {
	name := "min"
	if wantMax {
		name = "max"
	}

	switch typed := arr.(type) {
	case *array.Int64:
		vals := collectNonNull(typed, typed.Value, indices)
		if len(vals) == 0 {
			return nil, arrow.INT64, errors.NewEmptyAggregate(aggOp, a.columnName())
		}
		return pickExtremum(vals, wantMax), arrow.INT64, nil
	case *array.Float64:
		vals := collectNonNull(typed, typed.Value, indices)
		if len(vals) == 0 {
			return nil, arrow.FLOAT64, errors.NewEmptyAggregate(aggOp, a.columnName())
		}
		return pickExtremum(vals, wantMax), arrow.FLOAT64, nil
	case *array.String:
		vals := collectNonNull(typed, typed.Value, indices)
		if len(vals) == 0 {
			return nil, arrow.STRING, errors.NewEmptyAggregate(aggOp, a.columnName())
		}
		return pickExtremum(vals, wantMax), arrow.STRING, nil
	case *array.Timestamp:
		vals := collectNonNull(typed, func(i int) int64 { return int64(typed.Value(i)) }, indices)
		if len(vals) == 0 {
			return nil, arrow.TIMESTAMP, errors.NewEmptyAggregate(aggOp, a.columnName())
		}
		return pickExtremum(vals, wantMax), arrow.TIMESTAMP, nil
	default:
		return nil, arrow.NULL, errors.NewTypeMismatch(aggOp, a.columnName(),
			name+" unsupported for "+arr.DataType().Name())
	}
}

func collectNonNull[T any](arr arrow.Array, value func(int) T, indices []int) []T {
	vals := make([]T, 0, len(indices))
	for _, idx := range indices {
		if !arr.IsNull(idx) {
			vals = append(vals, value(idx))
		}
	}
	return vals
}

func pickExtremum[T constraints.Ordered](vals []T, wantMax bool) T {
	best := vals[0]
	for _, v := range vals[1:] {
		if (wantMax && v > best) || (!wantMax && v < best) {
			best = v
		}
	}
	return best
}
