package deplyr

import (
	"fmt"

	"github.com/syedtoushik06/deplyr/internal/errors"
	"github.com/syedtoushik06/deplyr/internal/expr"
	"github.com/syedtoushik06/deplyr/internal/table"
)

// Aggregation reduces a column to one scalar per group (or per table
// when ungrouped). Use it directly in Summarise, or embed it in an
// expression with AsExpr for grouped Mutate, where the reduced value
// broadcasts back to every row of its group.
type Aggregation struct {
	a *expr.AggregationExpr
}

// Sum creates a sum aggregation.
func Sum(column Expr) Aggregation { return Aggregation{a: expr.Sum(column.e)} }

// N creates a row-count aggregation. It counts rows, not values, so it
// takes no column; the result column defaults to "n".
func N() Aggregation { return Aggregation{a: expr.N()} }

// Mean creates an arithmetic-mean aggregation.
func Mean(column Expr) Aggregation { return Aggregation{a: expr.Mean(column.e)} }

// Median creates a median aggregation.
func Median(column Expr) Aggregation { return Aggregation{a: expr.Median(column.e)} }

// Min creates a minimum aggregation.
func Min(column Expr) Aggregation { return Aggregation{a: expr.Min(column.e)} }

// Max creates a maximum aggregation.
func Max(column Expr) Aggregation { return Aggregation{a: expr.Max(column.e)} }

// NDistinct creates a distinct-value-count aggregation.
func NDistinct(column Expr) Aggregation { return Aggregation{a: expr.NDistinct(column.e)} }

// Quantile creates a quantile aggregation for probability p in [0, 1],
// using linear interpolation between order statistics.
func Quantile(column Expr, p float64) Aggregation {
	return Aggregation{a: expr.Quantile(column.e, p)}
}

// IQR creates an interquartile-range aggregation (q75 - q25).
func IQR(column Expr) Aggregation { return Aggregation{a: expr.IQR(column.e)} }

// As names the result column, overriding the "{fn}_{column}" default.
func (a Aggregation) As(alias string) Aggregation {
	return Aggregation{a: a.a.As(alias)}
}

// AsExpr embeds the aggregation in an expression, so derived columns
// can mix per-row values with group-level reductions, e.g.
// Col("amount").Div(Sum(Col("amount")).AsExpr()).
func (a Aggregation) AsExpr() Expr {
	return Expr{e: a.a}
}

// String returns the aggregation's textual form.
func (a Aggregation) String() string { return a.a.String() }

// SummariseArg is an argument to Summarise: a single aggregation or an
// Across application.
type SummariseArg interface {
	summariseAggregations(columns []string) ([]*expr.AggregationExpr, error)
}

func (a Aggregation) summariseAggregations([]string) ([]*expr.AggregationExpr, error) {
	return []*expr.AggregationExpr{a.a}, nil
}

// expandSummariseArgs flattens Summarise arguments into concrete
// aggregations. Across arguments expand against the given column
// universe; under grouping that universe excludes the key columns.
func expandSummariseArgs(columns []string, args []SummariseArg) ([]*expr.AggregationExpr, error) {
	var out []*expr.AggregationExpr
	for _, arg := range args {
		expanded, err := arg.summariseAggregations(columns)
		if err != nil {
			return nil, err
		}
		out = append(out, expanded...)
	}
	return out, nil
}

// AggFn is a named aggregate function for Across: applied to each
// matched column, its name suffixes the result column when several
// functions run at once.
type AggFn struct {
	name string
	make func(column Expr) Aggregation
}

var (
	// FnSum sums each matched column.
	FnSum = AggFn{name: "sum", make: Sum}
	// FnMean averages each matched column.
	FnMean = AggFn{name: "mean", make: Mean}
	// FnMedian takes the median of each matched column.
	FnMedian = AggFn{name: "median", make: Median}
	// FnMin takes the minimum of each matched column.
	FnMin = AggFn{name: "min", make: Min}
	// FnMax takes the maximum of each matched column.
	FnMax = AggFn{name: "max", make: Max}
	// FnNDistinct counts distinct values of each matched column.
	FnNDistinct = AggFn{name: "n_distinct", make: NDistinct}
	// FnIQR takes the interquartile range of each matched column.
	FnIQR = AggFn{name: "iqr", make: IQR}
)

// FnQuantile creates an Across function for the p-quantile; the
// result-column suffix encodes the probability, e.g. "q25" for 0.25.
func FnQuantile(p float64) AggFn {
	return AggFn{
		name: fmt.Sprintf("q%v", p*100),
		make: func(column Expr) Aggregation { return Quantile(column, p) },
	}
}

// AcrossSpec applies aggregate functions to every column a selector
// matches. With one function the result keeps each column's name;
// with several, results are named "{column}_{fn}".
type AcrossSpec struct {
	sel Selector
	fns []AggFn
}

// Across applies fns to each column sel matches, in column order.
func Across(sel Selector, fns ...AggFn) AcrossSpec {
	return AcrossSpec{sel: sel, fns: fns}
}

func (s AcrossSpec) expand(columns []string) ([]*expr.AggregationExpr, error) {
	if len(s.fns) == 0 {
		return nil, errors.NewInvalidInput("Across", "requires at least one aggregate function")
	}
	matched, err := s.sel.Match(columns)
	if err != nil {
		return nil, err
	}
	var out []*expr.AggregationExpr
	for _, column := range matched {
		for _, fn := range s.fns {
			agg := fn.make(Col(column)).a
			if len(s.fns) == 1 {
				agg = agg.As(column)
			} else {
				agg = agg.As(column + "_" + fn.name)
			}
			out = append(out, agg)
		}
	}
	return out, nil
}

func (s AcrossSpec) summariseAggregations(columns []string) ([]*expr.AggregationExpr, error) {
	return s.expand(columns)
}

func (s AcrossSpec) mutateAssignments(columns []string) ([]table.Assignment, error) {
	aggs, err := s.expand(columns)
	if err != nil {
		return nil, err
	}
	out := make([]table.Assignment, len(aggs))
	for i, agg := range aggs {
		out[i] = table.Assignment{Name: agg.ResultName(), Expr: agg}
	}
	return out, nil
}
