package expr

import (
	"fmt"
)

// AggregationType enumerates the supported aggregate functions.
type AggregationType int

const (
	AggSum AggregationType = iota
	AggCount
	AggMean
	AggMedian
	AggMin
	AggMax
	AggNDistinct
	AggQuantile
	AggIQR
)

// aggregationNames maps aggregation types to their canonical names,
// used for default result-column naming.
var aggregationNames = map[AggregationType]string{
	AggSum:       "sum",
	AggCount:     "n",
	AggMean:      "mean",
	AggMedian:    "median",
	AggMin:       "min",
	AggMax:       "max",
	AggNDistinct: "n_distinct",
	AggQuantile:  "quantile",
	AggIQR:       "iqr",
}

// Name returns the canonical function name.
func (t AggregationType) Name() string {
	return aggregationNames[t]
}

// AggregationExpr reduces a column's values within a group to one
// scalar. The alias, when set, names the result column; otherwise the
// name defaults to "{fn}_{column}".
type AggregationExpr struct {
	column   Expr
	aggType  AggregationType
	alias    string
	quantile float64 // probability for AggQuantile
}

// Column returns the aggregated expression (a column reference).
func (a *AggregationExpr) Column() Expr { return a.column }

// AggType returns the aggregation function type.
func (a *AggregationExpr) AggType() AggregationType { return a.aggType }

// Alias returns the result-column alias, empty when unset.
func (a *AggregationExpr) Alias() string { return a.alias }

// Prob returns the quantile probability for AggQuantile.
func (a *AggregationExpr) Prob() float64 { return a.quantile }

// As returns a copy of the aggregation with a result-column alias.
func (a *AggregationExpr) As(alias string) *AggregationExpr {
	return &AggregationExpr{column: a.column, aggType: a.aggType, alias: alias, quantile: a.quantile}
}

// ResultName returns the alias or the default "{fn}_{column}" name.
// A bare row count defaults to "n".
func (a *AggregationExpr) ResultName() string {
	if a.alias != "" {
		return a.alias
	}
	if a.aggType == AggCount {
		return "n"
	}
	col, ok := a.column.(*ColumnExpr)
	if !ok {
		return a.aggType.Name()
	}
	return fmt.Sprintf("%s_%s", a.aggType.Name(), col.Name())
}

func (a *AggregationExpr) String() string {
	if a.aggType == AggCount && a.column == nil {
		return "n()"
	}
	if a.aggType == AggQuantile {
		return fmt.Sprintf("quantile(%s, %g)", a.column, a.quantile)
	}
	return fmt.Sprintf("%s(%s)", a.aggType.Name(), a.column)
}

// Sum creates a sum aggregation.
func Sum(column Expr) *AggregationExpr {
	return &AggregationExpr{column: column, aggType: AggSum}
}

// N creates a row-count aggregation. It counts rows, not values, so it
// takes no column.
func N() *AggregationExpr {
	return &AggregationExpr{aggType: AggCount}
}

// Mean creates an arithmetic-mean aggregation.
func Mean(column Expr) *AggregationExpr {
	return &AggregationExpr{column: column, aggType: AggMean}
}

// Median creates a median aggregation.
func Median(column Expr) *AggregationExpr {
	return &AggregationExpr{column: column, aggType: AggMedian}
}

// Min creates a minimum aggregation.
func Min(column Expr) *AggregationExpr {
	return &AggregationExpr{column: column, aggType: AggMin}
}

// Max creates a maximum aggregation.
func Max(column Expr) *AggregationExpr {
	return &AggregationExpr{column: column, aggType: AggMax}
}

// NDistinct creates a distinct-value-count aggregation.
func NDistinct(column Expr) *AggregationExpr {
	return &AggregationExpr{column: column, aggType: AggNDistinct}
}

// Quantile creates a quantile aggregation for probability p in [0, 1],
// using linear interpolation between order statistics.
func Quantile(column Expr, p float64) *AggregationExpr {
	return &AggregationExpr{column: column, aggType: AggQuantile, quantile: p}
}

// IQR creates an interquartile-range aggregation (q75 - q25).
func IQR(column Expr) *AggregationExpr {
	return &AggregationExpr{column: column, aggType: AggIQR}
}

// Aggregation methods on column references, mirroring the constructors.

// Sum creates a sum aggregation of this column.
func (c *ColumnExpr) Sum() *AggregationExpr { return Sum(c) }

// Mean creates a mean aggregation of this column.
func (c *ColumnExpr) Mean() *AggregationExpr { return Mean(c) }

// Median creates a median aggregation of this column.
func (c *ColumnExpr) Median() *AggregationExpr { return Median(c) }

// Min creates a minimum aggregation of this column.
func (c *ColumnExpr) Min() *AggregationExpr { return Min(c) }

// Max creates a maximum aggregation of this column.
func (c *ColumnExpr) Max() *AggregationExpr { return Max(c) }

// NDistinct creates a distinct-count aggregation of this column.
func (c *ColumnExpr) NDistinct() *AggregationExpr { return NDistinct(c) }
