package expr

import (
	"time"

	"github.com/apache/arrow-go/v18/arrow"

	"github.com/syedtoushik06/deplyr/internal/errors"
)

// HasAggregations reports whether the tree contains an aggregation
// node anywhere.
func HasAggregations(ex Expr) bool {
	switch t := ex.(type) {
	case *AggregationExpr:
		return true
	case *BinaryExpr:
		return HasAggregations(t.left) || HasAggregations(t.right)
	case *NotExpr:
		return HasAggregations(t.operand)
	case *InExpr:
		return HasAggregations(t.operand)
	case *CaseExpr:
		for _, br := range t.branches {
			if HasAggregations(br.Condition) || HasAggregations(br.Result) {
				return true
			}
		}
		return t.fallback != nil && HasAggregations(t.fallback)
	default:
		return false
	}
}

// ResolveAggregates rewrites the tree, replacing every aggregation node
// with a literal holding its value computed over the given rows. This
// is what lets a derivation like amount / sum(amount) evaluate row-wise
// after the group scalar is fixed.
func ResolveAggregates(ex Expr, columns map[string]arrow.Array, indices []int) (Expr, error) {
	switch t := ex.(type) {
	case *AggregationExpr:
		return resolveAggregate(t, columns, indices)
	case *BinaryExpr:
		left, err := ResolveAggregates(t.left, columns, indices)
		if err != nil {
			return nil, err
		}
		right, err := ResolveAggregates(t.right, columns, indices)
		if err != nil {
			return nil, err
		}
		return NewBinary(left, t.op, right), nil
	case *NotExpr:
		operand, err := ResolveAggregates(t.operand, columns, indices)
		if err != nil {
			return nil, err
		}
		return Not(operand), nil
	case *InExpr:
		operand, err := ResolveAggregates(t.operand, columns, indices)
		if err != nil {
			return nil, err
		}
		return In(operand, t.values...), nil
	case *CaseExpr:
		out := NewCase()
		for _, br := range t.branches {
			cond, err := ResolveAggregates(br.Condition, columns, indices)
			if err != nil {
				return nil, err
			}
			res, err := ResolveAggregates(br.Result, columns, indices)
			if err != nil {
				return nil, err
			}
			out = out.When(cond, res)
		}
		if t.fallback != nil {
			fb, err := ResolveAggregates(t.fallback, columns, indices)
			if err != nil {
				return nil, err
			}
			out = out.Else(fb)
		}
		return out, nil
	default:
		return ex, nil
	}
}

func resolveAggregate(a *AggregationExpr, columns map[string]arrow.Array, indices []int) (Expr, error) {
	var arr arrow.Array
	if a.aggType != AggCount {
		col, ok := a.column.(*ColumnExpr)
		if !ok {
			return nil, errors.NewInvalidInput(aggOp, "aggregation must target a column, got "+a.column.String())
		}
		arr, ok = columns[col.Name()]
		if !ok {
			return nil, errors.NewColumnNotFound(aggOp, col.Name())
		}
	}

	value, outType, err := Aggregate(a, arr, indices)
	if err != nil {
		return nil, err
	}
	if outType == arrow.TIMESTAMP {
		return Lit(time.Unix(0, value.(int64)).UTC()), nil
	}
	return Lit(value), nil
}
