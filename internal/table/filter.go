package table

import (
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/syedtoushik06/deplyr/internal/errors"
	"github.com/syedtoushik06/deplyr/internal/expr"
)

// Filter returns the rows for which the predicate is true, in their
// original order. Rows where the predicate evaluates to null are
// dropped, matching the treatment of unknown comparisons.
func (t *Table) Filter(predicate expr.Expr) (*Table, error) {
	arrays := t.arrays()
	defer releaseArrays(arrays)

	ev := expr.NewEvaluator(memory.NewGoAllocator())
	mask, err := ev.EvaluateBoolean(predicate, arrays, t.Len())
	if err != nil {
		return nil, errors.Wrap("Filter", err)
	}
	defer mask.Release()

	indices := make([]int, 0, t.Len())
	for i := 0; i < mask.Len(); i++ {
		if !mask.IsNull(i) && mask.Value(i) {
			indices = append(indices, i)
		}
	}
	return t.take(indices)
}
