package table

import (
	"sort"

	"github.com/apache/arrow-go/v18/arrow"

	"github.com/syedtoushik06/deplyr/internal/errors"
	"github.com/syedtoushik06/deplyr/internal/expr"
)

// SortKey pairs a column with a direction for Arrange.
type SortKey struct {
	Column     string
	Descending bool
}

// Asc creates an ascending sort key.
func Asc(column string) SortKey {
	return SortKey{Column: column}
}

// Desc creates a descending sort key.
func Desc(column string) SortKey {
	return SortKey{Column: column, Descending: true}
}

// Arrange returns the rows stably sorted by the given keys. Ties on
// the first key break by subsequent keys, then by original row order.
func (t *Table) Arrange(keys ...SortKey) (*Table, error) {
	if len(keys) == 0 {
		return nil, errors.NewInvalidInput("Arrange", "at least one sort key is required")
	}
	for _, k := range keys {
		if !t.HasColumn(k.Column) {
			return nil, errors.NewColumnNotFound("Arrange", k.Column)
		}
	}

	arrays := make([]arrow.Array, len(keys))
	defer func() {
		for _, arr := range arrays {
			if arr != nil {
				arr.Release()
			}
		}
	}()

	// Row-pair comparison across the ordered keys.
	pairCmps := make([]func(a, b int) int, len(keys))
	for i, k := range keys {
		arrays[i] = t.columns[k.Column].Array()
		cmp, err := expr.RowComparator(arrays[i])
		if err != nil {
			return nil, errors.Wrap("Arrange", err)
		}
		descending := k.Descending
		pairCmps[i] = func(a, b int) int {
			c := cmp(a, b)
			if descending {
				return -c
			}
			return c
		}
	}

	indices := make([]int, t.Len())
	for i := range indices {
		indices[i] = i
	}
	sort.SliceStable(indices, func(a, b int) bool {
		for _, cmp := range pairCmps {
			if c := cmp(indices[a], indices[b]); c != 0 {
				return c < 0
			}
		}
		return false
	})

	return t.take(indices)
}
