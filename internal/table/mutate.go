package table

import (
	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/syedtoushik06/deplyr/internal/errors"
	"github.com/syedtoushik06/deplyr/internal/expr"
)

// Assignment names a derived column. Assignments evaluate in
// declaration order, so later ones see the columns earlier ones added.
type Assignment struct {
	Name string
	Expr expr.Expr
}

// Mutate derives columns from the given assignments. An assignment
// whose name matches an existing column replaces it in place; a new
// name appends at the end. Aggregations inside an expression evaluate
// over the whole table and broadcast to every row.
func (t *Table) Mutate(assignments ...Assignment) (*Table, error) {
	if len(assignments) == 0 {
		return nil, errors.NewInvalidInput("Mutate", "at least one assignment is required")
	}

	arrays := t.arrays()
	defer releaseArrays(arrays)
	order := t.Columns()
	n := t.Len()

	allRows := make([]int, n)
	for i := range allRows {
		allRows[i] = i
	}

	ev := expr.NewEvaluator(memory.NewGoAllocator())
	for _, a := range assignments {
		if a.Name == "" {
			return nil, errors.NewInvalidInput("Mutate", "assignment name must not be empty")
		}

		ex := a.Expr
		if expr.HasAggregations(ex) {
			resolved, err := expr.ResolveAggregates(ex, arrays, allRows)
			if err != nil {
				return nil, errors.Wrap("Mutate", err)
			}
			ex = resolved
		}

		result, err := ev.Evaluate(ex, arrays, n)
		if err != nil {
			return nil, errors.Wrap("Mutate", err)
		}

		if prev, exists := arrays[a.Name]; exists {
			prev.Release()
		} else {
			order = append(order, a.Name)
		}
		arrays[a.Name] = result
	}

	return assemble(order, arrays)
}

// assemble builds a Table from named arrays in the given column order.
func assemble(order []string, arrays map[string]arrow.Array) (*Table, error) {
	cols := make([]ISeries, 0, len(order))
	for _, name := range order {
		s, err := fromArray(name, arrays[name])
		if err != nil {
			return nil, err
		}
		cols = append(cols, s)
	}
	return New(cols...), nil
}
