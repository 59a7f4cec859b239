// Package table implements the immutable, column-oriented table engine:
// row filtering, projection, derivation, aggregation, grouping, stable
// sorting, renaming, deduplication and counting. Every operation
// returns a new Table and leaves its input untouched.
package table

import (
	"fmt"
	"strings"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/syedtoushik06/deplyr/internal/errors"
	"github.com/syedtoushik06/deplyr/internal/series"
)

// Table is an ordered set of equal-length named columns. Column order
// is significant for projection and ranges; lookup is by name.
type Table struct {
	columns map[string]ISeries
	order   []string
}

// New creates a Table from columns. Later columns win on duplicate
// names; use NewChecked when inputs are untrusted.
func New(cols ...ISeries) *Table {
	columns := make(map[string]ISeries, len(cols))
	order := make([]string, 0, len(cols))

	for _, s := range cols {
		name := s.Name()
		if _, exists := columns[name]; !exists {
			order = append(order, name)
		}
		columns[name] = s
	}

	return &Table{columns: columns, order: order}
}

// NewChecked creates a Table, enforcing the structural invariants:
// unique column names and equal column lengths.
func NewChecked(cols ...ISeries) (*Table, error) {
	seen := make(map[string]bool, len(cols))
	for _, s := range cols {
		if seen[s.Name()] {
			return nil, errors.NewDuplicateColumn("NewTable", s.Name())
		}
		seen[s.Name()] = true
	}
	if len(cols) > 1 {
		want := cols[0].Len()
		for _, s := range cols[1:] {
			if s.Len() != want {
				return nil, errors.NewInvalidInput("NewTable", fmt.Sprintf(
					"column %q has %d rows, want %d", s.Name(), s.Len(), want))
			}
		}
	}
	return New(cols...), nil
}

// Columns returns the column names in order.
func (t *Table) Columns() []string {
	return append([]string(nil), t.order...)
}

// Len returns the number of rows.
func (t *Table) Len() int {
	if len(t.order) == 0 {
		return 0
	}
	return t.columns[t.order[0]].Len()
}

// Width returns the number of columns.
func (t *Table) Width() int {
	return len(t.order)
}

// Column returns the named column.
func (t *Table) Column(name string) (ISeries, bool) {
	s, ok := t.columns[name]
	return s, ok
}

// HasColumn reports whether the named column exists.
func (t *Table) HasColumn(name string) bool {
	_, ok := t.columns[name]
	return ok
}

// String returns a diagnostic schema representation.
func (t *Table) String() string {
	if len(t.order) == 0 {
		return "Table[empty]"
	}
	parts := []string{fmt.Sprintf("Table[%dx%d]", t.Len(), t.Width())}
	for _, name := range t.order {
		parts = append(parts, fmt.Sprintf("  %s: %s", name, t.columns[name].DataType().Name()))
	}
	return strings.Join(parts, "\n")
}

// Release releases all underlying Arrow memory.
func (t *Table) Release() {
	for _, s := range t.columns {
		s.Release()
	}
}

// Project returns a new Table holding exactly the named columns, in
// the given order. Every name must exist.
func (t *Table) Project(names []string) (*Table, error) {
	cols := make([]ISeries, 0, len(names))
	for _, name := range names {
		s, ok := t.columns[name]
		if !ok {
			return nil, errors.NewColumnNotFound("Select", name)
		}
		cols = append(cols, copySeries(s))
	}
	return New(cols...), nil
}

// Rename returns a new Table with columns renamed per mapping (old
// name to new name). Positions and values are unchanged. A missing old
// name or a collision with a retained column fails.
func (t *Table) Rename(mapping map[string]string) (*Table, error) {
	for old := range mapping {
		if !t.HasColumn(old) {
			return nil, errors.NewColumnNotFound("Rename", old)
		}
	}

	// The final name of each column: renamed or kept.
	finalName := func(name string) string {
		if renamed, ok := mapping[name]; ok {
			return renamed
		}
		return name
	}
	seen := make(map[string]bool, len(t.order))
	for _, name := range t.order {
		final := finalName(name)
		if seen[final] {
			return nil, errors.NewDuplicateColumn("Rename", final)
		}
		seen[final] = true
	}

	cols := make([]ISeries, 0, len(t.order))
	for _, name := range t.order {
		arr := t.columns[name].Array()
		renamed, err := fromArray(finalName(name), arr)
		arr.Release()
		if err != nil {
			return nil, errors.Wrap("Rename", err)
		}
		cols = append(cols, renamed)
	}
	return New(cols...), nil
}

// Slice returns rows start (inclusive) to end (exclusive) as a new
// Table, clamping end to the row count.
func (t *Table) Slice(start, end int) (*Table, error) {
	if start < 0 || end < start {
		return nil, errors.NewInvalidInput("Slice", fmt.Sprintf("invalid range [%d, %d)", start, end))
	}
	if end > t.Len() {
		end = t.Len()
	}
	if start > end {
		start = end
	}
	indices := make([]int, 0, end-start)
	for i := start; i < end; i++ {
		indices = append(indices, i)
	}
	return t.take(indices)
}

// Head returns the first n rows.
func (t *Table) Head(n int) (*Table, error) {
	return t.Slice(0, n)
}

// take gathers the given row indices, in order, into a new Table.
func (t *Table) take(indices []int) (*Table, error) {
	cols := make([]ISeries, 0, len(t.order))
	for _, name := range t.order {
		arr := t.columns[name].Array()
		gathered, err := gatherArray(name, arr, indices)
		arr.Release()
		if err != nil {
			return nil, err
		}
		cols = append(cols, gathered)
	}
	return New(cols...), nil
}

// arrays returns the Arrow array of every column, keyed by name. Each
// array is retained; call releaseArrays when done.
func (t *Table) arrays() map[string]arrow.Array {
	out := make(map[string]arrow.Array, len(t.order))
	for _, name := range t.order {
		out[name] = t.columns[name].Array()
	}
	return out
}

func releaseArrays(arrays map[string]arrow.Array) {
	for _, arr := range arrays {
		arr.Release()
	}
}

// gatherArray builds a column holding the array values at the given
// row indices, in order.
func gatherArray(name string, arr arrow.Array, indices []int) (ISeries, error) {
	mem := memory.NewGoAllocator()

	switch typed := arr.(type) {
	case *array.String:
		values := make([]string, len(indices))
		for i, idx := range indices {
			if !typed.IsNull(idx) {
				values[i] = typed.Value(idx)
			}
		}
		return series.New(name, values, mem), nil
	case *array.Int64:
		values := make([]int64, len(indices))
		for i, idx := range indices {
			if !typed.IsNull(idx) {
				values[i] = typed.Value(idx)
			}
		}
		return series.New(name, values, mem), nil
	case *array.Float64:
		values := make([]float64, len(indices))
		for i, idx := range indices {
			if !typed.IsNull(idx) {
				values[i] = typed.Value(idx)
			}
		}
		return series.New(name, values, mem), nil
	case *array.Boolean:
		values := make([]bool, len(indices))
		for i, idx := range indices {
			if !typed.IsNull(idx) {
				values[i] = typed.Value(idx)
			}
		}
		return series.New(name, values, mem), nil
	case *array.Timestamp:
		values := make([]time.Time, len(indices))
		for i, idx := range indices {
			if !typed.IsNull(idx) {
				values[i] = time.Unix(0, int64(typed.Value(idx))).UTC()
			}
		}
		return series.New(name, values, mem), nil
	default:
		return nil, errors.NewInvalidInput("Gather", "unsupported column type "+arr.DataType().Name())
	}
}

// fromArray copies an Arrow array into a fresh column with independent
// memory.
func fromArray(name string, arr arrow.Array) (ISeries, error) {
	indices := make([]int, arr.Len())
	for i := range indices {
		indices[i] = i
	}
	return gatherArray(name, arr, indices)
}

// copySeries duplicates a column with independent memory so result
// tables never share buffers with their inputs.
func copySeries(s ISeries) ISeries {
	arr := s.Array()
	defer arr.Release()
	copied, err := fromArray(s.Name(), arr)
	if err != nil {
		// All stored columns are of supported types.
		panic(err)
	}
	return copied
}
