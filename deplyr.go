// Package deplyr provides an immutable, column-oriented table engine:
// composable, pure transformations over in-memory tabular data — row
// filtering, tidy column selection, derivation, grouped aggregation,
// stable sorting, renaming, deduplication and counting. This package
// is the sole public API; every operation returns a new Table and
// never mutates its input, so independent pipelines may share a source
// Table across goroutines without synchronization.
package deplyr

import (
	"io"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/syedtoushik06/deplyr/internal/errors"
	deplyrio "github.com/syedtoushik06/deplyr/internal/io"
	"github.com/syedtoushik06/deplyr/internal/selector"
	"github.com/syedtoushik06/deplyr/internal/series"
	"github.com/syedtoushik06/deplyr/internal/table"
)

// ISeries is the type-erased view of a column.
type ISeries interface {
	Name() string
	Len() int
	DataType() arrow.DataType
	IsNull(index int) bool
	String() string
	Array() arrow.Array
	Release()
	GetAsString(index int) string
}

// Table is an immutable, column-oriented, row-aligned tabular value.
type Table struct {
	t *table.Table
}

// GroupedTable is a Table carrying a grouping key set. Summarise
// narrows it back to a plain Table; Ungroup discards the keys.
type GroupedTable struct {
	g *table.Grouped
}

// SortKey pairs a column with a direction for Arrange.
type SortKey = table.SortKey

// Asc creates an ascending sort key.
func Asc(column string) SortKey { return table.Asc(column) }

// Desc creates a descending sort key.
func Desc(column string) SortKey { return table.Desc(column) }

// NewSeries creates a typed column from values. Supported element
// types are string, int64, float64, bool and time.Time.
func NewSeries[T any](name string, values []T) ISeries {
	return series.New(name, values, memory.NewGoAllocator())
}

// NewTable creates a Table, enforcing unique column names and equal
// column lengths.
func NewTable(cols ...ISeries) (*Table, error) {
	internal := make([]table.ISeries, len(cols))
	for i, c := range cols {
		internal[i] = c
	}
	t, err := table.NewChecked(internal...)
	if err != nil {
		return nil, err
	}
	return &Table{t: t}, nil
}

// Columns returns the column names in order.
func (t *Table) Columns() []string { return t.t.Columns() }

// Len returns the number of rows.
func (t *Table) Len() int { return t.t.Len() }

// Width returns the number of columns.
func (t *Table) Width() int { return t.t.Width() }

// HasColumn reports whether the named column exists.
func (t *Table) HasColumn(name string) bool { return t.t.HasColumn(name) }

// Column returns the named column.
func (t *Table) Column(name string) (ISeries, bool) { return t.t.Column(name) }

// String returns a diagnostic schema representation.
func (t *Table) String() string { return t.t.String() }

// Release frees the underlying Arrow memory.
func (t *Table) Release() { t.t.Release() }

// Filter keeps the rows for which the predicate is true, preserving
// their order.
func (t *Table) Filter(predicate Expr) (*Table, error) {
	out, err := t.t.Filter(predicate.e)
	if err != nil {
		return nil, err
	}
	return &Table{t: out}, nil
}

// Select projects to the columns the selectors match, in selector
// order. A name or pattern matching nothing fails with a
// column-not-found error.
func (t *Table) Select(selectors ...Selector) (*Table, error) {
	names, err := selector.Resolve(t.t.Columns(), selectors)
	if err != nil {
		return nil, err
	}
	out, err := t.t.Project(names)
	if err != nil {
		return nil, err
	}
	return &Table{t: out}, nil
}

// Mutate derives columns in declaration order; later arguments see
// the columns earlier ones added. An existing name is replaced in
// place, a new name appends at the end.
func (t *Table) Mutate(args ...MutateArg) (*Table, error) {
	assignments, err := expandMutateArgs(t.t.Columns(), args)
	if err != nil {
		return nil, err
	}
	out, err := t.t.Mutate(assignments...)
	if err != nil {
		return nil, err
	}
	return &Table{t: out}, nil
}

// Summarise collapses the whole table to one row of aggregates.
func (t *Table) Summarise(args ...SummariseArg) (*Table, error) {
	aggs, err := expandSummariseArgs(t.t.Columns(), args)
	if err != nil {
		return nil, err
	}
	out, err := t.t.Summarise(aggs...)
	if err != nil {
		return nil, err
	}
	return &Table{t: out}, nil
}

// GroupBy attaches a grouping key set.
func (t *Table) GroupBy(cols ...string) (*GroupedTable, error) {
	g, err := t.t.GroupBy(cols...)
	if err != nil {
		return nil, err
	}
	return &GroupedTable{g: g}, nil
}

// Arrange stably sorts rows by the given keys; remaining ties keep
// the original row order.
func (t *Table) Arrange(keys ...SortKey) (*Table, error) {
	out, err := t.t.Arrange(keys...)
	if err != nil {
		return nil, err
	}
	return &Table{t: out}, nil
}

// Rename renames columns per the old-to-new mapping, leaving positions
// and values unchanged.
func (t *Table) Rename(mapping map[string]string) (*Table, error) {
	out, err := t.t.Rename(mapping)
	if err != nil {
		return nil, err
	}
	return &Table{t: out}, nil
}

// Distinct deduplicates rows by full content (no arguments) or by a
// column subset, truncating to that subset; the first occurrence of
// each key survives.
func (t *Table) Distinct(cols ...string) (*Table, error) {
	out, err := t.t.Distinct(cols...)
	if err != nil {
		return nil, err
	}
	return &Table{t: out}, nil
}

// DistinctKeepAll deduplicates by a column subset but keeps the full
// first row of each key.
func (t *Table) DistinctKeepAll(cols ...string) (*Table, error) {
	out, err := t.t.DistinctKeepAll(cols...)
	if err != nil {
		return nil, err
	}
	return &Table{t: out}, nil
}

// Count counts rows per distinct combination of the given columns as
// column "n", groups in first-occurrence order.
func (t *Table) Count(cols ...string) (*Table, error) {
	out, err := t.t.Count(cols, false)
	if err != nil {
		return nil, err
	}
	return &Table{t: out}, nil
}

// CountSorted counts like Count, then orders by descending count with
// ties in first-occurrence order.
func (t *Table) CountSorted(cols ...string) (*Table, error) {
	out, err := t.t.Count(cols, true)
	if err != nil {
		return nil, err
	}
	return &Table{t: out}, nil
}

// Slice returns rows start (inclusive) to end (exclusive).
func (t *Table) Slice(start, end int) (*Table, error) {
	out, err := t.t.Slice(start, end)
	if err != nil {
		return nil, err
	}
	return &Table{t: out}, nil
}

// Head returns the first n rows.
func (t *Table) Head(n int) (*Table, error) {
	return t.Slice(0, n)
}

// GroupedTable methods.

// Keys returns the grouping column names.
func (g *GroupedTable) Keys() []string { return g.g.Keys() }

// NumGroups returns the number of distinct key combinations.
func (g *GroupedTable) NumGroups() int { return g.g.NumGroups() }

// Ungroup discards the grouping keys.
func (g *GroupedTable) Ungroup() *Table {
	return &Table{t: g.g.Ungroup()}
}

// Summarise collapses each group to one row; grouping columns lead the
// result in first-occurrence order of the key tuples.
func (g *GroupedTable) Summarise(args ...SummariseArg) (*Table, error) {
	aggs, err := expandSummariseArgs(g.nonKeyColumns(), args)
	if err != nil {
		return nil, err
	}
	out, err := g.g.Summarise(aggs...)
	if err != nil {
		return nil, err
	}
	return &Table{t: out}, nil
}

// Mutate derives columns group by group: aggregations inside an
// expression evaluate over each group's rows and broadcast within it.
// The grouping keys are retained.
func (g *GroupedTable) Mutate(args ...MutateArg) (*GroupedTable, error) {
	assignments, err := expandMutateArgs(g.nonKeyColumns(), args)
	if err != nil {
		return nil, err
	}
	out, err := g.g.Mutate(assignments...)
	if err != nil {
		return nil, err
	}
	return &GroupedTable{g: out}, nil
}

// nonKeyColumns returns the table's columns minus the grouping keys,
// the universe pattern selectors resolve against under grouping.
func (g *GroupedTable) nonKeyColumns() []string {
	keys := make(map[string]bool)
	for _, k := range g.g.Keys() {
		keys[k] = true
	}
	var out []string
	for _, c := range g.g.Table().Columns() {
		if !keys[c] {
			out = append(out, c)
		}
	}
	return out
}

// Data-source loader boundary.

// CSVOptions configures CSV reading and writing.
type CSVOptions = deplyrio.CSVOptions

// ReadCSV loads a headered, comma-delimited CSV into a Table with
// per-column type inference.
func ReadCSV(r io.Reader) (*Table, error) {
	return ReadCSVWith(r, deplyrio.DefaultCSVOptions())
}

// ReadCSVWith loads CSV data with explicit options.
func ReadCSVWith(r io.Reader, options CSVOptions) (*Table, error) {
	out, err := deplyrio.NewCSVReader(r, options).Read()
	if err != nil {
		return nil, err
	}
	return &Table{t: out}, nil
}

// WriteCSV renders the table as headered, comma-delimited CSV.
func WriteCSV(w io.Writer, t *Table) error {
	return deplyrio.NewCSVWriter(w, deplyrio.DefaultCSVOptions()).Write(t.t)
}

// Error-kind predicates, so callers can branch on failure class.

// IsColumnNotFound reports whether err is a column-not-found failure.
func IsColumnNotFound(err error) bool { return errors.IsKind(err, errors.KindColumnNotFound) }

// IsDuplicateColumn reports whether err is a duplicate-column failure.
func IsDuplicateColumn(err error) bool { return errors.IsKind(err, errors.KindDuplicateColumn) }

// IsTypeMismatch reports whether err is a type-mismatch failure.
func IsTypeMismatch(err error) bool { return errors.IsKind(err, errors.KindTypeMismatch) }

// IsEmptyAggregate reports whether err is an aggregate-on-empty-input
// failure.
func IsEmptyAggregate(err error) bool { return errors.IsKind(err, errors.KindEmptyAggregate) }
