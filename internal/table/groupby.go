package table

import (
	"strconv"
	"strings"

	"github.com/apache/arrow-go/v18/arrow"
	xxhash "github.com/cespare/xxhash/v2"

	"github.com/syedtoushik06/deplyr/internal/config"
	"github.com/syedtoushik06/deplyr/internal/errors"
	"github.com/syedtoushik06/deplyr/internal/expr"
	"github.com/syedtoushik06/deplyr/internal/parallel"
	"github.com/syedtoushik06/deplyr/internal/series"
)

// groupIndex partitions row indices by composite key value, with
// groups held in first-occurrence order of their key tuple.
type groupIndex struct {
	keys []string // composite key per group
	rows [][]int  // row indices per group, input order
}

// size returns the number of groups.
func (gi *groupIndex) size() int {
	return len(gi.rows)
}

// firstRows returns the first row index of every group, one per group
// in group order.
func (gi *groupIndex) firstRows() []int {
	first := make([]int, len(gi.rows))
	for i, rows := range gi.rows {
		first[i] = rows[0]
	}
	return first
}

// rowKey renders the composite identity of one row over the key
// arrays. Each value is length-prefixed so the encoding is injective:
// a value embedding any delimiter byte cannot collide with a neighbour,
// and the null marker cannot collide with a literal value since value
// entries always start with a digit.
func rowKey(arrays []arrow.Array, row int) string {
	var sb strings.Builder
	for _, arr := range arrays {
		if arr.IsNull(row) {
			sb.WriteString("n;")
			continue
		}
		v := series.FormatValue(arr, row)
		sb.WriteString(strconv.Itoa(len(v)))
		sb.WriteByte(':')
		sb.WriteString(v)
	}
	return sb.String()
}

// buildGroupIndex hashes each row's composite key into buckets and
// verifies the stored key on bucket hits, so hash collisions cannot
// merge distinct groups.
func buildGroupIndex(t *Table, cols []string) *groupIndex {
	arrays := make([]arrow.Array, len(cols))
	for i, col := range cols {
		arrays[i] = t.columns[col].Array()
	}
	defer func() {
		for _, arr := range arrays {
			arr.Release()
		}
	}()

	gi := &groupIndex{}
	buckets := make(map[uint64][]int) // hash -> group slots

	for row := 0; row < t.Len(); row++ {
		key := rowKey(arrays, row)
		hash := xxhash.Sum64String(key)

		slot := -1
		for _, candidate := range buckets[hash] {
			if gi.keys[candidate] == key {
				slot = candidate
				break
			}
		}
		if slot < 0 {
			slot = len(gi.keys)
			gi.keys = append(gi.keys, key)
			gi.rows = append(gi.rows, nil)
			buckets[hash] = append(buckets[hash], slot)
		}
		gi.rows[slot] = append(gi.rows[slot], row)
	}
	return gi
}

// Grouped is a Table carrying a grouping key set. It is a distinct
// type so grouped evaluation cannot leak: Summarise narrows back to a
// plain Table and Ungroup discards the keys.
type Grouped struct {
	table *Table
	keys  []string
	index *groupIndex
}

// GroupBy attaches a grouping key set. Row count and contents are
// unchanged.
func (t *Table) GroupBy(cols ...string) (*Grouped, error) {
	if len(cols) == 0 {
		return nil, errors.NewInvalidInput("GroupBy", "at least one grouping column is required")
	}
	for _, col := range cols {
		if !t.HasColumn(col) {
			return nil, errors.NewColumnNotFound("GroupBy", col)
		}
	}
	return &Grouped{
		table: t,
		keys:  append([]string(nil), cols...),
		index: buildGroupIndex(t, cols),
	}, nil
}

// Table returns the underlying table.
func (g *Grouped) Table() *Table {
	return g.table
}

// Keys returns the grouping column names.
func (g *Grouped) Keys() []string {
	return append([]string(nil), g.keys...)
}

// NumGroups returns the number of distinct key combinations.
func (g *Grouped) NumGroups() int {
	return g.index.size()
}

// Ungroup discards the grouping keys. The underlying Table is
// immutable, so it is returned directly.
func (g *Grouped) Ungroup() *Table {
	return g.table
}

// Summarise collapses each group to one row: the grouping columns
// lead, in first-occurrence order of the key tuples, followed by one
// column per aggregation. Aggregation columns fan out over the worker
// pool when the group count crosses the configured threshold.
func (g *Grouped) Summarise(aggs ...*expr.AggregationExpr) (*Table, error) {
	if len(aggs) == 0 {
		return nil, errors.NewInvalidInput("Summarise", "at least one aggregation is required")
	}

	seen := make(map[string]bool, len(g.keys)+len(aggs))
	for _, key := range g.keys {
		seen[key] = true
	}
	for _, a := range aggs {
		name := a.ResultName()
		if seen[name] {
			return nil, errors.NewDuplicateColumn("Summarise", name)
		}
		seen[name] = true
	}

	// Grouping columns, one value per group.
	first := g.index.firstRows()
	cols := make([]ISeries, 0, len(g.keys)+len(aggs))
	for _, key := range g.keys {
		arr := g.table.columns[key].Array()
		gathered, err := gatherArray(key, arr, first)
		arr.Release()
		if err != nil {
			return nil, err
		}
		cols = append(cols, gathered)
	}

	cfg := config.GetConfig()
	if g.index.size() >= cfg.ParallelThreshold && len(aggs) > 1 {
		pool := parallel.NewWorkerPool(cfg.WorkerPoolSize)
		defer pool.Close()

		type aggResult struct {
			col ISeries
			err error
		}
		results := parallel.ProcessIndexed(pool, aggs, func(_ int, a *expr.AggregationExpr) aggResult {
			col, err := g.aggregateColumn(a)
			return aggResult{col: col, err: err}
		})
		for _, res := range results {
			if res.err != nil {
				return nil, res.err
			}
			cols = append(cols, res.col)
		}
		return New(cols...), nil
	}

	for _, a := range aggs {
		col, err := g.aggregateColumn(a)
		if err != nil {
			return nil, err
		}
		cols = append(cols, col)
	}
	return New(cols...), nil
}

// aggregateColumn evaluates one aggregation over every group, in group
// order, producing the result column.
func (g *Grouped) aggregateColumn(a *expr.AggregationExpr) (ISeries, error) {
	arr, inType, err := g.table.aggregationInput(a)
	if err != nil {
		return nil, err
	}
	if arr != nil {
		defer arr.Release()
	}

	values := make([]any, g.index.size())
	outType := aggOutputType(a, inType)
	for i, rows := range g.index.rows {
		value, vt, err := expr.Aggregate(a, arr, rows)
		if err != nil {
			return nil, err
		}
		outType = vt
		values[i] = value
	}
	return buildColumn(a.ResultName(), outType, values)
}

// aggregationInput resolves the column array an aggregation reads,
// nil for bare row counts.
func (t *Table) aggregationInput(a *expr.AggregationExpr) (arrow.Array, arrow.Type, error) {
	if a.AggType() == expr.AggCount && a.Column() == nil {
		return nil, arrow.INT64, nil
	}
	col, ok := a.Column().(*expr.ColumnExpr)
	if !ok {
		return nil, arrow.NULL, errors.NewInvalidInput("Summarise",
			"aggregation must target a column, got "+a.Column().String())
	}
	s, ok := t.columns[col.Name()]
	if !ok {
		return nil, arrow.NULL, errors.NewColumnNotFound("Summarise", col.Name())
	}
	arr := s.Array()
	return arr, arr.DataType().ID(), nil
}

// aggOutputType predicts the output column type of an aggregation, for
// sizing empty results where no group ever runs.
func aggOutputType(a *expr.AggregationExpr, input arrow.Type) arrow.Type {
	switch a.AggType() {
	case expr.AggCount, expr.AggNDistinct:
		return arrow.INT64
	case expr.AggMean, expr.AggMedian, expr.AggQuantile, expr.AggIQR:
		return arrow.FLOAT64
	default:
		return input
	}
}

// Summarise without grouping collapses the whole table to one row.
func (t *Table) Summarise(aggs ...*expr.AggregationExpr) (*Table, error) {
	if len(aggs) == 0 {
		return nil, errors.NewInvalidInput("Summarise", "at least one aggregation is required")
	}

	seen := make(map[string]bool, len(aggs))
	for _, a := range aggs {
		name := a.ResultName()
		if seen[name] {
			return nil, errors.NewDuplicateColumn("Summarise", name)
		}
		seen[name] = true
	}

	allRows := make([]int, t.Len())
	for i := range allRows {
		allRows[i] = i
	}

	cols := make([]ISeries, 0, len(aggs))
	for _, a := range aggs {
		arr, _, err := t.aggregationInput(a)
		if err != nil {
			return nil, err
		}
		value, outType, err := expr.Aggregate(a, arr, allRows)
		if arr != nil {
			arr.Release()
		}
		if err != nil {
			return nil, err
		}
		col, err := buildColumn(a.ResultName(), outType, []any{value})
		if err != nil {
			return nil, err
		}
		cols = append(cols, col)
	}
	return New(cols...), nil
}

// Mutate derives columns group by group. Aggregations inside an
// expression evaluate over the rows of each group and broadcast within
// it; row-wise parts behave as in ungrouped Mutate. The grouping keys
// are retained on the result.
func (g *Grouped) Mutate(assignments ...Assignment) (*Grouped, error) {
	if len(assignments) == 0 {
		return nil, errors.NewInvalidInput("Mutate", "at least one assignment is required")
	}

	current := g.table
	touchedKey := false
	for _, a := range assignments {
		if a.Name == "" {
			return nil, errors.NewInvalidInput("Mutate", "assignment name must not be empty")
		}
		for _, key := range g.keys {
			if a.Name == key {
				touchedKey = true
			}
		}

		next, err := g.mutateOne(current, a)
		if err != nil {
			return nil, err
		}
		current = next
	}

	out := &Grouped{table: current, keys: g.Keys(), index: g.index}
	if touchedKey {
		out.index = buildGroupIndex(current, out.keys)
	}
	return out, nil
}

// mutateOne derives a single column over the current table, reusing
// the receiver's group index (row positions never change under Mutate).
func (g *Grouped) mutateOne(current *Table, a Assignment) (*Table, error) {
	if !expr.HasAggregations(a.Expr) {
		return current.Mutate(a)
	}

	arrays := current.arrays()
	defer releaseArrays(arrays)

	values := make([]any, current.Len())
	var outType arrow.Type
	first := true
	for _, rows := range g.index.rows {
		partial, vt, err := evalOverRows(a.Expr, current, arrays, rows)
		if err != nil {
			return nil, errors.Wrap("Mutate", err)
		}
		if first {
			outType = vt
			first = false
		} else if vt != outType {
			if isNumericType(vt) && isNumericType(outType) {
				outType = arrow.FLOAT64
			} else {
				return nil, errors.NewTypeMismatch("Mutate", a.Name,
					"groups produced mixed result types "+outType.String()+" and "+vt.String())
			}
		}
		for i, row := range rows {
			values[row] = partial[i]
		}
	}
	if first {
		// No groups means an empty table; type the column from a dry
		// signature so the schema stays stable.
		outType = arrow.FLOAT64
	}

	col, err := buildColumn(a.Name, outType, values)
	if err != nil {
		return nil, err
	}

	cols := make([]ISeries, 0, current.Width()+1)
	replaced := false
	for _, name := range current.order {
		if name == a.Name {
			cols = append(cols, col)
			replaced = true
			continue
		}
		cols = append(cols, copySeries(current.columns[name]))
	}
	if !replaced {
		cols = append(cols, col)
	}
	return New(cols...), nil
}

// evalOverRows evaluates an expression over a row subset: group
// aggregates are fixed to scalars first, then the rewritten expression
// runs row-wise on the gathered sub-columns.
func evalOverRows(ex expr.Expr, t *Table, arrays map[string]arrow.Array, rows []int) ([]any, arrow.Type, error) {
	resolved, err := expr.ResolveAggregates(ex, arrays, rows)
	if err != nil {
		return nil, arrow.NULL, err
	}

	sub := make(map[string]arrow.Array, len(t.order))
	for _, name := range t.order {
		gathered, err := gatherArray(name, arrays[name], rows)
		if err != nil {
			return nil, arrow.NULL, err
		}
		sub[name] = gathered.Array()
		gathered.Release()
	}
	defer releaseArrays(sub)

	ev := expr.NewEvaluator(nil)
	result, err := ev.Evaluate(resolved, sub, len(rows))
	if err != nil {
		return nil, arrow.NULL, err
	}
	defer result.Release()

	values := make([]any, result.Len())
	for i := range values {
		if result.IsNull(i) {
			continue
		}
		values[i] = arrayValue(result, i)
	}
	return values, result.DataType().ID(), nil
}

func isNumericType(t arrow.Type) bool {
	return t == arrow.INT64 || t == arrow.FLOAT64
}

// Count groups by the given columns and counts rows per group as
// column "n". With no columns it counts the whole table. When sorted,
// groups order by descending count, ties keeping first-occurrence
// order.
func (t *Table) Count(cols []string, sorted bool) (*Table, error) {
	if len(cols) == 0 {
		return t.Summarise(expr.N())
	}

	g, err := t.GroupBy(cols...)
	if err != nil {
		return nil, errors.Wrap("Count", err)
	}
	counted, err := g.Summarise(expr.N())
	if err != nil {
		return nil, errors.Wrap("Count", err)
	}
	if !sorted {
		return counted, nil
	}
	return counted.Arrange(Desc("n"))
}
