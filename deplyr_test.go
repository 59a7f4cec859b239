package deplyr_test

import (
	"bytes"
	"math"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syedtoushik06/deplyr"
)

func sampleTable(t *testing.T) *deplyr.Table {
	t.Helper()
	tbl, err := deplyr.NewTable(
		deplyr.NewSeries("employee", []string{"alice", "bob", "carol"}),
		deplyr.NewSeries("department", []string{"Sales", "IT", "Sales"}),
		deplyr.NewSeries("amount", []int64{100, 50, 200}),
	)
	require.NoError(t, err)
	return tbl
}

func stringValues(t *testing.T, tbl *deplyr.Table, name string) []string {
	t.Helper()
	col, ok := tbl.Column(name)
	require.True(t, ok, "column %s not found", name)
	arr := col.Array()
	defer arr.Release()
	strs, ok := arr.(*array.String)
	require.True(t, ok, "column %s is not a string column", name)
	out := make([]string, strs.Len())
	for i := range out {
		out[i] = strs.Value(i)
	}
	return out
}

func int64Values(t *testing.T, tbl *deplyr.Table, name string) []int64 {
	t.Helper()
	col, ok := tbl.Column(name)
	require.True(t, ok, "column %s not found", name)
	arr := col.Array()
	defer arr.Release()
	ints, ok := arr.(*array.Int64)
	require.True(t, ok, "column %s is not an int64 column", name)
	out := make([]int64, ints.Len())
	for i := range out {
		out[i] = ints.Value(i)
	}
	return out
}

func float64Values(t *testing.T, tbl *deplyr.Table, name string) []float64 {
	t.Helper()
	col, ok := tbl.Column(name)
	require.True(t, ok, "column %s not found", name)
	arr := col.Array()
	defer arr.Release()
	floats, ok := arr.(*array.Float64)
	require.True(t, ok, "column %s is not a float64 column", name)
	out := make([]float64, floats.Len())
	for i := range out {
		out[i] = floats.Value(i)
	}
	return out
}

func TestNewTableValidation(t *testing.T) {
	t.Run("duplicate column name", func(t *testing.T) {
		_, err := deplyr.NewTable(
			deplyr.NewSeries("a", []int64{1}),
			deplyr.NewSeries("a", []int64{2}),
		)
		require.Error(t, err)
		assert.True(t, deplyr.IsDuplicateColumn(err))
	})

	t.Run("ragged columns", func(t *testing.T) {
		_, err := deplyr.NewTable(
			deplyr.NewSeries("a", []int64{1, 2}),
			deplyr.NewSeries("b", []int64{1}),
		)
		require.Error(t, err)
	})
}

func TestFilter(t *testing.T) {
	tbl := sampleTable(t)

	t.Run("preserves row order", func(t *testing.T) {
		out, err := tbl.Filter(deplyr.Col("amount").Gt(deplyr.Lit(int64(60))))
		require.NoError(t, err)
		assert.Equal(t, []string{"alice", "carol"}, stringValues(t, out, "employee"))
	})

	t.Run("idempotent", func(t *testing.T) {
		pred := deplyr.Col("department").Eq(deplyr.Lit("Sales"))
		once, err := tbl.Filter(pred)
		require.NoError(t, err)
		twice, err := once.Filter(pred)
		require.NoError(t, err)
		assert.Equal(t, once.Len(), twice.Len())
		assert.Equal(t, stringValues(t, once, "employee"), stringValues(t, twice, "employee"))
	})

	t.Run("leaves input untouched", func(t *testing.T) {
		_, err := tbl.Filter(deplyr.Col("amount").Lt(deplyr.Lit(int64(0))))
		require.NoError(t, err)
		assert.Equal(t, 3, tbl.Len())
	})

	t.Run("unknown column", func(t *testing.T) {
		_, err := tbl.Filter(deplyr.Col("missing").Gt(deplyr.Lit(int64(0))))
		require.Error(t, err)
		assert.True(t, deplyr.IsColumnNotFound(err))
	})

	t.Run("set membership", func(t *testing.T) {
		out, err := tbl.Filter(deplyr.Col("department").In("IT", "HR"))
		require.NoError(t, err)
		assert.Equal(t, []string{"bob"}, stringValues(t, out, "employee"))
	})

	t.Run("timestamp ordering", func(t *testing.T) {
		dates, err := deplyr.NewTable(
			deplyr.NewSeries("id", []int64{1, 2, 3}),
			deplyr.NewSeries("when", []time.Time{
				time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
				time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
				time.Date(2024, 12, 1, 0, 0, 0, 0, time.UTC),
			}),
		)
		require.NoError(t, err)
		out, err := dates.Filter(
			deplyr.Col("when").Ge(deplyr.Lit(time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC))))
		require.NoError(t, err)
		assert.Equal(t, []int64{2, 3}, int64Values(t, out, "id"))
	})
}

func TestSelect(t *testing.T) {
	tbl, err := deplyr.NewTable(
		deplyr.NewSeries("A", []int64{1}),
		deplyr.NewSeries("B", []int64{2}),
		deplyr.NewSeries("C", []int64{3}),
		deplyr.NewSeries("D", []int64{4}),
	)
	require.NoError(t, err)

	t.Run("range is inclusive and order dependent", func(t *testing.T) {
		out, err := tbl.Select(deplyr.ColRange("A", "C"))
		require.NoError(t, err)
		assert.Equal(t, []string{"A", "B", "C"}, out.Columns())
	})

	t.Run("negation keeps table order", func(t *testing.T) {
		out, err := tbl.Select(deplyr.Not(deplyr.Cols("A")))
		require.NoError(t, err)
		assert.Equal(t, []string{"B", "C", "D"}, out.Columns())
	})

	t.Run("selector mention order wins", func(t *testing.T) {
		out, err := tbl.Select(deplyr.Cols("C", "A"))
		require.NoError(t, err)
		assert.Equal(t, []string{"C", "A"}, out.Columns())
	})

	t.Run("unknown name", func(t *testing.T) {
		_, err := tbl.Select(deplyr.Cols("Z"))
		require.Error(t, err)
		assert.True(t, deplyr.IsColumnNotFound(err))
	})

	t.Run("pattern matching nothing is an error", func(t *testing.T) {
		_, err := tbl.Select(deplyr.StartsWith("z_"))
		require.Error(t, err)
		assert.True(t, deplyr.IsColumnNotFound(err))
	})
}

func TestMutate(t *testing.T) {
	tbl := sampleTable(t)

	t.Run("appends new column at the end", func(t *testing.T) {
		out, err := tbl.Mutate(
			deplyr.Assign("double", deplyr.Col("amount").Mul(deplyr.Lit(int64(2)))))
		require.NoError(t, err)
		assert.Equal(t, []string{"employee", "department", "amount", "double"}, out.Columns())
		assert.Equal(t, []int64{200, 100, 400}, int64Values(t, out, "double"))
	})

	t.Run("replaces existing column in place", func(t *testing.T) {
		out, err := tbl.Mutate(
			deplyr.Assign("amount", deplyr.Col("amount").Add(deplyr.Lit(int64(1)))))
		require.NoError(t, err)
		assert.Equal(t, []string{"employee", "department", "amount"}, out.Columns())
		assert.Equal(t, []int64{101, 51, 201}, int64Values(t, out, "amount"))
	})

	t.Run("later assignments see earlier ones", func(t *testing.T) {
		out, err := tbl.Mutate(
			deplyr.Assign("double", deplyr.Col("amount").Mul(deplyr.Lit(int64(2)))),
			deplyr.Assign("quadruple", deplyr.Col("double").Mul(deplyr.Lit(int64(2)))),
		)
		require.NoError(t, err)
		assert.Equal(t, []int64{400, 200, 800}, int64Values(t, out, "quadruple"))
	})

	t.Run("numeric promotion to float", func(t *testing.T) {
		out, err := tbl.Mutate(
			deplyr.Assign("scaled", deplyr.Col("amount").Mul(deplyr.Lit(1.5))))
		require.NoError(t, err)
		assert.Equal(t, []float64{150, 75, 300}, float64Values(t, out, "scaled"))
	})
}

func TestCaseWhen(t *testing.T) {
	tbl := sampleTable(t)

	t.Run("first true branch wins", func(t *testing.T) {
		out, err := tbl.Mutate(deplyr.Assign("tier",
			deplyr.When(deplyr.Col("amount").Gt(deplyr.Lit(int64(150))), deplyr.Lit("High")).
				When(deplyr.Col("amount").Gt(deplyr.Lit(int64(75))), deplyr.Lit("Mid")).
				Else(deplyr.Lit("Low"))))
		require.NoError(t, err)
		assert.Equal(t, []string{"Mid", "Low", "High"}, stringValues(t, out, "tier"))
	})

	t.Run("branch result types must agree", func(t *testing.T) {
		_, err := tbl.Mutate(deplyr.Assign("bad",
			deplyr.When(deplyr.Col("amount").Gt(deplyr.Lit(int64(0))), deplyr.Lit("yes")).
				Else(deplyr.Lit(int64(0)))))
		require.Error(t, err)
		assert.True(t, deplyr.IsTypeMismatch(err))
	})

	t.Run("numeric branches widen", func(t *testing.T) {
		out, err := tbl.Mutate(deplyr.Assign("rate",
			deplyr.When(deplyr.Col("amount").Gt(deplyr.Lit(int64(150))), deplyr.Lit(0.5)).
				Else(deplyr.Lit(int64(1)))))
		require.NoError(t, err)
		assert.Equal(t, []float64{1, 1, 0.5}, float64Values(t, out, "rate"))
	})
}

func TestSummarise(t *testing.T) {
	tbl := sampleTable(t)

	t.Run("whole table collapses to one row", func(t *testing.T) {
		out, err := tbl.Summarise(
			deplyr.Sum(deplyr.Col("amount")).As("total"),
			deplyr.N(),
		)
		require.NoError(t, err)
		assert.Equal(t, 1, out.Len())
		assert.Equal(t, []int64{350}, int64Values(t, out, "total"))
		assert.Equal(t, []int64{3}, int64Values(t, out, "n"))
	})

	t.Run("default result names", func(t *testing.T) {
		out, err := tbl.Summarise(deplyr.Mean(deplyr.Col("amount")))
		require.NoError(t, err)
		assert.Equal(t, []string{"mean_amount"}, out.Columns())
	})

	t.Run("duplicate result name", func(t *testing.T) {
		_, err := tbl.Summarise(
			deplyr.Sum(deplyr.Col("amount")).As("x"),
			deplyr.Mean(deplyr.Col("amount")).As("x"),
		)
		require.Error(t, err)
		assert.True(t, deplyr.IsDuplicateColumn(err))
	})

	t.Run("min over zero rows", func(t *testing.T) {
		empty, err := deplyr.NewTable(deplyr.NewSeries("x", []float64{}))
		require.NoError(t, err)
		_, err = empty.Summarise(deplyr.Min(deplyr.Col("x")))
		require.Error(t, err)
		assert.True(t, deplyr.IsEmptyAggregate(err))
	})

	t.Run("mean over zero rows is NaN", func(t *testing.T) {
		empty, err := deplyr.NewTable(deplyr.NewSeries("x", []float64{}))
		require.NoError(t, err)
		out, err := empty.Summarise(deplyr.Mean(deplyr.Col("x")))
		require.NoError(t, err)
		values := float64Values(t, out, "mean_x")
		require.Len(t, values, 1)
		assert.True(t, math.IsNaN(values[0]))
	})

	t.Run("quantile interpolates", func(t *testing.T) {
		nums, err := deplyr.NewTable(deplyr.NewSeries("x", []float64{1, 2, 3, 4}))
		require.NoError(t, err)
		out, err := nums.Summarise(
			deplyr.Quantile(deplyr.Col("x"), 0.5).As("q50"),
			deplyr.IQR(deplyr.Col("x")).As("spread"),
		)
		require.NoError(t, err)
		assert.InDelta(t, 2.5, float64Values(t, out, "q50")[0], 1e-9)
		assert.InDelta(t, 1.5, float64Values(t, out, "spread")[0], 1e-9)
	})
}

func TestGroupBySummarise(t *testing.T) {
	tbl := sampleTable(t)

	grouped, err := tbl.GroupBy("department")
	require.NoError(t, err)
	assert.Equal(t, []string{"department"}, grouped.Keys())
	assert.Equal(t, 2, grouped.NumGroups())

	out, err := grouped.Summarise(deplyr.Sum(deplyr.Col("amount")).As("total"))
	require.NoError(t, err)

	// Key columns lead; groups come in first-occurrence order.
	assert.Equal(t, []string{"department", "total"}, out.Columns())
	assert.Equal(t, []string{"Sales", "IT"}, stringValues(t, out, "department"))
	assert.Equal(t, []int64{300, 50}, int64Values(t, out, "total"))

	t.Run("group rows sum to table rows", func(t *testing.T) {
		counts, err := grouped.Summarise(deplyr.N())
		require.NoError(t, err)
		var total int64
		for _, n := range int64Values(t, counts, "n") {
			total += n
		}
		assert.Equal(t, int64(tbl.Len()), total)
	})

	t.Run("aggregate name colliding with key", func(t *testing.T) {
		_, err := grouped.Summarise(deplyr.N().As("department"))
		require.Error(t, err)
		assert.True(t, deplyr.IsDuplicateColumn(err))
	})

	t.Run("ungroup returns the same rows", func(t *testing.T) {
		plain := grouped.Ungroup()
		assert.Equal(t, tbl.Len(), plain.Len())
		assert.Equal(t, tbl.Columns(), plain.Columns())
	})
}

func TestGroupedMutate(t *testing.T) {
	tbl, err := deplyr.NewTable(
		deplyr.NewSeries("department", []string{"Sales", "IT", "Sales"}),
		deplyr.NewSeries("amount", []float64{100, 50, 200}),
	)
	require.NoError(t, err)

	grouped, err := tbl.GroupBy("department")
	require.NoError(t, err)

	out, err := grouped.Mutate(deplyr.Assign("share",
		deplyr.Col("amount").Div(deplyr.Sum(deplyr.Col("amount")).AsExpr())))
	require.NoError(t, err)

	// Row order is unchanged; the per-group sum broadcasts within the
	// group (Sales total 300, IT total 50).
	result := out.Ungroup()
	assert.Equal(t, 3, result.Len())
	shares := float64Values(t, result, "share")
	assert.InDelta(t, 100.0/300.0, shares[0], 1e-9)
	assert.InDelta(t, 1.0, shares[1], 1e-9)
	assert.InDelta(t, 200.0/300.0, shares[2], 1e-9)
}

func TestArrange(t *testing.T) {
	tbl, err := deplyr.NewTable(
		deplyr.NewSeries("name", []string{"a", "b", "c", "d"}),
		deplyr.NewSeries("dept", []string{"x", "y", "x", "y"}),
		deplyr.NewSeries("amount", []int64{2, 1, 2, 3}),
	)
	require.NoError(t, err)

	t.Run("multi key with per key direction", func(t *testing.T) {
		out, err := tbl.Arrange(deplyr.Asc("dept"), deplyr.Desc("amount"))
		require.NoError(t, err)
		assert.Equal(t, []string{"a", "c", "d", "b"}, stringValues(t, out, "name"))
	})

	t.Run("stable on ties", func(t *testing.T) {
		out, err := tbl.Arrange(deplyr.Asc("amount"))
		require.NoError(t, err)
		// a and c tie on amount 2; input order breaks the tie.
		assert.Equal(t, []string{"b", "a", "c", "d"}, stringValues(t, out, "name"))
	})

	t.Run("idempotent", func(t *testing.T) {
		once, err := tbl.Arrange(deplyr.Asc("amount"))
		require.NoError(t, err)
		twice, err := once.Arrange(deplyr.Asc("amount"))
		require.NoError(t, err)
		assert.Equal(t, stringValues(t, once, "name"), stringValues(t, twice, "name"))
	})

	t.Run("unknown column", func(t *testing.T) {
		_, err := tbl.Arrange(deplyr.Asc("missing"))
		require.Error(t, err)
		assert.True(t, deplyr.IsColumnNotFound(err))
	})
}

func TestRename(t *testing.T) {
	tbl := sampleTable(t)

	t.Run("round trip restores the schema", func(t *testing.T) {
		renamed, err := tbl.Rename(map[string]string{"amount": "value"})
		require.NoError(t, err)
		assert.Equal(t, []string{"employee", "department", "value"}, renamed.Columns())

		back, err := renamed.Rename(map[string]string{"value": "amount"})
		require.NoError(t, err)
		assert.Equal(t, tbl.Columns(), back.Columns())
		assert.Equal(t, int64Values(t, tbl, "amount"), int64Values(t, back, "amount"))
	})

	t.Run("missing old name", func(t *testing.T) {
		_, err := tbl.Rename(map[string]string{"missing": "x"})
		require.Error(t, err)
		assert.True(t, deplyr.IsColumnNotFound(err))
	})

	t.Run("collision with retained column", func(t *testing.T) {
		_, err := tbl.Rename(map[string]string{"amount": "employee"})
		require.Error(t, err)
		assert.True(t, deplyr.IsDuplicateColumn(err))
	})
}

func TestDistinct(t *testing.T) {
	tbl, err := deplyr.NewTable(
		deplyr.NewSeries("dept", []string{"x", "y", "x", "x"}),
		deplyr.NewSeries("amount", []int64{1, 2, 1, 3}),
	)
	require.NoError(t, err)

	t.Run("full row dedup keeps first occurrence", func(t *testing.T) {
		out, err := tbl.Distinct()
		require.NoError(t, err)
		assert.Equal(t, 3, out.Len())
		assert.Equal(t, []string{"x", "y", "x"}, stringValues(t, out, "dept"))
		assert.Equal(t, []int64{1, 2, 3}, int64Values(t, out, "amount"))
	})

	t.Run("subset truncates to the subset", func(t *testing.T) {
		out, err := tbl.Distinct("dept")
		require.NoError(t, err)
		assert.Equal(t, []string{"dept"}, out.Columns())
		assert.Equal(t, []string{"x", "y"}, stringValues(t, out, "dept"))
	})

	t.Run("keep all retains the first full row", func(t *testing.T) {
		out, err := tbl.DistinctKeepAll("dept")
		require.NoError(t, err)
		assert.Equal(t, []string{"dept", "amount"}, out.Columns())
		assert.Equal(t, []int64{1, 2}, int64Values(t, out, "amount"))
	})

	t.Run("idempotent", func(t *testing.T) {
		once, err := tbl.Distinct()
		require.NoError(t, err)
		twice, err := once.Distinct()
		require.NoError(t, err)
		assert.Equal(t, once.Len(), twice.Len())
	})
}

func TestCount(t *testing.T) {
	tbl := sampleTable(t)

	t.Run("counts per group in first occurrence order", func(t *testing.T) {
		out, err := tbl.Count("department")
		require.NoError(t, err)
		assert.Equal(t, []string{"department", "n"}, out.Columns())
		assert.Equal(t, []string{"Sales", "IT"}, stringValues(t, out, "department"))
		assert.Equal(t, []int64{2, 1}, int64Values(t, out, "n"))
	})

	t.Run("sorted variant orders by descending count", func(t *testing.T) {
		more, err := deplyr.NewTable(
			deplyr.NewSeries("dept", []string{"a", "b", "b", "b", "a"}),
		)
		require.NoError(t, err)
		out, err := more.CountSorted("dept")
		require.NoError(t, err)
		assert.Equal(t, []string{"b", "a"}, stringValues(t, out, "dept"))
		assert.Equal(t, []int64{3, 2}, int64Values(t, out, "n"))
	})

	t.Run("no columns counts the whole table", func(t *testing.T) {
		out, err := tbl.Count()
		require.NoError(t, err)
		assert.Equal(t, []int64{3}, int64Values(t, out, "n"))
	})
}

func TestAcross(t *testing.T) {
	tbl, err := deplyr.NewTable(
		deplyr.NewSeries("dept", []string{"x", "y", "x"}),
		deplyr.NewSeries("price", []float64{10, 20, 30}),
		deplyr.NewSeries("qty", []int64{1, 2, 3}),
	)
	require.NoError(t, err)

	t.Run("single function keeps column names", func(t *testing.T) {
		out, err := tbl.Summarise(deplyr.Across(deplyr.Cols("price", "qty"), deplyr.FnSum))
		require.NoError(t, err)
		assert.Equal(t, []string{"price", "qty"}, out.Columns())
		assert.Equal(t, []float64{60}, float64Values(t, out, "price"))
		assert.Equal(t, []int64{6}, int64Values(t, out, "qty"))
	})

	t.Run("multiple functions suffix with the function name", func(t *testing.T) {
		out, err := tbl.Summarise(deplyr.Across(deplyr.Cols("price"), deplyr.FnSum, deplyr.FnMean))
		require.NoError(t, err)
		assert.Equal(t, []string{"price_sum", "price_mean"}, out.Columns())
		assert.Equal(t, []float64{60}, float64Values(t, out, "price_sum"))
		assert.Equal(t, []float64{20}, float64Values(t, out, "price_mean"))
	})

	t.Run("grouped across excludes key columns from patterns", func(t *testing.T) {
		grouped, err := tbl.GroupBy("dept")
		require.NoError(t, err)
		out, err := grouped.Summarise(deplyr.Across(deplyr.StartsWith("p"), deplyr.FnSum))
		require.NoError(t, err)
		assert.Equal(t, []string{"dept", "price"}, out.Columns())
		assert.Equal(t, []float64{40, 20}, float64Values(t, out, "price"))
	})
}

func TestSliceHead(t *testing.T) {
	tbl := sampleTable(t)

	out, err := tbl.Slice(1, 3)
	require.NoError(t, err)
	assert.Equal(t, []string{"bob", "carol"}, stringValues(t, out, "employee"))

	head, err := tbl.Head(2)
	require.NoError(t, err)
	assert.Equal(t, []string{"alice", "bob"}, stringValues(t, head, "employee"))
}

func TestCSVRoundTrip(t *testing.T) {
	tbl := sampleTable(t)

	var buf bytes.Buffer
	require.NoError(t, deplyr.WriteCSV(&buf, tbl))

	back, err := deplyr.ReadCSV(&buf)
	require.NoError(t, err)
	assert.Equal(t, tbl.Columns(), back.Columns())
	assert.Equal(t, stringValues(t, tbl, "employee"), stringValues(t, back, "employee"))
	assert.Equal(t, int64Values(t, tbl, "amount"), int64Values(t, back, "amount"))
}

func TestReadCSVRaggedRow(t *testing.T) {
	_, err := deplyr.ReadCSV(strings.NewReader("a,b\n1,2\n3\n"))
	require.Error(t, err)
}

// Independent pipelines over one shared source must not interfere;
// run with -race.
func TestConcurrentPipelines(t *testing.T) {
	tbl := sampleTable(t)

	var wg sync.WaitGroup
	errs := make(chan error, 24)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			filtered, err := tbl.Filter(deplyr.Col("amount").Gt(deplyr.Lit(int64(60))))
			if err != nil {
				errs <- err
				return
			}
			if filtered.Len() != 2 {
				errs <- assert.AnError
				return
			}

			grouped, err := tbl.GroupBy("department")
			if err != nil {
				errs <- err
				return
			}
			summary, err := grouped.Summarise(deplyr.Sum(deplyr.Col("amount")).As("total"))
			if err != nil {
				errs <- err
				return
			}
			if summary.Len() != 2 {
				errs <- assert.AnError
				return
			}

			if _, err := tbl.Mutate(
				deplyr.Assign("double", deplyr.Col("amount").Mul(deplyr.Lit(int64(2))))); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}
}
