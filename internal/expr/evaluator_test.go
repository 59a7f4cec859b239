package expr

import (
	"testing"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syedtoushik06/deplyr/internal/errors"
)

func int64Array(t *testing.T, values ...int64) arrow.Array {
	t.Helper()
	b := array.NewInt64Builder(memory.NewGoAllocator())
	defer b.Release()
	b.AppendValues(values, nil)
	return b.NewArray()
}

func float64Array(t *testing.T, values ...float64) arrow.Array {
	t.Helper()
	b := array.NewFloat64Builder(memory.NewGoAllocator())
	defer b.Release()
	b.AppendValues(values, nil)
	return b.NewArray()
}

func stringArray(t *testing.T, values ...string) arrow.Array {
	t.Helper()
	b := array.NewStringBuilder(memory.NewGoAllocator())
	defer b.Release()
	b.AppendValues(values, nil)
	return b.NewArray()
}

func int64Result(t *testing.T, arr arrow.Array) []int64 {
	t.Helper()
	ints, ok := arr.(*array.Int64)
	require.True(t, ok, "expected int64 result, got %s", arr.DataType().Name())
	out := make([]int64, ints.Len())
	for i := range out {
		out[i] = ints.Value(i)
	}
	return out
}

func boolResult(t *testing.T, arr arrow.Array) []bool {
	t.Helper()
	bools, ok := arr.(*array.Boolean)
	require.True(t, ok, "expected boolean result, got %s", arr.DataType().Name())
	out := make([]bool, bools.Len())
	for i := range out {
		out[i] = bools.Value(i)
	}
	return out
}

func TestEvaluateArithmetic(t *testing.T) {
	ev := NewEvaluator(nil)
	columns := map[string]arrow.Array{
		"a": int64Array(t, 10, 20, 30),
		"b": int64Array(t, 1, 2, 0),
		"f": float64Array(t, 0.5, 1.5, 2.5),
	}
	defer func() {
		for _, arr := range columns {
			arr.Release()
		}
	}()

	t.Run("int64 path", func(t *testing.T) {
		result, err := ev.Evaluate(Col("a").Add(Col("b")), columns, 3)
		require.NoError(t, err)
		defer result.Release()
		assert.Equal(t, []int64{11, 22, 30}, int64Result(t, result))
	})

	t.Run("division by zero yields null", func(t *testing.T) {
		result, err := ev.Evaluate(Col("a").Div(Col("b")), columns, 3)
		require.NoError(t, err)
		defer result.Release()
		assert.False(t, result.IsNull(0))
		assert.True(t, result.IsNull(2))
	})

	t.Run("mixed operands promote to float", func(t *testing.T) {
		result, err := ev.Evaluate(Col("a").Mul(Col("f")), columns, 3)
		require.NoError(t, err)
		defer result.Release()
		floats, ok := result.(*array.Float64)
		require.True(t, ok)
		assert.InDelta(t, 5.0, floats.Value(0), 1e-9)
		assert.InDelta(t, 75.0, floats.Value(2), 1e-9)
	})

	t.Run("string operand rejected", func(t *testing.T) {
		cols := map[string]arrow.Array{"s": stringArray(t, "x", "y", "z")}
		defer cols["s"].Release()
		_, err := ev.Evaluate(Col("s").Add(Lit(int64(1))), cols, 3)
		require.Error(t, err)
		assert.True(t, errors.IsKind(err, errors.KindTypeMismatch))
	})
}

func TestEvaluateComparison(t *testing.T) {
	ev := NewEvaluator(nil)
	columns := map[string]arrow.Array{
		"n":    int64Array(t, 1, 5, 10),
		"name": stringArray(t, "alice", "bob", "carol"),
	}
	defer func() {
		for _, arr := range columns {
			arr.Release()
		}
	}()

	tests := []struct {
		name     string
		ex       Expr
		expected []bool
	}{
		{name: "gt", ex: Col("n").Gt(Lit(int64(4))), expected: []bool{false, true, true}},
		{name: "le", ex: Col("n").Le(Lit(int64(5))), expected: []bool{true, true, false}},
		{name: "eq string", ex: Col("name").Eq(Lit("bob")), expected: []bool{false, true, false}},
		{name: "int against float literal", ex: Col("n").Lt(Lit(5.5)), expected: []bool{true, true, false}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := ev.Evaluate(tt.ex, columns, 3)
			require.NoError(t, err)
			defer result.Release()
			assert.Equal(t, tt.expected, boolResult(t, result))
		})
	}
}

func TestEvaluateLogical(t *testing.T) {
	ev := NewEvaluator(nil)
	columns := map[string]arrow.Array{"n": int64Array(t, 1, 5, 10)}
	defer columns["n"].Release()

	t.Run("and or not", func(t *testing.T) {
		ex := Col("n").Gt(Lit(int64(2))).And(Col("n").Lt(Lit(int64(8)))).
			Or(Col("n").Eq(Lit(int64(1))))
		result, err := ev.Evaluate(ex, columns, 3)
		require.NoError(t, err)
		defer result.Release()
		assert.Equal(t, []bool{true, true, false}, boolResult(t, result))
	})

	t.Run("negation", func(t *testing.T) {
		result, err := ev.Evaluate(Not(Col("n").Gt(Lit(int64(4)))), columns, 3)
		require.NoError(t, err)
		defer result.Release()
		assert.Equal(t, []bool{true, false, false}, boolResult(t, result))
	})

	t.Run("non boolean predicate", func(t *testing.T) {
		_, err := ev.EvaluateBoolean(Col("n").Add(Lit(int64(1))), columns, 3)
		require.Error(t, err)
		assert.True(t, errors.IsKind(err, errors.KindTypeMismatch))
	})
}

func TestEvaluateIn(t *testing.T) {
	ev := NewEvaluator(nil)
	columns := map[string]arrow.Array{"name": stringArray(t, "alice", "bob", "carol")}
	defer columns["name"].Release()

	result, err := ev.Evaluate(In(Col("name"), "bob", "carol"), columns, 3)
	require.NoError(t, err)
	defer result.Release()
	assert.Equal(t, []bool{false, true, true}, boolResult(t, result))
}

func TestEvaluateCase(t *testing.T) {
	ev := NewEvaluator(nil)
	columns := map[string]arrow.Array{"n": int64Array(t, 100, 50, 200)}
	defer columns["n"].Release()

	t.Run("ordered branches", func(t *testing.T) {
		ex := NewCase().
			When(Col("n").Gt(Lit(int64(150))), Lit("High")).
			When(Col("n").Gt(Lit(int64(75))), Lit("Mid")).
			Else(Lit("Low"))
		result, err := ev.Evaluate(ex, columns, 3)
		require.NoError(t, err)
		defer result.Release()
		strs := result.(*array.String)
		assert.Equal(t, "Mid", strs.Value(0))
		assert.Equal(t, "Low", strs.Value(1))
		assert.Equal(t, "High", strs.Value(2))
	})

	t.Run("missing default is rejected", func(t *testing.T) {
		ex := NewCase().When(Col("n").Gt(Lit(int64(0))), Lit("x"))
		_, err := ev.Evaluate(ex, columns, 3)
		require.Error(t, err)
		assert.True(t, errors.IsKind(err, errors.KindInvalidInput))
	})

	t.Run("incompatible branch types", func(t *testing.T) {
		ex := NewCase().
			When(Col("n").Gt(Lit(int64(0))), Lit("x")).
			Else(Lit(true))
		_, err := ev.Evaluate(ex, columns, 3)
		require.Error(t, err)
		assert.True(t, errors.IsKind(err, errors.KindTypeMismatch))
	})
}

func TestEvaluateTimestampComparison(t *testing.T) {
	ev := NewEvaluator(nil)

	b := array.NewTimestampBuilder(memory.NewGoAllocator(), &arrow.TimestampType{Unit: arrow.Nanosecond})
	defer b.Release()
	for _, ts := range []time.Time{
		time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
	} {
		b.Append(arrow.Timestamp(ts.UnixNano()))
	}
	columns := map[string]arrow.Array{"when": b.NewArray()}
	defer columns["when"].Release()

	result, err := ev.Evaluate(
		Col("when").Gt(Lit(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC))), columns, 2)
	require.NoError(t, err)
	defer result.Release()
	assert.Equal(t, []bool{false, true}, boolResult(t, result))
}
