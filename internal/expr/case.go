package expr

import (
	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"

	"github.com/syedtoushik06/deplyr/internal/errors"
)

// evaluateCase evaluates every condition and every result column fully,
// then assembles the output row by row from the first true branch. All
// branches are evaluated independently per row; a row with no true
// condition takes the mandatory default.
func (e *Evaluator) evaluateCase(c *CaseExpr, columns map[string]arrow.Array, n int) (arrow.Array, error) {
	if c.fallback == nil {
		return nil, errors.NewInvalidInput(evalOp, "case expression requires a default branch")
	}
	if len(c.branches) == 0 {
		return e.Evaluate(c.fallback, columns, n)
	}

	conditions := make([]*array.Boolean, len(c.branches))
	results := make([]arrow.Array, len(c.branches)+1)
	defer func() {
		for _, cond := range conditions {
			if cond != nil {
				cond.Release()
			}
		}
		for _, res := range results {
			if res != nil {
				res.Release()
			}
		}
	}()

	for i, br := range c.branches {
		cond, err := e.EvaluateBoolean(br.Condition, columns, n)
		if err != nil {
			return nil, err
		}
		conditions[i] = cond

		res, err := e.Evaluate(br.Result, columns, n)
		if err != nil {
			return nil, err
		}
		results[i] = res
	}

	fallback, err := e.Evaluate(c.fallback, columns, n)
	if err != nil {
		return nil, err
	}
	results[len(c.branches)] = fallback

	out, typeMsg := commonResultType(results)
	if typeMsg != "" {
		return nil, errors.NewTypeMismatch(evalOp, c.String(), typeMsg)
	}

	// pick selects the result array feeding row i.
	pick := func(i int) arrow.Array {
		for b, cond := range conditions {
			if !cond.IsNull(i) && cond.Value(i) {
				return results[b]
			}
		}
		return fallback
	}

	switch out {
	case arrow.INT64:
		b := array.NewInt64Builder(e.mem)
		defer b.Release()
		for i := 0; i < n; i++ {
			src := pick(i)
			if src.IsNull(i) {
				b.AppendNull()
				continue
			}
			b.Append(src.(*array.Int64).Value(i))
		}
		return b.NewArray(), nil
	case arrow.FLOAT64:
		b := array.NewFloat64Builder(e.mem)
		defer b.Release()
		for i := 0; i < n; i++ {
			src := pick(i)
			if src.IsNull(i) {
				b.AppendNull()
				continue
			}
			f, _ := asFloat64(src)
			b.Append(f(i))
		}
		return b.NewArray(), nil
	case arrow.STRING:
		b := array.NewStringBuilder(e.mem)
		defer b.Release()
		for i := 0; i < n; i++ {
			src := pick(i)
			if src.IsNull(i) {
				b.AppendNull()
				continue
			}
			b.Append(src.(*array.String).Value(i))
		}
		return b.NewArray(), nil
	case arrow.BOOL:
		b := array.NewBooleanBuilder(e.mem)
		defer b.Release()
		for i := 0; i < n; i++ {
			src := pick(i)
			if src.IsNull(i) {
				b.AppendNull()
				continue
			}
			b.Append(src.(*array.Boolean).Value(i))
		}
		return b.NewArray(), nil
	case arrow.TIMESTAMP:
		b := array.NewTimestampBuilder(e.mem, &arrow.TimestampType{Unit: arrow.Nanosecond})
		defer b.Release()
		for i := 0; i < n; i++ {
			src := pick(i)
			if src.IsNull(i) {
				b.AppendNull()
				continue
			}
			b.Append(src.(*array.Timestamp).Value(i))
		}
		return b.NewArray(), nil
	default:
		return nil, errors.NewTypeMismatch(evalOp, c.String(), "unsupported branch result type")
	}
}

// commonResultType finds the single output type all branch results
// coerce to. Mixed int64/float64 widens to float64; anything else must
// match exactly.
func commonResultType(results []arrow.Array) (arrow.Type, string) {
	out := results[0].DataType().ID()
	for _, res := range results[1:] {
		id := res.DataType().ID()
		if id == out {
			continue
		}
		numeric := func(t arrow.Type) bool { return t == arrow.INT64 || t == arrow.FLOAT64 }
		if numeric(id) && numeric(out) {
			out = arrow.FLOAT64
			continue
		}
		return out, "branch results mix " + out.String() + " and " + id.String()
	}
	return out, ""
}
