package expr

import (
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/syedtoushik06/deplyr/internal/errors"
)

const evalOp = "Eval"

// Evaluator evaluates expression trees against a set of named Arrow
// arrays of equal length. It holds only an allocator, so one evaluator
// may be shared across evaluations of independent tables.
type Evaluator struct {
	mem memory.Allocator
}

// NewEvaluator creates an evaluator backed by the given allocator.
func NewEvaluator(mem memory.Allocator) *Evaluator {
	if mem == nil {
		mem = memory.NewGoAllocator()
	}
	return &Evaluator{mem: mem}
}

// Evaluate computes the expression over n rows of the given columns and
// returns a freshly built array of length n.
func (e *Evaluator) Evaluate(ex Expr, columns map[string]arrow.Array, n int) (arrow.Array, error) {
	switch t := ex.(type) {
	case *ColumnExpr:
		arr, ok := columns[t.name]
		if !ok {
			return nil, errors.NewColumnNotFound(evalOp, t.name)
		}
		arr.Retain()
		return arr, nil
	case *LiteralExpr:
		return e.evaluateLiteral(t, n)
	case *BinaryExpr:
		return e.evaluateBinary(t, columns, n)
	case *NotExpr:
		return e.evaluateNot(t, columns, n)
	case *InExpr:
		return e.evaluateIn(t, columns, n)
	case *CaseExpr:
		return e.evaluateCase(t, columns, n)
	case *AggregationExpr:
		return nil, errors.NewInvalidInput(evalOp,
			"aggregation "+t.String()+" outside an aggregating context")
	default:
		return nil, errors.NewInvalidInput(evalOp, "unsupported expression "+ex.String())
	}
}

// EvaluateBoolean computes the expression and requires a boolean result,
// as needed by row predicates and case conditions.
func (e *Evaluator) EvaluateBoolean(ex Expr, columns map[string]arrow.Array, n int) (*array.Boolean, error) {
	arr, err := e.Evaluate(ex, columns, n)
	if err != nil {
		return nil, err
	}
	boolArr, ok := arr.(*array.Boolean)
	if !ok {
		typeName := arr.DataType().Name()
		arr.Release()
		return nil, errors.NewTypeMismatch(evalOp, ex.String(),
			"predicate must evaluate to boolean, got "+typeName)
	}
	return boolArr, nil
}

func (e *Evaluator) evaluateLiteral(lit *LiteralExpr, n int) (arrow.Array, error) {
	switch v := lit.value.(type) {
	case string:
		b := array.NewStringBuilder(e.mem)
		defer b.Release()
		for i := 0; i < n; i++ {
			b.Append(v)
		}
		return b.NewArray(), nil
	case int:
		return e.repeatInt64(int64(v), n), nil
	case int64:
		return e.repeatInt64(v, n), nil
	case float64:
		b := array.NewFloat64Builder(e.mem)
		defer b.Release()
		for i := 0; i < n; i++ {
			b.Append(v)
		}
		return b.NewArray(), nil
	case bool:
		b := array.NewBooleanBuilder(e.mem)
		defer b.Release()
		for i := 0; i < n; i++ {
			b.Append(v)
		}
		return b.NewArray(), nil
	case time.Time:
		b := array.NewTimestampBuilder(e.mem, &arrow.TimestampType{Unit: arrow.Nanosecond})
		defer b.Release()
		for i := 0; i < n; i++ {
			b.Append(arrow.Timestamp(v.UnixNano()))
		}
		return b.NewArray(), nil
	default:
		return nil, errors.NewTypeMismatch(evalOp, lit.String(), "unsupported literal type")
	}
}

func (e *Evaluator) repeatInt64(v int64, n int) arrow.Array {
	b := array.NewInt64Builder(e.mem)
	defer b.Release()
	for i := 0; i < n; i++ {
		b.Append(v)
	}
	return b.NewArray()
}

func (e *Evaluator) evaluateBinary(bin *BinaryExpr, columns map[string]arrow.Array, n int) (arrow.Array, error) {
	left, err := e.Evaluate(bin.left, columns, n)
	if err != nil {
		return nil, err
	}
	defer left.Release()

	right, err := e.Evaluate(bin.right, columns, n)
	if err != nil {
		return nil, err
	}
	defer right.Release()

	switch bin.op {
	case OpAdd, OpSub, OpMul, OpDiv:
		return e.evaluateArithmetic(bin, left, right)
	case OpEq, OpNe, OpLt, OpLe, OpGt, OpGe:
		return e.evaluateComparison(bin, left, right)
	case OpAnd, OpOr:
		return e.evaluateLogical(bin, left, right)
	default:
		return nil, errors.NewInvalidInput(evalOp, "unsupported operator in "+bin.String())
	}
}

// evaluateArithmetic computes +,-,*,/ with numeric promotion. Division
// by zero is null on the int64 path and IEEE 754 (±Inf, NaN) on the
// float path.
func (e *Evaluator) evaluateArithmetic(bin *BinaryExpr, left, right arrow.Array) (arrow.Array, error) {
	li, lInt := left.(*array.Int64)
	ri, rInt := right.(*array.Int64)
	if lInt && rInt {
		return e.int64Arithmetic(li, ri, bin.op), nil
	}

	lf, err := asFloat64(left)
	if err != nil {
		return nil, errors.NewTypeMismatch(evalOp, bin.String(),
			"arithmetic needs numeric operands, got "+left.DataType().Name())
	}
	rf, err := asFloat64(right)
	if err != nil {
		return nil, errors.NewTypeMismatch(evalOp, bin.String(),
			"arithmetic needs numeric operands, got "+right.DataType().Name())
	}

	b := array.NewFloat64Builder(e.mem)
	defer b.Release()
	for i := 0; i < left.Len(); i++ {
		if left.IsNull(i) || right.IsNull(i) {
			b.AppendNull()
			continue
		}
		l, r := lf(i), rf(i)
		switch bin.op {
		case OpAdd:
			b.Append(l + r)
		case OpSub:
			b.Append(l - r)
		case OpMul:
			b.Append(l * r)
		case OpDiv:
			b.Append(l / r)
		}
	}
	return b.NewArray(), nil
}

func (e *Evaluator) int64Arithmetic(left, right *array.Int64, op BinaryOp) arrow.Array {
	b := array.NewInt64Builder(e.mem)
	defer b.Release()
	for i := 0; i < left.Len(); i++ {
		if left.IsNull(i) || right.IsNull(i) {
			b.AppendNull()
			continue
		}
		l, r := left.Value(i), right.Value(i)
		switch op {
		case OpAdd:
			b.Append(l + r)
		case OpSub:
			b.Append(l - r)
		case OpMul:
			b.Append(l * r)
		case OpDiv:
			if r == 0 {
				b.AppendNull()
				continue
			}
			b.Append(l / r)
		}
	}
	return b.NewArray()
}

// asFloat64 returns an indexed accessor promoting int64 values, or an
// error for non-numeric arrays.
func asFloat64(arr arrow.Array) (func(int) float64, error) {
	switch t := arr.(type) {
	case *array.Float64:
		return t.Value, nil
	case *array.Int64:
		return func(i int) float64 { return float64(t.Value(i)) }, nil
	default:
		return nil, errors.NewTypeMismatch(evalOp, arr.DataType().Name(), "not a numeric array")
	}
}

func (e *Evaluator) evaluateComparison(bin *BinaryExpr, left, right arrow.Array) (arrow.Array, error) {
	b := array.NewBooleanBuilder(e.mem)
	defer b.Release()

	cmp, err := comparator(left, right)
	if err != nil {
		return nil, errors.NewTypeMismatch(evalOp, bin.String(), err.Message)
	}

	for i := 0; i < left.Len(); i++ {
		if left.IsNull(i) || right.IsNull(i) {
			b.AppendNull()
			continue
		}
		c := cmp(i)
		switch bin.op {
		case OpEq:
			b.Append(c == 0)
		case OpNe:
			b.Append(c != 0)
		case OpLt:
			b.Append(c < 0)
		case OpLe:
			b.Append(c <= 0)
		case OpGt:
			b.Append(c > 0)
		case OpGe:
			b.Append(c >= 0)
		}
	}
	return b.NewArray(), nil
}

// comparator returns a three-way row comparator across two arrays,
// promoting mixed int64/float64 operands. Timestamps compare by their
// epoch value, which gives date ordering directly.
func comparator(left, right arrow.Array) (func(int) int, *errors.Error) {
	if lf, err := asFloat64(left); err == nil {
		rf, err := asFloat64(right)
		if err != nil {
			return nil, errors.NewTypeMismatch(evalOp, right.DataType().Name(),
				"cannot compare numeric with "+right.DataType().Name())
		}
		return func(i int) int {
			l, r := lf(i), rf(i)
			switch {
			case l < r:
				return -1
			case l > r:
				return 1
			default:
				return 0
			}
		}, nil
	}

	switch l := left.(type) {
	case *array.String:
		r, ok := right.(*array.String)
		if !ok {
			return nil, errors.NewTypeMismatch(evalOp, right.DataType().Name(),
				"cannot compare string with "+right.DataType().Name())
		}
		return func(i int) int {
			switch {
			case l.Value(i) < r.Value(i):
				return -1
			case l.Value(i) > r.Value(i):
				return 1
			default:
				return 0
			}
		}, nil
	case *array.Timestamp:
		r, ok := right.(*array.Timestamp)
		if !ok {
			return nil, errors.NewTypeMismatch(evalOp, right.DataType().Name(),
				"cannot compare timestamp with "+right.DataType().Name())
		}
		return func(i int) int {
			lv, rv := int64(l.Value(i)), int64(r.Value(i))
			switch {
			case lv < rv:
				return -1
			case lv > rv:
				return 1
			default:
				return 0
			}
		}, nil
	case *array.Boolean:
		r, ok := right.(*array.Boolean)
		if !ok {
			return nil, errors.NewTypeMismatch(evalOp, right.DataType().Name(),
				"cannot compare boolean with "+right.DataType().Name())
		}
		return func(i int) int {
			lv, rv := l.Value(i), r.Value(i)
			switch {
			case lv == rv:
				return 0
			case !lv:
				return -1
			default:
				return 1
			}
		}, nil
	default:
		return nil, errors.NewTypeMismatch(evalOp, left.DataType().Name(), "unsupported comparison type")
	}
}

func (e *Evaluator) evaluateLogical(bin *BinaryExpr, left, right arrow.Array) (arrow.Array, error) {
	lb, ok := left.(*array.Boolean)
	if !ok {
		return nil, errors.NewTypeMismatch(evalOp, bin.String(),
			"logical operands must be boolean, got "+left.DataType().Name())
	}
	rb, ok := right.(*array.Boolean)
	if !ok {
		return nil, errors.NewTypeMismatch(evalOp, bin.String(),
			"logical operands must be boolean, got "+right.DataType().Name())
	}

	b := array.NewBooleanBuilder(e.mem)
	defer b.Release()
	for i := 0; i < lb.Len(); i++ {
		if lb.IsNull(i) || rb.IsNull(i) {
			b.AppendNull()
			continue
		}
		if bin.op == OpAnd {
			b.Append(lb.Value(i) && rb.Value(i))
		} else {
			b.Append(lb.Value(i) || rb.Value(i))
		}
	}
	return b.NewArray(), nil
}

func (e *Evaluator) evaluateNot(not *NotExpr, columns map[string]arrow.Array, n int) (arrow.Array, error) {
	operand, err := e.EvaluateBoolean(not.operand, columns, n)
	if err != nil {
		return nil, err
	}
	defer operand.Release()

	b := array.NewBooleanBuilder(e.mem)
	defer b.Release()
	for i := 0; i < operand.Len(); i++ {
		if operand.IsNull(i) {
			b.AppendNull()
			continue
		}
		b.Append(!operand.Value(i))
	}
	return b.NewArray(), nil
}

func (e *Evaluator) evaluateIn(in *InExpr, columns map[string]arrow.Array, n int) (arrow.Array, error) {
	operand, err := e.Evaluate(in.operand, columns, n)
	if err != nil {
		return nil, err
	}
	defer operand.Release()

	member, err := membershipTest(in, operand)
	if err != nil {
		return nil, err
	}

	b := array.NewBooleanBuilder(e.mem)
	defer b.Release()
	for i := 0; i < operand.Len(); i++ {
		if operand.IsNull(i) {
			b.AppendNull()
			continue
		}
		b.Append(member(i))
	}
	return b.NewArray(), nil
}

// membershipTest builds a per-row membership predicate for the operand
// array against the literal value set.
func membershipTest(in *InExpr, operand arrow.Array) (func(int) bool, error) {
	switch arr := operand.(type) {
	case *array.String:
		set := make(map[string]bool, len(in.values))
		for _, v := range in.values {
			s, ok := v.(string)
			if !ok {
				return nil, errors.NewTypeMismatch(evalOp, in.String(), "membership set must hold strings")
			}
			set[s] = true
		}
		return func(i int) bool { return set[arr.Value(i)] }, nil
	case *array.Int64:
		set := make(map[int64]bool, len(in.values))
		for _, v := range in.values {
			switch n := v.(type) {
			case int:
				set[int64(n)] = true
			case int64:
				set[n] = true
			default:
				return nil, errors.NewTypeMismatch(evalOp, in.String(), "membership set must hold integers")
			}
		}
		return func(i int) bool { return set[arr.Value(i)] }, nil
	case *array.Float64:
		set := make(map[float64]bool, len(in.values))
		for _, v := range in.values {
			switch n := v.(type) {
			case int:
				set[float64(n)] = true
			case int64:
				set[float64(n)] = true
			case float64:
				set[n] = true
			default:
				return nil, errors.NewTypeMismatch(evalOp, in.String(), "membership set must hold numbers")
			}
		}
		return func(i int) bool { return set[arr.Value(i)] }, nil
	case *array.Timestamp:
		set := make(map[int64]bool, len(in.values))
		for _, v := range in.values {
			t, ok := v.(time.Time)
			if !ok {
				return nil, errors.NewTypeMismatch(evalOp, in.String(), "membership set must hold times")
			}
			set[t.UnixNano()] = true
		}
		return func(i int) bool { return set[int64(arr.Value(i))] }, nil
	default:
		return nil, errors.NewTypeMismatch(evalOp, in.String(),
			"membership unsupported for "+operand.DataType().Name())
	}
}
