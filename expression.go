package deplyr

import (
	"github.com/syedtoushik06/deplyr/internal/expr"
	"github.com/syedtoushik06/deplyr/internal/table"
)

// Expr is a pure expression over column values: comparisons,
// arithmetic with numeric promotion, conjunction and disjunction, set
// membership and ordered case branches. Expressions are immutable;
// every builder method returns a new value.
type Expr struct {
	e expr.Expr
}

// Col references a column by name.
func Col(name string) Expr {
	return Expr{e: expr.Col(name)}
}

// Lit holds a constant: string, int, int64, float64, bool or
// time.Time.
func Lit(value any) Expr {
	return Expr{e: expr.Lit(value)}
}

// String returns the expression's textual form.
func (e Expr) String() string { return e.e.String() }

func (e Expr) binary(op expr.BinaryOp, other Expr) Expr {
	return Expr{e: expr.NewBinary(e.e, op, other.e)}
}

// Add creates an addition expression.
func (e Expr) Add(other Expr) Expr { return e.binary(expr.OpAdd, other) }

// Sub creates a subtraction expression.
func (e Expr) Sub(other Expr) Expr { return e.binary(expr.OpSub, other) }

// Mul creates a multiplication expression.
func (e Expr) Mul(other Expr) Expr { return e.binary(expr.OpMul, other) }

// Div creates a division expression. Integer division by zero yields
// null; division on a float operand follows IEEE 754 and yields
// ±Inf or NaN instead.
func (e Expr) Div(other Expr) Expr { return e.binary(expr.OpDiv, other) }

// Eq creates an equality comparison.
func (e Expr) Eq(other Expr) Expr { return e.binary(expr.OpEq, other) }

// Ne creates an inequality comparison.
func (e Expr) Ne(other Expr) Expr { return e.binary(expr.OpNe, other) }

// Lt creates a less-than comparison.
func (e Expr) Lt(other Expr) Expr { return e.binary(expr.OpLt, other) }

// Le creates a less-or-equal comparison.
func (e Expr) Le(other Expr) Expr { return e.binary(expr.OpLe, other) }

// Gt creates a greater-than comparison.
func (e Expr) Gt(other Expr) Expr { return e.binary(expr.OpGt, other) }

// Ge creates a greater-or-equal comparison.
func (e Expr) Ge(other Expr) Expr { return e.binary(expr.OpGe, other) }

// And creates a conjunction.
func (e Expr) And(other Expr) Expr { return e.binary(expr.OpAnd, other) }

// Or creates a disjunction.
func (e Expr) Or(other Expr) Expr { return e.binary(expr.OpOr, other) }

// Not negates a boolean expression.
func (e Expr) Not() Expr {
	return Expr{e: expr.Not(e.e)}
}

// In tests membership of this expression's value in a literal set.
func (e Expr) In(values ...any) Expr {
	return Expr{e: expr.In(e.e, values...)}
}

// CaseBuilder assembles an ordered multi-branch conditional. Branches
// evaluate top to bottom per row, the first true condition wins, and
// Else is mandatory.
type CaseBuilder struct {
	c *expr.CaseExpr
}

// When starts a case expression with its first branch.
func When(condition, result Expr) *CaseBuilder {
	return &CaseBuilder{c: expr.NewCase().When(condition.e, result.e)}
}

// When appends a branch.
func (b *CaseBuilder) When(condition, result Expr) *CaseBuilder {
	return &CaseBuilder{c: b.c.When(condition.e, result.e)}
}

// Else sets the catch-all default and finishes the expression. Branch
// results must share one coercible output type.
func (b *CaseBuilder) Else(result Expr) Expr {
	return Expr{e: b.c.Else(result.e)}
}

// MutateArg is an argument to Mutate: a named assignment or an Across
// application.
type MutateArg interface {
	mutateAssignments(columns []string) ([]table.Assignment, error)
}

// Assignment names a derived column.
type Assignment struct {
	Name string
	Expr Expr
}

// Assign creates a named column derivation for Mutate.
func Assign(name string, e Expr) Assignment {
	return Assignment{Name: name, Expr: e}
}

func (a Assignment) mutateAssignments([]string) ([]table.Assignment, error) {
	return []table.Assignment{{Name: a.Name, Expr: a.Expr.e}}, nil
}

// expandMutateArgs flattens Mutate arguments into concrete
// assignments. Across arguments expand against the given column
// universe.
func expandMutateArgs(columns []string, args []MutateArg) ([]table.Assignment, error) {
	var out []table.Assignment
	for _, arg := range args {
		expanded, err := arg.mutateAssignments(columns)
		if err != nil {
			return nil, err
		}
		out = append(out, expanded...)
	}
	return out, nil
}
