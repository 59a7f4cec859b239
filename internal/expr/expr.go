// Package expr provides the expression tree evaluated against table
// columns: column references, literals, arithmetic and logical
// operators, set membership, ordered case branches and aggregations.
package expr

import (
	"fmt"
	"strings"
)

// Expr is a node in the expression tree. Expressions are immutable;
// builder methods return new nodes.
type Expr interface {
	String() string
}

// ColumnExpr references a column by name.
type ColumnExpr struct {
	name string
}

// Col creates a column reference.
func Col(name string) *ColumnExpr {
	return &ColumnExpr{name: name}
}

// Name returns the referenced column name.
func (c *ColumnExpr) Name() string {
	return c.name
}

func (c *ColumnExpr) String() string {
	return fmt.Sprintf("col(%s)", c.name)
}

// LiteralExpr holds a constant value: string, int, int64, float64,
// bool or time.Time.
type LiteralExpr struct {
	value any
}

// Lit creates a literal expression.
func Lit(value any) *LiteralExpr {
	return &LiteralExpr{value: value}
}

// Value returns the literal value.
func (l *LiteralExpr) Value() any {
	return l.value
}

func (l *LiteralExpr) String() string {
	return fmt.Sprintf("lit(%v)", l.value)
}

// BinaryOp enumerates binary operators.
type BinaryOp int

const (
	OpAdd BinaryOp = iota
	OpSub
	OpMul
	OpDiv
	OpEq
	OpNe
	OpLt
	OpLe
	OpGt
	OpGe
	OpAnd
	OpOr
)

var binaryOpNames = map[BinaryOp]string{
	OpAdd: "+", OpSub: "-", OpMul: "*", OpDiv: "/",
	OpEq: "==", OpNe: "!=", OpLt: "<", OpLe: "<=", OpGt: ">", OpGe: ">=",
	OpAnd: "&&", OpOr: "||",
}

// BinaryExpr combines two expressions with an operator.
type BinaryExpr struct {
	left  Expr
	op    BinaryOp
	right Expr
}

// NewBinary creates a binary expression.
func NewBinary(left Expr, op BinaryOp, right Expr) *BinaryExpr {
	return &BinaryExpr{left: left, op: op, right: right}
}

// Left returns the left operand.
func (b *BinaryExpr) Left() Expr { return b.left }

// Op returns the operator.
func (b *BinaryExpr) Op() BinaryOp { return b.op }

// Right returns the right operand.
func (b *BinaryExpr) Right() Expr { return b.right }

func (b *BinaryExpr) String() string {
	return fmt.Sprintf("(%s %s %s)", b.left, binaryOpNames[b.op], b.right)
}

// NotExpr negates a boolean expression.
type NotExpr struct {
	operand Expr
}

// Not creates a logical negation.
func Not(operand Expr) *NotExpr {
	return &NotExpr{operand: operand}
}

// Operand returns the negated expression.
func (n *NotExpr) Operand() Expr { return n.operand }

func (n *NotExpr) String() string {
	return fmt.Sprintf("(!%s)", n.operand)
}

// InExpr tests set membership of an expression's value against a
// literal value set.
type InExpr struct {
	operand Expr
	values  []any
}

// In creates a set-membership test.
func In(operand Expr, values ...any) *InExpr {
	return &InExpr{operand: operand, values: values}
}

// Operand returns the tested expression.
func (e *InExpr) Operand() Expr { return e.operand }

// Values returns the membership set.
func (e *InExpr) Values() []any { return e.values }

func (e *InExpr) String() string {
	parts := make([]string, len(e.values))
	for i, v := range e.values {
		parts[i] = fmt.Sprintf("%v", v)
	}
	return fmt.Sprintf("(%s in [%s])", e.operand, strings.Join(parts, ", "))
}

// CaseBranch is one (condition, result) pair of a case expression.
type CaseBranch struct {
	Condition Expr
	Result    Expr
}

// CaseExpr evaluates ordered branches per row; the first true condition
// wins and the default covers unmatched rows. A default is mandatory.
type CaseExpr struct {
	branches []CaseBranch
	fallback Expr
}

// NewCase creates an empty case expression.
func NewCase() *CaseExpr {
	return &CaseExpr{}
}

// When appends a branch, returning a new case expression.
func (c *CaseExpr) When(condition, result Expr) *CaseExpr {
	branches := make([]CaseBranch, len(c.branches)+1)
	copy(branches, c.branches)
	branches[len(c.branches)] = CaseBranch{Condition: condition, Result: result}
	return &CaseExpr{branches: branches, fallback: c.fallback}
}

// Else sets the default result, returning a new case expression.
func (c *CaseExpr) Else(result Expr) *CaseExpr {
	return &CaseExpr{branches: c.branches, fallback: result}
}

// Branches returns the ordered branch list.
func (c *CaseExpr) Branches() []CaseBranch { return c.branches }

// Fallback returns the default result expression, nil if unset.
func (c *CaseExpr) Fallback() Expr { return c.fallback }

func (c *CaseExpr) String() string {
	var sb strings.Builder
	sb.WriteString("case")
	for _, br := range c.branches {
		fmt.Fprintf(&sb, " when %s then %s", br.Condition, br.Result)
	}
	if c.fallback != nil {
		fmt.Fprintf(&sb, " else %s", c.fallback)
	}
	sb.WriteString(" end")
	return sb.String()
}

// Builder helpers on ColumnExpr so predicates read naturally.

// Add creates an addition expression.
func (c *ColumnExpr) Add(other Expr) *BinaryExpr { return NewBinary(c, OpAdd, other) }

// Sub creates a subtraction expression.
func (c *ColumnExpr) Sub(other Expr) *BinaryExpr { return NewBinary(c, OpSub, other) }

// Mul creates a multiplication expression.
func (c *ColumnExpr) Mul(other Expr) *BinaryExpr { return NewBinary(c, OpMul, other) }

// Div creates a division expression.
func (c *ColumnExpr) Div(other Expr) *BinaryExpr { return NewBinary(c, OpDiv, other) }

// Eq creates an equality comparison.
func (c *ColumnExpr) Eq(other Expr) *BinaryExpr { return NewBinary(c, OpEq, other) }

// Ne creates an inequality comparison.
func (c *ColumnExpr) Ne(other Expr) *BinaryExpr { return NewBinary(c, OpNe, other) }

// Lt creates a less-than comparison.
func (c *ColumnExpr) Lt(other Expr) *BinaryExpr { return NewBinary(c, OpLt, other) }

// Le creates a less-or-equal comparison.
func (c *ColumnExpr) Le(other Expr) *BinaryExpr { return NewBinary(c, OpLe, other) }

// Gt creates a greater-than comparison.
func (c *ColumnExpr) Gt(other Expr) *BinaryExpr { return NewBinary(c, OpGt, other) }

// Ge creates a greater-or-equal comparison.
func (c *ColumnExpr) Ge(other Expr) *BinaryExpr { return NewBinary(c, OpGe, other) }

// In creates a set-membership test on this column.
func (c *ColumnExpr) In(values ...any) *InExpr { return In(c, values...) }

// Chaining on BinaryExpr for compound predicates and arithmetic.

// Add creates an addition expression.
func (b *BinaryExpr) Add(other Expr) *BinaryExpr { return NewBinary(b, OpAdd, other) }

// Sub creates a subtraction expression.
func (b *BinaryExpr) Sub(other Expr) *BinaryExpr { return NewBinary(b, OpSub, other) }

// Mul creates a multiplication expression.
func (b *BinaryExpr) Mul(other Expr) *BinaryExpr { return NewBinary(b, OpMul, other) }

// Div creates a division expression.
func (b *BinaryExpr) Div(other Expr) *BinaryExpr { return NewBinary(b, OpDiv, other) }

// And creates a conjunction.
func (b *BinaryExpr) And(other Expr) *BinaryExpr { return NewBinary(b, OpAnd, other) }

// Or creates a disjunction.
func (b *BinaryExpr) Or(other Expr) *BinaryExpr { return NewBinary(b, OpOr, other) }

// Gt creates a greater-than comparison on this expression's result.
func (b *BinaryExpr) Gt(other Expr) *BinaryExpr { return NewBinary(b, OpGt, other) }

// Lt creates a less-than comparison on this expression's result.
func (b *BinaryExpr) Lt(other Expr) *BinaryExpr { return NewBinary(b, OpLt, other) }
