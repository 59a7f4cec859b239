// Package errors provides the typed error values returned by table
// operations. Every failure carries the operation name, the offending
// column or expression where one exists, and a Kind discriminator so
// callers can branch on the failure class without string matching.
package errors

import (
	"fmt"
)

// Kind classifies a table operation failure.
type Kind int

const (
	// KindColumnNotFound indicates a referenced column name or pattern
	// matched nothing where at least one match was required.
	KindColumnNotFound Kind = iota
	// KindDuplicateColumn indicates an operation would produce two
	// retained columns with the same name.
	KindDuplicateColumn
	// KindTypeMismatch indicates an expression combined incompatible
	// value types.
	KindTypeMismatch
	// KindEmptyAggregate indicates an aggregate requiring a non-empty
	// input was evaluated over zero rows.
	KindEmptyAggregate
	// KindInvalidInput indicates a malformed argument such as a ragged
	// column set or an inverted column range.
	KindInvalidInput
)

// String returns the kind name used in error messages.
func (k Kind) String() string {
	switch k {
	case KindColumnNotFound:
		return "column not found"
	case KindDuplicateColumn:
		return "duplicate column"
	case KindTypeMismatch:
		return "type mismatch"
	case KindEmptyAggregate:
		return "aggregate on empty input"
	case KindInvalidInput:
		return "invalid input"
	default:
		return "unknown"
	}
}

// Error is the single error type returned by table operations.
type Error struct {
	Op      string // operation name, e.g. "Filter", "Rename"
	Column  string // column name or expression text if applicable
	Message string // human-readable description
	Kind    Kind
	Cause   error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Column != "" {
		return fmt.Sprintf("%s: %s: column %q: %s", e.Op, e.Kind, e.Column, e.Message)
	}
	return fmt.Sprintf("%s: %s: %s", e.Op, e.Kind, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As chains.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports equality on Op, Column and Kind so sentinel comparisons work.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Op == t.Op && e.Column == t.Column && e.Kind == t.Kind
}

// IsKind reports whether err is an *Error of the given kind.
func IsKind(err error, kind Kind) bool {
	e, ok := err.(*Error)
	return ok && e.Kind == kind
}

// NewColumnNotFound creates an error for a reference that matched no column.
func NewColumnNotFound(op, column string) *Error {
	return &Error{
		Op:      op,
		Column:  column,
		Message: "no such column",
		Kind:    KindColumnNotFound,
	}
}

// NewPatternNotFound creates an error for a column pattern with zero matches.
func NewPatternNotFound(op, pattern string) *Error {
	return &Error{
		Op:      op,
		Column:  pattern,
		Message: "pattern matched no columns",
		Kind:    KindColumnNotFound,
	}
}

// NewDuplicateColumn creates an error for a name collision between
// retained columns.
func NewDuplicateColumn(op, column string) *Error {
	return &Error{
		Op:      op,
		Column:  column,
		Message: "column name already in use",
		Kind:    KindDuplicateColumn,
	}
}

// NewTypeMismatch creates an error for incompatible value types. The
// context argument names the expression or column involved.
func NewTypeMismatch(op, context, message string) *Error {
	return &Error{
		Op:      op,
		Column:  context,
		Message: message,
		Kind:    KindTypeMismatch,
	}
}

// NewEmptyAggregate creates an error for an aggregate evaluated over
// zero rows.
func NewEmptyAggregate(op, column string) *Error {
	return &Error{
		Op:      op,
		Column:  column,
		Message: "aggregate requires at least one row",
		Kind:    KindEmptyAggregate,
	}
}

// NewInvalidInput creates an error for malformed operation inputs.
func NewInvalidInput(op, message string) *Error {
	return &Error{
		Op:      op,
		Message: message,
		Kind:    KindInvalidInput,
	}
}

// Wrap attaches an operation context to an underlying error, preserving
// the kind when the cause is already an *Error.
func Wrap(op string, cause error) *Error {
	if e, ok := cause.(*Error); ok {
		return &Error{Op: op, Column: e.Column, Message: e.Message, Kind: e.Kind, Cause: e}
	}
	return &Error{Op: op, Message: cause.Error(), Kind: KindInvalidInput, Cause: cause}
}
