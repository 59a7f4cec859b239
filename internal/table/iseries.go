package table

import (
	"github.com/apache/arrow-go/v18/arrow"
)

// ISeries is the type-erased view of a column used throughout the
// engine. Concrete values are *series.Series[T].
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
