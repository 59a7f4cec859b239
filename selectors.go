package deplyr

import (
	"github.com/syedtoushik06/deplyr/internal/selector"
)

// Selector matches a set of columns against a table's column list.
// Selectors compose in Select and Across; explicit names and patterns
// that match nothing fail with a column-not-found error.
type Selector = selector.Selector

// Cols selects columns by exact name, in mention order.
func Cols(names ...string) Selector { return selector.Cols(names...) }

// ColRange selects the contiguous run of columns from one name to
// another, inclusive, in the table's column order.
func ColRange(from, to string) Selector { return selector.Range(from, to) }

// StartsWith selects columns whose names start with the prefix.
func StartsWith(prefix string) Selector { return selector.StartsWith(prefix) }

// EndsWith selects columns whose names end with the suffix.
func EndsWith(suffix string) Selector { return selector.EndsWith(suffix) }

// ContainsName selects columns whose names contain the substring.
func ContainsName(substring string) Selector { return selector.Contains(substring) }

// Not selects every column the inner selector does not match, keeping
// table order. The inner selector must still resolve.
func Not(inner Selector) Selector { return selector.Not(inner) }
