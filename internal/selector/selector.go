// Package selector implements column selection over an ordered column
// list: explicit names, inclusive name ranges, prefix/suffix/substring
// patterns and negated exclusion. A Selector is a pure function from
// the column order to a matched subset and never touches column data.
package selector

import (
	"fmt"
	"strings"

	"github.com/syedtoushik06/deplyr/internal/errors"
)

// Selector chooses columns from an ordered column-name list. Matched
// names are returned in table column order for pattern selectors and in
// mention order for explicit name lists.
type Selector interface {
	// Match resolves the selector against the ordered column list.
	// A selector that matches nothing fails with a column-not-found
	// error; silent empty results hide typos.
	Match(columns []string) ([]string, error)
	String() string
}

type namesSelector struct {
	names []string
}

// Cols selects columns by explicit name, in the given order.
func Cols(names ...string) Selector {
	return &namesSelector{names: names}
}

func (s *namesSelector) Match(columns []string) ([]string, error) {
	present := make(map[string]bool, len(columns))
	for _, c := range columns {
		present[c] = true
	}
	matched := make([]string, 0, len(s.names))
	for _, n := range s.names {
		if !present[n] {
			return nil, errors.NewColumnNotFound("Select", n)
		}
		matched = append(matched, n)
	}
	return matched, nil
}

func (s *namesSelector) String() string {
	return fmt.Sprintf("cols(%s)", strings.Join(s.names, ", "))
}

type rangeSelector struct {
	from, to string
}

// Range selects the contiguous run of columns from one name to another,
// inclusive, in table column order.
func Range(from, to string) Selector {
	return &rangeSelector{from: from, to: to}
}

func (s *rangeSelector) Match(columns []string) ([]string, error) {
	fromIdx, toIdx := -1, -1
	for i, c := range columns {
		if c == s.from {
			fromIdx = i
		}
		if c == s.to {
			toIdx = i
		}
	}
	if fromIdx < 0 {
		return nil, errors.NewColumnNotFound("Select", s.from)
	}
	if toIdx < 0 {
		return nil, errors.NewColumnNotFound("Select", s.to)
	}
	if fromIdx > toIdx {
		return nil, errors.NewInvalidInput("Select",
			fmt.Sprintf("range %s:%s is inverted in column order", s.from, s.to))
	}
	return append([]string(nil), columns[fromIdx:toIdx+1]...), nil
}

func (s *rangeSelector) String() string {
	return fmt.Sprintf("range(%s:%s)", s.from, s.to)
}

type patternKind int

const (
	patternPrefix patternKind = iota
	patternSuffix
	patternSubstring
)

type patternSelector struct {
	kind    patternKind
	pattern string
}

// StartsWith selects every column whose name begins with the prefix.
func StartsWith(prefix string) Selector {
	return &patternSelector{kind: patternPrefix, pattern: prefix}
}

// EndsWith selects every column whose name ends with the suffix.
func EndsWith(suffix string) Selector {
	return &patternSelector{kind: patternSuffix, pattern: suffix}
}

// Contains selects every column whose name contains the substring.
func Contains(substring string) Selector {
	return &patternSelector{kind: patternSubstring, pattern: substring}
}

func (s *patternSelector) Match(columns []string) ([]string, error) {
	var matched []string
	for _, c := range columns {
		var ok bool
		switch s.kind {
		case patternPrefix:
			ok = strings.HasPrefix(c, s.pattern)
		case patternSuffix:
			ok = strings.HasSuffix(c, s.pattern)
		case patternSubstring:
			ok = strings.Contains(c, s.pattern)
		}
		if ok {
			matched = append(matched, c)
		}
	}
	if len(matched) == 0 {
		return nil, errors.NewPatternNotFound("Select", s.String())
	}
	return matched, nil
}

func (s *patternSelector) String() string {
	switch s.kind {
	case patternPrefix:
		return fmt.Sprintf("starts_with(%q)", s.pattern)
	case patternSuffix:
		return fmt.Sprintf("ends_with(%q)", s.pattern)
	default:
		return fmt.Sprintf("contains(%q)", s.pattern)
	}
}

type notSelector struct {
	inner Selector
}

// Not selects every column the inner selector does not match, in table
// column order. The inner selector must itself resolve, so excluding a
// misspelled column still fails loudly.
func Not(inner Selector) Selector {
	return &notSelector{inner: inner}
}

func (s *notSelector) Match(columns []string) ([]string, error) {
	excluded, err := s.inner.Match(columns)
	if err != nil {
		return nil, err
	}
	drop := make(map[string]bool, len(excluded))
	for _, c := range excluded {
		drop[c] = true
	}
	var matched []string
	for _, c := range columns {
		if !drop[c] {
			matched = append(matched, c)
		}
	}
	return matched, nil
}

func (s *notSelector) String() string {
	return fmt.Sprintf("not(%s)", s.inner)
}

// Resolve resolves a selector list against the column order, unioning
// matches while preserving first-mention order and dropping duplicates.
func Resolve(columns []string, selectors []Selector) ([]string, error) {
	if len(selectors) == 0 {
		return nil, errors.NewInvalidInput("Select", "at least one selector is required")
	}
	seen := make(map[string]bool)
	var resolved []string
	for _, sel := range selectors {
		matched, err := sel.Match(columns)
		if err != nil {
			return nil, err
		}
		for _, c := range matched {
			if !seen[c] {
				seen[c] = true
				resolved = append(resolved, c)
			}
		}
	}
	return resolved, nil
}
