// Package io provides the data-source loader boundary: reading CSV
// data into a well-formed Table and writing a Table back out. Column
// types are inferred per column, falling back to string.
package io

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/syedtoushik06/deplyr/internal/errors"
	"github.com/syedtoushik06/deplyr/internal/series"
	"github.com/syedtoushik06/deplyr/internal/table"
)

// CSVOptions configures CSV reading.
type CSVOptions struct {
	Header    bool // first record holds column names
	Delimiter rune // field delimiter, ',' when zero
	Comment   rune // comment character, disabled when zero
}

// DefaultCSVOptions returns the conventional configuration: headered,
// comma-delimited.
func DefaultCSVOptions() CSVOptions {
	return CSVOptions{Header: true, Delimiter: ','}
}

// CSVReader reads CSV data into a Table.
type CSVReader struct {
	reader  io.Reader
	options CSVOptions
	mem     memory.Allocator
}

// NewCSVReader creates a reader over r.
func NewCSVReader(r io.Reader, options CSVOptions) *CSVReader {
	if options.Delimiter == 0 {
		options.Delimiter = ','
	}
	return &CSVReader{reader: r, options: options, mem: memory.NewGoAllocator()}
}

// timeLayouts are the accepted timestamp renderings, most specific
// first.
var timeLayouts = []string{time.RFC3339Nano, time.RFC3339, "2006-01-02"}

// Read consumes the input and returns a Table. Ragged records fail
// with an invalid-input error; the engine never sees a malformed table.
func (r *CSVReader) Read() (*table.Table, error) {
	csvReader := csv.NewReader(r.reader)
	csvReader.Comma = r.options.Delimiter
	csvReader.Comment = r.options.Comment

	records, err := csvReader.ReadAll()
	if err != nil {
		return nil, errors.NewInvalidInput("ReadCSV", err.Error())
	}
	if len(records) == 0 {
		return table.New(), nil
	}

	var headers []string
	var rows [][]string
	if r.options.Header {
		headers = records[0]
		rows = records[1:]
	} else {
		headers = make([]string, len(records[0]))
		for i := range headers {
			headers[i] = fmt.Sprintf("column_%d", i)
		}
		rows = records
	}

	cols := make([]table.ISeries, 0, len(headers))
	for i, header := range headers {
		values := make([]string, len(rows))
		for j, row := range rows {
			values[j] = row[i]
		}
		col, err := r.inferColumn(header, values)
		if err != nil {
			return nil, err
		}
		cols = append(cols, col)
	}
	return table.NewChecked(cols...)
}

// inferColumn picks the narrowest type every value parses as, in the
// order int64, float64, bool, timestamp, then string.
func (r *CSVReader) inferColumn(name string, values []string) (table.ISeries, error) {
	if ints, ok := parseAll(values, func(s string) (int64, error) {
		return strconv.ParseInt(s, 10, 64)
	}); ok {
		return series.NewSafe(name, ints, r.mem)
	}
	if floats, ok := parseAll(values, func(s string) (float64, error) {
		return strconv.ParseFloat(s, 64)
	}); ok {
		return series.NewSafe(name, floats, r.mem)
	}
	if bools, ok := parseAll(values, strconv.ParseBool); ok {
		return series.NewSafe(name, bools, r.mem)
	}
	if times, ok := parseAll(values, parseTime); ok {
		return series.NewSafe(name, times, r.mem)
	}
	return series.NewSafe(name, values, r.mem)
}

func parseAll[T any](values []string, parse func(string) (T, error)) ([]T, bool) {
	out := make([]T, len(values))
	for i, v := range values {
		parsed, err := parse(v)
		if err != nil {
			return nil, false
		}
		out[i] = parsed
	}
	return out, len(values) > 0
}

func parseTime(s string) (time.Time, error) {
	var err error
	for _, layout := range timeLayouts {
		var t time.Time
		if t, err = time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, err
}
