package io

import (
	"encoding/csv"
	"io"
	"time"

	"github.com/apache/arrow-go/v18/arrow/array"

	"github.com/syedtoushik06/deplyr/internal/errors"
	"github.com/syedtoushik06/deplyr/internal/table"
)

// CSVWriter writes a Table as CSV.
type CSVWriter struct {
	writer  io.Writer
	options CSVOptions
}

// NewCSVWriter creates a writer to w.
func NewCSVWriter(w io.Writer, options CSVOptions) *CSVWriter {
	if options.Delimiter == 0 {
		options.Delimiter = ','
	}
	return &CSVWriter{writer: w, options: options}
}

// Write renders the table. Timestamps use RFC 3339; every other value
// uses its canonical string form.
func (w *CSVWriter) Write(t *table.Table) error {
	csvWriter := csv.NewWriter(w.writer)
	csvWriter.Comma = w.options.Delimiter

	names := t.Columns()
	if w.options.Header {
		if err := csvWriter.Write(names); err != nil {
			return errors.NewInvalidInput("WriteCSV", err.Error())
		}
	}

	record := make([]string, len(names))
	for row := 0; row < t.Len(); row++ {
		for i, name := range names {
			col, _ := t.Column(name)
			record[i] = renderCell(col, row)
		}
		if err := csvWriter.Write(record); err != nil {
			return errors.NewInvalidInput("WriteCSV", err.Error())
		}
	}
	csvWriter.Flush()
	if err := csvWriter.Error(); err != nil {
		return errors.NewInvalidInput("WriteCSV", err.Error())
	}
	return nil
}

func renderCell(col table.ISeries, row int) string {
	arr := col.Array()
	defer arr.Release()
	if ts, ok := arr.(*array.Timestamp); ok && !ts.IsNull(row) {
		return time.Unix(0, int64(ts.Value(row))).UTC().Format(time.RFC3339)
	}
	return col.GetAsString(row)
}
