package io

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syedtoushik06/deplyr/internal/series"
	"github.com/syedtoushik06/deplyr/internal/table"
)

func TestReadTypeInference(t *testing.T) {
	input := strings.Join([]string{
		"name,age,score,active,joined",
		"alice,30,85.5,true,2024-01-15",
		"bob,25,90.0,false,2024-06-01",
	}, "\n")

	tbl, err := NewCSVReader(strings.NewReader(input), DefaultCSVOptions()).Read()
	require.NoError(t, err)
	assert.Equal(t, []string{"name", "age", "score", "active", "joined"}, tbl.Columns())
	assert.Equal(t, 2, tbl.Len())

	expected := map[string]arrow.Type{
		"name":   arrow.STRING,
		"age":    arrow.INT64,
		"score":  arrow.FLOAT64,
		"active": arrow.BOOL,
		"joined": arrow.TIMESTAMP,
	}
	for name, want := range expected {
		col, ok := tbl.Column(name)
		require.True(t, ok)
		assert.Equal(t, want, col.DataType().ID(), "column %s", name)
	}
}

func TestReadOptions(t *testing.T) {
	t.Run("headerless input names columns positionally", func(t *testing.T) {
		opts := CSVOptions{Header: false, Delimiter: ','}
		tbl, err := NewCSVReader(strings.NewReader("1,a\n2,b\n"), opts).Read()
		require.NoError(t, err)
		assert.Equal(t, []string{"column_0", "column_1"}, tbl.Columns())
	})

	t.Run("custom delimiter", func(t *testing.T) {
		opts := CSVOptions{Header: true, Delimiter: ';'}
		tbl, err := NewCSVReader(strings.NewReader("a;b\n1;2\n"), opts).Read()
		require.NoError(t, err)
		assert.Equal(t, []string{"a", "b"}, tbl.Columns())
	})

	t.Run("comment lines skipped", func(t *testing.T) {
		opts := CSVOptions{Header: true, Delimiter: ',', Comment: '#'}
		tbl, err := NewCSVReader(strings.NewReader("a\n# note\n1\n"), opts).Read()
		require.NoError(t, err)
		assert.Equal(t, 1, tbl.Len())
	})

	t.Run("empty input yields empty table", func(t *testing.T) {
		tbl, err := NewCSVReader(strings.NewReader(""), DefaultCSVOptions()).Read()
		require.NoError(t, err)
		assert.Equal(t, 0, tbl.Width())
	})
}

func TestReadRaggedRecords(t *testing.T) {
	_, err := NewCSVReader(strings.NewReader("a,b\n1\n"), DefaultCSVOptions()).Read()
	require.Error(t, err)
}

func TestWriteRendersTimestampsRFC3339(t *testing.T) {
	mem := memory.NewGoAllocator()
	tbl, err := table.NewChecked(
		series.New("id", []int64{1}, mem),
		series.New("when", []time.Time{time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}, mem),
	)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, NewCSVWriter(&buf, DefaultCSVOptions()).Write(tbl))
	assert.Equal(t, "id,when\n1,2024-03-01T12:00:00Z\n", buf.String())
}

func TestRoundTripPreservesTypes(t *testing.T) {
	mem := memory.NewGoAllocator()
	tbl, err := table.NewChecked(
		series.New("name", []string{"alice", "bob"}, mem),
		series.New("amount", []int64{100, 50}, mem),
	)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, NewCSVWriter(&buf, DefaultCSVOptions()).Write(tbl))

	back, err := NewCSVReader(&buf, DefaultCSVOptions()).Read()
	require.NoError(t, err)
	assert.Equal(t, tbl.Columns(), back.Columns())

	amount, ok := back.Column("amount")
	require.True(t, ok)
	assert.Equal(t, arrow.INT64, amount.DataType().ID())
}
