package table

import (
	"github.com/apache/arrow-go/v18/arrow"
	xxhash "github.com/cespare/xxhash/v2"

	"github.com/syedtoushik06/deplyr/internal/errors"
)

// Distinct deduplicates rows. With no columns, rows compare by full
// content and the result keeps every column. With a column subset,
// rows compare by the subset and the result is truncated to it; the
// first occurrence of each key survives, in input order.
func (t *Table) Distinct(cols ...string) (*Table, error) {
	kept, err := t.distinctRows(cols)
	if err != nil {
		return nil, err
	}
	out, err := t.take(kept)
	if err != nil {
		return nil, err
	}
	if len(cols) == 0 {
		return out, nil
	}
	return out.Project(cols)
}

// DistinctKeepAll deduplicates by the given column subset but retains
// the full first row of each key instead of truncating to the subset.
func (t *Table) DistinctKeepAll(cols ...string) (*Table, error) {
	if len(cols) == 0 {
		return nil, errors.NewInvalidInput("Distinct", "keep-all requires a column subset")
	}
	kept, err := t.distinctRows(cols)
	if err != nil {
		return nil, err
	}
	return t.take(kept)
}

// distinctRows returns the first-occurrence row index of every
// distinct key over the given columns (all columns when empty).
func (t *Table) distinctRows(cols []string) ([]int, error) {
	keyCols := cols
	if len(keyCols) == 0 {
		keyCols = t.order
	}
	arrays := make([]arrow.Array, len(keyCols))
	for i, col := range keyCols {
		s, ok := t.columns[col]
		if !ok {
			return nil, errors.NewColumnNotFound("Distinct", col)
		}
		arrays[i] = s.Array()
	}
	defer func() {
		for _, arr := range arrays {
			arr.Release()
		}
	}()

	var kept []int
	var keptKeys []string
	buckets := make(map[uint64][]int) // hash -> positions in keptKeys

	for row := 0; row < t.Len(); row++ {
		key := rowKey(arrays, row)
		hash := xxhash.Sum64String(key)

		duplicate := false
		for _, pos := range buckets[hash] {
			if keptKeys[pos] == key {
				duplicate = true
				break
			}
		}
		if duplicate {
			continue
		}
		buckets[hash] = append(buckets[hash], len(keptKeys))
		keptKeys = append(keptKeys, key)
		kept = append(kept, row)
	}
	return kept, nil
}
