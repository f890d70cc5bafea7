// Package testutil provides common testing utilities shared across the join
// engine's test files: skewed dataset generators, a reference nested-loop
// join, and row-set comparison helpers that ignore ordering.
package testutil

import (
	"fmt"
	"sort"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/paveg/skewjoin/internal/dataset"
)

// RowsOf builds a record slice from (key, payload) pairs. A nil key produces a
// null join key.
func RowsOf(pairs ...[2]any) []dataset.Record {
	out := make([]dataset.Record, 0, len(pairs))
	for _, p := range pairs {
		out = append(out, dataset.Record{p[0], p[1]})
	}
	return out
}

// SkewedDataset builds a dataset with one hot key and a uniform tail:
// hotCount rows with key hotKey, and one row each for tailCount distinct tail
// keys. Payloads are unique per row so multiplicity bugs surface in
// comparisons.
func SkewedDataset(hotKey any, hotCount, tailCount, partitions int) dataset.Dataset {
	recs := make([]dataset.Record, 0, hotCount+tailCount)
	for i := 0; i < hotCount; i++ {
		recs = append(recs, dataset.Record{hotKey, fmt.Sprintf("hot-%d", i)})
	}
	for i := 0; i < tailCount; i++ {
		recs = append(recs, dataset.Record{fmt.Sprintf("tail-%d", i), fmt.Sprintf("tail-payload-%d", i)})
	}
	return dataset.FromRecords(recs, partitions)
}

// UniformDataset builds a dataset with distinct keys key-0..key-(n-1).
func UniformDataset(n, partitions int) dataset.Dataset {
	recs := make([]dataset.Record, 0, n)
	for i := 0; i < n; i++ {
		recs = append(recs, dataset.Record{fmt.Sprintf("key-%d", i), i})
	}
	return dataset.FromRecords(recs, partitions)
}

// ReferenceJoin computes the expected join output with a nested loop over all
// rows, unsalted and unsplit. It is the multiplicity oracle the engine's
// output is compared against.
func ReferenceJoin(
	left, right []dataset.Record,
	leftKey, rightKey dataset.KeyFunc,
	leftOuter, rightOuter bool,
	leftWidth, rightWidth int,
) []dataset.Record {
	var out []dataset.Record
	rightMatched := make([]bool, len(right))

	for _, l := range left {
		lk := leftKey(l)
		matched := false
		if !lk.IsNull() {
			for ri, r := range right {
				rk := rightKey(r)
				if rk.IsNull() || rk.Encoded() != lk.Encoded() {
					continue
				}
				matched = true
				rightMatched[ri] = true
				out = append(out, concatRows(l, r))
			}
		}
		if !matched && leftOuter {
			out = append(out, concatRows(l, make(dataset.Record, rightWidth)))
		}
	}
	if rightOuter {
		for ri, r := range right {
			if !rightMatched[ri] {
				out = append(out, concatRows(make(dataset.Record, leftWidth), r))
			}
		}
	}
	return out
}

func concatRows(l, r dataset.Record) dataset.Record {
	out := make(dataset.Record, 0, len(l)+len(r))
	out = append(out, l...)
	out = append(out, r...)
	return out
}

// RequireSameRows asserts that two row sets are equal as multisets, ignoring
// ordering.
func RequireSameRows(t *testing.T, want, got []dataset.Record) {
	t.Helper()
	require.Equal(t, len(want), len(got), "row count mismatch")
	require.Equal(t, canonical(want), canonical(got))
}

// canonical renders rows as sorted strings so multiset comparison ignores
// order. fmt's %#v distinguishes nil fields from empty strings and zero ints.
func canonical(rows []dataset.Record) []string {
	out := make([]string, len(rows))
	for i, r := range rows {
		out[i] = fmt.Sprintf("%#v", []any(r))
	}
	sort.Strings(out)
	return out
}
