// Package skew implements key-frequency profiling, heavy-key classification,
// and dataset splitting for the skew-aware join pipeline. All artifacts here
// are derived, read-only values scoped to a single join invocation.
package skew

import (
	"context"
	"encoding/binary"
	"math"

	xxhash "github.com/cespare/xxhash/v2"

	"github.com/paveg/skewjoin/internal/dataset"
)

// FrequencyTable maps key values (including the explicit null marker) to
// approximate row counts. When built from a sample, counts are scaled by the
// inverse sampling fraction, rounding up so a truly heavy key is not pushed
// below the heaviness threshold by sampling error.
type FrequencyTable struct {
	counts   map[dataset.Key]int64
	total    int64
	fraction float64
}

// Count returns the (approximate) row count for a key. Unseen keys count zero.
func (t *FrequencyTable) Count(k dataset.Key) int64 {
	if t == nil {
		return 0
	}
	return t.counts[k]
}

// NullCount returns the count recorded under the null marker.
func (t *FrequencyTable) NullCount() int64 {
	return t.Count(dataset.NullKey())
}

// Total returns the (approximate) total row count the table accounts for.
func (t *FrequencyTable) Total() int64 {
	if t == nil {
		return 0
	}
	return t.total
}

// Len returns the number of distinct keys in the table.
func (t *FrequencyTable) Len() int {
	if t == nil {
		return 0
	}
	return len(t.counts)
}

// SampleFraction returns the fraction the table was built from (1 = exact).
func (t *FrequencyTable) SampleFraction() float64 {
	if t == nil {
		return 0
	}
	return t.fraction
}

// Each calls fn for every key/count pair. Iteration order is unspecified.
func (t *FrequencyTable) Each(fn func(k dataset.Key, count int64)) {
	if t == nil {
		return
	}
	for k, c := range t.counts {
		fn(k, c)
	}
}

// Profile scans (or samples) one side of the join and builds its key
// frequency table. fraction must be in (0,1]; 1 means an exact count. An
// empty dataset yields an empty table, not an error. Null keys are counted
// under the explicit null marker, never skipped.
//
// Profiling is a full pass over the dataset and therefore expensive; callers
// should reuse the table rather than re-profile. Substrate scan failures
// surface unchanged.
func Profile(
	ctx context.Context,
	sub dataset.Substrate,
	ds dataset.Dataset,
	keyFn dataset.KeyFunc,
	fraction float64,
) (*FrequencyTable, error) {
	// Per-partition pre-aggregation into (key, count) records, then a collect
	// barrier. Sampling is deterministic per (partition, row) so repeated
	// profiles of the same dataset agree.
	counted, err := sub.MapPartitions(ctx, ds, func(p int, records []dataset.Record) ([]dataset.Record, error) {
		local := make(map[dataset.Key]int64)
		for i, rec := range records {
			if !sampleIncludes(p, i, fraction) {
				continue
			}
			local[keyFn(rec)]++
		}
		out := make([]dataset.Record, 0, len(local))
		for k, c := range local {
			out = append(out, dataset.Record{k, c})
		}
		return out, nil
	})
	if err != nil {
		return nil, err
	}

	partials, err := sub.Broadcast(ctx, counted)
	if err != nil {
		return nil, err
	}

	table := &FrequencyTable{
		counts:   make(map[dataset.Key]int64),
		fraction: fraction,
	}
	for _, rec := range partials {
		k := rec[0].(dataset.Key)
		c := rec[1].(int64)
		table.counts[k] += c
	}
	if fraction < 1 {
		for k, c := range table.counts {
			table.counts[k] = int64(math.Ceil(float64(c) / fraction))
		}
	}
	for _, c := range table.counts {
		table.total += c
	}
	return table, nil
}

// sampleIncludes decides deterministically whether row i of partition p is in
// the sample.
func sampleIncludes(p, i int, fraction float64) bool {
	if fraction >= 1 {
		return true
	}
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], uint64(p)<<32|uint64(uint32(i)))
	h := xxhash.Sum64(buf[:])
	return float64(h%1_000_000) < fraction*1_000_000
}
