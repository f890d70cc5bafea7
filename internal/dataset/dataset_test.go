package dataset

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromRecords(t *testing.T) {
	recs := []Record{{"a", 1}, {"b", 2}, {"c", 3}, {"d", 4}, {"e", 5}}

	t.Run("round robin distribution", func(t *testing.T) {
		ds := FromRecords(recs, 2)
		assert.Equal(t, 2, ds.NumPartitions())
		assert.Equal(t, 5, ds.Len())
		assert.Len(t, ds.Partition(0), 3)
		assert.Len(t, ds.Partition(1), 2)
	})

	t.Run("partition count floor of one", func(t *testing.T) {
		ds := FromRecords(recs, 0)
		assert.Equal(t, 1, ds.NumPartitions())
		assert.Equal(t, 5, ds.Len())
	})

	t.Run("more partitions than records", func(t *testing.T) {
		ds := FromRecords(recs[:2], 4)
		assert.Equal(t, 4, ds.NumPartitions())
		assert.Equal(t, 2, ds.Len())
	})
}

func TestRecordsFlattens(t *testing.T) {
	ds := New([]Record{{"a"}}, []Record{{"b"}, {"c"}})
	flat := ds.Records()
	require.Len(t, flat, 3)
	assert.Equal(t, Record{"a"}, flat[0])
}

func TestEmpty(t *testing.T) {
	ds := Empty(3)
	assert.Equal(t, 3, ds.NumPartitions())
	assert.Zero(t, ds.Len())
	assert.Empty(t, ds.Records())
}

func TestRecordClone(t *testing.T) {
	rec := Record{"k", 1}
	clone := rec.Clone()
	clone[0] = "changed"
	assert.Equal(t, "k", rec[0])
}

func TestEstimatedBytes(t *testing.T) {
	t.Run("scales with payload", func(t *testing.T) {
		small := Record{"k", "x"}
		large := Record{"k", string(make([]byte, 1024))}
		assert.Greater(t, large.EstimatedBytes(), small.EstimatedBytes())
	})

	t.Run("dataset sums records", func(t *testing.T) {
		rec := Record{"k", int64(1)}
		ds := New([]Record{rec, rec}, []Record{rec})
		assert.Equal(t, 3*rec.EstimatedBytes(), ds.EstimatedBytes())
	})

	t.Run("nil fields cost only the header", func(t *testing.T) {
		assert.Equal(t, int64(24+16), Record{nil}.EstimatedBytes())
	})
}
