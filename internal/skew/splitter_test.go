package skew

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paveg/skewjoin/internal/dataset"
)

func TestSplitPartitionsRows(t *testing.T) {
	sub := newTestSubstrate(t)
	ctx := context.Background()

	ds := dataset.FromRecords(skewedRecords("hot", 20, 10), 4)
	table, err := Profile(ctx, sub, ds, dataset.KeyAt(0), 1.0)
	require.NoError(t, err)
	cls := Classify(table, 30, 10, 1.0)

	heavy, normal, err := Split(ctx, sub, ds, dataset.KeyAt(0), cls)
	require.NoError(t, err)

	assert.Equal(t, 20, heavy.Len())
	assert.Equal(t, 10, normal.Len())

	for _, rec := range heavy.Records() {
		assert.Equal(t, "hot", rec[0])
	}
	for _, rec := range normal.Records() {
		assert.NotEqual(t, "hot", rec[0])
	}
}

func TestSplitIsExhaustive(t *testing.T) {
	sub := newTestSubstrate(t)
	ctx := context.Background()

	// Every row lands in exactly one subset, nulls included.
	recs := append(skewedRecords("hot", 15, 7), dataset.Record{nil, 99})
	ds := dataset.FromRecords(recs, 3)

	table, err := Profile(ctx, sub, ds, dataset.KeyAt(0), 1.0)
	require.NoError(t, err)
	cls := Classify(table, int64(len(recs)), 10, 1.0)

	heavy, normal, err := Split(ctx, sub, ds, dataset.KeyAt(0), cls)
	require.NoError(t, err)

	assert.Equal(t, ds.Len(), heavy.Len()+normal.Len())
}

func TestSplitEmptySubsets(t *testing.T) {
	sub := newTestSubstrate(t)
	ctx := context.Background()

	ds := dataset.FromRecords(skewedRecords("hot", 5, 5), 2)

	t.Run("no heavy keys", func(t *testing.T) {
		heavy, normal, err := Split(ctx, sub, ds, dataset.KeyAt(0), Classification{})
		require.NoError(t, err)
		assert.Zero(t, heavy.Len())
		assert.Equal(t, ds.Len(), normal.Len())
	})

	t.Run("all keys heavy", func(t *testing.T) {
		table, err := Profile(ctx, sub, ds, dataset.KeyAt(0), 1.0)
		require.NoError(t, err)
		cls := Classify(table, 10, 0, 1.0)

		heavy, normal, err := Split(ctx, sub, ds, dataset.KeyAt(0), cls)
		require.NoError(t, err)
		assert.Equal(t, ds.Len(), heavy.Len())
		assert.Zero(t, normal.Len())
	})
}

func TestSplitCancelled(t *testing.T) {
	sub := newTestSubstrate(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	ds := dataset.FromRecords(skewedRecords("hot", 5, 5), 2)
	_, _, err := Split(ctx, sub, ds, dataset.KeyAt(0), Classification{})
	assert.ErrorIs(t, err, context.Canceled)
}
