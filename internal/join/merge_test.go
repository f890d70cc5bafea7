package join

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paveg/skewjoin/internal/dataset"
	"github.com/paveg/skewjoin/internal/errors"
	"github.com/paveg/skewjoin/internal/testutil"
)

func TestMergeResultsPreservesMultiplicity(t *testing.T) {
	sub := newTestSubstrate(t)
	ctx := context.Background()

	heavy := dataset.FromRecords(testutil.RowsOf(
		[2]any{"hot", "a"}, [2]any{"hot", "a"}, [2]any{"hot", "b"},
	), 2)
	normal := dataset.FromRecords(testutil.RowsOf(
		[2]any{"tail", "c"}, [2]any{"hot", "a"},
	), 1)

	merged, err := mergeResults(ctx, sub, heavy, normal, true, true, 0)
	require.NoError(t, err)

	// Duplicates across and within subsets survive exactly.
	assert.Equal(t, 5, merged.Len())
	want := append(heavy.Records(), normal.Records()...)
	testutil.RequireSameRows(t, want, merged.Records())
}

func TestMergeResultsRefusesIncompleteInput(t *testing.T) {
	sub := newTestSubstrate(t)
	ctx := context.Background()
	ds := dataset.FromRecords(testutil.RowsOf([2]any{"k", "v"}), 1)

	tests := []struct {
		name                          string
		heavyComplete, normalComplete bool
	}{
		{"heavy incomplete", false, true},
		{"normal incomplete", true, false},
		{"both incomplete", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := mergeResults(ctx, sub, ds, ds, tt.heavyComplete, tt.normalComplete, 0)
			require.Error(t, err)
			assert.True(t, errors.IsKind(err, errors.KindMergeInconsistency))
		})
	}
}

func TestMergeResultsEnforcesRowLowerBound(t *testing.T) {
	sub := newTestSubstrate(t)
	ctx := context.Background()

	heavy := dataset.FromRecords(testutil.RowsOf([2]any{"k", "v"}), 1)
	normal := dataset.Empty(1)

	t.Run("bound satisfied", func(t *testing.T) {
		merged, err := mergeResults(ctx, sub, heavy, normal, true, true, 1)
		require.NoError(t, err)
		assert.Equal(t, 1, merged.Len())
	})

	t.Run("bound violated", func(t *testing.T) {
		_, err := mergeResults(ctx, sub, heavy, normal, true, true, 5)
		require.Error(t, err)
		assert.True(t, errors.IsKind(err, errors.KindMergeInconsistency))
	})
}

func TestMinMergedRows(t *testing.T) {
	tests := []struct {
		name     string
		joinType Type
		left     int64
		right    int64
		want     int64
	}{
		{"inner has no bound", InnerJoin, 10, 20, 0},
		{"left bound is left rows", LeftJoin, 10, 20, 10},
		{"right bound is right rows", RightJoin, 10, 20, 20},
		{"full bound is the max", FullOuterJoin, 10, 20, 20},
		{"full bound max on left", FullOuterJoin, 30, 20, 30},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, minMergedRows(tt.joinType, tt.left, tt.right))
		})
	}
}
