package join

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paveg/skewjoin/internal/config"
	"github.com/paveg/skewjoin/internal/dataset"
	"github.com/paveg/skewjoin/internal/diag"
	"github.com/paveg/skewjoin/internal/errors"
	"github.com/paveg/skewjoin/internal/logging"
	"github.com/paveg/skewjoin/internal/testutil"
)

func runJoin(
	t *testing.T,
	cfg config.Config,
	left, right dataset.Dataset,
	spec Spec,
) (dataset.Dataset, *diag.Report) {
	t.Helper()
	sub := dataset.NewLocal(4)
	t.Cleanup(sub.Close)

	engine, err := NewEngine(sub, cfg, WithLogger(logging.Nop()))
	require.NoError(t, err)

	out, report, err := engine.Join(context.Background(), left, right, spec)
	require.NoError(t, err)
	require.NotNil(t, report)
	return out, report
}

func outerFlags(joinType Type) (leftOuter, rightOuter bool) {
	switch joinType {
	case LeftJoin:
		return true, false
	case RightJoin:
		return false, true
	case FullOuterJoin:
		return true, true
	default:
		return false, false
	}
}

func TestNewEngine(t *testing.T) {
	sub := dataset.NewLocal(2)
	defer sub.Close()

	t.Run("valid", func(t *testing.T) {
		engine, err := NewEngine(sub, config.NewConfig())
		require.NoError(t, err)
		assert.NotNil(t, engine)
	})

	t.Run("nil substrate", func(t *testing.T) {
		_, err := NewEngine(nil, config.NewConfig())
		require.Error(t, err)
		assert.True(t, errors.IsKind(err, errors.KindInvalidInput))
	})

	t.Run("invalid configuration", func(t *testing.T) {
		cfg := config.NewConfig()
		cfg.SampleFraction = 2.0
		_, err := NewEngine(sub, cfg)
		require.Error(t, err)
		assert.True(t, errors.IsKind(err, errors.KindConfiguration))
	})
}

func TestJoinRejectsInvalidSpec(t *testing.T) {
	sub := dataset.NewLocal(2)
	defer sub.Close()
	engine, err := NewEngine(sub, config.NewConfig(), WithLogger(logging.Nop()))
	require.NoError(t, err)

	ds := dataset.FromRecords(testutil.RowsOf([2]any{"k", "v"}), 1)

	tests := []struct {
		name string
		spec Spec
	}{
		{"nil left key", Spec{RightKey: dataset.KeyAt(0), Type: InnerJoin}},
		{"nil right key", Spec{LeftKey: dataset.KeyAt(0), Type: InnerJoin}},
		{"unknown join type", Spec{LeftKey: dataset.KeyAt(0), RightKey: dataset.KeyAt(0), Type: Type(42)}},
		{"negative width", Spec{LeftKey: dataset.KeyAt(0), RightKey: dataset.KeyAt(0), Type: InnerJoin, LeftWidth: -1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := engine.Join(context.Background(), ds, ds, tt.spec)
			require.Error(t, err)
			assert.True(t, errors.IsKind(err, errors.KindInvalidInput))
		})
	}
}

// One key carries 95 of 100 right rows. With a relative threshold of 0.5 that
// key classifies HEAVY, the remainder stays NORMAL, and the merged output
// matches the unsalted reference join row for row.
func TestJoinSkewedInner(t *testing.T) {
	left := dataset.FromRecords(testutil.RowsOf(
		[2]any{1, "John"},
		[2]any{2, "Bob"},
	), 2)

	var rightRecs []dataset.Record
	for i := 0; i < 95; i++ {
		rightRecs = append(rightRecs, dataset.Record{1, fmt.Sprintf("order-%d", i)})
	}
	for i := 0; i < 5; i++ {
		rightRecs = append(rightRecs, dataset.Record{2, fmt.Sprintf("order-b-%d", i)})
	}
	right := dataset.FromRecords(rightRecs, 4)

	cfg := config.Config{
		HeavyAbsThreshold: 1 << 30,
		HeavyRelThreshold: 0.5,
		SaltFanout:        4,
		Partitions:        4,
		MetricsCollection: true,
	}
	spec := Spec{LeftKey: dataset.KeyAt(0), RightKey: dataset.KeyAt(0), Type: InnerJoin}

	out, report := runJoin(t, cfg, left, right, spec)

	assert.Equal(t, 100, out.Len())
	assert.Equal(t, 1, report.HeavyKeyCount)
	assert.Equal(t, "SALTED_SHUFFLE", report.HeavyStrategy)
	assert.NotEmpty(t, report.Stages)

	want := testutil.ReferenceJoin(
		left.Records(), right.Records(),
		dataset.KeyAt(0), dataset.KeyAt(0),
		false, false, 2, 2)
	testutil.RequireSameRows(t, want, out.Records())
}

// All right-side keys are null. Null classifies HEAVY at 100% share, yet the
// join result is governed purely by null-key semantics: an inner join yields
// nothing and a left join pads every left row.
func TestJoinAllNullRightSide(t *testing.T) {
	left := dataset.FromRecords(testutil.RowsOf(
		[2]any{"k1", "l1"},
		[2]any{"k2", "l2"},
	), 2)

	var rightRecs []dataset.Record
	for i := 0; i < 20; i++ {
		rightRecs = append(rightRecs, dataset.Record{nil, i})
	}
	right := dataset.FromRecords(rightRecs, 3)

	cfg := config.Config{
		HeavyAbsThreshold: 1 << 30,
		HeavyRelThreshold: 0.5,
		SaltFanout:        4,
		Partitions:        4,
	}

	t.Run("inner yields nothing", func(t *testing.T) {
		out, report := runJoin(t, cfg, left, right,
			Spec{LeftKey: dataset.KeyAt(0), RightKey: dataset.KeyAt(0), Type: InnerJoin})
		assert.Zero(t, out.Len())
		assert.Equal(t, 1, report.HeavyKeyCount)
	})

	t.Run("left pads every left row", func(t *testing.T) {
		out, _ := runJoin(t, cfg, left, right,
			Spec{LeftKey: dataset.KeyAt(0), RightKey: dataset.KeyAt(0), Type: LeftJoin})
		require.Equal(t, 2, out.Len())
		assert.ElementsMatch(t, []dataset.Record{
			{"k1", "l1", nil, nil},
			{"k2", "l2", nil, nil},
		}, out.Records())
	})
}

// A salt fan-out of one degenerates the salted path to a plain shuffle join;
// results must be identical to a run with a larger fan-out.
func TestJoinSaltFanoutOneDegenerates(t *testing.T) {
	left := testutil.SkewedDataset("hot", 60, 15, 4)
	right := testutil.SkewedDataset("hot", 6, 15, 3)
	spec := Spec{LeftKey: dataset.KeyAt(0), RightKey: dataset.KeyAt(0), Type: InnerJoin}

	base := config.Config{
		HeavyAbsThreshold: 10,
		HeavyRelThreshold: 0.9,
		Partitions:        4,
	}

	base.SaltFanout = 1
	plain, _ := runJoin(t, base, left, right, spec)

	base.SaltFanout = 8
	salted, _ := runJoin(t, base, left, right, spec)

	testutil.RequireSameRows(t, plain.Records(), salted.Records())
}

// Thresholds low enough that every key classifies HEAVY: the normal subset is
// empty and the heavy path alone must produce the complete output.
func TestJoinEveryKeyHeavy(t *testing.T) {
	left := dataset.FromRecords(testutil.RowsOf(
		[2]any{"a", "l1"}, [2]any{"a", "l2"}, [2]any{"b", "l3"},
	), 2)
	right := dataset.FromRecords(testutil.RowsOf(
		[2]any{"a", "r1"}, [2]any{"b", "r2"}, [2]any{"b", "r3"},
	), 2)

	cfg := config.Config{
		HeavyAbsThreshold: 1,
		HeavyRelThreshold: 0.0001,
		SaltFanout:        4,
		Partitions:        4,
		MetricsCollection: true,
	}
	spec := Spec{LeftKey: dataset.KeyAt(0), RightKey: dataset.KeyAt(0), Type: InnerJoin}

	out, report := runJoin(t, cfg, left, right, spec)

	assert.Equal(t, 2, report.HeavyKeyCount)
	want := testutil.ReferenceJoin(
		left.Records(), right.Records(),
		dataset.KeyAt(0), dataset.KeyAt(0),
		false, false, 2, 2)
	testutil.RequireSameRows(t, want, out.Records())
}

// Sweep join types, fan-outs, and threshold placements against the
// nested-loop reference. The datasets mix a hot key present on both sides,
// overlapping and disjoint tail keys, and null keys on both sides.
func TestJoinMatchesReference(t *testing.T) {
	leftRecs := testutil.RowsOf(
		[2]any{nil, "l-null"},
		[2]any{"only-left", "l-a"},
		[2]any{"shared-1", "l-b"},
		[2]any{"shared-1", "l-c"},
		[2]any{"shared-2", "l-d"},
	)
	for i := 0; i < 40; i++ {
		leftRecs = append(leftRecs, dataset.Record{"hot", fmt.Sprintf("l-hot-%d", i)})
	}
	left := dataset.FromRecords(leftRecs, 4)

	rightRecs := testutil.RowsOf(
		[2]any{nil, "r-null"},
		[2]any{"only-right", "r-a"},
		[2]any{"shared-1", "r-b"},
		[2]any{"shared-2", "r-c"},
		[2]any{"shared-2", "r-d"},
	)
	for i := 0; i < 3; i++ {
		rightRecs = append(rightRecs, dataset.Record{"hot", fmt.Sprintf("r-hot-%d", i)})
	}
	right := dataset.FromRecords(rightRecs, 3)

	joinTypes := []Type{InnerJoin, LeftJoin, RightJoin, FullOuterJoin}
	fanouts := []int{1, 2, 8}
	budgets := []int64{1, 64 << 20} // force shuffle vs allow broadcast

	for _, joinType := range joinTypes {
		for _, fanout := range fanouts {
			for _, budget := range budgets {
				name := fmt.Sprintf("%s/fanout-%d/budget-%d", joinType, fanout, budget)
				t.Run(name, func(t *testing.T) {
					cfg := config.Config{
						HeavyAbsThreshold:    20,
						HeavyRelThreshold:    0.9,
						SaltFanout:           fanout,
						BroadcastBudgetBytes: budget,
						Partitions:           4,
					}
					spec := Spec{LeftKey: dataset.KeyAt(0), RightKey: dataset.KeyAt(0), Type: joinType}

					out, _ := runJoin(t, cfg, left, right, spec)

					leftOuter, rightOuter := outerFlags(joinType)
					want := testutil.ReferenceJoin(
						left.Records(), right.Records(),
						dataset.KeyAt(0), dataset.KeyAt(0),
						leftOuter, rightOuter, 2, 2)
					testutil.RequireSameRows(t, want, out.Records())
				})
			}
		}
	}
}

func TestJoinEmptyInputs(t *testing.T) {
	cfg := config.Config{Partitions: 4}
	nonEmpty := dataset.FromRecords(testutil.RowsOf([2]any{"k", "v"}), 2)

	t.Run("both empty", func(t *testing.T) {
		out, _ := runJoin(t, cfg, dataset.Empty(2), dataset.Empty(2),
			Spec{LeftKey: dataset.KeyAt(0), RightKey: dataset.KeyAt(0), Type: InnerJoin})
		assert.Zero(t, out.Len())
	})

	t.Run("empty right with left join", func(t *testing.T) {
		out, _ := runJoin(t, cfg, nonEmpty, dataset.Empty(2),
			Spec{LeftKey: dataset.KeyAt(0), RightKey: dataset.KeyAt(0), Type: LeftJoin, RightWidth: 2})
		require.Equal(t, 1, out.Len())
		assert.Equal(t, dataset.Record{"k", "v", nil, nil}, out.Records()[0])
	})

	t.Run("empty left with inner join", func(t *testing.T) {
		out, _ := runJoin(t, cfg, dataset.Empty(2), nonEmpty,
			Spec{LeftKey: dataset.KeyAt(0), RightKey: dataset.KeyAt(0), Type: InnerJoin})
		assert.Zero(t, out.Len())
	})
}

func TestJoinCancelledContext(t *testing.T) {
	sub := dataset.NewLocal(2)
	defer sub.Close()
	engine, err := NewEngine(sub, config.NewConfig(), WithLogger(logging.Nop()))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	ds := dataset.FromRecords(testutil.RowsOf([2]any{"k", "v"}), 1)
	_, _, err = engine.Join(ctx, ds, ds,
		Spec{LeftKey: dataset.KeyAt(0), RightKey: dataset.KeyAt(0), Type: InnerJoin})
	require.Error(t, err)
	assert.True(t, errors.IsKind(err, errors.KindProfiling))
}

func TestJoinReportStages(t *testing.T) {
	left := testutil.SkewedDataset("hot", 30, 5, 2)
	right := testutil.SkewedDataset("hot", 3, 5, 2)

	cfg := config.Config{
		HeavyAbsThreshold: 10,
		HeavyRelThreshold: 0.9,
		SaltFanout:        4,
		Partitions:        4,
		MetricsCollection: true,
	}

	_, report := runJoin(t, cfg, left, right,
		Spec{LeftKey: dataset.KeyAt(0), RightKey: dataset.KeyAt(0), Type: InnerJoin})

	stages := make(map[string]bool)
	for _, s := range report.Stages {
		stages[s.Stage] = true
	}
	for _, want := range []string{
		"profile-left", "profile-right",
		"split-left", "split-right",
		"join-normal", "join-heavy", "merge",
	} {
		assert.True(t, stages[want], "missing stage %s", want)
	}
	assert.Greater(t, report.HeavyRowFraction, 0.0)
}

func BenchmarkSkewedJoin(b *testing.B) {
	var leftRecs []dataset.Record
	for i := 0; i < 20000; i++ {
		leftRecs = append(leftRecs, dataset.Record{"hot", i})
	}
	for i := 0; i < 2000; i++ {
		leftRecs = append(leftRecs, dataset.Record{fmt.Sprintf("tail-%d", i), i})
	}
	left := dataset.FromRecords(leftRecs, 8)

	var rightRecs []dataset.Record
	rightRecs = append(rightRecs, dataset.Record{"hot", "dim"})
	for i := 0; i < 2000; i++ {
		rightRecs = append(rightRecs, dataset.Record{fmt.Sprintf("tail-%d", i), i})
	}
	right := dataset.FromRecords(rightRecs, 8)

	spec := Spec{LeftKey: dataset.KeyAt(0), RightKey: dataset.KeyAt(0), Type: InnerJoin}

	run := func(b *testing.B, fanout int) {
		sub := dataset.NewLocal(0)
		defer sub.Close()
		cfg := config.Config{
			HeavyAbsThreshold:    1000,
			HeavyRelThreshold:    0.5,
			SaltFanout:           fanout,
			BroadcastBudgetBytes: 1,
			Partitions:           8,
		}
		engine, err := NewEngine(sub, cfg, WithLogger(logging.Nop()))
		if err != nil {
			b.Fatal(err)
		}
		b.ResetTimer()
		for i := 0; i < b.N; i++ {
			if _, _, err := engine.Join(context.Background(), left, right, spec); err != nil {
				b.Fatal(err)
			}
		}
	}

	b.Run("plain-shuffle", func(b *testing.B) { run(b, 1) })
	b.Run("salted-8", func(b *testing.B) { run(b, 8) })
}
