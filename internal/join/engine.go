package join

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/paveg/skewjoin/internal/config"
	"github.com/paveg/skewjoin/internal/dataset"
	"github.com/paveg/skewjoin/internal/diag"
	"github.com/paveg/skewjoin/internal/errors"
	"github.com/paveg/skewjoin/internal/logging"
	"github.com/paveg/skewjoin/internal/skew"
)

// Engine executes skew-aware joins over an injected substrate. Configuration
// and the substrate handle are explicit per-engine values; no global state is
// shared between invocations.
type Engine struct {
	sub dataset.Substrate
	cfg config.Config
	log *zap.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger injects a caller-owned logger.
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) { e.log = l }
}

// NewEngine validates the configuration and builds an engine. Configuration
// errors fail fast here, before any data pass.
func NewEngine(sub dataset.Substrate, cfg config.Config, opts ...Option) (*Engine, error) {
	cfg = cfg.WithDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if sub == nil {
		return nil, errors.NewInvalidInputError("NewEngine", "substrate must not be nil")
	}

	e := &Engine{sub: sub, cfg: cfg}
	for _, opt := range opts {
		opt(e)
	}
	if e.log == nil {
		e.log = logging.New(cfg.VerboseLogging)
	}
	return e, nil
}

// Join runs the full pipeline: profile both sides, classify the key space,
// split each side into heavy and normal subsets, execute the chosen strategy
// per subset, and merge. The returned report carries the diagnostics surface;
// it is non-nil whenever the error is nil.
func (e *Engine) Join(
	ctx context.Context,
	left, right dataset.Dataset,
	spec Spec,
) (dataset.Dataset, *diag.Report, error) {
	if err := spec.Validate(); err != nil {
		return dataset.Dataset{}, nil, err
	}

	collector := diag.NewCollector(e.cfg.MetricsCollection)
	leftRows, rightRows := int64(left.Len()), int64(right.Len())

	// Profile. One pass per side; the tables are reused for classification
	// and the heavy-row share, never recomputed.
	start := time.Now()
	leftTable, err := skew.Profile(ctx, e.sub, left, spec.LeftKey, e.cfg.SampleFraction)
	if err != nil {
		return dataset.Dataset{}, nil, errors.NewProfilingError("Profile", err)
	}
	collector.RecordStage("profile-left", leftRows, int64(leftTable.Len()), start)

	start = time.Now()
	rightTable, err := skew.Profile(ctx, e.sub, right, spec.RightKey, e.cfg.SampleFraction)
	if err != nil {
		return dataset.Dataset{}, nil, errors.NewProfilingError("Profile", err)
	}
	collector.RecordStage("profile-right", rightRows, int64(rightTable.Len()), start)

	// Classify. One consistent classification covers both sides: a key heavy
	// on either side is heavy for both, so a heavy key can never meet a
	// normal-subset counterpart.
	cls := skew.Merge(
		skew.Classify(leftTable, leftRows, e.cfg.HeavyAbsThreshold, e.cfg.HeavyRelThreshold),
		skew.Classify(rightTable, rightRows, e.cfg.HeavyAbsThreshold, e.cfg.HeavyRelThreshold),
	)
	heavyShare := heavyRowShare(cls, leftTable, rightTable)
	collector.SetClassification(cls.HeavyCount(), heavyShare)
	e.log.Debug("classified join keys",
		zap.Int("heavy_keys", cls.HeavyCount()),
		zap.Float64("heavy_row_fraction", heavyShare),
		zap.Int64("null_rows_left", leftTable.NullCount()),
		zap.Int64("null_rows_right", rightTable.NullCount()))

	if cls.HeavyCount() > 0 && allKeysHeavy(cls, leftTable, rightTable) {
		e.log.Warn("degenerate skew: every key classified heavy, salting the entire dataset",
			zap.Int("heavy_keys", cls.HeavyCount()))
	}

	// Split both sides under the shared classification.
	start = time.Now()
	leftHeavy, leftNormal, err := skew.Split(ctx, e.sub, left, spec.LeftKey, cls)
	if err != nil {
		return dataset.Dataset{}, nil, err
	}
	collector.RecordStage("split-left", leftRows, int64(leftHeavy.Len()), start)

	start = time.Now()
	rightHeavy, rightNormal, err := skew.Split(ctx, e.sub, right, spec.RightKey, cls)
	if err != nil {
		return dataset.Dataset{}, nil, err
	}
	collector.RecordStage("split-right", rightRows, int64(rightHeavy.Len()), start)

	if leftHeavy.Len()+rightHeavy.Len() > 0 && (leftHeavy.Len() == 0 || rightHeavy.Len() == 0) {
		e.log.Warn("degenerate skew: heavy subset empty on one side",
			zap.Int("left_heavy_rows", leftHeavy.Len()),
			zap.Int("right_heavy_rows", rightHeavy.Len()))
	}

	// Select strategies. The normal path broadcasts when its smaller side
	// fits the budget; the heavy path always takes the salted shuffle.
	normalStrategy := SelectNormalStrategy(
		spec.Type, leftNormal.EstimatedBytes(), rightNormal.EstimatedBytes(), e.cfg.BroadcastBudgetBytes)
	heavyStrategy := SelectHeavyStrategy()
	collector.SetNormalStrategy(normalStrategy.String())
	collector.SetHeavyStrategy(heavyStrategy.String())
	e.log.Debug("selected join strategies",
		zap.Stringer("normal", normalStrategy),
		zap.Stringer("heavy", heavyStrategy),
		zap.Stringer("join_type", spec.Type),
		zap.Int("salt_fanout", e.cfg.SaltFanout))

	leftWidth := sideWidth(spec.LeftWidth, left)
	rightWidth := sideWidth(spec.RightWidth, right)

	// Execute per subset. Any failure aborts the whole join; partial subset
	// results are discarded, never merged.
	start = time.Now()
	normalOut, err := e.joinSubset(ctx, leftNormal, rightNormal, spec, normalStrategy, 1, leftWidth, rightWidth)
	if err != nil {
		return dataset.Dataset{}, nil, err
	}
	collector.RecordStage("join-normal",
		int64(leftNormal.Len()+rightNormal.Len()), int64(normalOut.Len()), start)

	start = time.Now()
	heavyOut, err := e.joinSubset(ctx, leftHeavy, rightHeavy, spec, heavyStrategy, e.cfg.SaltFanout, leftWidth, rightWidth)
	if err != nil {
		return dataset.Dataset{}, nil, err
	}
	collector.RecordStage("join-heavy",
		int64(leftHeavy.Len()+rightHeavy.Len()), int64(heavyOut.Len()), start)

	if err := ctx.Err(); err != nil {
		return dataset.Dataset{}, nil, err
	}

	start = time.Now()
	merged, err := mergeResults(ctx, e.sub, heavyOut, normalOut, true, true,
		minMergedRows(spec.Type, leftRows, rightRows))
	if err != nil {
		return dataset.Dataset{}, nil, err
	}
	collector.RecordStage("merge",
		int64(heavyOut.Len()+normalOut.Len()), int64(merged.Len()), start)

	return merged, collector.Report(), nil
}

// joinSubset executes one subset with the selected strategy. fanout is the
// salt fan-out: 1 on the normal path, the configured S on the heavy path.
func (e *Engine) joinSubset(
	ctx context.Context,
	left, right dataset.Dataset,
	spec Spec,
	strategy Strategy,
	fanout int,
	leftWidth, rightWidth int,
) (dataset.Dataset, error) {
	if strategy == BroadcastStrategy && spec.Type != FullOuterJoin {
		switch spec.Type {
		case InnerJoin:
			if left.EstimatedBytes() <= right.EstimatedBytes() {
				return executeBroadcastJoin(ctx, e.sub, right, spec.RightKey, left, spec.LeftKey,
					broadcastParams{probeIsLeft: false, buildWidth: leftWidth})
			}
			return executeBroadcastJoin(ctx, e.sub, left, spec.LeftKey, right, spec.RightKey,
				broadcastParams{probeIsLeft: true, buildWidth: rightWidth})
		case LeftJoin:
			return executeBroadcastJoin(ctx, e.sub, left, spec.LeftKey, right, spec.RightKey,
				broadcastParams{emitUnmatchedProbe: true, probeIsLeft: true, buildWidth: rightWidth})
		case RightJoin:
			return executeBroadcastJoin(ctx, e.sub, right, spec.RightKey, left, spec.LeftKey,
				broadcastParams{emitUnmatchedProbe: true, probeIsLeft: false, buildWidth: leftWidth})
		}
	}

	parts := e.cfg.Partitions
	switch spec.Type {
	case InnerJoin:
		// Replicate (build on) the smaller side; probe with the larger.
		if left.EstimatedBytes() <= right.EstimatedBytes() {
			return executeShuffleJoin(ctx, e.sub, right, left, spec.RightKey, spec.LeftKey, shuffleParams{
				fanout: fanout, numPartitions: parts,
				emitInner: true, probeIsLeft: false, buildWidth: leftWidth,
			})
		}
		return executeShuffleJoin(ctx, e.sub, left, right, spec.LeftKey, spec.RightKey, shuffleParams{
			fanout: fanout, numPartitions: parts,
			emitInner: true, probeIsLeft: true, buildWidth: rightWidth,
		})
	case LeftJoin:
		return executeShuffleJoin(ctx, e.sub, left, right, spec.LeftKey, spec.RightKey, shuffleParams{
			fanout: fanout, numPartitions: parts,
			emitInner: true, emitUnmatchedProbe: true, probeIsLeft: true, buildWidth: rightWidth,
		})
	case RightJoin:
		return executeShuffleJoin(ctx, e.sub, right, left, spec.RightKey, spec.LeftKey, shuffleParams{
			fanout: fanout, numPartitions: parts,
			emitInner: true, emitUnmatchedProbe: true, probeIsLeft: false, buildWidth: leftWidth,
		})
	case FullOuterJoin:
		// Pass one: inner matches plus unmatched left rows. Pass two: an anti
		// pass that contributes only the unmatched right rows, so no match is
		// ever counted twice.
		first, err := executeShuffleJoin(ctx, e.sub, left, right, spec.LeftKey, spec.RightKey, shuffleParams{
			fanout: fanout, numPartitions: parts,
			emitInner: true, emitUnmatchedProbe: true, probeIsLeft: true, buildWidth: rightWidth,
		})
		if err != nil {
			return dataset.Dataset{}, err
		}
		second, err := executeShuffleJoin(ctx, e.sub, right, left, spec.RightKey, spec.LeftKey, shuffleParams{
			fanout: fanout, numPartitions: parts,
			emitUnmatchedProbe: true, probeIsLeft: false, buildWidth: leftWidth,
		})
		if err != nil {
			return dataset.Dataset{}, err
		}
		return e.sub.Union(ctx, first, second)
	default:
		return dataset.Dataset{}, errors.NewInvalidInputError("Join", "unknown join type")
	}
}

// heavyRowShare computes the fraction of profiled rows whose key is heavy.
func heavyRowShare(cls skew.Classification, tables ...*skew.FrequencyTable) float64 {
	var heavy, total int64
	for _, t := range tables {
		total += t.Total()
		t.Each(func(k dataset.Key, count int64) {
			if cls.IsHeavy(k) {
				heavy += count
			}
		})
	}
	if total == 0 {
		return 0
	}
	return float64(heavy) / float64(total)
}

// allKeysHeavy reports whether every profiled key classified heavy.
func allKeysHeavy(cls skew.Classification, tables ...*skew.FrequencyTable) bool {
	all := true
	for _, t := range tables {
		t.Each(func(k dataset.Key, _ int64) {
			if !cls.IsHeavy(k) {
				all = false
			}
		})
	}
	return all
}
