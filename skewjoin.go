// Package skewjoin provides a skew-aware equi-join engine for partitioned
// datasets. This package is the sole public API for the library.
//
// The engine profiles key frequencies on both join sides, classifies keys as
// HEAVY or NORMAL against configurable thresholds, splits each side into the
// two subsets, joins the normal subset with a broadcast or shuffle join and
// the heavy subset with a salted shuffle join, then merges the results with
// exact multiplicity.
package skewjoin

import (
	"context"

	"go.uber.org/zap"

	"github.com/paveg/skewjoin/internal/config"
	"github.com/paveg/skewjoin/internal/dataset"
	"github.com/paveg/skewjoin/internal/diag"
	"github.com/paveg/skewjoin/internal/join"
)

// Record is an ordered tuple of typed fields. Nil fields are null values.
type Record = dataset.Record

// Key is a join key value with an explicit null marker.
type Key = dataset.Key

// KeyFunc extracts the join key from a record.
type KeyFunc = dataset.KeyFunc

// Dataset is an ordered collection of record partitions.
type Dataset = dataset.Dataset

// Substrate is the injected execution capability the engine runs on. The
// in-process implementation returned by NewLocalSubstrate is the reference;
// distributed runtimes can substitute their own.
type Substrate = dataset.Substrate

// Config holds all recognized options for join execution.
type Config = config.Config

// Report summarizes one join invocation: per-stage metrics, the
// classification summary, and the strategy chosen per subset.
type Report = diag.Report

// JoinType represents the type of join operation.
type JoinType = join.Type

const (
	InnerJoin     = join.InnerJoin
	LeftJoin      = join.LeftJoin
	RightJoin     = join.RightJoin
	FullOuterJoin = join.FullOuterJoin
)

// JoinOptions specifies parameters for a join invocation.
type JoinOptions struct {
	Type JoinType

	// LeftKey and RightKey extract the join key from each side. KeyAt is the
	// common choice for positional keys.
	LeftKey  KeyFunc
	RightKey KeyFunc

	// LeftWidth and RightWidth fix the field count used for null padding in
	// outer joins. Zero means infer from the data.
	LeftWidth  int
	RightWidth int
}

// KeyOf builds a Key from a raw field value; nil becomes the null key.
func KeyOf(v any) Key { return dataset.KeyOf(v) }

// KeyAt returns a KeyFunc extracting the field at the given index.
func KeyAt(index int) KeyFunc { return dataset.KeyAt(index) }

// NewDataset distributes records round-robin over the given partition count.
func NewDataset(records []Record, partitions int) Dataset {
	return dataset.FromRecords(records, partitions)
}

// NewConfig returns the default configuration.
func NewConfig() Config { return config.NewConfig() }

// LoadConfigFromFile loads configuration from a JSON or YAML file.
func LoadConfigFromFile(path string) (Config, error) {
	return config.LoadFromFile(path)
}

// LoadConfigFromEnv loads configuration from SKEWJOIN_* environment
// variables, starting from defaults.
func LoadConfigFromEnv() Config { return config.LoadFromEnv() }

// LocalSubstrate is the in-process reference substrate. Close it when done.
type LocalSubstrate = dataset.Local

// NewLocalSubstrate creates an in-process substrate with the given worker
// count (0 = one worker per CPU).
func NewLocalSubstrate(workers int) *LocalSubstrate {
	return dataset.NewLocal(workers)
}

// Engine executes skew-aware joins. Engines are safe to reuse across
// invocations; all per-invocation state is local to Join.
type Engine struct {
	inner *join.Engine
}

// EngineOption configures an Engine.
type EngineOption = join.Option

// WithLogger injects a caller-owned zap logger.
func WithLogger(l *zap.Logger) EngineOption { return join.WithLogger(l) }

// NewEngine validates the configuration and builds an engine on the given
// substrate.
func NewEngine(sub Substrate, cfg Config, opts ...EngineOption) (*Engine, error) {
	inner, err := join.NewEngine(sub, cfg, opts...)
	if err != nil {
		return nil, err
	}
	return &Engine{inner: inner}, nil
}

// Join executes a skew-aware equi-join of left and right. Output records are
// the concatenation of left fields then right fields; outer join types pad
// the missing side with nil fields. Output ordering is unspecified; row
// multiplicity matches an unsalted reference join exactly.
func (e *Engine) Join(ctx context.Context, left, right Dataset, opts JoinOptions) (Dataset, *Report, error) {
	return e.inner.Join(ctx, left, right, join.Spec{
		LeftKey:    opts.LeftKey,
		RightKey:   opts.RightKey,
		Type:       opts.Type,
		LeftWidth:  opts.LeftWidth,
		RightWidth: opts.RightWidth,
	})
}

// Join is the convenience entry point: it builds a local substrate and a
// one-shot engine, runs the join, and releases the substrate.
func Join(ctx context.Context, left, right Dataset, opts JoinOptions, cfg Config) (Dataset, *Report, error) {
	sub := NewLocalSubstrate(cfg.EffectiveWorkers())
	defer sub.Close()

	engine, err := NewEngine(sub, cfg)
	if err != nil {
		return Dataset{}, nil, err
	}
	return engine.Join(ctx, left, right, opts)
}
