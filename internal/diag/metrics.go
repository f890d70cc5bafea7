// Package diag collects per-stage diagnostics for join invocations: row
// counts in and out of each pipeline stage, the classification summary, and
// the strategy chosen per subset. The resulting Report is the engine's
// diagnostics surface for external monitoring.
package diag

import (
	"sync"
	"time"
)

// StageMetrics records one pipeline stage's row flow and duration.
type StageMetrics struct {
	Stage    string        `json:"stage"`
	RowsIn   int64         `json:"rows_in"`
	RowsOut  int64         `json:"rows_out"`
	Duration time.Duration `json:"duration"`
}

// Report summarizes one join invocation.
type Report struct {
	Stages           []StageMetrics `json:"stages"`
	HeavyKeyCount    int            `json:"heavy_key_count"`
	HeavyRowFraction float64        `json:"heavy_row_fraction"`
	NormalStrategy   string         `json:"normal_strategy"`
	HeavyStrategy    string         `json:"heavy_strategy"`
}

// Collector accumulates diagnostics for a single join invocation. It is safe
// for concurrent use by partition tasks.
type Collector struct {
	mu      sync.Mutex
	enabled bool
	report  Report
}

// NewCollector creates a collector. A disabled collector still records the
// classification summary and chosen strategies (they are cheap and part of
// the engine's contract) but skips per-stage metrics.
func NewCollector(enabled bool) *Collector {
	return &Collector{enabled: enabled}
}

// IsEnabled reports whether per-stage metrics are recorded.
func (c *Collector) IsEnabled() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.enabled
}

// RecordStage appends one stage's metrics, measured from start.
func (c *Collector) RecordStage(stage string, rowsIn, rowsOut int64, start time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.enabled {
		return
	}
	c.report.Stages = append(c.report.Stages, StageMetrics{
		Stage:    stage,
		RowsIn:   rowsIn,
		RowsOut:  rowsOut,
		Duration: time.Since(start),
	})
}

// SetClassification records the classification summary.
func (c *Collector) SetClassification(heavyKeys int, heavyRowFraction float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.report.HeavyKeyCount = heavyKeys
	c.report.HeavyRowFraction = heavyRowFraction
}

// SetNormalStrategy records the strategy chosen for the normal subset.
func (c *Collector) SetNormalStrategy(strategy string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.report.NormalStrategy = strategy
}

// SetHeavyStrategy records the strategy chosen for the heavy subset.
func (c *Collector) SetHeavyStrategy(strategy string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.report.HeavyStrategy = strategy
}

// Report returns a copy of the collected diagnostics.
func (c *Collector) Report() *Report {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := c.report
	out.Stages = make([]StageMetrics, len(c.report.Stages))
	copy(out.Stages, c.report.Stages)
	return &out
}
