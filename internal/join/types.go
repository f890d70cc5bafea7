// Package join implements the skew-aware equi-join pipeline: strategy
// selection per subset, the broadcast / shuffle / salted-shuffle executors,
// the result merger, and the engine that wires profiling, classification,
// splitting, execution, and merging together over an injected substrate.
package join

import (
	"github.com/paveg/skewjoin/internal/dataset"
	"github.com/paveg/skewjoin/internal/errors"
)

// Type represents the join type.
type Type int

const (
	InnerJoin Type = iota
	LeftJoin
	RightJoin
	FullOuterJoin
)

// String returns the SQL-style join type name.
func (t Type) String() string {
	switch t {
	case InnerJoin:
		return "INNER"
	case LeftJoin:
		return "LEFT"
	case RightJoin:
		return "RIGHT"
	case FullOuterJoin:
		return "FULL OUTER"
	default:
		return "UNKNOWN"
	}
}

// Spec describes one join invocation: how to extract the key from each side
// and the join type. Null keys never match any key, including other nulls;
// outer join types emit null-padded rows for them instead.
type Spec struct {
	LeftKey  dataset.KeyFunc
	RightKey dataset.KeyFunc
	Type     Type

	// LeftWidth and RightWidth fix the field count used for null padding in
	// outer joins. Zero means infer from the first record of the side.
	LeftWidth  int
	RightWidth int
}

// Validate checks the join parameters before any data pass.
func (s Spec) Validate() error {
	if s.LeftKey == nil || s.RightKey == nil {
		return errors.NewInvalidInputError("Join", "both key extractors must be set")
	}
	switch s.Type {
	case InnerJoin, LeftJoin, RightJoin, FullOuterJoin:
	default:
		return errors.NewInvalidInputError("Join", "unknown join type")
	}
	if s.LeftWidth < 0 || s.RightWidth < 0 {
		return errors.NewInvalidInputError("Join", "widths must be non-negative")
	}
	return nil
}

// sideWidth infers a side's field count, preferring the explicit override.
func sideWidth(override int, ds dataset.Dataset) int {
	if override > 0 {
		return override
	}
	for _, p := range ds.Partitions() {
		if len(p) > 0 {
			return len(p[0])
		}
	}
	return 0
}
