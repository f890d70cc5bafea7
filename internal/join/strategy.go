package join

// Strategy represents the execution strategy chosen for one subset.
type Strategy int

const (
	// ShuffleStrategy repartitions both sides by key and joins co-indexed
	// partitions. The safe default; never an error to choose.
	ShuffleStrategy Strategy = iota
	// BroadcastStrategy ships the small side whole to every partition of the
	// large side, avoiding the large-side shuffle entirely.
	BroadcastStrategy
	// SaltedShuffleStrategy spreads each heavy key across the salt fan-out
	// before shuffling. Always used for the heavy subset, since a plain
	// shuffle would recreate the original skew.
	SaltedShuffleStrategy
)

// String returns the strategy name used in diagnostics.
func (s Strategy) String() string {
	switch s {
	case ShuffleStrategy:
		return "SHUFFLE"
	case BroadcastStrategy:
		return "BROADCAST"
	case SaltedShuffleStrategy:
		return "SALTED_SHUFFLE"
	default:
		return "UNKNOWN"
	}
}

// SelectNormalStrategy picks the strategy for the normal subset. It is a pure
// decision function: deterministic in its inputs, no side effects.
//
// Broadcast is chosen when the candidate small side fits within the budget.
// The candidate is constrained by join type: the broadcast copy becomes the
// build side, and this executor never emits build-side unmatched rows, so a
// side that needs outer-row emission cannot be broadcast. Full outer joins
// therefore always shuffle.
func SelectNormalStrategy(joinType Type, leftBytes, rightBytes, budgetBytes int64) Strategy {
	switch joinType {
	case InnerJoin:
		if min64(leftBytes, rightBytes) <= budgetBytes {
			return BroadcastStrategy
		}
	case LeftJoin:
		if rightBytes <= budgetBytes {
			return BroadcastStrategy
		}
	case RightJoin:
		if leftBytes <= budgetBytes {
			return BroadcastStrategy
		}
	case FullOuterJoin:
		// Both sides need unmatched-row emission; shuffle handles that with
		// a two-pass plan.
	}
	return ShuffleStrategy
}

// SelectHeavyStrategy picks the strategy for the heavy subset: always the
// salted shuffle.
func SelectHeavyStrategy() Strategy {
	return SaltedShuffleStrategy
}

func min64(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}
