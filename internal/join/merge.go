package join

import (
	"context"
	"fmt"

	"github.com/paveg/skewjoin/internal/dataset"
	"github.com/paveg/skewjoin/internal/errors"
)

// mergeResults unions the heavy-path and normal-path join outputs into one
// dataset. Ordering is not guaranteed; multiplicity is: the union neither
// drops nor duplicates rows relative to an unsalted, unsplit reference join.
//
// Both inputs must be complete. A cancelled or failed subset join must be
// discarded by the caller, never merged; combining an incomplete heavy result
// with a complete normal result would silently corrupt the output, so an
// incomplete input fails the whole join instead. minRows is the lower bound
// implied by the join type (e.g. a left join emits at least one row per left
// input row); falling below it indicates lost rows and also fails the join.
func mergeResults(
	ctx context.Context,
	sub dataset.Substrate,
	heavyOut, normalOut dataset.Dataset,
	heavyComplete, normalComplete bool,
	minRows int64,
) (dataset.Dataset, error) {
	if !heavyComplete || !normalComplete {
		stage := "heavy"
		if heavyComplete {
			stage = "normal"
		}
		return dataset.Dataset{}, errors.NewMergeInconsistencyError(
			"Merge", stage, "refusing to merge an incomplete subset join result")
	}

	merged, err := sub.Union(ctx, heavyOut, normalOut)
	if err != nil {
		return dataset.Dataset{}, err
	}

	if got := int64(merged.Len()); got < minRows {
		return dataset.Dataset{}, errors.NewMergeInconsistencyError(
			"Merge", "",
			fmt.Sprintf("merged output has %d rows, join type requires at least %d", got, minRows))
	}
	return merged, nil
}

// minMergedRows returns the output lower bound implied by the join type.
func minMergedRows(joinType Type, leftRows, rightRows int64) int64 {
	switch joinType {
	case LeftJoin:
		return leftRows
	case RightJoin:
		return rightRows
	case FullOuterJoin:
		if leftRows > rightRows {
			return leftRows
		}
		return rightRows
	default:
		return 0
	}
}
