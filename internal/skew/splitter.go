package skew

import (
	"context"
	"fmt"

	"github.com/paveg/skewjoin/internal/dataset"
	"github.com/paveg/skewjoin/internal/errors"
)

// Split divides a dataset into a heavy-key subset and a normal-key subset
// under the given classification. Every input row lands in exactly one output
// subset: the two passes filter on a predicate and its negation, and the
// resulting row conservation is verified before returning. The same
// classification must be applied to both join sides so the subsets stay
// join-compatible.
func Split(
	ctx context.Context,
	sub dataset.Substrate,
	ds dataset.Dataset,
	keyFn dataset.KeyFunc,
	cls Classification,
) (heavy, normal dataset.Dataset, err error) {
	isHeavy := func(rec dataset.Record) bool {
		return cls.IsHeavy(keyFn(rec))
	}

	heavy, err = dataset.Filter(ctx, sub, ds, isHeavy)
	if err != nil {
		return dataset.Dataset{}, dataset.Dataset{}, err
	}
	normal, err = dataset.Filter(ctx, sub, ds, func(rec dataset.Record) bool {
		return !isHeavy(rec)
	})
	if err != nil {
		return dataset.Dataset{}, dataset.Dataset{}, err
	}

	if got, want := heavy.Len()+normal.Len(), ds.Len(); got != want {
		return dataset.Dataset{}, dataset.Dataset{}, errors.NewMergeInconsistencyError(
			"Split", "",
			fmt.Sprintf("split produced %d rows from %d inputs", got, want))
	}
	return heavy, normal, nil
}
