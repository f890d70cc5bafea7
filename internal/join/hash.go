package join

import (
	"github.com/paveg/skewjoin/internal/dataset"
)

// compositeKey is the (join key, salt) pair the salted shuffle joins on.
// Plain shuffle and broadcast joins use salt 0 throughout, so the same kernel
// serves all three strategies.
type compositeKey struct {
	enc  string
	salt uint32
}

// kernelOpts controls one partition-level hash join.
type kernelOpts struct {
	// tagged marks records carrying a trailing synthetic salt field. The
	// kernel strips it before emitting output rows.
	tagged bool
	// emitInner emits matched probe/build pairs. Disabled for the anti pass
	// of a full outer join, which only wants the unmatched probe rows.
	emitInner bool
	// emitUnmatchedProbe emits probe rows without a match, padded with nulls
	// on the build side. Probe rows occur exactly once globally, so local
	// emission cannot duplicate them.
	emitUnmatchedProbe bool
	// probeIsLeft orders output fields as (probe, build) when true and
	// (build, probe) otherwise, so output schema is always left then right.
	probeIsLeft bool
	// buildWidth is the field count used to null-pad the missing build side.
	buildWidth int
}

// hashJoinPartition joins one co-located pair of build and probe partitions.
// Build rows with null keys are never inserted into the table and probe rows
// with null keys never match, which gives SQL null-key semantics: inner joins
// drop them, outer joins emit them null-padded.
func hashJoinPartition(
	build, probe []dataset.Record,
	buildKey, probeKey dataset.KeyFunc,
	opts kernelOpts,
) []dataset.Record {
	table := make(map[compositeKey][]dataset.Record, len(build))
	for _, rec := range build {
		orig, salt := untag(rec, opts.tagged)
		k := buildKey(orig)
		if k.IsNull() {
			continue
		}
		ck := compositeKey{enc: k.Encoded(), salt: salt}
		table[ck] = append(table[ck], orig)
	}

	var out []dataset.Record
	for _, rec := range probe {
		orig, salt := untag(rec, opts.tagged)
		k := probeKey(orig)
		var matches []dataset.Record
		if !k.IsNull() {
			matches = table[compositeKey{enc: k.Encoded(), salt: salt}]
		}
		if len(matches) == 0 {
			if opts.emitUnmatchedProbe {
				out = append(out, combineRows(orig, nullPad(opts.buildWidth), opts.probeIsLeft))
			}
			continue
		}
		if !opts.emitInner {
			continue
		}
		for _, b := range matches {
			out = append(out, combineRows(orig, b, opts.probeIsLeft))
		}
	}
	return out
}

// untag splits a working record into its original fields and salt value.
func untag(rec dataset.Record, tagged bool) (dataset.Record, uint32) {
	if !tagged {
		return rec, 0
	}
	n := len(rec) - 1
	return rec[:n], rec[n].(uint32)
}

// combineRows concatenates probe and build fields in left-then-right order.
func combineRows(probe, build dataset.Record, probeIsLeft bool) dataset.Record {
	left, right := build, probe
	if probeIsLeft {
		left, right = probe, build
	}
	out := make(dataset.Record, 0, len(left)+len(right))
	out = append(out, left...)
	out = append(out, right...)
	return out
}

// nullPad returns a record of width nil fields.
func nullPad(width int) dataset.Record {
	return make(dataset.Record, width)
}
