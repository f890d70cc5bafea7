package skew

import (
	"golang.org/x/exp/slices"

	"github.com/paveg/skewjoin/internal/dataset"
)

// Class tags a key as heavy or normal.
type Class uint8

const (
	// Normal keys take the plain shuffle/broadcast path. Classification is a
	// total function: keys absent from the frequency table default to Normal.
	Normal Class = iota
	// Heavy keys exceed the configured thresholds and take the salted path.
	Heavy
)

// String returns the class name.
func (c Class) String() string {
	if c == Heavy {
		return "HEAVY"
	}
	return "NORMAL"
}

// Classification partitions the key space into heavy and normal keys. It is a
// pure value: classifying the same table with the same thresholds always
// yields the same result.
type Classification struct {
	heavy map[dataset.Key]struct{}
}

// Classify marks a key HEAVY when its count exceeds absThreshold or its share
// of totalRows exceeds relThreshold. The null marker is evaluated under the
// same rule; in skewed data it frequently qualifies. All keys classifying
// HEAVY is a valid (degenerate) outcome, not an error.
func Classify(table *FrequencyTable, totalRows int64, absThreshold int64, relThreshold float64) Classification {
	cls := Classification{heavy: make(map[dataset.Key]struct{})}
	table.Each(func(k dataset.Key, count int64) {
		if count > absThreshold {
			cls.heavy[k] = struct{}{}
			return
		}
		if totalRows > 0 && float64(count)/float64(totalRows) > relThreshold {
			cls.heavy[k] = struct{}{}
		}
	})
	return cls
}

// Merge unions the heavy sets of two classifications. Used to apply one
// consistent classification to both join sides: a key heavy on either side is
// heavy everywhere, so a heavy key is never matched against a normal-subset
// counterpart.
func Merge(a, b Classification) Classification {
	out := Classification{heavy: make(map[dataset.Key]struct{}, len(a.heavy)+len(b.heavy))}
	for k := range a.heavy {
		out.heavy[k] = struct{}{}
	}
	for k := range b.heavy {
		out.heavy[k] = struct{}{}
	}
	return out
}

// Of returns the class of a key, defaulting to Normal for unseen keys.
func (c Classification) Of(k dataset.Key) Class {
	if _, ok := c.heavy[k]; ok {
		return Heavy
	}
	return Normal
}

// IsHeavy reports whether the key is classified Heavy.
func (c Classification) IsHeavy(k dataset.Key) bool {
	_, ok := c.heavy[k]
	return ok
}

// HeavyCount returns the number of heavy keys.
func (c Classification) HeavyCount() int {
	return len(c.heavy)
}

// HeavyKeys returns the heavy keys in a deterministic order.
func (c Classification) HeavyKeys() []dataset.Key {
	keys := make([]dataset.Key, 0, len(c.heavy))
	for k := range c.heavy {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, func(a, b dataset.Key) int {
		switch {
		case a.Encoded() < b.Encoded():
			return -1
		case a.Encoded() > b.Encoded():
			return 1
		default:
			return 0
		}
	})
	return keys
}
