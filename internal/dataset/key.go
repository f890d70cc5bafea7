// Package dataset defines the partitioned-dataset model the join engine
// operates on: records, null-aware join keys, partitions, and the substrate
// interface that supplies the shuffle/broadcast/map primitives. The engine
// depends only on this package, never on a concrete execution substrate.
package dataset

import (
	"fmt"
	"strings"

	xxhash "github.com/cespare/xxhash/v2"
)

// nullMarker is the canonical encoding reserved for null keys. KeyOf escapes
// any value encoding that begins with a NUL byte, so no non-null value ever
// encodes to the marker.
const nullMarker = "\x00null"

// Key is a join key value with an explicit null marker. Keys are compared by
// their canonical string encoding, so int64(1) and int32(1) join against each
// other while null never equals any value, including another null.
type Key struct {
	null bool
	enc  string
}

// KeyOf builds a Key from a raw field value. A nil value becomes the null
// key. Encodings starting with a NUL byte get a second NUL prepended; the
// mapping stays injective and its range never contains the null marker.
func KeyOf(v any) Key {
	if v == nil {
		return NullKey()
	}
	enc := fmt.Sprint(v)
	if strings.HasPrefix(enc, "\x00") {
		enc = "\x00" + enc
	}
	return Key{enc: enc}
}

// NullKey returns the explicit null key marker.
func NullKey() Key {
	return Key{null: true}
}

// IsNull reports whether the key is the null marker.
func (k Key) IsNull() bool {
	return k.null
}

// Encoded returns the canonical encoding used for hashing and map lookups.
// The null marker encodes to a reserved value distinct from every KeyOf
// result.
func (k Key) Encoded() string {
	if k.null {
		return nullMarker
	}
	return k.enc
}

// String returns a human-readable rendering for logs and diagnostics.
func (k Key) String() string {
	if k.null {
		return "<null>"
	}
	return k.enc
}

// Hash64 returns the xxhash of the canonical encoding. Used for hash
// partitioning and deterministic salt assignment.
func (k Key) Hash64() uint64 {
	return xxhash.Sum64String(k.Encoded())
}

// KeyFunc extracts the join key from a record. Implementations must return
// NullKey (or KeyOf(nil)) for null-valued keys rather than skipping them.
type KeyFunc func(Record) Key

// KeyAt returns a KeyFunc extracting the field at the given index, treating
// out-of-range and nil fields as null.
func KeyAt(index int) KeyFunc {
	return func(r Record) Key {
		if index < 0 || index >= len(r) {
			return NullKey()
		}
		return KeyOf(r[index])
	}
}
