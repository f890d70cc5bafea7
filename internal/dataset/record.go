package dataset

// Record is an ordered tuple of typed fields. Join output records are the
// concatenation of both sides' fields; outer joins pad the absent side with
// nil fields.
type Record []any

// Clone returns an independent copy of the record's field slice. Field values
// themselves are shared; the pipeline treats them as read-only.
func (r Record) Clone() Record {
	out := make(Record, len(r))
	copy(out, r)
	return out
}

// EstimatedBytes approximates the in-memory footprint of the record. The
// estimate feeds the broadcast-budget decision, so it errs on the generous
// side rather than undercounting.
func (r Record) EstimatedBytes() int64 {
	// Slice header plus one interface header per field.
	size := int64(24 + 16*len(r))
	for _, f := range r {
		size += estimateFieldBytes(f)
	}
	return size
}

func estimateFieldBytes(v any) int64 {
	switch val := v.(type) {
	case nil:
		return 0
	case bool, int8, uint8:
		return 1
	case int16, uint16:
		return 2
	case int32, uint32, float32:
		return 4
	case int, int64, uint, uint64, float64:
		return 8
	case string:
		return int64(16 + len(val))
	case []byte:
		return int64(24 + len(val))
	default:
		// Unknown boxed type; charge a pointer-sized payload.
		return 8
	}
}
