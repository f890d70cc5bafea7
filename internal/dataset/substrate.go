package dataset

import (
	"context"
)

// PartitionMapFunc transforms one partition's records. It receives the
// partition index so callers can derive per-partition identifiers.
type PartitionMapFunc func(partition int, records []Record) ([]Record, error)

// ZipFunc combines the co-indexed partitions of two datasets into one output
// partition. Both datasets must have the same partition count.
type ZipFunc func(partition int, left, right []Record) ([]Record, error)

// Substrate is the injected execution capability the engine runs on. It
// supplies the partitioned-dataset primitives (map, repartition-by-key,
// broadcast, union); shuffle and broadcast are the only synchronization
// points, and each is a full barrier. All operations honor context
// cancellation and discard partial results on failure.
//
// The in-process Local substrate in this package is the reference
// implementation; a distributed runtime can substitute its own.
type Substrate interface {
	// MapPartitions applies fn to every partition independently. The output
	// dataset has the same partition count as the input.
	MapPartitions(ctx context.Context, ds Dataset, fn PartitionMapFunc) (Dataset, error)

	// ZipPartitions combines co-indexed partitions of two datasets, e.g. the
	// build and probe sides of a co-partitioned join.
	ZipPartitions(ctx context.Context, left, right Dataset, fn ZipFunc) (Dataset, error)

	// RepartitionByKey redistributes records into numPartitions partitions by
	// the given hash. A full barrier: every input partition is consumed before
	// any output partition is visible.
	RepartitionByKey(ctx context.Context, ds Dataset, hash func(Record) uint64, numPartitions int) (Dataset, error)

	// Broadcast publishes a full, read-only copy of the dataset's records to
	// every downstream partition task.
	Broadcast(ctx context.Context, ds Dataset) ([]Record, error)

	// Union concatenates datasets into one logical dataset. Row multiplicity
	// is preserved exactly; ordering is not.
	Union(ctx context.Context, sets ...Dataset) (Dataset, error)
}

// Map applies a per-record transform via MapPartitions.
func Map(ctx context.Context, sub Substrate, ds Dataset, fn func(Record) Record) (Dataset, error) {
	return sub.MapPartitions(ctx, ds, func(_ int, records []Record) ([]Record, error) {
		out := make([]Record, len(records))
		for i, rec := range records {
			out[i] = fn(rec)
		}
		return out, nil
	})
}

// Filter keeps records matching pred, via MapPartitions.
func Filter(ctx context.Context, sub Substrate, ds Dataset, pred func(Record) bool) (Dataset, error) {
	return sub.MapPartitions(ctx, ds, func(_ int, records []Record) ([]Record, error) {
		var out []Record
		for _, rec := range records {
			if pred(rec) {
				out = append(out, rec)
			}
		}
		return out, nil
	})
}

// FlatMap expands each record into zero or more records, via MapPartitions.
func FlatMap(ctx context.Context, sub Substrate, ds Dataset, fn func(Record) []Record) (Dataset, error) {
	return sub.MapPartitions(ctx, ds, func(_ int, records []Record) ([]Record, error) {
		var out []Record
		for _, rec := range records {
			out = append(out, fn(rec)...)
		}
		return out, nil
	})
}
