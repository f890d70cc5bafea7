package dataset

import (
	"context"
	"fmt"

	"github.com/paveg/skewjoin/internal/parallel"
)

// Local is the in-process reference substrate. Partitions are processed in
// parallel on a worker pool; the shuffle and broadcast barriers are realized
// by joining all partition tasks before materializing the next stage. It is
// used both for execution and as the substitute substrate in tests.
type Local struct {
	pool *parallel.WorkerPool
}

// NewLocal creates an in-process substrate with the given worker count
// (0 = one worker per CPU).
func NewLocal(workers int) *Local {
	return &Local{pool: parallel.NewWorkerPool(workers)}
}

// Close releases the substrate's worker pool.
func (l *Local) Close() {
	l.pool.Close()
}

// MapPartitions applies fn to every partition on the worker pool.
func (l *Local) MapPartitions(ctx context.Context, ds Dataset, fn PartitionMapFunc) (Dataset, error) {
	parts, err := parallel.ProcessIndexedErr(ctx, l.pool, ds.Partitions(),
		func(i int, records []Record) ([]Record, error) {
			return fn(i, records)
		})
	if err != nil {
		return Dataset{}, err
	}
	return New(parts...), nil
}

// ZipPartitions combines co-indexed partitions of two datasets. Both inputs
// must have the same partition count.
func (l *Local) ZipPartitions(ctx context.Context, left, right Dataset, fn ZipFunc) (Dataset, error) {
	if left.NumPartitions() != right.NumPartitions() {
		return Dataset{}, fmt.Errorf(
			"zip partitions: partition counts differ (%d vs %d)",
			left.NumPartitions(), right.NumPartitions())
	}
	parts, err := parallel.ProcessIndexedErr(ctx, l.pool, left.Partitions(),
		func(i int, leftRecords []Record) ([]Record, error) {
			return fn(i, leftRecords, right.Partition(i))
		})
	if err != nil {
		return Dataset{}, err
	}
	return New(parts...), nil
}

// RepartitionByKey redistributes records by hash(record) mod numPartitions.
// Phase one buckets each source partition independently; phase two, after the
// barrier, concatenates each target's buckets. Both phases are infallible
// fan-outs; cancellation is checked at the phase barriers.
func (l *Local) RepartitionByKey(
	ctx context.Context,
	ds Dataset,
	hash func(Record) uint64,
	numPartitions int,
) (Dataset, error) {
	if numPartitions < 1 {
		numPartitions = 1
	}
	if err := ctx.Err(); err != nil {
		return Dataset{}, err
	}

	buckets := parallel.ProcessIndexed(l.pool, ds.Partitions(),
		func(_ int, records []Record) [][]Record {
			local := make([][]Record, numPartitions)
			for _, rec := range records {
				t := int(hash(rec) % uint64(numPartitions))
				local[t] = append(local[t], rec)
			}
			return local
		})
	if err := ctx.Err(); err != nil {
		return Dataset{}, err
	}

	targets := make([]int, numPartitions)
	for i := range targets {
		targets[i] = i
	}
	parts := parallel.ProcessIndexed(l.pool, targets,
		func(_ int, target int) []Record {
			var out []Record
			for _, local := range buckets {
				out = append(out, local[target]...)
			}
			return out
		})
	if err := ctx.Err(); err != nil {
		return Dataset{}, err
	}
	return New(parts...), nil
}

// Broadcast returns a flattened, read-only copy of the dataset's records.
func (l *Local) Broadcast(ctx context.Context, ds Dataset) ([]Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return ds.Records(), nil
}

// Union concatenates the partition lists of the given datasets. Every record
// stays in exactly one partition; multiplicity is preserved exactly.
func (l *Local) Union(ctx context.Context, sets ...Dataset) (Dataset, error) {
	if err := ctx.Err(); err != nil {
		return Dataset{}, err
	}
	var parts [][]Record
	for _, ds := range sets {
		parts = append(parts, ds.Partitions()...)
	}
	return New(parts...), nil
}
