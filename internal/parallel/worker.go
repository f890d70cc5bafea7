// Package parallel provides parallel processing infrastructure for
// partition-level dataset operations.
//
// This package implements worker pools and parallel execution strategies for
// the per-partition phases of the join pipeline (profiling, splitting,
// salting, joining). It provides an order-preserving fan-out/fan-in for
// infallible partition transforms such as shuffle bucketing, and an
// error-propagating variant for partition work that can fail or be
// cancelled.
//
// Worker count defaults to runtime.NumCPU(). Partition tasks share no mutable
// state; all coordination happens through the returned slices.
package parallel

import (
	"context"
	"runtime"
	"sync"

	"golang.org/x/sync/errgroup"
)

// WorkerPool manages a pool of goroutines for parallel partition processing.
type WorkerPool struct {
	numWorkers int
	ctx        context.Context
	cancel     context.CancelFunc
}

// NewWorkerPool creates a new worker pool.
func NewWorkerPool(numWorkers int) *WorkerPool {
	if numWorkers <= 0 {
		numWorkers = runtime.NumCPU()
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &WorkerPool{
		numWorkers: numWorkers,
		ctx:        ctx,
		cancel:     cancel,
	}
}

// NumWorkers returns the pool's worker count.
func (wp *WorkerPool) NumWorkers() int {
	return wp.numWorkers
}

// Close shuts down the worker pool.
func (wp *WorkerPool) Close() {
	wp.cancel()
}

// ProcessIndexed executes work items in parallel while preserving order.
// Used for infallible partition transforms where partition i of the output
// must come from partition i of the input, such as the bucketing and
// concatenation phases of a shuffle.
func ProcessIndexed[T, R any](
	wp *WorkerPool,
	items []T,
	worker func(int, T) R,
) []R {
	if len(items) == 0 {
		return nil
	}

	itemCh := make(chan indexedItem[T], len(items))
	resultCh := make(chan indexedResult[R], len(items))

	var wg sync.WaitGroup
	for i := 0; i < wp.numWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for item := range itemCh {
				select {
				case <-wp.ctx.Done():
					return
				default:
					result := worker(item.index, item.value)
					resultCh <- indexedResult[R]{
						index:  item.index,
						result: result,
					}
				}
			}
		}()
	}

	go func() {
		defer close(itemCh)
		for i, item := range items {
			select {
			case <-wp.ctx.Done():
				return
			case itemCh <- indexedItem[T]{index: i, value: item}:
			}
		}
	}()

	go func() {
		wg.Wait()
		close(resultCh)
	}()

	results := make([]R, len(items))
	for result := range resultCh {
		results[result.index] = result.result
	}

	return results
}

// ProcessIndexedErr executes work items in parallel, preserving order and
// propagating the first error. The context cancels outstanding work; partial
// results are discarded on failure.
func ProcessIndexedErr[T, R any](
	ctx context.Context,
	wp *WorkerPool,
	items []T,
	worker func(int, T) (R, error),
) ([]R, error) {
	if len(items) == 0 {
		return nil, ctx.Err()
	}

	results := make([]R, len(items))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(wp.numWorkers)

	for i, item := range items {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			result, err := worker(i, item)
			if err != nil {
				return err
			}
			results[i] = result
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// indexedItem holds an item with its index.
type indexedItem[T any] struct {
	index int
	value T
}

// indexedResult holds a result with its index.
type indexedResult[R any] struct {
	index  int
	result R
}
