// Package parallel provides the worker pool used to fan grouped
// aggregation work across CPUs. Work items carry independent data, so
// workers share nothing and results are collected back in input order.
package parallel

import (
	"context"
	"runtime"
	"sync"
)

// WorkerPool manages a fixed set of goroutines for parallel evaluation.
type WorkerPool struct {
	numWorkers int
	ctx        context.Context
	cancel     context.CancelFunc
}

// NewWorkerPool creates a pool with the given worker count; zero or
// negative means one worker per CPU.
func NewWorkerPool(numWorkers int) *WorkerPool {
	if numWorkers <= 0 {
		numWorkers = runtime.NumCPU()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &WorkerPool{numWorkers: numWorkers, ctx: ctx, cancel: cancel}
}

// Close shuts the pool down. In-flight workers finish their current
// item and exit.
func (wp *WorkerPool) Close() {
	wp.cancel()
}

type indexedItem[T any] struct {
	index int
	value T
}

type indexedResult[R any] struct {
	index  int
	result R
}

// ProcessIndexed executes the worker over every item, returning results
// in input order.
func ProcessIndexed[T, R any](wp *WorkerPool, items []T, worker func(int, T) R) []R {
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
					resultCh <- indexedResult[R]{
						index:  item.index,
						result: worker(item.index, item.value),
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
