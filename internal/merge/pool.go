package merge

import (
	"runtime"
	"sync"
)

const batchSize = 64

// batch is a contiguous run of entity positions handed to one worker.
type batch struct {
	start, end int
}

// WorkerCount resolves a configured worker count: zero or negative means one
// worker per CPU, never more workers than items.
func WorkerCount(configured, items int) int {
	n := configured
	if n <= 0 {
		n = runtime.NumCPU()
	}
	if n > items {
		n = items
	}
	if n < 1 {
		n = 1
	}
	return n
}

// parallelMap evaluates fn for every position in [0, n) on a bounded pool of
// workers. Each result slot is written exactly once, so the output order is
// the input order regardless of scheduling.
func parallelMap[T any](n, workers int, fn func(i int) T) []T {
	out := make([]T, n)
	if n == 0 {
		return out
	}
	workers = WorkerCount(workers, n)

	batches := make(chan batch, (n+batchSize-1)/batchSize)
	for start := 0; start < n; start += batchSize {
		end := start + batchSize
		if end > n {
			end = n
		}
		batches <- batch{start: start, end: end}
	}
	close(batches)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for b := range batches {
				for i := b.start; i < b.end; i++ {
					out[i] = fn(i)
				}
			}
		}()
	}
	wg.Wait()

	return out
}
