package core

import (
	"runtime"
	"sync"
)

// TaskManager is a small fixed-size worker pool used to parallelize batch
// field operations, FFT butterfly passes, and the composition evaluator's
// per-row sweep. Grounded
// on the sync.WaitGroup chunking pattern the example prover already uses in
// its ParallelBatchInversion/ParallelBatchMultiplication helpers, lifted out
// into a reusable type so every package that wants ParallelFor shares one
// pool instead of spinning up ad-hoc goroutines.
type TaskManager struct {
	workers int
}

// NewTaskManager returns a TaskManager with the given number of workers. A
// non-positive count defaults to runtime.GOMAXPROCS(0).
func NewTaskManager(workers int) *TaskManager {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	return &TaskManager{workers: workers}
}

// Workers reports the pool's configured concurrency.
func (tm *TaskManager) Workers() int { return tm.workers }

// ParallelFor calls fn(i) for every i in [0, n), distributing the calls
// across the pool's workers and blocking until all have completed. It runs
// serially when n==1 or the pool has a single worker; otherwise [0, n) is
// split into one contiguous chunk per goroutine, using at most n goroutines
// when n is smaller than the worker count.
func (tm *TaskManager) ParallelFor(n int, fn func(i int)) {
	if n <= 0 {
		return
	}
	if n == 1 || tm.workers <= 1 {
		for i := 0; i < n; i++ {
			fn(i)
		}
		return
	}

	workers := tm.workers
	if workers > n {
		workers = n
	}

	var wg sync.WaitGroup
	chunk := (n + workers - 1) / workers
	for w := 0; w < workers; w++ {
		start := w * chunk
		if start >= n {
			break
		}
		end := start + chunk
		if end > n {
			end = n
		}
		wg.Add(1)
		go func(start, end int) {
			defer wg.Done()
			for i := start; i < end; i++ {
				fn(i)
			}
		}(start, end)
	}
	wg.Wait()
}

// SingleThreaded returns a TaskManager that always runs serially, for
// callers that must not parallelize because their state is mutated by each
// step.
func SingleThreaded() *TaskManager { return &TaskManager{workers: 1} }

var defaultTaskManager = NewTaskManager(0)

// DefaultTaskManager returns the pool shared by this package's parallel hot
// paths (FFT butterfly passes, bit-reversal permutations, batch inversion)
// and by the composition evaluator, sized to the machine's core count.
func DefaultTaskManager() *TaskManager { return defaultTaskManager }
