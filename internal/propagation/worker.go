package propagation

import (
	"context"
	"log/slog"
	"sync"

	"github.com/liamnightingale/OrbitSim/internal/kepler"
	"github.com/liamnightingale/OrbitSim/internal/orbit"
)

// propagateJob is a unit of work for the worker pool.
type propagateJob struct {
	index    int
	elements orbit.Elements
}

// propagateResult is the output of a single satellite propagation.
type propagateResult struct {
	index  int
	result kepler.StateResult
}

// WorkerPool manages a fixed number of goroutines for parallel propagation.
type WorkerPool struct {
	workers int
	logger  *slog.Logger
}

// NewWorkerPool creates a worker pool with the given number of workers.
func NewWorkerPool(workers int, logger *slog.Logger) *WorkerPool {
	if workers <= 0 {
		workers = 1
	}
	return &WorkerPool{
		workers: workers,
		logger:  logger,
	}
}

// PropagateBatch propagates every satellite over times using the worker pool.
// The returned tracks are in input order. When ctx is cancelled, satellites
// not yet propagated come back with Track.Err set to the context error.
func (wp *WorkerPool) PropagateBatch(ctx context.Context, elements []orbit.Elements, times []float64, withVelocity bool) []Track {
	if len(elements) == 0 {
		return nil
	}

	jobs := make(chan propagateJob, wp.workers*2)
	results := make(chan propagateResult, wp.workers*2)

	// Start workers.
	var wg sync.WaitGroup
	for i := 0; i < wp.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range jobs {
				if ctx.Err() != nil {
					return
				}
				result := propagateSingle(job, times, withVelocity)
				select {
				case results <- result:
				case <-ctx.Done():
					return
				}
			}
		}()
	}

	// Feed jobs in a goroutine.
	go func() {
		defer close(jobs)
		for i, el := range elements {
			select {
			case jobs <- propagateJob{index: i, elements: el}:
			case <-ctx.Done():
				return
			}
		}
	}()

	// Close results when all workers are done.
	go func() {
		wg.Wait()
		close(results)
	}()

	// Collect results into their input slots.
	tracks := make([]Track, len(elements))
	done := make([]bool, len(elements))
	for result := range results {
		tracks[result.index].Result = result.result
		done[result.index] = true

		if n := len(result.result.Failures); n > 0 {
			wp.logger.Warn("samples failed",
				"name", elements[result.index].Name(),
				"failed", n,
				"error", result.result.Failures[0].Err,
			)
		}
	}

	for i, el := range elements {
		tracks[i].Elements = el
		if !done[i] {
			tracks[i].Err = context.Cause(ctx)
		}
	}

	return tracks
}

// propagateSingle runs the Kepler propagator for one satellite.
func propagateSingle(job propagateJob, times []float64, withVelocity bool) propagateResult {
	var res kepler.StateResult
	if withVelocity {
		res = kepler.PropagateState(job.elements, times)
	} else {
		res = kepler.StateResult{Result: kepler.Propagate(job.elements, times)}
	}
	return propagateResult{index: job.index, result: res}
}
