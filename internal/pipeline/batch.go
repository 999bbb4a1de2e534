package pipeline

import (
	"math"
	"runtime"
	"sync"

	"gonum.org/v1/gonum/floats"

	"github.com/san-kum/scarakin/internal/feed"
)

// EstimateBatch estimates independent snapshots in parallel. Results and
// errors are indexed like snaps.
func (e *Estimator) EstimateBatch(snaps []feed.Snapshot) ([]*Observation, []error) {
	out := make([]*Observation, len(snaps))
	errs := make([]error, len(snaps))
	parallelFor(len(snaps), 64, func(start, end int) {
		for i := start; i < end; i++ {
			out[i], errs[i] = e.Estimate(snaps[i])
		}
	})
	return out, errs
}

// parallelFor executes fn over [0, n) in contiguous chunks of at least minChunk.
func parallelFor(n, minChunk int, fn func(start, end int)) {
	workers := runtime.GOMAXPROCS(0)
	if n <= minChunk || workers <= 1 {
		fn(0, n)
		return
	}
	if n/minChunk < workers {
		workers = n / minChunk
	}

	chunkSize := (n + workers - 1) / workers

	var wg sync.WaitGroup
	for start := 0; start < n; start += chunkSize {
		end := start + chunkSize
		if end > n {
			end = n
		}
		wg.Add(1)
		go func(s, e int) {
			defer wg.Done()
			fn(s, e)
		}(start, end)
	}
	wg.Wait()
}

// RMSE is sqrt(mean(v²)); zero for an empty vector.
func RMSE(v []float64) float64 {
	if len(v) == 0 {
		return 0
	}
	return math.Sqrt(floats.Dot(v, v) / float64(len(v)))
}
