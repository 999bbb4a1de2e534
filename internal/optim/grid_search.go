// Package optim searches episode parameters for the best metric value.
package optim

import (
	"context"
	"errors"
	"math"
	"sort"
)

// Evaluate runs one trial and returns its metrics.
type Evaluate func(ctx context.Context, params map[string]float64) (map[string]float64, error)

type Trial struct {
	Params map[string]float64
	Value  float64
	Err    error
}

type GridSearch struct {
	paramNames []string
	ranges     [][]float64
}

// NewGridSearch searches the cartesian product of ranges. Parameters are
// visited in sorted name order so results are reproducible.
func NewGridSearch(ranges map[string][]float64) *GridSearch {
	g := &GridSearch{}
	for name := range ranges {
		g.paramNames = append(g.paramNames, name)
	}
	sort.Strings(g.paramNames)
	for _, name := range g.paramNames {
		g.ranges = append(g.ranges, ranges[name])
	}
	return g
}

// Size is the number of trials.
func (g *GridSearch) Size() int {
	n := 1
	for _, r := range g.ranges {
		n *= len(r)
	}
	return n
}

// Search minimises metricName. Failed trials are recorded and skipped.
func (g *GridSearch) Search(ctx context.Context, eval Evaluate, metricName string) (map[string]float64, float64, []Trial, error) {
	best := math.Inf(1)
	var bestParams map[string]float64
	var trials []Trial

	err := g.searchRecursive(ctx, 0, make(map[string]float64), func(params map[string]float64) {
		metrics, err := eval(ctx, params)
		t := Trial{Params: params, Value: math.NaN(), Err: err}
		if err == nil {
			v, ok := metrics[metricName]
			if !ok {
				t.Err = errors.New("optim: metric " + metricName + " not reported")
			} else {
				t.Value = v
				if v < best {
					best = v
					bestParams = params
				}
			}
		}
		trials = append(trials, t)
	})
	if err != nil {
		return bestParams, best, trials, err
	}
	if bestParams == nil {
		return nil, best, trials, errors.New("optim: every trial failed")
	}
	return bestParams, best, trials, nil
}

func (g *GridSearch) searchRecursive(ctx context.Context, depth int, current map[string]float64, visit func(map[string]float64)) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if depth == len(g.paramNames) {
		visit(current)
		return nil
	}

	paramName := g.paramNames[depth]
	for _, val := range g.ranges[depth] {
		newParams := make(map[string]float64, len(current)+1)
		for k, v := range current {
			newParams[k] = v
		}
		newParams[paramName] = val

		if err := g.searchRecursive(ctx, depth+1, newParams, visit); err != nil {
			return err
		}
	}
	return nil
}
