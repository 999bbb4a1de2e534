package optim

import (
	"context"
	"errors"
	"testing"
)

func TestGridSearchFindsMinimum(t *testing.T) {
	g := NewGridSearch(map[string][]float64{
		"a": {-1, 0, 1, 2},
		"b": {0, 3},
	})
	if g.Size() != 8 {
		t.Fatalf("expected 8 trials, got %d", g.Size())
	}
	eval := func(ctx context.Context, p map[string]float64) (map[string]float64, error) {
		a, b := p["a"], p["b"]
		return map[string]float64{"cost": (a-1)*(a-1) + (b-3)*(b-3)}, nil
	}
	best, val, trials, err := g.Search(context.Background(), eval, "cost")
	if err != nil {
		t.Fatal(err)
	}
	if best["a"] != 1 || best["b"] != 3 || val != 0 {
		t.Errorf("expected a=1 b=3 cost=0, got %v cost=%v", best, val)
	}
	if len(trials) != 8 {
		t.Errorf("expected 8 recorded trials, got %d", len(trials))
	}
}

func TestGridSearchSkipsFailures(t *testing.T) {
	g := NewGridSearch(map[string][]float64{"x": {1, 2, 3}})
	eval := func(ctx context.Context, p map[string]float64) (map[string]float64, error) {
		if p["x"] == 1 {
			return nil, errors.New("boom")
		}
		return map[string]float64{"cost": p["x"]}, nil
	}
	best, _, trials, err := g.Search(context.Background(), eval, "cost")
	if err != nil {
		t.Fatal(err)
	}
	if best["x"] != 2 {
		t.Errorf("expected x=2, got %v", best)
	}
	if trials[0].Err == nil {
		t.Error("expected first trial to record its error")
	}

	_, _, _, err = g.Search(context.Background(), eval, "missing")
	if err == nil {
		t.Error("expected error when no trial reports the metric")
	}
}

func TestGridSearchCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	g := NewGridSearch(map[string][]float64{"x": {1}})
	_, _, _, err := g.Search(ctx, func(context.Context, map[string]float64) (map[string]float64, error) {
		return map[string]float64{"cost": 0}, nil
	}, "cost")
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}
