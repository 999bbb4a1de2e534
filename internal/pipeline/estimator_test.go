package pipeline

import (
	"errors"
	"math"
	"testing"

	"github.com/golang/geo/r3"

	"github.com/san-kum/scarakin/internal/feed"
	"github.com/san-kum/scarakin/internal/kin"
)

func planar(t *testing.T) *kin.Chain {
	t.Helper()
	c, err := kin.NewChain([]kin.Segment{
		{Joint: "j1", Type: kin.Revolute, Parent: "base", Child: "link1", Axis: r3.Vector{Z: 1}},
		{Joint: "j2", Type: kin.Revolute, Parent: "link1", Child: "link2", XYZ: r3.Vector{X: 1}, Axis: r3.Vector{Z: 1}},
		{Joint: "tool", Type: kin.Fixed, Parent: "link2", Child: "ee", XYZ: r3.Vector{X: 1}},
	})
	if err != nil {
		t.Fatalf("chain: %v", err)
	}
	return c
}

func fullTask() Task {
	return Task{
		Points:          []r3.Vector{{}, {X: 0.5}},
		Targets:         []r3.Vector{{X: 2}, {X: 2.5}},
		JointVelocities: true,
		PointVelocities: true,
	}
}

func TestEstimateAtTarget(t *testing.T) {
	est, err := New(planar(t), fullTask())
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	obs, err := est.Estimate(feed.Snapshot{
		Seq:        7,
		Names:      []string{"j1", "j2"},
		Positions:  []float64{0, 0},
		Velocities: []float64{0, 0},
	})
	if err != nil {
		t.Fatalf("estimate: %v", err)
	}

	if obs.Seq != 7 {
		t.Errorf("expected seq 7, got %d", obs.Seq)
	}
	if len(obs.State) != est.Layout().Dim() {
		t.Fatalf("expected state dim %d, got %d", est.Layout().Dim(), len(obs.State))
	}
	if obs.Distance() > 1e-12 {
		t.Errorf("expected zero distance, got %g", obs.Distance())
	}
	if math.Abs(obs.Orientation.Real-1) > 1e-12 {
		t.Errorf("expected identity orientation, got %v", obs.Orientation)
	}
	if r, c := obs.PointJacobians.Dims(); r != 6 || c != 2 {
		t.Errorf("expected 6x2 point jacobians, got %dx%d", r, c)
	}
}

func TestEstimateStateLayout(t *testing.T) {
	est, err := New(planar(t), fullTask())
	if err != nil {
		t.Fatal(err)
	}

	obs, err := est.Estimate(feed.Snapshot{
		Names:      []string{"j1", "j2"},
		Positions:  []float64{math.Pi / 2, 0},
		Velocities: []float64{1, 0},
	})
	if err != nil {
		t.Fatalf("estimate: %v", err)
	}

	// joints: q1 q2 qd1 qd2
	want := []float64{math.Pi / 2, 0, 1, 0}
	for i, w := range want {
		if obs.State[i] != w {
			t.Errorf("state[%d]: expected %f, got %f", i, w, obs.State[i])
		}
	}

	// first point sits at (0,2,0); target (2,0,0)
	errX, errY := obs.State[4], obs.State[5]
	if math.Abs(errX+2) > 1e-9 || math.Abs(errY-2) > 1e-9 {
		t.Errorf("unexpected point error (%f, %f)", errX, errY)
	}

	// rotating about z at 1 rad/s, the tip moves along -x at 2 m/s
	vx := obs.State[10]
	if math.Abs(vx+2) > 1e-9 {
		t.Errorf("expected tip velocity -2 along x, got %f", vx)
	}
}

func TestEstimatePositionsOnly(t *testing.T) {
	task := fullTask()
	task.JointVelocities = false
	task.PointVelocities = false

	est, err := New(planar(t), task)
	if err != nil {
		t.Fatal(err)
	}
	obs, err := est.Estimate(feed.Snapshot{Names: []string{"j1", "j2"}, Positions: []float64{0.1, 0.2}})
	if err != nil {
		t.Fatalf("estimate: %v", err)
	}
	if len(obs.State) != 2+6 {
		t.Errorf("expected 8 values, got %d", len(obs.State))
	}
	if obs.PointVelocities != nil {
		t.Error("expected no point velocities without joint velocities")
	}
}

func TestEstimateErrors(t *testing.T) {
	est, err := New(planar(t), fullTask())
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		snap feed.Snapshot
		want error
	}{
		{"wrong order", feed.Snapshot{Names: []string{"j2", "j1"}, Positions: []float64{0, 0}, Velocities: []float64{0, 0}}, kin.ErrJointOrderMismatch},
		{"missing joint", feed.Snapshot{Names: []string{"j1"}, Positions: []float64{0}, Velocities: []float64{0}}, kin.ErrJointOrderMismatch},
		{"short positions", feed.Snapshot{Names: []string{"j1", "j2"}, Positions: []float64{0}, Velocities: []float64{0, 0}}, kin.ErrDimensionMismatch},
		{"missing velocities", feed.Snapshot{Names: []string{"j1", "j2"}, Positions: []float64{0, 0}}, kin.ErrDimensionMismatch},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := est.Estimate(tt.snap); !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestNewValidatesTask(t *testing.T) {
	c := planar(t)

	if _, err := New(c, Task{}); !errors.Is(err, kin.ErrDimensionMismatch) {
		t.Errorf("expected ErrDimensionMismatch for empty points, got %v", err)
	}
	if _, err := New(c, Task{Points: []r3.Vector{{}}}); !errors.Is(err, kin.ErrDimensionMismatch) {
		t.Errorf("expected ErrDimensionMismatch for missing targets, got %v", err)
	}
	if _, err := New(nil, fullTask()); !errors.Is(err, kin.ErrInvalidChainConfiguration) {
		t.Errorf("expected ErrInvalidChainConfiguration for nil chain, got %v", err)
	}
}

func TestEstimateBatch(t *testing.T) {
	est, err := New(planar(t), fullTask())
	if err != nil {
		t.Fatal(err)
	}

	snaps := make([]feed.Snapshot, 300)
	for i := range snaps {
		a := float64(i) * 0.01
		snaps[i] = feed.Snapshot{Names: []string{"j1", "j2"}, Positions: []float64{a, -a}, Velocities: []float64{0, 0}}
	}
	snaps[17].Names = []string{"j1"}

	obs, errs := est.EstimateBatch(snaps)
	for i := range snaps {
		if i == 17 {
			if !errors.Is(errs[i], kin.ErrJointOrderMismatch) {
				t.Errorf("expected mismatch at 17, got %v", errs[i])
			}
			continue
		}
		if errs[i] != nil {
			t.Fatalf("snapshot %d: %v", i, errs[i])
		}
		single, err := est.Estimate(snaps[i])
		if err != nil {
			t.Fatal(err)
		}
		for k := range single.State {
			if single.State[k] != obs[i].State[k] {
				t.Fatalf("snapshot %d differs at %d", i, k)
			}
		}
	}
}

func TestRMSE(t *testing.T) {
	if RMSE(nil) != 0 {
		t.Error("expected zero rmse for empty vector")
	}
	if got := RMSE([]float64{3, -3, 3, -3}); math.Abs(got-3) > 1e-12 {
		t.Errorf("expected 3, got %f", got)
	}
}
