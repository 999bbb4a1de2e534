package arm

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/san-kum/scarakin/internal/command"
	"github.com/san-kum/scarakin/internal/feed"
	"github.com/san-kum/scarakin/internal/kin"
)

var names = []string{"j1", "j2"}

func newSim(t *testing.T, mutate func(*Config)) *Sim {
	t.Helper()
	cfg := DefaultConfig(names)
	if mutate != nil {
		mutate(&cfg)
	}
	s, err := New(cfg, nil, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return s
}

func goTo(t *testing.T, s *Sim, q ...float64) {
	t.Helper()
	traj, err := command.NewTrajectory(names, q, 1)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Publish(context.Background(), traj); err != nil {
		t.Fatalf("Publish: %v", err)
	}
}

func TestSimTracksGoal(t *testing.T) {
	s := newSim(t, nil)
	goTo(t, s, 0.5, -0.3)

	var snap feed.Snapshot
	var err error
	for i := 0; i < 400; i++ {
		if snap, err = s.Tick(); err != nil {
			t.Fatalf("Tick: %v", err)
		}
	}
	if math.Abs(snap.Positions[0]-0.5) > 1e-3 || math.Abs(snap.Positions[1]+0.3) > 1e-3 {
		t.Errorf("expected arm at goal, got %v", snap.Positions)
	}
	if snap.Seq != 400 || len(snap.Velocities) != 2 {
		t.Errorf("unexpected snapshot %+v", snap)
	}
	if math.Abs(s.Time()-4.0) > 1e-9 {
		t.Errorf("expected sim time 4s, got %v", s.Time())
	}
	if s.Commands() != 1 {
		t.Errorf("expected 1 command, got %d", s.Commands())
	}
}

func TestSimClipsVelocity(t *testing.T) {
	s := newSim(t, func(c *Config) { c.MaxVelocity = 0.5 })
	goTo(t, s, 10, -10)
	for i := 0; i < 100; i++ {
		snap, err := s.Tick()
		if err != nil {
			t.Fatal(err)
		}
		for _, v := range snap.Velocities {
			if math.Abs(v) > 0.5+1e-12 {
				t.Fatalf("velocity %v exceeds limit", v)
			}
		}
	}
}

func TestSimLimitsServoOutput(t *testing.T) {
	s := newSim(t, func(c *Config) {
		c.Limit = 1
		c.MaxVelocity = 0
	})
	goTo(t, s, 1, -1)
	snap, err := s.Tick()
	if err != nil {
		t.Fatal(err)
	}
	// unit inertia: one tick at |u| <= 1 adds at most dt to the speed
	for _, v := range snap.Velocities {
		if math.Abs(v) > 0.01+1e-9 {
			t.Errorf("velocity %v exceeds what a limited servo can produce", v)
		}
	}
}

func TestSimClampsToLimits(t *testing.T) {
	s := newSim(t, func(c *Config) {
		c.Limits = []kin.Limits{{Lower: -0.2, Upper: 0.2}, {}}
	})
	goTo(t, s, 1, 1)
	if g := s.Goal(); g[0] != 0.2 || g[1] != 1 {
		t.Errorf("expected goal clamped to [0.2 1], got %v", g)
	}
	var snap feed.Snapshot
	for i := 0; i < 300; i++ {
		snap, _ = s.Tick()
		if snap.Positions[0] > 0.2 {
			t.Fatalf("joint left its limits: %v", snap.Positions[0])
		}
	}
}

func TestSimRejectsBadCommand(t *testing.T) {
	s := newSim(t, nil)
	traj, _ := command.NewTrajectory([]string{"j2", "j1"}, []float64{0, 0}, 1)
	if err := s.Publish(context.Background(), traj); !errors.Is(err, kin.ErrJointOrderMismatch) {
		t.Errorf("expected joint order mismatch, got %v", err)
	}
	if err := s.Reset([]float64{1}); !errors.Is(err, kin.ErrDimensionMismatch) {
		t.Errorf("expected dimension mismatch, got %v", err)
	}
}

func TestNewValidates(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{"no joints", Config{Dt: 0.01}},
		{"bad initial", Config{Names: names, Initial: []float64{1}, Dt: 0.01}},
		{"zero dt", Config{Names: names}},
		{"bad integrator", Config{Names: names, Dt: 0.01, Integrator: "leapfrog"}},
	}
	for _, tt := range tests {
		if _, err := New(tt.cfg, nil, nil); err == nil {
			t.Errorf("%s: expected error", tt.name)
		}
	}
}

func TestSimRunPublishes(t *testing.T) {
	box := feed.NewMailbox(names)
	cfg := DefaultConfig(names)
	cfg.RateHz = 500
	s, err := New(cfg, box, nil)
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	snap, err := box.Next(ctx)
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if len(snap.Positions) != 2 {
		t.Errorf("unexpected snapshot %+v", snap)
	}
	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestLockstep(t *testing.T) {
	s := newSim(t, nil)
	src := Lockstep{Sim: s}
	a, _ := src.Next(context.Background())
	b, _ := src.Next(context.Background())
	if b.Seq != a.Seq+1 {
		t.Errorf("expected consecutive ticks, got %d then %d", a.Seq, b.Seq)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := src.Next(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}
