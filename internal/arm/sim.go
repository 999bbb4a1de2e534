// Package arm simulates the SCARA arm behind the robot middleware: it accepts
// trajectory commands and reports joint states through a feed.
package arm

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/san-kum/scarakin/internal/command"
	"github.com/san-kum/scarakin/internal/control"
	"github.com/san-kum/scarakin/internal/dynamo"
	"github.com/san-kum/scarakin/internal/feed"
	"github.com/san-kum/scarakin/internal/integrators"
	"github.com/san-kum/scarakin/internal/kin"
)

// Config describes the simulated joints and their servo.
type Config struct {
	Names      []string
	Limits     []kin.Limits
	Initial    []float64
	Kp, Ki, Kd float64
	// Limit bounds each servo output when positive.
	Limit   float64
	Damping float64
	// MaxVelocity clips joint speeds when positive.
	MaxVelocity float64
	// Dt is the simulated time advanced per tick.
	Dt float64
	// RateHz is the wall-clock tick rate of Run.
	RateHz     float64
	Integrator string
}

// DefaultConfig returns a stiff, critically damped servo for the named joints.
func DefaultConfig(names []string) Config {
	return Config{
		Names:       names,
		Kp:          100,
		Kd:          20,
		MaxVelocity: 2,
		Dt:          0.01,
		RateHz:      100,
		Integrator:  "rk4",
	}
}

// Sim is a servo-tracking joint model. Publish sets the goal; every tick
// integrates the servo and emits one snapshot.
type Sim struct {
	cfg   Config
	log   *zap.Logger
	out   *feed.Mailbox
	model *joints
	integ dynamo.Integrator
	servo *control.PID

	mu       sync.Mutex
	x        dynamo.State
	t        float64
	seq      uint64
	commands int
}

// New builds a simulator. out may be nil when the caller only uses Tick.
func New(cfg Config, out *feed.Mailbox, log *zap.Logger) (*Sim, error) {
	n := len(cfg.Names)
	if n == 0 {
		return nil, fmt.Errorf("%w: simulator needs at least one joint", kin.ErrDimensionMismatch)
	}
	if cfg.Initial == nil {
		cfg.Initial = make([]float64, n)
	}
	if cfg.Limits == nil {
		cfg.Limits = make([]kin.Limits, n)
	}
	if len(cfg.Initial) != n || len(cfg.Limits) != n {
		return nil, fmt.Errorf("%w: %d joints, %d initial positions, %d limits",
			kin.ErrDimensionMismatch, n, len(cfg.Initial), len(cfg.Limits))
	}
	if cfg.Dt <= 0 {
		return nil, errors.New("arm: dt must be positive")
	}
	if cfg.Integrator == "" {
		cfg.Integrator = "rk4"
	}
	integ, err := integrators.New(cfg.Integrator)
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = zap.NewNop()
	}

	s := &Sim{
		cfg:   cfg,
		log:   log,
		out:   out,
		model: &joints{n: n, damping: cfg.Damping},
		integ: integ,
	}
	s.servo = control.NewPID(cfg.Kp, cfg.Ki, cfg.Kd, cfg.Initial)
	s.servo.Limit = cfg.Limit
	s.reset(cfg.Initial)
	return s, nil
}

// Names returns the joint order of emitted snapshots.
func (s *Sim) Names() []string {
	return append([]string(nil), s.cfg.Names...)
}

// Reset places the arm at q at rest and holds it there.
func (s *Sim) Reset(q []float64) error {
	if len(q) != len(s.cfg.Names) {
		return fmt.Errorf("%w: reset has %d positions for %d joints",
			kin.ErrDimensionMismatch, len(q), len(s.cfg.Names))
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reset(q)
	return nil
}

func (s *Sim) reset(q []float64) {
	clamped := make([]float64, len(q))
	for i, v := range q {
		clamped[i] = s.cfg.Limits[i].Clamp(v)
	}
	s.x = dynamo.JointState(clamped, make([]float64, len(q)))
	s.t = 0
	s.servo.SetTargets(clamped)
	s.servo.Reset()
}

// Publish implements command.Sink. The final waypoint becomes the servo goal.
func (s *Sim) Publish(ctx context.Context, t command.Trajectory) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := t.Validate(s.cfg.Names); err != nil {
		return err
	}
	goal := t.Final().Positions
	targets := make([]float64, len(goal))
	for i, v := range goal {
		targets[i] = s.cfg.Limits[i].Clamp(v)
	}

	s.mu.Lock()
	s.servo.SetTargets(targets)
	s.commands++
	s.mu.Unlock()

	s.log.Debug("goal command", zap.Float64s("positions", targets),
		zap.Float64("time_from_start", t.Final().TimeFromStart.Seconds()))
	return nil
}

// Commands counts accepted trajectories.
func (s *Sim) Commands() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.commands
}

// Goal returns the current servo targets.
func (s *Sim) Goal() []float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.servo.Targets()
}

// Tick advances the simulation by one Dt and returns the new joint state. The
// snapshot is also published to the output mailbox when one is attached.
func (s *Sim) Tick() (feed.Snapshot, error) {
	s.mu.Lock()
	u := s.servo.Compute(s.x, s.t)
	if err := dynamo.CheckDims(s.model, s.x, u); err != nil {
		s.mu.Unlock()
		return feed.Snapshot{}, &dynamo.StepError{Step: int(s.seq), Time: s.t, State: s.x.Clone(), Wrapped: err}
	}
	next := s.integ.Step(s.model, s.x, u, s.t, s.cfg.Dt)
	if !next.IsValid() {
		err := &dynamo.StepError{Step: int(s.seq), Time: s.t, State: s.x.Clone(), Wrapped: dynamo.ErrInvalidState}
		s.mu.Unlock()
		return feed.Snapshot{}, err
	}
	s.clip(next)
	s.x = next
	s.t += s.cfg.Dt
	s.seq++
	q, qd := s.x.Split()
	snap := feed.Snapshot{
		Seq:        s.seq,
		Stamp:      time.Now(),
		Names:      s.Names(),
		Positions:  append([]float64(nil), q...),
		Velocities: append([]float64(nil), qd...),
	}
	s.mu.Unlock()

	if s.out != nil {
		s.out.Publish(snap)
	}
	return snap, nil
}

func (s *Sim) clip(x dynamo.State) {
	q, qd := x.Split()
	for i := range q {
		if v := s.cfg.MaxVelocity; v > 0 {
			qd[i] = math.Max(-v, math.Min(v, qd[i]))
		}
		if c := s.cfg.Limits[i].Clamp(q[i]); c != q[i] {
			q[i] = c
			qd[i] = 0
		}
	}
}

// Time returns the simulated time.
func (s *Sim) Time() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.t
}

// Run ticks at RateHz until ctx ends.
func (s *Sim) Run(ctx context.Context) error {
	rate := s.cfg.RateHz
	if rate <= 0 {
		rate = 1 / s.cfg.Dt
	}
	ticker := time.NewTicker(time.Duration(float64(time.Second) / rate))
	defer ticker.Stop()

	s.log.Info("arm simulator running", zap.Strings("joints", s.cfg.Names), zap.Float64("rate_hz", rate))
	for {
		select {
		case <-ctx.Done():
			s.log.Info("arm simulator stopped", zap.Float64("sim_time", s.Time()))
			return ctx.Err()
		case <-ticker.C:
			if _, err := s.Tick(); err != nil {
				s.log.Error("simulation step failed", zap.Error(err))
				return err
			}
		}
	}
}

// Lockstep adapts a Sim into a feed.Source that advances one tick per read,
// so episodes run as fast as the estimator and are reproducible.
type Lockstep struct {
	Sim *Sim
}

func (l Lockstep) Next(ctx context.Context) (feed.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return feed.Snapshot{}, err
	}
	return l.Sim.Tick()
}
