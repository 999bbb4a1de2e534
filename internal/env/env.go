// Package env runs the reaching task: it turns actions into goal commands,
// reads fresh joint states, and scores the transported end-effector points
// against their targets.
package env

import (
	"context"
	"errors"
	"fmt"
	"math"

	"go.uber.org/zap"

	"github.com/san-kum/scarakin/internal/command"
	"github.com/san-kum/scarakin/internal/feed"
	"github.com/san-kum/scarakin/internal/kin"
	"github.com/san-kum/scarakin/internal/pipeline"
)

// ErrTooManySkips is returned when the feed keeps delivering snapshots that
// cannot be matched to the chain.
var ErrTooManySkips = errors.New("env: too many skipped ticks")

// Options holds the episode parameters.
type Options struct {
	ResetPositions []float64
	// GoalVelocity is the joint speed of the velocity stepper in rad/s.
	GoalVelocity float64
	// Slowness is the time_from_start of every command in seconds.
	Slowness float64
	// Tolerance is the point RMSE that ends an episode.
	Tolerance float64
	// Dt is the control period used to integrate the goal.
	Dt float64
	// Space bounds the actions. Defaults to the chain limits or ±π/2.
	Space *command.ActionSpace
	// MaxSkips bounds consecutive unusable snapshots.
	MaxSkips int
	// SettleTolerance and SettleTicks bound how long Reset waits for the arm.
	SettleTolerance float64
	SettleTicks     int
}

// DefaultOptions mirrors the robot agent defaults.
func DefaultOptions() Options {
	return Options{
		GoalVelocity:    0.5,
		Slowness:        1,
		Tolerance:       0.005,
		Dt:              0.01,
		MaxSkips:        100,
		SettleTolerance: 0.01,
		SettleTicks:     1000,
	}
}

// Resetter is implemented by sinks that can place the arm directly.
type Resetter interface {
	Reset(q []float64) error
}

// StepResult is the outcome of one Step.
type StepResult struct {
	Obs      *pipeline.Observation
	Goal     []float64
	Distance float64
	Reward   float64
	Done     bool
}

// Env couples an estimator with a joint-state source and a command sink.
type Env struct {
	est     *pipeline.Estimator
	src     feed.Source
	sink    command.Sink
	opts    Options
	space   command.ActionSpace
	stepper *command.VelocityStepper
	log     *zap.Logger

	order []string
	last  *pipeline.Observation
	ticks int
	skips int
}

// New wires an environment. log may be nil.
func New(est *pipeline.Estimator, src feed.Source, sink command.Sink, opts Options, log *zap.Logger) (*Env, error) {
	if est == nil || src == nil || sink == nil {
		return nil, errors.New("env: estimator, source and sink are required")
	}
	n := est.Chain().JointCount()
	if opts.ResetPositions == nil {
		opts.ResetPositions = make([]float64, n)
	}
	if len(opts.ResetPositions) != n {
		return nil, fmt.Errorf("%w: %d reset positions for %d joints",
			kin.ErrDimensionMismatch, len(opts.ResetPositions), n)
	}
	// the arm can only settle inside its limits
	reset := make([]float64, n)
	for i, l := range est.Chain().Limits() {
		reset[i] = l.Clamp(opts.ResetPositions[i])
	}
	opts.ResetPositions = reset
	if opts.Dt <= 0 {
		return nil, errors.New("env: dt must be positive")
	}
	if opts.MaxSkips <= 0 {
		opts.MaxSkips = DefaultOptions().MaxSkips
	}
	space := command.SpaceFromLimits(est.Chain().Limits())
	if opts.Space != nil {
		if opts.Space.Dim() != n {
			return nil, fmt.Errorf("%w: action space has %d dims for %d joints",
				kin.ErrDimensionMismatch, opts.Space.Dim(), n)
		}
		space = *opts.Space
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Env{
		est:     est,
		src:     src,
		sink:    sink,
		opts:    opts,
		space:   space,
		stepper: command.NewVelocityStepper(opts.GoalVelocity),
		log:     log,
		order:   est.JointOrder(),
	}, nil
}

// ObsDim is the length of Observation.State.
func (e *Env) ObsDim() int { return e.est.Layout().Dim() }

// ActionSpace returns the joint target bounds.
func (e *Env) ActionSpace() command.ActionSpace { return e.space }

// Estimator returns the underlying estimator.
func (e *Env) Estimator() *pipeline.Estimator { return e.est }

// Last returns the most recent observation.
func (e *Env) Last() *pipeline.Observation { return e.last }

// Ticks counts observations consumed since the last Reset.
func (e *Env) Ticks() int { return e.ticks }

// Reset commands the reset positions and waits until the arm has settled.
func (e *Env) Reset(ctx context.Context) (*pipeline.Observation, error) {
	if r, ok := e.sink.(Resetter); ok {
		if err := r.Reset(e.opts.ResetPositions); err != nil {
			return nil, err
		}
	}
	if err := e.publish(ctx, e.opts.ResetPositions); err != nil {
		return nil, err
	}

	var obs *pipeline.Observation
	for i := 0; ; i++ {
		var err error
		if obs, err = e.next(ctx); err != nil {
			return nil, err
		}
		if settled(obs.Positions, e.opts.ResetPositions, e.opts.SettleTolerance) {
			break
		}
		if i >= e.opts.SettleTicks {
			e.log.Warn("arm did not settle at reset positions",
				zap.Float64s("positions", obs.Positions), zap.Int("ticks", i))
			break
		}
	}

	e.stepper.Reset(obs.Positions)
	e.ticks = 0
	e.last = obs
	e.log.Debug("reset", zap.Float64("distance", obs.Distance()))
	return obs, nil
}

// Step moves the goal toward action, publishes it and scores the next fresh
// observation.
func (e *Env) Step(ctx context.Context, action []float64) (StepResult, error) {
	if e.last == nil {
		return StepResult{}, errors.New("env: Step called before Reset")
	}
	target, err := e.space.Clip(action)
	if err != nil {
		return StepResult{}, err
	}
	goal, err := e.stepper.Step(e.last.Positions, target, e.opts.Dt)
	if err != nil {
		return StepResult{}, err
	}
	if err := e.publish(ctx, goal); err != nil {
		return StepResult{}, err
	}

	obs, err := e.next(ctx)
	if err != nil {
		return StepResult{}, err
	}
	e.last = obs

	d := obs.Distance()
	reward, done := Reward(d, e.opts.Tolerance)
	return StepResult{Obs: obs, Goal: goal, Distance: d, Reward: reward, Done: done}, nil
}

// Reward is -d, or 1-d with done once d is within tolerance.
func Reward(d, tolerance float64) (float64, bool) {
	if d < tolerance {
		return 1 - d, true
	}
	return -d, false
}

func (e *Env) publish(ctx context.Context, positions []float64) error {
	traj, err := command.NewGoalTrajectory(e.order, positions, e.opts.GoalVelocity, e.opts.Slowness)
	if err != nil {
		return err
	}
	return e.sink.Publish(ctx, traj)
}

// next reads snapshots until one estimates cleanly. Snapshots whose joints do
// not match the chain are skipped.
func (e *Env) next(ctx context.Context) (*pipeline.Observation, error) {
	for {
		snap, err := e.src.Next(ctx)
		if err != nil {
			return nil, err
		}
		obs, err := e.est.Estimate(snap)
		if errors.Is(err, kin.ErrJointOrderMismatch) {
			e.skips++
			e.log.Warn("skipping tick", zap.Uint64("seq", snap.Seq),
				zap.Strings("names", snap.Names), zap.Error(err))
			if e.skips > e.opts.MaxSkips {
				return nil, fmt.Errorf("%w: %d in a row", ErrTooManySkips, e.skips)
			}
			continue
		}
		if err != nil {
			return nil, err
		}
		e.skips = 0
		e.ticks++
		return obs, nil
	}
}

func settled(q, want []float64, tol float64) bool {
	for i := range q {
		if math.Abs(q[i]-want[i]) > tol {
			return false
		}
	}
	return true
}
