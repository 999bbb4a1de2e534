package env

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/san-kum/scarakin/internal/metrics"
)

// Episode records one run of a policy.
type Episode struct {
	Policy    string
	Times     []float64
	States    [][]float64
	Positions [][]float64
	Actions   [][]float64
	Goals     [][]float64
	Distances []float64
	Rewards   []float64
	Done      bool
	Steps     int
	Elapsed   time.Duration
	Metrics   map[string]float64
}

// Run resets the environment and steps policy until done or horizon steps.
// observe, when non-nil, sees every step as it happens.
func Run(ctx context.Context, e *Env, p Policy, horizon int, observe func(StepResult)) (*Episode, error) {
	start := time.Now()
	obs, err := e.Reset(ctx)
	if err != nil {
		return nil, err
	}

	ms := metrics.Default(e.opts.Tolerance)
	ep := &Episode{Policy: p.Name()}
	for step := 0; step < horizon; step++ {
		action := p.Act(obs)
		res, err := e.Step(ctx, action)
		if err != nil {
			return ep, err
		}
		obs = res.Obs

		ep.Times = append(ep.Times, float64(step+1)*e.opts.Dt)
		ep.States = append(ep.States, obs.State)
		ep.Positions = append(ep.Positions, obs.Positions)
		ep.Actions = append(ep.Actions, action)
		ep.Goals = append(ep.Goals, res.Goal)
		ep.Distances = append(ep.Distances, res.Distance)
		ep.Rewards = append(ep.Rewards, res.Reward)
		ep.Steps++
		metrics.ObserveAll(ms, metrics.Sample{
			Time:       ep.Times[step],
			Distance:   res.Distance,
			Reward:     res.Reward,
			Done:       res.Done,
			Velocities: obs.Velocities,
		})
		if observe != nil {
			observe(res)
		}
		if res.Done {
			ep.Done = true
			break
		}
	}

	ep.Elapsed = time.Since(start)
	ep.Metrics = metrics.Collect(ms)
	e.log.Info("episode finished",
		zap.String("policy", ep.Policy),
		zap.Int("steps", ep.Steps),
		zap.Bool("done", ep.Done),
		zap.Float64("final_distance", ep.Metrics["final_distance"]),
		zap.Duration("elapsed", ep.Elapsed))
	return ep, nil
}
