package main

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"os"
	"os/signal"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/san-kum/scarakin/internal/arm"
	"github.com/san-kum/scarakin/internal/config"
	"github.com/san-kum/scarakin/internal/env"
	"github.com/san-kum/scarakin/internal/feed"
	"github.com/san-kum/scarakin/internal/optim"
	"github.com/san-kum/scarakin/internal/storage"
	"github.com/san-kum/scarakin/internal/viz"
)

func newPolicy(e *env.Env, cfg *config.Config) (env.Policy, error) {
	switch policyName {
	case "hold":
		return env.Hold{}, nil
	case "constant":
		if len(targetFlag) != e.ActionSpace().Dim() {
			return nil, fmt.Errorf("constant policy needs --target with %d values", e.ActionSpace().Dim())
		}
		return env.Constant{Target: targetFlag}, nil
	case "random":
		return env.NewRandom(e.ActionSpace(), cfg.Loop.Seed), nil
	case "reach":
		return env.Reach{Gain: 1, Damping: 0.05}, nil
	}
	return nil, fmt.Errorf("unknown policy: %s", policyName)
}

func runEpisode(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	log, err := newLogger()
	if err != nil {
		return err
	}
	defer log.Sync()

	est, err := cfg.Estimator()
	if err != nil {
		return err
	}
	sim, err := arm.New(cfg.ArmConfig(est.Chain()), nil, log.Named("arm"))
	if err != nil {
		return err
	}
	e, err := env.New(est, arm.Lockstep{Sim: sim}, sim, cfg.EnvOptions(), log.Named("env"))
	if err != nil {
		return err
	}
	policy, err := newPolicy(e, cfg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	ep, err := env.Run(ctx, e, policy, cfg.Task.Horizon, nil)
	if err != nil {
		return err
	}

	info := storage.RunInfo{
		Preset:     preset,
		Policy:     policy.Name(),
		Seed:       cfg.Loop.Seed,
		Dt:         cfg.Loop.Dt,
		Horizon:    cfg.Task.Horizon,
		Integrator: cfg.Loop.Integrator,
		Joints:     est.JointOrder(),
	}
	if asJSON {
		return storage.ExportJSON(os.Stdout, info, ep)
	}

	st := storage.New(dataDir)
	if err := st.Init(); err != nil {
		return err
	}
	runID, err := st.Save(info, ep)
	if err != nil {
		return err
	}

	fmt.Printf("completed in %v\n", ep.Elapsed)
	fmt.Printf("run id: %s\n", runID)
	fmt.Printf("steps: %d (reached: %v)\n", ep.Steps, ep.Done)
	fmt.Println("\nmetrics:")
	names := make([]string, 0, len(ep.Metrics))
	for name := range ep.Metrics {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Printf("  %s: %.6f\n", name, ep.Metrics[name])
	}
	return nil
}

// runLive runs the simulated arm on its own clock. The environment reads the
// latest snapshot from a mailbox, as it would from the robot transport.
func runLive(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	est, err := cfg.Estimator()
	if err != nil {
		return err
	}

	box := feed.NewMailbox(est.JointOrder())
	defer box.Close()
	sim, err := arm.New(cfg.ArmConfig(est.Chain()), box, zap.NewNop())
	if err != nil {
		return err
	}
	e, err := env.New(est, box, sim, cfg.EnvOptions(), zap.NewNop())
	if err != nil {
		return err
	}
	policy, err := newPolicy(e, cfg)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	simErr := make(chan error, 1)
	go func() { simErr <- sim.Run(ctx) }()

	viz.SetTheme(themeName)
	model, err := viz.NewModel(ctx, e, policy, cfg.Task.Horizon, cfg.Targets(), preset)
	if err != nil {
		return err
	}
	if err := viz.Run(model); err != nil {
		return err
	}

	cancel()
	if err := <-simErr; err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	stats := box.Stats()
	fmt.Printf("snapshots published %d, consumed %d, dropped %d\n", stats.Published, stats.Consumed, stats.Dropped)
	return nil
}

func runBench(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	est, err := cfg.Estimator()
	if err != nil {
		return err
	}

	rng := rand.New(rand.NewSource(cfg.Loop.Seed))
	n := est.Chain().JointCount()
	snaps := make([]feed.Snapshot, benchTicks)
	for i := range snaps {
		q := make([]float64, n)
		qd := make([]float64, n)
		for j := range q {
			q[j] = rng.Float64()*2 - 1
			qd[j] = rng.Float64()*2 - 1
		}
		snaps[i] = feed.Snapshot{Seq: uint64(i + 1), Names: est.JointOrder(), Positions: q, Velocities: qd}
	}

	fmt.Printf("benchmarking %s (%d joints, %d points, state dim %d)\n\n",
		preset, n, est.Layout().PointCount, est.Layout().Dim())
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "MODE\tTICKS\tTIME\tTICKS/SEC")

	start := time.Now()
	for _, s := range snaps {
		if _, err := est.Estimate(s); err != nil {
			return err
		}
	}
	elapsed := time.Since(start)
	fmt.Fprintf(w, "sequential\t%d\t%v\t%.0f\n", len(snaps), elapsed, float64(len(snaps))/elapsed.Seconds())

	start = time.Now()
	_, errs := est.EstimateBatch(snaps)
	elapsed = time.Since(start)
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	fmt.Fprintf(w, "batch\t%d\t%v\t%.0f\n", len(snaps), elapsed, float64(len(snaps))/elapsed.Seconds())

	return w.Flush()
}

// runTune grid-searches the goal speed and servo stiffness with the reach
// policy on the lockstep simulator.
func runTune(cmd *cobra.Command, args []string) error {
	base, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	log, err := newLogger()
	if err != nil {
		return err
	}
	defer log.Sync()

	grid := optim.NewGridSearch(map[string][]float64{
		"goal_velocity": {0.25, 0.5, 1, 2},
		"kp":            {50, 100, 200},
	})
	eval := func(ctx context.Context, p map[string]float64) (map[string]float64, error) {
		cfg := *base
		cfg.Task.GoalVelocity = p["goal_velocity"]
		cfg.Loop.Servo.Kp = p["kp"]
		cfg.Loop.Servo.Kd = 2 * math.Sqrt(p["kp"])

		est, err := cfg.Estimator()
		if err != nil {
			return nil, err
		}
		sim, err := arm.New(cfg.ArmConfig(est.Chain()), nil, zap.NewNop())
		if err != nil {
			return nil, err
		}
		e, err := env.New(est, arm.Lockstep{Sim: sim}, sim, cfg.EnvOptions(), zap.NewNop())
		if err != nil {
			return nil, err
		}
		ep, err := env.Run(ctx, e, env.Reach{Gain: 1, Damping: 0.05}, cfg.Task.Horizon, nil)
		if err != nil {
			return nil, err
		}
		return ep.Metrics, nil
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	log.Info("tuning", zap.Int("trials", grid.Size()), zap.String("metric", metricName))
	best, value, trials, err := grid.Search(ctx, eval, metricName)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "GOAL_VELOCITY\tKP\t%s\n", metricName)
	for _, t := range trials {
		if t.Err != nil {
			fmt.Fprintf(w, "%.2f\t%.0f\terror: %v\n", t.Params["goal_velocity"], t.Params["kp"], t.Err)
			continue
		}
		fmt.Fprintf(w, "%.2f\t%.0f\t%.6f\n", t.Params["goal_velocity"], t.Params["kp"], t.Value)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	fmt.Printf("\nbest: goal_velocity=%.2f kp=%.0f (%s %.6f)\n", best["goal_velocity"], best["kp"], metricName, value)
	return nil
}
