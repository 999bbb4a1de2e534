package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/san-kum/scarakin/internal/config"
	"github.com/san-kum/scarakin/internal/viz"
)

var (
	dataDir    string
	configFile string
	preset     string
	logLevel   string

	dt           float64
	horizon      int
	tolerance    float64
	goalVelocity float64
	seed         int64
	integrator   string
	policyName   string
	targetFlag   []float64
	velocities   []float64
	asJSON       bool
	column       string
	metricName   string
	benchTicks   int
	themeName    string
)

// main is the entry point for the scarakin CLI.
func main() {
	rootCmd := &cobra.Command{
		Use:           "scarakin",
		Short:         "kinematic state estimation for a SCARA arm",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".scarakin", "data directory")
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path (yaml)")
	rootCmd.PersistentFlags().StringVar(&preset, "preset", "scara3", "preset configuration")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")

	fkCmd := &cobra.Command{
		Use:   "fk [angles...]",
		Short: "end-link pose and link positions",
		RunE:  runFK,
	}

	jacobianCmd := &cobra.Command{
		Use:   "jacobian [angles...]",
		Short: "6xN geometric Jacobian of the end link",
		RunE:  runJacobian,
	}

	observeCmd := &cobra.Command{
		Use:   "observe [angles...]",
		Short: "assemble the observation state vector for one joint reading",
		RunE:  runObserve,
	}
	observeCmd.Flags().Float64SliceVar(&velocities, "vel", nil, "joint velocities")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "run one reaching episode against the simulated arm",
		RunE:  runEpisode,
	}
	addEpisodeFlags(runCmd)
	runCmd.Flags().BoolVar(&asJSON, "json", false, "print the episode as JSON instead of saving it")

	liveCmd := &cobra.Command{
		Use:   "live",
		Short: "run an episode in real time with live visualization",
		RunE:  runLive,
	}
	addEpisodeFlags(liveCmd)
	liveCmd.Flags().StringVar(&themeName, "theme", "cyberpunk", "color theme ("+strings.Join(viz.ThemeNames(), ", ")+")")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list runs",
		RunE:  listRuns,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot a column of a run",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}
	plotCmd.Flags().StringVar(&column, "column", "distance", "column to plot")

	exportCSVCmd := &cobra.Command{
		Use:   "export-csv [run_id]",
		Short: "export run data to CSV",
		Args:  cobra.ExactArgs(1),
		RunE:  exportCSV,
	}

	exportJSONCmd := &cobra.Command{
		Use:   "export-json [run_id]",
		Short: "export run data to JSON",
		Args:  cobra.ExactArgs(1),
		RunE:  exportJSON,
	}

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list available presets",
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, p := range config.ListPresets() {
				fmt.Printf("  %s\n", p)
			}
			return nil
		},
	}

	saveConfigCmd := &cobra.Command{
		Use:   "save-config [path]",
		Short: "write the resolved configuration as yaml",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			return config.Save(args[0], cfg)
		},
	}

	benchCmd := &cobra.Command{
		Use:   "bench",
		Short: "benchmark estimator ticks per second",
		RunE:  runBench,
	}
	benchCmd.Flags().IntVar(&benchTicks, "ticks", 10000, "snapshots per measurement")

	tuneCmd := &cobra.Command{
		Use:   "tune",
		Short: "grid-search goal speed and servo stiffness",
		RunE:  runTune,
	}
	tuneCmd.Flags().IntVar(&horizon, "horizon", config.DefaultHorizon, "maximum steps per trial")
	tuneCmd.Flags().StringVar(&metricName, "metric", "mean_distance", "metric to minimise")

	rootCmd.AddCommand(fkCmd, jacobianCmd, observeCmd, runCmd, liveCmd, listCmd, plotCmd,
		exportCSVCmd, exportJSONCmd, presetsCmd, saveConfigCmd, benchCmd, tuneCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func addEpisodeFlags(cmd *cobra.Command) {
	cmd.Flags().Float64Var(&dt, "dt", config.DefaultDt, "control period")
	cmd.Flags().IntVar(&horizon, "horizon", config.DefaultHorizon, "maximum steps")
	cmd.Flags().Float64Var(&tolerance, "tolerance", config.DefaultTolerance, "point RMSE that ends the episode")
	cmd.Flags().Float64Var(&goalVelocity, "goal-velocity", config.DefaultGoalVelocity, "joint goal speed (rad/s)")
	cmd.Flags().Int64Var(&seed, "seed", 0, "random seed")
	cmd.Flags().StringVar(&integrator, "integrator", "rk4", "arm simulator integrator")
	cmd.Flags().StringVar(&policyName, "policy", "reach", "policy (hold, constant, random, reach)")
	cmd.Flags().Float64SliceVar(&targetFlag, "target", nil, "joint targets for the constant policy")
}

// loadConfig resolves preset, then config file, then explicitly set flags.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.GetPreset(preset)
	if cfg == nil {
		return nil, fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets())
	}
	if configFile != "" {
		loaded, err := config.Load(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
	}

	flags := cmd.Flags()
	if flags.Changed("dt") {
		cfg.Loop.Dt = dt
	}
	if flags.Changed("horizon") {
		cfg.Task.Horizon = horizon
	}
	if flags.Changed("tolerance") {
		cfg.Task.Tolerance = tolerance
	}
	if flags.Changed("goal-velocity") {
		cfg.Task.GoalVelocity = goalVelocity
	}
	if flags.Changed("seed") {
		cfg.Loop.Seed = seed
	}
	if flags.Changed("integrator") {
		cfg.Loop.Integrator = integrator
	}

	if err := cfg.Validate(); err != nil {
		for _, p := range config.Problems(err) {
			fmt.Fprintln(os.Stderr, "config:", p)
		}
		return nil, fmt.Errorf("invalid configuration")
	}
	return cfg, nil
}

func newLogger() (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(logLevel)
	if err != nil {
		return nil, err
	}
	cfg := zap.NewDevelopmentConfig()
	cfg.Level = zap.NewAtomicLevelAt(level)
	cfg.DisableStacktrace = true
	return cfg.Build()
}

func parseFloats(args []string) ([]float64, error) {
	out := make([]float64, len(args))
	for i, a := range args {
		v, err := strconv.ParseFloat(a, 64)
		if err != nil {
			return nil, fmt.Errorf("bad number %q: %w", a, err)
		}
		out[i] = v
	}
	return out, nil
}
