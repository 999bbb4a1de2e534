package config

import (
	"fmt"
	"os"

	"github.com/golang/geo/r3"
	"gopkg.in/yaml.v3"

	"github.com/san-kum/scarakin/internal/arm"
	"github.com/san-kum/scarakin/internal/env"
	"github.com/san-kum/scarakin/internal/kin"
	"github.com/san-kum/scarakin/internal/pipeline"
)

const (
	DefaultDt           = 0.01
	DefaultRateHz       = 100.0
	DefaultGoalVelocity = 0.5
	DefaultSlowness     = 1.0
	DefaultHorizon      = 500
	DefaultTolerance    = 0.005
	DefaultKp           = 100.0
	DefaultKd           = 20.0
	DefaultMaxVelocity  = 2.0
)

type Config struct {
	Robot RobotConfig `yaml:"robot"`
	Task  TaskConfig  `yaml:"task"`
	Loop  LoopConfig  `yaml:"loop"`
}

// Vec3 is written as a three-element YAML sequence.
type Vec3 [3]float64

func (v Vec3) Vector() r3.Vector { return r3.Vector{X: v[0], Y: v[1], Z: v[2]} }

type RobotConfig struct {
	// BaseLink and EndLink select the sub-chain to solve. Empty means the
	// first parent and the last child.
	BaseLink string        `yaml:"base_link,omitempty"`
	EndLink  string        `yaml:"end_link,omitempty"`
	Joints   []JointConfig `yaml:"joints"`
}

type JointConfig struct {
	Name   string        `yaml:"name"`
	Type   string        `yaml:"type"`
	Parent string        `yaml:"parent"`
	Child  string        `yaml:"child"`
	Origin OriginConfig  `yaml:"origin"`
	Axis   Vec3          `yaml:"axis"`
	Limits *LimitsConfig `yaml:"limits,omitempty"`
}

type OriginConfig struct {
	XYZ Vec3 `yaml:"xyz"`
	RPY Vec3 `yaml:"rpy"`
}

type LimitsConfig struct {
	Lower float64 `yaml:"lower"`
	Upper float64 `yaml:"upper"`
}

type TaskConfig struct {
	JointOrder        []string  `yaml:"joint_order,omitempty"`
	EndEffectorPoints []Vec3    `yaml:"end_effector_points"`
	TargetPoints      []Vec3    `yaml:"target_points"`
	ResetPositions    []float64 `yaml:"reset_positions,omitempty"`
	GoalVelocity      float64   `yaml:"goal_velocity"`
	Slowness          float64   `yaml:"slowness"`
	Horizon           int       `yaml:"horizon"`
	Tolerance         float64   `yaml:"tolerance"`
	JointVelocities   bool      `yaml:"joint_velocities"`
	PointVelocities   bool      `yaml:"point_velocities"`
}

type LoopConfig struct {
	RateHz      float64     `yaml:"rate_hz"`
	Dt          float64     `yaml:"dt"`
	Seed        int64       `yaml:"seed"`
	Integrator  string      `yaml:"integrator"`
	Servo       ServoConfig `yaml:"servo"`
	MaxVelocity float64     `yaml:"max_velocity"`
}

type ServoConfig struct {
	Kp      float64 `yaml:"kp"`
	Ki      float64 `yaml:"ki"`
	Kd      float64 `yaml:"kd"`
	Limit   float64 `yaml:"limit,omitempty"`
	Damping float64 `yaml:"damping"`
}

// DefaultConfig is the three-joint SCARA preset.
func DefaultConfig() *Config {
	return scara3()
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	// a file that describes a robot replaces the default one entirely
	var probe struct {
		Robot *yaml.Node `yaml:"robot"`
	}
	if err := yaml.Unmarshal(data, &probe); err == nil && probe.Robot != nil {
		cfg.Robot = RobotConfig{}
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Segments converts the joint list into chain segments.
func (c *Config) Segments() ([]kin.Segment, error) {
	segs := make([]kin.Segment, 0, len(c.Robot.Joints))
	for _, j := range c.Robot.Joints {
		typ, err := kin.ParseJointType(j.Type)
		if err != nil {
			return nil, fmt.Errorf("joint %q: %w", j.Name, err)
		}
		seg := kin.Segment{
			Joint:  j.Name,
			Type:   typ,
			Parent: j.Parent,
			Child:  j.Child,
			XYZ:    j.Origin.XYZ.Vector(),
			RPY:    j.Origin.RPY.Vector(),
			Axis:   j.Axis.Vector(),
		}
		if j.Limits != nil {
			seg.Limits = kin.Limits{Lower: j.Limits.Lower, Upper: j.Limits.Upper}
		}
		segs = append(segs, seg)
	}
	return selectSpan(segs, c.Robot.BaseLink, c.Robot.EndLink)
}

func selectSpan(segs []kin.Segment, base, end string) ([]kin.Segment, error) {
	if len(segs) == 0 {
		return nil, fmt.Errorf("%w: no joints", kin.ErrInvalidChainConfiguration)
	}
	from, to := 0, len(segs)-1
	if base != "" {
		from = -1
		for i, s := range segs {
			if s.Parent == base {
				from = i
				break
			}
		}
		if from < 0 {
			return nil, fmt.Errorf("%w: base link %q is not a joint parent", kin.ErrInvalidChainConfiguration, base)
		}
	}
	if end != "" {
		to = -1
		for i := from; i < len(segs); i++ {
			if segs[i].Child == end {
				to = i
				break
			}
		}
		if to < 0 {
			return nil, fmt.Errorf("%w: end link %q is not reachable from %q",
				kin.ErrInvalidChainConfiguration, end, segs[from].Parent)
		}
	}
	return segs[from : to+1], nil
}

// Chain builds the kinematic chain.
func (c *Config) Chain() (*kin.Chain, error) {
	segs, err := c.Segments()
	if err != nil {
		return nil, err
	}
	return kin.NewChain(segs)
}

func (c *Config) Points() []r3.Vector  { return vectors(c.Task.EndEffectorPoints) }
func (c *Config) Targets() []r3.Vector { return vectors(c.Task.TargetPoints) }

func vectors(vs []Vec3) []r3.Vector {
	out := make([]r3.Vector, len(vs))
	for i, v := range vs {
		out[i] = v.Vector()
	}
	return out
}

// PipelineTask returns the estimator task.
func (c *Config) PipelineTask() pipeline.Task {
	return pipeline.Task{
		Points:          c.Points(),
		Targets:         c.Targets(),
		JointVelocities: c.Task.JointVelocities,
		PointVelocities: c.Task.PointVelocities,
	}
}

// Estimator builds the chain and the estimator in one go.
func (c *Config) Estimator() (*pipeline.Estimator, error) {
	chain, err := c.Chain()
	if err != nil {
		return nil, err
	}
	return pipeline.New(chain, c.PipelineTask())
}

// EnvOptions returns the episode options.
func (c *Config) EnvOptions() env.Options {
	opts := env.DefaultOptions()
	opts.ResetPositions = c.Task.ResetPositions
	opts.GoalVelocity = c.Task.GoalVelocity
	opts.Slowness = c.Task.Slowness
	opts.Tolerance = c.Task.Tolerance
	opts.Dt = c.Loop.Dt
	return opts
}

// ArmConfig returns the simulator settings for chain.
func (c *Config) ArmConfig(chain *kin.Chain) arm.Config {
	return arm.Config{
		Names:       chain.JointNames(),
		Limits:      chain.Limits(),
		Initial:     c.Task.ResetPositions,
		Kp:          c.Loop.Servo.Kp,
		Ki:          c.Loop.Servo.Ki,
		Kd:          c.Loop.Servo.Kd,
		Limit:       c.Loop.Servo.Limit,
		Damping:     c.Loop.Servo.Damping,
		MaxVelocity: c.Loop.MaxVelocity,
		Dt:          c.Loop.Dt,
		RateHz:      c.Loop.RateHz,
		Integrator:  c.Loop.Integrator,
	}
}
