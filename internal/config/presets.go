package config

import (
	"math"
	"sort"
)

// Presets build fresh configurations by name.
var Presets = map[string]func() *Config{
	"scara3":  scara3,
	"planar2": planar2,
}

func GetPreset(name string) *Config {
	build, ok := Presets[name]
	if !ok {
		return nil
	}
	return build()
}

func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func defaultLoop() LoopConfig {
	return LoopConfig{
		RateHz:      DefaultRateHz,
		Dt:          DefaultDt,
		Integrator:  "rk4",
		Servo:       ServoConfig{Kp: DefaultKp, Kd: DefaultKd},
		MaxVelocity: DefaultMaxVelocity,
	}
}

func defaultTask() TaskConfig {
	return TaskConfig{
		GoalVelocity:    DefaultGoalVelocity,
		Slowness:        DefaultSlowness,
		Horizon:         DefaultHorizon,
		Tolerance:       DefaultTolerance,
		JointVelocities: true,
		PointVelocities: true,
	}
}

// scara3 is a three-motor SCARA: a 0.2 m column and two 0.3 m links turning
// about z, with a 0.1 m tool flange.
func scara3() *Config {
	lim := &LimitsConfig{Lower: -math.Pi / 2, Upper: math.Pi / 2}
	z := Vec3{0, 0, 1}
	task := defaultTask()
	task.JointOrder = []string{"motor1", "motor2", "motor3"}
	task.EndEffectorPoints = []Vec3{{0, 0, 0}, {0.05, 0, 0}}
	task.TargetPoints = []Vec3{{0.4, 0.3, 0.2}, {0.43, 0.34, 0.2}}
	task.ResetPositions = []float64{0, 0, 0}
	return &Config{
		Robot: RobotConfig{
			BaseLink: "base_link",
			EndLink:  "ee_link",
			Joints: []JointConfig{
				{Name: "motor1", Type: "revolute", Parent: "base_link", Child: "link1",
					Origin: OriginConfig{XYZ: Vec3{0, 0, 0.2}}, Axis: z, Limits: lim},
				{Name: "motor2", Type: "revolute", Parent: "link1", Child: "link2",
					Origin: OriginConfig{XYZ: Vec3{0.3, 0, 0}}, Axis: z, Limits: lim},
				{Name: "motor3", Type: "revolute", Parent: "link2", Child: "link3",
					Origin: OriginConfig{XYZ: Vec3{0.3, 0, 0}}, Axis: z, Limits: lim},
				{Name: "ee_joint", Type: "fixed", Parent: "link3", Child: "ee_link",
					Origin: OriginConfig{XYZ: Vec3{0.1, 0, 0}}},
			},
		},
		Task: task,
		Loop: defaultLoop(),
	}
}

// planar2 is two unit links turning about z.
func planar2() *Config {
	z := Vec3{0, 0, 1}
	task := defaultTask()
	task.JointOrder = []string{"j1", "j2"}
	task.EndEffectorPoints = []Vec3{{0, 0, 0}}
	task.TargetPoints = []Vec3{{1.2, 1.0, 0}}
	task.ResetPositions = []float64{0, 0}
	return &Config{
		Robot: RobotConfig{
			Joints: []JointConfig{
				{Name: "j1", Type: "revolute", Parent: "base", Child: "link1", Axis: z},
				{Name: "j2", Type: "revolute", Parent: "link1", Child: "link2",
					Origin: OriginConfig{XYZ: Vec3{1, 0, 0}}, Axis: z},
				{Name: "tool_joint", Type: "fixed", Parent: "link2", Child: "tool",
					Origin: OriginConfig{XYZ: Vec3{1, 0, 0}}},
			},
		},
		Task: task,
		Loop: defaultLoop(),
	}
}
