// Package command turns policy actions into joint trajectory commands.
package command

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/san-kum/scarakin/internal/kin"
)

// Duration is a ROS-style time offset.
type Duration struct {
	Sec     int32
	Nanosec uint32
}

// NewDuration splits seconds into whole seconds and nanoseconds.
func NewDuration(seconds float64) Duration {
	if seconds <= 0 {
		return Duration{}
	}
	whole, frac := math.Modf(seconds)
	ns := math.Round(frac * 1e9)
	if ns >= 1e9 {
		whole++
		ns -= 1e9
	}
	return Duration{Sec: int32(whole), Nanosec: uint32(ns)}
}

// Seconds converts back to floating-point seconds.
func (d Duration) Seconds() float64 {
	return float64(d.Sec) + float64(d.Nanosec)/1e9
}

// Point is one trajectory waypoint. Velocities and Efforts are optional; a NaN
// effort marks the field as unused.
type Point struct {
	Positions     []float64
	Velocities    []float64
	Efforts       []float64
	TimeFromStart Duration
}

// Trajectory is an ordered position-per-joint command.
type Trajectory struct {
	JointNames []string
	Points     []Point
}

// Sink accepts trajectory commands, typically by publishing them to the robot
// controller.
type Sink interface {
	Publish(ctx context.Context, t Trajectory) error
}

// NewTrajectory wraps positions into a single-point trajectory that should be
// reached after slowness seconds.
func NewTrajectory(order []string, positions []float64, slowness float64) (Trajectory, error) {
	if len(positions) != len(order) {
		return Trajectory{}, fmt.Errorf("%w: %d positions for %d joints",
			kin.ErrDimensionMismatch, len(positions), len(order))
	}
	return Trajectory{
		JointNames: append([]string(nil), order...),
		Points: []Point{{
			Positions:     append([]float64(nil), positions...),
			TimeFromStart: NewDuration(slowness),
		}},
	}, nil
}

// NewGoalTrajectory is NewTrajectory with every joint commanded at speed and
// the efforts marked unused.
func NewGoalTrajectory(order []string, positions []float64, speed, slowness float64) (Trajectory, error) {
	t, err := NewTrajectory(order, positions, slowness)
	if err != nil {
		return Trajectory{}, err
	}
	p := &t.Points[0]
	p.Velocities = make([]float64, len(order))
	p.Efforts = make([]float64, len(order))
	for i := range order {
		p.Velocities[i] = speed
		p.Efforts[i] = math.NaN()
	}
	return t, nil
}

// Validate checks the trajectory against the expected joint order.
func (t Trajectory) Validate(order []string) error {
	if err := kin.ValidateJointOrder(order, t.JointNames); err != nil {
		return err
	}
	if len(t.Points) == 0 {
		return errors.New("command: trajectory has no points")
	}
	n := len(order)
	for i, p := range t.Points {
		if len(p.Positions) != n {
			return fmt.Errorf("%w: point %d has %d positions", kin.ErrDimensionMismatch, i, len(p.Positions))
		}
		if len(p.Velocities) != 0 && len(p.Velocities) != n {
			return fmt.Errorf("%w: point %d has %d velocities", kin.ErrDimensionMismatch, i, len(p.Velocities))
		}
		if len(p.Efforts) != 0 && len(p.Efforts) != n {
			return fmt.Errorf("%w: point %d has %d efforts", kin.ErrDimensionMismatch, i, len(p.Efforts))
		}
	}
	return nil
}

// Final returns the last waypoint.
func (t Trajectory) Final() Point {
	return t.Points[len(t.Points)-1]
}
