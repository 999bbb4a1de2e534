package config

import (
	"fmt"
	"slices"

	"go.uber.org/multierr"

	"github.com/san-kum/scarakin/internal/integrators"
)

// Validate reports every problem with the configuration at once.
func (c *Config) Validate() error {
	var errs error
	add := func(format string, args ...any) {
		errs = multierr.Append(errs, fmt.Errorf(format, args...))
	}

	chain, err := c.Chain()
	if err != nil {
		errs = multierr.Append(errs, err)
	}

	t := c.Task
	if len(t.EndEffectorPoints) == 0 {
		add("task: no end_effector_points")
	}
	if len(t.TargetPoints) != len(t.EndEffectorPoints) {
		add("task: %d target_points for %d end_effector_points", len(t.TargetPoints), len(t.EndEffectorPoints))
	}
	if t.Tolerance <= 0 {
		add("task: tolerance must be positive, got %v", t.Tolerance)
	}
	if t.Slowness < 0 {
		add("task: slowness must not be negative, got %v", t.Slowness)
	}
	if t.GoalVelocity <= 0 {
		add("task: goal_velocity must be positive, got %v", t.GoalVelocity)
	}
	if t.Horizon <= 0 {
		add("task: horizon must be positive, got %d", t.Horizon)
	}
	if chain != nil {
		n := chain.JointCount()
		if len(t.ResetPositions) != 0 && len(t.ResetPositions) != n {
			add("task: %d reset_positions for %d joints", len(t.ResetPositions), n)
		} else {
			names := chain.JointNames()
			for i, l := range chain.Limits() {
				if i < len(t.ResetPositions) && l.Clamp(t.ResetPositions[i]) != t.ResetPositions[i] {
					add("task: reset position %v of %s is outside [%v, %v]", t.ResetPositions[i], names[i], l.Lower, l.Upper)
				}
			}
		}
		if len(t.JointOrder) != 0 && !slices.Equal(t.JointOrder, chain.JointNames()) {
			add("task: joint_order %v does not match chain joints %v", t.JointOrder, chain.JointNames())
		}
	}

	l := c.Loop
	if l.Dt <= 0 {
		add("loop: dt must be positive, got %v", l.Dt)
	}
	if l.RateHz <= 0 {
		add("loop: rate_hz must be positive, got %v", l.RateHz)
	}
	if l.Servo.Limit < 0 {
		add("loop: servo limit must not be negative, got %v", l.Servo.Limit)
	}
	if l.MaxVelocity < 0 {
		add("loop: max_velocity must not be negative, got %v", l.MaxVelocity)
	}
	if l.Integrator != "" && !slices.Contains(integrators.Names(), l.Integrator) {
		add("loop: unknown integrator %q (have %v)", l.Integrator, integrators.Names())
	}
	return errs
}

// Problems splits a Validate error into its parts.
func Problems(err error) []error {
	if err == nil {
		return nil
	}
	return multierr.Errors(err)
}
