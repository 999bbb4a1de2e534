package command

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/san-kum/scarakin/internal/kin"
)

// ActionSpace bounds each joint target.
type ActionSpace struct {
	Low  []float64
	High []float64
}

// SymmetricSpace returns ±bound on n joints.
func SymmetricSpace(n int, bound float64) ActionSpace {
	s := ActionSpace{Low: make([]float64, n), High: make([]float64, n)}
	for i := 0; i < n; i++ {
		s.Low[i] = -bound
		s.High[i] = bound
	}
	return s
}

// SpaceFromLimits uses bounded joint limits and falls back to ±π/2.
func SpaceFromLimits(limits []kin.Limits) ActionSpace {
	s := SymmetricSpace(len(limits), math.Pi/2)
	for i, l := range limits {
		if l.Bounded() {
			s.Low[i], s.High[i] = l.Lower, l.Upper
		}
	}
	return s
}

// Dim is the number of joints.
func (s ActionSpace) Dim() int { return len(s.Low) }

// Contains reports whether a lies inside the bounds.
func (s ActionSpace) Contains(a []float64) bool {
	if len(a) != s.Dim() {
		return false
	}
	for i, v := range a {
		if v < s.Low[i] || v > s.High[i] {
			return false
		}
	}
	return true
}

// Clip returns a copy of a limited to the bounds.
func (s ActionSpace) Clip(a []float64) ([]float64, error) {
	if len(a) != s.Dim() {
		return nil, fmt.Errorf("%w: action has %d values, space has %d",
			kin.ErrDimensionMismatch, len(a), s.Dim())
	}
	out := make([]float64, len(a))
	for i, v := range a {
		out[i] = math.Max(s.Low[i], math.Min(s.High[i], v))
	}
	return out, nil
}

// Sample draws a uniform action.
func (s ActionSpace) Sample(rng *rand.Rand) []float64 {
	out := make([]float64, s.Dim())
	for i := range out {
		out[i] = s.Low[i] + rng.Float64()*(s.High[i]-s.Low[i])
	}
	return out
}

// VelocityStepper converts an action (target joint positions) into the next
// goal command by moving each joint at a constant speed toward its target.
type VelocityStepper struct {
	Speed float64
	goal  []float64
	vel   []float64
}

// NewVelocityStepper returns a stepper that moves joints at speed rad/s.
func NewVelocityStepper(speed float64) *VelocityStepper {
	return &VelocityStepper{Speed: speed}
}

// Reset starts the goal at the observed positions.
func (v *VelocityStepper) Reset(current []float64) {
	v.goal = append(v.goal[:0], current...)
	v.vel = make([]float64, len(current))
}

// Goal returns a copy of the current goal command.
func (v *VelocityStepper) Goal() []float64 {
	return append([]float64(nil), v.goal...)
}

// Velocities returns the velocity used in the last step.
func (v *VelocityStepper) Velocities() []float64 {
	return append([]float64(nil), v.vel...)
}

// Step advances the goal by dt seconds. A joint whose observed position is
// above its action target moves down, otherwise up.
func (v *VelocityStepper) Step(current, action []float64, dt float64) ([]float64, error) {
	if v.goal == nil {
		v.Reset(current)
	}
	if len(current) != len(v.goal) || len(action) != len(v.goal) {
		return nil, fmt.Errorf("%w: stepper tracks %d joints, got %d positions and %d targets",
			kin.ErrDimensionMismatch, len(v.goal), len(current), len(action))
	}
	for i := range v.goal {
		if current[i] > action[i] {
			v.vel[i] = -v.Speed
		} else {
			v.vel[i] = v.Speed
		}
		v.goal[i] += dt * v.vel[i]
	}
	return v.Goal(), nil
}
