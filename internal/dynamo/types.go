package dynamo

import (
	"fmt"
	"math"
)

// State is a simulation state vector. Joint models lay it out as positions
// followed by velocities.
type State []float64

func (s State) Clone() State {
	c := make(State, len(s))
	copy(c, s)
	return c
}

func (s State) IsValid() bool {
	for _, v := range s {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// Split returns the position and velocity halves of s. The halves alias s.
func (s State) Split() (q, qd []float64) {
	half := len(s) / 2
	return s[:half], s[half:]
}

// JointState builds a position/velocity state.
func JointState(q, qd []float64) State {
	s := make(State, 0, len(q)+len(qd))
	s = append(s, q...)
	return append(s, qd...)
}

type Control []float64

// System is an ODE dx/dt = f(x, u, t).
type System interface {
	Derive(x State, u Control, t float64) State
	StateDim() int
	ControlDim() int
}

type Integrator interface {
	Step(dyn System, x State, u Control, t float64, dt float64) State
}

type Controller interface {
	Compute(x State, t float64) Control
}

// CheckDims verifies x and u against the system dimensions.
func CheckDims(dyn System, x State, u Control) error {
	if len(x) != dyn.StateDim() || len(u) != dyn.ControlDim() {
		return fmt.Errorf("%w: state %d/%d, control %d/%d", ErrDimensionMismatch,
			len(x), dyn.StateDim(), len(u), dyn.ControlDim())
	}
	return nil
}
