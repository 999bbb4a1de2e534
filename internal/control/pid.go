package control

import "github.com/san-kum/scarakin/internal/dynamo"

// PID is a per-joint PID servo. The derivative term acts on the measured
// joint velocity so a jump in the target does not produce a kick.
type PID struct {
	Kp, Ki, Kd float64
	// Limit bounds each output when positive.
	Limit float64

	targets  []float64
	integral []float64
	prevT    float64
	first    bool
}

func NewPID(kp, ki, kd float64, targets []float64) *PID {
	p := &PID{Kp: kp, Ki: ki, Kd: kd, first: true}
	p.SetTargets(targets)
	return p
}

// SetTargets replaces the joint setpoints. The integral is kept, since
// targets move every tick while the arm tracks a goal.
func (p *PID) SetTargets(targets []float64) {
	p.targets = append(p.targets[:0], targets...)
	if len(p.integral) != len(targets) {
		p.integral = make([]float64, len(targets))
	}
}

// Targets returns a copy of the current setpoints.
func (p *PID) Targets() []float64 {
	return append([]float64(nil), p.targets...)
}

func (p *PID) Compute(x dynamo.State, t float64) dynamo.Control {
	n := len(p.targets)
	u := make(dynamo.Control, n)
	if len(x) < 2*n {
		return u
	}
	q, qd := x.Split()

	dt := 0.0
	if !p.first {
		dt = t - p.prevT
	}
	p.first = false
	p.prevT = t

	for i := 0; i < n; i++ {
		err := p.targets[i] - q[i]
		if dt > 0 {
			p.integral[i] += err * dt
		}
		u[i] = p.Kp*err + p.Ki*p.integral[i] - p.Kd*qd[i]
		if p.Limit > 0 {
			u[i] = clamp(u[i], -p.Limit, p.Limit)
		}
	}
	return u
}

// Reset clears integral and timing state
func (p *PID) Reset() {
	for i := range p.integral {
		p.integral[i] = 0
	}
	p.first = true
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
