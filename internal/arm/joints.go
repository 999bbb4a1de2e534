package arm

import "github.com/san-kum/scarakin/internal/dynamo"

// joints is a bank of independent unit-inertia joints with viscous damping:
// q' = qd, qd' = u - damping*qd.
type joints struct {
	n       int
	damping float64
}

func (j *joints) Derive(x dynamo.State, u dynamo.Control, t float64) dynamo.State {
	dx := make(dynamo.State, 2*j.n)
	for i := 0; i < j.n; i++ {
		qd := x[j.n+i]
		dx[i] = qd
		dx[j.n+i] = u[i] - j.damping*qd
	}
	return dx
}

func (j *joints) StateDim() int   { return 2 * j.n }
func (j *joints) ControlDim() int { return j.n }
