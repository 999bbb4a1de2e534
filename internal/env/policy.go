package env

import (
	"math/rand"

	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/scarakin/internal/command"
	"github.com/san-kum/scarakin/internal/pipeline"
	"github.com/san-kum/scarakin/internal/state"
)

// Policy picks joint targets from an observation.
type Policy interface {
	Name() string
	Act(obs *pipeline.Observation) []float64
}

// Hold keeps the current joint positions.
type Hold struct{}

func (Hold) Name() string { return "hold" }

func (Hold) Act(obs *pipeline.Observation) []float64 {
	return append([]float64(nil), obs.Positions...)
}

// Constant always targets the same joint positions.
type Constant struct {
	Target []float64
}

func (Constant) Name() string { return "constant" }

func (c Constant) Act(*pipeline.Observation) []float64 {
	return append([]float64(nil), c.Target...)
}

// Random samples uniform targets from an action space.
type Random struct {
	space command.ActionSpace
	rng   *rand.Rand
}

func NewRandom(space command.ActionSpace, seed int64) *Random {
	return &Random{space: space, rng: rand.New(rand.NewSource(seed))}
}

func (*Random) Name() string { return "random" }

func (r *Random) Act(*pipeline.Observation) []float64 {
	return r.space.Sample(r.rng)
}

// Reach steps the joints along the damped least-squares solution of the
// stacked point Jacobians: dq = (JᵀJ + λ²I)⁻¹ Jᵀ(-e).
type Reach struct {
	Gain    float64
	Damping float64
}

func (Reach) Name() string { return "reach" }

func (r Reach) Act(obs *pipeline.Observation) []float64 {
	q := append([]float64(nil), obs.Positions...)
	j := obs.PointJacobians
	if j == nil {
		return q
	}
	_, n := j.Dims()
	e := state.Flatten(obs.PointErrors)
	ev := mat.NewVecDense(len(e), e)
	ev.ScaleVec(-1, ev)

	var jtj mat.Dense
	jtj.Mul(j.T(), j)
	lambda2 := r.Damping * r.Damping
	for i := 0; i < n; i++ {
		jtj.Set(i, i, jtj.At(i, i)+lambda2)
	}
	var rhs mat.VecDense
	rhs.MulVec(j.T(), ev)

	var dq mat.VecDense
	if err := dq.SolveVec(&jtj, &rhs); err != nil {
		return q
	}
	gain := r.Gain
	if gain == 0 {
		gain = 1
	}
	for i := range q {
		q[i] += gain * dq.AtVec(i)
	}
	return q
}
