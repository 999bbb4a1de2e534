// Package pipeline runs the per-tick kinematic estimation: one joint-state
// snapshot in, one observation out.
//
//	snapshot -> forward kinematics -> chain Jacobian -> point transport -> state vector
//
// An [Estimator] holds only configuration-lifetime data and is safe to share
// between goroutines.
package pipeline

import (
	"fmt"

	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/num/quat"

	"github.com/san-kum/scarakin/internal/feed"
	"github.com/san-kum/scarakin/internal/kin"
	"github.com/san-kum/scarakin/internal/state"
)

// Task is the configuration-lifetime input of an Estimator.
type Task struct {
	// Points are offsets from the end-link origin in end-link coordinates.
	Points []r3.Vector
	// Targets are the desired world positions of Points, in the same order.
	Targets []r3.Vector
	// JointVelocities includes joint velocities in the state vector.
	JointVelocities bool
	// PointVelocities includes point velocities in the state vector.
	PointVelocities bool
}

// Observation is everything computed for one tick.
type Observation struct {
	Seq             uint64
	Positions       []float64
	Velocities      []float64
	Pose            kin.Pose
	Orientation     quat.Number
	Jacobian        *mat.Dense
	Points          []r3.Vector
	PointErrors     []r3.Vector
	PointJacobians  *mat.Dense
	PointVelocities []r3.Vector
	State           []float64
}

// Estimator turns snapshots into observations for one chain and task.
type Estimator struct {
	chain   *kin.Chain
	order   []string
	points  []r3.Vector
	targets []r3.Vector
	layout  state.Layout
}

// New validates the task against the chain.
func New(chain *kin.Chain, task Task) (*Estimator, error) {
	if chain == nil {
		return nil, fmt.Errorf("%w: nil chain", kin.ErrInvalidChainConfiguration)
	}
	if chain.JointCount() == 0 {
		return nil, fmt.Errorf("%w: chain has no moving joints", kin.ErrDimensionMismatch)
	}
	if len(task.Points) == 0 {
		return nil, fmt.Errorf("%w: no end-effector points", kin.ErrDimensionMismatch)
	}
	if len(task.Targets) != len(task.Points) {
		return nil, fmt.Errorf("%w: %d targets for %d points",
			kin.ErrDimensionMismatch, len(task.Targets), len(task.Points))
	}

	e := &Estimator{
		chain:   chain,
		order:   chain.JointNames(),
		points:  append([]r3.Vector(nil), task.Points...),
		targets: append([]r3.Vector(nil), task.Targets...),
		layout: state.Layout{
			JointCount:      chain.JointCount(),
			PointCount:      len(task.Points),
			JointVelocities: task.JointVelocities,
			PointVelocities: task.PointVelocities,
		},
	}
	return e, nil
}

// Layout returns the state vector layout.
func (e *Estimator) Layout() state.Layout { return e.layout }

// JointOrder returns the expected joint-name order.
func (e *Estimator) JointOrder() []string {
	return append([]string(nil), e.order...)
}

// Chain returns the shared chain.
func (e *Estimator) Chain() *kin.Chain { return e.chain }

// Estimate computes the observation of one snapshot.
func (e *Estimator) Estimate(s feed.Snapshot) (*Observation, error) {
	if err := kin.ValidateJointOrder(e.order, s.Names); err != nil {
		return nil, err
	}
	n := e.chain.JointCount()
	if len(s.Positions) != n {
		return nil, fmt.Errorf("%w: snapshot has %d positions for %d joints",
			kin.ErrDimensionMismatch, len(s.Positions), n)
	}
	needVel := e.layout.JointVelocities || e.layout.PointVelocities
	if needVel && len(s.Velocities) != n {
		return nil, fmt.Errorf("%w: snapshot has %d velocities for %d joints",
			kin.ErrDimensionMismatch, len(s.Velocities), n)
	}

	pose, jac, err := kin.PoseAndJacobian(e.chain, s.Positions)
	if err != nil {
		return nil, err
	}
	orientation, err := pose.Quaternion()
	if err != nil {
		return nil, err
	}

	points, err := kin.TransportedPositions(e.points, pose.Translation, pose.Rotation)
	if err != nil {
		return nil, err
	}
	pointErrors := make([]r3.Vector, len(points))
	for i, p := range points {
		pointErrors[i] = p.Sub(e.targets[i])
	}

	pointJac, err := kin.TransportedJacobians(jac, e.points, pose.Rotation)
	if err != nil {
		return nil, err
	}

	obs := &Observation{
		Seq:            s.Seq,
		Positions:      s.Positions,
		Velocities:     s.Velocities,
		Pose:           pose,
		Orientation:    orientation,
		Jacobian:       jac,
		Points:         points,
		PointErrors:    pointErrors,
		PointJacobians: pointJac,
	}

	var velBlock []r3.Vector
	if len(s.Velocities) == n {
		obs.PointVelocities, err = kin.TransportedVelocities(jac, e.points, pose.Rotation, s.Velocities)
		if err != nil {
			return nil, err
		}
	}
	if e.layout.PointVelocities {
		velBlock = obs.PointVelocities
	}

	jointState := s.Positions
	if e.layout.JointVelocities {
		jointState = s.JointState()
	}
	obs.State, err = e.layout.Assemble(jointState, pointErrors, velBlock)
	if err != nil {
		return nil, err
	}
	return obs, nil
}

// Distance is the root-mean-square of the flattened point errors.
func (o *Observation) Distance() float64 {
	return RMSE(state.Flatten(o.PointErrors))
}
