package kin

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// ComputeJacobian returns the 6xN geometric Jacobian of the end link origin in
// base coordinates: rows 0-2 map joint rates to linear velocity, rows 3-5 to
// angular velocity. Singular configurations are returned as computed.
func ComputeJacobian(c *Chain, angles []float64) (*mat.Dense, error) {
	if err := requireJoints(c); err != nil {
		return nil, err
	}
	frames, err := c.walk(angles)
	if err != nil {
		return nil, err
	}
	return jacobianFrom(frames, len(c.joints)), nil
}

// PoseAndJacobian computes the end pose and Jacobian from one chain walk.
func PoseAndJacobian(c *Chain, angles []float64) (Pose, *mat.Dense, error) {
	if err := requireJoints(c); err != nil {
		return Pose{}, nil, err
	}
	frames, err := c.walk(angles)
	if err != nil {
		return Pose{}, nil, err
	}
	end := frames.links[len(frames.links)-1]
	pose := Pose{Translation: end.Translation(), Rotation: end.Rotation()}
	return pose, jacobianFrom(frames, len(c.joints)), nil
}

func jacobianFrom(frames *chainFrames, n int) *mat.Dense {
	j := mat.NewDense(6, n, nil)
	end := frames.links[len(frames.links)-1].Translation()
	for i, jf := range frames.joints {
		switch jf.typ {
		case Revolute:
			lin := jf.axis.Cross(end.Sub(jf.origin))
			setColumn(j, i, lin.X, lin.Y, lin.Z, jf.axis.X, jf.axis.Y, jf.axis.Z)
		case Prismatic:
			setColumn(j, i, jf.axis.X, jf.axis.Y, jf.axis.Z, 0, 0, 0)
		}
	}
	return j
}

func setColumn(m *mat.Dense, col int, vals ...float64) {
	for row, v := range vals {
		m.Set(row, col, v)
	}
}

// requireJoints rejects chains without moving joints; gonum has no 6x0 matrix.
func requireJoints(c *Chain) error {
	if c.JointCount() == 0 {
		return fmt.Errorf("%w: chain has no moving joints", ErrDimensionMismatch)
	}
	return nil
}
