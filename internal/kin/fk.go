package kin

import (
	"fmt"

	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/num/quat"
)

// Pose is the position and orientation of one link relative to another.
type Pose struct {
	Translation r3.Vector
	Rotation    *mat.Dense
}

// Transform returns the pose as a homogeneous transform.
func (p Pose) Transform() Transform {
	return NewTransform(p.Rotation, p.Translation)
}

// Quaternion converts the rotation to a unit quaternion.
func (p Pose) Quaternion() (quat.Number, error) {
	return QuaternionFromMatrix(p.Rotation)
}

// ComputePose returns the pose of endLink in baseLink coordinates. Intermediate
// rotations are composed as-is; nothing is renormalized.
func ComputePose(c *Chain, angles []float64, baseLink, endLink string) (Pose, error) {
	bi, ok := c.index[baseLink]
	if !ok {
		return Pose{}, fmt.Errorf("%w: unknown base link %q", ErrInvalidChainConfiguration, baseLink)
	}
	ei, ok := c.index[endLink]
	if !ok {
		return Pose{}, fmt.Errorf("%w: unknown end link %q", ErrInvalidChainConfiguration, endLink)
	}
	if ei < bi {
		return Pose{}, fmt.Errorf("%w: link %q is not reachable from %q", ErrInvalidChainConfiguration, endLink, baseLink)
	}

	frames, err := c.walk(angles)
	if err != nil {
		return Pose{}, err
	}

	t := frames.links[ei]
	if bi != 0 {
		t = frames.links[bi].Inverse().Mul(t)
	}
	return Pose{Translation: t.Translation(), Rotation: t.Rotation()}, nil
}

// EndPose is ComputePose from the chain's base link to its end link.
func EndPose(c *Chain, angles []float64) (Pose, error) {
	return ComputePose(c, angles, c.BaseLink(), c.EndLink())
}
