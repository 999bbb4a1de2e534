// Package state flattens per-tick kinematic quantities into the observation
// vector consumed by a policy.
package state

import (
	"fmt"

	"github.com/golang/geo/r3"

	"github.com/san-kum/scarakin/internal/kin"
)

// Layout fixes the shape of the state vector for one configuration:
//
//	[joint positions] [joint velocities?] [point errors xyz...] [point velocities xyz...?]
type Layout struct {
	JointCount      int
	PointCount      int
	JointVelocities bool
	PointVelocities bool
}

// JointDim is the length of the joint block.
func (l Layout) JointDim() int {
	if l.JointVelocities {
		return 2 * l.JointCount
	}
	return l.JointCount
}

// Dim is the total state length.
func (l Layout) Dim() int {
	d := l.JointDim() + 3*l.PointCount
	if l.PointVelocities {
		d += 3 * l.PointCount
	}
	return d
}

// Assemble concatenates the joint state, the flattened point errors and the
// flattened point velocities. Values are copied without transformation.
func (l Layout) Assemble(jointState []float64, pointErrors, pointVelocities []r3.Vector) ([]float64, error) {
	if len(jointState) != l.JointDim() {
		return nil, fmt.Errorf("%w: joint state has %d values, layout expects %d",
			kin.ErrDimensionMismatch, len(jointState), l.JointDim())
	}
	if len(pointErrors) != l.PointCount {
		return nil, fmt.Errorf("%w: got %d point errors, layout expects %d",
			kin.ErrDimensionMismatch, len(pointErrors), l.PointCount)
	}
	wantVel := 0
	if l.PointVelocities {
		wantVel = l.PointCount
	}
	if len(pointVelocities) != wantVel {
		return nil, fmt.Errorf("%w: got %d point velocities, layout expects %d",
			kin.ErrDimensionMismatch, len(pointVelocities), wantVel)
	}

	out := make([]float64, 0, l.Dim())
	out = append(out, jointState...)
	out = appendVectors(out, pointErrors)
	out = appendVectors(out, pointVelocities)
	return out, nil
}

// Split is the inverse of Assemble for a vector produced with this layout.
func (l Layout) Split(s []float64) (jointState []float64, pointErrors, pointVelocities []r3.Vector, err error) {
	if len(s) != l.Dim() {
		return nil, nil, nil, fmt.Errorf("%w: state has %d values, layout expects %d",
			kin.ErrDimensionMismatch, len(s), l.Dim())
	}
	jd := l.JointDim()
	jointState = s[:jd]
	pointErrors = vectors(s[jd : jd+3*l.PointCount])
	if l.PointVelocities {
		pointVelocities = vectors(s[jd+3*l.PointCount:])
	}
	return jointState, pointErrors, pointVelocities, nil
}

// Flatten lays out vectors as x0 y0 z0 x1 y1 z1 ...
func Flatten(vs []r3.Vector) []float64 {
	return appendVectors(make([]float64, 0, 3*len(vs)), vs)
}

func appendVectors(dst []float64, vs []r3.Vector) []float64 {
	for _, v := range vs {
		dst = append(dst, v.X, v.Y, v.Z)
	}
	return dst
}

func vectors(flat []float64) []r3.Vector {
	out := make([]r3.Vector, len(flat)/3)
	for i := range out {
		out[i] = r3.Vector{X: flat[3*i], Y: flat[3*i+1], Z: flat[3*i+2]}
	}
	return out
}
