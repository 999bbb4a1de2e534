package kin

import (
	"math"

	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/mat"
)

// Transform is a rigid homogeneous transform stored as a 4x4 matrix.
type Transform struct {
	h *mat.Dense
}

// Identity returns the identity transform.
func Identity() Transform {
	h := mat.NewDense(4, 4, nil)
	for i := 0; i < 4; i++ {
		h.Set(i, i, 1)
	}
	return Transform{h: h}
}

// NewTransform builds a transform from a 3x3 rotation and a translation.
func NewTransform(rot mat.Matrix, p r3.Vector) Transform {
	t := Identity()
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			t.h.Set(i, j, rot.At(i, j))
		}
	}
	t.h.Set(0, 3, p.X)
	t.h.Set(1, 3, p.Y)
	t.h.Set(2, 3, p.Z)
	return t
}

// Translation returns a pure translation.
func Translation(p r3.Vector) Transform {
	return NewTransform(RotX(0), p)
}

// FromXYZRPY builds the transform used by joint origins: translate by xyz, then
// rotate by R = Rz(yaw)·Ry(pitch)·Rx(roll).
func FromXYZRPY(xyz, rpy r3.Vector) Transform {
	var r, tmp mat.Dense
	tmp.Mul(RotY(rpy.Y), RotX(rpy.X))
	r.Mul(RotZ(rpy.Z), &tmp)
	return NewTransform(&r, xyz)
}

// RotX returns the rotation about the X axis by angle radians.
func RotX(angle float64) *mat.Dense {
	s, c := math.Sincos(angle)
	return mat.NewDense(3, 3, []float64{
		1, 0, 0,
		0, c, -s,
		0, s, c,
	})
}

// RotY returns the rotation about the Y axis by angle radians.
func RotY(angle float64) *mat.Dense {
	s, c := math.Sincos(angle)
	return mat.NewDense(3, 3, []float64{
		c, 0, s,
		0, 1, 0,
		-s, 0, c,
	})
}

// RotZ returns the rotation about the Z axis by angle radians.
func RotZ(angle float64) *mat.Dense {
	s, c := math.Sincos(angle)
	return mat.NewDense(3, 3, []float64{
		c, -s, 0,
		s, c, 0,
		0, 0, 1,
	})
}

// AxisAngle returns the rotation about a unit axis by angle radians (Rodrigues).
func AxisAngle(axis r3.Vector, angle float64) *mat.Dense {
	s, c := math.Sincos(angle)
	v := 1 - c
	x, y, z := axis.X, axis.Y, axis.Z
	return mat.NewDense(3, 3, []float64{
		c + x*x*v, x*y*v - z*s, x*z*v + y*s,
		y*x*v + z*s, c + y*y*v, y*z*v - x*s,
		z*x*v - y*s, z*y*v + x*s, c + z*z*v,
	})
}

// Mul composes t followed by o (t·o).
func (t Transform) Mul(o Transform) Transform {
	out := mat.NewDense(4, 4, nil)
	out.Mul(t.h, o.h)
	return Transform{h: out}
}

// Inverse returns the inverse rigid transform (Rᵀ, −Rᵀp).
func (t Transform) Inverse() Transform {
	var rt mat.Dense
	rt.CloneFrom(t.Rotation().T())
	p := t.Translation()
	return NewTransform(&rt, rotate(&rt, p).Mul(-1))
}

// Rotation returns a copy of the upper-left 3x3 block.
func (t Transform) Rotation() *mat.Dense {
	r := mat.NewDense(3, 3, nil)
	r.Copy(t.h.Slice(0, 3, 0, 3))
	return r
}

// Translation returns the translation column.
func (t Transform) Translation() r3.Vector {
	return r3.Vector{X: t.h.At(0, 3), Y: t.h.At(1, 3), Z: t.h.At(2, 3)}
}

// RotateVector applies only the rotational part.
func (t Transform) RotateVector(v r3.Vector) r3.Vector {
	return r3.Vector{
		X: t.h.At(0, 0)*v.X + t.h.At(0, 1)*v.Y + t.h.At(0, 2)*v.Z,
		Y: t.h.At(1, 0)*v.X + t.h.At(1, 1)*v.Y + t.h.At(1, 2)*v.Z,
		Z: t.h.At(2, 0)*v.X + t.h.At(2, 1)*v.Y + t.h.At(2, 2)*v.Z,
	}
}

// Matrix returns a copy of the homogeneous matrix.
func (t Transform) Matrix() *mat.Dense {
	return mat.DenseCopyOf(t.h)
}

func rotate(r mat.Matrix, v r3.Vector) r3.Vector {
	return r3.Vector{
		X: r.At(0, 0)*v.X + r.At(0, 1)*v.Y + r.At(0, 2)*v.Z,
		Y: r.At(1, 0)*v.X + r.At(1, 1)*v.Y + r.At(1, 2)*v.Z,
		Z: r.At(2, 0)*v.X + r.At(2, 1)*v.Y + r.At(2, 2)*v.Z,
	}
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func finiteVector(v r3.Vector) bool {
	return isFinite(v.X) && isFinite(v.Y) && isFinite(v.Z)
}
