package kin

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/num/quat"
)

// RotationTolerance bounds the orthonormality error accepted by
// QuaternionFromMatrix and the deviation of the result from unit length.
const RotationTolerance = 1e-6

// QuaternionFromMatrix converts a proper rotation matrix to a unit quaternion
// with a non-negative real part. The result is never renormalized: a matrix
// that does not produce a unit quaternion is rejected with ErrInvalidRotation.
func QuaternionFromMatrix(r mat.Matrix) (quat.Number, error) {
	if err := checkRotation(r); err != nil {
		return quat.Number{}, err
	}
	if err := checkOrthonormal(r); err != nil {
		return quat.Number{}, err
	}

	m00, m01, m02 := r.At(0, 0), r.At(0, 1), r.At(0, 2)
	m10, m11, m12 := r.At(1, 0), r.At(1, 1), r.At(1, 2)
	m20, m21, m22 := r.At(2, 0), r.At(2, 1), r.At(2, 2)

	var q quat.Number
	trace := m00 + m11 + m22
	switch {
	case trace > 0:
		s := 2 * math.Sqrt(trace+1)
		q = quat.Number{Real: s / 4, Imag: (m21 - m12) / s, Jmag: (m02 - m20) / s, Kmag: (m10 - m01) / s}
	case m00 > m11 && m00 > m22:
		s := 2 * math.Sqrt(1+m00-m11-m22)
		q = quat.Number{Real: (m21 - m12) / s, Imag: s / 4, Jmag: (m01 + m10) / s, Kmag: (m02 + m20) / s}
	case m11 > m22:
		s := 2 * math.Sqrt(1+m11-m00-m22)
		q = quat.Number{Real: (m02 - m20) / s, Imag: (m01 + m10) / s, Jmag: s / 4, Kmag: (m12 + m21) / s}
	default:
		s := 2 * math.Sqrt(1+m22-m00-m11)
		q = quat.Number{Real: (m10 - m01) / s, Imag: (m02 + m20) / s, Jmag: (m12 + m21) / s, Kmag: s / 4}
	}

	if norm := quat.Abs(q); math.IsNaN(norm) || math.Abs(norm-1) > RotationTolerance {
		return quat.Number{}, fmt.Errorf("%w: quaternion magnitude %g", ErrInvalidRotation, norm)
	}
	if q.Real < 0 {
		q = quat.Scale(-1, q)
	}
	return q, nil
}

// MatrixFromQuaternion returns the rotation matrix of a unit quaternion.
func MatrixFromQuaternion(q quat.Number) (*mat.Dense, error) {
	if norm := quat.Abs(q); math.Abs(norm-1) > RotationTolerance {
		return nil, fmt.Errorf("%w: quaternion magnitude %g", ErrInvalidRotation, norm)
	}
	w, x, y, z := q.Real, q.Imag, q.Jmag, q.Kmag
	return mat.NewDense(3, 3, []float64{
		1 - 2*(y*y+z*z), 2 * (x*y - z*w), 2 * (x*z + y*w),
		2 * (x*y + z*w), 1 - 2*(x*x+z*z), 2 * (y*z - x*w),
		2 * (x*z - y*w), 2 * (y*z + x*w), 1 - 2*(x*x+y*y),
	}), nil
}

func checkOrthonormal(r mat.Matrix) error {
	var rrt mat.Dense
	rrt.Mul(r, r.T())
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			want := 0.0
			if i == j {
				want = 1
			}
			if d := rrt.At(i, j) - want; math.IsNaN(d) || math.Abs(d) > RotationTolerance {
				return fmt.Errorf("%w: columns are not orthonormal", ErrInvalidRotation)
			}
		}
	}
	if det := mat.Det(r); math.Abs(det-1) > RotationTolerance {
		return fmt.Errorf("%w: determinant %g", ErrInvalidRotation, det)
	}
	return nil
}
