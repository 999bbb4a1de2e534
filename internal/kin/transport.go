package kin

import (
	"fmt"

	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/mat"
)

// TransportedPositions maps points given in end-link coordinates to base
// coordinates: translation + rotation·p.
func TransportedPositions(points []r3.Vector, translation r3.Vector, rotation mat.Matrix) ([]r3.Vector, error) {
	if err := checkPoints(points); err != nil {
		return nil, err
	}
	if err := checkRotation(rotation); err != nil {
		return nil, err
	}
	out := make([]r3.Vector, len(points))
	for i, p := range points {
		out[i] = translation.Add(rotate(rotation, p))
	}
	return out, nil
}

// TransportedJacobians returns the (3·M)xN translational Jacobian of every
// point, stacked in point order. Column i of a point's block is the column i of
// the translational rows plus ωᵢ × (rotation·p), ωᵢ being column i of the
// rotational rows.
func TransportedJacobians(jacobian mat.Matrix, points []r3.Vector, rotation mat.Matrix) (*mat.Dense, error) {
	n, err := checkJacobian(jacobian)
	if err != nil {
		return nil, err
	}
	if err := checkPoints(points); err != nil {
		return nil, err
	}
	if err := checkRotation(rotation); err != nil {
		return nil, err
	}

	out := mat.NewDense(3*len(points), n, nil)
	for m, p := range points {
		r := rotate(rotation, p)
		for i := 0; i < n; i++ {
			v := linearColumn(jacobian, i).Add(angularColumn(jacobian, i).Cross(r))
			out.Set(3*m, i, v.X)
			out.Set(3*m+1, i, v.Y)
			out.Set(3*m+2, i, v.Z)
		}
	}
	return out, nil
}

// TransportedRotationalJacobians returns the (3·M)xN rotational Jacobian of
// every point. All points of a rigid link share the link's angular velocity, so
// each block repeats the rotational rows.
func TransportedRotationalJacobians(jacobian mat.Matrix, pointCount int) (*mat.Dense, error) {
	n, err := checkJacobian(jacobian)
	if err != nil {
		return nil, err
	}
	if pointCount <= 0 {
		return nil, fmt.Errorf("%w: no end-effector points", ErrDimensionMismatch)
	}
	out := mat.NewDense(3*pointCount, n, nil)
	for m := 0; m < pointCount; m++ {
		for i := 0; i < n; i++ {
			w := angularColumn(jacobian, i)
			out.Set(3*m, i, w.X)
			out.Set(3*m+1, i, w.Y)
			out.Set(3*m+2, i, w.Z)
		}
	}
	return out, nil
}

// TransportedVelocities returns the linear velocity of every point,
// v = Jt·q̇ + (Jr·q̇) × (rotation·p), without building the stacked Jacobian.
func TransportedVelocities(jacobian mat.Matrix, points []r3.Vector, rotation mat.Matrix, velocities []float64) ([]r3.Vector, error) {
	n, err := checkJacobian(jacobian)
	if err != nil {
		return nil, err
	}
	if err := checkPoints(points); err != nil {
		return nil, err
	}
	if err := checkRotation(rotation); err != nil {
		return nil, err
	}
	if len(velocities) != n {
		return nil, fmt.Errorf("%w: got %d joint velocities, jacobian has %d columns",
			ErrDimensionMismatch, len(velocities), n)
	}

	var lin, ang r3.Vector
	for i, qd := range velocities {
		lin = lin.Add(linearColumn(jacobian, i).Mul(qd))
		ang = ang.Add(angularColumn(jacobian, i).Mul(qd))
	}

	out := make([]r3.Vector, len(points))
	for m, p := range points {
		out[m] = lin.Add(ang.Cross(rotate(rotation, p)))
	}
	return out, nil
}

func linearColumn(j mat.Matrix, i int) r3.Vector {
	return r3.Vector{X: j.At(0, i), Y: j.At(1, i), Z: j.At(2, i)}
}

func angularColumn(j mat.Matrix, i int) r3.Vector {
	return r3.Vector{X: j.At(3, i), Y: j.At(4, i), Z: j.At(5, i)}
}

func checkJacobian(j mat.Matrix) (int, error) {
	if j == nil {
		return 0, fmt.Errorf("%w: nil jacobian", ErrDimensionMismatch)
	}
	r, c := j.Dims()
	if r != 6 || c == 0 {
		return 0, fmt.Errorf("%w: jacobian is %dx%d, want 6xN", ErrDimensionMismatch, r, c)
	}
	return c, nil
}

func checkPoints(points []r3.Vector) error {
	if len(points) == 0 {
		return fmt.Errorf("%w: no end-effector points", ErrDimensionMismatch)
	}
	return nil
}

func checkRotation(r mat.Matrix) error {
	if r == nil {
		return fmt.Errorf("%w: nil rotation", ErrDimensionMismatch)
	}
	if rows, cols := r.Dims(); rows != 3 || cols != 3 {
		return fmt.Errorf("%w: rotation is %dx%d, want 3x3", ErrDimensionMismatch, rows, cols)
	}
	return nil
}
