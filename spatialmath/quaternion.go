// Package spatialmath defines the quaternion and rotation helpers used to describe the
// orientation of a device.
//
// Quaternions are gonum quat.Numbers in scalar-first order: Real is q0 and Imag, Jmag, Kmag are
// q1, q2, q3. A quaternion q maps device frame vectors into the navigation frame by v' = q v q*.
// Nothing in this package normalizes a quaternion unless it says so.
package spatialmath

import (
	"math"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/num/quat"

	"go.viam.com/ahrs/utils/matrix"
)

var (
	// ErrZeroQuaternion is returned when an operation needs a quaternion with a non-zero norm.
	ErrZeroQuaternion = errors.New("quaternion has zero norm")

	// ErrZeroVector is returned when an operation needs a vector with a non-zero length.
	ErrZeroVector = errors.New("vector has zero length")
)

// Multiply returns the Hamilton product q1 * q2. The result is not normalized.
func Multiply(q1, q2 quat.Number) quat.Number {
	return quat.Mul(q1, q2)
}

// Norm returns the Euclidean norm of q, the square root of the sum of the squares of all four
// components. Compare matrix.VectorNorm, which does not take the square root.
func Norm(q quat.Number) float64 {
	return quat.Abs(q)
}

// Normalize returns q scaled to unit length.
func Normalize(q quat.Number) (quat.Number, error) {
	n := Norm(q)
	if n == 0 {
		return quat.Number{}, ErrZeroQuaternion
	}
	return quat.Scale(1/n, q), nil
}

// Flip will multiply a quaternion by -1, returning a quaternion representing the same orientation but in the opposing octant.
func Flip(q quat.Number) quat.Number {
	return quat.Number{Real: -q.Real, Imag: -q.Imag, Jmag: -q.Jmag, Kmag: -q.Kmag}
}

// QuaternionAlmostEqual is an equality test for all the float components of a quaternion. Quaternions have double coverage, q == -q, and
// this function will *not* account for this. Use OrientationAlmostEqual unless you're certain this is what you want.
func QuaternionAlmostEqual(a, b quat.Number, tol float64) bool {
	return math.Abs(a.Real-b.Real) < tol &&
		math.Abs(a.Imag-b.Imag) < tol &&
		math.Abs(a.Jmag-b.Jmag) < tol &&
		math.Abs(a.Kmag-b.Kmag) < tol
}

// OrientationAlmostEqual reports whether a and b describe the same rotation, accounting for
// double coverage.
func OrientationAlmostEqual(a, b quat.Number, tol float64) bool {
	return QuaternionAlmostEqual(a, b, tol) || QuaternionAlmostEqual(a, Flip(b), tol)
}

// Rotate returns v rotated by q, q v q*. q must be a unit quaternion.
func Rotate(q quat.Number, v r3.Vector) r3.Vector {
	p := quat.Mul(quat.Mul(q, quat.Number{Imag: v.X, Jmag: v.Y, Kmag: v.Z}), quat.Conj(q))
	return r3.Vector{X: p.Imag, Y: p.Jmag, Z: p.Kmag}
}

// QuaternionToColumn returns q as a 4x1 column [q0 q1 q2 q3]ᵀ.
func QuaternionToColumn(q quat.Number) *matrix.Dense {
	return matrix.NewColumn(q.Real, q.Imag, q.Jmag, q.Kmag)
}

// QuaternionFromColumn reads a quaternion from the first four rows of the first column of m.
func QuaternionFromColumn(m *matrix.Dense) quat.Number {
	return quat.Number{Real: m.At(0, 0), Imag: m.At(1, 0), Jmag: m.At(2, 0), Kmag: m.At(3, 0)}
}

// RightMultiplicationMatrix returns the 4x4 matrix M(q) such that p * q = M(q)·p for any
// quaternion p written as a column.
func RightMultiplicationMatrix(q quat.Number) *matrix.Dense {
	w, x, y, z := q.Real, q.Imag, q.Jmag, q.Kmag
	m, _ := matrix.NewFromRows([][]float64{
		{w, -x, -y, -z},
		{x, w, z, -y},
		{y, -z, w, x},
		{z, y, -x, w},
	})
	return m
}

// QuaternionFromRotationMatrix converts a 3x3 rotation matrix into a unit quaternion using
// Shepperd's method, which picks the numerically largest component to divide by.
func QuaternionFromRotationMatrix(m *matrix.Dense) (quat.Number, error) {
	if r, c := m.Dims(); r != 3 || c != 3 {
		return quat.Number{}, errors.Wrapf(matrix.ErrDimensionMismatch, "rotation matrix must be 3x3, got %dx%d", r, c)
	}
	m00, m01, m02 := m.At(0, 0), m.At(0, 1), m.At(0, 2)
	m10, m11, m12 := m.At(1, 0), m.At(1, 1), m.At(1, 2)
	m20, m21, m22 := m.At(2, 0), m.At(2, 1), m.At(2, 2)

	var q quat.Number
	switch tr := m00 + m11 + m22; {
	case tr > 0:
		s := 2 * math.Sqrt(tr+1)
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
	if q.Real < 0 {
		q = Flip(q)
	}
	return q, nil
}
