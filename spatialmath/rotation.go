package spatialmath

import (
	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/num/quat"

	"go.viam.com/ahrs/utils/matrix"
)

// SkewSymmetric returns the 3x3 generator [v×] of the rate vector (x, y, z), the matrix for which
// [v×]·u = v × u.
func SkewSymmetric(x, y, z float64) *matrix.Dense {
	m, _ := matrix.NewFromRows([][]float64{
		{0, -z, y},
		{z, 0, -x},
		{-y, x, 0},
	})
	return m
}

// Differentiator returns the 4x4 matrix Ω for which dq/dt = ½ Ω q, given body rates about the
// roll, pitch and yaw axes. It extends the skew generator of the rates by the rate vector as an
// extra column and its negation as an extra row:
//
//	Ω = | 0   -ωᵀ   |
//	    | ω   -[ω×] |
//
// The rate row and column come first because quaternions are stored scalar first.
func Differentiator(roll, pitch, yaw float64) *matrix.Dense {
	omega := matrix.New(4, 4)
	// the shapes are fixed, so SetBlock cannot fail here
	_ = omega.SetBlock(1, 1, matrix.Scale(SkewSymmetric(roll, pitch, yaw), -1))
	for i, w := range []float64{roll, pitch, yaw} {
		omega.Set(i+1, 0, w)
		omega.Set(0, i+1, -w)
	}
	return omega
}

// ToRotationMatrix converts q into the 3x3 direction cosine matrix that takes device frame
// vectors into the navigation frame. Every entry is divided by the norm of q to correct for drift
// away from unit length.
func ToRotationMatrix(q quat.Number) (*matrix.Dense, error) {
	n := Norm(q)
	if n == 0 {
		return nil, ErrZeroQuaternion
	}
	q0, q1, q2, q3 := q.Real, q.Imag, q.Jmag, q.Kmag
	m, err := matrix.NewFromRows([][]float64{
		{q0*q0 + q1*q1 - q2*q2 - q3*q3, 2 * (q1*q2 - q0*q3), 2 * (q1*q3 + q0*q2)},
		{2 * (q1*q2 + q0*q3), q0*q0 - q1*q1 + q2*q2 - q3*q3, 2 * (q2*q3 - q0*q1)},
		{2 * (q1*q3 - q0*q2), 2 * (q2*q3 + q0*q1), q0*q0 - q1*q1 - q2*q2 + q3*q3},
	})
	if err != nil {
		return nil, err
	}
	return matrix.Scale(m, 1/n), nil
}

// VectorToColumn returns v as a 3x1 column.
func VectorToColumn(v r3.Vector) *matrix.Dense {
	return matrix.NewColumn(v.X, v.Y, v.Z)
}

// ColumnToVector reads rows [offset, offset+3) of the first column of m as a vector.
func ColumnToVector(m *matrix.Dense, offset int) r3.Vector {
	return r3.Vector{X: m.At(offset, 0), Y: m.At(offset+1, 0), Z: m.At(offset+2, 0)}
}

// RotateByMatrix returns rot·v.
func RotateByMatrix(rot *matrix.Dense, v r3.Vector) (r3.Vector, error) {
	out, err := matrix.Mul(rot, VectorToColumn(v))
	if err != nil {
		return r3.Vector{}, err
	}
	return ColumnToVector(out, 0), nil
}
