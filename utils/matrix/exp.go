package matrix

import (
	"math"
)

// ExpSkewSymmetric returns the matrix exponential of a 3x3 skew-symmetric matrix using
// Rodrigues' formula:
//
//	exp(M) = I + sin(θ)/θ · M + (1-cos(θ))/θ² · M²
//
// where θ is the rotation magnitude read from the upper triangular entries of M. A zero
// rotation returns the identity.
func ExpSkewSymmetric(m *Dense) (*Dense, error) {
	if m.rows() != 3 || !IsSquare(m) {
		return nil, newSizeError("skew-symmetric exponential", m, 3)
	}
	d := m.data
	theta := math.Sqrt(d[0][1]*d[0][1] + d[0][2]*d[0][2] + d[1][2]*d[1][2])
	if theta == 0 {
		return Identity(3), nil
	}

	m2, err := Mul(m, m)
	if err != nil {
		return nil, err
	}
	out, err := Add(Identity(3), Scale(m, math.Sin(theta)/theta))
	if err != nil {
		return nil, err
	}
	return Add(out, Scale(m2, (1-math.Cos(theta))/(theta*theta)))
}
