package matrix

import (
	"gonum.org/v1/gonum/mat"
)

// FromGonum copies a gonum matrix into a Dense.
func FromGonum(m mat.Matrix) *Dense {
	r, c := m.Dims()
	out := New(r, c)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			out.data[i][j] = m.At(i, j)
		}
	}
	return out
}

// ToGonum copies m into a gonum dense matrix.
func (m *Dense) ToGonum() *mat.Dense {
	return mat.NewDense(m.rows(), m.cols(), m.Vector())
}
