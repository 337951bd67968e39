package matrix

import (
	"math"

	"github.com/pkg/errors"
)

// pivotTolerance is the smallest acceptable pivot relative to the largest absolute entry of its
// column in the matrix being inverted.
const pivotTolerance = 1e-14

// Inverse returns the inverse of m, computed by Gauss-Jordan elimination with partial pivoting
// on m augmented with the identity. It returns ErrSingular as soon as a zero pivot is found.
func Inverse(m *Dense) (*Dense, error) {
	if !IsSquare(m) {
		return nil, newSquareError("inverse", m)
	}
	n := m.rows()

	tol := make([]float64, n)
	aug := New(n, 2*n)
	for i, row := range m.data {
		copy(aug.data[i], row)
		aug.data[i][n+i] = 1
		for j, v := range row {
			tol[j] = math.Max(tol[j], pivotTolerance*math.Abs(v))
		}
	}

	for col := 0; col < n; col++ {
		pivotRow := col
		for r := col + 1; r < n; r++ {
			if math.Abs(aug.data[r][col]) > math.Abs(aug.data[pivotRow][col]) {
				pivotRow = r
			}
		}
		pivot := aug.data[pivotRow][col]
		if pivot == 0 || math.Abs(pivot) <= tol[col] {
			return nil, errors.Wrapf(ErrSingular, "zero pivot in column %d", col)
		}
		aug.swapRows(col, pivotRow)

		pr := aug.data[col]
		for j := range pr {
			pr[j] /= pivot
		}
		for r := 0; r < n; r++ {
			if r == col {
				continue
			}
			factor := aug.data[r][col]
			if factor == 0 {
				continue
			}
			row := aug.data[r]
			for j := range row {
				row[j] -= factor * pr[j]
			}
		}
	}

	return aug.Slice(0, n, n, 2*n), nil
}

// swapRows exchanges rows i and j in place.
func (m *Dense) swapRows(i, j int) {
	if i == j {
		return
	}
	m.data[i], m.data[j] = m.data[j], m.data[i]
}
