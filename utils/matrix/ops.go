package matrix

import (
	"gonum.org/v1/gonum/floats"
)

func sameShape(a, b *Dense) bool {
	return a.rows() == b.rows() && a.cols() == b.cols()
}

// Add returns a + b.
func Add(a, b *Dense) (*Dense, error) {
	if !sameShape(a, b) {
		return nil, newDimensionError("add", a, b)
	}
	out := New(a.rows(), a.cols())
	for i := range out.data {
		floats.AddTo(out.data[i], a.data[i], b.data[i])
	}
	return out, nil
}

// Sub returns a - b.
func Sub(a, b *Dense) (*Dense, error) {
	if !sameShape(a, b) {
		return nil, newDimensionError("subtract", a, b)
	}
	out := New(a.rows(), a.cols())
	for i := range out.data {
		floats.SubTo(out.data[i], a.data[i], b.data[i])
	}
	return out, nil
}

// Scale returns every element of m multiplied by s.
func Scale(m *Dense, s float64) *Dense {
	out := New(m.rows(), m.cols())
	for i := range out.data {
		floats.ScaleTo(out.data[i], s, m.data[i])
	}
	return out
}

// Mul returns the matrix product left * right.
func Mul(left, right *Dense) (*Dense, error) {
	if left.cols() != right.rows() {
		return nil, newDimensionError("multiply", left, right)
	}
	out := New(left.rows(), right.cols())
	for i := 0; i < left.rows(); i++ {
		for j := 0; j < right.cols(); j++ {
			var sum float64
			for k := 0; k < left.cols(); k++ {
				sum += left.data[i][k] * right.data[k][j]
			}
			out.data[i][j] = sum
		}
	}
	return out, nil
}

// MulAll multiplies the given matrices left to right. With no rest it returns a copy of first.
func MulAll(first *Dense, rest ...*Dense) (*Dense, error) {
	if len(rest) == 0 {
		return first.Clone(), nil
	}
	out := first
	for _, m := range rest {
		var err error
		if out, err = Mul(out, m); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// Transpose returns the transpose of m.
func Transpose(m *Dense) *Dense {
	out := New(m.cols(), m.rows())
	for i, row := range m.data {
		for j, v := range row {
			out.data[j][i] = v
		}
	}
	return out
}

// Dot treats a and b as flattened vectors and returns the sum of their element-wise products.
func Dot(a, b *Dense) (float64, error) {
	if !sameShape(a, b) {
		return 0, newDimensionError("dot product", a, b)
	}
	var sum float64
	for i := range a.data {
		sum += floats.Dot(a.data[i], b.data[i])
	}
	return sum, nil
}

// VectorNorm returns the sum of the squares of the entries of m.
//
// Note that the result is not square-rooted: it is the squared magnitude of m viewed as a
// vector. Use math.Sqrt on the result for the Euclidean length.
func VectorNorm(m *Dense) float64 {
	var sum float64
	for _, row := range m.data {
		sum += floats.Dot(row, row)
	}
	return sum
}

// IsSquare reports whether m has as many rows as every row has columns.
func IsSquare(m *Dense) bool {
	for _, row := range m.data {
		if len(row) != len(m.data) {
			return false
		}
	}
	return true
}
