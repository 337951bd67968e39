// Package matrix implements a small dense matrix type and the linear algebra kernels needed by
// the Kalman filters in this module.
//
// A Dense is stored as rows of columns. Its dimensions are fixed at construction and every
// operation checks operand shapes before computing anything. Operations return new matrices and
// never modify their inputs; only Set and SetBlock mutate, and only the receiver.
package matrix

import (
	"fmt"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Dense is a dense matrix of float64 values.
type Dense struct {
	data [][]float64
}

// New returns a rows x cols matrix of zeros. It panics with ErrBadShape if either dimension is
// not positive.
func New(rows, cols int) *Dense {
	if rows <= 0 || cols <= 0 {
		panic(errors.Wrapf(ErrBadShape, "%dx%d", rows, cols))
	}
	data := make([][]float64, rows)
	for i := range data {
		data[i] = make([]float64, cols)
	}
	return &Dense{data: data}
}

// NewFromRows returns a matrix holding a copy of the given rows. All rows must have the same,
// non-zero length.
func NewFromRows(rows [][]float64) (*Dense, error) {
	if len(rows) == 0 || len(rows[0]) == 0 {
		return nil, errors.Wrap(ErrBadShape, "no rows or columns given")
	}
	m := New(len(rows), len(rows[0]))
	for i, row := range rows {
		if len(row) != len(rows[0]) {
			return nil, errors.Wrapf(ErrDimensionMismatch, "row %d has %d columns, expected %d", i, len(row), len(rows[0]))
		}
		copy(m.data[i], row)
	}
	return m, nil
}

// NewColumn returns a column vector holding vals.
func NewColumn(vals ...float64) *Dense {
	m := New(len(vals), 1)
	for i, v := range vals {
		m.data[i][0] = v
	}
	return m
}

// Identity returns the n x n identity matrix.
func Identity(n int) *Dense {
	m := New(n, n)
	for i := 0; i < n; i++ {
		m.data[i][i] = 1
	}
	return m
}

// Diagonal returns a square matrix with vals on its diagonal.
func Diagonal(vals ...float64) *Dense {
	m := New(len(vals), len(vals))
	for i, v := range vals {
		m.data[i][i] = v
	}
	return m
}

// BlockDiagonal returns a square matrix with the given square blocks along its diagonal.
func BlockDiagonal(blocks ...*Dense) (*Dense, error) {
	n := 0
	for _, b := range blocks {
		if !IsSquare(b) {
			return nil, newSquareError("block diagonal", b)
		}
		n += b.rows()
	}
	m := New(n, n)
	offset := 0
	for _, b := range blocks {
		if err := m.SetBlock(offset, offset, b); err != nil {
			return nil, err
		}
		offset += b.rows()
	}
	return m, nil
}

func (m *Dense) rows() int {
	return len(m.data)
}

func (m *Dense) cols() int {
	return len(m.data[0])
}

// Dims returns the number of rows and columns.
func (m *Dense) Dims() (r, c int) {
	return m.rows(), m.cols()
}

func (m *Dense) checkIndex(i, j int) {
	if i < 0 || i >= m.rows() || j < 0 || j >= m.cols() {
		panic(errors.Wrapf(ErrIndexOutOfRange, "(%d, %d) in %dx%d", i, j, m.rows(), m.cols()))
	}
}

// At returns the element at row i, column j.
func (m *Dense) At(i, j int) float64 {
	m.checkIndex(i, j)
	return m.data[i][j]
}

// Set sets the element at row i, column j to v.
func (m *Dense) Set(i, j int, v float64) {
	m.checkIndex(i, j)
	m.data[i][j] = v
}

// Clone returns a deep copy of m.
func (m *Dense) Clone() *Dense {
	out := New(m.rows(), m.cols())
	for i, row := range m.data {
		copy(out.data[i], row)
	}
	return out
}

// RawRows returns a copy of the rows of m.
func (m *Dense) RawRows() [][]float64 {
	return m.Clone().data
}

// Vector returns the elements of m in row-major order. For a column vector this is simply its
// entries from top to bottom.
func (m *Dense) Vector() []float64 {
	out := make([]float64, 0, m.rows()*m.cols())
	for _, row := range m.data {
		out = append(out, row...)
	}
	return out
}

// Slice returns a copy of the rows [i0, i1) and columns [j0, j1) of m.
func (m *Dense) Slice(i0, i1, j0, j1 int) *Dense {
	if i0 < 0 || j0 < 0 || i1 > m.rows() || j1 > m.cols() || i0 >= i1 || j0 >= j1 {
		panic(errors.Wrapf(ErrIndexOutOfRange, "slice [%d:%d, %d:%d] of %dx%d", i0, i1, j0, j1, m.rows(), m.cols()))
	}
	out := New(i1-i0, j1-j0)
	for i := i0; i < i1; i++ {
		copy(out.data[i-i0], m.data[i][j0:j1])
	}
	return out
}

// SetBlock copies b into m with b's top left corner at (i, j). The block must fit within m.
func (m *Dense) SetBlock(i, j int, b *Dense) error {
	if i < 0 || j < 0 || i+b.rows() > m.rows() || j+b.cols() > m.cols() {
		return errors.Wrapf(ErrDimensionMismatch, "%dx%d block at (%d, %d) does not fit in %dx%d",
			b.rows(), b.cols(), i, j, m.rows(), m.cols())
	}
	for r, row := range b.data {
		copy(m.data[i+r][j:], row)
	}
	return nil
}

// EqualApprox reports whether m and other have the same shape and all elements within tol of
// each other.
func (m *Dense) EqualApprox(other *Dense, tol float64) bool {
	if m.rows() != other.rows() || m.cols() != other.cols() {
		return false
	}
	for i, row := range m.data {
		if !floats.EqualApprox(row, other.data[i], tol) {
			return false
		}
	}
	return true
}

// String formats m for logs and test failures.
func (m *Dense) String() string {
	return fmt.Sprintf("%v", mat.Formatted(m.ToGonum(), mat.Squeeze()))
}
