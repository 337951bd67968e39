package matrix

import (
	"github.com/pkg/errors"
)

var (
	// ErrDimensionMismatch is returned when operand shapes are incompatible for the requested
	// operation. It is always detected before any computation happens.
	ErrDimensionMismatch = errors.New("matrix dimension mismatch")

	// ErrSingular is returned when a required inverse does not exist.
	ErrSingular = errors.New("matrix is singular")

	// ErrBadShape is the panic value for constructing a matrix with a non-positive dimension.
	ErrBadShape = errors.New("matrix dimensions must be positive")

	// ErrIndexOutOfRange is the panic value for an out of bounds element access.
	ErrIndexOutOfRange = errors.New("matrix index out of range")
)

func newDimensionError(op string, a, b *Dense) error {
	return errors.Wrapf(ErrDimensionMismatch, "%s: %dx%d with %dx%d", op, a.rows(), a.cols(), b.rows(), b.cols())
}

func newSquareError(op string, m *Dense) error {
	return errors.Wrapf(ErrDimensionMismatch, "%s: expected a square matrix, got %dx%d", op, m.rows(), m.cols())
}

func newSizeError(op string, m *Dense, n int) error {
	return errors.Wrapf(ErrDimensionMismatch, "%s: expected %dx%d, got %dx%d", op, n, n, m.rows(), m.cols())
}
