package matrix

import (
	"github.com/pkg/errors"
)

// Det2 returns the determinant of a 2x2 matrix.
func Det2(m *Dense) (float64, error) {
	if m.rows() != 2 || !IsSquare(m) {
		return 0, newSizeError("determinant", m, 2)
	}
	d := m.data
	return d[0][0]*d[1][1] - d[0][1]*d[1][0], nil
}

// Det3 returns the determinant of a 3x3 matrix by cofactor expansion along the first row.
func Det3(m *Dense) (float64, error) {
	if m.rows() != 3 || !IsSquare(m) {
		return 0, newSizeError("determinant", m, 3)
	}
	d := m.data
	return d[0][0]*(d[1][1]*d[2][2]-d[1][2]*d[2][1]) -
		d[0][1]*(d[1][0]*d[2][2]-d[1][2]*d[2][0]) +
		d[0][2]*(d[1][0]*d[2][1]-d[1][1]*d[2][0]), nil
}

// Inverse2 returns the inverse of a 2x2 matrix using the closed form adjugate.
func Inverse2(m *Dense) (*Dense, error) {
	det, err := Det2(m)
	if err != nil {
		return nil, err
	}
	if det == 0 {
		return nil, errors.Wrap(ErrSingular, "2x2 determinant is zero")
	}
	d := m.data
	out := New(2, 2)
	out.data[0][0] = d[1][1] / det
	out.data[0][1] = -d[0][1] / det
	out.data[1][0] = -d[1][0] / det
	out.data[1][1] = d[0][0] / det
	return out, nil
}

// Inverse3 returns the inverse of a 3x3 matrix as its adjugate divided by its determinant.
func Inverse3(m *Dense) (*Dense, error) {
	det, err := Det3(m)
	if err != nil {
		return nil, err
	}
	if det == 0 {
		return nil, errors.Wrap(ErrSingular, "3x3 determinant is zero")
	}
	d := m.data
	out := New(3, 3)
	out.data[0][0] = (d[1][1]*d[2][2] - d[1][2]*d[2][1]) / det
	out.data[0][1] = (d[0][2]*d[2][1] - d[0][1]*d[2][2]) / det
	out.data[0][2] = (d[0][1]*d[1][2] - d[0][2]*d[1][1]) / det
	out.data[1][0] = (d[1][2]*d[2][0] - d[1][0]*d[2][2]) / det
	out.data[1][1] = (d[0][0]*d[2][2] - d[0][2]*d[2][0]) / det
	out.data[1][2] = (d[0][2]*d[1][0] - d[0][0]*d[1][2]) / det
	out.data[2][0] = (d[1][0]*d[2][1] - d[1][1]*d[2][0]) / det
	out.data[2][1] = (d[0][1]*d[2][0] - d[0][0]*d[2][1]) / det
	out.data[2][2] = (d[0][0]*d[1][1] - d[0][1]*d[1][0]) / det
	return out, nil
}
