package spatialmath

import (
	"math"

	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/num/quat"
)

// Up is the direction of the reaction to gravity in the navigation frame. An accelerometer at
// rest measures a force along Up.
var Up = r3.Vector{X: 0, Y: 0, Z: 1}

// Tilt returns the shortest-arc unit quaternion that rotates the measured acceleration acc onto
// Up. It fixes roll and pitch only; the rotation has no component about Up.
func Tilt(acc r3.Vector) (quat.Number, error) {
	n := acc.Norm()
	if n == 0 {
		return quat.Number{}, ErrZeroVector
	}
	a := acc.Mul(1 / n)
	c := a.Dot(Up)
	if c <= -1+1e-12 {
		// upside down: any half turn about a horizontal axis will do
		return quat.Number{Imag: 1}, nil
	}
	axis := a.Cross(Up)
	q := quat.Number{Real: 1 + c, Imag: axis.X, Jmag: axis.Y, Kmag: axis.Z}
	return quat.Scale(1/math.Sqrt(2*(1+c)), q), nil
}
