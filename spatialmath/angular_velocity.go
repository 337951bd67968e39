package spatialmath

import (
	"math"

	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/num/quat"

	"go.viam.com/ahrs/utils/matrix"
)

// AngularVelocity contains angular velocity in rad/s about the device's x (roll), y (pitch) and
// z (yaw) axes.
type AngularVelocity r3.Vector

// Differentiator returns the quaternion rate matrix Ω for these body rates.
func (av AngularVelocity) Differentiator() *matrix.Dense {
	return Differentiator(av.X, av.Y, av.Z)
}

// Skew returns the skew-symmetric generator of these body rates.
func (av AngularVelocity) Skew() *matrix.Dense {
	return SkewSymmetric(av.X, av.Y, av.Z)
}

// QuatToAngVel calculates the constant angular velocity that produces the rotation diffQ over a
// time difference dt.
func QuatToAngVel(diffQ quat.Number, dt float64) AngularVelocity {
	if diffQ.Real < 0 {
		diffQ = Flip(diffQ)
	}
	v := r3.Vector{X: diffQ.Imag, Y: diffQ.Jmag, Z: diffQ.Kmag}
	sin := v.Norm()
	if sin == 0 || dt == 0 {
		return AngularVelocity{}
	}
	angle := 2 * math.Atan2(sin, diffQ.Real)
	w := v.Mul(angle / (sin * dt))
	return AngularVelocity(w)
}
