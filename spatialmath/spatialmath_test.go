package spatialmath

import (
	"errors"
	"math"
	"testing"

	"github.com/golang/geo/r3"
	"go.viam.com/test"
	"gonum.org/v1/gonum/num/quat"

	"go.viam.com/ahrs/utils/matrix"
)

const tolerance = 1e-9

// represent a 45 degree rotation around the x axis.
var (
	th   = math.Pi / 4.
	q45x = quat.Number{Real: math.Cos(th / 2.), Imag: math.Sin(th / 2.)}
)

func randomUnitQuaternion(t *testing.T) quat.Number {
	t.Helper()
	q, err := Normalize(QuaternionFromColumn(matrix.RandomNormal(4, 1, 0, 1)))
	test.That(t, err, test.ShouldBeNil)
	return q
}

func TestNormAndMultiply(t *testing.T) {
	test.That(t, Norm(quat.Number{Real: 1, Imag: 2, Jmag: 3, Kmag: 4}), test.ShouldAlmostEqual, math.Sqrt(30))
	test.That(t, Norm(quat.Number{}), test.ShouldEqual, 0.0)

	i := quat.Number{Imag: 1}
	j := quat.Number{Jmag: 1}
	test.That(t, Multiply(i, j), test.ShouldResemble, quat.Number{Kmag: 1})
	test.That(t, Multiply(j, i), test.ShouldResemble, quat.Number{Kmag: -1})

	// products are not normalized
	q := quat.Number{Real: 2}
	test.That(t, Norm(Multiply(q, q)), test.ShouldEqual, 4.0)

	_, err := Normalize(quat.Number{})
	test.That(t, errors.Is(err, ErrZeroQuaternion), test.ShouldBeTrue)
}

func TestToRotationMatrix(t *testing.T) {
	identity, err := ToRotationMatrix(quat.Number{Real: 1})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, identity.EqualApprox(matrix.Identity(3), 0), test.ShouldBeTrue)

	_, err = ToRotationMatrix(quat.Number{})
	test.That(t, errors.Is(err, ErrZeroQuaternion), test.ShouldBeTrue)

	rot, err := ToRotationMatrix(q45x)
	test.That(t, err, test.ShouldBeNil)
	expected, err := matrix.NewFromRows([][]float64{
		{1, 0, 0},
		{0, math.Cos(th), -math.Sin(th)},
		{0, math.Sin(th), math.Cos(th)},
	})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, rot.EqualApprox(expected, tolerance), test.ShouldBeTrue)

	for n := 0; n < 20; n++ {
		q := randomUnitQuaternion(t)
		rot, err := ToRotationMatrix(q)
		test.That(t, err, test.ShouldBeNil)

		v := r3.Vector{X: 0.3, Y: -2, Z: 1.5}
		byMatrix, err := RotateByMatrix(rot, v)
		test.That(t, err, test.ShouldBeNil)
		byQuat := Rotate(q, v)
		test.That(t, byMatrix.Sub(byQuat).Norm(), test.ShouldBeLessThan, tolerance)

		rtr, err := matrix.Mul(matrix.Transpose(rot), rot)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, rtr.EqualApprox(matrix.Identity(3), tolerance), test.ShouldBeTrue)

		// a non-unit quaternion is only divided by its norm once
		doubled, err := ToRotationMatrix(quat.Scale(2, q))
		test.That(t, err, test.ShouldBeNil)
		test.That(t, doubled.EqualApprox(matrix.Scale(rot, 2), tolerance), test.ShouldBeTrue)
	}
}

func TestSkewSymmetric(t *testing.T) {
	v := r3.Vector{X: 1, Y: -2, Z: 3}
	u := r3.Vector{X: 0.5, Y: 4, Z: -1}
	s := SkewSymmetric(v.X, v.Y, v.Z)
	su, err := matrix.Mul(s, VectorToColumn(u))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, ColumnToVector(su, 0), test.ShouldResemble, v.Cross(u))
	test.That(t, matrix.Transpose(s).EqualApprox(matrix.Scale(s, -1), 0), test.ShouldBeTrue)
	test.That(t, AngularVelocity(v).Skew().EqualApprox(s, 0), test.ShouldBeTrue)
}

func TestDifferentiator(t *testing.T) {
	w := AngularVelocity{X: 0.4, Y: -1.2, Z: 2.5}
	omega := w.Differentiator()
	test.That(t, matrix.Transpose(omega).EqualApprox(matrix.Scale(omega, -1), 0), test.ShouldBeTrue)

	for n := 0; n < 10; n++ {
		q := randomUnitQuaternion(t)
		// Ω q = q * (0, ω)
		got, err := matrix.Mul(omega, QuaternionToColumn(q))
		test.That(t, err, test.ShouldBeNil)
		want := Multiply(q, quat.Number{Imag: w.X, Jmag: w.Y, Kmag: w.Z})
		test.That(t, QuaternionAlmostEqual(QuaternionFromColumn(got), want, tolerance), test.ShouldBeTrue)
	}

	// integrating dq/dt = ½ Ω q in small steps recovers the rates
	dt := 1e-4
	step, err := matrix.Add(matrix.Identity(4), matrix.Scale(omega, dt/2))
	test.That(t, err, test.ShouldBeNil)
	q := QuaternionToColumn(quat.Number{Real: 1})
	for n := 0; n < 100; n++ {
		q, err = matrix.Mul(step, q)
		test.That(t, err, test.ShouldBeNil)
	}
	recovered := QuatToAngVel(QuaternionFromColumn(q), 100*dt)
	test.That(t, recovered.X, test.ShouldAlmostEqual, w.X, 1e-4)
	test.That(t, recovered.Y, test.ShouldAlmostEqual, w.Y, 1e-4)
	test.That(t, recovered.Z, test.ShouldAlmostEqual, w.Z, 1e-4)
	test.That(t, QuatToAngVel(quat.Number{Real: 1}, 1), test.ShouldResemble, AngularVelocity{})
}

func TestTilt(t *testing.T) {
	q, err := Tilt(r3.Vector{Z: 9.81})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, QuaternionAlmostEqual(q, quat.Number{Real: 1}, tolerance), test.ShouldBeTrue)

	for _, acc := range []r3.Vector{
		{X: 9.81},
		{X: 1, Y: 2, Z: 3},
		{X: -0.2, Y: 0.1, Z: -9.7},
		{Y: -5},
		{Z: -9.81},
	} {
		q, err := Tilt(acc)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, Norm(q), test.ShouldAlmostEqual, 1.0)
		aligned := Rotate(q, acc.Normalize())
		test.That(t, aligned.Sub(Up).Norm(), test.ShouldBeLessThan, 1e-6)
	}

	_, err = Tilt(r3.Vector{})
	test.That(t, errors.Is(err, ErrZeroVector), test.ShouldBeTrue)
}

func TestQuaternionFromRotationMatrix(t *testing.T) {
	for n := 0; n < 50; n++ {
		q := randomUnitQuaternion(t)
		rot, err := ToRotationMatrix(q)
		test.That(t, err, test.ShouldBeNil)
		back, err := QuaternionFromRotationMatrix(rot)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, OrientationAlmostEqual(q, back, 1e-8), test.ShouldBeTrue)
	}

	// half turns exercise the branches that do not divide by the trace
	for _, q := range []quat.Number{{Imag: 1}, {Jmag: 1}, {Kmag: 1}} {
		rot, err := ToRotationMatrix(q)
		test.That(t, err, test.ShouldBeNil)
		back, err := QuaternionFromRotationMatrix(rot)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, OrientationAlmostEqual(q, back, tolerance), test.ShouldBeTrue)
	}

	_, err := QuaternionFromRotationMatrix(matrix.Identity(4))
	test.That(t, errors.Is(err, matrix.ErrDimensionMismatch), test.ShouldBeTrue)
}

func TestExponentialMatchesAxisAngle(t *testing.T) {
	w := AngularVelocity{X: 0.3, Y: 0.4, Z: -1.2}
	dt := 0.5
	rot, err := matrix.ExpSkewSymmetric(matrix.Scale(w.Skew(), dt))
	test.That(t, err, test.ShouldBeNil)
	q, err := QuaternionFromRotationMatrix(rot)
	test.That(t, err, test.ShouldBeNil)

	v := r3.Vector(w)
	angle := v.Norm() * dt
	axis := v.Normalize()
	expected := quat.Number{
		Real: math.Cos(angle / 2),
		Imag: math.Sin(angle/2) * axis.X,
		Jmag: math.Sin(angle/2) * axis.Y,
		Kmag: math.Sin(angle/2) * axis.Z,
	}
	test.That(t, OrientationAlmostEqual(q, expected, 1e-9), test.ShouldBeTrue)
}

func TestRightMultiplicationMatrix(t *testing.T) {
	for n := 0; n < 10; n++ {
		p := randomUnitQuaternion(t)
		q := randomUnitQuaternion(t)
		got, err := matrix.Mul(RightMultiplicationMatrix(q), QuaternionToColumn(p))
		test.That(t, err, test.ShouldBeNil)
		test.That(t, QuaternionAlmostEqual(QuaternionFromColumn(got), Multiply(p, q), tolerance), test.ShouldBeTrue)
	}
	test.That(t, RightMultiplicationMatrix(quat.Number{Real: 1}).EqualApprox(matrix.Identity(4), 0), test.ShouldBeTrue)
}

func TestEulerAngles(t *testing.T) {
	ea := QuatToEuler(q45x)
	test.That(t, ea.Roll, test.ShouldAlmostEqual, th)
	test.That(t, ea.Pitch, test.ShouldAlmostEqual, 0.0)
	test.That(t, ea.Yaw, test.ShouldAlmostEqual, 0.0)

	in := &EulerAngles{Roll: 0.1, Pitch: -0.4, Yaw: 2.0}
	out := QuatToEuler(in.Quaternion())
	test.That(t, out.Roll, test.ShouldAlmostEqual, in.Roll)
	test.That(t, out.Pitch, test.ShouldAlmostEqual, in.Pitch)
	test.That(t, out.Yaw, test.ShouldAlmostEqual, in.Yaw)
}
