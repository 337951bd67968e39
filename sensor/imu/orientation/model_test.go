package orientation

import (
	"math"
	"testing"

	"go.viam.com/test"
	"gonum.org/v1/gonum/diff/fd"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/num/quat"

	"go.viam.com/ahrs/logging"
	"go.viam.com/ahrs/spatialmath"
	"go.viam.com/ahrs/utils/matrix"
)

func newTestModel(t *testing.T, cfg *Config) *model {
	t.Helper()
	cal := testCalibration(quat.Number{Real: 1})
	return newModel(&cal, cfg, logging.NewTestLogger(t))
}

func stateWith(q quat.Number, accBias, magBias [3]float64) *matrix.Dense {
	return matrix.NewColumn(
		q.Real, q.Imag, q.Jmag, q.Kmag,
		accBias[0], accBias[1], accBias[2],
		magBias[0], magBias[1], magBias[2],
	)
}

func TestTransitionMatrix(t *testing.T) {
	m := newTestModel(t, testConfig())
	rates := matrix.NewColumn(0, 0, 1)

	f, err := m.TransitionMatrix(rates, 0.5)
	test.That(t, err, test.ShouldBeNil)
	r, c := f.Dims()
	test.That(t, r, test.ShouldEqual, stateSize)
	test.That(t, c, test.ShouldEqual, stateSize)
	test.That(t, f.Slice(4, 10, 4, 10).EqualApprox(matrix.Identity(6), 0), test.ShouldBeTrue)
	test.That(t, f.Slice(0, 4, 4, 10).EqualApprox(matrix.New(4, 6), 0), test.ShouldBeTrue)

	// first order: q + ½ dt Ω q
	next, err := matrix.Mul(f, stateWith(quat.Number{Real: 1}, [3]float64{1, 2, 3}, [3]float64{4, 5, 6}))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, next.Vector(), test.ShouldResemble, []float64{1, 0, 0, 0.25, 1, 2, 3, 4, 5, 6})

	still, err := m.TransitionMatrix(rates, 0)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, still.EqualApprox(matrix.Identity(stateSize), 0), test.ShouldBeTrue)

	_, err = m.TransitionMatrix(matrix.NewColumn(1, 2), 0.1)
	test.That(t, err, test.ShouldNotBeNil)
}

func TestExponentialTransitionMatrix(t *testing.T) {
	cfg := testConfig()
	cfg.ExponentialIntegration = true
	m := newTestModel(t, cfg)

	f, err := m.TransitionMatrix(matrix.NewColumn(0, 0, 1), 0.5)
	test.That(t, err, test.ShouldBeNil)
	next, err := matrix.Mul(f, stateWith(quat.Number{Real: 1}, [3]float64{}, [3]float64{}))
	test.That(t, err, test.ShouldBeNil)
	q := spatialmath.QuaternionFromColumn(next)
	test.That(t, spatialmath.QuaternionAlmostEqual(q, quat.Number{Real: math.Cos(0.25), Kmag: math.Sin(0.25)}, 1e-12),
		test.ShouldBeTrue)

	// the exact step keeps a unit quaternion unit for any rotation
	start := (&spatialmath.EulerAngles{Roll: 0.3, Pitch: 1, Yaw: -2}).Quaternion()
	f, err = m.TransitionMatrix(matrix.NewColumn(2, -3, 0.5), 0.7)
	test.That(t, err, test.ShouldBeNil)
	next, err = matrix.Mul(f, stateWith(start, [3]float64{}, [3]float64{}))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, spatialmath.Norm(spatialmath.QuaternionFromColumn(next)), test.ShouldAlmostEqual, 1.0, 1e-12)

	still, err := m.TransitionMatrix(matrix.NewColumn(0, 0, 0), 0.1)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, still.EqualApprox(matrix.Identity(stateSize), 0), test.ShouldBeTrue)
}

func TestExpectedMeasurements(t *testing.T) {
	m := newTestModel(t, testConfig())

	level, err := m.ExpectedMeasurements(stateWith(quat.Number{Real: 1}, [3]float64{0.1, 0.2, 0.3}, [3]float64{1, 2, 3}))
	test.That(t, err, test.ShouldBeNil)
	want := matrix.NewColumn(0.1, 0.2, 9.81+0.3, 1, testStrength*math.Cos(testDip)+2, -testStrength*math.Sin(testDip)+3)
	test.That(t, level.EqualApprox(want, 1e-12), test.ShouldBeTrue)

	// upside down about north: gravity and the vertical field flip, north stays
	flipped, err := m.ExpectedMeasurements(stateWith(quat.Number{Jmag: 1}, [3]float64{}, [3]float64{}))
	test.That(t, err, test.ShouldBeNil)
	want = matrix.NewColumn(0, 0, -9.81, 0, testStrength*math.Cos(testDip), testStrength*math.Sin(testDip))
	test.That(t, flipped.EqualApprox(want, 1e-12), test.ShouldBeTrue)

	// matches sampleAt for an arbitrary orientation
	q := (&spatialmath.EulerAngles{Roll: -0.7, Pitch: 0.2, Yaw: 2.1}).Quaternion()
	expected, err := m.ExpectedMeasurements(stateWith(q, [3]float64{}, [3]float64{}))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, expected.EqualApprox(sampleAt(t, q, 0).measurement(), 1e-9), test.ShouldBeTrue)

	_, err = m.ExpectedMeasurements(matrix.New(stateSize, 1))
	test.That(t, err, test.ShouldBeError, spatialmath.ErrZeroQuaternion)
}

func TestJacobianMatchesFiniteDifferences(t *testing.T) {
	m := newTestModel(t, testConfig())

	// the Jacobian neglects the normalization, so compare against the unnormalized model
	unnormalized := func(y, x []float64) {
		state := matrix.NewColumn(x...)
		q := stateQuaternion(state)
		expected, err := m.ExpectedMeasurements(state)
		if err != nil {
			panic(err)
		}
		biases := state.Slice(4, 10, 0, 1).Vector()
		for i, v := range expected.Vector() {
			y[i] = (v-biases[i])*spatialmath.Norm(q) + biases[i]
		}
	}

	for _, ea := range []spatialmath.EulerAngles{
		{},
		{Roll: 0.4, Pitch: -0.3, Yaw: 1.2},
		{Roll: -2.5, Pitch: 1.1, Yaw: -0.6},
	} {
		q := ea.Quaternion()
		state := stateWith(q, [3]float64{0.05, -0.02, 0.1}, [3]float64{1.5, -0.5, 2})

		jac, err := m.JacobianMatrix(state)
		test.That(t, err, test.ShouldBeNil)
		r, c := jac.Dims()
		test.That(t, r, test.ShouldEqual, measurementSize)
		test.That(t, c, test.ShouldEqual, stateSize)

		numeric := mat.NewDense(measurementSize, stateSize, nil)
		fd.Jacobian(numeric, unnormalized, state.Vector(), &fd.JacobianSettings{Formula: fd.Central})
		test.That(t, jac.EqualApprox(matrix.FromGonum(numeric), 1e-6), test.ShouldBeTrue)
	}

	_, err := m.JacobianMatrix(matrix.New(stateSize, 1))
	test.That(t, err, test.ShouldBeError, spatialmath.ErrZeroQuaternion)
}

func TestJacobianScalesWithNorm(t *testing.T) {
	m := newTestModel(t, testConfig())
	q := (&spatialmath.EulerAngles{Roll: 0.1, Pitch: 0.2, Yaw: 0.3}).Quaternion()

	unit, err := m.JacobianMatrix(stateWith(q, [3]float64{}, [3]float64{}))
	test.That(t, err, test.ShouldBeNil)
	doubled, err := m.JacobianMatrix(stateWith(quat.Scale(2, q), [3]float64{}, [3]float64{}))
	test.That(t, err, test.ShouldBeNil)

	// the quaternion columns are linear in q and divided by ‖q‖, the bias columns are fixed
	test.That(t, doubled.Slice(0, 6, 0, 4).EqualApprox(unit.Slice(0, 6, 0, 4), 1e-12), test.ShouldBeTrue)
	test.That(t, doubled.Slice(0, 6, 4, 10).EqualApprox(unit.Slice(0, 6, 4, 10), 0), test.ShouldBeTrue)
}

func TestAdaptMeasurementCovariance(t *testing.T) {
	cfg := testConfig()
	m := newTestModel(t, cfg)
	level := stateWith(quat.Number{Real: 1}, [3]float64{}, [3]float64{})
	calibrated, err := matrix.BlockDiagonal(m.accCov, m.magCov)
	test.That(t, err, test.ShouldBeNil)

	clean := sampleAt(t, quat.Number{Real: 1}, 0).measurement()
	r, err := m.AdaptMeasurementCovariance(level, clean)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, r.EqualApprox(calibrated, 0), test.ShouldBeTrue)
	test.That(t, m.trust, test.ShouldResemble, Trust{Accelerometer: true, Magnetometer: true})

	// a field of the right strength and dip is trusted whatever the heading
	q := quat.Number{Real: math.Cos(0.8), Kmag: math.Sin(0.8)}
	_, err = m.AdaptMeasurementCovariance(level, sampleAt(t, q, 0).measurement())
	test.That(t, err, test.ShouldBeNil)
	test.That(t, m.trust.Magnetometer, test.ShouldBeTrue)

	// a tilted device is judged with the estimated tilt
	tilted := (&spatialmath.EulerAngles{Roll: 0.6}).Quaternion()
	_, err = m.AdaptMeasurementCovariance(level, sampleAt(t, tilted, 0).measurement())
	test.That(t, err, test.ShouldBeNil)
	test.That(t, m.trust.Magnetometer, test.ShouldBeFalse)
	_, err = m.AdaptMeasurementCovariance(stateWith(tilted, [3]float64{}, [3]float64{}), sampleAt(t, tilted, 0).measurement())
	test.That(t, err, test.ShouldBeNil)
	test.That(t, m.trust.Magnetometer, test.ShouldBeTrue)

	weak := clean.Clone()
	for i := 3; i < 6; i++ {
		weak.Set(i, 0, weak.At(i, 0)/2)
	}
	r, err = m.AdaptMeasurementCovariance(level, weak)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, m.trust, test.ShouldResemble, Trust{Accelerometer: true, Magnetometer: false})
	test.That(t, r.Slice(3, 6, 3, 6).EqualApprox(matrix.Scale(matrix.Identity(3), cfg.MaxCovariance), 0), test.ShouldBeTrue)
	test.That(t, r.Slice(0, 3, 0, 3).EqualApprox(m.accCov, 0), test.ShouldBeTrue)

	_, err = m.AdaptMeasurementCovariance(level, matrix.NewColumn(1, 2, 3))
	test.That(t, err, test.ShouldNotBeNil)
}
