package orientation

import (
	"math"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/num/quat"

	"go.viam.com/ahrs/logging"
	"go.viam.com/ahrs/spatialmath"
	"go.viam.com/ahrs/utils"
	"go.viam.com/ahrs/utils/matrix"
)

// Trust is the outcome of the plausibility checks on the latest measurement.
type Trust struct {
	Accelerometer bool
	Magnetometer  bool
}

// model is the system model of the orientation filter. The state is the device to navigation
// quaternion followed by the accelerometer and magnetometer biases; the measurement is the raw
// accelerometer and magnetometer readings in the device frame. The navigation frame is east,
// north, up.
type model struct {
	cfg    *Config
	dip    float64
	accCov *matrix.Dense
	magCov *matrix.Dense

	fieldStrength float64
	trust         Trust
	logger        logging.Logger
}

func newModel(cal *Calibration, cfg *Config, logger logging.Logger) *model {
	return &model{
		cfg:           cfg,
		dip:           cal.Dip,
		accCov:        cal.AccelerometerCovariance.Clone(),
		magCov:        cal.MagnetometerCovariance.Clone(),
		fieldStrength: cfg.FieldStrength,
		trust:         Trust{Accelerometer: true, Magnetometer: true},
		logger:        logger,
	}
}

// gravityReference is the force an accelerometer at rest measures, in the navigation frame.
func (m *model) gravityReference() r3.Vector {
	return spatialmath.Up.Mul(m.cfg.Gravity)
}

// magneticReference is the local magnetic field in the navigation frame: it points north and
// dips below the horizon by the calibrated dip angle.
func (m *model) magneticReference() r3.Vector {
	return r3.Vector{X: 0, Y: math.Cos(m.dip), Z: -math.Sin(m.dip)}.Mul(m.fieldStrength)
}

func stateQuaternion(state *matrix.Dense) quat.Number {
	return spatialmath.QuaternionFromColumn(state)
}

// TransitionMatrix returns blockdiag(Fq, I6) where Fq propagates the quaternion by the gyroscope
// rates in input over dt. The biases are modeled as constant.
func (m *model) TransitionMatrix(input *matrix.Dense, dt float64) (*matrix.Dense, error) {
	if r, c := input.Dims(); r != 3 || c != 1 {
		return nil, errors.Wrapf(matrix.ErrDimensionMismatch, "gyroscope input must be 3x1, got %dx%d", r, c)
	}
	rates := spatialmath.AngularVelocity(spatialmath.ColumnToVector(input, 0))

	var fq *matrix.Dense
	if m.cfg.ExponentialIntegration {
		rot, err := matrix.ExpSkewSymmetric(matrix.Scale(rates.Skew(), dt))
		if err != nil {
			return nil, err
		}
		dq, err := spatialmath.QuaternionFromRotationMatrix(rot)
		if err != nil {
			return nil, err
		}
		fq = spatialmath.RightMultiplicationMatrix(dq)
	} else {
		var err error
		fq, err = matrix.Add(matrix.Identity(4), matrix.Scale(rates.Differentiator(), dt/2))
		if err != nil {
			return nil, err
		}
	}
	return matrix.BlockDiagonal(fq, matrix.Identity(stateSize-4))
}

// ExpectedMeasurements returns the reference gravity and magnetic field rotated into the device
// frame, plus the bias estimates.
func (m *model) ExpectedMeasurements(state *matrix.Dense) (*matrix.Dense, error) {
	rot, err := spatialmath.ToRotationMatrix(stateQuaternion(state))
	if err != nil {
		return nil, err
	}
	toDevice := matrix.Transpose(rot)
	acc, err := spatialmath.RotateByMatrix(toDevice, m.gravityReference())
	if err != nil {
		return nil, err
	}
	mag, err := spatialmath.RotateByMatrix(toDevice, m.magneticReference())
	if err != nil {
		return nil, err
	}
	acc = acc.Add(spatialmath.ColumnToVector(state, accBiasOffset))
	mag = mag.Add(spatialmath.ColumnToVector(state, magBiasOffset))
	return matrix.NewColumn(acc.X, acc.Y, acc.Z, mag.X, mag.Y, mag.Z), nil
}

// rotationPartials returns ½ ∂R/∂qj for j = 0..3, where R is the unnormalized direction cosine
// matrix of q.
func rotationPartials(q quat.Number) [4][3][3]float64 {
	q0, q1, q2, q3 := q.Real, q.Imag, q.Jmag, q.Kmag
	return [4][3][3]float64{
		{{q0, -q3, q2}, {q3, q0, -q1}, {-q2, q1, q0}},
		{{q1, q2, q3}, {q2, -q1, -q0}, {q3, q0, -q1}},
		{{-q2, q1, q0}, {q1, q2, q3}, {-q0, q3, -q2}},
		{{-q3, -q0, q1}, {q0, -q3, q2}, {q1, q2, q3}},
	}
}

// JacobianMatrix returns the 6x10 derivative of ExpectedMeasurements with respect to the state.
// The derivative of the 1/‖q‖ normalization is neglected.
func (m *model) JacobianMatrix(state *matrix.Dense) (*matrix.Dense, error) {
	q := stateQuaternion(state)
	n := spatialmath.Norm(q)
	if n == 0 {
		return nil, spatialmath.ErrZeroQuaternion
	}
	q0, q1, q2, q3 := q.Real, q.Imag, q.Jmag, q.Kmag

	jac := matrix.New(measurementSize, stateSize)

	// gravity only has a z component, so only the last row of R matters
	g := 2 * m.cfg.Gravity / n
	for i, row := range [3][4]float64{
		{-q2, q3, -q0, q1},
		{q1, q0, q3, q2},
		{q0, -q1, -q2, q3},
	} {
		for j, v := range row {
			jac.Set(i, quaternionOffset+j, g*v)
		}
	}

	ref := m.magneticReference()
	for j, partial := range rotationPartials(q) {
		for i := 0; i < 3; i++ {
			column := r3.Vector{X: partial[0][i], Y: partial[1][i], Z: partial[2][i]}
			jac.Set(3+i, quaternionOffset+j, 2*column.Dot(ref)/n)
		}
	}

	if err := jac.SetBlock(0, accBiasOffset, matrix.Identity(3)); err != nil {
		return nil, err
	}
	if err := jac.SetBlock(3, magBiasOffset, matrix.Identity(3)); err != nil {
		return nil, err
	}
	return jac, nil
}

// AdaptMeasurementCovariance trusts each sensor only when its reading is physically plausible.
// An untrusted sensor gets MaxCovariance on its block, which removes it from the gain.
func (m *model) AdaptMeasurementCovariance(state, measurement *matrix.Dense) (*matrix.Dense, error) {
	if r, c := measurement.Dims(); r != measurementSize || c != 1 {
		return nil, errors.Wrapf(matrix.ErrDimensionMismatch, "measurement must be %dx1, got %dx%d", measurementSize, r, c)
	}
	accTrusted := m.accelerometerPlausible(measurement)
	magTrusted, err := m.magnetometerPlausible(state, measurement)
	if err != nil {
		return nil, err
	}
	m.setTrust(Trust{Accelerometer: accTrusted, Magnetometer: magTrusted})

	untrusted := matrix.Scale(matrix.Identity(3), m.cfg.MaxCovariance)
	accBlock, magBlock := untrusted, untrusted
	if accTrusted {
		accBlock = m.accCov
	}
	if magTrusted {
		magBlock = m.magCov
	}
	return matrix.BlockDiagonal(accBlock, magBlock)
}

// accelerometerPlausible reports whether the measured force is close enough to gravity for the
// device to be considered unaccelerated.
func (m *model) accelerometerPlausible(measurement *matrix.Dense) bool {
	// VectorNorm is the squared magnitude
	magnitude := math.Sqrt(matrix.VectorNorm(measurement.Slice(0, 3, 0, 1)))
	return math.Abs(magnitude-m.cfg.Gravity) <= m.cfg.EpsilonGravity
}

// magnetometerPlausible rotates the measured field into the navigation frame with the current
// estimate and compares its horizontal strength and dip with the reference.
func (m *model) magnetometerPlausible(state, measurement *matrix.Dense) (bool, error) {
	rot, err := spatialmath.ToRotationMatrix(stateQuaternion(state))
	if err != nil {
		return false, err
	}
	field, err := spatialmath.RotateByMatrix(rot, spatialmath.ColumnToVector(measurement, 3))
	if err != nil {
		return false, err
	}
	horizontal := math.Hypot(field.X, field.Y)
	dip := math.Atan2(-field.Z, horizontal)

	strengthOK := math.Abs(horizontal-m.fieldStrength*math.Cos(m.dip)) <= m.cfg.EpsilonMagnetic
	dipOK := utils.Float64AlmostEqual(dip, m.dip, utils.DegToRad(m.cfg.EpsilonDipDegrees))
	if !strengthOK || !dipOK {
		m.logger.Debugw("implausible magnetic field", "horizontal", horizontal, "dip_degrees", utils.RadToDeg(dip))
	}
	return strengthOK && dipOK, nil
}

func (m *model) setTrust(trust Trust) {
	if trust.Accelerometer != m.trust.Accelerometer {
		if trust.Accelerometer {
			m.logger.Info("accelerometer trusted again")
		} else {
			m.logger.Info("accelerometer untrusted, device is accelerating")
		}
	}
	if trust.Magnetometer != m.trust.Magnetometer {
		if trust.Magnetometer {
			m.logger.Info("magnetometer trusted again")
		} else {
			m.logger.Info("magnetometer untrusted, field is disturbed")
		}
	}
	m.trust = trust
}
