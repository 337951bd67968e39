package orientation

import (
	"math"

	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"go.viam.com/ahrs/spatialmath"
	"go.viam.com/ahrs/utils/matrix"
)

const (
	stateSize       = 10
	measurementSize = 6

	quaternionOffset = 0
	accBiasOffset    = 4
	magBiasOffset    = 7
)

// ErrIncompleteCalibration is returned when a Calibration is missing a field or has one of the
// wrong shape.
var ErrIncompleteCalibration = errors.New("incomplete calibration")

// Calibration is the starting point of a filter, produced by an external calibration procedure.
type Calibration struct {
	// State is the 10x1 initial state: quaternion (scalar first), accelerometer bias and
	// magnetometer bias.
	State *matrix.Dense
	// ErrorCovariance is the 10x10 initial error covariance of State.
	ErrorCovariance *matrix.Dense
	// AccelerometerCovariance and MagnetometerCovariance are the 3x3 noise covariances of the
	// trusted sensors.
	AccelerometerCovariance *matrix.Dense
	MagnetometerCovariance  *matrix.Dense
	// Dip is the local magnetic dip angle in radians, positive when the field points down.
	Dip float64
}

// Validate reports every missing or mis-shaped field at once.
func (cal *Calibration) Validate() error {
	var err error
	check := func(name string, m *matrix.Dense, rows, cols int) {
		if m == nil {
			err = multierr.Append(err, errors.Wrapf(ErrIncompleteCalibration, "%s is missing", name))
			return
		}
		if r, c := m.Dims(); r != rows || c != cols {
			err = multierr.Append(err, errors.Wrapf(ErrIncompleteCalibration, "%s must be %dx%d, got %dx%d", name, rows, cols, r, c))
		}
	}
	check("state", cal.State, stateSize, 1)
	check("error covariance", cal.ErrorCovariance, stateSize, stateSize)
	check("accelerometer covariance", cal.AccelerometerCovariance, 3, 3)
	check("magnetometer covariance", cal.MagnetometerCovariance, 3, 3)
	if err != nil {
		return err
	}

	if spatialmath.Norm(spatialmath.QuaternionFromColumn(cal.State)) == 0 {
		err = multierr.Append(err, errors.Wrap(ErrIncompleteCalibration, "state quaternion is zero"))
	}
	if math.IsNaN(cal.Dip) || math.IsInf(cal.Dip, 0) {
		err = multierr.Append(err, errors.Wrapf(ErrIncompleteCalibration, "dip must be finite, got %v", cal.Dip))
	}
	return err
}
