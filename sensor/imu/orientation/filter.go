// Package orientation estimates the orientation of a device from its gyroscope, accelerometer and
// magnetometer with an extended Kalman filter. The state is the device to navigation quaternion
// together with the accelerometer and magnetometer biases.
package orientation

import (
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/num/quat"

	"go.viam.com/ahrs/ekf"
	"go.viam.com/ahrs/logging"
	"go.viam.com/ahrs/spatialmath"
	"go.viam.com/ahrs/utils/matrix"
)

// Filter tracks the orientation of one device. It is not safe for concurrent use.
type Filter struct {
	cfg    *Config
	model  *model
	core   *ekf.Filter
	params ekf.Params

	started bool
	logger  logging.Logger
}

// New returns a filter seeded from cal. A nil cfg means DefaultConfig.
func New(cal Calibration, cfg *Config, logger logging.Logger) (*Filter, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(""); err != nil {
		return nil, err
	}
	if err := cal.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = logging.NewBlankLogger("orientation")
	}

	cfgCopy := *cfg
	m := newModel(&cal, &cfgCopy, logger)
	noise := cfgCopy.ProcessNoise
	measurementCov, err := matrix.BlockDiagonal(cal.AccelerometerCovariance, cal.MagnetometerCovariance)
	if err != nil {
		return nil, err
	}
	params := ekf.Params{
		State:           cal.State,
		ErrorCovariance: cal.ErrorCovariance,
		ProcessCovariance: matrix.Diagonal(
			noise.Quaternion, noise.Quaternion, noise.Quaternion, noise.Quaternion,
			noise.AccelerometerBias, noise.AccelerometerBias, noise.AccelerometerBias,
			noise.MagnetometerBias, noise.MagnetometerBias, noise.MagnetometerBias,
		),
		MeasurementCovariance: measurementCov,
		Time:                  cfgCopy.StartTime,
	}
	core, err := ekf.New(m, params, logger.Sublogger("ekf"))
	if err != nil {
		return nil, err
	}

	return &Filter{
		cfg:    &cfgCopy,
		model:  m,
		core:   core,
		params: params,
		logger: logger,
	}, nil
}

// Orientation folds sample into the estimate and returns the updated quaternion. The quaternion
// is not normalized.
func (f *Filter) Orientation(sample Sample) (quat.Number, error) {
	if !f.started {
		if err := f.start(sample); err != nil {
			return quat.Number{}, err
		}
	}
	if err := f.core.Update(sample.Time, sample.input(), sample.measurement()); err != nil {
		return quat.Number{}, err
	}

	q := f.Quaternion()
	f.logger.Debugw("orientation updated", "time", sample.Time, "euler", spatialmath.QuatToEuler(q))
	return q, nil
}

// OrientationFromMap is Orientation for a sample in map form.
func (f *Filter) OrientationFromMap(values map[string]interface{}) (quat.Number, error) {
	sample, err := SampleFromMap(values)
	if err != nil {
		return quat.Number{}, err
	}
	return f.Orientation(sample)
}

// start applies the settings that depend on the first sample and reseeds the core with them.
func (f *Filter) start(sample Sample) error {
	params := f.params
	if f.cfg.StartTime == 0 {
		params.Time = sample.Time
	}

	if f.cfg.AlignOnFirstSample {
		tilt, err := spatialmath.Tilt(sample.Acceleration())
		if err != nil {
			return errors.Wrap(err, "aligning on first sample")
		}
		state := params.State.Clone()
		if err := state.SetBlock(quaternionOffset, 0, spatialmath.QuaternionToColumn(tilt)); err != nil {
			return err
		}
		params.State = state
		f.logger.Infow("aligned to first sample", "euler", spatialmath.QuatToEuler(tilt))
	}

	if f.model.fieldStrength == 0 {
		f.model.fieldStrength = sample.MagneticField().Norm()
		f.logger.Infow("learned magnetic field strength", "strength", f.model.fieldStrength)
	}

	core, err := ekf.New(f.model, params, f.logger.Sublogger("ekf"))
	if err != nil {
		return err
	}
	f.core = core
	f.params = params
	f.started = true
	return nil
}

// Quaternion returns the current, unnormalized, orientation estimate.
func (f *Filter) Quaternion() quat.Number {
	return stateQuaternion(f.core.State())
}

// Biases returns the current accelerometer and magnetometer bias estimates.
func (f *Filter) Biases() (acc, mag r3.Vector) {
	state := f.core.State()
	return spatialmath.ColumnToVector(state, accBiasOffset), spatialmath.ColumnToVector(state, magBiasOffset)
}

// State returns a copy of the full 10x1 state.
func (f *Filter) State() *matrix.Dense {
	return f.core.State()
}

// ErrorCovariance returns a copy of the 10x10 error covariance.
func (f *Filter) ErrorCovariance() *matrix.Dense {
	return f.core.ErrorCovariance()
}

// MeasurementCovariance returns a copy of the 6x6 measurement covariance used by the latest
// update.
func (f *Filter) MeasurementCovariance() *matrix.Dense {
	return f.core.MeasurementCovariance()
}

// Trust returns which sensors the latest update relied on.
func (f *Filter) Trust() Trust {
	return f.model.trust
}

// FieldStrength returns the magnetic field strength the filter expects.
func (f *Filter) FieldStrength() float64 {
	return f.model.fieldStrength
}
