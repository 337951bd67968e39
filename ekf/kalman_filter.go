// Package ekf implements a generic extended Kalman filter over dense matrices. The system specific
// behavior (state transition, measurement model and its Jacobian) is supplied by a Model.
package ekf

import (
	"github.com/pkg/errors"

	"go.viam.com/ahrs/logging"
	"go.viam.com/ahrs/utils/matrix"
)

var (
	// ErrUnimplementedModel is returned when a filter is constructed without a Model.
	ErrUnimplementedModel = errors.New("kalman filter has no model")

	// ErrNonMonotonicTime is returned when an update is timestamped before the previous one.
	ErrNonMonotonicTime = errors.New("update time is before the last update time")
)

// Params holds the initial contents of a filter: the state x (n x 1), its error covariance
// P (n x n), the process covariance Q (n x n), the measurement covariance R (m x m) and the time of
// the initial estimate.
type Params struct {
	State                 *matrix.Dense
	ErrorCovariance       *matrix.Dense
	ProcessCovariance     *matrix.Dense
	MeasurementCovariance *matrix.Dense
	Time                  float64
}

// Filter is an extended Kalman filter. It is not safe for concurrent use.
type Filter struct {
	model Model

	x *matrix.Dense // System State Matrix
	p *matrix.Dense // Covariance Matrix
	q *matrix.Dense // Process Covariance Matrix
	r *matrix.Dense // Measurement Covariance Matrix
	k *matrix.Dense // last Kalman gain, nil before the first measurement update

	lastUpdate float64
	logger     logging.Logger
}

// New returns a filter for model seeded with params. The matrices in params are copied.
func New(model Model, params Params, logger logging.Logger) (*Filter, error) {
	if model == nil {
		return nil, ErrUnimplementedModel
	}
	if params.State == nil || params.ErrorCovariance == nil ||
		params.ProcessCovariance == nil || params.MeasurementCovariance == nil {
		return nil, errors.New("kalman filter parameters must all be set")
	}
	n, c := params.State.Dims()
	if c != 1 {
		return nil, errors.Wrapf(matrix.ErrDimensionMismatch, "state must be a column vector, got %dx%d", n, c)
	}
	for name, m := range map[string]*matrix.Dense{
		"error covariance":   params.ErrorCovariance,
		"process covariance": params.ProcessCovariance,
	} {
		if r, c := m.Dims(); r != n || c != n {
			return nil, errors.Wrapf(matrix.ErrDimensionMismatch, "%s must be %dx%d, got %dx%d", name, n, n, r, c)
		}
	}
	if !matrix.IsSquare(params.MeasurementCovariance) {
		r, c := params.MeasurementCovariance.Dims()
		return nil, errors.Wrapf(matrix.ErrDimensionMismatch, "measurement covariance must be square, got %dx%d", r, c)
	}
	if logger == nil {
		logger = logging.NewBlankLogger("ekf")
	}

	return &Filter{
		model:      model,
		x:          params.State.Clone(),
		p:          params.ErrorCovariance.Clone(),
		q:          params.ProcessCovariance.Clone(),
		r:          params.MeasurementCovariance.Clone(),
		lastUpdate: params.Time,
		logger:     logger,
	}, nil
}

// estimate is the part of the filter an update rewrites. Update works on a copy and commits it
// only when every phase succeeds.
type estimate struct {
	x, p, r, k *matrix.Dense
}

// Update advances the filter to time t. The predict phase runs only when input is non-nil and the
// update phase runs only when measurement is non-nil. The last update time moves to t whether or
// not either phase runs. When a phase fails the estimate is left as it was before the call.
func (f *Filter) Update(t float64, input, measurement *matrix.Dense) error {
	if t < f.lastUpdate {
		return errors.Wrapf(ErrNonMonotonicTime, "%v < %v", t, f.lastUpdate)
	}
	dt := t - f.lastUpdate
	f.lastUpdate = t

	est := estimate{x: f.x, p: f.p, r: f.r, k: f.k}
	if input != nil {
		if err := f.predict(&est, input, dt); err != nil {
			return errors.Wrap(err, "predict")
		}
	} else {
		f.logger.Debugw("no input, skipping predict", "time", t)
	}

	if measurement != nil {
		if err := f.correct(&est, measurement); err != nil {
			return errors.Wrap(err, "update")
		}
	} else {
		f.logger.Debugw("no measurement, skipping update", "time", t)
	}

	f.x, f.p, f.r, f.k = est.x, est.p, est.r, est.k
	return nil
}

func (f *Filter) predict(est *estimate, input *matrix.Dense, dt float64) error {
	transition, err := f.model.TransitionMatrix(input, dt)
	if err != nil {
		return err
	}
	x, err := aPrioriState(transition, est.x)
	if err != nil {
		return err
	}
	p, err := aPrioriError(transition, est.p, f.q)
	if err != nil {
		return err
	}
	est.x, est.p = x, p
	return nil
}

func (f *Filter) correct(est *estimate, measurement *matrix.Dense) error {
	jacobian, err := f.model.JacobianMatrix(est.x)
	if err != nil {
		return err
	}
	r := est.r
	if adapter, ok := f.model.(CovarianceAdapter); ok {
		if r, err = adapter.AdaptMeasurementCovariance(est.x, measurement); err != nil {
			return err
		}
	}
	gain, err := kalmanGain(est.p, jacobian, r)
	if err != nil {
		return err
	}
	x, err := f.aPosterioriState(est.x, gain, measurement)
	if err != nil {
		return err
	}
	p, err := aPosterioriError(est.p, gain, jacobian)
	if err != nil {
		return err
	}
	est.x, est.p, est.r, est.k = x, p, r, gain
	return nil
}

// aPrioriState returns F·x.
func aPrioriState(transition, x *matrix.Dense) (*matrix.Dense, error) {
	return matrix.Mul(transition, x)
}

// aPrioriError returns F·P·Fᵀ + Q.
func aPrioriError(transition, p, q *matrix.Dense) (*matrix.Dense, error) {
	fpft, err := matrix.MulAll(transition, p, matrix.Transpose(transition))
	if err != nil {
		return nil, err
	}
	return matrix.Add(fpft, q)
}

// kalmanGain returns K = P·Hᵀ·(H·P·Hᵀ + R)⁻¹.
func kalmanGain(p, jacobian, r *matrix.Dense) (*matrix.Dense, error) {
	pht, err := matrix.Mul(p, matrix.Transpose(jacobian))
	if err != nil {
		return nil, err
	}
	hpht, err := matrix.Mul(jacobian, pht)
	if err != nil {
		return nil, err
	}
	innovation, err := matrix.Add(hpht, r)
	if err != nil {
		return nil, err
	}
	inv, err := matrix.Inverse(innovation)
	if err != nil {
		return nil, errors.Wrap(err, "innovation covariance")
	}
	return matrix.Mul(pht, inv)
}

// aPosterioriState returns x + K·(z - h(x)).
func (f *Filter) aPosterioriState(x, gain, measurement *matrix.Dense) (*matrix.Dense, error) {
	expected, err := f.model.ExpectedMeasurements(x)
	if err != nil {
		return nil, err
	}
	residual, err := matrix.Sub(measurement, expected)
	if err != nil {
		return nil, err
	}
	correction, err := matrix.Mul(gain, residual)
	if err != nil {
		return nil, err
	}
	return matrix.Add(x, correction)
}

// aPosterioriError returns P - K·H·P.
func aPosterioriError(p, gain, jacobian *matrix.Dense) (*matrix.Dense, error) {
	khp, err := matrix.MulAll(gain, jacobian, p)
	if err != nil {
		return nil, err
	}
	return matrix.Sub(p, khp)
}

// State returns a copy of the current state estimate.
func (f *Filter) State() *matrix.Dense {
	return f.x.Clone()
}

// ErrorCovariance returns a copy of the current error covariance.
func (f *Filter) ErrorCovariance() *matrix.Dense {
	return f.p.Clone()
}

// ProcessCovariance returns a copy of the process covariance.
func (f *Filter) ProcessCovariance() *matrix.Dense {
	return f.q.Clone()
}

// MeasurementCovariance returns a copy of the measurement covariance used by the most recent gain
// computation, or the initial one if no measurement has been processed.
func (f *Filter) MeasurementCovariance() *matrix.Dense {
	return f.r.Clone()
}

// Gain returns a copy of the most recent Kalman gain, or nil if no measurement has been processed.
func (f *Filter) Gain() *matrix.Dense {
	if f.k == nil {
		return nil
	}
	return f.k.Clone()
}

// Time returns the time of the last update.
func (f *Filter) Time() float64 {
	return f.lastUpdate
}
