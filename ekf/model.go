package ekf

import (
	"go.viam.com/ahrs/utils/matrix"
)

// Model supplies the system specific parts of an extended Kalman filter. For a state of size n
// and a measurement of size m:
//   - TransitionMatrix returns the n x n matrix F that propagates the state over dt given the
//     input (control) vector.
//   - JacobianMatrix returns the m x n matrix H of partial derivatives of the measurement model
//     with respect to the state, evaluated at state.
//   - ExpectedMeasurements returns the m x 1 measurement predicted for state.
type Model interface {
	TransitionMatrix(input *matrix.Dense, dt float64) (*matrix.Dense, error)
	JacobianMatrix(state *matrix.Dense) (*matrix.Dense, error)
	ExpectedMeasurements(state *matrix.Dense) (*matrix.Dense, error)
}

// CovarianceAdapter is implemented by models that decide, per measurement, how much to trust
// each sensor. When a Model also implements it, the covariance it returns replaces the filter's
// measurement covariance before the gain is computed.
type CovarianceAdapter interface {
	AdaptMeasurementCovariance(state, measurement *matrix.Dense) (*matrix.Dense, error)
}
