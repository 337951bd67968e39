package orientation

import (
	"sort"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	goutils "go.viam.com/utils"
)

// ProcessNoise holds the per-step process variance of each part of the state.
type ProcessNoise struct {
	Quaternion        float64 `json:"quaternion"`
	AccelerometerBias float64 `json:"accelerometer_bias"`
	MagnetometerBias  float64 `json:"magnetometer_bias"`
}

// Config tunes an orientation filter. The zero value is not usable; start from DefaultConfig.
type Config struct {
	// Gravity is the magnitude of the reference gravity vector, in the accelerometer's units.
	Gravity float64 `json:"gravity"`
	// EpsilonGravity is the largest deviation of the measured acceleration magnitude from Gravity
	// for which the accelerometer is trusted.
	EpsilonGravity float64 `json:"epsilon_gravity"`
	// EpsilonMagnetic is the largest deviation of the horizontal field magnitude from the
	// reference for which the magnetometer is trusted.
	EpsilonMagnetic float64 `json:"epsilon_magnetic"`
	// EpsilonDipDegrees bounds the deviation of the measured dip from the calibrated one.
	EpsilonDipDegrees float64 `json:"epsilon_dip_degrees"`
	// MaxCovariance is the variance given to a sensor that is not trusted.
	MaxCovariance float64 `json:"max_covariance"`
	// FieldStrength is the magnitude of the local magnetic field. Zero means it is taken from the
	// first sample.
	FieldStrength float64      `json:"field_strength"`
	ProcessNoise  ProcessNoise `json:"process_noise"`
	// ExponentialIntegration propagates the quaternion with the exact rotation over each step
	// instead of the first order approximation.
	ExponentialIntegration bool `json:"exponential_integration"`
	// AlignOnFirstSample replaces the calibrated quaternion with the tilt of the first
	// accelerometer reading.
	AlignOnFirstSample bool `json:"align_on_first_sample"`
	// StartTime is the time of the calibrated estimate. Zero means the first sample's time.
	StartTime float64 `json:"start_time"`
}

// DefaultConfig returns the configuration the filter is tuned for: SI accelerometer units and
// a magnetometer in microtesla.
func DefaultConfig() *Config {
	return &Config{
		Gravity:           9.81,
		EpsilonGravity:    0.5,
		EpsilonMagnetic:   5.0,
		EpsilonDipDegrees: 10,
		MaxCovariance:     1e9,
		ProcessNoise: ProcessNoise{
			Quaternion:        1e-6,
			AccelerometerBias: 1e-8,
			MagnetometerBias:  1e-8,
		},
	}
}

// Validate ensures all parts of the config are valid.
func (cfg *Config) Validate(path string) error {
	var err error
	positive := func(field string, v float64) {
		switch {
		case v == 0:
			err = multierr.Append(err, goutils.NewConfigValidationFieldRequiredError(path, field))
		case v < 0:
			err = multierr.Append(err, goutils.NewConfigValidationError(path, errors.Errorf("%s must be positive, got %v", field, v)))
		}
	}
	nonNegative := func(field string, v float64) {
		if v < 0 {
			err = multierr.Append(err, goutils.NewConfigValidationError(path, errors.Errorf("%s cannot be negative, got %v", field, v)))
		}
	}

	positive("gravity", cfg.Gravity)
	positive("epsilon_gravity", cfg.EpsilonGravity)
	positive("epsilon_magnetic", cfg.EpsilonMagnetic)
	positive("epsilon_dip_degrees", cfg.EpsilonDipDegrees)
	positive("max_covariance", cfg.MaxCovariance)
	nonNegative("field_strength", cfg.FieldStrength)
	nonNegative("start_time", cfg.StartTime)
	nonNegative("process_noise.quaternion", cfg.ProcessNoise.Quaternion)
	nonNegative("process_noise.accelerometer_bias", cfg.ProcessNoise.AccelerometerBias)
	nonNegative("process_noise.magnetometer_bias", cfg.ProcessNoise.MagnetometerBias)
	return err
}

// DecodeConfig converts an attribute map into a Config. Attributes that are not set keep their
// DefaultConfig values, unknown attributes are an error, and the result is validated.
func DecodeConfig(attributes map[string]interface{}) (*Config, error) {
	cfg := DefaultConfig()
	var md mapstructure.Metadata
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:  "json",
		Result:   cfg,
		Metadata: &md,
	})
	if err != nil {
		return nil, err
	}
	if err := decoder.Decode(attributes); err != nil {
		return nil, errors.Wrap(err, "decoding orientation config")
	}
	if len(md.Unused) > 0 {
		sort.Strings(md.Unused)
		return nil, errors.Errorf("unknown orientation config attributes: %s", strings.Join(md.Unused, ", "))
	}
	if err := cfg.Validate(""); err != nil {
		return nil, err
	}
	return cfg, nil
}
