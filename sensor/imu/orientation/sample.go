package orientation

import (
	"sort"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"

	"go.viam.com/ahrs/spatialmath"
	"go.viam.com/ahrs/utils/matrix"
)

// ErrIncompleteSample is returned when a sample map lacks one of the sensor readings.
var ErrIncompleteSample = errors.New("incomplete sensor sample")

// Sample is one synchronized reading of the three sensors. Gyroscope rates are in rad/s about the
// device's axes and Time is in seconds.
type Sample struct {
	Roll  float64 `json:"roll"`
	Pitch float64 `json:"pitch"`
	Yaw   float64 `json:"yaw"`

	XForce float64 `json:"xforce"`
	YForce float64 `json:"yforce"`
	ZForce float64 `json:"zforce"`

	XMag float64 `json:"xmag"`
	YMag float64 `json:"ymag"`
	ZMag float64 `json:"zmag"`

	Time float64 `json:"time"`
}

// SampleFromMap decodes a sample from its map form. Every key must be present.
func SampleFromMap(values map[string]interface{}) (Sample, error) {
	var s Sample
	var md mapstructure.Metadata
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		Result:           &s,
		Metadata:         &md,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return Sample{}, err
	}
	if err := decoder.Decode(values); err != nil {
		return Sample{}, errors.Wrap(err, "decoding sensor sample")
	}
	if len(md.Unset) > 0 {
		sort.Strings(md.Unset)
		return Sample{}, errors.Wrapf(ErrIncompleteSample, "missing %s", strings.Join(md.Unset, ", "))
	}
	return s, nil
}

// AngularVelocity returns the gyroscope reading.
func (s Sample) AngularVelocity() spatialmath.AngularVelocity {
	return spatialmath.AngularVelocity{X: s.Roll, Y: s.Pitch, Z: s.Yaw}
}

// Acceleration returns the accelerometer reading.
func (s Sample) Acceleration() r3.Vector {
	return r3.Vector{X: s.XForce, Y: s.YForce, Z: s.ZForce}
}

// MagneticField returns the magnetometer reading.
func (s Sample) MagneticField() r3.Vector {
	return r3.Vector{X: s.XMag, Y: s.YMag, Z: s.ZMag}
}

func (s Sample) input() *matrix.Dense {
	return matrix.NewColumn(s.Roll, s.Pitch, s.Yaw)
}

func (s Sample) measurement() *matrix.Dense {
	return matrix.NewColumn(s.XForce, s.YForce, s.ZForce, s.XMag, s.YMag, s.ZMag)
}
