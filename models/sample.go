package models

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/golang/geo/r3"
)

// SampleFields is the number of whitespace-separated values in one sample line:
//
//	generation timestamp_ns ax ay az gx gy gz mx my mz
const SampleFields = 11

// ErrMalformedSample is wrapped by every ParseSample failure.
var ErrMalformedSample = errors.New("malformed sample")

// Sample holds one synchronised accelerometer + gyroscope + magnetometer reading.
type Sample struct {
	Generation    int64     `json:"generation"`     // measurement sequence number
	TimestampNs   int64     `json:"timestamp_ns"`   // non-decreasing, nanoseconds
	Acceleration  r3.Vector `json:"acceleration"`   // m/s²
	AngularRate   r3.Vector `json:"angular_rate"`   // rad/s
	MagneticField r3.Vector `json:"magnetic_field"` // µT
}

// ParseSample decodes one whitespace-separated sample line.
func ParseSample(line string) (Sample, error) {
	parts := strings.Fields(line)
	if len(parts) != SampleFields {
		return Sample{}, fmt.Errorf("%w: want %d fields, got %d", ErrMalformedSample, SampleFields, len(parts))
	}

	gen, err := atoi64(parts[0])
	if err != nil {
		return Sample{}, fmt.Errorf("%w: generation %q: %v", ErrMalformedSample, parts[0], err)
	}
	ts, err := atoi64(parts[1])
	if err != nil {
		return Sample{}, fmt.Errorf("%w: timestamp %q: %v", ErrMalformedSample, parts[1], err)
	}

	var vals [9]float64
	for i := range vals {
		vals[i], err = atof(parts[2+i])
		if err != nil {
			return Sample{}, fmt.Errorf("%w: field %d %q: %v", ErrMalformedSample, 2+i, parts[2+i], err)
		}
		if math.IsNaN(vals[i]) || math.IsInf(vals[i], 0) {
			return Sample{}, fmt.Errorf("%w: field %d %q is not finite", ErrMalformedSample, 2+i, parts[2+i])
		}
	}

	return Sample{
		Generation:    gen,
		TimestampNs:   ts,
		Acceleration:  r3.Vector{X: vals[0], Y: vals[1], Z: vals[2]},
		AngularRate:   r3.Vector{X: vals[3], Y: vals[4], Z: vals[5]},
		MagneticField: r3.Vector{X: vals[6], Y: vals[7], Z: vals[8]},
	}, nil
}

// Fields returns the sample in its canonical line order.
func (s *Sample) Fields() []string {
	return []string{
		itoa64(s.Generation),
		itoa64(s.TimestampNs),
		ftoa(s.Acceleration.X, -1), ftoa(s.Acceleration.Y, -1), ftoa(s.Acceleration.Z, -1),
		ftoa(s.AngularRate.X, -1), ftoa(s.AngularRate.Y, -1), ftoa(s.AngularRate.Z, -1),
		ftoa(s.MagneticField.X, -1), ftoa(s.MagneticField.Y, -1), ftoa(s.MagneticField.Z, -1),
	}
}

// String formats the sample so that ParseSample reads it back unchanged.
func (s Sample) String() string {
	return strings.Join(s.Fields(), " ")
}

func (Sample) CSVHeader() []string {
	return []string{
		"generation", "timestamp_ns",
		"accel_x", "accel_y", "accel_z",
		"gyro_x", "gyro_y", "gyro_z",
		"mag_x", "mag_y", "mag_z",
	}
}

func (s *Sample) CSVRow() []string {
	return s.Fields()
}
