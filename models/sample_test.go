package models

import (
	"errors"
	"testing"

	"github.com/golang/geo/r3"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSample(t *testing.T) {
	t.Parallel()

	got, err := ParseSample("7 1500000000  0.12 -0.3 9.81\t0.01 0.02 -0.03  22.5 -4 -40.25")
	require.NoError(t, err)

	want := Sample{
		Generation:    7,
		TimestampNs:   1500000000,
		Acceleration:  r3.Vector{X: 0.12, Y: -0.3, Z: 9.81},
		AngularRate:   r3.Vector{X: 0.01, Y: 0.02, Z: -0.03},
		MagneticField: r3.Vector{X: 22.5, Y: -4, Z: -40.25},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("ParseSample mismatch (-want +got):\n%s", diff)
	}

	again, err := ParseSample(got.String())
	require.NoError(t, err)
	if diff := cmp.Diff(got, again); diff != "" {
		t.Errorf("String does not parse back (-want +got):\n%s", diff)
	}
}

func TestParseSampleMalformed(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"empty":            "",
		"five fields":      "1 2 0.1 0.2 0.3",
		"too many fields":  "1 2 3 4 5 6 7 8 9 10 11 12",
		"float generation": "1.5 2 3 4 5 6 7 8 9 10 11",
		"bad timestamp":    "1 x 3 4 5 6 7 8 9 10 11",
		"bad magnetic":     "1 2 3 4 5 6 7 8 9 10 NaNx",
		"nan gyro":         "1 2 0 0 9.81 NaN 0 0 0 22 -40",
		"inf accel":        "1 2 Inf 0 9.81 0 0 0 0 22 -40",
		"negative inf mag": "1 2 0 0 9.81 0 0 0 0 22 -Inf",
	}
	for name, line := range tests {
		line := line
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			_, err := ParseSample(line)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrMalformedSample), "got %v", err)
		})
	}
}

func TestLinearRecordFormatting(t *testing.T) {
	t.Parallel()

	rec := LinearRecord{
		Generation:  12,
		TimestampNs: 240000000,
		Linear:      r3.Vector{X: 0.5, Y: -0.25, Z: 0.003349},
		Azimuth:     0.1,
		Pitch:       -0.2,
		Roll:        0.3,
	}

	// Every field is separated; generation and timestamp never run together.
	assert.Equal(t, "12 240000000 0.500000 -0.250000 0.003349", rec.String())
	assert.Len(t, rec.CSVRow(), len(rec.CSVHeader()))
	assert.Equal(t, []string{"0.100000", "-0.200000", "0.300000"}, rec.CSVRow()[5:])
}

func TestSampleCSV(t *testing.T) {
	t.Parallel()

	s := Sample{Generation: 1, TimestampNs: 2, Acceleration: r3.Vector{Z: 9.81}}
	row := s.CSVRow()
	require.Len(t, row, len(s.CSVHeader()))
	assert.Equal(t, "9.81", row[4])
	assert.Equal(t, SampleFields, len(row))
}
