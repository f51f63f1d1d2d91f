package fusion

import (
	"math"
	"math/rand"
	"testing"

	"github.com/golang/geo/r3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"imu-fusion/models"
)

const samplePeriodNs = int64(20_000_000) // 50 Hz

var (
	restingAccel = r3.Vector{Z: 9.81}
	northField   = r3.Vector{Y: 22, Z: -40}
)

func stationarySample(gen int64) models.Sample {
	return models.Sample{
		Generation:    gen,
		TimestampNs:   1_000_000_000 + gen*samplePeriodNs,
		Acceleration:  restingAccel,
		MagneticField: northField,
	}
}

func newTestEngine(t *testing.T, cfg Config) *Engine {
	t.Helper()
	e, err := NewEngine(cfg)
	require.NoError(t, err)
	return e
}

func TestConfigNormalize(t *testing.T) {
	t.Parallel()

	t.Run("zero config takes defaults", func(t *testing.T) {
		t.Parallel()
		got, err := Config{}.Normalize()
		require.NoError(t, err)
		assert.Equal(t, DefaultConfig(), got)
	})

	t.Run("explicit values are kept", func(t *testing.T) {
		t.Parallel()
		in := Config{GravityWindow: 30, FilterCoefficient: 0.98, Epsilon: 1e-6, Gravity: 9.81}
		got, err := in.Normalize()
		require.NoError(t, err)
		assert.Equal(t, 30, got.GravityWindow)
		assert.Equal(t, DefaultWindowSize, got.LinearWindow)
		assert.Equal(t, 0.98, got.FilterCoefficient)
		assert.Equal(t, 1e-6, got.Epsilon)
		assert.Equal(t, 9.81, got.Gravity)
	})

	t.Run("zero coefficient selects the default", func(t *testing.T) {
		t.Parallel()
		got, err := Config{FilterCoefficient: 0}.Normalize()
		require.NoError(t, err)
		assert.Equal(t, DefaultFilterCoefficient, got.FilterCoefficient)
	})

	invalid := map[string]Config{
		"negative window":      {LinearWindow: -1},
		"coefficient above 1":  {FilterCoefficient: 1.5},
		"negative coefficient": {FilterCoefficient: -0.1},
		"negative epsilon":     {Epsilon: -1},
		"negative gravity":     {Gravity: -9.8},
	}
	for name, cfg := range invalid {
		cfg := cfg
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			_, err := NewEngine(cfg)
			assert.Error(t, err)
		})
	}
}

func TestEngineStateTransitions(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t, Config{})
	assert.Equal(t, Uninitialized, e.State())
	assert.Equal(t, "uninitialized", e.State().String())

	// The first cycle has no gravity estimate yet, so no orientation.
	_, ok := e.ProcessSample(stationarySample(0))
	assert.False(t, ok)
	assert.Equal(t, Uninitialized, e.State())
	assert.Equal(t, Stats{Processed: 1, Degraded: 1}, e.Stats())

	est, ok := e.ProcessSample(stationarySample(1))
	require.True(t, ok)
	assert.Equal(t, Fusing, e.State())
	assert.Equal(t, int64(1), est.Generation)
	assert.Equal(t, stationarySample(1).TimestampNs, est.TimestampNs)
	assert.Equal(t, Stats{Processed: 2, Emitted: 1, Degraded: 1}, e.Stats())
}

func TestEngineStationaryLinearAccelerationIsZero(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t, Config{})
	var outputs []Estimate
	for i := int64(0); i < 50; i++ {
		if est, ok := e.ProcessSample(stationarySample(i)); ok {
			outputs = append(outputs, est)
		}
	}
	require.Len(t, outputs, 49)

	for _, est := range outputs[DefaultWindowSize:] {
		assert.InDelta(t, 0, est.Linear.X, 0.1, "gen %d", est.Generation)
		assert.InDelta(t, 0, est.Linear.Y, 0.1, "gen %d", est.Generation)
		assert.InDelta(t, 0, est.Linear.Z, 0.1, "gen %d", est.Generation)
	}

	last := outputs[len(outputs)-1]
	assert.InDelta(t, 0, last.Orientation.Azimuth, 1e-9)
	assert.InDelta(t, 0, last.Orientation.Pitch, 1e-9)
	assert.InDelta(t, 0, last.Orientation.Roll, 1e-9)
	assert.InDelta(t, StandardGravity, last.Gravity.Z, 1e-9)

	rec := last.Record()
	assert.Equal(t, last.Generation, rec.Generation)
	assert.Equal(t, last.Linear, rec.Linear)
}

func TestEngineTimestampsStartingAtZero(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t, Config{})
	rate := r3.Vector{Z: 0.5}
	for i := int64(0); i < 3; i++ {
		s := stationarySample(i)
		s.TimestampNs = i * samplePeriodNs
		s.AngularRate = rate
		e.ProcessSample(s)
	}
	// 0.5 rad/s over 20 ms: half angle 0.005.
	q := DeltaQuaternionFromGyro(rate, 0.01, DefaultEpsilon)
	assert.InDelta(t, q.Kmag, e.delta.Kmag, 1e-12)
}

func TestEngineGyroPullsAzimuth(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t, Config{})
	const omega = 0.5 // rad/s about z
	theta := omega * float64(samplePeriodNs) * nsToSeconds

	for i := int64(0); i < 60; i++ {
		s := stationarySample(i)
		s.AngularRate = r3.Vector{Z: omega}
		e.ProcessSample(s)
	}

	// Each cycle the gyro moves the frame by -theta in azimuth and the
	// tilt compass pulls it back to 0; the 0.5 blend settles at -theta.
	assert.InDelta(t, -theta, e.Orientation().Azimuth, 5e-4)
	assert.InDelta(t, 0, e.AccelMagOrientation().Azimuth, 1e-9)
}

// headingField is a horizontal magnetic field that a level device reads
// at the given azimuth.
func headingField(azimuth float64) r3.Vector {
	const horizontal, vertical = 25.0, -40.0
	return r3.Vector{X: -math.Sin(azimuth) * horizontal, Y: math.Cos(azimuth) * horizontal, Z: vertical}
}

func TestEngineSeedsGyroOnce(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t, Config{MagneticWindow: 1})
	for i := int64(0); i < 2; i++ {
		s := stationarySample(i)
		s.MagneticField = headingField(-math.Pi / 3)
		e.ProcessSample(s)
	}
	require.Equal(t, Fusing, e.State())
	assert.InDelta(t, -math.Pi/3, e.AccelMagOrientation().Azimuth, 1e-9)
	assert.InDelta(t, -math.Pi/3, e.Orientation().Azimuth, 1e-9)

	// A second seeding would compose the new heading onto the gyro frame
	// and land on 0; a single seed blends -π/3 with π/6.
	s := stationarySample(2)
	s.MagneticField = headingField(math.Pi / 6)
	e.ProcessSample(s)
	assert.InDelta(t, math.Pi/6, e.AccelMagOrientation().Azimuth, 1e-9)
	assert.InDelta(t, -math.Pi/12, e.Orientation().Azimuth, 1e-9)
}

func TestEngineDegradedInputKeepsOrientation(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t, Config{MagneticWindow: 1})
	for i := int64(0); i < 20; i++ {
		e.ProcessSample(stationarySample(i))
	}
	before := e.AccelMagOrientation()
	degraded := e.Stats().Degraded

	// Field parallel to gravity: no horizontal component, no heading.
	s := stationarySample(20)
	s.MagneticField = r3.Vector{Z: 5}
	est, ok := e.ProcessSample(s)

	require.True(t, ok, "fusion continues on the last good orientation")
	assert.Equal(t, degraded+1, e.Stats().Degraded)
	assert.Equal(t, before, e.AccelMagOrientation())
	assert.InDelta(t, 0, est.Linear.Z, 0.1)
}

func TestEngineGyroFrameStaysOrthonormal(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t, Config{})
	rng := rand.New(rand.NewSource(42))

	for i := int64(0); i < 20000; i++ {
		s := stationarySample(i)
		s.AngularRate = r3.Vector{
			X: rng.NormFloat64() * 2,
			Y: rng.NormFloat64() * 2,
			Z: rng.NormFloat64() * 2,
		}
		s.Acceleration = s.Acceleration.Add(r3.Vector{X: rng.NormFloat64(), Y: rng.NormFloat64()})
		_, ok := e.ProcessSample(s)
		if i > 0 {
			require.True(t, ok)
		}
		if i%1000 == 999 {
			requireOrthonormal(t, e.GyroRotation(), 1e-9)
		}
	}

	o := e.Orientation()
	assert.False(t, math.IsNaN(o.Azimuth) || math.IsNaN(o.Pitch) || math.IsNaN(o.Roll))
	assert.LessOrEqual(t, math.Abs(o.Pitch), math.Pi/2)
}
