package fusion

import (
	"fmt"

	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/num/quat"

	"imu-fusion/models"
)

// StandardGravity is Earth's standard gravity in m/s².
const StandardGravity = 9.80665

// DefaultFilterCoefficient weights the gyro estimate in the complementary filter.
const DefaultFilterCoefficient = 0.5

const nsToSeconds = 1e-9

// Config holds the engine constants. Zero values select the defaults, so
// FilterCoefficient is confined to (0, 1]; a pure accel/mag estimate is
// not configurable.
type Config struct {
	GravityWindow      int     `yaml:"gravity_window"`
	MagneticWindow     int     `yaml:"magnetic_window"`
	AccelerationWindow int     `yaml:"acceleration_window"`
	LinearWindow       int     `yaml:"linear_window"`
	FilterCoefficient  float64 `yaml:"filter_coefficient"` // weight of the gyro estimate, (0, 1]
	Epsilon            float64 `yaml:"epsilon"`
	Gravity            float64 `yaml:"gravity"`
}

// DefaultConfig returns the configuration used when nothing is set.
func DefaultConfig() Config {
	return Config{
		GravityWindow:      DefaultWindowSize,
		MagneticWindow:     DefaultWindowSize,
		AccelerationWindow: DefaultWindowSize,
		LinearWindow:       DefaultWindowSize,
		FilterCoefficient:  DefaultFilterCoefficient,
		Epsilon:            DefaultEpsilon,
		Gravity:            StandardGravity,
	}
}

// Normalize fills unset fields with defaults and validates the rest.
func (c Config) Normalize() (Config, error) {
	d := DefaultConfig()
	out := c

	for _, w := range []*int{&out.GravityWindow, &out.MagneticWindow, &out.AccelerationWindow, &out.LinearWindow} {
		if *w < 0 {
			return out, fmt.Errorf("invalid window size %d: must be positive", *w)
		}
		if *w == 0 {
			*w = DefaultWindowSize
		}
	}

	if out.FilterCoefficient == 0 {
		out.FilterCoefficient = d.FilterCoefficient
	}
	if out.FilterCoefficient < 0 || out.FilterCoefficient > 1 {
		return out, fmt.Errorf("invalid filter coefficient %g: must be in (0, 1]", out.FilterCoefficient)
	}

	if out.Epsilon == 0 {
		out.Epsilon = d.Epsilon
	}
	if out.Epsilon < 0 {
		return out, fmt.Errorf("invalid epsilon %g: must be positive", out.Epsilon)
	}

	if out.Gravity == 0 {
		out.Gravity = d.Gravity
	}
	if out.Gravity < 0 {
		return out, fmt.Errorf("invalid gravity %g: must be positive", out.Gravity)
	}

	return out, nil
}

// State is the engine's position in its start-up sequence.
type State int

const (
	// Uninitialized: no accel/mag orientation has been computed yet.
	Uninitialized State = iota
	// Oriented: an accel/mag orientation exists but the gyro frame is not seeded.
	Oriented
	// Fusing: gyro integration is active and every sample yields output.
	Fusing
)

var stateNames = [...]string{"uninitialized", "oriented", "fusing"}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return "unknown"
}

// Estimate is the engine output for one sample.
type Estimate struct {
	Generation   int64
	TimestampNs  int64
	Orientation  Euler
	Gravity      r3.Vector // gravity removed from the acceleration, device frame
	Linear       r3.Vector // smoothed linear acceleration
	Acceleration r3.Vector // smoothed raw acceleration
}

// Record converts the estimate to its exported form.
func (e Estimate) Record() *models.LinearRecord {
	return &models.LinearRecord{
		Generation:  e.Generation,
		TimestampNs: e.TimestampNs,
		Linear:      e.Linear,
		Azimuth:     e.Orientation.Azimuth,
		Pitch:       e.Orientation.Pitch,
		Roll:        e.Orientation.Roll,
	}
}

// Stats counts what the engine has seen since construction.
type Stats struct {
	Processed uint64 // samples passed to ProcessSample
	Emitted   uint64 // samples that produced an Estimate
	Degraded  uint64 // samples whose accel/mag orientation could not be computed
}

// Engine fuses accelerometer/magnetometer orientation with integrated
// gyroscope rates through a complementary filter and removes gravity
// from the acceleration.
//
// An Engine is a synchronous state machine and is not safe for
// concurrent use: feed it from a single goroutine.
type Engine struct {
	cfg Config

	gravityFilter  *MovingAverage
	magneticFilter *MovingAverage
	accelFilter    *MovingAverage
	linearFilter   *MovingAverage

	gyroRotation        Mat3
	gyroOrientation     Euler
	accelMagRotation    Mat3
	accelMagOrientation Euler
	fused               Euler
	delta               quat.Number

	gravity      r3.Vector
	acceleration r3.Vector
	magnetic     r3.Vector
	linear       r3.Vector

	lastTimestamp int64
	timed         bool
	hasAccelMag   bool
	gyroSeeded    bool

	stats Stats
}

// NewEngine validates cfg and returns an engine in the Uninitialized state.
func NewEngine(cfg Config) (*Engine, error) {
	cfg, err := cfg.Normalize()
	if err != nil {
		return nil, fmt.Errorf("fusion config: %w", err)
	}
	return &Engine{
		cfg:            cfg,
		gravityFilter:  NewMovingAverage(cfg.GravityWindow),
		magneticFilter: NewMovingAverage(cfg.MagneticWindow),
		accelFilter:    NewMovingAverage(cfg.AccelerationWindow),
		linearFilter:   NewMovingAverage(cfg.LinearWindow),
		gyroRotation:   Identity(),
		delta:          quat.Number{Real: 1},
	}, nil
}

// Config returns the normalised configuration in use.
func (e *Engine) Config() Config { return e.cfg }

// State reports the current start-up state.
func (e *Engine) State() State {
	switch {
	case e.gyroSeeded:
		return Fusing
	case e.hasAccelMag:
		return Oriented
	default:
		return Uninitialized
	}
}

// Orientation returns the latest fused orientation.
func (e *Engine) Orientation() Euler { return e.fused }

// AccelMagOrientation returns the latest tilt-compass orientation.
func (e *Engine) AccelMagOrientation() Euler { return e.accelMagOrientation }

// GyroRotation returns the current gyro frame.
func (e *Engine) GyroRotation() Mat3 { return e.gyroRotation }

// Stats returns a copy of the counters.
func (e *Engine) Stats() Stats { return e.stats }

// ProcessSample runs one fusion cycle. ok is false while the engine is
// still acquiring its first orientation; no estimate is produced then.
//
// Timestamps must be non-decreasing. The first sample contributes no
// gyro rotation since there is no previous timestamp to integrate from.
func (e *Engine) ProcessSample(s models.Sample) (est Estimate, ok bool) {
	e.stats.Processed++

	e.acceleration = e.accelFilter.UpdateVec(s.Acceleration)
	e.magnetic = e.magneticFilter.UpdateVec(s.MagneticField)

	// Tilt-compass orientation from the previous cycle's gravity estimate.
	// On failure the last good orientation stays in place.
	if r, valid := RotationFromAccelMag(e.gravity, e.magnetic); valid {
		e.accelMagRotation = r
		e.accelMagOrientation = EulerFromRotation(r)
		e.hasAccelMag = true
	} else {
		e.stats.Degraded++
	}

	var dt float64
	if e.timed {
		dt = float64(s.TimestampNs-e.lastTimestamp) * nsToSeconds
	}
	e.delta = DeltaQuaternionFromGyro(s.AngularRate, dt/2, e.cfg.Epsilon)
	e.lastTimestamp = s.TimestampNs
	e.timed = true

	e.gravity = e.gravityFilter.UpdateVec(GravityFromQuaternion(e.delta))

	if e.hasAccelMag && !e.gyroSeeded {
		e.gyroRotation = e.gyroRotation.Mul(e.accelMagRotation)
		e.gyroSeeded = true
	}
	if !e.gyroSeeded {
		return Estimate{}, false
	}

	e.gyroRotation = e.gyroRotation.Mul(MatrixFromQuaternion(e.delta))
	e.gyroOrientation = EulerFromRotation(e.gyroRotation)

	e.fused = BlendOrientation(e.gyroOrientation, e.accelMagOrientation, e.cfg.FilterCoefficient)

	// Drift correction: the gyro frame restarts from the fused orientation.
	e.gyroRotation = MatrixFromEuler(e.fused)
	e.gyroOrientation = e.fused

	g := GravityFromOrientation(e.fused, e.cfg.Gravity)
	e.linear = e.linearFilter.UpdateVec(e.acceleration.Sub(g))

	e.stats.Emitted++
	return Estimate{
		Generation:   s.Generation,
		TimestampNs:  s.TimestampNs,
		Orientation:  e.fused,
		Gravity:      g,
		Linear:       e.linear,
		Acceleration: e.acceleration,
	}, true
}
