package fusion

import (
	"math"

	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/num/quat"
)

// MinHorizontalField is the smallest |magnetic × gravity| for which a
// heading can be trusted. Typical readings are well above 100.
const MinHorizontalField = 0.1

// DefaultEpsilon is the gyro magnitude below which the rate is not
// normalised to a unit axis.
const DefaultEpsilon = 1e-9

// ─── tilt-compass orientation ───────────────────────────────────────────

// RotationFromAccelMag builds the device→world rotation whose rows are
// east (H), north (M) and up (A) expressed in device coordinates.
//
// ok is false when the horizontal field is too weak (free fall, or close
// to a magnetic pole) or not a number; the caller keeps its previous
// orientation then.
func RotationFromAccelMag(gravity, magnetic r3.Vector) (Mat3, bool) {
	h := magnetic.Cross(gravity)
	normH := h.Norm()
	if !(normH >= MinHorizontalField) {
		return Mat3{}, false
	}
	h = h.Mul(1 / normH)
	a := gravity.Normalize()
	m := a.Cross(h)

	return Mat3{
		{h.X, h.Y, h.Z},
		{m.X, m.Y, m.Z},
		{a.X, a.Y, a.Z},
	}, true
}

// EulerFromRotation extracts azimuth, pitch and roll from r.
// Pitch saturates at ±π/2 when rounding pushes |r[2][1]| past 1.
func EulerFromRotation(r Mat3) Euler {
	return Euler{
		Azimuth: math.Atan2(r[0][1], r[1][1]),
		Pitch:   math.Asin(clamp(-r[2][1], -1, 1)),
		Roll:    math.Atan2(-r[2][0], r[2][2]),
	}
}

// MatrixFromEuler composes Rz(azimuth)·Rx(pitch)·Ry(roll). The basic
// rotations are the frame (transposed) forms so that EulerFromRotation
// inverts this exactly away from the pitch singularity.
func MatrixFromEuler(e Euler) Mat3 {
	sinX, cosX := math.Sincos(e.Pitch)
	sinY, cosY := math.Sincos(e.Roll)
	sinZ, cosZ := math.Sincos(e.Azimuth)

	x := Mat3{
		{1, 0, 0},
		{0, cosX, sinX},
		{0, -sinX, cosX},
	}
	y := Mat3{
		{cosY, 0, sinY},
		{0, 1, 0},
		{-sinY, 0, cosY},
	}
	z := Mat3{
		{cosZ, sinZ, 0},
		{-sinZ, cosZ, 0},
		{0, 0, 1},
	}

	// roll first, then pitch, then azimuth
	return z.Mul(x.Mul(y))
}

// DeltaQuaternionFromGyro turns an angular rate (rad/s) held for 2·halfDt
// seconds into the incremental rotation quaternion. Rates at or below eps
// are used as-is, which collapses the result to (almost) identity.
func DeltaQuaternionFromGyro(rate r3.Vector, halfDt, eps float64) quat.Number {
	omega := rate.Norm()
	axis := rate
	if omega > eps {
		axis = rate.Mul(1 / omega)
	}

	sinTheta, cosTheta := math.Sincos(omega * halfDt)
	return quat.Number{
		Real: cosTheta,
		Imag: sinTheta * axis.X,
		Jmag: sinTheta * axis.Y,
		Kmag: sinTheta * axis.Z,
	}
}

// MatrixFromQuaternion converts a unit quaternion to its rotation matrix.
// The sign convention matches RotationFromAccelMag so that gyro deltas
// compose with the tilt-compass frame.
func MatrixFromQuaternion(q quat.Number) Mat3 {
	w, x, y, z := q.Real, q.Imag, q.Jmag, q.Kmag

	sqX := 2 * x * x
	sqY := 2 * y * y
	sqZ := 2 * z * z
	xy := 2 * x * y
	zw := 2 * z * w
	xz := 2 * x * z
	yw := 2 * y * w
	yz := 2 * y * z
	xw := 2 * x * w

	return Mat3{
		{1 - sqY - sqZ, xy - zw, xz + yw},
		{xy + zw, 1 - sqX - sqZ, yz - xw},
		{xz - yw, yz + xw, 1 - sqX - sqY},
	}
}

// GravityFromQuaternion is the closed-form unit gravity direction implied
// by the incremental rotation q. The identity quaternion gives (0, 0, 1).
func GravityFromQuaternion(q quat.Number) r3.Vector {
	w, x, y, z := q.Real, q.Imag, q.Jmag, q.Kmag
	return r3.Vector{
		X: 2 * (y*w - x*z),
		Y: 2 * (x*y + z*w),
		Z: x*x - y*y - z*z + w*w,
	}
}

// GravityFromOrientation returns the gravity vector of magnitude g seen
// in the device frame for the given orientation. Azimuth does not
// contribute.
func GravityFromOrientation(e Euler, g float64) r3.Vector {
	sinP, cosP := math.Sincos(e.Pitch)
	sinR, cosR := math.Sincos(e.Roll)
	return r3.Vector{
		X: g * -cosP * sinR,
		Y: g * -sinP,
		Z: g * cosP * cosR,
	}
}

// ─── complementary filter ───────────────────────────────────────────────

// BlendAngle mixes a gyro angle and an accel/mag angle as
// alpha·gyro + (1-alpha)·accMag. When the two straddle the ±π seam the
// negative one is lifted by 2π before mixing and the result folded back
// into (−π, π].
func BlendAngle(gyro, accMag, alpha float64) float64 {
	oneMinus := 1 - alpha

	switch {
	case gyro < -0.5*math.Pi && accMag > 0:
		return foldPi(alpha*(gyro+2*math.Pi) + oneMinus*accMag)
	case accMag < -0.5*math.Pi && gyro > 0:
		return foldPi(alpha*gyro + oneMinus*(accMag+2*math.Pi))
	default:
		return alpha*gyro + oneMinus*accMag
	}
}

// BlendOrientation applies BlendAngle independently to each axis.
func BlendOrientation(gyro, accMag Euler, alpha float64) Euler {
	return Euler{
		Azimuth: BlendAngle(gyro.Azimuth, accMag.Azimuth, alpha),
		Pitch:   BlendAngle(gyro.Pitch, accMag.Pitch, alpha),
		Roll:    BlendAngle(gyro.Roll, accMag.Roll, alpha),
	}
}

func foldPi(a float64) float64 {
	if a > math.Pi {
		return a - 2*math.Pi
	}
	return a
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
