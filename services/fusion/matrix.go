package fusion

import "fmt"

// Mat3 is a row-major 3×3 matrix. It is a value type: assigning or
// passing it copies all nine elements.
type Mat3 [3][3]float64

// Identity returns the 3×3 identity matrix.
func Identity() Mat3 {
	return Mat3{
		{1, 0, 0},
		{0, 1, 0},
		{0, 0, 1},
	}
}

// Mul returns the matrix product m·b.
func (m Mat3) Mul(b Mat3) Mat3 {
	var out Mat3
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			out[i][j] = m[i][0]*b[0][j] + m[i][1]*b[1][j] + m[i][2]*b[2][j]
		}
	}
	return out
}

// Transpose returns mᵗ.
func (m Mat3) Transpose() Mat3 {
	var out Mat3
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			out[i][j] = m[j][i]
		}
	}
	return out
}

// Flat returns the elements in row-major order, the layout mat.NewDense expects.
func (m Mat3) Flat() []float64 {
	return []float64{
		m[0][0], m[0][1], m[0][2],
		m[1][0], m[1][1], m[1][2],
		m[2][0], m[2][1], m[2][2],
	}
}

// Euler holds azimuth (about z), pitch (about x) and roll (about y) in radians.
type Euler struct {
	Azimuth float64
	Pitch   float64
	Roll    float64
}

func (e Euler) String() string {
	return fmt.Sprintf("azimuth=%.4f pitch=%.4f roll=%.4f", e.Azimuth, e.Pitch, e.Roll)
}
