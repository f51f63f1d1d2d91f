package fusion

import (
	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/stat"
)

// DefaultWindowSize is the number of samples each smoothing channel keeps.
const DefaultWindowSize = 10

// MovingAverage smooths a fixed-dimension vector stream with a rolling
// arithmetic mean, one FIFO per component. The first Update fixes the
// dimension for the lifetime of the filter.
type MovingAverage struct {
	window   int
	channels [][]float64
}

// NewMovingAverage creates a filter holding up to window samples per
// component. A non-positive window falls back to DefaultWindowSize.
func NewMovingAverage(window int) *MovingAverage {
	if window <= 0 {
		window = DefaultWindowSize
	}
	return &MovingAverage{window: window}
}

// Window returns the configured window size.
func (f *MovingAverage) Window() int { return f.window }

// Len returns how many samples are currently buffered (0 before the first Update).
func (f *MovingAverage) Len() int {
	if len(f.channels) == 0 {
		return 0
	}
	return len(f.channels[0])
}

// Update appends v to the filter and returns the per-component mean over
// whatever is buffered. During warm-up the mean is taken over the
// available count, not the window.
//
// Components beyond the dimension fixed by the first call are ignored;
// missing ones are taken as zero so every channel keeps the same length.
func (f *MovingAverage) Update(v []float64) []float64 {
	if f.channels == nil {
		f.channels = make([][]float64, len(v))
		for i := range f.channels {
			f.channels[i] = make([]float64, 0, f.window+1)
		}
	}

	for i := range f.channels {
		var x float64
		if i < len(v) {
			x = v[i]
		}
		ch := append(f.channels[i], x)
		if len(ch) > f.window {
			ch = ch[1:]
		}
		f.channels[i] = ch
	}

	means := make([]float64, len(f.channels))
	for i, ch := range f.channels {
		if len(ch) == 0 {
			continue
		}
		means[i] = stat.Mean(ch, nil)
	}
	return means
}

// UpdateVec is Update for 3-vectors.
func (f *MovingAverage) UpdateVec(v r3.Vector) r3.Vector {
	m := f.Update([]float64{v.X, v.Y, v.Z})
	return r3.Vector{X: m[0], Y: m[1], Z: m[2]}
}

// Reset drops every buffered sample and forgets the dimension.
func (f *MovingAverage) Reset() {
	f.channels = nil
}
