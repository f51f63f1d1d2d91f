package ingest

import (
	"context"
	"math"
	"math/rand"
	"sync/atomic"
	"time"

	"github.com/golang/geo/r3"

	"imu-fusion/models"
	"imu-fusion/utils"
)

// Field strength used by the simulator, roughly mid-latitude Europe (µT).
const (
	simHorizontalField = 22.0
	simVerticalField   = -42.0
)

// SimReader synthesises samples for a level device turning slowly about
// its vertical axis. Like a real sensor it never blocks: when the
// channel is full the sample is dropped.
type SimReader struct {
	counters
	cfg utils.SimulationConfig
	Out chan models.Sample
	rng *rand.Rand
}

func NewSimReader(cfg utils.SimulationConfig, buffer int) *SimReader {
	if buffer <= 0 {
		buffer = 512
	}
	if cfg.UpdateRateHz <= 0 {
		cfg.UpdateRateHz = 100
	}
	return &SimReader{
		cfg: cfg,
		Out: make(chan models.Sample, buffer),
		rng: rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (r *SimReader) Start(ctx context.Context) {
	go r.run(ctx)
	utils.L().Info("sim reader started     (rate=%dHz, yaw_rate=%g, duration=%ds)",
		r.cfg.UpdateRateHz, r.cfg.YawRate, r.cfg.DurationSeconds)
}

func (r *SimReader) run(ctx context.Context) {
	defer close(r.Out)

	if r.cfg.DurationSeconds > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(r.cfg.DurationSeconds)*time.Second)
		defer cancel()
	}

	ticker := time.NewTicker(time.Second / time.Duration(r.cfg.UpdateRateHz))
	defer ticker.Stop()

	start := utils.NowNano()
	var gen int64
	for {
		select {
		case <-ctx.Done():
			p, d := r.Stats()
			utils.L().Info("sim reader stopped     (produced=%d, dropped=%d)", p, d)
			return
		case <-ticker.C:
			s := r.read(gen, start, utils.NowNano())
			gen++

			select {
			case r.Out <- s:
				atomic.AddUint64(&r.produced, 1)
			default:
				atomic.AddUint64(&r.dropped, 1)
			}
		}
	}
}

// read builds the sample seen at ts by a device that started at start.
func (r *SimReader) read(gen, start, ts int64) models.Sample {
	elapsed := float64(ts-start) * 1e-9
	// A positive rate about +z turns the heading negative.
	heading := -r.cfg.YawRate * elapsed

	return models.Sample{
		Generation:  gen,
		TimestampNs: ts,
		Acceleration: r3.Vector{
			X: r.noise(0.02),
			Y: r.noise(0.02),
			Z: 9.81 + r.noise(0.02),
		},
		AngularRate: r3.Vector{
			X: r.noise(0.0005),
			Y: r.noise(0.0005),
			Z: r.cfg.YawRate + r.noise(0.0005),
		},
		MagneticField: r3.Vector{
			X: -math.Sin(heading)*simHorizontalField + r.noise(0.3),
			Y: math.Cos(heading)*simHorizontalField + r.noise(0.3),
			Z: simVerticalField + r.noise(0.3),
		},
	}
}

func (r *SimReader) noise(scale float64) float64 {
	return (r.rng.Float64()*2 - 1) * scale
}
