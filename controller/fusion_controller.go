package controller

import (
	"context"
	"sync"

	"imu-fusion/models"
	"imu-fusion/services/fusion"
	"imu-fusion/utils"
)

// FusionController runs the orientation engine over the sample stream
// and emits one linear-acceleration record per fused sample.
//
// The engine is single-threaded, so one goroutine owns it. Samples are
// processed strictly in arrival order and every produced record is
// delivered: the output send blocks rather than drops.
type FusionController struct {
	mu     sync.Mutex
	engine *fusion.Engine
	stats  fusion.Stats

	Out  chan *models.LinearRecord // downstream consumers read this
	done chan struct{}
}

// NewFusionController creates a fusion stage with the given engine config.
func NewFusionController(cfg fusion.Config, buffer int) (*FusionController, error) {
	engine, err := fusion.NewEngine(cfg)
	if err != nil {
		return nil, err
	}
	if buffer <= 0 {
		buffer = 256
	}
	return &FusionController{
		engine: engine,
		Out:    make(chan *models.LinearRecord, buffer),
		done:   make(chan struct{}),
	}, nil
}

// Start launches the fusion goroutine reading from in. Out is closed once
// in is closed and drained, or ctx is cancelled.
func (fc *FusionController) Start(ctx context.Context, in <-chan models.Sample) {
	go fc.run(ctx, in)
	cfg := fc.engine.Config()
	utils.L().Info("fusion controller started (alpha=%g, windows=%d/%d/%d/%d)",
		cfg.FilterCoefficient, cfg.GravityWindow, cfg.MagneticWindow,
		cfg.AccelerationWindow, cfg.LinearWindow)
}

func (fc *FusionController) run(ctx context.Context, in <-chan models.Sample) {
	defer close(fc.done)
	defer close(fc.Out)

	for {
		select {
		case <-ctx.Done():
			fc.logStopped()
			return
		case s, ok := <-in:
			if !ok {
				fc.logStopped()
				return
			}
			est, emitted := fc.process(s)
			if !emitted {
				continue
			}
			select {
			case fc.Out <- est.Record():
			case <-ctx.Done():
				fc.logStopped()
				return
			}
		}
	}
}

func (fc *FusionController) process(s models.Sample) (fusion.Estimate, bool) {
	est, ok := fc.engine.ProcessSample(s)
	fc.mu.Lock()
	fc.stats = fc.engine.Stats()
	fc.mu.Unlock()
	if !ok {
		utils.L().Debug("fusion: generation %d not emitted (state=%s)", s.Generation, fc.engine.State())
	}
	return est, ok
}

func (fc *FusionController) logStopped() {
	st := fc.Stats()
	utils.L().Info("fusion controller stopped (processed=%d, emitted=%d, degraded=%d)",
		st.Processed, st.Emitted, st.Degraded)
}

// Stats returns a snapshot of the engine counters.
func (fc *FusionController) Stats() fusion.Stats {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	return fc.stats
}

// Done is closed after the fusion goroutine exits.
func (fc *FusionController) Done() <-chan struct{} { return fc.done }

// LogStats prints the current engine counters.
func (fc *FusionController) LogStats() {
	st := fc.Stats()
	utils.L().Info("  fusion   processed=%d  emitted=%d  degraded=%d", st.Processed, st.Emitted, st.Degraded)
}
