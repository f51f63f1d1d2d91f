package controller

import (
	"context"
	"fmt"

	"imu-fusion/models"
	"imu-fusion/services/ingest"
	"imu-fusion/utils"
)

// sampleSource is what every ingest reader provides.
type sampleSource interface {
	Start(ctx context.Context)
	Stats() (produced, dropped uint64)
}

// SensorsController owns the lifecycle of the configured sample reader.
// It exposes a single time-ordered sample channel that the fusion stage
// consumes.
type SensorsController struct {
	source string
	reader sampleSource

	SampleCh <-chan models.Sample
}

// NewSensorsController creates the reader selected by cfg.Input.Source.
func NewSensorsController(cfg *utils.SensorsConfig) (*SensorsController, error) {
	in := cfg.Input
	sc := &SensorsController{source: in.Source}

	switch in.Source {
	case utils.SourceFile, "":
		r, err := ingest.NewFileReader(in.File, in.ChannelBuffer)
		if err != nil {
			return nil, err
		}
		sc.reader, sc.SampleCh = r, r.Out
	case utils.SourceSerial:
		r, err := ingest.NewSerialReader(in.Serial, in.ChannelBuffer)
		if err != nil {
			return nil, err
		}
		sc.reader, sc.SampleCh = r, r.Out
	case utils.SourceSim:
		r := ingest.NewSimReader(in.Simulation, in.ChannelBuffer)
		sc.reader, sc.SampleCh = r, r.Out
	default:
		return nil, fmt.Errorf("unknown input source %q", in.Source)
	}
	return sc, nil
}

// Start launches the reader goroutine. SampleCh is closed when the reader
// runs out of input or ctx is cancelled.
func (sc *SensorsController) Start(ctx context.Context) {
	sc.reader.Start(ctx)
	utils.L().Info("sensors controller: %s reader launched", sc.source)
}

// Stats returns the reader's (produced, dropped) counters.
func (sc *SensorsController) Stats() (uint64, uint64) {
	return sc.reader.Stats()
}

// LogStats prints the current produce/drop counters.
func (sc *SensorsController) LogStats() {
	p, d := sc.reader.Stats()
	utils.L().Info("  %-8s produced=%d  dropped=%d", sc.source, p, d)
}
