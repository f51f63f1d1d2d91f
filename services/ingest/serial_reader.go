package ingest

import (
	"context"
	"fmt"
	"io"

	"go.bug.st/serial"

	"imu-fusion/models"
	"imu-fusion/utils"
)

// SerialReader streams samples from an IMU that prints one sample line
// per reading over a serial link, in the same format as replay files.
type SerialReader struct {
	counters
	name string
	port io.ReadCloser
	Out  chan models.Sample
}

// NewSerialReader opens the configured serial port.
func NewSerialReader(cfg utils.SerialConfig, buffer int) (*SerialReader, error) {
	mode, err := PortOptionsFromConfig(cfg).SerialMode()
	if err != nil {
		return nil, fmt.Errorf("serial options: %w", err)
	}
	port, err := serial.Open(cfg.Port, mode)
	if err != nil {
		return nil, fmt.Errorf("open serial port %s: %w", cfg.Port, err)
	}
	return newSerialReader(cfg.Port, port, buffer), nil
}

func newSerialReader(name string, port io.ReadCloser, buffer int) *SerialReader {
	if buffer <= 0 {
		buffer = 512
	}
	return &SerialReader{
		name: name,
		port: port,
		Out:  make(chan models.Sample, buffer),
	}
}

func (r *SerialReader) Start(ctx context.Context) {
	go r.run(ctx)
	utils.L().Info("serial reader started  (port=%s)", r.name)
}

func (r *SerialReader) run(ctx context.Context) {
	defer close(r.Out)

	// Closing the port is the only way to unblock a pending Read.
	stop := context.AfterFunc(ctx, func() { _ = r.port.Close() })
	defer func() {
		if stop() {
			_ = r.port.Close()
		}
	}()

	err := scanSamples(ctx, r.port, r.name, &r.counters, func(s models.Sample) bool {
		return send(ctx, r.Out, s)
	})
	if err != nil && ctx.Err() == nil {
		utils.L().Error("serial reader %s: %v", r.name, err)
	}

	p, d := r.Stats()
	utils.L().Info("serial reader stopped  (produced=%d, dropped=%d)", p, d)
}
