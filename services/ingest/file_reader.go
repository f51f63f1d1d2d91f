package ingest

import (
	"context"
	"fmt"
	"os"
	"time"

	"imu-fusion/models"
	"imu-fusion/utils"
)

// FileReader replays a recorded sample file, one sample per line.
// Replay is lossless: when the channel is full the reader waits.
type FileReader struct {
	counters
	cfg  utils.FileConfig
	file *os.File
	Out  chan models.Sample
}

// NewFileReader opens the replay file.
func NewFileReader(cfg utils.FileConfig, buffer int) (*FileReader, error) {
	if buffer <= 0 {
		buffer = 512
	}
	f, err := os.Open(cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("open sample file: %w", err)
	}
	return &FileReader{
		cfg:  cfg,
		file: f,
		Out:  make(chan models.Sample, buffer),
	}, nil
}

func (r *FileReader) Start(ctx context.Context) {
	go r.run(ctx)
	utils.L().Info("file reader started    (path=%s, replay_speed=%g)", r.cfg.Path, r.cfg.ReplaySpeed)
}

func (r *FileReader) run(ctx context.Context) {
	defer close(r.Out)
	defer r.file.Close()

	var pace pacer
	pace.speed = r.cfg.ReplaySpeed

	err := scanSamples(ctx, r.file, r.cfg.Path, &r.counters, func(s models.Sample) bool {
		if !pace.wait(ctx, s.TimestampNs) {
			return false
		}
		return send(ctx, r.Out, s)
	})
	if err != nil {
		utils.L().Error("file reader: %v", err)
	}

	p, d := r.Stats()
	utils.L().Info("file reader stopped    (produced=%d, dropped=%d)", p, d)
}

// pacer spaces replayed samples by their recorded timestamps divided by
// speed. A zero speed disables pacing.
type pacer struct {
	speed   float64
	firstTs int64
	start   time.Time
	started bool
}

func (p *pacer) wait(ctx context.Context, ts int64) bool {
	if p.speed <= 0 {
		return true
	}
	if !p.started {
		p.firstTs = ts
		p.start = time.Now()
		p.started = true
		return true
	}

	offset := time.Duration(float64(utils.NanoToDuration(ts-p.firstTs)) / p.speed)
	delay := time.Until(p.start.Add(offset))
	if delay <= 0 {
		return true
	}

	t := time.NewTimer(delay)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}
