package controller

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"imu-fusion/models"
	"imu-fusion/utils"
	"imu-fusion/views"
)

// Output file names inside a session directory, by storage format.
var sessionFiles = map[string]string{
	utils.FormatText:   "linear.txt",
	utils.FormatCSV:    "linear.csv",
	utils.FormatSQLite: "linear.db",
}

// RecordingController is the final pipeline stage. It reads linear
// acceleration records and writes them to the session's sink.
//
// Writes land in the sink's buffer; a separate goroutine flushes it
// periodically so the writer never waits on the disk.
type RecordingController struct {
	storageCfg *utils.StorageConfig
	session    string
	sessionDir string
	outputPath string
	sink       views.Sink
	samples    *views.RowWriter

	taps      sync.WaitGroup
	flushStop chan struct{}
	done      chan struct{}
	wg        sync.WaitGroup
	closeErr  error
}

// NewRecordingController creates the session directory and opens the
// sink for the configured format.
func NewRecordingController(storageCfg *utils.StorageConfig) (*RecordingController, error) {
	st := storageCfg.Storage
	name, ok := sessionFiles[st.Format]
	if !ok {
		return nil, fmt.Errorf("unknown storage format %q", st.Format)
	}
	sess := utils.SessionName(st.SessionPrefix)
	sessionDir := filepath.Join(st.BaseDir, sess)

	if !st.Overwrite {
		if _, err := os.Stat(sessionDir); err == nil {
			return nil, fmt.Errorf("session dir %s already exists (overwrite=false)", sessionDir)
		}
	}
	if err := os.MkdirAll(sessionDir, 0755); err != nil {
		return nil, fmt.Errorf("create session dir: %w", err)
	}

	path := filepath.Join(sessionDir, name)
	bufSize := st.BufferSizeKB * 1024

	var (
		sink views.Sink
		err  error
	)
	switch st.Format {
	case utils.FormatText:
		sink, err = views.NewTextWriter(path, bufSize, st.WriteHeader)
	case utils.FormatCSV:
		sink, err = views.NewCSVWriter(path, bufSize, st.WriteHeader)
	case utils.FormatSQLite:
		sink, err = views.NewSQLiteWriter(path, sess)
	}
	if err != nil {
		return nil, err
	}

	var samples *views.RowWriter
	if st.RecordSamples {
		samples, err = views.NewRowWriter(filepath.Join(sessionDir, "samples.csv"), bufSize, header(st.WriteHeader, &models.Sample{}))
		if err != nil {
			sink.Close()
			return nil, err
		}
	}

	utils.L().Info("recording controller ready  session=%s  format=%s", sessionDir, st.Format)
	return &RecordingController{
		storageCfg: storageCfg,
		session:    sess,
		sessionDir: sessionDir,
		outputPath: path,
		sink:       sink,
		samples:    samples,
		flushStop:  make(chan struct{}),
		done:       make(chan struct{}),
	}, nil
}

// Start begins consuming records from in. Every record received is
// written; the writer stops when in is closed, after which the sink is
// flushed and closed and Done is signalled.
func (rc *RecordingController) Start(in <-chan *models.LinearRecord) {
	rc.wg.Add(1)
	go func() {
		defer rc.wg.Done()
		flushMs := rc.storageCfg.Storage.FlushIntervalMs
		if flushMs <= 0 {
			flushMs = 100
		}
		ticker := time.NewTicker(time.Duration(flushMs) * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-rc.flushStop:
				return
			case <-ticker.C:
				rc.flush()
			}
		}
	}()

	go func() {
		for rec := range in {
			if err := rc.sink.Write(rec); err != nil {
				utils.L().Error("recording: write generation %d: %v", rec.Generation, err)
			}
		}
		rc.taps.Wait()
		close(rc.flushStop)
		rc.wg.Wait()
		rc.closeErr = rc.sink.Close()
		if rc.closeErr != nil {
			utils.L().Error("recording: close %s: %v", rc.outputPath, rc.closeErr)
		}
		if rc.samples != nil {
			if err := rc.samples.Close(); err != nil {
				utils.L().Error("recording: close samples: %v", err)
			}
		}
		close(rc.done)
	}()

	utils.L().Info("recording controller started")
}

// TapSamples returns a channel carrying the same samples as in. When raw
// sample recording is enabled each sample is also written to samples.csv
// on the way through; otherwise in is returned unchanged. Call before
// Start.
func (rc *RecordingController) TapSamples(ctx context.Context, in <-chan models.Sample) <-chan models.Sample {
	if rc.samples == nil {
		return in
	}
	out := make(chan models.Sample, cap(in))
	rc.taps.Add(1)
	go func() {
		defer rc.taps.Done()
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case s, ok := <-in:
				if !ok {
					return
				}
				if err := rc.samples.WriteRow(&s); err != nil {
					utils.L().Error("recording: write sample %d: %v", s.Generation, err)
				}
				select {
				case out <- s:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out
}

func (rc *RecordingController) flush() {
	if err := rc.sink.Flush(); err != nil {
		utils.L().Error("recording: flush: %v", err)
	}
	if rc.samples != nil {
		if err := rc.samples.Flush(); err != nil {
			utils.L().Error("recording: flush samples: %v", err)
		}
	}
}

// SamplesWritten returns how many raw samples were recorded.
func (rc *RecordingController) SamplesWritten() uint64 {
	if rc.samples == nil {
		return 0
	}
	return rc.samples.Rows()
}

func header(write bool, m models.CSVRowWriter) []string {
	if !write {
		return nil
	}
	return m.CSVHeader()
}

// Done is closed once the input channel is drained and the sink closed.
func (rc *RecordingController) Done() <-chan struct{} { return rc.done }

// Stop waits for the writer to finish and reports the sink's close error.
// The upstream channel must be closed (or about to be) for Stop to return.
func (rc *RecordingController) Stop() error {
	<-rc.done
	rows := rc.sink.Rows()
	utils.L().Info("recording controller stopped  (rows_written=%d, session=%s)", rows, rc.sessionDir)
	return rc.closeErr
}

// SessionDir returns the path to the active session directory.
func (rc *RecordingController) SessionDir() string {
	return rc.sessionDir
}

// OutputPath returns the path of the file the sink writes to.
func (rc *RecordingController) OutputPath() string {
	return rc.outputPath
}

// Session returns the session name, used as the sqlite session tag.
func (rc *RecordingController) Session() string {
	return rc.session
}

// RowsWritten returns the number of records the sink has accepted. For
// the sqlite sink only committed rows count.
func (rc *RecordingController) RowsWritten() uint64 {
	return rc.sink.Rows()
}
