package controller

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/golang/geo/r3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"imu-fusion/models"
	"imu-fusion/services/fusion"
	"imu-fusion/utils"
)

// writeStationary writes n samples of a level device pointing north.
func writeStationary(t *testing.T, n int) string {
	t.Helper()
	var b strings.Builder
	b.WriteString("# generation timestamp ax ay az gx gy gz mx my mz\n")
	for i := 0; i < n; i++ {
		s := models.Sample{
			Generation:    int64(i),
			TimestampNs:   1_000_000_000 + int64(i)*20_000_000,
			Acceleration:  r3.Vector{Z: fusion.StandardGravity},
			MagneticField: r3.Vector{Y: 22, Z: -40},
		}
		b.WriteString(s.String())
		b.WriteByte('\n')
	}
	path := filepath.Join(t.TempDir(), "samples.txt")
	require.NoError(t, os.WriteFile(path, []byte(b.String()), 0644))
	return path
}

func pipelineConfigs(t *testing.T, input, format string) (*utils.SensorsConfig, *utils.StorageConfig) {
	t.Helper()
	sensors := &utils.SensorsConfig{Fusion: fusion.DefaultConfig()}
	sensors.Input.Source = utils.SourceFile
	sensors.Input.File.Path = input
	sensors.Input.ChannelBuffer = 8

	storage := &utils.StorageConfig{}
	storage.Storage.BaseDir = t.TempDir()
	storage.Storage.SessionPrefix = "test"
	storage.Storage.Format = format
	storage.Storage.FlushIntervalMs = 5
	storage.Storage.WriteHeader = true
	return sensors, storage
}

func runPipeline(t *testing.T, ctx context.Context, sensorsCfg *utils.SensorsConfig, storageCfg *utils.StorageConfig) (*FusionController, *RecordingController) {
	t.Helper()
	sc, err := NewSensorsController(sensorsCfg)
	require.NoError(t, err)
	fc, err := NewFusionController(sensorsCfg.Fusion, 4)
	require.NoError(t, err)
	rc, err := NewRecordingController(storageCfg)
	require.NoError(t, err)

	rc.Start(fc.Out)
	fc.Start(ctx, rc.TapSamples(ctx, sc.SampleCh))
	sc.Start(ctx)
	return fc, rc
}

func waitDone(t *testing.T, done <-chan struct{}) {
	t.Helper()
	select {
	case <-done:
	case <-time.After(10 * time.Second):
		t.Fatal("pipeline did not finish")
	}
}

func TestPipelineFileToText(t *testing.T) {
	t.Parallel()

	sensorsCfg, storageCfg := pipelineConfigs(t, writeStationary(t, 30), utils.FormatText)
	fc, rc := runPipeline(t, context.Background(), sensorsCfg, storageCfg)

	waitDone(t, rc.Done())
	require.NoError(t, rc.Stop())

	// The first sample has no gravity estimate to orient from.
	assert.Equal(t, fusion.Stats{Processed: 30, Emitted: 29, Degraded: 1}, fc.Stats())
	assert.Equal(t, uint64(29), rc.RowsWritten())
	assert.True(t, strings.HasPrefix(filepath.Base(rc.SessionDir()), "test_"))
	assert.Equal(t, filepath.Join(rc.SessionDir(), "linear.txt"), rc.OutputPath())

	data, err := os.ReadFile(rc.OutputPath())
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 30)
	assert.True(t, strings.HasPrefix(lines[0], "#"))

	for i, line := range lines[1:] {
		fields := strings.Fields(line)
		require.Len(t, fields, 5, "line %d", i)
		assert.Equal(t, strconv.Itoa(i+1), fields[0], "first record comes from the second sample")
		for _, f := range fields[2:] {
			v, err := strconv.ParseFloat(f, 64)
			require.NoError(t, err)
			assert.InDelta(t, 0, v, 1e-3, "stationary device has no linear acceleration")
		}
	}
}

func TestPipelineFileToSQLite(t *testing.T) {
	t.Parallel()

	sensorsCfg, storageCfg := pipelineConfigs(t, writeStationary(t, 12), utils.FormatSQLite)
	storageCfg.Storage.RecordSamples = true
	_, rc := runPipeline(t, context.Background(), sensorsCfg, storageCfg)

	waitDone(t, rc.Done())
	require.NoError(t, rc.Stop())
	assert.Equal(t, uint64(11), rc.RowsWritten())
	assert.Equal(t, uint64(12), rc.SamplesWritten())

	raw, err := os.ReadFile(filepath.Join(rc.SessionDir(), "samples.csv"))
	require.NoError(t, err)
	assert.Len(t, strings.Split(strings.TrimSpace(string(raw)), "\n"), 13, "header plus every sample")
	assert.Equal(t, "linear.db", filepath.Base(rc.OutputPath()))

	info, err := os.Stat(rc.OutputPath())
	require.NoError(t, err)
	assert.Positive(t, info.Size())
}

func TestPipelineCancel(t *testing.T) {
	t.Parallel()

	sensorsCfg, storageCfg := pipelineConfigs(t, "", utils.FormatCSV)
	sensorsCfg.Input.Source = utils.SourceSim
	sensorsCfg.Input.Simulation = utils.SimulationConfig{UpdateRateHz: 200}

	ctx, cancel := context.WithCancel(context.Background())
	fc, rc := runPipeline(t, ctx, sensorsCfg, storageCfg)

	time.Sleep(100 * time.Millisecond)
	cancel()

	waitDone(t, fc.Done())
	waitDone(t, rc.Done())
	require.NoError(t, rc.Stop())
	// At most the estimate in flight at cancellation is not written.
	emitted := fc.Stats().Emitted
	assert.LessOrEqual(t, rc.RowsWritten(), emitted)
	assert.GreaterOrEqual(t, rc.RowsWritten()+1, emitted)
}

func TestNewSensorsControllerErrors(t *testing.T) {
	t.Parallel()

	cfg := &utils.SensorsConfig{}
	cfg.Input.Source = "carrier-pigeon"
	_, err := NewSensorsController(cfg)
	assert.ErrorContains(t, err, "unknown input source")

	cfg.Input.Source = utils.SourceFile
	cfg.Input.File.Path = filepath.Join(t.TempDir(), "missing.txt")
	_, err = NewSensorsController(cfg)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestNewFusionControllerRejectsBadConfig(t *testing.T) {
	t.Parallel()
	cfg := fusion.DefaultConfig()
	cfg.FilterCoefficient = 1.5
	_, err := NewFusionController(cfg, 0)
	assert.Error(t, err)
}

func TestNewRecordingControllerUnknownFormat(t *testing.T) {
	t.Parallel()
	_, storageCfg := pipelineConfigs(t, "", "parquet")
	_, err := NewRecordingController(storageCfg)
	assert.ErrorContains(t, err, "unknown storage format")

	entries, err := os.ReadDir(storageCfg.Storage.BaseDir)
	require.NoError(t, err)
	assert.Empty(t, entries, "no session dir is created for a bad format")
}
