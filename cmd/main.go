package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"syscall"
	"time"

	"imu-fusion/controller"
	"imu-fusion/utils"
)

func main() {
	// ── CLI flags ────────────────────────────────────────────────────
	sensorsPath := flag.String("sensors", "config/sensors.yaml", "path to sensors.yaml")
	storagePath := flag.String("storage", "config/storage.yaml", "path to storage.yaml")
	logFile := flag.String("log", "", "optional log file path (stdout is always included)")
	logLevel := flag.String("log-level", "info", "minimum log level: debug, info, warn, error")
	inputPath := flag.String("input", "", "sample file to replay (overrides input.file.path and selects the file source)")
	flag.Parse()

	// ── Logger ───────────────────────────────────────────────────────
	level, err := utils.ParseLogLevel(*logLevel)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	logger := utils.InitLogger(level, *logFile)
	defer logger.Close()

	utils.L().Info("═══════════════════════════════════════════════════")
	utils.L().Info("  IMU-Fusion  ·  Orientation & Linear Acceleration")
	utils.L().Info("  GOMAXPROCS=%d  ·  PID=%d", runtime.GOMAXPROCS(0), os.Getpid())
	utils.L().Info("═══════════════════════════════════════════════════")

	// ── Load configs ─────────────────────────────────────────────────
	sensorsCfg, err := utils.LoadSensorsConfig(*sensorsPath)
	if err != nil {
		utils.L().Fatal("load sensors config: %v", err)
	}
	storageCfg, err := utils.LoadStorageConfig(*storagePath)
	if err != nil {
		utils.L().Fatal("load storage config: %v", err)
	}
	if *inputPath != "" {
		sensorsCfg.Input.Source = utils.SourceFile
		sensorsCfg.Input.File.Path = *inputPath
	}

	// Resolve relative base_dir to absolute.
	if !filepath.IsAbs(storageCfg.Storage.BaseDir) {
		abs, _ := filepath.Abs(storageCfg.Storage.BaseDir)
		storageCfg.Storage.BaseDir = abs
	}

	// ── Context with OS signal cancellation ──────────────────────────
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	// ── Pipeline assembly ────────────────────────────────────────────
	//
	//  reader goroutine  ──►  Sample chan  ──►  FusionController
	//                                                  │
	//                                          LinearRecord chan
	//                                                  │
	//                                         RecordingController
	//                                                  │
	//                                     linear.txt | linear.csv | linear.db
	//
	//  With storage.record_samples the sample channel is tapped on its way
	//  to fusion and the raw input is also written to samples.csv.

	// 1. Sensors
	sensorCtrl, err := controller.NewSensorsController(sensorsCfg)
	if err != nil {
		utils.L().Fatal("init sensors controller: %v", err)
	}

	// 2. Fusion
	fusionCtrl, err := controller.NewFusionController(sensorsCfg.Fusion, sensorsCfg.Input.ChannelBuffer)
	if err != nil {
		utils.L().Fatal("init fusion controller: %v", err)
	}

	// 3. Recording
	recordCtrl, err := controller.NewRecordingController(storageCfg)
	if err != nil {
		utils.L().Fatal("init recording controller: %v", err)
	}

	samples := recordCtrl.TapSamples(ctx, sensorCtrl.SampleCh)
	recordCtrl.Start(fusionCtrl.Out)
	fusionCtrl.Start(ctx, samples)
	sensorCtrl.Start(ctx)

	utils.L().Info("pipeline running, press Ctrl+C to stop")

	// ── Stats ticker ─────────────────────────────────────────────────
	statsTicker := time.NewTicker(5 * time.Second)
	defer statsTicker.Stop()

	// ── Main event loop ──────────────────────────────────────────────
loop:
	for {
		select {
		case sig := <-sigCh:
			utils.L().Info("received signal: %v, shutting down", sig)
			cancel()
			break loop

		case <-recordCtrl.Done():
			utils.L().Info("input exhausted")
			break loop

		case <-statsTicker.C:
			utils.L().Info("── stats ─────────────────────────")
			sensorCtrl.LogStats()
			fusionCtrl.LogStats()
			utils.L().Info("  rows written: %d", recordCtrl.RowsWritten())
			utils.L().Info("──────────────────────────────────")
		}
	}

	if err := recordCtrl.Stop(); err != nil {
		utils.L().Error("close output: %v", err)
	}

	sensorCtrl.LogStats()
	fusionCtrl.LogStats()
	utils.L().Info("session saved to: %s", recordCtrl.SessionDir())
	utils.L().Info("total rows: %d", recordCtrl.RowsWritten())
	if n := recordCtrl.SamplesWritten(); n > 0 {
		utils.L().Info("raw samples: %d", n)
	}

	fmt.Println("\n✓ IMU-Fusion finished. Output at:", recordCtrl.OutputPath())
}
