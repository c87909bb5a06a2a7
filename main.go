// SPDX-License-Identifier: MIT
package main

import (
	"fmt"
	"os"
	"runtime"
	"time"

	"timegrapher/cmd"
	"timegrapher/internal/audio"
	"timegrapher/internal/config"
	"timegrapher/internal/log"
	"timegrapher/internal/pipeline"
	"timegrapher/internal/transport"
	"timegrapher/internal/tui"
	"timegrapher/pkg/build"
)

// main runs in three phases:
//
// 1. Startup (cold path): build info, argument parsing, PortAudio and
//    pipeline construction.
// 2. Measurement (hot path): the capture callback feeds the ring, the
//    consumer drives the pipeline, the publisher and TUI read
//    snapshots.
// 3. Shutdown (cold path): recording finalized, stream and transports
//    closed.
func main() {
	if err := build.Initialize(); err != nil {
		log.Fatalf("%v", err)
	}

	// One thread for the capture consumer, one for UI and transports.
	runtime.GOMAXPROCS(2)

	cfg, err := cmd.ParseArgs()
	if err != nil {
		log.Fatalf("%v", err)
	}
	if cfg == nil {
		// Help or version output already handled.
		return
	}

	if level, ok := log.ParseLevel(cfg.LogLevel); ok {
		log.SetLevel(level)
	}

	if cfg.Command == "list" {
		if err := tui.StartDeviceListUI(); err != nil {
			log.Fatalf("%v", err)
		}
		return
	}

	if err := run(cfg); err != nil {
		log.Fatalf("%v", err)
	}
}

func run(cfg *config.Config) error {
	if err := audio.Initialize(); err != nil {
		return err
	}
	defer audio.Terminate()

	pipe, err := pipeline.New(cfg)
	if err != nil {
		return err
	}

	engine, err := audio.NewEngine(cfg, pipe)
	if err != nil {
		return err
	}

	if err := engine.Start(); err != nil {
		return err
	}
	defer engine.Close()

	if cfg.Recording.Enabled {
		if err := engine.StartRecording(cfg.Recording.OutputFile); err != nil {
			return err
		}
	}

	transports := []transport.Transport{transport.NewLoggingTransport()}
	if cfg.Transport.WSEnabled {
		transports = append(transports, transport.NewWebSocketTransport(cfg.Transport.WSAddr))
	}
	publisher := transport.NewPublisher(cfg.PublishInterval(), pipe.Snapshot, transports...)
	publisher.Start()
	defer func() {
		publisher.Stop()
		for _, t := range transports {
			t.Close()
		}
	}()

	controls := tui.Controls{
		ResetSession:    pipe.ResetSession,
		AdjustThreshold: pipe.AdjustThreshold,
		ToggleRecording: func() { toggleRecording(engine, cfg) },
	}
	if err := tui.StartMetricsUI(engine.DeviceName(), pipe.Snapshot, controls); err != nil {
		return err
	}

	if cfg.Recording.Enabled {
		if err := engine.StopRecording(); err != nil {
			log.Errorf("Stopping recording: %v", err)
		} else {
			fmt.Printf("Recording saved to: %s\n", cfg.Recording.OutputFile)
		}
	}
	return nil
}

// toggleRecording flips recording from the dashboard's w key. Each new
// start writes a fresh timestamped file next to the configured one.
func toggleRecording(engine *audio.Engine, cfg *config.Config) {
	if engine.IsRecording() {
		if err := engine.StopRecording(); err != nil {
			log.Errorf("Stopping recording: %v", err)
		}
		return
	}

	name := cfg.Recording.OutputFile
	if name == "" {
		name = timestampedName()
	} else if _, err := os.Stat(name); err == nil {
		// Don't clobber an earlier take.
		name = timestampedName()
	}
	if err := engine.StartRecording(name); err != nil {
		log.Errorf("Starting recording: %v", err)
	}
}

func timestampedName() string {
	return "capture-" + time.Now().UTC().Format("02-01-2006-150405") + ".wav"
}
