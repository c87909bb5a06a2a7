// SPDX-License-Identifier: MIT

/*
Package audio owns the capture side of the timegrapher: a PortAudio
input stream whose callback hands blocks to a lock-free ring, and a
consumer goroutine that drains the ring into the analysis pipeline.

The callback never blocks and never allocates. When the consumer falls
behind, the ring drops its oldest block and counts the overrun; the
analysis side re-anchors instead of stalling capture.
*/
package audio

import (
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gordonklaus/portaudio"

	"timegrapher/internal/buffer"
	"timegrapher/internal/config"
	"timegrapher/internal/log"
	"timegrapher/internal/pipeline"
)

// Engine connects a PortAudio input stream to the analysis pipeline.
type Engine struct {
	config *config.Config
	pipe   *pipeline.Pipeline

	inputDevice  *portaudio.DeviceInfo
	inputLatency time.Duration
	inputStream  *portaudio.Stream

	ring     *buffer.Ring
	doorbell chan struct{}

	// Consumer lifecycle.
	stop    chan struct{}
	done    sync.WaitGroup
	running atomic.Bool

	// Recording state. The TUI toggles recording while the consumer
	// goroutine writes, so both the flag and the recorder are atomic.
	isRecording atomic.Bool
	recorder    atomic.Pointer[Recorder]

	// Scratch block for the consumer. Sized frames x channels.
	drainBuf []int32
}

// NewEngine resolves the input device and pre-allocates every buffer
// the hot path needs. PortAudio must already be initialized.
func NewEngine(cfg *config.Config, pipe *pipeline.Pipeline) (*Engine, error) {
	inputDevice, err := InputDevice(cfg.Audio.DeviceID)
	if err != nil {
		return nil, err
	}

	blockSize := cfg.Audio.FramesPerBuffer * cfg.Audio.Channels
	e := &Engine{
		config:      cfg,
		pipe:        pipe,
		inputDevice: inputDevice,
		ring:        buffer.NewRing(cfg.Audio.QueueBlocks, blockSize),
		doorbell:    make(chan struct{}, 1),
		drainBuf:    make([]int32, blockSize),
	}

	if cfg.Audio.LowLatency {
		e.inputLatency = inputDevice.DefaultLowInputLatency
	} else {
		e.inputLatency = inputDevice.DefaultHighInputLatency
	}

	return e, nil
}

// DeviceName returns the resolved input device's name.
func (e *Engine) DeviceName() string {
	return e.inputDevice.Name
}

// Start opens the input stream and launches the ring consumer.
func (e *Engine) Start() error {
	if e.running.Load() {
		return fmt.Errorf("engine already running")
	}

	params := portaudio.StreamParameters{
		Input: portaudio.StreamDeviceParameters{
			Channels: e.config.Audio.Channels,
			Device:   e.inputDevice,
			Latency:  e.inputLatency,
		},
		FramesPerBuffer: e.config.Audio.FramesPerBuffer,
		SampleRate:      e.config.Audio.SampleRate,
	}

	stream, err := portaudio.OpenStream(params, e.captureCallback)
	if err != nil {
		return fmt.Errorf("open input stream: %w", err)
	}
	e.inputStream = stream

	e.stop = make(chan struct{})
	e.done.Add(1)
	go e.consume()

	if err := e.inputStream.Start(); err != nil {
		close(e.stop)
		e.done.Wait()
		e.inputStream.Close()
		e.inputStream = nil
		return fmt.Errorf("start input stream: %w", err)
	}

	e.running.Store(true)
	log.Infof("Audio: capturing from %q at %.0f Hz, %d frames/block",
		e.inputDevice.Name, e.config.Audio.SampleRate, e.config.Audio.FramesPerBuffer)
	return nil
}

// Stop tears down the stream and the consumer. The pipeline keeps its
// session; a later Start resumes the measurement.
func (e *Engine) Stop() error {
	if !e.running.Load() {
		return nil
	}
	e.running.Store(false)

	var firstErr error
	if err := e.inputStream.Stop(); err != nil {
		// A stop failure usually means the device went away mid-stream.
		e.pipe.ReportDeviceFailure(true)
		firstErr = err
	}
	if err := e.inputStream.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	e.inputStream = nil

	close(e.stop)
	e.done.Wait()
	e.ring.Reset()

	e.pipe.Restart()
	return firstErr
}

// captureCallback runs on PortAudio's realtime thread. Push then ring
// the doorbell; both are non-blocking.
func (e *Engine) captureCallback(in []int32) {
	e.ring.Push(in)
	select {
	case e.doorbell <- struct{}{}:
	default:
	}
}

// consume drains the ring into the pipeline until stopped. Runs on its
// own locked OS thread to keep block handling latency steady.
func (e *Engine) consume() {
	defer e.done.Done()
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	for {
		select {
		case <-e.stop:
			e.drain()
			return
		case <-e.doorbell:
			e.drain()
		}
	}
}

func (e *Engine) drain() {
	for {
		n, ok := e.ring.Pop(e.drainBuf)
		if !ok {
			return
		}
		block := e.drainBuf[:n]
		e.pipe.ReportOverruns(e.ring.Overruns())
		e.pipe.ProcessBlock(block)

		if e.isRecording.Load() {
			if rec := e.recorder.Load(); rec != nil {
				if err := rec.Write(block); err != nil {
					log.Errorf("Audio: WAV write failed: %v", err)
					e.isRecording.Store(false)
				}
			}
		}
	}
}

// IsRecording reports whether a WAV file is currently being written.
func (e *Engine) IsRecording() bool {
	return e.isRecording.Load()
}

// Close stops recording and capture.
func (e *Engine) Close() error {
	if err := e.StopRecording(); err != nil {
		return err
	}
	return e.Stop()
}
