// SPDX-License-Identifier: MIT
package audio

import (
	"fmt"
	"os"
	"sync"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"timegrapher/internal/config"
	"timegrapher/internal/log"
)

// Recorder encodes captured blocks to a 32-bit PCM WAV file. Write and
// Close serialize on an internal mutex so the consumer goroutine and
// the control side cannot interleave mid-frame.
type Recorder struct {
	mu      sync.Mutex
	file    *os.File
	encoder *wav.Encoder
	buf     *goaudio.IntBuffer
	closed  bool
}

// NewRecorder creates the output file and WAV encoder.
func NewRecorder(filename string, cfg *config.Config) (*Recorder, error) {
	file, err := os.Create(filename)
	if err != nil {
		return nil, err
	}

	return &Recorder{
		file: file,
		encoder: wav.NewEncoder(file, int(cfg.Audio.SampleRate),
			32, cfg.Audio.Channels, 1),
		buf: &goaudio.IntBuffer{
			Format: &goaudio.Format{
				NumChannels: cfg.Audio.Channels,
				SampleRate:  int(cfg.Audio.SampleRate),
			},
			Data: make([]int, cfg.Audio.FramesPerBuffer*cfg.Audio.Channels),
		},
	}, nil
}

// Write appends one captured block to the file.
func (r *Recorder) Write(block []int32) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return fmt.Errorf("recorder closed")
	}

	if cap(r.buf.Data) < len(block) {
		r.buf.Data = make([]int, len(block))
	}
	r.buf.Data = r.buf.Data[:len(block)]
	for i, sample := range block {
		r.buf.Data[i] = int(sample)
	}
	return r.encoder.Write(r.buf)
}

// Close finalizes the WAV header and closes the file.
func (r *Recorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}
	r.closed = true

	if err := r.encoder.Close(); err != nil {
		r.file.Close()
		return err
	}
	return r.file.Close()
}

// StartRecording begins writing captured audio to the given WAV file.
func (e *Engine) StartRecording(filename string) error {
	if e.isRecording.Load() {
		return fmt.Errorf("already recording")
	}

	rec, err := NewRecorder(filename, e.config)
	if err != nil {
		return err
	}
	e.recorder.Store(rec)
	e.isRecording.Store(true)
	log.Infof("Audio: recording to %s", filename)
	return nil
}

// StopRecording finalizes the WAV file. Safe to call when not recording.
func (e *Engine) StopRecording() error {
	if !e.isRecording.Load() {
		return nil
	}
	e.isRecording.Store(false)

	rec := e.recorder.Swap(nil)
	if rec == nil {
		return nil
	}
	return rec.Close()
}
