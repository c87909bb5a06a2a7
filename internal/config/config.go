// SPDX-License-Identifier: MIT
package config

import (
	"math"
	"time"

	"timegrapher/internal/log"
)

// Boundaries and defaults for the capture and analysis configuration.
// Out-of-range values are clamped by Validate, never silently ignored
// and never fatal.
const (
	// Audio capture
	DefaultDeviceID        = MinDeviceID // System default input device
	DefaultChannels        = 1           // Mono capture
	DefaultSampleRate      = 44100.0     // Hz
	DefaultFramesPerBuffer = 2048        // Samples per block
	DefaultLowLatency      = false
	DefaultQueueBlocks     = 8 // Capture ring capacity in blocks

	MinDeviceID     = -1 // -1 selects the system default device
	MinSampleRate   = 8000.0
	MaxSampleRate   = 192000.0
	MaxBufferFrames = 8192
	MinQueueBlocks  = 2
	MaxQueueBlocks  = 64

	// Escapement timing
	DefaultBPH      = 0 // 0 enables auto-detection from the standard table
	MinBPH          = 3600
	MaxBPH          = 36000
	DefaultMinBeatS = 0.09 // Shorter intervals are counted as noise
	DefaultMaxBeatS = 2.2  // Longer intervals are counted as missed beats
	// Lock is declared lost after this many nominal periods without a tick.
	DefaultRelockPeriods = 3

	// Tick detection
	DefaultThreshold  = 0.40 // Fraction of the noise-floor to peak span
	MinThreshold      = 0.05
	MaxThreshold      = 0.95
	DefaultLockoutMs  = 80.0
	MinLockoutMs      = 10.0
	MaxLockoutMs      = 500.0
	DefaultBandLowHz  = 2000.0
	DefaultBandHighHz = 10000.0
	DefaultBandOrder  = 4
	DefaultEnvelopeMs = 5.0
	MinEnvelopeMs     = 0.5
	MaxEnvelopeMs     = 50.0

	// Automatic gain control
	DefaultGainMin    = 1.0
	DefaultGainMax    = 300.0
	DefaultTargetPeak = 0.61 // Fraction of full scale the gain steers toward
	// Attack must stay much faster than recovery so one loud transient
	// cannot desensitize the rest of the session.
	DefaultAGCAttack   = 0.30
	DefaultAGCRecovery = 0.02
	DefaultFloorDecay  = 0.05
	DefaultPeakDecay   = 0.01
	MinSmoothingCoeff  = 0.001
	MaxSmoothingCoeff  = 1.0

	DefaultBeatErrorEMA  = 0.2
	DefaultPublishEvery  = 50 // Snapshot publish interval, milliseconds
	MinPublishIntervalMs = 10
	MaxPublishIntervalMs = 1000
)

// Config holds all runtime options for the timegrapher. It is built from
// defaults, optionally overlaid by a YAML file and environment variables,
// then by command line flags.
type Config struct {
	Debug    bool   `yaml:"debug"`
	LogLevel string `yaml:"log_level"`

	Audio     AudioConfig     `yaml:"audio"`
	Timing    TimingConfig    `yaml:"timing"`
	Detection DetectionConfig `yaml:"detection"`
	AGC       AGCConfig       `yaml:"agc"`
	Recording RecordingConfig `yaml:"recording"`
	Transport TransportConfig `yaml:"transport"`

	// Resolved from the CLI, never read from YAML.
	Command string `yaml:"-"` // One-off subcommand, empty for the dashboard
}

// AudioConfig holds capture settings.
type AudioConfig struct {
	DeviceID        int     `yaml:"device_id"`         // PortAudio device index (-1 for default)
	Channels        int     `yaml:"channels"`          // Input channels; analysis itself is mono
	SampleRate      float64 `yaml:"sample_rate"`       // Hz
	FramesPerBuffer int     `yaml:"frames_per_buffer"` // Block size in frames
	LowLatency      bool    `yaml:"low_latency"`
	QueueBlocks     int     `yaml:"queue_blocks"` // Capture ring capacity
}

// TimingConfig holds escapement rate settings.
type TimingConfig struct {
	BPH           int     `yaml:"bph"`            // Nominal beats per hour, 0 = auto-detect
	MinIntervalS  float64 `yaml:"min_interval_s"` // Noise gate on tick spacing
	MaxIntervalS  float64 `yaml:"max_interval_s"` // Missed-beat boundary
	RelockPeriods int     `yaml:"relock_periods"` // Missed periods before lock loss
	BeatErrorEMA  float64 `yaml:"beat_error_ema"` // Beat error smoothing factor
}

// DetectionConfig holds bandpass, envelope and trigger settings.
type DetectionConfig struct {
	Threshold  float64 `yaml:"threshold"`   // 0..1 across the noise→peak span
	LockoutMs  float64 `yaml:"lockout_ms"`  // Dead time after each tick
	BandLowHz  float64 `yaml:"band_low_hz"` // Bandpass lower edge
	BandHighHz float64 `yaml:"band_high_hz"`
	BandOrder  int     `yaml:"band_order"`  // Butterworth order per edge
	EnvelopeMs float64 `yaml:"envelope_ms"` // Envelope smoother time constant
}

// AGCConfig holds gain control tuning. The asymmetry between Attack and
// Recovery is a detection requirement, not a preference: attack governs
// how fast gain drops on a loud transient, recovery how slowly it climbs
// back for a quiet signal.
type AGCConfig struct {
	GainMin    float64 `yaml:"gain_min"`
	GainMax    float64 `yaml:"gain_max"`
	TargetPeak float64 `yaml:"target_peak"`
	Attack     float64 `yaml:"attack"`      // Per-block coefficient for gain reduction
	Recovery   float64 `yaml:"recovery"`    // Per-block coefficient for gain increase
	FloorDecay float64 `yaml:"floor_decay"` // Noise floor tracking coefficient
	PeakDecay  float64 `yaml:"peak_decay"`  // Peak estimate release coefficient
}

// RecordingConfig holds optional raw-capture WAV recording settings.
type RecordingConfig struct {
	Enabled    bool   `yaml:"enabled"`
	OutputFile string `yaml:"output_file"`
}

// TransportConfig holds snapshot telemetry settings.
type TransportConfig struct {
	WSEnabled         bool   `yaml:"ws_enabled"` // Serve snapshots over websocket
	WSAddr            string `yaml:"ws_addr"`
	PublishIntervalMs int    `yaml:"publish_interval_ms"`
}

// NewConfig creates a Config populated with defaults.
func NewConfig() *Config {
	return &Config{
		Debug:    false,
		LogLevel: "info",
		Audio: AudioConfig{
			DeviceID:        DefaultDeviceID,
			Channels:        DefaultChannels,
			SampleRate:      DefaultSampleRate,
			FramesPerBuffer: DefaultFramesPerBuffer,
			LowLatency:      DefaultLowLatency,
			QueueBlocks:     DefaultQueueBlocks,
		},
		Timing: TimingConfig{
			BPH:           DefaultBPH,
			MinIntervalS:  DefaultMinBeatS,
			MaxIntervalS:  DefaultMaxBeatS,
			RelockPeriods: DefaultRelockPeriods,
			BeatErrorEMA:  DefaultBeatErrorEMA,
		},
		Detection: DetectionConfig{
			Threshold:  DefaultThreshold,
			LockoutMs:  DefaultLockoutMs,
			BandLowHz:  DefaultBandLowHz,
			BandHighHz: DefaultBandHighHz,
			BandOrder:  DefaultBandOrder,
			EnvelopeMs: DefaultEnvelopeMs,
		},
		AGC: AGCConfig{
			GainMin:    DefaultGainMin,
			GainMax:    DefaultGainMax,
			TargetPeak: DefaultTargetPeak,
			Attack:     DefaultAGCAttack,
			Recovery:   DefaultAGCRecovery,
			FloorDecay: DefaultFloorDecay,
			PeakDecay:  DefaultPeakDecay,
		},
		Recording: RecordingConfig{
			Enabled:    false,
			OutputFile: "",
		},
		Transport: TransportConfig{
			WSEnabled:         false,
			WSAddr:            ":8080",
			PublishIntervalMs: DefaultPublishEvery,
		},
	}
}

// Validate clamps every out-of-range value to its nearest bound and logs
// each correction. It never fails for a recoverable setting; the error
// return exists for future unrepairable cases and is currently always nil.
func (c *Config) Validate() error {
	c.Audio.SampleRate = clampF("audio.sample_rate", c.Audio.SampleRate, MinSampleRate, MaxSampleRate)
	c.Audio.FramesPerBuffer = clampI("audio.frames_per_buffer", c.Audio.FramesPerBuffer, 64, MaxBufferFrames)
	c.Audio.QueueBlocks = clampI("audio.queue_blocks", c.Audio.QueueBlocks, MinQueueBlocks, MaxQueueBlocks)
	if c.Audio.Channels < 1 {
		log.Warnf("Config: audio.channels %d clamped to 1", c.Audio.Channels)
		c.Audio.Channels = 1
	}
	if c.Audio.DeviceID < MinDeviceID {
		log.Warnf("Config: audio.device_id %d clamped to %d (default device)", c.Audio.DeviceID, MinDeviceID)
		c.Audio.DeviceID = MinDeviceID
	}

	if c.Timing.BPH != 0 {
		c.Timing.BPH = clampI("timing.bph", c.Timing.BPH, MinBPH, MaxBPH)
	}
	c.Timing.MinIntervalS = clampF("timing.min_interval_s", c.Timing.MinIntervalS, 0.01, 1.0)
	c.Timing.MaxIntervalS = clampF("timing.max_interval_s", c.Timing.MaxIntervalS, c.Timing.MinIntervalS, 10.0)
	c.Timing.RelockPeriods = clampI("timing.relock_periods", c.Timing.RelockPeriods, 1, 20)
	c.Timing.BeatErrorEMA = clampF("timing.beat_error_ema", c.Timing.BeatErrorEMA, MinSmoothingCoeff, MaxSmoothingCoeff)

	c.Detection.Threshold = clampF("detection.threshold", c.Detection.Threshold, MinThreshold, MaxThreshold)
	c.Detection.LockoutMs = clampF("detection.lockout_ms", c.Detection.LockoutMs, MinLockoutMs, MaxLockoutMs)
	nyquist := c.Audio.SampleRate / 2
	c.Detection.BandLowHz = clampF("detection.band_low_hz", c.Detection.BandLowHz, 100, nyquist-200)
	c.Detection.BandHighHz = clampF("detection.band_high_hz", c.Detection.BandHighHz, c.Detection.BandLowHz+100, nyquist-1)
	c.Detection.BandOrder = clampI("detection.band_order", c.Detection.BandOrder, 1, 8)
	c.Detection.EnvelopeMs = clampF("detection.envelope_ms", c.Detection.EnvelopeMs, MinEnvelopeMs, MaxEnvelopeMs)

	c.AGC.GainMin = clampF("agc.gain_min", c.AGC.GainMin, 0.1, 1000)
	c.AGC.GainMax = clampF("agc.gain_max", c.AGC.GainMax, c.AGC.GainMin, 1000)
	c.AGC.TargetPeak = clampF("agc.target_peak", c.AGC.TargetPeak, 0.05, 0.99)
	c.AGC.Attack = clampF("agc.attack", c.AGC.Attack, MinSmoothingCoeff, MaxSmoothingCoeff)
	c.AGC.Recovery = clampF("agc.recovery", c.AGC.Recovery, MinSmoothingCoeff, c.AGC.Attack)
	c.AGC.FloorDecay = clampF("agc.floor_decay", c.AGC.FloorDecay, MinSmoothingCoeff, MaxSmoothingCoeff)
	c.AGC.PeakDecay = clampF("agc.peak_decay", c.AGC.PeakDecay, MinSmoothingCoeff, MaxSmoothingCoeff)

	c.Transport.PublishIntervalMs = clampI("transport.publish_interval_ms", c.Transport.PublishIntervalMs, MinPublishIntervalMs, MaxPublishIntervalMs)

	return nil
}

// NominalBeatSeconds returns the configured nominal seconds per beat,
// or 0 when BPH auto-detection is enabled.
func (c *Config) NominalBeatSeconds() float64 {
	if c.Timing.BPH == 0 {
		return 0
	}
	return 3600.0 / float64(c.Timing.BPH)
}

// PublishInterval returns the snapshot publish interval as a Duration.
func (c *Config) PublishInterval() time.Duration {
	return time.Duration(c.Transport.PublishIntervalMs) * time.Millisecond
}

func clampF(name string, v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		log.Warnf("Config: %s is NaN, reset to %g", name, lo)
		return lo
	}
	if v < lo {
		log.Warnf("Config: %s %g clamped to %g", name, v, lo)
		return lo
	}
	if v > hi {
		log.Warnf("Config: %s %g clamped to %g", name, v, hi)
		return hi
	}
	return v
}

func clampI(name string, v, lo, hi int) int {
	if v < lo {
		log.Warnf("Config: %s %d clamped to %d", name, v, lo)
		return lo
	}
	if v > hi {
		log.Warnf("Config: %s %d clamped to %d", name, v, hi)
		return hi
	}
	return v
}
