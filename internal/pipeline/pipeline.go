// SPDX-License-Identifier: MIT

// Package pipeline chains the per-block analysis stages and publishes
// immutable metric snapshots. A single goroutine (the ring consumer)
// calls ProcessBlock; any number of readers may call Snapshot
// concurrently.
package pipeline

import (
	"fmt"
	"math"
	"sync/atomic"

	"github.com/cwbudde/algo-dsp/dsp/core"

	"timegrapher/internal/config"
	"timegrapher/internal/dsp"
	"timegrapher/internal/timegrapher"
)

const int32Scale = 1.0 / 2147483648.0

// Pipeline owns every piece of per-session analysis state. All mutable
// fields are touched only from the ProcessBlock caller; cross-thread
// reads go through the atomic snapshot pointer.
type Pipeline struct {
	cfg *config.Config

	bandpass *dsp.Bandpass
	envelope *dsp.Envelope
	agc      *dsp.AGC
	detector *dsp.Detector

	classifier timegrapher.Classifier
	instant    timegrapher.Instant
	session    timegrapher.Session
	beatError  *timegrapher.BeatError

	channels int
	rate     float64

	// Scratch buffers reused across blocks. No allocation on the hot
	// path after construction.
	samples []float64
	events  []dsp.TickEvent

	bph        int // configured, or auto-detected when cfg starts at 0
	haveLast   bool
	lastTick   float64 // detector time of last accepted tick
	cumulative float64 // sum of accepted beat intervals, regression y-axis
	lockLost   bool

	noiseTicks   uint64
	missedBeats  uint64
	overruns     atomic.Uint64
	deviceFail   atomic.Bool
	resetPending atomic.Bool

	// User sensitivity setting, stored as float bits so the TUI can
	// adjust it while blocks are processing.
	thresholdBits atomic.Uint64

	snapshot atomic.Pointer[Snapshot]
}

// New builds a pipeline from validated configuration. The filter design
// can fail if the configured band does not fit the sample rate.
func New(cfg *config.Config) (*Pipeline, error) {
	rate := cfg.Audio.SampleRate

	bp, err := dsp.NewBandpass(cfg.Detection.BandLowHz, cfg.Detection.BandHighHz, cfg.Detection.BandOrder, rate)
	if err != nil {
		return nil, fmt.Errorf("pipeline: %w", err)
	}

	p := &Pipeline{
		cfg:       cfg,
		bandpass:  bp,
		envelope:  dsp.NewEnvelope(cfg.Detection.EnvelopeMs, rate),
		agc:       dsp.NewAGC(cfg.AGC, cfg.Detection.Threshold),
		detector:  dsp.NewDetector(cfg.Detection.LockoutMs, rate),
		beatError: timegrapher.NewBeatError(cfg.Timing.BeatErrorEMA),
		channels:  cfg.Audio.Channels,
		rate:      rate,
		samples:   make([]float64, cfg.Audio.FramesPerBuffer),
		events:    make([]dsp.TickEvent, 0, 16),
		bph:       cfg.Timing.BPH,
	}
	p.thresholdBits.Store(math.Float64bits(cfg.Detection.Threshold))
	p.snapshot.Store(&Snapshot{Lock: LockNoSignal})
	return p, nil
}

// ProcessBlock runs one captured block through the full analysis chain
// and publishes an updated snapshot. The block holds interleaved
// samples; only the first channel is analyzed.
func (p *Pipeline) ProcessBlock(block []int32) {
	frames := len(block) / p.channels
	if frames == 0 {
		return
	}
	if cap(p.samples) < frames {
		p.samples = make([]float64, frames)
	}
	p.samples = p.samples[:frames]

	if p.resetPending.Swap(false) {
		p.applyReset()
	}
	p.agc.SetThresholdSetting(math.Float64frombits(p.thresholdBits.Load()))

	// Convert, apply the gain settled from previous blocks, and track
	// the raw (pre-gain) peak the AGC steers on.
	gain := p.agc.Gain()
	rawPeak := 0.0
	for i := 0; i < frames; i++ {
		v := float64(block[i*p.channels]) * int32Scale
		a := v
		if a < 0 {
			a = -a
		}
		if a > rawPeak {
			rawPeak = a
		}
		p.samples[i] = v * gain
	}

	p.bandpass.Process(p.samples)
	p.envelope.Process(p.samples)

	envMin, envMax := p.samples[0], p.samples[0]
	for _, v := range p.samples[1:] {
		if v < envMin {
			envMin = v
		}
		if v > envMax {
			envMax = v
		}
	}

	threshold := p.agc.Threshold()
	p.events = p.detector.Process(p.samples, threshold, p.events[:0])
	p.agc.Observe(rawPeak, envMin, envMax)

	for _, ev := range p.events {
		p.handleTick(ev)
	}
	p.checkDropout()
	p.publish(envMax, threshold)
}

// handleTick applies the interval quality gate, then feeds the
// classifier and the rate estimators.
func (p *Pipeline) handleTick(ev dsp.TickEvent) {
	if p.lockLost {
		// First tick after a dropout re-anchors everything. The session
		// accumulator starts over on re-lock.
		p.resync()
		p.session.Reset()
		p.cumulative = 0
		p.lockLost = false
		p.lastTick = ev.Time
		p.haveLast = true
		return
	}
	if !p.haveLast {
		p.lastTick = ev.Time
		p.haveLast = true
		return
	}

	delta := ev.Time - p.lastTick
	p.lastTick = ev.Time

	if delta < p.cfg.Timing.MinIntervalS {
		p.noiseTicks++
		return
	}
	if delta > p.cfg.Timing.MaxIntervalS {
		p.missedBeats++
		p.resync()
		return
	}

	p.cumulative += delta
	p.session.Add(p.cumulative)

	ct := p.classifier.Classify(ev)
	p.instant.Update(ct, 2*p.nominalBeatSeconds())
	p.beatError.Update(ct)

	p.autodetectBPH()
}

// autodetectBPH snaps the measured mean beat to the standard rate table
// once enough beats have accumulated. Only runs when no rate was
// configured.
func (p *Pipeline) autodetectBPH() {
	if p.cfg.Timing.BPH != 0 || p.session.Count() < timegrapher.MinBeatsForDetect {
		return
	}
	mean, ok := p.session.MeanBeatSeconds()
	if !ok {
		return
	}
	if bph := timegrapher.NearestBPH(mean); bph != 0 {
		p.bph = bph
	}
}

// checkDropout declares the signal lost when no tick has arrived for
// several nominal beat periods. The estimators re-anchor on the next
// tick rather than bridging the gap.
func (p *Pipeline) checkDropout() {
	if p.lockLost || !p.haveLast {
		return
	}
	since, ok := p.detector.SamplesSinceLastTick()
	if !ok {
		return
	}
	limit := p.cfg.Timing.MaxIntervalS
	if nb := p.nominalBeatSeconds(); nb > 0 {
		limit = float64(p.cfg.Timing.RelockPeriods) * nb
		if limit < p.cfg.Timing.MaxIntervalS {
			limit = p.cfg.Timing.MaxIntervalS
		}
	}
	if since/p.rate > limit {
		p.lockLost = true
		p.haveLast = false
	}
}

// resync clears the beat-phase anchors without touching the session
// regression. Used after a missed beat, where beat numbering may have
// flipped parity.
func (p *Pipeline) resync() {
	p.classifier.Resync()
	p.instant.Reset()
	p.beatError.Rebase()
}

func (p *Pipeline) nominalBeatSeconds() float64 {
	if p.bph <= 0 {
		return 0
	}
	return 3600.0 / float64(p.bph)
}

func (p *Pipeline) lockStatus() LockStatus {
	if p.lockLost || !p.haveLast {
		return LockNoSignal
	}
	if p.session.Count() < 2 {
		return LockAcquiring
	}
	return LockLocked
}

func (p *Pipeline) publish(envPeak, threshold float64) {
	snap := &Snapshot{
		BPH:           p.bph,
		BeatCount:     p.session.Count(),
		Lock:          p.lockStatus(),
		DeviceFailure: p.deviceFail.Load(),
		Envelope:      envPeak,
		Threshold:     threshold,
		Gain:          p.agc.Gain(),
		Overruns:      p.overruns.Load(),
		Anomalies:     p.bandpass.Anomalies(),
		NoiseTicks:    p.noiseTicks,
		MissedBeats:   p.missedBeats,
	}
	if v, ok := p.instant.Value(); ok {
		snap.InstantRate, snap.InstantValid = v, true
	}
	if v, ok := p.session.Rate(p.nominalBeatSeconds()); ok {
		snap.SessionRate, snap.SessionValid = v, true
	}
	if v, ok := p.beatError.Value(); ok {
		snap.BeatErrorMs, snap.BeatErrorOK = v, true
	}
	p.snapshot.Store(snap)
}

// Snapshot returns the most recently published metrics record. The
// returned value is frozen; callers may retain it indefinitely.
func (p *Pipeline) Snapshot() *Snapshot {
	return p.snapshot.Load()
}

// ResetSession requests a fresh measurement session: the regression
// and smoothed values are discarded before the next block, while
// filter and AGC state carry over. Safe to call from any goroutine.
func (p *Pipeline) ResetSession() {
	p.resetPending.Store(true)
}

func (p *Pipeline) applyReset() {
	p.session.Reset()
	p.cumulative = 0
	p.noiseTicks = 0
	p.missedBeats = 0
	p.haveLast = false
	p.lockLost = false
	p.beatError.Reset()
	p.resync()
	if p.cfg.Timing.BPH == 0 {
		p.bph = 0
	}
}

// Restart prepares the pipeline for a fresh capture stream after a
// stop. Filter, envelope and detector state clear because their sample
// continuity is broken; AGC gain and the session regression survive so
// a resumed measurement extends the previous one.
func (p *Pipeline) Restart() {
	p.bandpass.Reset()
	p.envelope.Reset()
	p.detector.Reset()
	p.haveLast = false
	p.lockLost = false
	p.resync()
}

// SetThreshold adjusts the detection sensitivity live. The new value
// takes effect on the next processed block.
func (p *Pipeline) SetThreshold(v float64) {
	v = core.Clamp(v, config.MinThreshold, config.MaxThreshold)
	p.thresholdBits.Store(math.Float64bits(v))
}

// AdjustThreshold nudges the sensitivity setting by delta.
func (p *Pipeline) AdjustThreshold(delta float64) {
	p.SetThreshold(math.Float64frombits(p.thresholdBits.Load()) + delta)
}

// ReportOverruns records the capture ring's drop counter for the next
// snapshot. Safe to call from the audio callback side.
func (p *Pipeline) ReportOverruns(total uint64) {
	p.overruns.Store(total)
}

// ReportDeviceFailure flags capture device loss for the display layer.
func (p *Pipeline) ReportDeviceFailure(failed bool) {
	p.deviceFail.Store(failed)
}
