// SPDX-License-Identifier: MIT
package pipeline

import (
	"math"
	"testing"

	"timegrapher/internal/config"
	"timegrapher/internal/synth"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.NewConfig()
	cfg.Audio.Channels = 1
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	return cfg
}

func newTestPipeline(t *testing.T, cfg *config.Config) *Pipeline {
	t.Helper()
	p, err := New(cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return p
}

func feed(p *Pipeline, cfg *config.Config, samples []int32) {
	for _, block := range synth.Blocks(samples, cfg.Audio.FramesPerBuffer, cfg.Audio.Channels) {
		p.ProcessBlock(block)
	}
}

func feedSilence(p *Pipeline, cfg *config.Config, seconds float64) {
	block := make([]int32, cfg.Audio.FramesPerBuffer*cfg.Audio.Channels)
	n := int(seconds * cfg.Audio.SampleRate / float64(cfg.Audio.FramesPerBuffer))
	for i := 0; i < n; i++ {
		p.ProcessBlock(block)
	}
}

func TestPipelineMeasuresAccurateWatch(t *testing.T) {
	cfg := testConfig(t)
	cfg.Timing.BPH = 0 // auto-detect

	p := newTestPipeline(t, cfg)
	sig := synth.Escapement{
		SampleRate: cfg.Audio.SampleRate,
		BPH:        28800,
		Noise:      0.005,
		Seed:       1,
	}
	feed(p, cfg, sig.Generate(60))

	snap := p.Snapshot()
	if snap.Lock != LockLocked {
		t.Fatalf("Lock = %v, want %v", snap.Lock, LockLocked)
	}
	if snap.BPH != 28800 {
		t.Errorf("auto-detected BPH = %d, want 28800", snap.BPH)
	}
	if snap.BeatCount < 400 {
		t.Errorf("BeatCount = %d, want at least 400 over 60s at 28800 bph", snap.BeatCount)
	}
	if !snap.SessionValid {
		t.Fatal("SessionValid = false after 60s of clean signal")
	}
	if math.Abs(snap.SessionRate) > 15 {
		t.Errorf("SessionRate = %.2f s/d, want ~0 for an accurate watch", snap.SessionRate)
	}
	if !snap.InstantValid {
		t.Error("InstantValid = false after 60s of clean signal")
	}
	if !snap.BeatErrorOK {
		t.Fatal("BeatErrorOK = false after 60s of clean signal")
	}
	if snap.BeatErrorMs > 1 {
		t.Errorf("BeatErrorMs = %.3f, want under 1ms for a symmetric signal", snap.BeatErrorMs)
	}
}

func TestPipelineHighBeatWatch(t *testing.T) {
	// 36000 bph leaves only 100ms between beats, barely above the
	// 80ms lockout and the noise gate. 60s of clean signal must still
	// converge to zero rate and zero beat error.
	cfg := testConfig(t)
	cfg.Timing.BPH = 36000

	p := newTestPipeline(t, cfg)
	sig := synth.Escapement{
		SampleRate: cfg.Audio.SampleRate,
		BPH:        36000,
		Noise:      0.005,
		Seed:       10,
	}
	feed(p, cfg, sig.Generate(60))

	snap := p.Snapshot()
	if snap.Lock != LockLocked {
		t.Fatalf("Lock = %v, want %v", snap.Lock, LockLocked)
	}
	if !snap.SessionValid {
		t.Fatal("SessionValid = false")
	}
	if math.Abs(snap.SessionRate) > 15 {
		t.Errorf("SessionRate = %.2f s/d, want ~0", snap.SessionRate)
	}
	if !snap.BeatErrorOK {
		t.Fatal("BeatErrorOK = false")
	}
	if snap.BeatErrorMs > 1 {
		t.Errorf("BeatErrorMs = %.3f, want ~0", snap.BeatErrorMs)
	}
	if snap.BeatCount < 500 {
		t.Errorf("BeatCount = %d, want at least 500 over 60s at 36000 bph", snap.BeatCount)
	}
}

func TestPipelineSlowWatchRate(t *testing.T) {
	cfg := testConfig(t)
	cfg.Timing.BPH = 28800

	p := newTestPipeline(t, cfg)
	sig := synth.Escapement{
		SampleRate:    cfg.Audio.SampleRate,
		BPH:           28800,
		RateDeviation: 0.001, // beats stretched 0.1%, watch runs slow
		Noise:         0.005,
		Seed:          2,
	}
	feed(p, cfg, sig.Generate(60))

	snap := p.Snapshot()
	if !snap.SessionValid {
		t.Fatal("SessionValid = false")
	}
	want := 0.001 * 86400 // +86.4 s/d
	if math.Abs(snap.SessionRate-want) > 10 {
		t.Errorf("SessionRate = %.2f s/d, want %.1f +- 10", snap.SessionRate, want)
	}
	if snap.SessionRate < 0 {
		t.Errorf("SessionRate = %.2f, slow watch must read positive", snap.SessionRate)
	}
}

func TestPipelineBeatError(t *testing.T) {
	cfg := testConfig(t)
	cfg.Timing.BPH = 18000

	p := newTestPipeline(t, cfg)
	sig := synth.Escapement{
		SampleRate:  cfg.Audio.SampleRate,
		BPH:         18000,
		BeatErrorMs: 4,
		Noise:       0.005,
		Seed:        3,
	}
	feed(p, cfg, sig.Generate(60))

	snap := p.Snapshot()
	if !snap.BeatErrorOK {
		t.Fatal("BeatErrorOK = false")
	}
	if snap.BeatErrorMs < 3 || snap.BeatErrorMs > 5 {
		t.Errorf("BeatErrorMs = %.3f, want 4 +- 1", snap.BeatErrorMs)
	}
}

func TestPipelineConfiguredBPHWins(t *testing.T) {
	cfg := testConfig(t)
	cfg.Timing.BPH = 18000

	p := newTestPipeline(t, cfg)
	sig := synth.Escapement{SampleRate: cfg.Audio.SampleRate, BPH: 28800, Seed: 4}
	feed(p, cfg, sig.Generate(20))

	if got := p.Snapshot().BPH; got != 18000 {
		t.Errorf("BPH = %d, configured rate must not be overridden", got)
	}
}

func TestPipelineDropoutResetsSession(t *testing.T) {
	cfg := testConfig(t)
	cfg.Timing.BPH = 28800

	p := newTestPipeline(t, cfg)
	sig := synth.Escapement{SampleRate: cfg.Audio.SampleRate, BPH: 28800, Noise: 0.005, Seed: 5}

	feed(p, cfg, sig.Generate(20))
	if got := p.Snapshot().Lock; got != LockLocked {
		t.Fatalf("Lock = %v before dropout, want %v", got, LockLocked)
	}

	feedSilence(p, cfg, 3)
	if got := p.Snapshot().Lock; got != LockNoSignal {
		t.Fatalf("Lock = %v during silence, want %v", got, LockNoSignal)
	}

	feed(p, cfg, sig.Generate(20))
	snap := p.Snapshot()
	if snap.Lock != LockLocked {
		t.Fatalf("Lock = %v after re-lock, want %v", snap.Lock, LockLocked)
	}
	// Session restarts on re-lock: only the post-dropout beats count.
	if snap.BeatCount > 22*8 {
		t.Errorf("BeatCount = %d after re-lock, want only the ~160 post-dropout beats", snap.BeatCount)
	}
	if snap.BeatCount < 15*8 {
		t.Errorf("BeatCount = %d after re-lock, want at least ~120", snap.BeatCount)
	}
}

func TestPipelineRestartPreservesSession(t *testing.T) {
	cfg := testConfig(t)
	cfg.Timing.BPH = 28800

	p := newTestPipeline(t, cfg)
	sig := synth.Escapement{SampleRate: cfg.Audio.SampleRate, BPH: 28800, Noise: 0.005, Seed: 6}
	samples := sig.Generate(20)

	feed(p, cfg, samples)
	first := p.Snapshot().BeatCount
	if first < 120 {
		t.Fatalf("BeatCount = %d after 20s, want at least 120", first)
	}

	// A stop/start cycle clears the sample-continuity state but keeps
	// the accumulated session.
	p.Restart()
	feed(p, cfg, samples)

	snap := p.Snapshot()
	if snap.BeatCount <= first {
		t.Errorf("BeatCount = %d after restart, want more than %d", snap.BeatCount, first)
	}
	if !snap.SessionValid {
		t.Error("SessionValid = false after restart")
	}
	if math.Abs(snap.SessionRate) > 15 {
		t.Errorf("SessionRate = %.2f s/d after restart, want ~0", snap.SessionRate)
	}
}

func TestPipelineResetSession(t *testing.T) {
	cfg := testConfig(t)
	cfg.Timing.BPH = 28800

	p := newTestPipeline(t, cfg)
	sig := synth.Escapement{SampleRate: cfg.Audio.SampleRate, BPH: 28800, Seed: 7}
	feed(p, cfg, sig.Generate(10))

	if p.Snapshot().BeatCount == 0 {
		t.Fatal("no beats detected before reset")
	}

	p.ResetSession()
	feedSilence(p, cfg, 1)

	snap := p.Snapshot()
	if snap.BeatCount != 0 {
		t.Errorf("BeatCount = %d after reset, want 0", snap.BeatCount)
	}
	if snap.SessionValid {
		t.Error("SessionValid = true after reset")
	}
	if snap.Lock != LockNoSignal {
		t.Errorf("Lock = %v after reset, want %v", snap.Lock, LockNoSignal)
	}
}

func TestPipelineHealthCounters(t *testing.T) {
	cfg := testConfig(t)
	p := newTestPipeline(t, cfg)

	p.ReportOverruns(7)
	p.ReportDeviceFailure(true)
	feedSilence(p, cfg, 0.1)

	snap := p.Snapshot()
	if snap.Overruns != 7 {
		t.Errorf("Overruns = %d, want 7", snap.Overruns)
	}
	if !snap.DeviceFailure {
		t.Error("DeviceFailure = false, want true")
	}
}

func TestPipelineSnapshotIsFrozen(t *testing.T) {
	cfg := testConfig(t)
	cfg.Timing.BPH = 28800

	p := newTestPipeline(t, cfg)
	sig := synth.Escapement{SampleRate: cfg.Audio.SampleRate, BPH: 28800, Seed: 8}
	samples := sig.Generate(10)
	blocks := synth.Blocks(samples, cfg.Audio.FramesPerBuffer, cfg.Audio.Channels)

	half := blocks[:len(blocks)/2]
	for _, b := range half {
		p.ProcessBlock(b)
	}
	old := p.Snapshot()
	oldCount := old.BeatCount

	for _, b := range blocks[len(blocks)/2:] {
		p.ProcessBlock(b)
	}
	if old.BeatCount != oldCount {
		t.Error("retained snapshot mutated by later processing")
	}
	if p.Snapshot() == old {
		t.Error("Snapshot() returned a stale pointer after new blocks")
	}
}

func BenchmarkPipelineProcessBlock(b *testing.B) {
	cfg := config.NewConfig()
	cfg.Audio.Channels = 1
	_ = cfg.Validate()
	cfg.Timing.BPH = 28800

	p, err := New(cfg)
	if err != nil {
		b.Fatalf("New() error = %v", err)
	}
	sig := synth.Escapement{SampleRate: cfg.Audio.SampleRate, BPH: 28800, Seed: 9}
	blocks := synth.Blocks(sig.Generate(5), cfg.Audio.FramesPerBuffer, 1)

	b.ResetTimer()
	for b.Loop() {
		for _, blk := range blocks {
			p.ProcessBlock(blk)
		}
	}
}
