// SPDX-License-Identifier: MIT
package pipeline

// LockStatus is the tri-state signal acquisition indicator exposed to
// the display layer.
type LockStatus int

const (
	LockNoSignal LockStatus = iota
	LockAcquiring
	LockLocked
)

// String returns a display label for the lock status.
func (ls LockStatus) String() string {
	switch ls {
	case LockNoSignal:
		return "no signal"
	case LockAcquiring:
		return "acquiring"
	case LockLocked:
		return "locked"
	default:
		return "unknown"
	}
}

// Snapshot is the immutable metrics record published by the pipeline.
// Readers receive a pointer to a frozen copy via an atomic swap; they
// have no write access back into pipeline state.
type Snapshot struct {
	InstantRate   float64 `json:"instant_rate_spd"` // seconds/day, unsmoothed
	InstantValid  bool    `json:"instant_valid"`
	SessionRate   float64 `json:"session_rate_spd"` // seconds/day, regression
	SessionValid  bool    `json:"session_valid"`
	BeatErrorMs   float64 `json:"beat_error_ms"`
	BeatErrorOK   bool    `json:"beat_error_valid"`
	BPH           int     `json:"bph"` // configured or auto-detected; 0 = undetermined
	BeatCount     int     `json:"beat_count"`
	Lock          LockStatus `json:"lock"`
	DeviceFailure bool    `json:"device_failure"`

	// Live signal view for waveform/LED style displays.
	Envelope  float64 `json:"envelope"`
	Threshold float64 `json:"threshold"`
	Gain      float64 `json:"gain"`

	// Health counters.
	Overruns    uint64 `json:"overruns"`
	Anomalies   uint64 `json:"anomalies"`
	NoiseTicks  uint64 `json:"noise_ticks"`
	MissedBeats uint64 `json:"missed_beats"`
}
