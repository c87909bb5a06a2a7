// SPDX-License-Identifier: MIT

// Package tui renders the interactive terminal front end: a live
// metrics dashboard and a capture device picker.
package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"timegrapher/internal/pipeline"
)

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFDF5")).
			Background(lipgloss.Color("#25A065")).
			Padding(0, 1).
			Bold(true)

	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFDF5"))

	highlightStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#25A065")).
			Bold(true)

	faintStyle = lipgloss.NewStyle().Faint(true)

	lockedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#25A065")).Bold(true)
	acquireStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#E2C044")).Bold(true)
	noSignalStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#D64045")).Bold(true)
)

const refreshInterval = 100 * time.Millisecond

type refreshMsg time.Time

func scheduleRefresh() tea.Cmd {
	return tea.Tick(refreshInterval, func(t time.Time) tea.Msg {
		return refreshMsg(t)
	})
}

type metricsKeys struct {
	Quit      key.Binding
	Reset     key.Binding
	MoreSense key.Binding
	LessSense key.Binding
	ToggleRec key.Binding
}

var defaultMetricsKeys = metricsKeys{
	Quit:      key.NewBinding(key.WithKeys("q", "ctrl+c")),
	Reset:     key.NewBinding(key.WithKeys("r")),
	MoreSense: key.NewBinding(key.WithKeys("up", "+")),
	LessSense: key.NewBinding(key.WithKeys("down", "-")),
	ToggleRec: key.NewBinding(key.WithKeys("w")),
}

// Controls are the callbacks the dashboard invokes on key presses.
// Nil members disable the corresponding key.
type Controls struct {
	ResetSession    func()
	AdjustThreshold func(delta float64)
	ToggleRecording func()
}

// MetricsModel is the Bubble Tea model for the live dashboard. It polls
// the snapshot source on a fixed refresh tick; the snapshot itself is
// immutable so rendering needs no synchronization.
type MetricsModel struct {
	source   func() *pipeline.Snapshot
	controls Controls
	device   string
	keys     metricsKeys

	snap  *pipeline.Snapshot
	width int
}

// NewMetricsModel creates the dashboard model.
func NewMetricsModel(device string, source func() *pipeline.Snapshot, controls Controls) MetricsModel {
	return MetricsModel{
		source:   source,
		controls: controls,
		device:   device,
		keys:     defaultMetricsKeys,
	}
}

// Init starts the refresh loop.
func (m MetricsModel) Init() tea.Cmd {
	return scheduleRefresh()
}

// Update handles refresh ticks and key presses.
func (m MetricsModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width

	case refreshMsg:
		m.snap = m.source()
		return m, scheduleRefresh()

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.Reset):
			if m.controls.ResetSession != nil {
				m.controls.ResetSession()
			}
		case key.Matches(msg, m.keys.MoreSense):
			if m.controls.AdjustThreshold != nil {
				m.controls.AdjustThreshold(-0.05)
			}
		case key.Matches(msg, m.keys.LessSense):
			if m.controls.AdjustThreshold != nil {
				m.controls.AdjustThreshold(0.05)
			}
		case key.Matches(msg, m.keys.ToggleRec):
			if m.controls.ToggleRecording != nil {
				m.controls.ToggleRecording()
			}
		}
	}

	return m, nil
}

// View renders the dashboard.
func (m MetricsModel) View() string {
	var sb strings.Builder

	sb.WriteString(titleStyle.Render("Timegrapher"))
	sb.WriteString(faintStyle.Render("  " + m.device))
	sb.WriteString("\n\n")

	snap := m.snap
	if snap == nil {
		sb.WriteString("Waiting for audio...\n")
	} else {
		sb.WriteString(renderSnapshot(snap))
	}

	sb.WriteString("\n")
	sb.WriteString(infoStyle.Render("↑/↓: Sensitivity • r: New Session • w: Record • q: Quit"))
	return sb.String()
}

func renderSnapshot(snap *pipeline.Snapshot) string {
	var sb strings.Builder

	sb.WriteString("Signal:     ")
	sb.WriteString(renderLock(snap))
	sb.WriteString("\n\n")

	sb.WriteString(fmt.Sprintf("Rate:       %s\n", renderRate(snap.SessionRate, snap.SessionValid)))
	sb.WriteString(fmt.Sprintf("Instant:    %s\n", renderRate(snap.InstantRate, snap.InstantValid)))
	if snap.BeatErrorOK {
		sb.WriteString(fmt.Sprintf("Beat error: %.1f ms\n", snap.BeatErrorMs))
	} else {
		sb.WriteString("Beat error: ---\n")
	}
	if snap.BPH > 0 {
		sb.WriteString(fmt.Sprintf("Rate base:  %d bph\n", snap.BPH))
	} else {
		sb.WriteString("Rate base:  detecting...\n")
	}
	sb.WriteString(fmt.Sprintf("Beats:      %d\n\n", snap.BeatCount))

	sb.WriteString(fmt.Sprintf("Level:      %s\n", renderLevel(snap.Envelope, snap.Threshold)))

	if snap.Overruns > 0 || snap.NoiseTicks > 0 || snap.MissedBeats > 0 {
		sb.WriteString(faintStyle.Render(fmt.Sprintf(
			"\nnoise %d • missed %d • dropped blocks %d",
			snap.NoiseTicks, snap.MissedBeats, snap.Overruns)))
		sb.WriteString("\n")
	}

	return sb.String()
}

func renderLock(snap *pipeline.Snapshot) string {
	if snap.DeviceFailure {
		return noSignalStyle.Render("DEVICE LOST")
	}
	switch snap.Lock {
	case pipeline.LockLocked:
		return lockedStyle.Render("LOCKED")
	case pipeline.LockAcquiring:
		return acquireStyle.Render("ACQUIRING")
	default:
		return noSignalStyle.Render("NO SIGNAL")
	}
}

func renderRate(rate float64, valid bool) string {
	if !valid {
		return "--- s/d"
	}
	return highlightStyle.Render(fmt.Sprintf("%+.1f s/d", rate))
}

// renderLevel draws the envelope as a bar with the detection threshold
// marked, both scaled against the larger of the two.
func renderLevel(envelope, threshold float64) string {
	const width = 30
	scale := envelope
	if threshold > scale {
		scale = threshold
	}
	if scale <= 0 {
		return strings.Repeat("░", width)
	}

	filled := int(envelope / scale * width)
	mark := int(threshold / scale * (width - 1))
	var sb strings.Builder
	for i := 0; i < width; i++ {
		switch {
		case i == mark:
			sb.WriteString("|")
		case i < filled:
			sb.WriteString("█")
		default:
			sb.WriteString("░")
		}
	}
	return sb.String()
}

// StartMetricsUI runs the dashboard until the user quits.
func StartMetricsUI(device string, source func() *pipeline.Snapshot, controls Controls) error {
	p := tea.NewProgram(
		NewMetricsModel(device, source, controls),
		tea.WithAltScreen(),
	)
	_, err := p.Run()
	return err
}
