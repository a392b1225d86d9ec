package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	tea "github.com/charmbracelet/bubbletea"

	"remommender/internal/domain"
)

// Controller is the slice of the recorder the TUI drives.
type Controller interface {
	Toggle(ctx context.Context) error
	Status() domain.Status
	Settings() domain.RecommendationSettings
	UpdateSettings(ctx context.Context, next domain.RecommendationSettings) error
	ClearListeningSession(ctx context.Context) error
	Playback() domain.PlaybackTarget
	NextTrack() bool
	PreviousTrack() bool
}

const (
	weightStep     = 0.1
	transientAfter = 5 * time.Second
)

// Model is the root bubbletea model for the recorder TUI.
type Model struct {
	ctx        context.Context
	controller Controller
	events     *EventBridge

	status   domain.Status
	reason   domain.SessionStateReason
	settings domain.RecommendationSettings
	playback domain.PlaybackTarget

	lastResult  *domain.RefreshResult
	lastOutcome domain.ReconcileOutcome
	refreshes   int

	errorMessage   string
	errorTransient bool

	width  int
	height int
}

// New creates a Model bound to controller. Engine events arrive through events.
func New(ctx context.Context, controller Controller, events *EventBridge) Model {
	return Model{
		ctx:        ctx,
		controller: controller,
		events:     events,
		status:     controller.Status(),
		reason:     domain.SessionReasonNotRecording,
		settings:   controller.Settings(),
		playback:   controller.Playback(),
	}
}

func (m Model) Init() tea.Cmd {
	return waitForEvent(m.events)
}

// Update processes messages and returns the updated model and any commands.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case SessionStateMsg:
		m.status = m.controller.Status()
		m.status.State = msg.State
		m.reason = msg.Reason
		if msg.State == domain.SessionStateRecording {
			m.clearError()
		}
		return m, waitForEvent(m.events)

	case RecommendationMsg:
		result := msg.Result
		m.lastResult = &result
		m.lastOutcome = msg.Outcome
		m.refreshes++
		return m, waitForEvent(m.events)

	case PlaybackMsg:
		m.playback = msg.Target
		return m, waitForEvent(m.events)

	case SessionErrorMsg:
		m.errorMessage = fmt.Sprintf("%s: %s", msg.Code, msg.Detail)
		m.errorTransient = msg.Code != domain.ErrorCodePermission && msg.Code != domain.ErrorCodeDevice
		cmds := []tea.Cmd{waitForEvent(m.events)}
		if m.errorTransient {
			cmds = append(cmds, clearTransientErrorCmd())
		}
		return m, tea.Batch(cmds...)

	case CommandResultMsg:
		m.status = msg.Status
		if msg.Err != nil {
			m.errorMessage = fmt.Sprintf("%s failed: %v", msg.Action, msg.Err)
			m.errorTransient = true
			return m, clearTransientErrorCmd()
		}
		return m, nil

	case SettingsAppliedMsg:
		m.settings = msg.Settings
		if msg.Err != nil {
			m.errorMessage = fmt.Sprintf("settings rejected: %v", msg.Err)
			m.errorTransient = true
			return m, clearTransientErrorCmd()
		}
		return m, nil

	case ClearTransientErrorMsg:
		if m.errorTransient {
			m.clearError()
		}
		return m, nil

	case bridgeClosedMsg:
		return m, nil
	}

	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case KeyQuit, KeyCtrlC:
		return m, tea.Quit

	case KeySpace:
		return m, toggleCmd(m.ctx, m.controller)

	case KeyNext, KeyRight:
		return m, navigateCmd(m.controller.NextTrack)

	case KeyPrevious, KeyLeft:
		return m, navigateCmd(m.controller.PreviousTrack)

	case KeyFaster:
		next := m.settings.Clone()
		next.RefreshInterval = stepInterval(next.RefreshInterval, -1)
		return m, m.applySettings(next)

	case KeySlower:
		next := m.settings.Clone()
		next.RefreshInterval = stepInterval(next.RefreshInterval, 1)
		return m, m.applySettings(next)

	case KeyValenceUp:
		return m, m.applySettings(m.settings.Clone().WithValenceWeight(roundWeight(m.settings.ValenceWeight + weightStep)))

	case KeyArousalUp:
		return m, m.applySettings(m.settings.Clone().WithValenceWeight(roundWeight(m.settings.ValenceWeight - weightStep)))

	case KeyInvertValence:
		next := m.settings.Clone()
		next.InvertValence = !next.InvertValence
		return m, m.applySettings(next)

	case KeyInvertArousal:
		next := m.settings.Clone()
		next.InvertArousal = !next.InvertArousal
		return m, m.applySettings(next)

	case KeyIsolation:
		next := m.settings.Clone()
		next.SessionEnabled = !next.SessionEnabled
		return m, m.applySettings(next)

	case KeyClearSession:
		return m, clearSessionCmd(m.ctx, m.controller)
	}

	return m, nil
}

func (m Model) applySettings(next domain.RecommendationSettings) tea.Cmd {
	return settingsCmd(m.ctx, m.controller, next)
}

func (m *Model) clearError() {
	m.errorMessage = ""
	m.errorTransient = false
}

func toggleCmd(ctx context.Context, c Controller) tea.Cmd {
	return func() tea.Msg {
		err := c.Toggle(ctx)
		return CommandResultMsg{Action: "toggle", Status: c.Status(), Err: err}
	}
}

// navigateCmd moves within the playlist. The resulting playback change arrives as an event.
func navigateCmd(move func() bool) tea.Cmd {
	return func() tea.Msg {
		move()
		return nil
	}
}

func settingsCmd(ctx context.Context, c Controller, next domain.RecommendationSettings) tea.Cmd {
	return func() tea.Msg {
		err := c.UpdateSettings(ctx, next)
		return SettingsAppliedMsg{Settings: c.Settings(), Err: err}
	}
}

func clearSessionCmd(ctx context.Context, c Controller) tea.Cmd {
	return func() tea.Msg {
		err := c.ClearListeningSession(ctx)
		return CommandResultMsg{Action: "clear session", Status: c.Status(), Err: err}
	}
}

// clearTransientErrorCmd fires after a delay to clear transient errors.
func clearTransientErrorCmd() tea.Cmd {
	return tea.Tick(transientAfter, func(time.Time) tea.Msg {
		return ClearTransientErrorMsg{}
	})
}

// stepInterval moves to the neighbouring refresh option, clamping at both ends.
func stepInterval(current time.Duration, dir int) time.Duration {
	options := domain.RefreshOptions
	idx := 0
	for i, option := range options {
		if option <= current {
			idx = i
		}
	}
	idx += dir
	if idx < 0 {
		idx = 0
	}
	if idx >= len(options) {
		idx = len(options) - 1
	}
	return options[idx]
}

func roundWeight(v float64) float64 {
	return float64(int(v*10+0.5)) / 10
}

// View renders the TUI.
func (m Model) View() string {
	var b strings.Builder

	b.WriteString(m.renderHeader())
	b.WriteString("\n")
	b.WriteString(m.divider())
	b.WriteString("\n")
	b.WriteString(m.renderPlayback())
	b.WriteString("\n\n")
	b.WriteString(m.renderLastResult())
	b.WriteString("\n\n")
	b.WriteString(m.renderSettings())
	b.WriteString("\n")
	if m.errorMessage != "" {
		b.WriteString(ErrorTextStyle.Render(m.errorMessage))
		b.WriteString("\n")
	}
	b.WriteString(m.divider())
	b.WriteString("\n")
	b.WriteString(m.renderFooter())

	return b.String()
}

func (m Model) renderHeader() string {
	dot := IdleDotStyle.Render("○")
	state := "Idle"
	switch m.status.State {
	case domain.SessionStateRecording:
		dot = RecordingDotStyle.Render("●")
		state = "Recording"
	case domain.SessionStateError:
		dot = RecordingDotStyle.Render("✕")
		state = "Error"
	}

	parts := []string{TitleStyle.Render("remommender"), dot + " " + state}
	if m.status.Format != "" {
		parts = append(parts, StatusStyle.Render(m.status.Format))
	}
	if m.reason != "" {
		parts = append(parts, StatusStyle.Render(string(m.reason)))
	}
	return strings.Join(parts, "  ")
}

func (m Model) renderPlayback() string {
	song, ok := m.playback.Current()
	if !ok {
		return DimStyle.Render("Nothing playing yet. Press space and start talking.")
	}

	title := SongTitleStyle.Render(song.Title)
	line := title
	if song.Artist != "" {
		line += DimStyle.Render(" by ") + song.Artist
	}
	position := StatusStyle.Render(fmt.Sprintf("[%d/%d]", m.playback.Position+1, len(m.playback.Playlist)))
	return lipgloss.JoinHorizontal(lipgloss.Top, line, "  ", position)
}

func (m Model) renderLastResult() string {
	if m.lastResult == nil {
		return DimStyle.Render("No recommendations received.")
	}

	f := m.lastResult.Features
	badge := DiscardedBadgeStyle.Render(string(m.lastOutcome))
	if m.lastOutcome == domain.OutcomeSwitched {
		badge = SwitchedBadgeStyle.Render(string(m.lastOutcome))
	}
	return fmt.Sprintf("%s  valence %.2f  arousal %.2f  switch %.0f%%  %s",
		SelectedStyle.Render(fmt.Sprintf("#%d", m.refreshes)),
		f.Valence, f.Arousal, m.lastResult.SwitchProbability*100, badge)
}

func (m Model) renderSettings() string {
	s := m.settings
	isolation := "off"
	if s.SessionEnabled {
		isolation = "on"
	}
	return StatusStyle.Render(fmt.Sprintf(
		"refresh %s  valence %.1f%s  arousal %.1f%s  isolation %s",
		s.RefreshInterval, s.ValenceWeight, invertMark(s.InvertValence),
		s.ArousalWeight, invertMark(s.InvertArousal), isolation,
	))
}

func invertMark(inverted bool) string {
	if inverted {
		return " (inv)"
	}
	return ""
}

func (m Model) renderFooter() string {
	keys := []struct{ key, desc string }{
		{"space", "record"},
		{"n/p", "track"},
		{"-/+", "interval"},
		{"v/a", "weights"},
		{"V/A", "invert"},
		{"s", "isolation"},
		{"c", "clear"},
		{"q", "quit"},
	}
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, FooterKeyStyle.Render(k.key)+" "+FooterDescStyle.Render(k.desc))
	}
	return strings.Join(parts, "  ")
}

func (m Model) divider() string {
	width := m.width
	if width <= 0 {
		width = 60
	}
	return DividerStyle.Render(strings.Repeat("─", width))
}
