package tui

import (
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"remommender/internal/domain"
)

// EventBridge turns engine events into bubbletea messages. The model reads one message
// per waitForEvent command, so events are delivered in emission order.
type EventBridge struct {
	events chan tea.Msg
	done   chan struct{}
	once   sync.Once
}

func NewEventBridge(buffer int) *EventBridge {
	if buffer <= 0 {
		buffer = 64
	}
	return &EventBridge{
		events: make(chan tea.Msg, buffer),
		done:   make(chan struct{}),
	}
}

func (b *EventBridge) SessionStateChanged(state domain.SessionState, reason domain.SessionStateReason) {
	b.send(SessionStateMsg{State: state, Reason: reason})
}

func (b *EventBridge) RecommendationReceived(result domain.RefreshResult, outcome domain.ReconcileOutcome) {
	b.send(RecommendationMsg{Result: result, Outcome: outcome})
}

func (b *EventBridge) PlaybackChanged(target domain.PlaybackTarget) {
	b.send(PlaybackMsg{Target: target})
}

func (b *EventBridge) SessionError(code domain.ErrorCode, detail string) {
	b.send(SessionErrorMsg{Code: code, Detail: detail})
}

// Close stops delivery. Events emitted afterwards are dropped.
func (b *EventBridge) Close() {
	b.once.Do(func() { close(b.done) })
}

func (b *EventBridge) send(msg tea.Msg) {
	select {
	case b.events <- msg:
	case <-b.done:
	}
}

// waitForEvent blocks until the next engine event.
func waitForEvent(b *EventBridge) tea.Cmd {
	return func() tea.Msg {
		select {
		case msg := <-b.events:
			return msg
		case <-b.done:
			return bridgeClosedMsg{}
		}
	}
}
