package usecase

import (
	"sync"
	"time"
)

// SchedulerState is the RefreshScheduler lifecycle.
type SchedulerState string

const (
	SchedulerIdle  SchedulerState = "idle"
	SchedulerArmed SchedulerState = "armed"
)

// Ticker is the part of time.Ticker the scheduler needs.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

type timeTicker struct {
	*time.Ticker
}

func (t timeTicker) C() <-chan time.Time {
	return t.Ticker.C
}

func newTimeTicker(d time.Duration) Ticker {
	return timeTicker{time.NewTicker(d)}
}

// RefreshScheduler keeps at most one repeating ticker alive and calls fire on every tick.
// fire runs on the ticker goroutine and must hand long work off.
type RefreshScheduler struct {
	fire      func()
	newTicker func(time.Duration) Ticker

	mu       sync.Mutex
	interval time.Duration
	stop     chan struct{}
	done     chan struct{}
}

func NewRefreshScheduler(fire func()) *RefreshScheduler {
	return &RefreshScheduler{fire: fire, newTicker: newTimeTicker}
}

// Sync cancels the running ticker and re-arms it when recording with a positive interval.
// Every state change (recording toggled, interval changed) goes through here.
func (s *RefreshScheduler) Sync(recording bool, interval time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cancelLocked()
	if !recording || interval <= 0 {
		return
	}

	ticker := s.newTicker(interval)
	s.interval = interval
	s.stop = make(chan struct{})
	s.done = make(chan struct{})
	go s.loop(ticker, s.stop, s.done)
}

// Cancel moves the scheduler to idle.
func (s *RefreshScheduler) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancelLocked()
}

func (s *RefreshScheduler) State() SchedulerState {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stop == nil {
		return SchedulerIdle
	}
	return SchedulerArmed
}

// Interval is the period of the armed ticker, or zero when idle.
func (s *RefreshScheduler) Interval() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.interval
}

func (s *RefreshScheduler) cancelLocked() {
	if s.stop == nil {
		return
	}
	close(s.stop)
	<-s.done
	s.stop = nil
	s.done = nil
	s.interval = 0
}

func (s *RefreshScheduler) loop(ticker Ticker, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C():
			select {
			case <-stop:
				return
			default:
			}
			s.fire()
		}
	}
}
