package usecase

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestRefreshSchedulerArmsOnlyWhileRecording(t *testing.T) {
	t.Parallel()

	tickers := &manualTickers{}
	scheduler := NewRefreshScheduler(func() {})
	scheduler.newTicker = tickers.new

	scheduler.Sync(false, 5*time.Second)
	if scheduler.State() != SchedulerIdle || tickers.count() != 0 {
		t.Fatalf("scheduler must stay idle when not recording")
	}

	scheduler.Sync(true, 0)
	if scheduler.State() != SchedulerIdle {
		t.Fatalf("scheduler must stay idle without an interval")
	}

	scheduler.Sync(true, 5*time.Second)
	if scheduler.State() != SchedulerArmed || scheduler.Interval() != 5*time.Second {
		t.Fatalf("expected armed at 5s, got %s %s", scheduler.State(), scheduler.Interval())
	}

	scheduler.Sync(false, 5*time.Second)
	if scheduler.State() != SchedulerIdle {
		t.Fatalf("expected idle after recording stopped")
	}
	if !tickers.get(0).stopped.Load() {
		t.Fatalf("ticker was not stopped")
	}
}

func TestRefreshSchedulerRearmsOnIntervalChange(t *testing.T) {
	t.Parallel()

	tickers := &manualTickers{}
	scheduler := NewRefreshScheduler(func() {})
	scheduler.newTicker = tickers.new

	scheduler.Sync(true, 20*time.Second)
	scheduler.Sync(true, 10*time.Second)
	defer scheduler.Cancel()

	if tickers.count() != 2 {
		t.Fatalf("expected two tickers, got %d", tickers.count())
	}
	if !tickers.get(0).stopped.Load() {
		t.Fatalf("previous ticker still alive after re-arm")
	}
	if tickers.get(1).stopped.Load() || tickers.get(1).interval != 10*time.Second {
		t.Fatalf("expected live 10s ticker, got %+v", tickers.get(1))
	}
	if scheduler.Interval() != 10*time.Second {
		t.Fatalf("unexpected interval %s", scheduler.Interval())
	}
}

func TestRefreshSchedulerFiresOncePerTick(t *testing.T) {
	t.Parallel()

	var fired atomic.Int32
	tickers := &manualTickers{}
	scheduler := NewRefreshScheduler(func() { fired.Add(1) })
	scheduler.newTicker = tickers.new

	scheduler.Sync(true, time.Second)
	ticker := tickers.get(0)
	ticker.tick()
	ticker.tick()
	ticker.tick()
	scheduler.Cancel()

	if got := fired.Load(); got != 3 {
		t.Fatalf("expected 3 fires, got %d", got)
	}
}

func TestRefreshSchedulerCancelIsIdempotent(t *testing.T) {
	t.Parallel()

	scheduler := NewRefreshScheduler(func() {})
	scheduler.newTicker = (&manualTickers{}).new
	scheduler.Cancel()
	scheduler.Sync(true, time.Second)
	scheduler.Cancel()
	scheduler.Cancel()
	if scheduler.State() != SchedulerIdle {
		t.Fatalf("expected idle")
	}
}

type manualTickers struct {
	mu      sync.Mutex
	tickers []*manualTicker
}

func (m *manualTickers) new(interval time.Duration) Ticker {
	m.mu.Lock()
	defer m.mu.Unlock()
	ticker := &manualTicker{c: make(chan time.Time), interval: interval}
	m.tickers = append(m.tickers, ticker)
	return ticker
}

func (m *manualTickers) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.tickers)
}

func (m *manualTickers) get(i int) *manualTicker {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tickers[i]
}

func (m *manualTickers) last() *manualTicker {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tickers[len(m.tickers)-1]
}

type manualTicker struct {
	c        chan time.Time
	interval time.Duration
	stopped  atomic.Bool
}

func (t *manualTicker) C() <-chan time.Time { return t.c }
func (t *manualTicker) Stop()               { t.stopped.Store(true) }

// tick blocks until the scheduler loop has received the tick.
func (t *manualTicker) tick() {
	t.c <- time.Now()
}
