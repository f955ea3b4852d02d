package timer

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func TestRemainingTracksElapsedTime(t *testing.T) {
	clock := newFakeClock()
	tm := New(60*time.Second, WithClock(clock.Now), WithTickInterval(time.Hour))
	defer tm.Stop()

	tm.Start()
	clock.Advance(10 * time.Second)
	if got := tm.Remaining(); got != 50*time.Second {
		t.Fatalf("expected 50s remaining, got %v", got)
	}
}

func TestPauseResumeIgnoresPausedDuration(t *testing.T) {
	clock := newFakeClock()
	tm := New(60*time.Second, WithClock(clock.Now), WithTickInterval(time.Hour))
	defer tm.Stop()

	tm.Start()
	clock.Advance(10 * time.Second)
	tm.Pause()
	if tm.State() != Paused {
		t.Fatalf("expected paused, got %s", tm.State())
	}

	clock.Advance(5 * time.Minute)
	if got := tm.Remaining(); got != 50*time.Second {
		t.Fatalf("pause leaked time: %v", got)
	}

	if !tm.Resume() {
		t.Fatalf("expected resume to restart timer")
	}
	clock.Advance(5 * time.Second)
	if got := tm.Remaining(); got != 45*time.Second {
		t.Fatalf("expected 45s after resume, got %v", got)
	}
}

func TestStartWhileRunningIsNoop(t *testing.T) {
	clock := newFakeClock()
	tm := New(time.Minute, WithClock(clock.Now), WithTickInterval(time.Hour))
	defer tm.Stop()

	if !tm.Start() {
		t.Fatalf("first start should succeed")
	}
	clock.Advance(20 * time.Second)
	if tm.Start() {
		t.Fatalf("second start should be a no-op")
	}
	if got := tm.Remaining(); got != 40*time.Second {
		t.Fatalf("start reset the countdown: %v", got)
	}
}

func TestAddTimeKeepsRunState(t *testing.T) {
	clock := newFakeClock()
	tm := New(time.Minute, WithClock(clock.Now), WithTickInterval(time.Hour))
	defer tm.Stop()

	tm.AddTime(15 * time.Second)
	if tm.State() != Stopped || tm.Remaining() != 75*time.Second {
		t.Fatalf("unexpected state after add on stopped timer: %s %v", tm.State(), tm.Remaining())
	}

	tm.Start()
	clock.Advance(5 * time.Second)
	tm.AddTime(-30 * time.Second)
	if tm.State() != Running {
		t.Fatalf("add time changed run state to %s", tm.State())
	}
	if got := tm.Remaining(); got != 40*time.Second {
		t.Fatalf("expected 40s remaining, got %v", got)
	}
}

func TestAddTimeClampsAtZero(t *testing.T) {
	tm := New(time.Minute, WithTickInterval(time.Hour))
	tm.AddTime(-2 * time.Minute)
	if got := tm.Remaining(); got != 0 {
		t.Fatalf("expected remaining clamped to zero, got %v", got)
	}
}

func TestExpiresExactlyOnceAndStopsTicking(t *testing.T) {
	var expirations, ticks int32
	done := make(chan struct{})
	tm := New(60*time.Millisecond,
		WithTickInterval(10*time.Millisecond),
		OnTick(func(time.Duration) { atomic.AddInt32(&ticks, 1) }),
		OnExpire(func() {
			if atomic.AddInt32(&expirations, 1) == 1 {
				close(done)
			}
		}),
	)
	tm.Start()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("timer never expired")
	}

	ticksAtExpiry := atomic.LoadInt32(&ticks)
	time.Sleep(50 * time.Millisecond)

	if n := atomic.LoadInt32(&expirations); n != 1 {
		t.Fatalf("expected one expiry, got %d", n)
	}
	if atomic.LoadInt32(&ticks) != ticksAtExpiry {
		t.Fatalf("timer kept ticking after expiry")
	}
	if tm.State() != Expired || tm.Remaining() != 0 {
		t.Fatalf("expected expired with zero remaining, got %s %v", tm.State(), tm.Remaining())
	}
	if tm.Start() {
		t.Fatalf("expired timer must not restart without reset")
	}
}

func TestExpiryLandsNearNominalDuration(t *testing.T) {
	const nominal = 300 * time.Millisecond
	expired := make(chan time.Time, 1)
	tm := New(nominal,
		WithTickInterval(25*time.Millisecond),
		OnExpire(func() { expired <- time.Now() }),
	)
	start := time.Now()
	tm.Start()

	select {
	case at := <-expired:
		elapsed := at.Sub(start)
		if elapsed < nominal || elapsed > nominal+150*time.Millisecond {
			t.Fatalf("expiry drifted: %v", elapsed)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("timer never expired")
	}
}

func TestStopFromExpireCallbackDoesNotDeadlock(t *testing.T) {
	done := make(chan struct{})
	var tm *Timer
	tm = New(20*time.Millisecond,
		WithTickInterval(5*time.Millisecond),
		OnExpire(func() {
			tm.Stop()
			close(done)
		}),
	)
	tm.Start()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("stop inside expire callback blocked")
	}
}

func TestResetRestoresDuration(t *testing.T) {
	clock := newFakeClock()
	tm := New(time.Minute, WithClock(clock.Now), WithTickInterval(time.Hour))
	defer tm.Stop()

	tm.Start()
	clock.Advance(30 * time.Second)
	tm.Reset(0)
	if tm.State() != Stopped || tm.Remaining() != time.Minute {
		t.Fatalf("reset did not restore: %s %v", tm.State(), tm.Remaining())
	}

	tm.Reset(2 * time.Minute)
	if tm.Remaining() != 2*time.Minute || tm.Duration() != 2*time.Minute {
		t.Fatalf("reset with new duration failed: %v", tm.Remaining())
	}
}
