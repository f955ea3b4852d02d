// Package timer implements the countdown that bounds a quiz session.
//
// Remaining time is derived from an explicit state (running, paused, stopped
// or expired), a remaining snapshot and the instant that snapshot was taken,
// so ticks never accumulate drift and pause/resume is plain arithmetic.
package timer

import (
	"sync"
	"time"
)

// State is the run state of a Timer.
type State string

const (
	Stopped State = "stopped"
	Running State = "running"
	Paused  State = "paused"
	Expired State = "expired"
)

// DefaultTickInterval is how often a running timer reports its remaining time.
const DefaultTickInterval = time.Second

// Option configures a Timer.
type Option func(*Timer)

// WithClock replaces time.Now, for deterministic tests.
func WithClock(now func() time.Time) Option {
	return func(t *Timer) { t.now = now }
}

// WithTickInterval sets the tick period.
func WithTickInterval(d time.Duration) Option {
	return func(t *Timer) {
		if d > 0 {
			t.interval = d
		}
	}
}

// OnTick registers the callback invoked with the remaining time on every tick.
func OnTick(fn func(remaining time.Duration)) Option {
	return func(t *Timer) { t.onTick = fn }
}

// OnExpire registers the callback invoked once when remaining time reaches zero.
func OnExpire(fn func()) Option {
	return func(t *Timer) { t.onExpire = fn }
}

// Timer counts down from a configured duration. Callbacks run on the timer's
// own goroutine and never while its lock is held.
type Timer struct {
	mu        sync.Mutex
	now       func() time.Time
	interval  time.Duration
	duration  time.Duration
	state     State
	remaining time.Duration
	anchor    time.Time
	cancel    chan struct{}
	onTick    func(time.Duration)
	onExpire  func()
}

// New returns a stopped timer holding the full duration.
func New(duration time.Duration, opts ...Option) *Timer {
	if duration < 0 {
		duration = 0
	}
	t := &Timer{
		now:       time.Now,
		interval:  DefaultTickInterval,
		duration:  duration,
		state:     Stopped,
		remaining: duration,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// remainingAt is the pure countdown function over the timer's state.
func remainingAt(state State, remaining time.Duration, anchor, now time.Time) time.Duration {
	if state != Running {
		return remaining
	}
	left := remaining - now.Sub(anchor)
	if left < 0 {
		return 0
	}
	return left
}

// Start begins or continues counting down. It reports whether the timer was
// started; starting a running or expired timer is a no-op.
func (t *Timer) Start() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state == Running || t.state == Expired {
		return false
	}
	t.state = Running
	t.anchor = t.now()
	t.cancel = make(chan struct{})
	go t.run(t.cancel, t.nextWaitLocked())
	return true
}

// Resume continues a paused timer from its frozen remaining time.
func (t *Timer) Resume() bool {
	return t.Start()
}

// Pause freezes the remaining time and stops the countdown.
func (t *Timer) Pause() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state != Running {
		return
	}
	t.remaining = remainingAt(t.state, t.remaining, t.anchor, t.now())
	t.state = Paused
	t.stopLocked()
}

// Stop halts the countdown without blocking, keeping the remaining time.
// It is safe to call from an OnExpire or OnTick callback.
func (t *Timer) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state == Running {
		t.remaining = remainingAt(t.state, t.remaining, t.anchor, t.now())
	}
	if t.state != Expired {
		t.state = Stopped
	}
	t.stopLocked()
}

// Reset stops the timer and reinitialises it. A non-positive duration keeps
// the previously configured one.
func (t *Timer) Reset(duration time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if duration > 0 {
		t.duration = duration
	}
	t.stopLocked()
	t.state = Stopped
	t.remaining = t.duration
}

// AddTime adjusts the remaining time without changing the run state.
// Negative values subtract; the result never drops below zero.
func (t *Timer) AddTime(d time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state == Expired {
		return
	}
	now := t.now()
	left := remainingAt(t.state, t.remaining, t.anchor, now) + d
	if left < 0 {
		left = 0
	}
	t.remaining = left
	if t.state == Running {
		t.anchor = now
		// reschedule so the new deadline is honoured
		t.stopLocked()
		t.cancel = make(chan struct{})
		go t.run(t.cancel, t.nextWaitLocked())
	}
}

// Remaining returns the time left.
func (t *Timer) Remaining() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	return remainingAt(t.state, t.remaining, t.anchor, t.now())
}

// State returns the current run state.
func (t *Timer) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Duration returns the configured duration.
func (t *Timer) Duration() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.duration
}

func (t *Timer) stopLocked() {
	if t.cancel != nil {
		close(t.cancel)
		t.cancel = nil
	}
}

func (t *Timer) nextWaitLocked() time.Duration {
	left := remainingAt(t.state, t.remaining, t.anchor, t.now())
	if left < t.interval {
		return left
	}
	return t.interval
}

func (t *Timer) run(cancel chan struct{}, wait time.Duration) {
	wake := time.NewTimer(wait)
	defer wake.Stop()
	for {
		select {
		case <-cancel:
			return
		case <-wake.C:
			next, ok := t.tick(cancel)
			if !ok {
				return
			}
			wake.Reset(next)
		}
	}
}

// tick publishes the remaining time, or expires the timer when it hits zero.
// It returns the next wait and whether the loop should continue.
func (t *Timer) tick(cancel chan struct{}) (time.Duration, bool) {
	t.mu.Lock()
	if t.cancel != cancel || t.state != Running {
		t.mu.Unlock()
		return 0, false
	}
	now := t.now()
	left := remainingAt(t.state, t.remaining, t.anchor, now)
	if left <= 0 {
		t.remaining = 0
		t.state = Expired
		t.stopLocked()
		onExpire := t.onExpire
		t.mu.Unlock()
		if onExpire != nil {
			onExpire()
		}
		return 0, false
	}
	t.remaining = left
	t.anchor = now
	next := t.nextWaitLocked()
	onTick := t.onTick
	t.mu.Unlock()
	if onTick != nil {
		onTick(left)
	}
	return next, true
}
