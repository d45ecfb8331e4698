// Package timer provides the cancellable timers the controller owns.
//
// Every Start hands out a generation number. Cancel and Start invalidate the
// previous generation, so a callback that was already in flight when its
// timer was cancelled can be recognised as stale with IsCurrent and dropped.
package timer

import (
	"sync"
	"time"
)

type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Handle
}

type Handle interface {
	Stop() bool
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func (realClock) AfterFunc(d time.Duration, f func()) Handle { return time.AfterFunc(d, f) }

// RealClock is backed by the time package.
func RealClock() Clock { return realClock{} }

type Timer struct {
	name  string
	clock Clock

	mu         sync.Mutex
	handle     Handle
	generation uint64
	deadline   time.Time
}

func New(name string, clock Clock) *Timer {
	if clock == nil {
		clock = RealClock()
	}
	return &Timer{name: name, clock: clock}
}

func (t *Timer) Name() string { return t.name }

// Start (re)arms the timer. fire receives the generation it was armed with.
func (t *Timer) Start(d time.Duration, fire func(generation uint64)) uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.stopLocked()
	t.generation++
	generation := t.generation
	t.deadline = t.clock.Now().Add(d)
	t.handle = t.clock.AfterFunc(d, func() { fire(generation) })
	return generation
}

func (t *Timer) Cancel() {
	if t == nil {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	t.stopLocked()
	t.generation++
}

func (t *Timer) stopLocked() {
	if t.handle != nil {
		t.handle.Stop()
		t.handle = nil
	}
	t.deadline = time.Time{}
}

// IsCurrent reports whether generation belongs to the armed timer. A timer
// that already fired stays current until it is cancelled or restarted.
func (t *Timer) IsCurrent(generation uint64) bool {
	if t == nil {
		return false
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	return t.handle != nil && t.generation == generation
}

// Consume marks a fired generation as handled. It reports false for stale
// generations.
func (t *Timer) Consume(generation uint64) bool {
	if t == nil {
		return false
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.handle == nil || t.generation != generation {
		return false
	}
	t.handle = nil
	t.deadline = time.Time{}
	return true
}

func (t *Timer) Active() bool {
	if t == nil {
		return false
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	return t.handle != nil
}

func (t *Timer) Deadline() (time.Time, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.deadline, t.handle != nil
}
