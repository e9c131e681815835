// Package schedule provides cancellable delayed callbacks.
//
// The canvas uses them for two things only: closing the history throttle
// window and showing hover tooltips. Both must be cancellable so that a newer
// event can supersede a pending callback. [Real] runs callbacks on timer
// goroutines, [Posted] hands them to a host event loop, and [Manual] lets
// tests advance a fake clock.
package schedule

import (
	"slices"
	"sync"
	"sync/atomic"
	"time"
)

// Timer is a pending callback.
type Timer interface {
	// Stop cancels the callback. It reports whether the call prevented the
	// callback from running.
	Stop() bool
}

// Scheduler runs f once after d.
type Scheduler interface {
	AfterFunc(d time.Duration, f func()) Timer
}

// Real schedules callbacks with [time.AfterFunc]. Callbacks run on their own
// goroutine.
type Real struct{}

// AfterFunc implements [Scheduler].
func (Real) AfterFunc(d time.Duration, f func()) Timer { return time.AfterFunc(d, f) }

// Posted schedules callbacks on a real timer but delivers them through Post,
// typically a function that injects a message into a single-threaded UI loop
// (bubbletea's Program.Send). A Stop that wins the race against the timer
// also suppresses an already posted but not yet executed callback.
type Posted struct {
	Post func(func())
}

// AfterFunc implements [Scheduler].
func (p Posted) AfterFunc(d time.Duration, f func()) Timer {
	t := &postedTimer{}
	t.timer = time.AfterFunc(d, func() {
		p.Post(func() {
			if t.cancelled.CompareAndSwap(false, true) {
				f()
			}
		})
	})
	return t
}

type postedTimer struct {
	timer     *time.Timer
	cancelled atomic.Bool
}

func (t *postedTimer) Stop() bool {
	t.timer.Stop()
	return t.cancelled.CompareAndSwap(false, true)
}

// Manual is a fake clock for tests. Callbacks run synchronously inside
// [Manual.Advance], in deadline order.
type Manual struct {
	mu      sync.Mutex
	now     time.Duration
	seq     int
	pending []*manualTimer
}

// NewManual returns a fake clock at time zero.
func NewManual() *Manual { return &Manual{} }

type manualTimer struct {
	m    *Manual
	at   time.Duration
	seq  int
	f    func()
	done bool
}

// AfterFunc implements [Scheduler].
func (m *Manual) AfterFunc(d time.Duration, f func()) Timer {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	t := &manualTimer{m: m, at: m.now + d, seq: m.seq, f: f}
	m.pending = append(m.pending, t)
	return t
}

func (t *manualTimer) Stop() bool {
	t.m.mu.Lock()
	defer t.m.mu.Unlock()
	if t.done {
		return false
	}
	t.done = true
	t.m.pending = slices.DeleteFunc(t.m.pending, func(p *manualTimer) bool { return p == t })
	return true
}

// Advance moves the clock forward by d and runs every callback that became
// due, including callbacks scheduled by callbacks within the window.
func (m *Manual) Advance(d time.Duration) {
	m.mu.Lock()
	target := m.now + d
	m.mu.Unlock()

	for {
		m.mu.Lock()
		next := m.nextDue(target)
		if next == nil {
			m.now = target
			m.mu.Unlock()
			return
		}
		next.done = true
		m.now = next.at
		m.pending = slices.DeleteFunc(m.pending, func(p *manualTimer) bool { return p == next })
		m.mu.Unlock()

		next.f()
	}
}

// Pending returns the number of scheduled, not yet fired callbacks.
func (m *Manual) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.pending)
}

func (m *Manual) nextDue(target time.Duration) *manualTimer {
	var best *manualTimer
	for _, t := range m.pending {
		if t.at > target {
			continue
		}
		if best == nil || t.at < best.at || (t.at == best.at && t.seq < best.seq) {
			best = t
		}
	}
	return best
}
