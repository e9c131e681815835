// Package history implements a throttled snapshot undo/redo stack.
//
// A [Manager] keeps three things: past snapshots, the present snapshot and
// future snapshots. [Manager.Set] replaces the present; bursts of sets that
// arrive within the throttle window collapse into a single undo entry that
// lands once the window has been quiet for its full length or when a forced
// set arrives (typically on pointer-up).
//
// Snapshots must implement [Snapshot]. Equal suppresses no-op entries and
// Clone keeps the stored snapshots independent of the caller's values.
package history

import (
	"sync"
	"time"

	"github.com/matzehuels/causalcanvas/pkg/observability"
	"github.com/matzehuels/causalcanvas/pkg/schedule"
)

// DefaultThrottle is the quiet period after which a burst of sets commits.
const DefaultThrottle = 500 * time.Millisecond

// Snapshot is the constraint for values held in a [Manager].
type Snapshot[T any] interface {
	Equal(T) bool
	Clone() T
}

// Option configures a [Manager].
type Option func(*options)

type options struct {
	throttle  time.Duration
	scheduler schedule.Scheduler
	limit     int
}

// WithThrottle sets the throttle window. Zero or negative commits every set
// immediately.
func WithThrottle(d time.Duration) Option { return func(o *options) { o.throttle = d } }

// WithScheduler replaces the timer source (default [schedule.Real]).
func WithScheduler(s schedule.Scheduler) Option { return func(o *options) { o.scheduler = s } }

// WithLimit caps the number of undo entries. Zero means unlimited.
func WithLimit(n int) Option { return func(o *options) { o.limit = n } }

// Manager is safe for concurrent use; throttle callbacks may fire on another
// goroutine when the scheduler is [schedule.Real].
type Manager[T Snapshot[T]] struct {
	mu      sync.Mutex
	opts    options
	past    []T
	present T
	future  []T

	// checkpoint is the present as it was before the current burst.
	checkpoint T
	pending    bool
	timer      schedule.Timer
	gen        uint64
}

// New returns a manager whose present is initial and whose stacks are empty.
func New[T Snapshot[T]](initial T, opts ...Option) *Manager[T] {
	o := options{throttle: DefaultThrottle, scheduler: schedule.Real{}}
	for _, opt := range opts {
		opt(&o)
	}
	return &Manager[T]{opts: o, present: initial.Clone()}
}

// Present returns a copy of the current state.
func (m *Manager[T]) Present() T {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.present.Clone()
}

// Set replaces the present with v and reports whether anything changed.
//
// A v equal to the present is a no-op, except that a forced call still
// closes a pending burst. Any effective set clears the redo stack. The first
// set of a burst remembers the previous present; the burst is committed as
// one undo entry when force is true or when the throttle window elapses
// without another set.
func (m *Manager[T]) Set(v T, force bool) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if v.Equal(m.present) {
		if force {
			m.commitLocked()
		}
		return false
	}

	m.future = nil
	if !m.pending {
		m.checkpoint = m.present
		m.pending = true
	}
	m.present = v.Clone()

	if force || m.opts.throttle <= 0 {
		m.commitLocked()
		return true
	}
	m.armLocked()
	return true
}

// Flush commits a pending burst immediately.
func (m *Manager[T]) Flush() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.commitLocked()
}

// Undo steps back one entry. A pending burst is committed first so that it
// is the entry being undone. Reports false if there is nothing to undo.
func (m *Manager[T]) Undo() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.commitLocked()
	if len(m.past) == 0 {
		return false
	}
	last := len(m.past) - 1
	m.future = append(m.future, m.present)
	m.present = m.past[last]
	m.past = m.past[:last]
	observability.History().OnUndo(len(m.past))
	return true
}

// Redo re-applies the most recently undone entry. Reports false if there is
// nothing to redo.
func (m *Manager[T]) Redo() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.commitLocked()
	if len(m.future) == 0 {
		return false
	}
	last := len(m.future) - 1
	m.past = append(m.past, m.present)
	m.present = m.future[last]
	m.future = m.future[:last]
	observability.History().OnRedo(len(m.past))
	return true
}

// Reset discards both stacks and any pending burst and sets the present.
func (m *Manager[T]) Reset(v T) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stopLocked()
	var zero T
	m.past, m.future = nil, nil
	m.checkpoint, m.pending = zero, false
	m.present = v.Clone()
}

// CanUndo reports whether [Manager.Undo] would do anything.
func (m *Manager[T]) CanUndo() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.past) > 0 || (m.pending && !m.checkpoint.Equal(m.present))
}

// CanRedo reports whether [Manager.Redo] would do anything.
func (m *Manager[T]) CanRedo() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.future) > 0
}

// Depth returns the number of undo and redo entries, counting a pending
// burst as committed.
func (m *Manager[T]) Depth() (undo, redo int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	undo = len(m.past)
	if m.pending && !m.checkpoint.Equal(m.present) {
		undo++
	}
	return undo, len(m.future)
}

func (m *Manager[T]) armLocked() {
	m.stopLocked()
	m.gen++
	gen := m.gen
	m.timer = m.opts.scheduler.AfterFunc(m.opts.throttle, func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		if m.gen == gen {
			m.commitLocked()
		}
	})
}

func (m *Manager[T]) stopLocked() {
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
	m.gen++
}

func (m *Manager[T]) commitLocked() {
	if !m.pending {
		return
	}
	m.stopLocked()
	m.pending = false
	cp := m.checkpoint
	var zero T
	m.checkpoint = zero
	if cp.Equal(m.present) {
		return
	}
	m.past = append(m.past, cp)
	if m.opts.limit > 0 && len(m.past) > m.opts.limit {
		m.past = m.past[len(m.past)-m.opts.limit:]
	}
	observability.History().OnCommit(len(m.past))
}
