// Package notify holds transient user-facing messages that expire on their
// own after a fixed lifetime.
package notify

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// DefaultLifetime is how long a notification stays visible.
const DefaultLifetime = 5000 * time.Millisecond

// Kind selects how a notification is rendered.
type Kind string

const (
	KindSuccess Kind = "success"
	KindError   Kind = "error"
)

// ID identifies a notification. IDs are time based (Unix milliseconds) and
// strictly increasing within a queue even for pushes in the same millisecond.
type ID int64

// Notification is a single toast.
type Notification struct {
	ID        ID
	Message   string
	Kind      Kind
	CreatedAt time.Time
}

// Option configures a Queue.
type Option func(*Queue)

// WithLifetime overrides DefaultLifetime.
func WithLifetime(d time.Duration) Option {
	return func(q *Queue) { q.lifetime = d }
}

// WithMaxLen caps the queue, evicting the oldest entries first.
// Zero (the default) leaves it unbounded.
func WithMaxLen(n int) Option {
	return func(q *Queue) { q.maxLen = n }
}

// WithOnChange registers a callback invoked with a snapshot after every
// mutation. It runs outside the queue lock.
func WithOnChange(fn func([]Notification)) Option {
	return func(q *Queue) { q.onChange = fn }
}

// Queue is safe for concurrent use. Entries are kept in insertion order.
type Queue struct {
	clock    clockwork.Clock
	lifetime time.Duration
	maxLen   int
	onChange func([]Notification)

	mu      sync.Mutex
	items   []Notification
	timers  map[ID]clockwork.Timer
	lastID  ID
	stopped bool
}

// New creates an empty queue driven by clock.
func New(clock clockwork.Clock, opts ...Option) *Queue {
	q := &Queue{
		clock:    clock,
		lifetime: DefaultLifetime,
		timers:   make(map[ID]clockwork.Timer),
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// Push appends a notification and schedules its removal.
func (q *Queue) Push(message string, kind Kind) ID {
	q.mu.Lock()

	now := q.clock.Now()
	id := ID(now.UnixMilli())
	if id <= q.lastID {
		id = q.lastID + 1
	}
	q.lastID = id

	q.items = append(q.items, Notification{ID: id, Message: message, Kind: kind, CreatedAt: now})
	if !q.stopped {
		q.timers[id] = q.clock.AfterFunc(q.lifetime, func() { q.remove(id) })
	}

	for q.maxLen > 0 && len(q.items) > q.maxLen {
		q.dropLocked(q.items[0].ID)
	}

	snapshot := q.snapshotLocked()
	q.mu.Unlock()

	q.notify(snapshot)
	return id
}

// Dismiss removes id immediately and cancels its expiry. Unknown or already
// expired ids are ignored.
func (q *Queue) Dismiss(id ID) {
	q.remove(id)
}

// Items returns the live notifications, oldest first.
func (q *Queue) Items() []Notification {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.snapshotLocked()
}

// Len returns the number of live notifications.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Clear drops every notification and cancels all timers. The queue stays usable.
func (q *Queue) Clear() {
	q.mu.Lock()
	for id, t := range q.timers {
		t.Stop()
		delete(q.timers, id)
	}
	changed := len(q.items) > 0
	q.items = nil
	q.mu.Unlock()

	if changed {
		q.notify(nil)
	}
}

// Close cancels all pending expiries. Pushes after Close are kept until
// dismissed; no new timers are started.
func (q *Queue) Close() {
	q.mu.Lock()
	q.stopped = true
	for id, t := range q.timers {
		t.Stop()
		delete(q.timers, id)
	}
	q.mu.Unlock()
}

func (q *Queue) remove(id ID) {
	q.mu.Lock()
	if !q.dropLocked(id) {
		q.mu.Unlock()
		return
	}
	snapshot := q.snapshotLocked()
	q.mu.Unlock()

	q.notify(snapshot)
}

// dropLocked removes id and stops its timer. It reports whether id was live.
func (q *Queue) dropLocked(id ID) bool {
	if t, ok := q.timers[id]; ok {
		t.Stop()
		delete(q.timers, id)
	}
	for i, n := range q.items {
		if n.ID == id {
			q.items = append(q.items[:i], q.items[i+1:]...)
			return true
		}
	}
	return false
}

func (q *Queue) snapshotLocked() []Notification {
	out := make([]Notification, len(q.items))
	copy(out, q.items)
	return out
}

func (q *Queue) notify(snapshot []Notification) {
	if q.onChange != nil {
		q.onChange(snapshot)
	}
}
