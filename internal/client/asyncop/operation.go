// Package asyncop tracks the lifecycle of one asynchronous collaborator call
// per operation slot: idle → pending → success|error → idle.
//
// An Operation admits a single run at a time. A second Run while the first
// is pending fails with *apperrors.ConcurrentOperationError and leaves the
// running attempt untouched. Every run settles: errors and panics inside the
// action both end in PhaseError.
package asyncop

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dmitrijs2005/taxbox/internal/client/apperrors"
	"github.com/jonboulle/clockwork"
)

// Phase is the lifecycle stage of an operation.
type Phase int

const (
	PhaseIdle Phase = iota
	PhasePending
	PhaseSuccess
	PhaseError
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhasePending:
		return "pending"
	case PhaseSuccess:
		return "success"
	case PhaseError:
		return "error"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// State is what a view renders. Progress is always within [0,100].
type State struct {
	Phase    Phase
	Progress int
	Error    string
}

// ErrPanicked wraps a panic recovered from an action.
var ErrPanicked = errors.New("operation panicked")

// ProgressFunc reports completion in percent. Values are clamped to
// [0,100]; decreasing values and reports after the run settled are ignored.
type ProgressFunc func(percent int)

// Action is the remote call wrapped by an Operation.
type Action[T any] func(ctx context.Context, report ProgressFunc) (T, error)

type options struct {
	clock    clockwork.Clock
	onChange func(State)
}

// Option configures an Operation.
type Option func(*options)

// WithClock sets the clock used for delayed resets.
func WithClock(c clockwork.Clock) Option {
	return func(o *options) { o.clock = c }
}

// WithOnChange registers a callback run after every state transition and
// progress update, outside the operation lock.
func WithOnChange(fn func(State)) Option {
	return func(o *options) { o.onChange = fn }
}

// Operation is one operation slot (fetch-list, upload-document, ...).
// It is safe for concurrent use.
type Operation[T any] struct {
	name string
	opts options

	mu         sync.Mutex
	state      State
	result     T
	hasResult  bool
	err        error
	runSeq     uint64
	resetSeq   uint64
	resetTimer clockwork.Timer
}

// New creates an idle operation named after its slot.
func New[T any](name string, opts ...Option) *Operation[T] {
	o := &Operation[T]{name: name, opts: options{clock: clockwork.NewRealClock()}}
	for _, opt := range opts {
		opt(&o.opts)
	}
	return o
}

// Name returns the slot name used in ConcurrentOperationError.
func (o *Operation[T]) Name() string { return o.name }

// Run executes action unless another run is pending. It blocks until the
// action returns and yields its result. Any scheduled reset is cancelled.
func (o *Operation[T]) Run(ctx context.Context, action Action[T]) (T, error) {
	var zero T

	o.mu.Lock()
	if o.state.Phase == PhasePending {
		o.mu.Unlock()
		return zero, &apperrors.ConcurrentOperationError{Operation: o.name}
	}
	o.cancelResetLocked()
	o.runSeq++
	seq := o.runSeq
	o.state = State{Phase: PhasePending}
	o.result, o.hasResult, o.err = zero, false, nil
	snapshot := o.state
	o.mu.Unlock()

	o.notify(snapshot)

	result, err := o.invoke(ctx, action, o.reporter(seq))

	o.mu.Lock()
	if err != nil {
		o.err = err
		o.state = State{Phase: PhaseError, Progress: o.state.Progress, Error: apperrors.UserMessage(err)}
	} else {
		o.result, o.hasResult = result, true
		o.state = State{Phase: PhaseSuccess, Progress: 100}
	}
	snapshot = o.state
	o.mu.Unlock()

	o.notify(snapshot)

	if err != nil {
		return zero, err
	}
	return result, nil
}

func (o *Operation[T]) invoke(ctx context.Context, action Action[T], report ProgressFunc) (result T, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%s: %w: %v", o.name, ErrPanicked, r)
		}
	}()
	return action(ctx, report)
}

func (o *Operation[T]) reporter(seq uint64) ProgressFunc {
	return func(percent int) {
		percent = min(max(percent, 0), 100)

		o.mu.Lock()
		if o.runSeq != seq || o.state.Phase != PhasePending || percent <= o.state.Progress {
			o.mu.Unlock()
			return
		}
		o.state.Progress = percent
		snapshot := o.state
		o.mu.Unlock()

		o.notify(snapshot)
	}
}

// State returns the current snapshot.
func (o *Operation[T]) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// Result returns the value of the last successful run.
func (o *Operation[T]) Result() (T, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.result, o.hasResult
}

// Err returns the error of the last failed run.
func (o *Operation[T]) Err() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.err
}

// Reset returns a settled operation to idle and cancels any scheduled reset.
// It reports false, changing nothing, while a run is pending.
func (o *Operation[T]) Reset() bool {
	o.mu.Lock()
	if o.state.Phase == PhasePending {
		o.mu.Unlock()
		return false
	}
	o.cancelResetLocked()
	o.resetLocked()
	snapshot := o.state
	o.mu.Unlock()

	o.notify(snapshot)
	return true
}

// ResetAfter schedules Reset after d and then calls then (if non-nil).
// A later Run, Reset or ResetAfter cancels it; a timer that fires after
// being superseded does nothing.
func (o *Operation[T]) ResetAfter(d time.Duration, then func()) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.state.Phase == PhasePending {
		return
	}
	o.cancelResetLocked()
	seq := o.resetSeq
	o.resetTimer = o.opts.clock.AfterFunc(d, func() {
		o.mu.Lock()
		if o.resetSeq != seq || o.state.Phase == PhasePending {
			o.mu.Unlock()
			return
		}
		o.resetTimer = nil
		o.resetLocked()
		snapshot := o.state
		o.mu.Unlock()

		o.notify(snapshot)
		if then != nil {
			then()
		}
	})
}

// Close cancels a scheduled reset. Use it on teardown.
func (o *Operation[T]) Close() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.cancelResetLocked()
}

func (o *Operation[T]) resetLocked() {
	var zero T
	o.state = State{Phase: PhaseIdle}
	o.result, o.hasResult, o.err = zero, false, nil
}

func (o *Operation[T]) cancelResetLocked() {
	o.resetSeq++
	if o.resetTimer != nil {
		o.resetTimer.Stop()
		o.resetTimer = nil
	}
}

func (o *Operation[T]) notify(s State) {
	if o.opts.onChange != nil {
		o.opts.onChange(s)
	}
}
