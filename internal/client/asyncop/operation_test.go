package asyncop

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/taxbox/internal/client/apperrors"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// blockingAction parks inside the action until release is closed, handing
// its progress reporter out through the returned channel.
func blockingAction(release <-chan struct{}) (Action[string], <-chan ProgressFunc) {
	started := make(chan ProgressFunc, 1)
	return func(ctx context.Context, report ProgressFunc) (string, error) {
		started <- report
		<-release
		return "done", nil
	}, started
}

func TestRun_Success(t *testing.T) {
	op := New[int]("fetch-list")
	require.Equal(t, State{Phase: PhaseIdle}, op.State())

	got, err := op.Run(context.Background(), func(ctx context.Context, _ ProgressFunc) (int, error) {
		return 3, nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, got)
	assert.Equal(t, State{Phase: PhaseSuccess, Progress: 100}, op.State())

	res, ok := op.Result()
	assert.True(t, ok)
	assert.Equal(t, 3, res)
}

func TestRun_ErrorCarriesUserMessage(t *testing.T) {
	op := New[struct{}]("upload-document")
	cause := errors.New("502 bad gateway from upstream 10.1.2.3")

	_, err := op.Run(context.Background(), func(ctx context.Context, _ ProgressFunc) (struct{}, error) {
		return struct{}{}, apperrors.Transport("Failed to upload document", cause)
	})

	require.ErrorIs(t, err, cause)
	st := op.State()
	assert.Equal(t, PhaseError, st.Phase)
	assert.Equal(t, "Failed to upload document", st.Error)
	assert.ErrorIs(t, op.Err(), cause)

	_, ok := op.Result()
	assert.False(t, ok)
}

func TestRun_PanicSettlesAsError(t *testing.T) {
	op := New[string]("download-item")

	_, err := op.Run(context.Background(), func(ctx context.Context, _ ProgressFunc) (string, error) {
		panic("nil map")
	})

	require.ErrorIs(t, err, ErrPanicked)
	assert.Equal(t, PhaseError, op.State().Phase)
	assert.Equal(t, apperrors.GenericMessage, op.State().Error)
}

func TestRun_SecondRunWhilePendingIsRejected(t *testing.T) {
	op := New[string]("upload-document")
	release := make(chan struct{})
	action, started := blockingAction(release)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, _ = op.Run(context.Background(), action)
	}()

	report := <-started
	report(40)
	before := op.State()
	require.Equal(t, State{Phase: PhasePending, Progress: 40}, before)

	secondCalled := false
	_, err := op.Run(context.Background(), func(ctx context.Context, _ ProgressFunc) (string, error) {
		secondCalled = true
		return "", nil
	})

	var ce *apperrors.ConcurrentOperationError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "upload-document", ce.Operation)
	assert.False(t, secondCalled)
	assert.Equal(t, before, op.State())

	close(release)
	wg.Wait()
	assert.Equal(t, PhaseSuccess, op.State().Phase)
}

func TestProgress_ClampedAndMonotonic(t *testing.T) {
	op := New[string]("upload-document")
	release := make(chan struct{})
	action, started := blockingAction(release)

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = op.Run(context.Background(), action)
	}()

	report := <-started

	report(-20)
	assert.Equal(t, 0, op.State().Progress)
	report(50)
	assert.Equal(t, 50, op.State().Progress)
	report(30)
	assert.Equal(t, 50, op.State().Progress)
	report(250)
	assert.Equal(t, 100, op.State().Progress)

	close(release)
	<-done

	report(10)
	assert.Equal(t, State{Phase: PhaseSuccess, Progress: 100}, op.State())
}

func TestProgress_StaleReporterIgnoredByNextRun(t *testing.T) {
	op := New[string]("upload-document")

	var stale ProgressFunc
	_, err := op.Run(context.Background(), func(ctx context.Context, report ProgressFunc) (string, error) {
		stale = report
		return "", nil
	})
	require.NoError(t, err)

	release := make(chan struct{})
	action, started := blockingAction(release)
	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = op.Run(context.Background(), action)
	}()
	<-started

	stale(90)
	assert.Equal(t, 0, op.State().Progress)

	close(release)
	<-done
}

func TestOnChange_SeesEveryTransition(t *testing.T) {
	var mu sync.Mutex
	var phases []Phase
	op := New[int]("fetch-list", WithOnChange(func(s State) {
		mu.Lock()
		defer mu.Unlock()
		phases = append(phases, s.Phase)
	}))

	_, _ = op.Run(context.Background(), func(ctx context.Context, report ProgressFunc) (int, error) {
		report(50)
		return 1, nil
	})
	op.Reset()

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []Phase{PhasePending, PhasePending, PhaseSuccess, PhaseIdle}, phases)
}

func TestReset(t *testing.T) {
	op := New[int]("fetch-list")
	_, _ = op.Run(context.Background(), func(ctx context.Context, _ ProgressFunc) (int, error) {
		return 0, errors.New("x")
	})

	require.True(t, op.Reset())
	assert.Equal(t, State{Phase: PhaseIdle}, op.State())
	assert.NoError(t, op.Err())
}

func TestReset_IgnoredWhilePending(t *testing.T) {
	op := New[string]("upload-document")
	release := make(chan struct{})
	action, started := blockingAction(release)

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = op.Run(context.Background(), action)
	}()
	<-started

	assert.False(t, op.Reset())
	assert.Equal(t, PhasePending, op.State().Phase)

	close(release)
	<-done
	assert.Equal(t, PhaseSuccess, op.State().Phase)
}

func TestResetAfter_FiresOnceAfterDelay(t *testing.T) {
	clock := clockwork.NewFakeClock()
	op := New[int]("upload-document", WithClock(clock))
	_, _ = op.Run(context.Background(), func(ctx context.Context, _ ProgressFunc) (int, error) { return 1, nil })

	closed := make(chan struct{})
	op.ResetAfter(time.Second, func() { close(closed) })

	clock.Advance(999 * time.Millisecond)
	assert.Equal(t, PhaseSuccess, op.State().Phase)

	clock.Advance(time.Millisecond)
	select {
	case <-closed:
	case <-time.After(time.Second):
		t.Fatal("reset callback did not run")
	}
	assert.Equal(t, State{Phase: PhaseIdle}, op.State())
}

func TestResetAfter_CancelledByRun(t *testing.T) {
	clock := clockwork.NewFakeClock()
	op := New[int]("upload-document", WithClock(clock))
	_, _ = op.Run(context.Background(), func(ctx context.Context, _ ProgressFunc) (int, error) { return 1, nil })

	fired := make(chan struct{}, 1)
	op.ResetAfter(time.Second, func() { fired <- struct{}{} })

	_, _ = op.Run(context.Background(), func(ctx context.Context, _ ProgressFunc) (int, error) { return 2, nil })

	clock.Advance(2 * time.Second)
	select {
	case <-fired:
		t.Fatal("superseded reset must not fire")
	case <-time.After(50 * time.Millisecond):
	}
	assert.Equal(t, PhaseSuccess, op.State().Phase)
}

func TestResetAfter_RescheduleReplacesPrevious(t *testing.T) {
	clock := clockwork.NewFakeClock()
	op := New[int]("upload-document", WithClock(clock))

	var mu sync.Mutex
	var calls []string
	op.ResetAfter(time.Second, func() { mu.Lock(); calls = append(calls, "first"); mu.Unlock() })
	op.ResetAfter(2*time.Second, func() { mu.Lock(); calls = append(calls, "second"); mu.Unlock() })

	clock.Advance(2 * time.Second)
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(calls) == 1
	}, time.Second, time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"second"}, calls)
}

func TestClose_CancelsScheduledReset(t *testing.T) {
	clock := clockwork.NewFakeClock()
	op := New[int]("upload-document", WithClock(clock))
	_, _ = op.Run(context.Background(), func(ctx context.Context, _ ProgressFunc) (int, error) { return 1, nil })

	op.ResetAfter(time.Second, nil)
	op.Close()
	clock.Advance(time.Minute)

	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, PhaseSuccess, op.State().Phase)
}

func TestPhaseString(t *testing.T) {
	assert.Equal(t, "idle", PhaseIdle.String())
	assert.Equal(t, "pending", PhasePending.String())
	assert.Equal(t, "success", PhaseSuccess.String())
	assert.Equal(t, "error", PhaseError.String())
	assert.Equal(t, "phase(9)", Phase(9).String())
}
