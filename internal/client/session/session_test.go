package session

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/dmitrijs2005/taxbox/internal/client/apperrors"
	"github.com/dmitrijs2005/taxbox/internal/client/asyncop"
	"github.com/dmitrijs2005/taxbox/internal/client/client"
	"github.com/dmitrijs2005/taxbox/internal/client/credentials"
	"github.com/dmitrijs2005/taxbox/internal/client/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAuth struct {
	mu sync.Mutex

	authCalls   int
	createCalls int

	authErr   error
	createErr error
	fullName  string

	block chan struct{}
}

func (f *fakeAuth) Authenticate(ctx context.Context, email, password string) (models.Identity, error) {
	f.mu.Lock()
	f.authCalls++
	block, err := f.block, f.authErr
	f.mu.Unlock()

	if block != nil {
		<-block
	}
	if err != nil {
		return models.Identity{}, err
	}
	return models.Authenticated(models.User{Email: email, FullName: f.fullName}), nil
}

func (f *fakeAuth) CreateAccount(ctx context.Context, email, fullName, password string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.createCalls++
	f.fullName = fullName
	return f.createErr
}

func (f *fakeAuth) calls() (int, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.authCalls, f.createCalls
}

type fakeTerminator struct {
	called int
	err    error
}

func (f *fakeTerminator) ClearOfflineData(context.Context) error {
	f.called++
	return f.err
}

func registration(password string) credentials.Registration {
	return credentials.Registration{
		Email:        "jane@example.com",
		FullName:     "Jane Roe",
		Password:     password,
		Confirmation: password,
	}
}

func TestRegister_WeakPasswordRejectedLocally(t *testing.T) {
	auth := &fakeAuth{}
	c := New(auth)

	err := c.Register(context.Background(), registration("abc"))

	var ve *apperrors.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.True(t, ve.Has(apperrors.FieldPassword))

	a, cr := auth.calls()
	assert.Zero(t, a)
	assert.Zero(t, cr)
	assert.False(t, c.IsAuthenticated())
	assert.Equal(t, asyncop.PhaseError, c.RegisterState().Phase)
	assert.Equal(t, "Please choose a stronger password", c.RegisterState().Error)
}

func TestRegister_MismatchRejectedLocally(t *testing.T) {
	auth := &fakeAuth{}
	c := New(auth)

	r := registration("Abc12345!")
	r.Confirmation = "Abc12345?"
	err := c.Register(context.Background(), r)

	var ve *apperrors.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.True(t, ve.Has(apperrors.FieldConfirmation))
	_, cr := auth.calls()
	assert.Zero(t, cr)
}

func TestRegister_StrongPasswordAuthenticates(t *testing.T) {
	auth := &fakeAuth{}
	c := New(auth)

	var seen []models.Identity
	c.Subscribe(func(id models.Identity) { seen = append(seen, id) })

	require.NoError(t, c.Register(context.Background(), registration("Abc12345!")))

	a, cr := auth.calls()
	assert.Equal(t, 1, cr)
	assert.Equal(t, 1, a)

	id := c.Identity()
	require.True(t, id.Authenticated)
	assert.Equal(t, "jane@example.com", id.Email())
	assert.Equal(t, "Jane Roe", id.User.FullName)
	assert.Equal(t, asyncop.PhaseSuccess, c.RegisterState().Phase)
	require.Len(t, seen, 1)
	assert.True(t, seen[0].Authenticated)
}

func TestRegister_CollaboratorErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		msg  string
	}{
		{"conflict", client.ErrConflict, MsgAccountExists},
		{"unavailable", client.ErrUnavailable, MsgUnavailable},
		{"other", errors.New("500 internal: stack trace"), MsgRegistrationFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			auth := &fakeAuth{createErr: tt.err}
			c := New(auth)

			err := c.Register(context.Background(), registration("Abc12345!"))
			require.ErrorIs(t, err, tt.err)
			assert.Equal(t, tt.msg, apperrors.UserMessage(err))
			assert.Equal(t, tt.msg, c.RegisterState().Error)
			assert.False(t, c.IsAuthenticated())

			a, _ := auth.calls()
			assert.Zero(t, a)
		})
	}
}

func TestLogin(t *testing.T) {
	auth := &fakeAuth{}
	c := New(auth)

	id, err := c.Login(context.Background(), "jane@example.com", "whatever")
	require.NoError(t, err)
	assert.True(t, id.Authenticated)
	assert.Equal(t, id, c.Identity())
	assert.Equal(t, asyncop.PhaseSuccess, c.LoginState().Phase)
}

func TestLogin_FailuresAreGeneric(t *testing.T) {
	for _, cause := range []error{client.ErrUnauthorized, client.ErrNotFound, errors.New("user not found")} {
		auth := &fakeAuth{authErr: cause}
		c := New(auth)

		_, err := c.Login(context.Background(), "jane@example.com", "wrong")
		require.Error(t, err)
		assert.Equal(t, MsgInvalidCredentials, apperrors.UserMessage(err))
		assert.False(t, c.IsAuthenticated())
	}
}

func TestLogin_EmptyFieldsNoCall(t *testing.T) {
	auth := &fakeAuth{}
	c := New(auth)

	_, err := c.Login(context.Background(), "", "")
	assert.True(t, apperrors.IsValidation(err))
	a, _ := auth.calls()
	assert.Zero(t, a)
}

func TestLogin_ConcurrentRejected(t *testing.T) {
	auth := &fakeAuth{block: make(chan struct{})}
	c := New(auth)

	done := make(chan error, 1)
	go func() {
		_, err := c.Login(context.Background(), "jane@example.com", "pw")
		done <- err
	}()

	require.Eventually(t, func() bool {
		return c.LoginState().Phase == asyncop.PhasePending
	}, testTimeout, testTick)

	_, err := c.Login(context.Background(), "jane@example.com", "pw")
	assert.True(t, apperrors.IsConcurrent(err))
	assert.Equal(t, asyncop.PhasePending, c.LoginState().Phase)

	close(auth.block)
	require.NoError(t, <-done)
	assert.True(t, c.IsAuthenticated())
}

func TestLogout(t *testing.T) {
	term := &fakeTerminator{err: errors.New("disk full")}
	c := New(&fakeAuth{}, WithTerminator(term))

	_, err := c.Login(context.Background(), "jane@example.com", "pw")
	require.NoError(t, err)

	var seen []models.Identity
	c.Subscribe(func(id models.Identity) { seen = append(seen, id) })

	c.Logout(context.Background())

	assert.False(t, c.IsAuthenticated())
	assert.Equal(t, models.Identity{}, c.Identity())
	assert.Equal(t, 1, term.called)
	assert.Equal(t, asyncop.PhaseIdle, c.LoginState().Phase)
	require.Len(t, seen, 1)
	assert.False(t, seen[0].Authenticated)
}

func TestLogout_WhileLoginPending(t *testing.T) {
	auth := &fakeAuth{block: make(chan struct{})}
	term := &fakeTerminator{}
	c := New(auth, WithTerminator(term))

	var (
		mu   sync.Mutex
		seen []models.Identity
	)
	c.Subscribe(func(id models.Identity) {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, id)
	})

	done := make(chan error, 1)
	go func() {
		_, err := c.Login(context.Background(), "jane@example.com", "pw")
		done <- err
	}()
	require.Eventually(t, func() bool {
		return c.LoginState().Phase == asyncop.PhasePending
	}, testTimeout, testTick)

	c.Logout(context.Background())
	close(auth.block)

	require.ErrorIs(t, <-done, ErrSignedOut)
	assert.False(t, c.IsAuthenticated())
	assert.Equal(t, asyncop.PhaseIdle, c.LoginState().Phase)
	assert.Equal(t, 2, term.called, "late credentials are dropped again")
	mu.Lock()
	assert.Empty(t, seen)
	mu.Unlock()

	// the next attempt is unaffected
	_, err := c.Login(context.Background(), "jane@example.com", "pw")
	require.NoError(t, err)
	assert.True(t, c.IsAuthenticated())
}

func TestLogout_WhileRegisterPending(t *testing.T) {
	auth := &fakeAuth{block: make(chan struct{})}
	c := New(auth)

	done := make(chan error, 1)
	go func() { done <- c.Register(context.Background(), registration("Abc12345!")) }()
	require.Eventually(t, func() bool {
		a, _ := auth.calls()
		return a == 1
	}, testTimeout, testTick)

	c.Logout(context.Background())
	close(auth.block)

	require.ErrorIs(t, <-done, ErrSignedOut)
	assert.False(t, c.IsAuthenticated())
	assert.Equal(t, asyncop.PhaseIdle, c.RegisterState().Phase)
}

func TestInvalidate(t *testing.T) {
	term := &fakeTerminator{}
	c := New(&fakeAuth{}, WithTerminator(term))

	notified := 0
	c.Subscribe(func(models.Identity) { notified++ })

	c.Invalidate()
	assert.Zero(t, notified, "anonymous session must not notify")

	_, err := c.Login(context.Background(), "jane@example.com", "pw")
	require.NoError(t, err)
	c.Invalidate()

	assert.False(t, c.IsAuthenticated())
	assert.Equal(t, 2, notified)
	assert.Zero(t, term.called)
}

func TestSubscribe_Unsubscribe(t *testing.T) {
	c := New(&fakeAuth{})

	var order []string
	c.Subscribe(func(models.Identity) { order = append(order, "a") })
	unsub := c.Subscribe(func(models.Identity) { order = append(order, "b") })
	c.Subscribe(func(models.Identity) { order = append(order, "c") })

	_, err := c.Login(context.Background(), "jane@example.com", "pw")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, order)

	unsub()
	order = nil
	c.Logout(context.Background())
	assert.Equal(t, []string{"a", "c"}, order)
}
