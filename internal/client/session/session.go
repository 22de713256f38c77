// Package session owns the process-wide identity of the TaxBox client.
//
// A Controller moves between two states: anonymous and authenticated.
// Login and Register run through their own asyncop slots so the CLI can
// show pending/error state; Logout and Invalidate are synchronous and
// always succeed.
package session

import (
	"context"
	"errors"
	"sync"

	"github.com/dmitrijs2005/taxbox/internal/client/apperrors"
	"github.com/dmitrijs2005/taxbox/internal/client/asyncop"
	"github.com/dmitrijs2005/taxbox/internal/client/client"
	"github.com/dmitrijs2005/taxbox/internal/client/credentials"
	"github.com/dmitrijs2005/taxbox/internal/client/models"
	"github.com/jonboulle/clockwork"
)

// ErrSignedOut is returned by a Login or Register that settled after a
// Logout issued while it was pending. The identity it produced is dropped.
var ErrSignedOut = errors.New("signed out while authenticating")

// User-facing messages. Login never says which of email or password was
// wrong.
const (
	MsgInvalidCredentials = "Invalid email or password"
	MsgAccountExists      = "An account with this email already exists"
	MsgRegistrationFailed = "Registration failed"
	MsgUnavailable        = "Unable to reach the server, please try again later"
)

// Authenticator is the remote auth collaborator.
type Authenticator interface {
	Authenticate(ctx context.Context, email, password string) (models.Identity, error)
	CreateAccount(ctx context.Context, email, fullName, password string) error
}

// Terminator is told about an explicit logout so it can drop whatever it
// keeps for the user (tokens, offline credentials, cached returns).
type Terminator interface {
	ClearOfflineData(ctx context.Context) error
}

type Option func(*Controller)

// WithTerminator wires the logout hook.
func WithTerminator(t Terminator) Option {
	return func(c *Controller) { c.terminator = t }
}

// WithClock sets the clock used by the login and register slots.
func WithClock(clock clockwork.Clock) Option {
	return func(c *Controller) { c.clock = clock }
}

type Controller struct {
	auth       Authenticator
	terminator Terminator
	clock      clockwork.Clock

	login    *asyncop.Operation[models.Identity]
	register *asyncop.Operation[models.Identity]

	mu        sync.RWMutex
	epoch     uint64 // bumped by Logout
	identity  models.Identity
	listeners map[int]func(models.Identity)
	nextID    int
}

func New(auth Authenticator, opts ...Option) *Controller {
	c := &Controller{
		auth:      auth,
		clock:     clockwork.NewRealClock(),
		listeners: make(map[int]func(models.Identity)),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.login = asyncop.New[models.Identity]("login", asyncop.WithClock(c.clock))
	c.register = asyncop.New[models.Identity]("register", asyncop.WithClock(c.clock))
	return c
}

// Identity returns the current session identity.
func (c *Controller) Identity() models.Identity {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.identity
}

// IsAuthenticated is a shorthand for Identity().Authenticated.
func (c *Controller) IsAuthenticated() bool {
	return c.Identity().Authenticated
}

func (c *Controller) LoginState() asyncop.State    { return c.login.State() }
func (c *Controller) RegisterState() asyncop.State { return c.register.State() }

// Login authenticates against the collaborator. Empty or malformed input is
// rejected locally.
func (c *Controller) Login(ctx context.Context, email, password string) (models.Identity, error) {
	epoch := c.currentEpoch()
	id, err := c.login.Run(ctx, func(ctx context.Context, _ asyncop.ProgressFunc) (models.Identity, error) {
		if err := credentials.ValidateLogin(email, password); err != nil {
			return models.Identity{}, err
		}
		id, err := c.auth.Authenticate(ctx, email, password)
		if err != nil {
			return models.Identity{}, loginError(err)
		}
		return id, nil
	})
	if err != nil {
		return models.Identity{}, err
	}

	if !c.establish(epoch, id) {
		c.login.Reset()
		c.discard(ctx)
		return models.Identity{}, ErrSignedOut
	}
	return id, nil
}

// Register validates the form, creates the account and signs the new user
// in. Nothing is sent when validation fails.
func (c *Controller) Register(ctx context.Context, r credentials.Registration) error {
	epoch := c.currentEpoch()
	id, err := c.register.Run(ctx, func(ctx context.Context, _ asyncop.ProgressFunc) (models.Identity, error) {
		if err := credentials.ValidateRegistration(r); err != nil {
			return models.Identity{}, err
		}
		if err := c.auth.CreateAccount(ctx, r.Email, r.FullName, r.Password); err != nil {
			return models.Identity{}, registerError(err)
		}
		id, err := c.auth.Authenticate(ctx, r.Email, r.Password)
		if err != nil {
			return models.Identity{}, loginError(err)
		}
		return id, nil
	})
	if err != nil {
		return err
	}

	if !c.establish(epoch, id) {
		c.register.Reset()
		c.discard(ctx)
		return ErrSignedOut
	}
	return nil
}

// Logout clears the identity immediately and then asks the terminator to
// drop per-user data. It always succeeds. A Login or Register still in
// flight will not sign the user back in.
func (c *Controller) Logout(ctx context.Context) {
	c.mu.Lock()
	c.epoch++
	c.mu.Unlock()

	c.clear()
	c.login.Reset()
	c.register.Reset()
	c.discard(ctx)
}

// discard asks the terminator to drop tokens and offline data. Its failures
// are logged by the terminator itself.
func (c *Controller) discard(ctx context.Context) {
	if c.terminator != nil {
		_ = c.terminator.ClearOfflineData(ctx)
	}
}

// Invalidate ends the session on a signal from the transport, e.g. an
// expired token. Offline data is kept so the user can sign in again.
func (c *Controller) Invalidate() {
	c.clear()
}

// Subscribe registers fn to be called after every identity change. The
// returned func removes it.
func (c *Controller) Subscribe(fn func(models.Identity)) (unsubscribe func()) {
	c.mu.Lock()
	id := c.nextID
	c.nextID++
	c.listeners[id] = fn
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		delete(c.listeners, id)
		c.mu.Unlock()
	}
}

func (c *Controller) currentEpoch() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.epoch
}

// establish publishes id unless a Logout happened since epoch was read.
func (c *Controller) establish(epoch uint64, id models.Identity) bool {
	if !id.Authenticated {
		id = models.Identity{}
	}
	return c.set(id, func() bool { return c.epoch == epoch })
}

func (c *Controller) clear() {
	c.mu.RLock()
	anonymous := !c.identity.Authenticated
	c.mu.RUnlock()
	if anonymous {
		return
	}
	c.set(models.Identity{}, nil)
}

// set stores id and notifies listeners. A non-nil guard is checked under the
// lock and vetoes the change when it returns false.
func (c *Controller) set(id models.Identity, guard func() bool) bool {
	c.mu.Lock()
	if guard != nil && !guard() {
		c.mu.Unlock()
		return false
	}
	c.identity = id
	fns := make([]func(models.Identity), 0, len(c.listeners))
	for i := 0; i < c.nextID; i++ {
		if fn, ok := c.listeners[i]; ok {
			fns = append(fns, fn)
		}
	}
	c.mu.Unlock()

	for _, fn := range fns {
		fn(id)
	}
	return true
}

func loginError(err error) error {
	switch {
	case apperrors.IsValidation(err):
		return err
	case errors.Is(err, client.ErrUnavailable):
		return apperrors.Transport(MsgUnavailable, err)
	default:
		return apperrors.Transport(MsgInvalidCredentials, err)
	}
}

func registerError(err error) error {
	switch {
	case errors.Is(err, client.ErrConflict):
		return apperrors.Transport(MsgAccountExists, err)
	case errors.Is(err, client.ErrUnavailable):
		return apperrors.Transport(MsgUnavailable, err)
	default:
		return apperrors.Transport(MsgRegistrationFailed, err)
	}
}
