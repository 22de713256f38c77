// Package services glues the transport client to the local cache for the
// TaxBox CLI. This file defines the authentication service: online login
// with an offline fallback, registration, liveness probe and housekeeping of
// the locally cached credential.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/taxbox/internal/client/client"
	"github.com/dmitrijs2005/taxbox/internal/client/models"
	"github.com/dmitrijs2005/taxbox/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/taxbox/internal/client/repositories/returns"
	"github.com/dmitrijs2005/taxbox/internal/common"
	"github.com/dmitrijs2005/taxbox/internal/cryptox"
	"github.com/dmitrijs2005/taxbox/internal/dbx"
	"github.com/dmitrijs2005/taxbox/internal/logging"
)

// AuthService defines authentication operations for the CLI.
//
// Contract:
//   - Authenticate: log in against the server and persist the offline
//     credential; when the server is unreachable, verify against that
//     credential instead.
//   - CreateAccount: create a new user on the server.
//   - ClearOfflineData: forget tokens, the offline credential and cached
//     returns (logout).
//   - Ping: check server liveness.
//   - Close: release underlying client resources.
//
// All methods honor context cancellation/timeouts.
type AuthService interface {
	Authenticate(ctx context.Context, email, password string) (models.Identity, error)
	CreateAccount(ctx context.Context, email, fullName, password string) error
	ClearOfflineData(ctx context.Context) error
	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}

type authService struct {
	client client.Client
	db     *sql.DB
	log    logging.Logger
}

func NewAuthService(client client.Client, db *sql.DB, log logging.Logger) AuthService {
	return &authService{client: client, db: db, log: log.With("component", "auth")}
}

func (a *authService) Authenticate(ctx context.Context, email, password string) (models.Identity, error) {
	id, err := a.onlineLogin(ctx, email, password)
	if err == nil || !errors.Is(err, client.ErrUnavailable) {
		return id, err
	}

	a.log.Warn(ctx, "server unavailable, trying offline login", "error", err)
	offline, oerr := a.offlineLogin(ctx, email, password)
	if errors.Is(oerr, client.ErrLocalDataNotAvailable) {
		return models.Identity{}, err
	}
	if oerr != nil {
		return models.Identity{}, oerr
	}
	a.log.Info(ctx, "signed in offline", "email", email)
	return offline, nil
}

func (a *authService) onlineLogin(ctx context.Context, email, password string) (models.Identity, error) {
	user, err := a.client.Authenticate(ctx, email, password)
	if err != nil {
		return models.Identity{}, fmt.Errorf("login: %w", err)
	}
	if user.Email == "" {
		user.Email = email
	}

	if err := a.saveOfflineData(ctx, user, []byte(password)); err != nil {
		// online login still counts; only the offline path is lost, and the
		// cache can no longer be tied to an owner
		a.log.Error(ctx, "saving offline credential failed", "error", err)
		if err := returns.NewSQLiteRepository(a.db).Clear(ctx); err != nil {
			a.log.Error(ctx, "clearing cached returns failed", "error", err)
		}
	}
	return models.Authenticated(user), nil
}

// offlineLogin verifies password against the cached salt and verifier.
// Missing data yields client.ErrLocalDataNotAvailable, a mismatch
// client.ErrUnauthorized.
func (a *authService) offlineLogin(ctx context.Context, email, password string) (models.Identity, error) {
	values, err := metadata.NewSQLiteRepository(a.db).List(ctx)
	if err != nil {
		return models.Identity{}, fmt.Errorf("read offline credential: %w", err)
	}

	savedEmail, salt, verifier := values[metadata.KeyEmail], values[metadata.KeySalt], values[metadata.KeyVerifier]
	if len(savedEmail) == 0 || len(salt) == 0 || len(verifier) == 0 {
		return models.Identity{}, client.ErrLocalDataNotAvailable
	}
	if !strings.EqualFold(string(savedEmail), email) {
		return models.Identity{}, client.ErrUnauthorized
	}
	if !cryptox.Verify([]byte(password), salt, verifier) {
		return models.Identity{}, client.ErrUnauthorized
	}

	return models.Authenticated(models.User{
		Email:    string(savedEmail),
		FullName: string(values[metadata.KeyFullName]),
	}), nil
}

// saveOfflineData persists the offline credential in a single transaction.
// A fresh salt is drawn on every login. The cached returns belong to the
// stored email and are dropped when a different user signs in.
func (a *authService) saveOfflineData(ctx context.Context, user models.User, password []byte) error {
	salt := common.GenerateRandByteArray(cryptox.SaltSize)
	key := cryptox.DeriveKey(password, salt)
	defer common.WipeByteArray(key)

	return dbx.WithTx(ctx, a.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		meta := metadata.NewSQLiteRepository(tx)
		owner, err := meta.Get(ctx, metadata.KeyEmail)
		if err != nil {
			return err
		}
		if len(owner) > 0 && !strings.EqualFold(string(owner), user.Email) {
			if err := returns.NewSQLiteRepository(tx).Clear(ctx); err != nil {
				return err
			}
		}
		return meta.SetMany(ctx, map[string][]byte{
			metadata.KeyEmail:    []byte(user.Email),
			metadata.KeyFullName: []byte(user.FullName),
			metadata.KeySalt:     salt,
			metadata.KeyVerifier: cryptox.MakeVerifier(key),
		})
	})
}

func (a *authService) CreateAccount(ctx context.Context, email, fullName, password string) error {
	if err := a.client.CreateAccount(ctx, email, fullName, password); err != nil {
		return fmt.Errorf("register: %w", err)
	}
	a.log.Info(ctx, "account created", "email", email)
	return nil
}

func (a *authService) ClearOfflineData(ctx context.Context) error {
	a.client.Logout()

	err := dbx.WithTx(ctx, a.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := metadata.NewSQLiteRepository(tx).Clear(ctx); err != nil {
			return err
		}
		return returns.NewSQLiteRepository(tx).Clear(ctx)
	})
	if err != nil {
		a.log.Error(ctx, "clearing offline data failed", "error", err)
	}
	return err
}

func (a *authService) Ping(ctx context.Context) error {
	return a.client.Ping(ctx)
}

func (a *authService) Close(ctx context.Context) error {
	return a.client.Close()
}
