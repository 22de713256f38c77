package cli

import (
	"context"

	"github.com/dmitrijs2005/taxbox/internal/client/apperrors"
	"github.com/dmitrijs2005/taxbox/internal/client/credentials"
	"github.com/dmitrijs2005/taxbox/internal/common"
)

// getSimpleText and getPassword are indirections used to facilitate testing.
var getSimpleText = GetSimpleText
var getPassword = GetPassword

// Register prompts for the registration form and creates the account. A
// successful registration also signs the user in.
func (a *App) Register(ctx context.Context) error {
	email, err := getSimpleText(a.reader, "Enter email", a.out)
	if err != nil {
		return err
	}
	fullName, err := getSimpleText(a.reader, "Enter full name", a.out)
	if err != nil {
		return err
	}

	password, err := getPassword("Enter password", a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	if s := credentials.Score(string(password)); !s.Acceptable() {
		a.printf("Password strength: %s\n", s.Label)
	}

	confirmation, err := getPassword("Confirm password", a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(confirmation)

	err = a.session.Register(ctx, credentials.Registration{
		Email:        email,
		FullName:     fullName,
		Password:     string(password),
		Confirmation: string(confirmation),
	})
	if err != nil {
		a.printf("%s\n", apperrors.UserMessage(err))
		return err
	}

	a.printf("Account created, welcome!\n")
	return nil
}

// Login prompts for credentials and signs in. When the server is down the
// auth service falls back to the cached offline credential.
func (a *App) Login(ctx context.Context) error {
	email, err := getSimpleText(a.reader, "Enter email", a.out)
	if err != nil {
		return err
	}

	password, err := getPassword("Enter password", a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	id, err := a.session.Login(ctx, email, string(password))
	if err != nil {
		a.printf("%s\n", apperrors.UserMessage(err))
		return err
	}

	a.printf("Signed in as %s\n", id.Email())
	a.checkOnline(ctx)
	return nil
}

// Logout ends the session and drops the cached credential and returns.
func (a *App) Logout(ctx context.Context) error {
	a.session.Logout(ctx)
	return nil
}
