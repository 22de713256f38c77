package common

import "errors"

var (
	// ErrTokenExpired is the message the backend uses when an access token
	// is no longer valid. Clients react by refreshing it once.
	ErrTokenExpired = errors.New("token expired")

	// ErrRefreshTokenExpired means the session cannot be renewed.
	ErrRefreshTokenExpired = errors.New("refresh token expired")
)
