// Package common contains shared constants, sentinel errors and small
// helpers used across TaxBox client components.
package common

const (
	// AccessTokenHeaderName is the gRPC metadata key used to carry the
	// access token on outbound requests.
	AccessTokenHeaderName = "access_token"

	// RequestIDHeaderName correlates a client call with server logs.
	RequestIDHeaderName = "x-request-id"

	// AppName is used in prompts, user agents and default paths.
	AppName = "taxbox"
)
