// Package client contains the transport layer of the TaxBox client.
//
// # Overview
//
// The package provides:
//  1. A transport-agnostic API contract (see the Client interface):
//     Authenticate/CreateAccount, FetchRecords, UploadDocument,
//     ExportRecord and Ping.
//  2. A REST implementation (see HTTPClient) with bearer tokens, a rate
//     limiter, a circuit breaker, request ids and streamed multipart
//     uploads that report byte progress.
//  3. A gRPC implementation (see GRPCClient) that carries JSON messages,
//     injects an access token via an interceptor and transparently
//     refreshes expired tokens.
//
// # Error Handling
//
// Common conditions are exposed as sentinel errors that callers can match
// with errors.Is: ErrUnavailable, ErrUnauthorized, ErrConflict,
// ErrNotFound and ErrSessionExpired. ErrSessionExpired means the tokens can
// no longer be renewed and the user has to sign in again.
//
// # Concurrency & Contexts
//
// Both implementations are safe for concurrent use. All operations accept
// context.Context and honor cancellation; a per-request timeout applies on
// top (see WithTimeout).
package client
