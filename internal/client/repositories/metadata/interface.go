// Package metadata is a small key/value store in the local cache database.
// The auth service keeps the offline credential here.
package metadata

import (
	"context"
)

// Keys of the offline credential.
const (
	KeyEmail    = "email"
	KeyFullName = "full_name"
	KeySalt     = "salt"
	KeyVerifier = "verifier"
)

type Repository interface {
	// Get returns (nil, nil) when key is absent.
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	SetMany(ctx context.Context, values map[string][]byte) error
	Delete(ctx context.Context, key string) error
	List(ctx context.Context) (map[string][]byte, error)
	Clear(ctx context.Context) error
}
