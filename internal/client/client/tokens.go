package client

import (
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// tokenStore keeps the current access/refresh pair. Tokens are only decoded
// to read their exp claim; signatures are the server's business.
type tokenStore struct {
	mu      sync.Mutex
	access  string
	refresh string
}

func (t *tokenStore) set(access, refresh string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.access, t.refresh = access, refresh
}

func (t *tokenStore) get() (access, refresh string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.access, t.refresh
}

func (t *tokenStore) clear() {
	t.set("", "")
}

// tokenExpired reports whether token carries an exp claim at or before now.
// Tokens that cannot be decoded are left for the server to judge.
func tokenExpired(token string, now time.Time) bool {
	var claims jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return false
	}
	return claims.ExpiresAt != nil && !claims.ExpiresAt.After(now)
}
