package shop

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/m3rciful/shopbot/core/logger"
)

// expirySkew refreshes tokens slightly before the backend deadline so a call
// started near expiry does not race the cutoff.
const expirySkew = 30 * time.Second

// Token is a bearer credential with its absolute expiry.
type Token struct {
	Value  string
	Expiry time.Time
}

func (t Token) valid(now time.Time) bool {
	return t.Value != "" && now.Before(t.Expiry.Add(-expirySkew))
}

// Authenticator exchanges credentials for a fresh token. *Client satisfies it.
type Authenticator interface {
	Authenticate(ctx context.Context) (Token, error)
}

// Refresher hands out a valid shared token, re-authenticating lazily when the
// cached one expires. Reads are lock-free; only the refresh path serialises,
// and concurrent waiters reuse the token the first one fetched.
type Refresher struct {
	auth Authenticator

	current atomic.Pointer[Token]
	mu      sync.Mutex
}

// NewRefresher builds a Refresher with an empty cache. The first Token call
// authenticates.
func NewRefresher(auth Authenticator) *Refresher {
	r := &Refresher{auth: auth}
	r.current.Store(&Token{})
	return r
}

// Token returns a currently valid bearer token, refreshing if needed.
func (r *Refresher) Token(ctx context.Context) (string, error) {
	now := time.Now()
	if tok := r.current.Load(); tok.valid(now) {
		return tok.Value, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	// Another waiter may have refreshed while we queued on the mutex.
	if tok := r.current.Load(); tok.valid(time.Now()) {
		return tok.Value, nil
	}

	start := time.Now()
	tok, err := r.auth.Authenticate(ctx)
	if err != nil {
		logger.Error(ctx, "shop", "token.refresh",
			slog.String("status", "fail"),
			slog.Duration("duration", logger.Took(start)),
			slog.String("err", err.Error()),
		)
		return "", err
	}

	r.current.Store(&tok)
	logger.Info(ctx, "shop", "token.refresh",
		slog.String("status", "ok"),
		slog.Duration("duration", logger.Took(start)),
		slog.Time("expiry", tok.Expiry),
	)
	return tok.Value, nil
}

// Invalidate drops the cached token so the next Token call re-authenticates.
// Callers use it after a definitive auth rejection from the backend.
func (r *Refresher) Invalidate() {
	r.current.Store(&Token{})
}
