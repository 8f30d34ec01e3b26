package shop

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAuth struct {
	mu     sync.Mutex
	calls  int32
	tokens []Token
	err    error
	delay  time.Duration
}

func (f *fakeAuth) Authenticate(ctx context.Context) (Token, error) {
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	n := atomic.AddInt32(&f.calls, 1)
	if f.err != nil {
		return Token{}, f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	idx := int(n) - 1
	if idx >= len(f.tokens) {
		idx = len(f.tokens) - 1
	}
	return f.tokens[idx], nil
}

func freshToken(value string) Token {
	return Token{Value: value, Expiry: time.Now().Add(time.Hour)}
}

func TestRefresherCachesToken(t *testing.T) {
	auth := &fakeAuth{tokens: []Token{freshToken("tok-1")}}
	r := NewRefresher(auth)

	for i := 0; i < 5; i++ {
		tok, err := r.Token(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "tok-1", tok)
	}
	assert.Equal(t, int32(1), atomic.LoadInt32(&auth.calls))
}

func TestRefresherRefreshesExpiredToken(t *testing.T) {
	auth := &fakeAuth{tokens: []Token{
		{Value: "tok-1", Expiry: time.Now().Add(time.Second)}, // inside the skew window
		freshToken("tok-2"),
	}}
	r := NewRefresher(auth)

	tok, err := r.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "tok-1", tok)

	// The first token counts as expired because of the refresh skew.
	tok, err = r.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "tok-2", tok)
	assert.Equal(t, int32(2), atomic.LoadInt32(&auth.calls))
}

func TestRefresherPropagatesAuthFailure(t *testing.T) {
	authErr := errors.New("unknown client")
	r := NewRefresher(&fakeAuth{err: authErr})

	_, err := r.Token(context.Background())
	require.ErrorIs(t, err, authErr)
}

func TestRefresherInvalidateForcesRefresh(t *testing.T) {
	auth := &fakeAuth{tokens: []Token{freshToken("tok-1"), freshToken("tok-2")}}
	r := NewRefresher(auth)

	tok, err := r.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "tok-1", tok)

	r.Invalidate()

	tok, err = r.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "tok-2", tok)
}

func TestRefresherSingleRefreshUnderContention(t *testing.T) {
	auth := &fakeAuth{tokens: []Token{freshToken("tok-1")}, delay: 20 * time.Millisecond}
	r := NewRefresher(auth)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tok, err := r.Token(context.Background())
			assert.NoError(t, err)
			assert.Equal(t, "tok-1", tok)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&auth.calls))
}
