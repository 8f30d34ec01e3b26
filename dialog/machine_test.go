package dialog

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m3rciful/shopbot/session"
)

type stubTokens struct {
	token string
	err   error
}

func (s stubTokens) Token(ctx context.Context) (string, error) {
	return s.token, s.err
}

type failingStore struct {
	getErr error
	setErr error
}

func (f failingStore) Get(ctx context.Context, chatID int64) (string, error) {
	return "", f.getErr
}

func (f failingStore) Set(ctx context.Context, chatID int64, state string) error {
	return f.setErr
}

// recordingHandler returns a handler that counts invocations and moves to next.
func recordingHandler(calls *int, next State) Handler {
	return func(ctx context.Context, token string, ev Event) (State, error) {
		*calls++
		return next, nil
	}
}

func TestMachineFreshChatStartsAtStart(t *testing.T) {
	store := session.NewMemoryStore()
	calls := 0
	registry := Registry{
		StateStart: recordingHandler(&calls, StateMenu),
		StateMenu:  recordingHandler(new(int), StateMenu),
	}
	m := NewMachine(store, stubTokens{token: "tok"}, registry)

	err := m.OnEvent(context.Background(), Event{ChatID: 7, Text: "hello"})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)

	got, err := store.Get(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, string(StateMenu), got)
}

func TestMachineResetCommandOverridesStoredState(t *testing.T) {
	store := session.NewMemoryStore()
	require.NoError(t, store.Set(context.Background(), 7, string(StateEcho)))

	startCalls, echoCalls := 0, 0
	registry := Registry{
		StateStart: recordingHandler(&startCalls, StateMenu),
		StateMenu:  recordingHandler(new(int), StateMenu),
		StateEcho:  recordingHandler(&echoCalls, StateEcho),
	}
	m := NewMachine(store, stubTokens{token: "tok"}, registry)

	err := m.OnEvent(context.Background(), Event{ChatID: 7, Text: ResetCommand})
	require.NoError(t, err)
	assert.Equal(t, 1, startCalls)
	assert.Zero(t, echoCalls)
}

func TestMachineHandlerErrorLeavesStateUntouched(t *testing.T) {
	store := session.NewMemoryStore()
	require.NoError(t, store.Set(context.Background(), 7, string(StateMenu)))

	boom := errors.New("backend down")
	registry := Registry{
		StateStart: recordingHandler(new(int), StateMenu),
		StateMenu: func(ctx context.Context, token string, ev Event) (State, error) {
			return "", boom
		},
	}
	m := NewMachine(store, stubTokens{token: "tok"}, registry)

	err := m.OnEvent(context.Background(), Event{ChatID: 7, Text: "pick"})
	require.ErrorIs(t, err, boom)

	got, err := store.Get(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, string(StateMenu), got)
}

func TestMachineUnknownStoredState(t *testing.T) {
	store := session.NewMemoryStore()
	require.NoError(t, store.Set(context.Background(), 7, "LIMBO"))

	m := NewMachine(store, stubTokens{token: "tok"}, Registry{
		StateStart: recordingHandler(new(int), StateMenu),
		StateMenu:  recordingHandler(new(int), StateMenu),
	})

	err := m.OnEvent(context.Background(), Event{ChatID: 7, Text: "pick"})
	var unknown *ErrUnknownState
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, State("LIMBO"), unknown.State)

	got, err := store.Get(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, "LIMBO", got)
}

func TestMachineRejectsTransitionOutsideRegistry(t *testing.T) {
	store := session.NewMemoryStore()
	registry := Registry{
		StateStart: func(ctx context.Context, token string, ev Event) (State, error) {
			return State("NOWHERE"), nil
		},
	}
	m := NewMachine(store, stubTokens{token: "tok"}, registry)

	err := m.OnEvent(context.Background(), Event{ChatID: 7, Text: "hello"})
	var unknown *ErrUnknownState
	require.ErrorAs(t, err, &unknown)

	_, err = store.Get(context.Background(), 7)
	assert.ErrorIs(t, err, session.ErrNotFound)
}

func TestMachineDropsEmptyInput(t *testing.T) {
	calls := 0
	m := NewMachine(session.NewMemoryStore(), stubTokens{token: "tok"}, Registry{
		StateStart: recordingHandler(&calls, StateMenu),
	})

	require.NoError(t, m.OnEvent(context.Background(), Event{ChatID: 7}))
	assert.Zero(t, calls)
}

func TestMachineTokenFailureSkipsHandler(t *testing.T) {
	calls := 0
	authErr := errors.New("auth rejected")
	m := NewMachine(session.NewMemoryStore(), stubTokens{err: authErr}, Registry{
		StateStart: recordingHandler(&calls, StateMenu),
	})

	err := m.OnEvent(context.Background(), Event{ChatID: 7, Text: "hello"})
	require.ErrorIs(t, err, authErr)
	assert.Zero(t, calls)
}

func TestMachineStoreReadFailure(t *testing.T) {
	storeErr := fmt.Errorf("session: redis get: %w", errors.New("connection refused"))
	calls := 0
	m := NewMachine(failingStore{getErr: storeErr}, stubTokens{token: "tok"}, Registry{
		StateStart: recordingHandler(&calls, StateMenu),
	})

	err := m.OnEvent(context.Background(), Event{ChatID: 7, Text: "hello"})
	require.ErrorIs(t, err, storeErr)
	assert.Zero(t, calls)
}

func TestMachineStoreWriteFailure(t *testing.T) {
	setErr := errors.New("write refused")
	store := failingStore{getErr: session.ErrNotFound, setErr: setErr}
	m := NewMachine(store, stubTokens{token: "tok"}, Registry{
		StateStart: recordingHandler(new(int), StateMenu),
		StateMenu:  recordingHandler(new(int), StateMenu),
	})

	err := m.OnEvent(context.Background(), Event{ChatID: 7, Text: "hello"})
	require.ErrorIs(t, err, setErr)
}

func TestRegistryResolve(t *testing.T) {
	registry := Registry{StateStart: recordingHandler(new(int), StateMenu)}

	h, err := registry.Resolve(StateStart)
	require.NoError(t, err)
	assert.NotNil(t, h)

	_, err = registry.Resolve(StateCart)
	var unknown *ErrUnknownState
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, StateCart, unknown.State)

	assert.True(t, registry.Has(StateStart))
	assert.False(t, registry.Has(StateCart))
}
