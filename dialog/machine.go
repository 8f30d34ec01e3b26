package dialog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/m3rciful/shopbot/core/logger"
	"github.com/m3rciful/shopbot/session"
)

// Machine dispatches one chat event to the handler of the chat's current
// state and persists the returned state. It holds no per-chat data itself;
// everything lives in the session store, so any instance can serve any chat.
type Machine struct {
	store    session.Store
	tokens   TokenSource
	registry Registry
}

// NewMachine wires the dispatcher. The registry is fixed for the machine's
// lifetime.
func NewMachine(store session.Store, tokens TokenSource, registry Registry) *Machine {
	return &Machine{store: store, tokens: tokens, registry: registry}
}

// OnEvent runs the full dispatch cycle for one event: load state, run the
// bound handler, persist the transition. On any failure the stored state is
// left untouched, so the next event from the chat retries the same handler.
// Events with empty input are dropped.
func (m *Machine) OnEvent(ctx context.Context, ev Event) error {
	if ev.Input() == "" {
		logger.Debug(ctx, "dialog", "event.skip",
			slog.String("status", "dropped"),
			slog.Int64("chat_id", ev.ChatID),
			slog.String("reason", "empty input"),
		)
		return nil
	}

	current, err := m.currentState(ctx, ev)
	if err != nil {
		logger.Error(ctx, "dialog", "state.load",
			slog.String("status", "fail"),
			slog.Int64("chat_id", ev.ChatID),
			slog.String("err", err.Error()),
		)
		return err
	}
	ctx = logger.WithState(ctx, string(current))

	handler, err := m.registry.Resolve(current)
	if err != nil {
		logger.Error(ctx, "dialog", "state.resolve",
			slog.String("status", "fail"),
			slog.String("state", string(current)),
			slog.Int64("chat_id", ev.ChatID),
			slog.String("err", err.Error()),
		)
		return err
	}

	token, err := m.tokens.Token(ctx)
	if err != nil {
		return fmt.Errorf("dialog: acquire token: %w", err)
	}

	start := time.Now()
	next, err := handler(ctx, token, ev)
	if err != nil {
		logger.Error(ctx, "dialog", "handler.run",
			slog.String("status", "fail"),
			slog.String("state", string(current)),
			slog.Int64("chat_id", ev.ChatID),
			slog.Duration("duration", logger.Took(start)),
			slog.String("err", err.Error()),
		)
		return err
	}

	if !m.registry.Has(next) {
		err := &ErrUnknownState{State: next}
		logger.Error(ctx, "dialog", "handler.run",
			slog.String("status", "fail"),
			slog.String("state", string(current)),
			slog.String("next_state", string(next)),
			slog.Int64("chat_id", ev.ChatID),
			slog.String("err", err.Error()),
		)
		return err
	}

	if err := m.store.Set(ctx, ev.ChatID, string(next)); err != nil {
		logger.Error(ctx, "dialog", "state.save",
			slog.String("status", "fail"),
			slog.String("state", string(current)),
			slog.String("next_state", string(next)),
			slog.Int64("chat_id", ev.ChatID),
			slog.String("err", err.Error()),
		)
		return fmt.Errorf("dialog: persist state: %w", err)
	}

	logger.Info(ctx, "dialog", "handler.run",
		slog.String("status", "ok"),
		slog.String("state", string(current)),
		slog.String("next_state", string(next)),
		slog.Int64("chat_id", ev.ChatID),
		slog.Duration("duration", logger.Took(start)),
	)
	return nil
}

// currentState decides which handler owns the event. The reset command wins
// over whatever the store holds; a chat the store has never seen starts fresh.
func (m *Machine) currentState(ctx context.Context, ev Event) (State, error) {
	if ev.Input() == ResetCommand {
		return StateStart, nil
	}
	stored, err := m.store.Get(ctx, ev.ChatID)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			return StateStart, nil
		}
		return "", fmt.Errorf("dialog: load state: %w", err)
	}
	return State(stored), nil
}
