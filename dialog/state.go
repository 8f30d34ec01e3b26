package dialog

import (
	"context"
	"fmt"
)

// State identifies a step of the shopping conversation. The string value is
// what gets persisted in the session store, so renaming a constant is a
// breaking change for live conversations.
type State string

const (
	// StateStart greets a fresh conversation with the product menu.
	StateStart State = "START"
	// StateMenu waits for a product pick from the menu.
	StateMenu State = "HANDLE_MENU"
	// StateDescription shows one product and waits for a quantity pick.
	StateDescription State = "HANDLE_DESCRIPTION"
	// StateCart shows the cart and waits for remove/back/pay.
	StateCart State = "HANDLE_CART"
	// StateEmail waits for the customer's email to finish the order.
	StateEmail State = "OBTAIN_EMAIL"
	// StateEcho parks the conversation in the plain echo loop.
	StateEcho State = "ECHO"
)

// ResetCommand forces the conversation back to StateStart regardless of the
// stored state. This is a reset, not a transition.
const ResetCommand = "/start"

// Handler runs the business logic of a single state. It performs its own
// outbound sends and returns the state to persist for the next event.
type Handler func(ctx context.Context, token string, ev Event) (State, error)

// ErrUnknownState reports a stored state name outside the registry's domain.
type ErrUnknownState struct {
	State State
}

func (e *ErrUnknownState) Error() string {
	return fmt.Sprintf("dialog: unknown state %q", string(e.State))
}

// Code returns a stable identifier for log classification.
func (e *ErrUnknownState) Code() string { return "UNKNOWN_STATE" }

// Registry is an immutable mapping from state to handler, injected into the
// Machine at construction so the state set stays auditable in one place.
type Registry map[State]Handler

// Resolve returns the handler bound to st.
func (r Registry) Resolve(st State) (Handler, error) {
	h, ok := r[st]
	if !ok || h == nil {
		return nil, &ErrUnknownState{State: st}
	}
	return h, nil
}

// Has reports whether st belongs to the registry's domain.
func (r Registry) Has(st State) bool {
	h, ok := r[st]
	return ok && h != nil
}
