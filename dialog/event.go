package dialog

import (
	"context"

	"github.com/m3rciful/shopbot/shop"
)

// Event is one inbound chat interaction: either a text message or a callback
// button press. Exactly one of Text/Data is expected to carry the user input.
type Event struct {
	ChatID    int64
	MessageID int
	Text      string
	// Data is the raw callback payload; meaningful only when Callback is set.
	Data     string
	Callback bool
}

// Input returns the raw user input: callback data for button presses,
// message text otherwise. Empty means the event carries nothing to act on.
func (e Event) Input() string {
	if e.Callback {
		return e.Data
	}
	return e.Text
}

// Button is one inline keyboard button with raw callback data.
type Button struct {
	Text string
	Data string
}

// Row builds a keyboard row.
func Row(buttons ...Button) []Button { return buttons }

// Transport is the outbound side of the chat service, implemented by the bot
// wiring and by test doubles.
type Transport interface {
	// SendText delivers a message and returns the sent message id.
	SendText(ctx context.Context, chatID int64, text string, keyboard [][]Button) (int, error)
	// SendPhoto delivers an image with caption and returns the sent message id.
	SendPhoto(ctx context.Context, chatID int64, image []byte, caption string, keyboard [][]Button) (int, error)
	// DeleteMessage removes a previously sent message.
	DeleteMessage(ctx context.Context, chatID int64, messageID int) error
}

// Backend is the slice of the commerce API the handlers need. The cart
// reference is the chat id; cart state is never cached, every read re-fetches.
type Backend interface {
	Products(ctx context.Context, token string) ([]shop.Product, error)
	Product(ctx context.Context, token, productID string) (shop.Product, error)
	ImageURL(ctx context.Context, token, fileID string) (string, error)
	Download(ctx context.Context, url string) ([]byte, error)
	Cart(ctx context.Context, token, ref string) (shop.Cart, error)
	CartItems(ctx context.Context, token, ref string) ([]shop.CartItem, error)
	AddToCart(ctx context.Context, token, ref, productID string, quantity int) error
	RemoveFromCart(ctx context.Context, token, ref, productID string) error
	CreateCustomer(ctx context.Context, token, email string) error
}

// TokenSource yields a valid backend bearer token, refreshing it when close
// to expiry. A refresh failure is fatal to the current event.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}
