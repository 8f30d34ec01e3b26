package dialog

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/m3rciful/shopbot/core/telegram/format"
	"github.com/m3rciful/shopbot/shop"
)

// Callback payloads shared between keyboard construction and parsing.
const (
	payloadCart = "cart"
	payloadBack = "back"
	payloadPay  = "pay"
)

// quantitySteps are the purchase sizes offered on the product card.
var quantitySteps = []int{1, 5, 10}

// Handlers binds the per-state logic to the commerce backend and the chat
// transport. One instance serves all chats.
type Handlers struct {
	shop Backend
	chat Transport
}

// NewHandlers builds the handler set.
func NewHandlers(shop Backend, chat Transport) *Handlers {
	return &Handlers{shop: shop, chat: chat}
}

// Registry returns the full state table. Every persisted state name resolves
// here; anything else is a corrupt session.
func (h *Handlers) Registry() Registry {
	return Registry{
		StateStart:       h.Start,
		StateMenu:        h.Menu,
		StateDescription: h.Description,
		StateCart:        h.Cart,
		StateEmail:       h.Email,
		StateEcho:        h.Echo,
	}
}

// Start greets the chat with the product menu regardless of input.
func (h *Handlers) Start(ctx context.Context, token string, ev Event) (State, error) {
	if err := h.sendMenu(ctx, token, ev.ChatID); err != nil {
		return "", err
	}
	return StateMenu, nil
}

// Menu handles the product pick. Button presses carry a product id or the
// cart shortcut; plain text drops the chat into the echo loop.
func (h *Handlers) Menu(ctx context.Context, token string, ev Event) (State, error) {
	if !ev.Callback {
		if _, err := h.chat.SendText(ctx, ev.ChatID, ev.Text, nil); err != nil {
			return "", err
		}
		return StateEcho, nil
	}
	if ev.Data == payloadCart {
		return StateCart, nil
	}

	product, err := h.shop.Product(ctx, token, ev.Data)
	if err != nil {
		return "", err
	}

	// The menu message is replaced by the product card.
	if err := h.chat.DeleteMessage(ctx, ev.ChatID, ev.MessageID); err != nil {
		return "", err
	}

	caption := fmt.Sprintf("*%s*\n\n%s\n%s, %d in stock",
		format.EscapeMarkdown(product.Name),
		format.EscapeMarkdown(product.Description),
		format.EscapeMarkdown(product.Price),
		product.Stock,
	)
	keyboard := productKeyboard(product.ID)

	image, err := h.productImage(ctx, token, product)
	if err != nil {
		return "", err
	}
	if image != nil {
		if _, err := h.chat.SendPhoto(ctx, ev.ChatID, image, caption, keyboard); err != nil {
			return "", err
		}
	} else {
		if _, err := h.chat.SendText(ctx, ev.ChatID, caption, keyboard); err != nil {
			return "", err
		}
	}
	return StateDescription, nil
}

// Description handles the product card: quantity picks add to the cart, the
// navigation buttons leave the card. Payloads that parse as neither are
// ignored and the chat stays on the card.
func (h *Handlers) Description(ctx context.Context, token string, ev Event) (State, error) {
	switch ev.Input() {
	case payloadCart:
		if err := h.sendCart(ctx, token, ev.ChatID); err != nil {
			return "", err
		}
		return StateCart, nil
	case payloadBack:
		if err := h.chat.DeleteMessage(ctx, ev.ChatID, ev.MessageID); err != nil {
			return "", err
		}
		if err := h.sendMenu(ctx, token, ev.ChatID); err != nil {
			return "", err
		}
		return StateMenu, nil
	}

	quantity, productID, ok := parseQuantityPick(ev.Input())
	if !ok {
		return StateDescription, nil
	}
	if err := h.shop.AddToCart(ctx, token, cartRef(ev.ChatID), productID, quantity); err != nil {
		return "", err
	}
	return StateDescription, nil
}

// Cart handles the cart view: back to the menu, pay, or remove the line whose
// product id arrived as payload.
func (h *Handlers) Cart(ctx context.Context, token string, ev Event) (State, error) {
	switch ev.Input() {
	case payloadBack:
		if err := h.sendMenu(ctx, token, ev.ChatID); err != nil {
			return "", err
		}
		return StateMenu, nil
	case payloadPay:
		if _, err := h.chat.SendText(ctx, ev.ChatID, "Please send your email to finish the order.", nil); err != nil {
			return "", err
		}
		return StateEmail, nil
	}

	if err := h.shop.RemoveFromCart(ctx, token, cartRef(ev.ChatID), ev.Input()); err != nil {
		return "", err
	}
	if err := h.sendCart(ctx, token, ev.ChatID); err != nil {
		return "", err
	}
	return StateCart, nil
}

// Email finishes the order. A rejected address keeps the chat in this state
// with a hint; an accepted one becomes a customer record.
func (h *Handlers) Email(ctx context.Context, token string, ev Event) (State, error) {
	addr := strings.TrimSpace(ev.Input())
	if err := ValidateEmail(ctx, addr); err != nil {
		var verr *ValidationError
		if errors.As(err, &verr) {
			msg := fmt.Sprintf("That does not look like a valid email (%s). Please try again.", verr.Reason)
			if _, err := h.chat.SendText(ctx, ev.ChatID, msg, nil); err != nil {
				return "", err
			}
			return StateEmail, nil
		}
		return "", err
	}

	if err := h.shop.CreateCustomer(ctx, token, addr); err != nil {
		return "", err
	}
	msg := fmt.Sprintf("Thank you! We will contact you at %s.", addr)
	if _, err := h.chat.SendText(ctx, ev.ChatID, msg, nil); err != nil {
		return "", err
	}
	return StateStart, nil
}

// Echo repeats the input back. The chat stays here until /start.
func (h *Handlers) Echo(ctx context.Context, token string, ev Event) (State, error) {
	if _, err := h.chat.SendText(ctx, ev.ChatID, ev.Input(), nil); err != nil {
		return "", err
	}
	return StateEcho, nil
}

// sendMenu renders the catalog as one button per product plus the cart
// shortcut.
func (h *Handlers) sendMenu(ctx context.Context, token string, chatID int64) error {
	products, err := h.shop.Products(ctx, token)
	if err != nil {
		return err
	}
	keyboard := make([][]Button, 0, len(products)+1)
	for _, p := range products {
		keyboard = append(keyboard, Row(Button{Text: p.Name, Data: p.ID}))
	}
	keyboard = append(keyboard, Row(Button{Text: "Cart", Data: payloadCart}))

	_, err = h.chat.SendText(ctx, chatID, "Please choose:", keyboard)
	return err
}

// sendCart renders the live cart with one removal button per line. The cart
// is re-fetched on every render, never cached.
func (h *Handlers) sendCart(ctx context.Context, token string, chatID int64) error {
	ref := cartRef(chatID)
	items, err := h.shop.CartItems(ctx, token, ref)
	if err != nil {
		return err
	}
	cart, err := h.shop.Cart(ctx, token, ref)
	if err != nil {
		return err
	}

	var text strings.Builder
	keyboard := make([][]Button, 0, len(items)+1)
	if len(items) == 0 {
		text.WriteString("Your cart is empty.")
	} else {
		for _, item := range items {
			fmt.Fprintf(&text, "*%s*\n%s\n%s x %d = %s\n\n",
				format.EscapeMarkdown(item.Name),
				format.EscapeMarkdown(item.Description),
				format.EscapeMarkdown(item.UnitPrice),
				item.Quantity,
				format.EscapeMarkdown(item.LineTotal),
			)
			keyboard = append(keyboard, Row(Button{
				Text: "Remove " + item.Name,
				Data: item.ProductID,
			}))
		}
		fmt.Fprintf(&text, "*Total: %s*", format.EscapeMarkdown(cart.Total))
		keyboard = append(keyboard, Row(Button{Text: "Pay", Data: payloadPay}))
	}
	keyboard = append(keyboard, Row(Button{Text: "Back to menu", Data: payloadBack}))

	_, err = h.chat.SendText(ctx, chatID, text.String(), keyboard)
	return err
}

// productImage resolves and downloads the main product photo. Products
// without one yield nil with no error.
func (h *Handlers) productImage(ctx context.Context, token string, p shop.Product) ([]byte, error) {
	if p.MainImageID == "" {
		return nil, nil
	}
	link, err := h.shop.ImageURL(ctx, token, p.MainImageID)
	if err != nil {
		return nil, err
	}
	return h.shop.Download(ctx, link)
}

// productKeyboard offers the quantity steps plus navigation.
func productKeyboard(productID string) [][]Button {
	row := make([]Button, 0, len(quantitySteps))
	for _, q := range quantitySteps {
		row = append(row, Button{
			Text: strconv.Itoa(q),
			Data: fmt.Sprintf("%d,%s", q, productID),
		})
	}
	return [][]Button{
		row,
		Row(Button{Text: "Cart", Data: payloadCart}),
		Row(Button{Text: "Back", Data: payloadBack}),
	}
}

// parseQuantityPick splits a "quantity,productID" payload.
func parseQuantityPick(payload string) (quantity int, productID string, ok bool) {
	qty, id, found := strings.Cut(payload, ",")
	if !found || id == "" {
		return 0, "", false
	}
	n, err := strconv.Atoi(qty)
	if err != nil || n <= 0 {
		return 0, "", false
	}
	return n, id, true
}

// cartRef maps a chat to its cart on the backend.
func cartRef(chatID int64) string {
	return strconv.FormatInt(chatID, 10)
}
