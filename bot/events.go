package bot

import (
	"strings"

	"github.com/m3rciful/shopbot/dialog"

	tele "gopkg.in/telebot.v4"
)

// eventFromText converts an inbound text message.
func eventFromText(c tele.Context) dialog.Event {
	ev := dialog.Event{Text: c.Text()}
	if chat := c.Chat(); chat != nil {
		ev.ChatID = chat.ID
	}
	if msg := c.Message(); msg != nil {
		ev.MessageID = msg.ID
	}
	return ev
}

// eventFromCallback converts a button press. The message id is the message
// carrying the pressed keyboard, which handlers may delete when replacing it.
func eventFromCallback(c tele.Context) dialog.Event {
	ev := dialog.Event{Callback: true}
	cb := c.Callback()
	if cb == nil {
		return ev
	}
	// Keyboards attach raw payloads, but telebot prefixes unique-key
	// callbacks with \f. Strip it so dispatch sees the payload either way.
	ev.Data = strings.TrimPrefix(cb.Data, "\f")
	if cb.Message != nil {
		ev.MessageID = cb.Message.ID
		if cb.Message.Chat != nil {
			ev.ChatID = cb.Message.Chat.ID
		}
	}
	return ev
}
