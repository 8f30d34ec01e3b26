package bot

import (
	"bytes"
	"context"
	"errors"
	"strconv"
	"sync/atomic"

	"github.com/m3rciful/shopbot/core/telegram/keyboard"
	"github.com/m3rciful/shopbot/dialog"

	tele "gopkg.in/telebot.v4"
)

// ErrNotBound means a send was attempted before the bot came up.
var ErrNotBound = errors.New("bot: transport not bound")

// Transport delivers dialog output through the Telegram API. It is created
// before the bot exists and bound once the bot is up, so the handler wiring
// does not depend on startup order.
type Transport struct {
	bot atomic.Pointer[tele.Bot]
}

// NewTransport returns an unbound transport. Sends fail until Bind.
func NewTransport() *Transport {
	return &Transport{}
}

// Bind attaches the live bot instance.
func (t *Transport) Bind(b *tele.Bot) {
	t.bot.Store(b)
}

func (t *Transport) client() (*tele.Bot, error) {
	b := t.bot.Load()
	if b == nil {
		return nil, ErrNotBound
	}
	return b, nil
}

// SendText delivers a Markdown message with an optional inline keyboard.
func (t *Transport) SendText(ctx context.Context, chatID int64, text string, kb [][]dialog.Button) (int, error) {
	b, err := t.client()
	if err != nil {
		return 0, err
	}
	msg, err := b.Send(tele.ChatID(chatID), text, sendOptions(kb)...)
	if err != nil {
		return 0, err
	}
	return msg.ID, nil
}

// SendPhoto delivers an image with a Markdown caption and an optional inline
// keyboard.
func (t *Transport) SendPhoto(ctx context.Context, chatID int64, image []byte, caption string, kb [][]dialog.Button) (int, error) {
	b, err := t.client()
	if err != nil {
		return 0, err
	}
	photo := &tele.Photo{
		File:    tele.FromReader(bytes.NewReader(image)),
		Caption: caption,
	}
	msg, err := b.Send(tele.ChatID(chatID), photo, sendOptions(kb)...)
	if err != nil {
		return 0, err
	}
	return msg.ID, nil
}

// DeleteMessage removes a previously sent message.
func (t *Transport) DeleteMessage(ctx context.Context, chatID int64, messageID int) error {
	b, err := t.client()
	if err != nil {
		return err
	}
	return b.Delete(tele.StoredMessage{
		MessageID: strconv.Itoa(messageID),
		ChatID:    chatID,
	})
}

func sendOptions(kb [][]dialog.Button) []any {
	opts := []any{tele.ModeMarkdown}
	if len(kb) == 0 {
		return opts
	}
	rows := make([][]keyboard.InlineBtn, len(kb))
	for i, row := range kb {
		r := make([]keyboard.InlineBtn, len(row))
		for j, btn := range row {
			r[j] = keyboard.InlineBtn{Text: btn.Text, Data: btn.Data}
		}
		rows[i] = r
	}
	return append(opts, keyboard.InlineButtonsRows(rows...))
}
