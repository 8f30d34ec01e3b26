package bot

import (
	telegram "github.com/m3rciful/shopbot/core/telegram"
	tghelpers "github.com/m3rciful/shopbot/core/telegram/helpers"
	"github.com/m3rciful/shopbot/dialog"

	tele "gopkg.in/telebot.v4"
)

// Routes binds the two inbound endpoints to the dispatch pool. All dispatch
// outcomes are logged inside the pool and machine; nothing propagates back to
// telebot, so a failed handler never produces the framework's error reply.
func Routes(pool *dialog.Pool) []telegram.Route {
	return []telegram.Route{
		{
			Endpoint: tele.OnText,
			Handler: func(c tele.Context) error {
				ctx := tghelpers.WithHandler(c, "dialog.text")
				_ = pool.Submit(ctx, eventFromText(c))
				return nil
			},
		},
		{
			Endpoint: tele.OnCallback,
			Handler: func(c tele.Context) error {
				ctx := tghelpers.WithHandler(c, "dialog.callback")
				// Ack the press first so the client spinner clears even
				// when dispatch is queued behind earlier events.
				_ = c.Respond()
				_ = pool.Submit(ctx, eventFromCallback(c))
				return nil
			},
		},
	}
}
