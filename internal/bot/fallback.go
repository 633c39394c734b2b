package bot

import (
	tele "gopkg.in/telebot.v4"

	tghelpers "gatebot/core/telegram/helpers"
	"gatebot/core/telegram/ui"
)

// fallbacks answers updates that match no command, callback, or state.
type fallbacks struct {
	h *Handlers
}

var _ ui.FallbackProvider = fallbacks{}

// UnknownText routes stray text into the download gate.
func (f fallbacks) UnknownText() tele.HandlerFunc {
	return f.h.Download
}

// UnknownDocument reminds the user the bot takes links, not files.
func (f fallbacks) UnknownDocument() tele.HandlerFunc {
	return func(c tele.Context) error {
		return tghelpers.SendText(c, msgDownloadUsage)
	}
}

// UnknownCallback quietly acknowledges stale buttons.
func (f fallbacks) UnknownCallback() tele.HandlerFunc {
	return func(c tele.Context) error {
		return c.Respond(&tele.CallbackResponse{})
	}
}
