package bot

import (
	"errors"
	"fmt"
	"strings"

	"log/slog"

	tele "gopkg.in/telebot.v4"

	"gatebot/core/logger"
	"gatebot/core/telegram/format"
	tghelpers "gatebot/core/telegram/helpers"
	"gatebot/core/telegram/keyboard"
	"gatebot/core/telegram/state"

	"gatebot/internal/domain"
	"gatebot/internal/service"
)

// StateBroadcastCompose marks an admin who started /broadcast without text
// and is expected to send the announcement as the next message.
const StateBroadcastCompose = state.State("broadcast_compose")

const callbackCheckJoin = "check_join"

// Handlers binds the service layer to bot updates.
type Handlers struct {
	access    *service.AccessService
	gate      *service.DownloadGate
	caster    *service.Broadcaster
	users     domain.UserRepository
	downloads domain.DownloadRepository
	gw        *Gateway
	fsm       state.Manager
	adminID   int64
}

// NewHandlers wires the update handlers.
func NewHandlers(
	access *service.AccessService,
	gate *service.DownloadGate,
	caster *service.Broadcaster,
	users domain.UserRepository,
	downloads domain.DownloadRepository,
	gw *Gateway,
	fsm state.Manager,
	adminID int64,
) *Handlers {
	return &Handlers{
		access:    access,
		gate:      gate,
		caster:    caster,
		users:     users,
		downloads: downloads,
		gw:        gw,
		fsm:       fsm,
		adminID:   adminID,
	}
}

// Start registers the sender and runs the membership check. The /start payload
// may carry a referral code; it only matters on first contact.
func (h *Handlers) Start(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	sender := c.Sender()
	chat := c.Chat()
	if sender == nil || chat == nil {
		return nil
	}

	payload := ""
	if msg := c.Message(); msg != nil {
		payload = strings.TrimSpace(msg.Payload)
	}

	if _, err := h.access.Register(ctx, sender.ID, chat.ID, payload); err != nil {
		logger.Error(ctx, "tg", "start.register",
			slog.Int64("user_id", sender.ID),
			slog.String("err", err.Error()),
		)
		return tghelpers.SendText(c, msgVerifyUnavailable)
	}

	return h.runMembershipCheck(c)
}

// Check re-runs the membership probe and, if it passes, reports the token.
func (h *Handlers) Check(c tele.Context) error {
	return h.runMembershipCheck(c)
}

// CheckCallback handles the «I joined» inline button.
func (h *Handlers) CheckCallback(c tele.Context) error {
	return h.runMembershipCheck(c)
}

func (h *Handlers) runMembershipCheck(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	sender := c.Sender()
	if sender == nil {
		return nil
	}

	ok, err := h.access.ConfirmMembership(ctx, sender.ID)
	switch {
	case errors.Is(err, domain.ErrNotRegistered):
		return tghelpers.SendText(c, msgNotRegistered)
	case err != nil:
		return tghelpers.SendText(c, msgVerifyUnavailable)
	case !ok:
		return h.sendJoinPrompt(c, msgMembershipMissing)
	}

	grant, err := h.access.Evaluate(ctx, sender.ID)
	if err != nil {
		return tghelpers.SendText(c, msgVerifyUnavailable)
	}
	return h.sendGrant(c, &grant, sender.ID)
}

func (h *Handlers) sendJoinPrompt(c tele.Context, text string) error {
	markup := keyboard.InlineButtonsRows(
		[]keyboard.InlineBtn{{Text: "📢 Join the channel", URL: h.gw.JoinLink()}},
		[]keyboard.InlineBtn{{Text: "✅ I joined", Unique: callbackCheckJoin}},
	)
	if text == "" {
		text = msgJoinPrompt
	}
	return tghelpers.SendText(c, text, &tele.SendOptions{ReplyMarkup: markup})
}

func (h *Handlers) sendGrant(c tele.Context, grant *service.Grant, userID int64) error {
	link := ""
	if username := h.gw.BotUsername(); username != "" {
		link = domain.ReferralLink(username, userID)
	}
	return tghelpers.SendText(c, grantMessage(grant, link))
}

// Download treats any plain text as a download request and gates it on the
// sender's access state.
func (h *Handlers) Download(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	sender := c.Sender()
	if sender == nil {
		return nil
	}

	url := strings.TrimSpace(c.Text())
	if url == "" {
		return tghelpers.SendText(c, msgDownloadUsage)
	}

	res, err := h.gate.Request(ctx, sender.ID, url)
	switch {
	case errors.Is(err, domain.ErrNotRegistered):
		return tghelpers.SendText(c, msgNotRegistered)
	case errors.Is(err, domain.ErrMembershipPending):
		return h.sendJoinPrompt(c, msgJoinPrompt)
	case errors.Is(err, domain.ErrTokenExpired):
		return tghelpers.SendText(c, msgTokenExpired)
	case err != nil:
		return tghelpers.SendText(c, msgDownloadFailed)
	}

	if err := tghelpers.SendText(c, downloadReadyMessage(res)); err != nil {
		return err
	}

	h.notifyAdminDownload(c, sender, res)
	return nil
}

// notifyAdminDownload tells the operator about an admitted download. Delivery
// is best effort; the user already has their link.
func (h *Handlers) notifyAdminDownload(c tele.Context, sender *tele.User, res *service.DownloadResult) {
	if h.adminID == 0 || sender.ID == h.adminID {
		return
	}
	ctx := tghelpers.BuildContext(c)

	escaped, err := format.EscapeMarkdown(res.SourceURL, format.MarkdownV2, "")
	if err != nil {
		escaped = ""
	}
	text := fmt.Sprintf("📥 New download\nUser: `%d`\nURL: %s", sender.ID, escaped)
	if err := h.gw.SendMarkdownV2(ctx, h.adminID, text); err != nil {
		logger.Warn(ctx, "tg", "download.notify_admin",
			slog.Int64("user_id", sender.ID),
			slog.String("err", err.Error()),
		)
	}
}

// Broadcast handles /broadcast. With inline text it fans out immediately;
// without, it switches the admin into the compose state.
func (h *Handlers) Broadcast(c tele.Context) error {
	sender := c.Sender()
	if sender == nil {
		return nil
	}

	text := ""
	if msg := c.Message(); msg != nil {
		text = strings.TrimSpace(msg.Payload)
	}
	if text == "" {
		h.fsm.SetState(sender.ID, StateBroadcastCompose)
		return tghelpers.SendText(c, msgBroadcastUsage)
	}
	return h.runBroadcast(c, text)
}

// BroadcastCompose consumes the next message from an admin in the compose state.
func (h *Handlers) BroadcastCompose(c tele.Context) error {
	sender := c.Sender()
	if sender == nil {
		return nil
	}
	h.fsm.ClearState(sender.ID)

	text := strings.TrimSpace(c.Text())
	if text == "" || strings.EqualFold(text, "/cancel") {
		return tghelpers.SendText(c, msgBroadcastCancelled)
	}
	return h.runBroadcast(c, text)
}

func (h *Handlers) runBroadcast(c tele.Context, text string) error {
	ctx := tghelpers.BuildContext(c)
	sender := c.Sender()

	rep, err := h.caster.Broadcast(ctx, sender.ID, text)
	if errors.Is(err, domain.ErrUnauthorized) {
		return tghelpers.SendText(c, msgUnauthorized)
	}
	if err != nil {
		return tghelpers.SendText(c, msgVerifyUnavailable)
	}
	return tghelpers.SendText(c, broadcastReportMessage(&rep))
}

// Stats reports aggregate counters to the operator.
func (h *Handlers) Stats(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)

	users, err := h.users.Count(ctx)
	if err != nil {
		return err
	}
	downloads, err := h.downloads.Count(ctx)
	if err != nil {
		return err
	}
	return tghelpers.SendText(c, statsMessage(users, downloads))
}

// RejectUnauthorized is invoked by the admin-only middleware for everyone else.
func (h *Handlers) RejectUnauthorized(c tele.Context) error {
	return tghelpers.SendText(c, msgUnauthorized)
}
