package bot

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"

	tele "gopkg.in/telebot.v4"

	"gatebot/internal/service"
)

// Gateway adapts the running telebot instance to the service-layer contracts:
// it is both the membership Verifier and the broadcast MessageSender. The bot
// handle is bound once the runtime is up, before any update is processed.
type Gateway struct {
	channelName string

	bot     atomic.Pointer[tele.Bot]
	channel atomic.Pointer[tele.Chat]
}

// NewGateway creates an unbound gateway for the given gating channel username.
func NewGateway(channel string) *Gateway {
	return &Gateway{channelName: channel}
}

// Bind resolves the gating channel and stores the bot handle. Called from the
// runtime OnStart hook.
func (g *Gateway) Bind(b *tele.Bot) error {
	if b == nil {
		return fmt.Errorf("gateway: nil bot")
	}
	chat, err := b.ChatByUsername(g.channelName)
	if err != nil {
		return fmt.Errorf("gateway: resolve gating channel %s: %w", g.channelName, err)
	}
	g.bot.Store(b)
	g.channel.Store(chat)
	return nil
}

func (g *Gateway) ready() (*tele.Bot, *tele.Chat, error) {
	b := g.bot.Load()
	ch := g.channel.Load()
	if b == nil || ch == nil {
		return nil, nil, fmt.Errorf("gateway: not bound")
	}
	return b, ch, nil
}

// Verify probes the platform for the user's membership in the gating channel.
// Probe failures surface as errors, never as a negative determination.
func (g *Gateway) Verify(ctx context.Context, userID int64) (service.Membership, error) {
	b, ch, err := g.ready()
	if err != nil {
		return service.NotMember, err
	}
	if err := ctx.Err(); err != nil {
		return service.NotMember, err
	}

	member, err := b.ChatMemberOf(ch, &tele.User{ID: userID})
	if err != nil {
		return service.NotMember, fmt.Errorf("gateway: chat member probe: %w", err)
	}
	switch member.Role {
	case tele.Creator, tele.Administrator, tele.Member:
		return service.Member, nil
	default:
		return service.NotMember, nil
	}
}

// Send delivers one plain-text message to a chat.
func (g *Gateway) Send(ctx context.Context, chatID int64, text string) error {
	b := g.bot.Load()
	if b == nil {
		return fmt.Errorf("gateway: not bound")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := b.Send(tele.ChatID(chatID), text)
	return err
}

// SendMarkdownV2 delivers one MarkdownV2 message to a chat. Callers must
// escape any embedded user-controlled content.
func (g *Gateway) SendMarkdownV2(ctx context.Context, chatID int64, text string) error {
	b := g.bot.Load()
	if b == nil {
		return fmt.Errorf("gateway: not bound")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := b.Send(tele.ChatID(chatID), text, &tele.SendOptions{ParseMode: tele.ModeMarkdownV2})
	return err
}

// BotUsername returns the username of the bound bot, used for referral links.
func (g *Gateway) BotUsername() string {
	b := g.bot.Load()
	if b == nil || b.Me == nil {
		return ""
	}
	return b.Me.Username
}

// JoinLink returns the public URL of the gating channel.
func (g *Gateway) JoinLink() string {
	return "https://t.me/" + strings.TrimPrefix(g.channelName, "@")
}
