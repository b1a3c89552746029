// Package bot maps incoming Telegram commands onto the invite engine,
// the member store and the card renderer, and formats the replies.
package bot

import (
	"context"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog/log"

	"github.com/innercirclehq/innercircle/internal/card"
	"github.com/innercirclehq/innercircle/internal/invites"
	"github.com/innercirclehq/innercircle/internal/members"
)

// commandTimeout bounds the handling of a single update so one slow
// store call or photo fetch cannot pile up goroutines forever.
const commandTimeout = 30 * time.Second

// LongPollSeconds is the getUpdates long-poll window. The Bot API
// client's HTTP timeout must exceed it or polling would abort
// client-side before the server responds.
const LongPollSeconds = 30

// Bot dispatches Telegram updates. Each update is handled on its own
// goroutine: one user's card render never delays another user's
// redemption.
type Bot struct {
	api      *tgbotapi.BotAPI
	store    members.Store
	engine   *invites.Engine
	renderer *card.Renderer
}

// New creates the dispatcher over an authorized Bot API client.
func New(api *tgbotapi.BotAPI, store members.Store, engine *invites.Engine, renderer *card.Renderer) *Bot {
	return &Bot{
		api:      api,
		store:    store,
		engine:   engine,
		renderer: renderer,
	}
}

// Run consumes updates via long polling until ctx is canceled.
func (b *Bot) Run(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = LongPollSeconds

	updates := b.api.GetUpdatesChan(u)

	log.Info().Str("bot", b.api.Self.UserName).Msg("Bot is running")

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			msg := update.Message
			if msg == nil || !msg.IsCommand() || msg.From == nil {
				continue
			}
			go b.handle(ctx, msg)
		}
	}
}

func (b *Bot) handle(ctx context.Context, msg *tgbotapi.Message) {
	ctx, cancel := context.WithTimeout(ctx, commandTimeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Str("command", msg.Command()).Msg("Command handler panicked")
		}
	}()

	switch msg.Command() {
	case "start":
		b.handleStart(ctx, msg)
	case "invite":
		b.handleInvite(ctx, msg)
	case "card":
		b.handleCard(ctx, msg)
	case "status":
		b.handleStatus(ctx, msg)
	case "seedgroup":
		b.handleSeedGroup(ctx, msg)
	case "help":
		b.handleHelp(msg)
	}
}

func profileFrom(u *tgbotapi.User) invites.Profile {
	return invites.Profile{
		TelegramID: u.ID,
		Username:   u.UserName,
		FirstName:  u.FirstName,
		LastName:   u.LastName,
	}
}

func (b *Bot) reply(chatID int64, text string) {
	b.send(tgbotapi.NewMessage(chatID, text))
}

func (b *Bot) replyMarkdown(chatID int64, text string) {
	m := tgbotapi.NewMessage(chatID, text)
	m.ParseMode = tgbotapi.ModeMarkdown
	b.send(m)
}

func (b *Bot) send(c tgbotapi.Chattable) {
	if _, err := b.api.Send(c); err != nil {
		log.Warn().Err(err).Msg("Failed to send reply")
	}
}
