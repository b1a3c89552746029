package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog/log"

	"github.com/innercirclehq/innercircle/internal/invites"
	"github.com/innercirclehq/innercircle/internal/members"
	"github.com/innercirclehq/innercircle/internal/telegram"
)

const commandList = "Commands:\n" +
	"/card - Get your member card\n" +
	"/invite - Create an invite link\n" +
	"/status - Check your status"

// handleStart is the entry point: welcome back for members, redemption
// when a code rides in as the start payload, and the invite-only pitch
// otherwise.
func (b *Bot) handleStart(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	firstName := msg.From.FirstName

	member, err := b.store.MemberByTelegramID(ctx, msg.From.ID)
	if err == nil {
		b.reply(chatID, fmt.Sprintf(
			"Welcome back to the Inner Circle, %s! 🎖️\n\n"+
				"You have %d invite(s) remaining.\n\n%s",
			firstName, member.InvitesRemaining, commandList,
		))
		return
	}
	if !errors.Is(err, members.ErrMemberNotFound) {
		b.failure(chatID, "start", err)
		return
	}

	code := strings.TrimSpace(msg.CommandArguments())
	if code == "" {
		b.reply(chatID, fmt.Sprintf(
			"👋 Hey %s!\n\nThe Inner Circle is invite-only.\nAsk a member for an invite to join!",
			firstName,
		))
		return
	}

	newMember, invite, err := b.engine.RedeemInvite(ctx, code, profileFrom(msg.From))
	if err != nil {
		switch {
		case errors.Is(err, invites.ErrInvalidCode):
			b.reply(chatID, "❌ Invalid invite code. Ask a member for a valid invite!")
		case errors.Is(err, invites.ErrAlreadyUsed):
			b.reply(chatID, "❌ This invite has already been used.")
		case errors.Is(err, invites.ErrExpired):
			b.reply(chatID, "❌ This invite has expired. Ask for a new one!")
		case errors.Is(err, members.ErrMemberExists):
			// Raced our own membership check; treat as a normal start.
			b.reply(chatID, fmt.Sprintf("Welcome back to the Inner Circle, %s! 🎖️", firstName))
		default:
			b.failure(chatID, "start", err)
		}
		return
	}

	log.Info().
		Str("code", invite.Code).
		Int64("telegram_id", msg.From.ID).
		Msg("Invite redeemed")

	inviterName := b.engine.InviterName(ctx, newMember)
	if inviterName == "" {
		inviterName = "a member"
	}

	b.reply(chatID, fmt.Sprintf(
		"🎉 Welcome to the Inner Circle, %s!\n\n"+
			"You were invited by %s.\n\n"+
			"You now have %d invites to share.\n\n%s",
		firstName, inviterName, newMember.InvitesRemaining, commandList,
	))
}

func (b *Bot) handleInvite(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID

	target := ""
	if args := strings.Fields(msg.CommandArguments()); len(args) > 0 {
		target = args[0]
	}

	invite, remaining, err := b.engine.RequestInvite(ctx, msg.From.ID, target)
	if err != nil {
		switch {
		case errors.Is(err, invites.ErrNotAMember):
			b.reply(chatID, "❌ You need to be a member to create invites.")
		case errors.Is(err, invites.ErrQuotaExhausted):
			b.reply(chatID, "❌ You have no invites remaining.")
		default:
			b.failure(chatID, "invite", err)
		}
		return
	}

	link := telegram.InviteLink(b.api.Self.UserName, invite.Code)

	var text string
	if invite.TargetUsername != nil {
		text = fmt.Sprintf(
			"🎟️ *Invite for @%s*\n\n`%s`\n\n"+
				"Share this with @%s\n⏰ Expires in 7 days\n\n"+
				"You have %d invite(s) remaining.",
			*invite.TargetUsername, link, *invite.TargetUsername, remaining,
		)
	} else {
		text = fmt.Sprintf(
			"🎟️ *Your Invite Link*\n\n`%s`\n\n"+
				"Share this link with someone to invite them.\n⏰ Expires in 7 days\n\n"+
				"You have %d invite(s) remaining.",
			link, remaining,
		)
	}
	b.replyMarkdown(chatID, text)
}

func (b *Bot) handleCard(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID

	member, err := b.store.MemberByTelegramID(ctx, msg.From.ID)
	if err != nil {
		if errors.Is(err, members.ErrMemberNotFound) {
			b.reply(chatID, "❌ You need to be a member to get a card.")
			return
		}
		b.failure(chatID, "card", err)
		return
	}

	b.reply(chatID, "🎨 Generating your card...")

	png, err := b.renderer.Render(ctx, member, b.engine.InviterName(ctx, member))
	if err != nil {
		log.Error().Err(err).Int64("telegram_id", msg.From.ID).Msg("Card render failed")
		b.reply(chatID, "Something went wrong generating your card. Please try again.")
		return
	}

	photo := tgbotapi.NewPhoto(chatID, tgbotapi.FileBytes{Name: "card.png", Bytes: png})
	photo.Caption = "✨ Your Inner Circle member card"
	b.send(photo)
}

func (b *Bot) handleStatus(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID

	member, err := b.store.MemberByTelegramID(ctx, msg.From.ID)
	if err != nil {
		if errors.Is(err, members.ErrMemberNotFound) {
			b.reply(chatID, "❌ You are not a member of the Inner Circle.")
			return
		}
		b.failure(chatID, "status", err)
		return
	}

	stats, err := b.store.Stats(ctx)
	if err != nil {
		b.failure(chatID, "status", err)
		return
	}

	issued, err := b.store.InvitesCreatedBy(ctx, member.ID)
	if err != nil {
		b.failure(chatID, "status", err)
		return
	}

	used := 0
	for _, inv := range issued {
		if inv.UsedBy != nil {
			used++
		}
	}

	tier := "Member"
	if member.IsFoundingMember {
		tier = "★ Founding Member"
	}

	b.replyMarkdown(chatID, fmt.Sprintf(
		"📊 *Your Status*\n\n"+
			"%s\nJoined: %s\nInvites remaining: %d\nPeople you've invited: %d\n\n"+
			"📈 *Circle Stats*\n"+
			"Total members: %d\nFounding members: %d\nInvited members: %d",
		tier, member.JoinedAt.Format("January 2, 2006"),
		member.InvitesRemaining, used,
		stats.Total, stats.Founding, stats.Invited,
	))
}

// handleSeedGroup bulk-admits the admins of a group chat as founding
// members. Idempotent per group: a second run changes nothing.
func (b *Bot) handleSeedGroup(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID

	if !msg.Chat.IsGroup() && !msg.Chat.IsSuperGroup() {
		b.reply(chatID, "❌ /seedgroup only works inside a group chat.")
		return
	}

	chatKey := strconv.FormatInt(chatID, 10)

	seeded, err := b.store.IsSeededGroup(ctx, chatKey)
	if err != nil {
		b.failure(chatID, "seedgroup", err)
		return
	}
	if seeded {
		b.reply(chatID, "This group has already been seeded.")
		return
	}

	admins, err := b.api.GetChatAdministrators(tgbotapi.ChatAdministratorsConfig{
		ChatConfig: tgbotapi.ChatConfig{ChatID: chatID},
	})
	if err != nil {
		b.failure(chatID, "seedgroup", err)
		return
	}

	count := 0
	var seeder *members.Member
	for _, admin := range admins {
		if admin.User == nil || admin.User.IsBot {
			continue
		}
		m, err := b.engine.SeedFoundingMember(ctx, profileFrom(admin.User))
		if err != nil {
			log.Warn().Err(err).Int64("telegram_id", admin.User.ID).Msg("Failed to seed group admin")
			continue
		}
		count++
		// Prefer the caller as the recorded seeder; any seeded admin
		// works when the caller is not one.
		if seeder == nil || admin.User.ID == msg.From.ID {
			seeder = m
		}
	}

	if count == 0 || seeder == nil {
		b.reply(chatID, "❌ No admins could be seeded.")
		return
	}

	if err := b.store.AddSeededGroup(ctx, chatKey, msg.Chat.Title, seeder.ID); err != nil {
		b.failure(chatID, "seedgroup", err)
		return
	}

	b.reply(chatID, fmt.Sprintf("🌱 Seeded %d founding member(s) from this group's admins.", count))
}

func (b *Bot) handleHelp(msg *tgbotapi.Message) {
	b.replyMarkdown(msg.Chat.ID,
		"🎖️ *Inner Circle Bot*\n\n"+
			"Commands:\n"+
			"/start - Join with invite or check status\n"+
			"/card - Get your shareable member card\n"+
			"/invite [@username] - Create an invite link\n"+
			"/status - View your stats\n"+
			"/help - Show this message",
	)
}

func (b *Bot) failure(chatID int64, command string, err error) {
	log.Error().Err(err).Str("command", command).Msg("Command failed")
	b.reply(chatID, "Something went wrong. Please try again.")
}
