// Package invites implements the invite lifecycle: code generation,
// quota enforcement, redemption and founding-member seeding, layered
// on the members store.
package invites

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/innercirclehq/innercircle/internal/members"
)

var (
	// ErrNotAMember is returned when the requester has no member record.
	ErrNotAMember = errors.New("not a member")

	// ErrQuotaExhausted is returned when the requester has no invites left.
	ErrQuotaExhausted = errors.New("no invites remaining")

	// ErrInvalidCode is returned when no invite matches the code.
	ErrInvalidCode = errors.New("invalid invite code")

	// ErrAlreadyUsed is returned when the invite was already redeemed.
	ErrAlreadyUsed = errors.New("invite already used")

	// ErrExpired is returned when the invite is past its expiry.
	ErrExpired = errors.New("invite expired")
)

// Profile carries the identity fields the chat platform supplies with
// an incoming command.
type Profile struct {
	TelegramID int64
	Username   string
	FirstName  string
	LastName   string
}

// FullName joins the profile's name parts, or "" when both are empty.
func (p Profile) FullName() string {
	name := strings.TrimSpace(strings.TrimSpace(p.FirstName) + " " + strings.TrimSpace(p.LastName))
	return name
}

// Engine enforces the invite lifecycle and quota rules.
type Engine struct {
	store members.Store
}

// NewEngine creates an invite engine on the given store.
func NewEngine(store members.Store) *Engine {
	return &Engine{store: store}
}

// RequestInvite issues a new invite for the member identified by
// telegramID, spending one unit of quota. remaining is the quota left
// after the request.
//
// The quota pre-check is optimistic; the atomic decrement is the
// authoritative guard. When two requests race on the last unit, both
// invites stay valid but the loser is reported zero remaining; an
// already-issued code is never silently invalidated.
func (e *Engine) RequestInvite(ctx context.Context, telegramID int64, targetUsername string) (*members.Invite, int, error) {
	requester, err := e.store.MemberByTelegramID(ctx, telegramID)
	if err != nil {
		if errors.Is(err, members.ErrMemberNotFound) {
			return nil, 0, ErrNotAMember
		}
		return nil, 0, fmt.Errorf("failed to load requester: %w", err)
	}

	if requester.InvitesRemaining <= 0 {
		return nil, 0, ErrQuotaExhausted
	}

	var target *string
	if t := strings.TrimPrefix(strings.TrimSpace(targetUsername), "@"); t != "" {
		target = &t
	}

	invite, err := e.store.CreateInvite(ctx, requester.ID, target)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to create invite: %w", err)
	}

	decremented, err := e.store.DecrementInvites(ctx, requester.ID)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to decrement invites: %w", err)
	}

	remaining := requester.InvitesRemaining - 1
	if !decremented {
		// Lost a race against a concurrent request on the last unit.
		log.Warn().
			Int64("telegram_id", telegramID).
			Str("code", invite.Code).
			Msg("Invite issued without quota decrement")
		remaining = 0
	}

	return invite, remaining, nil
}

// RedeemInvite converts a valid code into a new member record. The
// claim and the member insert happen in one store transaction, so of
// two concurrent redemptions of the same code exactly one succeeds.
func (e *Engine) RedeemInvite(ctx context.Context, code string, profile Profile) (*members.Member, *members.Invite, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if !ValidCodeFormat(code) {
		return nil, nil, ErrInvalidCode
	}

	invite, err := e.store.InviteByCode(ctx, code)
	if err != nil {
		if errors.Is(err, members.ErrInviteNotFound) {
			return nil, nil, ErrInvalidCode
		}
		return nil, nil, fmt.Errorf("failed to load invite: %w", err)
	}

	nm := newMemberFromProfile(profile, false)
	nm.InvitedBy = &invite.CreatedBy

	member, claimed, err := e.store.RedeemInvite(ctx, code, nm)
	if err != nil {
		switch {
		case errors.Is(err, members.ErrInviteNotFound):
			return nil, nil, ErrInvalidCode
		case errors.Is(err, members.ErrInviteUsed):
			return nil, nil, ErrAlreadyUsed
		case errors.Is(err, members.ErrInviteExpired):
			return nil, nil, ErrExpired
		case errors.Is(err, members.ErrMemberExists):
			return nil, nil, members.ErrMemberExists
		}
		return nil, nil, fmt.Errorf("failed to redeem invite: %w", err)
	}

	return member, claimed, nil
}

// SeedFoundingMember admits a member directly, bypassing the invite
// flow. Idempotent: an existing record keeps its quota and flags.
func (e *Engine) SeedFoundingMember(ctx context.Context, profile Profile) (*members.Member, error) {
	nm := newMemberFromProfile(profile, true)

	member, err := e.store.UpsertMember(ctx, nm)
	if err != nil {
		return nil, fmt.Errorf("failed to seed founding member: %w", err)
	}
	return member, nil
}

// InviterName resolves the display name of whoever invited m, or ""
// for founding members and when the lookup fails.
func (e *Engine) InviterName(ctx context.Context, m *members.Member) string {
	if m.InvitedBy == nil {
		return ""
	}

	inviter, err := e.store.MemberByID(ctx, *m.InvitedBy)
	if err != nil {
		log.Warn().Err(err).Str("member_id", m.ID.String()).Msg("Failed to resolve inviter")
		return ""
	}
	return inviter.DisplayName()
}

func newMemberFromProfile(p Profile, founding bool) members.NewMember {
	nm := members.NewMember{
		TelegramID:       p.TelegramID,
		IsFoundingMember: founding,
		InvitesRemaining: members.DefaultInviteQuota,
	}
	if u := strings.TrimSpace(p.Username); u != "" {
		nm.TelegramUsername = &u
	}
	if name := p.FullName(); name != "" {
		nm.TelegramName = &name
	}
	return nm
}
