package members

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// DefaultInviteQuota is the number of invites every new member starts with.
const DefaultInviteQuota = 2

// Member represents one admitted member of the circle.
type Member struct {
	ID               uuid.UUID  `db:"id"`
	TelegramID       int64      `db:"telegram_id"`
	TelegramUsername *string    `db:"telegram_username"`
	TelegramName     *string    `db:"telegram_name"`
	IsFoundingMember bool       `db:"is_founding_member"`
	InvitedBy        *uuid.UUID `db:"invited_by"`
	InvitesRemaining int        `db:"invites_remaining"`
	JoinedAt         time.Time  `db:"joined_at"`
}

// DisplayName resolves the name shown on cards and in replies:
// full Telegram name, then username, then a generic fallback.
func (m *Member) DisplayName() string {
	if m.TelegramName != nil && strings.TrimSpace(*m.TelegramName) != "" {
		return strings.TrimSpace(*m.TelegramName)
	}
	if m.TelegramUsername != nil && strings.TrimSpace(*m.TelegramUsername) != "" {
		return strings.TrimSpace(*m.TelegramUsername)
	}
	return "Member"
}

// NewMember carries the fields needed to insert a member row.
type NewMember struct {
	TelegramID       int64
	TelegramUsername *string
	TelegramName     *string
	IsFoundingMember bool
	InvitedBy        *uuid.UUID
	InvitesRemaining int
}

// Invite is a single-use, time-limited admission code.
type Invite struct {
	ID             uuid.UUID  `db:"id"`
	Code           string     `db:"code"`
	CreatedBy      uuid.UUID  `db:"created_by"`
	TargetUsername *string    `db:"target_username"`
	CreatedAt      time.Time  `db:"created_at"`
	ExpiresAt      time.Time  `db:"expires_at"`
	UsedBy         *uuid.UUID `db:"used_by"`
	UsedAt         *time.Time `db:"used_at"`
}

// Redeemable reports whether the invite can still admit someone at
// the given instant. Expiry is derived here, never stored.
func (i *Invite) Redeemable(now time.Time) bool {
	return i.UsedBy == nil && now.Before(i.ExpiresAt)
}

// Stats aggregates membership counts for /status and the admin API.
type Stats struct {
	Total    int `json:"total"`
	Founding int `json:"founding"`
	Invited  int `json:"invited"`
}
