package members

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var (
	// ErrMemberNotFound is returned when no member matches the lookup.
	ErrMemberNotFound = errors.New("member not found")

	// ErrMemberExists is returned when a telegram id is already registered.
	ErrMemberExists = errors.New("member already exists")

	// ErrInviteNotFound is returned when no invite matches the code.
	ErrInviteNotFound = errors.New("invite not found")

	// ErrInviteUsed is returned when an invite has already been redeemed.
	ErrInviteUsed = errors.New("invite already used")

	// ErrInviteExpired is returned when an invite is past its expiry.
	ErrInviteExpired = errors.New("invite expired")
)

// Store is the persistence contract for members and invites. All
// cross-request invariants (unique telegram id, quota never negative,
// invite used at most once) are enforced by the store's atomic
// primitives, never by process-local locks: multiple bot instances may
// run against the same database.
type Store interface {
	MemberByTelegramID(ctx context.Context, telegramID int64) (*Member, error)
	MemberByID(ctx context.Context, id uuid.UUID) (*Member, error)

	// CreateMember fails with ErrMemberExists when the telegram id is
	// already present. The unique constraint is the only concurrency
	// guard needed for member creation.
	CreateMember(ctx context.Context, nm NewMember) (*Member, error)

	// UpsertMember returns the existing record unchanged when the
	// telegram id is already present, so repeated bulk seeding never
	// resets quota or the founding flag.
	UpsertMember(ctx context.Context, nm NewMember) (*Member, error)

	// DecrementInvites atomically spends one unit of quota. Returns
	// false, with no change, when the quota is already zero.
	DecrementInvites(ctx context.Context, id uuid.UUID) (bool, error)

	// CreateInvite generates a fresh unique code, retrying generation
	// on a uniqueness conflict, and stamps expiry.
	CreateInvite(ctx context.Context, createdBy uuid.UUID, targetUsername *string) (*Invite, error)

	InviteByCode(ctx context.Context, code string) (*Invite, error)

	// MarkInviteUsed claims the invite for usedBy. First writer wins;
	// a second claim fails with ErrInviteUsed.
	MarkInviteUsed(ctx context.Context, inviteID, usedBy uuid.UUID) (*Invite, error)

	// RedeemInvite atomically claims the invite and creates the new
	// member in one transaction keyed on the invite row. Exactly one of
	// two concurrent redemptions of the same code succeeds.
	RedeemInvite(ctx context.Context, code string, nm NewMember) (*Member, *Invite, error)

	// InvitesCreatedBy lists a member's invites, newest first.
	InvitesCreatedBy(ctx context.Context, memberID uuid.UUID) ([]Invite, error)

	Stats(ctx context.Context) (Stats, error)

	AddSeededGroup(ctx context.Context, chatID, chatTitle string, seededBy uuid.UUID) error
	IsSeededGroup(ctx context.Context, chatID string) (bool, error)
}
