package invites

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/innercirclehq/innercircle/internal/members"
)

func seedFounder(t *testing.T, e *Engine, telegramID int64, name string) *members.Member {
	t.Helper()

	m, err := e.SeedFoundingMember(context.Background(), Profile{
		TelegramID: telegramID,
		FirstName:  name,
	})
	require.NoError(t, err)
	return m
}

func TestRequestInvite_HappyPath(t *testing.T) {
	store := newMemStore()
	e := NewEngine(store)
	founder := seedFounder(t, e, 100, "Ada")

	invite, remaining, err := e.RequestInvite(context.Background(), 100, "")
	require.NoError(t, err)
	require.Equal(t, founder.ID, invite.CreatedBy)
	require.Nil(t, invite.TargetUsername)
	require.Nil(t, invite.UsedBy)
	require.Equal(t, 1, remaining)
	require.Equal(t, 1, store.quotaOf(100))

	// Expiry is stamped seven days out from creation.
	require.WithinDuration(t, invite.CreatedAt.Add(members.InviteTTL), invite.ExpiresAt, time.Second)
}

func TestRequestInvite_TargetUsernameNormalized(t *testing.T) {
	e := NewEngine(newMemStore())
	seedFounder(t, e, 100, "Ada")

	invite, _, err := e.RequestInvite(context.Background(), 100, "@grace")
	require.NoError(t, err)
	require.NotNil(t, invite.TargetUsername)
	require.Equal(t, "grace", *invite.TargetUsername)
}

func TestRequestInvite_NotAMember(t *testing.T) {
	e := NewEngine(newMemStore())

	_, _, err := e.RequestInvite(context.Background(), 999, "")
	require.ErrorIs(t, err, ErrNotAMember)
}

func TestRequestInvite_QuotaExhausted(t *testing.T) {
	e := NewEngine(newMemStore())
	seedFounder(t, e, 100, "Ada")

	for i := 0; i < members.DefaultInviteQuota; i++ {
		_, _, err := e.RequestInvite(context.Background(), 100, "")
		require.NoError(t, err)
	}

	_, _, err := e.RequestInvite(context.Background(), 100, "")
	require.ErrorIs(t, err, ErrQuotaExhausted)
}

func TestRequestInvite_ConcurrentNeverNegative(t *testing.T) {
	store := newMemStore()
	e := NewEngine(store)
	seedFounder(t, e, 100, "Ada")

	const attempts = 20

	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, _ = e.RequestInvite(context.Background(), 100, "")
		}()
	}
	wg.Wait()

	require.GreaterOrEqual(t, store.quotaOf(100), 0)
}

func TestRedeemInvite_HappyPath(t *testing.T) {
	store := newMemStore()
	e := NewEngine(store)
	founder := seedFounder(t, e, 100, "Ada")

	invite, _, err := e.RequestInvite(context.Background(), 100, "")
	require.NoError(t, err)

	newMember, claimed, err := e.RedeemInvite(context.Background(), invite.Code, Profile{
		TelegramID: 200,
		Username:   "grace",
		FirstName:  "Grace",
		LastName:   "Hopper",
	})
	require.NoError(t, err)

	require.False(t, newMember.IsFoundingMember)
	require.NotNil(t, newMember.InvitedBy)
	require.Equal(t, founder.ID, *newMember.InvitedBy)
	require.Equal(t, members.DefaultInviteQuota, newMember.InvitesRemaining)
	require.Equal(t, "Grace Hopper", newMember.DisplayName())

	require.NotNil(t, claimed.UsedBy)
	require.Equal(t, newMember.ID, *claimed.UsedBy)
	require.NotNil(t, claimed.UsedAt)
}

func TestRedeemInvite_InvalidCode(t *testing.T) {
	e := NewEngine(newMemStore())

	_, _, err := e.RedeemInvite(context.Background(), "not a code", Profile{TelegramID: 200})
	require.ErrorIs(t, err, ErrInvalidCode)

	// Well-formed but unknown.
	_, _, err = e.RedeemInvite(context.Background(), "ABCDEFGH", Profile{TelegramID: 200})
	require.ErrorIs(t, err, ErrInvalidCode)
}

func TestRedeemInvite_AlreadyUsed(t *testing.T) {
	e := NewEngine(newMemStore())
	seedFounder(t, e, 100, "Ada")

	invite, _, err := e.RequestInvite(context.Background(), 100, "")
	require.NoError(t, err)

	_, _, err = e.RedeemInvite(context.Background(), invite.Code, Profile{TelegramID: 200, FirstName: "Grace"})
	require.NoError(t, err)

	// Repeating with the same code always fails AlreadyUsed.
	for i := 0; i < 3; i++ {
		_, _, err = e.RedeemInvite(context.Background(), invite.Code, Profile{TelegramID: int64(300 + i)})
		require.ErrorIs(t, err, ErrAlreadyUsed)
	}
}

func TestRedeemInvite_Expired(t *testing.T) {
	store := newMemStore()
	e := NewEngine(store)
	seedFounder(t, e, 100, "Ada")

	invite, _, err := e.RequestInvite(context.Background(), 100, "")
	require.NoError(t, err)

	store.expireInvite(invite.Code)

	_, _, err = e.RedeemInvite(context.Background(), invite.Code, Profile{TelegramID: 200})
	require.ErrorIs(t, err, ErrExpired)

	// No member was created for the failed redemption.
	_, err = store.MemberByTelegramID(context.Background(), 200)
	require.ErrorIs(t, err, members.ErrMemberNotFound)
}

func TestRedeemInvite_ConcurrentExactlyOneWins(t *testing.T) {
	store := newMemStore()
	e := NewEngine(store)
	seedFounder(t, e, 100, "Ada")

	invite, _, err := e.RequestInvite(context.Background(), 100, "")
	require.NoError(t, err)

	const redeemers = 10

	var wg sync.WaitGroup
	results := make(chan error, redeemers)
	for i := 0; i < redeemers; i++ {
		telegramID := int64(200 + i)
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, err := e.RedeemInvite(context.Background(), invite.Code, Profile{TelegramID: telegramID})
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	succeeded := 0
	alreadyUsed := 0
	for err := range results {
		switch {
		case err == nil:
			succeeded++
		default:
			require.ErrorIs(t, err, ErrAlreadyUsed)
			alreadyUsed++
		}
	}
	require.Equal(t, 1, succeeded)
	require.Equal(t, redeemers-1, alreadyUsed)

	// Exactly one new member exists besides the founder.
	stats, err := store.Stats(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, stats.Total)
	require.Equal(t, 1, stats.Invited)
}

func TestSeedFoundingMember_Idempotent(t *testing.T) {
	store := newMemStore()
	e := NewEngine(store)

	first, err := e.SeedFoundingMember(context.Background(), Profile{TelegramID: 100, FirstName: "Ada"})
	require.NoError(t, err)
	require.True(t, first.IsFoundingMember)
	require.Nil(t, first.InvitedBy)
	require.Equal(t, members.DefaultInviteQuota, first.InvitesRemaining)

	// Spend quota, then seed again: the record must come back unchanged.
	_, _, err = e.RequestInvite(context.Background(), 100, "")
	require.NoError(t, err)

	second, err := e.SeedFoundingMember(context.Background(), Profile{TelegramID: 100, FirstName: "Ada"})
	require.NoError(t, err)
	require.Equal(t, first.ID, second.ID)
	require.Equal(t, 1, second.InvitesRemaining)
	require.True(t, second.IsFoundingMember)

	stats, err := store.Stats(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, stats.Total)
}

func TestInvitesCreatedBy_NewestFirst(t *testing.T) {
	store := newMemStore()
	e := NewEngine(store)
	founder := seedFounder(t, e, 100, "Ada")

	oldest, err := store.CreateInvite(context.Background(), founder.ID, nil)
	require.NoError(t, err)
	middle, err := store.CreateInvite(context.Background(), founder.ID, nil)
	require.NoError(t, err)
	newest, err := store.CreateInvite(context.Background(), founder.ID, nil)
	require.NoError(t, err)

	store.backdateInvite(oldest.Code, 2*time.Hour)
	store.backdateInvite(middle.Code, time.Hour)

	issued, err := store.InvitesCreatedBy(context.Background(), founder.ID)
	require.NoError(t, err)
	require.Len(t, issued, 3)
	require.Equal(t, newest.Code, issued[0].Code)
	require.Equal(t, middle.Code, issued[1].Code)
	require.Equal(t, oldest.Code, issued[2].Code)
}

func TestInviterName(t *testing.T) {
	store := newMemStore()
	e := NewEngine(store)
	seedFounder(t, e, 100, "Ada")

	invite, _, err := e.RequestInvite(context.Background(), 100, "")
	require.NoError(t, err)

	invited, _, err := e.RedeemInvite(context.Background(), invite.Code, Profile{TelegramID: 200, FirstName: "Grace"})
	require.NoError(t, err)

	require.Equal(t, "Ada", e.InviterName(context.Background(), invited))

	founder, err := store.MemberByTelegramID(context.Background(), 100)
	require.NoError(t, err)
	require.Equal(t, "", e.InviterName(context.Background(), founder))
}
