package invites

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/innercirclehq/innercircle/internal/members"
)

// memStore is a mutex-atomic in-memory Store used by the engine tests.
// Holding one lock per operation gives it the same atomicity the
// Postgres store gets from conditional UPDATEs and transactions.
type memStore struct {
	mu         sync.Mutex
	membersByI map[uuid.UUID]*members.Member
	byTelegram map[int64]uuid.UUID
	invitesByI map[uuid.UUID]*members.Invite
	byCode     map[string]uuid.UUID
	groups     map[string]bool
}

func newMemStore() *memStore {
	return &memStore{
		membersByI: make(map[uuid.UUID]*members.Member),
		byTelegram: make(map[int64]uuid.UUID),
		invitesByI: make(map[uuid.UUID]*members.Invite),
		byCode:     make(map[string]uuid.UUID),
		groups:     make(map[string]bool),
	}
}

func copyMember(m *members.Member) *members.Member {
	c := *m
	return &c
}

func copyInvite(i *members.Invite) *members.Invite {
	c := *i
	return &c
}

func (s *memStore) MemberByTelegramID(_ context.Context, telegramID int64) (*members.Member, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.byTelegram[telegramID]
	if !ok {
		return nil, members.ErrMemberNotFound
	}
	return copyMember(s.membersByI[id]), nil
}

func (s *memStore) MemberByID(_ context.Context, id uuid.UUID) (*members.Member, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.membersByI[id]
	if !ok {
		return nil, members.ErrMemberNotFound
	}
	return copyMember(m), nil
}

func (s *memStore) CreateMember(_ context.Context, nm members.NewMember) (*members.Member, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.createMemberLocked(nm)
}

func (s *memStore) createMemberLocked(nm members.NewMember) (*members.Member, error) {
	if _, ok := s.byTelegram[nm.TelegramID]; ok {
		return nil, members.ErrMemberExists
	}

	m := &members.Member{
		ID:               uuid.New(),
		TelegramID:       nm.TelegramID,
		TelegramUsername: nm.TelegramUsername,
		TelegramName:     nm.TelegramName,
		IsFoundingMember: nm.IsFoundingMember,
		InvitedBy:        nm.InvitedBy,
		InvitesRemaining: nm.InvitesRemaining,
		JoinedAt:         time.Now().UTC(),
	}
	s.membersByI[m.ID] = m
	s.byTelegram[m.TelegramID] = m.ID
	return copyMember(m), nil
}

func (s *memStore) UpsertMember(_ context.Context, nm members.NewMember) (*members.Member, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if id, ok := s.byTelegram[nm.TelegramID]; ok {
		return copyMember(s.membersByI[id]), nil
	}
	return s.createMemberLocked(nm)
}

func (s *memStore) DecrementInvites(_ context.Context, id uuid.UUID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.membersByI[id]
	if !ok || m.InvitesRemaining <= 0 {
		return false, nil
	}
	m.InvitesRemaining--
	return true, nil
}

func (s *memStore) CreateInvite(_ context.Context, createdBy uuid.UUID, targetUsername *string) (*members.Invite, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	code, err := GenerateCode()
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	inv := &members.Invite{
		ID:             uuid.New(),
		Code:           code,
		CreatedBy:      createdBy,
		TargetUsername: targetUsername,
		CreatedAt:      now,
		ExpiresAt:      now.Add(members.InviteTTL),
	}
	s.invitesByI[inv.ID] = inv
	s.byCode[inv.Code] = inv.ID
	return copyInvite(inv), nil
}

func (s *memStore) InviteByCode(_ context.Context, code string) (*members.Invite, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.byCode[code]
	if !ok {
		return nil, members.ErrInviteNotFound
	}
	return copyInvite(s.invitesByI[id]), nil
}

func (s *memStore) MarkInviteUsed(_ context.Context, inviteID, usedBy uuid.UUID) (*members.Invite, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	inv, ok := s.invitesByI[inviteID]
	if !ok {
		return nil, members.ErrInviteNotFound
	}
	if inv.UsedBy != nil {
		return nil, members.ErrInviteUsed
	}

	now := time.Now().UTC()
	inv.UsedBy = &usedBy
	inv.UsedAt = &now
	return copyInvite(inv), nil
}

func (s *memStore) RedeemInvite(_ context.Context, code string, nm members.NewMember) (*members.Member, *members.Invite, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.byCode[code]
	if !ok {
		return nil, nil, members.ErrInviteNotFound
	}
	inv := s.invitesByI[id]

	if inv.UsedBy != nil {
		return nil, nil, members.ErrInviteUsed
	}
	if !time.Now().UTC().Before(inv.ExpiresAt) {
		return nil, nil, members.ErrInviteExpired
	}

	m, err := s.createMemberLocked(nm)
	if err != nil {
		return nil, nil, err
	}

	now := time.Now().UTC()
	inv.UsedBy = &m.ID
	inv.UsedAt = &now
	return m, copyInvite(inv), nil
}

func (s *memStore) InvitesCreatedBy(_ context.Context, memberID uuid.UUID) ([]members.Invite, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []members.Invite
	for _, inv := range s.invitesByI {
		if inv.CreatedBy == memberID {
			out = append(out, *copyInvite(inv))
		}
	}
	// Newest first, matching the Postgres store's ORDER BY.
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (s *memStore) Stats(_ context.Context) (members.Stats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var stats members.Stats
	for _, m := range s.membersByI {
		stats.Total++
		if m.IsFoundingMember {
			stats.Founding++
		} else {
			stats.Invited++
		}
	}
	return stats, nil
}

func (s *memStore) AddSeededGroup(_ context.Context, chatID, _ string, _ uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.groups[chatID] = true
	return nil
}

func (s *memStore) IsSeededGroup(_ context.Context, chatID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.groups[chatID], nil
}

// backdateInvite shifts an invite's creation time so list ordering can
// be asserted deterministically.
func (s *memStore) backdateInvite(code string, d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if id, ok := s.byCode[code]; ok {
		s.invitesByI[id].CreatedAt = s.invitesByI[id].CreatedAt.Add(-d)
	}
}

// expireInvite backdates an invite so expiry paths can be tested.
func (s *memStore) expireInvite(code string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if id, ok := s.byCode[code]; ok {
		s.invitesByI[id].ExpiresAt = time.Now().UTC().Add(-time.Minute)
	}
}

// quotaOf reads a member's live quota directly.
func (s *memStore) quotaOf(telegramID int64) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.membersByI[s.byTelegram[telegramID]].InvitesRemaining
}
