package members

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// InviteTTL is how long an invite stays redeemable after creation.
const InviteTTL = 7 * 24 * time.Hour

const codeRetryAttempts = 3

const memberColumns = `id, telegram_id, telegram_username, telegram_name, is_founding_member, invited_by, invites_remaining, joined_at`

const inviteColumns = `id, code, created_by, target_username, created_at, expires_at, used_by, used_at`

// PGStore implements Store on a PostgreSQL pool.
type PGStore struct {
	pool *pgxpool.Pool

	// generateCode produces a candidate invite code; injected so the
	// store stays decoupled from the code alphabet.
	generateCode func() (string, error)
}

// NewPGStore creates a Postgres-backed store. generateCode is called
// (and retried on a uniqueness conflict) whenever an invite is created.
func NewPGStore(pool *pgxpool.Pool, generateCode func() (string, error)) *PGStore {
	return &PGStore{pool: pool, generateCode: generateCode}
}

func (s *PGStore) MemberByTelegramID(ctx context.Context, telegramID int64) (*Member, error) {
	query := `SELECT ` + memberColumns + ` FROM members WHERE telegram_id = $1`

	m, err := scanMember(s.pool.QueryRow(ctx, query, telegramID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrMemberNotFound
		}
		return nil, fmt.Errorf("failed to get member by telegram id: %w", err)
	}
	return m, nil
}

func (s *PGStore) MemberByID(ctx context.Context, id uuid.UUID) (*Member, error) {
	query := `SELECT ` + memberColumns + ` FROM members WHERE id = $1`

	m, err := scanMember(s.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrMemberNotFound
		}
		return nil, fmt.Errorf("failed to get member: %w", err)
	}
	return m, nil
}

func (s *PGStore) CreateMember(ctx context.Context, nm NewMember) (*Member, error) {
	query := `
		INSERT INTO members (telegram_id, telegram_username, telegram_name, is_founding_member, invited_by, invites_remaining)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING ` + memberColumns

	m, err := scanMember(s.pool.QueryRow(ctx, query,
		nm.TelegramID, nm.TelegramUsername, nm.TelegramName,
		nm.IsFoundingMember, nm.InvitedBy, nm.InvitesRemaining,
	))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrMemberExists
		}
		return nil, fmt.Errorf("failed to create member: %w", err)
	}
	return m, nil
}

func (s *PGStore) UpsertMember(ctx context.Context, nm NewMember) (*Member, error) {
	m, err := s.CreateMember(ctx, nm)
	if err == nil {
		return m, nil
	}
	if !errors.Is(err, ErrMemberExists) {
		return nil, err
	}
	// Already seeded; hand back the existing row untouched.
	return s.MemberByTelegramID(ctx, nm.TelegramID)
}

func (s *PGStore) DecrementInvites(ctx context.Context, id uuid.UUID) (bool, error) {
	tag, err := s.pool.Exec(ctx, `
		UPDATE members
		SET invites_remaining = invites_remaining - 1
		WHERE id = $1
		  AND invites_remaining > 0
	`, id)
	if err != nil {
		return false, fmt.Errorf("failed to decrement invites: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (s *PGStore) CreateInvite(ctx context.Context, createdBy uuid.UUID, targetUsername *string) (*Invite, error) {
	for attempt := 0; attempt < codeRetryAttempts; attempt++ {
		code, err := s.generateCode()
		if err != nil {
			return nil, err
		}

		expiresAt := time.Now().UTC().Add(InviteTTL)

		query := `
			INSERT INTO invites (code, created_by, target_username, expires_at)
			VALUES ($1, $2, $3, $4)
			RETURNING ` + inviteColumns

		inv, err := scanInvite(s.pool.QueryRow(ctx, query, code, createdBy, targetUsername, expiresAt))
		if err == nil {
			return inv, nil
		}
		if isUniqueViolation(err) {
			// Code collision (extremely unlikely); retry.
			continue
		}
		return nil, fmt.Errorf("failed to create invite: %w", err)
	}

	return nil, fmt.Errorf("failed to create invite: code collision retry exhausted")
}

func (s *PGStore) InviteByCode(ctx context.Context, code string) (*Invite, error) {
	query := `SELECT ` + inviteColumns + ` FROM invites WHERE code = $1`

	inv, err := scanInvite(s.pool.QueryRow(ctx, query, code))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrInviteNotFound
		}
		return nil, fmt.Errorf("failed to get invite by code: %w", err)
	}
	return inv, nil
}

func (s *PGStore) MarkInviteUsed(ctx context.Context, inviteID, usedBy uuid.UUID) (*Invite, error) {
	query := `
		UPDATE invites
		SET used_by = $2, used_at = NOW()
		WHERE id = $1
		  AND used_by IS NULL
		RETURNING ` + inviteColumns

	inv, err := scanInvite(s.pool.QueryRow(ctx, query, inviteID, usedBy))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Row exists but was already claimed, or never existed.
			if _, lookupErr := s.inviteByID(ctx, inviteID); lookupErr == nil {
				return nil, ErrInviteUsed
			}
			return nil, ErrInviteNotFound
		}
		return nil, fmt.Errorf("failed to mark invite used: %w", err)
	}
	return inv, nil
}

// RedeemInvite claims the invite and creates the member in a single
// transaction. The invite row is locked for the duration, so of two
// concurrent redemptions one commits and the other sees used_by set.
func (s *PGStore) RedeemInvite(ctx context.Context, code string, nm NewMember) (*Member, *Invite, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	query := `SELECT ` + inviteColumns + ` FROM invites WHERE code = $1 FOR UPDATE`

	inv, err := scanInvite(tx.QueryRow(ctx, query, code))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil, ErrInviteNotFound
		}
		return nil, nil, fmt.Errorf("failed to load invite: %w", err)
	}

	if inv.UsedBy != nil {
		return nil, nil, ErrInviteUsed
	}
	if !time.Now().UTC().Before(inv.ExpiresAt) {
		return nil, nil, ErrInviteExpired
	}

	insert := `
		INSERT INTO members (telegram_id, telegram_username, telegram_name, is_founding_member, invited_by, invites_remaining)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING ` + memberColumns

	m, err := scanMember(tx.QueryRow(ctx, insert,
		nm.TelegramID, nm.TelegramUsername, nm.TelegramName,
		nm.IsFoundingMember, nm.InvitedBy, nm.InvitesRemaining,
	))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, nil, ErrMemberExists
		}
		return nil, nil, fmt.Errorf("failed to create member: %w", err)
	}

	claim := `
		UPDATE invites
		SET used_by = $2, used_at = NOW()
		WHERE id = $1
		  AND used_by IS NULL
		RETURNING ` + inviteColumns

	claimed, err := scanInvite(tx.QueryRow(ctx, claim, inv.ID, m.ID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil, ErrInviteUsed
		}
		return nil, nil, fmt.Errorf("failed to claim invite: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return m, claimed, nil
}

func (s *PGStore) InvitesCreatedBy(ctx context.Context, memberID uuid.UUID) ([]Invite, error) {
	query := `
		SELECT ` + inviteColumns + `
		FROM invites
		WHERE created_by = $1
		ORDER BY created_at DESC
	`

	rows, err := s.pool.Query(ctx, query, memberID)
	if err != nil {
		return nil, fmt.Errorf("failed to list invites: %w", err)
	}
	defer rows.Close()

	var invites []Invite
	for rows.Next() {
		inv, err := scanInvite(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan invite: %w", err)
		}
		invites = append(invites, *inv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating invites: %w", err)
	}

	return invites, nil
}

func (s *PGStore) Stats(ctx context.Context) (Stats, error) {
	var stats Stats

	err := s.pool.QueryRow(ctx, `
		SELECT
		  COUNT(*),
		  COUNT(*) FILTER (WHERE is_founding_member),
		  COUNT(*) FILTER (WHERE NOT is_founding_member)
		FROM members
	`).Scan(&stats.Total, &stats.Founding, &stats.Invited)
	if err != nil {
		return Stats{}, fmt.Errorf("failed to aggregate stats: %w", err)
	}

	return stats, nil
}

func (s *PGStore) AddSeededGroup(ctx context.Context, chatID, chatTitle string, seededBy uuid.UUID) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO seeded_groups (chat_id, chat_title, seeded_by)
		VALUES ($1, $2, $3)
		ON CONFLICT (chat_id) DO NOTHING
	`, chatID, chatTitle, seededBy)
	if err != nil {
		return fmt.Errorf("failed to record seeded group: %w", err)
	}
	return nil
}

func (s *PGStore) IsSeededGroup(ctx context.Context, chatID string) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM seeded_groups WHERE chat_id = $1)`, chatID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check seeded group: %w", err)
	}
	return exists, nil
}

func (s *PGStore) inviteByID(ctx context.Context, id uuid.UUID) (*Invite, error) {
	query := `SELECT ` + inviteColumns + ` FROM invites WHERE id = $1`
	return scanInvite(s.pool.QueryRow(ctx, query, id))
}

func scanMember(row pgx.Row) (*Member, error) {
	var m Member
	err := row.Scan(
		&m.ID,
		&m.TelegramID,
		&m.TelegramUsername,
		&m.TelegramName,
		&m.IsFoundingMember,
		&m.InvitedBy,
		&m.InvitesRemaining,
		&m.JoinedAt,
	)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func scanInvite(row pgx.Row) (*Invite, error) {
	var inv Invite
	err := row.Scan(
		&inv.ID,
		&inv.Code,
		&inv.CreatedBy,
		&inv.TargetUsername,
		&inv.CreatedAt,
		&inv.ExpiresAt,
		&inv.UsedBy,
		&inv.UsedAt,
	)
	if err != nil {
		return nil, err
	}
	return &inv, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
