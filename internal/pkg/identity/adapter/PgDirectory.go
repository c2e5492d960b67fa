package adapter

import (
	"context"
	"errors"

	identity "carechat/internal/pkg/identity/domain"
	"carechat/internal/pkg/identity/port"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PgDirectory resolves participants against the users/experts tables and keeps
// the reverse-index link tables. Link inserts use ON CONFLICT DO NOTHING so
// concurrent duplicate calls are safe.
type PgDirectory struct {
	pool *pgxpool.Pool
}

func NewPgDirectory(pool *pgxpool.Pool) *PgDirectory {
	return &PgDirectory{pool: pool}
}

var _ port.Directory = (*PgDirectory)(nil)

func (d *PgDirectory) Exists(ctx context.Context, ref identity.Ref) (bool, error) {
	if d == nil || d.pool == nil {
		return false, errors.New("PgDirectory: nil pool")
	}
	table, err := tableFor(ref.Kind)
	if err != nil {
		return false, err
	}
	var exists bool
	err = d.pool.QueryRow(ctx,
		"SELECT EXISTS (SELECT 1 FROM "+table+" WHERE id = $1::uuid)",
		ref.ID,
	).Scan(&exists)
	return exists, err
}

func (d *PgDirectory) GetProfile(ctx context.Context, ref identity.Ref) (identity.Profile, error) {
	if d == nil || d.pool == nil {
		return identity.Profile{}, errors.New("PgDirectory: nil pool")
	}
	table, err := tableFor(ref.Kind)
	if err != nil {
		return identity.Profile{}, err
	}
	var p identity.Profile
	err = d.pool.QueryRow(ctx,
		"SELECT display_name, COALESCE(avatar_url, '') FROM "+table+" WHERE id = $1::uuid",
		ref.ID,
	).Scan(&p.DisplayName, &p.AvatarURL)
	if errors.Is(err, pgx.ErrNoRows) {
		return identity.Profile{}, identity.ErrUnknownParticipant
	}
	return p, err
}

func (d *PgDirectory) LinkChat(ctx context.Context, ref identity.Ref, chatID string) error {
	return d.link(ctx, "participant_chats", "chat_id", ref, chatID)
}

func (d *PgDirectory) LinkSentRequest(ctx context.Context, ref identity.Ref, requestID string) error {
	return d.link(ctx, "participant_sent_requests", "request_id", ref, requestID)
}

func (d *PgDirectory) LinkReceivedRequest(ctx context.Context, ref identity.Ref, requestID string) error {
	return d.link(ctx, "participant_received_requests", "request_id", ref, requestID)
}

func (d *PgDirectory) link(ctx context.Context, table string, column string, ref identity.Ref, id string) error {
	if d == nil || d.pool == nil {
		return errors.New("PgDirectory: nil pool")
	}
	if !ref.Kind.Valid() {
		return identity.ErrInvalidKind
	}
	_, err := d.pool.Exec(ctx, `
		INSERT INTO `+table+` (participant_id, participant_kind, `+column+`)
		VALUES ($1::uuid, $2, $3::uuid)
		ON CONFLICT DO NOTHING
	`, ref.ID, string(ref.Kind), id)
	return err
}

func tableFor(kind identity.Kind) (string, error) {
	switch kind {
	case identity.KindUser:
		return "users", nil
	case identity.KindExpert:
		return "experts", nil
	default:
		return "", identity.ErrInvalidKind
	}
}
