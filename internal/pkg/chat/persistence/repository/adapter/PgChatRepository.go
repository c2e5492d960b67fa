package adapter

import (
	"context"
	"errors"
	"log"

	chat "carechat/internal/pkg/chat/application/domain"
	repository "carechat/internal/pkg/chat/persistence/repository/port"
	identity "carechat/internal/pkg/identity/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const uniqueViolation = "23505"

// PgChatRepository persists chats, their participant sets and the message
// log. Messages carry a bigserial seq so same-timestamp sends keep their
// submission order.
type PgChatRepository struct {
	pool *pgxpool.Pool
}

func NewPgChatRepository(pool *pgxpool.Pool) *PgChatRepository {
	return &PgChatRepository{pool: pool}
}

var _ repository.ChatRepository = (*PgChatRepository)(nil)

func (r *PgChatRepository) CreateChat(ctx context.Context, c *chat.Chat) error {
	if r == nil || r.pool == nil {
		return errors.New("PgChatRepository: nil pool")
	}
	if c.ID == "" {
		c.ID = uuid.NewString()
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	var ownerID, ownerKind *string
	if c.Owner != nil {
		id, kind := c.Owner.ID, string(c.Owner.Kind)
		ownerID, ownerKind = &id, &kind
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO chats (id, is_group, group_name, owner_id, owner_kind, source_request_id, created_at)
		VALUES ($1::uuid, $2, NULLIF($3, ''), $4::uuid, $5, NULLIF($6, '')::uuid, $7)
	`, c.ID, c.IsGroup, c.GroupName, ownerID, ownerKind, c.SourceRequestID, c.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return repository.ErrDuplicateSourceRequest
		}
		return err
	}

	for _, p := range c.Participants {
		_, err = tx.Exec(ctx, `
			INSERT INTO chat_participants (chat_id, participant_id, participant_kind)
			VALUES ($1::uuid, $2::uuid, $3)
			ON CONFLICT DO NOTHING
		`, c.ID, p.ID, string(p.Kind))
		if err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

func (r *PgChatRepository) GetChat(ctx context.Context, id string) (*chat.Chat, error) {
	return r.findChat(ctx, `
		SELECT id::text, is_group, COALESCE(group_name, ''), owner_id::text, owner_kind, COALESCE(source_request_id::text, ''), COALESCE(latest_message_id::text, ''), created_at
		FROM chats
		WHERE id = $1::uuid
	`, id)
}

func (r *PgChatRepository) FindBySourceRequest(ctx context.Context, requestID string) (*chat.Chat, error) {
	return r.findChat(ctx, `
		SELECT id::text, is_group, COALESCE(group_name, ''), owner_id::text, owner_kind, COALESCE(source_request_id::text, ''), COALESCE(latest_message_id::text, ''), created_at
		FROM chats
		WHERE source_request_id = $1::uuid
	`, requestID)
}

func (r *PgChatRepository) FindPrivateBetween(ctx context.Context, a identity.Ref, b identity.Ref) (*chat.Chat, error) {
	if r == nil || r.pool == nil {
		return nil, errors.New("PgChatRepository: nil pool")
	}
	var id string
	err := r.pool.QueryRow(ctx, `
		SELECT c.id::text
		FROM chats c
		WHERE c.is_group = FALSE
		  AND EXISTS (SELECT 1 FROM chat_participants p WHERE p.chat_id = c.id AND p.participant_id = $1::uuid AND p.participant_kind = $2)
		  AND EXISTS (SELECT 1 FROM chat_participants p WHERE p.chat_id = c.id AND p.participant_id = $3::uuid AND p.participant_kind = $4)
		LIMIT 1
	`, a.ID, string(a.Kind), b.ID, string(b.Kind)).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, repository.ErrChatNotFound
	}
	if err != nil {
		return nil, err
	}
	return r.GetChat(ctx, id)
}

func (r *PgChatRepository) AddParticipant(ctx context.Context, chatID string, ref identity.Ref) error {
	if r == nil || r.pool == nil {
		return errors.New("PgChatRepository: nil pool")
	}
	_, err := r.pool.Exec(ctx, `
		INSERT INTO chat_participants (chat_id, participant_id, participant_kind)
		VALUES ($1::uuid, $2::uuid, $3)
		ON CONFLICT DO NOTHING
	`, chatID, ref.ID, string(ref.Kind))
	return err
}

func (r *PgChatRepository) SaveMessage(ctx context.Context, m *chat.Message) error {
	if r == nil || r.pool == nil {
		return errors.New("PgChatRepository: nil pool")
	}
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	_, err := r.pool.Exec(ctx, `
		INSERT INTO messages (id, chat_id, sender_id, sender_kind, content, created_at)
		VALUES ($1::uuid, $2::uuid, $3::uuid, $4, $5, $6)
	`, m.ID, m.ChatID, m.Sender.ID, string(m.Sender.Kind), m.Content, m.CreatedAt)
	if err != nil {
		return err
	}

	// Secondary write: the message is already the source of truth, so a
	// failed pointer move is logged and swallowed.
	if _, err := r.pool.Exec(ctx, `
		UPDATE chats SET latest_message_id = $2::uuid WHERE id = $1::uuid
	`, m.ChatID, m.ID); err != nil {
		log.Printf("PgChatRepository: update latest message for chat %s: %v", m.ChatID, err)
	}
	return nil
}

func (r *PgChatRepository) GetMessagesByChat(ctx context.Context, chatID string, limit int, offset int) ([]chat.Message, error) {
	if r == nil || r.pool == nil {
		return nil, errors.New("PgChatRepository: nil pool")
	}
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	rows, err := r.pool.Query(ctx, `
		SELECT id::text, chat_id::text, sender_id::text, sender_kind, content, created_at
		FROM messages
		WHERE chat_id = $1::uuid
		ORDER BY seq ASC
		LIMIT $2 OFFSET $3
	`, chatID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var msgs []chat.Message
	for rows.Next() {
		var (
			msg        chat.Message
			senderID   string
			senderKind string
		)
		if err := rows.Scan(&msg.ID, &msg.ChatID, &senderID, &senderKind, &msg.Content, &msg.CreatedAt); err != nil {
			return nil, err
		}
		msg.Sender = identity.Ref{ID: senderID, Kind: identity.Kind(senderKind)}
		msgs = append(msgs, msg)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return msgs, nil
}

func (r *PgChatRepository) ListChatsByParticipant(ctx context.Context, ref identity.Ref) ([]chat.Chat, error) {
	if r == nil || r.pool == nil {
		return nil, errors.New("PgChatRepository: nil pool")
	}
	rows, err := r.pool.Query(ctx, `
		SELECT c.id::text
		FROM chats c
		JOIN chat_participants p ON p.chat_id = c.id
		WHERE p.participant_id = $1::uuid AND p.participant_kind = $2
		ORDER BY c.created_at DESC
	`, ref.ID, string(ref.Kind))
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, err
		}
		ids = append(ids, id)
	}
	rows.Close()
	if rows.Err() != nil {
		return nil, rows.Err()
	}

	chats := make([]chat.Chat, 0, len(ids))
	for _, id := range ids {
		c, err := r.GetChat(ctx, id)
		if err != nil {
			return nil, err
		}
		chats = append(chats, *c)
	}
	return chats, nil
}

func (r *PgChatRepository) findChat(ctx context.Context, query string, arg string) (*chat.Chat, error) {
	if r == nil || r.pool == nil {
		return nil, errors.New("PgChatRepository: nil pool")
	}
	var (
		c         chat.Chat
		ownerID   *string
		ownerKind *string
	)
	err := r.pool.QueryRow(ctx, query, arg).Scan(
		&c.ID, &c.IsGroup, &c.GroupName, &ownerID, &ownerKind, &c.SourceRequestID, &c.LatestMessageID, &c.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, repository.ErrChatNotFound
	}
	if err != nil {
		return nil, err
	}
	if ownerID != nil && ownerKind != nil {
		c.Owner = &identity.Ref{ID: *ownerID, Kind: identity.Kind(*ownerKind)}
	}

	rows, err := r.pool.Query(ctx, `
		SELECT participant_id::text, participant_kind
		FROM chat_participants
		WHERE chat_id = $1::uuid
		ORDER BY joined_at ASC
	`, c.ID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var pid, pkind string
		if err := rows.Scan(&pid, &pkind); err != nil {
			return nil, err
		}
		c.Participants = append(c.Participants, identity.Ref{ID: pid, Kind: identity.Kind(pkind)})
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return &c, nil
}
