package adapter

import (
	"context"
	"errors"
	"fmt"

	identity "carechat/internal/pkg/identity/domain"
	request "carechat/internal/pkg/request/application/domain"
	repository "carechat/internal/pkg/request/persistence/repository/port"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PgRequestRepository persists the request ledger in two tables:
// chat_requests for the head record and chat_request_invitees for the ordered
// invitee list. Updates are guarded by the version column.
type PgRequestRepository struct {
	pool *pgxpool.Pool
}

func NewPgRequestRepository(pool *pgxpool.Pool) *PgRequestRepository {
	return &PgRequestRepository{pool: pool}
}

var _ repository.RequestRepository = (*PgRequestRepository)(nil)

func (r *PgRequestRepository) Create(ctx context.Context, req *request.ChatRequest) error {
	if r == nil || r.pool == nil {
		return errors.New("PgRequestRepository: nil pool")
	}
	if req.ID == "" {
		req.ID = uuid.NewString()
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO chat_requests (id, owner_id, owner_kind, chat_type, group_name, reason, resulting_chat_id, version, created_at)
		VALUES ($1::uuid, $2::uuid, $3, $4, NULLIF($5, ''), NULLIF($6, ''), NULL, 1, $7)
	`, req.ID, req.Owner.ID, string(req.Owner.Kind), string(req.ChatType), req.GroupName, req.Reason, req.CreatedAt)
	if err != nil {
		return err
	}

	for i, inv := range req.Invitees {
		_, err = tx.Exec(ctx, `
			INSERT INTO chat_request_invitees (request_id, participant_id, participant_kind, position, status, similarity_score, rejection_reason, responded_at)
			VALUES ($1::uuid, $2::uuid, $3, $4, $5, $6, $7, $8)
		`, req.ID, inv.Participant.ID, string(inv.Participant.Kind), i, string(inv.Status), inv.SimilarityScore, inv.RejectionReason, inv.RespondedAt)
		if err != nil {
			return err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return err
	}
	req.Version = 1
	return nil
}

func (r *PgRequestRepository) Get(ctx context.Context, id string) (*request.ChatRequest, error) {
	if r == nil || r.pool == nil {
		return nil, errors.New("PgRequestRepository: nil pool")
	}
	row := r.pool.QueryRow(ctx, `
		SELECT id::text, owner_id::text, owner_kind, chat_type, COALESCE(group_name, ''), COALESCE(reason, ''), COALESCE(resulting_chat_id::text, ''), version, created_at
		FROM chat_requests
		WHERE id = $1::uuid
	`, id)

	req, err := scanRequest(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if err := r.loadInvitees(ctx, req); err != nil {
		return nil, err
	}
	return req, nil
}

func (r *PgRequestRepository) Update(ctx context.Context, req *request.ChatRequest) error {
	if r == nil || r.pool == nil {
		return errors.New("PgRequestRepository: nil pool")
	}
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	ct, err := tx.Exec(ctx, `
		UPDATE chat_requests
		SET resulting_chat_id = NULLIF($2, '')::uuid, version = version + 1
		WHERE id = $1::uuid AND version = $3
	`, req.ID, req.ResultingChatID, req.Version)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return repository.ErrVersionConflict
	}

	for _, inv := range req.Invitees {
		_, err = tx.Exec(ctx, `
			UPDATE chat_request_invitees
			SET status = $3, similarity_score = $4, rejection_reason = $5, responded_at = $6
			WHERE request_id = $1::uuid AND participant_id = $2::uuid AND participant_kind = $7
		`, req.ID, inv.Participant.ID, string(inv.Status), inv.SimilarityScore, inv.RejectionReason, inv.RespondedAt, string(inv.Participant.Kind))
		if err != nil {
			return err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return err
	}
	req.Version++
	return nil
}

func (r *PgRequestRepository) Remove(ctx context.Context, id string) error {
	if r == nil || r.pool == nil {
		return errors.New("PgRequestRepository: nil pool")
	}
	_, err := r.pool.Exec(ctx, "DELETE FROM chat_requests WHERE id = $1::uuid", id)
	return err
}

func (r *PgRequestRepository) HasActiveGroupName(ctx context.Context, groupName string) (bool, error) {
	if r == nil || r.pool == nil {
		return false, errors.New("PgRequestRepository: nil pool")
	}
	var exists bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1
			FROM chat_requests cr
			WHERE cr.chat_type = 'group'
			  AND LOWER(cr.group_name) = LOWER($1)
			  AND EXISTS (
			      SELECT 1 FROM chat_request_invitees i
			      WHERE i.request_id = cr.id AND i.status = 'pending'
			  )
		)
	`, groupName).Scan(&exists)
	return exists, err
}

func (r *PgRequestRepository) HasActivePrivateBetween(ctx context.Context, a identity.Ref, b identity.Ref) (bool, error) {
	if r == nil || r.pool == nil {
		return false, errors.New("PgRequestRepository: nil pool")
	}
	var exists bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1
			FROM chat_requests cr
			JOIN chat_request_invitees i ON i.request_id = cr.id
			WHERE cr.chat_type = 'private'
			  AND i.status = 'pending'
			  AND (
			      (cr.owner_id = $1::uuid AND cr.owner_kind = $2 AND i.participant_id = $3::uuid AND i.participant_kind = $4)
			   OR (cr.owner_id = $3::uuid AND cr.owner_kind = $4 AND i.participant_id = $1::uuid AND i.participant_kind = $2)
			  )
		)
	`, a.ID, string(a.Kind), b.ID, string(b.Kind)).Scan(&exists)
	return exists, err
}

func (r *PgRequestRepository) ListSent(ctx context.Context, ref identity.Ref) ([]request.ChatRequest, error) {
	return r.list(ctx, `
		SELECT id::text, owner_id::text, owner_kind, chat_type, COALESCE(group_name, ''), COALESCE(reason, ''), COALESCE(resulting_chat_id::text, ''), version, created_at
		FROM chat_requests
		WHERE owner_id = $1::uuid AND owner_kind = $2
		ORDER BY created_at DESC
	`, ref)
}

func (r *PgRequestRepository) ListReceived(ctx context.Context, ref identity.Ref) ([]request.ChatRequest, error) {
	return r.list(ctx, `
		SELECT cr.id::text, cr.owner_id::text, cr.owner_kind, cr.chat_type, COALESCE(cr.group_name, ''), COALESCE(cr.reason, ''), COALESCE(cr.resulting_chat_id::text, ''), cr.version, cr.created_at
		FROM chat_requests cr
		JOIN chat_request_invitees i ON i.request_id = cr.id
		WHERE i.participant_id = $1::uuid AND i.participant_kind = $2
		ORDER BY cr.created_at DESC
	`, ref)
}

func (r *PgRequestRepository) list(ctx context.Context, query string, ref identity.Ref) ([]request.ChatRequest, error) {
	if r == nil || r.pool == nil {
		return nil, errors.New("PgRequestRepository: nil pool")
	}
	rows, err := r.pool.Query(ctx, query, ref.ID, string(ref.Kind))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var reqs []request.ChatRequest
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		reqs = append(reqs, *req)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	for i := range reqs {
		if err := r.loadInvitees(ctx, &reqs[i]); err != nil {
			return nil, err
		}
	}
	return reqs, nil
}

func (r *PgRequestRepository) loadInvitees(ctx context.Context, req *request.ChatRequest) error {
	rows, err := r.pool.Query(ctx, `
		SELECT participant_id::text, participant_kind, status, similarity_score, rejection_reason, responded_at
		FROM chat_request_invitees
		WHERE request_id = $1::uuid
		ORDER BY position ASC
	`, req.ID)
	if err != nil {
		return err
	}
	defer rows.Close()

	req.Invitees = req.Invitees[:0]
	for rows.Next() {
		var (
			inv    request.Invitee
			pid    string
			pkind  string
			status string
		)
		if err := rows.Scan(&pid, &pkind, &status, &inv.SimilarityScore, &inv.RejectionReason, &inv.RespondedAt); err != nil {
			return err
		}
		inv.Participant = identity.Ref{ID: pid, Kind: identity.Kind(pkind)}
		inv.Status = request.InviteeStatus(status)
		req.Invitees = append(req.Invitees, inv)
	}
	return rows.Err()
}

func scanRequest(row pgx.Row) (*request.ChatRequest, error) {
	var (
		req       request.ChatRequest
		ownerID   string
		ownerKind string
		chatType  string
	)
	err := row.Scan(&req.ID, &ownerID, &ownerKind, &chatType, &req.GroupName, &req.Reason, &req.ResultingChatID, &req.Version, &req.CreatedAt)
	if err != nil {
		return nil, err
	}
	req.Owner = identity.Ref{ID: ownerID, Kind: identity.Kind(ownerKind)}
	req.ChatType = request.ChatType(chatType)
	if !req.ChatType.Valid() {
		return nil, fmt.Errorf("PgRequestRepository: unknown chat type %q", chatType)
	}
	return &req, nil
}
