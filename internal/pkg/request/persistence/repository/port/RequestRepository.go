package repository

import (
	"context"
	"errors"

	identity "carechat/internal/pkg/identity/domain"
	request "carechat/internal/pkg/request/application/domain"
)

var (
	// ErrNotFound is returned when no request matches the given id.
	ErrNotFound = errors.New("request repository: not found")
	// ErrVersionConflict is returned by Update when the stored version no
	// longer matches; callers re-read and retry their mutation.
	ErrVersionConflict = errors.New("request repository: version conflict")
)

// RequestRepository defines persistence for the chat request ledger.
type RequestRepository interface {
	// Create persists a new request, assigning its id. It also removes the
	// record again via Remove only as compensation if reverse-index linking
	// fails after the write.
	Create(ctx context.Context, r *request.ChatRequest) error

	// Get loads a request by id.
	Get(ctx context.Context, id string) (*request.ChatRequest, error)

	// Update persists invitee mutations using the request's Version for an
	// optimistic concurrency check, bumping it on success.
	Update(ctx context.Context, r *request.ChatRequest) error

	// Remove deletes a request record. Requests are never deleted in normal
	// operation; this exists only to roll back a failed creation.
	Remove(ctx context.Context, id string) error

	// HasActiveGroupName reports whether an active group request carries the
	// given name, compared case-insensitively.
	HasActiveGroupName(ctx context.Context, groupName string) (bool, error)

	// HasActivePrivateBetween reports whether an active private request
	// exists between a and b in either direction.
	HasActivePrivateBetween(ctx context.Context, a identity.Ref, b identity.Ref) (bool, error)

	// ListSent returns requests owned by ref, newest first.
	ListSent(ctx context.Context, ref identity.Ref) ([]request.ChatRequest, error)

	// ListReceived returns requests inviting ref, newest first.
	ListReceived(ctx context.Context, ref identity.Ref) ([]request.ChatRequest, error)
}
