package port

import (
	"context"

	identity "carechat/internal/pkg/identity/domain"
)

// Directory resolves participant references and maintains the per-participant
// reverse indices (chats, sent requests, received requests).
//
// All Link* methods use add-if-absent semantics: repeating a link is a no-op,
// never an error. Multiple components mutate these lists concurrently, so no
// caller may assume exclusive ownership of a participant's record.
type Directory interface {
	// Exists reports whether the referenced participant is known.
	Exists(ctx context.Context, ref identity.Ref) (bool, error)

	// GetProfile returns display data for the participant.
	// Returns identity.ErrUnknownParticipant if the reference does not resolve.
	GetProfile(ctx context.Context, ref identity.Ref) (identity.Profile, error)

	// LinkChat records chat membership on the participant (idempotent add).
	LinkChat(ctx context.Context, ref identity.Ref, chatID string) error

	// LinkSentRequest records an outbound chat request (idempotent add).
	LinkSentRequest(ctx context.Context, ref identity.Ref, requestID string) error

	// LinkReceivedRequest records an inbound chat request (idempotent add).
	LinkReceivedRequest(ctx context.Context, ref identity.Ref, requestID string) error
}
