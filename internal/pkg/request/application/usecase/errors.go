package usecase

import (
	"errors"
	"fmt"
)

// ErrPersistence indicates an infrastructure/repository failure inside a use case
var ErrPersistence = fmt.Errorf("request use case persistence error")

var (
	// ErrInvalidInvitee means an invitee reference did not resolve in the
	// identity directory; nothing was written.
	ErrInvalidInvitee = errors.New("request: invitee does not exist")
	// ErrDuplicatePendingRequest means an active private request already
	// exists between the same pair, in either direction.
	ErrDuplicatePendingRequest = errors.New("request: an active request already exists between these participants")
	// ErrDuplicateGroupName means an active group request already carries
	// this name (case-insensitive).
	ErrDuplicateGroupName = errors.New("request: an active group request already uses this name")
	// ErrNotEntitled means the owner lacks the entitlement the request type
	// requires.
	ErrNotEntitled = errors.New("request: owner is not entitled to this request type")
)
