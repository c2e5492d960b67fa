package adapter

import (
	"context"
	"sort"
	"strings"
	"sync"

	identity "carechat/internal/pkg/identity/domain"
	request "carechat/internal/pkg/request/application/domain"
	repository "carechat/internal/pkg/request/persistence/repository/port"

	"github.com/google/uuid"
)

// MemoryRequestRepository is an in-memory ledger for tests and local
// development. It honors the same optimistic-version contract as the
// Postgres adapter.
type MemoryRequestRepository struct {
	mu       sync.RWMutex
	requests map[string]request.ChatRequest
}

func NewMemoryRequestRepository() *MemoryRequestRepository {
	return &MemoryRequestRepository{requests: make(map[string]request.ChatRequest)}
}

var _ repository.RequestRepository = (*MemoryRequestRepository)(nil)

func (m *MemoryRequestRepository) Create(ctx context.Context, req *request.ChatRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	req.Version = 1
	m.requests[req.ID] = cloneRequest(*req)
	return nil
}

func (m *MemoryRequestRepository) Get(ctx context.Context, id string) (*request.ChatRequest, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	stored, ok := m.requests[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := cloneRequest(stored)
	return &cp, nil
}

func (m *MemoryRequestRepository) Update(ctx context.Context, req *request.ChatRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.requests[req.ID]
	if !ok {
		return repository.ErrNotFound
	}
	if stored.Version != req.Version {
		return repository.ErrVersionConflict
	}
	req.Version++
	m.requests[req.ID] = cloneRequest(*req)
	return nil
}

func (m *MemoryRequestRepository) Remove(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.requests, id)
	return nil
}

func (m *MemoryRequestRepository) HasActiveGroupName(ctx context.Context, groupName string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, req := range m.requests {
		if req.ChatType == request.ChatTypeGroup &&
			strings.EqualFold(req.GroupName, groupName) &&
			req.Active() {
			return true, nil
		}
	}
	return false, nil
}

func (m *MemoryRequestRepository) HasActivePrivateBetween(ctx context.Context, a identity.Ref, b identity.Ref) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, req := range m.requests {
		if req.ChatType != request.ChatTypePrivate || !req.Active() {
			continue
		}
		invitee := req.Invitees[0].Participant
		if (req.Owner.Equal(a) && invitee.Equal(b)) || (req.Owner.Equal(b) && invitee.Equal(a)) {
			return true, nil
		}
	}
	return false, nil
}

func (m *MemoryRequestRepository) ListSent(ctx context.Context, ref identity.Ref) ([]request.ChatRequest, error) {
	return m.list(func(req request.ChatRequest) bool {
		return req.Owner.Equal(ref)
	}), nil
}

func (m *MemoryRequestRepository) ListReceived(ctx context.Context, ref identity.Ref) ([]request.ChatRequest, error) {
	return m.list(func(req request.ChatRequest) bool {
		for i := range req.Invitees {
			if req.Invitees[i].Participant.Equal(ref) {
				return true
			}
		}
		return false
	}), nil
}

func (m *MemoryRequestRepository) list(match func(request.ChatRequest) bool) []request.ChatRequest {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []request.ChatRequest
	for _, req := range m.requests {
		if match(req) {
			out = append(out, cloneRequest(req))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

func cloneRequest(req request.ChatRequest) request.ChatRequest {
	invitees := make([]request.Invitee, len(req.Invitees))
	copy(invitees, req.Invitees)
	req.Invitees = invitees
	return req
}
