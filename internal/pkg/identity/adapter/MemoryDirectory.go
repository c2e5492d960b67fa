package adapter

import (
	"context"
	"sync"

	identity "carechat/internal/pkg/identity/domain"
	"carechat/internal/pkg/identity/port"
)

// MemoryDirectory is an in-memory Directory for tests and local development.
// Safe for concurrent use.
type MemoryDirectory struct {
	mu       sync.RWMutex
	profiles map[string]identity.Profile
	chats    map[string]map[string]struct{}
	sent     map[string]map[string]struct{}
	received map[string]map[string]struct{}
}

func NewMemoryDirectory() *MemoryDirectory {
	return &MemoryDirectory{
		profiles: make(map[string]identity.Profile),
		chats:    make(map[string]map[string]struct{}),
		sent:     make(map[string]map[string]struct{}),
		received: make(map[string]map[string]struct{}),
	}
}

var _ port.Directory = (*MemoryDirectory)(nil)

// Register adds a participant with the given profile.
func (d *MemoryDirectory) Register(ref identity.Ref, p identity.Profile) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.profiles[ref.Key()] = p
}

func (d *MemoryDirectory) Exists(ctx context.Context, ref identity.Ref) (bool, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	_, ok := d.profiles[ref.Key()]
	return ok, nil
}

func (d *MemoryDirectory) GetProfile(ctx context.Context, ref identity.Ref) (identity.Profile, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	p, ok := d.profiles[ref.Key()]
	if !ok {
		return identity.Profile{}, identity.ErrUnknownParticipant
	}
	return p, nil
}

func (d *MemoryDirectory) LinkChat(ctx context.Context, ref identity.Ref, chatID string) error {
	return d.link(d.chats, ref, chatID)
}

func (d *MemoryDirectory) LinkSentRequest(ctx context.Context, ref identity.Ref, requestID string) error {
	return d.link(d.sent, ref, requestID)
}

func (d *MemoryDirectory) LinkReceivedRequest(ctx context.Context, ref identity.Ref, requestID string) error {
	return d.link(d.received, ref, requestID)
}

// ChatIDs returns the linked chat ids for a participant (test helper).
func (d *MemoryDirectory) ChatIDs(ref identity.Ref) []string {
	return d.linked(d.chats, ref)
}

// SentRequestIDs returns the linked outbound request ids (test helper).
func (d *MemoryDirectory) SentRequestIDs(ref identity.Ref) []string {
	return d.linked(d.sent, ref)
}

// ReceivedRequestIDs returns the linked inbound request ids (test helper).
func (d *MemoryDirectory) ReceivedRequestIDs(ref identity.Ref) []string {
	return d.linked(d.received, ref)
}

func (d *MemoryDirectory) link(index map[string]map[string]struct{}, ref identity.Ref, id string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.profiles[ref.Key()]; !ok {
		return identity.ErrUnknownParticipant
	}
	set := index[ref.Key()]
	if set == nil {
		set = make(map[string]struct{})
		index[ref.Key()] = set
	}
	set[id] = struct{}{}
	return nil
}

func (d *MemoryDirectory) linked(index map[string]map[string]struct{}, ref identity.Ref) []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	ids := make([]string, 0, len(index[ref.Key()]))
	for id := range index[ref.Key()] {
		ids = append(ids, id)
	}
	return ids
}
