package adapter

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"time"

	cacheport "carechat/internal/infrastructure/cache/port"
	identity "carechat/internal/pkg/identity/domain"
	"carechat/internal/pkg/identity/port"
)

const profileTTL = 10 * time.Minute

// CachedDirectory decorates a Directory with a read-through profile cache.
// Cache failures degrade to the underlying directory and are only logged;
// the cache is never the source of truth.
type CachedDirectory struct {
	inner port.Directory
	cache cacheport.Cache
}

func NewCachedDirectory(inner port.Directory, cache cacheport.Cache) *CachedDirectory {
	return &CachedDirectory{inner: inner, cache: cache}
}

var _ port.Directory = (*CachedDirectory)(nil)

func (d *CachedDirectory) Exists(ctx context.Context, ref identity.Ref) (bool, error) {
	return d.inner.Exists(ctx, ref)
}

func (d *CachedDirectory) GetProfile(ctx context.Context, ref identity.Ref) (identity.Profile, error) {
	key := "profile:" + ref.Key()

	if raw, err := d.cache.Get(ctx, key); err == nil {
		var p identity.Profile
		if jsonErr := json.Unmarshal([]byte(raw), &p); jsonErr == nil {
			return p, nil
		}
	} else if !errors.Is(err, cacheport.ErrMiss) {
		log.Printf("identity cache: get %s: %v", key, err)
	}

	p, err := d.inner.GetProfile(ctx, ref)
	if err != nil {
		return identity.Profile{}, err
	}

	if raw, jsonErr := json.Marshal(p); jsonErr == nil {
		if setErr := d.cache.Set(ctx, key, string(raw), profileTTL); setErr != nil {
			log.Printf("identity cache: set %s: %v", key, setErr)
		}
	}
	return p, nil
}

func (d *CachedDirectory) LinkChat(ctx context.Context, ref identity.Ref, chatID string) error {
	return d.inner.LinkChat(ctx, ref, chatID)
}

func (d *CachedDirectory) LinkSentRequest(ctx context.Context, ref identity.Ref, requestID string) error {
	return d.inner.LinkSentRequest(ctx, ref, requestID)
}

func (d *CachedDirectory) LinkReceivedRequest(ctx context.Context, ref identity.Ref, requestID string) error {
	return d.inner.LinkReceivedRequest(ctx, ref, requestID)
}
