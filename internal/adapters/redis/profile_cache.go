package redis

// Package redis provides Redis-based adapters for ledgershell.

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	domainauth "github.com/pattana/ledgershell/internal/domain/auth"
	apperrors "github.com/pattana/ledgershell/internal/errors"
	"github.com/pattana/ledgershell/internal/ports"
)

// ProfileCache is a Redis-backed store for last-known profile
// snapshots. Snapshots are cosmetic; a TTL keeps abandoned entries
// from living forever.
type ProfileCache struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
}

// NewProfileCache creates a profile cache with the given snapshot TTL.
// A zero ttl keeps entries until explicitly deleted.
func NewProfileCache(client redis.UniversalClient, ttl time.Duration) *ProfileCache {
	return &ProfileCache{
		client: client,
		prefix: "profile:",
		ttl:    ttl,
	}
}

// NewProfileCacheWithPrefix creates a profile cache with a custom key prefix.
func NewProfileCacheWithPrefix(client redis.UniversalClient, prefix string, ttl time.Duration) *ProfileCache {
	return &ProfileCache{
		client: client,
		prefix: prefix,
		ttl:    ttl,
	}
}

func (c *ProfileCache) Save(ctx context.Context, snap domainauth.Snapshot) error {
	if snap.UID == "" {
		return apperrors.ValidationField("uid", "snapshot UID cannot be empty")
	}
	if snap.SavedAt.IsZero() {
		snap.SavedAt = time.Now().UTC()
	}

	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	return c.client.Set(ctx, c.prefix+snap.UID, data, c.ttl).Err()
}

func (c *ProfileCache) Load(ctx context.Context, uid string) (domainauth.Snapshot, error) {
	if uid == "" {
		return domainauth.Snapshot{}, apperrors.NotFound("profile snapshot")
	}

	data, err := c.client.Get(ctx, c.prefix+uid).Result()
	if err != nil {
		if err == redis.Nil {
			return domainauth.Snapshot{}, apperrors.NotFound("profile snapshot")
		}
		return domainauth.Snapshot{}, fmt.Errorf("redis get: %w", err)
	}

	var snap domainauth.Snapshot
	if unmarshalErr := json.Unmarshal([]byte(data), &snap); unmarshalErr != nil {
		return domainauth.Snapshot{}, fmt.Errorf("unmarshal snapshot: %w", unmarshalErr)
	}
	return snap, nil
}

func (c *ProfileCache) Delete(ctx context.Context, uid string) error {
	if uid == "" {
		return nil
	}
	return c.client.Del(ctx, c.prefix+uid).Err()
}

var _ ports.ProfileCache = (*ProfileCache)(nil)
