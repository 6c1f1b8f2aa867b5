package redis

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainauth "github.com/pattana/ledgershell/internal/domain/auth"
	apperrors "github.com/pattana/ledgershell/internal/errors"
	"github.com/pattana/ledgershell/internal/testutil"
)

func TestProfileCache_SaveLoadRoundtrip(t *testing.T) {
	t.Parallel()

	client, _ := testutil.SetupTestRedis(t)
	cache := NewProfileCache(client, time.Hour)
	ctx := context.Background()

	snap := domainauth.Snapshot{
		UID:         "user-1",
		DisplayName: "Somchai",
		Email:       "somchai@example.com",
		PhotoURL:    "https://example.com/p.png",
		Role:        domainauth.RoleManager,
	}
	require.NoError(t, cache.Save(ctx, snap))

	got, err := cache.Load(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, snap.DisplayName, got.DisplayName)
	assert.Equal(t, snap.Email, got.Email)
	assert.Equal(t, snap.Role, got.Role)
	assert.False(t, got.SavedAt.IsZero(), "SavedAt should be stamped on save")
}

func TestProfileCache_SaveKeepsExplicitSavedAt(t *testing.T) {
	t.Parallel()

	client, _ := testutil.SetupTestRedis(t)
	cache := NewProfileCache(client, time.Hour)
	ctx := context.Background()

	saved := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, cache.Save(ctx, domainauth.Snapshot{UID: "user-1", SavedAt: saved}))

	got, err := cache.Load(ctx, "user-1")
	require.NoError(t, err)
	assert.True(t, got.SavedAt.Equal(saved))
}

func TestProfileCache_SaveRequiresUID(t *testing.T) {
	t.Parallel()

	client, _ := testutil.SetupTestRedis(t)
	cache := NewProfileCache(client, time.Hour)

	err := cache.Save(context.Background(), domainauth.Snapshot{DisplayName: "nobody"})
	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))
}

func TestProfileCache_LoadMissing(t *testing.T) {
	t.Parallel()

	client, _ := testutil.SetupTestRedis(t)
	cache := NewProfileCache(client, time.Hour)

	_, err := cache.Load(context.Background(), "nope")
	require.Error(t, err)
	assert.True(t, apperrors.IsNotFound(err))
}

func TestProfileCache_EntriesExpire(t *testing.T) {
	t.Parallel()

	client, mr := testutil.SetupTestRedis(t)
	cache := NewProfileCache(client, time.Minute)
	ctx := context.Background()

	require.NoError(t, cache.Save(ctx, domainauth.Snapshot{UID: "user-1"}))
	mr.FastForward(2 * time.Minute)

	_, err := cache.Load(ctx, "user-1")
	require.Error(t, err)
	assert.True(t, apperrors.IsNotFound(err))
}

func TestProfileCache_Delete(t *testing.T) {
	t.Parallel()

	client, _ := testutil.SetupTestRedis(t)
	cache := NewProfileCache(client, 0)
	ctx := context.Background()

	require.NoError(t, cache.Save(ctx, domainauth.Snapshot{UID: "user-1"}))
	require.NoError(t, cache.Delete(ctx, "user-1"))

	_, err := cache.Load(ctx, "user-1")
	assert.True(t, apperrors.IsNotFound(err))

	// Deleting an absent or empty key is a noop.
	assert.NoError(t, cache.Delete(ctx, "user-1"))
	assert.NoError(t, cache.Delete(ctx, ""))
}

func TestProfileCache_CustomPrefixIsolatesKeys(t *testing.T) {
	t.Parallel()

	client, _ := testutil.SetupTestRedis(t)
	a := NewProfileCacheWithPrefix(client, "a:", time.Hour)
	b := NewProfileCacheWithPrefix(client, "b:", time.Hour)
	ctx := context.Background()

	require.NoError(t, a.Save(ctx, domainauth.Snapshot{UID: "user-1", DisplayName: "A"}))

	_, err := b.Load(ctx, "user-1")
	assert.True(t, apperrors.IsNotFound(err))
}
