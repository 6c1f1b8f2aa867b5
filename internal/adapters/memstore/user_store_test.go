package memstore

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

func recvRecord(t *testing.T, ch <-chan domainauth.Record) domainauth.Record {
	t.Helper()
	select {
	case rec, ok := <-ch:
		require.True(t, ok, "watch channel closed unexpectedly")
		return rec
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for watch update")
		return domainauth.Record{}
	}
}

func TestUserStore_GetMissing(t *testing.T) {
	t.Parallel()

	store := NewUserStore()
	_, err := store.Get(context.Background(), "nope")
	require.Error(t, err)
	assert.True(t, apperrors.IsNotFound(err))
}

func TestUserStore_CreateIfAbsent(t *testing.T) {
	t.Parallel()

	store := NewUserStore()
	ctx := context.Background()
	rec := testutil.NewRecord().WithUID("u1").WithRole(domainauth.RoleAdmin).Build()

	created, err := store.CreateIfAbsent(ctx, rec)
	require.NoError(t, err)
	assert.True(t, created)

	// A second create must not clobber the stored role.
	created, err = store.CreateIfAbsent(ctx, testutil.NewRecord().WithUID("u1").Build())
	require.NoError(t, err)
	assert.False(t, created)

	got, err := store.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, domainauth.RoleAdmin, got.Role)
}

func TestUserStore_WatchDeliversInitialAndUpdates(t *testing.T) {
	t.Parallel()

	store := NewUserStore()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store.Put(testutil.NewRecord().WithUID("u1").Build())

	ch, err := store.Watch(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, domainauth.RoleUser, recvRecord(t, ch).Role)

	store.Put(testutil.NewRecord().WithUID("u1").WithRole(domainauth.RoleManager).Build())
	assert.Equal(t, domainauth.RoleManager, recvRecord(t, ch).Role)
}

func TestUserStore_WatchUnknownUIDWaits(t *testing.T) {
	t.Parallel()

	store := NewUserStore()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch, err := store.Watch(ctx, "u1")
	require.NoError(t, err)

	select {
	case rec := <-ch:
		t.Fatalf("unexpected update before any write: %+v", rec)
	case <-time.After(50 * time.Millisecond):
	}

	store.Put(testutil.NewRecord().WithUID("u1").Build())
	assert.Equal(t, "u1", recvRecord(t, ch).UID)
}

func TestUserStore_WatchClosesOnCancel(t *testing.T) {
	t.Parallel()

	store := NewUserStore()
	ctx, cancel := context.WithCancel(context.Background())

	ch, err := store.Watch(ctx, "u1")
	require.NoError(t, err)

	cancel()
	select {
	case _, ok := <-ch:
		assert.False(t, ok)
	case <-time.After(2 * time.Second):
		t.Fatal("watch channel not closed after cancel")
	}

	// Writes after teardown must not panic on the closed channel.
	store.Put(testutil.NewRecord().WithUID("u1").Build())
}
