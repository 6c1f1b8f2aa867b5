package postgres

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

func TestUserStore_GetMissing(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := NewUserStore(db, nil)

	_, err := store.Get(context.Background(), "nope")
	require.Error(t, err)
	assert.True(t, apperrors.IsNotFound(err))
}

func TestUserStore_CreateIfAbsentAndGet(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := NewUserStore(db, nil)
	ctx := context.Background()

	rec := testutil.NewRecord().WithUID("u1").WithEmail("u1@example.com").Build()
	created, err := store.CreateIfAbsent(ctx, rec)
	require.NoError(t, err)
	assert.True(t, created)

	got, err := store.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "u1@example.com", got.Email)
	assert.Equal(t, domainauth.RoleUser, got.Role)
}

func TestUserStore_CreateIfAbsentNeverClobbers(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := NewUserStore(db, nil)
	ctx := context.Background()

	admin := testutil.NewRecord().WithUID("u1").WithRole(domainauth.RoleAdmin).Build()
	created, err := store.CreateIfAbsent(ctx, admin)
	require.NoError(t, err)
	require.True(t, created)

	// A later bootstrap insert with the default role must lose.
	created, err = store.CreateIfAbsent(ctx, testutil.NewRecord().WithUID("u1").Build())
	require.NoError(t, err)
	assert.False(t, created)

	got, err := store.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, domainauth.RoleAdmin, got.Role)
}

func TestUserStore_WatchObservesRoleChange(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := NewUserStore(db, nil)
	store.watchInterval = 25 * time.Millisecond
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rec := testutil.NewRecord().WithUID("u1").Build()
	_, err := store.CreateIfAbsent(ctx, rec)
	require.NoError(t, err)

	ch, err := store.Watch(ctx, "u1")
	require.NoError(t, err)

	select {
	case got := <-ch:
		assert.Equal(t, domainauth.RoleUser, got.Role)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for initial watch record")
	}

	_, err = db.ExecContext(ctx, "UPDATE users SET role = 'manager' WHERE uid = $1", "u1")
	require.NoError(t, err)

	select {
	case got := <-ch:
		assert.Equal(t, domainauth.RoleManager, got.Role)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for role change")
	}

	cancel()
	select {
	case _, ok := <-ch:
		assert.False(t, ok)
	case <-time.After(2 * time.Second):
		t.Fatal("watch channel not closed after cancel")
	}
}
