package navlog

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pattana/ledgershell/internal/ports"
)

func TestNavigator_RecordsHistory(t *testing.T) {
	t.Parallel()

	nav := NewNavigator(nil)
	ctx := context.Background()

	assert.Empty(t, nav.Current())

	require.NoError(t, nav.NavigateTo(ctx, "/home"))
	require.NoError(t, nav.NavigateTo(ctx, "/auth/login"))

	assert.Equal(t, "/auth/login", nav.Current())
	assert.Equal(t, []string{"/home", "/auth/login"}, nav.History())
}

func TestNavigator_CanceledContext(t *testing.T) {
	t.Parallel()

	nav := NewNavigator(nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.Error(t, nav.NavigateTo(ctx, "/home"))
	assert.Empty(t, nav.History())
}

func TestDialogHost_OpenAndClose(t *testing.T) {
	t.Parallel()

	host := NewDialogHost(nil)
	ctx := context.Background()

	ref, err := host.Open(ctx, "user-profile", ports.DialogData{"uid": "u1"}, ports.DialogOptions{Header: "User Details"})
	require.NoError(t, err)
	assert.Equal(t, 1, host.OpenCount())
	assert.NotEmpty(t, ref.ID())

	require.NoError(t, ref.Close())
	assert.Equal(t, 0, host.OpenCount())

	// Closing again is harmless.
	require.NoError(t, ref.Close())
	assert.Equal(t, 0, host.OpenCount())
}

func TestDialogHost_IndependentRefs(t *testing.T) {
	t.Parallel()

	host := NewDialogHost(nil)
	ctx := context.Background()

	a, err := host.Open(ctx, "user-profile", nil, ports.DialogOptions{})
	require.NoError(t, err)
	b, err := host.Open(ctx, "user-profile", nil, ports.DialogOptions{})
	require.NoError(t, err)
	require.NotEqual(t, a.ID(), b.ID())

	require.NoError(t, a.Close())
	assert.Equal(t, 1, host.OpenCount())
	require.NoError(t, b.Close())
	assert.Equal(t, 0, host.OpenCount())
}
