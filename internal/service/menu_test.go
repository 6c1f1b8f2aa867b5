package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pattana/ledgershell/internal/domain/dialog"
	"github.com/pattana/ledgershell/internal/domain/menu"
	apperrors "github.com/pattana/ledgershell/internal/errors"
	mockid "github.com/pattana/ledgershell/internal/mocks/identity"
)

// newTestMenu wires a menu over a real session and bus.
func newTestMenu(t *testing.T, provider *mockid.MockProvider) (*Menu, *Session, *dialog.Bus, *mockid.MockNavigator) {
	t.Helper()

	session, _ := newTestSession(t, provider)
	bus := dialog.NewBus()
	nav := &mockid.MockNavigator{}
	m, err := NewMenu(MenuOptions{Session: session, Bus: bus, Navigator: nav})
	require.NoError(t, err)
	return m, session, bus, nav
}

func recvTree(t *testing.T, ch <-chan menu.Tree) menu.Tree {
	t.Helper()
	select {
	case tree, ok := <-ch:
		require.True(t, ok, "menu stream closed unexpectedly")
		return tree
	case <-time.After(streamWait):
		t.Fatal("timed out waiting for menu emission")
		return nil
	}
}

func TestMenu_ItemsFollowPrivilege(t *testing.T) {
	t.Parallel()

	provider := mockid.NewMockProvider()
	provider.Role = "admin"
	m, session, _, _ := newTestMenu(t, provider)

	unsub, items := m.Items()
	defer unsub()

	ctx := context.Background()
	_, err := session.Login(ctx, provider.User.Email, "secret")
	require.NoError(t, err)

	tree := recvTree(t, items)
	assert.Contains(t, tree.VisibleLabels(), "Manage users")

	// Sign-out demotes: the next tree hides the gated entry.
	require.NoError(t, session.Logout(ctx))
	tree = recvTree(t, items)
	assert.NotContains(t, tree.VisibleLabels(), "Manage users")
}

func TestMenu_OneTreePerEmission(t *testing.T) {
	t.Parallel()

	provider := mockid.NewMockProvider()
	m, session, _, _ := newTestMenu(t, provider)

	unsub, items := m.Items()
	defer unsub()

	ctx := context.Background()
	_, err := session.Login(ctx, provider.User.Email, "secret")
	require.NoError(t, err)
	require.NoError(t, session.Logout(ctx))

	recvTree(t, items)
	recvTree(t, items)
	select {
	case tree := <-items:
		t.Fatalf("unexpected extra menu emission: %v", tree.VisibleLabels())
	case <-time.After(100 * time.Millisecond):
	}
}

func TestMenu_ExecuteNavigate(t *testing.T) {
	t.Parallel()

	provider := mockid.NewMockProvider()
	m, _, _, nav := newTestMenu(t, provider)

	item, ok := menu.Build(false).Find("Home")
	require.True(t, ok)
	require.NoError(t, m.Execute(context.Background(), item))
	assert.Equal(t, []string{menu.RouteHome}, nav.Paths())
}

func TestMenu_ExecuteNavigateFailure(t *testing.T) {
	t.Parallel()

	provider := mockid.NewMockProvider()
	m, _, _, nav := newTestMenu(t, provider)
	nav.NavigateFunc = func(context.Context, string) error {
		return errors.New("router detached")
	}

	item, ok := menu.Build(false).Find("Home")
	require.True(t, ok)
	err := m.Execute(context.Background(), item)
	require.Error(t, err)
	assert.True(t, apperrors.IsNavigationFailed(err))
}

func TestMenu_ExecuteOpenProfilePublishesSignal(t *testing.T) {
	t.Parallel()

	provider := mockid.NewMockProvider()
	m, _, bus, _ := newTestMenu(t, provider)

	signals := 0
	bus.Subscribe(func() { signals++ })

	profile := m.PopupItems()[0]
	require.Equal(t, menu.ActionOpenProfile, profile.Action)
	require.NoError(t, m.Execute(context.Background(), profile))
	assert.Equal(t, 1, signals)
}

func TestMenu_ExecuteLogoutAwaitsSignOutAndNavigation(t *testing.T) {
	t.Parallel()

	provider := mockid.NewMockProvider()
	m, session, _, nav := newTestMenu(t, provider)

	ctx := context.Background()
	_, err := session.Login(ctx, provider.User.Email, "secret")
	require.NoError(t, err)

	logout, ok := menu.Build(false).Find("Logout")
	require.True(t, ok)
	require.NoError(t, m.Execute(ctx, logout))

	// Both completed by the time Execute returned.
	assert.False(t, session.IsLoggedIn())
	assert.Equal(t, 1, provider.SignOutCalls())
	assert.Equal(t, []string{menu.RouteLogin}, nav.Paths())
}

func TestMenu_ExecuteLogoutStopsOnSignOutFailure(t *testing.T) {
	t.Parallel()

	provider := mockid.NewMockProvider()
	provider.SignOutFunc = func(context.Context, string) error {
		return errors.New("revocation endpoint down")
	}
	m, session, _, nav := newTestMenu(t, provider)

	ctx := context.Background()
	_, err := session.Login(ctx, provider.User.Email, "secret")
	require.NoError(t, err)

	logout, ok := menu.Build(false).Find("Logout")
	require.True(t, ok)
	err = m.Execute(ctx, logout)
	require.Error(t, err)

	// No navigation happened and the session stands.
	assert.True(t, session.IsLoggedIn())
	assert.Empty(t, nav.Paths())
}

func TestMenu_ExecuteNoneIsNoop(t *testing.T) {
	t.Parallel()

	provider := mockid.NewMockProvider()
	m, _, _, nav := newTestMenu(t, provider)

	parent, ok := menu.Build(false).Find("Accounts")
	require.True(t, ok)
	require.NoError(t, m.Execute(context.Background(), parent))
	assert.Empty(t, nav.Paths())
}

func TestMenu_ItemsUnsubscribeStopsStream(t *testing.T) {
	t.Parallel()

	provider := mockid.NewMockProvider()
	m, session, _, _ := newTestMenu(t, provider)

	unsub, items := m.Items()
	unsub()
	unsub()

	_, err := session.Login(context.Background(), provider.User.Email, "secret")
	require.NoError(t, err)

	select {
	case _, ok := <-items:
		assert.False(t, ok, "stream should close after unsubscribe")
	case <-time.After(streamWait):
		t.Fatal("menu stream did not close after unsubscribe")
	}
}
