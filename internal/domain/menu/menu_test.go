package menu

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuild_ManageUsersGatedOnPrivilege(t *testing.T) {
	t.Parallel()

	unprivileged := Build(false)
	item, ok := unprivileged.Find("Manage users")
	require.True(t, ok)
	assert.False(t, item.Visible)
	assert.NotContains(t, unprivileged.VisibleLabels(), "Manage users")
	assert.NotContains(t, unprivileged.VisibleLabels(), "Users list")

	privileged := Build(true)
	item, ok = privileged.Find("Manage users")
	require.True(t, ok)
	assert.True(t, item.Visible)
	assert.Contains(t, privileged.VisibleLabels(), "Manage users")
	assert.Contains(t, privileged.VisibleLabels(), "Users list")
}

func TestBuild_CommonItemsAlwaysVisible(t *testing.T) {
	t.Parallel()

	for _, privileged := range []bool{false, true} {
		tree := Build(privileged)
		labels := tree.VisibleLabels()
		assert.Contains(t, labels, "Home")
		assert.Contains(t, labels, "Accounts")
		assert.Contains(t, labels, "Credits")
		assert.Contains(t, labels, "Blood pressure")
		assert.Contains(t, labels, "Monthly")
		assert.Contains(t, labels, "Logout")
	}
}

func TestBuild_FreshTreePerCall(t *testing.T) {
	t.Parallel()

	a := Build(true)
	b := Build(true)
	require.NotEmpty(t, a)

	a[0].Label = "mutated"
	assert.Equal(t, "Home", b[0].Label)
}

func TestBuild_Actions(t *testing.T) {
	t.Parallel()

	tree := Build(false)

	home, ok := tree.Find("Home")
	require.True(t, ok)
	assert.Equal(t, ActionNavigate, home.Action)
	assert.Equal(t, RouteHome, home.Route)

	logout, ok := tree.Find("Logout")
	require.True(t, ok)
	assert.Equal(t, ActionLogout, logout.Action)

	accounts, ok := tree.Find("Accounts")
	require.True(t, ok)
	assert.Equal(t, ActionNone, accounts.Action)
	assert.Len(t, accounts.Items, 4)
}

func TestPopupItems(t *testing.T) {
	t.Parallel()

	popup := PopupItems()
	require.Len(t, popup, 2)
	assert.Equal(t, ActionOpenProfile, popup[0].Action)
	assert.Equal(t, ActionLogout, popup[1].Action)
}

func TestTree_Find(t *testing.T) {
	t.Parallel()

	tree := Build(true)

	child, ok := tree.Find("Credit list")
	require.True(t, ok)
	assert.Equal(t, RouteCreditList, child.Route)

	_, ok = tree.Find("no such item")
	assert.False(t, ok)
}
