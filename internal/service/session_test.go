package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pattana/ledgershell/internal/adapters/memstore"
	domainauth "github.com/pattana/ledgershell/internal/domain/auth"
	apperrors "github.com/pattana/ledgershell/internal/errors"
	mockid "github.com/pattana/ledgershell/internal/mocks/identity"
	"github.com/pattana/ledgershell/internal/ports"
)

const streamWait = 2 * time.Second

// newTestSession wires a session against a mock provider and an
// in-memory store.
func newTestSession(t *testing.T, provider *mockid.MockProvider) (*Session, *memstore.UserStore) {
	t.Helper()

	store := memstore.NewUserStore()
	session, err := NewSession(SessionOptions{
		Provider: provider,
		Store:    store,
		Cache:    &mockid.MockProfileCache{},
	})
	require.NoError(t, err)
	t.Cleanup(session.Close)
	return session, store
}

func recvBool(t *testing.T, ch <-chan bool) bool {
	t.Helper()
	select {
	case v, ok := <-ch:
		require.True(t, ok, "stream closed unexpectedly")
		return v
	case <-time.After(streamWait):
		t.Fatal("timed out waiting for privilege emission")
		return false
	}
}

func recvString(t *testing.T, ch <-chan string) string {
	t.Helper()
	select {
	case v, ok := <-ch:
		require.True(t, ok, "stream closed unexpectedly")
		return v
	case <-time.After(streamWait):
		t.Fatal("timed out waiting for role emission")
		return ""
	}
}

func recvState(t *testing.T, ch <-chan domainauth.State) domainauth.State {
	t.Helper()
	select {
	case v, ok := <-ch:
		require.True(t, ok, "stream closed unexpectedly")
		return v
	case <-time.After(streamWait):
		t.Fatal("timed out waiting for state emission")
		return domainauth.State{}
	}
}

func TestSession_RequiresProviderAndStore(t *testing.T) {
	t.Parallel()

	_, err := NewSession(SessionOptions{Store: memstore.NewUserStore()})
	require.Error(t, err)

	_, err = NewSession(SessionOptions{Provider: mockid.NewMockProvider()})
	require.Error(t, err)
}

func TestSession_LoginEmitsStateBeforeReturn(t *testing.T) {
	t.Parallel()

	provider := mockid.NewMockProvider()
	session, _ := newTestSession(t, provider)

	var observed []*domainauth.User
	session.OnState(func(st domainauth.State) {
		observed = append(observed, st.User)
	})

	require.False(t, session.IsLoggedIn())

	cred, err := session.Login(context.Background(), provider.User.Email, "secret")
	require.NoError(t, err)
	require.NotNil(t, cred.User)

	// The observer already ran when Login returned.
	require.Len(t, observed, 1)
	require.NotNil(t, observed[0])
	assert.Equal(t, provider.User.UID, observed[0].UID)
	assert.True(t, session.IsLoggedIn())
	assert.Equal(t, provider.User.UID, session.CurrentUser().UID)
}

func TestSession_ObserversRunInRegistrationOrder(t *testing.T) {
	t.Parallel()

	provider := mockid.NewMockProvider()
	session, _ := newTestSession(t, provider)

	var order []string
	session.OnState(func(domainauth.State) { order = append(order, "a") })
	session.OnState(func(domainauth.State) { order = append(order, "b") })

	_, err := session.Login(context.Background(), provider.User.Email, "secret")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, order)
}

func TestSession_PrivilegeFollowsFreshClaim(t *testing.T) {
	t.Parallel()

	tests := []struct {
		role string
		want bool
	}{
		{"admin", true},
		{"manager", true},
		{"user", false},
		{"auditor", false},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.role, func(t *testing.T) {
			t.Parallel()

			provider := mockid.NewMockProvider()
			provider.Role = tt.role
			session, _ := newTestSession(t, provider)

			unsub, privs := session.Privileged()
			defer unsub()

			_, err := session.Login(context.Background(), provider.User.Email, "secret")
			require.NoError(t, err)
			assert.Equal(t, tt.want, recvBool(t, privs))
		})
	}
}

func TestSession_ClaimLookupAlwaysForcesRefresh(t *testing.T) {
	t.Parallel()

	provider := mockid.NewMockProvider()
	session, _ := newTestSession(t, provider)

	unsub, privs := session.Privileged()
	defer unsub()

	_, err := session.Login(context.Background(), provider.User.Email, "secret")
	require.NoError(t, err)
	recvBool(t, privs)

	calls := provider.ClaimsCalls()
	require.NotEmpty(t, calls)
	for _, call := range calls {
		assert.True(t, call.ForceRefresh)
	}
}

func TestSession_AnonymousEmissionSkipsProvider(t *testing.T) {
	t.Parallel()

	provider := mockid.NewMockProvider()
	session, _ := newTestSession(t, provider)

	unsub, privs := session.Privileged()
	defer unsub()
	unsubRoles, roles := session.Roles()
	defer unsubRoles()

	session.Invalidate()

	assert.False(t, recvBool(t, privs))
	assert.Equal(t, "", recvString(t, roles))
	assert.Empty(t, provider.ClaimsCalls())
}

func TestSession_ProviderFailureDegradesToUnprivileged(t *testing.T) {
	t.Parallel()

	provider := mockid.NewMockProvider()
	provider.Role = "admin"
	provider.ClaimsFunc = func(context.Context, string, bool) (map[string]any, error) {
		return nil, apperrors.ProviderUnavailable("network down", errors.New("dial tcp: refused"))
	}
	session, _ := newTestSession(t, provider)

	unsub, privs := session.Privileged()
	defer unsub()
	unsubRoles, roles := session.Roles()
	defer unsubRoles()

	_, err := session.Login(context.Background(), provider.User.Email, "secret")
	require.NoError(t, err, "a claim failure must not fail the sign-in")

	assert.False(t, recvBool(t, privs))
	assert.Equal(t, "", recvString(t, roles))
}

func TestSession_OneDerivedValuePerEmissionInOrder(t *testing.T) {
	t.Parallel()

	provider := mockid.NewMockProvider()
	provider.Role = "admin"
	session, _ := newTestSession(t, provider)

	unsub, privs := session.Privileged()
	defer unsub()
	unsubUsers, users := session.Users()
	defer unsubUsers()

	ctx := context.Background()
	_, err := session.Login(ctx, provider.User.Email, "secret")
	require.NoError(t, err)
	require.NoError(t, session.Logout(ctx))
	provider.SetRole("user")
	_, err = session.Login(ctx, provider.User.Email, "secret")
	require.NoError(t, err)

	// Three emissions, three privilege values, in order.
	assert.True(t, recvBool(t, privs))
	assert.False(t, recvBool(t, privs))
	assert.False(t, recvBool(t, privs))

	assert.NotNil(t, recvState(t, users).User)
	assert.Nil(t, recvState(t, users).User)
	assert.NotNil(t, recvState(t, users).User)
}

func TestSession_LogoutRequiresProviderSignOut(t *testing.T) {
	t.Parallel()

	provider := mockid.NewMockProvider()
	provider.SignOutFunc = func(context.Context, string) error {
		return errors.New("revocation endpoint down")
	}
	session, _ := newTestSession(t, provider)

	ctx := context.Background()
	_, err := session.Login(ctx, provider.User.Email, "secret")
	require.NoError(t, err)

	err = session.Logout(ctx)
	require.Error(t, err)
	assert.True(t, apperrors.IsProviderUnavailable(err))
	// The session did not flip to anonymous on a failed sign-out.
	assert.True(t, session.IsLoggedIn())
}

func TestSession_LogoutWhenAnonymousSkipsProvider(t *testing.T) {
	t.Parallel()

	provider := mockid.NewMockProvider()
	session, _ := newTestSession(t, provider)

	require.NoError(t, session.Logout(context.Background()))
	assert.Equal(t, 0, provider.SignOutCalls())
}

func TestSession_FederatedLoginBootstrapsRecordOnce(t *testing.T) {
	t.Parallel()

	provider := mockid.NewMockProvider()
	session, store := newTestSession(t, provider)

	ctx := context.Background()
	_, err := session.CompleteFederatedLogin(ctx, ports.FederatedInput{Code: "token"})
	require.NoError(t, err)

	rec, err := store.Get(ctx, provider.User.UID)
	require.NoError(t, err)
	assert.Equal(t, domainauth.RoleUser, rec.Role)
	assert.Equal(t, provider.User.Email, rec.Email)
	assert.False(t, rec.CreatedAt.IsZero())
}

func TestSession_FederatedLoginNeverClobbersRole(t *testing.T) {
	t.Parallel()

	provider := mockid.NewMockProvider()
	session, store := newTestSession(t, provider)

	// An admin assigned the role out of band before this sign-in.
	store.Put(domainauth.Record{
		UID:   provider.User.UID,
		Email: provider.User.Email,
		Role:  domainauth.RoleAdmin,
	})

	ctx := context.Background()
	_, err := session.CompleteFederatedLogin(ctx, ports.FederatedInput{Code: "token"})
	require.NoError(t, err)

	rec, err := store.Get(ctx, provider.User.UID)
	require.NoError(t, err)
	assert.Equal(t, domainauth.RoleAdmin, rec.Role)
}

func TestSession_FederatedLoginSurvivesStoreOutage(t *testing.T) {
	t.Parallel()

	provider := mockid.NewMockProvider()
	store := &failingStore{}
	session, err := NewSession(SessionOptions{Provider: provider, Store: store})
	require.NoError(t, err)
	t.Cleanup(session.Close)

	_, err = session.CompleteFederatedLogin(context.Background(), ports.FederatedInput{Code: "token"})
	require.NoError(t, err)
	assert.True(t, session.IsLoggedIn())
}

func TestSession_UpdateProfileRequiresUser(t *testing.T) {
	t.Parallel()

	provider := mockid.NewMockProvider()
	session, _ := newTestSession(t, provider)

	name := "Renamed"
	_, err := session.UpdateProfile(context.Background(), ports.ProfileUpdate{DisplayName: &name})
	require.Error(t, err)
	assert.True(t, apperrors.IsNotAuthenticated(err))
}

func TestSession_UpdateProfileRefreshesCurrentUser(t *testing.T) {
	t.Parallel()

	provider := mockid.NewMockProvider()
	session, _ := newTestSession(t, provider)

	unsub, privs := session.Privileged()
	defer unsub()

	ctx := context.Background()
	_, err := session.Login(ctx, provider.User.Email, "secret")
	require.NoError(t, err)
	recvBool(t, privs)

	name := "Renamed"
	updated, err := session.UpdateProfile(ctx, ports.ProfileUpdate{DisplayName: &name})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", updated.DisplayName)
	assert.Equal(t, "Renamed", session.CurrentUser().DisplayName)

	// A profile edit is not an authentication change: no extra
	// privilege emission shows up.
	select {
	case v := <-privs:
		t.Fatalf("unexpected privilege emission %v after profile update", v)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestSession_ForgotPassword(t *testing.T) {
	t.Parallel()

	provider := mockid.NewMockProvider()
	session, _ := newTestSession(t, provider)

	require.NoError(t, session.ForgotPassword(context.Background(), "who@example.com"))
	assert.Equal(t, []string{"who@example.com"}, provider.ResetEmails())
}

func TestSession_LastKnownProfileWithoutCache(t *testing.T) {
	t.Parallel()

	provider := mockid.NewMockProvider()
	session, err := NewSession(SessionOptions{Provider: provider, Store: memstore.NewUserStore()})
	require.NoError(t, err)
	t.Cleanup(session.Close)

	_, err = session.LastKnownProfile(context.Background(), "u1")
	assert.True(t, apperrors.IsNotFound(err))
}

func TestSession_CloseIsIdempotentAndClosesStreams(t *testing.T) {
	t.Parallel()

	provider := mockid.NewMockProvider()
	store := memstore.NewUserStore()
	session, err := NewSession(SessionOptions{Provider: provider, Store: store})
	require.NoError(t, err)

	_, privs := session.Privileged()
	session.Close()
	session.Close()

	select {
	case _, ok := <-privs:
		assert.False(t, ok, "stream should be closed")
	case <-time.After(streamWait):
		t.Fatal("stream not closed on session close")
	}
}

// failingStore always errors, simulating a document store outage.
type failingStore struct{}

func (f *failingStore) Get(context.Context, string) (domainauth.Record, error) {
	return domainauth.Record{}, errors.New("store down")
}

func (f *failingStore) CreateIfAbsent(context.Context, domainauth.Record) (bool, error) {
	return false, errors.New("store down")
}

func (f *failingStore) Watch(context.Context, string) (<-chan domainauth.Record, error) {
	return nil, errors.New("store down")
}
