package identity

// Package identity contains simple hand-written test doubles for the
// shell's ports. These are lightweight and suitable for unit tests
// without codegen.

import (
	"context"
	"fmt"
	"sync"
	"time"

	domainauth "github.com/pattana/ledgershell/internal/domain/auth"
	apperrors "github.com/pattana/ledgershell/internal/errors"
	"github.com/pattana/ledgershell/internal/ports"
)

// Ensure compile-time conformance to ports.
var (
	_ ports.IdentityProvider = (*MockProvider)(nil)
	_ ports.Navigator        = (*MockNavigator)(nil)
	_ ports.DialogHost       = (*MockDialogHost)(nil)
	_ ports.ProfileCache     = (*MockProfileCache)(nil)
)

// MockProvider simulates the identity platform with deterministic
// claims handling. Each method defers to its Func override when set.
type MockProvider struct {
	SignInFunc            func(ctx context.Context, email, password string) (domainauth.Credential, error)
	BeginFederatedFunc    func(ctx context.Context) (string, string, string, error)
	CompleteFederatedFunc func(ctx context.Context, in ports.FederatedInput) (domainauth.Credential, error)
	SignOutFunc           func(ctx context.Context, uid string) error
	ClaimsFunc            func(ctx context.Context, uid string, forceRefresh bool) (map[string]any, error)
	UpdateProfileFunc     func(ctx context.Context, uid string, update ports.ProfileUpdate) (*domainauth.User, error)

	// Deterministic defaults used when no override is set.
	User   domainauth.User
	Role   string
	NextID int

	mu            sync.Mutex
	claimsCalls   []ClaimsCall
	signOutCalls  int
	resetEmails   []string
	verifyTargets []string
}

// ClaimsCall records one Claims invocation.
type ClaimsCall struct {
	UID          string
	ForceRefresh bool
}

// NewMockProvider creates a provider with a signed-in-able default user.
func NewMockProvider() *MockProvider {
	return &MockProvider{
		User: domainauth.User{
			UID:           "mock-user-1",
			DisplayName:   "Mock User",
			Email:         "mock.user@example.com",
			EmailVerified: true,
		},
		Role: string(domainauth.RoleUser),
	}
}

func (m *MockProvider) SignIn(ctx context.Context, email, password string) (domainauth.Credential, error) {
	if m.SignInFunc != nil {
		return m.SignInFunc(ctx, email, password)
	}
	u := m.User
	return domainauth.Credential{User: &u, ExpiresAt: time.Now().Add(time.Hour)}, nil
}

func (m *MockProvider) BeginFederated(ctx context.Context) (string, string, string, error) {
	if m.BeginFederatedFunc != nil {
		return m.BeginFederatedFunc(ctx)
	}
	m.mu.Lock()
	m.NextID++
	n := m.NextID
	m.mu.Unlock()
	return "https://mock-idp/auth", mockSeq("state", n), mockSeq("nonce", n), nil
}

func (m *MockProvider) CompleteFederated(ctx context.Context, in ports.FederatedInput) (domainauth.Credential, error) {
	if m.CompleteFederatedFunc != nil {
		return m.CompleteFederatedFunc(ctx, in)
	}
	u := m.User
	return domainauth.Credential{User: &u, Federated: true, ExpiresAt: time.Now().Add(time.Hour)}, nil
}

func (m *MockProvider) SignOut(ctx context.Context, uid string) error {
	m.mu.Lock()
	m.signOutCalls++
	m.mu.Unlock()
	if m.SignOutFunc != nil {
		return m.SignOutFunc(ctx, uid)
	}
	return nil
}

func (m *MockProvider) Claims(ctx context.Context, uid string, forceRefresh bool) (map[string]any, error) {
	m.mu.Lock()
	m.claimsCalls = append(m.claimsCalls, ClaimsCall{UID: uid, ForceRefresh: forceRefresh})
	role := m.Role
	m.mu.Unlock()
	if m.ClaimsFunc != nil {
		return m.ClaimsFunc(ctx, uid, forceRefresh)
	}
	return map[string]any{"sub": uid, "role": role}, nil
}

// SetRole swaps the default role claim under the mock's lock.
func (m *MockProvider) SetRole(role string) {
	m.mu.Lock()
	m.Role = role
	m.mu.Unlock()
}

func (m *MockProvider) UpdateProfile(ctx context.Context, uid string, update ports.ProfileUpdate) (*domainauth.User, error) {
	if m.UpdateProfileFunc != nil {
		return m.UpdateProfileFunc(ctx, uid, update)
	}
	u := m.User
	if update.DisplayName != nil {
		u.DisplayName = *update.DisplayName
	}
	if update.PhotoURL != nil {
		u.PhotoURL = *update.PhotoURL
	}
	if update.PhoneNumber != nil {
		u.PhoneNumber = *update.PhoneNumber
	}
	if update.Email != nil {
		u.Email = *update.Email
	}
	m.User = u
	return &u, nil
}

func (m *MockProvider) SendPasswordReset(_ context.Context, email string) error {
	m.mu.Lock()
	m.resetEmails = append(m.resetEmails, email)
	m.mu.Unlock()
	return nil
}

func (m *MockProvider) SendEmailVerification(_ context.Context, uid string) error {
	m.mu.Lock()
	m.verifyTargets = append(m.verifyTargets, uid)
	m.mu.Unlock()
	return nil
}

// ClaimsCalls returns a copy of the recorded Claims invocations.
func (m *MockProvider) ClaimsCalls() []ClaimsCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]ClaimsCall(nil), m.claimsCalls...)
}

// SignOutCalls reports how many times SignOut was invoked.
func (m *MockProvider) SignOutCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.signOutCalls
}

// ResetEmails returns the addresses SendPasswordReset was called with.
func (m *MockProvider) ResetEmails() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.resetEmails...)
}

func mockSeq(prefix string, n int) string {
	return fmt.Sprintf("%s-%d", prefix, n)
}

// MockNavigator records navigations and optionally fails them.
type MockNavigator struct {
	NavigateFunc func(ctx context.Context, path string) error

	mu    sync.Mutex
	paths []string
}

func (n *MockNavigator) NavigateTo(ctx context.Context, path string) error {
	if n.NavigateFunc != nil {
		if err := n.NavigateFunc(ctx, path); err != nil {
			return err
		}
	}
	n.mu.Lock()
	n.paths = append(n.paths, path)
	n.mu.Unlock()
	return nil
}

// Paths returns all recorded navigation targets in order.
func (n *MockNavigator) Paths() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.paths...)
}

// Last returns the most recent navigation target, or "".
func (n *MockNavigator) Last() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.paths) == 0 {
		return ""
	}
	return n.paths[len(n.paths)-1]
}

// MockDialogHost tracks opened dialogs and their refs.
type MockDialogHost struct {
	OpenFunc func(ctx context.Context, component string, data ports.DialogData, opts ports.DialogOptions) (ports.DialogRef, error)

	mu     sync.Mutex
	nextID int
	opened []*MockDialogRef
}

func (h *MockDialogHost) Open(ctx context.Context, component string, data ports.DialogData, opts ports.DialogOptions) (ports.DialogRef, error) {
	if h.OpenFunc != nil {
		return h.OpenFunc(ctx, component, data, opts)
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.nextID++
	ref := &MockDialogRef{id: mockSeq("dialog", h.nextID), Component: component, Data: data, Opts: opts}
	h.opened = append(h.opened, ref)
	return ref, nil
}

// Opened returns every ref handed out, open or closed.
func (h *MockDialogHost) Opened() []*MockDialogRef {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]*MockDialogRef(nil), h.opened...)
}

// OpenCount reports how many handed-out dialogs remain open.
func (h *MockDialogHost) OpenCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	n := 0
	for _, ref := range h.opened {
		if !ref.Closed() {
			n++
		}
	}
	return n
}

// MockDialogRef is the ref type handed out by MockDialogHost.
type MockDialogRef struct {
	id        string
	Component string
	Data      ports.DialogData
	Opts      ports.DialogOptions
	CloseErr  error

	mu     sync.Mutex
	closed bool
}

func (r *MockDialogRef) ID() string { return r.id }

func (r *MockDialogRef) Close() error {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()
	return r.CloseErr
}

// Closed reports whether Close has been called.
func (r *MockDialogRef) Closed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closed
}

// MockProfileCache is an in-memory ProfileCache.
type MockProfileCache struct {
	SaveFunc func(ctx context.Context, snap domainauth.Snapshot) error

	mu    sync.Mutex
	snaps map[string]domainauth.Snapshot
}

func (c *MockProfileCache) Save(ctx context.Context, snap domainauth.Snapshot) error {
	if c.SaveFunc != nil {
		return c.SaveFunc(ctx, snap)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.snaps == nil {
		c.snaps = make(map[string]domainauth.Snapshot)
	}
	c.snaps[snap.UID] = snap
	return nil
}

func (c *MockProfileCache) Load(_ context.Context, uid string) (domainauth.Snapshot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	snap, ok := c.snaps[uid]
	if !ok {
		return domainauth.Snapshot{}, apperrors.NotFound("profile snapshot")
	}
	return snap, nil
}

func (c *MockProfileCache) Delete(_ context.Context, uid string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.snaps, uid)
	return nil
}
