package devauth

// Package devauth provides a simple, config-driven IdentityProvider for
// local development. Every sign-in yields the configured identity; the
// role claim can be flipped at runtime to exercise privileged views.

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"sync"
	"time"

	"github.com/pattana/ledgershell/config"
	domainauth "github.com/pattana/ledgershell/internal/domain/auth"
	apperrors "github.com/pattana/ledgershell/internal/errors"
	"github.com/pattana/ledgershell/internal/ports"
)

// Provider implements ports.IdentityProvider for local development.
type Provider struct {
	mu   sync.Mutex
	user domainauth.User
	role string
}

// NewProvider constructs a dev provider from config.
func NewProvider(cfg config.DevAuthConfig) (*Provider, error) {
	if cfg.UID == "" {
		return nil, apperrors.Validation("dev auth: UID is required")
	}
	if cfg.Email == "" {
		return nil, apperrors.Validation("dev auth: Email is required")
	}
	displayName := cfg.DisplayName
	if displayName == "" {
		displayName = "Dev User"
	}
	role := cfg.Role
	if role == "" {
		role = string(domainauth.RoleUser)
	}
	return &Provider{
		user: domainauth.User{
			UID:           cfg.UID,
			Email:         cfg.Email,
			DisplayName:   displayName,
			EmailVerified: true,
		},
		role: role,
	}, nil
}

// SetRole changes the role claim returned by subsequent Claims calls.
func (p *Provider) SetRole(role string) {
	p.mu.Lock()
	p.role = role
	p.mu.Unlock()
}

// SignIn ignores the password and returns the configured identity.
func (p *Provider) SignIn(_ context.Context, email, _ string) (domainauth.Credential, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if email != p.user.Email {
		return domainauth.Credential{}, apperrors.Validation("unknown dev user")
	}
	u := p.user
	return domainauth.Credential{
		User:      &u,
		ExpiresAt: time.Now().Add(8 * time.Hour),
	}, nil
}

// BeginFederated short-circuits the flow with a local callback URL.
func (p *Provider) BeginFederated(_ context.Context) (string, string, string, error) {
	state, err := randomString(24)
	if err != nil {
		return "", "", "", fmt.Errorf("generate state: %w", err)
	}
	nonce, err := randomString(24)
	if err != nil {
		return "", "", "", fmt.Errorf("generate nonce: %w", err)
	}
	authURL := "/auth/callback?code=dev&state=" + state
	return authURL, state, nonce, nil
}

// CompleteFederated ignores the code and returns the configured identity.
func (p *Provider) CompleteFederated(_ context.Context, _ ports.FederatedInput) (domainauth.Credential, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	u := p.user
	return domainauth.Credential{
		User:      &u,
		Federated: true,
		ExpiresAt: time.Now().Add(8 * time.Hour),
	}, nil
}

// SignOut is a no-op for the dev provider.
func (p *Provider) SignOut(_ context.Context, _ string) error {
	return nil
}

// Claims returns the configured role claim regardless of forceRefresh.
func (p *Provider) Claims(_ context.Context, uid string, _ bool) (map[string]any, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if uid != p.user.UID {
		return nil, apperrors.NotAuthenticated("no active session for user")
	}
	return map[string]any{
		"sub":   p.user.UID,
		"email": p.user.Email,
		"role":  p.role,
	}, nil
}

// UpdateProfile applies the update to the in-memory identity.
func (p *Provider) UpdateProfile(_ context.Context, uid string, update ports.ProfileUpdate) (*domainauth.User, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if uid != p.user.UID {
		return nil, apperrors.NotAuthenticated("no active session for user")
	}
	if update.DisplayName != nil {
		p.user.DisplayName = *update.DisplayName
	}
	if update.PhotoURL != nil {
		p.user.PhotoURL = *update.PhotoURL
	}
	if update.PhoneNumber != nil {
		p.user.PhoneNumber = *update.PhoneNumber
	}
	if update.Email != nil {
		p.user.Email = *update.Email
	}
	u := p.user
	return &u, nil
}

// SendPasswordReset is a no-op for the dev provider.
func (p *Provider) SendPasswordReset(_ context.Context, _ string) error {
	return nil
}

// SendEmailVerification is a no-op for the dev provider.
func (p *Provider) SendEmailVerification(_ context.Context, _ string) error {
	return nil
}

func randomString(n int) (string, error) {
	if n <= 0 {
		return "", nil
	}
	bLen := (n*3 + 3) / 4
	b := make([]byte, bLen)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	s := base64.RawURLEncoding.EncodeToString(b)
	if len(s) < n {
		extra := make([]byte, 1)
		if _, err := rand.Read(extra); err != nil {
			return "", err
		}
		s += base64.RawURLEncoding.EncodeToString(extra)
	}
	return s[:n], nil
}

var _ ports.IdentityProvider = (*Provider)(nil)
