package oidc

// Package oidc implements the IdentityProvider port on a standard
// OIDC/OAuth2 identity provider. Federated sign-in runs the full
// authorization-code flow; password sign-in uses the resource-owner
// password grant where the provider allows it.

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	gooidc "github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"

	domainauth "github.com/pattana/ledgershell/internal/domain/auth"
	apperrors "github.com/pattana/ledgershell/internal/errors"
	"github.com/pattana/ledgershell/internal/ports"
)

// Provider implements ports.IdentityProvider using OIDC/OAuth2.
type Provider struct {
	config     *oauth2.Config
	httpClient *http.Client

	oidcProvider *gooidc.Provider
	verifier     *gooidc.IDTokenVerifier

	mu       sync.Mutex
	sessions map[string]*session
}

// session keeps the per-user token material needed to refresh claims.
type session struct {
	refreshToken string
	claims       map[string]any
}

// ProviderConfig holds configuration for the OIDC provider.
type ProviderConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	Scope        string
	DiscoveryURL string
	HTTPClient   *http.Client // Optional, defaults to a 30s-timeout client
}

// NewProvider creates a new OIDC provider from the discovery document.
func NewProvider(cfg ProviderConfig) (*Provider, error) {
	if cfg.ClientID == "" {
		return nil, apperrors.Validation("client ID is required")
	}
	if cfg.ClientSecret == "" {
		return nil, apperrors.Validation("client secret is required")
	}
	if cfg.RedirectURL == "" {
		return nil, apperrors.Validation("redirect URL is required")
	}
	if cfg.DiscoveryURL == "" {
		return nil, apperrors.Validation("discovery URL is required")
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}

	p := &Provider{
		httpClient: httpClient,
		sessions:   make(map[string]*session),
	}

	// Single discovery fetch at construction.
	ctx := context.WithValue(context.Background(), oauth2.HTTPClient, httpClient)
	issuer := strings.TrimSuffix(cfg.DiscoveryURL, "/")
	issuer = strings.TrimSuffix(issuer, "/.well-known/openid-configuration")
	issuer = strings.TrimSuffix(issuer, ".well-known/openid-configuration")
	op, err := gooidc.NewProvider(ctx, issuer)
	if err != nil {
		return nil, fmt.Errorf("oidc new provider: %w", err)
	}
	p.oidcProvider = op
	p.verifier = op.Verifier(&gooidc.Config{ClientID: cfg.ClientID})

	scopes := strings.Fields(cfg.Scope)
	if len(scopes) == 0 {
		scopes = []string{gooidc.ScopeOpenID, "profile", "email"}
	}
	p.config = &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		RedirectURL:  cfg.RedirectURL,
		Scopes:       scopes,
		Endpoint:     op.Endpoint(),
	}

	return p, nil
}

// SignIn authenticates with the resource-owner password grant.
func (p *Provider) SignIn(ctx context.Context, email, password string) (domainauth.Credential, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, p.httpClient)
	token, err := p.config.PasswordCredentialsToken(ctx, email, password)
	if err != nil {
		return domainauth.Credential{}, apperrors.ProviderUnavailable("password sign-in", err)
	}
	return p.credentialFromToken(ctx, token, "")
}

// BeginFederated returns the provider authorization URL together with
// fresh state and nonce values for the redirect flow.
func (p *Provider) BeginFederated(_ context.Context) (string, string, string, error) {
	state, err := generateRandomString(32)
	if err != nil {
		return "", "", "", fmt.Errorf("generate state: %w", err)
	}
	nonce, err := generateRandomString(32)
	if err != nil {
		return "", "", "", fmt.Errorf("generate nonce: %w", err)
	}

	authURL := p.config.AuthCodeURL(state,
		oauth2.SetAuthURLParam("nonce", nonce),
		oauth2.SetAuthURLParam("response_type", "code"),
		oauth2.SetAuthURLParam("prompt", "select_account"),
	)
	return authURL, state, nonce, nil
}

// CompleteFederated exchanges the authorization code and verifies the
// returned ID token, including the nonce binding.
func (p *Provider) CompleteFederated(ctx context.Context, in ports.FederatedInput) (domainauth.Credential, error) {
	if in.Code == "" {
		return domainauth.Credential{}, apperrors.Validation("authorization code is required")
	}
	if in.State == "" {
		return domainauth.Credential{}, apperrors.Validation("state is required")
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, p.httpClient)
	token, err := p.config.Exchange(ctx, in.Code)
	if err != nil {
		return domainauth.Credential{}, apperrors.ProviderUnavailable("exchange code for token", err)
	}
	cred, err := p.credentialFromToken(ctx, token, in.Nonce)
	if err != nil {
		return domainauth.Credential{}, err
	}
	cred.Federated = true
	return cred, nil
}

// SignOut drops the local token material for the user. OIDC front-channel
// logout happens in the browser; there is nothing more to revoke here.
func (p *Provider) SignOut(_ context.Context, uid string) error {
	p.mu.Lock()
	delete(p.sessions, uid)
	p.mu.Unlock()
	return nil
}

// Claims returns the user's ID-token claims. forceRefresh redeems the
// stored refresh token so that server-side claim changes (a new role,
// say) are observed immediately instead of at natural token expiry.
func (p *Provider) Claims(ctx context.Context, uid string, forceRefresh bool) (map[string]any, error) {
	p.mu.Lock()
	sess, ok := p.sessions[uid]
	p.mu.Unlock()
	if !ok {
		return nil, apperrors.NotAuthenticated("no active session for user")
	}

	if !forceRefresh || sess.refreshToken == "" {
		return sess.claims, nil
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, p.httpClient)
	src := p.config.TokenSource(ctx, &oauth2.Token{RefreshToken: sess.refreshToken})
	token, err := src.Token()
	if err != nil {
		return nil, apperrors.ProviderUnavailable("refresh token", err)
	}
	claims, err := p.verifyClaims(ctx, token, "")
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	if token.RefreshToken != "" {
		sess.refreshToken = token.RefreshToken
	}
	sess.claims = claims
	p.mu.Unlock()
	return claims, nil
}

// UpdateProfile is not available through a plain OIDC provider; the
// user directory is managed out of band.
func (p *Provider) UpdateProfile(_ context.Context, _ string, _ ports.ProfileUpdate) (*domainauth.User, error) {
	return nil, apperrors.Validation("profile updates are not supported by the oidc provider")
}

// SendPasswordReset is not available through a plain OIDC provider.
func (p *Provider) SendPasswordReset(_ context.Context, _ string) error {
	return apperrors.Validation("password reset is not supported by the oidc provider")
}

// SendEmailVerification is not available through a plain OIDC provider.
func (p *Provider) SendEmailVerification(_ context.Context, _ string) error {
	return apperrors.Validation("email verification is not supported by the oidc provider")
}

func (p *Provider) credentialFromToken(ctx context.Context, token *oauth2.Token, expectedNonce string) (domainauth.Credential, error) {
	claims, err := p.verifyClaims(ctx, token, expectedNonce)
	if err != nil {
		return domainauth.Credential{}, err
	}

	user := userFromClaims(claims)
	if user.UID == "" || user.Email == "" {
		if fillErr := p.fillFromUserInfo(ctx, token.AccessToken, user); fillErr != nil {
			return domainauth.Credential{}, fillErr
		}
	}
	if user.UID == "" {
		return domainauth.Credential{}, apperrors.ProviderUnavailable("token carries no subject", nil)
	}

	p.mu.Lock()
	p.sessions[user.UID] = &session{refreshToken: token.RefreshToken, claims: claims}
	p.mu.Unlock()

	expiresAt := time.Now().Add(time.Hour)
	if !token.Expiry.IsZero() {
		expiresAt = token.Expiry
	}

	rawID, _ := token.Extra("id_token").(string)
	return domainauth.Credential{
		User:         user,
		IDToken:      rawID,
		RefreshToken: token.RefreshToken,
		ExpiresAt:    expiresAt,
	}, nil
}

// verifyClaims validates the id_token carried in the OAuth2 token and
// decodes its full claim set.
func (p *Provider) verifyClaims(ctx context.Context, token *oauth2.Token, expectedNonce string) (map[string]any, error) {
	rawID, ok := token.Extra("id_token").(string)
	if !ok || rawID == "" {
		return nil, apperrors.ProviderUnavailable("token response missing id_token", nil)
	}
	idTok, err := p.verifier.Verify(ctx, rawID)
	if err != nil {
		return nil, apperrors.ProviderUnavailable("verify id_token", err)
	}
	if expectedNonce != "" && idTok.Nonce != expectedNonce {
		return nil, apperrors.Validation("invalid nonce")
	}
	var claims map[string]any
	if claimsErr := idTok.Claims(&claims); claimsErr != nil {
		return nil, fmt.Errorf("parse id_token claims: %w", claimsErr)
	}
	return claims, nil
}

func (p *Provider) fillFromUserInfo(ctx context.Context, accessToken string, user *domainauth.User) error {
	ui, err := p.oidcProvider.UserInfo(ctx, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken}))
	if err != nil {
		return apperrors.ProviderUnavailable("fetch user info", err)
	}
	var claims map[string]any
	if claimsErr := ui.Claims(&claims); claimsErr != nil {
		return fmt.Errorf("decode user info: %w", claimsErr)
	}
	fill := userFromClaims(claims)
	if user.UID == "" {
		user.UID = fill.UID
	}
	if user.Email == "" {
		user.Email = fill.Email
	}
	if user.DisplayName == "" {
		user.DisplayName = fill.DisplayName
	}
	return nil
}

// userFromClaims maps standard OIDC claims onto the user shape.
func userFromClaims(claims map[string]any) *domainauth.User {
	u := &domainauth.User{
		UID:         claimString(claims, "sub"),
		Email:       claimString(claims, "email"),
		DisplayName: claimString(claims, "name"),
		PhotoURL:    claimString(claims, "picture"),
		PhoneNumber: claimString(claims, "phone_number"),
	}
	if u.DisplayName == "" {
		u.DisplayName = strings.TrimSpace(claimString(claims, "given_name") + " " + claimString(claims, "family_name"))
	}
	if v, ok := claims["email_verified"].(bool); ok {
		u.EmailVerified = v
	}
	return u
}

func claimString(claims map[string]any, key string) string {
	if v, ok := claims[key].(string); ok {
		return v
	}
	return ""
}

// generateRandomString generates a cryptographically secure URL-safe
// random string of exact length.
func generateRandomString(length int) (string, error) {
	if length <= 0 {
		return "", nil
	}
	nBytes := (length*3 + 3) / 4
	b := make([]byte, nBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	s := base64.RawURLEncoding.EncodeToString(b)
	if len(s) < length {
		extra := make([]byte, 1)
		if _, err := rand.Read(extra); err != nil {
			return "", err
		}
		s += base64.RawURLEncoding.EncodeToString(extra)
	}
	return s[:length], nil
}

var _ ports.IdentityProvider = (*Provider)(nil)
