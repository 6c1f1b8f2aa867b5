package firebaseauth

// Package firebaseauth implements the IdentityProvider port on the
// Firebase identity platform via the Admin SDK. Password sign-in goes
// through the Identity Toolkit REST endpoint (the Admin SDK has no
// password grant); federated sign-in verifies the ID token minted by
// the provider popup.

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	firebase "firebase.google.com/go/v4"
	fbauth "firebase.google.com/go/v4/auth"
	"github.com/google/uuid"
	"google.golang.org/api/option"

	"github.com/pattana/ledgershell/config"
	domainauth "github.com/pattana/ledgershell/internal/domain/auth"
	apperrors "github.com/pattana/ledgershell/internal/errors"
	"github.com/pattana/ledgershell/internal/ports"
)

const signInEndpoint = "https://identitytoolkit.googleapis.com/v1/accounts:signInWithPassword"

// claimCacheTTL bounds how long non-forced claim reads may be served
// from memory. Forced reads always hit the provider.
const claimCacheTTL = 5 * time.Minute

// Provider implements ports.IdentityProvider against Firebase.
type Provider struct {
	client     *fbauth.Client
	apiKey     string
	httpClient *http.Client

	mu     sync.Mutex
	claims map[string]cachedClaims
}

type cachedClaims struct {
	claims    map[string]any
	fetchedAt time.Time
}

// NewProvider initializes the Firebase Admin SDK and returns the
// identity provider adapter.
func NewProvider(ctx context.Context, cfg config.FirebaseConfig) (*Provider, error) {
	if cfg.CredentialsPath == "" {
		return nil, apperrors.Validation("FIREBASE_CREDENTIALS_PATH is required")
	}
	if cfg.WebAPIKey == "" {
		return nil, apperrors.Validation("FIREBASE_WEB_API_KEY is required")
	}

	var fbCfg *firebase.Config
	if cfg.ProjectID != "" {
		fbCfg = &firebase.Config{ProjectID: cfg.ProjectID}
	}
	app, err := firebase.NewApp(ctx, fbCfg, option.WithCredentialsFile(cfg.CredentialsPath))
	if err != nil {
		return nil, fmt.Errorf("initialize firebase app: %w", err)
	}
	client, err := app.Auth(ctx)
	if err != nil {
		return nil, fmt.Errorf("get auth client: %w", err)
	}
	return &Provider{
		client:     client,
		apiKey:     cfg.WebAPIKey,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		claims:     make(map[string]cachedClaims),
	}, nil
}

type signInRequest struct {
	Email             string `json:"email"`
	Password          string `json:"password"`
	ReturnSecureToken bool   `json:"returnSecureToken"`
}

type signInResponse struct {
	LocalID      string `json:"localId"`
	IDToken      string `json:"idToken"`
	RefreshToken string `json:"refreshToken"`
	ExpiresIn    string `json:"expiresIn"`
}

// SignIn performs email/password authentication via Identity Toolkit.
func (p *Provider) SignIn(ctx context.Context, email, password string) (domainauth.Credential, error) {
	body, err := json.Marshal(signInRequest{Email: email, Password: password, ReturnSecureToken: true})
	if err != nil {
		return domainauth.Credential{}, fmt.Errorf("encode sign-in request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, signInEndpoint+"?key="+p.apiKey, bytes.NewReader(body))
	if err != nil {
		return domainauth.Credential{}, fmt.Errorf("build sign-in request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return domainauth.Credential{}, apperrors.ProviderUnavailable("identity provider unreachable", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var apiErr struct {
			Error struct {
				Message string `json:"message"`
			} `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&apiErr)
		if resp.StatusCode >= 500 {
			return domainauth.Credential{}, apperrors.ProviderUnavailable("identity provider error", fmt.Errorf("status %d: %s", resp.StatusCode, apiErr.Error.Message))
		}
		return domainauth.Credential{}, apperrors.Validationf("sign-in rejected: %s", apiErr.Error.Message)
	}

	var out signInResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return domainauth.Credential{}, fmt.Errorf("decode sign-in response: %w", err)
	}

	user, err := p.lookupUser(ctx, out.LocalID)
	if err != nil {
		return domainauth.Credential{}, err
	}

	expiresAt := time.Now()
	if secs, convErr := strconv.Atoi(out.ExpiresIn); convErr == nil {
		expiresAt = expiresAt.Add(time.Duration(secs) * time.Second)
	}
	return domainauth.Credential{
		User:         user,
		IDToken:      out.IDToken,
		RefreshToken: out.RefreshToken,
		ExpiresAt:    expiresAt,
	}, nil
}

// BeginFederated returns opaque state and nonce for the popup flow.
// Firebase's popup runs entirely in the browser SDK; there is no
// provider URL to hand out, so authURL stays empty.
func (p *Provider) BeginFederated(_ context.Context) (string, string, string, error) {
	return "", uuid.NewString(), uuid.NewString(), nil
}

// CompleteFederated verifies the ID token minted by the popup
// (carried in FederatedInput.Code) and resolves the signed-in user.
func (p *Provider) CompleteFederated(ctx context.Context, in ports.FederatedInput) (domainauth.Credential, error) {
	if in.Code == "" {
		return domainauth.Credential{}, apperrors.Validation("federated ID token is required")
	}
	token, err := p.client.VerifyIDToken(ctx, in.Code)
	if err != nil {
		return domainauth.Credential{}, apperrors.ProviderUnavailable("verify federated token", err)
	}
	user, err := p.lookupUser(ctx, token.UID)
	if err != nil {
		return domainauth.Credential{}, err
	}
	p.storeClaims(token.UID, token.Claims)
	return domainauth.Credential{User: user, Federated: true, IDToken: in.Code}, nil
}

// SignOut revokes the user's refresh tokens, invalidating the
// provider-side session everywhere.
func (p *Provider) SignOut(ctx context.Context, uid string) error {
	if err := p.client.RevokeRefreshTokens(ctx, uid); err != nil {
		return apperrors.ProviderUnavailable("revoke refresh tokens", err)
	}
	p.mu.Lock()
	delete(p.claims, uid)
	p.mu.Unlock()
	return nil
}

// Claims returns the user's token claims. forceRefresh bypasses the
// local cache and reads the user record (custom claims included) fresh
// from the provider, so a role changed server-side is visible at once.
func (p *Provider) Claims(ctx context.Context, uid string, forceRefresh bool) (map[string]any, error) {
	if !forceRefresh {
		p.mu.Lock()
		if c, ok := p.claims[uid]; ok && time.Since(c.fetchedAt) < claimCacheTTL {
			p.mu.Unlock()
			return c.claims, nil
		}
		p.mu.Unlock()
	}

	rec, err := p.client.GetUser(ctx, uid)
	if err != nil {
		return nil, apperrors.ProviderUnavailable("fetch user claims", err)
	}
	claims := make(map[string]any, len(rec.CustomClaims)+2)
	for k, v := range rec.CustomClaims {
		claims[k] = v
	}
	claims["sub"] = rec.UID
	if rec.Email != "" {
		claims["email"] = rec.Email
	}
	p.storeClaims(uid, claims)
	return claims, nil
}

// UpdateProfile applies a partial update through the Admin SDK.
func (p *Provider) UpdateProfile(ctx context.Context, uid string, update ports.ProfileUpdate) (*domainauth.User, error) {
	params := &fbauth.UserToUpdate{}
	changed := false
	if update.DisplayName != nil {
		params = params.DisplayName(*update.DisplayName)
		changed = true
	}
	if update.PhotoURL != nil {
		params = params.PhotoURL(*update.PhotoURL)
		changed = true
	}
	if update.PhoneNumber != nil {
		params = params.PhoneNumber(*update.PhoneNumber)
		changed = true
	}
	if update.Email != nil {
		params = params.Email(*update.Email)
		changed = true
	}
	if !changed {
		return p.lookupUser(ctx, uid)
	}

	rec, err := p.client.UpdateUser(ctx, uid, params)
	if err != nil {
		return nil, apperrors.ProviderUnavailable("update profile", err)
	}
	return mapUserRecord(rec), nil
}

// SendPasswordReset generates and dispatches a password-reset link.
func (p *Provider) SendPasswordReset(ctx context.Context, email string) error {
	if _, err := p.client.PasswordResetLink(ctx, email); err != nil {
		return apperrors.ProviderUnavailable("password reset link", err)
	}
	return nil
}

// SendEmailVerification generates and dispatches a verification link.
func (p *Provider) SendEmailVerification(ctx context.Context, uid string) error {
	user, err := p.lookupUser(ctx, uid)
	if err != nil {
		return err
	}
	if user.Email == "" {
		return apperrors.Validation("user has no email address")
	}
	if _, err := p.client.EmailVerificationLink(ctx, user.Email); err != nil {
		return apperrors.ProviderUnavailable("email verification link", err)
	}
	return nil
}

func (p *Provider) lookupUser(ctx context.Context, uid string) (*domainauth.User, error) {
	rec, err := p.client.GetUser(ctx, uid)
	if err != nil {
		return nil, apperrors.ProviderUnavailable("fetch user", err)
	}
	return mapUserRecord(rec), nil
}

func (p *Provider) storeClaims(uid string, claims map[string]any) {
	p.mu.Lock()
	p.claims[uid] = cachedClaims{claims: claims, fetchedAt: time.Now()}
	p.mu.Unlock()
}

func mapUserRecord(rec *fbauth.UserRecord) *domainauth.User {
	return &domainauth.User{
		UID:           rec.UID,
		DisplayName:   rec.DisplayName,
		Email:         rec.Email,
		PhoneNumber:   rec.PhoneNumber,
		PhotoURL:      rec.PhotoURL,
		EmailVerified: rec.EmailVerified,
	}
}

var _ ports.IdentityProvider = (*Provider)(nil)
