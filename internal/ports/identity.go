package ports

// Package ports defines interfaces (hexagonal ports) for the external
// collaborators of the shell: identity provider, document store,
// profile cache, router, and dialog host. Implementations live in
// internal/adapters; orchestration in internal/service.

import (
	"context"

	domainauth "github.com/pattana/ledgershell/internal/domain/auth"
)

// ProfileUpdate carries the optional fields of a profile update.
// Nil pointers mean "leave unchanged".
type ProfileUpdate struct {
	DisplayName *string
	PhotoURL    *string
	PhoneNumber *string
	Email       *string
}

// FederatedInput groups parameters for completing a federated sign-in
// (the popup flow's code/state/nonce exchange).
type FederatedInput struct {
	Code  string
	State string
	Nonce string
}

// IdentityProvider is the narrow surface of the external identity
// platform the session consumes. Every method is a network round-trip
// that may fail with a provider_unavailable error; callers decide
// whether that is fatal (user-initiated operations) or degrades to a
// safe default (privilege checks).
type IdentityProvider interface {
	// SignIn performs email/password authentication.
	SignIn(ctx context.Context, email, password string) (domainauth.Credential, error)

	// BeginFederated starts the federated popup flow and returns the
	// provider auth URL plus opaque state and nonce.
	BeginFederated(ctx context.Context) (authURL, state, nonce string, err error)

	// CompleteFederated finishes the federated flow and returns the
	// signed-in credential.
	CompleteFederated(ctx context.Context, in FederatedInput) (domainauth.Credential, error)

	// SignOut fully clears the provider-side session for the user.
	SignOut(ctx context.Context, uid string) error

	// Claims returns the token claims for the user. With forceRefresh
	// the provider is asked for a fresh token, bypassing any cache;
	// role claims can change server-side between logins, so privilege
	// decisions must always pass forceRefresh=true.
	Claims(ctx context.Context, uid string, forceRefresh bool) (map[string]any, error)

	// UpdateProfile applies a partial profile update.
	UpdateProfile(ctx context.Context, uid string, update ProfileUpdate) (*domainauth.User, error)

	// SendPasswordReset emails a password-reset link.
	SendPasswordReset(ctx context.Context, email string) error

	// SendEmailVerification emails a verification link to the user.
	SendEmailVerification(ctx context.Context, uid string) error
}
