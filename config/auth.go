package config

import (
	"fmt"
	"strings"
)

// AuthMode represents the identity provider backing the session.
type AuthMode string

const (
	// AuthModeFirebase uses the Firebase identity platform.
	AuthModeFirebase AuthMode = "firebase"
	// AuthModeOIDC uses a generic OIDC provider for federated sign-in.
	AuthModeOIDC AuthMode = "oidc"
	// AuthModeMock uses mock/dev authentication (for development only).
	AuthModeMock AuthMode = "mock"
)

// UnmarshalText implements encoding.TextUnmarshaler for AuthMode.
func (a *AuthMode) UnmarshalText(text []byte) error {
	v := strings.ToLower(string(text))
	switch v {
	case "firebase", "oidc", "mock":
		*a = AuthMode(v)
		return nil
	default:
		return fmt.Errorf("invalid AuthMode: %q (valid options: firebase, oidc, mock)", v)
	}
}

// FirebaseConfig contains Firebase project credentials.
type FirebaseConfig struct {
	// CredentialsPath points to the service-account JSON file.
	CredentialsPath string `env:"CREDENTIALS_PATH"`
	ProjectID       string `env:"PROJECT_ID"`
	// WebAPIKey is the site-verification key used by the Identity
	// Toolkit password sign-in endpoint.
	WebAPIKey string `env:"WEB_API_KEY"`
}

// OAuthConfig contains OIDC configuration for federated sign-in.
type OAuthConfig struct {
	ClientID     string `env:"CLIENT_ID"     envDefault:"ledgershell"`
	ClientSecret string `env:"CLIENT_SECRET" envDefault:""`
	RedirectURL  string `env:"REDIRECT_URL"  envDefault:"http://localhost:8080/auth/callback"`
	Scope        string `env:"SCOPE"         envDefault:"openid profile email"`
	DiscoveryURL string `env:"DISCOVERY_URL"`
}

// DevAuthConfig controls mock/dev authentication identity.
// Used when AUTH_MODE=mock for development and testing.
type DevAuthConfig struct {
	UID         string `env:"UID"          envDefault:"dev-user"`
	Email       string `env:"EMAIL"        envDefault:"dev@example.com"`
	DisplayName string `env:"DISPLAY_NAME" envDefault:"Dev User"`
	Role        string `env:"ROLE"         envDefault:"admin"`
}

// AuthConfig groups all identity-provider configuration.
type AuthConfig struct {
	// Mode determines which identity provider adapter to use.
	Mode AuthMode `env:"AUTH_MODE" envDefault:"firebase"`

	// Firebase configuration (used when Mode=firebase).
	Firebase FirebaseConfig `envPrefix:"FIREBASE_"`

	// OAuth configuration (used when Mode=oidc).
	OAuth OAuthConfig `envPrefix:"OAUTH_"`

	// DevAuth configuration (used when Mode=mock).
	DevAuth DevAuthConfig `envPrefix:"DEV_AUTH_"`
}
