package config

import (
	"os"
	"strings"
	"time"
)

// AppConfig is the main application configuration struct that composes
// domain-specific configuration from separate files.
//
// Configuration is loaded from environment variables using the
// github.com/caarlos0/env library. See individual domain config
// files for details on available environment variables:
//   - auth.go: Identity provider and session configuration
//   - store.go: Document store and profile cache configuration
type AppConfig struct {
	// IsDev controls development mode behavior.
	// Set DEV=true or NODE_ENV=development for development mode.
	IsDev bool `env:"DEV" envDefault:"false"`

	// Auth groups identity provider configuration.
	Auth AuthConfig

	// Session groups idle-timeout and role-claim configuration.
	Session SessionConfig

	// Store groups document-store configuration.
	Store StoreConfig

	// Redis is the profile snapshot cache connection.
	Redis RedisConfig `envPrefix:"REDIS_"`
}

// SessionConfig controls the session clock and role derivation.
type SessionConfig struct {
	// IdleTimeout is the idle budget before forced logout.
	IdleTimeout time.Duration `env:"SESSION_IDLE_TIMEOUT" envDefault:"30m"`

	// RoleClaim is the JMESPath of the role claim inside the identity
	// token (e.g. "role" for Firebase custom claims,
	// "realm_access.roles[0]" for Keycloak).
	RoleClaim string `env:"AUTH_ROLE_CLAIM" envDefault:"role"`
}

// Sanitize applies guardrails to configuration values loaded from env.
// This should be called after loading configuration from environment variables.
func (c *AppConfig) Sanitize() {
	if c.Session.IdleTimeout <= 0 {
		c.Session.IdleTimeout = 30 * time.Minute
	}
	if c.Session.RoleClaim == "" {
		c.Session.RoleClaim = "role"
	}
	c.Store.Sanitize()
	c.detectDevMode()
}

// detectDevMode checks both DEV and NODE_ENV environment variables.
// NODE_ENV is checked as a fallback (common in frontend tooling).
func (c *AppConfig) detectDevMode() {
	if !c.IsDev {
		nodeEnv := strings.ToLower(os.Getenv("NODE_ENV"))
		c.IsDev = nodeEnv == "development" || nodeEnv == "dev"
	}
}
