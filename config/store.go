package config

import (
	"fmt"
	"strings"
	"time"
)

// StoreMode selects the users/{uid} document store backend.
type StoreMode string

const (
	// StoreModeFirestore keeps user records in Cloud Firestore.
	StoreModeFirestore StoreMode = "firestore"
	// StoreModePostgres keeps user records in PostgreSQL.
	StoreModePostgres StoreMode = "postgres"
	// StoreModeMemory keeps user records in process memory (dev/tests).
	StoreModeMemory StoreMode = "memory"
)

// UnmarshalText implements encoding.TextUnmarshaler for StoreMode.
func (s *StoreMode) UnmarshalText(text []byte) error {
	v := strings.ToLower(string(text))
	switch v {
	case "firestore", "postgres", "memory":
		*s = StoreMode(v)
		return nil
	default:
		return fmt.Errorf("invalid StoreMode: %q (valid options: firestore, postgres, memory)", v)
	}
}

// DBConfig contains PostgreSQL configuration for the postgres store.
type DBConfig struct {
	Host     string `env:"HOST"     envDefault:"localhost"`
	Port     int    `env:"PORT"     envDefault:"5432"`
	User     string `env:"USER"     envDefault:"ledgershell"`
	Password string `env:"PASSWORD" envDefault:"ledgershell"`
	Name     string `env:"NAME"     envDefault:"ledgershell"`
	SSLMode  string `env:"SSL_MODE" envDefault:"disable"` // 'disable' for local dev, 'require' for production
}

// DSN renders the pgx connection string.
func (c DBConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Name, c.SSLMode)
}

// RedisConfig contains the profile snapshot cache connection.
type RedisConfig struct {
	Addr     string `env:"ADDR"     envDefault:"localhost:6379"`
	Password string `env:"PASSWORD" envDefault:""`
	DB       int    `env:"DB"       envDefault:"0"`

	// SnapshotTTL bounds how long a stale profile snapshot is served.
	SnapshotTTL time.Duration `env:"SNAPSHOT_TTL" envDefault:"720h"`
}

// StoreConfig groups document-store configuration.
type StoreConfig struct {
	// Mode determines which UserStore adapter to use.
	Mode StoreMode `env:"STORE_MODE" envDefault:"firestore"`

	// Postgres configuration (used when Mode=postgres).
	Postgres DBConfig `envPrefix:"DB_"`
}

// Sanitize applies guardrails to store configuration.
func (c *StoreConfig) Sanitize() {
	if c.Mode == "" {
		c.Mode = StoreModeFirestore
	}
}
