package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/pattana/ledgershell/config"
	"github.com/pattana/ledgershell/internal/adapters/devauth"
	"github.com/pattana/ledgershell/internal/adapters/firebaseauth"
	fsstore "github.com/pattana/ledgershell/internal/adapters/firestore"
	"github.com/pattana/ledgershell/internal/adapters/memstore"
	"github.com/pattana/ledgershell/internal/adapters/oidc"
	pgstore "github.com/pattana/ledgershell/internal/adapters/postgres"
	rediscache "github.com/pattana/ledgershell/internal/adapters/redis"
	"github.com/pattana/ledgershell/internal/migrate"
	"github.com/pattana/ledgershell/internal/ports"
)

// BuildIdentityProvider selects the identity provider adapter from
// configuration.
//
//nolint:ireturn // the mode switch is the whole point here.
func BuildIdentityProvider(ctx context.Context, cfg config.AuthConfig, logger *slog.Logger) (ports.IdentityProvider, error) {
	switch cfg.Mode {
	case config.AuthModeFirebase:
		provider, err := firebaseauth.NewProvider(ctx, cfg.Firebase)
		if err != nil {
			return nil, fmt.Errorf("firebase provider: %w", err)
		}
		logger.Info("identity provider ready", "mode", "firebase", "project", cfg.Firebase.ProjectID)
		return provider, nil

	case config.AuthModeOIDC:
		provider, err := oidc.NewProvider(oidc.ProviderConfig{
			ClientID:     cfg.OAuth.ClientID,
			ClientSecret: cfg.OAuth.ClientSecret,
			RedirectURL:  cfg.OAuth.RedirectURL,
			Scope:        cfg.OAuth.Scope,
			DiscoveryURL: cfg.OAuth.DiscoveryURL,
		})
		if err != nil {
			return nil, fmt.Errorf("oidc provider: %w", err)
		}
		logger.Info("identity provider ready", "mode", "oidc")
		return provider, nil

	case config.AuthModeMock:
		provider, err := devauth.NewProvider(cfg.DevAuth)
		if err != nil {
			return nil, fmt.Errorf("dev provider: %w", err)
		}
		logger.Warn("identity provider ready", "mode", "mock", "uid", cfg.DevAuth.UID)
		return provider, nil

	default:
		return nil, fmt.Errorf("unknown auth mode: %q", cfg.Mode)
	}
}

// BuildUserStore selects the user record store from configuration.
//
//nolint:ireturn
func BuildUserStore(ctx context.Context, cfg config.AppConfig, logger *slog.Logger) (ports.UserStore, func() error, error) {
	noop := func() error { return nil }

	switch cfg.Store.Mode {
	case config.StoreModeFirestore:
		store, err := fsstore.NewUserStore(ctx, cfg.Auth.Firebase.ProjectID, cfg.Auth.Firebase.CredentialsPath, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("firestore store: %w", err)
		}
		logger.Info("user store ready", "mode", "firestore")
		return store, store.Close, nil

	case config.StoreModePostgres:
		db, err := ConnectDB(cfg.Store.Postgres, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("postgres store: %w", err)
		}
		if err := migrate.Run(ctx, db); err != nil {
			_ = db.Close()
			return nil, nil, fmt.Errorf("migrate: %w", err)
		}
		logger.Info("user store ready", "mode", "postgres")
		return pgstore.NewUserStore(db, logger), db.Close, nil

	case config.StoreModeMemory:
		logger.Warn("user store ready", "mode", "memory")
		return memstore.NewUserStore(), noop, nil

	default:
		return nil, nil, fmt.Errorf("unknown store mode: %q", cfg.Store.Mode)
	}
}

// BuildProfileCache connects the Redis snapshot cache. In dev mode a
// missing Redis degrades to no cache instead of failing startup.
//
//nolint:ireturn
func BuildProfileCache(cfg config.AppConfig, logger *slog.Logger) (ports.ProfileCache, func() error, error) {
	noop := func() error { return nil }

	client, err := ConnectRedis(cfg.Redis, logger)
	if err != nil {
		if cfg.IsDev {
			logger.Warn("redis unavailable, profile snapshots disabled", "error", err)
			return nil, noop, nil
		}
		return nil, nil, err
	}
	return rediscache.NewProfileCache(client, cfg.Redis.SnapshotTTL), client.Close, nil
}
