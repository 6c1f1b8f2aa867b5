// Package devseed populates the user store with a fixed set of dev
// accounts so the shell has recognizable identities to sign in with.
// It only runs in development mode.
package devseed

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	domainauth "github.com/pattana/ledgershell/internal/domain/auth"
	"github.com/pattana/ledgershell/internal/ports"
)

// Run seeds the dev accounts. Existing records keep their role.
func Run(ctx context.Context, store ports.UserStore, logger *slog.Logger) error {
	failures := 0
	records := []domainauth.Record{
		{UID: "dev-admin", Email: "admin@example.com", DisplayName: "Dev Admin", Role: domainauth.RoleAdmin},
		{UID: "dev-manager", Email: "manager@example.com", DisplayName: "Dev Manager", Role: domainauth.RoleManager},
		{UID: "dev-user", Email: "dev@example.com", DisplayName: "Dev User", Role: domainauth.RoleUser},
	}

	for _, rec := range records {
		rec.CreatedAt = time.Now().UTC()
		created, err := store.CreateIfAbsent(ctx, rec)
		if err != nil {
			if logger != nil {
				logger.ErrorContext(ctx, "failed to seed user", "uid", rec.UID, "error", err)
			}
			failures++
			continue
		}
		if logger != nil {
			msg := "user already exists"
			if created {
				msg = "created user"
			}
			logger.InfoContext(ctx, msg, "uid", rec.UID, "role", rec.Role)
		}
	}

	if failures > 0 {
		return fmt.Errorf("%d seed errors; check logs", failures)
	}
	return nil
}
