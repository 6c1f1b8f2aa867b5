package ports

import (
	"context"

	domainauth "github.com/pattana/ledgershell/internal/domain/auth"
)

// UserStore persists and retrieves the users/{uid} record in the
// external document store.
type UserStore interface {
	// Get returns the record for uid, or a not_found error.
	Get(ctx context.Context, uid string) (domainauth.Record, error)

	// CreateIfAbsent writes the record only when no record exists for
	// its UID. It never overwrites an existing record and in
	// particular never changes an existing record's role. Calling it
	// twice for the same UID is harmless; created reports whether this
	// call performed the write.
	CreateIfAbsent(ctx context.Context, rec domainauth.Record) (created bool, err error)

	// Watch streams the record for uid as it changes (read-through
	// subscription). The channel closes when ctx is done.
	Watch(ctx context.Context, uid string) (<-chan domainauth.Record, error)
}

// ProfileCache stores the last-known profile snapshot for offline
// display. Contents are cosmetic only and may go stale; they must
// never feed an authorization decision.
type ProfileCache interface {
	Save(ctx context.Context, snap domainauth.Snapshot) error
	// Load returns the cached snapshot for uid, or a not_found error.
	Load(ctx context.Context, uid string) (domainauth.Snapshot, error)
	Delete(ctx context.Context, uid string) error
}
