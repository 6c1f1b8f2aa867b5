package firestore

// Package firestore implements the UserStore port on Cloud Firestore.
// User records live in a single collection keyed by uid; Watch uses
// the document snapshot listener so role edits made in the console are
// pushed to the client without polling.

import (
	"context"
	"fmt"
	"log/slog"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	domainauth "github.com/pattana/ledgershell/internal/domain/auth"
	apperrors "github.com/pattana/ledgershell/internal/errors"
	"github.com/pattana/ledgershell/internal/ports"
)

const usersCollection = "users"

// UserStore implements ports.UserStore on a Firestore collection.
type UserStore struct {
	client *firestore.Client
	logger *slog.Logger
}

// NewUserStore connects to Firestore for the given project.
func NewUserStore(ctx context.Context, projectID, credentialsPath string, logger *slog.Logger) (*UserStore, error) {
	if projectID == "" {
		return nil, apperrors.Validation("firestore project ID is required")
	}
	var opts []option.ClientOption
	if credentialsPath != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsPath))
	}
	client, err := firestore.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("firestore client: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &UserStore{client: client, logger: logger}, nil
}

// Close releases the underlying client.
func (s *UserStore) Close() error {
	return s.client.Close()
}

// Get fetches the user record for uid.
func (s *UserStore) Get(ctx context.Context, uid string) (domainauth.Record, error) {
	snap, err := s.client.Collection(usersCollection).Doc(uid).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return domainauth.Record{}, apperrors.NotFound("user")
		}
		return domainauth.Record{}, fmt.Errorf("get user %s: %w", uid, err)
	}
	var rec domainauth.Record
	if err := snap.DataTo(&rec); err != nil {
		return domainauth.Record{}, fmt.Errorf("decode user %s: %w", uid, err)
	}
	rec.UID = snap.Ref.ID
	return rec, nil
}

// CreateIfAbsent writes the record only when no document exists yet.
// An existing record is never touched, so a role assigned earlier
// survives every subsequent sign-in.
func (s *UserStore) CreateIfAbsent(ctx context.Context, rec domainauth.Record) (bool, error) {
	_, err := s.client.Collection(usersCollection).Doc(rec.UID).Create(ctx, rec)
	if err != nil {
		if status.Code(err) == codes.AlreadyExists {
			return false, nil
		}
		return false, fmt.Errorf("create user %s: %w", rec.UID, err)
	}
	return true, nil
}

// Watch streams the user document as it changes. The channel closes
// when ctx is canceled or the listener fails.
func (s *UserStore) Watch(ctx context.Context, uid string) (<-chan domainauth.Record, error) {
	iter := s.client.Collection(usersCollection).Doc(uid).Snapshots(ctx)
	out := make(chan domainauth.Record, 1)
	go func() {
		defer close(out)
		defer iter.Stop()
		for {
			snap, err := iter.Next()
			if err != nil {
				if ctx.Err() == nil {
					s.logger.Warn("user watch stopped", "uid", uid, "error", err)
				}
				return
			}
			if !snap.Exists() {
				continue
			}
			var rec domainauth.Record
			if err := snap.DataTo(&rec); err != nil {
				s.logger.Warn("user watch decode failed", "uid", uid, "error", err)
				continue
			}
			rec.UID = snap.Ref.ID
			select {
			case out <- rec:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

var _ ports.UserStore = (*UserStore)(nil)
