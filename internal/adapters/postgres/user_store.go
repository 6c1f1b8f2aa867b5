package postgres

// Package postgres implements the UserStore port on PostgreSQL. The
// store works off a *sql.DB opened with the pgx stdlib driver and drops
// to a raw pgx connection per call. Postgres has no push channel for
// row changes, so Watch polls.

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"

	domainauth "github.com/pattana/ledgershell/internal/domain/auth"
	apperrors "github.com/pattana/ledgershell/internal/errors"
	"github.com/pattana/ledgershell/internal/ports"
)

// defaultWatchInterval is how often Watch re-reads the row.
const defaultWatchInterval = 15 * time.Second

// UserStore implements ports.UserStore on a users table.
type UserStore struct {
	db            *sql.DB
	logger        *slog.Logger
	watchInterval time.Duration
}

// NewUserStore wraps an open database handle.
func NewUserStore(db *sql.DB, logger *slog.Logger) *UserStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &UserStore{db: db, logger: logger, watchInterval: defaultWatchInterval}
}

// Get fetches the user record for uid.
func (s *UserStore) Get(ctx context.Context, uid string) (domainauth.Record, error) {
	var rec domainauth.Record
	err := s.withConn(ctx, func(conn *pgx.Conn) error {
		row := conn.QueryRow(ctx, `
			SELECT uid, email, display_name, role, created_at
			FROM users
			WHERE uid = $1
		`, uid)
		return row.Scan(&rec.UID, &rec.Email, &rec.DisplayName, &rec.Role, &rec.CreatedAt)
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domainauth.Record{}, apperrors.NotFound("user")
		}
		return domainauth.Record{}, apperrors.MapDBError(err)
	}
	return rec, nil
}

// CreateIfAbsent inserts the record unless a row for the uid already
// exists. The existing row, role included, is left untouched.
func (s *UserStore) CreateIfAbsent(ctx context.Context, rec domainauth.Record) (bool, error) {
	var created bool
	err := s.withConn(ctx, func(conn *pgx.Conn) error {
		tag, execErr := conn.Exec(ctx, `
			INSERT INTO users (uid, email, display_name, role, created_at)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (uid) DO NOTHING
		`, rec.UID, rec.Email, rec.DisplayName, rec.Role, rec.CreatedAt)
		if execErr != nil {
			return execErr
		}
		created = tag.RowsAffected() > 0
		return nil
	})
	if err != nil {
		return false, apperrors.MapDBError(err)
	}
	return created, nil
}

// Watch polls the row and emits a record whenever it changes. The
// channel closes when ctx is canceled.
func (s *UserStore) Watch(ctx context.Context, uid string) (<-chan domainauth.Record, error) {
	out := make(chan domainauth.Record, 1)
	go func() {
		defer close(out)
		ticker := time.NewTicker(s.watchInterval)
		defer ticker.Stop()

		var last domainauth.Record
		have := false
		for {
			rec, err := s.Get(ctx, uid)
			switch {
			case err == nil:
				if !have || rec != last {
					last, have = rec, true
					select {
					case out <- rec:
					case <-ctx.Done():
						return
					}
				}
			case apperrors.IsNotFound(err):
				// row not written yet, keep polling
			default:
				if ctx.Err() != nil {
					return
				}
				s.logger.Warn("user watch poll failed", "uid", uid, "error", err)
			}

			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
		}
	}()
	return out, nil
}

// withConn acquires a raw pgx connection through the stdlib bridge and
// executes fn with it.
func (s *UserStore) withConn(ctx context.Context, fn func(*pgx.Conn) error) error {
	conn, err := s.db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("get conn from pool: %w", err)
	}
	defer func() {
		_ = conn.Close()
	}()

	return conn.Raw(func(dc any) error {
		std, ok := dc.(*stdlib.Conn)
		if !ok {
			return errors.New("unexpected driver connection type; expected *stdlib.Conn")
		}
		return fn(std.Conn())
	})
}

var _ ports.UserStore = (*UserStore)(nil)
