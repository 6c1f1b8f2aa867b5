package memstore

// Package memstore implements the UserStore port in process memory.
// It backs local development without external services and doubles as
// the store used by most tests. Watch gets real push semantics so the
// role-change path can be exercised end to end.

import (
	"context"
	"sync"

	domainauth "github.com/pattana/ledgershell/internal/domain/auth"
	apperrors "github.com/pattana/ledgershell/internal/errors"
	"github.com/pattana/ledgershell/internal/ports"
)

// UserStore implements ports.UserStore in memory.
type UserStore struct {
	mu       sync.Mutex
	records  map[string]domainauth.Record
	watchers map[string][]chan domainauth.Record
}

// NewUserStore returns an empty in-memory store.
func NewUserStore() *UserStore {
	return &UserStore{
		records:  make(map[string]domainauth.Record),
		watchers: make(map[string][]chan domainauth.Record),
	}
}

func (s *UserStore) Get(_ context.Context, uid string) (domainauth.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[uid]
	if !ok {
		return domainauth.Record{}, apperrors.NotFound("user")
	}
	return rec, nil
}

func (s *UserStore) CreateIfAbsent(_ context.Context, rec domainauth.Record) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[rec.UID]; ok {
		return false, nil
	}
	s.records[rec.UID] = rec
	s.notifyLocked(rec)
	return true, nil
}

// Put overwrites the record unconditionally and notifies watchers.
// It exists for tests and dev seeding; the session layer only ever
// writes through CreateIfAbsent.
func (s *UserStore) Put(rec domainauth.Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[rec.UID] = rec
	s.notifyLocked(rec)
}

func (s *UserStore) Watch(ctx context.Context, uid string) (<-chan domainauth.Record, error) {
	ch := make(chan domainauth.Record, 4)

	s.mu.Lock()
	s.watchers[uid] = append(s.watchers[uid], ch)
	if rec, ok := s.records[uid]; ok {
		ch <- rec
	}
	s.mu.Unlock()

	go func() {
		<-ctx.Done()
		s.mu.Lock()
		defer s.mu.Unlock()
		chans := s.watchers[uid]
		for i, c := range chans {
			if c == ch {
				s.watchers[uid] = append(chans[:i], chans[i+1:]...)
				break
			}
		}
		close(ch)
	}()
	return ch, nil
}

// notifyLocked fans a record out to its watchers. Slow watchers drop
// updates rather than block the writer.
func (s *UserStore) notifyLocked(rec domainauth.Record) {
	for _, ch := range s.watchers[rec.UID] {
		select {
		case ch <- rec:
		default:
		}
	}
}

var _ ports.UserStore = (*UserStore)(nil)
