package service

import (
	"context"
	"log/slog"
	"sync"
	"time"

	domainauth "github.com/pattana/ledgershell/internal/domain/auth"
	apperrors "github.com/pattana/ledgershell/internal/errors"
	"github.com/pattana/ledgershell/internal/ports"
)

// SessionOptions groups dependencies for Session.
type SessionOptions struct {
	Provider ports.IdentityProvider
	Store    ports.UserStore
	Cache    ports.ProfileCache // optional; snapshot persistence is skipped when nil
	Roles    *domainauth.RoleExtractor
	Logger   *slog.Logger
}

// Session is the process-wide identity session. It owns the current
// user state, emits state changes to observers and subscribers, and
// derives the privilege and role streams by force-refreshing the token
// claims on every emission.
//
// It is explicitly constructed and explicitly closed; consumers
// receive it by reference, never through a package-level global.
type Session struct {
	provider ports.IdentityProvider
	store    ports.UserStore
	cache    ports.ProfileCache
	roles    *domainauth.RoleExtractor
	logger   *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu        sync.Mutex
	seq       uint64
	applied   uint64
	current   domainauth.State
	observers []func(domainauth.State)
	userSubs  *subscriberSet[domainauth.State]
	privSubs  *subscriberSet[bool]
	roleSubs  *subscriberSet[string]
	closed    bool

	emissions chan emission
	done      chan struct{}
}

type emission struct {
	seq   uint64
	state domainauth.State
}

// NewSession constructs the session and starts its derivation loop.
// Callers must Close it on teardown.
func NewSession(opts SessionOptions) (*Session, error) {
	if opts.Provider == nil {
		return nil, apperrors.Validation("identity provider is required")
	}
	if opts.Store == nil {
		return nil, apperrors.Validation("user store is required")
	}
	roles := opts.Roles
	if roles == nil {
		var err error
		roles, err = domainauth.NewRoleExtractor("")
		if err != nil {
			return nil, err
		}
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Session{
		provider:  opts.Provider,
		store:     opts.Store,
		cache:     opts.Cache,
		roles:     roles,
		logger:    logger,
		ctx:       ctx,
		cancel:    cancel,
		userSubs:  newSubscriberSet[domainauth.State](),
		privSubs:  newSubscriberSet[bool](),
		roleSubs:  newSubscriberSet[string](),
		emissions: make(chan emission, 64),
		done:      make(chan struct{}),
	}
	go s.deriveLoop()
	return s, nil
}

// Close stops the derivation loop and closes all subscriber channels.
// Safe to call more than once.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()

	s.cancel()
	<-s.done
	s.userSubs.closeAll()
	s.privSubs.closeAll()
	s.roleSubs.closeAll()
}

// CurrentUser returns the latest known user, or nil when anonymous.
// This is a synchronous read of state maintained by the emission path.
func (s *Session) CurrentUser() *domainauth.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current.User
}

// CurrentState returns the latest session state.
func (s *Session) CurrentState() domainauth.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// IsLoggedIn reports whether a user is currently signed in.
func (s *Session) IsLoggedIn() bool {
	return s.CurrentUser() != nil
}

// OnState registers a synchronous observer invoked on every state
// emission, in registration order, before the emitting operation
// (login, logout, invalidation) returns. The shell uses this to keep
// menu visibility and dialog teardown ordered ahead of any follow-up
// navigation.
func (s *Session) OnState(fn func(domainauth.State)) {
	if fn == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observers = append(s.observers, fn)
}

// Users subscribes to the state stream. Emissions are delivered in the
// order they were produced. The returned unsubscribe func is
// idempotent; the channel closes on unsubscribe or session close.
func (s *Session) Users() (func(), <-chan domainauth.State) {
	return s.userSubs.subscribe()
}

// Privileged subscribes to the derived privilege stream: exactly one
// boolean per state emission, true iff the freshly fetched role claim
// is admin or manager. A provider failure degrades to false.
func (s *Session) Privileged() (func(), <-chan bool) {
	return s.privSubs.subscribe()
}

// Roles subscribes to the derived role stream: the raw role claim per
// state emission, or "" when no user is signed in or the claim is
// missing.
func (s *Session) Roles() (func(), <-chan string) {
	return s.roleSubs.subscribe()
}

// Login performs email/password sign-in. On success the new state is
// emitted (and synchronous observers have run) before Login returns.
func (s *Session) Login(ctx context.Context, email, password string) (domainauth.Credential, error) {
	cred, err := s.provider.SignIn(ctx, email, password)
	if err != nil {
		return domainauth.Credential{}, err
	}
	s.saveSnapshot(ctx, cred.User)
	s.emit(cred.User)
	return cred, nil
}

// BeginFederatedLogin starts the federated popup flow.
func (s *Session) BeginFederatedLogin(ctx context.Context) (authURL, state, nonce string, err error) {
	return s.provider.BeginFederated(ctx)
}

// CompleteFederatedLogin finishes the federated flow. On first sign-in
// it bootstraps a minimal users/{uid} record; the write is
// create-if-absent, so replays never clobber an existing record's
// role.
func (s *Session) CompleteFederatedLogin(ctx context.Context, in ports.FederatedInput) (domainauth.Credential, error) {
	cred, err := s.provider.CompleteFederated(ctx, in)
	if err != nil {
		return domainauth.Credential{}, err
	}
	if err := s.bootstrapRecord(ctx, cred.User); err != nil {
		// Best effort: the signed-in session stands even if the
		// document store is briefly unreachable.
		s.logger.WarnContext(ctx, "user record bootstrap failed", "uid", cred.User.UID, "error", err)
	}
	s.saveSnapshot(ctx, cred.User)
	s.emit(cred.User)
	return cred, nil
}

// Logout fully clears the provider-side session, then emits the
// anonymous state. It resolves only after both have completed.
func (s *Session) Logout(ctx context.Context) error {
	user := s.CurrentUser()
	if user != nil {
		if err := s.provider.SignOut(ctx, user.UID); err != nil {
			return apperrors.Wrap(err, apperrors.ErrCodeProviderUnavailable, "sign out")
		}
	}
	s.emit(nil)
	return nil
}

// Invalidate records an external session invalidation (token revoked,
// provider-side sign-out) without calling the provider.
func (s *Session) Invalidate() {
	s.emit(nil)
}

// UpdateProfile applies a partial profile update for the current user.
func (s *Session) UpdateProfile(ctx context.Context, update ports.ProfileUpdate) (*domainauth.User, error) {
	user := s.CurrentUser()
	if user == nil {
		return nil, apperrors.NotAuthenticated("profile update requires a signed-in user")
	}
	updated, err := s.provider.UpdateProfile(ctx, user.UID, update)
	if err != nil {
		return nil, err
	}
	s.saveSnapshot(ctx, updated)

	// Keep the synchronous read current without producing a new
	// authentication emission; the user did not change.
	s.mu.Lock()
	if s.current.User != nil && s.current.User.UID == updated.UID {
		s.current.User = updated
	}
	s.mu.Unlock()
	return updated, nil
}

// ForgotPassword sends a password-reset email.
func (s *Session) ForgotPassword(ctx context.Context, email string) error {
	return s.provider.SendPasswordReset(ctx, email)
}

// SendEmailVerification sends a verification email to the current user.
func (s *Session) SendEmailVerification(ctx context.Context) error {
	user := s.CurrentUser()
	if user == nil {
		return apperrors.NotAuthenticated("email verification requires a signed-in user")
	}
	return s.provider.SendEmailVerification(ctx, user.UID)
}

// ProfileRecord reads the users/{uid} record for the current user.
func (s *Session) ProfileRecord(ctx context.Context) (domainauth.Record, error) {
	user := s.CurrentUser()
	if user == nil {
		return domainauth.Record{}, apperrors.NotAuthenticated("no signed-in user")
	}
	return s.store.Get(ctx, user.UID)
}

// WatchProfile streams the users/{uid} record for the current user.
func (s *Session) WatchProfile(ctx context.Context) (<-chan domainauth.Record, error) {
	user := s.CurrentUser()
	if user == nil {
		return nil, apperrors.NotAuthenticated("no signed-in user")
	}
	return s.store.Watch(ctx, user.UID)
}

// LastKnownProfile returns the cached display-only snapshot for uid.
// It may be stale and must never feed an authorization decision.
func (s *Session) LastKnownProfile(ctx context.Context, uid string) (domainauth.Snapshot, error) {
	if s.cache == nil {
		return domainauth.Snapshot{}, apperrors.NotFound("profile cache not configured")
	}
	return s.cache.Load(ctx, uid)
}

// emit records the new state, runs synchronous observers in order, and
// queues the emission for the derivation loop.
func (s *Session) emit(user *domainauth.User) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.seq++
	state := domainauth.State{User: user}
	s.current = state
	seq := s.seq
	observers := make([]func(domainauth.State), len(s.observers))
	copy(observers, s.observers)
	s.mu.Unlock()

	for _, fn := range observers {
		fn(state)
	}

	select {
	case s.emissions <- emission{seq: seq, state: state}:
	case <-s.ctx.Done():
	}
}

// deriveLoop processes emissions strictly in order: one privilege and
// one role value per emission, each computed from that emission's own
// user via a forced claim refresh.
func (s *Session) deriveLoop() {
	defer close(s.done)
	for {
		var em emission
		select {
		case <-s.ctx.Done():
			return
		case em = <-s.emissions:
		}

		s.userSubs.send(s.ctx, em.state)

		privileged := false
		rawRole := ""
		if em.state.User != nil {
			privileged, rawRole = s.resolveRole(em.state.User.UID)
		}
		// Serial processing means a refresh can never complete after a
		// newer emission has been applied; the guard keeps that
		// invariant explicit should the loop ever be parallelized.
		if !s.applyDerived(em.seq, domainauth.ParseRole(rawRole)) {
			continue
		}
		s.privSubs.send(s.ctx, privileged)
		s.roleSubs.send(s.ctx, rawRole)
	}
}

// resolveRole force-refreshes the token claims and extracts the role.
// Provider failures degrade to the unprivileged default instead of
// failing the stream.
func (s *Session) resolveRole(uid string) (bool, string) {
	ctx, cancel := context.WithTimeout(s.ctx, 15*time.Second)
	defer cancel()

	claims, err := s.provider.Claims(ctx, uid, true)
	if err != nil {
		s.logger.WarnContext(ctx, "claim refresh failed, treating as unprivileged", "uid", uid, "error", err)
		return false, ""
	}
	role := s.roles.Extract(claims)
	raw := rawClaimString(claims, s.roles)
	return role.Privileged(), raw
}

// rawClaimString returns the unparsed claim value for the role stream.
func rawClaimString(claims map[string]any, roles *domainauth.RoleExtractor) string {
	if len(claims) == 0 {
		return ""
	}
	return roles.ExtractRaw(claims)
}

// applyDerived applies a derived result only when it is not stale:
// results for emissions older than the most recently applied one are
// discarded.
func (s *Session) applyDerived(seq uint64, role domainauth.Role) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if seq < s.applied {
		return false
	}
	s.applied = seq
	if s.current.User != nil {
		s.current.Role = role
	}
	return true
}

// bootstrapRecord writes the minimal user record if absent.
func (s *Session) bootstrapRecord(ctx context.Context, user *domainauth.User) error {
	rec := domainauth.Record{
		UID:         user.UID,
		Email:       user.Email,
		DisplayName: user.DisplayName,
		Role:        domainauth.RoleUser,
		CreatedAt:   time.Now().UTC(),
	}
	created, err := s.store.CreateIfAbsent(ctx, rec)
	if err != nil {
		return err
	}
	if created {
		s.logger.InfoContext(ctx, "bootstrapped user record", "uid", user.UID)
	}
	return nil
}

// saveSnapshot persists the display-only profile snapshot, best effort.
func (s *Session) saveSnapshot(ctx context.Context, user *domainauth.User) {
	if s.cache == nil || user == nil {
		return
	}
	snap := domainauth.Snapshot{
		UID:         user.UID,
		DisplayName: user.DisplayName,
		Email:       user.Email,
		PhotoURL:    user.PhotoURL,
		SavedAt:     time.Now().UTC(),
	}
	if err := s.cache.Save(ctx, snap); err != nil {
		s.logger.WarnContext(ctx, "profile snapshot save failed", "uid", user.UID, "error", err)
	}
}
