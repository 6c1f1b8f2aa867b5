package shell

// Package shell composes the session, menu, idle clock, and dialog
// signal bus into the application root. The shell owns the profile
// dialog lifecycle; nothing else opens or closes it.

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	domainauth "github.com/pattana/ledgershell/internal/domain/auth"
	"github.com/pattana/ledgershell/internal/domain/dialog"
	"github.com/pattana/ledgershell/internal/domain/menu"
	apperrors "github.com/pattana/ledgershell/internal/errors"
	"github.com/pattana/ledgershell/internal/ports"
	"github.com/pattana/ledgershell/internal/service"
)

// ProfileDialogComponent names the component handed to the dialog host.
const ProfileDialogComponent = "user-profile"

// Options groups dependencies for Shell.
type Options struct {
	Session *service.Session
	Menu    *service.Menu
	Bus     *dialog.Bus
	Dialogs ports.DialogHost
	Clock   *service.IdleClock
	Logger  *slog.Logger
}

// Shell is the application root. Its state machine has exactly two
// states, driven solely by user presence: no-menu (anonymous) and
// menu-visible (authenticated).
type Shell struct {
	session *service.Session
	menu    *service.Menu
	bus     *dialog.Bus
	dialogs ports.DialogHost
	clock   *service.IdleClock
	logger  *slog.Logger

	mu          sync.Mutex
	menuVisible bool
	items       menu.Tree
	popup       menu.Tree
	ref         ports.DialogRef
	sub         *dialog.Subscription
	unsubItems  func()
	started     bool
	closed      bool
}

// New constructs the shell; call Start to wire it up.
func New(opts Options) (*Shell, error) {
	if opts.Session == nil {
		return nil, apperrors.Validation("session is required")
	}
	if opts.Menu == nil {
		return nil, apperrors.Validation("menu is required")
	}
	if opts.Bus == nil {
		return nil, apperrors.Validation("dialog bus is required")
	}
	if opts.Dialogs == nil {
		return nil, apperrors.Validation("dialog host is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Shell{
		session: opts.Session,
		menu:    opts.Menu,
		bus:     opts.Bus,
		dialogs: opts.Dialogs,
		clock:   opts.Clock,
		logger:  logger,
		popup:   opts.Menu.PopupItems(),
	}, nil
}

// Start subscribes to the dialog signal bus and the menu stream, wires
// the idle clock to authentication activity, and arms it.
func (s *Shell) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return apperrors.Validation("shell already started")
	}
	s.started = true
	s.mu.Unlock()

	s.sub = s.bus.Subscribe(func() { s.openProfileDialog(ctx) })

	// Synchronous state observer: menu visibility flips and the open
	// dialog is torn down before the emitting operation (logout, idle
	// expiry) returns and navigates away.
	s.session.OnState(func(st domainauth.State) {
		s.onState(st)
	})

	unsub, items := s.menu.Items()
	s.unsubItems = unsub
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case tree, ok := <-items:
				if !ok {
					return
				}
				s.mu.Lock()
				s.items = tree
				s.mu.Unlock()
			}
		}
	}()

	if s.clock != nil {
		s.clock.Start()
	}
	return nil
}

// MenuVisible reports the current shell state.
func (s *Shell) MenuVisible() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.menuVisible
}

// Items returns the latest computed menu tree.
func (s *Shell) Items() menu.Tree {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.items
}

// PopupItems returns the static avatar popup entries.
func (s *Shell) PopupItems() menu.Tree {
	return s.popup
}

// DialogOpen reports whether a profile dialog is currently open.
func (s *Shell) DialogOpen() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ref != nil
}

// onState drives the two-state machine from user presence and resets
// the idle clock on every authenticated observation.
func (s *Shell) onState(st domainauth.State) {
	if st.User != nil {
		s.mu.Lock()
		s.menuVisible = true
		s.mu.Unlock()
		if s.clock != nil {
			s.clock.Reset()
		}
		return
	}

	s.mu.Lock()
	s.menuVisible = false
	ref := s.ref
	s.ref = nil
	s.mu.Unlock()
	if ref != nil {
		if err := ref.Close(); err != nil {
			s.logger.Warn("close profile dialog on sign-out failed", "error", err)
		}
	}
}

// openProfileDialog opens the profile dialog for the current user.
// Policy for a second open while one is up: replace, not stack — the
// old reference is closed first.
func (s *Shell) openProfileDialog(ctx context.Context) {
	user := s.session.CurrentUser()
	if user == nil {
		return
	}

	s.mu.Lock()
	old := s.ref
	s.ref = nil
	s.mu.Unlock()
	if old != nil {
		if err := old.Close(); err != nil {
			s.logger.Warn("close previous profile dialog failed", "error", err)
		}
	}

	ref, err := s.dialogs.Open(ctx, ProfileDialogComponent, ports.DialogData{
		"uid":         user.UID,
		"displayName": user.DisplayName,
		"email":       user.Email,
		"photoURL":    user.PhotoURL,
	}, ports.DialogOptions{
		Header:   "User Details",
		Width:    "500px",
		Modal:    true,
		Closable: true,
	})
	if err != nil {
		s.logger.Warn("open profile dialog failed", "error", err)
		return
	}

	s.mu.Lock()
	s.ref = ref
	s.mu.Unlock()
}

// Close tears the shell down: any open dialog is closed and the bus
// subscription released. Both are attempted even if one fails.
func (s *Shell) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	ref := s.ref
	s.ref = nil
	unsubItems := s.unsubItems
	s.mu.Unlock()

	var errs []error
	if ref != nil {
		if err := ref.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if s.sub != nil {
		s.sub.Unsubscribe()
	}
	if unsubItems != nil {
		unsubItems()
	}
	if s.clock != nil {
		s.clock.Stop()
	}
	return errors.Join(errs...)
}
