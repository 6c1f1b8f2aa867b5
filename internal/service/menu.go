package service

import (
	"context"
	"log/slog"
	"sync"

	"github.com/pattana/ledgershell/internal/domain/dialog"
	"github.com/pattana/ledgershell/internal/domain/menu"
	apperrors "github.com/pattana/ledgershell/internal/errors"
	"github.com/pattana/ledgershell/internal/ports"
)

// MenuOptions groups dependencies for Menu.
type MenuOptions struct {
	Session   *Session
	Bus       *dialog.Bus
	Navigator ports.Navigator
	Logger    *slog.Logger
}

// Menu derives the navigation tree from the session's privilege stream
// and executes item actions. It never talks to the shell directly: the
// profile dialog is requested through the signal bus.
type Menu struct {
	session *Session
	bus     *dialog.Bus
	nav     ports.Navigator
	logger  *slog.Logger

	popup menu.Tree
}

// NewMenu constructs the menu service. Popup items are static and
// built once.
func NewMenu(opts MenuOptions) (*Menu, error) {
	if opts.Session == nil {
		return nil, apperrors.Validation("session is required")
	}
	if opts.Bus == nil {
		return nil, apperrors.Validation("dialog bus is required")
	}
	if opts.Navigator == nil {
		return nil, apperrors.Validation("navigator is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Menu{
		session: opts.Session,
		bus:     opts.Bus,
		nav:     opts.Navigator,
		logger:  logger,
		popup:   menu.PopupItems(),
	}, nil
}

// Items subscribes to the menu tree stream: one full rebuild per
// privilege emission. The unsubscribe func is idempotent.
func (m *Menu) Items() (func(), <-chan menu.Tree) {
	unsubPriv, privs := m.session.Privileged()
	out := make(chan menu.Tree, 16)
	stop := make(chan struct{})
	var once sync.Once
	unsub := func() {
		unsubPriv()
		once.Do(func() { close(stop) })
	}
	go func() {
		defer close(out)
		for {
			select {
			case <-stop:
				return
			case p, ok := <-privs:
				if !ok {
					return
				}
				select {
				case out <- menu.Build(p):
				case <-stop:
					return
				}
			}
		}
	}()
	return unsub, out
}

// PopupItems returns the static avatar popup entries.
func (m *Menu) PopupItems() menu.Tree {
	return m.popup
}

// Execute runs an item's action. Logout awaits both the provider
// sign-out and the follow-up navigation, so a stale privileged view
// can never outlive the session.
func (m *Menu) Execute(ctx context.Context, item menu.Item) error {
	switch item.Action {
	case menu.ActionNavigate:
		if err := m.nav.NavigateTo(ctx, item.Route); err != nil {
			return apperrors.NavigationFailed(item.Route, err)
		}
		return nil

	case menu.ActionOpenProfile:
		m.bus.Publish()
		return nil

	case menu.ActionLogout:
		if err := m.session.Logout(ctx); err != nil {
			return err
		}
		if err := m.nav.NavigateTo(ctx, menu.RouteLogin); err != nil {
			return apperrors.NavigationFailed(menu.RouteLogin, err)
		}
		return nil

	case menu.ActionNone:
		return nil

	default:
		return apperrors.Validationf("unknown menu action %d", item.Action)
	}
}
