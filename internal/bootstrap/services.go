package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/pattana/ledgershell/config"
	"github.com/pattana/ledgershell/internal/adapters/navlog"
	"github.com/pattana/ledgershell/internal/devseed"
	domainauth "github.com/pattana/ledgershell/internal/domain/auth"
	"github.com/pattana/ledgershell/internal/domain/dialog"
	"github.com/pattana/ledgershell/internal/domain/menu"
	"github.com/pattana/ledgershell/internal/service"
	"github.com/pattana/ledgershell/internal/shell"
)

// App is the fully wired shell plus the teardown hooks its adapters
// need. Close order matters: the shell detaches first, then the
// session stops emitting, then the stores disconnect.
type App struct {
	Config    config.AppConfig
	Session   *service.Session
	Menu      *service.Menu
	Clock     *service.IdleClock
	Shell     *shell.Shell
	Bus       *dialog.Bus
	Navigator *navlog.Navigator
	Dialogs   *navlog.DialogHost
	Logger    *slog.Logger

	closers []func() error
}

// BuildApp assembles the full object graph from configuration.
func BuildApp(ctx context.Context, cfg config.AppConfig, logger *slog.Logger) (*App, error) {
	provider, err := BuildIdentityProvider(ctx, cfg.Auth, logger)
	if err != nil {
		return nil, err
	}

	store, closeStore, err := BuildUserStore(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	if cfg.IsDev {
		if err := devseed.Run(ctx, store, logger); err != nil {
			logger.Warn("dev seeding incomplete", "error", err)
		}
	}

	cache, closeCache, err := BuildProfileCache(cfg, logger)
	if err != nil {
		errClose := closeStore()
		if errClose != nil {
			logger.Warn("store close failed during aborted startup", "error", errClose)
		}
		return nil, err
	}

	roles, err := domainauth.NewRoleExtractor(cfg.Session.RoleClaim)
	if err != nil {
		return nil, fmt.Errorf("role claim path: %w", err)
	}

	session, err := service.NewSession(service.SessionOptions{
		Provider: provider,
		Store:    store,
		Cache:    cache,
		Roles:    roles,
		Logger:   logger,
	})
	if err != nil {
		return nil, err
	}

	navigator := navlog.NewNavigator(logger)
	dialogs := navlog.NewDialogHost(logger)
	bus := dialog.NewBus()

	menuSvc, err := service.NewMenu(service.MenuOptions{
		Session:   session,
		Bus:       bus,
		Navigator: navigator,
		Logger:    logger,
	})
	if err != nil {
		return nil, err
	}

	clock, err := service.NewIdleClock(service.IdleClockOptions{
		Timeout:   cfg.Session.IdleTimeout,
		Logout:    session.Logout,
		Navigator: navigator,
		LoginPath: menu.RouteLogin,
		Logger:    logger,
	})
	if err != nil {
		return nil, err
	}

	root, err := shell.New(shell.Options{
		Session: session,
		Menu:    menuSvc,
		Bus:     bus,
		Dialogs: dialogs,
		Clock:   clock,
		Logger:  logger,
	})
	if err != nil {
		return nil, err
	}

	return &App{
		Config:    cfg,
		Session:   session,
		Menu:      menuSvc,
		Clock:     clock,
		Shell:     root,
		Bus:       bus,
		Navigator: navigator,
		Dialogs:   dialogs,
		Logger:    logger,
		closers:   []func() error{closeCache, closeStore},
	}, nil
}

// Start brings the shell online.
func (a *App) Start(ctx context.Context) error {
	return a.Shell.Start(ctx)
}

// Close tears the graph down best-effort, shell first. The adapter
// closers are independent of each other and run concurrently.
func (a *App) Close() {
	if err := a.Shell.Close(); err != nil {
		a.Logger.Warn("shell close failed", "error", err)
	}
	a.Session.Close()

	var g errgroup.Group
	for _, closeFn := range a.closers {
		g.Go(closeFn)
	}
	if err := g.Wait(); err != nil {
		a.Logger.Warn("adapter close failed", "error", err)
	}
}
