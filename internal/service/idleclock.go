package service

import (
	"context"
	"log/slog"
	"sync"
	"time"

	apperrors "github.com/pattana/ledgershell/internal/errors"
	"github.com/pattana/ledgershell/internal/ports"
)

// LogoutFunc clears the session; supplied by the session service.
type LogoutFunc func(ctx context.Context) error

// IdleClockOptions groups dependencies for IdleClock.
type IdleClockOptions struct {
	// Timeout is the idle budget; zero falls back to 30 minutes.
	Timeout   time.Duration
	Logout    LogoutFunc
	Navigator ports.Navigator
	// LoginPath is the route forced after an idle logout.
	LoginPath string
	Logger    *slog.Logger
}

// IdleClock tracks wall-clock idle time since the last observed
// authentication activity. When the budget elapses it logs the user
// out exactly once and forces navigation to the login entry point.
// The timer is process-local; nothing survives a restart.
type IdleClock struct {
	timeout   time.Duration
	logout    LogoutFunc
	nav       ports.Navigator
	loginPath string
	logger    *slog.Logger

	mu      sync.Mutex
	timer   *time.Timer
	gen     uint64
	stopped bool
}

// NewIdleClock constructs the clock without arming it; call Start.
func NewIdleClock(opts IdleClockOptions) (*IdleClock, error) {
	if opts.Logout == nil {
		return nil, apperrors.Validation("logout func is required")
	}
	if opts.Navigator == nil {
		return nil, apperrors.Validation("navigator is required")
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Minute
	}
	loginPath := opts.LoginPath
	if loginPath == "" {
		loginPath = "/auth/login"
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &IdleClock{
		timeout:   timeout,
		logout:    opts.Logout,
		nav:       opts.Navigator,
		loginPath: loginPath,
		logger:    logger,
	}, nil
}

// Start arms the single-shot timer. Starting an armed clock re-arms it.
func (c *IdleClock) Start() {
	c.arm()
}

// Reset cancels any armed timer and re-arms it. Call on every
// authenticated-state observation so external activity refreshes the
// idle budget.
func (c *IdleClock) Reset() {
	c.arm()
}

// Stop cancels the clock permanently. Used on process teardown.
func (c *IdleClock) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopped = true
	c.gen++
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
}

func (c *IdleClock) arm() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stopped {
		return
	}
	c.gen++
	gen := c.gen
	if c.timer != nil {
		c.timer.Stop()
	}
	c.timer = time.AfterFunc(c.timeout, func() { c.expire(gen) })
}

// expire fires the idle logout. The generation check guarantees a
// Reset that raced the timer callback wins: a stale expiry is a no-op.
func (c *IdleClock) expire(gen uint64) {
	c.mu.Lock()
	if c.stopped || gen != c.gen {
		c.mu.Unlock()
		return
	}
	c.timer = nil
	c.mu.Unlock()

	ctx := context.Background()
	c.logger.InfoContext(ctx, "idle timeout reached, logging out")
	if err := c.logout(ctx); err != nil {
		c.logger.WarnContext(ctx, "idle logout failed", "error", err)
	}
	if err := c.nav.NavigateTo(ctx, c.loginPath); err != nil {
		// Navigation failures are surfaced but non-fatal; the session
		// state has already changed.
		c.logger.WarnContext(ctx, "post-logout navigation failed",
			"error", apperrors.NavigationFailed(c.loginPath, err))
	}
}
