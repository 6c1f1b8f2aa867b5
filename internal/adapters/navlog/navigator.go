package navlog

// Package navlog provides headless Navigator and DialogHost adapters.
// They record routing and dialog activity through the structured logger
// so the shell can run without a widget layer attached, which is also
// what the tests exercise.

import (
	"context"
	"log/slog"
	"sync"

	"github.com/pattana/ledgershell/internal/ports"
)

// Navigator implements ports.Navigator by recording the route history.
type Navigator struct {
	logger *slog.Logger

	mu      sync.Mutex
	history []string
}

// NewNavigator returns a logging navigator.
func NewNavigator(logger *slog.Logger) *Navigator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Navigator{logger: logger}
}

// NavigateTo appends the path to the history. The navigation is
// complete when this returns.
func (n *Navigator) NavigateTo(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	n.mu.Lock()
	n.history = append(n.history, path)
	n.mu.Unlock()
	n.logger.Info("navigate", "path", path)
	return nil
}

// Current returns the most recent path, or "" before any navigation.
func (n *Navigator) Current() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.history) == 0 {
		return ""
	}
	return n.history[len(n.history)-1]
}

// History returns a copy of all visited paths in order.
func (n *Navigator) History() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.history...)
}

var _ ports.Navigator = (*Navigator)(nil)
