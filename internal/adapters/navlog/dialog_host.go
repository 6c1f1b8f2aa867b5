package navlog

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/pattana/ledgershell/internal/ports"
)

// DialogHost implements ports.DialogHost with in-memory dialog refs.
type DialogHost struct {
	logger *slog.Logger

	mu   sync.Mutex
	open map[string]*dialogRef
}

// NewDialogHost returns a logging dialog host.
func NewDialogHost(logger *slog.Logger) *DialogHost {
	if logger == nil {
		logger = slog.Default()
	}
	return &DialogHost{logger: logger, open: make(map[string]*dialogRef)}
}

// Open registers a dialog and returns its closable reference.
func (h *DialogHost) Open(ctx context.Context, component string, data ports.DialogData, opts ports.DialogOptions) (ports.DialogRef, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	ref := &dialogRef{
		id:        uuid.NewString(),
		component: component,
		data:      data,
		host:      h,
	}
	h.mu.Lock()
	h.open[ref.id] = ref
	h.mu.Unlock()
	h.logger.Info("dialog opened", "component", component, "id", ref.id, "header", opts.Header)
	return ref, nil
}

// OpenCount reports how many dialogs are currently open.
func (h *DialogHost) OpenCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.open)
}

type dialogRef struct {
	id        string
	component string
	data      ports.DialogData
	host      *DialogHost

	closeOnce sync.Once
}

func (r *dialogRef) ID() string { return r.id }

// Data returns the payload the dialog was opened with.
func (r *dialogRef) Data() ports.DialogData { return r.data }

// Close removes the dialog from the host. Closing twice is harmless.
func (r *dialogRef) Close() error {
	r.closeOnce.Do(func() {
		r.host.mu.Lock()
		delete(r.host.open, r.id)
		r.host.mu.Unlock()
		r.host.logger.Info("dialog closed", "component", r.component, "id", r.id)
	})
	return nil
}

var _ ports.DialogHost = (*DialogHost)(nil)
