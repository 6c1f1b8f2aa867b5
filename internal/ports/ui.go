package ports

import "context"

// Navigator routes the shell to a fixed path and resolves when the
// navigation has completed, so callers can sequence "logout, then show
// the login view" without racing a stale privileged view.
type Navigator interface {
	NavigateTo(ctx context.Context, path string) error
}

// DialogData is the payload handed to an opened dialog.
type DialogData map[string]any

// DialogOptions mirror the layout options of the vendor dialog host.
type DialogOptions struct {
	Header   string
	Width    string
	Modal    bool
	Closable bool
}

// DialogRef is the closable handle of one open dialog.
type DialogRef interface {
	ID() string
	Close() error
}

// DialogHost opens dialogs and hands back closable references. The
// host renders nothing itself in this module; adapters bridge to the
// vendor widget layer.
type DialogHost interface {
	Open(ctx context.Context, component string, data DialogData, opts DialogOptions) (DialogRef, error)
}
