package workspace

import "go.uber.org/zap"

// Mode selects how scalar edits reach the server.
type Mode int

const (
	// ModePartial sends only the changed facet with PATCH. Concurrent
	// edits of different facets cannot overwrite each other, so they are
	// not serialized.
	ModePartial Mode = iota
	// ModeFullObject sends every scalar facet plus the member lists with
	// PUT. Edits are serialized per ticket and the payload is built only
	// once the previous edit has settled.
	ModeFullObject
)

func (m Mode) String() string {
	if m == ModeFullObject {
		return "full"
	}
	return "partial"
}

// Option configures a Workspace.
type Option func(*Workspace)

// WithLogger sets the logger. The default discards everything.
func WithLogger(logger *zap.Logger) Option {
	return func(w *Workspace) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// WithMode selects the scalar update mode. ModePartial is the default.
func WithMode(mode Mode) Option {
	return func(w *Workspace) { w.mode = mode }
}

// OnChange registers an observer called with a fresh snapshot after every
// local state change. It runs on the goroutine that made the change and
// must not block.
func OnChange(fn func(Snapshot)) Option {
	return func(w *Workspace) { w.onChange = fn }
}

// OnError registers an observer for failed mutations, the equivalent of a
// toast. Superseded requests are not reported. It must not block.
func OnError(fn func(Facet, error)) Option {
	return func(w *Workspace) { w.onError = fn }
}
