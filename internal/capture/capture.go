// Package capture defines the frame delivery collaborator: a Source pushes
// raw frames to a handler at a bounded rate. The pipeline itself never
// depends on where frames come from.
package capture

import (
	"github.com/bryanchriswhite/ActionShot/internal/store"
)

// Handler receives frames as a source produces them.
type Handler func(store.Frame)

// Source defines the interface for frame capture backends
type Source interface {
	// Start begins delivering frames to the handler. It returns once
	// delivery is running; frames arrive on a background goroutine.
	Start(handler Handler) error

	// Stop halts delivery and releases resources
	Stop() error

	// Name returns a human-readable name for this source
	Name() string
}
