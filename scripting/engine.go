package scripting

import (
	"context"
)

// Engine represents a scripting engine (e.g., JavaScript).
type Engine interface {
	// Execute runs a script and returns its exported completion value.
	Execute(ctx context.Context, script string) (interface{}, error)

	// RegisterDOM exposes a read-only document view as the global "doc".
	RegisterDOM(dom DocumentView) error
}

// DocumentView is what rule scripts may inspect. It offers no mutation.
type DocumentView interface {
	Lang() string
	Title() string
	Marked() bool
	PageCount() int
	// RoleCounts counts attached structure elements by standard role.
	RoleCounts() map[string]int
	// Page returns the 1-based page n, or nil.
	Page(n int) PageProxy

	// Log records a message from the script.
	Log(message string)
}

// PageProxy represents a page exposed to scripts.
type PageProxy interface {
	GetNumber() int
	GetTabOrder() string
	GetAnnotationCount() int
}
