package core

import (
	"pkt.systems/potatopad/internal/kv"
	"pkt.systems/pslog"
)

// Config controls how the store seeds its initial state.
type Config struct {
	// Fragment is a shared-code fragment, bare or as a full URL.
	Fragment string
	// DefaultCode replaces schema.DefaultCode when set.
	DefaultCode string
}

// Deps captures optional dependencies for the store.
type Deps struct {
	// KV persists theme, font size and snippets. Nil disables persistence.
	KV        kv.Store
	EventSink EventSink
	Logger    pslog.Logger
}
