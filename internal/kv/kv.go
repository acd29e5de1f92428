// Package kv provides the flat string-keyed storage backing persisted
// playground settings.
package kv

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"pkt.systems/potatopad/schema"
	"pkt.systems/pslog"
)

// Store is a flat string-keyed store.
type Store interface {
	Get(key string) (value string, ok bool, err error)
	Set(key, value string) error
	Close() error
}

// Backend names.
const (
	BackendMemory = "memory"
	BackendFile   = "file"
	BackendSQLite = "sqlite"
)

// Config selects and locates a backend.
type Config struct {
	Backend string
	// Path is the file or database path. When empty, a name inside StateDir is used.
	Path     string
	StateDir string
}

// Open constructs the configured backend.
func Open(cfg Config, logger pslog.Logger) (Store, error) {
	backend := strings.ToLower(strings.TrimSpace(cfg.Backend))
	if backend == "" {
		backend = BackendFile
	}
	switch backend {
	case BackendMemory:
		return NewMemory(), nil
	case BackendFile:
		path, err := resolvePath(cfg, "potatopad.json")
		if err != nil {
			return nil, err
		}
		return NewFileStoreWithLogger(path, logger)
	case BackendSQLite:
		path, err := resolvePath(cfg, "potatopad.db")
		if err != nil {
			return nil, err
		}
		return OpenSQLiteWithLogger(path, logger)
	default:
		return nil, fmt.Errorf("%w: %q", schema.ErrUnknownBackend, cfg.Backend)
	}
}

func resolvePath(cfg Config, name string) (string, error) {
	if path := strings.TrimSpace(cfg.Path); path != "" {
		return path, nil
	}
	if strings.TrimSpace(cfg.StateDir) == "" {
		return "", errors.New("state directory is required")
	}
	return filepath.Join(cfg.StateDir, name), nil
}
