package kv

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"pkt.systems/pslog"
)

// FileStore keeps all entries in a single JSON object on disk.
type FileStore struct {
	mu     sync.Mutex
	path   string
	values map[string]string
	log    pslog.Logger
}

// NewFileStore opens (or creates on first write) the JSON store at path.
func NewFileStore(path string) (*FileStore, error) {
	return NewFileStoreWithLogger(path, nil)
}

// NewFileStoreWithLogger opens the JSON store at path with logging.
func NewFileStoreWithLogger(path string, logger pslog.Logger) (*FileStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("kv file path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, err
	}
	if logger != nil {
		logger = logger.With("kv_file", path)
	}
	s := &FileStore{path: path, values: make(map[string]string), log: logger}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *FileStore) load() error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			if s.log != nil {
				s.log.Debug("kv load miss")
			}
			return nil
		}
		if s.log != nil {
			s.log.Warn("kv load failed", "err", err)
		}
		return err
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, &s.values); err != nil {
		if s.log != nil {
			s.log.Warn("kv load failed", "err", err)
		}
		return err
	}
	if s.values == nil {
		s.values = make(map[string]string)
	}
	if s.log != nil {
		s.log.Debug("kv load ok", "keys", len(s.values))
	}
	return nil
}

// Get returns the value for key.
func (s *FileStore) Get(key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	value, ok := s.values[key]
	return value, ok, nil
}

// Set stores value under key and rewrites the file atomically.
func (s *FileStore) Set(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev, had := s.values[key]
	s.values[key] = value
	if err := s.saveLocked(); err != nil {
		if had {
			s.values[key] = prev
		} else {
			delete(s.values, key)
		}
		if s.log != nil {
			s.log.Warn("kv save failed", "key", key, "err", err)
		}
		return err
	}
	if s.log != nil {
		s.log.Trace("kv save ok", "key", key)
	}
	return nil
}

// Close is a no-op; every Set is already durable.
func (s *FileStore) Close() error {
	return nil
}

func (s *FileStore) saveLocked() error {
	data, err := json.MarshalIndent(s.values, "", "  ")
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(s.path), "kv-*.json")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return err
	}
	if err := os.Chmod(tmp.Name(), 0o600); err != nil {
		_ = os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), s.path)
}
