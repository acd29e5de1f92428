package kv

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/mattn/go-sqlite3"

	"pkt.systems/pslog"
)

// SQLiteStore keeps entries in a single SQLite table.
type SQLiteStore struct {
	db  *sql.DB
	log pslog.Logger
}

// OpenSQLite opens (creating if needed) the database at path.
func OpenSQLite(path string) (*SQLiteStore, error) {
	return OpenSQLiteWithLogger(path, nil)
}

// OpenSQLiteWithLogger opens the database at path with logging.
func OpenSQLiteWithLogger(path string, logger pslog.Logger) (*SQLiteStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("kv sqlite path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS kv (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL,
			updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)
	`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create kv table: %w", err)
	}
	if logger != nil {
		logger = logger.With("kv_sqlite", path)
		logger.Debug("kv sqlite open")
	}
	return &SQLiteStore{db: db, log: logger}, nil
}

// Get returns the value for key.
func (s *SQLiteStore) Get(key string) (string, bool, error) {
	var value string
	err := s.db.QueryRow("SELECT value FROM kv WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		if s.log != nil {
			s.log.Warn("kv get failed", "key", key, "err", err)
		}
		return "", false, err
	}
	return value, true, nil
}

// Set upserts value under key.
func (s *SQLiteStore) Set(key, value string) error {
	_, err := s.db.Exec(`
		INSERT INTO kv (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP
	`, key, value)
	if err != nil {
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

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
