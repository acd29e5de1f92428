package core

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"

	"pkt.systems/potatopad/internal/kv"
	"pkt.systems/potatopad/internal/logx"
	"pkt.systems/potatopad/schema"
	"pkt.systems/pslog"
)

// RunFunc is the externally registered run action.
type RunFunc func(ctx context.Context) error

// Store is the single source of truth for playground settings and logs.
// Sinks are invoked while the store lock is held and must not call back
// into the store.
type Store struct {
	mu       sync.Mutex
	kv       kv.Store
	sink     EventSink
	log      pslog.Logger
	editor   Editor
	initial  string
	pending  bool
	logs     []schema.LogEntry
	settings schema.Settings
	snippets []schema.Snippet
	runCode  RunFunc
	running  atomic.Bool
}

// New constructs a store from persisted settings and the optional fragment.
func New(cfg Config, deps Deps) (*Store, error) {
	logger := deps.Logger
	if logger == nil {
		logger = pslog.Ctx(context.Background())
	}
	persisted := loadPersisted(deps.KV, logger)
	settings := schema.DefaultSettings()
	settings.Theme = persisted.theme
	settings.FontSize = persisted.fontSize
	s := &Store{
		kv:       deps.KV,
		sink:     deps.EventSink,
		log:      logger,
		initial:  resolveInitialCode(cfg, deps.KV, logger),
		pending:  true,
		logs:     []schema.LogEntry{},
		settings: settings,
		snippets: persisted.snippets,
	}
	logger.Debug("store ready", "theme", settings.Theme, "font_size", settings.FontSize, "snippets", len(s.snippets), "persist", deps.KV != nil)
	return s, nil
}

// InitialCode returns the code still waiting for an editor, if any.
func (s *Store) InitialCode() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.initial, s.pending
}

// SetEditor attaches the editor. The first non-nil editor receives the
// initial code; later calls never push it again.
func (s *Store) SetEditor(editor Editor) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.editor = editor
	if editor == nil || !s.pending {
		return
	}
	code := s.initial
	s.pending = false
	s.initial = ""
	editor.SetValue(code)
	s.log.Debug("store editor seeded", "bytes", len(code))
	if s.sink != nil {
		s.sink.OnCode(schema.CodeEvent{Code: code})
	}
}

// Editor returns the attached editor, or nil.
func (s *Store) Editor() Editor {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.editor
}

// Code returns the editor text, or "" when no editor is attached.
func (s *Store) Code() string {
	editor := s.Editor()
	if editor == nil {
		return ""
	}
	return editor.Value()
}

// SetCode replaces the editor text.
func (s *Store) SetCode(code string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.editor == nil {
		return schema.ErrNoEditor
	}
	s.editor.SetValue(code)
	if s.sink != nil {
		s.sink.OnCode(schema.CodeEvent{Code: code})
	}
	return nil
}

// ClearConsole empties the log list.
func (s *Store) ClearConsole() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logs = []schema.LogEntry{}
	if s.sink != nil {
		s.sink.OnConsole(schema.ConsoleEvent{Type: schema.ConsoleClear})
	}
}

// AddLog appends one entry to the log list.
func (s *Store) AddLog(kind schema.LogKind, text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry := schema.LogEntry{Kind: kind, Text: text}
	s.logs = append(s.logs, entry)
	if s.sink != nil {
		s.sink.OnConsole(schema.ConsoleEvent{Type: schema.ConsoleAppend, Entry: entry, Index: len(s.logs) - 1})
	}
}

// Logs returns a copy of the log list.
func (s *Store) Logs() []schema.LogEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]schema.LogEntry, len(s.logs))
	copy(out, s.logs)
	return out
}

// Settings returns the current settings.
func (s *Store) Settings() schema.Settings {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.settings
}

// Theme returns the current theme.
func (s *Store) Theme() schema.ThemeName {
	return s.Settings().Theme
}

// SetTheme updates the theme and persists it. The in-memory value is kept
// even when persisting fails.
func (s *Store) SetTheme(theme schema.ThemeName) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settings.Theme = theme
	s.emitSettingsLocked()
	return s.persistLocked(schema.KeyTheme, string(theme))
}

// FontSize returns the current font size.
func (s *Store) FontSize() int {
	return s.Settings().FontSize
}

// SetFontSize updates the font size and persists it as a decimal string.
func (s *Store) SetFontSize(size int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settings.FontSize = size
	s.emitSettingsLocked()
	return s.persistLocked(schema.KeyFontSize, strconv.Itoa(size))
}

// Lang returns the language selector.
func (s *Store) Lang() schema.Lang {
	return s.Settings().Lang
}

// SetLang updates the language selector. Not persisted.
func (s *Store) SetLang(lang schema.Lang) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settings.Lang = lang
	s.emitSettingsLocked()
}

// AutoRun reports whether edits should trigger a run.
func (s *Store) AutoRun() bool {
	return s.Settings().AutoRun
}

// SetAutoRun updates the auto-run flag. Not persisted.
func (s *Store) SetAutoRun(enabled bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settings.AutoRun = enabled
	s.emitSettingsLocked()
}

// Snippets returns a copy of the saved snippets.
func (s *Store) Snippets() []schema.Snippet {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]schema.Snippet, len(s.snippets))
	copy(out, s.snippets)
	return out
}

// AddSnippet appends a snippet and persists the full list.
func (s *Store) AddSnippet(label, code string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	snippet := schema.Snippet{Label: label, Code: code}
	s.snippets = append(s.snippets, snippet)
	logx.WithSnippet(s.log, snippet).Debug("store snippet added", "count", len(s.snippets))
	if s.sink != nil {
		s.sink.OnSnippet(schema.SnippetEvent{Snippet: snippet, Count: len(s.snippets)})
	}
	data, err := json.Marshal(s.snippets)
	if err != nil {
		return fmt.Errorf("encode snippets: %w", err)
	}
	return s.persistLocked(schema.KeySnippets, string(data))
}

// SetRunCodeCallback registers the run action. The last registration wins.
func (s *Store) SetRunCodeCallback(fn RunFunc) {
	s.mu.Lock()
	s.runCode = fn
	s.mu.Unlock()
}

// RunCode invokes the registered run action. It is a no-op when nothing is
// registered and fails with schema.ErrRunBusy while another run is in flight.
func (s *Store) RunCode(ctx context.Context) error {
	if !s.running.CompareAndSwap(false, true) {
		s.log.Debug("store run rejected", "reason", "busy")
		return schema.ErrRunBusy
	}
	defer s.running.Store(false)
	return s.invokeRun(ctx)
}

// SetCodeAndRun replaces the editor text and runs it. A busy store rejects the
// call with schema.ErrRunBusy before the editor is touched.
func (s *Store) SetCodeAndRun(ctx context.Context, code string) error {
	if !s.running.CompareAndSwap(false, true) {
		s.log.Debug("store run rejected", "reason", "busy")
		return schema.ErrRunBusy
	}
	defer s.running.Store(false)
	if err := s.SetCode(code); err != nil {
		return err
	}
	return s.invokeRun(ctx)
}

// Running reports whether a run started through the store is in flight.
func (s *Store) Running() bool {
	return s.running.Load()
}

func (s *Store) invokeRun(ctx context.Context) error {
	s.mu.Lock()
	fn := s.runCode
	s.mu.Unlock()
	if fn == nil {
		s.log.Debug("store run skipped", "reason", "no callback")
		return nil
	}
	return fn(ctx)
}

// Snapshot returns settings, snippets, logs and the editor text.
func (s *Store) Snapshot() schema.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Observe calls fn with a snapshot while holding the store lock, so no event
// is emitted between the snapshot and fn returning. Subscribing to a sink
// inside fn therefore yields a gap-free, duplicate-free stream. fn must not
// call back into the store.
func (s *Store) Observe(fn func(schema.Snapshot)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s.snapshotLocked())
}

func (s *Store) snapshotLocked() schema.Snapshot {
	snap := schema.Snapshot{
		Settings: s.settings,
		Snippets: make([]schema.Snippet, len(s.snippets)),
		Logs:     make([]schema.LogEntry, len(s.logs)),
	}
	copy(snap.Snippets, s.snippets)
	copy(snap.Logs, s.logs)
	if s.editor != nil {
		snap.Code = s.editor.Value()
	}
	return snap
}

func (s *Store) emitSettingsLocked() {
	if s.sink != nil {
		s.sink.OnSettings(schema.SettingsEvent{Settings: s.settings})
	}
}

func (s *Store) persistLocked(key, value string) error {
	if s.kv == nil {
		return nil
	}
	if err := s.kv.Set(key, value); err != nil {
		s.log.Warn("store persist failed", "key", key, "err", err)
		return fmt.Errorf("persist %s: %w", key, err)
	}
	s.log.Trace("store persist ok", "key", key)
	return nil
}
