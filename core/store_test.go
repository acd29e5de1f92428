package core

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"pkt.systems/potatopad/internal/kv"
	"pkt.systems/potatopad/internal/share"
	"pkt.systems/potatopad/schema"
)

func TestNewDefaultsWithoutPersistence(t *testing.T) {
	store := newTestStore(t, Config{}, Deps{})
	got := store.Settings()
	if got != schema.DefaultSettings() {
		t.Fatalf("expected default settings, got %+v", got)
	}
	if len(store.Snippets()) != 0 || len(store.Logs()) != 0 {
		t.Fatalf("expected empty snippets and logs")
	}
	code, pending := store.InitialCode()
	if !pending || code != schema.DefaultCode {
		t.Fatalf("expected default initial code, got %q pending=%v", code, pending)
	}
}

func TestNewLoadsPersistedSettings(t *testing.T) {
	mem := kv.NewMemory()
	_ = mem.Set(schema.KeyTheme, "light")
	_ = mem.Set(schema.KeyFontSize, "21")
	_ = mem.Set(schema.KeySnippets, `[{"label":"hi","code":"console.log(1)"}]`)

	store := newTestStore(t, Config{}, Deps{KV: mem})
	if store.Theme() != "light" {
		t.Fatalf("expected light theme, got %q", store.Theme())
	}
	if store.FontSize() != 21 {
		t.Fatalf("expected font size 21, got %d", store.FontSize())
	}
	snippets := store.Snippets()
	if len(snippets) != 1 || snippets[0].Label != "hi" || snippets[0].Code != "console.log(1)" {
		t.Fatalf("unexpected snippets %+v", snippets)
	}
	if store.Lang() != schema.DefaultLang || store.AutoRun() {
		t.Fatalf("expected session-only settings to use defaults")
	}
}

func TestNewFallsBackOnMalformedPersistedValues(t *testing.T) {
	mem := kv.NewMemory()
	_ = mem.Set(schema.KeyFontSize, "huge")
	_ = mem.Set(schema.KeySnippets, "{not json")

	store := newTestStore(t, Config{}, Deps{KV: mem})
	if store.FontSize() != schema.DefaultFontSize {
		t.Fatalf("expected default font size, got %d", store.FontSize())
	}
	if len(store.Snippets()) != 0 {
		t.Fatalf("expected no snippets")
	}
}

func TestInitialCodeFromFragment(t *testing.T) {
	code := "console.log('shared')"
	link, err := share.Link("https://play.example/", code)
	if err != nil {
		t.Fatalf("link: %v", err)
	}
	store := newTestStore(t, Config{Fragment: link}, Deps{})
	editor := NewTextBuffer()
	store.SetEditor(editor)
	if editor.Value() != code {
		t.Fatalf("expected shared code, got %q", editor.Value())
	}
}

func TestInitialCodeBadFragmentFallsBack(t *testing.T) {
	store := newTestStore(t, Config{Fragment: "#%%%"}, Deps{})
	code, _ := store.InitialCode()
	if code != schema.DefaultCode {
		t.Fatalf("expected default code, got %q", code)
	}
	if len(store.Logs()) != 0 {
		t.Fatalf("decode failures must not reach the in-app log")
	}
}

func TestInitialCodeIgnoresSavedCode(t *testing.T) {
	mem := kv.NewMemory()
	_ = mem.Set(schema.KeyCode, "console.log('saved')")
	store := newTestStore(t, Config{}, Deps{KV: mem})
	code, _ := store.InitialCode()
	if code != schema.DefaultCode {
		t.Fatalf("expected default code, got %q", code)
	}
}

func TestSetEditorPushesInitialCodeOnce(t *testing.T) {
	sink := &recordingSink{}
	store := newTestStore(t, Config{}, Deps{EventSink: sink})
	store.SetEditor(nil)
	if _, pending := store.InitialCode(); !pending {
		t.Fatalf("nil editor must not consume the initial code")
	}

	editor := &countingEditor{}
	store.SetEditor(editor)
	store.SetEditor(editor)
	other := &countingEditor{}
	store.SetEditor(other)

	if editor.sets != 1 || editor.text != schema.DefaultCode {
		t.Fatalf("expected one push of default code, got %d (%q)", editor.sets, editor.text)
	}
	if other.sets != 0 {
		t.Fatalf("expected no push to later editors, got %d", other.sets)
	}
	if store.Editor() != other {
		t.Fatalf("expected latest editor to be attached")
	}
	if len(sink.code) != 1 {
		t.Fatalf("expected one code event, got %d", len(sink.code))
	}
}

func TestConsoleAppendAndClear(t *testing.T) {
	sink := &recordingSink{}
	store := newTestStore(t, Config{}, Deps{EventSink: sink})
	store.AddLog(schema.LogInfo, "a 1")
	store.AddLog(schema.LogWarn, "")
	logs := store.Logs()
	if len(logs) != 2 || logs[0] != (schema.LogEntry{Kind: schema.LogInfo, Text: "a 1"}) {
		t.Fatalf("unexpected logs %+v", logs)
	}
	logs[0].Text = "mutated"
	if store.Logs()[0].Text != "a 1" {
		t.Fatalf("Logs must return a copy")
	}

	store.ClearConsole()
	store.ClearConsole()
	if got := store.Logs(); len(got) != 0 {
		t.Fatalf("expected empty logs, got %+v", got)
	}
	if len(sink.console) != 4 {
		t.Fatalf("expected 4 console events, got %d", len(sink.console))
	}
	if sink.console[1].Index != 1 || sink.console[3].Type != schema.ConsoleClear {
		t.Fatalf("unexpected console events %+v", sink.console)
	}
}

func TestSetFontSizePersistsDecimal(t *testing.T) {
	mem := kv.NewMemory()
	store := newTestStore(t, Config{}, Deps{KV: mem})
	if err := store.SetFontSize(24); err != nil {
		t.Fatalf("set font size: %v", err)
	}
	if store.FontSize() != 24 {
		t.Fatalf("expected 24, got %d", store.FontSize())
	}
	value, ok, _ := mem.Get(schema.KeyFontSize)
	if !ok || value != "24" {
		t.Fatalf("expected persisted \"24\", got %q", value)
	}
}

func TestSetThemePersists(t *testing.T) {
	mem := kv.NewMemory()
	sink := &recordingSink{}
	store := newTestStore(t, Config{}, Deps{KV: mem, EventSink: sink})
	if err := store.SetTheme("light"); err != nil {
		t.Fatalf("set theme: %v", err)
	}
	value, _, _ := mem.Get(schema.KeyTheme)
	if value != "light" {
		t.Fatalf("expected persisted light, got %q", value)
	}
	if len(sink.settings) != 1 || sink.settings[0].Settings.Theme != "light" {
		t.Fatalf("expected settings event, got %+v", sink.settings)
	}
}

func TestPersistFailureKeepsInMemoryValue(t *testing.T) {
	store := newTestStore(t, Config{}, Deps{KV: failingKV{}})
	err := store.SetTheme("light")
	if !errors.Is(err, errWriteFailed) {
		t.Fatalf("expected write error, got %v", err)
	}
	if store.Theme() != "light" {
		t.Fatalf("expected in-memory theme to change, got %q", store.Theme())
	}
	if err := store.AddSnippet("x", "y"); !errors.Is(err, errWriteFailed) {
		t.Fatalf("expected write error, got %v", err)
	}
	if len(store.Snippets()) != 1 {
		t.Fatalf("expected snippet to be kept in memory")
	}
}

func TestSessionOnlySettingsAreNotPersisted(t *testing.T) {
	mem := kv.NewMemory()
	store := newTestStore(t, Config{}, Deps{KV: mem})
	store.SetLang("ts")
	store.SetAutoRun(true)
	if store.Lang() != "ts" || !store.AutoRun() {
		t.Fatalf("expected in-memory updates")
	}
	reopened := newTestStore(t, Config{}, Deps{KV: mem})
	if reopened.Lang() != schema.DefaultLang || reopened.AutoRun() {
		t.Fatalf("lang and auto-run must not survive a restart")
	}
}

func TestAddSnippetAppendsAndPersistsFullList(t *testing.T) {
	mem := kv.NewMemory()
	store := newTestStore(t, Config{}, Deps{KV: mem})
	for i, label := range []string{"one", "two", "one"} {
		if err := store.AddSnippet(label, "code-"+label); err != nil {
			t.Fatalf("add snippet: %v", err)
		}
		if got := len(store.Snippets()); got != i+1 {
			t.Fatalf("expected %d snippets, got %d", i+1, got)
		}
	}
	raw, _, _ := mem.Get(schema.KeySnippets)
	var persisted []schema.Snippet
	if err := json.Unmarshal([]byte(raw), &persisted); err != nil {
		t.Fatalf("decode persisted snippets: %v", err)
	}
	if len(persisted) != 3 || persisted[2].Label != "one" || persisted[1].Code != "code-two" {
		t.Fatalf("unexpected persisted snippets %+v", persisted)
	}
}

func TestRunCodeCallbackLastRegistrationWins(t *testing.T) {
	store := newTestStore(t, Config{}, Deps{})
	if err := store.RunCode(context.Background()); err != nil {
		t.Fatalf("expected no-op without callback, got %v", err)
	}
	var calls []string
	store.SetRunCodeCallback(func(context.Context) error {
		calls = append(calls, "first")
		return nil
	})
	store.SetRunCodeCallback(func(context.Context) error {
		calls = append(calls, "second")
		return schema.ErrRunBusy
	})
	if err := store.RunCode(context.Background()); !errors.Is(err, schema.ErrRunBusy) {
		t.Fatalf("expected callback error, got %v", err)
	}
	if len(calls) != 1 || calls[0] != "second" {
		t.Fatalf("expected only the last callback, got %v", calls)
	}
}

func TestSetCodeAndRunRejectsBusyWithoutTouchingEditor(t *testing.T) {
	store := newTestStore(t, Config{}, Deps{})
	store.SetEditor(NewTextBuffer())
	started := make(chan struct{})
	release := make(chan struct{})
	store.SetRunCodeCallback(func(context.Context) error {
		close(started)
		<-release
		return nil
	})
	done := make(chan error, 1)
	go func() { done <- store.RunCode(context.Background()) }()
	<-started
	if !store.Running() {
		t.Fatalf("expected store to report a run in flight")
	}

	if err := store.SetCodeAndRun(context.Background(), "console.log('late')"); !errors.Is(err, schema.ErrRunBusy) {
		t.Fatalf("expected ErrRunBusy, got %v", err)
	}
	if got := store.Code(); got != schema.DefaultCode {
		t.Fatalf("editor changed by a rejected run: %q", got)
	}
	if err := store.RunCode(context.Background()); !errors.Is(err, schema.ErrRunBusy) {
		t.Fatalf("expected ErrRunBusy for a second RunCode, got %v", err)
	}

	close(release)
	if err := <-done; err != nil {
		t.Fatalf("first run: %v", err)
	}
	store.SetRunCodeCallback(nil)
	if err := store.SetCodeAndRun(context.Background(), "next"); err != nil {
		t.Fatalf("set code and run: %v", err)
	}
	if store.Code() != "next" || store.Running() {
		t.Fatalf("expected code replaced and run slot released, got %q running=%v", store.Code(), store.Running())
	}
}

func TestObserveHoldsEventsUntilReturn(t *testing.T) {
	sink := &recordingSink{}
	store := newTestStore(t, Config{}, Deps{EventSink: sink})
	store.AddLog(schema.LogInfo, "before")

	appended := make(chan struct{})
	var seen schema.Snapshot
	store.Observe(func(snap schema.Snapshot) {
		seen = snap
		go func() {
			store.AddLog(schema.LogInfo, "after")
			close(appended)
		}()
		select {
		case <-appended:
			t.Errorf("event emitted while observing")
		case <-time.After(50 * time.Millisecond):
		}
	})
	<-appended

	if len(seen.Logs) != 1 || seen.Logs[0].Text != "before" {
		t.Fatalf("unexpected snapshot logs %+v", seen.Logs)
	}
	if len(sink.console) != 2 || sink.console[1].Index != 1 || sink.console[1].Entry.Text != "after" {
		t.Fatalf("unexpected console events %+v", sink.console)
	}
}

func TestSetCodeRequiresEditor(t *testing.T) {
	store := newTestStore(t, Config{}, Deps{})
	if err := store.SetCode("x"); !errors.Is(err, schema.ErrNoEditor) {
		t.Fatalf("expected ErrNoEditor, got %v", err)
	}
	if store.Code() != "" {
		t.Fatalf("expected empty code without editor")
	}
	store.SetEditor(NewTextBuffer())
	if err := store.SetCode("let x = 1"); err != nil {
		t.Fatalf("set code: %v", err)
	}
	snap := store.Snapshot()
	if snap.Code != "let x = 1" {
		t.Fatalf("expected snapshot code, got %q", snap.Code)
	}
}

func newTestStore(t *testing.T, cfg Config, deps Deps) *Store {
	t.Helper()
	store, err := New(cfg, deps)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	return store
}

var errWriteFailed = errors.New("disk full")

type failingKV struct{}

func (failingKV) Get(string) (string, bool, error) { return "", false, nil }
func (failingKV) Set(string, string) error         { return errWriteFailed }
func (failingKV) Close() error                     { return nil }

type countingEditor struct {
	text string
	sets int
}

func (e *countingEditor) Value() string { return e.text }

func (e *countingEditor) SetValue(text string) {
	e.text = text
	e.sets++
}

type recordingSink struct {
	console  []schema.ConsoleEvent
	settings []schema.SettingsEvent
	snippets []schema.SnippetEvent
	code     []schema.CodeEvent
}

func (r *recordingSink) OnConsole(event schema.ConsoleEvent)   { r.console = append(r.console, event) }
func (r *recordingSink) OnSettings(event schema.SettingsEvent) { r.settings = append(r.settings, event) }
func (r *recordingSink) OnSnippet(event schema.SnippetEvent)   { r.snippets = append(r.snippets, event) }
func (r *recordingSink) OnCode(event schema.CodeEvent)         { r.code = append(r.code, event) }
