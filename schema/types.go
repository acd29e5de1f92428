package schema

// LogKind tags a console log entry.
type LogKind string

const (
	// LogInfo is emitted by console.log.
	LogInfo LogKind = "info"
	// LogError is emitted by console.error and by failed runs.
	LogError LogKind = "error"
	// LogWarn is emitted by console.warn.
	LogWarn LogKind = "warn"
	// LogSystem marks run outcomes produced by the runner itself.
	LogSystem LogKind = "system"
)

// Valid reports whether the kind is one of the known log kinds.
func (k LogKind) Valid() bool {
	switch k {
	case LogInfo, LogError, LogWarn, LogSystem:
		return true
	default:
		return false
	}
}

// LogEntry is one captured console call or run outcome.
type LogEntry struct {
	Kind LogKind `json:"type"`
	Text string  `json:"content"`
}

// Snippet is a named, saved code fragment.
type Snippet struct {
	Label string `json:"label"`
	Code  string `json:"code"`
}

// ThemeName identifies a UI theme.
type ThemeName string

// Lang identifies the editor language selector.
type Lang string

// RunID identifies a single script execution.
type RunID string

// Settings captures the UI-observable playground settings.
type Settings struct {
	Theme    ThemeName `json:"theme"`
	Lang     Lang      `json:"lang"`
	FontSize int       `json:"font_size"`
	AutoRun  bool      `json:"auto_run"`
}

// DefaultSettings returns the settings used before anything is persisted.
func DefaultSettings() Settings {
	return Settings{
		Theme:    DefaultTheme,
		Lang:     DefaultLang,
		FontSize: DefaultFontSize,
		AutoRun:  false,
	}
}

// Snapshot is a read-only view of the whole playground state.
type Snapshot struct {
	Settings Settings   `json:"settings"`
	Snippets []Snippet  `json:"snippets"`
	Logs     []LogEntry `json:"logs"`
	Code     string     `json:"code"`
}
