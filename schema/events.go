package schema

// ConsoleEventType describes a console mutation.
type ConsoleEventType string

const (
	// ConsoleAppend carries a single new log entry.
	ConsoleAppend ConsoleEventType = "append"
	// ConsoleClear signals that the log list was emptied.
	ConsoleClear ConsoleEventType = "clear"
)

// ConsoleEvent is emitted whenever the log list changes.
type ConsoleEvent struct {
	Type  ConsoleEventType `json:"type"`
	Entry LogEntry         `json:"entry"`
	Index int              `json:"index"`
}

// SettingsEvent is emitted whenever a setting changes.
type SettingsEvent struct {
	Settings Settings `json:"settings"`
}

// SnippetEvent is emitted when a snippet is saved.
type SnippetEvent struct {
	Snippet Snippet `json:"snippet"`
	Count   int     `json:"count"`
}

// CodeEvent is emitted when the editor text is replaced through the store.
type CodeEvent struct {
	Code string `json:"code"`
}
