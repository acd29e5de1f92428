// Package format renders console log entries for terminals.
package format

import (
	"strings"

	"pkt.systems/potatopad/schema"
)

// Renderer turns log entries into printable lines.
type Renderer interface {
	FormatEntry(entry schema.LogEntry) []string
}

// PlainRenderer formats entries as sanitized text without styling.
type PlainRenderer struct{}

// NewPlainRenderer returns a default plain-text renderer.
func NewPlainRenderer() *PlainRenderer {
	return &PlainRenderer{}
}

// FormatEntry splits the entry text into sanitized lines.
func (p *PlainRenderer) FormatEntry(entry schema.LogEntry) []string {
	return splitLines(entry.Text)
}

// ToStderr reports whether an entry belongs on the error stream.
func ToStderr(kind schema.LogKind) bool {
	return kind == schema.LogError || kind == schema.LogWarn
}

// Failed reports whether a finished run ended with an error entry.
func Failed(logs []schema.LogEntry) bool {
	if len(logs) == 0 {
		return false
	}
	return logs[len(logs)-1].Kind == schema.LogError
}

func splitLines(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	raw := strings.Split(text, "\n")
	lines := make([]string, len(raw))
	for i, line := range raw {
		lines[i] = SanitizeLine(line)
	}
	return lines
}
