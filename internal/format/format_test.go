package format

import (
	"strings"
	"testing"

	"pkt.systems/potatopad/schema"
)

func TestSanitizeLineStripsEscapes(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"plain 🥔", "plain 🥔"},
		{"\x1b[31mred\x1b[0m", "red"},
		{"\x1b]0;title\x07after", "after"},
		{"\x1b]8;;http://x\x1b\\link", "link"},
		{"a\tb", "a    b"},
		{"bell\x07\x7f", "bell"},
		{"bad\xffbyte", "badbyte"},
	}
	for _, tc := range cases {
		if got := SanitizeLine(tc.in); got != tc.want {
			t.Fatalf("SanitizeLine(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestPlainRendererSplitsLines(t *testing.T) {
	lines := NewPlainRenderer().FormatEntry(schema.LogEntry{Kind: schema.LogInfo, Text: "one\r\ntwo\nthree"})
	if strings.Join(lines, "|") != "one|two|three" {
		t.Fatalf("unexpected lines %q", lines)
	}
	if got := NewPlainRenderer().FormatEntry(schema.LogEntry{Kind: schema.LogInfo}); len(got) != 1 || got[0] != "" {
		t.Fatalf("expected one empty line for empty text, got %q", got)
	}
}

func TestANSIRendererColorsByKind(t *testing.T) {
	r := NewANSIRenderer("light")
	p := paletteForName("light")
	line := r.FormatEntry(schema.LogEntry{Kind: schema.LogError, Text: "Error: boom"})[0]
	if !strings.HasPrefix(line, ansiFgRGB(p.ErrorFG)) || !strings.HasSuffix(line, ansiReset) {
		t.Fatalf("unexpected styling %q", line)
	}
	if !strings.Contains(line, "Error: boom") {
		t.Fatalf("expected text in %q", line)
	}
	warn := r.FormatEntry(schema.LogEntry{Kind: schema.LogWarn, Text: "w"})[0]
	if !strings.HasPrefix(warn, ansiFgRGB(p.WarnFG)) {
		t.Fatalf("unexpected warn styling %q", warn)
	}
}

func TestPaletteFallsBackToDefault(t *testing.T) {
	if got := paletteForName("neon").Name; got != schema.DefaultTheme {
		t.Fatalf("expected default palette, got %q", got)
	}
}

func TestFailedAndStderr(t *testing.T) {
	if Failed(nil) {
		t.Fatalf("empty logs are not a failure")
	}
	ok := []schema.LogEntry{{Kind: schema.LogError, Text: "x"}, {Kind: schema.LogSystem, Text: schema.CompletionMessage}}
	if Failed(ok) {
		t.Fatalf("console.error followed by completion is a success")
	}
	if !Failed([]schema.LogEntry{{Kind: schema.LogError, Text: "Error: boom"}}) {
		t.Fatalf("expected failure")
	}
	if !ToStderr(schema.LogWarn) || ToStderr(schema.LogSystem) {
		t.Fatalf("unexpected stream routing")
	}
}
