package format

import (
	"strings"
	"unicode/utf8"
)

// SanitizeLine strips terminal escapes and control characters so script
// output cannot drive the viewer's terminal. Tabs expand to four spaces.
func SanitizeLine(text string) string {
	if text == "" {
		return ""
	}
	var b strings.Builder
	for i := 0; i < len(text); {
		ch := text[i]
		if ch == 0x1b {
			i = skipEscape(text, i+1)
			continue
		}
		r, size := utf8.DecodeRuneInString(text[i:])
		if r == utf8.RuneError && size == 1 {
			i++
			continue
		}
		if r == '\t' {
			b.WriteString("    ")
			i += size
			continue
		}
		if r < 0x20 || r == 0x7f {
			i += size
			continue
		}
		b.WriteRune(r)
		i += size
	}
	return b.String()
}

func skipEscape(text string, i int) int {
	if i >= len(text) {
		return i
	}
	switch text[i] {
	case '[':
		return skipCSI(text, i+1)
	case ']':
		return skipOSC(text, i+1)
	default:
		return i + 1
	}
}

func skipCSI(text string, i int) int {
	for i < len(text) {
		b := text[i]
		if b >= 0x40 && b <= 0x7e {
			return i + 1
		}
		i++
	}
	return i
}

func skipOSC(text string, i int) int {
	for i < len(text) {
		switch text[i] {
		case 0x07:
			return i + 1
		case 0x1b:
			if i+1 < len(text) && text[i+1] == '\\' {
				return i + 2
			}
		}
		i++
	}
	return i
}
