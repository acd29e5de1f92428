package schema

import "strings"

// DefaultTheme is the default UI theme name.
const DefaultTheme ThemeName = "dark"

var themeNames = []ThemeName{
	"dark",
	"light",
}

// AvailableThemes returns the themes the bundled UI ships with.
// Any other name is still accepted and stored verbatim.
func AvailableThemes() []ThemeName {
	out := make([]ThemeName, len(themeNames))
	copy(out, themeNames)
	return out
}

// NormalizeThemeName trims the name and reports whether anything is left.
func NormalizeThemeName(name string) (ThemeName, bool) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return "", false
	}
	return ThemeName(trimmed), true
}
