package format

import (
	"strconv"

	"pkt.systems/potatopad/schema"
)

type rgb struct {
	r int
	g int
	b int
}

type palette struct {
	Name     schema.ThemeName
	InfoFG   rgb
	WarnFG   rgb
	ErrorFG  rgb
	SystemFG rgb
}

const (
	ansiReset = "\x1b[0m"
	ansiDim   = "\x1b[2m"
)

var palettes = map[schema.ThemeName]palette{
	"dark": {
		Name:     "dark",
		InfoFG:   rgb{r: 235, g: 219, b: 178},
		WarnFG:   rgb{r: 250, g: 189, b: 47},
		ErrorFG:  rgb{r: 251, g: 73, b: 52},
		SystemFG: rgb{r: 146, g: 131, b: 116},
	},
	"light": {
		Name:     "light",
		InfoFG:   rgb{r: 40, g: 40, b: 40},
		WarnFG:   rgb{r: 181, g: 118, b: 20},
		ErrorFG:  rgb{r: 204, g: 36, b: 29},
		SystemFG: rgb{r: 102, g: 92, b: 84},
	},
}

func paletteForName(name schema.ThemeName) palette {
	if name == "" {
		name = schema.DefaultTheme
	}
	if p, ok := palettes[name]; ok {
		return p
	}
	return palettes[schema.DefaultTheme]
}

// ANSIRenderer colors entries by kind using the playground theme.
type ANSIRenderer struct {
	palette palette
}

// NewANSIRenderer returns a renderer for the named theme. Unknown themes use
// the default palette.
func NewANSIRenderer(theme schema.ThemeName) *ANSIRenderer {
	return &ANSIRenderer{palette: paletteForName(theme)}
}

// FormatEntry splits and colors the entry text.
func (a *ANSIRenderer) FormatEntry(entry schema.LogEntry) []string {
	style := a.styleFor(entry.Kind)
	lines := splitLines(entry.Text)
	for i, line := range lines {
		lines[i] = style + line + ansiReset
	}
	return lines
}

func (a *ANSIRenderer) styleFor(kind schema.LogKind) string {
	switch kind {
	case schema.LogWarn:
		return ansiFgRGB(a.palette.WarnFG)
	case schema.LogError:
		return ansiFgRGB(a.palette.ErrorFG)
	case schema.LogSystem:
		return ansiDim + ansiFgRGB(a.palette.SystemFG)
	default:
		return ansiFgRGB(a.palette.InfoFG)
	}
}

func ansiFgRGB(c rgb) string {
	return "\x1b[38;2;" + strconv.Itoa(c.r) + ";" + strconv.Itoa(c.g) + ";" + strconv.Itoa(c.b) + "m"
}
