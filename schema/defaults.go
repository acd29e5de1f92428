package schema

// DefaultCode is the editor text used when no shared code is supplied.
const DefaultCode = `console.log("Wassup?🥔");`

// DefaultLang is the initial language selector.
const DefaultLang Lang = "js"

// DefaultFontSize is the initial editor font size.
const DefaultFontSize = 17

// CompletionMessage is appended as a system entry after a successful run.
const CompletionMessage = "--- Execution Khatam! ---"

// Key-value storage keys.
const (
	KeyCode     = "potatoCode"
	KeySnippets = "potatoSnippets"
	KeyTheme    = "potatoTheme"
	KeyFontSize = "potatoFontSize"
)
