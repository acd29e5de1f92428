package core

import "pkt.systems/potatopad/schema"

// EventSink receives console, settings and snippet events from the store.
type EventSink interface {
	OnConsole(event schema.ConsoleEvent)
	OnSettings(event schema.SettingsEvent)
	OnSnippet(event schema.SnippetEvent)
	OnCode(event schema.CodeEvent)
}
