package potatopad

import (
	"pkt.systems/potatopad/core"
	"pkt.systems/potatopad/schema"
)

type eventFanout struct {
	sinks []core.EventSink
}

func (f eventFanout) OnConsole(event schema.ConsoleEvent) {
	for _, sink := range f.sinks {
		if sink == nil {
			continue
		}
		sink.OnConsole(event)
	}
}

func (f eventFanout) OnSettings(event schema.SettingsEvent) {
	for _, sink := range f.sinks {
		if sink == nil {
			continue
		}
		sink.OnSettings(event)
	}
}

func (f eventFanout) OnSnippet(event schema.SnippetEvent) {
	for _, sink := range f.sinks {
		if sink == nil {
			continue
		}
		sink.OnSnippet(event)
	}
}

func (f eventFanout) OnCode(event schema.CodeEvent) {
	for _, sink := range f.sinks {
		if sink == nil {
			continue
		}
		sink.OnCode(event)
	}
}
