package eventbus

import (
	"context"
	"sync"

	"pkt.systems/potatopad/schema"
	"pkt.systems/pslog"
)

// EventType identifies the event payload.
type EventType string

const (
	// EventConsole carries console appends and clears.
	EventConsole EventType = "console"
	// EventSettings carries settings changes.
	EventSettings EventType = "settings"
	// EventSnippet carries snippet appends.
	EventSnippet EventType = "snippet"
	// EventCode carries editor text pushes.
	EventCode EventType = "code"
)

// Event represents a playground event delivered to in-process subscribers.
type Event struct {
	Type     EventType
	Console  schema.ConsoleEvent
	Settings schema.SettingsEvent
	Snippet  schema.SnippetEvent
	Code     schema.CodeEvent
}

// Bus fanouts events to subscribers. A subscriber may restrict the event
// types it receives.
type Bus struct {
	mu    sync.Mutex
	subs  map[chan Event]filter
	log   pslog.Logger
	depth int
}

type filter map[EventType]struct{}

func (f filter) accepts(t EventType) bool {
	if len(f) == 0 {
		return true
	}
	_, ok := f[t]
	return ok
}

// New constructs a Bus.
func New(logger pslog.Logger) *Bus {
	if logger == nil {
		logger = pslog.Ctx(context.Background())
	}
	return &Bus{
		subs:  make(map[chan Event]filter),
		log:   logger,
		depth: 256,
	}
}

// Subscribe registers a subscriber and returns a channel + cancel. With no
// types every event is delivered.
func (b *Bus) Subscribe(types ...EventType) (<-chan Event, func()) {
	if b == nil {
		return nil, func() {}
	}
	ch := make(chan Event, b.depth)
	var f filter
	if len(types) > 0 {
		f = make(filter, len(types))
		for _, t := range types {
			f[t] = struct{}{}
		}
	}
	b.mu.Lock()
	b.subs[ch] = f
	count := len(b.subs)
	b.mu.Unlock()
	b.log.Debug("eventbus subscribe", "subs", count)
	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, ch)
			b.mu.Unlock()
			close(ch)
			b.log.Debug("eventbus unsubscribe")
		})
	}
}

// Subscribers reports the current subscriber count.
func (b *Bus) Subscribers() int {
	if b == nil {
		return 0
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

// OnConsole publishes a console event.
func (b *Bus) OnConsole(event schema.ConsoleEvent) {
	b.publish(Event{Type: EventConsole, Console: event})
}

// OnSettings publishes a settings event.
func (b *Bus) OnSettings(event schema.SettingsEvent) {
	b.publish(Event{Type: EventSettings, Settings: event})
}

// OnSnippet publishes a snippet event.
func (b *Bus) OnSnippet(event schema.SnippetEvent) {
	b.publish(Event{Type: EventSnippet, Snippet: event})
}

// OnCode publishes a code event.
func (b *Bus) OnCode(event schema.CodeEvent) {
	b.publish(Event{Type: EventCode, Code: event})
}

func (b *Bus) publish(event Event) {
	if b == nil {
		return
	}
	dropped := 0
	b.mu.Lock()
	// Sends happen under the lock so cancel never closes a channel mid-send.
	for sub, f := range b.subs {
		if !f.accepts(event.Type) {
			continue
		}
		select {
		case sub <- event:
		default:
			dropped++
		}
	}
	b.mu.Unlock()
	if dropped > 0 {
		b.log.Trace("eventbus dropped", "type", event.Type, "count", dropped)
	}
}
