package httpapi

import (
	"context"
	"sync"
	"time"

	"pkt.systems/potatopad/schema"
	"pkt.systems/pslog"
)

// Stream event types.
const (
	StreamConsole  = "console"
	StreamSettings = "settings"
	StreamSnippet  = "snippet"
	StreamCode     = "code"
	StreamSnapshot = "snapshot"
)

// StreamEvent is sent to SSE and websocket clients.
type StreamEvent struct {
	Seq       uint64               `json:"seq,omitempty"`
	Type      string               `json:"type"`
	Console   *schema.ConsoleEvent `json:"console,omitempty"`
	Settings  *schema.Settings     `json:"settings,omitempty"`
	Snippet   *schema.SnippetEvent `json:"snippet,omitempty"`
	Code      *string              `json:"code,omitempty"`
	Snapshot  *schema.Snapshot     `json:"snapshot,omitempty"`
	Timestamp time.Time            `json:"timestamp"`
}

// Hub broadcasts playground events and keeps a bounded history for resume.
type Hub struct {
	mu          sync.Mutex
	seq         uint64
	history     []StreamEvent
	subs        map[chan StreamEvent]struct{}
	historySize int
	log         pslog.Logger
}

// NewHub constructs a hub with the given history size.
func NewHub(historySize int) *Hub {
	if historySize <= 0 {
		historySize = 1000
	}
	return &Hub{
		subs:        make(map[chan StreamEvent]struct{}),
		historySize: historySize,
		log:         pslog.Ctx(context.Background()),
	}
}

// SetLogger replaces the hub logger.
func (h *Hub) SetLogger(logger pslog.Logger) {
	if logger == nil {
		return
	}
	h.mu.Lock()
	h.log = logger
	h.mu.Unlock()
}

// OnConsole implements core.EventSink.
func (h *Hub) OnConsole(event schema.ConsoleEvent) {
	h.logger().Trace("hub console event", "type", event.Type, "index", event.Index)
	h.publish(StreamEvent{Type: StreamConsole, Console: &event, Timestamp: time.Now()})
}

// OnSettings implements core.EventSink.
func (h *Hub) OnSettings(event schema.SettingsEvent) {
	settings := event.Settings
	h.logger().Trace("hub settings event", "theme", settings.Theme, "font_size", settings.FontSize)
	h.publish(StreamEvent{Type: StreamSettings, Settings: &settings, Timestamp: time.Now()})
}

// OnSnippet implements core.EventSink.
func (h *Hub) OnSnippet(event schema.SnippetEvent) {
	h.logger().Trace("hub snippet event", "count", event.Count)
	h.publish(StreamEvent{Type: StreamSnippet, Snippet: &event, Timestamp: time.Now()})
}

// OnCode implements core.EventSink.
func (h *Hub) OnCode(event schema.CodeEvent) {
	code := event.Code
	h.logger().Trace("hub code event", "bytes", len(code))
	h.publish(StreamEvent{Type: StreamCode, Code: &code, Timestamp: time.Now()})
}

// Subscribe registers a subscriber. It returns the current seq and a copy of
// the history taken atomically with the registration.
func (h *Hub) Subscribe() (<-chan StreamEvent, func(), uint64, []StreamEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	ch := make(chan StreamEvent, 256)
	h.subs[ch] = struct{}{}
	history := append([]StreamEvent(nil), h.history...)
	seq := h.seq
	log := h.log
	log.Info("hub subscribe", "subs", len(h.subs), "history", len(history))
	var once sync.Once
	unsub := func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, ch)
			close(ch)
			remaining := len(h.subs)
			h.mu.Unlock()
			log.Info("hub unsubscribe", "subs", remaining)
		})
	}
	return ch, unsub, seq, history
}

// Replay returns events after the provided seq. The second result is false
// when the history no longer reaches back that far.
func (h *Hub) Replay(after uint64) ([]StreamEvent, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return replayFrom(h.history, h.seq, after)
}

func replayFrom(history []StreamEvent, seq, after uint64) ([]StreamEvent, bool) {
	if after > seq {
		return nil, false
	}
	if after == seq {
		return nil, true
	}
	if len(history) == 0 || history[0].Seq > after+1 {
		return nil, false
	}
	events := make([]StreamEvent, 0, len(history))
	for _, event := range history {
		if event.Seq > after {
			events = append(events, event)
		}
	}
	return events, true
}

func (h *Hub) publish(event StreamEvent) {
	h.mu.Lock()
	h.seq++
	event.Seq = h.seq
	h.history = append(h.history, event)
	if len(h.history) > h.historySize {
		h.history = h.history[len(h.history)-h.historySize:]
	}
	dropped := 0
	for sub := range h.subs {
		select {
		case sub <- event:
		default:
			dropped++
		}
	}
	log := h.log
	h.mu.Unlock()
	if dropped > 0 {
		log.Warn("hub event dropped", "type", event.Type, "seq", event.Seq, "dropped", dropped)
	}
}

func (h *Hub) logger() pslog.Logger {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.log
}
