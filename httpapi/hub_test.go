package httpapi

import (
	"testing"

	"pkt.systems/potatopad/schema"
)

func TestHubAssignsSequenceAndTrimsHistory(t *testing.T) {
	hub := NewHub(2)
	hub.OnConsole(schema.ConsoleEvent{Type: schema.ConsoleClear})
	hub.OnSettings(schema.SettingsEvent{Settings: schema.DefaultSettings()})
	hub.OnCode(schema.CodeEvent{Code: "x"})

	_, unsub, seq, history := hub.Subscribe()
	defer unsub()
	if seq != 3 {
		t.Fatalf("expected seq 3, got %d", seq)
	}
	if len(history) != 2 || history[0].Seq != 2 || history[1].Type != StreamCode {
		t.Fatalf("unexpected history %+v", history)
	}
	if history[1].Code == nil || *history[1].Code != "x" {
		t.Fatalf("expected code payload")
	}
}

func TestHubReplay(t *testing.T) {
	hub := NewHub(3)
	for i := 0; i < 5; i++ {
		hub.OnConsole(schema.ConsoleEvent{Type: schema.ConsoleAppend, Index: i})
	}
	events, ok := hub.Replay(3)
	if !ok || len(events) != 2 || events[0].Console.Index != 3 {
		t.Fatalf("unexpected replay %+v ok=%v", events, ok)
	}
	if _, ok := hub.Replay(1); ok {
		t.Fatalf("expected replay beyond history to fail")
	}
	if events, ok := hub.Replay(5); !ok || len(events) != 0 {
		t.Fatalf("expected empty replay at head")
	}
	if _, ok := hub.Replay(9); ok {
		t.Fatalf("expected replay from the future to fail")
	}
}

func TestHubDeliversToSubscribers(t *testing.T) {
	hub := NewHub(0)
	ch, unsub, _, _ := hub.Subscribe()
	hub.OnSnippet(schema.SnippetEvent{Snippet: schema.Snippet{Label: "a"}, Count: 1})
	event := <-ch
	if event.Type != StreamSnippet || event.Snippet.Count != 1 || event.Seq != 1 {
		t.Fatalf("unexpected event %+v", event)
	}
	unsub()
	unsub()
	if _, ok := <-ch; ok {
		t.Fatalf("expected closed channel")
	}
}
