package hub

import (
	"encoding/json"
	"testing"
)

func TestBroadcastEventEncoding(t *testing.T) {
	h := New("test", nil)

	h.BroadcastEvent("sess-1", "turn-1", EventTranscript, "gehun ka bhav")

	var msg Message
	select {
	case msg = <-h.broadcast:
	default:
		t.Fatal("no message queued")
	}
	if msg.Type != JSONMessage {
		t.Errorf("Type = %v, want JSONMessage", msg.Type)
	}

	var ev Event
	if err := json.Unmarshal(msg.Data, &ev); err != nil {
		t.Fatalf("payload is not JSON: %v", err)
	}
	if ev.SessionID != "sess-1" || ev.TurnID != "turn-1" {
		t.Errorf("event = %+v", ev)
	}
	if ev.Type != EventTranscript {
		t.Errorf("Type = %q", ev.Type)
	}
	if ev.Detail != "gehun ka bhav" {
		t.Errorf("Detail = %q", ev.Detail)
	}
	if ev.Time.IsZero() {
		t.Error("event not timestamped")
	}
}

func TestEventOmitsEmptyFields(t *testing.T) {
	h := New("test", nil)

	h.BroadcastEvent("sess-1", "", EventSessionCreated, "")
	msg := <-h.broadcast

	var raw map[string]any
	if err := json.Unmarshal(msg.Data, &raw); err != nil {
		t.Fatalf("payload is not JSON: %v", err)
	}
	if _, ok := raw["turn_id"]; ok {
		t.Error("empty turn_id serialized")
	}
	if _, ok := raw["detail"]; ok {
		t.Error("empty detail serialized")
	}
}

func TestBacklogTracksQueuedEvents(t *testing.T) {
	h := New("test", nil)
	if h.Backlog() != 0 {
		t.Errorf("Backlog = %d, want 0", h.Backlog())
	}
	h.BroadcastEvent("sess-1", "", EventSessionEnded, "")
	if h.Backlog() != 1 {
		t.Errorf("Backlog = %d, want 1", h.Backlog())
	}
}

func TestBroadcastNeverBlocks(t *testing.T) {
	h := New("test", nil)

	// Nothing drains the channel; overfilling it must drop, not block.
	for i := 0; i < cap(h.broadcast)+10; i++ {
		h.Broadcast(NewJSONMessage([]byte(`{}`)))
	}
	if len(h.broadcast) != cap(h.broadcast) {
		t.Errorf("queued = %d, want %d", len(h.broadcast), cap(h.broadcast))
	}
}

func TestClientCountStartsAtZero(t *testing.T) {
	h := New("test", nil)
	if h.ClientCount() != 0 {
		t.Errorf("ClientCount = %d, want 0", h.ClientCount())
	}
}
