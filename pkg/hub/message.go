// Package hub provides a thread-safe websocket broadcast hub using the
// channel-based fan-out pattern. The server pushes session lifecycle
// events to every connected observer.
package hub

import "time"

// MessageType indicates the websocket message format
type MessageType int

const (
	// JSONMessage is a JSON-encoded message
	JSONMessage MessageType = iota
	// BinaryMessage is raw binary data (e.g., reply audio)
	BinaryMessage
)

// Message represents a message to be broadcast to clients
type Message struct {
	Type MessageType
	Data []byte
}

// NewJSONMessage creates a JSON message from pre-encoded bytes
func NewJSONMessage(data []byte) Message {
	return Message{Type: JSONMessage, Data: data}
}

// Event types pushed over /ws/events.
const (
	EventSessionCreated = "session_created"
	EventSessionEnded   = "session_ended"
	EventStateChanged   = "state_changed"
	EventTranscript     = "transcript"
	EventResponse       = "response"
	EventSpeakingStart  = "speaking_start"
	EventSpeakingEnd    = "speaking_end"
	EventTurnCancelled  = "turn_cancelled"
	EventTurnFailed     = "turn_failed"
)

// Event is one session lifecycle notification.
type Event struct {
	Time      time.Time `json:"time"`
	SessionID string    `json:"session_id"`
	TurnID    string    `json:"turn_id,omitempty"`
	Type      string    `json:"type"`
	Detail    string    `json:"detail,omitempty"`
}
