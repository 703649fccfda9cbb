package ws

import "encoding/json"

// MessageType constants for the session stream.
const (
	// Client -> Server
	TypeSync = "sync"
	TypePing = "ping"

	// Server -> Client
	TypeSessionUpdate = "session_update"
	TypeCountdownTick = "countdown_tick"
	TypeError         = "error"
	TypePong          = "pong"
)

// Message wraps all WebSocket payloads with type and optional request ID.
type Message struct {
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	RequestID string          `json:"request_id,omitempty"`
}

type CountdownTickPayload struct {
	RemainingSeconds int `json:"remaining_seconds"`
}

type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// NewMessage marshals payload into a typed message.
func NewMessage(msgType string, payload any) (Message, error) {
	msg := Message{Type: msgType}
	if payload == nil {
		return msg, nil
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return Message{}, err
	}
	msg.Payload = data
	return msg, nil
}
