/*
Package rtc contains the core logic of the real-time layer: per-connection
state machines, the presence registry, and best-effort notification fan-out.

This file defines the wire events carried over the bidirectional channel.
Every event is a tagged envelope {type, payload}; payloads are explicit typed
structs with one variant per event, matched exhaustively at both ends.
*/
package rtc

import "encoding/json"

// EventType identifies a wire event on the real-time channel.
type EventType string

// Client → Server events.
const (
	// EventAuthenticate carries a session token string as its payload.
	EventAuthenticate EventType = "authenticate"

	// EventSendMessage asks the server to relay a direct message.
	EventSendMessage EventType = "send_message"

	// EventTyping reports the sender's typing state to a peer.
	EventTyping EventType = "typing"
)

// Server → Client events.
const (
	// EventAuthenticated acknowledges an authenticate attempt.
	EventAuthenticated EventType = "authenticated"

	// EventReceiveMessage delivers a relayed direct message.
	EventReceiveMessage EventType = "receive_message"

	// EventUserTyping delivers a peer's typing state.
	EventUserTyping EventType = "user_typing"

	// EventNewNotification announces a freshly persisted notification.
	EventNewNotification EventType = "new_notification"
)

// Envelope is the framing for every event on the channel.
type Envelope struct {
	Type    EventType       `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// NewEnvelope marshals the payload and wraps it in an Envelope, returning the
// encoded frame ready for the wire.
func NewEnvelope(eventType EventType, payload any) ([]byte, error) {
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	return json.Marshal(Envelope{
		Type:    eventType,
		Payload: payloadBytes,
	})
}

// AuthenticatedPayload acknowledges an authenticate attempt. On failure the
// connection stays open so the client may retry with a fresh token.
type AuthenticatedPayload struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// SendMessagePayload is the client's request to relay a direct message.
type SendMessagePayload struct {
	ReceiverID string `json:"receiverId"`
	Message    string `json:"message"`
}

// ReceiveMessagePayload is a relayed direct message as seen by the receiver.
type ReceiveMessagePayload struct {
	SenderID  string `json:"senderId"`
	Message   string `json:"message"`
	Timestamp int64  `json:"timestamp"`
}

// TypingPayload is the client's typing-state report.
type TypingPayload struct {
	ReceiverID string `json:"receiverId"`
	IsTyping   bool   `json:"isTyping"`
}

// UserTypingPayload is a peer's typing state as seen by the receiver.
type UserTypingPayload struct {
	UserID   string `json:"userId"`
	IsTyping bool   `json:"isTyping"`
}

// NotificationPayload mirrors the public fields of a persisted notification
// record. The real-time layer only announces the record, it never mutates it.
type NotificationPayload struct {
	ID        string `json:"_id"`
	Title     string `json:"title"`
	Message   string `json:"message"`
	Kind      string `json:"type"`
	Link      string `json:"link,omitempty"`
	Timestamp int64  `json:"timestamp"`
}
