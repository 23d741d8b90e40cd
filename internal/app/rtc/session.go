/*
Package rtc contains the core logic of the real-time layer.

This file defines the Session struct: the explicit per-connection state
machine. A Session is independent of the underlying transport so tests can
drive transitions without a network stack; the Conn type pairs a Session with
a live WebSocket.
*/
package rtc

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"campushub/internal/pkg/logx"
)

// State is the lifecycle state of a single connection.
type State int

const (
	// StateUnauthenticated is the initial state after transport connect. A
	// connection may stay here indefinitely if the client never authenticates.
	StateUnauthenticated State = iota

	// StateAuthenticated is entered after a successful authenticate event.
	StateAuthenticated

	// StateClosed is terminal. A new connection is required to reconnect;
	// there is no path back for the same connection instance.
	StateClosed
)

// sendBuffer is the capacity of the per-session outbound queue.
const sendBuffer = 256

// MaxMessageBytes is the maximum accepted length of a direct message body.
const MaxMessageBytes = 5000

// Session is the server-side state machine for one connection. Inbound frames
// enter through HandleEvent; outbound frames leave through the send channel
// drained by the transport's write loop.
type Session struct {
	// id is the transport-assigned connection identifier.
	id string

	hub *Hub

	// send queues outbound frames. Writes are non-blocking: a slow consumer
	// drops frames rather than stalling fan-out to other connections.
	send chan []byte

	mu     sync.Mutex
	state  State
	userID string
	role   string

	logger zerolog.Logger
}

// NewSession constructs a Session in StateUnauthenticated.
func NewSession(connID string, hub *Hub) *Session {
	return &Session{
		id:    connID,
		hub:   hub,
		send:  make(chan []byte, sendBuffer),
		state: StateUnauthenticated,
		logger: logx.Logger().With().
			Str("component", "session").
			Str("conn_id", connID).
			Logger(),
	}
}

// ID returns the connection identifier.
func (s *Session) ID() string {
	return s.id
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// UserID returns the authenticated user id, or "" while unauthenticated.
func (s *Session) UserID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.userID
}

// Outbound exposes the frame queue drained by the transport write loop.
func (s *Session) Outbound() <-chan []byte {
	return s.send
}

// HandleEvent processes one raw inbound frame. Malformed frames are dropped
// with a best-effort log; they never crash the session or affect other
// connections.
func (s *Session) HandleEvent(raw []byte) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		s.logger.Warn().Err(err).Bytes("frame", raw).Msg("Client sent invalid JSON")
		return
	}

	switch env.Type {
	case EventAuthenticate:
		s.handleAuthenticate(env.Payload)

	case EventSendMessage:
		s.handleSendMessage(env.Payload)

	case EventTyping:
		s.handleTyping(env.Payload)

	default:
		s.logger.Warn().Str("event_type", string(env.Type)).Msg("Client sent unsupported event type")
	}
}

// handleAuthenticate verifies the token carried as the payload. Success joins
// presence and acknowledges to this connection only; failure acknowledges with
// success=false and leaves the connection open for a retry.
func (s *Session) handleAuthenticate(payload json.RawMessage) {
	var token string
	if err := json.Unmarshal(payload, &token); err != nil {
		s.logger.Warn().Err(err).Msg("Client sent invalid authenticate payload")
		return
	}

	claims, err := s.hub.verify(token)
	if err != nil {
		s.logger.Info().Msg("Authenticate rejected: invalid token.")
		s.pushEvent(EventAuthenticated, AuthenticatedPayload{
			Success: false,
			Error:   "invalid token",
		})
		return
	}

	s.mu.Lock()
	if s.state == StateClosed {
		s.mu.Unlock()
		return
	}
	s.state = StateAuthenticated
	s.userID = claims.ID
	s.role = claims.Role
	s.mu.Unlock()

	s.hub.presence.Join(claims.ID, s.id, s)

	s.logger.Info().
		Str("user_id", claims.ID).
		Str("role", claims.Role).
		Msg("Session authenticated.")

	s.pushEvent(EventAuthenticated, AuthenticatedPayload{Success: true})
}

// handleSendMessage relays a direct message to every live connection of the
// receiver. Delivery is fire-and-forget and at-most-once: an offline receiver
// gets nothing, no queue and no redelivery. Persistence, if any, happens on
// the separate REST path and is not transactionally linked to this relay.
func (s *Session) handleSendMessage(payload json.RawMessage) {
	s.mu.Lock()
	authenticated := s.state == StateAuthenticated
	senderID := s.userID
	s.mu.Unlock()

	if !authenticated {
		// Not an error to the client. The frame is simply not attributable.
		s.logger.Warn().Msg("Dropping send_message from unauthenticated connection")
		return
	}

	var msg SendMessagePayload
	if err := json.Unmarshal(payload, &msg); err != nil {
		s.logger.Warn().Err(err).Msg("Client sent invalid send_message payload")
		return
	}

	if msg.ReceiverID == "" || msg.Message == "" || len(msg.Message) > MaxMessageBytes {
		s.logger.Warn().Str("receiver_id", msg.ReceiverID).Msg("Dropping malformed send_message")
		return
	}

	frame, err := NewEnvelope(EventReceiveMessage, ReceiveMessagePayload{
		SenderID:  senderID,
		Message:   msg.Message,
		Timestamp: time.Now().UnixMilli(),
	})
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to build receive_message frame")
		return
	}

	s.hub.Relay(msg.ReceiverID, frame)
}

// handleTyping forwards the typing state to the receiver's live connections.
// No persistence, no buffering, no ordering guarantee relative to messages.
func (s *Session) handleTyping(payload json.RawMessage) {
	s.mu.Lock()
	authenticated := s.state == StateAuthenticated
	senderID := s.userID
	s.mu.Unlock()

	if !authenticated {
		s.logger.Warn().Msg("Dropping typing event from unauthenticated connection")
		return
	}

	var typing TypingPayload
	if err := json.Unmarshal(payload, &typing); err != nil {
		s.logger.Warn().Err(err).Msg("Client sent invalid typing payload")
		return
	}

	if typing.ReceiverID == "" {
		return
	}

	frame, err := NewEnvelope(EventUserTyping, UserTypingPayload{
		UserID:   senderID,
		IsTyping: typing.IsTyping,
	})
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to build user_typing frame")
		return
	}

	s.hub.Relay(typing.ReceiverID, frame)
}

// Close transitions the session to StateClosed and removes it from presence.
// It is idempotent and fires from any state on transport disconnect.
func (s *Session) Close() {
	s.mu.Lock()
	if s.state == StateClosed {
		s.mu.Unlock()
		return
	}
	s.state = StateClosed
	s.mu.Unlock()

	s.hub.presence.Leave(s.id)
	close(s.send)
}

// push queues one frame without blocking. A full queue or a closed session
// drops the frame; the failure is local to this connection.
func (s *Session) push(frame []byte) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateClosed {
		return false
	}

	select {
	case s.send <- frame:
		return true
	default:
		s.logger.Warn().Int("queue_len", len(s.send)).Msg("Session send queue full, dropping frame")
		return false
	}
}

// pushEvent marshals and queues one typed event for this connection only.
func (s *Session) pushEvent(eventType EventType, payload any) {
	frame, err := NewEnvelope(eventType, payload)
	if err != nil {
		s.logger.Error().Err(err).Str("event_type", string(eventType)).Msg("Failed to build event frame")
		return
	}
	s.push(frame)
}
