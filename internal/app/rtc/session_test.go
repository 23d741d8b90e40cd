package rtc_test

import (
	"encoding/json"
	"testing"
	"time"

	"campushub/internal/app/identity"
	"campushub/internal/app/rtc"
	"campushub/internal/pkg/auth/jwt"
)

const testSecret = "session-test-secret"

func signedToken(t *testing.T, userID, role string, ttl time.Duration) string {
	t.Helper()

	token, err := jwt.GenerateToken(&jwt.Payload{ID: userID, Role: role}, testSecret, ttl)
	if err != nil {
		t.Fatalf("GenerateToken failed: %v", err)
	}
	return token
}

func frame(t *testing.T, eventType rtc.EventType, payload any) []byte {
	t.Helper()

	raw, err := rtc.NewEnvelope(eventType, payload)
	if err != nil {
		t.Fatalf("NewEnvelope failed: %v", err)
	}
	return raw
}

// recvEvent pops one queued outbound frame, failing the test when none is pending.
func recvEvent(t *testing.T, s *rtc.Session) rtc.Envelope {
	t.Helper()

	select {
	case raw := <-s.Outbound():
		var env rtc.Envelope
		if err := json.Unmarshal(raw, &env); err != nil {
			t.Fatalf("Outbound frame is not a valid envelope: %v", err)
		}
		return env
	default:
		t.Fatal("Expected a queued outbound frame, found none")
		return rtc.Envelope{}
	}
}

func expectNoEvent(t *testing.T, s *rtc.Session) {
	t.Helper()

	select {
	case raw := <-s.Outbound():
		t.Fatalf("Expected no outbound frame, got %s", raw)
	default:
	}
}

func TestAuthenticateSuccess(t *testing.T) {
	hub := rtc.NewHub(testSecret)
	s := rtc.NewSession("conn-1", hub)

	s.HandleEvent(frame(t, rtc.EventAuthenticate, signedToken(t, "user-a", identity.RoleStudent, time.Minute)))

	env := recvEvent(t, s)
	if env.Type != rtc.EventAuthenticated {
		t.Fatalf("Expected authenticated event, got %s", env.Type)
	}

	var ack rtc.AuthenticatedPayload
	if err := json.Unmarshal(env.Payload, &ack); err != nil {
		t.Fatalf("Invalid authenticated payload: %v", err)
	}
	if !ack.Success {
		t.Error("Expected success ack")
	}

	if s.State() != rtc.StateAuthenticated {
		t.Errorf("Expected StateAuthenticated, got %v", s.State())
	}
	if got := hub.Presence().ConnectionCount("user-a"); got != 1 {
		t.Errorf("Expected presence membership after authenticate, got %d", got)
	}
}

func TestAuthenticateFailureKeepsConnectionOpen(t *testing.T) {
	hub := rtc.NewHub(testSecret)
	s := rtc.NewSession("conn-1", hub)

	expired := signedToken(t, "user-a", identity.RoleStudent, -time.Minute)
	s.HandleEvent(frame(t, rtc.EventAuthenticate, expired))

	env := recvEvent(t, s)
	var ack rtc.AuthenticatedPayload
	if err := json.Unmarshal(env.Payload, &ack); err != nil {
		t.Fatalf("Invalid authenticated payload: %v", err)
	}
	if ack.Success {
		t.Error("Expected failure ack for expired token")
	}
	if ack.Error == "" {
		t.Error("Expected error detail in failure ack")
	}

	if s.State() != rtc.StateUnauthenticated {
		t.Errorf("Expected StateUnauthenticated after failed authenticate, got %v", s.State())
	}
	if got := hub.Presence().ConnectionCount("user-a"); got != 0 {
		t.Errorf("Expected no presence membership after failed authenticate, got %d", got)
	}

	// The client may retry on the same connection.
	s.HandleEvent(frame(t, rtc.EventAuthenticate, signedToken(t, "user-a", identity.RoleStudent, time.Minute)))
	env = recvEvent(t, s)
	if err := json.Unmarshal(env.Payload, &ack); err != nil {
		t.Fatalf("Invalid authenticated payload: %v", err)
	}
	if !ack.Success {
		t.Error("Expected retry authenticate to succeed")
	}
}

func TestSendMessageBeforeAuthenticateIsDropped(t *testing.T) {
	hub := rtc.NewHub(testSecret)

	receiver := rtc.NewSession("conn-b", hub)
	hub.Presence().Join("user-b", "conn-b", receiver)

	sender := rtc.NewSession("conn-a", hub)
	sender.HandleEvent(frame(t, rtc.EventSendMessage, rtc.SendMessagePayload{
		ReceiverID: "user-b",
		Message:    "hi",
	}))

	// Dropped, not delivered, and not an error back to the sender.
	expectNoEvent(t, sender)
	expectNoEvent(t, receiver)
}

func TestSendMessageDeliversToAllReceiverConnections(t *testing.T) {
	hub := rtc.NewHub(testSecret)

	tabOne := rtc.NewSession("conn-b1", hub)
	tabTwo := rtc.NewSession("conn-b2", hub)
	hub.Presence().Join("user-b", "conn-b1", tabOne)
	hub.Presence().Join("user-b", "conn-b2", tabTwo)

	sender := rtc.NewSession("conn-a", hub)
	sender.HandleEvent(frame(t, rtc.EventAuthenticate, signedToken(t, "user-a", identity.RoleTeacher, time.Minute)))
	recvEvent(t, sender) // drain the ack

	sender.HandleEvent(frame(t, rtc.EventSendMessage, rtc.SendMessagePayload{
		ReceiverID: "user-b",
		Message:    "homework posted",
	}))

	for _, tab := range []*rtc.Session{tabOne, tabTwo} {
		env := recvEvent(t, tab)
		if env.Type != rtc.EventReceiveMessage {
			t.Fatalf("Expected receive_message, got %s", env.Type)
		}

		var msg rtc.ReceiveMessagePayload
		if err := json.Unmarshal(env.Payload, &msg); err != nil {
			t.Fatalf("Invalid receive_message payload: %v", err)
		}
		if msg.SenderID != "user-a" {
			t.Errorf("Expected sender user-a, got %s", msg.SenderID)
		}
		if msg.Message != "homework posted" {
			t.Errorf("Unexpected message body %q", msg.Message)
		}
		if msg.Timestamp == 0 {
			t.Error("Expected a delivery timestamp")
		}
	}

	// The sender gets no delivery confirmation from the channel itself.
	expectNoEvent(t, sender)
}

func TestSendMessageToOfflineReceiverIsSilentlyDropped(t *testing.T) {
	hub := rtc.NewHub(testSecret)

	sender := rtc.NewSession("conn-a", hub)
	sender.HandleEvent(frame(t, rtc.EventAuthenticate, signedToken(t, "user-a", identity.RoleStudent, time.Minute)))
	recvEvent(t, sender)

	sender.HandleEvent(frame(t, rtc.EventSendMessage, rtc.SendMessagePayload{
		ReceiverID: "user-offline",
		Message:    "hi",
	}))

	// No error is surfaced to the sender; the event simply evaporates.
	expectNoEvent(t, sender)
}

func TestTypingFanOut(t *testing.T) {
	hub := rtc.NewHub(testSecret)

	receiver := rtc.NewSession("conn-b", hub)
	hub.Presence().Join("user-b", "conn-b", receiver)

	sender := rtc.NewSession("conn-a", hub)
	sender.HandleEvent(frame(t, rtc.EventAuthenticate, signedToken(t, "user-a", identity.RoleStudent, time.Minute)))
	recvEvent(t, sender)

	sender.HandleEvent(frame(t, rtc.EventTyping, rtc.TypingPayload{
		ReceiverID: "user-b",
		IsTyping:   true,
	}))

	env := recvEvent(t, receiver)
	if env.Type != rtc.EventUserTyping {
		t.Fatalf("Expected user_typing, got %s", env.Type)
	}

	var typing rtc.UserTypingPayload
	if err := json.Unmarshal(env.Payload, &typing); err != nil {
		t.Fatalf("Invalid user_typing payload: %v", err)
	}
	if typing.UserID != "user-a" || !typing.IsTyping {
		t.Errorf("Unexpected typing payload: %+v", typing)
	}
}

func TestMalformedFramesAreDropped(t *testing.T) {
	hub := rtc.NewHub(testSecret)
	s := rtc.NewSession("conn-1", hub)

	cases := []struct {
		name string
		raw  []byte
	}{
		{"not json", []byte("{{{")},
		{"unknown type", []byte(`{"type":"subscribe","payload":{}}`)},
		{"authenticate with object payload", []byte(`{"type":"authenticate","payload":{"token":1}}`)},
		{"send_message with junk payload", []byte(`{"type":"send_message","payload":"nope"}`)},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s.HandleEvent(tc.raw)
			expectNoEvent(t, s)
			if s.State() != rtc.StateUnauthenticated {
				t.Errorf("Malformed frame changed session state to %v", s.State())
			}
		})
	}
}

func TestCloseRemovesPresenceAndIsTerminal(t *testing.T) {
	hub := rtc.NewHub(testSecret)

	s := rtc.NewSession("conn-1", hub)
	s.HandleEvent(frame(t, rtc.EventAuthenticate, signedToken(t, "user-a", identity.RoleStudent, time.Minute)))
	recvEvent(t, s)

	s.Close()
	s.Close() // idempotent

	if s.State() != rtc.StateClosed {
		t.Errorf("Expected StateClosed, got %v", s.State())
	}
	if got := hub.Presence().ConnectionCount("user-a"); got != 0 {
		t.Errorf("Expected presence cleaned up on close, got %d", got)
	}

	// Frames after close are ignored; no transition back out of StateClosed.
	s.HandleEvent(frame(t, rtc.EventAuthenticate, signedToken(t, "user-a", identity.RoleStudent, time.Minute)))
	if s.State() != rtc.StateClosed {
		t.Error("Closed session accepted an authenticate")
	}
	if got := hub.Presence().ConnectionCount("user-a"); got != 0 {
		t.Errorf("Closed session rejoined presence, got %d", got)
	}
}
