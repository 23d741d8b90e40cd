package rtclient_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"campushub/internal/app/rtc"
	"campushub/internal/app/rtclient"
)

// fakeConn is a scriptable transport: the test feeds server frames through
// inbound and observes client frames through outbound.
type fakeConn struct {
	inbound  chan []byte
	outbound chan []byte

	closeOnce sync.Once
	closed    chan struct{}
}

func newFakeConn() *fakeConn {
	return &fakeConn{
		inbound:  make(chan []byte, 16),
		outbound: make(chan []byte, 16),
		closed:   make(chan struct{}),
	}
}

func (f *fakeConn) ReadMessage() (int, []byte, error) {
	select {
	case frame, ok := <-f.inbound:
		if !ok {
			return 0, nil, errors.New("fake: server closed")
		}
		return 1, frame, nil
	case <-f.closed:
		return 0, nil, errors.New("fake: connection closed")
	}
}

func (f *fakeConn) WriteMessage(messageType int, data []byte) error {
	select {
	case <-f.closed:
		return errors.New("fake: connection closed")
	case f.outbound <- data:
		return nil
	}
}

func (f *fakeConn) Close() error {
	f.closeOnce.Do(func() { close(f.closed) })
	return nil
}

// serverSend simulates a server push.
func (f *fakeConn) serverSend(t *testing.T, eventType rtc.EventType, payload any) {
	t.Helper()

	frame, err := rtc.NewEnvelope(eventType, payload)
	if err != nil {
		t.Fatalf("NewEnvelope failed: %v", err)
	}
	f.inbound <- frame
}

// serverDrop simulates an unexpected transport failure.
func (f *fakeConn) serverDrop() {
	f.Close()
}

// expectClientFrame waits for one frame written by the client.
func (f *fakeConn) expectClientFrame(t *testing.T) rtc.Envelope {
	t.Helper()

	select {
	case raw := <-f.outbound:
		var env rtc.Envelope
		if err := json.Unmarshal(raw, &env); err != nil {
			t.Fatalf("Client wrote invalid envelope: %v", err)
		}
		return env
	case <-time.After(2 * time.Second):
		t.Fatal("Timed out waiting for a client frame")
		return rtc.Envelope{}
	}
}

// fakeDialer hands out scripted connections in order, then fails.
type fakeDialer struct {
	mu    sync.Mutex
	conns []*fakeConn
	calls int
}

func (d *fakeDialer) Dial(ctx context.Context, url string) (rtclient.Conn, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.calls++
	if len(d.conns) == 0 {
		return nil, errors.New("fake: dial refused")
	}
	conn := d.conns[0]
	d.conns = d.conns[1:]
	return conn, nil
}

func (d *fakeDialer) dialCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.calls
}

func waitSignal(t *testing.T, ch <-chan struct{}, what string) {
	t.Helper()

	select {
	case <-ch:
	case <-time.After(2 * time.Second):
		t.Fatalf("Timed out waiting for %s", what)
	}
}

func expectNoSignal(t *testing.T, ch <-chan struct{}, what string) {
	t.Helper()

	select {
	case <-ch:
		t.Fatalf("Unexpected %s", what)
	case <-time.After(50 * time.Millisecond):
	}
}

func fastConfig(dialer *fakeDialer) rtclient.Config {
	return rtclient.Config{
		URL:            "ws://test/ws",
		Token:          "token-1",
		MaxAttempts:    5,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     4 * time.Millisecond,
		Dialer:         dialer,
	}
}

func TestAuthenticateHandshakeAndSingleInitialFetch(t *testing.T) {
	conn := newFakeConn()
	dialer := &fakeDialer{conns: []*fakeConn{conn}}

	authenticated := make(chan struct{}, 8)
	cfg := fastConfig(dialer)
	cfg.OnAuthenticated = func() { authenticated <- struct{}{} }

	client := rtclient.New(cfg)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go client.Run(ctx)

	env := conn.expectClientFrame(t)
	if env.Type != rtc.EventAuthenticate {
		t.Fatalf("Expected authenticate as first frame, got %s", env.Type)
	}
	var token string
	if err := json.Unmarshal(env.Payload, &token); err != nil || token != "token-1" {
		t.Fatalf("Expected token payload token-1, got %s (err %v)", env.Payload, err)
	}

	conn.serverSend(t, rtc.EventAuthenticated, rtc.AuthenticatedPayload{Success: true})
	waitSignal(t, authenticated, "OnAuthenticated")

	if client.State() != rtclient.StateAuthenticated {
		t.Errorf("Expected StateAuthenticated, got %v", client.State())
	}

	// A duplicate ack on the same connection must not re-trigger the hook.
	conn.serverSend(t, rtc.EventAuthenticated, rtc.AuthenticatedPayload{Success: true})
	expectNoSignal(t, authenticated, "second OnAuthenticated on one session")
}

func TestReconnectReauthenticates(t *testing.T) {
	connOne := newFakeConn()
	connTwo := newFakeConn()
	dialer := &fakeDialer{conns: []*fakeConn{connOne, connTwo}}

	authenticated := make(chan struct{}, 8)
	cfg := fastConfig(dialer)
	cfg.OnAuthenticated = func() { authenticated <- struct{}{} }

	client := rtclient.New(cfg)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go client.Run(ctx)

	if env := connOne.expectClientFrame(t); env.Type != rtc.EventAuthenticate {
		t.Fatalf("Expected authenticate on first connection, got %s", env.Type)
	}
	connOne.serverSend(t, rtc.EventAuthenticated, rtc.AuthenticatedPayload{Success: true})
	waitSignal(t, authenticated, "first OnAuthenticated")

	// Kill the transport; the client must reconnect and authenticate again
	// before anything else.
	connOne.serverDrop()

	if env := connTwo.expectClientFrame(t); env.Type != rtc.EventAuthenticate {
		t.Fatalf("Expected authenticate after reconnect, got %s", env.Type)
	}
	connTwo.serverSend(t, rtc.EventAuthenticated, rtc.AuthenticatedPayload{Success: true})
	waitSignal(t, authenticated, "OnAuthenticated after reconnect")
}

func TestAuthFailureLeavesConnectionOpen(t *testing.T) {
	conn := newFakeConn()
	dialer := &fakeDialer{conns: []*fakeConn{conn}}

	failed := make(chan struct{}, 8)
	cfg := fastConfig(dialer)
	cfg.OnAuthFailed = func(string) { failed <- struct{}{} }

	client := rtclient.New(cfg)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go client.Run(ctx)

	conn.expectClientFrame(t)
	conn.serverSend(t, rtc.EventAuthenticated, rtc.AuthenticatedPayload{Success: false, Error: "invalid token"})
	waitSignal(t, failed, "OnAuthFailed")

	if client.State() != rtclient.StateUnauthenticated {
		t.Errorf("Expected StateUnauthenticated after rejection, got %v", client.State())
	}

	// Retry on the same connection with a fresh token.
	client.SetToken("token-2")
	if err := client.Authenticate(); err != nil {
		t.Fatalf("Authenticate retry failed: %v", err)
	}

	env := conn.expectClientFrame(t)
	var token string
	if err := json.Unmarshal(env.Payload, &token); err != nil || token != "token-2" {
		t.Fatalf("Expected retry with token-2, got %s (err %v)", env.Payload, err)
	}
}

func TestDuplicateNotificationsAreSuppressed(t *testing.T) {
	conn := newFakeConn()
	dialer := &fakeDialer{conns: []*fakeConn{conn}}

	received := make(chan struct{}, 8)
	cfg := fastConfig(dialer)
	cfg.OnNotification = func(rtc.NotificationPayload) { received <- struct{}{} }

	client := rtclient.New(cfg)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go client.Run(ctx)

	conn.expectClientFrame(t)
	conn.serverSend(t, rtc.EventAuthenticated, rtc.AuthenticatedPayload{Success: true})

	notification := rtc.NotificationPayload{ID: "n-1", Title: "Grades posted", Kind: "grade"}
	conn.serverSend(t, rtc.EventNewNotification, notification)
	conn.serverSend(t, rtc.EventNewNotification, notification)

	waitSignal(t, received, "OnNotification")
	expectNoSignal(t, received, "duplicate OnNotification")

	if got := client.Notifications(); len(got) != 1 {
		t.Errorf("Expected exactly one held notification, got %d", len(got))
	}
}

func TestCloseIsTerminal(t *testing.T) {
	conn := newFakeConn()
	dialer := &fakeDialer{conns: []*fakeConn{conn, newFakeConn()}}

	cfg := fastConfig(dialer)
	client := rtclient.New(cfg)

	done := make(chan error, 1)
	go func() { done <- client.Run(context.Background()) }()

	conn.expectClientFrame(t)
	conn.serverSend(t, rtc.EventAuthenticated, rtc.AuthenticatedPayload{Success: true})

	client.Close()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run returned error after Close: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after Close")
	}

	if client.State() != rtclient.StateLoggedOut {
		t.Errorf("Expected StateLoggedOut, got %v", client.State())
	}
	if dialer.dialCount() != 1 {
		t.Errorf("Expected no reconnect after Close, dial count %d", dialer.dialCount())
	}
}

func TestRetryBudgetIsBounded(t *testing.T) {
	dialer := &fakeDialer{} // every dial refused

	cfg := fastConfig(dialer)
	cfg.MaxAttempts = 3

	client := rtclient.New(cfg)

	err := client.Run(context.Background())
	if !errors.Is(err, rtclient.ErrRetriesExhausted) {
		t.Fatalf("Expected ErrRetriesExhausted, got %v", err)
	}
	if dialer.dialCount() != 3 {
		t.Errorf("Expected exactly 3 dial attempts, got %d", dialer.dialCount())
	}
}
