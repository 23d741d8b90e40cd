/*
Package rtclient implements the client side of the real-time channel: the
connect → authenticate → consume cycle, automatic reconnection with bounded
backoff, and duplicate suppression for notification delivery races.

The dial path is an interface so tests can drive the state machine with fake
transports instead of a network stack.
*/
package rtclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"campushub/internal/app/rtc"
	"campushub/internal/pkg/logx"
)

// State is the lifecycle state of the client.
type State int

const (
	// StateDisconnected is the initial state and the resting state between
	// reconnect attempts.
	StateDisconnected State = iota

	// StateConnecting means a dial is in flight.
	StateConnecting

	// StateUnauthenticated means the transport is up and the authenticate
	// round-trip is pending.
	StateUnauthenticated

	// StateAuthenticated means the server acknowledged the session token.
	StateAuthenticated

	// StateLoggedOut is terminal: the user closed the client. All further
	// transport events are ignored and no reconnection is attempted.
	StateLoggedOut
)

// Defaults for the reconnect policy. Both bounds are configuration, not
// invariants.
const (
	DefaultMaxAttempts    = 20
	DefaultInitialBackoff = 1 * time.Second
	DefaultMaxBackoff     = 5 * time.Second
)

// ErrRetriesExhausted is returned by Run when every reconnect attempt failed.
var ErrRetriesExhausted = errors.New("rtclient: reconnect attempts exhausted")

// Conn is the minimal transport surface the client needs.
type Conn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// Dialer opens a transport connection to the server.
type Dialer interface {
	Dial(ctx context.Context, url string) (Conn, error)
}

// wsDialer is the production Dialer over gorilla/websocket.
type wsDialer struct{}

func (wsDialer) Dial(ctx context.Context, url string) (Conn, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, err
	}
	return conn, nil
}

// Config parameterizes a Client.
type Config struct {
	// URL is the websocket endpoint.
	URL string

	// Token is the session token re-sent on every reconnect; authentication
	// state never survives a transport reconnect.
	Token string

	// MaxAttempts bounds consecutive failed connection attempts.
	MaxAttempts int

	// InitialBackoff is the delay before the first retry; subsequent delays
	// double up to MaxBackoff.
	InitialBackoff time.Duration
	MaxBackoff     time.Duration

	// Dialer defaults to a gorilla/websocket dialer when nil.
	Dialer Dialer

	// OnAuthenticated fires exactly once per authenticated session, so
	// initial data fetches gate on the state transition rather than on a
	// mount effect.
	OnAuthenticated func()

	// OnAuthFailed fires when the server rejects the token. The connection
	// stays open; the caller may update the token and Authenticate again.
	OnAuthFailed func(reason string)

	// OnMessage fires for every relayed direct message.
	OnMessage func(rtc.ReceiveMessagePayload)

	// OnTyping fires for every peer typing-state change.
	OnTyping func(rtc.UserTypingPayload)

	// OnNotification fires for every notification not already seen.
	OnNotification func(rtc.NotificationPayload)
}

// Client is the reconnecting channel consumer.
type Client struct {
	cfg Config

	mu            sync.Mutex
	state         State
	conn          Conn
	seen          map[string]struct{}
	notifications []rtc.NotificationPayload

	logger zerolog.Logger
}

// New constructs a Client, applying policy defaults where the config is zero.
func New(cfg Config) *Client {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultMaxAttempts
	}
	if cfg.InitialBackoff <= 0 {
		cfg.InitialBackoff = DefaultInitialBackoff
	}
	if cfg.MaxBackoff <= 0 {
		cfg.MaxBackoff = DefaultMaxBackoff
	}
	if cfg.Dialer == nil {
		cfg.Dialer = wsDialer{}
	}

	return &Client{
		cfg:    cfg,
		state:  StateDisconnected,
		seen:   make(map[string]struct{}),
		logger: logx.Logger().With().Str("component", "rtclient").Logger(),
	}
}

// State returns the current lifecycle state.
func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Notifications returns a snapshot of the notifications received so far,
// duplicates already suppressed.
func (c *Client) Notifications() []rtc.NotificationPayload {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]rtc.NotificationPayload, len(c.notifications))
	copy(out, c.notifications)
	return out
}

// SetToken replaces the session token used on the next authenticate.
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cfg.Token = token
}

// Run drives the connect/authenticate/consume cycle until the context is
// cancelled, Close is called, or the reconnect budget is exhausted. It blocks
// and is intended to run on its own goroutine.
func (c *Client) Run(ctx context.Context) error {
	attempt := 0

	for {
		if c.State() == StateLoggedOut {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		c.setState(StateConnecting)

		conn, err := c.cfg.Dialer.Dial(ctx, c.cfg.URL)
		if err != nil {
			attempt++
			c.setState(StateDisconnected)

			if attempt >= c.cfg.MaxAttempts {
				c.logger.Warn().Int("attempts", attempt).Msg("Giving up on reconnection.")
				return fmt.Errorf("%w after %d attempts: %v", ErrRetriesExhausted, attempt, err)
			}

			if !c.sleep(ctx, c.backoff(attempt)) {
				return ctx.Err()
			}
			continue
		}

		if !c.attach(conn) {
			// Logged out while the dial was in flight.
			conn.Close()
			return nil
		}

		// Authentication is per-connection: re-send on every connect.
		if err := c.Authenticate(); err != nil {
			c.logger.Warn().Err(err).Msg("Failed to send authenticate, reconnecting.")
		}

		authed, err := c.readLoop(conn)

		c.detach(conn)

		if c.State() == StateLoggedOut {
			return nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}

		if authed {
			// A session that got as far as authenticating resets the budget.
			attempt = 0
		}

		attempt++
		c.logger.Info().Err(err).Int("attempt", attempt).Msg("Connection lost, scheduling reconnect.")

		if attempt >= c.cfg.MaxAttempts {
			return fmt.Errorf("%w after %d attempts", ErrRetriesExhausted, attempt)
		}
		if !c.sleep(ctx, c.backoff(attempt)) {
			return ctx.Err()
		}
	}
}

// Authenticate sends the authenticate event on the current connection.
func (c *Client) Authenticate() error {
	c.mu.Lock()
	conn := c.conn
	token := c.cfg.Token
	c.mu.Unlock()

	if conn == nil {
		return errors.New("rtclient: not connected")
	}

	frame, err := rtc.NewEnvelope(rtc.EventAuthenticate, token)
	if err != nil {
		return err
	}
	return conn.WriteMessage(websocket.TextMessage, frame)
}

// Close tears down the connection synchronously and transitions to the
// terminal LoggedOut state. No further reconnection is attempted and all
// subsequent transport events are ignored.
func (c *Client) Close() {
	c.mu.Lock()
	c.state = StateLoggedOut
	conn := c.conn
	c.conn = nil
	c.mu.Unlock()

	if conn != nil {
		conn.Close()
	}
}

// readLoop consumes frames until the transport fails. It reports whether this
// connection reached the authenticated state.
func (c *Client) readLoop(conn Conn) (authed bool, err error) {
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return authed, err
		}

		var env rtc.Envelope
		if jsonErr := json.Unmarshal(raw, &env); jsonErr != nil {
			c.logger.Warn().Err(jsonErr).Msg("Dropping malformed frame from server")
			continue
		}

		switch env.Type {
		case rtc.EventAuthenticated:
			c.handleAuthenticated(env.Payload, &authed)

		case rtc.EventReceiveMessage:
			var msg rtc.ReceiveMessagePayload
			if jsonErr := json.Unmarshal(env.Payload, &msg); jsonErr != nil {
				c.logger.Warn().Err(jsonErr).Msg("Dropping malformed receive_message")
				continue
			}
			if c.cfg.OnMessage != nil {
				c.cfg.OnMessage(msg)
			}

		case rtc.EventUserTyping:
			var typing rtc.UserTypingPayload
			if jsonErr := json.Unmarshal(env.Payload, &typing); jsonErr != nil {
				c.logger.Warn().Err(jsonErr).Msg("Dropping malformed user_typing")
				continue
			}
			if c.cfg.OnTyping != nil {
				c.cfg.OnTyping(typing)
			}

		case rtc.EventNewNotification:
			c.handleNotification(env.Payload)

		default:
			c.logger.Warn().Str("event_type", string(env.Type)).Msg("Dropping unsupported event from server")
		}
	}
}

// handleAuthenticated processes an authenticate ack. The OnAuthenticated hook
// fires only on the first successful ack of a connection, keeping initial
// fetches idempotent across duplicate acks.
func (c *Client) handleAuthenticated(payload json.RawMessage, authed *bool) {
	var ack rtc.AuthenticatedPayload
	if err := json.Unmarshal(payload, &ack); err != nil {
		c.logger.Warn().Err(err).Msg("Dropping malformed authenticated ack")
		return
	}

	if !ack.Success {
		c.logger.Info().Str("reason", ack.Error).Msg("Authentication rejected.")
		c.setState(StateUnauthenticated)
		if c.cfg.OnAuthFailed != nil {
			c.cfg.OnAuthFailed(ack.Error)
		}
		return
	}

	first := !*authed
	*authed = true
	c.setState(StateAuthenticated)

	if first && c.cfg.OnAuthenticated != nil {
		c.cfg.OnAuthenticated()
	}
}

// handleNotification records and surfaces a notification unless its id was
// already seen; duplicates across a reconnect race are discarded silently.
func (c *Client) handleNotification(payload json.RawMessage) {
	var notification rtc.NotificationPayload
	if err := json.Unmarshal(payload, &notification); err != nil {
		c.logger.Warn().Err(err).Msg("Dropping malformed new_notification")
		return
	}

	c.mu.Lock()
	if _, dup := c.seen[notification.ID]; dup {
		c.mu.Unlock()
		return
	}
	c.seen[notification.ID] = struct{}{}
	c.notifications = append(c.notifications, notification)
	c.mu.Unlock()

	if c.cfg.OnNotification != nil {
		c.cfg.OnNotification(notification)
	}
}

// attach records the live connection unless the client is already logged out.
func (c *Client) attach(conn Conn) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == StateLoggedOut {
		return false
	}
	c.conn = conn
	c.state = StateUnauthenticated
	return true
}

// detach forgets the connection and closes it, leaving terminal states alone.
func (c *Client) detach(conn Conn) {
	c.mu.Lock()
	if c.conn == conn {
		c.conn = nil
	}
	if c.state != StateLoggedOut {
		c.state = StateDisconnected
	}
	c.mu.Unlock()

	conn.Close()
}

// setState transitions unless the terminal LoggedOut state was reached.
func (c *Client) setState(s State) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == StateLoggedOut {
		return
	}
	c.state = s
}

// backoff returns the delay before the given retry attempt: the initial delay
// doubled per attempt, capped at the configured maximum.
func (c *Client) backoff(attempt int) time.Duration {
	delay := c.cfg.InitialBackoff
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay >= c.cfg.MaxBackoff {
			return c.cfg.MaxBackoff
		}
	}
	if delay > c.cfg.MaxBackoff {
		return c.cfg.MaxBackoff
	}
	return delay
}

// sleep waits for the delay, returning false when the context fires first.
func (c *Client) sleep(ctx context.Context, delay time.Duration) bool {
	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}
