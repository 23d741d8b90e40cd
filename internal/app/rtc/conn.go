/*
Package rtc contains the core logic of the real-time layer.

This file defines the Conn struct, pairing a Session state machine with a live
WebSocket. It manages the connection lifecycle, the message communication
loops (ReadPump and WritePump), and the ping/pong heartbeat that detects dead
connections so presence never stays stale for long after a silent failure.
*/
package rtc

import (
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"campushub/internal/pkg/logx"
)

const (
	// timeout duration for writing to the WebSocket connection.
	writeWait = 10 * time.Second

	// maximum time allowed for the server to wait for a Pong message from the client.
	pongWait = 60 * time.Second

	// frequency at which the server sends a Ping message.
	pingPeriod = (pongWait * 9) / 10

	// maximum allowed size (in bytes) of a frame sent by the client.
	maxFrameSize = 8192
)

// Conn is an active WebSocket connection bound to one Session.
type Conn struct {
	session *Session

	// underlying WebSocket connection object.
	ws *websocket.Conn

	logger zerolog.Logger
}

// NewConn binds a fresh Session to the upgraded WebSocket connection.
// The session starts unauthenticated; identity arrives in-channel.
func NewConn(ws *websocket.Conn, hub *Hub, connID string) *Conn {
	connLogger := logx.Logger().With().
		Str("component", "conn").
		Str("conn_id", connID).
		Logger()

	return &Conn{
		session: NewSession(connID, hub),
		ws:      ws,
		logger:  connLogger,
	}
}

// Session exposes the connection's state machine.
func (c *Conn) Session() *Session {
	return c.session
}

// ReadPump handles reading frames from the WebSocket connection.
// It handles heartbeats (Pong), frame dispatch into the session state
// machine, and performs cleanup upon connection closure.
func (c *Conn) ReadPump() {
	defer c.cleanupOnDisconnect()

	c.ws.SetReadLimit(maxFrameSize)

	if err := c.ws.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		c.logger.Error().Err(err).Msg("Failed to set read deadline")
		return
	}

	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, frame, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Info().Err(err).Msg("Error reading frame (Client close/going away)")
			}
			break
		}

		c.session.HandleEvent(frame)
	}
}

// cleanupOnDisconnect handles the necessary cleanup steps when the ReadPump
// terminates: presence leave via the session, then transport close.
func (c *Conn) cleanupOnDisconnect() {
	c.logger.Info().
		Str("user_id", c.session.UserID()).
		Msg("Connection cleanup starting.")

	c.session.Close()

	if err := c.ws.Close(); err != nil {
		c.logger.Debug().Err(err).Msg("Connection close error")
	}
}

// WritePump handles writing frames from the session's outbound queue to the
// WebSocket connection and keeps the heartbeat alive.
func (c *Conn) WritePump() {
	ticker := time.NewTicker(pingPeriod)

	defer func() {
		ticker.Stop()

		// ensure the connection is closed on exit
		if err := c.ws.Close(); err != nil {
			c.logger.Debug().Err(err).Msg("Connection close error in WritePump")
		}
	}()

	for {
		select {
		case frame, ok := <-c.session.Outbound():
			if !c.writeQueuedFrame(frame, ok) {
				return
			}

		case <-ticker.C:
			if !c.writePingMessage() {
				return
			}
		}
	}
}

// writeQueuedFrame writes one frame pulled from the outbound queue.
// Returns true if the WritePump loop should continue, false if it should terminate.
func (c *Conn) writeQueuedFrame(frame []byte, ok bool) bool {
	if err := c.ws.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		c.logger.Error().Err(err).Msg("Failed to set write deadline")
		return false
	}

	if !ok {
		if err := c.ws.WriteMessage(websocket.CloseMessage, []byte{}); err != nil {
			c.logger.Debug().Err(err).Msg("Error writing close message")
		}
		return false
	}

	if err := c.ws.WriteMessage(websocket.TextMessage, frame); err != nil {
		c.logger.Error().Err(err).Msg("Error writing frame")
		return false
	}

	return true
}

// writePingMessage sends a periodic WebSocket Ping to maintain the heartbeat.
// Returns false if the WritePump loop should terminate due to write failure.
func (c *Conn) writePingMessage() bool {
	if err := c.ws.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		c.logger.Error().Err(err).Msg("Failed to set write deadline on ping")
		return false
	}

	if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
		c.logger.Debug().Err(err).Msg("Error writing ping")
		return false
	}

	return true
}
