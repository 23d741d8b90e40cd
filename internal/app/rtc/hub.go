/*
Package rtc contains the core logic of the real-time layer.

This file defines the Hub struct: the process-wide coordinator that owns the
presence registry, verifies session tokens for the channel, and performs
best-effort fan-out of notifications and relayed messages. When a Redis bridge
is attached, fan-out crosses instance boundaries through pub/sub.
*/
package rtc

import (
	"github.com/rs/zerolog"

	"campushub/internal/pkg/auth/jwt"
	"campushub/internal/pkg/logx"
)

// Hub coordinates every live connection of this process.
type Hub struct {
	presence *Presence

	// jwtSecret signs the session tokens verified on authenticate.
	jwtSecret string

	// bridge, when non-nil, relays fan-out across server instances.
	bridge *Bridge

	logger zerolog.Logger
}

// NewHub constructs a Hub with an empty presence registry and no bridge.
func NewHub(jwtSecret string) *Hub {
	return &Hub{
		presence:  NewPresence(),
		jwtSecret: jwtSecret,
		logger:    logx.Logger().With().Str("component", "hub").Logger(),
	}
}

// Presence exposes the registry for handlers and tests.
func (h *Hub) Presence() *Presence {
	return h.presence
}

// AttachBridge wires a cross-instance fan-out bridge and starts its receive
// loop. Frames received from the bridge are delivered to local presence only.
func (h *Hub) AttachBridge(bridge *Bridge) {
	h.bridge = bridge
	bridge.Run(h.deliverLocal)
}

// verify validates a session token and extracts the claims. Failure means
// "not authenticated", never a fatal condition.
func (h *Hub) verify(token string) (*jwt.Payload, error) {
	return jwt.ParseToken(token, h.jwtSecret)
}

// Relay pushes one pre-encoded frame to every live connection of a single
// target user. A target with zero connections receives nothing; this is the
// designed degradation path, not an error.
func (h *Hub) Relay(targetUserID string, frame []byte) {
	h.publish([]string{targetUserID}, frame)
}

// Fanout announces a persisted notification to every live connection of each
// target user. It is invoked after the persistence write succeeds but has no
// transactional relationship to it: if delivery fails, the record still
// surfaces on the client's next poll.
func (h *Hub) Fanout(targetUserIDs []string, payload NotificationPayload) {
	frame, err := NewEnvelope(EventNewNotification, payload)
	if err != nil {
		h.logger.Error().Err(err).Str("notification_id", payload.ID).Msg("Failed to build new_notification frame")
		return
	}

	h.publish(targetUserIDs, frame)
}

// publish routes one frame to the target users: through the bridge when one
// is attached (every instance then delivers locally), directly otherwise.
func (h *Hub) publish(targetUserIDs []string, frame []byte) {
	if h.bridge != nil {
		if err := h.bridge.Publish(targetUserIDs, frame); err == nil {
			return
		}
		// Bridge failure degrades to local-only delivery.
		h.logger.Warn().Msg("Bridge publish failed, delivering to local presence only.")
	}

	h.deliverLocal(targetUserIDs, frame)
}

// deliverLocal pushes the frame to every local live connection of each target.
// Delivery is attempted independently per connection: a full or broken
// connection never prevents delivery attempts to the others.
func (h *Hub) deliverLocal(targetUserIDs []string, frame []byte) {
	delivered := 0
	for _, userID := range targetUserIDs {
		for _, session := range h.presence.ConnectionsFor(userID) {
			if session.push(frame) {
				delivered++
			}
		}
	}

	h.logger.Debug().
		Int("targets", len(targetUserIDs)).
		Int("delivered", delivered).
		Msg("Fan-out delivered.")
}

// Shutdown stops the bridge receive loop, if any. Live connections are torn
// down by the HTTP server closing their transports.
func (h *Hub) Shutdown() {
	if h.bridge != nil {
		h.bridge.Close()
	}
	h.logger.Info().Msg("Hub shutdown complete.")
}
