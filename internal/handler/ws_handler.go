/*
Package handler provides the HTTP handler function for WebSocket connection
upgrading and initialization.

HandleWebSocket rate limits by IP, upgrades the connection, and starts the
connection's read and write pumps. Identity is never taken from the upgrade
request: the client must authenticate in-channel before any event is honored.
*/
package handler

import (
	"net"
	"net/http"

	"github.com/gorilla/websocket"

	"campushub/internal/app/rtc"
	"campushub/internal/pkg/errs"
	"campushub/internal/pkg/limiter"
	"campushub/internal/pkg/logx"
	"campushub/internal/pkg/randx"
	"campushub/internal/pkg/resp"
)

// HandleWebSocket creates an HTTP HandlerFunc to process WebSocket connection requests.
func HandleWebSocket(deps *AppDeps, upgrader websocket.Upgrader, rateLimiter *limiter.IPRateLimiter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ip, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			ip = r.RemoteAddr
		}

		if ip == "" {
			ip = "unknown_ip"
		}

		if !rateLimiter.GetLimiter(ip).Allow() {
			logx.Warn("WebSocket connection rejected: Rate limit exceeded.", "ip", ip)
			resp.RespondError(w, r, errs.NewError(errs.ErrRateLimitExceeded))
			return
		}

		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logx.Error(err, "Failed to upgrade connection to WebSocket")
			return
		}

		connID := randx.ConnectionID()
		conn := rtc.NewConn(ws, deps.Hub, connID)

		go conn.WritePump()

		logx.Info("WebSocket connection established", "connection_id", connID)

		conn.ReadPump()
	}
}
