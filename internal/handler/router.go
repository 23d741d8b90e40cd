/*
Package handler provides the HTTP handlers and routing setup for the CampusHub server.

This file defines the main Router, applying necessary middleware like logging, CORS,
and IP-based rate limiting before delegating requests to specific handlers (API and WebSocket).
*/
package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/rs/cors"
	"golang.org/x/time/rate"

	"campushub/internal/pkg/auth/jwt"
	"campushub/internal/pkg/limiter"
	"campushub/internal/pkg/logx"
	"campushub/internal/pkg/resp"
)

const (
	// NotifyRate throttles staff notification publishing per IP.
	NotifyRate  = 0.5
	NotifyBurst = 5

	// ConnectRate throttles WebSocket upgrade attempts per IP.
	ConnectRate  = 0.2
	ConnectBurst = 5
)

// Router sets up the main HTTP routing table (chi.Router) for the application.
// It initializes IP-based rate limiters, configures CORS, and applies global
// and per-route middleware.
func Router(deps *AppDeps) http.Handler {
	notifyLimiter := limiter.NewIPRateLimiter(rate.Limit(NotifyRate), NotifyBurst)
	connectLimiter := limiter.NewIPRateLimiter(rate.Limit(ConnectRate), ConnectBurst)

	r := chi.NewRouter()

	allowedOrigins := make(map[string]struct{})
	for _, origin := range deps.Config.AllowedOrigins {
		allowedOrigins[origin] = struct{}{}
	}

	var wsUpgrader = websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin: func(r *http.Request) bool {
			if deps.Config.Environment == "development" {
				return true
			}

			origin := r.Header.Get("Origin")
			if _, ok := allowedOrigins[origin]; ok {
				return true
			}

			logx.Warn("WebSocket connection rejected: Origin not allowed.", "origin", origin)
			return false
		},
	}

	corsAllowedOrigins := []string{}
	if deps.Config.Environment == "development" {
		corsAllowedOrigins = []string{"*"}
	} else if len(deps.Config.AllowedOrigins) > 0 {
		corsAllowedOrigins = deps.Config.AllowedOrigins
	}

	c := cors.New(cors.Options{
		AllowedOrigins:   corsAllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{},
		AllowCredentials: true,
		MaxAge:           300,
	})
	r.Use(c.Handler)

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(logx.RequestLogger())
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		data := map[string]string{
			"status":  "ok",
			"service": "CampusHub Server",
		}
		resp.RespondSuccess(w, r, data)
	})

	r.Route("/api", func(api chi.Router) {
		api.Use(jwt.IdentityExtractorMiddleware(deps.Config.JWTSecret))

		api.Route("/auth", func(auth chi.Router) {
			auth.Post("/register", HandleRegister(deps))
			auth.Post("/login", HandleLogin(deps))
		})

		api.Get("/user/profile", HandleGetProfile(deps))

		api.Route("/notifications", func(n chi.Router) {
			n.Get("/", HandleListNotifications(deps))
			n.Get("/unread-count", HandleUnreadCount(deps))
			n.Post("/read-all", HandleMarkAllNotificationsRead(deps))
			n.Post("/{id}/read", HandleMarkNotificationRead(deps))

			rateLimitedCreate := notifyLimiter.Middleware(HandleCreateNotification(deps))
			n.Post("/", http.HandlerFunc(rateLimitedCreate.ServeHTTP))
		})

		api.Route("/messages", func(m chi.Router) {
			m.Get("/", HandleListConversations(deps))
			m.Post("/", HandleSendMessage(deps))
			m.Get("/{userID}", HandleGetConversation(deps))
			m.Post("/{userID}/read", HandleMarkConversationRead(deps))
		})

		api.Post("/file/presign-upload", HandlePresignUploadURL(deps))
		api.Get("/file/presign-download", HandlePresignDownloadURL(deps))
	})

	r.Get("/ws", HandleWebSocket(deps, wsUpgrader, connectLimiter))

	return r
}
