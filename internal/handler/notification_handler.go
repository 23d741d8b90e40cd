package handler

import (
	"net/http"
	"strconv"
	"unicode/utf8"

	"github.com/go-chi/chi/v5"

	"campushub/internal/app/identity"
	"campushub/internal/app/rtc"
	"campushub/internal/app/store"
	"campushub/internal/pkg/auth/jwt"
	"campushub/internal/pkg/errs"
	"campushub/internal/pkg/logx"
	"campushub/internal/pkg/req"
	"campushub/internal/pkg/resp"
)

const (
	// MaxNotificationTitleLen bounds the title field.
	MaxNotificationTitleLen = 200

	// MaxNotificationMessageLen bounds the message body.
	MaxNotificationMessageLen = 2000
)

// notificationJSON is the REST shape of a stored notification. The field
// names match the real-time new_notification payload so clients render both
// with the same code.
type notificationJSON struct {
	ID        string `json:"_id"`
	Title     string `json:"title"`
	Message   string `json:"message"`
	Kind      string `json:"type"`
	Link      string `json:"link,omitempty"`
	IsRead    bool   `json:"isRead"`
	Timestamp int64  `json:"timestamp"`
}

func toNotificationJSON(row store.NotificationRow) notificationJSON {
	return notificationJSON{
		ID:        row.ID,
		Title:     row.Title,
		Message:   row.Message,
		Kind:      row.Kind,
		Link:      row.Link,
		IsRead:    row.IsRead,
		Timestamp: row.CreatedAt.UnixMilli(),
	}
}

// HandleListNotifications returns the caller's notification feed, newest
// first. Query params: unread=true, kind=<kind>, limit=<n>.
func HandleListNotifications(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		payload := jwt.GetPayloadFromContext(r)
		if payload == nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrUnauthorized))
			return
		}

		query := r.URL.Query()

		var limit int32
		if limitStr := query.Get("limit"); limitStr != "" {
			parsed, err := strconv.ParseInt(limitStr, 10, 32)
			if err != nil || parsed < 1 || parsed > 200 {
				resp.RespondError(w, r, errs.NewError(errs.ErrInvalidParams))
				return
			}
			limit = int32(parsed)
		}

		rows, err := deps.Store.ListNotifications(r.Context(), store.ListNotificationsParams{
			UserID:     payload.ID,
			UnreadOnly: query.Get("unread") == "true",
			Kind:       query.Get("kind"),
			Limit:      limit,
		})
		if err != nil {
			logx.Error(err, "list_notifications: query failed", "user_id", payload.ID)
			resp.RespondError(w, r, errs.NewError(errs.ErrUnknown))
			return
		}

		out := make([]notificationJSON, 0, len(rows))
		for _, row := range rows {
			out = append(out, toNotificationJSON(row))
		}

		resp.RespondSuccess(w, r, map[string]any{
			"notifications": out,
		})
	}
}

// HandleUnreadCount returns the caller's unread badge count.
func HandleUnreadCount(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		payload := jwt.GetPayloadFromContext(r)
		if payload == nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrUnauthorized))
			return
		}

		count, err := deps.Store.CountUnreadNotifications(r.Context(), payload.ID)
		if err != nil {
			logx.Error(err, "unread_count: query failed", "user_id", payload.ID)
			resp.RespondError(w, r, errs.NewError(errs.ErrUnknown))
			return
		}

		resp.RespondSuccess(w, r, map[string]any{
			"count": count,
		})
	}
}

// CreateNotificationInput is the staff-facing request to publish a
// notification. Targets are explicit recipient ids, a whole-role audience, or
// both.
type CreateNotificationInput struct {
	Title      string   `json:"title"`
	Message    string   `json:"message"`
	Kind       string   `json:"kind"`
	Link       string   `json:"link"`
	Recipients []string `json:"recipients"`
	Audience   string   `json:"audience"`
}

// HandleCreateNotification persists one notification row per recipient, then
// hands the ids to the hub for best-effort delivery. Offline recipients see
// the row on their next feed fetch.
func HandleCreateNotification(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		payload := jwt.GetPayloadFromContext(r)
		if payload == nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrUnauthorized))
			return
		}
		if !identity.IsStaff(payload.Role) {
			resp.RespondError(w, r, errs.NewError(errs.ErrForbidden))
			return
		}

		var input CreateNotificationInput
		if customErr := req.BindJSON(w, r, &input); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		if input.Title == "" || utf8.RuneCountInString(input.Title) > MaxNotificationTitleLen {
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidParams))
			return
		}
		if input.Message == "" || utf8.RuneCountInString(input.Message) > MaxNotificationMessageLen {
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidParams))
			return
		}
		if input.Kind == "" {
			input.Kind = "general"
		}

		recipients := input.Recipients
		if input.Audience != "" {
			if !identity.ValidRole(input.Audience) {
				resp.RespondError(w, r, errs.NewError(errs.ErrInvalidRole))
				return
			}
			ids, err := deps.Store.ListUserIDsByRole(r.Context(), input.Audience)
			if err != nil {
				logx.Error(err, "create_notification: audience lookup failed", "audience", input.Audience)
				resp.RespondError(w, r, errs.NewError(errs.ErrUnknown))
				return
			}
			recipients = append(recipients, ids...)
		}

		recipients = dedupe(recipients)
		if len(recipients) == 0 {
			resp.RespondError(w, r, errs.NewError(errs.ErrRecipientsRequired))
			return
		}

		created := 0
		for _, recipientID := range recipients {
			row, err := deps.Store.CreateNotification(r.Context(), store.CreateNotificationParams{
				UserID:  recipientID,
				Title:   input.Title,
				Message: input.Message,
				Kind:    input.Kind,
				Link:    input.Link,
			})
			if err != nil {
				logx.Error(err, "create_notification: insert failed", "recipient_id", recipientID)
				continue
			}
			created++

			// Each recipient's copy carries its own id; delivery is
			// best-effort and per-recipient.
			deps.Hub.Fanout([]string{row.UserID}, rtc.NotificationPayload{
				ID:        row.ID,
				Title:     row.Title,
				Message:   row.Message,
				Kind:      row.Kind,
				Link:      row.Link,
				Timestamp: row.CreatedAt.UnixMilli(),
			})
		}

		if created == 0 {
			resp.RespondError(w, r, errs.NewError(errs.ErrUnknown))
			return
		}

		resp.RespondSuccess(w, r, map[string]any{
			"created": created,
		})
	}
}

// HandleMarkNotificationRead flips one of the caller's notifications to read.
func HandleMarkNotificationRead(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		payload := jwt.GetPayloadFromContext(r)
		if payload == nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrUnauthorized))
			return
		}

		notificationID := chi.URLParam(r, "id")
		if notificationID == "" {
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidParams))
			return
		}

		updated, err := deps.Store.MarkNotificationRead(r.Context(), payload.ID, notificationID)
		if err != nil {
			logx.Error(err, "mark_read: update failed", "notification_id", notificationID)
			resp.RespondError(w, r, errs.NewError(errs.ErrUnknown))
			return
		}
		if !updated {
			resp.RespondError(w, r, errs.NewError(errs.ErrNotificationNotFound))
			return
		}

		resp.RespondSuccess(w, r, nil)
	}
}

// HandleMarkAllNotificationsRead flips every unread notification of the caller.
func HandleMarkAllNotificationsRead(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		payload := jwt.GetPayloadFromContext(r)
		if payload == nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrUnauthorized))
			return
		}

		if err := deps.Store.MarkAllNotificationsRead(r.Context(), payload.ID); err != nil {
			logx.Error(err, "mark_all_read: update failed", "user_id", payload.ID)
			resp.RespondError(w, r, errs.NewError(errs.ErrUnknown))
			return
		}

		resp.RespondSuccess(w, r, nil)
	}
}

// dedupe removes duplicate ids while preserving order.
func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := ids[:0]
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
