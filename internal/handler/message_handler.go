package handler

import (
	"net/http"
	"unicode/utf8"

	"github.com/go-chi/chi/v5"

	"campushub/internal/app/rtc"
	"campushub/internal/app/store"
	"campushub/internal/pkg/auth/jwt"
	"campushub/internal/pkg/errs"
	"campushub/internal/pkg/logx"
	"campushub/internal/pkg/req"
	"campushub/internal/pkg/resp"
)

// MaxMessageLen bounds a direct message body, matching the real-time channel
// limit.
const MaxMessageLen = 5000

type messageJSON struct {
	ID         string `json:"_id"`
	SenderID   string `json:"senderId"`
	ReceiverID string `json:"receiverId"`
	Body       string `json:"body"`
	IsRead     bool   `json:"isRead"`
	Timestamp  int64  `json:"timestamp"`
}

func toMessageJSON(row store.MessageRow) messageJSON {
	return messageJSON{
		ID:         row.ID,
		SenderID:   row.SenderID,
		ReceiverID: row.ReceiverID,
		Body:       row.Body,
		IsRead:     row.IsRead,
		Timestamp:  row.CreatedAt.UnixMilli(),
	}
}

// HandleListConversations returns the peers the caller has exchanged
// messages with, most recent conversation first.
func HandleListConversations(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		payload := jwt.GetPayloadFromContext(r)
		if payload == nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrUnauthorized))
			return
		}

		peers, err := deps.Store.ListConversationPartners(r.Context(), payload.ID)
		if err != nil {
			logx.Error(err, "list_conversations: query failed", "user_id", payload.ID)
			resp.RespondError(w, r, errs.NewError(errs.ErrUnknown))
			return
		}
		if peers == nil {
			peers = []string{}
		}

		resp.RespondSuccess(w, r, map[string]any{
			"partners": peers,
		})
	}
}

// HandleGetConversation returns the caller's conversation with one peer,
// newest message first.
func HandleGetConversation(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		payload := jwt.GetPayloadFromContext(r)
		if payload == nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrUnauthorized))
			return
		}

		peerID := chi.URLParam(r, "userID")
		if peerID == "" {
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidParams))
			return
		}

		rows, err := deps.Store.ListConversation(r.Context(), payload.ID, peerID, 0)
		if err != nil {
			logx.Error(err, "get_conversation: query failed", "user_id", payload.ID, "peer_id", peerID)
			resp.RespondError(w, r, errs.NewError(errs.ErrUnknown))
			return
		}

		out := make([]messageJSON, 0, len(rows))
		for _, row := range rows {
			out = append(out, toMessageJSON(row))
		}

		resp.RespondSuccess(w, r, map[string]any{
			"messages": out,
		})
	}
}

// SendMessageInput is the REST request to send a direct message.
type SendMessageInput struct {
	ReceiverID string `json:"receiverId"`
	Body       string `json:"body"`
}

// HandleSendMessage persists a direct message, relays it to the receiver's
// live connections, and records a message notification for the feed. Delivery
// is best-effort; the stored rows are the durable record.
func HandleSendMessage(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		payload := jwt.GetPayloadFromContext(r)
		if payload == nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrUnauthorized))
			return
		}

		var input SendMessageInput
		if customErr := req.BindJSON(w, r, &input); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		if input.ReceiverID == "" {
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidParams))
			return
		}
		if input.ReceiverID == payload.ID {
			resp.RespondError(w, r, errs.NewError(errs.ErrSelfMessage))
			return
		}
		if input.Body == "" {
			resp.RespondError(w, r, errs.NewError(errs.ErrMessageBodyEmpty))
			return
		}
		if utf8.RuneCountInString(input.Body) > MaxMessageLen {
			resp.RespondError(w, r, errs.NewError(errs.ErrMessageContentTooLong))
			return
		}

		exists, err := deps.Store.UserExists(r.Context(), input.ReceiverID)
		if err != nil {
			logx.Error(err, "send_message: receiver lookup failed", "receiver_id", input.ReceiverID)
			resp.RespondError(w, r, errs.NewError(errs.ErrUnknown))
			return
		}
		if !exists {
			resp.RespondError(w, r, errs.NewError(errs.ErrUserNotFound))
			return
		}

		row, err := deps.Store.CreateMessage(r.Context(), store.CreateMessageParams{
			SenderID:   payload.ID,
			ReceiverID: input.ReceiverID,
			Body:       input.Body,
		})
		if err != nil {
			logx.Error(err, "send_message: insert failed", "sender_id", payload.ID)
			resp.RespondError(w, r, errs.NewError(errs.ErrUnknown))
			return
		}

		frame, err := rtc.NewEnvelope(rtc.EventReceiveMessage, rtc.ReceiveMessagePayload{
			SenderID:  row.SenderID,
			Message:   row.Body,
			Timestamp: row.CreatedAt.UnixMilli(),
		})
		if err == nil {
			deps.Hub.Relay(row.ReceiverID, frame)
		}

		// The feed entry makes the message discoverable when the receiver
		// was offline for the relay.
		notification, err := deps.Store.CreateNotification(r.Context(), store.CreateNotificationParams{
			UserID:  row.ReceiverID,
			Title:   "New message from " + payload.DisplayName,
			Message: row.Body,
			Kind:    "message",
		})
		if err != nil {
			logx.Error(err, "send_message: notification insert failed", "receiver_id", row.ReceiverID)
		} else {
			deps.Hub.Fanout([]string{notification.UserID}, rtc.NotificationPayload{
				ID:        notification.ID,
				Title:     notification.Title,
				Message:   notification.Message,
				Kind:      notification.Kind,
				Timestamp: notification.CreatedAt.UnixMilli(),
			})
		}

		resp.RespondSuccess(w, r, map[string]any{
			"message": toMessageJSON(row),
		})
	}
}

// HandleMarkConversationRead flips every message the caller received from the
// peer to read.
func HandleMarkConversationRead(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		payload := jwt.GetPayloadFromContext(r)
		if payload == nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrUnauthorized))
			return
		}

		peerID := chi.URLParam(r, "userID")
		if peerID == "" {
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidParams))
			return
		}

		if err := deps.Store.MarkConversationRead(r.Context(), payload.ID, peerID); err != nil {
			logx.Error(err, "mark_conversation_read: update failed", "user_id", payload.ID, "peer_id", peerID)
			resp.RespondError(w, r, errs.NewError(errs.ErrUnknown))
			return
		}

		resp.RespondSuccess(w, r, nil)
	}
}
