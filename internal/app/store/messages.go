package store

import (
	"context"
	"strings"
	"time"
)

// ConversationKey derives the canonical key for a pair of users: both ids
// sorted and joined, so either side computes the same key.
func ConversationKey(a, b string) string {
	if a > b {
		a, b = b, a
	}
	return a + ":" + b
}

// MessageRow is one stored direct message.
type MessageRow struct {
	ID              string
	ConversationKey string
	SenderID        string
	ReceiverID      string
	Body            string
	IsRead          bool
	CreatedAt       time.Time
}

// CreateMessageParams carries the fields for persisting a direct message.
type CreateMessageParams struct {
	SenderID   string
	ReceiverID string
	Body       string
}

// CreateMessage persists a direct message under the pair's conversation key.
func (s *Store) CreateMessage(ctx context.Context, arg CreateMessageParams) (MessageRow, error) {
	const query = `
		INSERT INTO messages (conversation_key, sender_id, receiver_id, body)
		VALUES ($1, $2, $3, $4)
		RETURNING id, conversation_key, sender_id, receiver_id, body, is_read, created_at`

	key := ConversationKey(arg.SenderID, arg.ReceiverID)

	var row MessageRow
	err := s.pool.QueryRow(ctx, query, key, arg.SenderID, arg.ReceiverID, arg.Body).Scan(
		&row.ID, &row.ConversationKey, &row.SenderID, &row.ReceiverID,
		&row.Body, &row.IsRead, &row.CreatedAt,
	)
	return row, err
}

// ListConversation returns the newest messages between two users, newest
// first. Limit zero falls back to 50.
func (s *Store) ListConversation(ctx context.Context, userA, userB string, limit int32) ([]MessageRow, error) {
	const query = `
		SELECT id, conversation_key, sender_id, receiver_id, body, is_read, created_at
		FROM messages
		WHERE conversation_key = $1
		ORDER BY created_at DESC
		LIMIT $2`

	if limit <= 0 {
		limit = 50
	}

	rows, err := s.pool.Query(ctx, query, ConversationKey(userA, userB), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []MessageRow
	for rows.Next() {
		var row MessageRow
		if err := rows.Scan(
			&row.ID, &row.ConversationKey, &row.SenderID, &row.ReceiverID,
			&row.Body, &row.IsRead, &row.CreatedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// MarkConversationRead flips every message the given user received in the
// conversation to read.
func (s *Store) MarkConversationRead(ctx context.Context, userID, peerID string) error {
	const query = `
		UPDATE messages SET is_read = true
		WHERE conversation_key = $1 AND receiver_id = $2 AND is_read = false`

	_, err := s.pool.Exec(ctx, query, ConversationKey(userID, peerID), userID)
	return err
}

// ListConversationPartners returns the distinct peer ids the user has
// exchanged messages with, most recent conversation first.
func (s *Store) ListConversationPartners(ctx context.Context, userID string) ([]string, error) {
	const query = `
		SELECT peer FROM (
			SELECT CASE WHEN sender_id = $1 THEN receiver_id ELSE sender_id END AS peer,
			       max(created_at) AS last_at
			FROM messages
			WHERE sender_id = $1 OR receiver_id = $1
			GROUP BY peer
		) conversations
		ORDER BY last_at DESC`

	rows, err := s.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var peers []string
	for rows.Next() {
		var peer string
		if err := rows.Scan(&peer); err != nil {
			return nil, err
		}
		peers = append(peers, peer)
	}
	return peers, rows.Err()
}

// ValidConversationKey reports whether the key has the two-part sorted shape
// produced by ConversationKey.
func ValidConversationKey(key string) bool {
	parts := strings.SplitN(key, ":", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return false
	}
	return parts[0] <= parts[1]
}
