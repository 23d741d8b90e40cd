package store

import (
	"context"
	"time"
)

// NotificationRetention is how long a notification row is kept before the
// periodic purge removes it.
const NotificationRetention = 30 * 24 * time.Hour

// NotificationRow is one stored notification for one recipient.
type NotificationRow struct {
	ID        string
	UserID    string
	Title     string
	Message   string
	Kind      string
	Link      string
	IsRead    bool
	CreatedAt time.Time
	ExpiresAt time.Time
}

// CreateNotificationParams carries the fields for one recipient's copy of a
// notification.
type CreateNotificationParams struct {
	UserID  string
	Title   string
	Message string
	Kind    string
	Link    string
}

// CreateNotification inserts a notification row with the retention deadline
// already stamped, returning the stored row.
func (s *Store) CreateNotification(ctx context.Context, arg CreateNotificationParams) (NotificationRow, error) {
	const query = `
		INSERT INTO notifications (user_id, title, message, kind, link, expires_at)
		VALUES ($1, $2, $3, $4, $5, now() + $6)
		RETURNING id, user_id, title, message, kind, link, is_read, created_at, expires_at`

	var row NotificationRow
	err := s.pool.QueryRow(ctx, query,
		arg.UserID, arg.Title, arg.Message, arg.Kind, arg.Link, NotificationRetention,
	).Scan(
		&row.ID, &row.UserID, &row.Title, &row.Message, &row.Kind,
		&row.Link, &row.IsRead, &row.CreatedAt, &row.ExpiresAt,
	)
	return row, err
}

// ListNotificationsParams filters a recipient's notification feed. Kind empty
// means all kinds; Limit zero falls back to 50.
type ListNotificationsParams struct {
	UserID     string
	UnreadOnly bool
	Kind       string
	Limit      int32
}

// ListNotifications returns the recipient's notifications, newest first.
func (s *Store) ListNotifications(ctx context.Context, arg ListNotificationsParams) ([]NotificationRow, error) {
	const query = `
		SELECT id, user_id, title, message, kind, link, is_read, created_at, expires_at
		FROM notifications
		WHERE user_id = $1
		  AND ($2 = false OR is_read = false)
		  AND ($3 = '' OR kind = $3)
		ORDER BY created_at DESC
		LIMIT $4`

	limit := arg.Limit
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.pool.Query(ctx, query, arg.UserID, arg.UnreadOnly, arg.Kind, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []NotificationRow
	for rows.Next() {
		var row NotificationRow
		if err := rows.Scan(
			&row.ID, &row.UserID, &row.Title, &row.Message, &row.Kind,
			&row.Link, &row.IsRead, &row.CreatedAt, &row.ExpiresAt,
		); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// CountUnreadNotifications returns the recipient's unread badge count.
func (s *Store) CountUnreadNotifications(ctx context.Context, userID string) (int64, error) {
	const query = `SELECT count(*) FROM notifications WHERE user_id = $1 AND is_read = false`

	var count int64
	err := s.pool.QueryRow(ctx, query, userID).Scan(&count)
	return count, err
}

// MarkNotificationRead flips a single notification to read. The user scope
// keeps one recipient from touching another's rows; it reports whether a row
// was actually updated.
func (s *Store) MarkNotificationRead(ctx context.Context, userID, notificationID string) (bool, error) {
	const query = `
		UPDATE notifications SET is_read = true
		WHERE id = $1 AND user_id = $2`

	tag, err := s.pool.Exec(ctx, query, notificationID, userID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// MarkAllNotificationsRead flips every unread notification of the recipient.
func (s *Store) MarkAllNotificationsRead(ctx context.Context, userID string) error {
	const query = `UPDATE notifications SET is_read = true WHERE user_id = $1 AND is_read = false`

	_, err := s.pool.Exec(ctx, query, userID)
	return err
}

// PurgeExpiredNotifications deletes every row past its retention deadline and
// returns how many were removed.
func (s *Store) PurgeExpiredNotifications(ctx context.Context) (int64, error) {
	const query = `DELETE FROM notifications WHERE expires_at <= now()`

	tag, err := s.pool.Exec(ctx, query)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
