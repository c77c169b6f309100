package postgresql

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/cmlabs-hris/hris-timepay-go/internal/domain/notification"
	"github.com/cmlabs-hris/hris-timepay-go/internal/pkg/database"
	"github.com/jackc/pgx/v5"
)

var notificationCopyColumns = []string{
	"id", "company_id", "recipient_id", "sender_id", "type", "title", "message", "data", "is_read", "created_at",
}

type notificationRepository struct {
	db *database.DB
}

func NewNotificationRepository(db *database.DB) notification.Repository {
	return &notificationRepository{db: db}
}

// Insert implements notification.Repository using COPY.
func (r *notificationRepository) Insert(ctx context.Context, notifications []notification.Notification) error {
	if len(notifications) == 0 {
		return nil
	}

	rows := make([][]interface{}, len(notifications))
	for i, n := range notifications {
		data, err := json.Marshal(n.Data)
		if err != nil {
			return fmt.Errorf("failed to marshal notification data: %w", err)
		}
		rows[i] = []interface{}{
			n.ID, n.CompanyID, n.RecipientID, n.SenderID, string(n.Type),
			n.Title, n.Message, data, n.IsRead, n.CreatedAt,
		}
	}

	q := GetQuerier(ctx, r.db)
	if _, err := q.CopyFrom(ctx, pgx.Identifier{"notifications"}, notificationCopyColumns, pgx.CopyFromRows(rows)); err != nil {
		return fmt.Errorf("failed to insert notifications: %w", err)
	}
	return nil
}

func notificationWhere(filter notification.ListFilter) (string, []interface{}) {
	conds := []string{"recipient_id = $1"}
	args := []interface{}{filter.RecipientID}

	if filter.UnreadOnly {
		conds = append(conds, "is_read = FALSE")
	}
	if filter.Type != nil {
		args = append(args, string(*filter.Type))
		conds = append(conds, fmt.Sprintf("type = $%d", len(args)))
	}
	return strings.Join(conds, " AND "), args
}

// List implements notification.Repository.
func (r *notificationRepository) List(ctx context.Context, filter notification.ListFilter) ([]notification.Notification, int, error) {
	q := GetQuerier(ctx, r.db)
	where, args := notificationWhere(filter)

	var total int
	if err := q.QueryRow(ctx, "SELECT COUNT(*) FROM notifications WHERE "+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count notifications: %w", err)
	}

	args = append(args, filter.PageSize, (filter.Page-1)*filter.PageSize)
	query := fmt.Sprintf(`
		SELECT id, company_id, recipient_id, sender_id, type, title, message, data, is_read, read_at, created_at
		FROM notifications
		WHERE %s
		ORDER BY created_at DESC, id
		LIMIT $%d OFFSET $%d
	`, where, len(args)-1, len(args))

	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list notifications: %w", err)
	}

	notifications, err := pgx.CollectRows(rows, scanNotification)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to scan notifications: %w", err)
	}
	return notifications, total, nil
}

func scanNotification(row pgx.CollectableRow) (notification.Notification, error) {
	var (
		n     notification.Notification
		data  []byte
		nType string
	)
	if err := row.Scan(
		&n.ID, &n.CompanyID, &n.RecipientID, &n.SenderID, &nType,
		&n.Title, &n.Message, &data, &n.IsRead, &n.ReadAt, &n.CreatedAt,
	); err != nil {
		return notification.Notification{}, err
	}
	n.Type = notification.NotificationType(nType)
	if len(data) > 0 {
		if err := json.Unmarshal(data, &n.Data); err != nil {
			return notification.Notification{}, fmt.Errorf("failed to unmarshal notification data: %w", err)
		}
	}
	return n, nil
}

// CountUnread implements notification.Repository.
func (r *notificationRepository) CountUnread(ctx context.Context, recipientID string) (int, error) {
	q := GetQuerier(ctx, r.db)

	var count int
	err := q.QueryRow(ctx, `SELECT COUNT(*) FROM notifications WHERE recipient_id = $1 AND is_read = FALSE`, recipientID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count unread notifications: %w", err)
	}
	return count, nil
}

// MarkRead implements notification.Repository.
func (r *notificationRepository) MarkRead(ctx context.Context, recipientID string, ids []string) (int64, error) {
	q := GetQuerier(ctx, r.db)

	query := `UPDATE notifications SET is_read = TRUE, read_at = NOW() WHERE recipient_id = $1 AND is_read = FALSE`
	args := []interface{}{recipientID}
	if len(ids) > 0 {
		query += " AND id = ANY($2)"
		args = append(args, ids)
	}

	tag, err := q.Exec(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to mark notifications as read: %w", err)
	}
	return tag.RowsAffected(), nil
}

// Delete implements notification.Repository.
func (r *notificationRepository) Delete(ctx context.Context, recipientID string, id string) error {
	q := GetQuerier(ctx, r.db)

	tag, err := q.Exec(ctx, `DELETE FROM notifications WHERE id = $1 AND recipient_id = $2`, id, recipientID)
	if err != nil {
		if isNotFound(err) {
			return notification.ErrNotificationNotFound
		}
		return fmt.Errorf("failed to delete notification: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return notification.ErrNotificationNotFound
	}
	return nil
}

// PurgeReadBefore implements notification.Repository.
func (r *notificationRepository) PurgeReadBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	q := GetQuerier(ctx, r.db)

	tag, err := q.Exec(ctx, `DELETE FROM notifications WHERE is_read = TRUE AND created_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to purge notifications: %w", err)
	}
	return tag.RowsAffected(), nil
}
