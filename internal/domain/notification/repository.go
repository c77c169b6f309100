package notification

import (
	"context"
	"time"
)

// ListFilter selects one recipient's inbox page.
type ListFilter struct {
	RecipientID string
	Type        *NotificationType
	UnreadOnly  bool
	Page        int
	PageSize    int
}

// Repository stores inbox entries. Every method is scoped to a recipient except PurgeReadBefore.
type Repository interface {
	// Insert writes the batch in one round trip.
	Insert(ctx context.Context, notifications []Notification) error
	List(ctx context.Context, filter ListFilter) ([]Notification, int, error)
	CountUnread(ctx context.Context, recipientID string) (int, error)

	// MarkRead flags ids as read, or every unread entry when ids is empty, and returns how many changed.
	MarkRead(ctx context.Context, recipientID string, ids []string) (int64, error)
	Delete(ctx context.Context, recipientID string, id string) error

	// PurgeReadBefore removes read entries created before cutoff across all recipients.
	PurgeReadBefore(ctx context.Context, cutoff time.Time) (int64, error)
}
