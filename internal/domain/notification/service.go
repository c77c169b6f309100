package notification

import (
	"context"
	"time"
)

// Dispatcher is the fire-and-forget side of the service that the engine depends on.
type Dispatcher interface {
	QueueNotification(ctx context.Context, req CreateNotificationRequest) error
}

// Service is the recipient-facing inbox plus the background writer behind Dispatcher.
type Service interface {
	Dispatcher

	List(ctx context.Context, recipientID string, req ListRequest) (ListResponse, error)
	UnreadCount(ctx context.Context, recipientID string) (int, error)
	MarkRead(ctx context.Context, recipientID string, req MarkAsReadRequest) (MarkReadResponse, error)
	MarkAllRead(ctx context.Context, recipientID string) (MarkReadResponse, error)
	Delete(ctx context.Context, recipientID string, id string) error

	// Purge drops read entries older than retention.
	Purge(ctx context.Context, retention time.Duration) (int64, error)

	// Subscribe streams entries delivered to recipientID until ctx ends or cleanup is called.
	Subscribe(ctx context.Context, recipientID string) (<-chan StreamEvent, func())

	// Stop flushes queued entries and waits for the writers.
	Stop()
}
