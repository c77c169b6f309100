package notification

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/cmlabs-hris/hris-timepay-go/internal/domain/notification"
	"github.com/cmlabs-hris/hris-timepay-go/internal/pkg/clock"
	"github.com/cmlabs-hris/hris-timepay-go/internal/pkg/sse"
	"github.com/cmlabs-hris/hris-timepay-go/internal/pkg/validator"
	"github.com/google/uuid"
)

const (
	streamEvent  = "notification"
	flushTimeout = 30 * time.Second
)

// Config sizes the background writers. Zero values take the defaults noted.
type Config struct {
	BatchSize     int           // 100
	FlushInterval time.Duration // 5s
	WorkerCount   int           // 2
	QueueSize     int           // 1000
}

func (c Config) withDefaults() Config {
	if c.BatchSize <= 0 {
		c.BatchSize = 100
	}
	if c.FlushInterval <= 0 {
		c.FlushInterval = 5 * time.Second
	}
	if c.WorkerCount <= 0 {
		c.WorkerCount = 2
	}
	if c.QueueSize <= 0 {
		c.QueueSize = 1000
	}
	return c
}

type NotificationServiceImpl struct {
	repo  notification.Repository
	hub   *sse.Hub
	clock clock.Clock
	cfg   Config

	queue    chan notification.Notification
	done     chan struct{}
	stopOnce sync.Once
	workers  sync.WaitGroup
}

// NewNotificationService starts cfg.WorkerCount writers that persist queued entries in batches
// and push each stored entry to the recipient's open streams.
func NewNotificationService(repo notification.Repository, hub *sse.Hub, clk clock.Clock, cfg Config) notification.Service {
	cfg = cfg.withDefaults()
	s := &NotificationServiceImpl{
		repo:  repo,
		hub:   hub,
		clock: clk,
		cfg:   cfg,
		queue: make(chan notification.Notification, cfg.QueueSize),
		done:  make(chan struct{}),
	}

	for i := 0; i < cfg.WorkerCount; i++ {
		s.workers.Add(1)
		go s.writer(i)
	}

	slog.Info("NotificationService: started",
		"workers", cfg.WorkerCount, "batch_size", cfg.BatchSize, "flush_interval", cfg.FlushInterval)
	return s
}

// ========== DISPATCH ==========

// QueueNotification implements notification.Dispatcher. Requests without a recipient are dropped;
// when the queue is full the entry is written inline.
func (s *NotificationServiceImpl) QueueNotification(ctx context.Context, req notification.CreateNotificationRequest) error {
	if !req.Type.Valid() {
		return notification.ErrInvalidNotificationType
	}
	if req.RecipientID == "" {
		return nil
	}

	select {
	case <-s.done:
		return notification.ErrServiceStopped
	default:
	}

	n := notification.Notification{
		ID:          uuid.NewString(),
		CompanyID:   req.CompanyID,
		RecipientID: req.RecipientID,
		SenderID:    req.SenderID,
		Type:        req.Type,
		Title:       req.Title,
		Message:     req.Message,
		Data:        req.Data,
		CreatedAt:   s.clock.Now(),
	}

	select {
	case s.queue <- n:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		slog.Warn("NotificationService: queue full, writing inline", "type", n.Type, "recipient", n.RecipientID)
		return s.store(ctx, []notification.Notification{n})
	}
}

func (s *NotificationServiceImpl) store(ctx context.Context, batch []notification.Notification) error {
	if err := s.repo.Insert(ctx, batch); err != nil {
		return err
	}
	for _, n := range batch {
		s.hub.Publish(n.RecipientID, sse.Event{
			UserID: n.RecipientID,
			Event:  streamEvent,
			Data:   notification.NewNotificationResponse(n),
		})
	}
	return nil
}

// writer flushes when the batch fills, on every tick, and once more after Stop drains the queue.
func (s *NotificationServiceImpl) writer(id int) {
	defer s.workers.Done()

	batch := make([]notification.Notification, 0, s.cfg.BatchSize)
	ticker := time.NewTicker(s.cfg.FlushInterval)
	defer ticker.Stop()

	flush := func() {
		if len(batch) == 0 {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), flushTimeout)
		defer cancel()

		if err := s.store(ctx, batch); err != nil {
			slog.Error("NotificationService: batch insert failed", "worker", id, "count", len(batch), "error", err)
		}
		batch = batch[:0]
	}
	add := func(n notification.Notification) {
		batch = append(batch, n)
		if len(batch) >= s.cfg.BatchSize {
			flush()
		}
	}

	for {
		select {
		case n := <-s.queue:
			add(n)
		case <-ticker.C:
			flush()
		case <-s.done:
			for {
				select {
				case n := <-s.queue:
					add(n)
				default:
					flush()
					return
				}
			}
		}
	}
}

// Stop implements notification.Service. Safe to call twice.
func (s *NotificationServiceImpl) Stop() {
	s.stopOnce.Do(func() {
		close(s.done)
		s.workers.Wait()
		slog.Info("NotificationService: stopped")
	})
}

// ========== INBOX ==========

// List implements notification.Service.
func (s *NotificationServiceImpl) List(ctx context.Context, recipientID string, req notification.ListRequest) (notification.ListResponse, error) {
	filter, err := req.Filter(recipientID)
	if err != nil {
		return notification.ListResponse{}, err
	}

	entries, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return notification.ListResponse{}, err
	}
	unread, err := s.repo.CountUnread(ctx, recipientID)
	if err != nil {
		return notification.ListResponse{}, err
	}

	items := make([]notification.NotificationResponse, len(entries))
	for i, n := range entries {
		items[i] = notification.NewNotificationResponse(n)
	}

	return notification.ListResponse{
		Notifications: items,
		TotalCount:    total,
		UnreadCount:   unread,
		Page:          filter.Page,
		PageSize:      filter.PageSize,
		TotalPages:    (total + filter.PageSize - 1) / filter.PageSize,
	}, nil
}

// UnreadCount implements notification.Service.
func (s *NotificationServiceImpl) UnreadCount(ctx context.Context, recipientID string) (int, error) {
	return s.repo.CountUnread(ctx, recipientID)
}

// MarkRead implements notification.Service.
func (s *NotificationServiceImpl) MarkRead(ctx context.Context, recipientID string, req notification.MarkAsReadRequest) (notification.MarkReadResponse, error) {
	if err := validator.Struct(req); err != nil {
		return notification.MarkReadResponse{}, err
	}
	updated, err := s.repo.MarkRead(ctx, recipientID, req.NotificationIDs)
	if err != nil {
		return notification.MarkReadResponse{}, err
	}
	return notification.MarkReadResponse{Updated: updated}, nil
}

// MarkAllRead implements notification.Service.
func (s *NotificationServiceImpl) MarkAllRead(ctx context.Context, recipientID string) (notification.MarkReadResponse, error) {
	updated, err := s.repo.MarkRead(ctx, recipientID, nil)
	if err != nil {
		return notification.MarkReadResponse{}, err
	}
	return notification.MarkReadResponse{Updated: updated}, nil
}

// Delete implements notification.Service.
func (s *NotificationServiceImpl) Delete(ctx context.Context, recipientID string, id string) error {
	return s.repo.Delete(ctx, recipientID, id)
}

// Purge implements notification.Service.
func (s *NotificationServiceImpl) Purge(ctx context.Context, retention time.Duration) (int64, error) {
	cutoff := s.clock.Now().Add(-retention)
	removed, err := s.repo.PurgeReadBefore(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	slog.Info("NotificationService: purged read notifications", "removed", removed, "cutoff", cutoff)
	return removed, nil
}

// ========== STREAM ==========

// Subscribe implements notification.Service.
func (s *NotificationServiceImpl) Subscribe(ctx context.Context, recipientID string) (<-chan notification.StreamEvent, func()) {
	events, cleanup := s.hub.Subscribe(recipientID)
	out := make(chan notification.StreamEvent, cap(events))

	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-events:
				if !ok {
					return
				}
				resp, ok := ev.Data.(notification.NotificationResponse)
				if !ok {
					continue
				}
				select {
				case out <- notification.StreamEvent{Event: ev.Event, Data: resp}:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out, cleanup
}
