package notification

import (
	"time"

	"github.com/cmlabs-hris/hris-timepay-go/internal/pkg/validator"
)

// ========== REQUEST DTOs ==========

// CreateNotificationRequest is what the engine hands to QueueNotification.
type CreateNotificationRequest struct {
	CompanyID   string
	RecipientID string
	SenderID    *string
	Type        NotificationType
	Title       string
	Message     string
	Data        map[string]interface{}
}

type ListRequest struct {
	Type       *string
	UnreadOnly bool
	Page       int
	PageSize   int
}

// Filter normalizes paging and checks the optional type.
func (r ListRequest) Filter(recipientID string) (ListFilter, error) {
	f := ListFilter{
		RecipientID: recipientID,
		UnreadOnly:  r.UnreadOnly,
		Page:        r.Page,
		PageSize:    r.PageSize,
	}
	if f.Page < 1 {
		f.Page = 1
	}
	if f.PageSize < 1 || f.PageSize > 100 {
		f.PageSize = 20
	}
	if r.Type != nil && !validator.IsEmpty(*r.Type) {
		t := NotificationType(*r.Type)
		if !t.Valid() {
			return ListFilter{}, ErrInvalidNotificationType
		}
		f.Type = &t
	}
	return f, nil
}

type MarkAsReadRequest struct {
	NotificationIDs []string `json:"notification_ids" validate:"required,min=1,max=100,dive,uuid"`
}

// ========== RESPONSE DTOs ==========

type NotificationResponse struct {
	ID        string                 `json:"id"`
	Type      NotificationType       `json:"type"`
	Title     string                 `json:"title"`
	Message   string                 `json:"message"`
	Data      map[string]interface{} `json:"data,omitempty"`
	IsRead    bool                   `json:"is_read"`
	ReadAt    *time.Time             `json:"read_at,omitempty"`
	CreatedAt time.Time              `json:"created_at"`
}

func NewNotificationResponse(n Notification) NotificationResponse {
	return NotificationResponse{
		ID:        n.ID,
		Type:      n.Type,
		Title:     n.Title,
		Message:   n.Message,
		Data:      n.Data,
		IsRead:    n.IsRead,
		ReadAt:    n.ReadAt,
		CreatedAt: n.CreatedAt,
	}
}

type ListResponse struct {
	Notifications []NotificationResponse `json:"notifications"`
	TotalCount    int                    `json:"total_count"`
	UnreadCount   int                    `json:"unread_count"`
	Page          int                    `json:"page"`
	PageSize      int                    `json:"page_size"`
	TotalPages    int                    `json:"total_pages"`
}

type UnreadCountResponse struct {
	UnreadCount int `json:"unread_count"`
}

type MarkReadResponse struct {
	Updated int64 `json:"updated"`
}

// StreamTokenResponse carries the short-lived token an EventSource passes as ?token=.
type StreamTokenResponse struct {
	Token     string `json:"token"`
	ExpiresIn int    `json:"expires_in"`
}

// StreamEvent is one Server-Sent Event frame.
type StreamEvent struct {
	Event string
	Data  NotificationResponse
}
