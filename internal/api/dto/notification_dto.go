package dto

import (
	"time"

	"github.com/opsdesk/ticketing/internal/domain"
)

// NotificationResponse is one persisted notification.
type NotificationResponse struct {
	ID        string                  `json:"id"`
	UserID    *string                 `json:"user_id"`
	Kind      domain.NotificationKind `json:"kind"`
	Title     string                  `json:"title"`
	Message   string                  `json:"message"`
	TicketID  *string                 `json:"ticket_id"`
	Metadata  map[string]any          `json:"metadata"`
	IsRead    bool                    `json:"is_read"`
	CreatedAt time.Time               `json:"created_at"`
}
