package domain

import "time"

// NotificationKind enumerates ticket lifecycle notifications.
type NotificationKind string

const (
	NotifyTicketAssigned     NotificationKind = "TICKET_ASSIGNED"
	NotifyTicketUpdated      NotificationKind = "TICKET_UPDATED"
	NotifyTicketResolved     NotificationKind = "TICKET_RESOLVED"
	NotifyRecurringGenerated NotificationKind = "RECURRING_TICKET_GENERATED"
)

// Notification is a persisted message addressed to a tenant user.
type Notification struct {
	ID        string
	TenantID  string
	UserID    *string
	Kind      NotificationKind
	Title     string
	Message   string
	TicketID  *string
	Metadata  map[string]any
	IsRead    bool
	CreatedAt time.Time
}

// OutboxEvent is a durable record of a domain event for asynchronous
// consumers, appended in the same transaction as the mutation it describes.
type OutboxEvent struct {
	ID        string
	TenantID  string
	Type      string
	EntityID  string
	Payload   map[string]any
	CreatedAt time.Time
}
