package events

import (
	"time"

	"github.com/opsdesk/ticketing/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated      EventType = "ticket.created"
	EventTicketUpdated      EventType = "ticket.updated"
	EventTicketDeleted      EventType = "ticket.deleted"
	EventRecurringGenerated EventType = "recurring.generated"
)

// Event represents a domain event emitted by the mutation pipeline.
type Event struct {
	ID          string    `json:"id"`
	Type        EventType `json:"type"`
	TenantID    string    `json:"tenant_id"`
	TicketID    string    `json:"ticket_id"`
	ActorUserID *string   `json:"actor_user_id,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
	Payload     any       `json:"payload,omitempty"`
}

// TicketCreatedPayload payload.
type TicketCreatedPayload struct {
	SiteID       string                `json:"site_id"`
	IssueTypeKey string                `json:"issue_type_key"`
	Priority     domain.TicketPriority `json:"priority"`
	Description  string                `json:"description"`
}

// TicketUpdatedPayload payload.
type TicketUpdatedPayload struct {
	Changes domain.ChangeSet `json:"changes"`
}

// RecurringGeneratedPayload payload.
type RecurringGeneratedPayload struct {
	RecurringID string `json:"recurring_id"`
}
