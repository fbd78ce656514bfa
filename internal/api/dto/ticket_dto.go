package dto

import (
	"time"

	"github.com/opsdesk/ticketing/internal/domain"
)

// CreateTicketRequest payload.
type CreateTicketRequest struct {
	SiteID         string                `json:"site_id"`
	Type           string                `json:"type"`
	Description    string                `json:"description"`
	Details        *string               `json:"details"`
	Status         *domain.TicketStatus  `json:"status"`
	Priority       domain.TicketPriority `json:"priority"`
	AssignedUserID *string               `json:"assigned_user_id"`
	DueAt          *string               `json:"due_at"`
	CustomFields   map[string]any        `json:"custom_fields"`
}

// UpdateTicketRequest payload. Nullable fields distinguish omitted from
// explicit null; expected_updated_at enables the optimistic write check.
type UpdateTicketRequest struct {
	SiteID            *string                 `json:"site_id"`
	Type              *string                 `json:"type"`
	Description       *string                 `json:"description"`
	Status            *domain.TicketStatus    `json:"status"`
	Priority          *domain.TicketPriority  `json:"priority"`
	Details           domain.Optional[string] `json:"details"`
	AssignedUserID    domain.Optional[string] `json:"assigned_user_id"`
	DueAt             domain.Optional[string] `json:"due_at"`
	CustomFields      map[string]any          `json:"custom_fields"`
	ExpectedUpdatedAt *time.Time              `json:"expected_updated_at"`
}

// BulkUpdateTicketsRequest payload.
type BulkUpdateTicketsRequest struct {
	IDs   []string            `json:"ids"`
	Patch UpdateTicketRequest `json:"patch"`
}

// BulkDeleteTicketsRequest payload.
type BulkDeleteTicketsRequest struct {
	IDs []string `json:"ids"`
}

// TicketResponse is the full ticket representation.
type TicketResponse struct {
	ID              string                `json:"id"`
	SiteID          string                `json:"site_id"`
	Type            string                `json:"type"`
	Description     string                `json:"description"`
	Details         *string               `json:"details"`
	Status          domain.TicketStatus   `json:"status"`
	Priority        domain.TicketPriority `json:"priority"`
	AssignedUserID  *string               `json:"assigned_user_id"`
	DueAt           *time.Time            `json:"due_at"`
	CustomFields    map[string]any        `json:"custom_fields"`
	CreatedAt       time.Time             `json:"created_at"`
	UpdatedAt       time.Time             `json:"updated_at"`
	FirstResponseAt *time.Time            `json:"first_response_at"`
	ResolvedAt      *time.Time            `json:"resolved_at"`
}

// HistoryEntryResponse is one audit-trail row.
type HistoryEntryResponse struct {
	ID          string           `json:"id"`
	TicketID    string           `json:"ticket_id"`
	ActorUserID *string          `json:"actor_user_id"`
	At          time.Time        `json:"at"`
	Changes     domain.ChangeSet `json:"changes"`
}
