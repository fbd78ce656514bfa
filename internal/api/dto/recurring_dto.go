package dto

import (
	"time"

	"github.com/opsdesk/ticketing/internal/domain"
)

// CreateRecurringRequest payload. Dates are ISO-8601 strings.
type CreateRecurringRequest struct {
	OriginTicketID string                     `json:"origin_ticket_id"`
	SiteID         string                     `json:"site_id"`
	Type           string                     `json:"type"`
	Description    string                     `json:"description"`
	Priority       domain.TicketPriority      `json:"priority"`
	Details        *string                    `json:"details"`
	AssignedUserID *string                    `json:"assigned_user_id"`
	CustomFields   map[string]any             `json:"custom_fields"`
	Frequency      domain.RecurrenceFrequency `json:"frequency"`
	IntervalValue  int                        `json:"interval_value"`
	StartDate      string                     `json:"start_date"`
	EndDate        *string                    `json:"end_date"`
	LeadTimeDays   int                        `json:"lead_time_days"`
	IsActive       *bool                      `json:"is_active"`
}

// UpdateRecurringRequest payload.
type UpdateRecurringRequest struct {
	SiteID         *string                     `json:"site_id"`
	Type           *string                     `json:"type"`
	Description    *string                     `json:"description"`
	Priority       *domain.TicketPriority      `json:"priority"`
	Details        domain.Optional[string]     `json:"details"`
	AssignedUserID domain.Optional[string]     `json:"assigned_user_id"`
	CustomFields   map[string]any              `json:"custom_fields"`
	Frequency      *domain.RecurrenceFrequency `json:"frequency"`
	IntervalValue  *int                        `json:"interval_value"`
	StartDate      *string                     `json:"start_date"`
	EndDate        domain.Optional[string]     `json:"end_date"`
	LeadTimeDays   *int                        `json:"lead_time_days"`
	IsActive       *bool                       `json:"is_active"`
}

// RecurringResponse is the full template representation.
type RecurringResponse struct {
	ID              string                     `json:"id"`
	OriginTicketID  string                     `json:"origin_ticket_id"`
	SiteID          string                     `json:"site_id"`
	Type            string                     `json:"type"`
	Description     string                     `json:"description"`
	Priority        domain.TicketPriority      `json:"priority"`
	Details         *string                    `json:"details"`
	AssignedUserID  *string                    `json:"assigned_user_id"`
	CustomFields    map[string]any             `json:"custom_fields"`
	Frequency       domain.RecurrenceFrequency `json:"frequency"`
	IntervalValue   int                        `json:"interval_value"`
	StartDate       time.Time                  `json:"start_date"`
	EndDate         *time.Time                 `json:"end_date"`
	LeadTimeDays    int                        `json:"lead_time_days"`
	IsActive        bool                       `json:"is_active"`
	NextScheduledAt time.Time                  `json:"next_scheduled_at"`
	LastGeneratedAt *time.Time                 `json:"last_generated_at"`
	CreatedAt       time.Time                  `json:"created_at"`
	UpdatedAt       time.Time                  `json:"updated_at"`
}
