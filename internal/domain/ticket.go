package domain

import "time"

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusNew        TicketStatus = "NEW"
	TicketStatusTriage     TicketStatus = "TRIAGE"
	TicketStatusInProgress TicketStatus = "IN_PROGRESS"
	TicketStatusPending    TicketStatus = "PENDING"
	TicketStatusResolved   TicketStatus = "RESOLVED"
	TicketStatusClosed     TicketStatus = "CLOSED"
)

// Valid reports whether the status is a known lifecycle state.
func (s TicketStatus) Valid() bool {
	switch s {
	case TicketStatusNew, TicketStatusTriage, TicketStatusInProgress,
		TicketStatusPending, TicketStatusResolved, TicketStatusClosed:
		return true
	}
	return false
}

// TicketPriority enumerates urgency, P1 highest.
type TicketPriority string

const (
	TicketPriorityP1 TicketPriority = "P1"
	TicketPriorityP2 TicketPriority = "P2"
	TicketPriorityP3 TicketPriority = "P3"
	TicketPriorityP4 TicketPriority = "P4"
)

// Valid reports whether the priority is one of P1..P4.
func (p TicketPriority) Valid() bool {
	switch p {
	case TicketPriorityP1, TicketPriorityP2, TicketPriorityP3, TicketPriorityP4:
		return true
	}
	return false
}

// Rank orders priorities: lower is more urgent (P1=1 .. P4=4).
func (p TicketPriority) Rank() int {
	switch p {
	case TicketPriorityP1:
		return 1
	case TicketPriorityP2:
		return 2
	case TicketPriorityP3:
		return 3
	case TicketPriorityP4:
		return 4
	}
	return 5
}

// Ticket is the aggregate for helpdesk requests. All references (site,
// issue type, assignee) belong to the same tenant as the ticket.
type Ticket struct {
	ID              string
	TenantID        string
	SiteID          string
	IssueTypeKey    string
	Description     string
	Details         *string
	Status          TicketStatus
	Priority        TicketPriority
	AssignedUserID  *string
	DueAt           *time.Time
	CustomFields    map[string]any
	CreatedAt       time.Time
	UpdatedAt       time.Time
	FirstResponseAt *time.Time
	ResolvedAt      *time.Time
}
