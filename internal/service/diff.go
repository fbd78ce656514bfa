package service

import (
	"time"

	"github.com/opsdesk/ticketing/internal/domain"
)

// watchedFields is the fixed attribute list the audit trail tracks.
var watchedFields = []string{
	"status",
	"details",
	"priority",
	"assignedUserId",
	"issueType",
	"site",
	"dueAt",
}

// DiffTickets computes the field-level change set between two ticket
// states. A nil before marks creation: every watched field is included with
// a nil "from", so the initial history entry records the full starting
// state. Timestamps compare by instant, not by string.
func DiffTickets(before, after *domain.Ticket) domain.ChangeSet {
	changes := domain.ChangeSet{}
	for _, field := range watchedFields {
		to := watchedValue(after, field)
		if before == nil {
			changes[field] = domain.FieldChange{From: nil, To: to}
			continue
		}
		from := watchedValue(before, field)
		if from != to {
			changes[field] = domain.FieldChange{From: from, To: to}
		}
	}
	return changes
}

// watchedValue normalizes a watched field to a comparable scalar. Nil
// pointers become nil; times become UTC RFC3339 strings so equal instants
// in different zones never diff.
func watchedValue(t *domain.Ticket, field string) any {
	switch field {
	case "status":
		return string(t.Status)
	case "details":
		return stringOrNil(t.Details)
	case "priority":
		return string(t.Priority)
	case "assignedUserId":
		return stringOrNil(t.AssignedUserID)
	case "issueType":
		return t.IssueTypeKey
	case "site":
		return t.SiteID
	case "dueAt":
		return timeOrNil(t.DueAt)
	}
	return nil
}

func stringOrNil(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

func timeOrNil(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC().Format(time.RFC3339)
}
