package domain

import "time"

// FieldChange captures a single watched field's before/after values.
type FieldChange struct {
	From any `json:"from"`
	To   any `json:"to"`
}

// ChangeSet maps watched field names to their changes. An empty set means
// the mutation altered nothing worth auditing.
type ChangeSet map[string]FieldChange

// HistoryEntry is an immutable audit record of one mutation. Entries are
// persisted only when Changes is non-empty.
type HistoryEntry struct {
	ID          string
	TenantID    string
	TicketID    string
	ActorUserID *string
	At          time.Time
	Changes     ChangeSet
}
