package domain

import "time"

// RecurrenceFrequency is the cadence unit between generated occurrences.
type RecurrenceFrequency string

const (
	FrequencyDaily     RecurrenceFrequency = "DAILY"
	FrequencyWeekly    RecurrenceFrequency = "WEEKLY"
	FrequencyMonthly   RecurrenceFrequency = "MONTHLY"
	FrequencyQuarterly RecurrenceFrequency = "QUARTERLY"
	FrequencyYearly    RecurrenceFrequency = "YEARLY"
)

// Valid reports whether the frequency is supported.
func (f RecurrenceFrequency) Valid() bool {
	switch f {
	case FrequencyDaily, FrequencyWeekly, FrequencyMonthly, FrequencyQuarterly, FrequencyYearly:
		return true
	}
	return false
}

// RecurringTicket is an operator-managed template from which the scheduler
// materializes tickets. NextScheduledAt is always derived from StartDate,
// Frequency, IntervalValue and LeadTimeDays, never from generated dates.
type RecurringTicket struct {
	ID              string
	TenantID        string
	OriginTicketID  string
	SiteID          string
	TypeKey         string
	Description     string
	Priority        TicketPriority
	Details         *string
	AssignedUserID  *string
	CustomFields    map[string]any
	Frequency       RecurrenceFrequency
	IntervalValue   int
	StartDate       time.Time
	EndDate         *time.Time
	LeadTimeDays    int
	IsActive        bool
	NextScheduledAt time.Time
	LastGeneratedAt *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}
