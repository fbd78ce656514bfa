package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/opsdesk/ticketing/internal/domain"
	"github.com/opsdesk/ticketing/internal/events"
	"github.com/opsdesk/ticketing/internal/repository"
	apperrors "github.com/opsdesk/ticketing/pkg/util"
)

// RecurringService manages recurring-ticket templates and materializes due
// tickets through the mutation pipeline.
type RecurringService struct {
	store      repository.Store
	tickets    *TicketService
	notifier   *NotificationService
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

// RecurringDependencies bundles collaborators for the recurring service.
type RecurringDependencies struct {
	Store      repository.Store
	Tickets    *TicketService
	Notifier   *NotificationService
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
}

// NewRecurringService constructs the service.
func NewRecurringService(deps RecurringDependencies) *RecurringService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RecurringService{
		store:      deps.Store,
		tickets:    deps.Tickets,
		notifier:   deps.Notifier,
		dispatcher: deps.Dispatcher,
		logger:     logger,
	}
}

// RecurringCreateInput describes a new template. StartDate and EndDate are
// ISO-8601 strings.
type RecurringCreateInput struct {
	OriginTicketID string
	SiteID         string
	TypeKey        string
	Description    string
	Priority       domain.TicketPriority
	Details        *string
	AssignedUserID *string
	CustomFields   map[string]any
	Frequency      domain.RecurrenceFrequency
	IntervalValue  int
	StartDate      string
	EndDate        *string
	LeadTimeDays   int
	IsActive       *bool
}

// RecurringPatch describes a partial template update.
type RecurringPatch struct {
	SiteID         *string
	TypeKey        *string
	Description    *string
	Priority       *domain.TicketPriority
	Details        domain.Optional[string]
	AssignedUserID domain.Optional[string]
	CustomFields   map[string]any
	Frequency      *domain.RecurrenceFrequency
	IntervalValue  *int
	StartDate      *string
	EndDate        domain.Optional[string]
	LeadTimeDays   *int
	IsActive       *bool
}

// ComputeNextScheduledDate advances from startDate by whole
// frequency-interval steps until strictly after now, then subtracts the
// lead time in calendar days. Deterministic and monotonic in now;
// terminates because interval is at least one unit.
func ComputeNextScheduledDate(startDate time.Time, frequency domain.RecurrenceFrequency, interval, leadTimeDays int, now time.Time) time.Time {
	if interval < 1 {
		interval = 1
	}
	next := startDate
	for !next.After(now) {
		switch frequency {
		case domain.FrequencyDaily:
			next = next.AddDate(0, 0, interval)
		case domain.FrequencyWeekly:
			next = next.AddDate(0, 0, interval*7)
		case domain.FrequencyMonthly:
			next = next.AddDate(0, interval, 0)
		case domain.FrequencyQuarterly:
			next = next.AddDate(0, interval*3, 0)
		case domain.FrequencyYearly:
			next = next.AddDate(interval, 0, 0)
		default:
			next = next.AddDate(0, 0, interval)
		}
	}
	return next.AddDate(0, 0, -leadTimeDays)
}

// Create registers a template and derives its first nextScheduledAt.
func (s *RecurringService) Create(ctx context.Context, tenantID string, input RecurringCreateInput) (*domain.RecurringTicket, error) {
	if !input.Frequency.Valid() {
		return nil, apperrors.NewValidationError("invalid frequency", map[string]any{"frequency": input.Frequency})
	}
	if input.IntervalValue < 1 {
		return nil, apperrors.NewValidationError("intervalValue must be positive", nil)
	}
	if input.LeadTimeDays < 0 {
		return nil, apperrors.NewValidationError("leadTimeDays must not be negative", nil)
	}
	startDate, ok := parseISOTime(input.StartDate)
	if !ok {
		return nil, apperrors.NewInvalidDate("startDate", input.StartDate)
	}
	var endDate *time.Time
	if input.EndDate != nil {
		t, ok := parseISOTime(*input.EndDate)
		if !ok {
			return nil, apperrors.NewInvalidDate("endDate", *input.EndDate)
		}
		endDate = &t
	}

	isActive := true
	if input.IsActive != nil {
		isActive = *input.IsActive
	}
	customFields := input.CustomFields
	if customFields == nil {
		customFields = map[string]any{}
	}

	rec := &domain.RecurringTicket{
		ID:              uuid.NewString(),
		TenantID:        tenantID,
		OriginTicketID:  input.OriginTicketID,
		SiteID:          input.SiteID,
		TypeKey:         input.TypeKey,
		Description:     input.Description,
		Priority:        input.Priority,
		Details:         input.Details,
		AssignedUserID:  input.AssignedUserID,
		CustomFields:    customFields,
		Frequency:       input.Frequency,
		IntervalValue:   input.IntervalValue,
		StartDate:       startDate,
		EndDate:         endDate,
		LeadTimeDays:    input.LeadTimeDays,
		IsActive:        isActive,
		NextScheduledAt: ComputeNextScheduledDate(startDate, input.Frequency, input.IntervalValue, input.LeadTimeDays, time.Now()),
	}
	if err := s.store.Recurring().Create(ctx, rec); err != nil {
		return nil, apperrors.MapError(err)
	}
	return rec, nil
}

// Get fetches one template scoped to the tenant.
func (s *RecurringService) Get(ctx context.Context, tenantID, id string) (*domain.RecurringTicket, error) {
	rec, err := s.store.Recurring().GetByID(ctx, tenantID, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("recurring ticket", map[string]any{"id": id})
		}
		return nil, apperrors.MapError(err)
	}
	return rec, nil
}

// List returns tenant templates ordered by next occurrence.
func (s *RecurringService) List(ctx context.Context, tenantID string, isActive *bool) ([]domain.RecurringTicket, error) {
	result, err := s.store.Recurring().ListByTenant(ctx, tenantID, isActive)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return result, nil
}

// GetByOriginTicket finds the template spawned from a ticket, if any.
func (s *RecurringService) GetByOriginTicket(ctx context.Context, tenantID, ticketID string) (*domain.RecurringTicket, error) {
	rec, err := s.store.Recurring().GetByOriginTicket(ctx, tenantID, ticketID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("recurring ticket", map[string]any{"origin_ticket_id": ticketID})
		}
		return nil, apperrors.MapError(err)
	}
	return rec, nil
}

// Update patches a template. When any cadence input changes,
// nextScheduledAt is recomputed from the (possibly new) start date.
func (s *RecurringService) Update(ctx context.Context, tenantID, id string, patch RecurringPatch) (*domain.RecurringTicket, error) {
	rec, err := s.Get(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}

	cadenceChanged := false
	if patch.SiteID != nil {
		rec.SiteID = *patch.SiteID
	}
	if patch.TypeKey != nil {
		rec.TypeKey = *patch.TypeKey
	}
	if patch.Description != nil {
		rec.Description = *patch.Description
	}
	if patch.Priority != nil {
		if !patch.Priority.Valid() {
			return nil, apperrors.NewValidationError("invalid priority", map[string]any{"priority": *patch.Priority})
		}
		rec.Priority = *patch.Priority
	}
	if patch.Details.Set {
		rec.Details = patch.Details.Ptr()
	}
	if patch.AssignedUserID.Set {
		rec.AssignedUserID = patch.AssignedUserID.Ptr()
	}
	if patch.CustomFields != nil {
		rec.CustomFields = patch.CustomFields
	}
	if patch.Frequency != nil {
		if !patch.Frequency.Valid() {
			return nil, apperrors.NewValidationError("invalid frequency", map[string]any{"frequency": *patch.Frequency})
		}
		rec.Frequency = *patch.Frequency
		cadenceChanged = true
	}
	if patch.IntervalValue != nil {
		if *patch.IntervalValue < 1 {
			return nil, apperrors.NewValidationError("intervalValue must be positive", nil)
		}
		rec.IntervalValue = *patch.IntervalValue
		cadenceChanged = true
	}
	if patch.StartDate != nil {
		t, ok := parseISOTime(*patch.StartDate)
		if !ok {
			return nil, apperrors.NewInvalidDate("startDate", *patch.StartDate)
		}
		rec.StartDate = t
		cadenceChanged = true
	}
	if patch.EndDate.Set {
		if patch.EndDate.Valid {
			t, ok := parseISOTime(patch.EndDate.Value)
			if !ok {
				return nil, apperrors.NewInvalidDate("endDate", patch.EndDate.Value)
			}
			rec.EndDate = &t
		} else {
			rec.EndDate = nil
		}
	}
	if patch.LeadTimeDays != nil {
		if *patch.LeadTimeDays < 0 {
			return nil, apperrors.NewValidationError("leadTimeDays must not be negative", nil)
		}
		rec.LeadTimeDays = *patch.LeadTimeDays
		cadenceChanged = true
	}
	if patch.IsActive != nil {
		rec.IsActive = *patch.IsActive
	}

	if cadenceChanged {
		rec.NextScheduledAt = ComputeNextScheduledDate(rec.StartDate, rec.Frequency, rec.IntervalValue, rec.LeadTimeDays, time.Now())
	}

	if err := s.store.Recurring().Update(ctx, rec); err != nil {
		return nil, apperrors.MapError(err)
	}
	return rec, nil
}

// Delete removes a template.
func (s *RecurringService) Delete(ctx context.Context, tenantID, id string) error {
	if err := s.store.Recurring().Delete(ctx, tenantID, id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewNotFound("recurring ticket", map[string]any{"id": id})
		}
		return apperrors.MapError(err)
	}
	return nil
}

// ProcessDue materializes a ticket for every active template whose
// schedule has arrived and advances each schedule. Templates are processed
// independently: one failure is logged and never blocks the rest. A
// conditional claim on nextScheduledAt keeps concurrent workers from
// double-generating; templates past their end date are deactivated without
// generating. Returns the number of templates that produced a ticket.
func (s *RecurringService) ProcessDue(ctx context.Context, now time.Time) (int, error) {
	due, err := s.store.Recurring().ListDue(ctx, now)
	if err != nil {
		return 0, apperrors.MapError(err)
	}

	processed := 0
	for i := range due {
		rec := &due[i]

		if rec.EndDate != nil && rec.EndDate.Before(now) {
			if err := s.store.Recurring().Deactivate(ctx, rec.ID); err != nil {
				s.logger.Error("failed to deactivate expired recurring ticket",
					zap.String("recurring_id", rec.ID), zap.Error(err))
			}
			continue
		}

		// Next date always derives from the original start date so
		// generation lag never drifts the schedule.
		next := ComputeNextScheduledDate(rec.StartDate, rec.Frequency, rec.IntervalValue, rec.LeadTimeDays, now)
		claimed, err := s.store.Recurring().Claim(ctx, rec.ID, rec.NextScheduledAt, next, now)
		if err != nil {
			s.logger.Error("recurring claim failed",
				zap.String("recurring_id", rec.ID), zap.Error(err))
			continue
		}
		if !claimed {
			// another worker won this cycle
			continue
		}

		if err := s.generateFromTemplate(ctx, rec); err != nil {
			s.logger.Error("recurring ticket generation failed",
				zap.String("recurring_id", rec.ID),
				zap.String("tenant_id", rec.TenantID),
				zap.Error(err))
			continue
		}
		processed++
	}
	return processed, nil
}

func (s *RecurringService) generateFromTemplate(ctx context.Context, rec *domain.RecurringTicket) error {
	ticket, err := s.tickets.Create(ctx, rec.TenantID, "", TicketCreateInput{
		SiteID:         rec.SiteID,
		TypeKey:        rec.TypeKey,
		Description:    fmt.Sprintf("[Recurring] %s", rec.Description),
		Status:         domain.TicketStatusNew,
		Priority:       rec.Priority,
		Details:        rec.Details,
		AssignedUserID: rec.AssignedUserID,
		CustomFields:   rec.CustomFields,
	})
	if err != nil {
		return err
	}

	err = s.notifier.Notify(ctx, s.store, NotifyInput{
		TenantID: rec.TenantID,
		UserID:   rec.AssignedUserID,
		Kind:     domain.NotifyRecurringGenerated,
		Title:    "Recurring Ticket Generated",
		Message:  fmt.Sprintf("A recurring ticket has been generated: %s", rec.Description),
		TicketID: &ticket.ID,
		Metadata: map[string]any{"recurringTicketId": rec.ID},
	})
	if err != nil {
		return err
	}

	if s.dispatcher != nil {
		_ = s.dispatcher.Publish(ctx, events.Event{
			ID:        uuid.NewString(),
			Type:      events.EventRecurringGenerated,
			TenantID:  rec.TenantID,
			TicketID:  ticket.ID,
			Timestamp: time.Now(),
			Payload:   events.RecurringGeneratedPayload{RecurringID: rec.ID},
		})
	}
	return nil
}
