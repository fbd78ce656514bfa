package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/opsdesk/ticketing/internal/domain"
	"github.com/opsdesk/ticketing/internal/events"
	"github.com/opsdesk/ticketing/internal/repository"
	apperrors "github.com/opsdesk/ticketing/pkg/util"
)

// TicketService is the mutation pipeline for tickets: referential checks,
// custom-field validation, persistence, history diffing, notifications and
// the event outbox, all inside one store transaction per call. The acting
// user is always an explicit parameter, never ambient state.
type TicketService struct {
	store      repository.Store
	notifier   *NotificationService
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

// TicketDependencies bundles collaborators for the ticket service.
type TicketDependencies struct {
	Store      repository.Store
	Notifier   *NotificationService
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TicketService{
		store:      deps.Store,
		notifier:   deps.Notifier,
		dispatcher: deps.Dispatcher,
		logger:     logger,
	}
}

// TicketCreateInput describes ticket creation payload. DueAt is an
// ISO-8601 string validated by the pipeline.
type TicketCreateInput struct {
	SiteID         string
	TypeKey        string
	Description    string
	Status         domain.TicketStatus
	Priority       domain.TicketPriority
	Details        *string
	AssignedUserID *string
	DueAt          *string
	CustomFields   map[string]any
}

// TicketPatch describes a partial update. Pointer fields are no-ops when
// nil; Optional fields distinguish "omitted" from "explicit null" for the
// nullable attributes. ExpectedUpdatedAt, when set, enables the optimistic
// concurrency check.
type TicketPatch struct {
	SiteID            *string
	TypeKey           *string
	Description       *string
	Status            *domain.TicketStatus
	Priority          *domain.TicketPriority
	Details           domain.Optional[string]
	AssignedUserID    domain.Optional[string]
	DueAt             domain.Optional[string]
	CustomFields      map[string]any
	ExpectedUpdatedAt *time.Time
}

// Create validates references and custom fields, allocates a site-scoped
// id, persists the ticket with its initial history entry and outbox event,
// and notifies the assignee when one is set.
func (s *TicketService) Create(ctx context.Context, tenantID, actorID string, input TicketCreateInput) (*domain.Ticket, error) {
	var created *domain.Ticket
	var pending []events.Event

	err := s.store.WithinTransaction(ctx, func(st repository.Store) error {
		ticket, evts, err := s.createInTx(ctx, st, tenantID, actorID, input)
		if err != nil {
			return err
		}
		created = ticket
		pending = evts
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.publish(ctx, pending)
	return created, nil
}

func (s *TicketService) createInTx(ctx context.Context, st repository.Store, tenantID, actorID string, input TicketCreateInput) (*domain.Ticket, []events.Event, error) {
	site, err := st.Sites().GetByID(ctx, tenantID, input.SiteID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil, apperrors.NewInvalidReference("invalid site for tenant", map[string]any{"site_id": input.SiteID})
		}
		return nil, nil, apperrors.MapError(err)
	}
	issueType, err := st.IssueTypes().GetByKey(ctx, tenantID, input.TypeKey)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil, apperrors.NewInvalidReference("invalid issue type for tenant", map[string]any{"type": input.TypeKey})
		}
		return nil, nil, apperrors.MapError(err)
	}
	if !issueType.IsActive {
		return nil, nil, apperrors.NewInvalidReference("issue type inactive", map[string]any{"type": input.TypeKey})
	}
	if input.AssignedUserID != nil {
		if err := s.checkAssignee(ctx, st, tenantID, *input.AssignedUserID); err != nil {
			return nil, nil, err
		}
	}

	defs, err := st.FieldDefs().ListByTenant(ctx, tenantID)
	if err != nil {
		return nil, nil, apperrors.MapError(err)
	}
	customFields := input.CustomFields
	if customFields == nil {
		customFields = map[string]any{}
	}
	if _, err := ValidateCustomFields(defs, customFields); err != nil {
		return nil, nil, err
	}

	var dueAt *time.Time
	if input.DueAt != nil {
		t, ok := parseISOTime(*input.DueAt)
		if !ok {
			return nil, nil, apperrors.NewInvalidDate("dueAt", *input.DueAt)
		}
		dueAt = &t
	}

	status := input.Status
	if status == "" {
		status = domain.TicketStatusNew
	}
	if !status.Valid() {
		return nil, nil, apperrors.NewValidationError("invalid status", map[string]any{"status": status})
	}
	if !input.Priority.Valid() {
		return nil, nil, apperrors.NewValidationError("invalid priority", map[string]any{"priority": input.Priority})
	}

	id, err := st.Tickets().AllocateID(ctx, tenantID, site)
	if err != nil {
		return nil, nil, apperrors.MapError(err)
	}

	ticket := &domain.Ticket{
		ID:             id,
		TenantID:       tenantID,
		SiteID:         input.SiteID,
		IssueTypeKey:   input.TypeKey,
		Description:    strings.TrimSpace(input.Description),
		Details:        input.Details,
		Status:         status,
		Priority:       input.Priority,
		AssignedUserID: input.AssignedUserID,
		DueAt:          dueAt,
		CustomFields:   customFields,
	}
	if err := st.Tickets().Create(ctx, ticket); err != nil {
		return nil, nil, apperrors.MapError(err)
	}

	// Non-empty by construction: creation includes every watched field.
	changes := DiffTickets(nil, ticket)
	if err := s.appendHistory(ctx, st, tenantID, ticket.ID, actorID, changes); err != nil {
		return nil, nil, err
	}

	if ticket.AssignedUserID != nil && *ticket.AssignedUserID != actorID {
		err := s.notifier.Notify(ctx, st, NotifyInput{
			TenantID: tenantID,
			UserID:   ticket.AssignedUserID,
			Kind:     domain.NotifyTicketAssigned,
			Title:    "Ticket assigned",
			Message:  fmt.Sprintf("You have been assigned ticket %s: %s", ticket.ID, ticket.Description),
			TicketID: &ticket.ID,
		})
		if err != nil {
			return nil, nil, err
		}
	}

	if err := st.Outbox().Append(ctx, tenantID, string(events.EventTicketCreated), ticket.ID, nil); err != nil {
		return nil, nil, apperrors.MapError(err)
	}

	evt := events.Event{
		ID:          uuid.NewString(),
		Type:        events.EventTicketCreated,
		TenantID:    tenantID,
		TicketID:    ticket.ID,
		ActorUserID: actorPtr(actorID),
		Timestamp:   time.Now(),
		Payload: events.TicketCreatedPayload{
			SiteID:       ticket.SiteID,
			IssueTypeKey: ticket.IssueTypeKey,
			Priority:     ticket.Priority,
			Description:  ticket.Description,
		},
	}
	return ticket, []events.Event{evt}, nil
}

// Get fetches one ticket scoped to the tenant.
func (s *TicketService) Get(ctx context.Context, tenantID, id string) (*domain.Ticket, error) {
	ticket, err := s.store.Tickets().GetByID(ctx, tenantID, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": id})
		}
		return nil, apperrors.MapError(err)
	}
	return ticket, nil
}

// List returns tenant tickets matching the filter.
func (s *TicketService) List(ctx context.Context, tenantID string, filter repository.TicketFilter) ([]domain.Ticket, error) {
	tickets, err := s.store.Tickets().List(ctx, tenantID, filter)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return tickets, nil
}

// History returns the audit trail for a ticket.
func (s *TicketService) History(ctx context.Context, tenantID, id string) ([]domain.HistoryEntry, error) {
	if _, err := s.Get(ctx, tenantID, id); err != nil {
		return nil, err
	}
	entries, err := s.store.History().ListByTicket(ctx, tenantID, id)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return entries, nil
}

// Update applies a patch to one ticket. When nothing watched actually
// changes, no history entry, outbox event or notification is produced.
func (s *TicketService) Update(ctx context.Context, tenantID, actorID, id string, patch TicketPatch) (*domain.Ticket, error) {
	var updated *domain.Ticket
	var pending []events.Event

	err := s.store.WithinTransaction(ctx, func(st repository.Store) error {
		ticket, evts, err := s.updateInTx(ctx, st, tenantID, actorID, id, patch)
		if err != nil {
			return err
		}
		updated = ticket
		pending = evts
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.publish(ctx, pending)
	return updated, nil
}

func (s *TicketService) updateInTx(ctx context.Context, st repository.Store, tenantID, actorID, id string, patch TicketPatch) (*domain.Ticket, []events.Event, error) {
	before, err := st.Tickets().GetByID(ctx, tenantID, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": id})
		}
		return nil, nil, apperrors.MapError(err)
	}

	if patch.ExpectedUpdatedAt != nil && !before.UpdatedAt.Equal(*patch.ExpectedUpdatedAt) {
		return nil, nil, apperrors.NewConcurrentModification(map[string]any{
			"ticket_id":  id,
			"updated_at": before.UpdatedAt,
		})
	}

	after := *before

	if patch.SiteID != nil {
		if _, err := st.Sites().GetByID(ctx, tenantID, *patch.SiteID); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, nil, apperrors.NewInvalidReference("invalid site for tenant", map[string]any{"site_id": *patch.SiteID})
			}
			return nil, nil, apperrors.MapError(err)
		}
		after.SiteID = *patch.SiteID
	}
	if patch.TypeKey != nil {
		issueType, err := st.IssueTypes().GetByKey(ctx, tenantID, *patch.TypeKey)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, nil, apperrors.NewInvalidReference("invalid issue type for tenant", map[string]any{"type": *patch.TypeKey})
			}
			return nil, nil, apperrors.MapError(err)
		}
		if !issueType.IsActive {
			return nil, nil, apperrors.NewInvalidReference("issue type inactive", map[string]any{"type": *patch.TypeKey})
		}
		after.IssueTypeKey = *patch.TypeKey
	}
	if patch.AssignedUserID.Set {
		if patch.AssignedUserID.Valid {
			if err := s.checkAssignee(ctx, st, tenantID, patch.AssignedUserID.Value); err != nil {
				return nil, nil, err
			}
		}
		after.AssignedUserID = patch.AssignedUserID.Ptr()
	}
	if patch.Description != nil {
		after.Description = strings.TrimSpace(*patch.Description)
	}
	if patch.Details.Set {
		after.Details = patch.Details.Ptr()
	}
	if patch.DueAt.Set {
		if patch.DueAt.Valid {
			t, ok := parseISOTime(patch.DueAt.Value)
			if !ok {
				return nil, nil, apperrors.NewInvalidDate("dueAt", patch.DueAt.Value)
			}
			after.DueAt = &t
		} else {
			after.DueAt = nil
		}
	}
	if patch.Status != nil {
		if !patch.Status.Valid() {
			return nil, nil, apperrors.NewValidationError("invalid status", map[string]any{"status": *patch.Status})
		}
		after.Status = *patch.Status
		switch {
		case after.Status == domain.TicketStatusResolved && before.Status != domain.TicketStatusResolved:
			now := time.Now()
			after.ResolvedAt = &now
		case after.Status != domain.TicketStatusResolved && before.Status == domain.TicketStatusResolved:
			after.ResolvedAt = nil
		}
	}
	if patch.Priority != nil {
		if !patch.Priority.Valid() {
			return nil, nil, apperrors.NewValidationError("invalid priority", map[string]any{"priority": *patch.Priority})
		}
		after.Priority = *patch.Priority
	}
	if patch.CustomFields != nil {
		defs, err := st.FieldDefs().ListByTenant(ctx, tenantID)
		if err != nil {
			return nil, nil, apperrors.MapError(err)
		}
		if _, err := ValidateCustomFields(defs, patch.CustomFields); err != nil {
			return nil, nil, err
		}
		after.CustomFields = patch.CustomFields
	}

	if err := st.Tickets().Update(ctx, &after); err != nil {
		return nil, nil, apperrors.MapError(err)
	}

	changes := DiffTickets(before, &after)
	if len(changes) == 0 {
		return &after, nil, nil
	}

	if err := s.appendHistory(ctx, st, tenantID, after.ID, actorID, changes); err != nil {
		return nil, nil, err
	}
	if err := st.Outbox().Append(ctx, tenantID, string(events.EventTicketUpdated), after.ID, nil); err != nil {
		return nil, nil, apperrors.MapError(err)
	}
	if err := s.notifyOnUpdate(ctx, st, tenantID, actorID, &after, changes); err != nil {
		return nil, nil, err
	}

	evt := events.Event{
		ID:          uuid.NewString(),
		Type:        events.EventTicketUpdated,
		TenantID:    tenantID,
		TicketID:    after.ID,
		ActorUserID: actorPtr(actorID),
		Timestamp:   time.Now(),
		Payload:     events.TicketUpdatedPayload{Changes: changes},
	}
	return &after, []events.Event{evt}, nil
}

// notifyOnUpdate applies the post-diff notification rules. At most one
// notification per update; the acting user is never notified about their
// own change.
func (s *TicketService) notifyOnUpdate(ctx context.Context, st repository.Store, tenantID, actorID string, after *domain.Ticket, changes domain.ChangeSet) error {
	assignee := after.AssignedUserID
	if assignee == nil || *assignee == actorID {
		return nil
	}

	kind := domain.NotifyTicketUpdated
	title := "Ticket updated"
	message := fmt.Sprintf("Ticket %s was updated", after.ID)

	if _, ok := changes["assignedUserId"]; ok {
		kind = domain.NotifyTicketAssigned
		title = "Ticket assigned"
		message = fmt.Sprintf("You have been assigned ticket %s: %s", after.ID, after.Description)
	} else if change, ok := changes["status"]; ok && change.To == string(domain.TicketStatusResolved) {
		kind = domain.NotifyTicketResolved
		title = "Ticket resolved"
		message = fmt.Sprintf("Ticket %s was resolved", after.ID)
	}

	return s.notifier.Notify(ctx, st, NotifyInput{
		TenantID: tenantID,
		UserID:   assignee,
		Kind:     kind,
		Title:    title,
		Message:  message,
		TicketID: &after.ID,
	})
}

// BulkUpdate applies the single-update logic to each id inside one
// transaction. All-or-nothing: the first failure rolls everything back.
func (s *TicketService) BulkUpdate(ctx context.Context, tenantID, actorID string, ids []string, patch TicketPatch) ([]domain.Ticket, error) {
	if len(ids) == 0 {
		return nil, apperrors.NewValidationError("ids must not be empty", nil)
	}

	var updated []domain.Ticket
	var pending []events.Event

	err := s.store.WithinTransaction(ctx, func(st repository.Store) error {
		for _, id := range ids {
			ticket, evts, err := s.updateInTx(ctx, st, tenantID, actorID, id, patch)
			if err != nil {
				return err
			}
			updated = append(updated, *ticket)
			pending = append(pending, evts...)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.publish(ctx, pending)
	return updated, nil
}

// BulkDelete removes the requested tickets that exist for the tenant and
// returns how many were deleted. Missing ids are skipped, not an error.
func (s *TicketService) BulkDelete(ctx context.Context, tenantID, actorID string, ids []string) (int, error) {
	if len(ids) == 0 {
		return 0, apperrors.NewValidationError("ids must not be empty", nil)
	}

	var deleted []string
	err := s.store.WithinTransaction(ctx, func(st repository.Store) error {
		var err error
		deleted, err = st.Tickets().DeleteByIDs(ctx, tenantID, ids)
		if err != nil {
			return apperrors.MapError(err)
		}
		for _, id := range deleted {
			if err := st.Outbox().Append(ctx, tenantID, string(events.EventTicketDeleted), id, nil); err != nil {
				return apperrors.MapError(err)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	for _, id := range deleted {
		s.publish(ctx, []events.Event{{
			ID:          uuid.NewString(),
			Type:        events.EventTicketDeleted,
			TenantID:    tenantID,
			TicketID:    id,
			ActorUserID: actorPtr(actorID),
			Timestamp:   time.Now(),
		}})
	}
	return len(deleted), nil
}

func (s *TicketService) checkAssignee(ctx context.Context, st repository.Store, tenantID, userID string) error {
	if _, err := st.Users().GetByID(ctx, tenantID, userID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewInvalidReference("invalid assignee for tenant", map[string]any{"user_id": userID})
		}
		return apperrors.MapError(err)
	}
	return nil
}

func (s *TicketService) appendHistory(ctx context.Context, st repository.Store, tenantID, ticketID, actorID string, changes domain.ChangeSet) error {
	entry := &domain.HistoryEntry{
		ID:          uuid.NewString(),
		TenantID:    tenantID,
		TicketID:    ticketID,
		ActorUserID: actorPtr(actorID),
		Changes:     changes,
	}
	if err := st.History().Append(ctx, entry); err != nil {
		return apperrors.MapError(err)
	}
	return nil
}

func (s *TicketService) publish(ctx context.Context, evts []events.Event) {
	if s.dispatcher == nil {
		return
	}
	for _, evt := range evts {
		_ = s.dispatcher.Publish(ctx, evt)
	}
}

// actorPtr converts the acting user id to a nullable pointer; the empty
// string marks a system actor (the scheduler) and stores as null.
func actorPtr(actorID string) *string {
	if actorID == "" {
		return nil
	}
	return &actorID
}
