package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/opsdesk/ticketing/internal/domain"
	"github.com/opsdesk/ticketing/internal/events"
	apperrors "github.com/opsdesk/ticketing/pkg/util"
)

const (
	testTenant = "tenant-1"
	testSite   = "site-1"
	testActor  = "user-1"
)

func newTicketEnv(t *testing.T) (*fakeStore, *captureDispatcher, *TicketService) {
	t.Helper()
	store := newFakeStore()
	store.addSite(domain.Site{ID: testSite, TenantID: testTenant, Name: "North Plant"})
	store.addUser(domain.User{ID: testActor, TenantID: testTenant, Email: "op@example.com", DisplayName: "Operator", Role: domain.RoleUser, IsActive: true})
	store.addUser(domain.User{ID: "user-2", TenantID: testTenant, Email: "tech@example.com", DisplayName: "Technician", Role: domain.RoleUser, IsActive: true})
	store.addIssueType(domain.IssueType{ID: "it-1", TenantID: testTenant, Key: "maintenance", Label: "Maintenance", IsActive: true})
	store.addIssueType(domain.IssueType{ID: "it-2", TenantID: testTenant, Key: "legacy", Label: "Legacy", IsActive: false})

	dispatcher := &captureDispatcher{}
	notifier := NewNotificationService(store, nil, "", zap.NewNop())
	svc := NewTicketService(TicketDependencies{
		Store:      store,
		Notifier:   notifier,
		Dispatcher: dispatcher,
		Logger:     zap.NewNop(),
	})
	return store, dispatcher, svc
}

func errCode(t *testing.T, err error) string {
	t.Helper()
	require.Error(t, err)
	return apperrors.ToDomainError(err).Code
}

func baseCreateInput() TicketCreateInput {
	return TicketCreateInput{
		SiteID:      testSite,
		TypeKey:     "maintenance",
		Description: "Replace filter",
		Priority:    domain.TicketPriorityP3,
	}
}

func TestCreateTicket_AllocatesSiteScopedIDs(t *testing.T) {
	store, dispatcher, svc := newTicketEnv(t)
	ctx := context.Background()

	first, err := svc.Create(ctx, testTenant, testActor, baseCreateInput())
	require.NoError(t, err)
	second, err := svc.Create(ctx, testTenant, testActor, baseCreateInput())
	require.NoError(t, err)

	assert.Equal(t, "NORT00001", first.ID)
	assert.Equal(t, "NORT00002", second.ID)
	assert.Equal(t, domain.TicketStatusNew, first.Status)

	history, err := svc.History(ctx, testTenant, first.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Len(t, history[0].Changes, 7, "creation records every watched field")
	assert.Nil(t, history[0].Changes["status"].From)
	assert.Equal(t, string(domain.TicketStatusNew), history[0].Changes["status"].To)
	require.NotNil(t, history[0].ActorUserID)
	assert.Equal(t, testActor, *history[0].ActorUserID)

	assert.True(t, containsPrefix(outboxTypes(store.outbox), "ticket.created"))
	assert.Len(t, dispatcher.byType(events.EventTicketCreated), 2)
}

func TestCreateTicket_RejectsBadReferences(t *testing.T) {
	_, _, svc := newTicketEnv(t)
	ctx := context.Background()

	input := baseCreateInput()
	input.SiteID = "site-other"
	_, err := svc.Create(ctx, testTenant, testActor, input)
	assert.Equal(t, "INVALID_REFERENCE", errCode(t, err))

	input = baseCreateInput()
	input.TypeKey = "legacy"
	_, err = svc.Create(ctx, testTenant, testActor, input)
	assert.Equal(t, "INVALID_REFERENCE", errCode(t, err))

	input = baseCreateInput()
	input.AssignedUserID = strPtr("user-unknown")
	_, err = svc.Create(ctx, testTenant, testActor, input)
	assert.Equal(t, "INVALID_REFERENCE", errCode(t, err))
}

func TestCreateTicket_UnknownCustomFieldRollsBack(t *testing.T) {
	store, _, svc := newTicketEnv(t)

	input := baseCreateInput()
	input.CustomFields = map[string]any{"mystery": "value"}
	_, err := svc.Create(context.Background(), testTenant, testActor, input)
	assert.Equal(t, "SCHEMA_VIOLATION", errCode(t, err))
	assert.Empty(t, store.tickets)
	assert.Empty(t, store.history)
	assert.Empty(t, store.outbox)
}

func TestCreateTicket_InvalidDueAt(t *testing.T) {
	_, _, svc := newTicketEnv(t)

	input := baseCreateInput()
	input.DueAt = strPtr("soonish")
	_, err := svc.Create(context.Background(), testTenant, testActor, input)
	assert.Equal(t, "INVALID_DATE", errCode(t, err))
}

func TestCreateTicket_NotifiesAssignee(t *testing.T) {
	store, _, svc := newTicketEnv(t)

	input := baseCreateInput()
	input.AssignedUserID = strPtr("user-2")
	_, err := svc.Create(context.Background(), testTenant, testActor, input)
	require.NoError(t, err)

	require.Len(t, store.notifications, 1)
	assert.Equal(t, domain.NotifyTicketAssigned, store.notifications[0].Kind)
	require.NotNil(t, store.notifications[0].UserID)
	assert.Equal(t, "user-2", *store.notifications[0].UserID)
}

func TestCreateTicket_SelfAssignmentNotNotified(t *testing.T) {
	store, _, svc := newTicketEnv(t)

	input := baseCreateInput()
	input.AssignedUserID = strPtr(testActor)
	_, err := svc.Create(context.Background(), testTenant, testActor, input)
	require.NoError(t, err)

	assert.Empty(t, store.notifications)
}

func TestUpdateTicket_NoOpLeavesNoTrace(t *testing.T) {
	store, dispatcher, svc := newTicketEnv(t)
	ctx := context.Background()

	ticket, err := svc.Create(ctx, testTenant, testActor, baseCreateInput())
	require.NoError(t, err)
	historyBefore := len(store.history)
	outboxBefore := len(store.outbox)

	priority := ticket.Priority
	_, err = svc.Update(ctx, testTenant, testActor, ticket.ID, TicketPatch{Priority: &priority})
	require.NoError(t, err)

	assert.Len(t, store.history, historyBefore)
	assert.Len(t, store.outbox, outboxBefore)
	assert.Empty(t, store.notifications)
	assert.Empty(t, dispatcher.byType(events.EventTicketUpdated))
}

func TestUpdateTicket_ResolveSetsAndClearsResolvedAt(t *testing.T) {
	store, _, svc := newTicketEnv(t)
	ctx := context.Background()

	input := baseCreateInput()
	input.AssignedUserID = strPtr("user-2")
	ticket, err := svc.Create(ctx, testTenant, testActor, input)
	require.NoError(t, err)

	resolved := domain.TicketStatusResolved
	updated, err := svc.Update(ctx, testTenant, testActor, ticket.ID, TicketPatch{Status: &resolved})
	require.NoError(t, err)
	require.NotNil(t, updated.ResolvedAt)

	var kinds []domain.NotificationKind
	for _, n := range store.notifications {
		kinds = append(kinds, n.Kind)
	}
	assert.Contains(t, kinds, domain.NotifyTicketResolved)

	inProgress := domain.TicketStatusInProgress
	updated, err = svc.Update(ctx, testTenant, testActor, ticket.ID, TicketPatch{Status: &inProgress})
	require.NoError(t, err)
	assert.Nil(t, updated.ResolvedAt)
}

func TestUpdateTicket_StatusChangeNotifiesAssigneeOnce(t *testing.T) {
	store, _, svc := newTicketEnv(t)
	ctx := context.Background()

	input := baseCreateInput()
	input.AssignedUserID = strPtr("user-2")
	ticket, err := svc.Create(ctx, testTenant, testActor, input)
	require.NoError(t, err)
	created := len(store.notifications)

	inProgress := domain.TicketStatusInProgress
	_, err = svc.Update(ctx, testTenant, testActor, ticket.ID, TicketPatch{Status: &inProgress})
	require.NoError(t, err)

	history, err := svc.History(ctx, testTenant, ticket.ID)
	require.NoError(t, err)
	require.Len(t, history, 2)
	require.Len(t, history[1].Changes, 1, "only status changed")
	assert.Equal(t, string(domain.TicketStatusNew), history[1].Changes["status"].From)
	assert.Equal(t, string(domain.TicketStatusInProgress), history[1].Changes["status"].To)

	fresh := store.notifications[created:]
	require.Len(t, fresh, 1)
	assert.Equal(t, domain.NotifyTicketUpdated, fresh[0].Kind)
	require.NotNil(t, fresh[0].UserID)
	assert.Equal(t, "user-2", *fresh[0].UserID)
}

func TestUpdateTicket_AssignNotifiesNewAssignee(t *testing.T) {
	store, _, svc := newTicketEnv(t)
	ctx := context.Background()

	ticket, err := svc.Create(ctx, testTenant, testActor, baseCreateInput())
	require.NoError(t, err)

	_, err = svc.Update(ctx, testTenant, testActor, ticket.ID, TicketPatch{
		AssignedUserID: domain.Some("user-2"),
	})
	require.NoError(t, err)

	require.Len(t, store.notifications, 1)
	assert.Equal(t, domain.NotifyTicketAssigned, store.notifications[0].Kind)
}

func TestUpdateTicket_ActorIsAssigneeNotNotified(t *testing.T) {
	store, _, svc := newTicketEnv(t)
	ctx := context.Background()

	input := baseCreateInput()
	input.AssignedUserID = strPtr(testActor)
	ticket, err := svc.Create(ctx, testTenant, testActor, input)
	require.NoError(t, err)

	p1 := domain.TicketPriorityP1
	_, err = svc.Update(ctx, testTenant, testActor, ticket.ID, TicketPatch{Priority: &p1})
	require.NoError(t, err)
	assert.Empty(t, store.notifications)
}

func TestUpdateTicket_StaleVersionConflicts(t *testing.T) {
	_, _, svc := newTicketEnv(t)
	ctx := context.Background()

	ticket, err := svc.Create(ctx, testTenant, testActor, baseCreateInput())
	require.NoError(t, err)

	stale := ticket.UpdatedAt.Add(-time.Second)
	p1 := domain.TicketPriorityP1
	_, err = svc.Update(ctx, testTenant, testActor, ticket.ID, TicketPatch{
		Priority:          &p1,
		ExpectedUpdatedAt: &stale,
	})
	assert.Equal(t, "CONCURRENT_MODIFICATION", errCode(t, err))
}

func TestUpdateTicket_ExplicitNullClearsDueAt(t *testing.T) {
	_, _, svc := newTicketEnv(t)
	ctx := context.Background()

	input := baseCreateInput()
	input.DueAt = strPtr("2026-09-15")
	ticket, err := svc.Create(ctx, testTenant, testActor, input)
	require.NoError(t, err)
	require.NotNil(t, ticket.DueAt)

	updated, err := svc.Update(ctx, testTenant, testActor, ticket.ID, TicketPatch{
		DueAt: domain.Null[string](),
	})
	require.NoError(t, err)
	assert.Nil(t, updated.DueAt)
}

func TestBulkUpdate_AllOrNothing(t *testing.T) {
	store, _, svc := newTicketEnv(t)
	ctx := context.Background()

	first, err := svc.Create(ctx, testTenant, testActor, baseCreateInput())
	require.NoError(t, err)
	second, err := svc.Create(ctx, testTenant, testActor, baseCreateInput())
	require.NoError(t, err)

	store.failTicketUpdate[second.ID] = errForcedUpdate

	p1 := domain.TicketPriorityP1
	_, err = svc.BulkUpdate(ctx, testTenant, testActor, []string{first.ID, second.ID}, TicketPatch{Priority: &p1})
	require.Error(t, err)

	reloaded, err := svc.Get(ctx, testTenant, first.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketPriorityP3, reloaded.Priority, "first update must roll back with the batch")
}

func TestBulkDelete_SkipsMissingIDs(t *testing.T) {
	store, dispatcher, svc := newTicketEnv(t)
	ctx := context.Background()

	first, err := svc.Create(ctx, testTenant, testActor, baseCreateInput())
	require.NoError(t, err)
	second, err := svc.Create(ctx, testTenant, testActor, baseCreateInput())
	require.NoError(t, err)

	deleted, err := svc.BulkDelete(ctx, testTenant, testActor, []string{first.ID, "GHOST00001", second.ID})
	require.NoError(t, err)
	assert.Equal(t, 2, deleted)
	assert.Empty(t, store.tickets)
	assert.Len(t, dispatcher.byType(events.EventTicketDeleted), 2)
}

func TestHistory_MissingTicket(t *testing.T) {
	_, _, svc := newTicketEnv(t)

	_, err := svc.History(context.Background(), testTenant, "NOPE00001")
	assert.Equal(t, "NOT_FOUND", errCode(t, err))
}

func TestGet_WrongTenant(t *testing.T) {
	_, _, svc := newTicketEnv(t)
	ctx := context.Background()

	ticket, err := svc.Create(ctx, testTenant, testActor, baseCreateInput())
	require.NoError(t, err)

	_, err = svc.Get(ctx, "tenant-2", ticket.ID)
	assert.Equal(t, "NOT_FOUND", errCode(t, err))
}
