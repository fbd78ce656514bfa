package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode"

	"github.com/jackc/pgx/v5"

	"github.com/opsdesk/ticketing/internal/domain"
	"github.com/opsdesk/ticketing/internal/events"
	"github.com/opsdesk/ticketing/internal/repository"
)

// fakeStore is an in-memory Store. Repositories never mutate stored values
// in place, they always replace entries with copies, so a shallow snapshot
// of the maps is enough to emulate transaction rollback.
type fakeStore struct {
	sites         map[string]*domain.Site
	users         map[string]*domain.User
	issueTypes    map[string]*domain.IssueType
	fieldDefs     []domain.FieldDefinition
	tickets       map[string]*domain.Ticket
	history       []domain.HistoryEntry
	recurring     map[string]*domain.RecurringTicket
	notifications []domain.Notification
	outbox        []domain.OutboxEvent
	seqs          map[string]int64

	failTicketUpdate map[string]error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		sites:            map[string]*domain.Site{},
		users:            map[string]*domain.User{},
		issueTypes:       map[string]*domain.IssueType{},
		tickets:          map[string]*domain.Ticket{},
		recurring:        map[string]*domain.RecurringTicket{},
		seqs:             map[string]int64{},
		failTicketUpdate: map[string]error{},
	}
}

func (f *fakeStore) addSite(site domain.Site) {
	f.sites[site.ID] = &site
}

func (f *fakeStore) addUser(user domain.User) {
	f.users[user.ID] = &user
}

func (f *fakeStore) addIssueType(it domain.IssueType) {
	f.issueTypes[it.TenantID+"/"+it.Key] = &it
}

func (f *fakeStore) addFieldDef(def domain.FieldDefinition) {
	f.fieldDefs = append(f.fieldDefs, def)
}

func (f *fakeStore) addRecurring(rec domain.RecurringTicket) {
	f.recurring[rec.ID] = &rec
}

type fakeSnapshot struct {
	tickets       map[string]*domain.Ticket
	recurring     map[string]*domain.RecurringTicket
	history       int
	notifications int
	outbox        int
	seqs          map[string]int64
}

func (f *fakeStore) snapshot() fakeSnapshot {
	snap := fakeSnapshot{
		tickets:       make(map[string]*domain.Ticket, len(f.tickets)),
		recurring:     make(map[string]*domain.RecurringTicket, len(f.recurring)),
		history:       len(f.history),
		notifications: len(f.notifications),
		outbox:        len(f.outbox),
		seqs:          make(map[string]int64, len(f.seqs)),
	}
	for k, v := range f.tickets {
		snap.tickets[k] = v
	}
	for k, v := range f.recurring {
		snap.recurring[k] = v
	}
	for k, v := range f.seqs {
		snap.seqs[k] = v
	}
	return snap
}

func (f *fakeStore) restore(snap fakeSnapshot) {
	f.tickets = snap.tickets
	f.recurring = snap.recurring
	f.history = f.history[:snap.history]
	f.notifications = f.notifications[:snap.notifications]
	f.outbox = f.outbox[:snap.outbox]
	f.seqs = snap.seqs
}

func (f *fakeStore) WithinTransaction(ctx context.Context, fn func(repository.Store) error) error {
	snap := f.snapshot()
	if err := fn(f); err != nil {
		f.restore(snap)
		return err
	}
	return nil
}

func (f *fakeStore) Sites() repository.SiteRepository                 { return &fakeSiteRepo{f} }
func (f *fakeStore) Users() repository.UserRepository                 { return &fakeUserRepo{f} }
func (f *fakeStore) IssueTypes() repository.IssueTypeRepository       { return &fakeIssueTypeRepo{f} }
func (f *fakeStore) FieldDefs() repository.FieldDefRepository         { return &fakeFieldDefRepo{f} }
func (f *fakeStore) Tickets() repository.TicketRepository             { return &fakeTicketRepo{f} }
func (f *fakeStore) History() repository.HistoryRepository            { return &fakeHistoryRepo{f} }
func (f *fakeStore) Recurring() repository.RecurringRepository        { return &fakeRecurringRepo{f} }
func (f *fakeStore) Notifications() repository.NotificationRepository { return &fakeNotificationRepo{f} }
func (f *fakeStore) Outbox() repository.OutboxRepository              { return &fakeOutboxRepo{f} }

type fakeSiteRepo struct{ f *fakeStore }

func (r *fakeSiteRepo) GetByID(_ context.Context, tenantID, id string) (*domain.Site, error) {
	site, ok := r.f.sites[id]
	if !ok || site.TenantID != tenantID {
		return nil, pgx.ErrNoRows
	}
	cp := *site
	return &cp, nil
}

func (r *fakeSiteRepo) ListByTenant(_ context.Context, tenantID string) ([]domain.Site, error) {
	var result []domain.Site
	for _, site := range r.f.sites {
		if site.TenantID == tenantID {
			result = append(result, *site)
		}
	}
	return result, nil
}

type fakeUserRepo struct{ f *fakeStore }

func (r *fakeUserRepo) GetByID(_ context.Context, tenantID, id string) (*domain.User, error) {
	user, ok := r.f.users[id]
	if !ok || user.TenantID != tenantID {
		return nil, pgx.ErrNoRows
	}
	cp := *user
	return &cp, nil
}

func (r *fakeUserRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	for _, user := range r.f.users {
		if user.Email == email {
			cp := *user
			return &cp, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *fakeUserRepo) ListByTenant(_ context.Context, tenantID string) ([]domain.User, error) {
	var result []domain.User
	for _, user := range r.f.users {
		if user.TenantID == tenantID {
			result = append(result, *user)
		}
	}
	return result, nil
}

type fakeIssueTypeRepo struct{ f *fakeStore }

func (r *fakeIssueTypeRepo) GetByKey(_ context.Context, tenantID, key string) (*domain.IssueType, error) {
	it, ok := r.f.issueTypes[tenantID+"/"+key]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *it
	return &cp, nil
}

func (r *fakeIssueTypeRepo) ListByTenant(_ context.Context, tenantID string) ([]domain.IssueType, error) {
	var result []domain.IssueType
	for _, it := range r.f.issueTypes {
		if it.TenantID == tenantID {
			result = append(result, *it)
		}
	}
	return result, nil
}

type fakeFieldDefRepo struct{ f *fakeStore }

func (r *fakeFieldDefRepo) ListByTenant(_ context.Context, tenantID string) ([]domain.FieldDefinition, error) {
	var result []domain.FieldDefinition
	for _, def := range r.f.fieldDefs {
		if def.TenantID == tenantID {
			result = append(result, def)
		}
	}
	return result, nil
}

func (r *fakeFieldDefRepo) Create(_ context.Context, def *domain.FieldDefinition) error {
	def.CreatedAt = time.Now()
	r.f.fieldDefs = append(r.f.fieldDefs, *def)
	return nil
}

type fakeTicketRepo struct{ f *fakeStore }

func (r *fakeTicketRepo) Create(_ context.Context, ticket *domain.Ticket) error {
	now := time.Now()
	ticket.CreatedAt = now
	ticket.UpdatedAt = now
	cp := *ticket
	r.f.tickets[ticket.ID] = &cp
	return nil
}

func (r *fakeTicketRepo) Update(_ context.Context, ticket *domain.Ticket) error {
	if err, ok := r.f.failTicketUpdate[ticket.ID]; ok {
		return err
	}
	if _, ok := r.f.tickets[ticket.ID]; !ok {
		return pgx.ErrNoRows
	}
	ticket.UpdatedAt = time.Now()
	cp := *ticket
	r.f.tickets[ticket.ID] = &cp
	return nil
}

func (r *fakeTicketRepo) GetByID(_ context.Context, tenantID, id string) (*domain.Ticket, error) {
	ticket, ok := r.f.tickets[id]
	if !ok || ticket.TenantID != tenantID {
		return nil, pgx.ErrNoRows
	}
	cp := *ticket
	return &cp, nil
}

func (r *fakeTicketRepo) List(_ context.Context, tenantID string, filter repository.TicketFilter) ([]domain.Ticket, error) {
	var result []domain.Ticket
	for _, ticket := range r.f.tickets {
		if ticket.TenantID != tenantID {
			continue
		}
		if filter.SiteID != nil && ticket.SiteID != *filter.SiteID {
			continue
		}
		if filter.Status != nil && ticket.Status != *filter.Status {
			continue
		}
		if filter.Priority != nil && ticket.Priority != *filter.Priority {
			continue
		}
		if filter.TypeKey != nil && ticket.IssueTypeKey != *filter.TypeKey {
			continue
		}
		result = append(result, *ticket)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (r *fakeTicketRepo) DeleteByIDs(_ context.Context, tenantID string, ids []string) ([]string, error) {
	var deleted []string
	for _, id := range ids {
		ticket, ok := r.f.tickets[id]
		if !ok || ticket.TenantID != tenantID {
			continue
		}
		delete(r.f.tickets, id)
		deleted = append(deleted, id)
	}
	return deleted, nil
}

func (r *fakeTicketRepo) AllocateID(_ context.Context, _ string, site *domain.Site) (string, error) {
	r.f.seqs[site.ID]++
	return fmt.Sprintf("%s%05d", fakeSitePrefix(site.Name), r.f.seqs[site.ID]), nil
}

func fakeSitePrefix(name string) string {
	var letters []rune
	for _, r := range name {
		if unicode.IsLetter(r) {
			letters = append(letters, unicode.ToUpper(r))
		}
	}
	base := string(letters)
	if base == "" {
		base = "SITE"
	}
	for len(base) < 4 {
		base += "X"
	}
	return base[:4]
}

type fakeHistoryRepo struct{ f *fakeStore }

func (r *fakeHistoryRepo) Append(_ context.Context, entry *domain.HistoryEntry) error {
	entry.At = time.Now()
	r.f.history = append(r.f.history, *entry)
	return nil
}

func (r *fakeHistoryRepo) ListByTicket(_ context.Context, tenantID, ticketID string) ([]domain.HistoryEntry, error) {
	var result []domain.HistoryEntry
	for _, entry := range r.f.history {
		if entry.TenantID == tenantID && entry.TicketID == ticketID {
			result = append(result, entry)
		}
	}
	return result, nil
}

type fakeRecurringRepo struct{ f *fakeStore }

func (r *fakeRecurringRepo) Create(_ context.Context, rec *domain.RecurringTicket) error {
	now := time.Now()
	rec.CreatedAt = now
	rec.UpdatedAt = now
	cp := *rec
	r.f.recurring[rec.ID] = &cp
	return nil
}

func (r *fakeRecurringRepo) Update(_ context.Context, rec *domain.RecurringTicket) error {
	if _, ok := r.f.recurring[rec.ID]; !ok {
		return pgx.ErrNoRows
	}
	rec.UpdatedAt = time.Now()
	cp := *rec
	r.f.recurring[rec.ID] = &cp
	return nil
}

func (r *fakeRecurringRepo) GetByID(_ context.Context, tenantID, id string) (*domain.RecurringTicket, error) {
	rec, ok := r.f.recurring[id]
	if !ok || rec.TenantID != tenantID {
		return nil, pgx.ErrNoRows
	}
	cp := *rec
	return &cp, nil
}

func (r *fakeRecurringRepo) GetByOriginTicket(_ context.Context, tenantID, ticketID string) (*domain.RecurringTicket, error) {
	for _, rec := range r.f.recurring {
		if rec.TenantID == tenantID && rec.OriginTicketID == ticketID {
			cp := *rec
			return &cp, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *fakeRecurringRepo) ListByTenant(_ context.Context, tenantID string, isActive *bool) ([]domain.RecurringTicket, error) {
	var result []domain.RecurringTicket
	for _, rec := range r.f.recurring {
		if rec.TenantID != tenantID {
			continue
		}
		if isActive != nil && rec.IsActive != *isActive {
			continue
		}
		result = append(result, *rec)
	}
	return result, nil
}

func (r *fakeRecurringRepo) Delete(_ context.Context, tenantID, id string) error {
	rec, ok := r.f.recurring[id]
	if !ok || rec.TenantID != tenantID {
		return pgx.ErrNoRows
	}
	delete(r.f.recurring, id)
	return nil
}

func (r *fakeRecurringRepo) ListDue(_ context.Context, now time.Time) ([]domain.RecurringTicket, error) {
	var result []domain.RecurringTicket
	for _, rec := range r.f.recurring {
		if rec.IsActive && !rec.NextScheduledAt.After(now) {
			result = append(result, *rec)
		}
	}
	return result, nil
}

func (r *fakeRecurringRepo) Claim(_ context.Context, id string, observedNext, newNext, generatedAt time.Time) (bool, error) {
	rec, ok := r.f.recurring[id]
	if !ok || !rec.NextScheduledAt.Equal(observedNext) {
		return false, nil
	}
	cp := *rec
	cp.NextScheduledAt = newNext
	cp.LastGeneratedAt = &generatedAt
	r.f.recurring[id] = &cp
	return true, nil
}

func (r *fakeRecurringRepo) Deactivate(_ context.Context, id string) error {
	rec, ok := r.f.recurring[id]
	if !ok {
		return pgx.ErrNoRows
	}
	cp := *rec
	cp.IsActive = false
	r.f.recurring[id] = &cp
	return nil
}

type fakeNotificationRepo struct{ f *fakeStore }

func (r *fakeNotificationRepo) Create(_ context.Context, n *domain.Notification) error {
	n.CreatedAt = time.Now()
	r.f.notifications = append(r.f.notifications, *n)
	return nil
}

func (r *fakeNotificationRepo) List(_ context.Context, tenantID string, userID *string, unreadOnly bool, _ int) ([]domain.Notification, error) {
	var result []domain.Notification
	for _, n := range r.f.notifications {
		if n.TenantID != tenantID {
			continue
		}
		if userID != nil && (n.UserID == nil || *n.UserID != *userID) {
			continue
		}
		if unreadOnly && n.IsRead {
			continue
		}
		result = append(result, n)
	}
	return result, nil
}

func (r *fakeNotificationRepo) UnreadCount(_ context.Context, tenantID string, userID *string) (int, error) {
	count := 0
	for _, n := range r.f.notifications {
		if n.TenantID != tenantID || n.IsRead {
			continue
		}
		if userID != nil && (n.UserID == nil || *n.UserID != *userID) {
			continue
		}
		count++
	}
	return count, nil
}

func (r *fakeNotificationRepo) MarkRead(_ context.Context, tenantID, id string) error {
	for i := range r.f.notifications {
		if r.f.notifications[i].TenantID == tenantID && r.f.notifications[i].ID == id {
			r.f.notifications[i].IsRead = true
			return nil
		}
	}
	return pgx.ErrNoRows
}

func (r *fakeNotificationRepo) MarkAllRead(_ context.Context, tenantID string, userID *string) (int, error) {
	count := 0
	for i := range r.f.notifications {
		n := &r.f.notifications[i]
		if n.TenantID != tenantID || n.IsRead {
			continue
		}
		if userID != nil && (n.UserID == nil || *n.UserID != *userID) {
			continue
		}
		n.IsRead = true
		count++
	}
	return count, nil
}

func (r *fakeNotificationRepo) Delete(_ context.Context, tenantID, id string) error {
	for i := range r.f.notifications {
		if r.f.notifications[i].TenantID == tenantID && r.f.notifications[i].ID == id {
			r.f.notifications = append(r.f.notifications[:i], r.f.notifications[i+1:]...)
			return nil
		}
	}
	return pgx.ErrNoRows
}

type fakeOutboxRepo struct{ f *fakeStore }

func (r *fakeOutboxRepo) Append(_ context.Context, tenantID, eventType, entityID string, payload map[string]any) error {
	r.f.outbox = append(r.f.outbox, domain.OutboxEvent{
		ID:        fmt.Sprintf("outbox-%d", len(r.f.outbox)+1),
		TenantID:  tenantID,
		Type:      eventType,
		EntityID:  entityID,
		Payload:   payload,
		CreatedAt: time.Now(),
	})
	return nil
}

func (r *fakeOutboxRepo) ListByTenant(_ context.Context, tenantID string, _ int) ([]domain.OutboxEvent, error) {
	var result []domain.OutboxEvent
	for _, event := range r.f.outbox {
		if event.TenantID == tenantID {
			result = append(result, event)
		}
	}
	return result, nil
}

// captureDispatcher records published events.
type captureDispatcher struct {
	published []events.Event
}

func (d *captureDispatcher) Publish(_ context.Context, event events.Event) error {
	d.published = append(d.published, event)
	return nil
}

func (d *captureDispatcher) Subscribe(events.EventType, events.EventHandler) {}

func (d *captureDispatcher) byType(eventType events.EventType) []events.Event {
	var result []events.Event
	for _, event := range d.published {
		if event.Type == eventType {
			result = append(result, event)
		}
	}
	return result
}

var errForcedUpdate = errors.New("forced update failure")

func strPtr(s string) *string { return &s }

func outboxTypes(list []domain.OutboxEvent) []string {
	var types []string
	for _, event := range list {
		types = append(types, event.Type)
	}
	return types
}

func containsPrefix(list []string, prefix string) bool {
	for _, s := range list {
		if strings.HasPrefix(s, prefix) {
			return true
		}
	}
	return false
}
