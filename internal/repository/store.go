package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	apperrors "github.com/opsdesk/ticketing/pkg/util"
)

// Querier is the subset of pgx shared by *pgxpool.Pool and pgx.Tx, letting
// every repository run both standalone and inside a transaction.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store is the tenant-scoped data-access boundary. Every method on the
// bundled repositories takes a tenant id and filters by it; nothing above
// this layer can cross tenants. The one deliberate exception is
// RecurringRepository.ListDue, which serves the scheduler across tenants.
type Store interface {
	Sites() SiteRepository
	Users() UserRepository
	IssueTypes() IssueTypeRepository
	FieldDefs() FieldDefRepository
	Tickets() TicketRepository
	History() HistoryRepository
	Recurring() RecurringRepository
	Notifications() NotificationRepository
	Outbox() OutboxRepository

	// WithinTransaction runs fn against a transaction-bound view of the
	// store. A nil return commits; any error rolls everything back. Calls
	// nested inside an existing transaction reuse it.
	WithinTransaction(ctx context.Context, fn func(Store) error) error
}

type pgStore struct {
	q    Querier
	pool *pgxpool.Pool
}

// NewStore builds the pgx-backed store.
func NewStore(pool *pgxpool.Pool) Store {
	return &pgStore{q: pool, pool: pool}
}

func (s *pgStore) Sites() SiteRepository                 { return &siteRepository{q: s.q} }
func (s *pgStore) Users() UserRepository                 { return &userRepository{q: s.q} }
func (s *pgStore) IssueTypes() IssueTypeRepository       { return &issueTypeRepository{q: s.q} }
func (s *pgStore) FieldDefs() FieldDefRepository         { return &fieldDefRepository{q: s.q} }
func (s *pgStore) Tickets() TicketRepository             { return &ticketRepository{q: s.q} }
func (s *pgStore) History() HistoryRepository            { return &historyRepository{q: s.q} }
func (s *pgStore) Recurring() RecurringRepository        { return &recurringRepository{q: s.q} }
func (s *pgStore) Notifications() NotificationRepository { return &notificationRepository{q: s.q} }
func (s *pgStore) Outbox() OutboxRepository              { return &outboxRepository{q: s.q} }

func (s *pgStore) WithinTransaction(ctx context.Context, fn func(Store) error) error {
	if s.pool == nil {
		// already transaction-bound
		return fn(s)
	}
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return apperrors.NewStoreFailure(err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(&pgStore{q: tx}); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return apperrors.NewStoreFailure(err)
	}
	return nil
}
