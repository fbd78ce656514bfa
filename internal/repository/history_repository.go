package repository

import (
	"context"

	"github.com/opsdesk/ticketing/internal/domain"
)

// HistoryRepository stores append-only audit entries.
type HistoryRepository interface {
	Append(ctx context.Context, entry *domain.HistoryEntry) error
	ListByTicket(ctx context.Context, tenantID, ticketID string) ([]domain.HistoryEntry, error)
}

type historyRepository struct {
	q Querier
}

func (r *historyRepository) Append(ctx context.Context, entry *domain.HistoryEntry) error {
	const query = `
        INSERT INTO ticket_history (id, tenant_id, ticket_id, actor_user_id, changes)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING at`
	return r.q.QueryRow(ctx, query,
		entry.ID,
		entry.TenantID,
		entry.TicketID,
		entry.ActorUserID,
		entry.Changes,
	).Scan(&entry.At)
}

func (r *historyRepository) ListByTicket(ctx context.Context, tenantID, ticketID string) ([]domain.HistoryEntry, error) {
	const query = `
        SELECT id, tenant_id, ticket_id, actor_user_id, at, changes
        FROM ticket_history WHERE tenant_id=$1 AND ticket_id=$2 ORDER BY at ASC`
	rows, err := r.q.Query(ctx, query, tenantID, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.HistoryEntry
	for rows.Next() {
		var entry domain.HistoryEntry
		if err := rows.Scan(
			&entry.ID, &entry.TenantID, &entry.TicketID,
			&entry.ActorUserID, &entry.At, &entry.Changes,
		); err != nil {
			return nil, err
		}
		result = append(result, entry)
	}
	return result, rows.Err()
}
