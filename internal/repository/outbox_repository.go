package repository

import (
	"context"
	"strconv"

	"github.com/google/uuid"

	"github.com/opsdesk/ticketing/internal/domain"
)

// OutboxRepository appends durable domain events for downstream consumers.
type OutboxRepository interface {
	Append(ctx context.Context, tenantID, eventType, entityID string, payload map[string]any) error
	ListByTenant(ctx context.Context, tenantID string, limit int) ([]domain.OutboxEvent, error)
}

type outboxRepository struct {
	q Querier
}

func (r *outboxRepository) Append(ctx context.Context, tenantID, eventType, entityID string, payload map[string]any) error {
	if payload == nil {
		payload = map[string]any{}
	}
	const query = `
        INSERT INTO outbox_events (id, tenant_id, type, entity_id, payload)
        VALUES ($1,$2,$3,$4,$5)`
	_, err := r.q.Exec(ctx, query, uuid.NewString(), tenantID, eventType, entityID, payload)
	return err
}

func (r *outboxRepository) ListByTenant(ctx context.Context, tenantID string, limit int) ([]domain.OutboxEvent, error) {
	if limit <= 0 {
		limit = 100
	}
	query := `
        SELECT id, tenant_id, type, entity_id, payload, created_at
        FROM outbox_events WHERE tenant_id=$1 ORDER BY created_at DESC LIMIT ` + strconv.Itoa(limit)
	rows, err := r.q.Query(ctx, query, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.OutboxEvent
	for rows.Next() {
		var event domain.OutboxEvent
		if err := rows.Scan(
			&event.ID, &event.TenantID, &event.Type,
			&event.EntityID, &event.Payload, &event.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, event)
	}
	return result, rows.Err()
}
