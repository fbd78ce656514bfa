package repository

import (
	"context"

	"github.com/opsdesk/ticketing/internal/domain"
)

// FieldDefRepository stores tenant custom-field schemas.
type FieldDefRepository interface {
	ListByTenant(ctx context.Context, tenantID string) ([]domain.FieldDefinition, error)
	Create(ctx context.Context, def *domain.FieldDefinition) error
}

type fieldDefRepository struct {
	q Querier
}

func (r *fieldDefRepository) ListByTenant(ctx context.Context, tenantID string) ([]domain.FieldDefinition, error) {
	const query = `
        SELECT id, tenant_id, key, label, datatype, required, enum_options, created_at
        FROM ticket_field_defs WHERE tenant_id=$1 ORDER BY key`
	rows, err := r.q.Query(ctx, query, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.FieldDefinition
	for rows.Next() {
		var def domain.FieldDefinition
		if err := rows.Scan(
			&def.ID, &def.TenantID, &def.Key, &def.Label,
			&def.Datatype, &def.Required, &def.EnumOptions, &def.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, def)
	}
	return result, rows.Err()
}

func (r *fieldDefRepository) Create(ctx context.Context, def *domain.FieldDefinition) error {
	const query = `
        INSERT INTO ticket_field_defs (id, tenant_id, key, label, datatype, required, enum_options)
        VALUES ($1,$2,$3,$4,$5,$6,$7)
        RETURNING created_at`
	return r.q.QueryRow(ctx, query,
		def.ID,
		def.TenantID,
		def.Key,
		def.Label,
		def.Datatype,
		def.Required,
		def.EnumOptions,
	).Scan(&def.CreatedAt)
}
