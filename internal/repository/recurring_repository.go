package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/opsdesk/ticketing/internal/domain"
)

// RecurringRepository stores recurring-ticket templates.
type RecurringRepository interface {
	Create(ctx context.Context, rec *domain.RecurringTicket) error
	Update(ctx context.Context, rec *domain.RecurringTicket) error
	GetByID(ctx context.Context, tenantID, id string) (*domain.RecurringTicket, error)
	ListByTenant(ctx context.Context, tenantID string, isActive *bool) ([]domain.RecurringTicket, error)
	GetByOriginTicket(ctx context.Context, tenantID, ticketID string) (*domain.RecurringTicket, error)
	Delete(ctx context.Context, tenantID, id string) error

	// ListDue returns active templates across all tenants whose
	// next_scheduled_at has passed. The one intentionally tenant-unscoped
	// read: the scheduler serves every tenant in a single pass.
	ListDue(ctx context.Context, now time.Time) ([]domain.RecurringTicket, error)
	// Claim advances the schedule iff next_scheduled_at still matches what
	// the caller observed. Exactly one concurrent worker wins per cycle.
	Claim(ctx context.Context, id string, observedNext, newNext, generatedAt time.Time) (bool, error)
	// Deactivate clears is_active, stopping future generation.
	Deactivate(ctx context.Context, id string) error
}

type recurringRepository struct {
	q Querier
}

const recurringColumns = `id, tenant_id, origin_ticket_id, site_id, type_key, description,
               priority, details, assigned_user_id, custom_fields, frequency, interval_value,
               start_date, end_date, lead_time_days, is_active, next_scheduled_at,
               last_generated_at, created_at, updated_at`

func (r *recurringRepository) Create(ctx context.Context, rec *domain.RecurringTicket) error {
	const query = `
        INSERT INTO recurring_tickets (id, tenant_id, origin_ticket_id, site_id, type_key,
            description, priority, details, assigned_user_id, custom_fields, frequency,
            interval_value, start_date, end_date, lead_time_days, is_active, next_scheduled_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17)
        RETURNING created_at, updated_at`
	return r.q.QueryRow(ctx, query,
		rec.ID,
		rec.TenantID,
		rec.OriginTicketID,
		rec.SiteID,
		rec.TypeKey,
		rec.Description,
		rec.Priority,
		rec.Details,
		rec.AssignedUserID,
		rec.CustomFields,
		rec.Frequency,
		rec.IntervalValue,
		rec.StartDate,
		rec.EndDate,
		rec.LeadTimeDays,
		rec.IsActive,
		rec.NextScheduledAt,
	).Scan(&rec.CreatedAt, &rec.UpdatedAt)
}

func (r *recurringRepository) Update(ctx context.Context, rec *domain.RecurringTicket) error {
	const query = `
        UPDATE recurring_tickets SET site_id=$1, type_key=$2, description=$3, priority=$4,
            details=$5, assigned_user_id=$6, custom_fields=$7, frequency=$8, interval_value=$9,
            start_date=$10, end_date=$11, lead_time_days=$12, is_active=$13,
            next_scheduled_at=$14, last_generated_at=$15, updated_at=NOW()
        WHERE id=$16 AND tenant_id=$17
        RETURNING updated_at`
	return r.q.QueryRow(ctx, query,
		rec.SiteID,
		rec.TypeKey,
		rec.Description,
		rec.Priority,
		rec.Details,
		rec.AssignedUserID,
		rec.CustomFields,
		rec.Frequency,
		rec.IntervalValue,
		rec.StartDate,
		rec.EndDate,
		rec.LeadTimeDays,
		rec.IsActive,
		rec.NextScheduledAt,
		rec.LastGeneratedAt,
		rec.ID,
		rec.TenantID,
	).Scan(&rec.UpdatedAt)
}

func (r *recurringRepository) GetByID(ctx context.Context, tenantID, id string) (*domain.RecurringTicket, error) {
	query := `SELECT ` + recurringColumns + ` FROM recurring_tickets WHERE id=$1 AND tenant_id=$2`
	var rec domain.RecurringTicket
	if err := scanRecurring(r.q.QueryRow(ctx, query, id, tenantID), &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

func (r *recurringRepository) GetByOriginTicket(ctx context.Context, tenantID, ticketID string) (*domain.RecurringTicket, error) {
	query := `SELECT ` + recurringColumns + ` FROM recurring_tickets WHERE origin_ticket_id=$1 AND tenant_id=$2`
	var rec domain.RecurringTicket
	if err := scanRecurring(r.q.QueryRow(ctx, query, ticketID, tenantID), &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

func (r *recurringRepository) ListByTenant(ctx context.Context, tenantID string, isActive *bool) ([]domain.RecurringTicket, error) {
	query := `SELECT ` + recurringColumns + ` FROM recurring_tickets WHERE tenant_id=$1`
	args := []any{tenantID}
	if isActive != nil {
		query += ` AND is_active=$2`
		args = append(args, *isActive)
	}
	query += ` ORDER BY next_scheduled_at ASC`

	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRecurrings(rows)
}

func (r *recurringRepository) Delete(ctx context.Context, tenantID, id string) error {
	const query = `DELETE FROM recurring_tickets WHERE id=$1 AND tenant_id=$2`
	cmd, err := r.q.Exec(ctx, query, id, tenantID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *recurringRepository) ListDue(ctx context.Context, now time.Time) ([]domain.RecurringTicket, error) {
	query := `SELECT ` + recurringColumns + ` FROM recurring_tickets
        WHERE is_active AND next_scheduled_at <= $1 ORDER BY next_scheduled_at ASC`
	rows, err := r.q.Query(ctx, query, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRecurrings(rows)
}

func (r *recurringRepository) Claim(ctx context.Context, id string, observedNext, newNext, generatedAt time.Time) (bool, error) {
	const query = `
        UPDATE recurring_tickets
        SET next_scheduled_at=$1, last_generated_at=$2, updated_at=NOW()
        WHERE id=$3 AND next_scheduled_at=$4`
	cmd, err := r.q.Exec(ctx, query, newNext, generatedAt, id, observedNext)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() == 1, nil
}

func (r *recurringRepository) Deactivate(ctx context.Context, id string) error {
	const query = `UPDATE recurring_tickets SET is_active=FALSE, updated_at=NOW() WHERE id=$1`
	_, err := r.q.Exec(ctx, query, id)
	return err
}

func scanRecurring(row pgx.Row, rec *domain.RecurringTicket) error {
	return row.Scan(
		&rec.ID,
		&rec.TenantID,
		&rec.OriginTicketID,
		&rec.SiteID,
		&rec.TypeKey,
		&rec.Description,
		&rec.Priority,
		&rec.Details,
		&rec.AssignedUserID,
		&rec.CustomFields,
		&rec.Frequency,
		&rec.IntervalValue,
		&rec.StartDate,
		&rec.EndDate,
		&rec.LeadTimeDays,
		&rec.IsActive,
		&rec.NextScheduledAt,
		&rec.LastGeneratedAt,
		&rec.CreatedAt,
		&rec.UpdatedAt,
	)
}

func scanRecurrings(rows pgx.Rows) ([]domain.RecurringTicket, error) {
	var result []domain.RecurringTicket
	for rows.Next() {
		var rec domain.RecurringTicket
		if err := scanRecurring(rows, &rec); err != nil {
			return nil, err
		}
		result = append(result, rec)
	}
	return result, rows.Err()
}
