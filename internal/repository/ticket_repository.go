package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/jackc/pgx/v5"

	"github.com/opsdesk/ticketing/internal/domain"
)

// TicketFilter captures tenant-scoped listing parameters.
type TicketFilter struct {
	SiteID         *string
	Status         *domain.TicketStatus
	Priority       *domain.TicketPriority
	TypeKey        *string
	Search         *string
	CustomFieldKey *string
	CustomFieldVal *string
	Limit          int
	Cursor         *string
}

// TicketRepository encapsulates ticket persistence. All operations are
// scoped to one tenant.
type TicketRepository interface {
	Create(ctx context.Context, ticket *domain.Ticket) error
	Update(ctx context.Context, ticket *domain.Ticket) error
	GetByID(ctx context.Context, tenantID, id string) (*domain.Ticket, error)
	List(ctx context.Context, tenantID string, filter TicketFilter) ([]domain.Ticket, error)
	// DeleteByIDs removes the requested tickets that exist for the tenant
	// and returns the ids actually deleted.
	DeleteByIDs(ctx context.Context, tenantID string, ids []string) ([]string, error)
	// AllocateID reserves the next human-readable ticket id for a site,
	// e.g. NRTH00042. Must run inside the creating transaction.
	AllocateID(ctx context.Context, tenantID string, site *domain.Site) (string, error)
}

type ticketRepository struct {
	q Querier
}

const ticketColumns = `id, tenant_id, site_id, issue_type_key, description, details,
               status, priority, assigned_user_id, due_at, custom_fields,
               created_at, updated_at, first_response_at, resolved_at`

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        INSERT INTO tickets (id, tenant_id, site_id, issue_type_key, description, details,
                             status, priority, assigned_user_id, due_at, custom_fields)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
        RETURNING created_at, updated_at`
	return r.q.QueryRow(ctx, query,
		ticket.ID,
		ticket.TenantID,
		ticket.SiteID,
		ticket.IssueTypeKey,
		ticket.Description,
		ticket.Details,
		ticket.Status,
		ticket.Priority,
		ticket.AssignedUserID,
		ticket.DueAt,
		ticket.CustomFields,
	).Scan(&ticket.CreatedAt, &ticket.UpdatedAt)
}

func (r *ticketRepository) Update(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        UPDATE tickets SET site_id=$1, issue_type_key=$2, description=$3, details=$4,
            status=$5, priority=$6, assigned_user_id=$7, due_at=$8, custom_fields=$9,
            first_response_at=$10, resolved_at=$11, updated_at=NOW()
        WHERE id=$12 AND tenant_id=$13
        RETURNING updated_at`
	err := r.q.QueryRow(ctx, query,
		ticket.SiteID,
		ticket.IssueTypeKey,
		ticket.Description,
		ticket.Details,
		ticket.Status,
		ticket.Priority,
		ticket.AssignedUserID,
		ticket.DueAt,
		ticket.CustomFields,
		ticket.FirstResponseAt,
		ticket.ResolvedAt,
		ticket.ID,
		ticket.TenantID,
	).Scan(&ticket.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return pgx.ErrNoRows
	}
	return err
}

func (r *ticketRepository) GetByID(ctx context.Context, tenantID, id string) (*domain.Ticket, error) {
	query := fmt.Sprintf(`SELECT %s FROM tickets WHERE id=$1 AND tenant_id=$2`, ticketColumns)
	var ticket domain.Ticket
	if err := scanTicket(r.q.QueryRow(ctx, query, id, tenantID), &ticket); err != nil {
		return nil, err
	}
	return &ticket, nil
}

func (r *ticketRepository) List(ctx context.Context, tenantID string, filter TicketFilter) ([]domain.Ticket, error) {
	clauses := []string{"tenant_id=$1"}
	args := []any{tenantID}

	if filter.SiteID != nil {
		args = append(args, *filter.SiteID)
		clauses = append(clauses, fmt.Sprintf("site_id=$%d", len(args)))
	}
	if filter.Status != nil {
		args = append(args, *filter.Status)
		clauses = append(clauses, fmt.Sprintf("status=$%d", len(args)))
	}
	if filter.Priority != nil {
		args = append(args, *filter.Priority)
		clauses = append(clauses, fmt.Sprintf("priority=$%d", len(args)))
	}
	if filter.TypeKey != nil {
		args = append(args, *filter.TypeKey)
		clauses = append(clauses, fmt.Sprintf("issue_type_key=$%d", len(args)))
	}
	if filter.Search != nil && strings.TrimSpace(*filter.Search) != "" {
		search := "%" + strings.ToLower(strings.TrimSpace(*filter.Search)) + "%"
		args = append(args, search)
		placeholder := fmt.Sprintf("$%d", len(args))
		clauses = append(clauses, fmt.Sprintf(
			"(LOWER(description) LIKE %s OR LOWER(COALESCE(details,'')) LIKE %s OR LOWER(issue_type_key) LIKE %s)",
			placeholder, placeholder, placeholder))
	}
	if filter.CustomFieldKey != nil && filter.CustomFieldVal != nil {
		args = append(args, *filter.CustomFieldKey)
		keyPh := fmt.Sprintf("$%d", len(args))
		args = append(args, *filter.CustomFieldVal)
		valPh := fmt.Sprintf("$%d", len(args))
		clauses = append(clauses, fmt.Sprintf("custom_fields->>%s = %s", keyPh, valPh))
	}
	if filter.Cursor != nil {
		args = append(args, *filter.Cursor)
		clauses = append(clauses, fmt.Sprintf(
			"(created_at, id) < (SELECT created_at, id FROM tickets WHERE id=$%d)", len(args)))
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	if limit > 200 {
		limit = 200
	}

	query := fmt.Sprintf(`SELECT %s FROM tickets WHERE %s ORDER BY created_at DESC, id DESC LIMIT %d`,
		ticketColumns, strings.Join(clauses, " AND "), limit)

	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTickets(rows)
}

func (r *ticketRepository) DeleteByIDs(ctx context.Context, tenantID string, ids []string) ([]string, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	const query = `DELETE FROM tickets WHERE tenant_id=$1 AND id = ANY($2) RETURNING id`
	rows, err := r.q.Query(ctx, query, tenantID, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var deleted []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		deleted = append(deleted, id)
	}
	return deleted, rows.Err()
}

func (r *ticketRepository) AllocateID(ctx context.Context, tenantID string, site *domain.Site) (string, error) {
	const query = `
        INSERT INTO site_ticket_sequences (tenant_id, site_id, prefix, next_value)
        VALUES ($1,$2,$3,2)
        ON CONFLICT (site_id) DO UPDATE SET next_value = site_ticket_sequences.next_value + 1
        RETURNING prefix, next_value`
	var prefix string
	var nextValue int64
	if err := r.q.QueryRow(ctx, query, tenantID, site.ID, deriveSitePrefix(site.Name)).
		Scan(&prefix, &nextValue); err != nil {
		return "", err
	}
	return formatTicketID(prefix, nextValue-1), nil
}

// deriveSitePrefix builds a four-letter id prefix from the site name.
func deriveSitePrefix(name string) string {
	var letters []rune
	for _, r := range name {
		if unicode.IsLetter(r) {
			letters = append(letters, unicode.ToUpper(r))
			if len(letters) == 4 {
				break
			}
		}
	}
	if len(letters) == 0 {
		return "SITE"
	}
	for len(letters) < 4 {
		letters = append(letters, 'X')
	}
	return string(letters)
}

func formatTicketID(prefix string, sequence int64) string {
	return fmt.Sprintf("%s%05d", prefix, sequence)
}

func scanTicket(row pgx.Row, ticket *domain.Ticket) error {
	return row.Scan(
		&ticket.ID,
		&ticket.TenantID,
		&ticket.SiteID,
		&ticket.IssueTypeKey,
		&ticket.Description,
		&ticket.Details,
		&ticket.Status,
		&ticket.Priority,
		&ticket.AssignedUserID,
		&ticket.DueAt,
		&ticket.CustomFields,
		&ticket.CreatedAt,
		&ticket.UpdatedAt,
		&ticket.FirstResponseAt,
		&ticket.ResolvedAt,
	)
}

func scanTickets(rows pgx.Rows) ([]domain.Ticket, error) {
	var result []domain.Ticket
	for rows.Next() {
		var ticket domain.Ticket
		if err := scanTicket(rows, &ticket); err != nil {
			return nil, err
		}
		result = append(result, ticket)
	}
	return result, rows.Err()
}
