package repository

import (
	"context"
	"strconv"

	"github.com/jackc/pgx/v5"

	"github.com/opsdesk/ticketing/internal/domain"
)

// NotificationRepository stores user-facing notifications.
type NotificationRepository interface {
	Create(ctx context.Context, n *domain.Notification) error
	List(ctx context.Context, tenantID string, userID *string, unreadOnly bool, limit int) ([]domain.Notification, error)
	UnreadCount(ctx context.Context, tenantID string, userID *string) (int, error)
	MarkRead(ctx context.Context, tenantID, id string) error
	MarkAllRead(ctx context.Context, tenantID string, userID *string) (int, error)
	Delete(ctx context.Context, tenantID, id string) error
}

type notificationRepository struct {
	q Querier
}

const notificationColumns = `id, tenant_id, user_id, kind, title, message, ticket_id, metadata, is_read, created_at`

func (r *notificationRepository) Create(ctx context.Context, n *domain.Notification) error {
	const query = `
        INSERT INTO notifications (id, tenant_id, user_id, kind, title, message, ticket_id, metadata)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
        RETURNING created_at`
	return r.q.QueryRow(ctx, query,
		n.ID,
		n.TenantID,
		n.UserID,
		n.Kind,
		n.Title,
		n.Message,
		n.TicketID,
		n.Metadata,
	).Scan(&n.CreatedAt)
}

func (r *notificationRepository) List(ctx context.Context, tenantID string, userID *string, unreadOnly bool, limit int) ([]domain.Notification, error) {
	query := `SELECT ` + notificationColumns + ` FROM notifications WHERE tenant_id=$1`
	args := []any{tenantID}
	if userID != nil {
		args = append(args, *userID)
		query += ` AND user_id=$2`
	}
	if unreadOnly {
		query += ` AND NOT is_read`
	}
	if limit <= 0 {
		limit = 50
	}
	query += ` ORDER BY created_at DESC LIMIT ` + strconv.Itoa(limit)

	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Notification
	for rows.Next() {
		var n domain.Notification
		if err := rows.Scan(
			&n.ID, &n.TenantID, &n.UserID, &n.Kind, &n.Title,
			&n.Message, &n.TicketID, &n.Metadata, &n.IsRead, &n.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, n)
	}
	return result, rows.Err()
}

func (r *notificationRepository) UnreadCount(ctx context.Context, tenantID string, userID *string) (int, error) {
	query := `SELECT COUNT(*) FROM notifications WHERE tenant_id=$1 AND NOT is_read`
	args := []any{tenantID}
	if userID != nil {
		args = append(args, *userID)
		query += ` AND user_id=$2`
	}
	var count int
	if err := r.q.QueryRow(ctx, query, args...).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func (r *notificationRepository) MarkRead(ctx context.Context, tenantID, id string) error {
	const query = `UPDATE notifications SET is_read=TRUE WHERE id=$1 AND tenant_id=$2`
	cmd, err := r.q.Exec(ctx, query, id, tenantID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *notificationRepository) MarkAllRead(ctx context.Context, tenantID string, userID *string) (int, error) {
	query := `UPDATE notifications SET is_read=TRUE WHERE tenant_id=$1 AND NOT is_read`
	args := []any{tenantID}
	if userID != nil {
		args = append(args, *userID)
		query += ` AND user_id=$2`
	}
	cmd, err := r.q.Exec(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return int(cmd.RowsAffected()), nil
}

func (r *notificationRepository) Delete(ctx context.Context, tenantID, id string) error {
	const query = `DELETE FROM notifications WHERE id=$1 AND tenant_id=$2`
	cmd, err := r.q.Exec(ctx, query, id, tenantID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}
