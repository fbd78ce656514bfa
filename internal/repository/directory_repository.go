package repository

import (
	"context"

	"github.com/opsdesk/ticketing/internal/domain"
)

// SiteRepository resolves tenant sites.
type SiteRepository interface {
	GetByID(ctx context.Context, tenantID, id string) (*domain.Site, error)
	ListByTenant(ctx context.Context, tenantID string) ([]domain.Site, error)
}

// UserRepository resolves tenant users.
type UserRepository interface {
	GetByID(ctx context.Context, tenantID, id string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	ListByTenant(ctx context.Context, tenantID string) ([]domain.User, error)
}

// IssueTypeRepository resolves tenant issue types by key.
type IssueTypeRepository interface {
	GetByKey(ctx context.Context, tenantID, key string) (*domain.IssueType, error)
	ListByTenant(ctx context.Context, tenantID string) ([]domain.IssueType, error)
}

type siteRepository struct {
	q Querier
}

func (r *siteRepository) GetByID(ctx context.Context, tenantID, id string) (*domain.Site, error) {
	const query = `SELECT id, tenant_id, name, created_at FROM sites WHERE id=$1 AND tenant_id=$2`
	var site domain.Site
	if err := r.q.QueryRow(ctx, query, id, tenantID).Scan(
		&site.ID, &site.TenantID, &site.Name, &site.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &site, nil
}

func (r *siteRepository) ListByTenant(ctx context.Context, tenantID string) ([]domain.Site, error) {
	const query = `SELECT id, tenant_id, name, created_at FROM sites WHERE tenant_id=$1 ORDER BY name`
	rows, err := r.q.Query(ctx, query, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Site
	for rows.Next() {
		var site domain.Site
		if err := rows.Scan(&site.ID, &site.TenantID, &site.Name, &site.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, site)
	}
	return result, rows.Err()
}

type userRepository struct {
	q Querier
}

const userColumns = `id, tenant_id, email, display_name, password_hash, role, is_active, created_at`

func (r *userRepository) GetByID(ctx context.Context, tenantID, id string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id=$1 AND tenant_id=$2`
	return r.fetchOne(ctx, query, id, tenantID)
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email=$1`
	return r.fetchOne(ctx, query, email)
}

func (r *userRepository) fetchOne(ctx context.Context, query string, args ...any) (*domain.User, error) {
	var user domain.User
	if err := r.q.QueryRow(ctx, query, args...).Scan(
		&user.ID, &user.TenantID, &user.Email, &user.DisplayName,
		&user.PasswordHash, &user.Role, &user.IsActive, &user.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) ListByTenant(ctx context.Context, tenantID string) ([]domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE tenant_id=$1 ORDER BY display_name`
	rows, err := r.q.Query(ctx, query, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.User
	for rows.Next() {
		var user domain.User
		if err := rows.Scan(
			&user.ID, &user.TenantID, &user.Email, &user.DisplayName,
			&user.PasswordHash, &user.Role, &user.IsActive, &user.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, user)
	}
	return result, rows.Err()
}

type issueTypeRepository struct {
	q Querier
}

func (r *issueTypeRepository) GetByKey(ctx context.Context, tenantID, key string) (*domain.IssueType, error) {
	const query = `
        SELECT id, tenant_id, key, label, is_active, created_at
        FROM issue_types WHERE key=$1 AND tenant_id=$2`
	var it domain.IssueType
	if err := r.q.QueryRow(ctx, query, key, tenantID).Scan(
		&it.ID, &it.TenantID, &it.Key, &it.Label, &it.IsActive, &it.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &it, nil
}

func (r *issueTypeRepository) ListByTenant(ctx context.Context, tenantID string) ([]domain.IssueType, error) {
	const query = `
        SELECT id, tenant_id, key, label, is_active, created_at
        FROM issue_types WHERE tenant_id=$1 ORDER BY key`
	rows, err := r.q.Query(ctx, query, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.IssueType
	for rows.Next() {
		var it domain.IssueType
		if err := rows.Scan(&it.ID, &it.TenantID, &it.Key, &it.Label, &it.IsActive, &it.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, it)
	}
	return result, rows.Err()
}
