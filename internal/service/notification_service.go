package service

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/opsdesk/ticketing/internal/domain"
	"github.com/opsdesk/ticketing/internal/repository"
	apperrors "github.com/opsdesk/ticketing/pkg/util"
)

// NotificationService is the pipeline's notification sink. Rows are written
// through the caller's (possibly transaction-bound) store; the realtime
// fan-out over Redis pub/sub is fire-and-forget and never fails a mutation.
type NotificationService struct {
	store   repository.Store
	redis   *redis.Client
	channel string
	logger  *zap.Logger
}

// NewNotificationService creates the service. The Redis client may be nil;
// persistence then still works, only the realtime push is skipped.
func NewNotificationService(store repository.Store, client *redis.Client, channel string, logger *zap.Logger) *NotificationService {
	if channel == "" {
		channel = "notifications"
	}
	return &NotificationService{store: store, redis: client, channel: channel, logger: logger}
}

// NotifyInput describes one notification to deliver.
type NotifyInput struct {
	TenantID string
	UserID   *string
	Kind     domain.NotificationKind
	Title    string
	Message  string
	TicketID *string
	Metadata map[string]any
}

// Notify persists a notification through the given store view and pushes a
// realtime copy. Callers inside a transaction pass their tx-bound store so
// the row commits or rolls back with the mutation.
func (n *NotificationService) Notify(ctx context.Context, store repository.Store, input NotifyInput) error {
	if input.Metadata == nil {
		input.Metadata = map[string]any{}
	}
	notification := &domain.Notification{
		ID:       uuid.NewString(),
		TenantID: input.TenantID,
		UserID:   input.UserID,
		Kind:     input.Kind,
		Title:    input.Title,
		Message:  input.Message,
		TicketID: input.TicketID,
		Metadata: input.Metadata,
	}
	if err := store.Notifications().Create(ctx, notification); err != nil {
		return apperrors.MapError(err)
	}
	n.publishRealtime(ctx, notification)
	return nil
}

func (n *NotificationService) publishRealtime(ctx context.Context, notification *domain.Notification) {
	if n.redis == nil {
		return
	}
	payload, err := json.Marshal(notification)
	if err != nil {
		return
	}
	if err := n.redis.Publish(ctx, n.channel, payload).Err(); err != nil {
		n.logger.Warn("realtime notification publish failed",
			zap.String("notification_id", notification.ID), zap.Error(err))
	}
}

// List returns recent notifications for a tenant, optionally for one user
// or unread only.
func (n *NotificationService) List(ctx context.Context, tenantID string, userID *string, unreadOnly bool, limit int) ([]domain.Notification, error) {
	result, err := n.store.Notifications().List(ctx, tenantID, userID, unreadOnly, limit)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return result, nil
}

// UnreadCount returns the number of unread notifications.
func (n *NotificationService) UnreadCount(ctx context.Context, tenantID string, userID *string) (int, error) {
	count, err := n.store.Notifications().UnreadCount(ctx, tenantID, userID)
	if err != nil {
		return 0, apperrors.MapError(err)
	}
	return count, nil
}

// MarkRead flags one notification as read.
func (n *NotificationService) MarkRead(ctx context.Context, tenantID, id string) error {
	if err := n.store.Notifications().MarkRead(ctx, tenantID, id); err != nil {
		return apperrors.MapError(err)
	}
	return nil
}

// MarkAllRead flags every unread notification, returning the count flipped.
func (n *NotificationService) MarkAllRead(ctx context.Context, tenantID string, userID *string) (int, error) {
	count, err := n.store.Notifications().MarkAllRead(ctx, tenantID, userID)
	if err != nil {
		return 0, apperrors.MapError(err)
	}
	return count, nil
}

// Delete removes a notification.
func (n *NotificationService) Delete(ctx context.Context, tenantID, id string) error {
	if err := n.store.Notifications().Delete(ctx, tenantID, id); err != nil {
		return apperrors.MapError(err)
	}
	return nil
}
