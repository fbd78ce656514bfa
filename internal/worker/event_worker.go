package worker

import (
	"context"

	"go.uber.org/zap"

	"github.com/opsdesk/ticketing/internal/events"
)

// StartEventLogger subscribes an audit logger to every lifecycle event.
func StartEventLogger(dispatcher events.Dispatcher, logger *zap.Logger) {
	if dispatcher == nil {
		return
	}
	for _, eventType := range []events.EventType{
		events.EventTicketCreated,
		events.EventTicketUpdated,
		events.EventTicketDeleted,
		events.EventRecurringGenerated,
	} {
		dispatcher.Subscribe(eventType, func(_ context.Context, event events.Event) error {
			logger.Info("event",
				zap.String("type", string(event.Type)),
				zap.String("tenant_id", event.TenantID),
				zap.String("ticket_id", event.TicketID))
			return nil
		})
	}
}
