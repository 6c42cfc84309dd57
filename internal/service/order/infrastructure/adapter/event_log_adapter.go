package adapter

import (
	"context"

	"marketplace/internal/pkg/logger"
	"marketplace/internal/service/order/domain"
)

// EventLogAdapter 只把事件写进日志，没有配置 Kafka broker 时使用。
type EventLogAdapter struct{}

func NewEventLogAdapter() *EventLogAdapter {
	return &EventLogAdapter{}
}

func (EventLogAdapter) Publish(ctx context.Context, event domain.Event) error {
	logger.Ctx(ctx).Info().
		Str("event_type", string(event.Type)).
		Str("order_id", event.OrderID).
		Str("tracking_id", event.TrackingID).
		Str("payment_status", string(event.PaymentStatus)).
		Msg("order event")
	return nil
}
