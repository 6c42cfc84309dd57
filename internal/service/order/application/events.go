package application

import (
	"context"

	"marketplace/internal/pkg/logger"
	"marketplace/internal/pkg/metrics"
	"marketplace/internal/service/order/domain"
	"marketplace/internal/service/order/domain/port"
)

// EventEmitter 在事务提交后尽力发布领域事件：失败只记录日志和指标，不影响请求结果。
type EventEmitter struct {
	publisher port.EventPublisher
	metrics   *metrics.ServerMetrics
}

func NewEventEmitter(publisher port.EventPublisher, m *metrics.ServerMetrics) *EventEmitter {
	return &EventEmitter{publisher: publisher, metrics: m}
}

func (e *EventEmitter) Emit(ctx context.Context, event domain.Event) {
	if e == nil || e.publisher == nil {
		return
	}
	result := "ok"
	if err := e.publisher.Publish(ctx, event); err != nil {
		result = "error"
		logger.Ctx(ctx).Warn().Err(err).
			Str("event_type", string(event.Type)).
			Str("order_id", event.OrderID).
			Msg("failed to publish order event")
	}
	if e.metrics != nil {
		e.metrics.EventsPublished.WithLabelValues(string(event.Type), result).Inc()
	}
}
