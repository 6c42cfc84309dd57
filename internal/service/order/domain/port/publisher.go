package port

import (
	"context"

	"marketplace/internal/service/order/domain"
)

// EventPublisher 是订单领域事件的出站端口。
type EventPublisher interface {
	Publish(ctx context.Context, event domain.Event) error
}
