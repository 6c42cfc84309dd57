package application

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"marketplace/internal/pkg/logger"
	"marketplace/internal/service/order/domain"
)

// ErrUnknownEvent 表示无法识别的事件类型，这类消息会被移入死信主题
var ErrUnknownEvent = errors.New("unknown order event type")

// Notification 是发给客户的一条通知
type Notification struct {
	Recipient string
	Subject   string
	Body      string
}

// NotificationService 把订单事件转换为面向客户的通知。
// 真正的投递渠道（邮件、短信）不在这里，目前只写结构化日志。
type NotificationService struct {
	tracer trace.Tracer
}

func NewNotificationService(tracer trace.Tracer) *NotificationService {
	return &NotificationService{tracer: tracer}
}

// Compose 根据事件类型生成通知内容
func Compose(event domain.Event) (Notification, error) {
	n := Notification{Recipient: event.Email}
	switch event.Type {
	case domain.EventOrderPlaced:
		n.Subject = fmt.Sprintf("Order %s received", event.TrackingID)
		if event.PaymentMethod == domain.MethodGateway {
			n.Body = fmt.Sprintf("We received your order %s for %s. Please complete the online payment to confirm it.", event.TrackingID, event.GrandTotal)
		} else {
			n.Body = fmt.Sprintf("We received your order %s for %s. Please keep the amount ready on delivery.", event.TrackingID, event.GrandTotal)
		}
	case domain.EventPaymentStatusChanged:
		n.Subject = fmt.Sprintf("Payment update for order %s", event.TrackingID)
		if event.PaymentStatus == domain.PaymentPaid {
			n.Body = fmt.Sprintf("Your payment for order %s was successful.", event.TrackingID)
		} else {
			n.Body = fmt.Sprintf("Your payment for order %s did not go through. You can try again from your order page.", event.TrackingID)
		}
	case domain.EventItemsSettled:
		n.Subject = fmt.Sprintf("Order %s updated", event.TrackingID)
		n.Body = fmt.Sprintf("Items in your order %s are now %s. Order payment status: %s.", event.TrackingID, event.SellerStatus, event.PaymentStatus)
	default:
		return Notification{}, errors.Wrapf(ErrUnknownEvent, "type %q", event.Type)
	}
	return n, nil
}

// Notify 处理一个订单事件
func (s *NotificationService) Notify(ctx context.Context, event domain.Event) error {
	ctx, span := s.tracer.Start(ctx, "app.Notify", trace.WithSpanKind(trace.SpanKindConsumer))
	defer span.End()
	span.SetAttributes(
		attribute.String("event.type", string(event.Type)),
		attribute.String("order.id", event.OrderID),
	)

	n, err := Compose(event)
	if err != nil {
		span.RecordError(err)
		return err
	}
	if n.Recipient == "" {
		logger.Ctx(ctx).Warn().Str("order_id", event.OrderID).Msg("order event without recipient, notification skipped")
		return nil
	}

	logger.Ctx(ctx).Info().
		Str("event_type", string(event.Type)).
		Str("order_id", event.OrderID).
		Str("tracking_id", event.TrackingID).
		Str("recipient", n.Recipient).
		Str("subject", n.Subject).
		Msg(n.Body)
	span.AddEvent("Notification dispatched.")
	return nil
}
