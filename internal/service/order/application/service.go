// internal/service/order/application/service.go
package application

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"marketplace/internal/pkg/apperr"
	"marketplace/internal/pkg/auth"
	"marketplace/internal/pkg/logger"
	"marketplace/internal/pkg/metrics"
	"marketplace/internal/service/order/domain"
)

// 订单号冲突时最多尝试的次数
const trackingIDAttempts = 3

// OrderApplicationService 负责客户侧的下单与查询用例。
type OrderApplicationService struct {
	orderRepo    domain.OrderRepository
	pricing      *PricePolicy
	events       *EventEmitter
	tracer       trace.Tracer
	metrics      *metrics.ServerMetrics
	frontendBase string

	now func() time.Time
}

func NewOrderApplicationService(orderRepo domain.OrderRepository, pricing *PricePolicy, events *EventEmitter, tracer trace.Tracer, m *metrics.ServerMetrics, frontendBase string) *OrderApplicationService {
	return &OrderApplicationService{
		orderRepo:    orderRepo,
		pricing:      pricing,
		events:       events,
		tracer:       tracer,
		metrics:      m,
		frontendBase: strings.TrimRight(frontendBase, "/"),
		now:          time.Now,
	}
}

// CreateOrder 校验购物车、计算总额、分配订单号并以 pending 状态持久化订单。
func (s *OrderApplicationService) CreateOrder(ctx context.Context, customer *auth.Principal, req *CreateOrderRequest) (*CreateOrderResponse, error) {
	ctx, span := s.tracer.Start(ctx, "app.CreateOrder")
	defer span.End()
	span.SetAttributes(
		attribute.String("customer.id", customer.AccountID),
		attribute.Int("order.items", len(req.Items)),
		attribute.String("pricing.mode", s.pricing.Mode()),
	)

	// 1. 校验输入
	draft := req.ToDraft(customer.AccountID)
	if err := draft.Validate(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "invalid order draft")
		return nil, err
	}

	// 2. 价格策略（recompute 模式下以商品目录为准）
	if err := s.pricing.Apply(ctx, &draft); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "price policy rejected order")
		return nil, err
	}

	// 3. 使用领域工厂函数创建订单实体
	order, err := domain.NewOrder(draft, s.now())
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to create order entity")
		return nil, err
	}

	// 4. 持久化；订单号冲突时重新生成
	for attempt := 1; ; attempt++ {
		err = s.orderRepo.Create(ctx, order)
		if err == nil {
			break
		}
		if !errors.Is(err, domain.ErrDuplicateTrackingID) || attempt >= trackingIDAttempts {
			span.RecordError(err)
			span.SetStatus(codes.Error, "failed to save order")
			logger.Ctx(ctx).Error().Err(err).
				Str("op", "CreateOrder").
				Str("actor", customer.AccountID).
				Str("order_id", order.ID).
				Int("attempt", attempt).
				Msg("failed to save order")
			return nil, errors.Wrap(err, "save order")
		}
		logger.Ctx(ctx).Warn().Str("tracking_id", order.TrackingID).Int("attempt", attempt).Msg("tracking id collision, regenerating")
		order.TrackingID = domain.NewTrackingID()
	}

	span.SetAttributes(attribute.String("order.id", order.ID), attribute.String("order.tracking_id", order.TrackingID))
	span.AddEvent("Order persisted with pending status.")
	s.metrics.OrdersCreated.WithLabelValues(string(order.PaymentMethod)).Inc()
	logger.Ctx(ctx).Info().
		Str("op", "CreateOrder").
		Str("actor", customer.AccountID).
		Str("order_id", order.ID).
		Str("tracking_id", order.TrackingID).
		Str("grand_total", order.GrandTotal.StringFixed(2)).
		Msg("order created")

	s.events.Emit(ctx, domain.NewOrderPlaced(order, s.now()))

	resp := &CreateOrderResponse{OrderID: order.ID, TrackingID: order.TrackingID}
	if order.PaymentMethod == domain.MethodGateway {
		resp.PaymentURL = s.frontendBase + "/payment?orderId=" + url.QueryEscape(order.ID)
	}
	return resp, nil
}

// GetOrder 返回客户自己的订单。
func (s *OrderApplicationService) GetOrder(ctx context.Context, customer *auth.Principal, orderID string) (*OrderView, error) {
	ctx, span := s.tracer.Start(ctx, "app.GetOrder")
	defer span.End()
	span.SetAttributes(attribute.String("order.id", orderID), attribute.String("customer.id", customer.AccountID))

	order, err := s.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	if !order.OwnedBy(customer.AccountID) {
		err := apperr.Forbidden("order belongs to another customer")
		span.RecordError(err)
		return nil, err
	}
	view := ToOrderView(order)
	return &view, nil
}

// ListOrders 按创建时间倒序分页列出客户的订单。
func (s *OrderApplicationService) ListOrders(ctx context.Context, customer *auth.Principal, pageNumber, limit int) (*OrderListResponse, error) {
	ctx, span := s.tracer.Start(ctx, "app.ListOrders")
	defer span.End()

	page := domain.NewPage(pageNumber, limit)
	orders, total, err := s.orderRepo.ListByCustomer(ctx, customer.AccountID, page)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to list orders")
		return nil, err
	}

	views := make([]OrderView, 0, len(orders))
	for _, o := range orders {
		views = append(views, ToOrderView(o))
	}
	return &OrderListResponse{Orders: views, Total: total, Page: page.Number, Limit: page.Size}, nil
}
