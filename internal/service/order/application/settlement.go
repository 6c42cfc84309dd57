package application

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"marketplace/internal/pkg/apperr"
	"marketplace/internal/pkg/auth"
	"marketplace/internal/pkg/logger"
	"marketplace/internal/pkg/metrics"
	"marketplace/internal/service/order/domain"
	"marketplace/internal/service/order/domain/port"
)

// SettlementService 处理卖家对自己明细的结算，以及卖家侧的订单查询。
type SettlementService struct {
	orderRepo domain.OrderRepository
	catalog   port.CatalogService
	events    *EventEmitter
	tracer    trace.Tracer
	metrics   *metrics.ServerMetrics

	now func() time.Time
}

func NewSettlementService(orderRepo domain.OrderRepository, catalog port.CatalogService, events *EventEmitter, tracer trace.Tracer, m *metrics.ServerMetrics) *SettlementService {
	return &SettlementService{
		orderRepo: orderRepo,
		catalog:   catalog,
		events:    events,
		tracer:    tracer,
		metrics:   m,
		now:       time.Now,
	}
}

// UpdateItemStatus 把卖家在订单中的所有明细标记为 paid 或 returned，并重新推导订单级状态。
// 其他卖家的明细不受影响。
func (s *SettlementService) UpdateItemStatus(ctx context.Context, seller *auth.Principal, orderID, rawStatus string) (*UpdateItemStatusResponse, error) {
	ctx, span := s.tracer.Start(ctx, "app.UpdateItemStatus")
	defer span.End()
	span.SetAttributes(
		attribute.String("order.id", orderID),
		attribute.String("seller.id", seller.AccountID),
		attribute.String("settlement.status", rawStatus),
	)

	fail := func(err error, msg string) (*UpdateItemStatusResponse, error) {
		span.RecordError(err)
		span.SetStatus(codes.Error, msg)
		return nil, err
	}

	// 1. 卖家 -> 店铺
	storeID, err := s.catalog.StoreBySeller(ctx, seller.AccountID)
	if err != nil {
		return fail(err, "store lookup failed")
	}
	span.SetAttributes(attribute.String("store.id", storeID))

	// 2. 目标状态
	status, ok := domain.ParseSettlementStatus(rawStatus)
	if !ok {
		return fail(apperr.Validation("status must be paid or returned"), "invalid status")
	}

	// 3. 订单必须存在
	order, err := s.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		return fail(err, "order lookup failed")
	}

	// 4. 同一事务中锁定订单、只更新本店铺的明细、重新推导订单状态
	result, err := s.orderRepo.SettleStoreItems(ctx, orderID, storeID, status)
	if err != nil {
		if apperr.KindOf(err) == apperr.KindServer {
			logger.Ctx(ctx).Error().Err(err).
				Str("op", "UpdateItemStatus").
				Str("actor", seller.AccountID).
				Str("order_id", orderID).
				Msg("settlement failed")
		}
		return fail(err, "settlement failed")
	}

	sellerStatus := domain.SellerStatus(result.SellerItems)
	s.metrics.Settlements.WithLabelValues(string(status)).Inc()
	logger.Ctx(ctx).Info().
		Str("op", "UpdateItemStatus").
		Str("actor", seller.AccountID).
		Str("order_id", orderID).
		Str("store_id", storeID).
		Int("changed_items", result.Changed).
		Str("payment_status", string(result.OrderStatus)).
		Msg("seller items settled")

	s.events.Emit(ctx, domain.NewItemsSettled(order, storeID, sellerStatus, result.OrderStatus, s.now()))

	return &UpdateItemStatusResponse{
		OrderID:       orderID,
		SellerStatus:  sellerStatus,
		PaymentStatus: result.OrderStatus,
	}, nil
}

// GetSellerOrder 返回只包含本店铺明细的订单；订单里没有本店铺的商品时视为不存在。
func (s *SettlementService) GetSellerOrder(ctx context.Context, seller *auth.Principal, orderID string) (*SellerOrderView, error) {
	ctx, span := s.tracer.Start(ctx, "app.GetSellerOrder")
	defer span.End()
	span.SetAttributes(attribute.String("order.id", orderID), attribute.String("seller.id", seller.AccountID))

	storeID, err := s.catalog.StoreBySeller(ctx, seller.AccountID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	order, err := s.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	view, ok := ToSellerOrderView(order, storeID)
	if !ok {
		err := apperr.NotFound("order not found")
		span.RecordError(err)
		return nil, err
	}
	return &view, nil
}

// ListSellerOrders 按创建时间倒序列出包含本店铺明细的订单。
func (s *SettlementService) ListSellerOrders(ctx context.Context, seller *auth.Principal, pageNumber, limit int) (*SellerOrderListResponse, error) {
	ctx, span := s.tracer.Start(ctx, "app.ListSellerOrders")
	defer span.End()

	storeID, err := s.catalog.StoreBySeller(ctx, seller.AccountID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	page := domain.NewPage(pageNumber, limit)
	orders, total, err := s.orderRepo.ListByStore(ctx, storeID, page)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to list seller orders")
		return nil, err
	}

	views := make([]SellerOrderView, 0, len(orders))
	for _, o := range orders {
		if v, ok := ToSellerOrderView(o, storeID); ok {
			views = append(views, v)
		}
	}
	return &SellerOrderListResponse{Orders: views, Total: total, Page: page.Number, Limit: page.Size}, nil
}
