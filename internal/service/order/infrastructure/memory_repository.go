package infrastructure

import (
	"context"
	"sort"
	"sync"
	"time"

	"marketplace/internal/pkg/apperr"
	"marketplace/internal/service/order/domain"
)

// MemoryOrderRepository 是进程内的 domain.OrderRepository 实现，用于本地运行和测试。
// 语义与 GORM 实现保持一致：订单号唯一、条件更新、按店铺定向结算。
type MemoryOrderRepository struct {
	mu         sync.Mutex
	orders     map[string]*domain.Order
	byTracking map[string]string
}

func NewMemoryOrderRepository() *MemoryOrderRepository {
	return &MemoryOrderRepository{
		orders:     make(map[string]*domain.Order),
		byTracking: make(map[string]string),
	}
}

func cloneOrder(o *domain.Order) *domain.Order {
	cp := *o
	cp.Items = append([]domain.OrderItem(nil), o.Items...)
	return &cp
}

func (r *MemoryOrderRepository) Create(_ context.Context, order *domain.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byTracking[order.TrackingID]; ok {
		return domain.ErrDuplicateTrackingID
	}
	if _, ok := r.orders[order.ID]; ok {
		return domain.ErrDuplicateTrackingID
	}
	r.orders[order.ID] = cloneOrder(order)
	r.byTracking[order.TrackingID] = order.ID
	return nil
}

func (r *MemoryOrderRepository) FindByID(_ context.Context, id string) (*domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[id]
	if !ok {
		return nil, apperr.NotFound("order not found")
	}
	return cloneOrder(o), nil
}

func (r *MemoryOrderRepository) FindByTrackingID(ctx context.Context, trackingID string) (*domain.Order, error) {
	r.mu.Lock()
	id, ok := r.byTracking[trackingID]
	r.mu.Unlock()
	if !ok {
		return nil, apperr.NotFound("order not found")
	}
	return r.FindByID(ctx, id)
}

func (r *MemoryOrderRepository) ListByCustomer(_ context.Context, customerID string, page domain.Page) ([]*domain.Order, int64, error) {
	return r.list(page, func(o *domain.Order) bool { return o.CustomerID == customerID })
}

func (r *MemoryOrderRepository) ListByStore(_ context.Context, storeID string, page domain.Page) ([]*domain.Order, int64, error) {
	return r.list(page, func(o *domain.Order) bool { return len(o.ItemsOfStore(storeID)) > 0 })
}

func (r *MemoryOrderRepository) list(page domain.Page, match func(*domain.Order) bool) ([]*domain.Order, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var matched []*domain.Order
	for _, o := range r.orders {
		if match(o) {
			matched = append(matched, o)
		}
	}
	// 新订单在前
	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.After(matched[j].CreatedAt)
		}
		return matched[i].ID > matched[j].ID
	})

	total := int64(len(matched))
	start := page.Offset()
	if start > len(matched) {
		start = len(matched)
	}
	end := start + page.Size
	if end > len(matched) {
		end = len(matched)
	}
	out := make([]*domain.Order, 0, end-start)
	for _, o := range matched[start:end] {
		out = append(out, cloneOrder(o))
	}
	return out, total, nil
}

func (r *MemoryOrderRepository) UpdatePaymentStatus(_ context.Context, id string, to domain.PaymentStatus, from ...domain.PaymentStatus) (bool, domain.PaymentStatus, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[id]
	if !ok {
		return false, "", apperr.NotFound("order not found")
	}
	if o.PaymentStatus == to {
		return false, o.PaymentStatus, nil
	}
	for _, s := range from {
		if o.PaymentStatus == s {
			o.PaymentStatus = to
			o.Version++
			o.UpdatedAt = time.Now().UTC()
			return true, to, nil
		}
	}
	return false, o.PaymentStatus, nil
}

func (r *MemoryOrderRepository) SettleStoreItems(_ context.Context, orderID, storeID string, status domain.ItemPaymentStatus) (*domain.SettlementResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[orderID]
	if !ok {
		return nil, apperr.NotFound("order not found")
	}

	changed := 0
	for i := range o.Items {
		if o.Items[i].StoreID == storeID && o.Items[i].ItemPaymentStatus != status {
			o.Items[i].ItemPaymentStatus = status
			changed++
		}
	}
	if changed == 0 {
		return nil, apperr.InvalidState("nothing to update")
	}

	o.PaymentStatus = domain.DeriveAggregate(o.PaymentStatus, o.ItemStatuses())
	o.Version++
	o.UpdatedAt = time.Now().UTC()

	return &domain.SettlementResult{
		Changed:     changed,
		OrderStatus: o.PaymentStatus,
		SellerItems: append([]domain.OrderItem(nil), o.ItemsOfStore(storeID)...),
	}, nil
}
