// internal/service/order/domain/repository.go
package domain

import (
	"context"
	"errors"
)

// ErrDuplicateTrackingID 表示订单号与已有订单冲突，调用方应重新生成后重试。
var ErrDuplicateTrackingID = errors.New("duplicate tracking id")

// Page 是分页参数，Number 从 1 开始。
type Page struct {
	Number int
	Size   int
}

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// NewPage 规范化分页参数。
func NewPage(number, size int) Page {
	if number < 1 {
		number = 1
	}
	if size < 1 {
		size = DefaultPageSize
	}
	if size > MaxPageSize {
		size = MaxPageSize
	}
	return Page{Number: number, Size: size}
}

func (p Page) Offset() int {
	return (p.Number - 1) * p.Size
}

// SettlementResult 是一次卖家结算的结果。
type SettlementResult struct {
	Changed     int
	OrderStatus PaymentStatus
	SellerItems []OrderItem
}

// OrderRepository 定义了订单聚合的持久化接口。
// 它位于领域层，但由基础设施层实现。
type OrderRepository interface {
	// Create 原子地写入订单及其明细；订单号冲突时返回 ErrDuplicateTrackingID。
	Create(ctx context.Context, order *Order) error

	// FindByID 根据 ID 查找订单，不存在时返回包装了 apperr.ErrNotFound 的错误。
	FindByID(ctx context.Context, id string) (*Order, error)

	// FindByTrackingID 根据对外订单号查找订单。
	FindByTrackingID(ctx context.Context, trackingID string) (*Order, error)

	// ListByCustomer 按创建时间倒序列出客户的订单。
	ListByCustomer(ctx context.Context, customerID string, page Page) ([]*Order, int64, error)

	// ListByStore 按创建时间倒序列出包含某店铺明细的订单。
	ListByStore(ctx context.Context, storeID string, page Page) ([]*Order, int64, error)

	// UpdatePaymentStatus 仅当当前状态属于 from 时把订单级状态改为 to。
	// 返回是否发生了变化以及写入后的状态。
	UpdatePaymentStatus(ctx context.Context, id string, to PaymentStatus, from ...PaymentStatus) (bool, PaymentStatus, error)

	// SettleStoreItems 只更新属于 storeID 的明细，并在同一事务中重新推导订单级状态。
	// 没有明细发生变化时返回包装了 apperr.ErrInvalidState 的错误。
	SettleStoreItems(ctx context.Context, orderID, storeID string, status ItemPaymentStatus) (*SettlementResult, error)
}
