package infrastructure

import (
	"context"
	"errors"
	"time"

	"github.com/go-sql-driver/mysql"
	pkgerrors "github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"marketplace/internal/pkg/apperr"
	"marketplace/internal/service/order/domain"
)

// MySQL 的唯一键冲突错误码
const mysqlDuplicateEntry = 1062

// GormOrderRepository 是 domain.OrderRepository 的 GORM 实现
type GormOrderRepository struct {
	db *gorm.DB
}

// NewGormOrderRepository 创建一个新的 GORM 仓储实例
func NewGormOrderRepository(db *gorm.DB) *GormOrderRepository {
	return &GormOrderRepository{db: db}
}

func preloadItems(db *gorm.DB) *gorm.DB {
	return db.Order("position ASC")
}

// Create 在一个事务中写入订单和所有明细
func (r *GormOrderRepository) Create(ctx context.Context, order *domain.Order) error {
	model := FromDomainOrder(order)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(model).Error; err != nil {
			return err
		}
		if len(model.Items) > 0 {
			if err := tx.Create(&model.Items).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if isDuplicateKey(err) {
		return domain.ErrDuplicateTrackingID
	}
	return pkgerrors.Wrap(err, "insert order")
}

// FindByID 使用 Preload 预加载明细
func (r *GormOrderRepository) FindByID(ctx context.Context, id string) (*domain.Order, error) {
	var model OrderModel
	err := r.db.WithContext(ctx).Preload("Items", preloadItems).Where("id = ?", id).First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("order not found")
		}
		return nil, pkgerrors.Wrap(err, "find order")
	}
	return ToDomainOrder(&model), nil
}

func (r *GormOrderRepository) FindByTrackingID(ctx context.Context, trackingID string) (*domain.Order, error) {
	var model OrderModel
	err := r.db.WithContext(ctx).Preload("Items", preloadItems).Where("tracking_id = ?", trackingID).First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("order not found")
		}
		return nil, pkgerrors.Wrap(err, "find order by tracking id")
	}
	return ToDomainOrder(&model), nil
}

func (r *GormOrderRepository) ListByCustomer(ctx context.Context, customerID string, page domain.Page) ([]*domain.Order, int64, error) {
	scope := func(db *gorm.DB) *gorm.DB {
		return db.Where("customer_id = ?", customerID)
	}
	return r.list(ctx, scope, page)
}

func (r *GormOrderRepository) ListByStore(ctx context.Context, storeID string, page domain.Page) ([]*domain.Order, int64, error) {
	scope := func(db *gorm.DB) *gorm.DB {
		sub := r.db.Model(&OrderItemModel{}).Select("order_id").Where("store_id = ?", storeID)
		return db.Where("id IN (?)", sub)
	}
	return r.list(ctx, scope, page)
}

func (r *GormOrderRepository) list(ctx context.Context, scope func(*gorm.DB) *gorm.DB, page domain.Page) ([]*domain.Order, int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&OrderModel{}).Scopes(scope).Count(&total).Error; err != nil {
		return nil, 0, pkgerrors.Wrap(err, "count orders")
	}

	var models []OrderModel
	err := r.db.WithContext(ctx).
		Scopes(scope).
		Preload("Items", preloadItems).
		Order("created_at DESC").Order("id DESC").
		Offset(page.Offset()).Limit(page.Size).
		Find(&models).Error
	if err != nil {
		return nil, 0, pkgerrors.Wrap(err, "list orders")
	}

	orders := make([]*domain.Order, len(models))
	for i := range models {
		orders[i] = ToDomainOrder(&models[i])
	}
	return orders, total, nil
}

// UpdatePaymentStatus 是一个条件更新：只有当前状态在 from 中且不等于 to 时才写入。
func (r *GormOrderRepository) UpdatePaymentStatus(ctx context.Context, id string, to domain.PaymentStatus, from ...domain.PaymentStatus) (bool, domain.PaymentStatus, error) {
	allowed := make([]string, 0, len(from))
	for _, s := range from {
		if s != to {
			allowed = append(allowed, string(s))
		}
	}

	if len(allowed) > 0 {
		res := r.db.WithContext(ctx).Model(&OrderModel{}).
			Where("id = ? AND payment_status IN ?", id, allowed).
			Updates(map[string]interface{}{
				"payment_status": string(to),
				"version":        gorm.Expr("version + 1"),
				"updated_at":     time.Now().UTC(),
			})
		if res.Error != nil {
			return false, "", pkgerrors.Wrap(res.Error, "update payment status")
		}
		if res.RowsAffected > 0 {
			return true, to, nil
		}
	}

	// 没有写入：返回当前状态，由调用方判断是重复投递还是状态冲突
	var model OrderModel
	err := r.db.WithContext(ctx).Select("payment_status").Where("id = ?", id).First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, "", apperr.NotFound("order not found")
		}
		return false, "", pkgerrors.Wrap(err, "read payment status")
	}
	return false, domain.PaymentStatus(model.PaymentStatus), nil
}

// SettleStoreItems 锁定订单行后只更新属于 storeID 的明细，再根据全部明细重新推导订单状态。
// 并发的结算请求在订单行锁上串行化，不会互相覆盖。
func (r *GormOrderRepository) SettleStoreItems(ctx context.Context, orderID, storeID string, status domain.ItemPaymentStatus) (*domain.SettlementResult, error) {
	var result *domain.SettlementResult
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var order OrderModel
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("id = ?", orderID).First(&order).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.NotFound("order not found")
			}
			return pkgerrors.Wrap(err, "lock order")
		}

		res := tx.Model(&OrderItemModel{}).
			Where("order_id = ? AND store_id = ? AND item_payment_status <> ?", orderID, storeID, string(status)).
			Update("item_payment_status", string(status))
		if res.Error != nil {
			return pkgerrors.Wrap(res.Error, "update seller items")
		}
		if res.RowsAffected == 0 {
			return apperr.InvalidState("nothing to update")
		}

		var items []OrderItemModel
		if err := tx.Where("order_id = ?", orderID).Order("position ASC").Find(&items).Error; err != nil {
			return pkgerrors.Wrap(err, "reload order items")
		}
		statuses := make([]domain.ItemPaymentStatus, len(items))
		var sellerItems []domain.OrderItem
		for i := range items {
			statuses[i] = domain.ItemPaymentStatus(items[i].ItemPaymentStatus)
			if items[i].StoreID == storeID {
				sellerItems = append(sellerItems, ToDomainOrderItem(&items[i]))
			}
		}

		previous := domain.PaymentStatus(order.PaymentStatus)
		next := domain.DeriveAggregate(previous, statuses)
		updates := map[string]interface{}{
			"version":    gorm.Expr("version + 1"),
			"updated_at": time.Now().UTC(),
		}
		if next != previous {
			updates["payment_status"] = string(next)
		}
		if err := tx.Model(&OrderModel{}).Where("id = ?", orderID).Updates(updates).Error; err != nil {
			return pkgerrors.Wrap(err, "update order aggregate")
		}

		result = &domain.SettlementResult{
			Changed:     int(res.RowsAffected),
			OrderStatus: next,
			SellerItems: sellerItems,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// isDuplicateKey 同时识别 GORM 翻译后的错误和驱动原始错误
func isDuplicateKey(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var mysqlErr *mysql.MySQLError
	return errors.As(err, &mysqlErr) && mysqlErr.Number == mysqlDuplicateEntry
}
