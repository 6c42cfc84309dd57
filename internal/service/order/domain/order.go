// internal/service/order/domain/order.go
package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"marketplace/internal/pkg/apperr"
)

// Order 是订单聚合的根实体。一个订单可能包含多个卖家（店铺）的商品。
type Order struct {
	ID         string
	TrackingID string
	CustomerID string

	// 收货信息，创建后不可修改
	FirstName    string
	LastName     string
	Phone        string
	Email        string
	HouseAddress string

	Items []OrderItem

	ItemsTotal  decimal.Decimal
	ShippingFee decimal.Decimal
	GrandTotal  decimal.Decimal

	PaymentMethod PaymentMethod
	PaymentStatus PaymentStatus

	Version   int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// OrderItem 是订单中的一条商品明细。价格和数量在下单时冻结，不随商品目录变化。
type OrderItem struct {
	ProductID         string
	Name              string
	Price             decimal.Decimal
	Quantity          int
	Image             string
	StoreID           string
	ItemPaymentStatus ItemPaymentStatus
}

// LineTotal 返回 price * quantity。
func (i OrderItem) LineTotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// Draft 是创建订单所需的输入。
type Draft struct {
	CustomerID    string
	FirstName     string
	LastName      string
	Phone         string
	Email         string
	HouseAddress  string
	Items         []OrderItem
	ItemsTotal    decimal.Decimal
	ShippingFee   decimal.Decimal
	PaymentMethod string
}

// Validate 校验下单输入。价格策略和 NewOrder 都依赖一个合法的 Draft。
func (d Draft) Validate() error {
	required := []struct{ name, value string }{
		{"customerId", d.CustomerID},
		{"firstName", d.FirstName},
		{"lastName", d.LastName},
		{"phone", d.Phone},
		{"email", d.Email},
		{"houseAddress", d.HouseAddress},
	}
	for _, f := range required {
		if strings.TrimSpace(f.value) == "" {
			return apperr.Validation(f.name + " is required")
		}
	}
	if len(d.Items) == 0 {
		return apperr.Validation("items must not be empty")
	}
	if _, ok := ParsePaymentMethod(d.PaymentMethod); !ok {
		return apperr.Validation("paymentMethod must be COD or Gateway")
	}
	if d.ItemsTotal.IsNegative() {
		return apperr.Validation("itemsTotal must not be negative")
	}
	if d.ShippingFee.IsNegative() {
		return apperr.Validation("shippingFee must not be negative")
	}
	for _, it := range d.Items {
		if strings.TrimSpace(it.ProductID) == "" || strings.TrimSpace(it.StoreID) == "" {
			return apperr.Validation("every item needs productId and storeId")
		}
		if it.Quantity < 1 {
			return apperr.Validation("item quantity must be at least 1")
		}
		if it.Price.IsNegative() {
			return apperr.Validation("item price must not be negative")
		}
	}
	return nil
}

// 工厂函数: NewOrder 校验输入并创建一个 pending 状态的订单
func NewOrder(d Draft, now time.Time) (*Order, error) {
	if err := d.Validate(); err != nil {
		return nil, err
	}
	method, _ := ParsePaymentMethod(d.PaymentMethod)

	items := make([]OrderItem, len(d.Items))
	for idx, it := range d.Items {
		it.ItemPaymentStatus = ItemPending
		items[idx] = it
	}

	return &Order{
		ID:            uuid.New().String(),
		TrackingID:    NewTrackingID(),
		CustomerID:    d.CustomerID,
		FirstName:     strings.TrimSpace(d.FirstName),
		LastName:      strings.TrimSpace(d.LastName),
		Phone:         strings.TrimSpace(d.Phone),
		Email:         strings.TrimSpace(d.Email),
		HouseAddress:  strings.TrimSpace(d.HouseAddress),
		Items:         items,
		ItemsTotal:    d.ItemsTotal,
		ShippingFee:   d.ShippingFee,
		GrandTotal:    d.ItemsTotal.Add(d.ShippingFee),
		PaymentMethod: method,
		PaymentStatus: PaymentPending,
		Version:       1,
		CreatedAt:     now,
		UpdatedAt:     now,
	}, nil
}

// OwnedBy 判断订单是否属于该客户。
func (o *Order) OwnedBy(customerID string) bool {
	return o.CustomerID == customerID
}

// ItemsOfStore 返回属于某个店铺的明细（按原顺序）。
func (o *Order) ItemsOfStore(storeID string) []OrderItem {
	var out []OrderItem
	for _, it := range o.Items {
		if it.StoreID == storeID {
			out = append(out, it)
		}
	}
	return out
}

// ItemStatuses 返回所有明细的状态。
func (o *Order) ItemStatuses() []ItemPaymentStatus {
	out := make([]ItemPaymentStatus, len(o.Items))
	for i, it := range o.Items {
		out[i] = it.ItemPaymentStatus
	}
	return out
}

// CanApplyGatewayResult 判断网关回调结果能否作用于当前状态：
// 只有 pending，或已经是同一目标状态（重复投递）时才接受。
func (o *Order) CanApplyGatewayResult(target PaymentStatus) bool {
	return o.PaymentStatus == PaymentPending || o.PaymentStatus == target
}

// DeriveAggregate 根据明细状态推导订单级状态：
// 所有明细都是 paid 则为 paid，都是 returned 则为 returned，否则保持 current 不变。
func DeriveAggregate(current PaymentStatus, items []ItemPaymentStatus) PaymentStatus {
	if len(items) == 0 {
		return current
	}
	first := items[0]
	for _, s := range items[1:] {
		if s != first {
			return current
		}
	}
	switch first {
	case ItemPaid:
		return PaymentPaid
	case ItemReturned:
		return PaymentReturned
	default:
		return current
	}
}

// SellerStatus 推导单个卖家视角的状态：该卖家的明细全部一致时取该值，否则为 pending。
func SellerStatus(items []OrderItem) ItemPaymentStatus {
	if len(items) == 0 {
		return ItemPending
	}
	first := items[0].ItemPaymentStatus
	for _, it := range items[1:] {
		if it.ItemPaymentStatus != first {
			return ItemPending
		}
	}
	return first
}

// Subtotal 返回一组明细的 Σ price * quantity。
func Subtotal(items []OrderItem) decimal.Decimal {
	total := decimal.Zero
	for _, it := range items {
		total = total.Add(it.LineTotal())
	}
	return total
}
