// internal/service/order/domain/event.go
package domain

import "time"

// EventType 区分订单领域事件
type EventType string

const (
	EventOrderPlaced          EventType = "order.placed"
	EventPaymentStatusChanged EventType = "order.payment_status_changed"
	EventItemsSettled         EventType = "order.items_settled"
)

// Event 是发布到 order-events 主题的领域事件，key 为订单 ID。
type Event struct {
	Type          EventType     `json:"type"`
	OrderID       string        `json:"orderId"`
	TrackingID    string        `json:"trackingId"`
	CustomerID    string        `json:"customerId"`
	Email         string        `json:"email,omitempty"`
	PaymentMethod PaymentMethod `json:"paymentMethod,omitempty"`
	PaymentStatus PaymentStatus `json:"paymentStatus"`
	GrandTotal    string        `json:"grandTotal,omitempty"`

	// 仅 order.items_settled 使用
	StoreID      string            `json:"storeId,omitempty"`
	SellerStatus ItemPaymentStatus `json:"sellerStatus,omitempty"`

	OccurredAt time.Time `json:"occurredAt"`
}

// NewOrderPlaced 在订单持久化之后发布。
func NewOrderPlaced(o *Order, at time.Time) Event {
	return Event{
		Type:          EventOrderPlaced,
		OrderID:       o.ID,
		TrackingID:    o.TrackingID,
		CustomerID:    o.CustomerID,
		Email:         o.Email,
		PaymentMethod: o.PaymentMethod,
		PaymentStatus: o.PaymentStatus,
		GrandTotal:    o.GrandTotal.StringFixed(2),
		OccurredAt:    at,
	}
}

// NewPaymentStatusChanged 在网关回调改变订单状态后发布。
func NewPaymentStatusChanged(o *Order, status PaymentStatus, at time.Time) Event {
	return Event{
		Type:          EventPaymentStatusChanged,
		OrderID:       o.ID,
		TrackingID:    o.TrackingID,
		CustomerID:    o.CustomerID,
		Email:         o.Email,
		PaymentMethod: o.PaymentMethod,
		PaymentStatus: status,
		OccurredAt:    at,
	}
}

// NewItemsSettled 在卖家结算自己的明细后发布。
func NewItemsSettled(o *Order, storeID string, sellerStatus ItemPaymentStatus, orderStatus PaymentStatus, at time.Time) Event {
	return Event{
		Type:          EventItemsSettled,
		OrderID:       o.ID,
		TrackingID:    o.TrackingID,
		CustomerID:    o.CustomerID,
		Email:         o.Email,
		PaymentStatus: orderStatus,
		StoreID:       storeID,
		SellerStatus:  sellerStatus,
		OccurredAt:    at,
	}
}
