// internal/service/order/domain/state.go
package domain

import "strings"

// PaymentStatus 是订单级别的支付状态（所有卖家的聚合）
type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "pending"  // 初始状态
	PaymentPaid     PaymentStatus = "paid"     // 网关回调成功，或所有明细均已结算
	PaymentFailed   PaymentStatus = "failed"   // 网关回调失败
	PaymentReturned PaymentStatus = "returned" // 所有明细均已退回
)

// ItemPaymentStatus 是单条明细（即单个卖家）的结算状态
type ItemPaymentStatus string

const (
	ItemPending  ItemPaymentStatus = "pending"
	ItemPaid     ItemPaymentStatus = "paid"
	ItemReturned ItemPaymentStatus = "returned"
)

// ParseSettlementStatus 解析卖家可以设置的状态，只接受 paid / returned。
func ParseSettlementStatus(s string) (ItemPaymentStatus, bool) {
	switch ItemPaymentStatus(strings.ToLower(strings.TrimSpace(s))) {
	case ItemPaid:
		return ItemPaid, true
	case ItemReturned:
		return ItemReturned, true
	default:
		return "", false
	}
}

// PaymentMethod 是下单时选择的支付方式
type PaymentMethod string

const (
	MethodCOD     PaymentMethod = "COD"
	MethodGateway PaymentMethod = "Gateway"
)

// ParsePaymentMethod 大小写不敏感地解析支付方式并返回规范写法。
func ParsePaymentMethod(s string) (PaymentMethod, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "cod":
		return MethodCOD, true
	case "gateway":
		return MethodGateway, true
	default:
		return "", false
	}
}
