// internal/service/order/application/dto.go
package application

import (
	"time"

	"github.com/shopspring/decimal"

	"marketplace/internal/service/order/domain"
)

// CreateOrderItemRequest 是购物车中的一条商品
type CreateOrderItemRequest struct {
	ProductID string          `json:"productId"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Quantity  int             `json:"quantity"`
	Image     string          `json:"image"`
	StoreID   string          `json:"storeId"`
}

// CreateOrderRequest 是创建订单用例的输入数据
type CreateOrderRequest struct {
	FirstName     string                   `json:"firstName"`
	LastName      string                   `json:"lastName"`
	Phone         string                   `json:"phone"`
	Email         string                   `json:"email"`
	HouseAddress  string                   `json:"houseAddress"`
	Items         []CreateOrderItemRequest `json:"items"`
	ItemsTotal    decimal.Decimal          `json:"itemsTotal"`
	ShippingFee   decimal.Decimal          `json:"shippingFee"`
	PaymentMethod string                   `json:"paymentMethod"`
}

// ToDraft 把请求转换为领域层的下单输入
func (req *CreateOrderRequest) ToDraft(customerID string) domain.Draft {
	items := make([]domain.OrderItem, len(req.Items))
	for i, it := range req.Items {
		items[i] = domain.OrderItem{
			ProductID: it.ProductID,
			Name:      it.Name,
			Price:     it.Price,
			Quantity:  it.Quantity,
			Image:     it.Image,
			StoreID:   it.StoreID,
		}
	}
	return domain.Draft{
		CustomerID:    customerID,
		FirstName:     req.FirstName,
		LastName:      req.LastName,
		Phone:         req.Phone,
		Email:         req.Email,
		HouseAddress:  req.HouseAddress,
		Items:         items,
		ItemsTotal:    req.ItemsTotal,
		ShippingFee:   req.ShippingFee,
		PaymentMethod: req.PaymentMethod,
	}
}

// CreateOrderResponse 是创建订单用例的输出数据
type CreateOrderResponse struct {
	OrderID    string `json:"orderId"`
	TrackingID string `json:"trackingId"`
	PaymentURL string `json:"paymentUrl,omitempty"`
}

type OrderItemView struct {
	ProductID         string                   `json:"productId"`
	Name              string                   `json:"name"`
	Price             decimal.Decimal          `json:"price"`
	Quantity          int                      `json:"quantity"`
	Image             string                   `json:"image"`
	StoreID           string                   `json:"storeId"`
	ItemPaymentStatus domain.ItemPaymentStatus `json:"itemPaymentStatus"`
}

// OrderView 是返回给客户的订单
type OrderView struct {
	ID            string               `json:"id"`
	TrackingID    string               `json:"trackingId"`
	CustomerID    string               `json:"customerId"`
	FirstName     string               `json:"firstName"`
	LastName      string               `json:"lastName"`
	Phone         string               `json:"phone"`
	Email         string               `json:"email"`
	HouseAddress  string               `json:"houseAddress"`
	Items         []OrderItemView      `json:"items"`
	ItemsTotal    decimal.Decimal      `json:"itemsTotal"`
	ShippingFee   decimal.Decimal      `json:"shippingFee"`
	GrandTotal    decimal.Decimal      `json:"grandTotal"`
	PaymentMethod domain.PaymentMethod `json:"paymentMethod"`
	PaymentStatus domain.PaymentStatus `json:"paymentStatus"`
	Version       int64                `json:"version"`
	CreatedAt     time.Time            `json:"createdAt"`
	UpdatedAt     time.Time            `json:"updatedAt"`
}

// OrderListResponse 是分页的订单列表
type OrderListResponse struct {
	Orders []OrderView `json:"orders"`
	Total  int64       `json:"total"`
	Page   int         `json:"page"`
	Limit  int         `json:"limit"`
}

// SellerOrderView 是卖家看到的订单：只包含本店铺的明细，金额也只按本店铺计算。
// 运费和订单总额属于整单，不返回给卖家。
type SellerOrderView struct {
	ID            string                   `json:"id"`
	TrackingID    string                   `json:"trackingId"`
	FirstName     string                   `json:"firstName"`
	LastName      string                   `json:"lastName"`
	Phone         string                   `json:"phone"`
	Email         string                   `json:"email"`
	HouseAddress  string                   `json:"houseAddress"`
	Items         []OrderItemView          `json:"items"`
	ItemsTotal    decimal.Decimal          `json:"itemsTotal"`
	SellerStatus  domain.ItemPaymentStatus `json:"sellerStatus"`
	PaymentMethod domain.PaymentMethod     `json:"paymentMethod"`
	PaymentStatus domain.PaymentStatus     `json:"paymentStatus"`
	Version       int64                    `json:"version"`
	CreatedAt     time.Time                `json:"createdAt"`
	UpdatedAt     time.Time                `json:"updatedAt"`
}

type SellerOrderListResponse struct {
	Orders []SellerOrderView `json:"orders"`
	Total  int64             `json:"total"`
	Page   int               `json:"page"`
	Limit  int               `json:"limit"`
}

// UpdateItemStatusRequest 是卖家结算的输入
type UpdateItemStatusRequest struct {
	Status string `json:"status"`
}

// UpdateItemStatusResponse 是卖家结算的输出
type UpdateItemStatusResponse struct {
	OrderID       string                   `json:"orderId"`
	SellerStatus  domain.ItemPaymentStatus `json:"sellerStatus"`
	PaymentStatus domain.PaymentStatus     `json:"paymentStatus"`
}

func toItemViews(items []domain.OrderItem) []OrderItemView {
	views := make([]OrderItemView, len(items))
	for i, it := range items {
		views[i] = OrderItemView{
			ProductID:         it.ProductID,
			Name:              it.Name,
			Price:             it.Price,
			Quantity:          it.Quantity,
			Image:             it.Image,
			StoreID:           it.StoreID,
			ItemPaymentStatus: it.ItemPaymentStatus,
		}
	}
	return views
}

// ToOrderView 从领域实体转换为客户视图
func ToOrderView(o *domain.Order) OrderView {
	return OrderView{
		ID:            o.ID,
		TrackingID:    o.TrackingID,
		CustomerID:    o.CustomerID,
		FirstName:     o.FirstName,
		LastName:      o.LastName,
		Phone:         o.Phone,
		Email:         o.Email,
		HouseAddress:  o.HouseAddress,
		Items:         toItemViews(o.Items),
		ItemsTotal:    o.ItemsTotal,
		ShippingFee:   o.ShippingFee,
		GrandTotal:    o.GrandTotal,
		PaymentMethod: o.PaymentMethod,
		PaymentStatus: o.PaymentStatus,
		Version:       o.Version,
		CreatedAt:     o.CreatedAt,
		UpdatedAt:     o.UpdatedAt,
	}
}

// ToSellerOrderView 只保留 storeID 的明细，itemsTotal 为本店铺小计。
// 订单不包含该店铺的明细时返回 false。
func ToSellerOrderView(o *domain.Order, storeID string) (SellerOrderView, bool) {
	own := o.ItemsOfStore(storeID)
	if len(own) == 0 {
		return SellerOrderView{}, false
	}
	return SellerOrderView{
		ID:            o.ID,
		TrackingID:    o.TrackingID,
		FirstName:     o.FirstName,
		LastName:      o.LastName,
		Phone:         o.Phone,
		Email:         o.Email,
		HouseAddress:  o.HouseAddress,
		Items:         toItemViews(own),
		ItemsTotal:    domain.Subtotal(own),
		SellerStatus:  domain.SellerStatus(own),
		PaymentMethod: o.PaymentMethod,
		PaymentStatus: o.PaymentStatus,
		Version:       o.Version,
		CreatedAt:     o.CreatedAt,
		UpdatedAt:     o.UpdatedAt,
	}, true
}
