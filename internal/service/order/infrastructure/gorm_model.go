package infrastructure

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderModel 对应数据库中的 orders 表
type OrderModel struct {
	ID            string          `gorm:"primaryKey;type:char(36)"`
	TrackingID    string          `gorm:"type:varchar(16);not null;uniqueIndex:uk_orders_tracking_id"`
	CustomerID    string          `gorm:"type:varchar(64);not null;index:idx_orders_customer_created,priority:1"`
	FirstName     string          `gorm:"type:varchar(128);not null"`
	LastName      string          `gorm:"type:varchar(128);not null"`
	Phone         string          `gorm:"type:varchar(32);not null"`
	Email         string          `gorm:"type:varchar(255);not null"`
	HouseAddress  string          `gorm:"type:varchar(512);not null"`
	ItemsTotal    decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	ShippingFee   decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	GrandTotal    decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	PaymentMethod string          `gorm:"type:varchar(16);not null"`
	PaymentStatus string          `gorm:"type:varchar(16);not null;index"`
	Version       int64           `gorm:"not null;default:1"`
	CreatedAt     time.Time       `gorm:"index:idx_orders_customer_created,priority:2"`
	UpdatedAt     time.Time

	// 关联关系
	Items []OrderItemModel `gorm:"foreignKey:OrderID;references:ID;constraint:OnDelete:CASCADE"`
}

// TableName 指定 GORM 应该使用的表名
func (OrderModel) TableName() string {
	return "orders"
}

// OrderItemModel 对应数据库中的 order_items 表，Position 保留明细在订单中的顺序
type OrderItemModel struct {
	ID                uint            `gorm:"primaryKey;autoIncrement"`
	OrderID           string          `gorm:"type:char(36);not null;index:idx_order_items_order_store,priority:1"`
	Position          int             `gorm:"not null"`
	ProductID         string          `gorm:"type:varchar(64);not null"`
	Name              string          `gorm:"type:varchar(255);not null"`
	Price             decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	Quantity          int             `gorm:"not null"`
	Image             string          `gorm:"type:varchar(1024)"`
	StoreID           string          `gorm:"type:varchar(64);not null;index:idx_order_items_order_store,priority:2;index:idx_order_items_store"`
	ItemPaymentStatus string          `gorm:"type:varchar(16);not null"`
}

func (OrderItemModel) TableName() string {
	return "order_items"
}

// StoreModel 对应 stores 表（由店铺服务维护，这里只读）
type StoreModel struct {
	ID        string `gorm:"primaryKey;type:varchar(64)"`
	SellerID  string `gorm:"type:varchar(64);not null;uniqueIndex"`
	Name      string `gorm:"type:varchar(255)"`
	CreatedAt time.Time
}

func (StoreModel) TableName() string {
	return "stores"
}

// ProductModel 对应 products 表（只读）
type ProductModel struct {
	ID        string          `gorm:"primaryKey;type:varchar(64)"`
	StoreID   string          `gorm:"type:varchar(64);not null;index"`
	Name      string          `gorm:"type:varchar(255);not null"`
	Price     decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	Image     string          `gorm:"type:varchar(1024)"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (ProductModel) TableName() string {
	return "products"
}
