package port

import (
	"context"

	"github.com/shopspring/decimal"
)

// Product 是商品目录中的一条只读记录。
type Product struct {
	ID      string
	Name    string
	Price   decimal.Decimal
	StoreID string
}

// CatalogService 是商品/店铺目录的出站端口。
type CatalogService interface {
	// StoreBySeller 返回卖家拥有的店铺 ID，不存在时返回包装了 apperr.ErrNotFound 的错误。
	StoreBySeller(ctx context.Context, sellerID string) (string, error)

	// Products 批量查询商品，缺失的 ID 不出现在结果里。
	Products(ctx context.Context, ids []string) (map[string]Product, error)
}
