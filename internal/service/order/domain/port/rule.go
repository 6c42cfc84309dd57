package port

import "github.com/shopspring/decimal"

// PriceRule 决定客户端提交的商品总额能否被接受。
// computed 是按商品目录价格算出的 Σ price × quantity。
type PriceRule interface {
	Accept(submitted, computed decimal.Decimal) (bool, error)
}
