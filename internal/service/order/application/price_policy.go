package application

import (
	"context"

	"github.com/pkg/errors"

	"marketplace/internal/pkg/apperr"
	"marketplace/internal/pkg/config"
	"marketplace/internal/service/order/domain"
	"marketplace/internal/service/order/domain/port"
)

const (
	PricingTrust     = "trust"
	PricingRecompute = "recompute"
)

// PricePolicy 决定下单时的商品总额以谁为准。
// trust 模式直接接受客户端提交的 itemsTotal；recompute 模式以商品目录为准，
// 冻结目录中的价格与店铺，并用 PriceRule 判断提交值是否可以接受。
type PricePolicy struct {
	mode    string
	catalog port.CatalogService
	rule    port.PriceRule
}

func NewPricePolicy(cfg config.PricingConfig, catalog port.CatalogService, rule port.PriceRule) *PricePolicy {
	mode := cfg.Mode
	if mode == "" {
		mode = PricingTrust
	}
	return &PricePolicy{mode: mode, catalog: catalog, rule: rule}
}

func (p *PricePolicy) Mode() string {
	return p.mode
}

// Apply 就地修改 draft。
func (p *PricePolicy) Apply(ctx context.Context, d *domain.Draft) error {
	if p.mode != PricingRecompute {
		return nil
	}

	ids := make([]string, 0, len(d.Items))
	for _, it := range d.Items {
		ids = append(ids, it.ProductID)
	}
	products, err := p.catalog.Products(ctx, ids)
	if err != nil {
		return errors.Wrap(err, "load catalog prices")
	}

	for i := range d.Items {
		product, ok := products[d.Items[i].ProductID]
		if !ok {
			return apperr.Validation("unknown product " + d.Items[i].ProductID)
		}
		d.Items[i].Price = product.Price
		d.Items[i].StoreID = product.StoreID
		if d.Items[i].Name == "" {
			d.Items[i].Name = product.Name
		}
	}

	computed := domain.Subtotal(d.Items)
	accepted, err := p.rule.Accept(d.ItemsTotal, computed)
	if err != nil {
		return err
	}
	if !accepted {
		return apperr.Validation("itemsTotal " + d.ItemsTotal.StringFixed(2) + " does not match catalog total " + computed.StringFixed(2))
	}
	d.ItemsTotal = computed
	return nil
}
