package adapter

import (
	"context"
	"errors"

	pkgerrors "github.com/pkg/errors"
	"gorm.io/gorm"

	"marketplace/internal/pkg/apperr"
	"marketplace/internal/service/order/domain/port"
	"marketplace/internal/service/order/infrastructure"
)

// CatalogGormAdapter 是 port.CatalogService 的 MySQL 实现，只读 stores/products 表。
type CatalogGormAdapter struct {
	db *gorm.DB
}

func NewCatalogGormAdapter(db *gorm.DB) *CatalogGormAdapter {
	return &CatalogGormAdapter{db: db}
}

func (a *CatalogGormAdapter) StoreBySeller(ctx context.Context, sellerID string) (string, error) {
	var store infrastructure.StoreModel
	err := a.db.WithContext(ctx).Select("id").Where("seller_id = ?", sellerID).First(&store).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", apperr.NotFound("store not found for seller")
		}
		return "", pkgerrors.Wrap(err, "find store by seller")
	}
	return store.ID, nil
}

func (a *CatalogGormAdapter) Products(ctx context.Context, ids []string) (map[string]port.Product, error) {
	out := make(map[string]port.Product, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var models []infrastructure.ProductModel
	if err := a.db.WithContext(ctx).Where("id IN ?", ids).Find(&models).Error; err != nil {
		return nil, pkgerrors.Wrap(err, "find products")
	}
	for i := range models {
		out[models[i].ID] = infrastructure.ToPortProduct(&models[i])
	}
	return out, nil
}
