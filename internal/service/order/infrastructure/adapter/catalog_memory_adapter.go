package adapter

import (
	"context"
	"sync"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"marketplace/internal/pkg/apperr"
	"marketplace/internal/pkg/config"
	"marketplace/internal/service/order/domain/port"
)

// CatalogMemoryAdapter 是进程内的商品目录，memory 存储驱动和测试使用。
type CatalogMemoryAdapter struct {
	mu       sync.RWMutex
	stores   map[string]string // sellerID -> storeID
	products map[string]port.Product
}

func NewCatalogMemoryAdapter() *CatalogMemoryAdapter {
	return &CatalogMemoryAdapter{
		stores:   make(map[string]string),
		products: make(map[string]port.Product),
	}
}

// NewCatalogMemoryAdapterFromConfig 用配置中的种子数据初始化目录。
func NewCatalogMemoryAdapterFromConfig(cfg config.CatalogConfig) (*CatalogMemoryAdapter, error) {
	c := NewCatalogMemoryAdapter()
	for _, s := range cfg.Stores {
		c.AddStore(s.SellerID, s.ID)
	}
	for _, p := range cfg.Products {
		price, err := decimal.NewFromString(p.Price)
		if err != nil {
			return nil, errors.Wrapf(err, "catalog product %s price", p.ID)
		}
		c.AddProduct(port.Product{ID: p.ID, Name: p.Name, Price: price, StoreID: p.StoreID})
	}
	return c, nil
}

func (c *CatalogMemoryAdapter) AddStore(sellerID, storeID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stores[sellerID] = storeID
}

func (c *CatalogMemoryAdapter) AddProduct(p port.Product) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.products[p.ID] = p
}

func (c *CatalogMemoryAdapter) StoreBySeller(_ context.Context, sellerID string) (string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	id, ok := c.stores[sellerID]
	if !ok {
		return "", apperr.NotFound("store not found for seller")
	}
	return id, nil
}

func (c *CatalogMemoryAdapter) Products(_ context.Context, ids []string) (map[string]port.Product, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string]port.Product, len(ids))
	for _, id := range ids {
		if p, ok := c.products[id]; ok {
			out[id] = p
		}
	}
	return out, nil
}
