package adapter

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"

	"marketplace/internal/pkg/logger"
	"marketplace/internal/pkg/redis"
	"marketplace/internal/service/order/domain/port"
)

// CatalogRedisAdapter 在另一个 CatalogService 前面加一层 Redis 读穿缓存。
// 同一个 key 的并发未命中由 singleflight 合并成一次回源。
// Redis 不可用时直接回源，不影响下单和结算。
// 回源使用脱离取消的 ctx：发起者取消请求不能连累共享同一次回源的其他调用方。
type CatalogRedisAdapter struct {
	next        port.CatalogService
	redisClient *redis.Client
	ttl         time.Duration
	group       singleflight.Group
}

func NewCatalogRedisAdapter(next port.CatalogService, redisClient *redis.Client, ttl time.Duration) *CatalogRedisAdapter {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &CatalogRedisAdapter{next: next, redisClient: redisClient, ttl: ttl}
}

type cachedProduct struct {
	ID      string          `json:"id"`
	Name    string          `json:"name"`
	Price   decimal.Decimal `json:"price"`
	StoreID string          `json:"storeId"`
}

func (a *CatalogRedisAdapter) StoreBySeller(ctx context.Context, sellerID string) (string, error) {
	key := a.redisClient.Key("store", "seller", sellerID)
	rdb := a.redisClient.GetClient()

	storeID, err := rdb.Get(ctx, key).Result()
	if err == nil {
		return storeID, nil
	}
	if !errors.Is(err, goredis.Nil) {
		logger.Ctx(ctx).Warn().Err(err).Str("key", key).Msg("catalog cache read failed, falling back")
	}

	v, err, _ := a.group.Do(key, func() (interface{}, error) {
		loadCtx := context.WithoutCancel(ctx)
		id, err := a.next.StoreBySeller(loadCtx, sellerID)
		if err != nil {
			return "", err
		}
		if err := rdb.Set(loadCtx, key, id, a.ttl).Err(); err != nil {
			logger.Ctx(ctx).Warn().Err(err).Str("key", key).Msg("catalog cache write failed")
		}
		return id, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

func (a *CatalogRedisAdapter) Products(ctx context.Context, ids []string) (map[string]port.Product, error) {
	out := make(map[string]port.Product, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	rdb := a.redisClient.GetClient()

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = a.redisClient.Key("product", id)
	}

	var misses []string
	values, err := rdb.MGet(ctx, keys...).Result()
	if err != nil {
		logger.Ctx(ctx).Warn().Err(err).Msg("catalog cache read failed, falling back")
		misses = append(misses, ids...)
	} else {
		for i, v := range values {
			s, ok := v.(string)
			if !ok {
				misses = append(misses, ids[i])
				continue
			}
			var p cachedProduct
			if err := json.Unmarshal([]byte(s), &p); err != nil {
				misses = append(misses, ids[i])
				continue
			}
			out[p.ID] = port.Product{ID: p.ID, Name: p.Name, Price: p.Price, StoreID: p.StoreID}
		}
	}
	if len(misses) == 0 {
		return out, nil
	}

	sort.Strings(misses)
	flightKey := a.redisClient.Key("products", strings.Join(misses, ","))
	v, err, _ := a.group.Do(flightKey, func() (interface{}, error) {
		loadCtx := context.WithoutCancel(ctx)
		loaded, err := a.next.Products(loadCtx, misses)
		if err != nil {
			return nil, err
		}
		pipe := rdb.Pipeline()
		for id, p := range loaded {
			data, _ := json.Marshal(cachedProduct{ID: p.ID, Name: p.Name, Price: p.Price, StoreID: p.StoreID})
			pipe.Set(loadCtx, a.redisClient.Key("product", id), data, a.ttl)
		}
		if _, err := pipe.Exec(loadCtx); err != nil {
			logger.Ctx(ctx).Warn().Err(err).Msg("catalog cache write failed")
		}
		return loaded, nil
	})
	if err != nil {
		return nil, err
	}
	for id, p := range v.(map[string]port.Product) {
		out[id] = p
	}
	return out, nil
}
