package main

import (
	"context"

	"go.opentelemetry.io/otel"

	"marketplace/internal/pkg/auth"
	"marketplace/internal/pkg/bootstrap"
	"marketplace/internal/pkg/config"
	"marketplace/internal/pkg/database"
	"marketplace/internal/pkg/httpclient"
	"marketplace/internal/pkg/logger"
	"marketplace/internal/pkg/metrics"
	"marketplace/internal/pkg/mq"
	"marketplace/internal/pkg/redis"
	orderapp "marketplace/internal/service/order/application"
	"marketplace/internal/service/order/domain"
	"marketplace/internal/service/order/domain/port"
	"marketplace/internal/service/order/infrastructure"
	"marketplace/internal/service/order/infrastructure/adapter"
	"marketplace/internal/service/order/infrastructure/rule"
	orderhttp "marketplace/internal/service/order/interfaces"
	paymentapp "marketplace/internal/service/payment/application"
	"marketplace/internal/service/payment/gateway"
	paymenthttp "marketplace/internal/service/payment/interfaces"
)

// app 持有组装好的 handler 和需要在关停时释放的资源
type app struct {
	orderHandler   *orderhttp.OrderHandler
	sellerHandler  *orderhttp.SellerHandler
	paymentHandler *paymenthttp.PaymentHandler
	closers        []func(ctx context.Context) error
}

func (a *app) registerRoutes(appCtx bootstrap.AppCtx) {
	a.orderHandler.RegisterRoutes(appCtx.Mux)
	a.sellerHandler.RegisterRoutes(appCtx.Mux)
	a.paymentHandler.RegisterRoutes(appCtx.Mux)
}

func buildApp(ctx context.Context, cfg *config.Config) (*app, error) {
	a := &app{}
	tracer := otel.Tracer(cfg.App.ServiceName)
	m := metrics.NewServerMetrics("order_service", nil)

	// 1. 存储与商品目录
	var (
		orderRepo domain.OrderRepository
		catalog   port.CatalogService
	)
	switch cfg.App.StorageDriver {
	case "memory":
		orderRepo = infrastructure.NewMemoryOrderRepository()
		memCatalog, err := adapter.NewCatalogMemoryAdapterFromConfig(cfg.Catalog)
		if err != nil {
			return nil, err
		}
		catalog = memCatalog
		logger.L().Warn().Msg("using in-memory storage, data is lost on restart")
	default:
		db, err := database.OpenMySQL(ctx, cfg.Infra.MySQL)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func(context.Context) error { return database.Close(db) })
		orderRepo = infrastructure.NewGormOrderRepository(db)
		catalog = adapter.NewCatalogGormAdapter(db)

		if len(cfg.Infra.Redis.Addrs) > 0 {
			redisClient, err := redis.NewClient(ctx, cfg.Infra.Redis.Addrs, cfg.Infra.Redis.Password, cfg.Infra.Redis.Prefix)
			if err != nil {
				logger.L().Warn().Err(err).Msg("redis unavailable, catalog cache disabled")
			} else {
				a.closers = append(a.closers, func(context.Context) error { return redisClient.Close() })
				catalog = adapter.NewCatalogRedisAdapter(catalog, redisClient, cfg.Infra.Redis.CacheTTL)
			}
		}
	}

	// 2. 领域事件
	var publisher port.EventPublisher = adapter.NewEventLogAdapter()
	if len(cfg.Infra.Kafka.Brokers) > 0 {
		writer := mq.NewKafkaWriter(cfg.Infra.Kafka.Brokers, cfg.Infra.Kafka.OrderTopic)
		kafkaPublisher := adapter.NewEventKafkaAdapter(writer)
		a.closers = append(a.closers, func(context.Context) error { return kafkaPublisher.Close() })
		publisher = kafkaPublisher
	}
	events := orderapp.NewEventEmitter(publisher, m)

	// 3. 价格策略
	priceRule, err := rule.NewCELPriceRule(cfg.Pricing.AcceptRule)
	if err != nil {
		return nil, err
	}
	pricing := orderapp.NewPricePolicy(cfg.Pricing, catalog, priceRule)

	// 4. 支付网关
	merchant, err := gateway.NewMerchant(cfg.Gateway)
	if err != nil {
		return nil, err
	}
	if cfg.Gateway.IntegritySalt == "" {
		logger.L().Warn().Msg("gateway integrity salt is empty, callbacks cannot be trusted")
	}

	// 5. 认证
	verifier := auth.NewVerifier(cfg.Auth, httpclient.NewClient(tracer))

	// 6. 应用服务与接口层
	orderSvc := orderapp.NewOrderApplicationService(orderRepo, pricing, events, tracer, m, cfg.App.FrontendBaseURL)
	settlementSvc := orderapp.NewSettlementService(orderRepo, catalog, events, tracer, m)
	paymentSvc := paymentapp.NewPaymentService(orderRepo, merchant, events, tracer, m, cfg.App.FrontendBaseURL)

	a.orderHandler = orderhttp.NewOrderHandler(orderSvc, verifier, m)
	a.sellerHandler = orderhttp.NewSellerHandler(settlementSvc, verifier, m)
	a.paymentHandler = paymenthttp.NewPaymentHandler(paymentSvc, verifier, m)
	return a, nil
}
