// internal/pkg/bootstrap/app.go
package bootstrap

import (
	"context"
	"net"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"marketplace/internal/pkg/config"
	"marketplace/internal/pkg/logger"
	"marketplace/internal/pkg/metrics"
	"marketplace/internal/pkg/nacos"
	"marketplace/internal/pkg/tracing"
)

// 关停流程的总超时
const shutdownTimeout = 10 * time.Second

type AppCtx struct {
	Mux    *http.ServeMux
	Config *config.Config
}

// AppInfo 包含了启动一个微服务所需的所有特定信息。
type AppInfo struct {
	ServiceName      string
	Port             int
	RegisterHandlers func(appCtx AppCtx) // 一个函数，允许每个服务注册自己独特的 HTTP 路由

	// Workers 是与 HTTP 服务并行运行的后台任务（如 Kafka 消费者），ctx 取消时应返回
	Workers []func(ctx context.Context) error

	// Closers 在关停时按注册的逆序执行（后进先出）
	Closers []func(ctx context.Context) error
}

// StartService 封装了所有微服务的通用启动和优雅关停逻辑。
// 收到 SIGINT/SIGTERM 或任一 worker 出错时返回。
func StartService(cfg *config.Config, info AppInfo) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 1. Tracer
	tp, err := tracing.InitTracerProvider(info.ServiceName, cfg.Infra.Jaeger.Endpoint, cfg.Infra.Jaeger.Enabled)
	if err != nil {
		return errors.Wrap(err, "failed to initialize tracer provider")
	}

	// 2. 服务注册（可选）
	var (
		namingClient *nacos.Client
		ip           string
	)
	if cfg.Infra.Nacos.Enabled {
		namingClient, err = nacos.NewNacosClient(cfg.Infra.Nacos)
		if err != nil {
			return errors.Wrap(err, "failed to initialize nacos client")
		}
		if ip, err = getOutboundIP(); err != nil {
			return errors.Wrap(err, "failed to get outbound IP address")
		}
		if err := namingClient.RegisterServiceInstance(info.ServiceName, ip, info.Port); err != nil {
			return err
		}
	}

	// 3. 创建 HTTP Server
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	mux.Handle("GET /metrics", metrics.Handler())
	if info.RegisterHandlers != nil {
		info.RegisterHandlers(AppCtx{Mux: mux, Config: cfg})
	}
	server := newHTTPServer(cfg.App, info.Port, mux)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.L().Info().Int("port", info.Port).Msgf("%s listening", info.ServiceName)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return errors.Wrapf(err, "could not listen on %s", server.Addr)
		}
		return nil
	})
	for _, worker := range info.Workers {
		worker := worker
		g.Go(func() error { return worker(gctx) })
	}

	// 4. 阻塞直到收到退出信号或某个组件失败
	<-gctx.Done()
	logger.L().Info().Msgf("Shutting down service %s...", info.ServiceName)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	// 5. 按顺序执行清理操作
	// a. 从 Nacos 注销服务
	if namingClient != nil {
		if err := namingClient.DeregisterServiceInstance(info.ServiceName, ip, info.Port); err != nil {
			logger.L().Error().Err(err).Msg("Error deregistering from Nacos")
		}
		namingClient.Close()
	}

	// b. 关闭 HTTP 服务器
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.L().Error().Err(err).Msg("Error shutting down http server")
	} else {
		logger.L().Info().Msg("HTTP server shut down.")
	}

	runErr := g.Wait()

	// c. 服务自己的资源（后进先出）
	for i := len(info.Closers) - 1; i >= 0; i-- {
		if err := info.Closers[i](shutdownCtx); err != nil {
			logger.L().Error().Err(err).Msg("Error closing resource")
		}
	}

	// d. 关闭 Tracer Provider，确保所有缓冲的 trace 都被发送出去
	if err := tp.Shutdown(shutdownCtx); err != nil {
		logger.L().Error().Err(err).Msg("Error shutting down tracer provider")
	}

	logger.L().Info().Msgf("Service %s gracefully shut down.", info.ServiceName)
	return runErr
}

// getOutboundIP 通过一次 UDP "连接" 找到出站网卡的地址，不会真正发包
func getOutboundIP() (string, error) {
	conn, err := net.Dial("udp", "8.8.8.8:80")
	if err != nil {
		return "", err
	}
	defer conn.Close()
	return conn.LocalAddr().(*net.UDPAddr).IP.String(), nil
}

// newHTTPServer 按 app.requestTimeout 限制单个请求的读写时间。
func newHTTPServer(app config.AppConfig, port int, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              ":" + strconv.Itoa(port),
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       app.RequestTimeout,
		WriteTimeout:      app.RequestTimeout,
	}
}
