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

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"storefront/internal/pkg/logger"
	"storefront/internal/pkg/middleware"
	"storefront/internal/pkg/nacos"
	"storefront/internal/tracing"
)

const shutdownTimeout = 10 * time.Second

type AppCtx struct {
	Router chi.Router
}

// AppInfo 包含了启动服务所需的所有特定信息。
type AppInfo struct {
	ServiceName      string
	Port             int
	RegisterHandlers func(appCtx AppCtx) // 允许服务注册自己的 HTTP 路由
	// Cleanup 在 HTTP 服务器关闭后按注册的逆序执行（关闭 DB、Kafka writer 等）
	Cleanup []func(ctx context.Context) error
}

// StartService 封装了通用的启动和优雅关停逻辑，阻塞直到收到 SIGINT/SIGTERM。
func StartService(info AppInfo) error {
	cfg := GetCurrentConfig()
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tp, err := tracing.InitTracerProvider(info.ServiceName, cfg.Infra.Jaeger.Endpoint)
	if err != nil {
		return errors.Wrap(err, "initialize tracer provider")
	}

	router := chi.NewRouter()
	router.Use(chimw.RequestID, chimw.Recoverer, middleware.Tracing(info.ServiceName), middleware.RequestLogger)
	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	router.Handle("/metrics", promhttp.Handler())
	if info.RegisterHandlers != nil {
		info.RegisterHandlers(AppCtx{Router: router})
	}

	server := &http.Server{
		Addr:              ":" + strconv.Itoa(info.Port),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	// 服务注册是可选的，未配置 Nacos 时跳过
	var registry *nacos.Client
	var ip string
	if cfg.Infra.Nacos.ServerAddrs != "" {
		registry, err = nacos.NewNacosClient(cfg.Infra.Nacos.ServerAddrs, cfg.Infra.Nacos.Namespace, cfg.Infra.Nacos.Group)
		if err != nil {
			return errors.Wrap(err, "initialize nacos client")
		}
		if ip, err = getOutboundIP(); err != nil {
			return errors.Wrap(err, "resolve outbound ip")
		}
		if err := registry.RegisterServiceInstance(info.ServiceName, ip, info.Port); err != nil {
			return err
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Ctx(ctx).Info().Msgf("%s listening on :%d", info.ServiceName, info.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return errors.Wrapf(err, "listen on %s", server.Addr)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Ctx(ctx).Info().Msgf("Shutting down service %s...", info.ServiceName)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		// 先从注册中心摘除，再停止接收流量
		if registry != nil {
			if err := registry.DeregisterServiceInstance(info.ServiceName, ip, info.Port); err != nil {
				logger.Ctx(ctx).Error().Err(err).Msg("Error deregistering from Nacos")
			}
		}
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Ctx(ctx).Error().Err(err).Msg("Error shutting down http server")
		}
		for i := len(info.Cleanup) - 1; i >= 0; i-- {
			if err := info.Cleanup[i](shutdownCtx); err != nil {
				logger.Ctx(ctx).Error().Err(err).Msg("Error during cleanup")
			}
		}
		// 最后关闭 TracerProvider，确保缓冲的 span 都被发送出去
		if err := tp.Shutdown(shutdownCtx); err != nil {
			logger.Ctx(ctx).Error().Err(err).Msg("Error shutting down tracer provider")
		}
		return nil
	})

	err = g.Wait()
	logger.Ctx(ctx).Info().Msgf("Service %s gracefully shut down.", info.ServiceName)
	return err
}

// getOutboundIP 获取本机对外通信使用的 IP，用于服务注册
func getOutboundIP() (string, error) {
	conn, err := net.Dial("udp", "8.8.8.8:80")
	if err != nil {
		return "", err
	}
	defer conn.Close()
	return conn.LocalAddr().(*net.UDPAddr).IP.String(), nil
}
