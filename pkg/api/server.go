// Package api 提供注册中枢的HTTP接入层
package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/hewenyu/svc-hub/pkg/api/handler"
	"github.com/hewenyu/svc-hub/pkg/api/router"
	"github.com/hewenyu/svc-hub/pkg/config"
	"github.com/hewenyu/svc-hub/pkg/registry"
)

// Server 表示注册中枢的HTTP API服务
type Server struct {
	e      *echo.Echo
	host   string
	port   int
	logger config.Logger
}

// NewServer 创建HTTP API服务
func NewServer(reg registry.Registry, cfg *config.Config, logger config.Logger) *Server {
	// 创建Echo实例
	e := echo.New()
	e.HideBanner = true

	// 添加中间件
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	// 配置了限流阈值时启用请求限流
	if cfg.Server.RateLimit > 0 {
		e.Use(middleware.RateLimiter(
			middleware.NewRateLimiterMemoryStore(rate.Limit(cfg.Server.RateLimit))))
	}

	// 创建处理器并注册路由
	serviceHandler := handler.NewServiceHandler(reg)
	relayHandler := handler.NewRelayHandler(reg)
	healthHandler := handler.NewHealthHandler(reg)
	metricsHandler := handler.NewMetricsHandler(reg)
	router.RegisterRoutes(e, serviceHandler, relayHandler, healthHandler, metricsHandler)

	return &Server{
		e:      e,
		host:   cfg.Server.ListenAddress,
		port:   cfg.Server.Port,
		logger: logger,
	}
}

// Start 以非阻塞方式启动服务
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.host, s.port)
	s.logger.Info("HTTP API服务启动", zap.String("addr", addr))

	go func() {
		if err := s.e.Start(addr); err != nil && err != http.ErrServerClosed {
			s.logger.Fatal("HTTP API服务启动失败", zap.Error(err))
		}
	}()

	return nil
}

// Shutdown 优雅关闭服务
func (s *Server) Shutdown(ctx context.Context) error {
	return s.e.Shutdown(ctx)
}
