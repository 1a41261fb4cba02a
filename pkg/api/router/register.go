// Package router 配置注册中枢的HTTP路由
package router

import (
	"github.com/labstack/echo/v4"

	"github.com/hewenyu/svc-hub/pkg/api/handler"
)

// RegisterRoutes 配置注册中枢相关路由
func RegisterRoutes(e *echo.Echo, serviceHandler *handler.ServiceHandler, relayHandler *handler.RelayHandler, healthHandler *handler.HealthHandler, metricsHandler *handler.MetricsHandler) {
	// API分组，版本v1
	api := e.Group("/api/v1")

	// 服务注册相关路由
	services := api.Group("/services")
	services.POST("", serviceHandler.RegisterService)
	services.GET("", serviceHandler.ListServices)
	services.GET("/:name", serviceHandler.DiscoverService)
	services.DELETE("/:name", serviceHandler.DeregisterService)
	services.POST("/:name/health-check", serviceHandler.CheckServiceHealth)
	services.POST("/:name/rpc", relayHandler.RelayCall)

	// 中枢自身健康检查
	api.GET("/health", healthHandler.HealthCheck)

	// 统计指标相关路由
	api.GET("/metrics", metricsHandler.GetMetrics)
}
