package handler

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/hewenyu/svc-hub/pkg/registry"
)

// MetricsHandler 指标处理器
type MetricsHandler struct {
	registry       registry.Registry
	metrics        *Metrics
	metricsLock    sync.RWMutex
	lastUpdateTime time.Time
}

// Metrics 注册中枢运行指标
type Metrics struct {
	ServiceCount      int                    `json:"service_count"`
	HealthyCount      int                    `json:"healthy_count"`
	UnhealthyCount    int                    `json:"unhealthy_count"`
	ResourceUsage     map[string]interface{} `json:"resource_usage"`
	LastCollectedTime time.Time              `json:"last_collected_time"`
}

// NewMetricsHandler 创建指标处理器
func NewMetricsHandler(reg registry.Registry) *MetricsHandler {
	handler := &MetricsHandler{
		registry:       reg,
		metrics:        &Metrics{},
		lastUpdateTime: time.Now(),
	}

	handler.updateMetrics()

	// 启动指标收集协程
	go handler.startMetricsCollector()

	return handler
}

// GetMetrics 获取注册中枢运行指标
func (h *MetricsHandler) GetMetrics(c echo.Context) error {
	// 距离上次采集超过5秒时重新采集
	if time.Since(h.lastUpdateTime) > 5*time.Second {
		h.updateMetrics()
	}

	h.metricsLock.RLock()
	metrics := h.metrics
	h.metricsLock.RUnlock()

	return c.JSON(http.StatusOK, ServiceResponse{
		Code:    http.StatusOK,
		Message: "success",
		Data:    metrics,
	})
}

// updateMetrics 采集服务计数和进程资源占用
func (h *MetricsHandler) updateMetrics() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	entries, err := h.registry.List(ctx, "")
	if err != nil {
		return
	}

	healthy := 0
	for _, entry := range entries {
		if entry.Record.Healthy {
			healthy++
		}
	}

	h.metricsLock.Lock()
	h.metrics.ServiceCount = len(entries)
	h.metrics.HealthyCount = healthy
	h.metrics.UnhealthyCount = len(entries) - healthy
	h.metrics.ResourceUsage = getResourceUsage()
	h.metrics.LastCollectedTime = time.Now()
	h.lastUpdateTime = time.Now()
	h.metricsLock.Unlock()
}

// startMetricsCollector 定期更新指标
func (h *MetricsHandler) startMetricsCollector() {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for range ticker.C {
		h.updateMetrics()
	}
}
