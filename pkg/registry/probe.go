package registry

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// HealthProber 负责对注册的服务发起HTTP健康探测
type HealthProber struct {
	client    *http.Client
	probePath string
}

// NewHealthProber 创建健康探测器
func NewHealthProber(timeout time.Duration, probePath string) *HealthProber {
	if probePath == "" {
		probePath = "/health"
	}
	if !strings.HasPrefix(probePath, "/") {
		probePath = "/" + probePath
	}

	return &HealthProber{
		client:    &http.Client{Timeout: timeout},
		probePath: probePath,
	}
}

// Probe 对服务发起一次健康探测，返回nil表示服务健康
// 2xx以外的状态码和网络失败都视为不健康
func (p *HealthProber) Probe(ctx context.Context, baseURL string) error {
	url := strings.TrimSuffix(baseURL, "/") + p.probePath

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("构造探测请求失败: %w", err)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("健康探测请求失败: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("健康探测返回异常状态码: %d", resp.StatusCode)
	}

	return nil
}
