package sdk

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// ServiceInfo 注册中枢返回的服务记录
type ServiceInfo struct {
	Name            string         `json:"name"`
	URL             string         `json:"url"`
	Metadata        map[string]any `json:"metadata"`
	RegisteredAt    time.Time      `json:"registered_at"`
	LastHealthCheck *time.Time     `json:"last_health_check,omitempty"`
	Healthy         bool           `json:"healthy"`
}

// HealthResult 服务端探测的结果
type HealthResult struct {
	Name      string    `json:"name"`
	Healthy   bool      `json:"healthy"`
	CheckedAt time.Time `json:"checked_at"`
	Error     string    `json:"error,omitempty"`
}

// listData 列表接口的响应数据
type listData struct {
	Services []ServiceInfo `json:"services"`
	Count    int           `json:"count"`
}

// Discover 查询单个服务的注册记录
func (c *Client) Discover(ctx context.Context, name string) (*ServiceInfo, error) {
	path := fmt.Sprintf("/api/v1/services/%s", url.PathEscape(name))
	resp, err := c.doRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, fmt.Errorf("查询服务失败: %w", err)
	}

	var info ServiceInfo
	if err := json.Unmarshal(resp.Data, &info); err != nil {
		return nil, fmt.Errorf("解析服务记录失败: %w", err)
	}

	return &info, nil
}

// List 按名称前缀列出服务，prefix为空时列出全部
func (c *Client) List(ctx context.Context, prefix string) ([]ServiceInfo, error) {
	path := "/api/v1/services"
	if prefix != "" {
		path += "?prefix=" + url.QueryEscape(prefix)
	}

	resp, err := c.doRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, fmt.Errorf("列出服务失败: %w", err)
	}

	var data listData
	if err := json.Unmarshal(resp.Data, &data); err != nil {
		return nil, fmt.Errorf("解析服务列表失败: %w", err)
	}

	return data.Services, nil
}

// HealthCheck 触发注册中枢对指定服务做一次健康探测
// 探测失败不是调用失败，结果以HealthResult返回
func (c *Client) HealthCheck(ctx context.Context, name string) (*HealthResult, error) {
	path := fmt.Sprintf("/api/v1/services/%s/health-check", url.PathEscape(name))
	resp, err := c.doRequest(ctx, http.MethodPost, path, nil)
	if err != nil {
		return nil, fmt.Errorf("健康检查请求失败: %w", err)
	}

	var result HealthResult
	if err := json.Unmarshal(resp.Data, &result); err != nil {
		return nil, fmt.Errorf("解析健康检查结果失败: %w", err)
	}

	return &result, nil
}
