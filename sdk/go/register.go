package sdk

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
)

// RegisterRequest 服务注册请求
type RegisterRequest struct {
	Name     string         `json:"name"`
	URL      string         `json:"url"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// Register 向注册中枢注册本服务
// 重复注册同名服务会整体替换原有记录
func (c *Client) Register(ctx context.Context) error {
	if c.isRegistered {
		return fmt.Errorf("服务已注册: %s", c.config.ServiceName)
	}
	if c.config.ServiceName == "" {
		return fmt.Errorf("服务名称不能为空")
	}
	if c.config.ServiceURL == "" {
		return fmt.Errorf("服务URL不能为空")
	}

	req := RegisterRequest{
		Name:     c.config.ServiceName,
		URL:      c.config.ServiceURL,
		Metadata: c.config.Metadata,
	}

	_, err := c.doRequest(ctx, http.MethodPost, "/api/v1/services", req)
	if err != nil {
		return fmt.Errorf("服务注册失败: %w", err)
	}

	c.isRegistered = true
	return nil
}

// Deregister 从注册中枢注销本服务
func (c *Client) Deregister(ctx context.Context) error {
	if !c.isRegistered {
		return fmt.Errorf("服务尚未注册")
	}

	path := fmt.Sprintf("/api/v1/services/%s", url.PathEscape(c.config.ServiceName))
	if _, err := c.doRequest(ctx, http.MethodDelete, path, nil); err != nil {
		return fmt.Errorf("服务注销失败: %w", err)
	}

	c.isRegistered = false
	return nil
}

// IsRegistered 检查本服务是否已注册
func (c *Client) IsRegistered() bool {
	return c.isRegistered
}
