package sdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Config SDK客户端配置
type Config struct {
	// 注册中枢地址，形如 host:port
	ServerAddr string `json:"server_addr"`
	// 本服务名称，注册与自检时使用
	ServiceName string `json:"service_name"`
	// 本服务的基础URL，注册时使用
	ServiceURL string `json:"service_url"`
	// 元数据
	Metadata map[string]any `json:"metadata"`
	// 自检循环的触发间隔
	HealthInterval time.Duration `json:"health_interval"`
	// 单次请求超时时间
	Timeout time.Duration `json:"timeout"`
	// 是否使用HTTPS
	Secure bool `json:"secure"`
	// API Token（经由网关访问时使用）
	ApiToken string `json:"api_token"`
}

// Client SDK客户端
type Client struct {
	config       *Config
	httpClient   *http.Client
	isRegistered bool
	stopChan     chan struct{}
}

// Response 注册中枢的统一响应结构
type Response struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// RegisterResponse 注册响应数据
type RegisterResponse struct {
	ServiceID    string    `json:"service_id"`
	RegisteredAt time.Time `json:"registered_at"`
	Healthy      bool      `json:"healthy"`
}

// NewClient 创建SDK客户端
func NewClient(config *Config) (*Client, error) {
	if config.ServerAddr == "" {
		return nil, fmt.Errorf("服务器地址不能为空")
	}

	// 设置默认值
	if config.HealthInterval == 0 {
		config.HealthInterval = 30 * time.Second
	}
	if config.Timeout == 0 {
		config.Timeout = 5 * time.Second
	}

	httpClient := &http.Client{
		Timeout: config.Timeout,
	}

	return &Client{
		config:     config,
		httpClient: httpClient,
	}, nil
}

// buildURL 构建API地址
func (c *Client) buildURL(path string) string {
	protocol := "http"
	if c.config.Secure {
		protocol = "https"
	}
	return fmt.Sprintf("%s://%s%s", protocol, c.config.ServerAddr, path)
}

// doRequest 发送HTTP请求并解析统一响应结构
func (c *Client) doRequest(ctx context.Context, method, path string, body interface{}) (*Response, error) {
	status, respBody, err := c.doRaw(ctx, method, path, body)
	if err != nil {
		return nil, err
	}

	var apiResp Response
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		return nil, fmt.Errorf("解析响应失败: %w, 响应内容: %s", err, string(respBody))
	}

	if status != http.StatusOK {
		return &apiResp, fmt.Errorf("API请求失败: %s (状态码: %d)", apiResp.Message, status)
	}

	return &apiResp, nil
}

// doRaw 发送HTTP请求并原样返回响应体
// RPC转发接口透传下游响应，不套统一响应结构，走这条路径
func (c *Client) doRaw(ctx context.Context, method, path string, body interface{}) (int, []byte, error) {
	url := c.buildURL(path)

	var bodyReader io.Reader
	if body != nil {
		bodyBytes, err := json.Marshal(body)
		if err != nil {
			return 0, nil, fmt.Errorf("序列化请求体失败: %w", err)
		}
		bodyReader = bytes.NewReader(bodyBytes)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
	if err != nil {
		return 0, nil, fmt.Errorf("创建HTTP请求失败: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	if c.config.ApiToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.config.ApiToken)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("发送HTTP请求失败: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, fmt.Errorf("读取响应体失败: %w", err)
	}

	return resp.StatusCode, respBody, nil
}
