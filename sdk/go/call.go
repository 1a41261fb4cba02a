package sdk

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
)

// CallRequest RPC转发请求
type CallRequest struct {
	Method string `json:"method"`
	Params any    `json:"params,omitempty"`
}

// RPCError 下游服务返回的JSON-RPC错误
type RPCError struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// Error 实现error接口
func (e *RPCError) Error() string {
	return fmt.Sprintf("RPC调用返回错误 [%d]: %s", e.Code, e.Message)
}

// rpcResponse 下游服务返回的JSON-RPC响应
type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *RPCError       `json:"error,omitempty"`
	ID      string          `json:"id"`
}

// Call 通过注册中枢向指定服务转发一次JSON-RPC调用
// 下游返回的JSON-RPC错误以*RPCError形式返回
func (c *Client) Call(ctx context.Context, service, method string, params any) (json.RawMessage, error) {
	if service == "" {
		return nil, fmt.Errorf("服务名称不能为空")
	}
	if method == "" {
		return nil, fmt.Errorf("方法名不能为空")
	}

	path := fmt.Sprintf("/api/v1/services/%s/rpc", url.PathEscape(service))
	status, body, err := c.doRaw(ctx, http.MethodPost, path, CallRequest{Method: method, Params: params})
	if err != nil {
		return nil, fmt.Errorf("RPC调用失败: %w", err)
	}

	// 非2xx时响应体是注册中枢的统一响应结构
	if status < http.StatusOK || status >= http.StatusMultipleChoices {
		var apiResp Response
		if err := json.Unmarshal(body, &apiResp); err == nil && apiResp.Message != "" {
			return nil, fmt.Errorf("RPC调用失败: %s (状态码: %d)", apiResp.Message, status)
		}
		return nil, fmt.Errorf("RPC调用失败 (状态码: %d): %s", status, string(body))
	}

	var rpcResp rpcResponse
	if err := json.Unmarshal(body, &rpcResp); err != nil {
		return nil, fmt.Errorf("解析RPC响应失败: %w, 响应内容: %s", err, string(body))
	}

	if rpcResp.Error != nil {
		return nil, rpcResp.Error
	}

	return rpcResp.Result, nil
}
