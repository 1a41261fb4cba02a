package registry

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hewenyu/svc-hub/pkg/model"
)

// rpcPath JSON-RPC请求在下游服务上的固定路径
const rpcPath = "/rpc"

// RelayResponse 表示下游服务返回的原始响应
// 响应体不做JSON-RPC层面的校验，原样透传给调用方
type RelayResponse struct {
	StatusCode int
	Body       []byte
}

// RPCRelay 负责把JSON-RPC 2.0调用转发给下游服务
type RPCRelay struct {
	client *http.Client
}

// NewRPCRelay 创建RPC转发器
func NewRPCRelay(timeout time.Duration) *RPCRelay {
	return &RPCRelay{
		client: &http.Client{Timeout: timeout},
	}
}

// Call 向下游服务发起一次JSON-RPC调用
// 只有网络层面的失败会返回错误，下游的任何HTTP响应都视为调用完成
func (r *RPCRelay) Call(ctx context.Context, baseURL, method string, params any) (*RelayResponse, error) {
	rpcReq := &model.RPCRequest{
		JSONRPC: model.JSONRPCVersion,
		Method:  method,
		Params:  params,
		ID:      uuid.New().String(),
	}

	body, err := json.Marshal(rpcReq)
	if err != nil {
		return nil, fmt.Errorf("序列化RPC请求失败: %w", err)
	}

	url := strings.TrimSuffix(baseURL, "/") + rpcPath
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("构造RPC请求失败: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("RPC请求失败: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("读取RPC响应失败: %w", err)
	}

	return &RelayResponse{
		StatusCode: resp.StatusCode,
		Body:       respBody,
	}, nil
}
