package integration

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/hewenyu/svc-hub/pkg/api/handler"
	"github.com/hewenyu/svc-hub/pkg/api/router"
	"github.com/hewenyu/svc-hub/pkg/registry"
	"github.com/hewenyu/svc-hub/pkg/store/memory"
)

// MockLogger 测试用的空日志实现
type MockLogger struct{}

func (l *MockLogger) Debug(msg string, fields ...zapcore.Field) {}
func (l *MockLogger) Info(msg string, fields ...zapcore.Field)  {}
func (l *MockLogger) Warn(msg string, fields ...zapcore.Field)  {}
func (l *MockLogger) Error(msg string, fields ...zapcore.Field) {}
func (l *MockLogger) Fatal(msg string, fields ...zapcore.Field) {}

// TestHub 测试用的完整注册中枢
type TestHub struct {
	Server   *httptest.Server
	Registry registry.Registry
}

// NewTestHub 以内存后端拉起完整的注册中枢
func NewTestHub() *TestHub {
	st := memory.NewMemoryStore()
	prober := registry.NewHealthProber(2*time.Second, "/health")
	relay := registry.NewRPCRelay(2 * time.Second)
	reg := registry.NewCoordinator(st, prober, relay, 0, &MockLogger{})

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())

	router.RegisterRoutes(e,
		handler.NewServiceHandler(reg),
		handler.NewRelayHandler(reg),
		handler.NewHealthHandler(reg),
		handler.NewMetricsHandler(reg))

	return &TestHub{
		Server:   httptest.NewServer(e),
		Registry: reg,
	}
}

// Close 关闭测试服务器
func (th *TestHub) Close() {
	th.Server.Close()
}

// newDownstream 启动一个可切换健康状态的JSON-RPC下游服务
func newDownstream(healthy *atomic.Bool) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/health":
			if healthy.Load() {
				w.WriteHeader(http.StatusOK)
			} else {
				w.WriteHeader(http.StatusServiceUnavailable)
			}
		case "/rpc":
			var req struct {
				JSONRPC string          `json:"jsonrpc"`
				Method  string          `json:"method"`
				Params  json.RawMessage `json:"params"`
				ID      string          `json:"id"`
			}
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				w.WriteHeader(http.StatusBadRequest)
				return
			}
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(map[string]any{
				"jsonrpc": "2.0",
				"result":  map[string]string{"method": req.Method},
				"id":      req.ID,
			})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
}

// postJSON 发送POST请求并解析统一响应结构
func postJSON(t *testing.T, url string, body any) (*http.Response, *handler.ServiceResponse) {
	t.Helper()

	var reader *bytes.Buffer
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewBuffer(data)
	} else {
		reader = bytes.NewBuffer(nil)
	}

	resp, err := http.Post(url, "application/json", reader)
	require.NoError(t, err, "发送请求失败")

	var result handler.ServiceResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&result), "解析响应失败")
	resp.Body.Close()
	return resp, &result
}

// doRequest 发送无请求体的请求并解析统一响应结构
func doRequest(t *testing.T, method, url string) (*http.Response, *handler.ServiceResponse) {
	t.Helper()

	req, err := http.NewRequest(method, url, nil)
	require.NoError(t, err)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err, "发送请求失败")

	var result handler.ServiceResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&result), "解析响应失败")
	resp.Body.Close()
	return resp, &result
}

// TestServiceLifecycle 走完一个服务从注册到注销的完整生命周期
func TestServiceLifecycle(t *testing.T) {
	hub := NewTestHub()
	defer hub.Close()

	var healthy atomic.Bool
	healthy.Store(true)
	downstream := newDownstream(&healthy)
	defer downstream.Close()

	baseURL := hub.Server.URL + "/api/v1/services"

	t.Run("Register", func(t *testing.T) {
		resp, result := postJSON(t, baseURL, map[string]any{
			"name":     "order-service",
			"url":      downstream.URL,
			"metadata": map[string]any{"version": "1.0.0"},
		})
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Contains(t, result.Message, "服务注册成功")

		data := result.Data.(map[string]interface{})
		assert.Equal(t, "order-service", data["service_id"])
		assert.Equal(t, true, data["healthy"], "新注册的服务应为健康状态")
	})

	t.Run("Discover", func(t *testing.T) {
		resp, result := doRequest(t, http.MethodGet, baseURL+"/order-service")
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		data := result.Data.(map[string]interface{})
		assert.Equal(t, downstream.URL, data["url"], "URL不匹配")
		assert.Nil(t, data["last_health_check"], "尚未探测时不应有探测时间")
	})

	t.Run("List", func(t *testing.T) {
		resp, result := doRequest(t, http.MethodGet, baseURL+"?prefix=order-")
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		data := result.Data.(map[string]interface{})
		assert.Equal(t, float64(1), data["count"], "服务数量不匹配")
	})

	t.Run("HealthCheckHealthy", func(t *testing.T) {
		resp, result := postJSON(t, baseURL+"/order-service/health-check", nil)
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		data := result.Data.(map[string]interface{})
		assert.Equal(t, true, data["healthy"], "探测应判定为健康")
	})

	t.Run("RelayCall", func(t *testing.T) {
		data, err := json.Marshal(map[string]any{"method": "order.query"})
		require.NoError(t, err)

		resp, err := http.Post(baseURL+"/order-service/rpc", "application/json", bytes.NewBuffer(data))
		require.NoError(t, err, "发送RPC请求失败")
		defer resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		// 响应是下游JSON-RPC响应的原样透传
		var rpcResp struct {
			JSONRPC string            `json:"jsonrpc"`
			Result  map[string]string `json:"result"`
			ID      string            `json:"id"`
		}
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&rpcResp), "解析RPC响应失败")
		assert.Equal(t, "2.0", rpcResp.JSONRPC)
		assert.Equal(t, "order.query", rpcResp.Result["method"], "下游应收到转发的方法名")
		assert.NotEmpty(t, rpcResp.ID, "转发请求应带有id")
	})

	t.Run("UnhealthyBlocksRelay", func(t *testing.T) {
		// 下游开始返回503，探测把服务标记为不健康
		healthy.Store(false)

		resp, result := postJSON(t, baseURL+"/order-service/health-check", nil)
		assert.Equal(t, http.StatusOK, resp.StatusCode, "探测失败不是接口失败")
		data := result.Data.(map[string]interface{})
		assert.Equal(t, false, data["healthy"], "探测应判定为不健康")
		assert.NotEmpty(t, data["error"], "不健康时应有错误信息")

		// 不健康的服务拒绝转发
		resp, result = postJSON(t, baseURL+"/order-service/rpc", map[string]any{"method": "order.query"})
		assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode, "不健康的服务应返回503")
		assert.Contains(t, result.Message, "不健康", "错误信息应说明服务不健康")
	})

	t.Run("RecoverAndRelay", func(t *testing.T) {
		// 下游恢复后一次成功探测重新放行转发
		healthy.Store(true)

		_, result := postJSON(t, baseURL+"/order-service/health-check", nil)
		data := result.Data.(map[string]interface{})
		require.Equal(t, true, data["healthy"], "恢复后的探测应判定为健康")

		reqData, err := json.Marshal(map[string]any{"method": "order.query"})
		require.NoError(t, err)
		resp, err := http.Post(baseURL+"/order-service/rpc", "application/json", bytes.NewBuffer(reqData))
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode, "恢复后应允许转发")
	})

	t.Run("ReRegisterResetsHealth", func(t *testing.T) {
		healthy.Store(false)
		postJSON(t, baseURL+"/order-service/health-check", nil)

		// 重新注册整体替换记录并重置健康状态
		_, result := postJSON(t, baseURL, map[string]any{
			"name": "order-service",
			"url":  downstream.URL,
		})
		data := result.Data.(map[string]interface{})
		assert.Equal(t, true, data["healthy"], "重新注册应重置为健康状态")

		_, result = doRequest(t, http.MethodGet, baseURL+"/order-service")
		data = result.Data.(map[string]interface{})
		assert.Nil(t, data["last_health_check"], "重新注册应清空探测时间")
		healthy.Store(true)
	})

	t.Run("Deregister", func(t *testing.T) {
		resp, result := doRequest(t, http.MethodDelete, baseURL+"/order-service")
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Contains(t, result.Message, "服务注销成功")

		resp, _ = doRequest(t, http.MethodGet, baseURL+"/order-service")
		assert.Equal(t, http.StatusNotFound, resp.StatusCode, "注销后服务不应再可见")

		// 重复注销静默成功
		resp, _ = doRequest(t, http.MethodDelete, baseURL+"/order-service")
		assert.Equal(t, http.StatusOK, resp.StatusCode, "重复注销应幂等")
	})
}

// TestRelayFailures 覆盖转发的失败路径
func TestRelayFailures(t *testing.T) {
	hub := NewTestHub()
	defer hub.Close()

	baseURL := hub.Server.URL + "/api/v1/services"

	t.Run("UnknownService", func(t *testing.T) {
		resp, result := postJSON(t, baseURL+"/nobody/rpc", map[string]any{"method": "ping"})
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
		assert.Contains(t, result.Message, "服务不存在")
	})

	t.Run("UnreachableDownstream", func(t *testing.T) {
		// 注册指向已关闭地址的服务，记录仍是健康状态
		dead := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		deadURL := dead.URL
		dead.Close()

		resp, _ := postJSON(t, baseURL, map[string]any{"name": "ghost", "url": deadURL})
		require.Equal(t, http.StatusOK, resp.StatusCode)

		// 传输失败映射为502
		resp, result := postJSON(t, baseURL+"/ghost/rpc", map[string]any{"method": "ping"})
		assert.Equal(t, http.StatusBadGateway, resp.StatusCode, "下游不可达应返回502")
		assert.Contains(t, result.Message, "转发失败")

		// 转发失败不改写健康标志
		_, result = doRequest(t, http.MethodGet, baseURL+"/ghost")
		data := result.Data.(map[string]interface{})
		assert.Equal(t, true, data["healthy"], "转发失败不应改变健康标志")
	})

	t.Run("MissingMethod", func(t *testing.T) {
		resp, _ := postJSON(t, baseURL+"/ghost/rpc", map[string]any{})
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, "缺少方法名应返回400")
	})
}

// TestHubHealth 检查注册中枢自身的健康端点
func TestHubHealth(t *testing.T) {
	hub := NewTestHub()
	defer hub.Close()

	resp, err := http.Get(hub.Server.URL + "/api/v1/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var result map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
	assert.Equal(t, "healthy", result["status"], "注册中枢应报告健康")
}
