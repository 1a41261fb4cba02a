package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/hewenyu/svc-hub/pkg/registry"
)

// RelayRequest RPC转发请求
type RelayRequest struct {
	Method string `json:"method"`
	Params any    `json:"params"`
}

// RelayHandler 处理JSON-RPC转发API
type RelayHandler struct {
	registry registry.Registry
}

// NewRelayHandler 创建RPC转发处理器
func NewRelayHandler(reg registry.Registry) *RelayHandler {
	return &RelayHandler{
		registry: reg,
	}
}

// RelayCall 把JSON-RPC调用转发给指定服务
// 下游响应原样透传，包括非200的状态码和JSON-RPC错误体
func (h *RelayHandler) RelayCall(c echo.Context) error {
	name := c.Param("name")
	if name == "" {
		return c.JSON(http.StatusBadRequest, ServiceResponse{
			Code:    http.StatusBadRequest,
			Message: "服务名称不能为空",
		})
	}

	var req RelayRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ServiceResponse{
			Code:    http.StatusBadRequest,
			Message: "请求参数无效: " + err.Error(),
		})
	}

	if req.Method == "" {
		return c.JSON(http.StatusBadRequest, ServiceResponse{
			Code:    http.StatusBadRequest,
			Message: "RPC方法不能为空",
		})
	}

	resp, err := h.registry.Call(c.Request().Context(), name, req.Method, req.Params)
	if err != nil {
		switch {
		case errors.Is(err, registry.ErrServiceNotFound):
			return c.JSON(http.StatusNotFound, ServiceResponse{
				Code:    http.StatusNotFound,
				Message: err.Error(),
			})
		case errors.Is(err, registry.ErrServiceUnhealthy):
			return c.JSON(http.StatusServiceUnavailable, ServiceResponse{
				Code:    http.StatusServiceUnavailable,
				Message: err.Error(),
			})
		case errors.Is(err, registry.ErrRelayFailed):
			return c.JSON(http.StatusBadGateway, ServiceResponse{
				Code:    http.StatusBadGateway,
				Message: err.Error(),
			})
		default:
			return c.JSON(http.StatusInternalServerError, ServiceResponse{
				Code:    http.StatusInternalServerError,
				Message: "RPC转发失败: " + err.Error(),
			})
		}
	}

	return c.JSONBlob(resp.StatusCode, resp.Body)
}
