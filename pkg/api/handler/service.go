package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/hewenyu/svc-hub/pkg/registry"
)

// ServiceRequest 服务注册请求
type ServiceRequest struct {
	Name     string         `json:"name"`
	URL      string         `json:"url"`
	Metadata map[string]any `json:"metadata"`
}

// ServiceResponse 统一的API响应信封
type ServiceResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// ServiceHandler 处理服务注册相关API
type ServiceHandler struct {
	registry registry.Registry
}

// NewServiceHandler 创建服务处理器
func NewServiceHandler(reg registry.Registry) *ServiceHandler {
	return &ServiceHandler{
		registry: reg,
	}
}

// RegisterService 注册服务
func (h *ServiceHandler) RegisterService(c echo.Context) error {
	var req ServiceRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ServiceResponse{
			Code:    http.StatusBadRequest,
			Message: "请求参数无效: " + err.Error(),
		})
	}

	// 参数验证
	if req.Name == "" {
		return c.JSON(http.StatusBadRequest, ServiceResponse{
			Code:    http.StatusBadRequest,
			Message: "服务名称不能为空",
		})
	}
	if req.URL == "" {
		return c.JSON(http.StatusBadRequest, ServiceResponse{
			Code:    http.StatusBadRequest,
			Message: "服务地址不能为空",
		})
	}

	// 调用注册中枢注册服务
	record, err := h.registry.Register(c.Request().Context(), req.Name, req.URL, req.Metadata)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, ServiceResponse{
			Code:    http.StatusInternalServerError,
			Message: "服务注册失败: " + err.Error(),
		})
	}

	// 返回成功结果
	return c.JSON(http.StatusOK, ServiceResponse{
		Code:    http.StatusOK,
		Message: "服务注册成功",
		Data: map[string]interface{}{
			"service_id":    record.Name,
			"registered_at": record.RegisteredAt,
			"healthy":       record.Healthy,
		},
	})
}

// DeregisterService 注销服务
// 注销是幂等的，服务不存在时同样返回成功
func (h *ServiceHandler) DeregisterService(c echo.Context) error {
	name := c.Param("name")
	if name == "" {
		return c.JSON(http.StatusBadRequest, ServiceResponse{
			Code:    http.StatusBadRequest,
			Message: "服务名称不能为空",
		})
	}

	if err := h.registry.Unregister(c.Request().Context(), name); err != nil {
		return c.JSON(http.StatusInternalServerError, ServiceResponse{
			Code:    http.StatusInternalServerError,
			Message: "服务注销失败: " + err.Error(),
		})
	}

	return c.JSON(http.StatusOK, ServiceResponse{
		Code:    http.StatusOK,
		Message: "服务注销成功",
	})
}

// DiscoverService 查询单个服务
func (h *ServiceHandler) DiscoverService(c echo.Context) error {
	name := c.Param("name")
	if name == "" {
		return c.JSON(http.StatusBadRequest, ServiceResponse{
			Code:    http.StatusBadRequest,
			Message: "服务名称不能为空",
		})
	}

	record, err := h.registry.Discover(c.Request().Context(), name)
	if err != nil {
		if errors.Is(err, registry.ErrServiceNotFound) {
			return c.JSON(http.StatusNotFound, ServiceResponse{
				Code:    http.StatusNotFound,
				Message: err.Error(),
			})
		}
		return c.JSON(http.StatusInternalServerError, ServiceResponse{
			Code:    http.StatusInternalServerError,
			Message: "查询服务失败: " + err.Error(),
		})
	}

	return c.JSON(http.StatusOK, ServiceResponse{
		Code:    http.StatusOK,
		Message: "查询服务成功",
		Data:    record,
	})
}

// ListServices 按前缀列出服务
func (h *ServiceHandler) ListServices(c echo.Context) error {
	prefix := c.QueryParam("prefix")

	entries, err := h.registry.List(c.Request().Context(), prefix)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, ServiceResponse{
			Code:    http.StatusInternalServerError,
			Message: "列出服务失败: " + err.Error(),
		})
	}

	return c.JSON(http.StatusOK, ServiceResponse{
		Code:    http.StatusOK,
		Message: "列出服务成功",
		Data: map[string]interface{}{
			"services": entries,
			"count":    len(entries),
		},
	})
}

// CheckServiceHealth 对服务触发一次健康探测
// 探测失败体现在返回数据的healthy字段里，不影响HTTP状态码
func (h *ServiceHandler) CheckServiceHealth(c echo.Context) error {
	name := c.Param("name")
	if name == "" {
		return c.JSON(http.StatusBadRequest, ServiceResponse{
			Code:    http.StatusBadRequest,
			Message: "服务名称不能为空",
		})
	}

	result, err := h.registry.HealthCheck(c.Request().Context(), name)
	if err != nil {
		if errors.Is(err, registry.ErrServiceNotFound) {
			return c.JSON(http.StatusNotFound, ServiceResponse{
				Code:    http.StatusNotFound,
				Message: err.Error(),
			})
		}
		return c.JSON(http.StatusInternalServerError, ServiceResponse{
			Code:    http.StatusInternalServerError,
			Message: "健康探测失败: " + err.Error(),
		})
	}

	return c.JSON(http.StatusOK, ServiceResponse{
		Code:    http.StatusOK,
		Message: "健康探测完成",
		Data:    result,
	})
}
