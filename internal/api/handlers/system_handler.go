package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// Version 服务版本
const Version = "1.0.0"

// PoolStats Worker 池状态
type PoolStats interface {
	QueueDepth() int
	Workers() int
}

// DeviceLister 列出 ADB 可见的设备
type DeviceLister interface {
	Devices(ctx context.Context) (map[string]string, error)
}

// ComponentStatus 可选组件的状态快照
type ComponentStatus func() interface{}

// SystemHandler 健康检查与设备状态
type SystemHandler struct {
	pool       PoolStats
	devices    DeviceLister
	components map[string]ComponentStatus
	logger     *logrus.Logger
}

// NewSystemHandler 创建系统处理器，devices 可为 nil
func NewSystemHandler(pool PoolStats, devices DeviceLister, logger *logrus.Logger) *SystemHandler {
	return &SystemHandler{
		pool:       pool,
		devices:    devices,
		components: make(map[string]ComponentStatus),
		logger:     logger,
	}
}

// RegisterComponent 在健康检查中附带组件状态
func (h *SystemHandler) RegisterComponent(name string, status ComponentStatus) {
	h.components[name] = status
}

// Health GET /api/health
func (h *SystemHandler) Health(c *gin.Context) {
	resp := gin.H{
		"status":  "ok",
		"version": Version,
	}
	if h.pool != nil {
		resp["workers"] = h.pool.Workers()
		resp["queued_jobs"] = h.pool.QueueDepth()
	}
	if len(h.components) > 0 {
		components := gin.H{}
		for name, status := range h.components {
			components[name] = status()
		}
		resp["components"] = components
	}
	c.JSON(http.StatusOK, resp)
}

// ListDevices GET /api/devices
func (h *SystemHandler) ListDevices(c *gin.Context) {
	if h.devices == nil {
		respondOK(c, map[string]string{})
		return
	}

	devices, err := h.devices.Devices(c.Request.Context())
	if err != nil {
		h.logger.WithError(err).Error("Failed to list devices")
		respondError(c, http.StatusBadGateway, "failed to list devices")
		return
	}
	respondOK(c, devices)
}
