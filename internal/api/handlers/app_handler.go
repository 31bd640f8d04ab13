package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/spyware-scanner/spyware-scanner-go/internal/provider"
	"github.com/spyware-scanner/spyware-scanner-go/internal/service"
)

// DeviceResolver 按设备序列号连接提供者
type DeviceResolver interface {
	ForDevice(ctx context.Context, device string) (provider.MetadataProvider, error)
}

// UninstallRequest 卸载请求体
type UninstallRequest struct {
	Device string `json:"device"`
}

// AppHandler 应用处理器
type AppHandler struct {
	scans   service.ScanService
	threats service.ThreatService
	devices DeviceResolver
	logger  *logrus.Logger
}

// NewAppHandler 创建应用处理器
func NewAppHandler(scans service.ScanService, threats service.ThreatService, devices DeviceResolver, logger *logrus.Logger) *AppHandler {
	return &AppHandler{
		scans:   scans,
		threats: threats,
		devices: devices,
		logger:  logger,
	}
}

// ListApps 最近一次扫描的全部应用，按风险分降序
// GET /api/apps
func (h *AppHandler) ListApps(c *gin.Context) {
	apps, err := h.scans.ListApps(c.Request.Context())
	if err != nil {
		h.logger.WithError(err).Error("Failed to list apps")
		respondError(c, http.StatusInternalServerError, "failed to list apps")
		return
	}
	respondOK(c, apps)
}

// ListThreateningApps 威胁等级非 SAFE 且未忽略的应用
// GET /api/apps/threatening
func (h *AppHandler) ListThreateningApps(c *gin.Context) {
	apps, err := h.scans.ListThreateningApps(c.Request.Context())
	if err != nil {
		h.logger.WithError(err).Error("Failed to list threatening apps")
		respondError(c, http.StatusInternalServerError, "failed to list apps")
		return
	}
	respondOK(c, apps)
}

// GetApp 应用详情及其威胁记录
// GET /api/apps/:package
func (h *AppHandler) GetApp(c *gin.Context) {
	pkg := c.Param("package")
	ctx := c.Request.Context()

	app, err := h.scans.GetApp(ctx, pkg)
	if err != nil {
		respondError(c, statusForError(err), "app not found")
		return
	}

	threats, err := h.threats.ListByPackage(ctx, pkg)
	if err != nil {
		h.logger.WithError(err).WithField("package", pkg).Error("Failed to list app threats")
		respondError(c, http.StatusInternalServerError, "failed to list threats")
		return
	}

	respondOK(c, gin.H{
		"app":     app,
		"threats": threats,
	})
}

// RemovalGuide 卸载指引
// GET /api/apps/:package/removal-guide
func (h *AppHandler) RemovalGuide(c *gin.Context) {
	guide, err := h.threats.RemovalGuide(c.Request.Context(), c.Param("package"))
	if err != nil {
		h.logger.WithError(err).Error("Failed to build removal guide")
		respondError(c, http.StatusInternalServerError, "failed to build removal guide")
		return
	}
	respondOK(c, guide)
}

// UninstallApp 通过 ADB 卸载应用并处置其威胁
// POST /api/apps/:package/uninstall {"device":"emulator-5554"}
func (h *AppHandler) UninstallApp(c *gin.Context) {
	pkg := c.Param("package")

	var req UninstallRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, http.StatusBadRequest, "invalid request body: "+err.Error())
			return
		}
	}

	ctx := c.Request.Context()
	p, err := h.devices.ForDevice(ctx, req.Device)
	if err != nil {
		h.logger.WithError(err).WithField("device", req.Device).Warn("Failed to connect device")
		respondError(c, statusForError(err), err.Error())
		return
	}

	resolved, err := h.threats.UninstallApp(ctx, p, pkg)
	if err != nil {
		respondError(c, statusForError(err), err.Error())
		return
	}

	respondOK(c, gin.H{
		"package_name":     pkg,
		"threats_resolved": resolved,
	})
}
