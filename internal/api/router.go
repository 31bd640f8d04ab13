package api

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/spyware-scanner/spyware-scanner-go/internal/api/handlers"
	"github.com/spyware-scanner/spyware-scanner-go/internal/config"
	"github.com/spyware-scanner/spyware-scanner-go/internal/middleware"
)

// Handlers 路由依赖的全部处理器
type Handlers struct {
	System      *handlers.SystemHandler
	Scan        *handlers.ScanHandler
	App         *handlers.AppHandler
	Threat      *handlers.ThreatHandler
	Alert       *handlers.AlertHandler
	Report      *handlers.ReportHandler
	Preferences *handlers.PreferencesHandler
	Progress    *handlers.ProgressHub
}

// SetupRouter 注册路由，promMetrics 和 memMonitor 可为 nil
func SetupRouter(cfg *config.Config, logger *logrus.Logger, h *Handlers, promMetrics *middleware.PrometheusMetrics, memMonitor *middleware.MemoryMonitor) *gin.Engine {
	// 设置 Gin 模式
	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	// 全局中间件
	r.Use(gin.Recovery())
	r.Use(LoggerMiddleware(logger))
	r.Use(CORSMiddleware())

	// Prometheus 监控中间件
	if promMetrics != nil {
		r.Use(promMetrics.HTTPMiddleware())
		r.GET("/metrics/prometheus", promMetrics.Handler())
	}
	if memMonitor != nil {
		r.GET("/metrics", memMonitor.MetricsEndpoint())
	}

	// 健康检查（无需认证）
	r.GET("/api/health", h.System.Health)

	auth := middleware.APIKeyAuth(cfg.Auth.APIKey)

	// 扫描进度推送
	r.GET("/ws/scans/:job_id", auth, h.Progress.HandleWebSocket)

	v1 := r.Group("/api", auth)
	{
		v1.GET("/devices", h.System.ListDevices)

		// 扫描
		v1.POST("/scans", h.Scan.StartScan)
		v1.GET("/scans", h.Scan.ListScans)
		v1.GET("/scans/latest", h.Scan.LatestScan)
		v1.GET("/scans/jobs/:job_id", h.Scan.GetJob)
		v1.GET("/scans/:id", h.Scan.GetScan)

		// 应用
		v1.GET("/apps", h.App.ListApps)
		v1.GET("/apps/threatening", h.App.ListThreateningApps)
		v1.GET("/apps/:package", h.App.GetApp)
		v1.GET("/apps/:package/removal-guide", h.App.RemovalGuide)
		v1.POST("/apps/:package/uninstall", h.App.UninstallApp)

		// 威胁
		v1.GET("/threats", h.Threat.ListThreats)
		v1.GET("/threats/unresolved", h.Threat.ListUnresolved)
		v1.GET("/threats/:id", h.Threat.GetThreat)
		v1.POST("/threats/:id/resolve", h.Threat.ResolveThreat)

		// 告警
		v1.GET("/alerts", h.Alert.ListAlerts)
		v1.DELETE("/alerts", h.Alert.DeleteAll)
		v1.GET("/alerts/unread", h.Alert.ListUnread)
		v1.GET("/alerts/unread/count", h.Alert.UnreadCount)
		v1.POST("/alerts/read-all", h.Alert.MarkAllRead)
		v1.POST("/alerts/:id/read", h.Alert.MarkRead)
		v1.DELETE("/alerts/:id", h.Alert.DeleteAlert)

		// 报告与权限说明
		v1.GET("/reports/:period", h.Report.GenerateReport)
		v1.GET("/permissions/:name", handlers.DescribePermission)

		// 偏好设置
		v1.GET("/preferences", h.Preferences.GetPreferences)
		v1.PUT("/preferences", h.Preferences.UpdatePreferences)
		v1.POST("/preferences/ignored/:package", h.Preferences.IgnorePackage)
		v1.DELETE("/preferences/ignored/:package", h.Preferences.UnignorePackage)
	}

	return r
}

// LoggerMiddleware 日志中间件
func LoggerMiddleware(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		startTime := time.Now()

		c.Next()

		logger.WithFields(logrus.Fields{
			"status":  c.Writer.Status(),
			"method":  c.Request.Method,
			"path":    c.Request.URL.Path,
			"latency": time.Since(startTime).Milliseconds(),
		}).Info("HTTP Request")
	}
}

// CORSMiddleware CORS 中间件
func CORSMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-API-Key")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}
