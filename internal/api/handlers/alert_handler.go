package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/spyware-scanner/spyware-scanner-go/internal/service"
)

// AlertHandler 告警处理器
type AlertHandler struct {
	alerts service.AlertService
	logger *logrus.Logger
}

// NewAlertHandler 创建告警处理器
func NewAlertHandler(alerts service.AlertService, logger *logrus.Logger) *AlertHandler {
	return &AlertHandler{
		alerts: alerts,
		logger: logger,
	}
}

// ListAlerts GET /api/alerts?limit=100
func (h *AlertHandler) ListAlerts(c *gin.Context) {
	alerts, err := h.alerts.ListAlerts(c.Request.Context(), queryLimit(c, 100, 1000))
	if err != nil {
		h.logger.WithError(err).Error("Failed to list alerts")
		respondError(c, http.StatusInternalServerError, "failed to list alerts")
		return
	}
	respondOK(c, alerts)
}

// ListUnread GET /api/alerts/unread
func (h *AlertHandler) ListUnread(c *gin.Context) {
	alerts, err := h.alerts.ListUnread(c.Request.Context())
	if err != nil {
		h.logger.WithError(err).Error("Failed to list unread alerts")
		respondError(c, http.StatusInternalServerError, "failed to list alerts")
		return
	}
	respondOK(c, alerts)
}

// UnreadCount GET /api/alerts/unread/count
func (h *AlertHandler) UnreadCount(c *gin.Context) {
	count, err := h.alerts.UnreadCount(c.Request.Context())
	if err != nil {
		h.logger.WithError(err).Error("Failed to count unread alerts")
		respondError(c, http.StatusInternalServerError, "failed to count alerts")
		return
	}
	respondOK(c, gin.H{"count": count})
}

// MarkRead POST /api/alerts/:id/read
func (h *AlertHandler) MarkRead(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	if err := h.alerts.MarkRead(c.Request.Context(), id); err != nil {
		respondError(c, statusForError(err), "failed to mark alert as read")
		return
	}
	respondOK(c, gin.H{"id": id, "read": true})
}

// MarkAllRead POST /api/alerts/read-all
func (h *AlertHandler) MarkAllRead(c *gin.Context) {
	n, err := h.alerts.MarkAllRead(c.Request.Context())
	if err != nil {
		h.logger.WithError(err).Error("Failed to mark all alerts as read")
		respondError(c, http.StatusInternalServerError, "failed to mark alerts as read")
		return
	}
	respondOK(c, gin.H{"updated": n})
}

// DeleteAlert DELETE /api/alerts/:id
func (h *AlertHandler) DeleteAlert(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	if err := h.alerts.DeleteAlert(c.Request.Context(), id); err != nil {
		respondError(c, statusForError(err), "failed to delete alert")
		return
	}
	respondOK(c, gin.H{"id": id, "deleted": true})
}

// DeleteAll DELETE /api/alerts
func (h *AlertHandler) DeleteAll(c *gin.Context) {
	n, err := h.alerts.DeleteAll(c.Request.Context())
	if err != nil {
		h.logger.WithError(err).Error("Failed to delete alerts")
		respondError(c, http.StatusInternalServerError, "failed to delete alerts")
		return
	}
	respondOK(c, gin.H{"deleted": n})
}
