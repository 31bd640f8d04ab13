package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/spyware-scanner/spyware-scanner-go/internal/detection"
	"github.com/spyware-scanner/spyware-scanner-go/internal/service"
)

// ThreatHandler 威胁处理器
type ThreatHandler struct {
	threats service.ThreatService
	logger  *logrus.Logger
}

// NewThreatHandler 创建威胁处理器
func NewThreatHandler(threats service.ThreatService, logger *logrus.Logger) *ThreatHandler {
	return &ThreatHandler{
		threats: threats,
		logger:  logger,
	}
}

// ListThreats 威胁记录，新的在前
// GET /api/threats?limit=100
func (h *ThreatHandler) ListThreats(c *gin.Context) {
	threats, err := h.threats.ListThreats(c.Request.Context(), queryLimit(c, 100, 1000))
	if err != nil {
		h.logger.WithError(err).Error("Failed to list threats")
		respondError(c, http.StatusInternalServerError, "failed to list threats")
		return
	}
	respondOK(c, threats)
}

// ListUnresolved 未处置的威胁
// GET /api/threats/unresolved
func (h *ThreatHandler) ListUnresolved(c *gin.Context) {
	threats, err := h.threats.ListUnresolved(c.Request.Context())
	if err != nil {
		h.logger.WithError(err).Error("Failed to list unresolved threats")
		respondError(c, http.StatusInternalServerError, "failed to list threats")
		return
	}
	respondOK(c, threats)
}

// GetThreat 威胁详情
// GET /api/threats/:id
func (h *ThreatHandler) GetThreat(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	threat, err := h.threats.GetThreat(c.Request.Context(), id)
	if err != nil {
		respondError(c, statusForError(err), "threat not found")
		return
	}
	respondOK(c, threat)
}

// ResolveThreat 标记威胁已处置
// POST /api/threats/:id/resolve
func (h *ThreatHandler) ResolveThreat(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	if err := h.threats.ResolveThreat(c.Request.Context(), id); err != nil {
		respondError(c, statusForError(err), "failed to resolve threat")
		return
	}
	respondOK(c, gin.H{"id": id, "resolved": true})
}

// DescribePermission 权限说明
// GET /api/permissions/:name
func DescribePermission(c *gin.Context) {
	name := detection.NormalizePermission(c.Param("name"))
	respondOK(c, gin.H{
		"permission":  name,
		"description": detection.DescribePermission(name),
		"dangerous":   detection.IsDangerousPermission(name),
	})
}
