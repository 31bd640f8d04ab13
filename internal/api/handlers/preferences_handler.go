package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/spyware-scanner/spyware-scanner-go/internal/service"
)

// PreferencesHandler 偏好设置处理器
type PreferencesHandler struct {
	prefs  service.PreferencesService
	logger *logrus.Logger
}

// NewPreferencesHandler 创建偏好设置处理器
func NewPreferencesHandler(prefs service.PreferencesService, logger *logrus.Logger) *PreferencesHandler {
	return &PreferencesHandler{
		prefs:  prefs,
		logger: logger,
	}
}

// GetPreferences GET /api/preferences
func (h *PreferencesHandler) GetPreferences(c *gin.Context) {
	prefs, err := h.prefs.GetPreferences(c.Request.Context())
	if err != nil {
		h.logger.WithError(err).Error("Failed to load preferences")
		respondError(c, http.StatusInternalServerError, "failed to load preferences")
		return
	}
	respondOK(c, prefs)
}

// UpdatePreferences PUT /api/preferences，未出现的字段保持不变
func (h *PreferencesHandler) UpdatePreferences(c *gin.Context) {
	var update service.PreferencesUpdate
	if err := c.ShouldBindJSON(&update); err != nil {
		respondError(c, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	prefs, err := h.prefs.UpdatePreferences(c.Request.Context(), &update)
	if err != nil {
		respondError(c, statusForError(err), err.Error())
		return
	}
	respondOK(c, prefs)
}

// IgnorePackage POST /api/preferences/ignored/:package
func (h *PreferencesHandler) IgnorePackage(c *gin.Context) {
	prefs, err := h.prefs.IgnorePackage(c.Request.Context(), c.Param("package"))
	if err != nil {
		h.logger.WithError(err).Error("Failed to ignore package")
		respondError(c, http.StatusInternalServerError, "failed to ignore package")
		return
	}
	respondOK(c, prefs)
}

// UnignorePackage DELETE /api/preferences/ignored/:package
func (h *PreferencesHandler) UnignorePackage(c *gin.Context) {
	prefs, err := h.prefs.UnignorePackage(c.Request.Context(), c.Param("package"))
	if err != nil {
		h.logger.WithError(err).Error("Failed to unignore package")
		respondError(c, http.StatusInternalServerError, "failed to unignore package")
		return
	}
	respondOK(c, prefs)
}
