package handlers

import (
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/spyware-scanner/spyware-scanner-go/internal/domain"
	"github.com/spyware-scanner/spyware-scanner-go/internal/service"
)

// ReportHandler 安全报告处理器
type ReportHandler struct {
	reports service.ReportService
	logger  *logrus.Logger
	now     func() time.Time
}

// NewReportHandler 创建报告处理器
func NewReportHandler(reports service.ReportService, logger *logrus.Logger) *ReportHandler {
	return &ReportHandler{
		reports: reports,
		logger:  logger,
		now:     time.Now,
	}
}

// GenerateReport 生成周期报告
// GET /api/reports/:period?notify=true  period: weekly | monthly
func (h *ReportHandler) GenerateReport(c *gin.Context) {
	period := domain.ReportPeriod(strings.ToUpper(c.Param("period")))
	notify, _ := strconv.ParseBool(c.DefaultQuery("notify", "false"))

	report, err := h.reports.GenerateReport(c.Request.Context(), period, h.now().UTC(), notify)
	if err != nil {
		h.logger.WithError(err).WithField("period", period).Warn("Failed to generate report")
		respondError(c, statusForError(err), err.Error())
		return
	}
	respondOK(c, report)
}
