package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/spyware-scanner/spyware-scanner-go/internal/domain"
	"github.com/spyware-scanner/spyware-scanner-go/internal/service"
	"github.com/spyware-scanner/spyware-scanner-go/internal/worker"
)

// JobDispatcher 异步扫描任务入口
type JobDispatcher interface {
	Dispatch(ctx context.Context, job *worker.ScanJob) (*domain.ScanJobStatus, error)
}

// StartScanRequest 发起扫描请求体
type StartScanRequest struct {
	Device   string          `json:"device"`
	ScanType domain.ScanType `json:"scan_type"`
	Packages []string        `json:"packages"`
}

// ScanHandler 扫描处理器
type ScanHandler struct {
	scans      service.ScanService
	dispatcher JobDispatcher
	jobs       service.JobStore
	logger     *logrus.Logger
}

// NewScanHandler 创建扫描处理器
func NewScanHandler(scans service.ScanService, dispatcher JobDispatcher, jobs service.JobStore, logger *logrus.Logger) *ScanHandler {
	return &ScanHandler{
		scans:      scans,
		dispatcher: dispatcher,
		jobs:       jobs,
		logger:     logger,
	}
}

// StartScan 发起扫描
// POST /api/scans {"device":"emulator-5554","scan_type":"QUICK","packages":[]}
// 返回 202 和 job_id，进度通过 /ws/scans/:job_id 或 /api/scans/jobs/:job_id 获取
func (h *ScanHandler) StartScan(c *gin.Context) {
	var req StartScanRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, http.StatusBadRequest, "invalid request body: "+err.Error())
			return
		}
	}

	job := &worker.ScanJob{
		Device:   req.Device,
		ScanType: req.ScanType,
		Packages: req.Packages,
	}
	status, err := h.dispatcher.Dispatch(c.Request.Context(), job)
	if err != nil {
		h.logger.WithError(err).WithField("device", req.Device).Warn("Failed to dispatch scan")
		respondError(c, statusForError(err), err.Error())
		return
	}

	h.logger.WithFields(logrus.Fields{
		"job_id":    status.JobID,
		"device":    status.Device,
		"scan_type": status.ScanType,
	}).Info("Scan job accepted")

	c.JSON(http.StatusAccepted, gin.H{
		"status": "success",
		"data":   status,
	})
}

// ListScans 最近扫描
// GET /api/scans?limit=10
func (h *ScanHandler) ListScans(c *gin.Context) {
	scans, err := h.scans.RecentScans(c.Request.Context(), queryLimit(c, 10, 100))
	if err != nil {
		h.logger.WithError(err).Error("Failed to list scans")
		respondError(c, http.StatusInternalServerError, "failed to list scans")
		return
	}
	respondOK(c, scans)
}

// LatestScan 最近一次扫描
// GET /api/scans/latest
func (h *ScanHandler) LatestScan(c *gin.Context) {
	scan, err := h.scans.LatestScan(c.Request.Context())
	if err != nil {
		respondError(c, statusForError(err), "no scan found")
		return
	}
	respondOK(c, scan)
}

// GetScan 扫描详情
// GET /api/scans/:id
func (h *ScanHandler) GetScan(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	scan, err := h.scans.GetScan(c.Request.Context(), id)
	if err != nil {
		respondError(c, statusForError(err), "scan not found")
		return
	}
	respondOK(c, scan)
}

// GetJob 扫描任务状态
// GET /api/scans/jobs/:job_id
func (h *ScanHandler) GetJob(c *gin.Context) {
	jobID := c.Param("job_id")

	status, err := h.jobs.Get(c.Request.Context(), jobID)
	if err != nil {
		// 任务状态过期后仍可通过扫描结果查询
		if scan, scanErr := h.scans.GetScanByJobID(c.Request.Context(), jobID); scanErr == nil {
			respondOK(c, &domain.ScanJobStatus{
				JobID:     scan.JobID,
				Device:    scan.Device,
				ScanType:  scan.ScanType,
				State:     domain.JobStateCompleted,
				ScanID:    scan.ID,
				CreatedAt: scan.StartTime,
				UpdatedAt: scan.EndTime,
			})
			return
		}
		respondError(c, statusForError(err), "scan job not found")
		return
	}
	respondOK(c, status)
}
