package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/spyware-scanner/spyware-scanner-go/internal/domain"
	"github.com/spyware-scanner/spyware-scanner-go/internal/provider"
	"github.com/spyware-scanner/spyware-scanner-go/internal/service"
)

// ScanJob 一次异步扫描任务
type ScanJob struct {
	JobID         string          `json:"job_id"`
	Device        string          `json:"device,omitempty"`
	ScanType      domain.ScanType `json:"scan_type"`
	Packages      []string        `json:"packages,omitempty"`
	InventoryPath string          `json:"inventory_path,omitempty"` // 非空时从清单文件扫描
}

// ProviderResolver 根据任务选择提供者
type ProviderResolver interface {
	ForDevice(ctx context.Context, device string) (provider.MetadataProvider, error)
	ForInventory(path string) provider.MetadataProvider
}

// ProgressBroadcaster 扫描进度广播接口
type ProgressBroadcaster interface {
	BroadcastProgress(jobID string, progress domain.ScanProgress)
}

// Orchestrator 扫描任务编排：选择提供者、执行扫描、维护任务状态
type Orchestrator struct {
	scans       service.ScanService
	providers   ProviderResolver
	jobs        service.JobStore
	broadcaster ProgressBroadcaster
	logger      *logrus.Logger
}

// NewOrchestrator 创建编排器，broadcaster 可为 nil
func NewOrchestrator(
	scans service.ScanService,
	providers ProviderResolver,
	jobs service.JobStore,
	broadcaster ProgressBroadcaster,
	logger *logrus.Logger,
) *Orchestrator {
	return &Orchestrator{
		scans:       scans,
		providers:   providers,
		jobs:        jobs,
		broadcaster: broadcaster,
		logger:      logger,
	}
}

// Prepare 校验任务并记录 QUEUED 状态
func (o *Orchestrator) Prepare(ctx context.Context, job *ScanJob) (*domain.ScanJobStatus, error) {
	scanType, ok := domain.ParseScanType(string(job.ScanType))
	if !ok {
		return nil, fmt.Errorf("%w: %s", service.ErrInvalidScanType, job.ScanType)
	}
	if scanType == domain.ScanTypeCustom && len(job.Packages) == 0 {
		return nil, service.ErrNoPackages
	}
	job.ScanType = scanType
	if job.JobID == "" {
		job.JobID = uuid.New().String()
	}

	now := time.Now().UTC()
	status := &domain.ScanJobStatus{
		JobID:     job.JobID,
		Device:    job.target(),
		ScanType:  scanType,
		State:     domain.JobStateQueued,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := o.jobs.Save(ctx, status); err != nil {
		return nil, fmt.Errorf("保存任务状态失败: %w", err)
	}
	return status, nil
}

// ExecuteJob 执行扫描任务
func (o *Orchestrator) ExecuteJob(ctx context.Context, job *ScanJob) error {
	log := o.logger.WithFields(logrus.Fields{
		"job_id":    job.JobID,
		"device":    job.target(),
		"scan_type": job.ScanType,
	})

	status, err := o.jobs.Get(ctx, job.JobID)
	if err != nil {
		// 来自消息队列的任务可能没有 QUEUED 记录
		status = &domain.ScanJobStatus{
			JobID:     job.JobID,
			Device:    job.target(),
			ScanType:  job.ScanType,
			CreatedAt: time.Now().UTC(),
		}
	}

	o.updateStatus(ctx, status, domain.JobStateRunning, nil)

	p, err := o.resolveProvider(ctx, job)
	if err != nil {
		log.WithError(err).Error("Failed to resolve metadata provider")
		return o.failJob(ctx, status, err)
	}

	req := service.ScanRequest{
		JobID:    job.JobID,
		ScanType: job.ScanType,
		Packages: job.Packages,
	}
	result, err := o.scans.PerformScan(ctx, p, req, func(progress domain.ScanProgress) {
		progress.JobID = job.JobID
		status.Progress = &progress
		if progress.Phase != domain.ScanPhaseFailed {
			status.UpdatedAt = time.Now().UTC()
			if err := o.jobs.Save(ctx, status); err != nil {
				log.WithError(err).Debug("Failed to save job progress")
			}
		}
		if o.broadcaster != nil {
			o.broadcaster.BroadcastProgress(job.JobID, progress)
		}
	})
	if err != nil {
		return o.failJob(ctx, status, err)
	}

	status.ScanID = result.ID
	o.updateStatus(ctx, status, domain.JobStateCompleted, nil)
	log.WithField("scan_id", result.ID).Info("Scan job completed")
	return nil
}

func (o *Orchestrator) resolveProvider(ctx context.Context, job *ScanJob) (provider.MetadataProvider, error) {
	if job.InventoryPath != "" {
		return o.providers.ForInventory(job.InventoryPath), nil
	}
	return o.providers.ForDevice(ctx, job.Device)
}

func (o *Orchestrator) failJob(ctx context.Context, status *domain.ScanJobStatus, err error) error {
	o.updateStatus(ctx, status, domain.JobStateFailed, err)
	return err
}

func (o *Orchestrator) updateStatus(ctx context.Context, status *domain.ScanJobStatus, state domain.JobState, cause error) {
	status.State = state
	status.UpdatedAt = time.Now().UTC()
	if cause != nil {
		status.Error = cause.Error()
	}

	// ctx 取消后仍然要记录最终状态
	saveCtx := ctx
	if ctx.Err() != nil {
		saveCtx = context.Background()
	}
	if err := o.jobs.Save(saveCtx, status); err != nil {
		o.logger.WithError(err).WithFields(logrus.Fields{
			"job_id": status.JobID,
			"state":  state,
		}).Warn("Failed to update job status")
	}
}

func (j *ScanJob) target() string {
	if j.InventoryPath != "" {
		return "file:" + j.InventoryPath
	}
	return j.Device
}
