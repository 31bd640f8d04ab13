package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/spyware-scanner/spyware-scanner-go/internal/detection"
	"github.com/spyware-scanner/spyware-scanner-go/internal/domain"
	"github.com/spyware-scanner/spyware-scanner-go/internal/provider"
	"github.com/spyware-scanner/spyware-scanner-go/internal/repository"
)

// ScanRequest 一次扫描请求
type ScanRequest struct {
	JobID    string          `json:"job_id"`
	ScanType domain.ScanType `json:"scan_type"`
	Packages []string        `json:"packages,omitempty"` // 仅 CUSTOM 使用
}

// ProgressFunc 扫描进度回调
type ProgressFunc func(progress domain.ScanProgress)

// ScanOptions 扫描节奏与锁配置
type ScanOptions struct {
	QuickPacing time.Duration
	DeepPacing  time.Duration
	LockTTL     time.Duration
}

// ScanService 扫描服务接口
type ScanService interface {
	// PerformScan 枚举设备应用、逐个分析并整体落库
	PerformScan(ctx context.Context, p provider.MetadataProvider, req ScanRequest, onProgress ProgressFunc) (*domain.ScanResult, error)
	GetScan(ctx context.Context, id uint) (*domain.ScanResult, error)
	GetScanByJobID(ctx context.Context, jobID string) (*domain.ScanResult, error)
	LatestScan(ctx context.Context) (*domain.ScanResult, error)
	RecentScans(ctx context.Context, limit int) ([]*domain.ScanResult, error)
	ListApps(ctx context.Context) ([]*domain.ScannedApp, error)
	ListThreateningApps(ctx context.Context) ([]*domain.ScannedApp, error)
	GetApp(ctx context.Context, packageName string) (*domain.ScannedApp, error)
}

type scanService struct {
	engine   *detection.Engine
	scanRepo repository.ScanRepository
	appRepo  repository.AppRepository
	prefs    PreferencesService
	alerts   AlertService
	locker   ScanLocker
	metrics  ScanMetrics
	opts     ScanOptions
	logger   *logrus.Logger
}

// NewScanService 创建扫描服务，metrics 可为 nil
func NewScanService(
	engine *detection.Engine,
	scanRepo repository.ScanRepository,
	appRepo repository.AppRepository,
	prefs PreferencesService,
	alerts AlertService,
	locker ScanLocker,
	metrics ScanMetrics,
	opts ScanOptions,
	logger *logrus.Logger,
) ScanService {
	if locker == nil {
		locker = NewMemoryLocker()
	}
	if metrics == nil {
		metrics = noopMetrics{}
	}
	return &scanService{
		engine:   engine,
		scanRepo: scanRepo,
		appRepo:  appRepo,
		prefs:    prefs,
		alerts:   alerts,
		locker:   locker,
		metrics:  metrics,
		opts:     opts,
		logger:   logger,
	}
}

func (s *scanService) PerformScan(ctx context.Context, p provider.MetadataProvider, req ScanRequest, onProgress ProgressFunc) (*domain.ScanResult, error) {
	scanType, ok := domain.ParseScanType(string(req.ScanType))
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrInvalidScanType, req.ScanType)
	}
	if scanType == domain.ScanTypeCustom && len(req.Packages) == 0 {
		return nil, ErrNoPackages
	}
	if req.JobID == "" {
		req.JobID = uuid.New().String()
	}
	if onProgress == nil {
		onProgress = func(domain.ScanProgress) {}
	}

	device := p.Name()
	log := s.logger.WithFields(logrus.Fields{
		"job_id":    req.JobID,
		"device":    device,
		"scan_type": scanType,
	})

	lockKey := "scan:" + device
	acquired, err := s.locker.Acquire(ctx, lockKey, s.opts.LockTTL)
	if err != nil {
		return nil, fmt.Errorf("获取扫描锁失败: %w", err)
	}
	if !acquired {
		return nil, ErrScanInProgress
	}
	defer func() {
		// ctx 可能已取消，释放锁使用独立的 context
		if err := s.locker.Release(context.Background(), lockKey); err != nil {
			log.WithError(err).Warn("Failed to release scan lock")
		}
	}()

	start := time.Now().UTC()
	s.metrics.RecordScanStarted(string(scanType))
	log.Info("Scan started")

	result, err := s.runScan(ctx, p, req.JobID, scanType, req.Packages, start, onProgress)
	if err != nil {
		s.metrics.RecordScanFailed(string(scanType), time.Since(start))
		onProgress(domain.ScanProgress{JobID: req.JobID, Phase: domain.ScanPhaseFailed, Message: err.Error()})
		log.WithError(err).Error("Scan failed")
		return nil, err
	}

	s.metrics.RecordScanCompleted(string(scanType), result.Duration(), result.TotalAppsScanned)
	s.metrics.UpdateSecurityScore(device, result.SecurityScore)
	log.WithFields(logrus.Fields{
		"scan_id":        result.ID,
		"apps":           result.TotalAppsScanned,
		"threats":        result.ThreatsFound,
		"security_score": result.SecurityScore,
	}).Info("Scan completed")

	return result, nil
}

func (s *scanService) runScan(
	ctx context.Context,
	p provider.MetadataProvider,
	jobID string,
	scanType domain.ScanType,
	packages []string,
	start time.Time,
	onProgress ProgressFunc,
) (*domain.ScanResult, error) {
	onProgress(domain.ScanProgress{JobID: jobID, Phase: domain.ScanPhaseInitializing})

	prefs, err := s.prefs.GetPreferences(ctx)
	if err != nil {
		return nil, err
	}

	installed, err := p.ListInstalledApps(ctx)
	if err != nil {
		return nil, fmt.Errorf("获取应用列表失败: %w", err)
	}
	installed = selectApps(installed, scanType, packages)

	total := len(installed)
	pacing := s.opts.QuickPacing
	if scanType == domain.ScanTypeDeep {
		pacing = s.opts.DeepPacing
	}

	onProgress(domain.ScanProgress{JobID: jobID, Phase: domain.ScanPhaseScanningApps, TotalApps: total})

	apps := make([]*domain.ScannedApp, 0, total)
	var threats []*domain.Threat
	alertable := []*domain.Threat{}

	for i, meta := range installed {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		analysis := s.engine.Analyze(meta, time.Now().UTC())
		ignored := prefs.IsIgnored(meta.PackageName)
		analysis.App.IsIgnored = ignored

		apps = append(apps, analysis.App)
		threats = append(threats, analysis.Threats...)
		if !ignored {
			alertable = append(alertable, analysis.Threats...)
		}

		onProgress(domain.ScanProgress{
			JobID:        jobID,
			Phase:        domain.ScanPhaseScanningApps,
			CurrentApp:   analysis.App.AppName,
			CurrentIndex: i + 1,
			TotalApps:    total,
			ThreatsFound: len(threats),
		})

		if pacing > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(pacing):
			}
		}
	}

	onProgress(domain.ScanProgress{
		JobID:        jobID,
		Phase:        domain.ScanPhaseAnalyzingPermissions,
		CurrentIndex: total,
		TotalApps:    total,
		ThreatsFound: len(threats),
	})
	onProgress(domain.ScanProgress{
		JobID:        jobID,
		Phase:        domain.ScanPhaseGeneratingReport,
		CurrentIndex: total,
		TotalApps:    total,
		ThreatsFound: len(threats),
	})

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	result := &domain.ScanResult{
		JobID:            jobID,
		ScanType:         scanType,
		Device:           p.Name(),
		StartTime:        start,
		EndTime:          time.Now().UTC(),
		TotalAppsScanned: total,
		ThreatsFound:     len(threats),
		SecurityScore:    detection.SecurityScore(apps),
	}
	for _, t := range threats {
		switch t.ThreatLevel {
		case domain.ThreatLevelCritical:
			result.CriticalCount++
		case domain.ThreatLevelHigh:
			result.HighCount++
		case domain.ThreatLevelMedium:
			result.MediumCount++
		case domain.ThreatLevelLow:
			result.LowCount++
		}
		s.metrics.RecordThreatDetected(string(t.ThreatLevel), string(t.ThreatType))
	}

	if err := s.scanRepo.SaveScan(ctx, result, apps, threats); err != nil {
		return nil, fmt.Errorf("保存扫描结果失败: %w", err)
	}

	if err := s.prefs.RecordScanTime(ctx, result.EndTime); err != nil {
		s.logger.WithError(err).Warn("Failed to record last scan time")
	}
	s.emitAlerts(ctx, prefs, alertable)

	onProgress(domain.ScanProgress{
		JobID:        jobID,
		Phase:        domain.ScanPhaseComplete,
		CurrentIndex: total,
		TotalApps:    total,
		ThreatsFound: len(threats),
	})

	return result, nil
}

// selectApps 去重，CUSTOM 扫描只保留指定的包
func selectApps(apps []detection.AppMetadata, scanType domain.ScanType, packages []string) []detection.AppMetadata {
	var wanted map[string]bool
	if scanType == domain.ScanTypeCustom {
		wanted = make(map[string]bool, len(packages))
		for _, pkg := range packages {
			wanted[pkg] = true
		}
	}

	seen := make(map[string]bool, len(apps))
	selected := make([]detection.AppMetadata, 0, len(apps))
	for _, app := range apps {
		if seen[app.PackageName] {
			continue
		}
		if wanted != nil && !wanted[app.PackageName] {
			continue
		}
		seen[app.PackageName] = true
		selected = append(selected, app)
	}
	return selected
}

// emitAlerts 扫描完成后的告警，threats 不含已忽略应用的威胁；失败只记录日志
func (s *scanService) emitAlerts(ctx context.Context, prefs *domain.Preferences, threats []*domain.Threat) {
	if !prefs.NotificationsEnabled {
		return
	}

	if prefs.ThreatNotificationsEnabled {
		for _, t := range threats {
			if t.ThreatLevel != domain.ThreatLevelCritical && t.ThreatLevel != domain.ThreatLevelHigh {
				continue
			}
			title := "High Threat Detected"
			if t.ThreatLevel == domain.ThreatLevelCritical {
				title = "Critical Threat Detected"
			}
			message := fmt.Sprintf("%s: %s", t.AppName, t.Description)
			if _, err := s.alerts.CreateAlert(ctx, domain.AlertTypeNewThreat, title, message, t.PackageName, t.ThreatLevel.Priority()); err != nil {
				s.logger.WithError(err).WithField("package", t.PackageName).Warn("Failed to create threat alert")
			}
		}
	}

	if len(threats) > 0 {
		message := fmt.Sprintf("%d potential threats detected. Tap to view details.", len(threats))
		if _, err := s.alerts.CreateAlert(ctx, domain.AlertTypeScanComplete, "Scan Complete - Threats Found", message, "", 1); err != nil {
			s.logger.WithError(err).Warn("Failed to create scan complete alert")
		}
	}
}

func (s *scanService) GetScan(ctx context.Context, id uint) (*domain.ScanResult, error) {
	return s.scanRepo.FindByID(ctx, id)
}

func (s *scanService) GetScanByJobID(ctx context.Context, jobID string) (*domain.ScanResult, error) {
	return s.scanRepo.FindByJobID(ctx, jobID)
}

func (s *scanService) LatestScan(ctx context.Context) (*domain.ScanResult, error) {
	return s.scanRepo.Latest(ctx)
}

func (s *scanService) RecentScans(ctx context.Context, limit int) ([]*domain.ScanResult, error) {
	if limit <= 0 {
		limit = 10
	}
	return s.scanRepo.ListRecent(ctx, limit)
}

func (s *scanService) ListApps(ctx context.Context) ([]*domain.ScannedApp, error) {
	return s.appRepo.List(ctx)
}

func (s *scanService) ListThreateningApps(ctx context.Context) ([]*domain.ScannedApp, error) {
	return s.appRepo.ListThreatening(ctx)
}

func (s *scanService) GetApp(ctx context.Context, packageName string) (*domain.ScannedApp, error) {
	return s.appRepo.FindByPackage(ctx, packageName)
}
