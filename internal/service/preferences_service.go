package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spyware-scanner/spyware-scanner-go/internal/domain"
	"github.com/spyware-scanner/spyware-scanner-go/internal/repository"
)

// ErrInvalidFrequency 未知扫描频率
var ErrInvalidFrequency = errors.New("invalid scan frequency")

// PreferencesUpdate 偏好设置的部分更新，nil 字段保持不变
type PreferencesUpdate struct {
	AutoScanEnabled            *bool                 `json:"auto_scan_enabled"`
	ScanFrequency              *domain.ScanFrequency `json:"scan_frequency"`
	RealTimeProtectionEnabled  *bool                 `json:"real_time_protection_enabled"`
	NotificationsEnabled       *bool                 `json:"notifications_enabled"`
	ThreatNotificationsEnabled *bool                 `json:"threat_notifications_enabled"`
	ReportNotificationsEnabled *bool                 `json:"report_notifications_enabled"`
}

// PreferencesService 偏好设置服务接口
type PreferencesService interface {
	GetPreferences(ctx context.Context) (*domain.Preferences, error)
	UpdatePreferences(ctx context.Context, update *PreferencesUpdate) (*domain.Preferences, error)
	IgnorePackage(ctx context.Context, packageName string) (*domain.Preferences, error)
	UnignorePackage(ctx context.Context, packageName string) (*domain.Preferences, error)
	RecordScanTime(ctx context.Context, at time.Time) error
}

type preferencesService struct {
	repo    repository.PreferencesRepository
	appRepo repository.AppRepository
	logger  *logrus.Logger
}

// NewPreferencesService 创建偏好设置服务
func NewPreferencesService(repo repository.PreferencesRepository, appRepo repository.AppRepository, logger *logrus.Logger) PreferencesService {
	return &preferencesService{
		repo:    repo,
		appRepo: appRepo,
		logger:  logger,
	}
}

func (s *preferencesService) GetPreferences(ctx context.Context) (*domain.Preferences, error) {
	prefs, err := s.repo.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("读取偏好设置失败: %w", err)
	}
	return prefs, nil
}

func (s *preferencesService) UpdatePreferences(ctx context.Context, update *PreferencesUpdate) (*domain.Preferences, error) {
	prefs, err := s.GetPreferences(ctx)
	if err != nil {
		return nil, err
	}

	if update.ScanFrequency != nil {
		switch *update.ScanFrequency {
		case domain.ScanFrequencyDaily, domain.ScanFrequencyWeekly, domain.ScanFrequencyBiweekly, domain.ScanFrequencyMonthly:
			prefs.ScanFrequency = *update.ScanFrequency
		default:
			return nil, fmt.Errorf("%w: %s", ErrInvalidFrequency, *update.ScanFrequency)
		}
	}
	applyBool(&prefs.AutoScanEnabled, update.AutoScanEnabled)
	applyBool(&prefs.RealTimeProtectionEnabled, update.RealTimeProtectionEnabled)
	applyBool(&prefs.NotificationsEnabled, update.NotificationsEnabled)
	applyBool(&prefs.ThreatNotificationsEnabled, update.ThreatNotificationsEnabled)
	applyBool(&prefs.ReportNotificationsEnabled, update.ReportNotificationsEnabled)

	if err := s.repo.Save(ctx, prefs); err != nil {
		return nil, fmt.Errorf("保存偏好设置失败: %w", err)
	}

	s.logger.Info("Preferences updated")
	return prefs, nil
}

func applyBool(dst *bool, src *bool) {
	if src != nil {
		*dst = *src
	}
}

func (s *preferencesService) IgnorePackage(ctx context.Context, packageName string) (*domain.Preferences, error) {
	prefs, err := s.GetPreferences(ctx)
	if err != nil {
		return nil, err
	}

	if !prefs.IsIgnored(packageName) {
		prefs.IgnoredPackages = append(prefs.IgnoredPackages, packageName)
		if err := s.repo.Save(ctx, prefs); err != nil {
			return nil, fmt.Errorf("保存偏好设置失败: %w", err)
		}
	}

	if err := s.appRepo.SetIgnored(ctx, packageName, true); err != nil {
		s.logger.WithError(err).WithField("package", packageName).Warn("Failed to flag scanned app as ignored")
	}

	s.logger.WithField("package", packageName).Info("Package added to ignore list")
	return prefs, nil
}

func (s *preferencesService) UnignorePackage(ctx context.Context, packageName string) (*domain.Preferences, error) {
	prefs, err := s.GetPreferences(ctx)
	if err != nil {
		return nil, err
	}

	kept := make([]string, 0, len(prefs.IgnoredPackages))
	for _, pkg := range prefs.IgnoredPackages {
		if pkg != packageName {
			kept = append(kept, pkg)
		}
	}

	if len(kept) != len(prefs.IgnoredPackages) {
		prefs.IgnoredPackages = kept
		if err := s.repo.Save(ctx, prefs); err != nil {
			return nil, fmt.Errorf("保存偏好设置失败: %w", err)
		}
	}

	if err := s.appRepo.SetIgnored(ctx, packageName, false); err != nil {
		s.logger.WithError(err).WithField("package", packageName).Warn("Failed to clear ignored flag on scanned app")
	}

	s.logger.WithField("package", packageName).Info("Package removed from ignore list")
	return prefs, nil
}

func (s *preferencesService) RecordScanTime(ctx context.Context, at time.Time) error {
	prefs, err := s.GetPreferences(ctx)
	if err != nil {
		return err
	}
	prefs.LastScanTime = &at
	if err := s.repo.Save(ctx, prefs); err != nil {
		return fmt.Errorf("保存上次扫描时间失败: %w", err)
	}
	return nil
}
