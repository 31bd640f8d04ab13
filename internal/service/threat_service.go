package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spyware-scanner/spyware-scanner-go/internal/detection"
	"github.com/spyware-scanner/spyware-scanner-go/internal/domain"
	"github.com/spyware-scanner/spyware-scanner-go/internal/provider"
	"github.com/spyware-scanner/spyware-scanner-go/internal/repository"
	"gorm.io/gorm"
)

// ThreatService 威胁查询与处置
type ThreatService interface {
	ListThreats(ctx context.Context, limit int) ([]*domain.Threat, error)
	ListUnresolved(ctx context.Context) ([]*domain.Threat, error)
	ListByPackage(ctx context.Context, packageName string) ([]*domain.Threat, error)
	GetThreat(ctx context.Context, id uint) (*domain.Threat, error)
	ResolveThreat(ctx context.Context, id uint) error
	// ResolvePackage 将该包所有未处置的威胁标记为已处置，返回处置数量
	ResolvePackage(ctx context.Context, packageName string) (int64, error)
	RemovalGuide(ctx context.Context, packageName string) (*domain.RemovalGuide, error)
	// UninstallApp 通过提供者卸载应用，成功后处置其威胁
	UninstallApp(ctx context.Context, p provider.MetadataProvider, packageName string) (int64, error)
}

type threatService struct {
	threatRepo repository.ThreatRepository
	appRepo    repository.AppRepository
	logger     *logrus.Logger
}

// NewThreatService 创建威胁服务
func NewThreatService(threatRepo repository.ThreatRepository, appRepo repository.AppRepository, logger *logrus.Logger) ThreatService {
	return &threatService{
		threatRepo: threatRepo,
		appRepo:    appRepo,
		logger:     logger,
	}
}

func (s *threatService) ListThreats(ctx context.Context, limit int) ([]*domain.Threat, error) {
	return s.threatRepo.List(ctx, limit)
}

func (s *threatService) ListUnresolved(ctx context.Context) ([]*domain.Threat, error) {
	return s.threatRepo.ListUnresolved(ctx)
}

func (s *threatService) ListByPackage(ctx context.Context, packageName string) ([]*domain.Threat, error) {
	return s.threatRepo.ListByPackage(ctx, packageName)
}

func (s *threatService) GetThreat(ctx context.Context, id uint) (*domain.Threat, error) {
	return s.threatRepo.FindByID(ctx, id)
}

func (s *threatService) ResolveThreat(ctx context.Context, id uint) error {
	if err := s.threatRepo.Resolve(ctx, id, time.Now().UTC()); err != nil {
		return err
	}
	s.logger.WithField("threat_id", id).Info("Threat resolved")
	return nil
}

func (s *threatService) ResolvePackage(ctx context.Context, packageName string) (int64, error) {
	n, err := s.threatRepo.ResolveByPackage(ctx, packageName, time.Now().UTC())
	if err != nil {
		return 0, fmt.Errorf("处置应用威胁失败: %w", err)
	}
	s.logger.WithFields(logrus.Fields{
		"package":  packageName,
		"resolved": n,
	}).Info("Package threats resolved")
	return n, nil
}

func (s *threatService) RemovalGuide(ctx context.Context, packageName string) (*domain.RemovalGuide, error) {
	guide := &domain.RemovalGuide{
		PackageName:    packageName,
		AdditionalInfo: detection.RemovalAdditionalInfo,
	}

	app, err := s.appRepo.FindByPackage(ctx, packageName)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("查询应用失败: %w", err)
		}
		guide.AppName = packageName
		guide.Steps = detection.DefaultRemovalSteps()
		return guide, nil
	}

	guide.AppName = app.AppName
	guide.Found = true
	guide.Steps = detection.RemovalSteps(app.AppName)
	guide.AdbCommand = "adb uninstall " + packageName
	return guide, nil
}

func (s *threatService) UninstallApp(ctx context.Context, p provider.MetadataProvider, packageName string) (int64, error) {
	log := s.logger.WithFields(logrus.Fields{
		"device":  p.Name(),
		"package": packageName,
	})

	if err := provider.Uninstall(ctx, p, packageName); err != nil {
		log.WithError(err).Error("Failed to uninstall app")
		return 0, err
	}
	log.Info("App uninstalled")

	return s.ResolvePackage(ctx, packageName)
}
