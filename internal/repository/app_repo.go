package repository

import (
	"context"

	"github.com/sirupsen/logrus"
	"github.com/spyware-scanner/spyware-scanner-go/internal/domain"
	"gorm.io/gorm"
)

// AppRepository 最近一次扫描的应用记录
type AppRepository interface {
	List(ctx context.Context) ([]*domain.ScannedApp, error)
	// 等级高于 SAFE 且未忽略的应用
	ListThreatening(ctx context.Context) ([]*domain.ScannedApp, error)
	FindByPackage(ctx context.Context, packageName string) (*domain.ScannedApp, error)
	SetIgnored(ctx context.Context, packageName string, ignored bool) error
	Count(ctx context.Context) (int64, error)
}

type appRepo struct {
	db     *gorm.DB
	logger *logrus.Logger
}

func NewAppRepository(db *gorm.DB, logger *logrus.Logger) AppRepository {
	return &appRepo{
		db:     db,
		logger: logger,
	}
}

func (r *appRepo) List(ctx context.Context) ([]*domain.ScannedApp, error) {
	var apps []*domain.ScannedApp
	err := r.db.WithContext(ctx).
		Order("risk_score DESC").
		Order("package_name ASC").
		Find(&apps).Error
	return apps, err
}

func (r *appRepo) ListThreatening(ctx context.Context) ([]*domain.ScannedApp, error) {
	var apps []*domain.ScannedApp
	err := r.db.WithContext(ctx).
		Where("threat_level <> ? AND is_ignored = ?", domain.ThreatLevelSafe, false).
		Order("risk_score DESC").
		Order("package_name ASC").
		Find(&apps).Error
	return apps, err
}

func (r *appRepo) FindByPackage(ctx context.Context, packageName string) (*domain.ScannedApp, error) {
	var app domain.ScannedApp
	err := r.db.WithContext(ctx).Where("package_name = ?", packageName).First(&app).Error
	if err != nil {
		return nil, err
	}
	return &app, nil
}

func (r *appRepo) SetIgnored(ctx context.Context, packageName string, ignored bool) error {
	return r.db.WithContext(ctx).
		Model(&domain.ScannedApp{}).
		Where("package_name = ?", packageName).
		Update("is_ignored", ignored).Error
}

func (r *appRepo) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.ScannedApp{}).Count(&count).Error
	return count, err
}
