package repository

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"
	"github.com/spyware-scanner/spyware-scanner-go/internal/domain"
	"gorm.io/gorm"
)

// PreferencesRepository 单行偏好设置
type PreferencesRepository interface {
	// Get 没有记录时返回默认值
	Get(ctx context.Context) (*domain.Preferences, error)
	Save(ctx context.Context, prefs *domain.Preferences) error
}

type preferencesRepo struct {
	db     *gorm.DB
	logger *logrus.Logger
}

func NewPreferencesRepository(db *gorm.DB, logger *logrus.Logger) PreferencesRepository {
	return &preferencesRepo{
		db:     db,
		logger: logger,
	}
}

func (r *preferencesRepo) Get(ctx context.Context) (*domain.Preferences, error) {
	var prefs domain.Preferences
	err := r.db.WithContext(ctx).First(&prefs, domain.PreferencesID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.DefaultPreferences(), nil
	}
	if err != nil {
		return nil, err
	}
	if prefs.IgnoredPackages == nil {
		prefs.IgnoredPackages = []string{}
	}
	return &prefs, nil
}

func (r *preferencesRepo) Save(ctx context.Context, prefs *domain.Preferences) error {
	prefs.ID = domain.PreferencesID
	if prefs.IgnoredPackages == nil {
		prefs.IgnoredPackages = []string{}
	}
	return r.db.WithContext(ctx).Save(prefs).Error
}
