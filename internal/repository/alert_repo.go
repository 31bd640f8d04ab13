package repository

import (
	"context"

	"github.com/sirupsen/logrus"
	"github.com/spyware-scanner/spyware-scanner-go/internal/domain"
	"gorm.io/gorm"
)

type AlertRepository interface {
	Create(ctx context.Context, alert *domain.Alert) error
	List(ctx context.Context, limit int) ([]*domain.Alert, error)
	ListUnread(ctx context.Context) ([]*domain.Alert, error)
	CountUnread(ctx context.Context) (int64, error)
	// MarkRead 记录不存在时返回 gorm.ErrRecordNotFound
	MarkRead(ctx context.Context, id uint) error
	MarkAllRead(ctx context.Context) (int64, error)
	Delete(ctx context.Context, id uint) error
	DeleteAll(ctx context.Context) (int64, error)
}

type alertRepo struct {
	db     *gorm.DB
	logger *logrus.Logger
}

func NewAlertRepository(db *gorm.DB, logger *logrus.Logger) AlertRepository {
	return &alertRepo{
		db:     db,
		logger: logger,
	}
}

func (r *alertRepo) Create(ctx context.Context, alert *domain.Alert) error {
	return r.db.WithContext(ctx).Create(alert).Error
}

func (r *alertRepo) List(ctx context.Context, limit int) ([]*domain.Alert, error) {
	var alerts []*domain.Alert
	query := r.db.WithContext(ctx).Order("timestamp DESC").Order("id DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	err := query.Find(&alerts).Error
	return alerts, err
}

func (r *alertRepo) ListUnread(ctx context.Context) ([]*domain.Alert, error) {
	var alerts []*domain.Alert
	err := r.db.WithContext(ctx).
		Where("is_read = ?", false).
		Order("priority DESC").
		Order("timestamp DESC").
		Find(&alerts).Error
	return alerts, err
}

func (r *alertRepo) CountUnread(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.Alert{}).Where("is_read = ?", false).Count(&count).Error
	return count, err
}

func (r *alertRepo) MarkRead(ctx context.Context, id uint) error {
	var alert domain.Alert
	if err := r.db.WithContext(ctx).First(&alert, id).Error; err != nil {
		return err
	}
	return r.db.WithContext(ctx).Model(&alert).Update("is_read", true).Error
}

func (r *alertRepo) MarkAllRead(ctx context.Context) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&domain.Alert{}).
		Where("is_read = ?", false).
		Update("is_read", true)
	return result.RowsAffected, result.Error
}

func (r *alertRepo) Delete(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).Delete(&domain.Alert{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *alertRepo) DeleteAll(ctx context.Context) (int64, error) {
	result := r.db.WithContext(ctx).Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&domain.Alert{})
	return result.RowsAffected, result.Error
}
