package repository

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spyware-scanner/spyware-scanner-go/internal/domain"
	"gorm.io/gorm"
)

// ThreatRepository 威胁记录，只追加，只允许修改处置状态
type ThreatRepository interface {
	List(ctx context.Context, limit int) ([]*domain.Threat, error)
	ListUnresolved(ctx context.Context) ([]*domain.Threat, error)
	ListByPackage(ctx context.Context, packageName string) ([]*domain.Threat, error)
	ListByScan(ctx context.Context, scanID uint) ([]*domain.Threat, error)
	FindByID(ctx context.Context, id uint) (*domain.Threat, error)
	// Resolve 标记已处置，记录不存在时返回 gorm.ErrRecordNotFound
	Resolve(ctx context.Context, id uint, at time.Time) error
	ResolveByPackage(ctx context.Context, packageName string, at time.Time) (int64, error)
	CountUnresolved(ctx context.Context) (int64, error)
	CountResolvedBetween(ctx context.Context, start, end time.Time) (int64, error)
	CountByTypeBetween(ctx context.Context, start, end time.Time, limit int) ([]domain.ThreatTypeCount, error)
}

type threatRepo struct {
	db     *gorm.DB
	logger *logrus.Logger
}

func NewThreatRepository(db *gorm.DB, logger *logrus.Logger) ThreatRepository {
	return &threatRepo{
		db:     db,
		logger: logger,
	}
}

func (r *threatRepo) List(ctx context.Context, limit int) ([]*domain.Threat, error) {
	var threats []*domain.Threat
	query := r.db.WithContext(ctx).Order("detected_at DESC").Order("id DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	err := query.Find(&threats).Error
	return threats, err
}

func (r *threatRepo) ListUnresolved(ctx context.Context) ([]*domain.Threat, error) {
	var threats []*domain.Threat
	err := r.db.WithContext(ctx).
		Where("is_resolved = ?", false).
		Order("detected_at DESC").
		Order("id DESC").
		Find(&threats).Error
	return threats, err
}

func (r *threatRepo) ListByPackage(ctx context.Context, packageName string) ([]*domain.Threat, error) {
	var threats []*domain.Threat
	err := r.db.WithContext(ctx).
		Where("package_name = ?", packageName).
		Order("detected_at DESC").
		Order("id DESC").
		Find(&threats).Error
	return threats, err
}

func (r *threatRepo) ListByScan(ctx context.Context, scanID uint) ([]*domain.Threat, error) {
	var threats []*domain.Threat
	err := r.db.WithContext(ctx).
		Where("scan_id = ?", scanID).
		Order("id ASC").
		Find(&threats).Error
	return threats, err
}

func (r *threatRepo) FindByID(ctx context.Context, id uint) (*domain.Threat, error) {
	var threat domain.Threat
	if err := r.db.WithContext(ctx).First(&threat, id).Error; err != nil {
		return nil, err
	}
	return &threat, nil
}

func (r *threatRepo) Resolve(ctx context.Context, id uint, at time.Time) error {
	result := r.db.WithContext(ctx).
		Model(&domain.Threat{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"is_resolved": true,
			"resolved_at": at,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *threatRepo) ResolveByPackage(ctx context.Context, packageName string, at time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&domain.Threat{}).
		Where("package_name = ? AND is_resolved = ?", packageName, false).
		Updates(map[string]interface{}{
			"is_resolved": true,
			"resolved_at": at,
		})
	return result.RowsAffected, result.Error
}

func (r *threatRepo) CountUnresolved(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&domain.Threat{}).
		Where("is_resolved = ?", false).
		Count(&count).Error
	return count, err
}

func (r *threatRepo) CountResolvedBetween(ctx context.Context, start, end time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&domain.Threat{}).
		Where("is_resolved = ? AND resolved_at >= ? AND resolved_at <= ?", true, start, end).
		Count(&count).Error
	return count, err
}

func (r *threatRepo) CountByTypeBetween(ctx context.Context, start, end time.Time, limit int) ([]domain.ThreatTypeCount, error) {
	var rows []struct {
		ThreatType domain.ThreatType
		Total      int
	}

	query := r.db.WithContext(ctx).
		Model(&domain.Threat{}).
		Select("threat_type, COUNT(*) AS total").
		Where("detected_at >= ? AND detected_at <= ?", start, end).
		Group("threat_type").
		Order("total DESC").
		Order("threat_type ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Scan(&rows).Error; err != nil {
		return nil, err
	}

	counts := make([]domain.ThreatTypeCount, 0, len(rows))
	for _, row := range rows {
		counts = append(counts, domain.ThreatTypeCount{Type: row.ThreatType, Count: row.Total})
	}
	return counts, nil
}
