package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spyware-scanner/spyware-scanner-go/internal/domain"
	"gorm.io/gorm"
)

const insertBatchSize = 200

// ScanRepository 扫描汇总及一次扫描的整体落库
type ScanRepository interface {
	// SaveScan 在一个事务内写入汇总、整体替换应用记录并追加威胁
	SaveScan(ctx context.Context, result *domain.ScanResult, apps []*domain.ScannedApp, threats []*domain.Threat) error
	FindByID(ctx context.Context, id uint) (*domain.ScanResult, error)
	FindByJobID(ctx context.Context, jobID string) (*domain.ScanResult, error)
	Latest(ctx context.Context) (*domain.ScanResult, error)
	ListRecent(ctx context.Context, limit int) ([]*domain.ScanResult, error)
	// ListBetween 按开始时间升序
	ListBetween(ctx context.Context, start, end time.Time) ([]*domain.ScanResult, error)
}

type scanRepo struct {
	db     *gorm.DB
	logger *logrus.Logger
}

func NewScanRepository(db *gorm.DB, logger *logrus.Logger) ScanRepository {
	return &scanRepo{
		db:     db,
		logger: logger,
	}
}

func (r *scanRepo) SaveScan(ctx context.Context, result *domain.ScanResult, apps []*domain.ScannedApp, threats []*domain.Threat) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(result).Error; err != nil {
			return fmt.Errorf("写入扫描汇总失败: %w", err)
		}

		if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&domain.ScannedApp{}).Error; err != nil {
			return fmt.Errorf("清空应用记录失败: %w", err)
		}
		if len(apps) > 0 {
			if err := tx.CreateInBatches(apps, insertBatchSize).Error; err != nil {
				return fmt.Errorf("写入应用记录失败: %w", err)
			}
		}

		for _, t := range threats {
			t.ScanID = result.ID
		}
		if len(threats) > 0 {
			if err := tx.CreateInBatches(threats, insertBatchSize).Error; err != nil {
				return fmt.Errorf("写入威胁记录失败: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	r.logger.WithFields(logrus.Fields{
		"scan_id": result.ID,
		"job_id":  result.JobID,
		"apps":    len(apps),
		"threats": len(threats),
	}).Debug("Scan persisted")
	return nil
}

func (r *scanRepo) FindByID(ctx context.Context, id uint) (*domain.ScanResult, error) {
	var result domain.ScanResult
	if err := r.db.WithContext(ctx).First(&result, id).Error; err != nil {
		return nil, err
	}
	return &result, nil
}

func (r *scanRepo) FindByJobID(ctx context.Context, jobID string) (*domain.ScanResult, error) {
	var result domain.ScanResult
	if err := r.db.WithContext(ctx).Where("job_id = ?", jobID).First(&result).Error; err != nil {
		return nil, err
	}
	return &result, nil
}

func (r *scanRepo) Latest(ctx context.Context) (*domain.ScanResult, error) {
	var result domain.ScanResult
	err := r.db.WithContext(ctx).
		Order("start_time DESC").
		Order("id DESC").
		First(&result).Error
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (r *scanRepo) ListRecent(ctx context.Context, limit int) ([]*domain.ScanResult, error) {
	var results []*domain.ScanResult
	query := r.db.WithContext(ctx).Order("start_time DESC").Order("id DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	err := query.Find(&results).Error
	return results, err
}

func (r *scanRepo) ListBetween(ctx context.Context, start, end time.Time) ([]*domain.ScanResult, error) {
	var results []*domain.ScanResult
	err := r.db.WithContext(ctx).
		Where("start_time >= ? AND start_time <= ?", start, end).
		Order("start_time ASC").
		Order("id ASC").
		Find(&results).Error
	return results, err
}
