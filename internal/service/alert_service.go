package service

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spyware-scanner/spyware-scanner-go/internal/domain"
	"github.com/spyware-scanner/spyware-scanner-go/internal/repository"
)

// AlertService 告警服务接口
type AlertService interface {
	CreateAlert(ctx context.Context, alertType domain.AlertType, title, message, packageName string, priority int) (*domain.Alert, error)
	ListAlerts(ctx context.Context, limit int) ([]*domain.Alert, error)
	ListUnread(ctx context.Context) ([]*domain.Alert, error)
	UnreadCount(ctx context.Context) (int64, error)
	MarkRead(ctx context.Context, id uint) error
	MarkAllRead(ctx context.Context) (int64, error)
	DeleteAlert(ctx context.Context, id uint) error
	DeleteAll(ctx context.Context) (int64, error)
}

type alertService struct {
	repo   repository.AlertRepository
	logger *logrus.Logger
}

// NewAlertService 创建告警服务
func NewAlertService(repo repository.AlertRepository, logger *logrus.Logger) AlertService {
	return &alertService{
		repo:   repo,
		logger: logger,
	}
}

func (s *alertService) CreateAlert(ctx context.Context, alertType domain.AlertType, title, message, packageName string, priority int) (*domain.Alert, error) {
	alert := &domain.Alert{
		Type:        alertType,
		Title:       title,
		Message:     message,
		PackageName: packageName,
		Timestamp:   time.Now().UTC(),
		Priority:    priority,
	}

	if err := s.repo.Create(ctx, alert); err != nil {
		s.logger.WithError(err).WithField("type", alertType).Error("Failed to create alert")
		return nil, fmt.Errorf("创建告警失败: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"alert_id": alert.ID,
		"type":     alertType,
		"package":  packageName,
	}).Info("Alert created")

	return alert, nil
}

func (s *alertService) ListAlerts(ctx context.Context, limit int) ([]*domain.Alert, error) {
	return s.repo.List(ctx, limit)
}

func (s *alertService) ListUnread(ctx context.Context) ([]*domain.Alert, error) {
	return s.repo.ListUnread(ctx)
}

func (s *alertService) UnreadCount(ctx context.Context) (int64, error) {
	return s.repo.CountUnread(ctx)
}

func (s *alertService) MarkRead(ctx context.Context, id uint) error {
	return s.repo.MarkRead(ctx, id)
}

func (s *alertService) MarkAllRead(ctx context.Context) (int64, error) {
	return s.repo.MarkAllRead(ctx)
}

func (s *alertService) DeleteAlert(ctx context.Context, id uint) error {
	return s.repo.Delete(ctx, id)
}

func (s *alertService) DeleteAll(ctx context.Context) (int64, error) {
	n, err := s.repo.DeleteAll(ctx)
	if err != nil {
		return 0, fmt.Errorf("删除告警失败: %w", err)
	}
	s.logger.WithField("count", n).Info("All alerts deleted")
	return n, nil
}
