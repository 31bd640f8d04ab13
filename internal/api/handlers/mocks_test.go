package handlers

import (
	"context"
	"io"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spyware-scanner/spyware-scanner-go/internal/detection"
	"github.com/spyware-scanner/spyware-scanner-go/internal/domain"
	"github.com/spyware-scanner/spyware-scanner-go/internal/provider"
	"github.com/spyware-scanner/spyware-scanner-go/internal/service"
	"github.com/spyware-scanner/spyware-scanner-go/internal/worker"
	"github.com/stretchr/testify/mock"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

// MockScanService Mock Service
type MockScanService struct {
	mock.Mock
}

func (m *MockScanService) PerformScan(ctx context.Context, p provider.MetadataProvider, req service.ScanRequest, onProgress service.ProgressFunc) (*domain.ScanResult, error) {
	args := m.Called(p, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ScanResult), args.Error(1)
}

func (m *MockScanService) GetScan(ctx context.Context, id uint) (*domain.ScanResult, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ScanResult), args.Error(1)
}

func (m *MockScanService) GetScanByJobID(ctx context.Context, jobID string) (*domain.ScanResult, error) {
	args := m.Called(jobID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ScanResult), args.Error(1)
}

func (m *MockScanService) LatestScan(ctx context.Context) (*domain.ScanResult, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ScanResult), args.Error(1)
}

func (m *MockScanService) RecentScans(ctx context.Context, limit int) ([]*domain.ScanResult, error) {
	args := m.Called(limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.ScanResult), args.Error(1)
}

func (m *MockScanService) ListApps(ctx context.Context) ([]*domain.ScannedApp, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.ScannedApp), args.Error(1)
}

func (m *MockScanService) ListThreateningApps(ctx context.Context) ([]*domain.ScannedApp, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.ScannedApp), args.Error(1)
}

func (m *MockScanService) GetApp(ctx context.Context, packageName string) (*domain.ScannedApp, error) {
	args := m.Called(packageName)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ScannedApp), args.Error(1)
}

// MockThreatService Mock Service
type MockThreatService struct {
	mock.Mock
}

func (m *MockThreatService) ListThreats(ctx context.Context, limit int) ([]*domain.Threat, error) {
	args := m.Called(limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Threat), args.Error(1)
}

func (m *MockThreatService) ListUnresolved(ctx context.Context) ([]*domain.Threat, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Threat), args.Error(1)
}

func (m *MockThreatService) ListByPackage(ctx context.Context, packageName string) ([]*domain.Threat, error) {
	args := m.Called(packageName)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Threat), args.Error(1)
}

func (m *MockThreatService) GetThreat(ctx context.Context, id uint) (*domain.Threat, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Threat), args.Error(1)
}

func (m *MockThreatService) ResolveThreat(ctx context.Context, id uint) error {
	args := m.Called(id)
	return args.Error(0)
}

func (m *MockThreatService) ResolvePackage(ctx context.Context, packageName string) (int64, error) {
	args := m.Called(packageName)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockThreatService) RemovalGuide(ctx context.Context, packageName string) (*domain.RemovalGuide, error) {
	args := m.Called(packageName)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.RemovalGuide), args.Error(1)
}

func (m *MockThreatService) UninstallApp(ctx context.Context, p provider.MetadataProvider, packageName string) (int64, error) {
	args := m.Called(p.Name(), packageName)
	return args.Get(0).(int64), args.Error(1)
}

// MockAlertService Mock Service
type MockAlertService struct {
	mock.Mock
}

func (m *MockAlertService) CreateAlert(ctx context.Context, alertType domain.AlertType, title, message, packageName string, priority int) (*domain.Alert, error) {
	args := m.Called(alertType, title, message, packageName, priority)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Alert), args.Error(1)
}

func (m *MockAlertService) ListAlerts(ctx context.Context, limit int) ([]*domain.Alert, error) {
	args := m.Called(limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Alert), args.Error(1)
}

func (m *MockAlertService) ListUnread(ctx context.Context) ([]*domain.Alert, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Alert), args.Error(1)
}

func (m *MockAlertService) UnreadCount(ctx context.Context) (int64, error) {
	args := m.Called()
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockAlertService) MarkRead(ctx context.Context, id uint) error {
	args := m.Called(id)
	return args.Error(0)
}

func (m *MockAlertService) MarkAllRead(ctx context.Context) (int64, error) {
	args := m.Called()
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockAlertService) DeleteAlert(ctx context.Context, id uint) error {
	args := m.Called(id)
	return args.Error(0)
}

func (m *MockAlertService) DeleteAll(ctx context.Context) (int64, error) {
	args := m.Called()
	return args.Get(0).(int64), args.Error(1)
}

// MockReportService Mock Service
type MockReportService struct {
	mock.Mock
}

func (m *MockReportService) GenerateReport(ctx context.Context, period domain.ReportPeriod, now time.Time, notify bool) (*domain.SecurityReport, error) {
	args := m.Called(period, now, notify)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.SecurityReport), args.Error(1)
}

// MockPreferencesService Mock Service
type MockPreferencesService struct {
	mock.Mock
}

func (m *MockPreferencesService) GetPreferences(ctx context.Context) (*domain.Preferences, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Preferences), args.Error(1)
}

func (m *MockPreferencesService) UpdatePreferences(ctx context.Context, update *service.PreferencesUpdate) (*domain.Preferences, error) {
	args := m.Called(update)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Preferences), args.Error(1)
}

func (m *MockPreferencesService) IgnorePackage(ctx context.Context, packageName string) (*domain.Preferences, error) {
	args := m.Called(packageName)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Preferences), args.Error(1)
}

func (m *MockPreferencesService) UnignorePackage(ctx context.Context, packageName string) (*domain.Preferences, error) {
	args := m.Called(packageName)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Preferences), args.Error(1)
}

func (m *MockPreferencesService) RecordScanTime(ctx context.Context, at time.Time) error {
	args := m.Called(at)
	return args.Error(0)
}

// fakeDispatcher 记录提交的任务
type fakeDispatcher struct {
	jobs []*worker.ScanJob
	err  error
}

func (d *fakeDispatcher) Dispatch(ctx context.Context, job *worker.ScanJob) (*domain.ScanJobStatus, error) {
	if d.err != nil {
		return nil, d.err
	}
	if job.ScanType == "" {
		job.ScanType = domain.ScanTypeQuick
	}
	job.JobID = "job-1"
	d.jobs = append(d.jobs, job)
	return &domain.ScanJobStatus{
		JobID:    job.JobID,
		Device:   job.Device,
		ScanType: job.ScanType,
		State:    domain.JobStateQueued,
	}, nil
}

type deviceProvider struct {
	name string
}

func (p deviceProvider) Name() string {
	return p.name
}

func (p deviceProvider) ListInstalledApps(ctx context.Context) ([]detection.AppMetadata, error) {
	return nil, nil
}

type fakeDevices struct {
	err error
}

func (d *fakeDevices) ForDevice(ctx context.Context, device string) (provider.MetadataProvider, error) {
	if d.err != nil {
		return nil, d.err
	}
	return deviceProvider{name: device}, nil
}
