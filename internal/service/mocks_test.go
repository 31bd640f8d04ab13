package service

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spyware-scanner/spyware-scanner-go/internal/detection"
	"github.com/spyware-scanner/spyware-scanner-go/internal/domain"
	"github.com/stretchr/testify/mock"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)
	return logger
}

// MockScanRepository Mock ScanRepository
type MockScanRepository struct {
	mock.Mock
}

func (m *MockScanRepository) SaveScan(ctx context.Context, result *domain.ScanResult, apps []*domain.ScannedApp, threats []*domain.Threat) error {
	args := m.Called(ctx, result, apps, threats)
	return args.Error(0)
}

func (m *MockScanRepository) FindByID(ctx context.Context, id uint) (*domain.ScanResult, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ScanResult), args.Error(1)
}

func (m *MockScanRepository) FindByJobID(ctx context.Context, jobID string) (*domain.ScanResult, error) {
	args := m.Called(ctx, jobID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ScanResult), args.Error(1)
}

func (m *MockScanRepository) Latest(ctx context.Context) (*domain.ScanResult, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ScanResult), args.Error(1)
}

func (m *MockScanRepository) ListRecent(ctx context.Context, limit int) ([]*domain.ScanResult, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.ScanResult), args.Error(1)
}

func (m *MockScanRepository) ListBetween(ctx context.Context, start, end time.Time) ([]*domain.ScanResult, error) {
	args := m.Called(ctx, start, end)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.ScanResult), args.Error(1)
}

// MockAppRepository Mock AppRepository
type MockAppRepository struct {
	mock.Mock
}

func (m *MockAppRepository) List(ctx context.Context) ([]*domain.ScannedApp, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.ScannedApp), args.Error(1)
}

func (m *MockAppRepository) ListThreatening(ctx context.Context) ([]*domain.ScannedApp, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.ScannedApp), args.Error(1)
}

func (m *MockAppRepository) FindByPackage(ctx context.Context, packageName string) (*domain.ScannedApp, error) {
	args := m.Called(ctx, packageName)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ScannedApp), args.Error(1)
}

func (m *MockAppRepository) SetIgnored(ctx context.Context, packageName string, ignored bool) error {
	args := m.Called(ctx, packageName, ignored)
	return args.Error(0)
}

func (m *MockAppRepository) Count(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

// MockThreatRepository Mock ThreatRepository
type MockThreatRepository struct {
	mock.Mock
}

func (m *MockThreatRepository) List(ctx context.Context, limit int) ([]*domain.Threat, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Threat), args.Error(1)
}

func (m *MockThreatRepository) ListUnresolved(ctx context.Context) ([]*domain.Threat, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Threat), args.Error(1)
}

func (m *MockThreatRepository) ListByPackage(ctx context.Context, packageName string) ([]*domain.Threat, error) {
	args := m.Called(ctx, packageName)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Threat), args.Error(1)
}

func (m *MockThreatRepository) ListByScan(ctx context.Context, scanID uint) ([]*domain.Threat, error) {
	args := m.Called(ctx, scanID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Threat), args.Error(1)
}

func (m *MockThreatRepository) FindByID(ctx context.Context, id uint) (*domain.Threat, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Threat), args.Error(1)
}

func (m *MockThreatRepository) Resolve(ctx context.Context, id uint, at time.Time) error {
	args := m.Called(ctx, id, at)
	return args.Error(0)
}

func (m *MockThreatRepository) ResolveByPackage(ctx context.Context, packageName string, at time.Time) (int64, error) {
	args := m.Called(ctx, packageName, at)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockThreatRepository) CountUnresolved(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockThreatRepository) CountResolvedBetween(ctx context.Context, start, end time.Time) (int64, error) {
	args := m.Called(ctx, start, end)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockThreatRepository) CountByTypeBetween(ctx context.Context, start, end time.Time, limit int) ([]domain.ThreatTypeCount, error) {
	args := m.Called(ctx, start, end, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.ThreatTypeCount), args.Error(1)
}

// MockAlertRepository Mock AlertRepository
type MockAlertRepository struct {
	mock.Mock
}

func (m *MockAlertRepository) Create(ctx context.Context, alert *domain.Alert) error {
	args := m.Called(ctx, alert)
	return args.Error(0)
}

func (m *MockAlertRepository) List(ctx context.Context, limit int) ([]*domain.Alert, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Alert), args.Error(1)
}

func (m *MockAlertRepository) ListUnread(ctx context.Context) ([]*domain.Alert, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Alert), args.Error(1)
}

func (m *MockAlertRepository) CountUnread(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockAlertRepository) MarkRead(ctx context.Context, id uint) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockAlertRepository) MarkAllRead(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockAlertRepository) Delete(ctx context.Context, id uint) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockAlertRepository) DeleteAll(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

// MockPreferencesRepository Mock PreferencesRepository
type MockPreferencesRepository struct {
	mock.Mock
}

func (m *MockPreferencesRepository) Get(ctx context.Context) (*domain.Preferences, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Preferences), args.Error(1)
}

func (m *MockPreferencesRepository) Save(ctx context.Context, prefs *domain.Preferences) error {
	args := m.Called(ctx, prefs)
	return args.Error(0)
}

// fakeProvider 固定应用列表的提供者
type fakeProvider struct {
	name string
	apps []detection.AppMetadata
	err  error
}

func (p *fakeProvider) Name() string {
	return p.name
}

func (p *fakeProvider) ListInstalledApps(ctx context.Context) ([]detection.AppMetadata, error) {
	if p.err != nil {
		return nil, p.err
	}
	return p.apps, nil
}

// removableProvider 支持卸载的提供者
type removableProvider struct {
	fakeProvider
	removed []string
	err     error
}

func (p *removableProvider) Uninstall(ctx context.Context, packageName string) error {
	if p.err != nil {
		return p.err
	}
	p.removed = append(p.removed, packageName)
	return nil
}

// recordingMetrics 记录指标调用
type recordingMetrics struct {
	mu        sync.Mutex
	started   int
	completed int
	failed    int
	threats   map[string]int
	scores    map[string]int
}

func newRecordingMetrics() *recordingMetrics {
	return &recordingMetrics{
		threats: make(map[string]int),
		scores:  make(map[string]int),
	}
}

func (m *recordingMetrics) RecordScanStarted(string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.started++
}

func (m *recordingMetrics) RecordScanCompleted(string, time.Duration, int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.completed++
}

func (m *recordingMetrics) RecordScanFailed(string, time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failed++
}

func (m *recordingMetrics) RecordThreatDetected(level, threatType string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.threats[level]++
}

func (m *recordingMetrics) UpdateSecurityScore(device string, score int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.scores[device] = score
}
