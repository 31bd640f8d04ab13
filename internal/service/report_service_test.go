package service

import (
	"context"
	"testing"
	"time"

	"github.com/spyware-scanner/spyware-scanner-go/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type reportFixture struct {
	service    ReportService
	scanRepo   *MockScanRepository
	threatRepo *MockThreatRepository
	alertRepo  *MockAlertRepository
}

func newReportFixture(prefs *domain.Preferences) *reportFixture {
	logger := testLogger()
	f := &reportFixture{
		scanRepo:   new(MockScanRepository),
		threatRepo: new(MockThreatRepository),
		alertRepo:  new(MockAlertRepository),
	}
	prefsRepo := new(MockPreferencesRepository)
	prefsRepo.On("Get", mock.Anything).Return(prefs, nil)

	f.service = NewReportService(
		f.scanRepo,
		f.threatRepo,
		NewPreferencesService(prefsRepo, new(MockAppRepository), logger),
		NewAlertService(f.alertRepo, logger),
		logger,
	)
	return f
}

var reportNow = time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)

// TestReportService_GenerateReport 测试周报汇总
func TestReportService_GenerateReport(t *testing.T) {
	f := newReportFixture(domain.DefaultPreferences())
	ctx := context.Background()
	start := reportNow.Add(-7 * 24 * time.Hour)

	scans := []*domain.ScanResult{
		{ID: 1, StartTime: start.Add(time.Hour), ThreatsFound: 2, TotalAppsScanned: 10, SecurityScore: 60},
		{ID: 2, StartTime: start.Add(48 * time.Hour), ThreatsFound: 1, TotalAppsScanned: 12, SecurityScore: 75},
		{ID: 3, StartTime: start.Add(96 * time.Hour), ThreatsFound: 0, TotalAppsScanned: 11, SecurityScore: 80},
	}
	f.scanRepo.On("ListBetween", ctx, start, reportNow).Return(scans, nil)
	f.threatRepo.On("CountResolvedBetween", ctx, start, reportNow).Return(int64(2), nil)
	f.threatRepo.On("CountByTypeBetween", ctx, start, reportNow, 3).
		Return([]domain.ThreatTypeCount{{Type: domain.ThreatTypeSpyware, Count: 2}, {Type: domain.ThreatTypeHiddenApp, Count: 1}}, nil)
	f.threatRepo.On("CountUnresolved", ctx).Return(int64(1), nil)
	f.alertRepo.On("Create", ctx, mock.AnythingOfType("*domain.Alert")).Return(nil)

	report, err := f.service.GenerateReport(ctx, domain.ReportPeriodWeekly, reportNow, true)

	require.NoError(t, err)
	assert.Equal(t, domain.ReportPeriodWeekly, report.Period)
	assert.Equal(t, start, report.StartDate)
	assert.Equal(t, reportNow, report.EndDate)
	assert.Equal(t, 3, report.TotalScans)
	assert.Equal(t, 3, report.ThreatsDetected)
	assert.Equal(t, 2, report.ThreatsResolved)
	assert.Equal(t, 12, report.AppsAnalyzed)
	assert.Equal(t, 71, report.AverageScore)
	assert.Equal(t, 20, report.ScoreImprovement)
	assert.Len(t, report.TopThreats, 2)
	assert.Contains(t, report.Recommendations, "Review and resolve 1 unresolved threats")
	assert.Contains(t, report.Recommendations, "Check apps flagged for Spyware")

	f.alertRepo.AssertCalled(t, "Create", ctx, mock.MatchedBy(func(a *domain.Alert) bool {
		return a.Type == domain.AlertTypeWeeklyReport && a.Title == "Weekly Security Report"
	}))
}

// TestReportService_GenerateReport_Empty 没有扫描时平均分为 100
func TestReportService_GenerateReport_Empty(t *testing.T) {
	f := newReportFixture(domain.DefaultPreferences())
	ctx := context.Background()
	start := reportNow.Add(-30 * 24 * time.Hour)

	f.scanRepo.On("ListBetween", ctx, start, reportNow).Return([]*domain.ScanResult{}, nil)
	f.threatRepo.On("CountResolvedBetween", ctx, start, reportNow).Return(int64(0), nil)
	f.threatRepo.On("CountByTypeBetween", ctx, start, reportNow, 3).Return(nil, nil)
	f.threatRepo.On("CountUnresolved", ctx).Return(int64(0), nil)

	report, err := f.service.GenerateReport(ctx, domain.ReportPeriodMonthly, reportNow, false)

	require.NoError(t, err)
	assert.Equal(t, 0, report.TotalScans)
	assert.Equal(t, 100, report.AverageScore)
	assert.Equal(t, 0, report.ScoreImprovement)
	assert.NotNil(t, report.TopThreats)
	assert.Equal(t, []string{"Run a security scan to assess your device"}, report.Recommendations)
	f.alertRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

// TestReportService_GenerateReport_SingleScan 单次扫描没有分数变化
func TestReportService_GenerateReport_SingleScan(t *testing.T) {
	prefs := domain.DefaultPreferences()
	prefs.ReportNotificationsEnabled = false
	f := newReportFixture(prefs)
	ctx := context.Background()
	start := reportNow.Add(-7 * 24 * time.Hour)

	f.scanRepo.On("ListBetween", ctx, start, reportNow).
		Return([]*domain.ScanResult{{ID: 1, TotalAppsScanned: 40, SecurityScore: 50, ThreatsFound: 6}}, nil)
	f.threatRepo.On("CountResolvedBetween", ctx, start, reportNow).Return(int64(0), nil)
	f.threatRepo.On("CountByTypeBetween", ctx, start, reportNow, 3).Return([]domain.ThreatTypeCount{}, nil)
	f.threatRepo.On("CountUnresolved", ctx).Return(int64(0), nil)

	report, err := f.service.GenerateReport(ctx, domain.ReportPeriodWeekly, reportNow, true)

	require.NoError(t, err)
	assert.Equal(t, 50, report.AverageScore)
	assert.Equal(t, 0, report.ScoreImprovement)
	assert.Contains(t, report.Recommendations, "Your security score is low. Remove or restrict high-risk apps")
	f.alertRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

// TestReportService_GenerateReport_InvalidPeriod 未知周期
func TestReportService_GenerateReport_InvalidPeriod(t *testing.T) {
	f := newReportFixture(domain.DefaultPreferences())

	_, err := f.service.GenerateReport(context.Background(), "DAILY", reportNow, false)
	assert.ErrorIs(t, err, ErrInvalidPeriod)
}
