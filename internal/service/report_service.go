package service

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spyware-scanner/spyware-scanner-go/internal/domain"
	"github.com/spyware-scanner/spyware-scanner-go/internal/repository"
)

const topThreatLimit = 3

// lowScoreThreshold 平均分低于该值时给出加固建议
const lowScoreThreshold = 70

// ReportService 安全报告服务接口
type ReportService interface {
	// GenerateReport 汇总 [now-窗口, now] 内的扫描，notify 为 true 时按偏好发送报告告警
	GenerateReport(ctx context.Context, period domain.ReportPeriod, now time.Time, notify bool) (*domain.SecurityReport, error)
}

type reportService struct {
	scanRepo   repository.ScanRepository
	threatRepo repository.ThreatRepository
	prefs      PreferencesService
	alerts     AlertService
	logger     *logrus.Logger
}

// NewReportService 创建报告服务
func NewReportService(
	scanRepo repository.ScanRepository,
	threatRepo repository.ThreatRepository,
	prefs PreferencesService,
	alerts AlertService,
	logger *logrus.Logger,
) ReportService {
	return &reportService{
		scanRepo:   scanRepo,
		threatRepo: threatRepo,
		prefs:      prefs,
		alerts:     alerts,
		logger:     logger,
	}
}

func (s *reportService) GenerateReport(ctx context.Context, period domain.ReportPeriod, now time.Time, notify bool) (*domain.SecurityReport, error) {
	window, ok := period.Window()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrInvalidPeriod, period)
	}

	end := now.UTC()
	start := end.Add(-window)

	scans, err := s.scanRepo.ListBetween(ctx, start, end)
	if err != nil {
		return nil, fmt.Errorf("查询扫描记录失败: %w", err)
	}

	resolved, err := s.threatRepo.CountResolvedBetween(ctx, start, end)
	if err != nil {
		return nil, fmt.Errorf("统计已处置威胁失败: %w", err)
	}

	top, err := s.threatRepo.CountByTypeBetween(ctx, start, end, topThreatLimit)
	if err != nil {
		return nil, fmt.Errorf("统计威胁类型失败: %w", err)
	}

	unresolved, err := s.threatRepo.CountUnresolved(ctx)
	if err != nil {
		return nil, fmt.Errorf("统计未处置威胁失败: %w", err)
	}

	report := &domain.SecurityReport{
		Period:          period,
		StartDate:       start,
		EndDate:         end,
		TotalScans:      len(scans),
		ThreatsResolved: int(resolved),
		AverageScore:    100,
		TopThreats:      top,
	}
	if report.TopThreats == nil {
		report.TopThreats = []domain.ThreatTypeCount{}
	}

	if len(scans) > 0 {
		scoreSum := 0
		for _, scan := range scans {
			report.ThreatsDetected += scan.ThreatsFound
			scoreSum += scan.SecurityScore
			if scan.TotalAppsScanned > report.AppsAnalyzed {
				report.AppsAnalyzed = scan.TotalAppsScanned
			}
		}
		report.AverageScore = scoreSum / len(scans)
		if len(scans) >= 2 {
			// scans 按开始时间升序
			report.ScoreImprovement = scans[len(scans)-1].SecurityScore - scans[0].SecurityScore
		}
	}

	prefs, err := s.prefs.GetPreferences(ctx)
	if err != nil {
		return nil, err
	}

	report.Recommendations = buildRecommendations(report, unresolved, prefs)

	s.logger.WithFields(logrus.Fields{
		"period":        period,
		"scans":         report.TotalScans,
		"threats":       report.ThreatsDetected,
		"resolved":      report.ThreatsResolved,
		"average_score": report.AverageScore,
	}).Info("Security report generated")

	if notify && prefs.NotificationsEnabled && prefs.ReportNotificationsEnabled {
		title := "Weekly Security Report"
		if period == domain.ReportPeriodMonthly {
			title = "Monthly Security Report"
		}
		message := fmt.Sprintf("%d scans, %d threats detected, %d resolved. Average security score: %d",
			report.TotalScans, report.ThreatsDetected, report.ThreatsResolved, report.AverageScore)
		if _, err := s.alerts.CreateAlert(ctx, domain.AlertTypeWeeklyReport, title, message, "", 0); err != nil {
			s.logger.WithError(err).Warn("Failed to create report alert")
		}
	}

	return report, nil
}

func buildRecommendations(report *domain.SecurityReport, unresolved int64, prefs *domain.Preferences) []string {
	var recs []string

	if report.TotalScans == 0 {
		recs = append(recs, "Run a security scan to assess your device")
	}
	if unresolved > 0 {
		recs = append(recs, fmt.Sprintf("Review and resolve %d unresolved threats", unresolved))
	}
	if report.TotalScans > 0 && report.AverageScore < lowScoreThreshold {
		recs = append(recs, "Your security score is low. Remove or restrict high-risk apps")
	}
	if len(report.TopThreats) > 0 {
		recs = append(recs, fmt.Sprintf("Check apps flagged for %s", report.TopThreats[0].Type.DisplayName()))
	}
	if report.ScoreImprovement < 0 {
		recs = append(recs, "Your security score dropped during this period. Review recently installed apps")
	}
	if !prefs.AutoScanEnabled {
		recs = append(recs, "Enable automatic scanning to keep your device protected")
	}

	if len(recs) == 0 {
		recs = append(recs, "Your device looks healthy. Keep scanning regularly")
	}
	return recs
}
