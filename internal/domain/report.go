package domain

import (
	"time"
)

// ReportPeriod 报告周期
type ReportPeriod string

const (
	ReportPeriodWeekly  ReportPeriod = "WEEKLY"
	ReportPeriodMonthly ReportPeriod = "MONTHLY"
)

// Window 周期对应的时间窗口
func (p ReportPeriod) Window() (time.Duration, bool) {
	switch p {
	case ReportPeriodWeekly:
		return 7 * 24 * time.Hour, true
	case ReportPeriodMonthly:
		return 30 * 24 * time.Hour, true
	}
	return 0, false
}

// ThreatTypeCount 威胁类型计数
type ThreatTypeCount struct {
	Type  ThreatType `json:"type"`
	Count int        `json:"count"`
}

// SecurityReport 周期安全报告
type SecurityReport struct {
	Period           ReportPeriod      `json:"period"`
	StartDate        time.Time         `json:"start_date"`
	EndDate          time.Time         `json:"end_date"`
	TotalScans       int               `json:"total_scans"`
	ThreatsDetected  int               `json:"threats_detected"`
	ThreatsResolved  int               `json:"threats_resolved"`
	AppsAnalyzed     int               `json:"apps_analyzed"`
	AverageScore     int               `json:"average_security_score"`
	ScoreImprovement int               `json:"score_improvement"`
	TopThreats       []ThreatTypeCount `json:"top_threats"`
	Recommendations  []string          `json:"recommendations"`
}

// RemovalGuide 应用卸载指引
type RemovalGuide struct {
	PackageName    string   `json:"package_name"`
	AppName        string   `json:"app_name"`
	Found          bool     `json:"found"`
	Steps          []string `json:"steps"`
	AdbCommand     string   `json:"adb_command,omitempty"`
	AdditionalInfo string   `json:"additional_info"`
}
