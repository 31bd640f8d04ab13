package domain

import (
	"time"
)

// ScanType 扫描类型
type ScanType string

const (
	ScanTypeQuick     ScanType = "QUICK"
	ScanTypeDeep      ScanType = "DEEP"
	ScanTypeCustom    ScanType = "CUSTOM"
	ScanTypeScheduled ScanType = "SCHEDULED"
	ScanTypeRealTime  ScanType = "REAL_TIME"
)

// ParseScanType 解析扫描类型，空值默认 QUICK
func ParseScanType(s string) (ScanType, bool) {
	switch ScanType(s) {
	case "":
		return ScanTypeQuick, true
	case ScanTypeQuick, ScanTypeDeep, ScanTypeCustom, ScanTypeScheduled, ScanTypeRealTime:
		return ScanType(s), true
	}
	return "", false
}

// ScanPhase 扫描阶段
type ScanPhase string

const (
	ScanPhaseInitializing         ScanPhase = "INITIALIZING"
	ScanPhaseScanningApps         ScanPhase = "SCANNING_APPS"
	ScanPhaseAnalyzingPermissions ScanPhase = "ANALYZING_PERMISSIONS"
	ScanPhaseGeneratingReport     ScanPhase = "GENERATING_REPORT"
	ScanPhaseComplete             ScanPhase = "COMPLETE"
	ScanPhaseFailed               ScanPhase = "FAILED"
)

// ScanProgress 扫描进度
type ScanProgress struct {
	JobID        string    `json:"job_id,omitempty"`
	Phase        ScanPhase `json:"phase"`
	CurrentApp   string    `json:"current_app,omitempty"`
	CurrentIndex int       `json:"current_index"`
	TotalApps    int       `json:"total_apps"`
	ThreatsFound int       `json:"threats_found"`
	Message      string    `json:"message,omitempty"`
}

// Percent 进度百分比
func (p ScanProgress) Percent() int {
	if p.Phase == ScanPhaseComplete {
		return 100
	}
	if p.TotalApps <= 0 {
		return 0
	}
	return p.CurrentIndex * 100 / p.TotalApps
}

// ScanResult 一次完成的扫描汇总，写入后不再修改
type ScanResult struct {
	ID               uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	JobID            string    `gorm:"type:varchar(36);uniqueIndex" json:"job_id"`
	ScanType         ScanType  `gorm:"type:varchar(20)" json:"scan_type"`
	Device           string    `gorm:"type:varchar(255)" json:"device"`
	StartTime        time.Time `gorm:"index" json:"start_time"`
	EndTime          time.Time `json:"end_time"`
	TotalAppsScanned int       `json:"total_apps_scanned"`
	ThreatsFound     int       `json:"threats_found"`
	CriticalCount    int       `json:"critical_count"`
	HighCount        int       `json:"high_count"`
	MediumCount      int       `json:"medium_count"`
	LowCount         int       `json:"low_count"`
	SecurityScore    int       `json:"security_score"`
}

func (ScanResult) TableName() string {
	return "scan_results"
}

// Duration 扫描耗时
func (r *ScanResult) Duration() time.Duration {
	return r.EndTime.Sub(r.StartTime)
}

// JobState 扫描任务状态
type JobState string

const (
	JobStateQueued    JobState = "QUEUED"
	JobStateRunning   JobState = "RUNNING"
	JobStateCompleted JobState = "COMPLETED"
	JobStateFailed    JobState = "FAILED"
)

// ScanJobStatus 异步扫描任务的当前状态
type ScanJobStatus struct {
	JobID     string        `json:"job_id"`
	Device    string        `json:"device"`
	ScanType  ScanType      `json:"scan_type"`
	State     JobState      `json:"state"`
	Progress  *ScanProgress `json:"progress,omitempty"`
	ScanID    uint          `json:"scan_id,omitempty"`
	Error     string        `json:"error,omitempty"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// Finished 任务已结束
func (s *ScanJobStatus) Finished() bool {
	return s.State == JobStateCompleted || s.State == JobStateFailed
}
