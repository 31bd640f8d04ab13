package domain

import (
	"time"
)

// ScanFrequency 自动扫描频率
type ScanFrequency string

const (
	ScanFrequencyDaily    ScanFrequency = "DAILY"
	ScanFrequencyWeekly   ScanFrequency = "WEEKLY"
	ScanFrequencyBiweekly ScanFrequency = "BIWEEKLY"
	ScanFrequencyMonthly  ScanFrequency = "MONTHLY"
)

// PreferencesID 偏好设置为单行表
const PreferencesID = 1

// Preferences 用户偏好设置
type Preferences struct {
	ID                         uint          `gorm:"primaryKey" json:"-"`
	AutoScanEnabled            bool          `json:"auto_scan_enabled"`
	ScanFrequency              ScanFrequency `gorm:"type:varchar(20)" json:"scan_frequency"`
	RealTimeProtectionEnabled  bool          `json:"real_time_protection_enabled"`
	NotificationsEnabled       bool          `json:"notifications_enabled"`
	ThreatNotificationsEnabled bool          `json:"threat_notifications_enabled"`
	ReportNotificationsEnabled bool          `json:"report_notifications_enabled"`
	IgnoredPackages            []string      `gorm:"serializer:json;type:text" json:"ignored_packages"`
	LastScanTime               *time.Time    `json:"last_scan_time,omitempty"`
	UpdatedAt                  time.Time     `json:"updated_at"`
}

func (Preferences) TableName() string {
	return "preferences"
}

// DefaultPreferences 首次使用时的默认值
func DefaultPreferences() *Preferences {
	return &Preferences{
		ID:                         PreferencesID,
		AutoScanEnabled:            true,
		ScanFrequency:              ScanFrequencyWeekly,
		RealTimeProtectionEnabled:  false,
		NotificationsEnabled:       true,
		ThreatNotificationsEnabled: true,
		ReportNotificationsEnabled: true,
		IgnoredPackages:            []string{},
	}
}

// IsIgnored 包是否在忽略列表中
func (p *Preferences) IsIgnored(packageName string) bool {
	for _, pkg := range p.IgnoredPackages {
		if pkg == packageName {
			return true
		}
	}
	return false
}
