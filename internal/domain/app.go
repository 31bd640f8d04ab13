package domain

import (
	"time"
)

// ScannedApp 单个应用的最近一次扫描结果，每次扫描整体重建
type ScannedApp struct {
	PackageName           string       `gorm:"primaryKey;type:varchar(255)" json:"package_name"`
	AppName               string       `gorm:"type:varchar(255)" json:"app_name"`
	VersionName           string       `gorm:"type:varchar(100)" json:"version_name"`
	VersionCode           int64        `json:"version_code"`
	InstallTime           time.Time    `json:"install_time"`
	LastUpdateTime        time.Time    `json:"last_update_time"`
	IsSystemApp           bool         `json:"is_system_app"`
	InstallSource         string       `gorm:"type:varchar(255)" json:"install_source,omitempty"`
	ThreatLevel           ThreatLevel  `gorm:"type:varchar(20);index" json:"threat_level"`
	ThreatTypes           []ThreatType `gorm:"serializer:json;type:text" json:"threat_types"`
	SuspiciousPermissions []string     `gorm:"serializer:json;type:text" json:"suspicious_permissions"`
	RiskScore             int          `gorm:"index" json:"risk_score"`
	LastScanned           time.Time    `json:"last_scanned"`
	IsIgnored             bool         `gorm:"default:false" json:"is_ignored"`
}

func (ScannedApp) TableName() string {
	return "scanned_apps"
}
