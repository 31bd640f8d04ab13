package domain

import (
	"time"
)

// ThreatLevel 威胁等级，按 Priority 有序: SAFE < LOW < MEDIUM < HIGH < CRITICAL
type ThreatLevel string

const (
	ThreatLevelSafe     ThreatLevel = "SAFE"
	ThreatLevelLow      ThreatLevel = "LOW"
	ThreatLevelMedium   ThreatLevel = "MEDIUM"
	ThreatLevelHigh     ThreatLevel = "HIGH"
	ThreatLevelCritical ThreatLevel = "CRITICAL"
)

// Priority 等级序号，SAFE 为 0
func (l ThreatLevel) Priority() int {
	switch l {
	case ThreatLevelLow:
		return 1
	case ThreatLevelMedium:
		return 2
	case ThreatLevelHigh:
		return 3
	case ThreatLevelCritical:
		return 4
	default:
		return 0
	}
}

// DisplayName 展示名称
func (l ThreatLevel) DisplayName() string {
	switch l {
	case ThreatLevelLow:
		return "Low Risk"
	case ThreatLevelMedium:
		return "Medium Risk"
	case ThreatLevelHigh:
		return "High Risk"
	case ThreatLevelCritical:
		return "Critical Risk"
	default:
		return "Safe"
	}
}

// ThreatType 威胁类型
type ThreatType string

const (
	ThreatTypeSpyware               ThreatType = "SPYWARE"
	ThreatTypeTracking              ThreatType = "TRACKING"
	ThreatTypeSuspiciousPermissions ThreatType = "SUSPICIOUS_PERMISSIONS"
	ThreatTypeUnknownSource         ThreatType = "UNKNOWN_SOURCE"
	ThreatTypeHiddenApp             ThreatType = "HIDDEN_APP"
	ThreatTypeDataHarvester         ThreatType = "DATA_HARVESTER"
	ThreatTypeKeylogger             ThreatType = "KEYLOGGER"
	ThreatTypeStalkerware           ThreatType = "STALKERWARE"
	ThreatTypeAdware                ThreatType = "ADWARE"
	ThreatTypeSystemModifier        ThreatType = "SYSTEM_MODIFIER"
)

// DisplayName 展示名称
func (t ThreatType) DisplayName() string {
	switch t {
	case ThreatTypeSpyware:
		return "Spyware"
	case ThreatTypeTracking:
		return "Tracking App"
	case ThreatTypeSuspiciousPermissions:
		return "Suspicious Permissions"
	case ThreatTypeUnknownSource:
		return "Unknown Source"
	case ThreatTypeHiddenApp:
		return "Hidden App"
	case ThreatTypeDataHarvester:
		return "Data Harvester"
	case ThreatTypeKeylogger:
		return "Potential Keylogger"
	case ThreatTypeStalkerware:
		return "Stalkerware"
	case ThreatTypeAdware:
		return "Adware"
	case ThreatTypeSystemModifier:
		return "System Modifier"
	default:
		return string(t)
	}
}

// Threat 检测到的威胁记录，只有处置状态可变
type Threat struct {
	ID          uint        `gorm:"primaryKey;autoIncrement" json:"id"`
	ScanID      uint        `gorm:"index" json:"scan_id"`
	PackageName string      `gorm:"type:varchar(255);index;not null" json:"package_name"`
	AppName     string      `gorm:"type:varchar(255)" json:"app_name"`
	ThreatLevel ThreatLevel `gorm:"type:varchar(20);index" json:"threat_level"`
	ThreatType  ThreatType  `gorm:"type:varchar(40);index" json:"threat_type"`
	Description string      `gorm:"type:text" json:"description"`
	DetectedAt  time.Time   `gorm:"index" json:"detected_at"`
	IsResolved  bool        `gorm:"default:false;index" json:"is_resolved"`
	ResolvedAt  *time.Time  `json:"resolved_at,omitempty"`
}

func (Threat) TableName() string {
	return "threats"
}
