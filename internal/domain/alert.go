package domain

import (
	"time"
)

// AlertType 告警类型
type AlertType string

const (
	AlertTypeNewThreat          AlertType = "NEW_THREAT"
	AlertTypePermissionChange   AlertType = "PERMISSION_CHANGE"
	AlertTypeNewInstall         AlertType = "NEW_INSTALL"
	AlertTypeScanComplete       AlertType = "SCAN_COMPLETE"
	AlertTypeWeeklyReport       AlertType = "WEEKLY_REPORT"
	AlertTypeSuspiciousActivity AlertType = "SUSPICIOUS_ACTIVITY"
)

// Alert 用户告警
type Alert struct {
	ID          uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Type        AlertType `gorm:"type:varchar(40);index" json:"type"`
	Title       string    `gorm:"type:varchar(255)" json:"title"`
	Message     string    `gorm:"type:text" json:"message"`
	PackageName string    `gorm:"type:varchar(255)" json:"package_name,omitempty"`
	Timestamp   time.Time `gorm:"index" json:"timestamp"`
	IsRead      bool      `gorm:"default:false;index" json:"is_read"`
	Priority    int       `json:"priority"`
}

func (Alert) TableName() string {
	return "alerts"
}
