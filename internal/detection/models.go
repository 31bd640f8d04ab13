package detection

import (
	"time"

	"github.com/spyware-scanner/spyware-scanner-go/internal/domain"
)

// UnknownVersion 无法读取版本信息时使用
const UnknownVersion = "Unknown"

// AppMetadata 元数据提供者给出的单个应用原始信息
type AppMetadata struct {
	PackageName       string    `json:"package_name"`
	AppName           string    `json:"app_name"`
	VersionName       string    `json:"version_name"`
	VersionCode       int64     `json:"version_code"`
	InstallTime       time.Time `json:"install_time"`
	LastUpdateTime    time.Time `json:"last_update_time"`
	IsSystemApp       bool      `json:"is_system_app"`
	HasLauncherEntry  bool      `json:"has_launcher_entry"`
	InstallSource     string    `json:"install_source"` // 安装来源包名，为空表示未知
	Permissions       []string  `json:"permissions"`
	MetadataAvailable bool      `json:"metadata_available"`
}

// Finding 单条规则命中
type Finding struct {
	Type        domain.ThreatType  `json:"type"`
	Level       domain.ThreatLevel `json:"level"`
	Description string             `json:"description"`
	RiskDelta   int                `json:"risk_delta"`
}

// AnalysisResult 单个应用的分析结果
type AnalysisResult struct {
	App      *domain.ScannedApp `json:"app"`
	Threats  []*domain.Threat   `json:"threats"`
	Findings []Finding          `json:"findings"`
	Trusted  bool               `json:"trusted"`
}

// PermissionCombo 危险权限组合，所有权限都申请时命中
type PermissionCombo struct {
	Name        string
	Permissions []string
}

// RuleSet 检测规则表
type RuleSet struct {
	TrustedPrefixes    []string
	KnownMalicious     []string
	SpywareKeywords    []string
	MessagingKeywords  []string
	PermissionCombos   []PermissionCombo
	DangerousPermNames []string          // 字典顺序
	DangerousPerms     map[string]string // 权限 -> 描述
}
