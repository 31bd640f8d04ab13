package detection

import (
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spyware-scanner/spyware-scanner-go/internal/domain"
)

const (
	riskKnownMalicious     = 100
	riskSpywareKeyword     = 40
	riskPermissionCombo    = 35
	riskHiddenApp          = 25
	riskAccessibility      = 20
	riskNotificationListen = 15
	riskUnknownSource      = 10
	maxRiskScore           = 100
)

// Engine 间谍软件检测引擎，对单个应用做确定性评分
type Engine struct {
	rules  *RuleSet
	logger *logrus.Logger
}

// NewEngine 使用内置规则创建检测引擎
func NewEngine(logger *logrus.Logger) *Engine {
	return NewEngineWithRules(BuiltinRules(), logger)
}

// NewEngineWithRules 使用自定义规则创建检测引擎
func NewEngineWithRules(rules *RuleSet, logger *logrus.Logger) *Engine {
	if logger == nil {
		logger = logrus.New()
	}
	return &Engine{
		rules:  rules,
		logger: logger,
	}
}

// analysisState 单次分析的累积状态
type analysisState struct {
	risk     int
	redFlags int
	findings []Finding
}

func (s *analysisState) add(f Finding, redFlags int) {
	s.risk += f.RiskDelta
	s.redFlags += redFlags
	s.findings = append(s.findings, f)
}

// Analyze 对单个应用执行全部规则
func (e *Engine) Analyze(meta AppMetadata, now time.Time) *AnalysisResult {
	permissions := normalizePermissions(meta.Permissions)
	app := e.baseApp(meta, now)

	// 1. 可信发布者直接放行
	if e.isTrusted(meta.PackageName) {
		e.logger.WithField("package", meta.PackageName).Debug("Trusted publisher, skipping rules")
		app.ThreatLevel = domain.ThreatLevelSafe
		return &AnalysisResult{
			App:      app,
			Threats:  []*domain.Threat{},
			Findings: []Finding{},
			Trusted:  true,
		}
	}

	permSet := make(map[string]bool, len(permissions))
	for _, p := range permissions {
		permSet[p] = true
	}

	lowerPkg := strings.ToLower(meta.PackageName)
	lowerName := strings.ToLower(app.AppName)
	state := &analysisState{}

	// 2. 已知恶意包名
	if e.isKnownMalicious(meta.PackageName) {
		state.add(Finding{
			Type:        domain.ThreatTypeSpyware,
			Level:       domain.ThreatLevelCritical,
			Description: "This app is identified as known spyware",
			RiskDelta:   riskKnownMalicious,
		}, 3)
	}

	// 3. 名称包含间谍软件关键词
	if matched := matchKeywords(e.rules.SpywareKeywords, lowerPkg, lowerName); len(matched) > 0 {
		state.add(Finding{
			Type:        domain.ThreatTypeSpyware,
			Level:       domain.ThreatLevelCritical,
			Description: "App name contains spyware indicators: " + strings.Join(matched, ", "),
			RiskDelta:   riskSpywareKeyword,
		}, 2)
	}

	// 4. 危险权限组合，只计第一个完整命中的组合
	for _, combo := range e.rules.PermissionCombos {
		if !containsAll(permSet, combo.Permissions) {
			continue
		}
		state.add(Finding{
			Type:        domain.ThreatTypeTracking,
			Level:       domain.ThreatLevelHigh,
			Description: "Dangerous permission combination: " + strings.Join(shortNames(combo.Permissions), ", "),
			RiskDelta:   riskPermissionCombo,
		}, 1)
		break
	}

	// 5. 无桌面入口
	if !meta.HasLauncherEntry && !meta.IsSystemApp {
		state.add(Finding{
			Type:        domain.ThreatTypeHiddenApp,
			Level:       domain.ThreatLevelHigh,
			Description: "App is hidden from launcher - potential spyware",
			RiskDelta:   riskHiddenApp,
		}, 1)
	}

	// 6. 无障碍服务，需已有其他可疑特征
	if permSet[PermBindAccessibilityService] && !meta.IsSystemApp && state.redFlags > 0 {
		state.add(Finding{
			Type:        domain.ThreatTypeKeylogger,
			Level:       domain.ThreatLevelMedium,
			Description: "Has accessibility service with other suspicious factors",
			RiskDelta:   riskAccessibility,
		}, 0)
	}

	// 7. 通知监听，通讯类应用除外
	if permSet[PermBindNotificationListener] && !meta.IsSystemApp && !e.isMessagingApp(lowerPkg, lowerName) {
		state.add(Finding{
			Type:        domain.ThreatTypeDataHarvester,
			Level:       domain.ThreatLevelMedium,
			Description: "Can read all notifications without clear justification",
			RiskDelta:   riskNotificationListen,
		}, 0)
	}

	// 8. 来源未知，需已有其他可疑特征
	if meta.InstallSource == "" && !meta.IsSystemApp && state.redFlags > 0 {
		state.add(Finding{
			Type:        domain.ThreatTypeUnknownSource,
			Level:       domain.ThreatLevelLow,
			Description: "Sideloaded app with suspicious characteristics",
			RiskDelta:   riskUnknownSource,
		}, 0)
	}

	score := clampScore(state.risk)
	level := LevelForScore(score)

	app.RiskScore = score
	app.ThreatLevel = level
	app.ThreatTypes = distinctTypes(state.findings)
	if len(app.ThreatTypes) == 0 && level != domain.ThreatLevelSafe {
		app.ThreatTypes = []domain.ThreatType{domain.ThreatTypeSpyware}
	}
	app.SuspiciousPermissions = e.suspiciousPermissions(permissions)

	threats := make([]*domain.Threat, 0, len(state.findings))
	for _, f := range state.findings {
		threats = append(threats, &domain.Threat{
			PackageName: app.PackageName,
			AppName:     app.AppName,
			ThreatLevel: f.Level,
			ThreatType:  f.Type,
			Description: f.Description,
			DetectedAt:  now,
		})
	}

	if len(state.findings) > 0 {
		e.logger.WithFields(logrus.Fields{
			"package":    app.PackageName,
			"risk_score": score,
			"level":      level,
			"red_flags":  state.redFlags,
			"findings":   len(state.findings),
		}).Debug("Suspicious app detected")
	}

	return &AnalysisResult{
		App:      app,
		Threats:  threats,
		Findings: state.findings,
	}
}

// baseApp 填充与规则无关的字段
func (e *Engine) baseApp(meta AppMetadata, now time.Time) *domain.ScannedApp {
	appName := meta.AppName
	if appName == "" {
		appName = meta.PackageName
	}

	versionName := meta.VersionName
	versionCode := meta.VersionCode
	installTime := meta.InstallTime
	updateTime := meta.LastUpdateTime
	if !meta.MetadataAvailable {
		versionName = UnknownVersion
		versionCode = 0
		installTime = time.Time{}
		updateTime = time.Time{}
	} else if versionName == "" {
		versionName = UnknownVersion
	}

	return &domain.ScannedApp{
		PackageName:           meta.PackageName,
		AppName:               appName,
		VersionName:           versionName,
		VersionCode:           versionCode,
		InstallTime:           installTime,
		LastUpdateTime:        updateTime,
		IsSystemApp:           meta.IsSystemApp,
		InstallSource:         meta.InstallSource,
		ThreatLevel:           domain.ThreatLevelSafe,
		ThreatTypes:           []domain.ThreatType{},
		SuspiciousPermissions: []string{},
		LastScanned:           now,
	}
}

func (e *Engine) isTrusted(packageName string) bool {
	for _, prefix := range e.rules.TrustedPrefixes {
		if strings.HasPrefix(packageName, prefix) {
			return true
		}
	}
	return false
}

func (e *Engine) isKnownMalicious(packageName string) bool {
	for _, pkg := range e.rules.KnownMalicious {
		if pkg == packageName {
			return true
		}
	}
	return false
}

func (e *Engine) isMessagingApp(lowerPkg, lowerName string) bool {
	return len(matchKeywords(e.rules.MessagingKeywords, lowerPkg, lowerName)) > 0
}

// suspiciousPermissions 保留申请顺序
func (e *Engine) suspiciousPermissions(permissions []string) []string {
	result := []string{}
	for _, p := range permissions {
		if _, ok := e.rules.DangerousPerms[p]; ok {
			result = append(result, p)
		}
	}
	return result
}

func matchKeywords(keywords []string, haystacks ...string) []string {
	var matched []string
	for _, kw := range keywords {
		for _, h := range haystacks {
			if strings.Contains(h, kw) {
				matched = append(matched, kw)
				break
			}
		}
	}
	return matched
}

func containsAll(set map[string]bool, perms []string) bool {
	for _, p := range perms {
		if !set[p] {
			return false
		}
	}
	return len(perms) > 0
}

// shortNames 取最后一个 '.' 之后的部分
func shortNames(perms []string) []string {
	names := make([]string, len(perms))
	for i, p := range perms {
		names[i] = p[strings.LastIndex(p, ".")+1:]
	}
	return names
}

func distinctTypes(findings []Finding) []domain.ThreatType {
	seen := make(map[domain.ThreatType]bool)
	types := []domain.ThreatType{}
	for _, f := range findings {
		if seen[f.Type] {
			continue
		}
		seen[f.Type] = true
		types = append(types, f.Type)
	}
	return types
}

// NormalizePermission 短名称补全为 android.permission.X
func NormalizePermission(p string) string {
	p = strings.TrimSpace(p)
	if p != "" && !strings.Contains(p, ".") {
		return PermissionPrefix + p
	}
	return p
}

func normalizePermissions(perms []string) []string {
	seen := make(map[string]bool, len(perms))
	result := make([]string, 0, len(perms))
	for _, p := range perms {
		p = NormalizePermission(p)
		if p == "" || seen[p] {
			continue
		}
		seen[p] = true
		result = append(result, p)
	}
	return result
}

func clampScore(score int) int {
	if score < 0 {
		return 0
	}
	if score > maxRiskScore {
		return maxRiskScore
	}
	return score
}

// String 便于日志输出
func (f Finding) String() string {
	return fmt.Sprintf("%s/%s(+%d): %s", f.Type, f.Level, f.RiskDelta, f.Description)
}
