package detection

import (
	"github.com/spyware-scanner/spyware-scanner-go/internal/domain"
)

// LevelForScore 风险分到威胁等级的阶梯映射
func LevelForScore(score int) domain.ThreatLevel {
	switch {
	case score >= 80:
		return domain.ThreatLevelCritical
	case score >= 50:
		return domain.ThreatLevelHigh
	case score >= 25:
		return domain.ThreatLevelMedium
	case score >= 10:
		return domain.ThreatLevelLow
	default:
		return domain.ThreatLevelSafe
	}
}

// LevelWeight 安全分计算中每个等级的权重
func LevelWeight(level domain.ThreatLevel) int {
	switch level {
	case domain.ThreatLevelCritical:
		return 25
	case domain.ThreatLevelHigh:
		return 15
	case domain.ThreatLevelMedium:
		return 8
	case domain.ThreatLevelLow:
		return 3
	default:
		return 0
	}
}

// SecurityScore 设备整体安全分 (0-100)，没有应用时为 100
func SecurityScore(apps []*domain.ScannedApp) int {
	if len(apps) == 0 {
		return 100
	}

	totalRisk := 0
	for _, app := range apps {
		totalRisk += LevelWeight(app.ThreatLevel)
	}

	// 等价于 trunc(100 - totalRisk*100/maxPossible)
	maxPossible := len(apps) * LevelWeight(domain.ThreatLevelCritical)
	numerator := totalRisk * 100
	percentage := numerator / maxPossible
	if numerator%maxPossible != 0 {
		percentage++
	}
	return clampScore(100 - percentage)
}
