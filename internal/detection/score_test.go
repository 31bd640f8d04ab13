package detection

import (
	"testing"

	"github.com/spyware-scanner/spyware-scanner-go/internal/domain"
	"github.com/stretchr/testify/assert"
)

func TestLevelForScore(t *testing.T) {
	tests := []struct {
		score int
		want  domain.ThreatLevel
	}{
		{0, domain.ThreatLevelSafe},
		{9, domain.ThreatLevelSafe},
		{10, domain.ThreatLevelLow},
		{24, domain.ThreatLevelLow},
		{25, domain.ThreatLevelMedium},
		{49, domain.ThreatLevelMedium},
		{50, domain.ThreatLevelHigh},
		{79, domain.ThreatLevelHigh},
		{80, domain.ThreatLevelCritical},
		{100, domain.ThreatLevelCritical},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, LevelForScore(tt.score), "score %d", tt.score)
	}
}

func appsWithLevels(levels ...domain.ThreatLevel) []*domain.ScannedApp {
	apps := make([]*domain.ScannedApp, len(levels))
	for i, l := range levels {
		apps[i] = &domain.ScannedApp{ThreatLevel: l}
	}
	return apps
}

func TestSecurityScore(t *testing.T) {
	tests := []struct {
		name   string
		levels []domain.ThreatLevel
		want   int
	}{
		{"empty", nil, 100},
		{"all safe", []domain.ThreatLevel{domain.ThreatLevelSafe, domain.ThreatLevelSafe}, 100},
		{"single critical", []domain.ThreatLevel{domain.ThreatLevelCritical}, 0},
		{"half critical", []domain.ThreatLevel{domain.ThreatLevelCritical, domain.ThreatLevelSafe}, 50},
		{"high and safe", []domain.ThreatLevel{domain.ThreatLevelHigh, domain.ThreatLevelSafe}, 70},
		{"single low", []domain.ThreatLevel{domain.ThreatLevelLow}, 88},
		{"mixed", []domain.ThreatLevel{domain.ThreatLevelHigh, domain.ThreatLevelMedium, domain.ThreatLevelLow, domain.ThreatLevelSafe}, 74},
		{"truncates", []domain.ThreatLevel{domain.ThreatLevelMedium, domain.ThreatLevelSafe, domain.ThreatLevelSafe}, 89},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SecurityScore(appsWithLevels(tt.levels...)))
		})
	}
}

func TestThreatLevelOrdering(t *testing.T) {
	order := []domain.ThreatLevel{
		domain.ThreatLevelSafe,
		domain.ThreatLevelLow,
		domain.ThreatLevelMedium,
		domain.ThreatLevelHigh,
		domain.ThreatLevelCritical,
	}
	for i := 1; i < len(order); i++ {
		assert.Greater(t, order[i].Priority(), order[i-1].Priority())
		assert.Greater(t, LevelWeight(order[i]), LevelWeight(order[i-1]))
	}
}
