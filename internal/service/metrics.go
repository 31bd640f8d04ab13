package service

import (
	"time"
)

// ScanMetrics 扫描指标收集，由 middleware.PrometheusMetrics 实现
type ScanMetrics interface {
	RecordScanStarted(scanType string)
	RecordScanCompleted(scanType string, duration time.Duration, appsScanned int)
	RecordScanFailed(scanType string, duration time.Duration)
	RecordThreatDetected(level, threatType string)
	UpdateSecurityScore(device string, score int)
}

type noopMetrics struct{}

func (noopMetrics) RecordScanStarted(string) {}
func (noopMetrics) RecordScanCompleted(string, time.Duration, int) {}
func (noopMetrics) RecordScanFailed(string, time.Duration) {}
func (noopMetrics) RecordThreatDetected(string, string) {}
func (noopMetrics) UpdateSecurityScore(string, int) {}
