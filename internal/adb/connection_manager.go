package adb

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// ConnectionManager ADB 连接管理器（单例）
// 保证 daemon 只启动一次，网络设备的 connect 复用
type ConnectionManager struct {
	daemonMutex   sync.Mutex
	daemonStarted bool

	// key: target, value: 是否已 connect
	connections map[string]bool
	connMutex   sync.RWMutex

	logger *logrus.Logger
}

var (
	once              sync.Once
	connectionManager *ConnectionManager
)

// GetConnectionManager 获取全局连接管理器
func GetConnectionManager(logger *logrus.Logger) *ConnectionManager {
	once.Do(func() {
		if logger == nil {
			logger = logrus.New()
		}
		connectionManager = &ConnectionManager{
			connections: make(map[string]bool),
			logger:      logger,
		}
	})
	return connectionManager
}

// EnsureDaemonStarted 确保 ADB daemon 已启动
func (m *ConnectionManager) EnsureDaemonStarted(ctx context.Context) error {
	m.daemonMutex.Lock()
	defer m.daemonMutex.Unlock()

	if m.daemonStarted {
		return nil
	}

	m.logger.Info("Starting ADB daemon")
	output, err := exec.CommandContext(ctx, "adb", "start-server").CombinedOutput()
	if err != nil {
		return fmt.Errorf("adb start-server failed: %w, output: %s", err, strings.TrimSpace(string(output)))
	}

	m.daemonStarted = true
	m.logger.Debug("ADB daemon ready")
	return nil
}

// Connect 连接网络设备
func (m *ConnectionManager) Connect(ctx context.Context, target string) error {
	if err := m.EnsureDaemonStarted(ctx); err != nil {
		return err
	}

	m.connMutex.RLock()
	connected := m.connections[target]
	m.connMutex.RUnlock()
	if connected {
		return nil
	}

	m.connMutex.Lock()
	defer m.connMutex.Unlock()

	if m.connections[target] {
		return nil
	}

	m.logger.WithField("target", target).Info("Connecting to ADB device")

	output, err := exec.CommandContext(ctx, "adb", "connect", target).CombinedOutput()
	if err != nil {
		return fmt.Errorf("adb connect failed: %w, output: %s", err, strings.TrimSpace(string(output)))
	}
	// adb connect 失败时退出码仍为 0
	if strings.Contains(string(output), "failed") || strings.Contains(string(output), "unable") {
		return fmt.Errorf("adb connect failed: %s", strings.TrimSpace(string(output)))
	}

	m.connections[target] = true
	m.logger.WithField("target", target).Info("ADB connected")
	return nil
}

// Devices 当前 adb devices 列表，key 为序列号，value 为状态
func (m *ConnectionManager) Devices(ctx context.Context) (map[string]string, error) {
	output, err := exec.CommandContext(ctx, "adb", "devices").CombinedOutput()
	if err != nil {
		return nil, fmt.Errorf("adb devices failed: %w", err)
	}
	return ParseDevices(string(output)), nil
}

// IsOnline 设备是否处于 device 状态
func (m *ConnectionManager) IsOnline(ctx context.Context, target string) bool {
	devices, err := m.Devices(ctx)
	online := err == nil && devices[target] == "device"

	if !online {
		m.connMutex.Lock()
		delete(m.connections, target)
		m.connMutex.Unlock()
	}
	return online
}

// StartHealthCheck 定期检查网络设备并重连
func (m *ConnectionManager) StartHealthCheck(ctx context.Context, interval time.Duration, targets []string) {
	m.logger.WithField("interval", interval.String()).Info("Starting ADB connection health check")

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			m.logger.Info("ADB connection health check stopped")
			return
		case <-ticker.C:
			for _, target := range targets {
				if !isNetworkTarget(target) || m.IsOnline(ctx, target) {
					continue
				}
				m.logger.WithField("target", target).Warn("Device offline, reconnecting")
				if err := m.Connect(ctx, target); err != nil {
					m.logger.WithError(err).WithField("target", target).Error("Failed to reconnect device")
				}
			}
		}
	}
}

// GetConnectionStats 连接统计
func (m *ConnectionManager) GetConnectionStats() map[string]interface{} {
	m.connMutex.RLock()
	defer m.connMutex.RUnlock()

	connected := []string{}
	for target, ok := range m.connections {
		if ok {
			connected = append(connected, target)
		}
	}

	m.daemonMutex.Lock()
	started := m.daemonStarted
	m.daemonMutex.Unlock()

	return map[string]interface{}{
		"daemon_started":    started,
		"connected_devices": connected,
		"connected_count":   len(connected),
	}
}
