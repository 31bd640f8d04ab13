package provider

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spyware-scanner/spyware-scanner-go/internal/adb"
	"github.com/spyware-scanner/spyware-scanner-go/internal/config"
	"github.com/spyware-scanner/spyware-scanner-go/internal/retry"
)

var (
	// ErrNoDevice 未指定设备且没有默认设备
	ErrNoDevice = errors.New("no device specified")
	// ErrDeviceOffline 设备不在 device 状态（离线或未授权）
	ErrDeviceOffline = errors.New("device is not online")
)

// Factory 按扫描目标创建提供者
type Factory struct {
	cfg    config.ADBConfig
	logger *logrus.Logger
}

// NewFactory 创建提供者工厂
func NewFactory(cfg config.ADBConfig, logger *logrus.Logger) *Factory {
	return &Factory{cfg: cfg, logger: logger}
}

// ForDevice 连接设备并返回 ADB 提供者，device 为空时使用默认设备
func (f *Factory) ForDevice(ctx context.Context, device string) (MetadataProvider, error) {
	if device == "" {
		device = f.cfg.Target
	}
	if device == "" {
		return nil, ErrNoDevice
	}

	timeout := time.Duration(f.cfg.Timeout) * time.Second
	client := adb.NewClient(device, timeout, f.logger)
	if err := client.Connect(ctx); err != nil {
		return nil, fmt.Errorf("连接设备 %s 失败: %w", device, err)
	}
	if !client.IsConnected(ctx) {
		return nil, fmt.Errorf("%w: %s", ErrDeviceOffline, device)
	}

	return NewADBProvider(client, retry.DeviceConfig(f.logger), f.logger), nil
}

// ForInventory 应用清单文件提供者
func (f *Factory) ForInventory(path string) MetadataProvider {
	return NewFileProvider(path)
}
