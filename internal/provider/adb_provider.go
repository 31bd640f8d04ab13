package provider

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spyware-scanner/spyware-scanner-go/internal/adb"
	"github.com/spyware-scanner/spyware-scanner-go/internal/detection"
	"github.com/spyware-scanner/spyware-scanner-go/internal/retry"
)

// PackageSource 设备包信息来源，由 adb.Client 实现
type PackageSource interface {
	Target() string
	ListPackages(ctx context.Context, filter adb.PackageFilter) ([]string, error)
	LaunchablePackages(ctx context.Context) (map[string]bool, error)
	DumpPackage(ctx context.Context, packageName string) (*adb.PackageDump, error)
	Uninstall(ctx context.Context, packageName string) error
}

// ADBProvider 通过 adb 读取设备上的应用元数据
type ADBProvider struct {
	source   PackageSource
	retryCfg *retry.Config
	logger   *logrus.Logger
}

// NewADBProvider 创建 ADB 元数据提供者
func NewADBProvider(source PackageSource, retryCfg *retry.Config, logger *logrus.Logger) *ADBProvider {
	if retryCfg == nil {
		retryCfg = retry.DeviceConfig(logger)
	}
	return &ADBProvider{
		source:   source,
		retryCfg: retryCfg,
		logger:   logger,
	}
}

// Name 设备地址
func (p *ADBProvider) Name() string {
	return p.source.Target()
}

// ListInstalledApps 枚举应用，单个包读取失败时使用默认值继续
func (p *ADBProvider) ListInstalledApps(ctx context.Context) ([]detection.AppMetadata, error) {
	packages, err := retry.DoWithResult(ctx, p.retryCfg, func(ctx context.Context) ([]string, error) {
		pkgs, err := p.source.ListPackages(ctx, adb.PackagesAll)
		// 未授权的设备需要用户在手机上确认，重试无意义
		if err != nil && strings.Contains(err.Error(), "unauthorized") {
			return nil, retry.NewNonRetryableError(err)
		}
		return pkgs, err
	})
	if err != nil {
		return nil, fmt.Errorf("列出设备应用失败: %w", err)
	}

	systemSet := make(map[string]bool)
	systemPkgs, err := p.source.ListPackages(ctx, adb.PackagesSystem)
	systemKnown := err == nil
	if err != nil {
		p.logger.WithError(err).Warn("Failed to list system packages, falling back to package flags")
	}
	for _, pkg := range systemPkgs {
		systemSet[pkg] = true
	}

	// 查询失败时视为全部可见
	launchable, err := p.source.LaunchablePackages(ctx)
	if err == nil && len(launchable) == 0 {
		err = adb.ErrNoLauncherActivities
	}
	if err != nil {
		p.logger.WithError(err).Warn("Failed to query launcher activities, assuming all apps are visible")
		launchable = nil
	}

	apps := make([]detection.AppMetadata, 0, len(packages))
	unavailable := 0
	for _, pkg := range packages {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		meta := detection.AppMetadata{
			PackageName:      pkg,
			AppName:          adb.DeriveLabel(pkg),
			IsSystemApp:      systemSet[pkg],
			HasLauncherEntry: launchable == nil || launchable[pkg],
		}

		dump, err := p.source.DumpPackage(ctx, pkg)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil, err
			}
			p.logger.WithError(err).WithField("package", pkg).Debug("Package metadata unavailable")
			unavailable++
			apps = append(apps, meta)
			continue
		}

		meta.MetadataAvailable = true
		meta.VersionName = dump.VersionName
		meta.VersionCode = dump.VersionCode
		meta.InstallTime = dump.FirstInstallTime
		meta.LastUpdateTime = dump.LastUpdateTime
		meta.InstallSource = dump.InstallerPackageName
		meta.Permissions = dump.RequestedPermissions
		if !systemKnown {
			meta.IsSystemApp = dump.SystemFlag
		}
		apps = append(apps, meta)
	}

	p.logger.WithFields(logrus.Fields{
		"target":      p.source.Target(),
		"packages":    len(apps),
		"unavailable": unavailable,
	}).Info("Device inventory collected")

	return apps, nil
}

// Uninstall 从设备卸载应用
func (p *ADBProvider) Uninstall(ctx context.Context, packageName string) error {
	return p.source.Uninstall(ctx, packageName)
}
