package provider

import (
	"context"
	"errors"

	"github.com/spyware-scanner/spyware-scanner-go/internal/detection"
)

// ErrRemovalUnsupported 提供者不支持卸载
var ErrRemovalUnsupported = errors.New("provider does not support app removal")

// MetadataProvider 已安装应用元数据提供者
type MetadataProvider interface {
	// Name 设备或数据源标识
	Name() string
	// ListInstalledApps 枚举设备上的全部应用
	ListInstalledApps(ctx context.Context) ([]detection.AppMetadata, error)
}

// Remover 支持卸载应用的提供者
type Remover interface {
	Uninstall(ctx context.Context, packageName string) error
}

// Uninstall 提供者支持时卸载应用
func Uninstall(ctx context.Context, p MetadataProvider, packageName string) error {
	remover, ok := p.(Remover)
	if !ok {
		return ErrRemovalUnsupported
	}
	return remover.Uninstall(ctx, packageName)
}
