package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spyware-scanner/spyware-scanner-go/internal/detection"
)

// inventoryApp 清单文件中的单个应用，除包名外都可省略
type inventoryApp struct {
	PackageName       string   `json:"package_name"`
	AppName           string   `json:"app_name"`
	VersionName       string   `json:"version_name"`
	VersionCode       int64    `json:"version_code"`
	InstallTime       flexTime `json:"install_time"`
	LastUpdateTime    flexTime `json:"last_update_time"`
	IsSystemApp       bool     `json:"is_system_app"`
	HasLauncherEntry  *bool    `json:"has_launcher_entry"`
	InstallSource     string   `json:"install_source"`
	Permissions       []string `json:"permissions"`
	MetadataAvailable *bool    `json:"metadata_available"`
}

// inventoryFile 对象形式的清单文件
type inventoryFile struct {
	Apps []inventoryApp `json:"apps"`
}

// FileProvider 从设备端导出的 JSON 清单读取应用
type FileProvider struct {
	path string
}

// NewFileProvider 创建清单文件提供者
func NewFileProvider(path string) *FileProvider {
	return &FileProvider{path: path}
}

// Name 清单文件名
func (p *FileProvider) Name() string {
	return "file:" + filepath.Base(p.path)
}

// ListInstalledApps 读取清单，支持数组或 {"apps": [...]} 两种格式
func (p *FileProvider) ListInstalledApps(ctx context.Context) ([]detection.AppMetadata, error) {
	data, err := os.ReadFile(p.path)
	if err != nil {
		return nil, fmt.Errorf("读取清单文件失败: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	entries, err := decodeInventory(data)
	if err != nil {
		return nil, fmt.Errorf("解析清单文件失败 %s: %w", p.path, err)
	}

	apps := make([]detection.AppMetadata, 0, len(entries))
	for i, e := range entries {
		if strings.TrimSpace(e.PackageName) == "" {
			return nil, fmt.Errorf("清单第 %d 项缺少 package_name", i)
		}
		apps = append(apps, e.toMetadata())
	}
	return apps, nil
}

func decodeInventory(data []byte) ([]inventoryApp, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("empty inventory")
	}

	if trimmed[0] == '[' {
		var apps []inventoryApp
		if err := json.Unmarshal(trimmed, &apps); err != nil {
			return nil, err
		}
		return apps, nil
	}

	var file inventoryFile
	if err := json.Unmarshal(trimmed, &file); err != nil {
		return nil, err
	}
	return file.Apps, nil
}

func (e inventoryApp) toMetadata() detection.AppMetadata {
	launcher := true
	if e.HasLauncherEntry != nil {
		launcher = *e.HasLauncherEntry
	}
	available := true
	if e.MetadataAvailable != nil {
		available = *e.MetadataAvailable
	}

	return detection.AppMetadata{
		PackageName:       strings.TrimSpace(e.PackageName),
		AppName:           e.AppName,
		VersionName:       e.VersionName,
		VersionCode:       e.VersionCode,
		InstallTime:       time.Time(e.InstallTime),
		LastUpdateTime:    time.Time(e.LastUpdateTime),
		IsSystemApp:       e.IsSystemApp,
		HasLauncherEntry:  launcher,
		InstallSource:     e.InstallSource,
		Permissions:       e.Permissions,
		MetadataAvailable: available,
	}
}

// flexTime 接受 RFC3339 字符串或毫秒时间戳
type flexTime time.Time

func (t *flexTime) UnmarshalJSON(data []byte) error {
	s := string(bytes.TrimSpace(data))
	if s == "null" || s == `""` || s == "0" {
		*t = flexTime(time.Time{})
		return nil
	}

	if strings.HasPrefix(s, `"`) {
		unquoted, err := strconv.Unquote(s)
		if err != nil {
			return err
		}
		parsed, err := time.Parse(time.RFC3339, unquoted)
		if err != nil {
			return fmt.Errorf("invalid time %q: %w", unquoted, err)
		}
		*t = flexTime(parsed)
		return nil
	}

	ms, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid timestamp %s: %w", s, err)
	}
	*t = flexTime(time.UnixMilli(ms))
	return nil
}
