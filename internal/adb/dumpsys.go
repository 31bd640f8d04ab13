package adb

import (
	"errors"
	"strconv"
	"strings"
	"time"
)

// ErrPackageNotFound dumpsys 中没有该包
var ErrPackageNotFound = errors.New("package not found")

// dumpsysTimeLayout firstInstallTime / lastUpdateTime 的格式（设备本地时间）
const dumpsysTimeLayout = "2006-01-02 15:04:05"

// PackageDump dumpsys package 中与检测相关的字段
type PackageDump struct {
	PackageName          string
	VersionName          string
	VersionCode          int64
	FirstInstallTime     time.Time
	LastUpdateTime       time.Time
	InstallerPackageName string
	RequestedPermissions []string
	SystemFlag           bool
}

// ParsePackageList 解析 pm list packages 输出
func ParsePackageList(output string) []string {
	var packages []string
	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "package:") {
			continue
		}
		pkg := strings.TrimPrefix(line, "package:")
		// pm list packages -f 形式: package:/data/app/base.apk=com.foo
		if idx := strings.LastIndex(pkg, "="); idx != -1 {
			pkg = pkg[idx+1:]
		}
		if pkg != "" {
			packages = append(packages, pkg)
		}
	}
	return packages
}

// ParseLauncherActivities 解析 query-activities --brief 输出，返回包名集合
// 组件行形如 com.foo/.MainActivity 或 com.foo/com.foo.MainActivity
func ParseLauncherActivities(output string) map[string]bool {
	packages := make(map[string]bool)
	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.ContainsAny(line, " =:") {
			continue
		}
		idx := strings.Index(line, "/")
		if idx <= 0 {
			continue
		}
		packages[line[:idx]] = true
	}
	return packages
}

// ParseDevices 解析 adb devices 输出
func ParseDevices(output string) map[string]string {
	devices := make(map[string]string)
	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "List of devices") || strings.HasPrefix(line, "*") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) >= 2 {
			devices[fields[0]] = fields[1]
		}
	}
	return devices
}

// ParsePackageDump 解析 dumpsys package <pkg> 输出
func ParsePackageDump(packageName, output string) (*PackageDump, error) {
	if strings.Contains(output, "Unable to find package") {
		return nil, ErrPackageNotFound
	}
	if !strings.Contains(output, "Package ["+packageName+"]") {
		return nil, ErrPackageNotFound
	}

	dump := &PackageDump{
		PackageName:          packageName,
		RequestedPermissions: []string{},
	}
	seen := make(map[string]bool)
	inRequested := false

	for _, raw := range strings.Split(output, "\n") {
		line := strings.TrimSpace(raw)

		if inRequested {
			if isPermissionLine(line) {
				perm := line
				if idx := strings.Index(perm, ":"); idx != -1 {
					perm = strings.TrimSpace(perm[:idx])
				}
				if !seen[perm] {
					seen[perm] = true
					dump.RequestedPermissions = append(dump.RequestedPermissions, perm)
				}
				continue
			}
			inRequested = false
		}

		switch {
		case line == "requested permissions:":
			inRequested = true
		case strings.HasPrefix(line, "versionName=") && dump.VersionName == "":
			dump.VersionName = strings.TrimPrefix(line, "versionName=")
		case strings.HasPrefix(line, "versionCode=") && dump.VersionCode == 0:
			dump.VersionCode = parseVersionCode(line)
		case strings.HasPrefix(line, "firstInstallTime=") && dump.FirstInstallTime.IsZero():
			dump.FirstInstallTime = parseDumpsysTime(strings.TrimPrefix(line, "firstInstallTime="))
		case strings.HasPrefix(line, "lastUpdateTime=") && dump.LastUpdateTime.IsZero():
			dump.LastUpdateTime = parseDumpsysTime(strings.TrimPrefix(line, "lastUpdateTime="))
		case strings.HasPrefix(line, "installerPackageName=") && dump.InstallerPackageName == "":
			installer := strings.TrimPrefix(line, "installerPackageName=")
			if installer != "null" {
				dump.InstallerPackageName = installer
			}
		case strings.HasPrefix(line, "pkgFlags=["):
			if strings.Contains(line, " SYSTEM ") {
				dump.SystemFlag = true
			}
		}
	}

	return dump, nil
}

// isPermissionLine requested permissions 块内的权限行
// 块以空行或下一个 "xxx:" 标题结束
func isPermissionLine(line string) bool {
	if line == "" || strings.HasSuffix(line, ":") {
		return false
	}
	name := line
	if idx := strings.Index(name, ":"); idx != -1 {
		name = name[:idx]
	}
	return strings.Contains(name, ".") && !strings.Contains(name, " ") && !strings.Contains(name, "=")
}

// parseVersionCode versionCode=123 minSdk=21 targetSdk=33
func parseVersionCode(line string) int64 {
	fields := strings.Fields(line)
	value := strings.TrimPrefix(fields[0], "versionCode=")
	code, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0
	}
	return code
}

func parseDumpsysTime(value string) time.Time {
	t, err := time.ParseInLocation(dumpsysTimeLayout, strings.TrimSpace(value), time.Local)
	if err != nil {
		return time.Time{}
	}
	return t
}

// brandLabels 常见应用的显示名称
var brandLabels = map[string]string{
	"com.google.android.youtube": "YouTube",
	"com.google.android.gms":     "Google Play Services",
	"com.android.vending":        "Google Play Store",
	"com.whatsapp":               "WhatsApp",
	"com.facebook.katana":        "Facebook",
	"com.facebook.orca":          "Messenger",
	"com.instagram.android":      "Instagram",
}

var labelSkipSegments = map[string]bool{
	"com": true, "net": true, "org": true, "android": true,
	"google": true, "app": true, "apps": true,
}

// DeriveLabel 由包名推导显示名称（dumpsys 不提供 label）
func DeriveLabel(packageName string) string {
	if label, ok := brandLabels[packageName]; ok {
		return label
	}
	if packageName == "" {
		return ""
	}

	parts := strings.Split(packageName, ".")
	var meaningful []string
	for _, p := range parts {
		if !labelSkipSegments[strings.ToLower(p)] && len(p) > 2 {
			meaningful = append(meaningful, p)
		}
	}
	if len(meaningful) == 0 {
		meaningful = parts[len(parts)-1:]
	}

	words := make([]string, 0, len(meaningful))
	for _, p := range meaningful {
		if p == "" {
			continue
		}
		words = append(words, strings.ToUpper(p[:1])+p[1:])
	}
	return strings.Join(words, " ")
}
