package adb

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// PackageFilter pm list packages 的过滤参数
type PackageFilter string

const (
	PackagesAll    PackageFilter = ""   // 全部
	PackagesSystem PackageFilter = "-s" // 仅系统应用
	PackagesThird  PackageFilter = "-3" // 仅第三方应用
)

// ErrNoLauncherActivities 桌面入口查询没有返回任何 Activity
var ErrNoLauncherActivities = errors.New("launcher query returned no activities")

// launcherQuery 列出所有带 MAIN/LAUNCHER 入口的 Activity
const launcherQuery = "cmd package query-activities --brief -a android.intent.action.MAIN -c android.intent.category.LAUNCHER"

// Client ADB 客户端
type Client struct {
	target  string        // ADB 目标地址 (如 emulator-5554 或 192.168.1.10:5555)
	timeout time.Duration // 单条命令超时
	logger  *logrus.Logger
	connMgr *ConnectionManager
}

// NewClient 创建 ADB 客户端
func NewClient(target string, timeout time.Duration, logger *logrus.Logger) *Client {
	return &Client{
		target:  target,
		timeout: timeout,
		logger:  logger,
		connMgr: GetConnectionManager(logger),
	}
}

// Target 设备地址
func (c *Client) Target() string {
	return c.target
}

// Connect 连接设备，USB 设备（无端口）只确保 daemon 启动
func (c *Client) Connect(ctx context.Context) error {
	if !isNetworkTarget(c.target) {
		return c.connMgr.EnsureDaemonStarted(ctx)
	}
	return c.connMgr.Connect(ctx, c.target)
}

// IsConnected 检查设备是否在线
func (c *Client) IsConnected(ctx context.Context) bool {
	return c.connMgr.IsOnline(ctx, c.target)
}

// Shell 执行 shell 命令
func (c *Client) Shell(ctx context.Context, command string) (string, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, "adb", "-s", c.target, "shell", command)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return "", fmt.Errorf("shell command failed: %w, output: %s", err, strings.TrimSpace(string(output)))
	}

	return string(output), nil
}

// ListPackages 获取已安装的包列表
func (c *Client) ListPackages(ctx context.Context, filter PackageFilter) ([]string, error) {
	command := "pm list packages"
	if filter != PackagesAll {
		command += " " + string(filter)
	}

	output, err := c.Shell(ctx, command)
	if err != nil {
		return nil, err
	}
	return ParsePackageList(output), nil
}

// LaunchablePackages 获取有桌面入口的包集合
func (c *Client) LaunchablePackages(ctx context.Context) (map[string]bool, error) {
	output, err := c.Shell(ctx, launcherQuery)
	if err != nil {
		return nil, err
	}
	launchable := ParseLauncherActivities(output)
	// 真实设备总有桌面入口，空结果说明命令不受支持
	if len(launchable) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoLauncherActivities, strings.TrimSpace(output))
	}
	return launchable, nil
}

// DumpPackage 读取并解析 dumpsys package 输出
func (c *Client) DumpPackage(ctx context.Context, packageName string) (*PackageDump, error) {
	output, err := c.Shell(ctx, "dumpsys package "+packageName)
	if err != nil {
		return nil, err
	}
	return ParsePackageDump(packageName, output)
}

// Uninstall 卸载应用
func (c *Client) Uninstall(ctx context.Context, packageName string) error {
	c.logger.WithFields(logrus.Fields{
		"target":  c.target,
		"package": packageName,
	}).Info("Uninstalling app")

	cmd := exec.CommandContext(ctx, "adb", "-s", c.target, "uninstall", packageName)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("adb uninstall failed: %w, output: %s", err, strings.TrimSpace(string(output)))
	}

	if !strings.Contains(string(output), "Success") {
		return fmt.Errorf("uninstall failed: %s", strings.TrimSpace(string(output)))
	}

	c.logger.WithField("package", packageName).Info("App uninstalled successfully")
	return nil
}

// isNetworkTarget host:port 形式的目标需要 adb connect
func isNetworkTarget(target string) bool {
	return strings.Contains(target, ":")
}
