package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"github.com/spyware-scanner/spyware-scanner-go/internal/adb"
	"github.com/spyware-scanner/spyware-scanner-go/internal/domain"
	"github.com/spyware-scanner/spyware-scanner-go/internal/provider"
	"github.com/spyware-scanner/spyware-scanner-go/internal/service"
)

var (
	scanDevice    string
	scanInventory string
	scanType      string
	scanPackages  []string
)

// CmdScan defines the 'scan' command.
var CmdScan = &cobra.Command{
	Use:   "scan [flags]",
	Short: "Scan installed apps on a device or an inventory file",
	Args:  cobra.NoArgs,
	RunE:  runScan,
}

// CmdDevices defines the 'devices' command.
var CmdDevices = &cobra.Command{
	Use:   "devices",
	Short: "List devices visible to adb",
	Args:  cobra.NoArgs,
	RunE:  runDevices,
}

// Initialize command options
func init() {
	CmdScan.Flags().StringVarP(&scanDevice, "device", "d", "", "adb device serial or host:port")
	CmdScan.Flags().StringVarP(&scanInventory, "inventory", "i", "", "app inventory JSON file instead of a device")
	CmdScan.Flags().StringVarP(&scanType, "type", "t", string(domain.ScanTypeQuick), "scan type: QUICK, DEEP or CUSTOM")
	CmdScan.Flags().StringSliceVarP(&scanPackages, "packages", "p", nil, "packages to scan for CUSTOM scans")
}

// runScan is called when the 'scan' sub-command is used.
func runScan(cmd *cobra.Command, _ []string) error {
	st, ok := domain.ParseScanType(scanType)
	if !ok {
		return fmt.Errorf("%w: %s", service.ErrInvalidScanType, scanType)
	}

	a, err := bootstrap()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	factory := provider.NewFactory(a.cfg.ADB, a.logger)
	var p provider.MetadataProvider
	if scanInventory != "" {
		p = factory.ForInventory(scanInventory)
	} else if p, err = factory.ForDevice(ctx, scanDevice); err != nil {
		return err
	}

	spinner, _ := pterm.DefaultSpinner.Start(fmt.Sprintf("Scanning %s", p.Name()))
	result, err := a.scans.PerformScan(ctx, p, service.ScanRequest{
		JobID:    uuid.NewString(),
		ScanType: st,
		Packages: scanPackages,
	}, func(progress domain.ScanProgress) {
		if progress.CurrentApp != "" {
			spinner.UpdateText(fmt.Sprintf("[%d/%d] %s", progress.CurrentIndex, progress.TotalApps, progress.CurrentApp))
		}
	})
	if err != nil {
		spinner.Fail(err.Error())
		return err
	}
	spinner.Success(fmt.Sprintf("Scanned %d apps in %s", result.TotalAppsScanned, result.Duration().Round(time.Millisecond)))

	renderScan(result)
	return renderThreatening(ctx, a)
}

func renderScan(result *domain.ScanResult) {
	pterm.DefaultSection.Println("Scan result")
	_ = pterm.DefaultTable.WithData(pterm.TableData{
		{"Security score", scoreText(result.SecurityScore)},
		{"Threats found", strconv.Itoa(result.ThreatsFound)},
		{"Critical / High / Medium / Low", fmt.Sprintf("%d / %d / %d / %d",
			result.CriticalCount, result.HighCount, result.MediumCount, result.LowCount)},
		{"Scan type", string(result.ScanType)},
		{"Job", result.JobID},
	}).Render()
}

func renderThreatening(ctx context.Context, a *app) error {
	apps, err := a.scans.ListThreateningApps(ctx)
	if err != nil {
		return err
	}
	if len(apps) == 0 {
		pterm.Success.Println("No threatening apps found")
		return nil
	}

	data := pterm.TableData{{"Package", "Name", "Level", "Risk", "Types"}}
	for _, sa := range apps {
		data = append(data, []string{
			sa.PackageName,
			sa.AppName,
			levelText(sa.ThreatLevel),
			strconv.Itoa(sa.RiskScore),
			fmt.Sprint(sa.ThreatTypes),
		})
	}

	pterm.DefaultSection.Println("Threatening apps")
	return pterm.DefaultTable.WithHasHeader().WithData(data).Render()
}

// runDevices is called when the 'devices' sub-command is used.
func runDevices(cmd *cobra.Command, _ []string) error {
	a, err := bootstrap()
	if err != nil {
		return err
	}

	devices, err := adb.GetConnectionManager(a.logger).Devices(cmd.Context())
	if err != nil {
		return err
	}
	if len(devices) == 0 {
		pterm.Warning.Println("No devices attached")
		return nil
	}

	serials := make([]string, 0, len(devices))
	for serial := range devices {
		serials = append(serials, serial)
	}
	sort.Strings(serials)

	data := pterm.TableData{{"Serial", "State"}}
	for _, serial := range serials {
		data = append(data, []string{serial, devices[serial]})
	}
	return pterm.DefaultTable.WithHasHeader().WithData(data).Render()
}

func scoreText(score int) string {
	text := strconv.Itoa(score)
	switch {
	case score >= 80:
		return pterm.Green(text)
	case score >= 50:
		return pterm.Yellow(text)
	default:
		return pterm.Red(text)
	}
}

func levelText(level domain.ThreatLevel) string {
	switch level {
	case domain.ThreatLevelCritical, domain.ThreatLevelHigh:
		return pterm.Red(string(level))
	case domain.ThreatLevelMedium:
		return pterm.Yellow(string(level))
	default:
		return string(level)
	}
}
