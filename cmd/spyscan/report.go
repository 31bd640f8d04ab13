package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"github.com/spyware-scanner/spyware-scanner-go/internal/detection"
	"github.com/spyware-scanner/spyware-scanner-go/internal/domain"
)

var (
	reportPeriod string
	reportNotify bool
)

// CmdRules defines the 'rules' command.
var CmdRules = &cobra.Command{
	Use:   "rules",
	Short: "List the dangerous permissions and combinations the scanner checks",
	Args:  cobra.NoArgs,
	Run:   runRules,
}

// CmdReport defines the 'report' command.
var CmdReport = &cobra.Command{
	Use:   "report [flags]",
	Short: "Summarize scans of the last week or month",
	Args:  cobra.NoArgs,
	RunE:  runReport,
}

// Initialize command options
func init() {
	CmdReport.Flags().StringVarP(&reportPeriod, "period", "p", string(domain.ReportPeriodWeekly), "report period: WEEKLY or MONTHLY")
	CmdReport.Flags().BoolVar(&reportNotify, "notify", false, "store the report as an alert")
}

// runRules is called when the 'rules' sub-command is used.
func runRules(_ *cobra.Command, _ []string) {
	rules := detection.BuiltinRules()

	data := pterm.TableData{{"Permission", "Description"}}
	for _, name := range rules.DangerousPermNames {
		data = append(data, []string{name, rules.DangerousPerms[name]})
	}
	pterm.DefaultSection.Println("Dangerous permissions")
	_ = pterm.DefaultTable.WithHasHeader().WithData(data).Render()

	combos := pterm.TableData{{"Combination", "Permissions"}}
	for _, combo := range rules.PermissionCombos {
		combos = append(combos, []string{combo.Name, strings.Join(combo.Permissions, ", ")})
	}
	pterm.DefaultSection.Println("Permission combinations")
	_ = pterm.DefaultTable.WithHasHeader().WithData(combos).Render()

	pterm.Info.Printfln("%d known malicious packages, %d trusted publisher prefixes",
		len(rules.KnownMalicious), len(rules.TrustedPrefixes))
}

// runReport is called when the 'report' sub-command is used.
func runReport(cmd *cobra.Command, _ []string) error {
	a, err := bootstrap()
	if err != nil {
		return err
	}

	period := domain.ReportPeriod(strings.ToUpper(reportPeriod))
	report, err := a.reports.GenerateReport(cmd.Context(), period, time.Now(), reportNotify)
	if err != nil {
		return err
	}

	pterm.DefaultSection.Printfln("%s report (%s - %s)", report.Period,
		report.StartDate.Format("2006-01-02"), report.EndDate.Format("2006-01-02"))
	_ = pterm.DefaultTable.WithData(pterm.TableData{
		{"Scans", strconv.Itoa(report.TotalScans)},
		{"Threats detected", strconv.Itoa(report.ThreatsDetected)},
		{"Threats resolved", strconv.Itoa(report.ThreatsResolved)},
		{"Apps analyzed", strconv.Itoa(report.AppsAnalyzed)},
		{"Average score", scoreText(report.AverageScore)},
		{"Score change", fmt.Sprintf("%+d", report.ScoreImprovement)},
	}).Render()

	if len(report.TopThreats) > 0 {
		data := pterm.TableData{{"Threat type", "Count"}}
		for _, t := range report.TopThreats {
			data = append(data, []string{string(t.Type), strconv.Itoa(t.Count)})
		}
		_ = pterm.DefaultTable.WithHasHeader().WithData(data).Render()
	}

	items := make([]pterm.BulletListItem, 0, len(report.Recommendations))
	for _, r := range report.Recommendations {
		items = append(items, pterm.BulletListItem{Level: 0, Text: r})
	}
	return pterm.DefaultBulletList.WithItems(items).Render()
}
