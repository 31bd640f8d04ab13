package main

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/pterm/pterm"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spyware-scanner/spyware-scanner-go/internal/config"
	"github.com/spyware-scanner/spyware-scanner-go/internal/detection"
	"github.com/spyware-scanner/spyware-scanner-go/internal/repository"
	"github.com/spyware-scanner/spyware-scanner-go/internal/service"
)

var (
	configPath string
	verbose    bool
	ephemeral  bool
)

// CmdRoot defines the root command.
var CmdRoot = &cobra.Command{
	Use:           "spyscan",
	Short:         "Scan Android devices for spyware and stalkerware",
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Initialize command options
func init() {
	CmdRoot.PersistentFlags().StringVarP(&configPath, "config", "c", "./configs/config.yaml", "config file path")
	CmdRoot.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "show service logs")
	CmdRoot.PersistentFlags().BoolVar(&ephemeral, "ephemeral", false, "keep results in memory only")

	CmdRoot.AddCommand(CmdScan, CmdDevices, CmdRules, CmdReport)
}

func main() {
	_ = godotenv.Load()

	if err := CmdRoot.Execute(); err != nil {
		pterm.Error.Println(err)
		os.Exit(1)
	}
}

// app 命令行共享的服务集合
type app struct {
	cfg     *config.Config
	logger  *logrus.Logger
	scans   service.ScanService
	reports service.ReportService
}

// bootstrap 加载配置并初始化数据库和服务
func bootstrap() (*app, error) {
	path := configPath
	if _, err := os.Stat(path); os.IsNotExist(err) && !CmdRoot.PersistentFlags().Changed("config") {
		path = ""
	}

	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}

	if !verbose {
		cfg.Log.Level = "warn"
	}
	logger := config.InitLogger(&cfg.Log)

	if ephemeral {
		cfg.Database.Type = "sqlite"
		cfg.Database.Path = ":memory:"
	}

	db, err := repository.InitDB(&cfg.Database, logger)
	if err != nil {
		return nil, err
	}

	scanRepo := repository.NewScanRepository(db, logger)
	appRepo := repository.NewAppRepository(db, logger)
	threatRepo := repository.NewThreatRepository(db, logger)

	alerts := service.NewAlertService(repository.NewAlertRepository(db, logger), logger)
	prefs := service.NewPreferencesService(repository.NewPreferencesRepository(db, logger), appRepo, logger)
	engine := detection.NewEngine(logger)

	return &app{
		cfg:    cfg,
		logger: logger,
		scans: service.NewScanService(engine, scanRepo, appRepo, prefs, alerts, nil, nil, service.ScanOptions{
			QuickPacing: cfg.Scan.Pacing(false),
			DeepPacing:  cfg.Scan.Pacing(true),
		}, logger),
		reports: service.NewReportService(scanRepo, threatRepo, prefs, alerts, logger),
	}, nil
}
