package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spyware-scanner/spyware-scanner-go/internal/adb"
	"github.com/spyware-scanner/spyware-scanner-go/internal/api"
	"github.com/spyware-scanner/spyware-scanner-go/internal/api/handlers"
	"github.com/spyware-scanner/spyware-scanner-go/internal/cache"
	"github.com/spyware-scanner/spyware-scanner-go/internal/config"
	"github.com/spyware-scanner/spyware-scanner-go/internal/detection"
	"github.com/spyware-scanner/spyware-scanner-go/internal/domain"
	"github.com/spyware-scanner/spyware-scanner-go/internal/middleware"
	"github.com/spyware-scanner/spyware-scanner-go/internal/provider"
	"github.com/spyware-scanner/spyware-scanner-go/internal/queue"
	"github.com/spyware-scanner/spyware-scanner-go/internal/repository"
	"github.com/spyware-scanner/spyware-scanner-go/internal/service"
	"github.com/spyware-scanner/spyware-scanner-go/internal/watcher"
	"github.com/spyware-scanner/spyware-scanner-go/internal/worker"
	"gorm.io/gorm"
)

var (
	Version   = "1.0.0"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	// 1. 打印版本信息
	fmt.Printf("Spyware Scanner - Go Version\n")
	fmt.Printf("Version: %s\n", Version)
	fmt.Printf("Build Time: %s\n", BuildTime)
	fmt.Printf("Git Commit: %s\n\n", GitCommit)

	// 2. 加载 .env 和配置
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("Failed to load .env: %v", err)
	}

	configPath := "./configs/config.yaml"
	if len(os.Args) > 2 && os.Args[1] == "--config" {
		configPath = os.Args[2]
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// 3. 初始化日志
	logger := config.InitLogger(&cfg.Log)
	logger.Infof("Starting Spyware Scanner %s", Version)
	logger.Infof("Config loaded from: %s", configPath)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 4. 初始化数据库
	db, err := repository.InitDB(&cfg.Database, logger)
	if err != nil {
		logger.Fatalf("Failed to init database: %v", err)
	}
	logger.WithField("type", cfg.Database.Type).Info("Database connected successfully")

	// 5. 监控
	promMetrics := middleware.NewPrometheusMetrics(logger, "spyware_scanner")
	memMonitor := middleware.NewMemoryMonitor(logger, 30*time.Second, promMetrics)
	memMonitor.Start()
	defer memMonitor.Stop()

	// 6. Redis（可选）：分布式扫描锁、任务状态、进度广播
	var (
		locker    service.ScanLocker
		jobs      service.JobStore = service.NewMemoryJobStore(0)
		publisher handlers.ProgressPublisher
		redis     *cache.RedisCache
	)
	if cfg.Redis.Enabled {
		redis, err = cache.NewRedis(ctx, cfg.Redis, logger)
		if err != nil {
			logger.WithError(err).Warn("Redis unavailable, falling back to in-process lock and job store")
		} else {
			defer redis.Close()
			locker = redis
			jobs = redis
			publisher = redis
		}
	}

	// 7. 服务层
	scanRepo := repository.NewScanRepository(db, logger)
	appRepo := repository.NewAppRepository(db, logger)
	threatRepo := repository.NewThreatRepository(db, logger)
	alertRepo := repository.NewAlertRepository(db, logger)
	prefsRepo := repository.NewPreferencesRepository(db, logger)

	alertService := service.NewAlertService(alertRepo, logger)
	prefsService := service.NewPreferencesService(prefsRepo, appRepo, logger)
	scanService := service.NewScanService(
		detection.NewEngine(logger),
		scanRepo,
		appRepo,
		prefsService,
		alertService,
		locker,
		promMetrics,
		service.ScanOptions{
			QuickPacing: cfg.Scan.Pacing(false),
			DeepPacing:  cfg.Scan.Pacing(true),
			LockTTL:     time.Duration(cfg.Scan.LockTTL) * time.Second,
		},
		logger,
	)
	threatService := service.NewThreatService(threatRepo, appRepo, logger)
	reportService := service.NewReportService(scanRepo, threatRepo, prefsService, alertService, logger)

	// 8. Worker Pool
	providers := provider.NewFactory(cfg.ADB, logger)
	hub := handlers.NewProgressHub(jobs, publisher, logger)
	if redis != nil {
		go func() {
			if err := redis.SubscribeProgress(ctx, hub.Deliver); err != nil {
				logger.WithError(err).Error("Progress subscription stopped")
			}
		}()
	}

	orchestrator := worker.NewOrchestrator(scanService, providers, jobs, hub, logger)
	workerPool := worker.NewPool(cfg.Worker.Concurrency, cfg.Worker.QueueSize, orchestrator, logger)
	workerPool.Start(ctx)
	dispatcher := worker.NewDispatcher(orchestrator, workerPool)
	logger.Infof("Worker pool started with %d workers", cfg.Worker.Concurrency)

	go reportRuntimeStats(ctx, db, workerPool, promMetrics)

	adbManager := adb.GetConnectionManager(logger)
	systemHandler := handlers.NewSystemHandler(dispatcher, adbManager, logger)
	systemHandler.RegisterComponent("adb", func() interface{} {
		return adbManager.GetConnectionStats()
	})
	if cfg.ADB.Target != "" {
		go adbManager.StartHealthCheck(ctx, time.Minute, []string{cfg.ADB.Target})
	}

	// 9. RabbitMQ（可选）：外部扫描请求
	var producer *queue.Producer
	if cfg.RabbitMQ.Enabled {
		mq, err := queue.NewRabbitMQ(cfg.RabbitMQ, cfg.Worker.Concurrency, logger)
		if err != nil {
			logger.Fatalf("Failed to connect RabbitMQ: %v", err)
		}
		defer mq.Close()

		producer = queue.NewProducer(mq, logger)
		consumer := queue.NewConsumer(mq, createScanHandler(dispatcher, logger), cfg.Worker.Concurrency, logger)
		if err := consumer.Start(ctx); err != nil {
			logger.Fatalf("Failed to start consumer: %v", err)
		}
		defer consumer.Stop()
		logger.WithField("queue", cfg.RabbitMQ.Queue).Info("Scan request consumer started")

		systemHandler.RegisterComponent("rabbitmq", func() interface{} {
			status := map[string]interface{}{
				"connected":      mq.IsConnected(),
				"active_workers": consumer.GetActiveWorkers(),
			}
			if pending, err := producer.GetQueueSize(); err == nil {
				status["pending_messages"] = pending
			}
			return status
		})
	}

	// 10. 清单目录监控（可选）
	if cfg.Watcher.Enabled {
		fileWatcher, err := watcher.NewFileWatcher(cfg.Watcher.Dir, watcher.Options{
			Pattern:      cfg.Watcher.Pattern,
			Debounce:     time.Duration(cfg.Watcher.Debounce) * time.Millisecond,
			ScanExisting: true,
		}, createInventoryHandler(orchestrator, dispatcher, producer, logger), logger)
		if err != nil {
			logger.Fatalf("Failed to create inventory watcher: %v", err)
		}
		defer fileWatcher.Stop()

		if err := fileWatcher.Start(ctx); err != nil {
			logger.Fatalf("Failed to start inventory watcher: %v", err)
		}
		logger.Infof("Inventory watcher started for directory: %s", fileWatcher.GetWatchDir())
	}

	// 11. HTTP Server
	h := &api.Handlers{
		System:      systemHandler,
		Scan:        handlers.NewScanHandler(scanService, dispatcher, jobs, logger),
		App:         handlers.NewAppHandler(scanService, threatService, providers, logger),
		Threat:      handlers.NewThreatHandler(threatService, logger),
		Alert:       handlers.NewAlertHandler(alertService, logger),
		Report:      handlers.NewReportHandler(reportService, logger),
		Preferences: handlers.NewPreferencesHandler(prefsService, logger),
		Progress:    hub,
	}
	router := api.SetupRouter(cfg, logger, h, promMetrics, memMonitor)
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 2 * time.Minute,
	}

	go func() {
		logger.Infof("HTTP server listening on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("Failed to start server: %v", err)
		}
	}()

	// 12. 优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("Server forced to shutdown")
	}

	cancel()
	workerPool.Stop()
	logger.Info("Server exited")
}

// createScanHandler 消息队列中的扫描请求交给 Worker 池，完成后才确认
func createScanHandler(dispatcher *worker.Dispatcher, logger *logrus.Logger) queue.ScanHandler {
	return func(ctx context.Context, msg *queue.ScanMessage) error {
		logger.WithFields(logrus.Fields{
			"job_id":    msg.JobID,
			"device":    msg.Device,
			"scan_type": msg.ScanType,
		}).Info("Received scan request from queue")

		return dispatcher.Run(ctx, msg.ToJob())
	}
}

// createInventoryHandler 新清单文件触发一次扫描；启用 RabbitMQ 时经由队列投递
func createInventoryHandler(orchestrator *worker.Orchestrator, dispatcher *worker.Dispatcher, producer *queue.Producer, logger *logrus.Logger) watcher.FileHandler {
	return func(ctx context.Context, path string) error {
		job := &worker.ScanJob{ScanType: domain.ScanTypeQuick, InventoryPath: path}

		if producer == nil {
			status, err := dispatcher.Dispatch(ctx, job)
			if err != nil {
				return fmt.Errorf("提交清单扫描失败: %w", err)
			}
			logger.WithField("job_id", status.JobID).Info("Inventory scan queued")
			return nil
		}

		if _, err := orchestrator.Prepare(ctx, job); err != nil {
			return err
		}
		if err := producer.PublishScan(ctx, queue.MessageFromJob(job)); err != nil {
			return fmt.Errorf("发布清单扫描失败: %w", err)
		}
		logger.WithField("job_id", job.JobID).Info("Inventory scan published")
		return nil
	}
}

// reportRuntimeStats 定期更新 Worker Pool 和数据库连接指标
func reportRuntimeStats(ctx context.Context, db *gorm.DB, pool *worker.Pool, metrics *middleware.PrometheusMetrics) {
	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			metrics.UpdateWorkerPoolStats(pool.Workers(), pool.GetQueueSize())
			if sqlDB, err := db.DB(); err == nil {
				stats := sqlDB.Stats()
				metrics.UpdateDBStats(stats.OpenConnections, stats.Idle, stats.InUse)
			}
		}
	}
}
