package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

// PrometheusMetrics Prometheus 指标收集器，同时实现 service.ScanMetrics
type PrometheusMetrics struct {
	logger   *logrus.Logger
	gatherer prometheus.Gatherer

	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	scansTotal       *prometheus.CounterVec // status: started, completed, failed
	scansInProgress  prometheus.Gauge
	scanDuration     *prometheus.HistogramVec
	appsScannedTotal prometheus.Counter
	threatsTotal     *prometheus.CounterVec
	securityScore    *prometheus.GaugeVec

	memoryUsage     prometheus.Gauge
	goroutinesCount prometheus.Gauge
	gcCount         prometheus.Gauge

	workerPoolSize      prometheus.Gauge
	workerPoolQueueSize prometheus.Gauge

	dbConnectionsOpen  prometheus.Gauge
	dbConnectionsIdle  prometheus.Gauge
	dbConnectionsInUse prometheus.Gauge
}

// NewPrometheusMetrics 在默认注册表上创建指标
func NewPrometheusMetrics(logger *logrus.Logger, namespace string) *PrometheusMetrics {
	return NewPrometheusMetricsWithRegistry(logger, namespace, nil)
}

// NewPrometheusMetricsWithRegistry 在指定注册表上创建指标，reg 为 nil 时使用默认注册表
func NewPrometheusMetricsWithRegistry(logger *logrus.Logger, namespace string, reg *prometheus.Registry) *PrometheusMetrics {
	if namespace == "" {
		namespace = "spyware_scanner"
	}

	var (
		registerer prometheus.Registerer = prometheus.DefaultRegisterer
		gatherer   prometheus.Gatherer   = prometheus.DefaultGatherer
	)
	if reg != nil {
		registerer, gatherer = reg, reg
	}
	factory := promauto.With(registerer)

	gauge := func(name, help string) prometheus.Gauge {
		return factory.NewGauge(prometheus.GaugeOpts{Namespace: namespace, Name: name, Help: help})
	}
	counterVec := func(name, help string, labels ...string) *prometheus.CounterVec {
		return factory.NewCounterVec(prometheus.CounterOpts{Namespace: namespace, Name: name, Help: help}, labels)
	}
	histogramVec := func(name, help string, buckets []float64, labels ...string) *prometheus.HistogramVec {
		return factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      name,
			Help:      help,
			Buckets:   buckets,
		}, labels)
	}

	pm := &PrometheusMetrics{
		logger:   logger,
		gatherer: gatherer,

		httpRequestsTotal: counterVec("http_requests_total", "Total number of HTTP requests", "method", "path", "status"),
		httpRequestDuration: histogramVec("http_request_duration_seconds", "HTTP request latencies in seconds",
			[]float64{0.001, 0.01, 0.05, 0.1, 0.5, 1, 5, 10}, "method", "path"),

		scansTotal:      counterVec("scans_total", "Total number of device scans", "scan_type", "status"),
		scansInProgress: gauge("scans_in_progress", "Number of scans currently running"),
		scanDuration: histogramVec("scan_duration_seconds", "Scan duration in seconds",
			[]float64{1, 5, 10, 30, 60, 120, 300, 600}, "scan_type", "status"),
		appsScannedTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "apps_scanned_total",
			Help:      "Total number of apps analyzed",
		}),
		threatsTotal: counterVec("threats_detected_total", "Total number of threat records generated", "level", "type"),
		securityScore: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "security_score",
			Help:      "Security score of the last completed scan per device",
		}, []string{"device"}),

		memoryUsage:     gauge("memory_usage_bytes", "Current memory usage in bytes"),
		goroutinesCount: gauge("goroutines_count", "Current number of goroutines"),
		gcCount:         gauge("gc_count", "Number of completed GC cycles"),

		workerPoolSize:      gauge("worker_pool_size", "Total number of scan workers"),
		workerPoolQueueSize: gauge("worker_pool_queue_size", "Number of scan jobs waiting in queue"),

		dbConnectionsOpen:  gauge("db_connections_open", "Number of open database connections"),
		dbConnectionsIdle:  gauge("db_connections_idle", "Number of idle database connections"),
		dbConnectionsInUse: gauge("db_connections_in_use", "Number of database connections in use"),
	}

	logger.WithField("namespace", namespace).Info("Prometheus metrics initialized")
	return pm
}

// HTTPMiddleware HTTP 请求监控中间件
func (pm *PrometheusMetrics) HTTPMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())
		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}

		pm.httpRequestsTotal.WithLabelValues(c.Request.Method, path, status).Inc()
		pm.httpRequestDuration.WithLabelValues(c.Request.Method, path).Observe(duration)
	}
}

// Handler 返回 Prometheus HTTP Handler
func (pm *PrometheusMetrics) Handler() gin.HandlerFunc {
	h := promhttp.HandlerFor(pm.gatherer, promhttp.HandlerOpts{})
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}

// RecordScanStarted 记录扫描开始
func (pm *PrometheusMetrics) RecordScanStarted(scanType string) {
	pm.scansTotal.WithLabelValues(scanType, "started").Inc()
	pm.scansInProgress.Inc()
}

// RecordScanCompleted 记录扫描完成
func (pm *PrometheusMetrics) RecordScanCompleted(scanType string, duration time.Duration, appsScanned int) {
	pm.scansTotal.WithLabelValues(scanType, "completed").Inc()
	pm.scansInProgress.Dec()
	pm.scanDuration.WithLabelValues(scanType, "completed").Observe(duration.Seconds())
	pm.appsScannedTotal.Add(float64(appsScanned))
}

// RecordScanFailed 记录扫描失败
func (pm *PrometheusMetrics) RecordScanFailed(scanType string, duration time.Duration) {
	pm.scansTotal.WithLabelValues(scanType, "failed").Inc()
	pm.scansInProgress.Dec()
	pm.scanDuration.WithLabelValues(scanType, "failed").Observe(duration.Seconds())
}

// RecordThreatDetected 记录生成的威胁
func (pm *PrometheusMetrics) RecordThreatDetected(level, threatType string) {
	pm.threatsTotal.WithLabelValues(level, threatType).Inc()
}

// UpdateSecurityScore 更新设备安全分
func (pm *PrometheusMetrics) UpdateSecurityScore(device string, score int) {
	pm.securityScore.WithLabelValues(device).Set(float64(score))
}

// UpdateMemoryStats 更新内存统计
func (pm *PrometheusMetrics) UpdateMemoryStats(stats MemoryStats) {
	pm.memoryUsage.Set(float64(stats.Alloc))
	pm.goroutinesCount.Set(float64(stats.Goroutines))
	pm.gcCount.Set(float64(stats.NumGC))
}

// UpdateWorkerPoolStats 更新 Worker Pool 统计
func (pm *PrometheusMetrics) UpdateWorkerPoolStats(size, queueSize int) {
	pm.workerPoolSize.Set(float64(size))
	pm.workerPoolQueueSize.Set(float64(queueSize))
}

// UpdateDBStats 更新数据库连接统计
func (pm *PrometheusMetrics) UpdateDBStats(open, idle, inUse int) {
	pm.dbConnectionsOpen.Set(float64(open))
	pm.dbConnectionsIdle.Set(float64(idle))
	pm.dbConnectionsInUse.Set(float64(inUse))
}
