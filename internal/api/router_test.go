package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/spyware-scanner/spyware-scanner-go/internal/api/handlers"
	"github.com/spyware-scanner/spyware-scanner-go/internal/config"
	"github.com/spyware-scanner/spyware-scanner-go/internal/detection"
	"github.com/spyware-scanner/spyware-scanner-go/internal/domain"
	"github.com/spyware-scanner/spyware-scanner-go/internal/provider"
	"github.com/spyware-scanner/spyware-scanner-go/internal/repository"
	"github.com/spyware-scanner/spyware-scanner-go/internal/service"
	"github.com/spyware-scanner/spyware-scanner-go/internal/worker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

const inventory = `{"apps": [
  {"package_name": "com.google.android.gm", "app_name": "Gmail", "version_name": "2024.05",
   "install_source": "com.android.vending", "permissions": ["android.permission.READ_CONTACTS"]},
  {"package_name": "com.example.spyware", "app_name": "System Service", "version_name": "1.0",
   "has_launcher_entry": false},
  {"package_name": "com.foo.notes", "app_name": "Notes", "version_name": "3.1",
   "install_source": "com.android.vending"}
]}`

// inventoryResolver 所有设备都映射到同一个清单文件
type inventoryResolver struct {
	path string
}

func (r inventoryResolver) ForDevice(ctx context.Context, device string) (provider.MetadataProvider, error) {
	return provider.NewFileProvider(r.path), nil
}

func (r inventoryResolver) ForInventory(path string) provider.MetadataProvider {
	return provider.NewFileProvider(path)
}

type testServer struct {
	router *gin.Engine
	pool   *worker.Pool
}

func setupServer(t *testing.T, apiKey string) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, repository.AutoMigrate(db, logger))

	path := filepath.Join(t.TempDir(), "device.json")
	require.NoError(t, os.WriteFile(path, []byte(inventory), 0644))

	scanRepo := repository.NewScanRepository(db, logger)
	appRepo := repository.NewAppRepository(db, logger)
	threatRepo := repository.NewThreatRepository(db, logger)
	alertRepo := repository.NewAlertRepository(db, logger)
	prefsRepo := repository.NewPreferencesRepository(db, logger)

	alerts := service.NewAlertService(alertRepo, logger)
	prefs := service.NewPreferencesService(prefsRepo, appRepo, logger)
	scans := service.NewScanService(detection.NewEngine(logger), scanRepo, appRepo, prefs, alerts, nil, nil, service.ScanOptions{}, logger)
	threats := service.NewThreatService(threatRepo, appRepo, logger)
	reports := service.NewReportService(scanRepo, threatRepo, prefs, alerts, logger)

	resolver := inventoryResolver{path: path}
	jobs := service.NewMemoryJobStore(10)
	hub := handlers.NewProgressHub(jobs, nil, logger)
	orchestrator := worker.NewOrchestrator(scans, resolver, jobs, hub, logger)
	pool := worker.NewPool(1, 10, orchestrator, logger)
	pool.Start(context.Background())
	t.Cleanup(pool.Stop)
	dispatcher := worker.NewDispatcher(orchestrator, pool)

	cfg := &config.Config{}
	cfg.Auth.APIKey = apiKey

	h := &Handlers{
		System:      handlers.NewSystemHandler(dispatcher, nil, logger),
		Scan:        handlers.NewScanHandler(scans, dispatcher, jobs, logger),
		App:         handlers.NewAppHandler(scans, threats, resolver, logger),
		Threat:      handlers.NewThreatHandler(threats, logger),
		Alert:       handlers.NewAlertHandler(alerts, logger),
		Report:      handlers.NewReportHandler(reports, logger),
		Preferences: handlers.NewPreferencesHandler(prefs, logger),
		Progress:    hub,
	}
	return &testServer{router: SetupRouter(cfg, logger, h, nil, nil), pool: pool}
}

func (s *testServer) do(t *testing.T, method, path, body string, headers ...string) (int, json.RawMessage) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	var resp struct {
		Data json.RawMessage `json:"data"`
	}
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	return w.Code, resp.Data
}

// TestScanLifecycle 发起扫描、查询结果、处置威胁、生成报告
func TestScanLifecycle(t *testing.T) {
	s := setupServer(t, "")

	code, data := s.do(t, "POST", "/api/scans", `{"device":"emulator-5554","scan_type":"DEEP"}`)
	require.Equal(t, http.StatusAccepted, code)
	var job domain.ScanJobStatus
	require.NoError(t, json.Unmarshal(data, &job))
	require.NotEmpty(t, job.JobID)

	require.Eventually(t, func() bool {
		code, data := s.do(t, "GET", "/api/scans/jobs/"+job.JobID, "")
		if code != http.StatusOK {
			return false
		}
		_ = json.Unmarshal(data, &job)
		return job.Finished()
	}, 5*time.Second, 20*time.Millisecond)
	require.Equal(t, domain.JobStateCompleted, job.State, job.Error)

	code, data = s.do(t, "GET", "/api/scans/latest", "")
	require.Equal(t, http.StatusOK, code)
	var scan domain.ScanResult
	require.NoError(t, json.Unmarshal(data, &scan))
	assert.Equal(t, job.ScanID, scan.ID)
	assert.Equal(t, domain.ScanTypeDeep, scan.ScanType)
	assert.Equal(t, 3, scan.TotalAppsScanned)
	assert.Equal(t, 4, scan.ThreatsFound)
	assert.Equal(t, 66, scan.SecurityScore)

	code, data = s.do(t, "GET", "/api/apps/threatening", "")
	require.Equal(t, http.StatusOK, code)
	var apps []domain.ScannedApp
	require.NoError(t, json.Unmarshal(data, &apps))
	require.Len(t, apps, 1)
	assert.Equal(t, "com.example.spyware", apps[0].PackageName)

	code, data = s.do(t, "GET", "/api/threats/unresolved", "")
	require.Equal(t, http.StatusOK, code)
	var threats []domain.Threat
	require.NoError(t, json.Unmarshal(data, &threats))
	require.Len(t, threats, 4)

	code, _ = s.do(t, "POST", "/api/threats/"+jsonID(threats[0].ID)+"/resolve", "")
	assert.Equal(t, http.StatusOK, code)
	_, data = s.do(t, "GET", "/api/threats/unresolved", "")
	require.NoError(t, json.Unmarshal(data, &threats))
	assert.Len(t, threats, 3)

	code, data = s.do(t, "GET", "/api/alerts/unread/count", "")
	require.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `{"count":4}`, string(data))

	code, data = s.do(t, "GET", "/api/apps/com.example.spyware/removal-guide", "")
	require.Equal(t, http.StatusOK, code)
	var guide domain.RemovalGuide
	require.NoError(t, json.Unmarshal(data, &guide))
	assert.True(t, guide.Found)
	assert.Equal(t, "adb uninstall com.example.spyware", guide.AdbCommand)

	// 清单文件提供者不支持卸载
	code, _ = s.do(t, "POST", "/api/apps/com.example.spyware/uninstall", `{"device":"emulator-5554"}`)
	assert.Equal(t, http.StatusNotImplemented, code)

	code, data = s.do(t, "GET", "/api/reports/weekly", "")
	require.Equal(t, http.StatusOK, code)
	var report domain.SecurityReport
	require.NoError(t, json.Unmarshal(data, &report))
	assert.Equal(t, 1, report.TotalScans)
	assert.Equal(t, 4, report.ThreatsDetected)
	assert.Equal(t, 1, report.ThreatsResolved)
	assert.Equal(t, 66, report.AverageScore)

	code, _ = s.do(t, "GET", "/api/reports/yearly", "")
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestPreferencesRoutes(t *testing.T) {
	s := setupServer(t, "")

	code, data := s.do(t, "GET", "/api/preferences", "")
	require.Equal(t, http.StatusOK, code)
	var prefs domain.Preferences
	require.NoError(t, json.Unmarshal(data, &prefs))
	assert.Equal(t, domain.ScanFrequencyWeekly, prefs.ScanFrequency)

	code, data = s.do(t, "PUT", "/api/preferences", `{"scan_frequency":"DAILY","auto_scan_enabled":false}`)
	require.Equal(t, http.StatusOK, code)
	require.NoError(t, json.Unmarshal(data, &prefs))
	assert.Equal(t, domain.ScanFrequencyDaily, prefs.ScanFrequency)
	assert.False(t, prefs.AutoScanEnabled)
	assert.True(t, prefs.NotificationsEnabled)

	code, data = s.do(t, "POST", "/api/preferences/ignored/com.example.spyware", "")
	require.Equal(t, http.StatusOK, code)
	require.NoError(t, json.Unmarshal(data, &prefs))
	assert.Equal(t, []string{"com.example.spyware"}, prefs.IgnoredPackages)

	code, _ = s.do(t, "GET", "/api/permissions/RECORD_AUDIO", "")
	assert.Equal(t, http.StatusOK, code)
}

func TestAPIKeyProtectsRoutes(t *testing.T) {
	s := setupServer(t, "secret")

	code, _ := s.do(t, "GET", "/api/health", "")
	assert.Equal(t, http.StatusOK, code)

	code, _ = s.do(t, "GET", "/api/scans", "")
	assert.Equal(t, http.StatusUnauthorized, code)

	code, _ = s.do(t, "GET", "/api/scans", "", "X-API-Key", "secret")
	assert.Equal(t, http.StatusOK, code)

	code, _ = s.do(t, "OPTIONS", "/api/scans", "")
	assert.Equal(t, http.StatusNoContent, code)
}

func jsonID(id uint) string {
	data, _ := json.Marshal(id)
	return string(data)
}
