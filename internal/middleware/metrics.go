package middleware

import (
	"net/http"
	"runtime"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// MemoryStats 内存统计
type MemoryStats struct {
	Alloc      uint64 `json:"alloc"`       // 当前分配的内存 (字节)
	TotalAlloc uint64 `json:"total_alloc"` // 累计分配的内存
	Sys        uint64 `json:"sys"`         // 从系统获取的内存
	NumGC      uint32 `json:"num_gc"`      // GC 次数
	Goroutines int    `json:"goroutines"`  // Goroutine 数量
	AllocMB    uint64 `json:"alloc_mb"`
	SysMB      uint64 `json:"sys_mb"`
}

// StatsSink 接收周期性统计数据
type StatsSink interface {
	UpdateMemoryStats(stats MemoryStats)
}

// MemoryMonitor 内存监控器
type MemoryMonitor struct {
	logger   *logrus.Logger
	sink     StatsSink
	interval time.Duration

	mutex    sync.RWMutex
	stats    MemoryStats
	stopOnce sync.Once
	stopChan chan struct{}
}

// NewMemoryMonitor 创建内存监控器，sink 可为 nil
func NewMemoryMonitor(logger *logrus.Logger, interval time.Duration, sink StatsSink) *MemoryMonitor {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &MemoryMonitor{
		logger:   logger,
		sink:     sink,
		interval: interval,
		stopChan: make(chan struct{}),
	}
}

// Start 启动内存监控
func (m *MemoryMonitor) Start() {
	m.updateStats()
	go m.monitor()
}

// Stop 停止内存监控
func (m *MemoryMonitor) Stop() {
	m.stopOnce.Do(func() { close(m.stopChan) })
}

func (m *MemoryMonitor) monitor() {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-m.stopChan:
			return
		case <-ticker.C:
			m.updateStats()
			m.logStats()
		}
	}
}

func (m *MemoryMonitor) updateStats() {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)

	stats := MemoryStats{
		Alloc:      ms.Alloc,
		TotalAlloc: ms.TotalAlloc,
		Sys:        ms.Sys,
		NumGC:      ms.NumGC,
		Goroutines: runtime.NumGoroutine(),
		AllocMB:    ms.Alloc / 1024 / 1024,
		SysMB:      ms.Sys / 1024 / 1024,
	}

	m.mutex.Lock()
	m.stats = stats
	m.mutex.Unlock()

	if m.sink != nil {
		m.sink.UpdateMemoryStats(stats)
	}
}

func (m *MemoryMonitor) logStats() {
	stats := m.GetStats()

	m.logger.WithFields(logrus.Fields{
		"alloc_mb":   stats.AllocMB,
		"sys_mb":     stats.SysMB,
		"num_gc":     stats.NumGC,
		"goroutines": stats.Goroutines,
	}).Debug("Memory stats")

	// 警告: 内存使用超过 512MB
	if stats.AllocMB > 512 {
		m.logger.WithFields(logrus.Fields{
			"alloc_mb": stats.AllocMB,
			"sys_mb":   stats.SysMB,
		}).Warn("High memory usage detected")
	}
}

// GetStats 获取当前统计信息
func (m *MemoryMonitor) GetStats() MemoryStats {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return m.stats
}

// MetricsEndpoint 以 JSON 返回内存统计
func (m *MemoryMonitor) MetricsEndpoint() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"memory": m.GetStats(),
		})
	}
}
