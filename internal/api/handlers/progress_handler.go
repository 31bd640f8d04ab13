package handlers

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	"github.com/spyware-scanner/spyware-scanner-go/internal/domain"
	"github.com/spyware-scanner/spyware-scanner-go/internal/service"
)

const writeWait = 10 * time.Second

// ProgressPublisher 跨实例的进度发布，例如 Redis pub/sub
type ProgressPublisher interface {
	PublishProgress(ctx context.Context, progress domain.ScanProgress) error
}

// ProgressMessage 推送给客户端的进度消息
type ProgressMessage struct {
	JobID     string               `json:"job_id"`
	Progress  *domain.ScanProgress `json:"progress,omitempty"`
	Percent   int                  `json:"percent"`
	State     domain.JobState      `json:"state,omitempty"`
	Timestamp int64                `json:"timestamp"`
}

type progressClient struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *progressClient) send(msg ProgressMessage) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteJSON(msg)
}

// ProgressHub 扫描进度 WebSocket 推送，实现 worker.ProgressBroadcaster
type ProgressHub struct {
	logger    *logrus.Logger
	upgrader  websocket.Upgrader
	jobs      service.JobStore
	publisher ProgressPublisher

	mu      sync.RWMutex
	clients map[string]map[*progressClient]struct{}
}

// NewProgressHub 创建进度推送中心，publisher 可为 nil
func NewProgressHub(jobs service.JobStore, publisher ProgressPublisher, logger *logrus.Logger) *ProgressHub {
	return &ProgressHub{
		logger: logger,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		jobs:      jobs,
		publisher: publisher,
		clients:   make(map[string]map[*progressClient]struct{}),
	}
}

// BroadcastProgress 广播进度；配置了 publisher 时经由 publisher 回流到 Deliver
func (h *ProgressHub) BroadcastProgress(jobID string, progress domain.ScanProgress) {
	progress.JobID = jobID
	if h.publisher != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		err := h.publisher.PublishProgress(ctx, progress)
		if err == nil {
			return
		}
		h.logger.WithError(err).WithField("job_id", jobID).Debug("Failed to publish progress, delivering locally")
	}
	h.Deliver(progress)
}

// Deliver 推送给本实例订阅该任务的客户端
func (h *ProgressHub) Deliver(progress domain.ScanProgress) {
	h.mu.RLock()
	subscribers := make([]*progressClient, 0, len(h.clients[progress.JobID]))
	for client := range h.clients[progress.JobID] {
		subscribers = append(subscribers, client)
	}
	h.mu.RUnlock()

	if len(subscribers) == 0 {
		return
	}

	msg := ProgressMessage{
		JobID:     progress.JobID,
		Progress:  &progress,
		Percent:   progress.Percent(),
		Timestamp: time.Now().Unix(),
	}
	switch progress.Phase {
	case domain.ScanPhaseComplete:
		msg.State = domain.JobStateCompleted
	case domain.ScanPhaseFailed:
		msg.State = domain.JobStateFailed
	default:
		msg.State = domain.JobStateRunning
	}

	for _, client := range subscribers {
		if err := client.send(msg); err != nil {
			h.logger.WithError(err).WithField("job_id", progress.JobID).Warn("Failed to write to WebSocket client")
			h.unregister(progress.JobID, client)
			client.conn.Close()
		}
	}
}

// HandleWebSocket 订阅扫描进度
// GET /ws/scans/:job_id
func (h *ProgressHub) HandleWebSocket(c *gin.Context) {
	jobID := c.Param("job_id")

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.WithError(err).Error("Failed to upgrade to WebSocket")
		return
	}
	defer conn.Close()

	client := &progressClient{conn: conn}
	h.register(jobID, client)
	defer h.unregister(jobID, client)

	log := h.logger.WithField("job_id", jobID)
	log.Info("WebSocket client connected")

	// 先推送当前状态，订阅晚于扫描开始的客户端也能看到进度
	if status, err := h.jobs.Get(c.Request.Context(), jobID); err == nil {
		snapshot := ProgressMessage{
			JobID:     jobID,
			Progress:  status.Progress,
			State:     status.State,
			Timestamp: time.Now().Unix(),
		}
		if status.Progress != nil {
			snapshot.Percent = status.Progress.Percent()
		}
		if err := client.send(snapshot); err != nil {
			log.WithError(err).Warn("Failed to send job snapshot")
			return
		}
	}

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.WithError(err).Warn("WebSocket error")
			}
			break
		}
	}

	log.Info("WebSocket client disconnected")
}

// Subscribers 订阅某任务的客户端数
func (h *ProgressHub) Subscribers(jobID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[jobID])
}

func (h *ProgressHub) register(jobID string, client *progressClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clients[jobID] == nil {
		h.clients[jobID] = make(map[*progressClient]struct{})
	}
	h.clients[jobID][client] = struct{}{}
}

func (h *ProgressHub) unregister(jobID string, client *progressClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.clients[jobID], client)
	if len(h.clients[jobID]) == 0 {
		delete(h.clients, jobID)
	}
}
