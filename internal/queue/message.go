package queue

import (
	"encoding/json"
	"fmt"

	"github.com/spyware-scanner/spyware-scanner-go/internal/domain"
	"github.com/spyware-scanner/spyware-scanner-go/internal/worker"
)

// ScanMessage 扫描请求消息
type ScanMessage struct {
	JobID         string          `json:"job_id"`
	Device        string          `json:"device,omitempty"`
	ScanType      domain.ScanType `json:"scan_type"`
	Packages      []string        `json:"packages,omitempty"`
	InventoryPath string          `json:"inventory_path,omitempty"`
}

// DecodeScanMessage 解析并校验消息体
func DecodeScanMessage(body []byte) (*ScanMessage, error) {
	var msg ScanMessage
	if err := json.Unmarshal(body, &msg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal message: %w", err)
	}
	if msg.JobID == "" {
		return nil, fmt.Errorf("message missing job_id")
	}
	if _, ok := domain.ParseScanType(string(msg.ScanType)); !ok {
		return nil, fmt.Errorf("message has invalid scan_type %q", msg.ScanType)
	}
	return &msg, nil
}

// ToJob 转换为 worker 任务
func (m *ScanMessage) ToJob() *worker.ScanJob {
	return &worker.ScanJob{
		JobID:         m.JobID,
		Device:        m.Device,
		ScanType:      m.ScanType,
		Packages:      m.Packages,
		InventoryPath: m.InventoryPath,
	}
}

// MessageFromJob worker 任务转换为消息
func MessageFromJob(job *worker.ScanJob) *ScanMessage {
	return &ScanMessage{
		JobID:         job.JobID,
		Device:        job.Device,
		ScanType:      job.ScanType,
		Packages:      job.Packages,
		InventoryPath: job.InventoryPath,
	}
}
