package queue

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/sirupsen/logrus"
)

// Publisher 消息发布接口，由 RabbitMQ 实现
type Publisher interface {
	Publish(ctx context.Context, body []byte) error
	GetQueueStats() (messageCount, consumerCount int, err error)
}

// Producer 消息生产者
type Producer struct {
	mq     Publisher
	logger *logrus.Logger
}

// NewProducer 创建生产者
func NewProducer(mq Publisher, logger *logrus.Logger) *Producer {
	return &Producer{
		mq:     mq,
		logger: logger,
	}
}

// PublishScan 发布扫描请求
func (p *Producer) PublishScan(ctx context.Context, msg *ScanMessage) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	if err := p.mq.Publish(ctx, body); err != nil {
		p.logger.WithError(err).WithField("job_id", msg.JobID).Error("Failed to publish scan request")
		return fmt.Errorf("failed to publish: %w", err)
	}

	p.logger.WithFields(logrus.Fields{
		"job_id":    msg.JobID,
		"device":    msg.Device,
		"scan_type": msg.ScanType,
	}).Info("Scan request published to queue")

	return nil
}

// GetQueueSize 获取队列大小
func (p *Producer) GetQueueSize() (int, error) {
	messageCount, _, err := p.mq.GetQueueStats()
	if err != nil {
		return 0, fmt.Errorf("failed to get queue stats: %w", err)
	}
	return messageCount, nil
}
