package queue

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"
	"github.com/spyware-scanner/spyware-scanner-go/internal/worker"
)

// ScanHandler 扫描消息处理函数，返回后消息才会被确认
type ScanHandler func(ctx context.Context, msg *ScanMessage) error

// Broker 消费者依赖的连接操作，由 RabbitMQ 实现
type Broker interface {
	Consume() (<-chan amqp.Delivery, error)
	StartConnectionWatcher()
	GetReconnectChan() <-chan struct{}
	Reconnect(ctx context.Context) error
}

const (
	// requeueDelay Worker 池满时重新入队前的等待
	requeueDelay = time.Second
	// stopTimeout 重连前等待 worker 退出的上限
	stopTimeout = 30 * time.Second
)

// settlement 消息处理结果对应的确认方式
type settlement int

const (
	settleAck settlement = iota
	settleRequeueLater
	settleRequeue
	settleDrop
)

// settle 根据处理错误决定 ack、重新入队还是丢弃
func settle(ctx context.Context, err error) settlement {
	switch {
	case err == nil:
		return settleAck
	case errors.Is(err, worker.ErrQueueFull):
		return settleRequeueLater
	case errors.Is(err, worker.ErrPoolStopped), ctx.Err() != nil:
		return settleRequeue
	default:
		// 扫描失败不重新入队，任务状态里已记录错误
		return settleDrop
	}
}

// Consumer 扫描请求消费者，每个 worker 同时只处理一条消息
type Consumer struct {
	mq      Broker
	handler ScanHandler
	workers int
	logger  *logrus.Logger

	wg     sync.WaitGroup
	active int32

	mu            sync.Mutex
	running       bool
	cancel        context.CancelFunc
	reconnectOnce sync.Once
}

// NewConsumer 创建消费者
func NewConsumer(mq Broker, handler ScanHandler, workers int, logger *logrus.Logger) *Consumer {
	if workers <= 0 {
		workers = 1
	}
	return &Consumer{
		mq:      mq,
		handler: handler,
		workers: workers,
		logger:  logger,
	}
}

// Start 开始消费；重连成功后会被再次调用
func (c *Consumer) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		c.logger.Warn("Consumer already running, skipping start")
		return nil
	}

	deliveries, err := c.mq.Consume()
	if err != nil {
		c.mu.Unlock()
		return fmt.Errorf("failed to start consuming: %w", err)
	}

	workerCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.running = true
	c.mu.Unlock()

	for i := 0; i < c.workers; i++ {
		c.wg.Add(1)
		go c.run(workerCtx, i, deliveries)
	}

	c.mq.StartConnectionWatcher()
	c.reconnectOnce.Do(func() {
		go c.watchReconnect(ctx)
	})

	c.logger.WithField("workers", c.workers).Info("Consumer started")
	return nil
}

func (c *Consumer) run(ctx context.Context, id int, deliveries <-chan amqp.Delivery) {
	defer c.wg.Done()
	atomic.AddInt32(&c.active, 1)
	defer atomic.AddInt32(&c.active, -1)

	log := c.logger.WithField("worker_id", id)
	for {
		select {
		case <-ctx.Done():
			log.Debug("Consumer worker stopped by context")
			return
		case d, ok := <-deliveries:
			if !ok {
				log.Warn("Delivery channel closed")
				return
			}
			c.handle(ctx, log, d)
		}
	}
}

func (c *Consumer) handle(ctx context.Context, log *logrus.Entry, d amqp.Delivery) {
	start := time.Now()

	msg, err := DecodeScanMessage(d.Body)
	if err != nil {
		log.WithError(err).Error("Dropping malformed scan message")
		d.Nack(false, false)
		return
	}

	log = log.WithFields(logrus.Fields{
		"job_id": msg.JobID,
		"device": msg.Device,
	})
	log.Info("Processing scan message")

	err = c.handler(ctx, msg)
	switch settle(ctx, err) {
	case settleAck:
		if ackErr := d.Ack(false); ackErr != nil {
			log.WithError(ackErr).Error("Failed to acknowledge message")
		}
		log.WithField("duration", time.Since(start).Seconds()).Info("Scan message completed")
	case settleRequeueLater:
		log.Warn("Worker pool is full, requeueing scan message")
		select {
		case <-time.After(requeueDelay):
		case <-ctx.Done():
		}
		d.Nack(false, true)
	case settleRequeue:
		log.Warn("Shutting down, requeueing scan message")
		d.Nack(false, true)
	case settleDrop:
		log.WithError(err).Error("Scan message processing failed")
		d.Nack(false, false)
	}
}

func (c *Consumer) watchReconnect(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-c.mq.GetReconnectChan():
			if !ok {
				return
			}

			c.logger.Warn("Connection lost, restarting consumer")
			c.halt(stopTimeout)

			if err := c.mq.Reconnect(ctx); err != nil {
				c.logger.WithError(err).Error("Failed to reconnect to RabbitMQ")
				continue
			}
			if err := c.Start(ctx); err != nil {
				c.logger.WithError(err).Error("Failed to restart consumer")
			}
		}
	}
}

// halt 取消所有 worker 并等待退出，timeout 为 0 时一直等待
func (c *Consumer) halt(timeout time.Duration) {
	c.mu.Lock()
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.running = false
	c.mu.Unlock()

	if timeout <= 0 {
		c.wg.Wait()
		return
	}

	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(timeout):
		c.logger.WithField("timeout", timeout).Warn("Timeout waiting for consumer workers to stop")
	}
}

// Stop 停止消费者并等待处理中的消息
func (c *Consumer) Stop() {
	c.logger.Info("Stopping consumer")
	c.halt(0)
	c.logger.Info("Consumer stopped")
}

// GetActiveWorkers 获取活跃 worker 数量
func (c *Consumer) GetActiveWorkers() int {
	return int(atomic.LoadInt32(&c.active))
}

// IsRunning 检查消费者是否正在运行
func (c *Consumer) IsRunning() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}
