package queue

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"
	"github.com/spyware-scanner/spyware-scanner-go/internal/config"
	"github.com/spyware-scanner/spyware-scanner-go/internal/retry"
)

// ErrChannelClosed 通道不可用
var ErrChannelClosed = errors.New("rabbitmq channel is not open")

const defaultHeartbeat = 10 * time.Second

// RabbitMQ RabbitMQ 客户端
type RabbitMQ struct {
	cfg           config.RabbitMQConfig
	conn          *amqp.Connection
	channel       *amqp.Channel
	logger        *logrus.Logger
	reconnect     chan struct{}
	retryCfg      *retry.Config
	prefetchCount int // 预取数量，与 worker 数量一致

	mu            sync.RWMutex
	closed        bool
	connNotify    chan *amqp.Error
	channelNotify chan *amqp.Error
}

// NewRabbitMQ 连接 RabbitMQ 并声明扫描请求队列
func NewRabbitMQ(cfg config.RabbitMQConfig, prefetchCount int, logger *logrus.Logger) (*RabbitMQ, error) {
	if prefetchCount <= 0 {
		prefetchCount = 1
	}

	retryCfg := retry.DefaultConfig()
	retryCfg.MaxAttempts = 10
	retryCfg.MaxInterval = 10 * time.Second
	retryCfg.Timeout = 2 * time.Minute
	retryCfg.Logger = logger

	mq := &RabbitMQ{
		cfg:           cfg,
		logger:        logger,
		reconnect:     make(chan struct{}, 1),
		retryCfg:      retryCfg,
		prefetchCount: prefetchCount,
	}

	if err := mq.connect(); err != nil {
		return nil, fmt.Errorf("连接 RabbitMQ 失败: %w", err)
	}
	return mq, nil
}

// amqpURL 凭据和 vhost 做转义
func amqpURL(cfg config.RabbitMQConfig) string {
	u := url.URL{
		Scheme: "amqp",
		User:   url.UserPassword(cfg.User, cfg.Password),
		Host:   fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Path:   "/" + cfg.VHost,
	}
	if cfg.VHost == "" || cfg.VHost == "/" {
		u.Path = "/"
	}
	return u.String()
}

func (mq *RabbitMQ) connect() error {
	mq.mu.Lock()
	defer mq.mu.Unlock()

	conn, err := amqp.DialConfig(amqpURL(mq.cfg), amqp.Config{
		Heartbeat: defaultHeartbeat,
		Locale:    "en_US",
	})
	if err != nil {
		return fmt.Errorf("failed to dial: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return fmt.Errorf("failed to open channel: %w", err)
	}

	if err := ch.Qos(mq.prefetchCount, 0, false); err != nil {
		ch.Close()
		conn.Close()
		return fmt.Errorf("failed to set QoS: %w", err)
	}

	// 持久化队列，手动 ack
	if _, err := ch.QueueDeclare(mq.cfg.Queue, true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return fmt.Errorf("failed to declare queue: %w", err)
	}

	mq.conn = conn
	mq.channel = ch
	mq.connNotify = conn.NotifyClose(make(chan *amqp.Error, 1))
	mq.channelNotify = ch.NotifyClose(make(chan *amqp.Error, 1))

	mq.logger.WithFields(logrus.Fields{
		"host":           mq.cfg.Host,
		"port":           mq.cfg.Port,
		"queue":          mq.cfg.Queue,
		"prefetch_count": mq.prefetchCount,
	}).Info("Connected to RabbitMQ")

	return nil
}

// StartConnectionWatcher 监听当前连接和通道的关闭事件，触发一次重连信号
// 重连成功后由消费者重新启动监听
func (mq *RabbitMQ) StartConnectionWatcher() {
	mq.mu.RLock()
	if mq.closed {
		mq.mu.RUnlock()
		return
	}
	connNotify := mq.connNotify
	channelNotify := mq.channelNotify
	mq.mu.RUnlock()

	go func() {
		var err *amqp.Error
		select {
		case err = <-connNotify:
		case err = <-channelNotify:
		}

		if mq.isClosed() {
			mq.logger.Info("Connection watcher stopped: RabbitMQ client closed")
			return
		}
		if err != nil {
			mq.logger.WithError(err).Error("RabbitMQ connection closed unexpectedly")
		} else {
			mq.logger.Warn("RabbitMQ connection closed")
		}
		mq.triggerReconnect()
	}()
}

func (mq *RabbitMQ) triggerReconnect() {
	select {
	case mq.reconnect <- struct{}{}:
	default:
		mq.logger.Debug("Reconnect signal already pending")
	}
}

// Reconnect 关闭旧连接后按退避策略重连
func (mq *RabbitMQ) Reconnect(ctx context.Context) error {
	mq.closeConnections()

	attempt := 0
	return retry.Do(ctx, mq.retryCfg, func(ctx context.Context) error {
		attempt++
		mq.logger.WithField("attempt", attempt).Info("Attempting to reconnect to RabbitMQ")
		if err := mq.connect(); err != nil {
			return retry.NewRetryableError(err)
		}
		mq.logger.Info("Successfully reconnected to RabbitMQ")
		return nil
	})
}

func (mq *RabbitMQ) closeConnections() {
	mq.mu.Lock()
	defer mq.mu.Unlock()

	if mq.channel != nil {
		mq.channel.Close()
		mq.channel = nil
	}
	if mq.conn != nil {
		mq.conn.Close()
		mq.conn = nil
	}
}

func (mq *RabbitMQ) currentChannel() (*amqp.Channel, error) {
	mq.mu.RLock()
	defer mq.mu.RUnlock()
	if mq.channel == nil || mq.channel.IsClosed() {
		return nil, ErrChannelClosed
	}
	return mq.channel, nil
}

// Publish 发布持久化 JSON 消息
func (mq *RabbitMQ) Publish(ctx context.Context, body []byte) error {
	ch, err := mq.currentChannel()
	if err != nil {
		return err
	}

	return ch.PublishWithContext(ctx, "", mq.cfg.Queue, false, false, amqp.Publishing{
		DeliveryMode: amqp.Persistent,
		ContentType:  "application/json",
		Body:         body,
		Timestamp:    time.Now(),
	})
}

// Consume 手动确认模式消费
func (mq *RabbitMQ) Consume() (<-chan amqp.Delivery, error) {
	ch, err := mq.currentChannel()
	if err != nil {
		return nil, err
	}

	msgs, err := ch.Consume(mq.cfg.Queue, "", false, false, false, false, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to consume: %w", err)
	}
	return msgs, nil
}

// GetQueueStats 队列中的消息数和消费者数
func (mq *RabbitMQ) GetQueueStats() (messageCount, consumerCount int, err error) {
	ch, err := mq.currentChannel()
	if err != nil {
		return 0, 0, err
	}

	q, err := ch.QueueInspect(mq.cfg.Queue)
	if err != nil {
		return 0, 0, err
	}
	return q.Messages, q.Consumers, nil
}

// Close 关闭连接，之后不再重连
func (mq *RabbitMQ) Close() error {
	mq.mu.Lock()
	mq.closed = true
	mq.mu.Unlock()

	mq.closeConnections()
	mq.logger.Info("RabbitMQ connection closed")
	return nil
}

// GetReconnectChan 重连信号
func (mq *RabbitMQ) GetReconnectChan() <-chan struct{} {
	return mq.reconnect
}

// IsConnected 连接是否可用
func (mq *RabbitMQ) IsConnected() bool {
	mq.mu.RLock()
	defer mq.mu.RUnlock()
	return mq.conn != nil && !mq.conn.IsClosed()
}

func (mq *RabbitMQ) isClosed() bool {
	mq.mu.RLock()
	defer mq.mu.RUnlock()
	return mq.closed
}
