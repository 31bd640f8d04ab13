package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/spyware-scanner/spyware-scanner-go/internal/config"
	"github.com/spyware-scanner/spyware-scanner-go/internal/domain"
	"github.com/spyware-scanner/spyware-scanner-go/internal/service"
)

const (
	// KeyJobPrefix 扫描任务状态
	KeyJobPrefix = "job:"
	// KeyProgressChannel 扫描进度广播频道
	KeyProgressChannel = "scan:progress"
)

// JobTTL 任务状态保留时间
const JobTTL = 24 * time.Hour

// releaseScript 只删除自己持有的锁
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisCache Redis 客户端封装，实现扫描锁和任务状态存储
type RedisCache struct {
	client    *redis.Client
	keyPrefix string
	logger    *logrus.Logger

	tokens sync.Map // 锁 key -> 持有者 token
}

// NewRedis 连接 Redis 并校验连通性
func NewRedis(ctx context.Context, cfg config.RedisConfig, logger *logrus.Logger) (*RedisCache, error) {
	logger.WithFields(logrus.Fields{
		"host": cfg.Host,
		"port": cfg.Port,
	}).Info("Connecting to Redis")

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("连接 Redis 失败: %w", err)
	}

	logger.Info("Connected to Redis successfully")
	return NewRedisWithClient(client, cfg.KeyPrefix, logger), nil
}

// NewRedisWithClient 使用已有客户端
func NewRedisWithClient(client *redis.Client, keyPrefix string, logger *logrus.Logger) *RedisCache {
	return &RedisCache{
		client:    client,
		keyPrefix: keyPrefix,
		logger:    logger,
	}
}

// Close 关闭连接
func (c *RedisCache) Close() error {
	c.logger.Info("Closing Redis connection")
	return c.client.Close()
}

func (c *RedisCache) key(k string) string {
	return c.keyPrefix + k
}

// SetJSON 序列化后写入
func (c *RedisCache) SetJSON(ctx context.Context, key string, value any, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("序列化失败: %w", err)
	}
	return c.client.Set(ctx, c.key(key), data, ttl).Err()
}

// GetJSON 读取并反序列化，不存在时返回 redis.Nil
func (c *RedisCache) GetJSON(ctx context.Context, key string, dest any) error {
	data, err := c.client.Get(ctx, c.key(key)).Bytes()
	if err != nil {
		return err
	}
	return json.Unmarshal(data, dest)
}

// Acquire 实现 service.ScanLocker
func (c *RedisCache) Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	token := uuid.New().String()
	ok, err := c.client.SetNX(ctx, c.key(key), token, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("获取 Redis 锁失败: %w", err)
	}
	if ok {
		c.tokens.Store(key, token)
	}
	return ok, nil
}

// Release 实现 service.ScanLocker
func (c *RedisCache) Release(ctx context.Context, key string) error {
	value, ok := c.tokens.LoadAndDelete(key)
	if !ok {
		return nil
	}
	if err := releaseScript.Run(ctx, c.client, []string{c.key(key)}, value.(string)).Err(); err != nil {
		return fmt.Errorf("释放 Redis 锁失败: %w", err)
	}
	return nil
}

// Save 实现 service.JobStore
func (c *RedisCache) Save(ctx context.Context, status *domain.ScanJobStatus) error {
	return c.SetJSON(ctx, KeyJobPrefix+status.JobID, status, JobTTL)
}

// Get 实现 service.JobStore
func (c *RedisCache) Get(ctx context.Context, jobID string) (*domain.ScanJobStatus, error) {
	var status domain.ScanJobStatus
	if err := c.GetJSON(ctx, KeyJobPrefix+jobID, &status); err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, service.ErrJobNotFound
		}
		return nil, fmt.Errorf("读取任务状态失败: %w", err)
	}
	return &status, nil
}

// PublishProgress 向其他实例广播扫描进度
func (c *RedisCache) PublishProgress(ctx context.Context, progress domain.ScanProgress) error {
	data, err := json.Marshal(progress)
	if err != nil {
		return err
	}
	return c.client.Publish(ctx, c.key(KeyProgressChannel), data).Err()
}

// SubscribeProgress 订阅扫描进度，阻塞直到 ctx 取消
func (c *RedisCache) SubscribeProgress(ctx context.Context, fn func(domain.ScanProgress)) error {
	sub := c.client.Subscribe(ctx, c.key(KeyProgressChannel))
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("订阅进度频道失败: %w", err)
	}

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			var progress domain.ScanProgress
			if err := json.Unmarshal([]byte(msg.Payload), &progress); err != nil {
				c.logger.WithError(err).Warn("Dropping malformed progress message")
				continue
			}
			fn(progress)
		}
	}
}

var (
	_ service.ScanLocker = (*RedisCache)(nil)
	_ service.JobStore   = (*RedisCache)(nil)
)
