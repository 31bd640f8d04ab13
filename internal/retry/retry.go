package retry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
)

// Strategy 退避策略
type Strategy string

const (
	StrategyFixed       Strategy = "fixed"       // 固定间隔
	StrategyLinear      Strategy = "linear"      // 线性递增
	StrategyExponential Strategy = "exponential" // 指数退避
)

// Config 重试配置
type Config struct {
	MaxAttempts     int
	InitialInterval time.Duration
	MaxInterval     time.Duration
	Strategy        Strategy
	Timeout         time.Duration // 所有尝试的总超时，0 表示不限制
	Logger          *logrus.Logger
}

// DefaultConfig 默认配置
func DefaultConfig() *Config {
	return &Config{
		MaxAttempts:     3,
		InitialInterval: 1 * time.Second,
		MaxInterval:     30 * time.Second,
		Strategy:        StrategyExponential,
		Timeout:         5 * time.Minute,
		Logger:          logrus.New(),
	}
}

// DeviceConfig 设备命令的重试配置，adb 断连通常几秒内恢复
func DeviceConfig(logger *logrus.Logger) *Config {
	cfg := DefaultConfig()
	cfg.InitialInterval = 500 * time.Millisecond
	cfg.MaxInterval = 5 * time.Second
	cfg.Timeout = 2 * time.Minute
	if logger != nil {
		cfg.Logger = logger
	}
	return cfg
}

// RetryableError 带可重试标记的错误
type RetryableError interface {
	error
	IsRetryable() bool
}

type retryableError struct {
	error
	retryable bool
}

func (e *retryableError) IsRetryable() bool {
	return e.retryable
}

func (e *retryableError) Unwrap() error {
	return e.error
}

// NewRetryableError 标记为可重试
func NewRetryableError(err error) error {
	return &retryableError{error: err, retryable: true}
}

// NewNonRetryableError 标记为不可重试
func NewNonRetryableError(err error) error {
	return &retryableError{error: err, retryable: false}
}

// IsRetryable 判断错误是否可重试，未标记的错误除取消/超时外都重试
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	var re RetryableError
	if errors.As(err, &re) {
		return re.IsRetryable()
	}

	return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
}

// Func 可重试的操作
type Func func(ctx context.Context) error

// Do 执行带重试的操作
func Do(ctx context.Context, config *Config, fn Func) error {
	if config == nil {
		config = DefaultConfig()
	}
	logger := config.Logger
	if logger == nil {
		logger = logrus.New()
	}

	if config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, config.Timeout)
		defer cancel()
	}

	var lastErr error
	interval := config.InitialInterval

	for attempt := 1; attempt <= config.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("retry canceled: %w", err)
		}

		err := fn(ctx)
		if err == nil {
			if attempt > 1 {
				logger.WithField("attempt", attempt).Info("Operation succeeded after retry")
			}
			return nil
		}
		lastErr = err

		logger.WithFields(logrus.Fields{
			"attempt": attempt,
			"max":     config.MaxAttempts,
		}).WithError(err).Warn("Operation failed")

		if !IsRetryable(err) {
			return fmt.Errorf("non-retryable error: %w", err)
		}
		if attempt == config.MaxAttempts {
			break
		}

		interval = nextInterval(config.Strategy, config.InitialInterval, config.MaxInterval, attempt)

		select {
		case <-ctx.Done():
			return fmt.Errorf("retry canceled during wait: %w", ctx.Err())
		case <-time.After(interval):
		}
	}

	return fmt.Errorf("max attempts (%d) reached: %w", config.MaxAttempts, lastErr)
}

// nextInterval 第 attempt 次失败后的等待时间
func nextInterval(strategy Strategy, initial, max time.Duration, attempt int) time.Duration {
	next := initial
	switch strategy {
	case StrategyLinear:
		next = initial * time.Duration(attempt)
	case StrategyExponential:
		next = initial * time.Duration(1<<(attempt-1))
	}

	if max > 0 && next > max {
		next = max
	}
	return next
}

// DoWithResult 执行带重试且有返回值的操作
func DoWithResult[T any](ctx context.Context, config *Config, fn func(ctx context.Context) (T, error)) (T, error) {
	var result T
	err := Do(ctx, config, func(ctx context.Context) error {
		res, err := fn(ctx)
		if err != nil {
			return err
		}
		result = res
		return nil
	})
	return result, err
}
