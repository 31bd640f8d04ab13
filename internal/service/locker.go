package service

import (
	"context"
	"sync"
	"time"
)

// ScanLocker 同一设备同一时间只允许一个扫描
type ScanLocker interface {
	// Acquire 成功获取返回 true，已被占用返回 false
	Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, key string) error
}

// memoryLocker 进程内锁，ttl 到期自动失效
type memoryLocker struct {
	mu    sync.Mutex
	locks map[string]time.Time
}

// NewMemoryLocker 创建进程内扫描锁
func NewMemoryLocker() ScanLocker {
	return &memoryLocker{locks: make(map[string]time.Time)}
}

func (l *memoryLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	if expiry, ok := l.locks[key]; ok && (expiry.IsZero() || now.Before(expiry)) {
		return false, nil
	}

	var expiry time.Time
	if ttl > 0 {
		expiry = now.Add(ttl)
	}
	l.locks[key] = expiry
	return true, nil
}

func (l *memoryLocker) Release(ctx context.Context, key string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.locks, key)
	return nil
}
