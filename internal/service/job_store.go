package service

import (
	"context"
	"sync"

	"github.com/spyware-scanner/spyware-scanner-go/internal/domain"
)

// JobStore 异步扫描任务状态
type JobStore interface {
	Save(ctx context.Context, status *domain.ScanJobStatus) error
	// Get 不存在时返回 ErrJobNotFound
	Get(ctx context.Context, jobID string) (*domain.ScanJobStatus, error)
}

// memoryJobStore 进程内任务状态，保留最近 limit 个
type memoryJobStore struct {
	mu    sync.RWMutex
	jobs  map[string]*domain.ScanJobStatus
	order []string
	limit int
}

// NewMemoryJobStore 创建进程内任务状态存储
func NewMemoryJobStore(limit int) JobStore {
	if limit <= 0 {
		limit = 500
	}
	return &memoryJobStore{
		jobs:  make(map[string]*domain.ScanJobStatus),
		limit: limit,
	}
}

func (s *memoryJobStore) Save(ctx context.Context, status *domain.ScanJobStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	copied := cloneStatus(status)

	if _, exists := s.jobs[status.JobID]; !exists {
		s.order = append(s.order, status.JobID)
		if len(s.order) > s.limit {
			delete(s.jobs, s.order[0])
			s.order = s.order[1:]
		}
	}
	s.jobs[status.JobID] = copied
	return nil
}

func (s *memoryJobStore) Get(ctx context.Context, jobID string) (*domain.ScanJobStatus, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	status, ok := s.jobs[jobID]
	if !ok {
		return nil, ErrJobNotFound
	}
	return cloneStatus(status), nil
}

func cloneStatus(status *domain.ScanJobStatus) *domain.ScanJobStatus {
	copied := *status
	if status.Progress != nil {
		progress := *status.Progress
		copied.Progress = &progress
	}
	return &copied
}
