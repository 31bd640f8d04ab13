package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)
	return logger
}

// fakeExecutor 记录执行过的任务
type fakeExecutor struct {
	mu      sync.Mutex
	jobs    []string
	err     error
	block   chan struct{}
	started chan struct{}
}

func (e *fakeExecutor) ExecuteJob(ctx context.Context, job *ScanJob) error {
	if e.started != nil {
		e.started <- struct{}{}
	}
	if e.block != nil {
		select {
		case <-e.block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.jobs = append(e.jobs, job.JobID)
	return e.err
}

func (e *fakeExecutor) executed() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.jobs...)
}

func TestPool_SubmitAndWait(t *testing.T) {
	executor := &fakeExecutor{}
	pool := NewPool(2, 10, executor, testLogger())
	pool.Start(context.Background())
	defer pool.Stop()

	err := pool.SubmitAndWait(context.Background(), &ScanJob{JobID: "job-1"})

	require.NoError(t, err)
	assert.Equal(t, []string{"job-1"}, executor.executed())
}

func TestPool_SubmitAndWait_PropagatesError(t *testing.T) {
	executor := &fakeExecutor{err: errors.New("device offline")}
	pool := NewPool(1, 10, executor, testLogger())
	pool.Start(context.Background())
	defer pool.Stop()

	err := pool.SubmitAndWait(context.Background(), &ScanJob{JobID: "job-1"})
	assert.EqualError(t, err, "device offline")
}

func TestPool_Submit(t *testing.T) {
	executor := &fakeExecutor{}
	pool := NewPool(1, 10, executor, testLogger())
	pool.Start(context.Background())

	for _, id := range []string{"job-1", "job-2", "job-3"} {
		require.NoError(t, pool.Submit(&ScanJob{JobID: id}))
	}

	// Stop 会等待队列中的任务执行完
	pool.Stop()
	assert.Equal(t, []string{"job-1", "job-2", "job-3"}, executor.executed())
}

func TestPool_SubmitQueueFull(t *testing.T) {
	executor := &fakeExecutor{block: make(chan struct{}), started: make(chan struct{}, 1)}
	pool := NewPool(1, 1, executor, testLogger())
	pool.Start(context.Background())

	require.NoError(t, pool.Submit(&ScanJob{JobID: "running"}))
	select {
	case <-executor.started:
	case <-time.After(time.Second):
		t.Fatal("worker did not pick up job")
	}

	require.NoError(t, pool.Submit(&ScanJob{JobID: "queued"}))
	assert.Equal(t, 1, pool.GetQueueSize())

	err := pool.Submit(&ScanJob{JobID: "rejected"})
	assert.ErrorIs(t, err, ErrQueueFull)

	close(executor.block)
	pool.Stop()

	assert.Equal(t, []string{"running", "queued"}, executor.executed())
}

func TestPool_SubmitAndWait_ContextCanceled(t *testing.T) {
	executor := &fakeExecutor{block: make(chan struct{})}
	pool := NewPool(1, 1, executor, testLogger())
	pool.Start(context.Background())
	defer func() {
		close(executor.block)
		pool.Stop()
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := pool.SubmitAndWait(ctx, &ScanJob{JobID: "slow"})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestNewPool_Defaults(t *testing.T) {
	pool := NewPool(0, 0, &fakeExecutor{}, testLogger())
	assert.Equal(t, 1, pool.Workers())
	assert.Equal(t, 0, pool.GetQueueSize())
}

func TestPool_SubmitAfterStop(t *testing.T) {
	pool := NewPool(1, 1, &fakeExecutor{}, testLogger())
	pool.Start(context.Background())
	pool.Stop()
	pool.Stop()

	assert.ErrorIs(t, pool.Submit(&ScanJob{JobID: "late"}), ErrPoolStopped)
	assert.ErrorIs(t, pool.SubmitAndWait(context.Background(), &ScanJob{JobID: "late"}), ErrPoolStopped)
}
