package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"
	"github.com/spyware-scanner/spyware-scanner-go/internal/service"
)

var (
	// ErrQueueFull 任务队列已满
	ErrQueueFull = errors.New("task queue is full")
	// ErrPoolStopped Worker 池已停止
	ErrPoolStopped = errors.New("worker pool stopped")
)

// JobExecutor 执行单个扫描任务，由 Orchestrator 实现
type JobExecutor interface {
	ExecuteJob(ctx context.Context, job *ScanJob) error
}

// Pool Worker 池
type Pool struct {
	workers  int
	taskChan chan *Task
	executor JobExecutor
	logger   *logrus.Logger
	wg       sync.WaitGroup

	mu      sync.RWMutex
	stopped bool
}

// Task 任务
type Task struct {
	Job      *ScanJob
	resultCh chan error // 用于同步等待任务完成
}

// NewPool 创建 Worker 池
func NewPool(workers, queueSize int, executor JobExecutor, logger *logrus.Logger) *Pool {
	if workers <= 0 {
		workers = 1
	}
	if queueSize <= 0 {
		queueSize = 100
	}
	return &Pool{
		workers:  workers,
		taskChan: make(chan *Task, queueSize),
		executor: executor,
		logger:   logger,
	}
}

// Start 启动 Worker 池
func (p *Pool) Start(ctx context.Context) {
	p.logger.WithField("workers", p.workers).Info("Starting worker pool")

	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.worker(ctx, i)
	}
}

// worker Worker 协程
func (p *Pool) worker(ctx context.Context, id int) {
	defer p.wg.Done()

	p.logger.WithField("worker_id", id).Info("Worker started")

	for {
		select {
		case <-ctx.Done():
			p.logger.WithField("worker_id", id).Info("Worker shutting down")
			return

		case task, ok := <-p.taskChan:
			if !ok {
				p.logger.WithField("worker_id", id).Info("Task channel closed, worker exiting")
				return
			}

			log := p.logger.WithFields(logrus.Fields{
				"worker_id": id,
				"job_id":    task.Job.JobID,
				"device":    task.Job.target(),
			})
			log.Info("Processing scan job")

			err := p.executor.ExecuteJob(ctx, task.Job)

			switch {
			case err == nil:
				log.Info("Scan job completed successfully")
			case errors.Is(err, service.ErrScanInProgress):
				log.Warn("Device is already being scanned, job rejected")
			default:
				log.WithError(err).Error("Scan job failed")
			}

			// 如果有结果通道，发送结果
			if task.resultCh != nil {
				task.resultCh <- err
				close(task.resultCh)
			}
		}
	}
}

// Submit 提交任务（异步，不等待结果）
func (p *Pool) Submit(job *ScanJob) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.stopped {
		return ErrPoolStopped
	}

	select {
	case p.taskChan <- &Task{Job: job}:
		p.logger.WithField("job_id", job.JobID).Debug("Scan job submitted to pool")
		return nil
	default:
		return fmt.Errorf("%w (size %d)", ErrQueueFull, cap(p.taskChan))
	}
}

// SubmitAndWait 提交任务并等待完成，队列已满时立即返回 ErrQueueFull
func (p *Pool) SubmitAndWait(ctx context.Context, job *ScanJob) error {
	task := &Task{Job: job, resultCh: make(chan error, 1)}

	p.mu.RLock()
	if p.stopped {
		p.mu.RUnlock()
		return ErrPoolStopped
	}
	select {
	case p.taskChan <- task:
		p.mu.RUnlock()
		p.logger.WithField("job_id", job.JobID).Debug("Scan job submitted to pool (sync)")
	default:
		p.mu.RUnlock()
		return fmt.Errorf("%w (size %d)", ErrQueueFull, cap(p.taskChan))
	}

	select {
	case err := <-task.resultCh:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stop 停止 Worker 池
func (p *Pool) Stop() {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return
	}
	p.stopped = true
	close(p.taskChan)
	p.mu.Unlock()

	p.logger.Info("Stopping worker pool")
	p.wg.Wait()
	p.logger.Info("Worker pool stopped")
}

// GetQueueSize 获取队列中任务数
func (p *Pool) GetQueueSize() int {
	return len(p.taskChan)
}

// Workers Worker 数量
func (p *Pool) Workers() int {
	return p.workers
}
