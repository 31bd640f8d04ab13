package worker

import (
	"context"
	"errors"

	"github.com/spyware-scanner/spyware-scanner-go/internal/domain"
)

// Dispatcher 把扫描任务登记后交给 Worker 池
type Dispatcher struct {
	orchestrator *Orchestrator
	pool         *Pool
}

// NewDispatcher 创建任务分发器
func NewDispatcher(orchestrator *Orchestrator, pool *Pool) *Dispatcher {
	return &Dispatcher{orchestrator: orchestrator, pool: pool}
}

// Dispatch 异步提交任务，返回 QUEUED 状态
func (d *Dispatcher) Dispatch(ctx context.Context, job *ScanJob) (*domain.ScanJobStatus, error) {
	status, err := d.orchestrator.Prepare(ctx, job)
	if err != nil {
		return nil, err
	}
	if err := d.pool.Submit(job); err != nil {
		d.orchestrator.failJob(ctx, status, err)
		return nil, err
	}
	return status, nil
}

// Run 提交任务并等待执行结束
func (d *Dispatcher) Run(ctx context.Context, job *ScanJob) error {
	status, err := d.orchestrator.Prepare(ctx, job)
	if err != nil {
		return err
	}
	if err := d.pool.SubmitAndWait(ctx, job); err != nil {
		// 未进入队列的任务直接标记失败
		if errors.Is(err, ErrQueueFull) {
			d.orchestrator.failJob(ctx, status, err)
		}
		return err
	}
	return nil
}

// QueueDepth 等待执行的任务数
func (d *Dispatcher) QueueDepth() int {
	return d.pool.GetQueueSize()
}

// Workers Worker 数量
func (d *Dispatcher) Workers() int {
	return d.pool.Workers()
}
