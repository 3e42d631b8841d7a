package worker

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"transcode-jobs/ddd/domain/entity"
	"transcode-jobs/ddd/domain/port"
	"transcode-jobs/ddd/domain/repo"
	"transcode-jobs/ddd/domain/vo"
	"transcode-jobs/ddd/infrastructure/queue"
	"transcode-jobs/pkg/config"
	"transcode-jobs/pkg/logger"
	"transcode-jobs/pkg/task"
)

// Stats is a point-in-time snapshot of pool activity.
type Stats struct {
	PoolSize      int   `json:"poolSize"`
	QueueDepth    int   `json:"queueDepth"`
	QueueCapacity int   `json:"queueCapacity"`
	Running       int64 `json:"running"`
	Processed     int64 `json:"processed"`
	Succeeded     int64 `json:"succeeded"`
	Failed        int64 `json:"failed"`
	TimedOut      int64 `json:"timedOut"`
	Cancelled     int64 `json:"cancelled"`
}

// Pool runs a fixed number of execution slots over the admission queue.
// Each slot dequeues, claims the job with a queued-to-running transition,
// runs the executor, and commits the terminal outcome. The pool is the only
// component that commits running-to-terminal transitions.
type Pool struct {
	cfg      *config.Config
	store    repo.JobStore
	queue    queue.AdmissionQueue
	executor port.TranscodeExecutor

	mu      sync.Mutex
	cancels map[string]chan struct{}

	running   atomic.Int64
	processed atomic.Int64
	succeeded atomic.Int64
	failed    atomic.Int64
	timedOut  atomic.Int64
	cancelled atomic.Int64

	wg         sync.WaitGroup
	loopCancel context.CancelFunc
	execCancel context.CancelFunc
	started    bool
}

// NewPool wires a pool; Start launches the slots.
func NewPool(cfg *config.Config, store repo.JobStore, q queue.AdmissionQueue, exec port.TranscodeExecutor) *Pool {
	if cfg == nil {
		cfg = config.GetGlobalConfig()
	}
	return &Pool{
		cfg:      cfg,
		store:    store,
		queue:    q,
		executor: exec,
		cancels:  make(map[string]chan struct{}),
	}
}

// Name identifies the pool to the background task manager.
func (p *Pool) Name() string { return "worker-pool" }

// Start launches the configured number of slots.
func (p *Pool) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started {
		return errors.New("worker pool already started")
	}
	p.started = true

	loopCtx, loopCancel := context.WithCancel(ctx)
	// execution context is detached so in-flight jobs survive loop shutdown
	// until the grace period expires
	execCtx, execCancel := context.WithCancel(context.Background())
	p.loopCancel = loopCancel
	p.execCancel = execCancel

	size := p.cfg.Worker.PoolSize
	logger.Infof("worker pool starting slots=%d queue_capacity=%d", size, p.queue.Capacity())
	for i := 0; i < size; i++ {
		p.wg.Add(1)
		go p.runSlot(loopCtx, execCtx, i)
	}
	return nil
}

// Stop halts intake, then waits for in-flight jobs up to the shutdown grace
// period before cutting their execution context.
func (p *Pool) Stop() error {
	p.mu.Lock()
	if !p.started {
		p.mu.Unlock()
		return nil
	}
	loopCancel, execCancel := p.loopCancel, p.execCancel
	p.mu.Unlock()

	loopCancel()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(p.cfg.Worker.ShutdownGracePeriod):
		logger.Warnf("worker pool shutdown grace period expired, aborting in-flight jobs")
		execCancel()
		<-done
	}
	execCancel()

	p.mu.Lock()
	p.started = false
	p.mu.Unlock()
	logger.Infof("worker pool stopped processed=%d", p.processed.Load())
	return nil
}

// Cancel signals the slot running the job. It returns false when the job is
// not currently executing here.
func (p *Pool) Cancel(jobID string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	ch, ok := p.cancels[jobID]
	if !ok {
		return false
	}
	delete(p.cancels, jobID)
	close(ch)
	return true
}

// Stats returns current counters and queue depth.
func (p *Pool) Stats() Stats {
	return Stats{
		PoolSize:      p.cfg.Worker.PoolSize,
		QueueDepth:    p.queue.Size(),
		QueueCapacity: p.queue.Capacity(),
		Running:       p.running.Load(),
		Processed:     p.processed.Load(),
		Succeeded:     p.succeeded.Load(),
		Failed:        p.failed.Load(),
		TimedOut:      p.timedOut.Load(),
		Cancelled:     p.cancelled.Load(),
	}
}

func (p *Pool) runSlot(loopCtx, execCtx context.Context, slot int) {
	defer p.wg.Done()
	logger.Debugf("worker slot %d started", slot)

	for {
		job, err := p.queue.Dequeue(loopCtx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, queue.ErrQueueClosed) {
				logger.Debugf("worker slot %d stopping: %v", slot, err)
				return
			}
			logger.Errorf("worker slot %d dequeue: %v", slot, err)
			continue
		}
		p.process(execCtx, job, slot)
	}
}

func (p *Pool) process(ctx context.Context, job *entity.Job, slot int) {
	now := time.Now()
	claimed, err := p.store.CompareAndTransition(ctx, job.ID, vo.JobStateQueued, vo.JobStateRunning, repo.TransitionFields{StartedAt: &now})
	if err != nil {
		logger.Errorf("claim job_id=%s: %v", job.ID, err)
		return
	}
	if !claimed {
		// cancelled or failed while waiting in the queue
		logger.Debugf("worker slot %d skipping job_id=%s, no longer queued", slot, job.ID)
		return
	}

	cancel := make(chan struct{})
	p.mu.Lock()
	p.cancels[job.ID] = cancel
	p.mu.Unlock()

	p.running.Add(1)
	logger.Infof("job started job_id=%s slot=%d", job.ID, slot)

	outcome := p.executor.Execute(ctx, job, cancel)

	p.mu.Lock()
	delete(p.cancels, job.ID)
	p.mu.Unlock()
	p.running.Add(-1)

	p.commit(ctx, job.ID, outcome)
}

func (p *Pool) commit(ctx context.Context, jobID string, outcome port.Outcome) {
	end := time.Now()
	fields := repo.TransitionFields{
		EndedAt:     &end,
		Artifact:    outcome.Artifact,
		ErrorDetail: outcome.ErrorDetail,
	}
	committed, err := p.store.CompareAndTransition(ctx, jobID, vo.JobStateRunning, outcome.State, fields)
	if err != nil {
		logger.Errorf("commit job_id=%s state=%s: %v", jobID, outcome.State, err)
		return
	}
	if !committed {
		logger.Warnf("terminal transition already performed job_id=%s state=%s", jobID, outcome.State)
		return
	}

	p.processed.Add(1)
	switch outcome.State {
	case vo.JobStateSucceeded:
		p.succeeded.Add(1)
	case vo.JobStateFailed:
		p.failed.Add(1)
	case vo.JobStateTimedOut:
		p.timedOut.Add(1)
	case vo.JobStateCancelled:
		p.cancelled.Add(1)
	}
	logger.Infof("job finished job_id=%s state=%s", jobID, outcome.State)
}

var _ task.BackgroundTask = (*Pool)(nil)
