package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/yungbote/coursemedia-backend/internal/platform/logger"
)

var (
	ErrQueueFull  = errors.New("worker queue full")
	ErrPoolClosed = errors.New("worker pool stopped")
)

// Task is one unit of background work. Run gets the pool's base context, not
// the submitter's. OnDrop, if set, is called instead of Run for tasks still
// queued when the pool stops.
type Task struct {
	Name   string
	Run    func(ctx context.Context)
	OnDrop func()
}

// Pool runs tasks on a fixed number of goroutines fed by a bounded queue.
// Submit never blocks.
type Pool struct {
	log         *logger.Logger
	concurrency int
	queue       chan Task

	mu       sync.RWMutex
	started  bool
	closed   bool
	stopping atomic.Bool
	wg       sync.WaitGroup
	inflight atomic.Int64
}

func NewPool(baseLog *logger.Logger, concurrency, queueSize int) *Pool {
	if concurrency < 1 {
		concurrency = 1
	}
	if queueSize < 0 {
		queueSize = 0
	}
	return &Pool{
		log:         baseLog.With("component", "WorkerPool"),
		concurrency: concurrency,
		queue:       make(chan Task, queueSize),
	}
}

// Start launches the workers. Tasks run with ctx; cancelling it does not stop
// the workers, Stop does.
func (p *Pool) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started || p.closed {
		return
	}
	p.started = true
	p.log.Info("Starting worker pool", "concurrency", p.concurrency, "queue_size", cap(p.queue))
	for i := 0; i < p.concurrency; i++ {
		p.wg.Add(1)
		go p.runLoop(ctx, i+1)
	}
}

// Submit enqueues t or fails with ErrQueueFull / ErrPoolClosed.
func (p *Pool) Submit(t Task) error {
	if t.Run == nil {
		return fmt.Errorf("worker: task %q has no Run func", t.Name)
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrPoolClosed
	}
	select {
	case p.queue <- t:
		return nil
	default:
		return ErrQueueFull
	}
}

// Stop refuses new tasks, lets running tasks finish, drops queued ones
// through OnDrop and waits for the workers to exit.
func (p *Pool) Stop() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	p.stopping.Store(true)
	close(p.queue)
	started := p.started
	p.mu.Unlock()

	if !started {
		for t := range p.queue {
			p.drop(t)
		}
		return
	}
	p.wg.Wait()
	p.log.Info("Worker pool stopped")
}

// Queued is the number of tasks waiting for a worker.
func (p *Pool) Queued() int { return len(p.queue) }

// InFlight is the number of tasks currently running.
func (p *Pool) InFlight() int { return int(p.inflight.Load()) }

func (p *Pool) runLoop(ctx context.Context, workerID int) {
	defer p.wg.Done()
	for t := range p.queue {
		if p.stopping.Load() {
			p.drop(t)
			continue
		}
		p.run(ctx, workerID, t)
	}
}

func (p *Pool) run(ctx context.Context, workerID int, t Task) {
	p.inflight.Add(1)
	defer p.inflight.Add(-1)
	defer func() {
		if r := recover(); r != nil {
			p.log.Error("Task panic",
				"worker_id", workerID,
				"task", t.Name,
				"panic", r,
			)
		}
	}()
	t.Run(ctx)
}

func (p *Pool) drop(t Task) {
	p.log.Warn("Dropping queued task on shutdown", "task", t.Name)
	if t.OnDrop == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			p.log.Error("Task drop hook panic", "task", t.Name, "panic", r)
		}
	}()
	t.OnDrop()
}
