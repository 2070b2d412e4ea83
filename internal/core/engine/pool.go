package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/zonehub/backend/internal/core/ports"
	"github.com/zonehub/backend/internal/domain"
	"github.com/zonehub/backend/internal/infrastructure/logger"
)

const (
	defaultWorkers          = 4
	defaultProgressInterval = 500 * time.Millisecond
)

type PoolConfig struct {
	Repo      ports.TaskRepository
	Resources *ResourceRegistry
	Logger    *logger.Logger

	// Workers bounds globally concurrent handler invocations.
	Workers int

	// ProgressInterval is the minimum spacing between progress writes per task.
	ProgressInterval time.Duration
}

// Pool runs claimed tasks concurrently up to a bound, at most one per
// resource scope. Handler failures become failed task rows and never escape.
type Pool struct {
	repo             ports.TaskRepository
	resources        *ResourceRegistry
	log              *logger.Logger
	progressInterval time.Duration

	slots chan struct{}

	mu      sync.Mutex
	scopes  map[string]string    // resource scope -> running task id
	running map[string]*reporter // task id -> its update path

	wg sync.WaitGroup
}

func NewPool(cfg PoolConfig) *Pool {
	if cfg.Workers <= 0 {
		cfg.Workers = defaultWorkers
	}
	if cfg.ProgressInterval <= 0 {
		cfg.ProgressInterval = defaultProgressInterval
	}
	return &Pool{
		repo:             cfg.Repo,
		resources:        cfg.Resources,
		log:              cfg.Logger,
		progressInterval: cfg.ProgressInterval,
		slots:            make(chan struct{}, cfg.Workers),
		scopes:           make(map[string]string),
		running:          make(map[string]*reporter),
	}
}

// Reserve claims a worker slot, the task's contention scope, and its resource
// footprint without blocking. All-or-nothing; returns false when anything is
// unavailable.
func (p *Pool) Reserve(task *domain.Task, resources []string) bool {
	select {
	case p.slots <- struct{}{}:
	default:
		return false
	}

	p.mu.Lock()
	if _, busy := p.scopes[task.ResourceScope]; busy {
		p.mu.Unlock()
		<-p.slots
		return false
	}
	p.scopes[task.ResourceScope] = task.ID
	p.mu.Unlock()

	if !p.resources.AcquireAll(resources, task.ID) {
		p.mu.Lock()
		delete(p.scopes, task.ResourceScope)
		p.mu.Unlock()
		<-p.slots
		return false
	}
	return true
}

// Unreserve backs out a reservation whose claim lost the compare-and-swap.
func (p *Pool) Unreserve(task *domain.Task, resources []string) {
	p.resources.ReleaseAll(resources, task.ID)
	p.mu.Lock()
	if p.scopes[task.ResourceScope] == task.ID {
		delete(p.scopes, task.ResourceScope)
	}
	p.mu.Unlock()
	<-p.slots
}

// ScopeBusy reports whether a task is currently running in the scope.
func (p *Pool) ScopeBusy(scope string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, busy := p.scopes[scope]
	return busy
}

// Execute runs an already-claimed and reserved task on its own goroutine.
func (p *Pool) Execute(task *domain.Task, handler Handler, resources []string) {
	rep := newReporter(p.repo, p.log, task.ID, p.progressInterval)

	p.mu.Lock()
	p.running[task.ID] = rep
	p.mu.Unlock()

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		defer func() {
			p.mu.Lock()
			delete(p.running, task.ID)
			if p.scopes[task.ResourceScope] == task.ID {
				delete(p.scopes, task.ResourceScope)
			}
			p.mu.Unlock()
			p.resources.ReleaseAll(resources, task.ID)
			<-p.slots
		}()

		p.log.Infow("task_execute_start",
			"task_id", task.ID, "operation", task.Operation, "scope", task.ResourceScope)

		result := p.invoke(task, handler, rep)
		p.settle(task, rep, result)
	}()
}

// invoke runs the handler with panic containment. A panicking handler fails
// its task, never the scheduler.
func (p *Pool) invoke(task *domain.Task, handler Handler, rep *reporter) (result Result) {
	defer func() {
		if r := recover(); r != nil {
			p.log.Errorw("task_handler_panic", "task_id", task.ID, "operation", task.Operation, "panic", r)
			result = Result{Success: false, Err: fmt.Errorf("handler panic: %v", r)}
		}
	}()
	return handler.Execute(context.Background(), task, rep)
}

// settle writes the terminal row. The write is a compare-and-swap from
// running: if the row was cancelled mid-flight the result is discarded.
func (p *Pool) settle(task *domain.Task, rep *reporter, result Result) {
	rep.markTerminal()

	now := time.Now()
	fields := ports.TaskFields{"completed_at": now}

	info := domain.JSONB{}
	if result.Message != "" {
		info["message"] = result.Message
	}
	if len(result.Stats) > 0 {
		info["stats"] = json.RawMessage(result.Stats)
	}
	if len(info) > 0 {
		if encoded, err := json.Marshal(info); err == nil {
			fields["progress_info"] = domain.Payload(encoded)
		}
	}

	if result.Success && result.Err == nil {
		fields["status"] = domain.TaskStatusCompleted
		fields["progress_percent"] = 100
	} else {
		fields["status"] = domain.TaskStatusFailed
		msg := result.Message
		if result.Err != nil {
			msg = result.Err.Error()
		}
		if msg == "" {
			msg = "handler reported failure"
		}
		fields["error_message"] = msg
	}

	swapped, err := p.repo.CompareAndSwap(context.Background(), task.ID, domain.TaskStatusRunning, fields)
	if err != nil {
		p.log.Errorw("task_settle_failed", "task_id", task.ID, "error", err)
		return
	}
	if !swapped {
		// Row left running state underneath us, i.e. cancelled mid-flight.
		p.log.Infow("task_settle_discarded", "task_id", task.ID)
		return
	}
	p.log.Infow("task_execute_done",
		"task_id", task.ID, "operation", task.Operation, "status", fields["status"])
}

// Cancel signals a running task's handler. Best effort: handlers observe it
// only if they poll Progress.Cancelled.
func (p *Pool) Cancel(taskID string) bool {
	p.mu.Lock()
	rep, ok := p.running[taskID]
	p.mu.Unlock()
	if !ok {
		return false
	}
	rep.markTerminal()
	rep.signalCancel()
	return true
}

// Wait blocks until every in-flight handler returns. Used on shutdown after
// the dispatcher stops.
func (p *Pool) Wait() {
	p.wg.Wait()
}
