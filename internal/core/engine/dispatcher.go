package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/zonehub/backend/internal/core/ports"
	"github.com/zonehub/backend/internal/domain"
	"github.com/zonehub/backend/internal/infrastructure/logger"
)

const defaultPollInterval = time.Second

type DispatcherConfig struct {
	Repo     ports.TaskRepository
	Registry *Registry
	Pool     *Pool
	Logger   *logger.Logger

	// PollInterval is the fixed interval between dispatch cycles.
	PollInterval time.Duration
}

// Dispatcher is the single loop that scans pending tasks in
// (priority desc, created_at asc) order, tests eligibility, and atomically
// claims eligible rows for the pool. It never blocks on a handler.
type Dispatcher struct {
	repo     ports.TaskRepository
	registry *Registry
	pool     *Pool
	log      *logger.Logger
	interval time.Duration

	stop chan struct{}
	done chan struct{}
}

func NewDispatcher(cfg DispatcherConfig) *Dispatcher {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = defaultPollInterval
	}
	return &Dispatcher{
		repo:     cfg.Repo,
		registry: cfg.Registry,
		pool:     cfg.Pool,
		log:      cfg.Logger,
		interval: cfg.PollInterval,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

func (d *Dispatcher) Start() {
	go d.loop()
	d.log.Infow("dispatcher_started", "poll_interval", d.interval)
}

func (d *Dispatcher) loop() {
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()
	defer close(d.done)

	for {
		select {
		case <-d.stop:
			return
		case <-ticker.C:
			d.DispatchOnce(context.Background())
		}
	}
}

// Stop halts the dispatch loop. Already-running tasks are unaffected.
func (d *Dispatcher) Stop() {
	close(d.stop)
	<-d.done
}

// DispatchOnce runs a single dispatch cycle and returns how many tasks it
// started. Exported so tests and the startup path can drive cycles directly.
func (d *Dispatcher) DispatchOnce(ctx context.Context) int {
	pending, err := d.repo.ListPending(ctx)
	if err != nil {
		d.log.Errorw("dispatch_list_pending_failed", "error", err)
		return 0
	}

	started := 0
	for i := range pending {
		task := pending[i]

		if task.DependsOn != nil {
			if !d.dependencyReady(ctx, &task) {
				continue
			}
		}

		handler, ok := d.registry.Lookup(task.Operation)
		if !ok {
			// Registry misconfiguration; fail loudly rather than retry forever.
			d.failPending(ctx, task.ID, fmt.Sprintf("no handler registered for operation %q", task.Operation))
			continue
		}

		resources := handler.Resources(task.Metadata)
		if !d.pool.Reserve(&task, resources) {
			continue
		}

		now := time.Now()
		claimed, err := d.repo.CompareAndSwap(ctx, task.ID, domain.TaskStatusPending, ports.TaskFields{
			"status":     domain.TaskStatusRunning,
			"started_at": now,
		})
		if err != nil || !claimed {
			if err != nil {
				d.log.Errorw("dispatch_claim_failed", "task_id", task.ID, "error", err)
			}
			d.pool.Unreserve(&task, resources)
			continue
		}

		task.Status = domain.TaskStatusRunning
		task.StartedAt = &now
		d.log.Infow("task_claimed",
			"task_id", task.ID, "operation", task.Operation, "priority", task.Priority)
		d.pool.Execute(&task, handler, resources)
		started++
	}
	return started
}

// dependencyReady tests the depends_on edge. Dependents of a failed or
// cancelled dependency are deterministically failed here (cascade rule)
// instead of pending forever.
func (d *Dispatcher) dependencyReady(ctx context.Context, task *domain.Task) bool {
	dep, err := d.repo.GetByID(ctx, *task.DependsOn)
	if err != nil {
		d.failPending(ctx, task.ID, fmt.Sprintf("dependency %s not found", *task.DependsOn))
		return false
	}

	switch dep.Status {
	case domain.TaskStatusCompleted:
		return true
	case domain.TaskStatusPending, domain.TaskStatusRunning:
		return false
	default:
		d.failPending(ctx, task.ID, fmt.Sprintf("dependency %s %s", dep.ID, dep.Status))
		return false
	}
}

func (d *Dispatcher) failPending(ctx context.Context, taskID, message string) {
	now := time.Now()
	swapped, err := d.repo.CompareAndSwap(ctx, taskID, domain.TaskStatusPending, ports.TaskFields{
		"status":        domain.TaskStatusFailed,
		"error_message": message,
		"completed_at":  now,
	})
	if err != nil {
		d.log.Errorw("dispatch_fail_pending_failed", "task_id", taskID, "error", err)
		return
	}
	if swapped {
		d.log.Warnw("task_failed_before_dispatch", "task_id", taskID, "reason", message)
	}
}

// Reconcile marks tasks left running by a previous process as failed. A row
// in running state cannot outlive the process that claimed it; leaving it
// would wedge its contention scope forever. Called once before Start.
func Reconcile(ctx context.Context, repo ports.TaskRepository, log *logger.Logger) error {
	count, err := repo.FailRunning(ctx, "interrupted by server restart", time.Now())
	if err != nil {
		return err
	}
	if count > 0 {
		log.Warnw("tasks_reconciled_on_startup", "count", count)
	}
	return nil
}
