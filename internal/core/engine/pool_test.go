package engine

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/zonehub/backend/internal/domain"
	"github.com/zonehub/backend/internal/infrastructure/logger"
)

func newTestPool(repo *memRepo, workers int) *Pool {
	return NewPool(PoolConfig{
		Repo:      repo,
		Resources: NewResourceRegistry(),
		Logger:    logger.Nop(),
		Workers:   workers,
	})
}

func claimAndRun(t *testing.T, repo *memRepo, pool *Pool, task *domain.Task, handler Handler, resources []string) {
	t.Helper()
	if !pool.Reserve(task, resources) {
		t.Fatalf("reserve failed for task %s", task.ID)
	}
	claimed, err := repo.CompareAndSwap(context.Background(), task.ID, domain.TaskStatusPending, map[string]interface{}{
		"status":     domain.TaskStatusRunning,
		"started_at": time.Now(),
	})
	if err != nil || !claimed {
		t.Fatalf("claim failed for task %s", task.ID)
	}
	task.Status = domain.TaskStatusRunning
	pool.Execute(task, handler, resources)
}

func TestPoolSettlesSuccess(t *testing.T) {
	repo := newMemRepo()
	pool := newTestPool(repo, 2)

	task := pendingTask("t1", "zone:web01", 50, time.Now())
	repo.Create(context.Background(), task)

	handler := &stubHandler{
		kind: domain.OpZoneStart,
		execute: func(context.Context, *domain.Task, Progress) Result {
			return Result{Success: true, Message: "zone started"}
		},
	}

	claimAndRun(t, repo, pool, task, handler, nil)
	pool.Wait()

	got, _ := repo.GetByID(context.Background(), "t1")
	if got.Status != domain.TaskStatusCompleted {
		t.Fatalf("expected completed, got %s", got.Status)
	}
	if got.ProgressPercent != 100 {
		t.Errorf("completed task must read 100%%, got %d", got.ProgressPercent)
	}
	if got.CompletedAt == nil {
		t.Error("completed_at must be set")
	}

	var info map[string]interface{}
	if err := json.Unmarshal(got.ProgressInfo, &info); err != nil {
		t.Fatalf("progress_info not valid JSON: %v", err)
	}
	if info["message"] != "zone started" {
		t.Errorf("expected handler message in progress_info, got %v", info["message"])
	}
}

func TestPoolSettlesFailure(t *testing.T) {
	repo := newMemRepo()
	pool := newTestPool(repo, 2)

	task := pendingTask("t1", "zone:web01", 50, time.Now())
	repo.Create(context.Background(), task)

	handler := &stubHandler{
		kind: domain.OpZoneStart,
		execute: func(context.Context, *domain.Task, Progress) Result {
			return Result{Success: false, Err: errors.New("zoneadm exited 1")}
		},
	}

	claimAndRun(t, repo, pool, task, handler, nil)
	pool.Wait()

	got, _ := repo.GetByID(context.Background(), "t1")
	if got.Status != domain.TaskStatusFailed {
		t.Fatalf("expected failed, got %s", got.Status)
	}
	if got.ErrorMessage != "zoneadm exited 1" {
		t.Errorf("expected handler error recorded, got %q", got.ErrorMessage)
	}
}

func TestPoolContainsPanic(t *testing.T) {
	repo := newMemRepo()
	pool := newTestPool(repo, 2)

	task := pendingTask("t1", "zone:web01", 50, time.Now())
	repo.Create(context.Background(), task)

	handler := &stubHandler{
		kind: domain.OpZoneStart,
		execute: func(context.Context, *domain.Task, Progress) Result {
			panic("boom")
		},
	}

	claimAndRun(t, repo, pool, task, handler, nil)
	pool.Wait()

	got, _ := repo.GetByID(context.Background(), "t1")
	if got.Status != domain.TaskStatusFailed {
		t.Fatalf("panicking handler must fail its task, got %s", got.Status)
	}
	if got.ErrorMessage == "" {
		t.Error("panic must be recorded in error_message")
	}

	// The slot and scope must be released for the next task.
	if pool.ScopeBusy("zone:web01") {
		t.Error("scope must be released after a panic")
	}
}

func TestPoolScopeExclusive(t *testing.T) {
	repo := newMemRepo()
	pool := newTestPool(repo, 4)

	blocker := make(chan struct{})
	task1 := pendingTask("t1", "zone:web01", 50, time.Now())
	repo.Create(context.Background(), task1)

	handler := &stubHandler{
		kind: domain.OpZoneStart,
		execute: func(context.Context, *domain.Task, Progress) Result {
			<-blocker
			return Result{Success: true}
		},
	}

	claimAndRun(t, repo, pool, task1, handler, nil)

	task2 := pendingTask("t2", "zone:web01", 50, time.Now())
	if pool.Reserve(task2, nil) {
		t.Fatal("second task in the same scope must not reserve")
	}

	task3 := pendingTask("t3", "zone:db01", 50, time.Now())
	if !pool.Reserve(task3, nil) {
		t.Fatal("a different scope must be unaffected")
	}
	pool.Unreserve(task3, nil)

	close(blocker)
	pool.Wait()

	if !pool.Reserve(task2, nil) {
		t.Fatal("scope must be free once the first task settles")
	}
	pool.Unreserve(task2, nil)
}

func TestPoolWorkerBound(t *testing.T) {
	repo := newMemRepo()
	pool := newTestPool(repo, 1)

	blocker := make(chan struct{})
	task1 := pendingTask("t1", "zone:a", 50, time.Now())
	repo.Create(context.Background(), task1)

	handler := &stubHandler{
		kind: domain.OpZoneStart,
		execute: func(context.Context, *domain.Task, Progress) Result {
			<-blocker
			return Result{Success: true}
		},
	}

	claimAndRun(t, repo, pool, task1, handler, nil)

	task2 := pendingTask("t2", "zone:b", 50, time.Now())
	if pool.Reserve(task2, nil) {
		t.Fatal("pool with one worker must refuse a second reservation")
	}

	close(blocker)
	pool.Wait()
}

func TestPoolCancelDiscardsResult(t *testing.T) {
	repo := newMemRepo()
	pool := newTestPool(repo, 2)

	task := pendingTask("t1", "artifact:/data/a.iso", 50, time.Now())
	repo.Create(context.Background(), task)

	started := make(chan struct{})
	handler := &stubHandler{
		kind: domain.OpArtifactDownload,
		execute: func(_ context.Context, _ *domain.Task, progress Progress) Result {
			close(started)
			<-progress.Cancelled()
			return Result{Success: true, Message: "finished anyway"}
		},
	}

	claimAndRun(t, repo, pool, task, handler, nil)
	<-started

	// The cancel path: the service CASes running -> cancelled, then signals.
	swapped, _ := repo.CompareAndSwap(context.Background(), "t1", domain.TaskStatusRunning, map[string]interface{}{
		"status":       domain.TaskStatusCancelled,
		"completed_at": time.Now(),
	})
	if !swapped {
		t.Fatal("cancel CAS should win while the handler runs")
	}
	if !pool.Cancel("t1") {
		t.Fatal("pool should know the running task")
	}
	pool.Wait()

	got, _ := repo.GetByID(context.Background(), "t1")
	if got.Status != domain.TaskStatusCancelled {
		t.Fatalf("handler result must not overwrite cancelled, got %s", got.Status)
	}
}

func TestPoolCancelUnknownTask(t *testing.T) {
	pool := newTestPool(newMemRepo(), 2)
	if pool.Cancel("missing") {
		t.Fatal("cancelling an unknown task must return false")
	}
}

func TestPoolReleasesResources(t *testing.T) {
	repo := newMemRepo()
	resources := NewResourceRegistry()
	pool := NewPool(PoolConfig{Repo: repo, Resources: resources, Logger: logger.Nop(), Workers: 2})

	task := pendingTask("t1", "artifact:/data/a.iso", 50, time.Now())
	repo.Create(context.Background(), task)

	footprint := []string{"/data/a.iso"}
	handler := &stubHandler{kind: domain.OpArtifactDownload}

	claimAndRun(t, repo, pool, task, handler, footprint)
	pool.Wait()

	if resources.Busy("/data/a.iso") {
		t.Fatal("resource footprint must be released when the task settles")
	}
}
