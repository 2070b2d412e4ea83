package services

import (
	"context"
	"testing"

	"github.com/zonehub/backend/internal/core/ports"
	"github.com/zonehub/backend/internal/domain"
	"github.com/zonehub/backend/internal/infrastructure/logger"
)

type countingArtifacts struct {
	ports.ArtifactService
	scans int
}

func (c *countingArtifacts) ScanAsync(context.Context, string) (*domain.Task, error) {
	c.scans++
	return &domain.Task{ID: "scan-task", Status: domain.TaskStatusPending}, nil
}

func TestScanSchedulerEmptyScheduleDisabled(t *testing.T) {
	artifacts := &countingArtifacts{}
	sched := NewScanScheduler(artifacts, "", logger.Nop())

	if err := sched.Start(); err != nil {
		t.Fatalf("empty schedule must not error: %v", err)
	}
	sched.Stop()
	if artifacts.scans != 0 {
		t.Error("disabled scheduler must never submit a scan")
	}
}

func TestScanSchedulerRejectsBadSpec(t *testing.T) {
	sched := NewScanScheduler(&countingArtifacts{}, "every other tuesday", logger.Nop())

	if err := sched.Start(); err == nil {
		t.Fatal("expected an error for an unparseable cron spec")
	}
}

func TestScanSchedulerRunSubmits(t *testing.T) {
	artifacts := &countingArtifacts{}
	sched := NewScanScheduler(artifacts, "* * * * *", logger.Nop())

	sched.run()
	if artifacts.scans != 1 {
		t.Fatalf("expected one scan submission, got %d", artifacts.scans)
	}
}
