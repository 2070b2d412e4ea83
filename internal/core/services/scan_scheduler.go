package services

import (
	"context"

	"github.com/robfig/cron/v3"

	"github.com/zonehub/backend/internal/core/ports"
	"github.com/zonehub/backend/internal/infrastructure/logger"
)

// ScanScheduler submits a periodic storage scan so the artifact catalog
// stays consistent with what is actually on disk.
type ScanScheduler struct {
	artifacts ports.ArtifactService
	schedule  string
	log       *logger.Logger
	cron      *cron.Cron
}

func NewScanScheduler(artifacts ports.ArtifactService, schedule string, log *logger.Logger) *ScanScheduler {
	return &ScanScheduler{
		artifacts: artifacts,
		schedule:  schedule,
		log:       log,
		cron:      cron.New(),
	}
}

func (s *ScanScheduler) Start() error {
	if s.schedule == "" {
		s.log.Infow("scan_scheduler_disabled")
		return nil
	}
	if _, err := s.cron.AddFunc(s.schedule, s.run); err != nil {
		return err
	}
	s.cron.Start()
	s.log.Infow("scan_scheduler_started", "schedule", s.schedule)
	return nil
}

func (s *ScanScheduler) run() {
	task, err := s.artifacts.ScanAsync(context.Background(), "scheduler")
	if err != nil {
		s.log.Errorw("scheduled_scan_submit_failed", "error", err)
		return
	}
	s.log.Infow("scheduled_scan_submitted", "task_id", task.ID)
}

// Stop halts the cron loop and waits for an in-flight trigger to return.
func (s *ScanScheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}
