// Package scheduler wires up the cron job that periodically runs the
// incremental sync pass.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"samscout/opportunity-service/internal/model"
)

// ErrSyncInProgress is returned when a trigger arrives while another pass
// holds the run lock.
var ErrSyncInProgress = errors.New("a sync pass is already running")

// SyncRunner executes one sync pass.
type SyncRunner interface {
	Run(ctx context.Context) (*model.SyncReport, error)
}

// RunRecorder persists sync-job history.
type RunRecorder interface {
	RecordSyncRun(ctx context.Context, run *model.SyncRun) error
}

// Locker serialises passes across triggers (cron tick, HTTP, CLI).
type Locker interface {
	Acquire(ctx context.Context) (bool, error)
	Release(ctx context.Context) error
}

// Scheduler wraps robfig/cron and manages the sync loop.
type Scheduler struct {
	cron     *cron.Cron
	runner   SyncRunner
	recorder RunRecorder
	lock     Locker
	spec     string // cron spec, e.g. "@every 6h"
	logger   *zap.Logger
}

// New creates a Scheduler that fires every intervalHours hours.
func New(runner SyncRunner, recorder RunRecorder, lock Locker, intervalHours int, logger *zap.Logger) *Scheduler {
	return &Scheduler{
		cron:     cron.New(),
		runner:   runner,
		recorder: recorder,
		lock:     lock,
		spec:     fmt.Sprintf("@every %dh", intervalHours),
		logger:   logger,
	}
}

// Start registers the job and starts the scheduler. Also runs one pass
// immediately so the feed is populated without waiting for the first tick.
func (s *Scheduler) Start(ctx context.Context) error {
	_, err := s.cron.AddFunc(s.spec, func() {
		s.tick(ctx)
	})
	if err != nil {
		return fmt.Errorf("cron.AddFunc: %w", err)
	}

	s.cron.Start()
	s.logger.Info("cron started", zap.String("spec", s.spec))

	// Run immediately on startup (non-blocking).
	go s.tick(ctx)

	return nil
}

// Stop gracefully shuts down the scheduler.
func (s *Scheduler) Stop() {
	s.cron.Stop()
	s.logger.Info("cron stopped")
}

func (s *Scheduler) tick(ctx context.Context) {
	if _, err := s.TriggerSync(ctx); err != nil {
		if errors.Is(err, ErrSyncInProgress) {
			s.logger.Warn("skipping tick: previous sync pass still running")
			return
		}
		s.logger.Error("scheduled sync failed", zap.Error(err))
	}
}

// TriggerSync runs one pass under the run lock and records its outcome in
// the sync-job history. Used by the cron tick, the HTTP trigger and the
// CLI.
func (s *Scheduler) TriggerSync(ctx context.Context) (*model.SyncReport, error) {
	ok, err := s.lock.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrSyncInProgress
	}
	defer func() {
		if err := s.lock.Release(ctx); err != nil {
			s.logger.Error("releasing sync lock failed", zap.Error(err))
		}
	}()

	report, runErr := s.runner.Run(ctx)

	run := model.SyncRun{
		ExecutedAt: time.Now().UTC(),
		Status:     "success",
		Report:     report,
	}
	if runErr != nil {
		run.Status = "failed"
		run.Error = runErr.Error()
	}
	// History is best-effort; a recording failure must not mask the pass
	// result.
	if err := s.recorder.RecordSyncRun(ctx, &run); err != nil {
		s.logger.Error("recording sync run failed", zap.Error(err))
	}

	return report, runErr
}
