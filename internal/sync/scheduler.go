package sync

import (
	"context"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Scheduler re-drains every known owner's queue on a cron interval. It is
// optional: with it disabled, retries remain caller-driven (user action,
// app start, connectivity-restored signal).
type Scheduler struct {
	spec     string
	queues   *Queues
	executor *Executor
	logger   *zap.Logger
	cron     *cron.Cron
	entryID  cron.EntryID
}

// NewScheduler creates a scheduled re-drain worker.
func NewScheduler(spec string, queues *Queues, executor *Executor, logger *zap.Logger) *Scheduler {
	return &Scheduler{
		spec:     spec,
		queues:   queues,
		executor: executor,
		logger:   logger,
		cron:     cron.New(),
	}
}

// Start registers the cron entry and begins scheduling.
func (s *Scheduler) Start() {
	s.logger.Info("Starting sync scheduler", zap.String("interval", s.spec))

	id, err := s.cron.AddFunc(s.spec, s.drainAll)
	if err != nil {
		s.logger.Error("Failed to schedule drain job", zap.Error(err))
		return
	}
	s.entryID = id
	s.cron.Start()
}

// Stop stops the scheduler. A drain already running finishes.
func (s *Scheduler) Stop() {
	if s.cron != nil {
		s.cron.Stop()
	}
	s.logger.Info("Stopped sync scheduler")
}

func (s *Scheduler) drainAll() {
	ctx := context.Background()
	for _, owner := range s.queues.Owners() {
		pending, err := s.queues.For(owner).PendingCount(ctx)
		if err != nil {
			s.logger.Error("Failed to read queue depth", zap.String("owner_id", owner), zap.Error(err))
			continue
		}
		if pending == 0 {
			continue
		}
		if _, err := s.executor.SyncAll(ctx, owner); err != nil {
			s.logger.Error("Scheduled drain failed", zap.String("owner_id", owner), zap.Error(err))
		}
	}
}
