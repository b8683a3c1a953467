package tasks

import (
	"fmt"

	"actionhub/internal/utils/logger"

	"github.com/hibiken/asynq"
)

// Scheduler handles periodic task scheduling
type Scheduler struct {
	scheduler *asynq.Scheduler
	logger    *logger.Logger
}

// NewScheduler creates a new task scheduler
func NewScheduler(redisOpt asynq.RedisClientOpt, logger *logger.Logger) *Scheduler {
	return &Scheduler{
		scheduler: asynq.NewScheduler(redisOpt, &asynq.SchedulerOpts{}),
		logger:    logger,
	}
}

// Start runs the scheduler in the background.
func (s *Scheduler) Start() error {
	s.logger.Info("starting task scheduler")
	return s.scheduler.Start()
}

// Stop stops the scheduler
func (s *Scheduler) Stop() {
	s.scheduler.Shutdown()
	s.logger.Info("task scheduler stopped")
}

// RegisterMembershipSweep schedules the cache sweep on spec.
func (s *Scheduler) RegisterMembershipSweep(spec string) error {
	return s.RegisterCustomTask(spec, TaskTypeMembershipSweep, nil, asynq.Queue(QueueLow), asynq.MaxRetry(0))
}

// RegisterCustomTask registers a periodic task after validating spec.
func (s *Scheduler) RegisterCustomTask(spec string, taskType string, payload []byte, opts ...asynq.Option) error {
	if err := ValidateCron(spec); err != nil {
		return err
	}
	entryID, err := s.scheduler.Register(spec, asynq.NewTask(taskType, payload, opts...))
	if err != nil {
		return fmt.Errorf("failed to register custom task: %w", err)
	}

	s.logger.Info("registered custom task %s %s %s", taskType, spec, entryID)
	return nil
}
