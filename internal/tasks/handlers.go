package tasks

import (
	"context"
	"encoding/json"
	"fmt"

	"actionhub/internal/metrics"
	"actionhub/internal/notify"
	"actionhub/internal/utils/logger"

	"github.com/hibiken/asynq"
)

// Notifier delivers a job; notify.Orchestrator implements it.
type Notifier interface {
	Notify(ctx context.Context, job notify.Job) *notify.Report
}

// Sweeper drops expired cache entries; membership.MemoryCache implements it.
type Sweeper interface {
	Sweep() int
}

// TaskHandler processes queued tasks
type TaskHandler struct {
	notifier Notifier
	sweeper  Sweeper
	logger   *logger.Logger
}

// NewTaskHandler creates a new TaskHandler. sweeper may be nil when the
// cache expires entries on its own.
func NewTaskHandler(notifier Notifier, sweeper Sweeper) *TaskHandler {
	return &TaskHandler{
		notifier: notifier,
		sweeper:  sweeper,
		logger:   logger.New("task_handler"),
	}
}

// HandleNotifyAction delivers a queued notification. Delivery failures are
// already absorbed by the notifier; only a bad payload fails the task.
func (h *TaskHandler) HandleNotifyAction(ctx context.Context, t *asynq.Task) error {
	var job notify.Job
	if err := json.Unmarshal(t.Payload(), &job); err != nil {
		return fmt.Errorf("decode notify task: %v: %w", err, asynq.SkipRetry)
	}
	report := h.notifier.Notify(ctx, job)
	if report != nil {
		h.logger.Debug("%s delivered to %d recipients", job.ActionKey, report.Recipients)
	}
	return nil
}

// HandleMembershipSweep purges expired membership cache entries.
func (h *TaskHandler) HandleMembershipSweep(_ context.Context, _ *asynq.Task) error {
	if h.sweeper == nil {
		return nil
	}
	if n := h.sweeper.Sweep(); n > 0 {
		metrics.CacheSwept.Add(float64(n))
		h.logger.Debug("swept %d expired membership entries", n)
	}
	return nil
}

// Mux routes task types to their handlers.
func (h *TaskHandler) Mux() *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.HandleFunc(TaskTypeNotifyAction, h.HandleNotifyAction)
	mux.HandleFunc(TaskTypeMembershipSweep, h.HandleMembershipSweep)
	return mux
}
