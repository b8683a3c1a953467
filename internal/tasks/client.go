package tasks

import (
	"context"
	"encoding/json"
	"fmt"

	"actionhub/internal/notify"
	"actionhub/internal/utils/logger"

	"github.com/hibiken/asynq"
)

// TaskClient enqueues background work.
type TaskClient struct {
	client *asynq.Client
	logger *logger.Logger
}

// NewTaskClient creates a new TaskClient with the given Redis configuration
func NewTaskClient(redisAddr, username, password string, db int) *TaskClient {
	return &TaskClient{
		client: asynq.NewClient(RedisOpt(redisAddr, username, password, db)),
		logger: logger.New("TASKS"),
	}
}

// RedisOpt is the connection shared by client, server and scheduler.
func RedisOpt(addr, username, password string, db int) asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:     addr,
		Username: username,
		Password: password,
		DB:       db,
	}
}

// Close closes the underlying asynq client
func (c *TaskClient) Close() error {
	return c.client.Close()
}

// NewNotifyTask wraps job for the queue. Notifications are never retried:
// a partially delivered job would be delivered twice.
func NewNotifyTask(job notify.Job) (*asynq.Task, error) {
	payload, err := json.Marshal(job)
	if err != nil {
		return nil, fmt.Errorf("encode notify task: %w", err)
	}
	return asynq.NewTask(TaskTypeNotifyAction, payload,
		asynq.Queue(QueueFor(job.Config.Metadata.Priority)),
		asynq.MaxRetry(0),
		asynq.Timeout(TimeoutMedium),
	), nil
}

// EnqueueNotification hands job to the worker pool.
func (c *TaskClient) EnqueueNotification(ctx context.Context, job notify.Job) error {
	task, err := NewNotifyTask(job)
	if err != nil {
		return err
	}
	info, err := c.client.EnqueueContext(ctx, task)
	if err != nil {
		return c.logger.Error("enqueue %s notification", err, job.ActionKey)
	}
	c.logger.Debug("queued %s notification %s on %s", job.ActionKey, info.ID, info.Queue)
	return nil
}
