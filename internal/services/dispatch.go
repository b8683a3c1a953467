package services

import (
	"context"

	"actionhub/internal/events"
	"actionhub/internal/metrics"
	"actionhub/internal/notify"
)

// Notifier delivers a job; notify.Orchestrator implements it.
type Notifier interface {
	Notify(ctx context.Context, job notify.Job) *notify.Report
}

// JobSink takes a job somewhere else for delivery, e.g. a task queue.
type JobSink interface {
	EnqueueNotification(ctx context.Context, job notify.Job) error
}

type dispatchEvent struct {
	ctx context.Context
	job notify.Job
}

// BusDispatcher publishes jobs on the event bus. A single subscriber either
// runs the notifier in-process or forwards to a JobSink.
type BusDispatcher struct {
	bus  *events.EventBus
	mode string
}

// NewInlineDispatcher delivers on the bus goroutine in this process.
func NewInlineDispatcher(bus *events.EventBus, notifier Notifier) *BusDispatcher {
	bus.On(events.ActionSucceeded, func(data interface{}) {
		ev, ok := data.(dispatchEvent)
		if !ok {
			return
		}
		notifier.Notify(ev.ctx, ev.job)
	})
	return &BusDispatcher{bus: bus, mode: "inline"}
}

// NewQueueDispatcher forwards jobs to sink; enqueue failures are logged and
// dropped.
func NewQueueDispatcher(bus *events.EventBus, sink JobSink) *BusDispatcher {
	bus.On(events.ActionSucceeded, func(data interface{}) {
		ev, ok := data.(dispatchEvent)
		if !ok {
			return
		}
		if err := sink.EnqueueNotification(ev.ctx, ev.job); err != nil {
			log.Error("enqueue notification for %s", err, ev.job.ActionKey)
		}
	})
	return &BusDispatcher{bus: bus, mode: "queue"}
}

func (d *BusDispatcher) Dispatch(ctx context.Context, job notify.Job) {
	metrics.NotificationsDispatched.WithLabelValues(d.mode).Inc()
	d.bus.Emit(events.ActionSucceeded, dispatchEvent{ctx: ctx, job: job})
}
