package tasks

import (
	"time"

	"actionhub/internal/actions"
)

// Task Types
const (
	TaskTypeNotifyAction    = "notify:action"
	TaskTypeMembershipSweep = "membership:sweep"
)

// Task Queues
const (
	QueueCritical = "critical" // high priority notifications
	QueueDefault  = "default"  // regular notifications
	QueueLow      = "low"      // low priority notifications and housekeeping
)

// Task Timeouts
const (
	TimeoutShort  = 1 * time.Minute
	TimeoutMedium = 5 * time.Minute
)

// QueueFor routes a notification by its declared priority.
func QueueFor(p actions.Priority) string {
	switch p {
	case actions.PriorityHigh:
		return QueueCritical
	case actions.PriorityLow:
		return QueueLow
	default:
		return QueueDefault
	}
}
