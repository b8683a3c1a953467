package tasks

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
)

// ValidateCron rejects specs the scheduler would only fail on at runtime.
// Standard five-field expressions and descriptors such as @every are accepted.
func ValidateCron(expr string) error {
	if _, err := cron.ParseStandard(expr); err != nil {
		return fmt.Errorf("invalid cron spec %q: %w", expr, err)
	}
	return nil
}

// NextRun reports when expr next fires after from.
func NextRun(expr string, from time.Time) (time.Time, error) {
	schedule, err := cron.ParseStandard(expr)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid cron spec %q: %w", expr, err)
	}
	return schedule.Next(from), nil
}
