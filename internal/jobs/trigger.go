package jobs

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
)

// parser accepts the six-field format (seconds first) and descriptors such
// as @daily, matching cron.WithSeconds.
var parser = cron.NewParser(
	cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// Trigger is a wall-clock rule that computes a task's next fire time. It
// satisfies cron.Schedule so the same value drives the cron runner and
// lookahead queries.
type Trigger struct {
	spec     string
	schedule cron.Schedule
}

var _ cron.Schedule = Trigger{}

// ParseTrigger parses a cron expression.
func ParseTrigger(spec string) (Trigger, error) {
	schedule, err := parser.Parse(spec)
	if err != nil {
		return Trigger{}, fmt.Errorf("parse schedule %q: %w", spec, err)
	}
	return Trigger{spec: spec, schedule: schedule}, nil
}

// Next returns the first fire time strictly after from, in from's location.
func (t Trigger) Next(from time.Time) time.Time {
	return t.schedule.Next(from)
}

func (t Trigger) String() string { return t.spec }
