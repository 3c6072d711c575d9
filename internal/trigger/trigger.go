// Package trigger defines the schedule descriptors attached to jobs.
// A Rule answers one question: given the current time and the previous
// fire time, when does the job fire next?
package trigger

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
)

// Rule computes fire times for a job. Next returns nil when the rule is
// exhausted (a one-shot that already fired).
type Rule interface {
	// Next returns the next fire time strictly determined by now and the
	// previous fire time, or nil when the rule will never fire again.
	Next(now time.Time, prev *time.Time) *time.Time

	// Recurring reports whether the rule produces more than one fire.
	Recurring() bool

	Describe() string
}

// Once fires a single time at the given instant.
type Once struct {
	At time.Time
}

func (o Once) Next(_ time.Time, prev *time.Time) *time.Time {
	if prev != nil {
		return nil
	}
	at := o.At
	return &at
}

func (o Once) Recurring() bool { return false }

func (o Once) Describe() string {
	return fmt.Sprintf("once at %s", o.At.Format(time.RFC3339))
}

// Every fires on a fixed interval. The first fire happens immediately on
// registration; each later fire is the previous fire plus the interval.
type Every struct {
	Interval time.Duration
}

func (e Every) Next(now time.Time, prev *time.Time) *time.Time {
	if prev == nil {
		n := now
		return &n
	}
	next := prev.Add(e.Interval)
	return &next
}

func (e Every) Recurring() bool { return true }

func (e Every) Describe() string {
	return fmt.Sprintf("every %s", e.Interval)
}

// cronParser accepts the 6-field grammar (seconds first). Quartz-style "?"
// in the day fields parses as "*".
var cronParser = cron.NewParser(
	cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow,
)

// Cron fires at every instant matching a 6-field cron expression.
type Cron struct {
	Expression string
	schedule   cron.Schedule
}

// NewCron parses the expression eagerly so a bad schedule is rejected at
// registration time instead of inside the dispatch loop.
func NewCron(expression string) (Cron, error) {
	schedule, err := cronParser.Parse(expression)
	if err != nil {
		return Cron{}, fmt.Errorf("invalid cron expression %q: %w", expression, err)
	}
	return Cron{Expression: expression, schedule: schedule}, nil
}

func (c Cron) Next(now time.Time, _ *time.Time) *time.Time {
	schedule := c.schedule
	if schedule == nil {
		parsed, err := NewCron(c.Expression)
		if err != nil {
			return nil
		}
		schedule = parsed.schedule
	}
	next := schedule.Next(now)
	if next.IsZero() {
		return nil
	}
	return &next
}

func (c Cron) Recurring() bool { return true }

func (c Cron) Describe() string {
	return fmt.Sprintf("cron %q", c.Expression)
}
