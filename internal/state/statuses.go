package state

type JobStatus string

const (
	StatusScheduled JobStatus = "scheduled"
	StatusRunning   JobStatus = "running"
	StatusSucceeded JobStatus = "succeeded"
	StatusFailed    JobStatus = "failed"
	StatusPaused    JobStatus = "paused"
	StatusCancelled JobStatus = "cancelled"
)

func (s JobStatus) String() string {
	return string(s)
}

// Terminal statuses are never fired again and may be garbage-collected.
func (s JobStatus) Terminal() bool {
	return s == StatusSucceeded || s == StatusFailed || s == StatusCancelled
}

var AllStatuses = []JobStatus{
	StatusScheduled,
	StatusRunning,
	StatusSucceeded,
	StatusFailed,
	StatusPaused,
	StatusCancelled,
}

type Transition struct {
	From JobStatus
	To   JobStatus
}

var ValidTransitions = []Transition{
	{From: StatusScheduled, To: StatusRunning},
	{From: StatusRunning, To: StatusSucceeded},
	{From: StatusRunning, To: StatusFailed},
	// recurring jobs return to the schedule after each run
	{From: StatusRunning, To: StatusScheduled},
	{From: StatusScheduled, To: StatusPaused},
	{From: StatusPaused, To: StatusScheduled},
	{From: StatusScheduled, To: StatusCancelled},
	{From: StatusPaused, To: StatusCancelled},
	{From: StatusRunning, To: StatusCancelled},
}

func IsValidTransition(from, to JobStatus) bool {
	for _, t := range ValidTransitions {
		if t.From == from && t.To == to {
			return true
		}
	}
	return false
}
