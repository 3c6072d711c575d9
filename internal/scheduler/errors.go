package scheduler

import "errors"

var (
	// ErrDuplicateJob is returned by ScheduleOnce when a non-terminal job
	// with the same id and group exists and overwriting is disabled.
	ErrDuplicateJob = errors.New("job already scheduled")

	// ErrJobNotFound is returned by control operations on unknown keys.
	ErrJobNotFound = errors.New("job not found")

	// ErrHandlerNotFound is recorded on a job whose kind has no handler.
	ErrHandlerNotFound = errors.New("handler not found")

	// ErrInvalidTransition rejects a control operation the job's current
	// status does not allow, such as pausing a job mid-run.
	ErrInvalidTransition = errors.New("invalid job status transition")
)
