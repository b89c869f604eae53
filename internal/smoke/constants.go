package smoke

import "time"

// Defaults for Config fields left zero.
const (
	defaultTimeout      = 10 * time.Second
	defaultJobs         = 8
	defaultPollInterval = 50 * time.Millisecond
)

// jobDeadline bounds how long a submitted job may take to finish.
const jobDeadline = 30 * time.Second

// maxErrorBody caps how much of an unexpected response is quoted in errors.
const maxErrorBody = 512
