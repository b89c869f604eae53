// Package smoke verifies a running VisualVerse server end to end over HTTP.
package smoke

import "time"

// Config holds the target and credentials of a smoke run.
type Config struct {
	BaseURL string        // Base URL of the service
	Timeout time.Duration // Per-request timeout
	// Email and Password enable the content and admin checks. Without them
	// only anonymous endpoints are exercised.
	Email    string
	Password string
	// Jobs is the number of render jobs submitted concurrently.
	Jobs int
	// PollInterval is the delay between job status polls.
	PollInterval time.Duration
}

func (c Config) withDefaults() Config {
	if c.Timeout <= 0 {
		c.Timeout = defaultTimeout
	}
	if c.Jobs <= 0 {
		c.Jobs = defaultJobs
	}
	if c.PollInterval <= 0 {
		c.PollInterval = defaultPollInterval
	}
	return c
}

// Check is the outcome of one verification step.
type Check struct {
	Name     string        `json:"name"`
	OK       bool          `json:"ok"`
	Skipped  bool          `json:"skipped,omitempty"`
	Error    string        `json:"error,omitempty"`
	Duration time.Duration `json:"duration_ns"`
}

// Report collects every check of a run.
type Report struct {
	BaseURL  string        `json:"base_url"`
	Checks   []Check       `json:"checks"`
	Duration time.Duration `json:"duration_ns"`
}

// Failed counts failed checks.
func (r Report) Failed() int {
	n := 0
	for _, c := range r.Checks {
		if !c.OK && !c.Skipped {
			n++
		}
	}
	return n
}
