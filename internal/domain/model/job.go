// Package model contains the job types passed between the API, queue and workers.
package model

import (
	"encoding/json"
	"time"
)

// JobStatus is the lifecycle state of a render job.
type JobStatus string

// Job states. A job moves pending -> running -> succeeded|failed.
const (
	JobPending   JobStatus = "pending"
	JobRunning   JobStatus = "running"
	JobSucceeded JobStatus = "succeeded"
	JobFailed    JobStatus = "failed"
)

// AllJobStatuses lists every state in lifecycle order.
var AllJobStatuses = []JobStatus{JobPending, JobRunning, JobSucceeded, JobFailed}

// Terminal reports whether no further transition can happen.
func (s JobStatus) Terminal() bool {
	return s == JobSucceeded || s == JobFailed
}

// Valid reports whether s is a known state.
func (s JobStatus) Valid() bool {
	for _, v := range AllJobStatuses {
		if v == s {
			return true
		}
	}
	return false
}

// RenderJob is the unit of work flowing through the queue.
type RenderJob struct {
	ID             string          // job id (uuid)
	Domain         string          // vertical, e.g. "algorithms"
	Kind           string          // generator within the vertical
	Params         json.RawMessage // raw generator params, decoded by the registry
	IdempotencyKey string          // optional client key
	SubmittedAt    time.Time
}

// JobRecord is the externally visible state of a job.
type JobRecord struct {
	ID             string          `json:"id"`
	Domain         string          `json:"domain"`
	Kind           string          `json:"kind"`
	Status         JobStatus       `json:"status"`
	IdempotencyKey string          `json:"idempotency_key,omitempty"`
	Error          string          `json:"error,omitempty"`
	ErrorCode      string          `json:"error_code,omitempty"`
	FrameCount     int             `json:"frame_count,omitempty"`
	Result         json.RawMessage `json:"result,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
	StartedAt      *time.Time      `json:"started_at,omitempty"`
	FinishedAt     *time.Time      `json:"finished_at,omitempty"`
}

// NewJobRecord returns the pending record for j.
func NewJobRecord(j RenderJob) JobRecord {
	return JobRecord{
		ID:             j.ID,
		Domain:         j.Domain,
		Kind:           j.Kind,
		Status:         JobPending,
		IdempotencyKey: j.IdempotencyKey,
		CreatedAt:      j.SubmittedAt,
	}
}
