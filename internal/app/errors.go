package service

import "errors"

// Sentinel errors.
var (
	ErrNotStarted   = errors.New("service: not started")
	ErrBackpressure = errors.New("service: job queue is full")
)
