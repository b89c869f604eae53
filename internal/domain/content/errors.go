package content

import "errors"

// Sentinel errors shared by every content store.
var (
	ErrNotFound = errors.New("content: not found")
	ErrConflict = errors.New("content: conflict")
	ErrCycle    = errors.New("content: prerequisite cycle")
	ErrInvalid  = errors.New("content: invalid input")
)
