package render

import "errors"

// Sentinel errors.
var (
	ErrUnknownKind = errors.New("render: unknown domain or kind")
	ErrBadParams   = errors.New("render: bad parameters")
	ErrLimit       = errors.New("render: input exceeds limits")
)
