package frame

import "errors"

// Sentinel errors.
var (
	// ErrFrameLimit is returned when a sequence would exceed its frame cap.
	ErrFrameLimit = errors.New("frame limit exceeded")
	// ErrNonFinite is returned when a frame or summary holds NaN or an infinity.
	ErrNonFinite = errors.New("non-finite value")
)
