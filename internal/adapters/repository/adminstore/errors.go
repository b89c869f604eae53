package adminstore

import (
	"errors"
	"fmt"
)

// Store errors shared by every implementation.
var (
	ErrNotFound  = errors.New("admin: not found")
	ErrDuplicate = errors.New("admin: already exists")
	ErrInvalid   = errors.New("admin: invalid input")

	ErrUserNotFound    = fmt.Errorf("%w: user", ErrNotFound)
	ErrSessionNotFound = fmt.Errorf("%w: session", ErrNotFound)
	ErrEmailExists     = fmt.Errorf("%w: email", ErrDuplicate)
)
