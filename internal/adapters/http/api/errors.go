package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/okian/visualverse/internal/adapters/repository/adminstore"
	"github.com/okian/visualverse/internal/adapters/repository/jobstore"
	service "github.com/okian/visualverse/internal/app"
	"github.com/okian/visualverse/internal/auth"
	"github.com/okian/visualverse/internal/domain/content"
	"github.com/okian/visualverse/internal/domain/render"
)

// Sentinel kinds for API errors.
var (
	ErrBadRequest   = errors.New("bad request")
	ErrUnauthorized = errors.New("authentication required")
	ErrNotFound     = errors.New("not found")

	errKeyTooLong    = errors.New("idempotency key longer than 200 bytes")
	errUnknownStatus = errors.New("unknown job status")
	errEmptyQuery    = errors.New("missing search query q")
	errDeleteSelf    = errors.New("cannot delete the signed-in user")
)

// Error records the handler operation that failed, an optional kind used for
// status mapping, and the cause.
type Error struct {
	Op   string
	Kind error
	Err  error
}

func (e *Error) Error() string {
	switch {
	case e.Err != nil:
		return e.Op + ": " + e.Err.Error()
	case e.Kind != nil:
		return e.Op + ": " + e.Kind.Error()
	default:
		return e.Op
	}
}

func (e *Error) Unwrap() []error {
	out := make([]error, 0, 2)
	if e.Kind != nil {
		out = append(out, e.Kind)
	}
	if e.Err != nil {
		out = append(out, e.Err)
	}
	return out
}

// message is the client facing text, without the operation.
func (e *Error) message() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	if e.Kind != nil {
		return e.Kind.Error()
	}
	return ""
}

// Wrap annotates err with op; nil stays nil.
func Wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Op: op, Err: err}
}

// WrapKind annotates err with op and classifies it as kind.
func WrapKind(op string, kind, err error) error {
	return &Error{Op: op, Kind: kind, Err: err}
}

// NewKind returns an error of kind raised by op.
func NewKind(op string, kind error) error {
	return &Error{Op: op, Kind: kind}
}

func isMaxBytes(err error) bool {
	var maxBytes *http.MaxBytesError
	return errors.As(err, &maxBytes)
}

// classify maps an error to an HTTP status and a stable error code.
func classify(err error) (int, string) {
	switch {
	case isMaxBytes(err), errors.Is(err, render.ErrLimit):
		return http.StatusRequestEntityTooLarge, "limit"
	case errors.Is(err, render.ErrUnknownKind):
		return http.StatusNotFound, "unknown_kind"
	case errors.Is(err, render.ErrBadParams):
		return http.StatusBadRequest, "bad_params"
	case errors.Is(err, ErrBadRequest), errors.Is(err, auth.ErrWeakPassword):
		return http.StatusBadRequest, "bad_request"
	case errors.Is(err, content.ErrInvalid), errors.Is(err, adminstore.ErrInvalid):
		return http.StatusBadRequest, "invalid"
	case errors.Is(err, ErrUnauthorized),
		errors.Is(err, auth.ErrInvalidCredentials),
		errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrExpiredToken),
		errors.Is(err, auth.ErrSessionRevoked):
		return http.StatusUnauthorized, "unauthorized"
	case errors.Is(err, auth.ErrForbidden):
		return http.StatusForbidden, "forbidden"
	case errors.Is(err, ErrNotFound),
		errors.Is(err, content.ErrNotFound),
		errors.Is(err, jobstore.ErrNotFound),
		errors.Is(err, adminstore.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, content.ErrCycle):
		return http.StatusConflict, "cycle"
	case errors.Is(err, content.ErrConflict), errors.Is(err, adminstore.ErrDuplicate):
		return http.StatusConflict, "conflict"
	case errors.Is(err, service.ErrBackpressure):
		return http.StatusTooManyRequests, "backpressure"
	case errors.Is(err, service.ErrNotStarted):
		return http.StatusServiceUnavailable, "unavailable"
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "timeout"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}
