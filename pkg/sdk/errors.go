package pieskieo

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors. Use errors.Is() to check.
var (
	// ErrInvalidInput signals a request rejected before it was sent.
	ErrInvalidInput = errors.New("invalid input")
	// ErrDecode signals a malformed response body or a missing data field.
	ErrDecode = errors.New("decode response")

	// ErrBadRequest matches a 400 response.
	ErrBadRequest = errors.New("bad request")
	// ErrUnauthorized matches a 401 response.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrForbidden matches a 403 response.
	ErrForbidden = errors.New("forbidden")
	// ErrNotFound matches a 404 response.
	ErrNotFound = errors.New("not found")
	// ErrConflict matches a 409 response (unique violation or wrong shard).
	ErrConflict = errors.New("conflict")
	// ErrRateLimited matches a 429 response.
	ErrRateLimited = errors.New("rate limited")
	// ErrServer matches any 5xx response.
	ErrServer = errors.New("server error")
)

// StatusError is returned for any non-2xx response.
type StatusError struct {
	Method     string
	Path       string
	StatusCode int
	Body       []byte
}

func (e *StatusError) Error() string {
	if len(e.Body) == 0 {
		return fmt.Sprintf("%s %s: status %d", e.Method, e.Path, e.StatusCode)
	}
	return fmt.Sprintf("%s %s: status %d: %s", e.Method, e.Path, e.StatusCode, e.Body)
}

// Is maps the status code onto the sentinel errors.
func (e *StatusError) Is(target error) bool {
	switch target {
	case ErrBadRequest:
		return e.StatusCode == http.StatusBadRequest
	case ErrUnauthorized:
		return e.StatusCode == http.StatusUnauthorized
	case ErrForbidden:
		return e.StatusCode == http.StatusForbidden
	case ErrNotFound:
		return e.StatusCode == http.StatusNotFound
	case ErrConflict:
		return e.StatusCode == http.StatusConflict
	case ErrRateLimited:
		return e.StatusCode == http.StatusTooManyRequests
	case ErrServer:
		return e.StatusCode >= http.StatusInternalServerError
	}
	return false
}

// DecodeError wraps a response body that could not be decoded.
type DecodeError struct {
	Path string
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("%s: %s: %v", ErrDecode.Error(), e.Path, e.Err)
}

func (e *DecodeError) Unwrap() []error { return []error{ErrDecode, e.Err} }

// StatusCode extracts the HTTP status code from err, or 0 if err is not a StatusError.
func StatusCode(err error) int {
	var se *StatusError
	if errors.As(err, &se) {
		return se.StatusCode
	}
	return 0
}
