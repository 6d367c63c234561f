package feed

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// ErrorType classifies fetch and parse failures.
type ErrorType string

const (
	// ErrTypeNetwork covers DNS, connection and TLS failures.
	ErrTypeNetwork ErrorType = "network"
	// ErrTypeTimeout is a request that exceeded its deadline.
	ErrTypeTimeout ErrorType = "timeout"
	// ErrTypeStatus is a non-2xx response for a required resource. It is network class.
	ErrTypeStatus ErrorType = "status"
	// ErrTypeParse is an unrecognized or malformed feed document.
	ErrTypeParse ErrorType = "parse_error"
)

// Sentinel errors.
var (
	ErrInvalidURL     = errors.New("invalid url")
	ErrUnknownVariant = errors.New("unknown feed variant")
)

// Error is a classified feed failure.
type Error struct {
	Type       ErrorType
	StatusCode int
	URL        string
	Cause      error
}

func (e *Error) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("feed %s: HTTP %d for %s", e.Type, e.StatusCode, e.URL)
	}
	if e.URL == "" {
		return fmt.Sprintf("feed %s: %v", e.Type, e.Cause)
	}
	return fmt.Sprintf("feed %s: %v for %s", e.Type, e.Cause, e.URL)
}

func (e *Error) Unwrap() error { return e.Cause }

// IsTimeout reports whether err is a feed timeout.
func IsTimeout(err error) bool {
	var fe *Error
	return errors.As(err, &fe) && fe.Type == ErrTypeTimeout
}

// IsNetwork reports whether err is network class (network, timeout or status).
func IsNetwork(err error) bool {
	var fe *Error
	if !errors.As(err, &fe) {
		return false
	}
	switch fe.Type {
	case ErrTypeNetwork, ErrTypeTimeout, ErrTypeStatus:
		return true
	default:
		return false
	}
}

// IsParse reports whether err is a feed parse failure.
func IsParse(err error) bool {
	var fe *Error
	return errors.As(err, &fe) && fe.Type == ErrTypeParse
}

// ClassifyNetworkError wraps a transport error, separating timeouts from other failures.
func ClassifyNetworkError(cause error, url string) *Error {
	errType := ErrTypeNetwork
	var netErr net.Error
	if errors.Is(cause, context.DeadlineExceeded) || (errors.As(cause, &netErr) && netErr.Timeout()) {
		errType = ErrTypeTimeout
	}
	return &Error{Type: errType, URL: url, Cause: cause}
}

// ClassifyHTTPStatus builds a status error for a non-2xx response.
func ClassifyHTTPStatus(statusCode int, url string) *Error {
	return &Error{
		Type:       ErrTypeStatus,
		StatusCode: statusCode,
		URL:        url,
		Cause:      fmt.Errorf("HTTP %d", statusCode),
	}
}

// ClassifyParseError wraps a parser failure.
func ClassifyParseError(cause error, url string) *Error {
	return &Error{Type: ErrTypeParse, URL: url, Cause: cause}
}
