package completion

import (
	"context"
	"errors"
	"fmt"
)

// Code classifies completion failures.
type Code string

const (
	CodeNotConfigured Code = "not_configured"
	CodeTransient     Code = "transient"
	CodeQuota         Code = "quota_exceeded"
	CodeAuth          Code = "auth"
	CodeBadRequest    Code = "bad_request"
	CodeBadResponse   Code = "bad_response"
	CodeUnknown       Code = "unknown"
)

// Error is returned by every provider in this package.
type Error struct {
	Code       Code
	StatusCode int
	// UpstreamCode is the provider's own error code, e.g. "insufficient_quota".
	UpstreamCode string
	Message      string
	Err          error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.StatusCode > 0 {
		return fmt.Sprintf("completion: %s (status %d): %s", e.Code, e.StatusCode, msg)
	}
	return fmt.Sprintf("completion: %s: %s", e.Code, msg)
}

func (e *Error) Unwrap() error { return e.Err }

// ErrNotConfigured is returned when no provider credentials are available.
var ErrNotConfigured = &Error{Code: CodeNotConfigured, Message: "completion provider not configured"}

// CodeOf extracts the failure code from err. Context expiry counts as transient.
func CodeOf(err error) Code {
	if err == nil {
		return ""
	}
	var cerr *Error
	if errors.As(err, &cerr) {
		return cerr.Code
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return CodeTransient
	}
	return CodeUnknown
}

const (
	msgSettingUp  = "The support chat is currently being set up. Please contact support directly or try again later."
	msgConnecting = "Sorry, I'm having trouble connecting right now. Try again in a sec?"
	msgResponding = "I'm having trouble responding right now. Please try again in a moment."
)

// UserMessage maps any completion failure to a fixed end-user string. Upstream
// error text is never included.
func UserMessage(err error) string {
	switch CodeOf(err) {
	case CodeNotConfigured:
		return msgSettingUp
	case CodeTransient, CodeQuota, CodeAuth:
		return msgConnecting
	default:
		return msgResponding
	}
}

// OperatorMessage describes a failure for logs and alerts.
func OperatorMessage(err error) string {
	switch CodeOf(err) {
	case CodeNotConfigured:
		return "ai service not configured: set OPENAI_API_KEY or a fallback provider"
	case CodeQuota:
		return "ai service quota exceeded: check provider billing or credits"
	case CodeAuth:
		return "ai service configuration error: provider rejected the api key"
	case CodeTransient:
		return "ai service unavailable after retries"
	case CodeBadRequest:
		return "ai service rejected the request"
	case CodeBadResponse:
		return "ai service returned an unreadable response"
	default:
		if err == nil {
			return ""
		}
		return "ai service error: " + err.Error()
	}
}
