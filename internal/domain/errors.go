package domain

import (
	"errors"
	"fmt"
	"strings"
)

var ErrNotFound = errors.New("record not found")
var ErrNoSession = errors.New("no active session")
var ErrNoPermission = errors.New("insufficient permissions")
var ErrValidation = errors.New("validation failed")
var ErrVotingClosed = errors.New("voting is disabled for this session")
var ErrBusy = errors.New("another request is still in flight")

// GatewayError describes a failed call to the voting backend. Depending on the failure, the backend delivers
// either a plain text body (Raw) or a structured exception payload (Message, Reason). Transport failures
// (unreachable backend, undecodable responses) carry the low-level error in Details.
type GatewayError struct {
	Code    int    // HTTP status code, or a client side code >= 600 for transport failures
	Raw     string // raw text body, if the backend did not send a JSON object
	Reason  string // "error" field of the structured payload, e.g. "Runtime Error"
	Message string // "message" field of the structured payload
	Details string // low-level error description for transport failures
}

func (e *GatewayError) Error() string {
	switch {
	case e.Raw != "":
		return fmt.Sprintf("backend error %d: %s", e.Code, e.Raw)
	case e.Message != "":
		return fmt.Sprintf("backend error %d: %s - %s", e.Code, e.Reason, e.Message)
	default:
		return fmt.Sprintf("backend error %d: %s", e.Code, e.Details)
	}
}

// IsStructured reports whether the backend sent a structured error payload instead of plain text.
func (e *GatewayError) IsStructured() bool {
	return e.Raw == ""
}

// Text returns the message that should be presented to a user. A raw text body wins, then the message of a
// structured payload. If neither is available, the fallback is returned.
func (e *GatewayError) Text(fallback string) string {
	if e.Raw != "" {
		return e.Raw
	}
	if e.Message != "" {
		return e.Message
	}
	return fallback
}

// ValidationError is returned for client side form validation failures. No request is sent in that case.
type ValidationError struct {
	Fields []string
	Msg    string
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return e.Msg
	}
	return fmt.Sprintf("%s (%s)", e.Msg, strings.Join(e.Fields, ", "))
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// ErrorText converts any error into a user facing message. Gateway errors are unwrapped with the
// "string, else message, else fallback" rule, validation errors show their message, everything else
// falls back.
func ErrorText(err error, fallback string) string {
	if err == nil {
		return ""
	}

	var gwErr *GatewayError
	if errors.As(err, &gwErr) {
		return gwErr.Text(fallback)
	}

	var valErr *ValidationError
	if errors.As(err, &valErr) {
		return valErr.Msg
	}

	return fallback
}
