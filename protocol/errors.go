package protocol

import (
	"errors"
	"fmt"
)

// Error types for the Homeworks protocol.
// They let the connection supervisor decide whether an attempt failed for a
// reason that a reconnect can fix, and let diagnostics tell malformed input
// apart from transport problems.

// ErrConnectionLost is matched by every *ConnectionLostError through errors.Is.
var ErrConnectionLost = errors.New("homeworks: connection lost")

// ConnectionLostError reports an unexpected close or I/O failure of the transport.
// It resolves the connection-lost result of a session and, when it happens
// before the session became ready, the readiness result as well.
//
// Connection handling: the attempt is over, RECONNECT
type ConnectionLostError struct {
	Cause error // Underlying transport error, nil on a clean EOF
}

func (e *ConnectionLostError) Error() string {
	if e.Cause != nil {
		return "homeworks: connection lost: " + e.Cause.Error()
	}
	return "homeworks: connection lost"
}

// Unwrap returns the underlying transport error.
func (e *ConnectionLostError) Unwrap() error {
	return e.Cause
}

// Is makes errors.Is(err, ErrConnectionLost) match any ConnectionLostError.
func (e *ConnectionLostError) Is(target error) bool {
	return target == ErrConnectionLost
}

// ShouldRetry returns true - a new connection attempt may succeed
func (e *ConnectionLostError) ShouldRetry() bool {
	return true
}

// AuthError reports a failed login exchange.
// The attempt is failed and the transport closed. Retrying with the same
// credentials only helps if the controller configuration changes.
type AuthError struct {
	Message string
}

func (e *AuthError) Error() string {
	return "homeworks: authentication failed: " + e.Message
}

// ShouldRetry returns false - the same credentials will be rejected again
func (e *AuthError) ShouldRetry() bool {
	return false
}

var (
	// ErrMissingCredentials is the readiness result when the controller asks
	// for a login and the session has no credentials.
	ErrMissingCredentials error = &AuthError{Message: "login requested but no credentials configured"}

	// ErrInvalidCredentials is the readiness result when the controller
	// answers "login incorrect".
	ErrInvalidCredentials error = &AuthError{Message: "credentials rejected by controller"}
)

// LineReason classifies a malformed status line.
type LineReason int

const (
	ReasonUnknownTag LineReason = iota + 1
	ReasonArity
	ReasonField
)

func (r LineReason) String() string {
	switch r {
	case ReasonUnknownTag:
		return "unknown tag"
	case ReasonArity:
		return "wrong field count"
	case ReasonField:
		return "invalid field"
	default:
		return "unknown"
	}
}

// LineError reports a status line that could not be turned into an Event.
// It is never fatal: the line is dropped and the stream continues.
//
// Common causes:
//   - Tag missing from the action table (controller feature we do not decode)
//   - Field count different from the action arity
//   - Non-numeric button or level, LED state with non-digits
type LineError struct {
	Line   string
	Reason LineReason
	Field  int   // 1-based field position for ReasonField, 0 otherwise
	Err    error // Underlying parse error, if any
}

func (e *LineError) Error() string {
	msg := "malformed line (" + e.Reason.String() + "): " + fmt.Sprintf("%q", e.Line)
	if e.Field > 0 {
		msg += fmt.Sprintf(" field %d", e.Field)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying field parse error.
func (e *LineError) Unwrap() error {
	return e.Err
}

// DecodeError reports a received chunk that is not ASCII text.
// The chunk is dropped and the receive buffer is left as it was.
type DecodeError struct {
	Offset int // Index of the first offending byte
	Byte   byte
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("undecodable byte 0x%02x at offset %d", e.Byte, e.Offset)
}

// retryable is implemented by errors that know whether a reconnect helps.
type retryable interface {
	error
	ShouldRetry() bool
}

// ShouldRetry reports whether a new connection attempt may succeed after err.
//
// Returns true for:
//   - ConnectionLostError
//   - unknown errors (dial failures, timeouts)
//
// Returns false for:
//   - AuthError
//   - nil
func ShouldRetry(err error) bool {
	if err == nil {
		return false
	}

	var r retryable
	if errors.As(err, &r) {
		return r.ShouldRetry()
	}

	return true
}

// IsAuthError reports whether err is a login failure.
func IsAuthError(err error) bool {
	var ae *AuthError
	return errors.As(err, &ae)
}
