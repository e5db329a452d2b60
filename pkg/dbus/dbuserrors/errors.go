// Package dbuserrors implements the error taxonomy for the D-Bus client:
// a small fixed set of error codes describing why a connection, call, or
// handshake failed, wrapped in a single comparable error type so callers
// can branch on the Code field without string matching D-Bus error names.
package dbuserrors

import "fmt"

// Code classifies why an operation against a Conn failed.
type Code int

const (
	CodeUnknown Code = iota
	// CodeDisconnected means the connection is no longer usable; no
	// further calls will be attempted on it.
	CodeDisconnected
	// CodeInconsistentMessage means a peer sent a message that violated
	// the wire format or the required/forbidden header field rules.
	CodeInconsistentMessage
	// CodeAuthFailed means every configured SASL mechanism was rejected.
	CodeAuthFailed
	// CodeNoReply means a method call's pending entry expired without a
	// METHOD_RETURN or ERROR ever arriving.
	CodeNoReply
	// CodeTimeout means an operation exceeded its deadline before
	// completing, distinct from CodeNoReply in that the call may still be
	// in flight server-side.
	CodeTimeout
	// CodeNameHasNoOwner means a call targeted a well-known bus name with
	// no current owner.
	CodeNameHasNoOwner
	// CodeServiceUnknown means the destination service could not be
	// auto-started or does not exist.
	CodeServiceUnknown
	// CodeAccessDenied means the bus or peer refused the operation on
	// policy grounds.
	CodeAccessDenied
	// CodeLimitsExceeded means a local resource bound (pending call
	// table, outstanding health probes, message size) was hit.
	CodeLimitsExceeded
)

func (c Code) String() string {
	switch c {
	case CodeDisconnected:
		return "Disconnected"
	case CodeInconsistentMessage:
		return "InconsistentMessage"
	case CodeAuthFailed:
		return "AuthFailed"
	case CodeNoReply:
		return "NoReply"
	case CodeTimeout:
		return "Timeout"
	case CodeNameHasNoOwner:
		return "NameHasNoOwner"
	case CodeServiceUnknown:
		return "ServiceUnknown"
	case CodeAccessDenied:
		return "AccessDenied"
	case CodeLimitsExceeded:
		return "LimitsExceeded"
	default:
		return "Unknown"
	}
}

// Error is the single error type every failure originating inside this
// module's connection runtime is wrapped in.
type Error struct {
	Code    Code
	Message string
	// Wire is the D-Bus error name (e.g. "org.freedesktop.DBus.Error.NoReply")
	// when this error was constructed from an inbound ERROR message; empty
	// for purely local failures.
	Wire string
	Err  error
}

func (e *Error) Error() string {
	if e.Wire != "" {
		return fmt.Sprintf("dbus: %s (%s): %s", e.Code, e.Wire, e.Message)
	}
	return fmt.Sprintf("dbus: %s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

func newError(code Code, wire string, format string, args ...any) *Error {
	return &Error{Code: code, Wire: wire, Message: fmt.Sprintf(format, args...)}
}

func NewDisconnectedError(format string, args ...any) *Error {
	return newError(CodeDisconnected, "", format, args...)
}

func NewInconsistentMessageError(format string, args ...any) *Error {
	return newError(CodeInconsistentMessage, "", format, args...)
}

func NewAuthFailedError(format string, args ...any) *Error {
	return newError(CodeAuthFailed, "", format, args...)
}

func NewNoReplyError(serial uint32) *Error {
	return newError(CodeNoReply, "org.freedesktop.DBus.Error.NoReply", "no reply received for serial %d", serial)
}

func NewTimeoutError(format string, args ...any) *Error {
	return newError(CodeTimeout, "org.freedesktop.DBus.Error.Timeout", format, args...)
}

func NewNameHasNoOwnerError(name string) *Error {
	return newError(CodeNameHasNoOwner, "org.freedesktop.DBus.Error.NameHasNoOwner", "name %q has no owner", name)
}

func NewServiceUnknownError(name string) *Error {
	return newError(CodeServiceUnknown, "org.freedesktop.DBus.Error.ServiceUnknown", "service %q is unknown", name)
}

func NewAccessDeniedError(format string, args ...any) *Error {
	return newError(CodeAccessDenied, "org.freedesktop.DBus.Error.AccessDenied", format, args...)
}

func NewLimitsExceededError(format string, args ...any) *Error {
	return newError(CodeLimitsExceeded, "org.freedesktop.DBus.Error.LimitsExceeded", format, args...)
}

// FromWireError builds an Error from an inbound ERROR message's
// error-name header field and, if present, a leading string argument used
// as the human-readable message.
func FromWireError(name string, message string) *Error {
	code := CodeUnknown
	switch name {
	case "org.freedesktop.DBus.Error.NoReply":
		code = CodeNoReply
	case "org.freedesktop.DBus.Error.Timeout":
		code = CodeTimeout
	case "org.freedesktop.DBus.Error.NameHasNoOwner":
		code = CodeNameHasNoOwner
	case "org.freedesktop.DBus.Error.ServiceUnknown":
		code = CodeServiceUnknown
	case "org.freedesktop.DBus.Error.AccessDenied":
		code = CodeAccessDenied
	case "org.freedesktop.DBus.Error.LimitsExceeded":
		code = CodeLimitsExceeded
	}
	return &Error{Code: code, Wire: name, Message: message}
}

// IsDisconnected reports whether err is (or wraps) a disconnected Error.
func IsDisconnected(err error) bool { return hasCode(err, CodeDisconnected) }

// IsNoReply reports whether err is (or wraps) a no-reply Error.
func IsNoReply(err error) bool { return hasCode(err, CodeNoReply) }

// IsTimeout reports whether err is (or wraps) a timeout Error.
func IsTimeout(err error) bool { return hasCode(err, CodeTimeout) }

func hasCode(err error, code Code) bool {
	var e *Error
	for err != nil {
		if de, ok := err.(*Error); ok {
			e = de
			break
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			break
		}
		err = u.Unwrap()
	}
	return e != nil && e.Code == code
}
