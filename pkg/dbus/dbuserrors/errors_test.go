package dbuserrors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewErrors_CodeAndWireName(t *testing.T) {
	cases := []struct {
		name string
		err  *Error
		code Code
		wire string
	}{
		{"disconnected", NewDisconnectedError("socket closed"), CodeDisconnected, ""},
		{"no reply", NewNoReplyError(42), CodeNoReply, "org.freedesktop.DBus.Error.NoReply"},
		{"timeout", NewTimeoutError("deadline exceeded"), CodeTimeout, "org.freedesktop.DBus.Error.Timeout"},
		{"name has no owner", NewNameHasNoOwnerError("org.example.Thing"), CodeNameHasNoOwner, "org.freedesktop.DBus.Error.NameHasNoOwner"},
		{"service unknown", NewServiceUnknownError("org.example.Thing"), CodeServiceUnknown, "org.freedesktop.DBus.Error.ServiceUnknown"},
		{"access denied", NewAccessDeniedError("nope"), CodeAccessDenied, "org.freedesktop.DBus.Error.AccessDenied"},
		{"limits exceeded", NewLimitsExceededError("too many"), CodeLimitsExceeded, "org.freedesktop.DBus.Error.LimitsExceeded"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.code, tc.err.Code)
			assert.Equal(t, tc.wire, tc.err.Wire)
			assert.NotEmpty(t, tc.err.Error())
		})
	}
}

func TestError_Unwrap(t *testing.T) {
	inner := fmt.Errorf("boom")
	e := &Error{Code: CodeUnknown, Err: inner}
	assert.Equal(t, inner, e.Unwrap())
}

func TestFromWireError_KnownAndUnknown(t *testing.T) {
	e := FromWireError("org.freedesktop.DBus.Error.ServiceUnknown", "no such service")
	assert.Equal(t, CodeServiceUnknown, e.Code)
	assert.Equal(t, "no such service", e.Message)

	unknown := FromWireError("com.example.SomeCustomError", "custom failure")
	assert.Equal(t, CodeUnknown, unknown.Code)
}

func TestIsPredicates(t *testing.T) {
	assert.True(t, IsDisconnected(NewDisconnectedError("x")))
	assert.False(t, IsDisconnected(NewTimeoutError("x")))

	assert.True(t, IsNoReply(NewNoReplyError(1)))
	assert.True(t, IsTimeout(NewTimeoutError("x")))

	wrapped := fmt.Errorf("context: %w", NewDisconnectedError("x"))
	assert.True(t, IsDisconnected(wrapped))

	assert.False(t, IsDisconnected(fmt.Errorf("plain error")))
	assert.False(t, IsDisconnected(nil))
}

func TestCode_String(t *testing.T) {
	assert.Equal(t, "Disconnected", CodeDisconnected.String())
	assert.Equal(t, "Unknown", Code(999).String())
}
