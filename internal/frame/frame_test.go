package frame

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/dittofs/internal/wire"
	"github.com/marmos91/dittofs/pkg/dbus/types"
)

func TestRoundtrip_MethodCall(t *testing.T) {
	msg := &types.Message{
		Header: types.Header{
			Type:        types.TypeMethodCall,
			Path:        "/org/freedesktop/DBus",
			Interface:   "org.freedesktop.DBus",
			Member:      "Hello",
			Destination: "org.freedesktop.DBus",
			Serial:      1,
		},
	}

	buf := &bytes.Buffer{}
	require.NoError(t, WriteMessage(buf, wire.LittleEndian, msg))

	got, err := ReadMessage(buf)
	require.NoError(t, err)

	assert.Equal(t, types.TypeMethodCall, got.Header.Type)
	assert.Equal(t, types.ObjectPath("/org/freedesktop/DBus"), got.Header.Path)
	assert.Equal(t, "org.freedesktop.DBus", got.Header.Interface)
	assert.Equal(t, "Hello", got.Header.Member)
	assert.Equal(t, "org.freedesktop.DBus", got.Header.Destination)
	assert.Equal(t, uint32(1), got.Header.Serial)
}

func TestRoundtrip_MethodCallWithBody(t *testing.T) {
	msg := &types.Message{
		Header: types.Header{
			Type:      types.TypeMethodCall,
			Path:      "/org/example/Thing",
			Interface: "org.example.Thing",
			Member:    "SetName",
			Serial:    2,
		},
		Body: []any{"new-name", uint32(7)},
	}

	buf := &bytes.Buffer{}
	require.NoError(t, WriteMessage(buf, wire.LittleEndian, msg))

	got, err := ReadMessage(buf)
	require.NoError(t, err)
	require.Equal(t, []any{"new-name", uint32(7)}, got.Body)
}

func TestRoundtrip_MethodReturn(t *testing.T) {
	msg := &types.Message{
		Header: types.Header{
			Type:   types.TypeMethodReturn,
			Serial: 5,
		},
		Body: []any{":1.42"},
	}
	msg.Header.SetReplySerial(2)

	buf := &bytes.Buffer{}
	require.NoError(t, WriteMessage(buf, wire.LittleEndian, msg))

	got, err := ReadMessage(buf)
	require.NoError(t, err)
	assert.True(t, got.Header.HasReplySerial())
	assert.Equal(t, uint32(2), got.Header.ReplySerial)
	assert.Equal(t, []any{":1.42"}, got.Body)
}

func TestRoundtrip_ErrorMessage(t *testing.T) {
	msg := &types.Message{
		Header: types.Header{
			Type:      types.TypeError,
			ErrorName: "org.freedesktop.DBus.Error.ServiceUnknown",
			Serial:    9,
		},
		Body: []any{"The name org.example.Gone was not provided"},
	}
	msg.Header.SetReplySerial(3)

	buf := &bytes.Buffer{}
	require.NoError(t, WriteMessage(buf, wire.LittleEndian, msg))

	got, err := ReadMessage(buf)
	require.NoError(t, err)
	assert.Equal(t, types.TypeError, got.Header.Type)
	assert.Equal(t, "org.freedesktop.DBus.Error.ServiceUnknown", got.Header.ErrorName)
	assert.Equal(t, uint32(3), got.Header.ReplySerial)
}

func TestRoundtrip_Signal(t *testing.T) {
	msg := &types.Message{
		Header: types.Header{
			Type:      types.TypeSignal,
			Path:      "/org/example/Thing",
			Interface: "org.example.Thing",
			Member:    "NameChanged",
			Serial:    11,
		},
		Body: []any{"renamed"},
	}

	buf := &bytes.Buffer{}
	require.NoError(t, WriteMessage(buf, wire.LittleEndian, msg))

	got, err := ReadMessage(buf)
	require.NoError(t, err)
	assert.Equal(t, types.TypeSignal, got.Header.Type)
	assert.Equal(t, "NameChanged", got.Header.Member)
}

func TestReadMessage_RejectsOversizedBody(t *testing.T) {
	// Craft a fixed header claiming a body length beyond MaxArrayLength;
	// ReadMessage must reject it before attempting to allocate or read
	// that much data.
	buf := &bytes.Buffer{}
	buf.WriteByte('l')
	buf.WriteByte(byte(types.TypeMethodCall))
	buf.WriteByte(0)
	buf.WriteByte(1)

	bodyLen := uint32(types.MaxArrayLength) + 1
	le := wire.LittleEndian
	lenBuf := make([]byte, 4)
	le.PutUint32(lenBuf, bodyLen)
	buf.Write(lenBuf)

	serialBuf := make([]byte, 4)
	le.PutUint32(serialBuf, 1)
	buf.Write(serialBuf)

	// header fields array length: 0
	buf.Write([]byte{0, 0, 0, 0})

	_, err := ReadMessage(buf)
	assert.Error(t, err)
}

func TestByteOrderFromMark_Invalid(t *testing.T) {
	_, err := byteOrderFromMark('x')
	assert.Error(t, err)
}
