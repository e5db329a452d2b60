package wire

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/dittofs/pkg/dbus/types"
)

func roundtrip(t *testing.T, sig string, value any) any {
	t.Helper()
	parsed, err := types.ParseSignature(sig)
	require.NoError(t, err)
	require.True(t, parsed.Single())

	buf := &bytes.Buffer{}
	enc := NewEncoder(buf, LittleEndian, 0)
	require.NoError(t, EncodeValue(enc, parsed.Types()[0], value))

	dec := NewDecoder(bytes.NewReader(buf.Bytes()), LittleEndian, 0)
	dec.Strict = true
	got, err := DecodeValue(dec, parsed.Types()[0])
	require.NoError(t, err)
	return got
}

func TestRoundtrip_Scalars(t *testing.T) {
	assert.Equal(t, byte(42), roundtrip(t, "y", byte(42)))
	assert.Equal(t, true, roundtrip(t, "b", true))
	assert.Equal(t, int16(-7), roundtrip(t, "n", int16(-7)))
	assert.Equal(t, uint16(7), roundtrip(t, "q", uint16(7)))
	assert.Equal(t, int32(-100000), roundtrip(t, "i", int32(-100000)))
	assert.Equal(t, uint32(100000), roundtrip(t, "u", uint32(100000)))
	assert.Equal(t, int64(-1), roundtrip(t, "x", int64(-1)))
	assert.Equal(t, uint64(1), roundtrip(t, "t", uint64(1)))
	assert.InDelta(t, 3.14159, roundtrip(t, "d", 3.14159).(float64), 1e-9)
	assert.Equal(t, "hello, dbus", roundtrip(t, "s", "hello, dbus"))
}

func TestRoundtrip_ObjectPathAndSignature(t *testing.T) {
	assert.Equal(t, types.ObjectPath("/org/freedesktop/DBus"),
		roundtrip(t, "o", types.ObjectPath("/org/freedesktop/DBus")))

	sig := types.MustParseSignature("a{sv}")
	got := roundtrip(t, "g", sig)
	assert.Equal(t, sig.String(), got.(types.Signature).String())
}

func TestRoundtrip_Array(t *testing.T) {
	got := roundtrip(t, "as", []string{"alpha", "beta", "gamma"})
	assert.Equal(t, []any{"alpha", "beta", "gamma"}, got)
}

func TestRoundtrip_EmptyArray(t *testing.T) {
	got := roundtrip(t, "as", []string{})
	assert.Nil(t, got)
}

func TestRoundtrip_Struct(t *testing.T) {
	got := roundtrip(t, "(sii)", []any{"x", int32(1), int32(2)})
	assert.Equal(t, []any{"x", int32(1), int32(2)}, got)
}

func TestRoundtrip_Variant(t *testing.T) {
	vv, err := types.NewVariant(uint32(7))
	require.NoError(t, err)
	got := roundtrip(t, "v", vv)
	gotVariant := got.(types.Variant)
	assert.Equal(t, "u", gotVariant.Sig.String())
	assert.Equal(t, uint32(7), gotVariant.Value)
}

func TestRoundtrip_DictOfStringVariant(t *testing.T) {
	in := map[string]types.Variant{}
	v1, _ := types.NewVariant(uint32(1))
	in["one"] = v1
	got := roundtrip(t, "a{sv}", in)
	m := got.(map[string]any)
	require.Contains(t, m, "one")
	vv := m["one"].(types.Variant)
	assert.Equal(t, uint32(1), vv.Value)
}

func TestAlignment_StringThenByteThenUint64(t *testing.T) {
	// "sy t" style sequence: ensure padding lands the u64 on an 8-byte
	// boundary measured from the start of the buffer, as the D-Bus
	// specification requires regardless of what preceded it.
	buf := &bytes.Buffer{}
	enc := NewEncoder(buf, LittleEndian, 0)
	require.NoError(t, enc.WriteString("ab"))
	enc.WriteByte(1)
	enc.WriteUint64(0x0102030405060708)

	dec := NewDecoder(bytes.NewReader(buf.Bytes()), LittleEndian, 0)
	dec.Strict = true
	s, err := dec.ReadString()
	require.NoError(t, err)
	assert.Equal(t, "ab", s)
	b, err := dec.ReadByte()
	require.NoError(t, err)
	assert.Equal(t, byte(1), b)
	n, err := dec.ReadUint64()
	require.NoError(t, err)
	assert.Equal(t, uint64(0x0102030405060708), n)
}
