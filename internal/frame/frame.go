// Package frame implements the D-Bus message framing state machine: reading
// the fixed 12-byte header, the variable-length header fields array, and
// the body off a byte stream, and writing a fully encoded message back to
// one.
//
// This is the D-Bus analog of the record-marking framing an ONC RPC
// connection performs over a stream transport: both split an unbounded
// byte stream into discrete, length-bounded messages before handing them to
// a codec. Where RPC record-marking uses one fragment-length prefix, D-Bus
// splits framing into three stages (fixed header, header fields array,
// body) because body length and header-fields length are carried
// separately on the wire.
package frame

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/marmos91/dittofs/internal/wire"
	"github.com/marmos91/dittofs/pkg/bufpool"
	"github.com/marmos91/dittofs/pkg/dbus/types"
)

// fixedHeaderCoreSize is the size, in bytes, of the D-Bus fixed header
// proper: endianness, type, flags, version, body length, serial. The
// header fields array (with its own 4-byte length prefix) begins
// immediately after.
const fixedHeaderCoreSize = 12

// ReadMessage reads one complete message from r, enforcing the 64MiB array
// and 128MiB message bounds at the earliest possible point so a malicious
// or corrupt peer cannot force an unbounded allocation.
func ReadMessage(r io.Reader) (*types.Message, error) {
	fixed := make([]byte, fixedHeaderCoreSize)
	if _, err := io.ReadFull(r, fixed); err != nil {
		return nil, fmt.Errorf("dbus: read fixed header: %w", err)
	}

	order, err := byteOrderFromMark(fixed[0])
	if err != nil {
		return nil, err
	}

	h := types.Header{
		Endian:  fixed[0],
		Type:    types.MessageType(fixed[1]),
		Flags:   types.HeaderFlags(fixed[2]),
		Version: fixed[3],
	}
	h.BodyLength = order.Uint32(fixed[4:8])
	h.Serial = order.Uint32(fixed[8:12])
	if h.Serial == 0 {
		return nil, fmt.Errorf("dbus: message has serial 0, which is reserved invalid")
	}

	fieldsLenBuf := make([]byte, 4)
	if _, err := io.ReadFull(r, fieldsLenBuf); err != nil {
		return nil, fmt.Errorf("dbus: read header fields length: %w", err)
	}
	headerFieldsLen := order.Uint32(fieldsLenBuf)

	if uint64(h.BodyLength)+uint64(headerFieldsLen)+fixedHeaderCoreSize+4 > types.MaxMessageLength {
		return nil, fmt.Errorf("dbus: message of at least %d bytes exceeds %d byte limit",
			uint64(h.BodyLength)+uint64(headerFieldsLen)+fixedHeaderCoreSize+4, types.MaxMessageLength)
	}
	if headerFieldsLen > types.MaxArrayLength {
		return nil, fmt.Errorf("dbus: header fields array of %d bytes exceeds %d byte limit", headerFieldsLen, types.MaxArrayLength)
	}
	if h.BodyLength > types.MaxArrayLength {
		return nil, fmt.Errorf("dbus: message body of %d bytes exceeds %d byte limit", h.BodyLength, types.MaxArrayLength)
	}

	// DecodeHeaderFields expects to read the array's length prefix itself,
	// so hand it a reader that starts with the length we already consumed
	// followed by the array body, positioned at the file offset where that
	// length field actually began.
	fieldsAndLen := bufpool.GetUint32(headerFieldsLen + 4)
	defer bufpool.Put(fieldsAndLen)
	copy(fieldsAndLen[:4], fieldsLenBuf)
	if headerFieldsLen > 0 {
		if _, err := io.ReadFull(r, fieldsAndLen[4:]); err != nil {
			return nil, fmt.Errorf("dbus: read header fields: %w", err)
		}
	}

	fieldsDec := wire.NewDecoder(newByteReader(fieldsAndLen), order, fixedHeaderCoreSize)
	if err := wire.DecodeHeaderFields(fieldsDec, &h); err != nil {
		return nil, fmt.Errorf("dbus: decode header fields: %w", err)
	}

	if err := h.Validate(); err != nil {
		return nil, err
	}

	body := bufpool.GetUint32(h.BodyLength)
	defer bufpool.Put(body)
	if h.BodyLength > 0 {
		if _, err := io.ReadFull(r, body); err != nil {
			return nil, fmt.Errorf("dbus: read body: %w", err)
		}
	}

	bodyOrigin := fixedHeaderCoreSize + 4 + int(headerFieldsLen)
	for bodyOrigin%8 != 0 {
		bodyOrigin++
	}
	bodyDec := wire.NewDecoder(newByteReader(body), order, bodyOrigin)
	values, err := wire.DecodeBody(bodyDec, h.Signature)
	if err != nil {
		return nil, fmt.Errorf("dbus: decode body: %w", err)
	}

	return &types.Message{Header: h, Body: values}, nil
}

// WriteMessage encodes msg and writes it to w in one call.
func WriteMessage(w io.Writer, order binary.ByteOrder, msg *types.Message) error {
	data, err := wire.EncodeMessage(order, msg)
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

func byteOrderFromMark(mark byte) (binary.ByteOrder, error) {
	switch mark {
	case 'l':
		return wire.LittleEndian, nil
	case 'B':
		return wire.BigEndian, nil
	default:
		return nil, fmt.Errorf("dbus: invalid byte order mark %q", string(mark))
	}
}

// newByteReader wraps a byte slice as a minimal io.Reader, avoiding a
// dependency on bytes.Reader's wider seek/len surface for what is only
// ever read once, start to end.
func newByteReader(b []byte) io.Reader { return &sliceReader{b: b} }

type sliceReader struct {
	b   []byte
	pos int
}

func (s *sliceReader) Read(p []byte) (int, error) {
	if s.pos >= len(s.b) {
		return 0, io.EOF
	}
	n := copy(p, s.b[s.pos:])
	s.pos += n
	return n, nil
}
