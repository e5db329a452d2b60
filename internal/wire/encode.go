// Package wire implements the D-Bus marshaling codec: encoding and decoding
// of values to and from the D-Bus wire format described by a
// pkg/dbus/types.Signature.
//
// The codec is the D-Bus analog of an XDR encoder: both are length-prefixed,
// alignment-padded binary formats. Unlike XDR's uniform 4-byte alignment,
// D-Bus aligns each value to its own type's boundary (1, 2, 4 or 8 bytes),
// so the encoder and decoder both track a running byte offset rather than
// assuming a fixed stride.
package wire

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/marmos91/dittofs/pkg/dbus/types"
)

// Encoder marshals Go values into the D-Bus wire format for a given byte
// order, tracking alignment relative to a message-wide origin offset.
type Encoder struct {
	order  binary.ByteOrder
	buf    *bytes.Buffer
	origin int // offset of buf's first byte within the enclosing message
}

// NewEncoder returns an Encoder that appends to buf. origin is the offset,
// within the complete message, of buf's current end; it lets the body
// encoder align correctly even though the header was written to a
// different buffer.
func NewEncoder(buf *bytes.Buffer, order binary.ByteOrder, origin int) *Encoder {
	return &Encoder{order: order, buf: buf, origin: origin}
}

func (e *Encoder) offset() int { return e.origin + e.buf.Len() }

// Pad writes zero bytes until the next write would land on an align-byte
// boundary relative to the message origin.
func (e *Encoder) Pad(align int) {
	for e.offset()%align != 0 {
		e.buf.WriteByte(0)
	}
}

func (e *Encoder) writeUint16(v uint16) {
	e.Pad(2)
	var b [2]byte
	e.order.PutUint16(b[:], v)
	e.buf.Write(b[:])
}

func (e *Encoder) writeUint32(v uint32) {
	e.Pad(4)
	var b [4]byte
	e.order.PutUint32(b[:], v)
	e.buf.Write(b[:])
}

func (e *Encoder) writeUint64(v uint64) {
	e.Pad(8)
	var b [8]byte
	e.order.PutUint64(b[:], v)
	e.buf.Write(b[:])
}

// WriteByte writes a single BYTE. BYTE has 1-byte alignment so no padding
// is ever needed.
func (e *Encoder) WriteByte(v byte) { e.buf.WriteByte(v) }

// WriteBool writes a BOOLEAN, encoded on the wire as a UINT32 that must be
// 0 or 1.
func (e *Encoder) WriteBool(v bool) {
	if v {
		e.writeUint32(1)
	} else {
		e.writeUint32(0)
	}
}

func (e *Encoder) WriteInt16(v int16)   { e.writeUint16(uint16(v)) }
func (e *Encoder) WriteUint16(v uint16) { e.writeUint16(v) }
func (e *Encoder) WriteInt32(v int32)   { e.writeUint32(uint32(v)) }
func (e *Encoder) WriteUint32(v uint32) { e.writeUint32(v) }
func (e *Encoder) WriteInt64(v int64)   { e.writeUint64(uint64(v)) }
func (e *Encoder) WriteUint64(v uint64) { e.writeUint64(v) }

// WriteDouble writes a DOUBLE (IEEE 754 double precision).
func (e *Encoder) WriteDouble(v float64) {
	e.writeUint64(bitsFromFloat(v))
}

// WriteString writes a STRING: a UINT32 byte length (not including the
// trailing NUL) followed by the UTF-8 bytes and a mandatory trailing NUL.
func (e *Encoder) WriteString(s string) error {
	if err := validateNoEmbeddedNUL(s); err != nil {
		return err
	}
	e.writeUint32(uint32(len(s)))
	e.buf.WriteString(s)
	e.buf.WriteByte(0)
	return nil
}

// WriteObjectPath writes an OBJECT_PATH: identical wire shape to STRING,
// but the value is validated against the object path grammar first.
func (e *Encoder) WriteObjectPath(p types.ObjectPath) error {
	if err := p.Validate(); err != nil {
		return err
	}
	return e.WriteString(string(p))
}

// WriteSignature writes a SIGNATURE: a single length byte (not UINT32 -
// signatures are capped at 255 bytes) followed by the ASCII type codes and
// a trailing NUL.
func (e *Encoder) WriteSignature(sig types.Signature) error {
	s := sig.String()
	if len(s) > types.MaxSignatureLength {
		return fmt.Errorf("dbus: signature %q exceeds %d bytes", s, types.MaxSignatureLength)
	}
	e.buf.WriteByte(byte(len(s)))
	e.buf.WriteString(s)
	e.buf.WriteByte(0)
	return nil
}

// WriteUnixFD writes a UNIX_FD: a UINT32 index into the message's
// out-of-band file descriptor array.
func (e *Encoder) WriteUnixFD(fd types.UnixFD) { e.writeUint32(uint32(fd)) }

// ArrayWriter begins encoding an ARRAY: it reserves space for the UINT32
// byte-length, aligns to the element type, and returns a closure that must
// be called after the element values have been written to patch in the
// actual length.
//
// D-Bus requires the array length to exclude any padding inserted to align
// the first element but include padding between subsequent elements; this
// is why the length must be measured and patched after the fact rather
// than computed up front.
func (e *Encoder) ArrayWriter(elem *types.Type) (finish func() error, err error) {
	e.Pad(4)
	lenOffset := e.buf.Len()
	e.writeUint32(0) // placeholder, patched in finish()
	// Arrays always align their first element even when empty.
	e.Pad(elem.Alignment())
	bodyStart := e.buf.Len()

	finish = func() error {
		bodyLen := e.buf.Len() - bodyStart
		if bodyLen > types.MaxArrayLength {
			return fmt.Errorf("dbus: array body of %d bytes exceeds %d byte limit", bodyLen, types.MaxArrayLength)
		}
		raw := e.buf.Bytes()
		e.order.PutUint32(raw[lenOffset:lenOffset+4], uint32(bodyLen))
		return nil
	}
	return finish, nil
}

// StructStart aligns to an 8-byte boundary, as required before every
// STRUCT and DICT_ENTRY, regardless of the alignment of their first
// member.
func (e *Encoder) StructStart() { e.Pad(8) }

func validateNoEmbeddedNUL(s string) error {
	for i := 0; i < len(s); i++ {
		if s[i] == 0 {
			return fmt.Errorf("dbus: string value contains an embedded NUL byte")
		}
	}
	return nil
}
