package wire

import (
	"encoding/binary"
	"fmt"
	"io"
	"unicode/utf8"

	"github.com/marmos91/dittofs/pkg/dbus/types"
)

// Decoder unmarshals D-Bus wire data from an io.Reader, tracking alignment
// the same way Encoder does.
type Decoder struct {
	r      io.Reader
	order  binary.ByteOrder
	origin int
	pos    int
	// Strict, when true, verifies that alignment padding bytes are zero,
	// matching the D-Bus specification's validation recommendation.
	Strict bool
}

// NewDecoder returns a Decoder reading from r. origin is the offset, within
// the complete message, of the first byte r will yield.
func NewDecoder(r io.Reader, order binary.ByteOrder, origin int) *Decoder {
	return &Decoder{r: r, order: order, origin: origin}
}

func (d *Decoder) offset() int { return d.origin + d.pos }

func (d *Decoder) readN(n int) ([]byte, error) {
	buf := make([]byte, n)
	if _, err := io.ReadFull(d.r, buf); err != nil {
		return nil, fmt.Errorf("dbus: read %d bytes at offset %d: %w", n, d.offset(), err)
	}
	d.pos += n
	return buf, nil
}

// Pad consumes alignment padding up to the next align-byte boundary,
// optionally verifying the padding bytes are all zero.
func (d *Decoder) Pad(align int) error {
	for d.offset()%align != 0 {
		b, err := d.readN(1)
		if err != nil {
			return err
		}
		if d.Strict && b[0] != 0 {
			return fmt.Errorf("dbus: non-zero padding byte at offset %d", d.offset()-1)
		}
	}
	return nil
}

func (d *Decoder) readUint16() (uint16, error) {
	if err := d.Pad(2); err != nil {
		return 0, err
	}
	b, err := d.readN(2)
	if err != nil {
		return 0, err
	}
	return d.order.Uint16(b), nil
}

func (d *Decoder) readUint32() (uint32, error) {
	if err := d.Pad(4); err != nil {
		return 0, err
	}
	b, err := d.readN(4)
	if err != nil {
		return 0, err
	}
	return d.order.Uint32(b), nil
}

func (d *Decoder) readUint64() (uint64, error) {
	if err := d.Pad(8); err != nil {
		return 0, err
	}
	b, err := d.readN(8)
	if err != nil {
		return 0, err
	}
	return d.order.Uint64(b), nil
}

func (d *Decoder) ReadByte() (byte, error) {
	b, err := d.readN(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (d *Decoder) ReadBool() (bool, error) {
	v, err := d.readUint32()
	if err != nil {
		return false, err
	}
	switch v {
	case 0:
		return false, nil
	case 1:
		return true, nil
	default:
		return false, fmt.Errorf("dbus: invalid BOOLEAN wire value %d", v)
	}
}

func (d *Decoder) ReadInt16() (int16, error) {
	v, err := d.readUint16()
	return int16(v), err
}
func (d *Decoder) ReadUint16() (uint16, error) { return d.readUint16() }

func (d *Decoder) ReadInt32() (int32, error) {
	v, err := d.readUint32()
	return int32(v), err
}
func (d *Decoder) ReadUint32() (uint32, error) { return d.readUint32() }

func (d *Decoder) ReadInt64() (int64, error) {
	v, err := d.readUint64()
	return int64(v), err
}
func (d *Decoder) ReadUint64() (uint64, error) { return d.readUint64() }

func (d *Decoder) ReadDouble() (float64, error) {
	v, err := d.readUint64()
	if err != nil {
		return 0, err
	}
	return floatFromBits(v), nil
}

// ReadString reads a STRING: UINT32 length, that many UTF-8 bytes, and a
// mandatory trailing NUL which is consumed but not returned.
func (d *Decoder) ReadString() (string, error) {
	n, err := d.readUint32()
	if err != nil {
		return "", err
	}
	if n > types.MaxArrayLength {
		return "", fmt.Errorf("dbus: string length %d exceeds sane bound", n)
	}
	data, err := d.readN(int(n))
	if err != nil {
		return "", err
	}
	nul, err := d.readN(1)
	if err != nil {
		return "", err
	}
	if nul[0] != 0 {
		return "", fmt.Errorf("dbus: string value missing trailing NUL")
	}
	if !utf8.Valid(data) {
		return "", fmt.Errorf("dbus: string value is not valid UTF-8")
	}
	return string(data), nil
}

// ReadObjectPath reads an OBJECT_PATH and validates it against the object
// path grammar.
func (d *Decoder) ReadObjectPath() (types.ObjectPath, error) {
	s, err := d.ReadString()
	if err != nil {
		return "", err
	}
	p := types.ObjectPath(s)
	if err := p.Validate(); err != nil {
		return "", err
	}
	return p, nil
}

// ReadSignature reads a SIGNATURE: a single length byte, that many ASCII
// type codes, and a trailing NUL, then parses and validates the result.
func (d *Decoder) ReadSignature() (types.Signature, error) {
	lenByte, err := d.readN(1)
	if err != nil {
		return types.Signature{}, err
	}
	n := int(lenByte[0])
	data, err := d.readN(n)
	if err != nil {
		return types.Signature{}, err
	}
	nul, err := d.readN(1)
	if err != nil {
		return types.Signature{}, err
	}
	if nul[0] != 0 {
		return types.Signature{}, fmt.Errorf("dbus: signature value missing trailing NUL")
	}
	return types.ParseSignature(string(data))
}

func (d *Decoder) ReadUnixFD() (types.UnixFD, error) {
	v, err := d.readUint32()
	return types.UnixFD(v), err
}

// ArrayBodyLength reads and validates the UINT32 byte-length prefix of an
// ARRAY, then aligns to elem's boundary exactly as the encoder did before
// writing the first element.
func (d *Decoder) ArrayBodyLength(elem *types.Type) (bodyLen int, err error) {
	n, err := d.readUint32()
	if err != nil {
		return 0, err
	}
	if n > types.MaxArrayLength {
		return 0, fmt.Errorf("dbus: array body length %d exceeds %d byte limit", n, types.MaxArrayLength)
	}
	if err := d.Pad(elem.Alignment()); err != nil {
		return 0, err
	}
	return int(n), nil
}

// StructStart aligns to the 8-byte boundary required before every STRUCT
// and DICT_ENTRY.
func (d *Decoder) StructStart() error { return d.Pad(8) }

// Offset exposes the decoder's current position relative to its origin,
// used by array decoding loops to know when bodyLen bytes have been
// consumed.
func (d *Decoder) Offset() int { return d.pos }
