package wire

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/marmos91/dittofs/pkg/dbus/types"
)

// headerFieldsSignature is the fixed wire signature of the header fields
// array, "a(yv)": an array of structs of (BYTE, VARIANT).
var headerFieldsSignature = types.MustParseSignature("a(yv)")

// EncodeMessage marshals msg to its complete wire form: the 12-byte fixed
// header, the header fields array padded to an 8-byte boundary, and the
// body. msg.Header.BodyLength and the body's Signature field are computed
// here and need not be pre-filled by the caller; msg.Header.Serial is
// written as given.
func EncodeMessage(order binary.ByteOrder, msg *types.Message) ([]byte, error) {
	bodyBuf := &bytes.Buffer{}
	bodySig, err := bodySignature(msg.Body)
	if err != nil {
		return nil, fmt.Errorf("dbus: body signature: %w", err)
	}
	bodyEnc := NewEncoder(bodyBuf, order, 0)
	for i, t := range bodySig.Types() {
		if err := EncodeValue(bodyEnc, t, msg.Body[i]); err != nil {
			return nil, fmt.Errorf("dbus: body value %d: %w", i, err)
		}
	}
	if bodyBuf.Len() > types.MaxArrayLength {
		return nil, fmt.Errorf("dbus: message body of %d bytes exceeds %d byte limit", bodyBuf.Len(), types.MaxArrayLength)
	}

	h := msg.Header
	h.Signature = bodySig
	h.BodyLength = uint32(bodyBuf.Len())
	if h.Version == 0 {
		h.Version = types.ProtocolVersion
	}

	headBuf := &bytes.Buffer{}
	var endian byte = 'l'
	if _, ok := order.(bigEndian); ok {
		endian = 'B'
	}
	headBuf.WriteByte(endian)
	headBuf.WriteByte(byte(h.Type))
	headBuf.WriteByte(byte(h.Flags))
	headBuf.WriteByte(h.Version)

	fixedEnc := NewEncoder(headBuf, order, 0)
	fixedEnc.WriteUint32(h.BodyLength)
	fixedEnc.WriteUint32(h.Serial)

	if err := encodeHeaderFields(headBuf, order, &h); err != nil {
		return nil, fmt.Errorf("dbus: header fields: %w", err)
	}

	// Header fields array is followed by padding to an 8-byte boundary
	// before the body begins; this padding is NOT included in BodyLength.
	for headBuf.Len()%8 != 0 {
		headBuf.WriteByte(0)
	}

	total := headBuf.Len() + bodyBuf.Len()
	if total > types.MaxMessageLength {
		return nil, fmt.Errorf("dbus: message of %d bytes exceeds %d byte limit", total, types.MaxMessageLength)
	}

	out := make([]byte, 0, total)
	out = append(out, headBuf.Bytes()...)
	out = append(out, bodyBuf.Bytes()...)
	return out, nil
}

func bodySignature(body []any) (types.Signature, error) {
	if len(body) == 0 {
		return types.Signature{}, nil
	}
	var sb []byte
	for i, v := range body {
		sig, err := types.InferSignature(v)
		if err != nil {
			return types.Signature{}, fmt.Errorf("body value %d: %w", i, err)
		}
		sb = append(sb, sig.String()...)
	}
	return types.ParseSignature(string(sb))
}

func encodeHeaderFields(buf *bytes.Buffer, order binary.ByteOrder, h *types.Header) error {
	type field struct {
		code FieldCode
		v    types.Variant
	}
	var fields []field

	add := func(code FieldCode, v any) error {
		vv, err := types.NewVariant(v)
		if err != nil {
			return err
		}
		fields = append(fields, field{code, vv})
		return nil
	}

	if h.Path != "" {
		if err := add(FieldPath, h.Path); err != nil {
			return err
		}
	}
	if h.Interface != "" {
		if err := add(FieldInterface, h.Interface); err != nil {
			return err
		}
	}
	if h.Member != "" {
		if err := add(FieldMember, h.Member); err != nil {
			return err
		}
	}
	if h.ErrorName != "" {
		if err := add(FieldErrorName, h.ErrorName); err != nil {
			return err
		}
	}
	if h.HasReplySerial() {
		if err := add(FieldReplySerial, h.ReplySerial); err != nil {
			return err
		}
	}
	if h.Destination != "" {
		if err := add(FieldDestination, h.Destination); err != nil {
			return err
		}
	}
	if h.Sender != "" {
		if err := add(FieldSender, h.Sender); err != nil {
			return err
		}
	}
	if !h.Signature.Empty() {
		if err := add(FieldSignature, h.Signature); err != nil {
			return err
		}
	}
	if h.HasUnixFDs() {
		if err := add(FieldUnixFDs, h.UnixFDs); err != nil {
			return err
		}
	}

	enc := NewEncoder(buf, order, 0)
	finish, err := enc.ArrayWriter(headerFieldsSignature.Types()[0].Elem)
	if err != nil {
		return err
	}
	for _, f := range fields {
		enc.StructStart()
		enc.WriteByte(byte(f.code))
		if err := EncodeValue(enc, types.MustParseSignature("v").Types()[0], f.v); err != nil {
			return err
		}
	}
	return finish()
}

// FieldCode aliases types.FieldCode for brevity within this file.
type FieldCode = types.FieldCode

const (
	FieldPath        = types.FieldPath
	FieldInterface   = types.FieldInterface
	FieldMember      = types.FieldMember
	FieldErrorName   = types.FieldErrorName
	FieldReplySerial = types.FieldReplySerial
	FieldDestination = types.FieldDestination
	FieldSender      = types.FieldSender
	FieldSignature   = types.FieldSignature
	FieldUnixFDs     = types.FieldUnixFDs
)

// bigEndian is a marker type satisfying binary.ByteOrder, used only to
// detect which order the caller passed via a type assertion against
// binary.BigEndian's concrete type. binary.BigEndian has an unexported
// concrete type, so we keep our own sentinel and expose BigEndian /
// LittleEndian below instead of relying on identity against the stdlib
// value.
type bigEndian struct{ binary.ByteOrder }

// BigEndian and LittleEndian are the two byte orders EncodeMessage and
// DecodeHeader accept; use these values (not encoding/binary's) so the
// endianness marker byte can be derived correctly.
var (
	LittleEndian binary.ByteOrder = binary.LittleEndian
	BigEndian    binary.ByteOrder = bigEndian{binary.BigEndian}
)

// DecodeHeaderFields parses the "a(yv)" header fields array, populating the
// named fields on h. d must be positioned immediately after the 12-byte
// fixed header.
func DecodeHeaderFields(d *Decoder, h *types.Header) error {
	elemType := headerFieldsSignature.Types()[0].Elem
	bodyLen, err := d.ArrayBodyLength(elemType)
	if err != nil {
		return err
	}
	end := d.Offset() + bodyLen
	for d.Offset() < end {
		if err := d.StructStart(); err != nil {
			return err
		}
		code, err := d.ReadByte()
		if err != nil {
			return err
		}
		v, err := decodeVariant(d)
		if err != nil {
			return fmt.Errorf("dbus: header field %d value: %w", code, err)
		}
		if err := applyHeaderField(h, types.FieldCode(code), v); err != nil {
			return err
		}
	}
	if d.Offset() != end {
		return fmt.Errorf("dbus: header fields array overran its %d byte body", bodyLen)
	}
	return d.Pad(8)
}

func applyHeaderField(h *types.Header, code types.FieldCode, v types.Variant) error {
	switch code {
	case types.FieldPath:
		p, ok := v.Value.(types.ObjectPath)
		if !ok {
			return fmt.Errorf("dbus: PATH field has wrong type %T", v.Value)
		}
		h.Path = p
	case types.FieldInterface:
		s, ok := v.Value.(string)
		if !ok {
			return fmt.Errorf("dbus: INTERFACE field has wrong type %T", v.Value)
		}
		h.Interface = s
	case types.FieldMember:
		s, ok := v.Value.(string)
		if !ok {
			return fmt.Errorf("dbus: MEMBER field has wrong type %T", v.Value)
		}
		h.Member = s
	case types.FieldErrorName:
		s, ok := v.Value.(string)
		if !ok {
			return fmt.Errorf("dbus: ERROR_NAME field has wrong type %T", v.Value)
		}
		h.ErrorName = s
	case types.FieldReplySerial:
		n, ok := v.Value.(uint32)
		if !ok {
			return fmt.Errorf("dbus: REPLY_SERIAL field has wrong type %T", v.Value)
		}
		h.SetReplySerial(n)
	case types.FieldDestination:
		s, ok := v.Value.(string)
		if !ok {
			return fmt.Errorf("dbus: DESTINATION field has wrong type %T", v.Value)
		}
		h.Destination = s
	case types.FieldSender:
		s, ok := v.Value.(string)
		if !ok {
			return fmt.Errorf("dbus: SENDER field has wrong type %T", v.Value)
		}
		h.Sender = s
	case types.FieldSignature:
		sig, ok := v.Value.(types.Signature)
		if !ok {
			return fmt.Errorf("dbus: SIGNATURE field has wrong type %T", v.Value)
		}
		h.Signature = sig
	case types.FieldUnixFDs:
		n, ok := v.Value.(uint32)
		if !ok {
			return fmt.Errorf("dbus: UNIX_FDS field has wrong type %T", v.Value)
		}
		h.SetUnixFDs(n)
	default:
		// Unknown header fields are ignored, per the D-Bus specification.
	}
	return nil
}

// DecodeBody parses msg's body according to h.Signature. d must be
// positioned at the start of the body (immediately after the header
// fields array's trailing padding).
func DecodeBody(d *Decoder, sig types.Signature) ([]any, error) {
	body := make([]any, 0, len(sig.Types()))
	for _, t := range sig.Types() {
		v, err := DecodeValue(d, t)
		if err != nil {
			return nil, err
		}
		body = append(body, v)
	}
	return body, nil
}
