package wire

import (
	"fmt"

	"github.com/marmos91/dittofs/pkg/dbus/types"
)

// EncodeValue writes v to e according to t, recursing into containers.
// The accepted Go representation per type code mirrors
// types.InferSignature's mapping.
func EncodeValue(e *Encoder, t *types.Type, v any) error {
	switch t.Code {
	case types.CodeByte:
		b, ok := v.(byte)
		if !ok {
			return typeMismatch(t, v)
		}
		e.WriteByte(b)
	case types.CodeBoolean:
		b, ok := v.(bool)
		if !ok {
			return typeMismatch(t, v)
		}
		e.WriteBool(b)
	case types.CodeInt16:
		n, ok := v.(int16)
		if !ok {
			return typeMismatch(t, v)
		}
		e.WriteInt16(n)
	case types.CodeUint16:
		n, ok := v.(uint16)
		if !ok {
			return typeMismatch(t, v)
		}
		e.WriteUint16(n)
	case types.CodeInt32:
		n, ok := v.(int32)
		if !ok {
			return typeMismatch(t, v)
		}
		e.WriteInt32(n)
	case types.CodeUint32:
		n, ok := v.(uint32)
		if !ok {
			return typeMismatch(t, v)
		}
		e.WriteUint32(n)
	case types.CodeInt64:
		n, ok := v.(int64)
		if !ok {
			return typeMismatch(t, v)
		}
		e.WriteInt64(n)
	case types.CodeUint64:
		n, ok := v.(uint64)
		if !ok {
			return typeMismatch(t, v)
		}
		e.WriteUint64(n)
	case types.CodeDouble:
		f, ok := v.(float64)
		if !ok {
			return typeMismatch(t, v)
		}
		e.WriteDouble(f)
	case types.CodeString:
		s, ok := v.(string)
		if !ok {
			return typeMismatch(t, v)
		}
		return e.WriteString(s)
	case types.CodeObjectPath:
		p, ok := v.(types.ObjectPath)
		if !ok {
			return typeMismatch(t, v)
		}
		return e.WriteObjectPath(p)
	case types.CodeSignature:
		s, ok := v.(types.Signature)
		if !ok {
			return typeMismatch(t, v)
		}
		return e.WriteSignature(s)
	case types.CodeUnixFD:
		fd, ok := v.(types.UnixFD)
		if !ok {
			return typeMismatch(t, v)
		}
		e.WriteUnixFD(fd)
	case types.CodeVariant:
		vv, ok := v.(types.Variant)
		if !ok {
			return typeMismatch(t, v)
		}
		return encodeVariant(e, vv)
	case types.CodeArray:
		return encodeArray(e, t, v)
	case types.CodeStruct:
		return encodeStruct(e, t, v)
	case types.CodeDictEntry:
		return fmt.Errorf("dbus: DICT_ENTRY may only appear as an array element")
	default:
		return fmt.Errorf("dbus: unknown type code %q", string(t.Code))
	}
	return nil
}

func typeMismatch(t *types.Type, v any) error {
	return fmt.Errorf("dbus: value %v (%T) does not match type %q", v, v, t.String())
}

func encodeVariant(e *Encoder, vv types.Variant) error {
	if !vv.Sig.Single() {
		return fmt.Errorf("dbus: variant signature %q must describe exactly one type", vv.Sig.String())
	}
	if err := e.WriteSignature(vv.Sig); err != nil {
		return err
	}
	return EncodeValue(e, vv.Sig.Types()[0], vv.Value)
}

func encodeStruct(e *Encoder, t *types.Type, v any) error {
	members, ok := v.([]any)
	if !ok {
		return typeMismatch(t, v)
	}
	if len(members) != len(t.Fields) {
		return fmt.Errorf("dbus: struct %q expects %d members, got %d", t.String(), len(t.Fields), len(members))
	}
	e.StructStart()
	for i, f := range t.Fields {
		if err := EncodeValue(e, f, members[i]); err != nil {
			return fmt.Errorf("dbus: struct member %d: %w", i, err)
		}
	}
	return nil
}

// encodeArray dispatches on the Go representation of the array: []any,
// []string, []byte, map[string]Variant and map[string]string are
// accepted; any other representation is rejected.
func encodeArray(e *Encoder, t *types.Type, v any) error {
	finish, err := e.ArrayWriter(t.Elem)
	if err != nil {
		return err
	}

	switch elems := v.(type) {
	case []any:
		for i, el := range elems {
			if err := EncodeValue(e, t.Elem, el); err != nil {
				return fmt.Errorf("dbus: array element %d: %w", i, err)
			}
		}
	case []string:
		for _, s := range elems {
			if err := EncodeValue(e, t.Elem, s); err != nil {
				return err
			}
		}
	case []byte:
		for _, b := range elems {
			e.WriteByte(b)
		}
	case map[string]types.Variant:
		if t.Elem.Code != types.CodeDictEntry {
			return typeMismatch(t, v)
		}
		for k, val := range elems {
			e.StructStart()
			if err := EncodeValue(e, t.Elem.Fields[0], k); err != nil {
				return err
			}
			if err := EncodeValue(e, t.Elem.Fields[1], val); err != nil {
				return err
			}
		}
	case map[string]string:
		if t.Elem.Code != types.CodeDictEntry {
			return typeMismatch(t, v)
		}
		for k, val := range elems {
			e.StructStart()
			if err := EncodeValue(e, t.Elem.Fields[0], k); err != nil {
				return err
			}
			if err := EncodeValue(e, t.Elem.Fields[1], val); err != nil {
				return err
			}
		}
	default:
		return fmt.Errorf("dbus: unsupported array representation %T for %q", v, t.String())
	}

	return finish()
}

// DecodeValue reads one value of type t from d, recursing into containers.
// Arrays decode to []any (nil when empty) and string-keyed dicts to
// map[string]any; EncodeValue accepts the former but not the latter.
func DecodeValue(d *Decoder, t *types.Type) (any, error) {
	switch t.Code {
	case types.CodeByte:
		return d.ReadByte()
	case types.CodeBoolean:
		return d.ReadBool()
	case types.CodeInt16:
		return d.ReadInt16()
	case types.CodeUint16:
		return d.ReadUint16()
	case types.CodeInt32:
		return d.ReadInt32()
	case types.CodeUint32:
		return d.ReadUint32()
	case types.CodeInt64:
		return d.ReadInt64()
	case types.CodeUint64:
		return d.ReadUint64()
	case types.CodeDouble:
		return d.ReadDouble()
	case types.CodeString:
		return d.ReadString()
	case types.CodeObjectPath:
		return d.ReadObjectPath()
	case types.CodeSignature:
		return d.ReadSignature()
	case types.CodeUnixFD:
		return d.ReadUnixFD()
	case types.CodeVariant:
		return decodeVariant(d)
	case types.CodeArray:
		return decodeArray(d, t)
	case types.CodeStruct:
		return decodeStruct(d, t)
	default:
		return nil, fmt.Errorf("dbus: unknown type code %q", string(t.Code))
	}
}

func decodeVariant(d *Decoder) (types.Variant, error) {
	sig, err := d.ReadSignature()
	if err != nil {
		return types.Variant{}, err
	}
	if !sig.Single() {
		return types.Variant{}, fmt.Errorf("dbus: variant signature %q must describe exactly one type", sig.String())
	}
	val, err := DecodeValue(d, sig.Types()[0])
	if err != nil {
		return types.Variant{}, err
	}
	return types.Variant{Sig: sig, Value: val}, nil
}

func decodeStruct(d *Decoder, t *types.Type) ([]any, error) {
	if err := d.StructStart(); err != nil {
		return nil, err
	}
	members := make([]any, len(t.Fields))
	for i, f := range t.Fields {
		v, err := DecodeValue(d, f)
		if err != nil {
			return nil, fmt.Errorf("dbus: struct member %d: %w", i, err)
		}
		members[i] = v
	}
	return members, nil
}

func decodeArray(d *Decoder, t *types.Type) (any, error) {
	bodyLen, err := d.ArrayBodyLength(t.Elem)
	if err != nil {
		return nil, err
	}
	start := d.Offset()
	end := start + bodyLen

	if t.Elem.Code == types.CodeDictEntry {
		m := make(map[string]any)
		for d.Offset() < end {
			entry, err := decodeStruct(d, t.Elem)
			if err != nil {
				return nil, err
			}
			key, ok := entry[0].(string)
			if !ok {
				return nil, fmt.Errorf("dbus: only string-keyed dicts are supported, got %T", entry[0])
			}
			m[key] = entry[1]
		}
		return m, nil
	}

	var out []any
	for d.Offset() < end {
		v, err := DecodeValue(d, t.Elem)
		if err != nil {
			return nil, fmt.Errorf("dbus: array element: %w", err)
		}
		out = append(out, v)
	}
	if d.Offset() != end {
		return nil, fmt.Errorf("dbus: array element decoding overran its %d byte body", bodyLen)
	}
	return out, nil
}
