// Package types implements the D-Bus type universe: the fixed and variable
// length wire types, the signature grammar that describes them, and the
// container types (array, struct, dict entry, variant) built from them.
//
// A Signature is always validated before it is used by the encoder or
// decoder: malformed signatures are rejected at parse time rather than
// discovered mid-decode.
package types

import (
	"fmt"
	"strings"
)

// Code is the single-byte type code used in D-Bus signatures.
type Code byte

// Type codes from the D-Bus specification, section "Type System".
const (
	CodeByte       Code = 'y'
	CodeBoolean    Code = 'b'
	CodeInt16      Code = 'n'
	CodeUint16     Code = 'q'
	CodeInt32      Code = 'i'
	CodeUint32     Code = 'u'
	CodeInt64      Code = 'x'
	CodeUint64     Code = 't'
	CodeDouble     Code = 'd'
	CodeString     Code = 's'
	CodeObjectPath Code = 'o'
	CodeSignature  Code = 'g'
	CodeUnixFD     Code = 'h'
	CodeArray      Code = 'a'
	CodeStruct     Code = '(' // closed by ')'
	CodeStructEnd  Code = ')'
	CodeVariant    Code = 'v'
	CodeDictEntry  Code = '{' // closed by '}'
	CodeDictEnd    Code = '}'
)

// MaxSignatureLength is the maximum length of a marshaled SIGNATURE value,
// per the D-Bus specification.
const MaxSignatureLength = 255

// MaxArrayLength is the maximum serialized length, in bytes, of an ARRAY
// body, per the D-Bus specification.
const MaxArrayLength = 64 << 20

// MaxMessageLength is the maximum total length, in bytes, of a marshaled
// message (fixed header + header fields + body), per the D-Bus specification.
const MaxMessageLength = 128 << 20

// MaxStructDepth bounds nested STRUCT/ARRAY/DICT_ENTRY/VARIANT recursion
// while parsing or encoding a signature, matching the reference
// implementations' 32/64-deep container nesting limit.
const MaxStructDepth = 32

// Type is one node in the parsed tree of a Signature. Container types
// (Array, Struct, DictEntry) carry child Types; Variant carries none, since
// its contained signature is only known at encode/decode time.
type Type struct {
	Code     Code
	Elem     *Type   // ARRAY element type
	Fields   []*Type // STRUCT / DICT_ENTRY member types (DictEntry always has exactly 2)
	raw      string
}

// IsBasic reports whether t is a basic (non-container) type: every code
// except ARRAY, STRUCT and DICT_ENTRY. VARIANT is considered basic since it
// has fixed 1-byte alignment and no fixed children.
func (t *Type) IsBasic() bool {
	switch t.Code {
	case CodeArray, CodeStruct, CodeDictEntry:
		return false
	default:
		return true
	}
}

// Alignment returns the wire alignment, in bytes, required before a value
// of this type per the D-Bus specification's alignment table.
func (t *Type) Alignment() int {
	switch t.Code {
	case CodeByte, CodeSignature, CodeVariant:
		return 1
	case CodeInt16, CodeUint16:
		return 2
	case CodeBoolean, CodeInt32, CodeUint32, CodeString, CodeObjectPath, CodeArray, CodeUnixFD:
		return 4
	case CodeInt64, CodeUint64, CodeDouble, CodeStruct, CodeDictEntry:
		return 8
	default:
		return 1
	}
}

// String renders t back to its signature form.
func (t *Type) String() string {
	switch t.Code {
	case CodeArray:
		return "a" + t.Elem.String()
	case CodeStruct:
		var b strings.Builder
		b.WriteByte('(')
		for _, f := range t.Fields {
			b.WriteString(f.String())
		}
		b.WriteByte(')')
		return b.String()
	case CodeDictEntry:
		var b strings.Builder
		b.WriteByte('{')
		for _, f := range t.Fields {
			b.WriteString(f.String())
		}
		b.WriteByte('}')
		return b.String()
	default:
		return string(t.Code)
	}
}

// Signature is a validated sequence of complete types, exactly as it
// appears on the wire (header field 'g', SIGNATURE values, method
// signatures).
type Signature struct {
	value string
	types []*Type
}

// ParseSignature validates s against the D-Bus signature grammar and
// returns the parsed type tree. An empty string is a valid (empty)
// signature.
func ParseSignature(s string) (Signature, error) {
	if len(s) > MaxSignatureLength {
		return Signature{}, fmt.Errorf("dbus: signature %q exceeds %d bytes", s, MaxSignatureLength)
	}
	p := &sigParser{input: s}
	var ts []*Type
	for p.pos < len(p.input) {
		t, err := p.parseOne(0, false)
		if err != nil {
			return Signature{}, err
		}
		ts = append(ts, t)
	}
	return Signature{value: s, types: ts}, nil
}

// MustParseSignature is ParseSignature for signature literals known to be
// valid at compile time; it panics on error.
func MustParseSignature(s string) Signature {
	sig, err := ParseSignature(s)
	if err != nil {
		panic(err)
	}
	return sig
}

// String returns the wire form of the signature.
func (s Signature) String() string { return s.value }

// Types returns the parsed top-level types.
func (s Signature) Types() []*Type { return s.types }

// Empty reports whether the signature describes zero values.
func (s Signature) Empty() bool { return len(s.types) == 0 }

// Single reports whether the signature describes exactly one complete
// type, as required for a VARIANT's contained value.
func (s Signature) Single() bool { return len(s.types) == 1 }

type sigParser struct {
	input string
	pos   int
}

// parseOne parses a single complete type starting at p.pos. fromArray is
// true only when parseOne is called for the element type directly
// following an 'a' code: per the grammar (`TYPE := basic | 'a' TYPE | '('
// TYPE+ ')' | 'a{' basic TYPE '}' | 'v'`), DICT_ENTRY has no production of
// its own and is only reachable as an array element — a bare "{...}" or a
// struct field of "{...}" must fail.
func (p *sigParser) parseOne(depth int, fromArray bool) (*Type, error) {
	if depth > MaxStructDepth {
		return nil, fmt.Errorf("dbus: signature %q nests deeper than %d", p.input, MaxStructDepth)
	}
	if p.pos >= len(p.input) {
		return nil, fmt.Errorf("dbus: signature %q ends mid-type", p.input)
	}
	c := Code(p.input[p.pos])
	p.pos++

	switch c {
	case CodeByte, CodeBoolean, CodeInt16, CodeUint16, CodeInt32, CodeUint32,
		CodeInt64, CodeUint64, CodeDouble, CodeString, CodeObjectPath,
		CodeSignature, CodeUnixFD, CodeVariant:
		return &Type{Code: c}, nil

	case CodeArray:
		elem, err := p.parseOne(depth+1, true)
		if err != nil {
			return nil, fmt.Errorf("dbus: array element: %w", err)
		}
		return &Type{Code: CodeArray, Elem: elem}, nil

	case CodeStruct:
		var fields []*Type
		for {
			if p.pos >= len(p.input) {
				return nil, fmt.Errorf("dbus: signature %q: unterminated struct", p.input)
			}
			if Code(p.input[p.pos]) == CodeStructEnd {
				p.pos++
				break
			}
			f, err := p.parseOne(depth+1, false)
			if err != nil {
				return nil, err
			}
			fields = append(fields, f)
		}
		if len(fields) == 0 {
			return nil, fmt.Errorf("dbus: signature %q: empty struct", p.input)
		}
		return &Type{Code: CodeStruct, Fields: fields}, nil

	case CodeDictEntry:
		if !fromArray {
			return nil, fmt.Errorf("dbus: signature %q: dict entry outside array", p.input)
		}
		var fields []*Type
		for {
			if p.pos >= len(p.input) {
				return nil, fmt.Errorf("dbus: signature %q: unterminated dict entry", p.input)
			}
			if Code(p.input[p.pos]) == CodeDictEnd {
				p.pos++
				break
			}
			f, err := p.parseOne(depth+1, false)
			if err != nil {
				return nil, err
			}
			fields = append(fields, f)
		}
		if len(fields) != 2 {
			return nil, fmt.Errorf("dbus: signature %q: dict entry must have exactly 2 members, got %d", p.input, len(fields))
		}
		if !fields[0].IsBasic() {
			return nil, fmt.Errorf("dbus: signature %q: dict entry key must be a basic type", p.input)
		}
		return &Type{Code: CodeDictEntry, Fields: fields}, nil

	default:
		return nil, fmt.Errorf("dbus: signature %q: unknown type code %q", p.input, string(c))
	}
}
