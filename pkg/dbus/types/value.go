package types

import "fmt"

// ObjectPath is a D-Bus object path (type code 'o'): a slash-separated
// sequence of ASCII identifier elements, e.g. "/org/freedesktop/DBus".
type ObjectPath string

// Validate checks o against the object path grammar from the D-Bus
// specification: begins with '/', contains only
// [A-Za-z0-9_] between slashes, never ends in '/' unless o is exactly "/",
// and never contains "//".
func (o ObjectPath) Validate() error {
	s := string(o)
	if len(s) == 0 || s[0] != '/' {
		return fmt.Errorf("dbus: object path %q must start with '/'", s)
	}
	if s == "/" {
		return nil
	}
	if s[len(s)-1] == '/' {
		return fmt.Errorf("dbus: object path %q must not end with '/'", s)
	}
	elemStart := 1
	for i := 1; i <= len(s); i++ {
		if i == len(s) || s[i] == '/' {
			if i == elemStart {
				return fmt.Errorf("dbus: object path %q contains an empty element", s)
			}
			elemStart = i + 1
			continue
		}
		c := s[i]
		if !isPathElementByte(c) {
			return fmt.Errorf("dbus: object path %q contains invalid byte %q", s, string(c))
		}
	}
	return nil
}

func isPathElementByte(c byte) bool {
	switch {
	case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '_':
		return true
	default:
		return false
	}
}

// UnixFD is a file descriptor index (type code 'h'): on the wire it is a
// uint32 index into the array of file descriptors sent out-of-band
// alongside the message; in memory it is the resolved descriptor.
type UnixFD uint32

// Variant wraps a value whose D-Bus type is only known at encode/decode
// time. Sig must describe exactly one complete type (Signature.Single).
type Variant struct {
	Sig   Signature
	Value any
}

// NewVariant builds a Variant around v, inferring its signature from v's Go
// type via InferSignature.
func NewVariant(v any) (Variant, error) {
	sig, err := InferSignature(v)
	if err != nil {
		return Variant{}, err
	}
	return Variant{Sig: sig, Value: v}, nil
}

// InferSignature derives the D-Bus signature for a Go value: bool->b,
// byte->y, int16/uint16->n/q, int32/uint32->i/u, int64/uint64->x/t,
// float64->d, string->s, ObjectPath->o, Signature->g, UnixFD->h,
// Variant->v, []string->as, []byte->ay, map[string]Variant->a{sv} and
// map[string]string->a{ss}. Any other type, including other slices and
// maps and []any, is rejected.
func InferSignature(v any) (Signature, error) {
	switch x := v.(type) {
	case bool:
		return MustParseSignature("b"), nil
	case byte:
		return MustParseSignature("y"), nil
	case int16:
		return MustParseSignature("n"), nil
	case uint16:
		return MustParseSignature("q"), nil
	case int32:
		return MustParseSignature("i"), nil
	case uint32:
		return MustParseSignature("u"), nil
	case int64:
		return MustParseSignature("x"), nil
	case uint64:
		return MustParseSignature("t"), nil
	case float64:
		return MustParseSignature("d"), nil
	case string:
		return MustParseSignature("s"), nil
	case ObjectPath:
		return MustParseSignature("o"), nil
	case Signature:
		return MustParseSignature("g"), nil
	case UnixFD:
		return MustParseSignature("h"), nil
	case Variant:
		return MustParseSignature("v"), nil
	case []string:
		return MustParseSignature("as"), nil
	case []byte:
		return MustParseSignature("ay"), nil
	case map[string]Variant:
		return MustParseSignature("a{sv}"), nil
	case map[string]string:
		return MustParseSignature("a{ss}"), nil
	default:
		return Signature{}, fmt.Errorf("dbus: cannot infer signature for %T", x)
	}
}
