package sasl

import (
	"fmt"
	"strconv"
)

// External implements the EXTERNAL mechanism: the client asserts a Unix
// uid (or, on non-Unix platforms, some other externally verified
// identity), which the server accepts on the strength of the transport's
// own credential passing (SO_PEERCRED / SCM_CREDENTIALS) rather than
// anything sent over the wire.
type External struct {
	// UID is the local user id to assert, hex-encoded as an ASCII decimal
	// string per the D-Bus specification's EXTERNAL mechanism.
	UID int
}

func (e External) Name() string { return "EXTERNAL" }

func (e External) InitialResponse() ([]byte, error) {
	return []byte(strconv.Itoa(e.UID)), nil
}

func (e External) Continue(challenge []byte) ([]byte, error) {
	return nil, fmt.Errorf("dbus: sasl: EXTERNAL does not expect a DATA challenge")
}
