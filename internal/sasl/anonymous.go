package sasl

import "fmt"

// Anonymous implements the ANONYMOUS mechanism: no credentials are
// asserted at all; TraceText is an optional, human-readable string (e.g.
// an email address) some servers log for diagnostics.
type Anonymous struct {
	TraceText string
}

func (a Anonymous) Name() string { return "ANONYMOUS" }

func (a Anonymous) InitialResponse() ([]byte, error) {
	if a.TraceText == "" {
		return []byte{}, nil
	}
	return []byte(a.TraceText), nil
}

func (a Anonymous) Continue(challenge []byte) ([]byte, error) {
	return nil, fmt.Errorf("dbus: sasl: ANONYMOUS does not expect a DATA challenge")
}
