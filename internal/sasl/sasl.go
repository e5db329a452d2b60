// Package sasl implements the client side of the D-Bus authentication
// handshake: a line-oriented protocol, distinct from the D-Bus binary wire
// format, exchanged immediately after connecting and before any binary
// message is sent.
//
// The mechanism abstraction mirrors pkg/auth's AuthProvider/Authenticator
// chain-of-responsibility shape: each Mechanism knows how to drive one SASL
// mechanism's line exchange, and Client tries each configured mechanism in
// turn until one succeeds or the server rejects all of them.
package sasl

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
)

// State names a node of the client-side SASL handshake state machine.
type State int

const (
	StateInit State = iota
	StateSentAuth
	StateWaitingForData
	StateWaitingForOK
	StateWaitingForReject
	StateDone
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateInit:
		return "INIT"
	case StateSentAuth:
		return "SENT_AUTH"
	case StateWaitingForData:
		return "WAITING_FOR_DATA"
	case StateWaitingForOK:
		return "WAITING_FOR_OK"
	case StateWaitingForReject:
		return "WAITING_FOR_REJECT"
	case StateDone:
		return "DONE"
	case StateFailed:
		return "FAILED"
	default:
		return "UNKNOWN"
	}
}

// Mechanism drives one SASL mechanism's line exchange from the client
// side. InitialResponse returns the raw bytes Client hex-encodes as the
// argument of the first "AUTH <name> [response]" line (nil if the
// mechanism sends no initial response). Continue is called with each
// decoded "DATA <hex>" challenge from the server and returns the raw
// response bytes, which Client hex-encodes into the DATA line it sends.
type Mechanism interface {
	// Name is the mechanism name as it appears on the wire, e.g.
	// "EXTERNAL", "DBUS_COOKIE_SHA1", "ANONYMOUS".
	Name() string

	// InitialResponse returns the optional initial response bytes sent
	// with the AUTH command.
	InitialResponse() ([]byte, error)

	// Continue computes the response to a DATA challenge from the server.
	Continue(challenge []byte) (response []byte, err error)
}

// Client drives the handshake against an io.ReadWriter (typically the
// transport's raw stream before any binary framing begins), trying each
// mechanism in order until one succeeds.
type Client struct {
	rw         io.ReadWriter
	br         *bufio.Reader
	mechanisms []Mechanism

	state State
	// NegotiateUnixFD, when true, sends NEGOTIATE_UNIX_FD after a
	// successful OK and expects AGREE_UNIX_FD or ERROR back.
	NegotiateUnixFD bool
	// UnixFDAgreed reports whether the server agreed to pass file
	// descriptors out of band, once the handshake has completed.
	UnixFDAgreed bool
}

// NewClient returns a Client that will try mechanisms, in order, over rw.
func NewClient(rw io.ReadWriter, mechanisms ...Mechanism) *Client {
	return &Client{
		rw:         rw,
		br:         bufio.NewReader(rw),
		mechanisms: mechanisms,
		state:      StateInit,
	}
}

// Authenticate runs the handshake to completion, returning the name of the
// mechanism that succeeded, or an error if every mechanism was rejected or
// the stream failed.
//
// Per the D-Bus specification, a client must write a single NUL byte
// before the first SASL command; Authenticate does this as its first
// action.
func (c *Client) Authenticate() (string, error) {
	if _, err := c.rw.Write([]byte{0}); err != nil {
		c.state = StateFailed
		return "", fmt.Errorf("dbus: sasl: write leading NUL: %w", err)
	}

	for _, mech := range c.mechanisms {
		ok, err := c.tryMechanism(mech)
		if err != nil {
			return "", err
		}
		if ok {
			c.state = StateDone
			if c.NegotiateUnixFD {
				if err := c.negotiateUnixFD(); err != nil {
					return "", err
				}
			}
			if err := c.sendBegin(); err != nil {
				return "", err
			}
			return mech.Name(), nil
		}
	}

	c.state = StateFailed
	return "", fmt.Errorf("dbus: sasl: all mechanisms rejected by server")
}

func (c *Client) tryMechanism(mech Mechanism) (bool, error) {
	initial, err := mech.InitialResponse()
	if err != nil {
		return false, fmt.Errorf("dbus: sasl: %s: build initial response: %w", mech.Name(), err)
	}

	line := "AUTH " + mech.Name()
	if initial != nil {
		line += " " + hexEncode(initial)
	}
	if err := c.writeLine(line); err != nil {
		return false, err
	}
	c.state = StateSentAuth

	for {
		resp, err := c.readLine()
		if err != nil {
			return false, err
		}
		cmd, arg := splitCommand(resp)

		switch cmd {
		case "OK":
			c.state = StateWaitingForOK
			// arg is the server's chosen GUID; not otherwise used here.
			return true, nil

		case "DATA":
			c.state = StateWaitingForData
			challenge, err := hexDecode(arg)
			if err != nil {
				return false, fmt.Errorf("dbus: sasl: %s: malformed DATA challenge: %w", mech.Name(), err)
			}
			respBytes, err := mech.Continue(challenge)
			if err != nil {
				return c.cancelAndAwaitRejected(mech.Name())
			}
			if err := c.writeLine("DATA " + hexEncode(respBytes)); err != nil {
				return false, err
			}

		case "REJECTED":
			c.state = StateWaitingForReject
			return false, nil

		case "ERROR":
			return c.cancelAndAwaitRejected(mech.Name())

		default:
			return c.cancelAndAwaitRejected(mech.Name())
		}
	}
}

// cancelAndAwaitRejected sends CANCEL and reads the server's mandatory
// REJECTED response to it before returning, so the next mechanism's AUTH
// exchange starts from a clean line boundary instead of reading a
// leftover REJECTED line meant for this one.
func (c *Client) cancelAndAwaitRejected(mechName string) (bool, error) {
	if err := c.writeLine("CANCEL"); err != nil {
		return false, err
	}
	resp, err := c.readLine()
	if err != nil {
		return false, fmt.Errorf("dbus: sasl: %s: read REJECTED after CANCEL: %w", mechName, err)
	}
	cmd, _ := splitCommand(resp)
	if cmd != "REJECTED" {
		return false, fmt.Errorf("dbus: sasl: %s: expected REJECTED after CANCEL, got %q", mechName, cmd)
	}
	c.state = StateWaitingForReject
	return false, nil
}

func (c *Client) negotiateUnixFD() error {
	if err := c.writeLine("NEGOTIATE_UNIX_FD"); err != nil {
		return err
	}
	resp, err := c.readLine()
	if err != nil {
		return err
	}
	cmd, _ := splitCommand(resp)
	c.UnixFDAgreed = cmd == "AGREE_UNIX_FD"
	return nil
}

func (c *Client) sendBegin() error {
	return c.writeLine("BEGIN")
}

func (c *Client) writeLine(s string) error {
	_, err := c.rw.Write([]byte(s + "\r\n"))
	return err
}

// readLine reads a single CRLF-terminated line, per the SASL line protocol.
func (c *Client) readLine() (string, error) {
	line, err := c.br.ReadString('\n')
	if err != nil {
		return "", fmt.Errorf("dbus: sasl: read line: %w", err)
	}
	return string(bytes.TrimRight([]byte(line), "\r\n")), nil
}

func splitCommand(line string) (cmd, arg string) {
	i := bytes.IndexByte([]byte(line), ' ')
	if i < 0 {
		return line, ""
	}
	return line[:i], line[i+1:]
}
