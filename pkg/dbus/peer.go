package dbus

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"

	"github.com/marmos91/dittofs/pkg/dbus/dbuserrors"
	"github.com/marmos91/dittofs/pkg/dbus/types"
	"github.com/marmos91/dittofs/pkg/registry"
)

const (
	ifaceDBus   = "org.freedesktop.DBus"
	ifacePeer   = "org.freedesktop.DBus.Peer"
	pathDBus    = types.ObjectPath("/org/freedesktop/DBus")
	memberHello = "Hello"
)

// methodHandlers dispatches inbound METHOD_CALLs: first against the
// built-in Peer interface (Ping/GetMachineId, required of every D-Bus
// application per the specification), then against the connection's
// registry.Registry of user-exported objects.
type methodHandlers struct {
	reg *registry.Registry
}

func newMethodHandlers(reg *registry.Registry) *methodHandlers {
	return &methodHandlers{reg: reg}
}

func (h *methodHandlers) dispatch(c *Conn, msg *types.Message) {
	ctx := context.Background()

	if msg.Header.Interface == ifacePeer {
		results, err := h.dispatchPeer(msg.Header.Member, msg.Body)
		h.reply(c, msg, results, err)
		return
	}

	fn, ok := h.reg.Lookup(msg.Header.Path, msg.Header.Interface, msg.Header.Member)
	if !ok {
		err := dbuserrors.NewAccessDeniedError("no such method %s.%s at %s",
			msg.Header.Interface, msg.Header.Member, msg.Header.Path)
		err.Wire = "org.freedesktop.DBus.Error.UnknownMethod"
		h.reply(c, msg, nil, err)
		return
	}
	results, err := fn(ctx, msg.Body)
	h.reply(c, msg, results, err)
}

func (h *methodHandlers) dispatchPeer(member string, args []any) ([]any, error) {
	switch member {
	case "Ping":
		return nil, nil
	case "GetMachineId":
		id, err := machineID()
		if err != nil {
			return nil, err
		}
		return []any{id}, nil
	default:
		e := dbuserrors.NewAccessDeniedError("unknown Peer method %s", member)
		e.Wire = "org.freedesktop.DBus.Error.UnknownMethod"
		return nil, e
	}
}

func (h *methodHandlers) reply(c *Conn, req *types.Message, body []any, err error) {
	if req.Header.Flags&types.FlagNoReplyExpected != 0 {
		return
	}
	var reply types.Message
	if err != nil {
		wireErr := asWireError(err)
		reply.Header = types.Header{
			Type:      types.TypeError,
			ErrorName: wireErr.Wire,
			Destination: req.Header.Sender,
		}
		reply.Header.SetReplySerial(req.Header.Serial)
		reply.Body = []any{wireErr.Message}
	} else {
		reply.Header = types.Header{
			Type:        types.TypeMethodReturn,
			Destination: req.Header.Sender,
		}
		reply.Header.SetReplySerial(req.Header.Serial)
		reply.Body = body
	}
	if sendErr := c.send(&reply); sendErr != nil {
		c.log.Warn("dbus: failed to send reply", "error", sendErr)
	}
}

func asWireError(err error) *dbuserrors.Error {
	if de, ok := err.(*dbuserrors.Error); ok {
		return de
	}
	return &dbuserrors.Error{
		Code:    dbuserrors.CodeUnknown,
		Wire:    "org.freedesktop.DBus.Error.Failed",
		Message: err.Error(),
	}
}

// hello sends the mandatory org.freedesktop.DBus.Hello call every client
// must issue immediately after authenticating, recording the unique
// connection name the bus assigns in response.
func (c *Conn) hello(ctx context.Context) error {
	results, err := c.call(ctx, ifaceDBus, pathDBus, ifaceDBus, memberHello, nil)
	if err != nil {
		return fmt.Errorf("dbus: Hello: %w", err)
	}
	if len(results) != 1 {
		return dbuserrors.NewInconsistentMessageError("Hello returned %d values, want 1", len(results))
	}
	name, ok := results[0].(string)
	if !ok {
		return dbuserrors.NewInconsistentMessageError("Hello returned %T, want string", results[0])
	}
	c.uniqueName = name
	return nil
}

// Ping sends org.freedesktop.DBus.Peer.Ping to destination, used both by
// application code and by the connection's own health prober.
func (c *Conn) Ping(ctx context.Context, destination string) error {
	_, err := c.Call(ctx, destination, pathDBus, ifacePeer, "Ping", nil)
	return err
}

func machineID() (string, error) {
	data, err := os.ReadFile("/etc/machine-id")
	if err == nil {
		s := string(data)
		if len(s) > 0 && s[len(s)-1] == '\n' {
			s = s[:len(s)-1]
		}
		return s, nil
	}
	buf := make([]byte, 16)
	if _, randErr := rand.Read(buf); randErr != nil {
		return "", fmt.Errorf("dbus: generate machine id: %w", randErr)
	}
	return hex.EncodeToString(buf), nil
}
