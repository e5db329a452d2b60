// Package transport dials the D-Bus address strings described in the D-Bus
// specification ("transport:key=value,key=value;transport:...") and
// exposes the resulting connection as a plain io.ReadWriteCloser, leaving
// framing and authentication to the frame and sasl packages.
package transport

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
)

// Address is one parsed "transport:key=value,..." segment of a D-Bus
// address string.
type Address struct {
	Transport string
	Params    map[string]string
}

// ParseAddresses splits a full D-Bus address string (segments separated
// by ';') into its component Addresses, unescaping percent-encoded bytes
// in parameter values per the specification's address escaping rules.
func ParseAddresses(s string) ([]Address, error) {
	if s == "" {
		return nil, fmt.Errorf("dbus: empty address string")
	}
	segs := strings.Split(s, ";")
	out := make([]Address, 0, len(segs))
	for _, seg := range segs {
		if seg == "" {
			continue
		}
		addr, err := parseOne(seg)
		if err != nil {
			return nil, err
		}
		out = append(out, addr)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("dbus: address string %q has no usable segments", s)
	}
	return out, nil
}

func parseOne(seg string) (Address, error) {
	i := strings.IndexByte(seg, ':')
	if i < 0 {
		return Address{}, fmt.Errorf("dbus: address segment %q missing transport prefix", seg)
	}
	transport := seg[:i]
	params := make(map[string]string)
	for _, kv := range strings.Split(seg[i+1:], ",") {
		if kv == "" {
			continue
		}
		j := strings.IndexByte(kv, '=')
		if j < 0 {
			return Address{}, fmt.Errorf("dbus: address segment %q has a key with no value: %q", seg, kv)
		}
		key := kv[:j]
		val, err := unescape(kv[j+1:])
		if err != nil {
			return Address{}, fmt.Errorf("dbus: address segment %q: %w", seg, err)
		}
		params[key] = val
	}
	return Address{Transport: transport, Params: params}, nil
}

func unescape(s string) (string, error) {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] != '%' {
			b.WriteByte(s[i])
			continue
		}
		if i+2 >= len(s) {
			return "", fmt.Errorf("truncated percent escape in %q", s)
		}
		n, err := strconv.ParseUint(s[i+1:i+3], 16, 8)
		if err != nil {
			return "", fmt.Errorf("invalid percent escape %q", s[i:i+3])
		}
		b.WriteByte(byte(n))
		i += 2
	}
	return b.String(), nil
}

// SessionBusAddress returns the session bus address from
// DBUS_SESSION_BUS_ADDRESS, as the D-Bus specification requires every
// session bus client to honor.
func SessionBusAddress() (string, bool) {
	return os.LookupEnv("DBUS_SESSION_BUS_ADDRESS")
}

// SystemBusAddress returns the system bus address: the
// DBUS_SYSTEM_BUS_ADDRESS environment variable if set, else the well-known
// default unix socket path.
func SystemBusAddress() string {
	if v := os.Getenv("DBUS_SYSTEM_BUS_ADDRESS"); v != "" {
		return v
	}
	return "unix:path=/var/run/dbus/system_bus_socket"
}

// Dial connects to the first Address in addrs that succeeds, trying each
// in order as the specification's fallback rule requires.
func Dial(addrs []Address) (net.Conn, error) {
	var lastErr error
	for _, addr := range addrs {
		conn, err := dialOne(addr)
		if err == nil {
			return conn, nil
		}
		lastErr = err
	}
	return nil, fmt.Errorf("dbus: could not connect to any address: %w", lastErr)
}

func dialOne(addr Address) (net.Conn, error) {
	switch addr.Transport {
	case "unix":
		return dialUnix(addr.Params)
	case "tcp":
		return dialTCP(addr.Params)
	default:
		return nil, fmt.Errorf("dbus: unsupported transport %q", addr.Transport)
	}
}

func dialUnix(params map[string]string) (net.Conn, error) {
	if path, ok := params["path"]; ok {
		return net.Dial("unix", path)
	}
	if name, ok := params["abstract"]; ok {
		// Linux abstract sockets are addressed with a leading NUL byte.
		return net.Dial("unix", "@"+name)
	}
	return nil, fmt.Errorf("dbus: unix transport requires 'path' or 'abstract'")
}

func dialTCP(params map[string]string) (net.Conn, error) {
	host, ok := params["host"]
	if !ok {
		host = "localhost"
	}
	port, ok := params["port"]
	if !ok {
		return nil, fmt.Errorf("dbus: tcp transport requires 'port'")
	}
	return net.Dial("tcp", net.JoinHostPort(host, port))
}
