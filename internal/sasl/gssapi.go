package sasl

import (
	"fmt"

	"github.com/jcmturner/gokrb5/v8/client"
	"github.com/jcmturner/gokrb5/v8/config"
	"github.com/jcmturner/gokrb5/v8/keytab"
	"github.com/jcmturner/gokrb5/v8/spnego"
)

// GSSAPI implements the optional GSSAPI mechanism used by
// ActiveDirectory-integrated buses. It is not one of the three mechanisms
// every D-Bus implementation is required to support, so it is only
// attempted when explicitly configured.
//
// The initial response carries the token from spnego.SPNEGO's
// InitSecContext; Continue rejects any further DATA challenge, so only a
// single-round-trip negotiation is supported.
type GSSAPI struct {
	ServicePrincipal string // e.g. "dbus/bus.example.com@EXAMPLE.COM"
	KeytabPath       string
	Krb5ConfPath     string

	krb5cl *client.Client
	spn    *spnego.SPNEGO
}

func (g *GSSAPI) Name() string { return "GSSAPI" }

func (g *GSSAPI) init() error {
	if g.krb5cl != nil {
		return nil
	}
	cfg, err := config.Load(g.Krb5ConfPath)
	if err != nil {
		return fmt.Errorf("dbus: sasl: GSSAPI: load krb5.conf: %w", err)
	}
	kt, err := keytab.Load(g.KeytabPath)
	if err != nil {
		return fmt.Errorf("dbus: sasl: GSSAPI: load keytab: %w", err)
	}
	princ, realm := splitPrincipal(g.ServicePrincipal)
	cl := client.NewWithKeytab(princ, realm, kt, cfg)
	if err := cl.Login(); err != nil {
		return fmt.Errorf("dbus: sasl: GSSAPI: login: %w", err)
	}
	g.krb5cl = cl
	g.spn = spnego.SPNEGOClient(cl, g.ServicePrincipal)
	return nil
}

func (g *GSSAPI) InitialResponse() ([]byte, error) {
	if err := g.init(); err != nil {
		return nil, err
	}
	tok, err := g.spn.InitSecContext()
	if err != nil {
		return nil, fmt.Errorf("dbus: sasl: GSSAPI: init security context: %w", err)
	}
	data, err := tok.Marshal()
	if err != nil {
		return nil, fmt.Errorf("dbus: sasl: GSSAPI: marshal token: %w", err)
	}
	return data, nil
}

// Continue is reached only if the server sent additional DATA after the
// initial response; a single InitSecContext round trip is sufficient for
// the ticket-based negotiation this mechanism performs against a
// keytab-authenticated service principal, so any further challenge is
// rejected rather than looped on indefinitely.
func (g *GSSAPI) Continue(challenge []byte) ([]byte, error) {
	return nil, fmt.Errorf("dbus: sasl: GSSAPI: unexpected additional challenge after initial token")
}

func splitPrincipal(spn string) (name string, realm string) {
	for i := len(spn) - 1; i >= 0; i-- {
		if spn[i] == '@' {
			return spn[:i], spn[i+1:]
		}
	}
	return spn, ""
}
