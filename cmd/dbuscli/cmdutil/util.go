// Package cmdutil provides shared utilities for dbuscli commands.
package cmdutil

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/marmos91/dittofs/internal/cli/credentials"
	"github.com/marmos91/dittofs/internal/cli/output"
	"github.com/marmos91/dittofs/internal/cli/prompt"
	"github.com/marmos91/dittofs/internal/sasl"
	"github.com/marmos91/dittofs/pkg/dbus"
)

// Flags stores global flag values accessible by subcommands.
var Flags = &GlobalFlags{}

// GlobalFlags holds the global flag values.
type GlobalFlags struct {
	Address     string
	Mechanisms  string
	Output      string
	NoColor     bool
	Verbose     bool
	CallTimeout time.Duration
}

// mechanismByName maps a SASL mechanism's config-file name to its
// implementation. GSSAPI is deliberately excluded: it requires a
// GSSAPIConfig (service principal, keytab) that a bare --mechanisms flag
// cannot carry. The CLI does not construct it from pkg/config either.
func mechanismByName(name string) (sasl.Mechanism, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "external":
		return sasl.External{}, nil
	case "dbus_cookie_sha1", "cookie":
		return sasl.Cookie{}, nil
	case "anonymous":
		return sasl.Anonymous{}, nil
	default:
		return nil, fmt.Errorf("unknown mechanism %q (valid: external, dbus_cookie_sha1, anonymous)", name)
	}
}

// ResolveMechanisms parses a comma-separated mechanism list. An empty
// string returns nil, letting dbus.Dial fall back to its default chain.
func ResolveMechanisms(csv string) ([]sasl.Mechanism, error) {
	names := ParseCommaSeparatedList(csv)
	if len(names) == 0 {
		return nil, nil
	}
	mechs := make([]sasl.Mechanism, 0, len(names))
	for _, n := range names {
		m, err := mechanismByName(n)
		if err != nil {
			return nil, err
		}
		mechs = append(mechs, m)
	}
	return mechs, nil
}

// Dial resolves the bus address and mechanisms to use from, in order, the
// --address/--mechanisms flags, the current saved context, and finally
// pkg/dbus' own session-bus-address fallback, then dials the connection.
func Dial(ctx context.Context) (*dbus.Conn, error) {
	addr := Flags.Address
	mechCSV := Flags.Mechanisms

	if addr == "" {
		store, err := credentials.NewStore()
		if err == nil {
			if cctx, err := store.GetCurrentContext(); err == nil {
				addr = cctx.Address
				if mechCSV == "" {
					mechCSV = strings.Join(cctx.Mechanisms, ",")
				}
			}
		}
	}

	mechs, err := ResolveMechanisms(mechCSV)
	if err != nil {
		return nil, err
	}

	conn, err := dbus.Dial(ctx, dbus.Options{
		Address:     addr,
		Mechanisms:  mechs,
		CallTimeout: Flags.CallTimeout,
	})
	if err != nil {
		return nil, err
	}

	if store, serr := credentials.NewStore(); serr == nil {
		_ = store.UpdateLastUnique(conn.UniqueName())
	}

	return conn, nil
}

// GetOutputFormatParsed returns the parsed output format.
func GetOutputFormatParsed() (output.Format, error) {
	return output.ParseFormat(Flags.Output)
}

// IsColorDisabled returns whether color output is disabled.
func IsColorDisabled() bool {
	return Flags.NoColor
}

// PrintOutput prints data in the specified format (JSON, YAML, or table).
// For table format, it displays emptyMsg if data is empty, otherwise uses
// the tableRenderer.
func PrintOutput(w io.Writer, data any, isEmpty bool, emptyMsg string, tableRenderer output.TableRenderer) error {
	format, err := GetOutputFormatParsed()
	if err != nil {
		return err
	}

	switch format {
	case output.FormatJSON:
		return output.PrintJSON(w, data)
	case output.FormatYAML:
		return output.PrintYAML(w, data)
	default:
		if isEmpty {
			_, _ = fmt.Fprintln(w, emptyMsg)
			return nil
		}
		return output.PrintTable(w, tableRenderer)
	}
}

// PrintSuccess prints a success message if the output format is table.
func PrintSuccess(msg string) {
	format, err := GetOutputFormatParsed()
	if err != nil || format != output.FormatTable {
		return
	}
	printer := output.NewPrinter(os.Stdout, format, !IsColorDisabled())
	printer.Success(msg)
}

// RunDeleteWithConfirmation prompts for confirmation (unless force is
// true) and runs deleteFn.
func RunDeleteWithConfirmation(resourceType, name string, force bool, deleteFn func() error) error {
	confirmed, err := prompt.ConfirmWithForce(fmt.Sprintf("Delete %s '%s'?", resourceType, name), force)
	if err != nil {
		if prompt.IsAborted(err) {
			fmt.Println("\nAborted.")
			return nil
		}
		return err
	}
	if !confirmed {
		fmt.Println("Aborted.")
		return nil
	}

	if err := deleteFn(); err != nil {
		return err
	}

	PrintSuccess(fmt.Sprintf("%s '%s' deleted successfully", resourceType, name))
	return nil
}

// ParseCommaSeparatedList parses a comma-separated string into a slice of
// trimmed strings.
func ParseCommaSeparatedList(s string) []string {
	if s == "" {
		return nil
	}
	var result []string
	for _, item := range strings.Split(s, ",") {
		item = strings.TrimSpace(item)
		if item != "" {
			result = append(result, item)
		}
	}
	return result
}

// BoolToYesNo converts a boolean to "yes" or "no" string.
func BoolToYesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

// HandleAbort checks if err is an abort (Ctrl+C) and prints a message.
// Returns nil for abort (user cancelled), otherwise returns err unchanged.
func HandleAbort(err error) error {
	if prompt.IsAborted(err) {
		fmt.Println("\nAborted.")
		return nil
	}
	return err
}
