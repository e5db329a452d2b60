// Package context implements context management subcommands for dbuscli.
package context

import (
	"github.com/spf13/cobra"
)

// Cmd is the context subcommand.
var Cmd = &cobra.Command{
	Use:   "context",
	Short: "Manage saved bus connection contexts",
	Long: `Manage named bus connection contexts, similar to kubectl contexts.

A context remembers a bus address and the SASL mechanisms to try when
dialing it, so commands like "dbuscli call" and "dbuscli status" don't
need --address/--mechanisms repeated on every invocation.

Subcommands:
  set      Create or update a context
  list     List all configured contexts
  use      Switch to a different context
  current  Show the current context
  rename   Rename a context
  delete   Delete a context`,
}

func init() {
	Cmd.AddCommand(setCmd)
	Cmd.AddCommand(listCmd)
	Cmd.AddCommand(useCmd)
	Cmd.AddCommand(currentCmd)
	Cmd.AddCommand(renameCmd)
	Cmd.AddCommand(deleteCmd)
}
