package context

import (
	"context"
	"fmt"
	"time"

	"github.com/marmos91/dittofs/cmd/dbuscli/cmdutil"
	"github.com/marmos91/dittofs/internal/cli/credentials"
	"github.com/marmos91/dittofs/pkg/dbus"
	"github.com/spf13/cobra"
)

var (
	setAddress    string
	setMechanisms string
	setName       string
	setSkipDial   bool
)

var setCmd = &cobra.Command{
	Use:   "set",
	Short: "Create or update a bus connection context",
	Long: `Create or update a saved bus connection context.

By default, dbuscli dials the address to verify it is reachable and the
SASL handshake succeeds before saving the context. Use --skip-dial to save
without connecting, e.g. for a bus that isn't up yet.

Examples:
  # Save the session bus under the name "default" and switch to it
  dbuscli context set --address unix:path=/run/user/1000/bus --name default

  # Save a remote TCP bus using EXTERNAL auth
  dbuscli context set --address tcp:host=dbus.example.com,port=12345 --mechanisms external --name remote`,
	RunE: runContextSet,
}

func init() {
	setCmd.Flags().StringVar(&setAddress, "address", "", "D-Bus server address (required)")
	setCmd.Flags().StringVar(&setMechanisms, "mechanisms", "", "Comma-separated SASL mechanisms to try, in order")
	setCmd.Flags().StringVar(&setName, "name", "", "Context name (defaults to the current context, or \"default\")")
	setCmd.Flags().BoolVar(&setSkipDial, "skip-dial", false, "Save the context without verifying the connection")
}

func runContextSet(cmd *cobra.Command, args []string) error {
	if setAddress == "" {
		return fmt.Errorf("--address is required")
	}

	store, err := credentials.NewStore()
	if err != nil {
		return fmt.Errorf("failed to initialize context store: %w", err)
	}

	name := setName
	if name == "" {
		name = store.GetCurrentContextName()
	}
	if name == "" {
		name = credentials.GenerateContextName(setAddress)
	}

	mechanisms := cmdutil.ParseCommaSeparatedList(setMechanisms)

	var lastUnique string
	if !setSkipDial {
		mechs, err := cmdutil.ResolveMechanisms(setMechanisms)
		if err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		fmt.Printf("Dialing %s...\n", setAddress)
		conn, err := dbus.Dial(ctx, dbus.Options{Address: setAddress, Mechanisms: mechs})
		if err != nil {
			return fmt.Errorf("failed to connect: %w", err)
		}
		lastUnique = conn.UniqueName()
		_ = conn.Close()
	}

	busCtx := &credentials.Context{
		Address:    setAddress,
		Mechanisms: mechanisms,
		LastUnique: lastUnique,
	}

	if err := store.SetContext(name, busCtx); err != nil {
		return fmt.Errorf("failed to save context: %w", err)
	}
	if err := store.UseContext(name); err != nil {
		return fmt.Errorf("failed to set current context: %w", err)
	}

	fmt.Printf("Context %q saved and active\n", name)
	fmt.Printf("Config: %s\n", store.ConfigPath())
	return nil
}
