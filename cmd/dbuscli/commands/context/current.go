package context

import (
	"fmt"
	"os"
	"strings"

	"github.com/marmos91/dittofs/internal/cli/output"
	"github.com/spf13/cobra"

	"github.com/marmos91/dittofs/internal/cli/credentials"
)

var currentOutput string

var currentCmd = &cobra.Command{
	Use:   "current",
	Short: "Show the current context",
	Long: `Display information about the current active context.

Examples:
  # Show current context
  dbuscli context current

  # Show as JSON
  dbuscli context current --output json`,
	RunE: runContextCurrent,
}

func init() {
	currentCmd.Flags().StringVarP(&currentOutput, "output", "o", "table", "Output format (table|json|yaml)")
}

func runContextCurrent(cmd *cobra.Command, args []string) error {
	store, err := credentials.NewStore()
	if err != nil {
		return fmt.Errorf("failed to initialize context store: %w", err)
	}

	contextName := store.GetCurrentContextName()
	if contextName == "" {
		return fmt.Errorf("no current context set\n\n" +
			"Create one first:\n" +
			"  dbuscli context set --address unix:path=/run/dbus/system_bus_socket")
	}

	ctx, err := store.GetContext(contextName)
	if err != nil {
		return fmt.Errorf("failed to get context: %w", err)
	}

	info := ContextInfo{
		Name:       contextName,
		Current:    true,
		Address:    ctx.Address,
		Mechanisms: strings.Join(ctx.Mechanisms, ","),
		LastUnique: ctx.LastUnique,
	}

	format, err := output.ParseFormat(currentOutput)
	if err != nil {
		return err
	}

	switch format {
	case output.FormatJSON:
		return output.PrintJSON(os.Stdout, info)
	case output.FormatYAML:
		return output.PrintYAML(os.Stdout, info)
	default:
		fmt.Printf("Current context: %s\n", contextName)
		fmt.Printf("  Address:     %s\n", ctx.Address)
		fmt.Printf("  Mechanisms:  %s\n", info.Mechanisms)
		if ctx.LastUnique != "" {
			fmt.Printf("  Last unique: %s\n", ctx.LastUnique)
		}
	}

	return nil
}
