// Package commands implements the CLI commands for dbuscli.
package commands

import (
	"context"
	"os"

	"github.com/marmos91/dittofs/cmd/dbuscli/cmdutil"
	ctxcmd "github.com/marmos91/dittofs/cmd/dbuscli/commands/context"
	"github.com/marmos91/dittofs/internal/telemetry"
	"github.com/marmos91/dittofs/pkg/config"
	"github.com/spf13/cobra"
)

var (
	// Version information injected at build time.
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"

	// telemetryShutdown flushes and closes the OTLP exporter, set once
	// telemetry has been initialized from a loaded config file.
	telemetryShutdown func(context.Context) error
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "dbuscli",
	Short: "dbuscli - a command-line D-Bus client",
	Long: `dbuscli dials a D-Bus bus (session or system), runs the SASL handshake,
and lets you call methods, inspect connection health, and manage saved
bus contexts from the shell.

Use "dbuscli [command] --help" for more information about a command.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		cmdutil.Flags.Address, _ = cmd.Flags().GetString("address")
		cmdutil.Flags.Mechanisms, _ = cmd.Flags().GetString("mechanisms")
		cmdutil.Flags.Output, _ = cmd.Flags().GetString("output")
		cmdutil.Flags.NoColor, _ = cmd.Flags().GetBool("no-color")
		cmdutil.Flags.Verbose, _ = cmd.Flags().GetBool("verbose")
		cmdutil.Flags.CallTimeout, _ = cmd.Flags().GetDuration("timeout")

		// Tracing is opt-in via the config file; a missing or
		// unreadable config leaves telemetry disabled (Tracer() falls
		// back to a no-op tracer) rather than failing the command.
		if cfg, err := config.Load(""); err == nil && cfg.Telemetry.Enabled {
			shutdown, err := telemetry.Init(cmd.Context(), telemetry.Config{
				Enabled:        cfg.Telemetry.Enabled,
				ServiceName:    cfg.Telemetry.ServiceName,
				ServiceVersion: cfg.Telemetry.ServiceVersion,
				Endpoint:       cfg.Telemetry.Endpoint,
				Insecure:       cfg.Telemetry.Insecure,
				SampleRate:     cfg.Telemetry.SampleRate,
			})
			if err == nil {
				telemetryShutdown = shutdown
			}
		}
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if telemetryShutdown != nil {
			_ = telemetryShutdown(cmd.Context())
		}
	},
}

// Execute adds all child commands to the root command and sets flags
// appropriately.
func Execute() error {
	return rootCmd.Execute()
}

// GetRootCmd returns the root command for testing purposes.
func GetRootCmd() *cobra.Command {
	return rootCmd
}

func init() {
	rootCmd.PersistentFlags().String("address", "", "D-Bus server address (overrides the saved context and $DBUS_SESSION_BUS_ADDRESS)")
	rootCmd.PersistentFlags().String("mechanisms", "", "Comma-separated SASL mechanisms to try, in order (external,dbus_cookie_sha1,anonymous)")
	rootCmd.PersistentFlags().StringP("output", "o", "table", "Output format (table|json|yaml)")
	rootCmd.PersistentFlags().Bool("no-color", false, "Disable colored output")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().Duration("timeout", 0, "Method call timeout (0 waits indefinitely)")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(callCmd)
	rootCmd.AddCommand(introspectCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(ctxcmd.Cmd)
	rootCmd.AddCommand(completionCmd)

	// Hide the default completion command (we provide our own).
	rootCmd.CompletionOptions.DisableDefaultCmd = true
}

// PrintErr prints an error message to stderr.
func PrintErr(format string, args ...any) {
	rootCmd.PrintErrf(format+"\n", args...)
}

// Exit prints an error and exits with code 1.
func Exit(format string, args ...any) {
	PrintErr(format, args...)
	os.Exit(1)
}
