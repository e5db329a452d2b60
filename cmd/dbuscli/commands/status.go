package commands

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/marmos91/dittofs/cmd/dbuscli/cmdutil"
	"github.com/marmos91/dittofs/internal/cli/health"
	"github.com/marmos91/dittofs/internal/cli/output"
	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show connection health",
	Long: `Status dials the configured bus, sends a Peer.Ping, and reports the
connection's state and round-trip latency.

Examples:
  # Check the current context's bus
  dbuscli status

  # Output as JSON
  dbuscli status -o json`,
	RunE: runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	resp := health.Response{Timestamp: time.Now().UTC().Format(time.RFC3339)}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	conn, err := cmdutil.Dial(ctx)
	if err != nil {
		resp.Status = "disconnected"
		resp.Error = err.Error()
		return printStatus(resp)
	}
	defer func() { _ = conn.Close() }()

	resp.Data.Address = cmdutil.Flags.Address
	resp.Data.UniqueName = conn.UniqueName()
	resp.Data.State = conn.State().String()

	start := time.Now()
	_, pingErr := conn.Call(ctx, "org.freedesktop.DBus", "/org/freedesktop/DBus", "org.freedesktop.DBus.Peer", "Ping", nil)
	resp.Data.LastProbeAt = time.Now().UTC().Format(time.RFC3339)
	resp.Data.LastProbeDurationMs = time.Since(start).Milliseconds()

	if pingErr != nil {
		resp.Status = "degraded"
		resp.Data.ConsecutiveFailures = 1
		resp.Error = pingErr.Error()
	} else {
		resp.Status = "healthy"
	}

	return printStatus(resp)
}

func printStatus(resp health.Response) error {
	format, err := cmdutil.GetOutputFormatParsed()
	if err != nil {
		return err
	}

	switch format {
	case output.FormatJSON:
		return output.PrintJSON(os.Stdout, resp)
	case output.FormatYAML:
		return output.PrintYAML(os.Stdout, resp)
	default:
		printStatusTable(resp)
		return nil
	}
}

func printStatusTable(resp health.Response) {
	fmt.Println()
	fmt.Println("Connection Status")
	fmt.Println("==================")
	fmt.Println()

	switch resp.Status {
	case "healthy":
		fmt.Printf("  Status:       \033[32m● %s\033[0m\n", resp.Status)
	case "disconnected":
		fmt.Printf("  Status:       \033[31m○ %s\033[0m\n", resp.Status)
	default:
		fmt.Printf("  Status:       \033[33m● %s\033[0m\n", resp.Status)
	}

	if resp.Data.Address != "" {
		fmt.Printf("  Address:      %s\n", resp.Data.Address)
	}
	if resp.Data.UniqueName != "" {
		fmt.Printf("  Unique name:  %s\n", resp.Data.UniqueName)
	}
	if resp.Data.State != "" {
		fmt.Printf("  State:        %s\n", resp.Data.State)
	}
	if resp.Data.LastProbeDurationMs > 0 {
		fmt.Printf("  Ping latency: %dms\n", resp.Data.LastProbeDurationMs)
	}
	if resp.Error != "" {
		fmt.Printf("  Error:        %s\n", resp.Error)
	}
	fmt.Println()
}
