package context

import (
	"fmt"
	"os"
	"strings"

	"github.com/marmos91/dittofs/cmd/dbuscli/cmdutil"
	"github.com/marmos91/dittofs/internal/cli/credentials"
	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List all configured contexts",
	Long: `List all configured bus connection contexts.

Shows the context name, bus address, and mechanisms for each saved
context. The current context is marked with an asterisk (*).

Examples:
  # List contexts as table
  dbuscli context list

  # List as JSON
  dbuscli context list -o json`,
	RunE: runContextList,
}

// ContextInfo represents context information for output.
type ContextInfo struct {
	Name       string `json:"name" yaml:"name"`
	Current    bool   `json:"current" yaml:"current"`
	Address    string `json:"address" yaml:"address"`
	Mechanisms string `json:"mechanisms,omitempty" yaml:"mechanisms,omitempty"`
	LastUnique string `json:"last_unique_name,omitempty" yaml:"last_unique_name,omitempty"`
}

// ContextList is a list of contexts for table rendering.
type ContextList []ContextInfo

// Headers implements output.TableRenderer.
func (cl ContextList) Headers() []string {
	return []string{"", "NAME", "ADDRESS", "MECHANISMS", "LAST UNIQUE NAME"}
}

// Rows implements output.TableRenderer.
func (cl ContextList) Rows() [][]string {
	rows := make([][]string, 0, len(cl))
	for _, c := range cl {
		current := ""
		if c.Current {
			current = "*"
		}
		rows = append(rows, []string{current, c.Name, c.Address, c.Mechanisms, c.LastUnique})
	}
	return rows
}

func runContextList(cmd *cobra.Command, args []string) error {
	store, err := credentials.NewStore()
	if err != nil {
		return fmt.Errorf("failed to initialize context store: %w", err)
	}

	contextNames := store.ListContexts()
	currentContext := store.GetCurrentContextName()

	contexts := make(ContextList, 0, len(contextNames))
	for _, name := range contextNames {
		ctx, err := store.GetContext(name)
		if err != nil {
			continue
		}

		contexts = append(contexts, ContextInfo{
			Name:       name,
			Current:    name == currentContext,
			Address:    ctx.Address,
			Mechanisms: strings.Join(ctx.Mechanisms, ","),
			LastUnique: ctx.LastUnique,
		})
	}

	return cmdutil.PrintOutput(os.Stdout, contexts, len(contexts) == 0, "No contexts configured. Use 'dbuscli context set --address <addr>' to create one.", contexts)
}
