package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/marmos91/dittofs/cmd/dbuscli/cmdutil"
	"github.com/marmos91/dittofs/pkg/dbus/types"
	"github.com/spf13/cobra"
)

var introspectCmd = &cobra.Command{
	Use:   "introspect <destination> <path>",
	Short: "Print an object's introspection XML",
	Long: `Introspect calls org.freedesktop.DBus.Introspectable.Introspect on
destination and path and prints the returned XML description of the
object's interfaces, methods, signals and properties.

Example:
  dbuscli introspect org.freedesktop.DBus /org/freedesktop/DBus`,
	Args: cobra.ExactArgs(2),
	RunE: runIntrospect,
}

func runIntrospect(cmd *cobra.Command, args []string) error {
	destination := args[0]
	path := types.ObjectPath(args[1])
	if err := path.Validate(); err != nil {
		return err
	}

	ctx := context.Background()
	if cmdutil.Flags.CallTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cmdutil.Flags.CallTimeout+time.Second)
		defer cancel()
	}

	conn, err := cmdutil.Dial(ctx)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer func() { _ = conn.Close() }()

	reply, err := conn.Call(ctx, destination, path, "org.freedesktop.DBus.Introspectable", "Introspect", nil)
	if err != nil {
		return err
	}
	if len(reply) == 0 {
		return fmt.Errorf("empty introspection reply from %s %s", destination, path)
	}
	xml, ok := reply[0].(string)
	if !ok {
		return fmt.Errorf("unexpected introspection reply type %T", reply[0])
	}
	fmt.Println(xml)
	return nil
}
