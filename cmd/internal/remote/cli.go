package remote

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"
)

// Main builds and executes a one-command cobra.Command for a single
// UserAction remote, accepting an optional positional count argument
// (spec §6), and exits the process with a non-zero code on failure.
// Every cmd/<action>/main.go calls this with its own action name,
// matching the teacher's pattern of a shared root command built once
// and reused across many thin entry points (cogentcore.org/core
// cmd/root.go's Execute).
func Main(action string) {
	root := &cobra.Command{
		Use:   action,
		Short: fmt.Sprintf("send the %s remote user action", action),
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			count := 1
			if len(args) == 1 {
				n, err := strconv.Atoi(args[0])
				if err != nil {
					return fmt.Errorf("remote: count argument must be an integer: %w", err)
				}
				count = n
			}
			return SendUserAction(action, count)
		},
	}
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
