// clipgate: arbitrated access to the OS clipboard.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
)

// Version is set at build time via -ldflags "-X main.Version=x.y.z".
var Version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "clipgate",
		Short: "Read and write the OS clipboard without racing other programs",
		Long: `clipgate opens the system clipboard the way a well-behaved desktop
application does: one opener per process at a time, a bounded number of
retries while another program holds the clipboard, and a clear "busy" error
when it cannot get in.

Config file search order (first found wins):
  /etc/clipgate/clipgate.toml
  $HOME/.config/clipgate/clipgate.toml
  path supplied via --config

All flags can be set via CLIPGATE_<FLAG> env vars or config-file keys.`,
		SilenceUsage: true,
	}

	root.AddCommand(
		newCopyCmd(),
		newPasteCmd(),
		newProbeCmd(),
		newVersionCmd(),
	)
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "clipgate %s\n", Version)
		},
	}
}
