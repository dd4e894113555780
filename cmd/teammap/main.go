// Command teammap shows where a team is and who is working during a chosen
// window of the day, headless or in a terminal.
package main

import (
	"fmt"
	"os"

	"github.com/teammap/teammap/internal/config"

	"github.com/spf13/cobra"
)

// Version and BuildDate can be set at build time via ldflags
var (
	Version   = "0.0.1"
	BuildDate = "unknown"
)

// Name prefixes log files and identifies the service to telemetry.
const Name = "teammap"

func main() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// NewRootCmd creates the top-level "teammap" command and registers all
// subcommands.
func NewRootCmd() *cobra.Command {
	var configDir string

	root := &cobra.Command{
		Use:           Name,
		Short:         "Team availability map with a day/night overlay",
		Version:       fmt.Sprintf("%s (built %s)", Version, BuildDate),
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&configDir, "config", ".", "directory containing "+config.FileName)

	root.AddCommand(
		newRunCmd(&configDir),
		newMigrateCmd(&configDir),
		newTerminatorCmd(),
		newSolarCmd(),
		newOffsetCmd(),
	)

	return root
}
