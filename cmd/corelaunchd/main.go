// Command corelaunchd is the composition root for the core launcher
// engine: it wires the platform probe, auth store, profile resolver,
// download/assets/mods layers, launch orchestrator, and process
// supervisor behind a small set of cobra subcommands. It owns no engine
// logic itself — every decision it makes is a direct call into the
// internal packages that do.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

var (
	dataDir string
	logger  *slog.Logger
)

func main() {
	logger = slog.Default()
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "corelaunchd:", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "corelaunchd",
		Short: "Core launcher engine: auth, resolve, materialise, launch",
	}
	root.PersistentFlags().StringVar(&dataDir, "data-dir", "", "override the engine's data directory (default: platform-specific)")

	root.AddCommand(loginCmd())
	root.AddCommand(accountsCmd())
	root.AddCommand(launchCmd())
	return root
}
