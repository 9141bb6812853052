// Package commands implements the fss-server CLI.
package commands

import (
	"github.com/spf13/cobra"
)

var (
	// Version information injected at build time.
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"

	cfgFile string
)

var rootCmd = &cobra.Command{
	Use:   "fss-server",
	Short: "fss-server - in-memory content-addressable file storage daemon",
	Long: `fss-server hosts a single-host, in-memory file storage engine behind
an AF_UNIX socket. Clients open, read, write, lock, and remove files over a
small binary protocol; the server bounds memory with FIFO eviction that
skips locked files and grants exclusive per-file locks to waiters in FIFO
order.

Use "fss-server [command] --help" for more information about a command.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $XDG_CONFIG_HOME/fss/config.yaml)")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(startCmd)
	rootCmd.AddCommand(initCmd)
}

// GetConfigFile returns the config file path from the global flag.
func GetConfigFile() string {
	return cfgFile
}
