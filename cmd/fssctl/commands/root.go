// Package commands implements the fssctl CLI.
package commands

import (
	"github.com/spf13/cobra"
)

var (
	// Version information injected at build time.
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"

	socketPath string
)

var rootCmd = &cobra.Command{
	Use:   "fssctl",
	Short: "fssctl - command-line client for fss-server",
	Long: `fssctl opens one connection to a running fss-server and issues a
single request over it: create, open, read, write, append, lock, unlock,
or remove a file.

Use "fssctl [command] --help" for more information about a command.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&socketPath, "socket", "/tmp/fss.sock", "AF_UNIX socket path of the fss-server to connect to")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(createCmd)
	rootCmd.AddCommand(openCmd)
	rootCmd.AddCommand(readCmd)
	rootCmd.AddCommand(writeCmd)
	rootCmd.AddCommand(appendCmd)
	rootCmd.AddCommand(closeCmd)
	rootCmd.AddCommand(lockCmd)
	rootCmd.AddCommand(unlockCmd)
	rootCmd.AddCommand(removeCmd)
}
