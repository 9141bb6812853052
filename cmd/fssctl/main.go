// Command fssctl is the command-line client for the fss-server wire
// protocol: open, read, write, append, lock, unlock, and remove files
// over a single AF_UNIX connection.
package main

import (
	"fmt"
	"os"

	"github.com/marmos91/fss/cmd/fssctl/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
