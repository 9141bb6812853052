// Command fss-server runs the FSS daemon: load configuration, bind the
// AF_UNIX socket, and serve requests until asked to stop.
package main

import (
	"fmt"
	"os"

	"github.com/marmos91/fss/cmd/fss-server/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
