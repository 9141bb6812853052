package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/marmos91/fss/internal/wire"
)

var readCmd = &cobra.Command{
	Use:   "read <path>",
	Short: "Read a file's contents and print them to stdout",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		replies, err := roundTrip(wire.NewPathMessage(wire.READ, args[0]))
		if err != nil {
			return err
		}
		defer releaseAll(replies)
		if err := finalResult(replies); err != nil {
			return fmt.Errorf("read %s: %w", args[0], err)
		}
		for _, reply := range replies {
			if reply.Kind == wire.GETF {
				_, _ = os.Stdout.Write(reply.Bytes())
			}
		}
		return nil
	},
}
