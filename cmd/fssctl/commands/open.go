package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/marmos91/fss/internal/wire"
)

var openLock bool

var openCmd = &cobra.Command{
	Use:   "open <path>",
	Short: "Open an existing file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var flags wire.OpenFlags
		if openLock {
			flags |= wire.FlagLock
		}
		replies, err := roundTrip(wire.NewOpen(args[0], flags))
		if err != nil {
			return err
		}
		defer releaseAll(replies)
		if err := finalResult(replies); err != nil {
			return fmt.Errorf("open %s: %w", args[0], err)
		}
		fmt.Printf("opened %s\n", args[0])
		return nil
	},
}

func init() {
	openCmd.Flags().BoolVar(&openLock, "lock", false, "take the write lock as part of open")
}
