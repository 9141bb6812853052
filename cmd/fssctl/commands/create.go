package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/marmos91/fss/internal/wire"
)

var createLock bool

var createCmd = &cobra.Command{
	Use:   "create <path>",
	Short: "Create a new file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		flags := wire.FlagCreate
		if createLock {
			flags |= wire.FlagLock
		}
		replies, err := roundTrip(wire.NewOpen(args[0], flags))
		if err != nil {
			return err
		}
		defer releaseAll(replies)
		if err := finalResult(replies); err != nil {
			return fmt.Errorf("create %s: %w", args[0], err)
		}
		fmt.Printf("created %s\n", args[0])
		return nil
	},
}

func init() {
	createCmd.Flags().BoolVar(&createLock, "lock", false, "take the write lock as part of create")
}
