package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/marmos91/fss/internal/wire"
)

var closeCmd = &cobra.Command{
	Use:   "close <path>",
	Short: "Close a file, releasing this connection's open handle",
	Args:  cobra.ExactArgs(1),
	RunE:  simpleOp(wire.CLOSE, "closed"),
}

var lockCmd = &cobra.Command{
	Use:   "lock <path>",
	Short: "Take the write lock on a file, blocking until granted",
	Args:  cobra.ExactArgs(1),
	RunE:  simpleOp(wire.LOCK, "locked"),
}

var unlockCmd = &cobra.Command{
	Use:   "unlock <path>",
	Short: "Release the write lock on a file",
	Args:  cobra.ExactArgs(1),
	RunE:  simpleOp(wire.UNLOCK, "unlocked"),
}

var removeCmd = &cobra.Command{
	Use:   "remove <path>",
	Short: "Remove a file, waking any queued lock waiters with ENOENT",
	Args:  cobra.ExactArgs(1),
	RunE:  simpleOp(wire.REMOVE, "removed"),
}

// simpleOp builds a RunE for the path-only, single-reply kinds (CLOSE,
// LOCK, UNLOCK, REMOVE).
func simpleOp(kind wire.Kind, pastTense string) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		replies, err := roundTrip(wire.NewPathMessage(kind, args[0]))
		if err != nil {
			return err
		}
		defer releaseAll(replies)
		if err := finalResult(replies); err != nil {
			return fmt.Errorf("%s %s: %w", kind, args[0], err)
		}
		fmt.Printf("%s %s\n", pastTense, args[0])
		return nil
	}
}

func releaseAll(replies []*wire.Message) {
	for _, r := range replies {
		wire.ReleaseMessage(r)
	}
}
