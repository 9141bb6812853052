package commands

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/marmos91/fss/internal/wire"
)

var writeData string

var writeCmd = &cobra.Command{
	Use:   "write <path>",
	Short: "Overwrite a file's contents",
	Long:  "Overwrite a file's contents with --data, or with stdin when --data is omitted.",
	Args:  cobra.ExactArgs(1),
	RunE:  func(cmd *cobra.Command, args []string) error { return writeOrAppend(wire.WRITE, args[0]) },
}

var appendCmd = &cobra.Command{
	Use:   "append <path>",
	Short: "Append to a file's contents",
	Long:  "Append to a file's contents with --data, or with stdin when --data is omitted.",
	Args:  cobra.ExactArgs(1),
	RunE:  func(cmd *cobra.Command, args []string) error { return writeOrAppend(wire.APPEND, args[0]) },
}

func init() {
	writeCmd.Flags().StringVar(&writeData, "data", "", "data to write (reads stdin if omitted)")
	appendCmd.Flags().StringVar(&writeData, "data", "", "data to append (reads stdin if omitted)")
}

func writeOrAppend(kind wire.Kind, path string) error {
	buf := []byte(writeData)
	if writeData == "" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return fmt.Errorf("read stdin: %w", err)
		}
		buf = data
	}

	replies, err := roundTrip(wire.NewWriteOrAppend(kind, path, buf))
	if err != nil {
		return err
	}
	defer releaseAll(replies)

	if err := finalResult(replies); err != nil {
		return fmt.Errorf("%s %s: %w", kind, path, err)
	}
	for _, reply := range replies {
		if reply.Kind == wire.GETF {
			fmt.Printf("evicted %s (%d bytes)\n", reply.Path(), len(reply.Bytes()))
		}
	}
	fmt.Printf("wrote %d bytes to %s\n", len(buf), path)
	return nil
}
