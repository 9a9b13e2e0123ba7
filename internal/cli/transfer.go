package cli

import (
	"github.com/spf13/cobra"

	"github.com/LFroesch/voyager/internal/ops"
)

func newCpCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cp <source>... <dest-dir>",
		Short: "Copy files or directories into a destination directory",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOp("copying", ops.Request{
				Kind:    ops.OpCopy,
				Sources: args[:len(args)-1],
				DestDir: args[len(args)-1],
			})
		},
	}
}

func newMvCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mv <source>... <dest-dir>",
		Short: "Move files or directories, falling back to copy+delete across devices",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOp("moving", ops.Request{
				Kind:    ops.OpMove,
				Sources: args[:len(args)-1],
				DestDir: args[len(args)-1],
			})
		},
	}
}

func newRenameCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rename <path> <new-name>",
		Short: "Rename an entry within its directory",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOp("renaming", ops.Request{
				Kind:    ops.OpRename,
				Sources: []string{args[0]},
				NewName: args[1],
			})
		},
	}
}
