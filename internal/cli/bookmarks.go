package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/LFroesch/voyager/internal/config"
)

func newBookmarksCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bookmarks",
		Short: "List bookmarked directories",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(cfg.Bookmarks) == 0 {
				path, err := config.GetConfigPath()
				if err != nil {
					return err
				}
				fmt.Printf("no bookmarks (edit %s or use 'bookmarks add')\n", path)
				return nil
			}
			for _, b := range cfg.Bookmarks {
				fmt.Println(b)
			}
			return nil
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "add <dir>",
		Short: "Bookmark a directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := filepath.Abs(args[0])
			if err != nil {
				return err
			}
			if info, err := os.Stat(dir); err != nil || !info.IsDir() {
				return fmt.Errorf("not a directory: %s", dir)
			}
			if !cfg.AddBookmark(dir) {
				fmt.Printf("already bookmarked: %s\n", dir)
				return nil
			}
			return config.Save(cfg)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "rm <dir>",
		Short: "Remove a bookmark",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := filepath.Abs(args[0])
			if err != nil {
				return err
			}
			if !cfg.RemoveBookmark(dir) {
				return fmt.Errorf("not bookmarked: %s", dir)
			}
			return config.Save(cfg)
		},
	})

	return cmd
}
