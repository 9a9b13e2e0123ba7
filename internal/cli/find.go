package cli

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/LFroesch/voyager/internal/search"
	"github.com/LFroesch/voyager/internal/utils"
)

func newFindCmd() *cobra.Command {
	var (
		maxDepth   int
		maxResults int
	)

	cmd := &cobra.Command{
		Use:   "find <query> [root]",
		Short: "Fuzzy-search entry paths under a directory tree",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			root := "."
			if len(args) == 2 {
				root = args[1]
			}

			results, err := search.Find(rootContext, root, args[0], search.Options{
				ShowHidden: cfg.ShowHidden,
				MaxDepth:   maxDepth,
				MaxResults: maxResults,
			})
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			for _, r := range results {
				size := "-"
				if !r.IsDir {
					size = utils.FormatFileSize(r.Size)
				}
				fmt.Fprintf(w, "%s\t%s\n", size, r.DisplayName)
			}
			return w.Flush()
		},
	}

	cmd.Flags().IntVar(&maxDepth, "depth", 0, "maximum directory depth")
	cmd.Flags().IntVarP(&maxResults, "max", "n", 0, "maximum results")
	return cmd
}

func newDrivesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "drives",
		Short: "List mounted volumes usable as navigation roots",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			for _, drive := range utils.MountedDrives() {
				fmt.Fprintf(w, "%s\t%s\n", utils.DriveLabel(drive), drive)
			}
			return w.Flush()
		},
	}
}
