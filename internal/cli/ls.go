package cli

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/LFroesch/voyager/internal/entry"
	"github.com/LFroesch/voyager/internal/git"
	"github.com/LFroesch/voyager/internal/state"
	"github.com/LFroesch/voyager/internal/utils"
)

func newLsCmd() *cobra.Command {
	var (
		sortBy  string
		query   string
		gitInfo bool
	)

	cmd := &cobra.Command{
		Use:   "ls [dir]",
		Short: "List a directory (or archive) as the engine sees it",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) == 1 {
				dir = args[0]
			}

			mode := cfg.Sort()
			if sortBy != "" {
				mode = entry.ParseSortMode(sortBy)
			}

			man := state.NewManager(state.Options{
				Sort:       mode,
				ShowHidden: cfg.ShowHidden,
			})
			pane, err := man.Open(dir)
			if err != nil {
				return err
			}
			if query != "" {
				man.SetFilter(pane, query)
			}

			var modified map[string]bool
			if gitInfo {
				if branch := git.Branch(pane.Dir()); branch != "" {
					fmt.Printf("branch %s\n", branch)
				}
				modified = git.ModifiedFiles(pane.Dir())
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			snap := pane.Snapshot()
			for _, r := range pane.Results() {
				e, _ := snap.Lookup(r.Path)
				size := "-"
				if e.Size >= 0 {
					size = utils.FormatFileSize(e.Size)
				}
				name := e.Name
				if e.LinkTarget != "" {
					name += " -> " + e.LinkTarget
				}
				mark := " "
				if modified[e.Path] {
					mark = "M"
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
					mark, e.Kind, size, e.ModTime.Format("2006-01-02 15:04"), name)
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVar(&sortBy, "sort", "", "sort mode: name, size, date or type")
	cmd.Flags().StringVarP(&query, "filter", "f", "", "fuzzy filter query")
	cmd.Flags().BoolVar(&gitInfo, "git", false, "mark git-modified entries")
	return cmd
}
