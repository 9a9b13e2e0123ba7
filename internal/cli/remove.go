package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/LFroesch/voyager/internal/fileops"
	"github.com/LFroesch/voyager/internal/ops"
)

func newRmCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rm <path>...",
		Short: "Move entries to the backup location",
		Long: `Deletes are non-destructive: entries move to the backup directory
and the printed backup paths can be restored by copying them back.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			backup, err := fileops.NewBackup(cfg.BackupDir)
			if err != nil {
				return err
			}

			bar := newOpProgress("deleting")
			sched := ops.NewScheduler(backup, ops.Options{
				Workers:    cfg.Workers,
				OnProgress: bar.update,
			})
			go func() {
				for range sched.Results() {
				}
			}()

			rec, err := sched.Submit(ops.Request{Kind: ops.OpDelete, Sources: args})
			if err != nil {
				return err
			}
			go func() {
				<-rootContext.Done()
				rec.Cancel()
			}()
			<-rec.Done()
			bar.finish()

			for _, it := range rec.Items() {
				if it.Status == ops.StatusCompleted && it.BackupPath != "" {
					fmt.Fprintf(os.Stderr, "%s -> %s\n", it.Source, it.BackupPath)
				}
			}
			return reportManifest(rec)
		},
	}
	return cmd
}
