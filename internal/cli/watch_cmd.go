package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/LFroesch/voyager/internal/watch"
)

func newWatchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch <dir>...",
		Short: "Stream normalized change events for directories",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			w, err := watch.New()
			if err != nil {
				return err
			}
			defer w.Close()

			for _, dir := range args {
				if err := w.Watch(dir); err != nil {
					return fmt.Errorf("watch %s: %w", dir, err)
				}
			}

			for {
				select {
				case <-rootContext.Done():
					return nil
				case ev, ok := <-w.Events():
					if !ok {
						return nil
					}
					fmt.Printf("%s %s %s\n", ev.At.Format("15:04:05.000"), ev.Kind, ev.Path)
				case err := <-w.Errors():
					fmt.Fprintf(os.Stderr, "watch error: %v\n", err)
				}
			}
		},
	}
}
