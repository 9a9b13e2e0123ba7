// Package cli provides the command-line interface for voyager.
package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/LFroesch/voyager/internal/config"
	"github.com/LFroesch/voyager/internal/logging"
)

var (
	// Global flags
	verbose    bool
	showHidden bool
	workers    int
	onConflict string

	cfg *config.Config

	// Global context for signal handling
	rootContext context.Context
	cancelFunc  context.CancelFunc
)

// Version is set by the main package at startup.
var Version = "dev"

// NewRootCmd creates the root command.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "voyager",
		Short: "Voyager - keyboard-driven file manager engine",
		Long: `Voyager ` + Version + `
File operations with progress, cancellation and undoable deletes, plus
directory listing and change watching, sharing the engine the
interactive frontend runs on.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if verbose {
				logging.InitConsole(zerolog.DebugLevel)
			} else {
				logging.InitConsole(zerolog.WarnLevel)
			}
			cfg = config.Load()
			if cmd.Flags().Changed("hidden") {
				cfg.ShowHidden = showHidden
			}
			if cmd.Flags().Changed("workers") {
				cfg.Workers = workers
			}
			if cmd.Flags().Changed("on-conflict") {
				cfg.ConflictPolicy = onConflict
			}
		},
	}

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging to stderr")
	rootCmd.PersistentFlags().BoolVarP(&showHidden, "hidden", "a", false, "include hidden entries")
	rootCmd.PersistentFlags().IntVar(&workers, "workers", 0, "concurrent file suboperations")
	rootCmd.PersistentFlags().StringVar(&onConflict, "on-conflict", "", "conflict policy: overwrite, skip or suffix")

	rootCmd.AddCommand(newLsCmd())
	rootCmd.AddCommand(newCpCmd())
	rootCmd.AddCommand(newMvCmd())
	rootCmd.AddCommand(newRmCmd())
	rootCmd.AddCommand(newRenameCmd())
	rootCmd.AddCommand(newWatchCmd())
	rootCmd.AddCommand(newFindCmd())
	rootCmd.AddCommand(newDrivesCmd())
	rootCmd.AddCommand(newBookmarksCmd())

	return rootCmd
}

// Execute runs the CLI with signal-driven cancellation: the first
// interrupt cancels in-flight operations cooperatively.
func Execute() {
	rootContext, cancelFunc = signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancelFunc()

	if err := NewRootCmd().ExecuteContext(rootContext); err != nil {
		os.Exit(1)
	}
}
