package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	multichecksum "github.com/Eliorco/Multichecksum/internal/walk"
	"github.com/spf13/cobra"
)

var (
	// Watch command options
	watchDebounce time.Duration
	watchTimeout  time.Duration
)

// watchCmd represents the watch command
var watchCmd = &cobra.Command{
	Use:   "watch [path]",
	Short: "Recompute checksums whenever the tree changes",
	Long: `Run a checksum inventory, then run it again every time a file or directory
under the tree is created, modified, renamed or removed. Each run is rendered
in full; runs are not compared with each other.

Examples:
  multichecksum watch /path/to/watch
  multichecksum watch --format=text --debounce=1s /path/to/watch
  multichecksum watch --mode=sequential --timeout=10m /path/to/watch`,
	Args:         cobra.MaximumNArgs(1),
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		// Get the directory to watch
		var watchDir string
		if len(args) > 0 {
			watchDir = args[0]
		} else {
			var err error
			watchDir, err = os.Getwd()
			if err != nil {
				return fmt.Errorf("error getting current directory: %w", err)
			}
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()

		walker, err := walkerFromConfig(cmd.ErrOrStderr())
		if err != nil {
			return err
		}

		fmt.Fprintf(cmd.ErrOrStderr(), "Watching %s for changes...\n", watchDir)
		fmt.Fprintln(cmd.ErrOrStderr(), "Press Ctrl+C to exit.")

		opts := multichecksum.WatchOptions{
			Debounce: watchDebounce,
			Timeout:  watchTimeout,
		}
		return multichecksum.Watch(ctx, watchDir, walker, opts,
			func(ctx context.Context, report *multichecksum.RunReport, err error) error {
				if err != nil {
					// A failed run is reported, the next change triggers another.
					fmt.Fprintf(cmd.ErrOrStderr(), "Error: %v\n", err)
					return nil
				}
				return render(cmd.OutOrStdout(), report)
			})
	},
}

func init() {
	rootCmd.AddCommand(watchCmd)

	// Define flags for the watch command
	watchCmd.Flags().DurationVar(&watchDebounce, "debounce", multichecksum.DefaultDebounce, "Quiet period after a change before re-running")
	watchCmd.Flags().DurationVar(&watchTimeout, "timeout", 0, "Duration to watch before exiting (e.g., 1h, 30m)")
}
