package cmd

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/pagelens/pagelens/internal/crawler"
)

var runCmd = &cobra.Command{
	Use:   "run <audit-id>",
	Short: "Continue an audit crawl until it finishes",
	Long: `Run repeats continuation steps with a pause between them until the
crawl reaches a terminal state. Interrupting it is safe: the frontier is
persisted after every step and a later run picks up where it stopped.`,
	Args: cobra.ExactArgs(1),
	RunE: runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, store, fetcher, cleanup, err := setupEngine()
	if err != nil {
		return err
	}
	defer cleanup()

	worker := crawler.NewWorker(store, fetcher)
	ctx := cmd.Context()

	for {
		progress, err := worker.Continue(ctx, args[0])
		if err != nil {
			// Another invocation got there first; its step counts too.
			if errors.Is(err, crawler.ErrFrontierConflict) {
				continue
			}
			return fmt.Errorf("continuation failed: %w", err)
		}
		printProgress(progress)
		if progress.Done {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(cfg.RunInterval):
		}
	}
}
