package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pagelens/pagelens/internal/crawler"
)

var continueCmd = &cobra.Command{
	Use:   "continue <audit-id>",
	Short: "Run one continuation step of an audit crawl",
	Long: `Continue loads the crawl frontier, processes one bounded batch of URLs,
and persists the updated frontier. Invoke it repeatedly until the crawl
reports done.`,
	Args: cobra.ExactArgs(1),
	RunE: runContinue,
}

func init() {
	rootCmd.AddCommand(continueCmd)
}

func runContinue(cmd *cobra.Command, args []string) error {
	_, store, fetcher, cleanup, err := setupEngine()
	if err != nil {
		return err
	}
	defer cleanup()

	worker := crawler.NewWorker(store, fetcher)
	progress, err := worker.Continue(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("continuation failed: %w", err)
	}

	printProgress(progress)
	return nil
}

func printProgress(progress *crawler.Progress) {
	fmt.Printf("Audit %s\n", progress.AuditID)
	fmt.Printf("  Crawled:    %d / %d\n", progress.CrawledCount, progress.PageBudget)
	fmt.Printf("  Queue size: %d\n", progress.QueueSize)
	fmt.Printf("  This batch: %d\n", progress.PagesThisBatch)
	if progress.Done {
		if progress.ErrorDetail != "" {
			fmt.Printf("  State:      error (%s)\n", progress.ErrorDetail)
		} else {
			fmt.Printf("  State:      done\n")
		}
	} else {
		fmt.Printf("  State:      running\n")
	}
}
