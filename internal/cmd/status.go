package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status <audit-id>",
	Short: "Show the state of an audit",
	Args:  cobra.ExactArgs(1),
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	_, store, _, cleanup, err := setupEngine()
	if err != nil {
		return err
	}
	defer cleanup()

	audit, err := store.GetAudit(args[0])
	if err != nil {
		return fmt.Errorf("failed to load audit: %w", err)
	}
	frontier, err := store.GetFrontier(args[0])
	if err != nil {
		return fmt.Errorf("failed to load frontier: %w", err)
	}
	pages, err := store.CountPageRecords(args[0])
	if err != nil {
		return fmt.Errorf("failed to count pages: %w", err)
	}

	fmt.Printf("Audit %s\n", audit.ID)
	fmt.Printf("  Domain:       %s\n", audit.Domain)
	if audit.BrandName != "" {
		fmt.Printf("  Brand:        %s\n", audit.BrandName)
	}
	fmt.Printf("  Status:       %s\n", audit.Status)
	fmt.Printf("  Crawled:      %d / %d\n", frontier.CrawledCount, frontier.PageBudget)
	fmt.Printf("  Queue size:   %d\n", len(frontier.Queue))
	fmt.Printf("  Page records: %d\n", pages)
	fmt.Printf("  AI policy:    %t\n", audit.HasAIPolicy)
	fmt.Printf("  Created:      %s\n", audit.CreatedAt.Format("2006-01-02 15:04:05 MST"))
	if frontier.ErrorDetail != "" {
		fmt.Printf("  Error:        %s\n", frontier.ErrorDetail)
	}
	return nil
}
