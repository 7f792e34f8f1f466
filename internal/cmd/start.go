package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pagelens/pagelens/internal/crawler"
)

var startCmd = &cobra.Command{
	Use:   "start <domain>",
	Short: "Create a new audit and seed its crawl frontier",
	Long: `Start creates an audit for the given domain: it fetches the homepage,
crawl policy, and sitemap, builds the initial URL queue, and persists the
frontier in running state. Use "continue" or "run" to make progress.`,
	Args: cobra.ExactArgs(1),
	RunE: runStart,
}

func init() {
	startCmd.Flags().IntP("budget", "b", 0, "Pages to crawl (0 uses the configured default)")
	startCmd.Flags().Bool("allow-subdomains", false, "Treat subdomains of the target as in scope")
	startCmd.Flags().String("brand", "", "Brand name to record on the audit")
	startCmd.Flags().String("owner", "", "Owner identifier to record on the audit")
	rootCmd.AddCommand(startCmd)
}

func runStart(cmd *cobra.Command, args []string) error {
	cfg, store, fetcher, cleanup, err := setupEngine()
	if err != nil {
		return err
	}
	defer cleanup()

	budget, _ := cmd.Flags().GetInt("budget")
	if budget == 0 {
		budget = cfg.PageBudget
	}
	allowSubdomains, _ := cmd.Flags().GetBool("allow-subdomains")
	if !cmd.Flags().Changed("allow-subdomains") {
		allowSubdomains = cfg.AllowSubdomains
	}
	brand, _ := cmd.Flags().GetString("brand")
	owner, _ := cmd.Flags().GetString("owner")

	initializer := crawler.NewInitializer(store, fetcher)
	result, err := initializer.Initialize(cmd.Context(), crawler.InitParams{
		Domain:          args[0],
		BrandName:       brand,
		OwnerID:         owner,
		PageBudget:      budget,
		AllowSubdomains: allowSubdomains,
	})
	if err != nil {
		return fmt.Errorf("failed to start audit: %w", err)
	}

	fmt.Printf("Audit created\n")
	fmt.Printf("  ID:          %s\n", result.AuditID)
	fmt.Printf("  Queue size:  %d\n", result.QueueSize)
	fmt.Printf("  Page budget: %d\n", result.PageBudget)
	return nil
}
