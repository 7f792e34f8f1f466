// Package cmd provides the command-line interface for PageLens.
// It handles command parsing, configuration loading, and audit execution.
package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/pagelens/pagelens/internal/config"
	"github.com/pagelens/pagelens/internal/crawler"
	"github.com/pagelens/pagelens/internal/logging"
	"github.com/pagelens/pagelens/internal/storage"
)

var (
	cfgFile   string
	version   string
	buildTime string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "pagelens",
	Short: "A resumable website audit crawler",
	Long: `PageLens crawls a target domain within a fixed page budget, extracts
structural signals from every page, and checkpoints its progress so the
crawl can resume across independent invocations.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		showConfig, _ := cmd.Flags().GetBool("show-config")
		if showConfig {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			return showCurrentConfig(cfg)
		}
		return cmd.Help()
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

// SetVersionInfo sets version information for the CLI
func SetVersionInfo(v, bt string) {
	version = v
	buildTime = bt
	rootCmd.Version = fmt.Sprintf("%s (built %s)", version, buildTime)
}

func init() {
	cobra.OnInitialize(initConfig)

	// Configuration file flag
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./pagelens.yml)")

	// Configuration management flags
	rootCmd.Flags().Bool("show-config", false, "Display current configuration in YAML format and exit")

	// Shared flags
	rootCmd.PersistentFlags().StringP("database", "d", "./pagelens.db", "Path to SQLite database file")
	rootCmd.PersistentFlags().StringP("user-agent", "u", "", "HTTP User-Agent header")
	rootCmd.PersistentFlags().Duration("delay", 200*time.Millisecond, "Minimum delay between requests to one host")
	rootCmd.PersistentFlags().String("log-level", "info", "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().String("log-file", "", "Log file path (default stderr only)")

	bindFlags := []struct {
		viperKey string
		flagName string
	}{
		{"database_path", "database"},
		{"user_agent", "user-agent"},
		{"request_delay", "delay"},
		{"log_level", "log-level"},
		{"log_file", "log-file"},
	}
	for _, bind := range bindFlags {
		if err := viper.BindPFlag(bind.viperKey, rootCmd.PersistentFlags().Lookup(bind.flagName)); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to bind flag %s: %v\n", bind.flagName, err)
		}
	}
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName("pagelens")
	}

	viper.AutomaticEnv()
	viper.SetEnvPrefix("PL")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintf(os.Stderr, "Using config file: %s\n", viper.ConfigFileUsed())
	}
}

// loadConfig resolves the effective configuration from defaults, the config
// file, environment variables, and flags.
func loadConfig() (*config.Config, error) {
	cfg := config.DefaultConfig()
	if err := viper.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = generateUserAgent()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// setupEngine loads configuration, installs logging, and opens the store and
// fetcher every subcommand needs. The returned cleanup releases all of them.
func setupEngine() (*config.Config, *storage.SQLiteStore, *crawler.Fetcher, func(), error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, nil, nil, err
	}

	logCloser, err := logging.Setup(cfg.LogLevel, cfg.LogFile)
	if err != nil {
		return nil, nil, nil, nil, fmt.Errorf("failed to set up logging: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(cfg.DatabasePath), 0750); err != nil {
		_ = logCloser.Close()
		return nil, nil, nil, nil, fmt.Errorf("failed to create database directory: %w", err)
	}
	store, err := storage.NewSQLiteStore(cfg.DatabasePath)
	if err != nil {
		_ = logCloser.Close()
		return nil, nil, nil, nil, fmt.Errorf("failed to open database: %w", err)
	}

	fetcher := crawler.NewFetcher(cfg.UserAgent, cfg.RequestDelay)
	cleanup := func() {
		fetcher.Close()
		_ = store.Close()
		_ = logCloser.Close()
	}
	return cfg, store, fetcher, cleanup, nil
}

func generateUserAgent() string {
	if version != "" && version != "dev" {
		return fmt.Sprintf("PageLens/%s (+https://pagelens.dev/bot)", version)
	}
	return crawler.DefaultUserAgent
}

func showCurrentConfig(cfg *config.Config) error {
	yamlData, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal configuration to YAML: %w", err)
	}

	fmt.Printf("# Current PageLens Configuration\n")
	fmt.Printf("# Generated at: %s\n", time.Now().Format(time.RFC3339))
	fmt.Printf("# Configuration file search paths: ./pagelens.yml\n")
	fmt.Printf("# Environment variables prefix: PL_\n\n")
	fmt.Print(string(yamlData))
	return nil
}
