package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile      string
	logLevel     string
	logFormat    string
	flagDomain   string
	flagTenantID string

	// Version info - set via SetVersion()
	appVersion string
	appCommit  string
	appDate    string
)

var rootCmd = &cobra.Command{
	Use:   "fedbridge",
	Short: "Cross-tenant identity federation setup orchestrator",
	Long: `fedbridge walks a Google Workspace domain and a Microsoft Entra
tenant through SAML federation setup: it verifies what already exists,
provisions what is missing, and tracks progress across runs.

Running 'fedbridge' without arguments starts the interactive walkthrough.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runInteractive,
}

func Execute() error {
	return rootCmd.Execute()
}

func SetVersion(version, commit, date string) {
	appVersion = version
	appCommit = commit
	appDate = date
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "",
		"config file (default: .fedbridge.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info",
		"log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "auto",
		"log format (auto, text, json)")
	rootCmd.PersistentFlags().StringVar(&flagDomain, "domain", "",
		"Google Workspace domain to set up")
	rootCmd.PersistentFlags().StringVar(&flagTenantID, "tenant-id", "",
		"Microsoft Entra tenant id")

	// Bind flags to viper (errors are nil when flag exists)
	_ = viper.BindPFlag("log.level", rootCmd.PersistentFlags().Lookup("log-level"))
	_ = viper.BindPFlag("log.format", rootCmd.PersistentFlags().Lookup("log-format"))
	_ = viper.BindPFlag("setup.domain", rootCmd.PersistentFlags().Lookup("domain"))
	_ = viper.BindPFlag("setup.tenant_id", rootCmd.PersistentFlags().Lookup("tenant-id"))
}
