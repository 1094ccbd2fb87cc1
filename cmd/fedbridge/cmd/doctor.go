package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/hugo-lorenzo-mato/fedbridge/internal/diagnostics"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check the local environment",
	Long:  "Verify configuration, state directory access and provider API reachability.",
	RunE:  runDoctor,
}

var doctorJSON bool

func init() {
	rootCmd.AddCommand(doctorCmd)
	doctorCmd.Flags().BoolVar(&doctorJSON, "json", false, "Output as JSON")
}

func runDoctor(cmd *cobra.Command, _ []string) error {
	cfg, _, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(cfg)

	doctor := diagnostics.NewDoctor(cfg, nil, logger)
	report := doctor.Run(cmd.Context())

	if doctorJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(report); err != nil {
			return err
		}
		if !report.Healthy() {
			return fmt.Errorf("environment check failed")
		}
		return nil
	}

	fmt.Println("Checking environment...")
	fmt.Println()
	for _, check := range report.Checks {
		icon := "✓"
		switch check.Status {
		case diagnostics.StatusWarn:
			icon = "⚠"
		case diagnostics.StatusFail:
			icon = "✗"
		}
		line := fmt.Sprintf("  %s %s", icon, check.Name)
		if check.Detail != "" {
			line += ": " + check.Detail
		}
		fmt.Println(line)
	}

	m := report.Metrics
	fmt.Println()
	fmt.Printf("  cpu: %s (%d cores, %d threads)\n", m.CPUModel, m.CPUCores, m.CPUThreads)
	fmt.Printf("  mem: %.0f/%.0f MB (%.0f%%)\n", m.MemUsedMB, m.MemTotalMB, m.MemPercent)
	fmt.Printf("  disk: %.0f/%.0f GB (%.0f%%)\n", m.DiskUsedGB, m.DiskTotalGB, m.DiskPercent)
	fmt.Println()

	if !report.Healthy() {
		fmt.Println("Fix the failing checks above before running setup steps.")
		return fmt.Errorf("environment check failed")
	}
	fmt.Println("Environment looks good")
	return nil
}
