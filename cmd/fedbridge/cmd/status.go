package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/hugo-lorenzo-mato/fedbridge/internal/core"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show setup progress",
	Long:  "Display per-step status and the accumulated outputs for the configured domain.",
	RunE:  runStatus,
}

var (
	statusJSON bool
	statusYAML bool
)

func init() {
	rootCmd.AddCommand(statusCmd)
	statusCmd.Flags().BoolVar(&statusJSON, "json", false, "Output as JSON")
	statusCmd.Flags().BoolVar(&statusYAML, "yaml", false, "Output as YAML")
}

// statusExport is the machine-readable shape of setup progress.
type statusExport struct {
	Domain   string                 `json:"domain" yaml:"domain"`
	TenantID string                 `json:"tenant_id" yaml:"tenant_id"`
	Steps    []stepExport           `json:"steps" yaml:"steps"`
	Outputs  map[string]interface{} `json:"outputs" yaml:"outputs"`
}

type stepExport struct {
	ID            core.StepID         `json:"id" yaml:"id"`
	Title         string              `json:"title" yaml:"title"`
	Provider      core.Provider       `json:"provider" yaml:"provider"`
	Status        core.StepStatus     `json:"status" yaml:"status"`
	Completion    core.CompletionType `json:"completion_type,omitempty" yaml:"completion_type,omitempty"`
	LastCheckedAt *time.Time          `json:"last_checked_at,omitempty" yaml:"last_checked_at,omitempty"`
	Error         string              `json:"error,omitempty" yaml:"error,omitempty"`
	ResourceURL   string              `json:"resource_url,omitempty" yaml:"resource_url,omitempty"`
}

func runStatus(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	eng, cleanup, err := buildEngine(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	if err := eng.requireDomain(); err != nil {
		return err
	}

	export := statusExport{
		Domain:   eng.store.Domain(),
		TenantID: eng.store.TenantID(),
		Outputs:  eng.store.Outputs(),
	}
	for _, def := range eng.registry.Definitions() {
		info, _ := eng.store.StepInfo(def.ID)
		if info.Status == "" {
			info.Status = core.StepStatusPending
		}
		se := stepExport{
			ID:            def.ID,
			Title:         def.Title,
			Provider:      def.Provider,
			Status:        info.Status,
			Completion:    info.CompletionType,
			LastCheckedAt: info.LastCheckedAt,
			Error:         info.Error,
		}
		if info.Metadata != nil {
			se.ResourceURL = info.Metadata.ResourceURL
		}
		export.Steps = append(export.Steps, se)
	}

	switch {
	case statusJSON:
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(export)
	case statusYAML:
		enc := yaml.NewEncoder(os.Stdout)
		defer enc.Close()
		return enc.Encode(export)
	}

	fmt.Printf("Domain: %s\n", export.Domain)
	if export.TenantID != "" {
		fmt.Printf("Tenant: %s\n", export.TenantID)
	}
	fmt.Println()

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "STEP\tPROVIDER\tSTATUS\tLAST CHECKED")
	fmt.Fprintln(w, "----\t--------\t------\t------------")
	for _, se := range export.Steps {
		checked := "-"
		if se.LastCheckedAt != nil {
			checked = se.LastCheckedAt.Format(time.RFC3339)
		}
		status := string(se.Status)
		if se.Completion == core.CompletionUserMarked {
			status += " (user)"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", se.ID, se.Provider, status, checked)
	}
	w.Flush()

	if len(export.Outputs) > 0 {
		fmt.Printf("\n%d accumulated outputs (use --json or --yaml to export)\n", len(export.Outputs))
	}
	return nil
}
