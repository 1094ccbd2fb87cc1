package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hugo-lorenzo-mato/fedbridge/internal/core"
)

var checkCmd = &cobra.Command{
	Use:   "check [step-id]",
	Short: "Verify step completion against the providers",
	Long: `Probe the providers for each step's real-world state without
changing anything. Without arguments, re-checks every automatable step;
with a step id, checks just that one.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runCheckCmd,
}

func init() {
	rootCmd.AddCommand(checkCmd)
}

func runCheckCmd(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	eng, cleanup, err := buildEngine(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	if err := eng.requireDomain(); err != nil {
		return err
	}

	if len(args) == 1 {
		id := core.StepID(args[0])
		if _, ok := eng.registry.Get(id); !ok {
			return fmt.Errorf("unknown step id %q", id)
		}
		result, err := eng.run.RunCheck(ctx, id)
		if err != nil {
			return err
		}
		if result.Completed {
			fmt.Printf("✓ %s completed\n", id)
		} else {
			fmt.Printf("○ %s pending", id)
			if result.Message != "" {
				fmt.Printf(": %s", result.Message)
			}
			fmt.Println()
		}
		return nil
	}

	if err := eng.checker.ManualRefresh(ctx); err != nil {
		return err
	}
	for _, id := range eng.registry.IDs() {
		info, _ := eng.store.StepInfo(id)
		fmt.Printf("%s %s\n", statusIcon(info.Status), id)
	}
	return nil
}

func statusIcon(status core.StepStatus) string {
	switch status {
	case core.StepStatusCompleted:
		return "✓"
	case core.StepStatusFailed:
		return "✗"
	case core.StepStatusInProgress:
		return "…"
	default:
		return "○"
	}
}
