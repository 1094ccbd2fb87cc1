package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hugo-lorenzo-mato/fedbridge/internal/core"
)

var runCmd = &cobra.Command{
	Use:   "run [step-id]",
	Short: "Execute pending setup steps",
	Long: `Execute setup steps against the providers.

Without arguments, runs every pending automatable step in order and
stops at the first failure. With a step id, executes just that step --
including supervised steps that the full run skips.

Requires FEDBRIDGE_GOOGLE_TOKEN and FEDBRIDGE_MICROSOFT_TOKEN in the
environment.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
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
		result, err := eng.run.HandleExecute(ctx, id)
		if err != nil {
			return err
		}
		if !result.Success {
			if result.Error != nil {
				return fmt.Errorf("%s failed: %s", id, result.Error.Message)
			}
			return fmt.Errorf("%s failed", id)
		}
		fmt.Printf("✓ %s completed\n", id)
		return nil
	}

	if err := eng.run.RunAllPending(ctx); err != nil {
		if current := eng.errs.Current(); current != nil {
			return fmt.Errorf("run stopped: %s", current.Message)
		}
		return err
	}
	fmt.Println("All pending steps completed")
	return nil
}
