package cmd

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/hugo-lorenzo-mato/fedbridge/internal/tui"
)

var interactiveCmd = &cobra.Command{
	Use:   "interactive",
	Short: "Start the interactive setup walkthrough",
	Long: `Walk through the federation setup in the terminal: live step
statuses, per-step check and execute, and rendered instructions for the
manual steps.`,
	RunE: runInteractive,
}

func init() {
	rootCmd.AddCommand(interactiveCmd)
}

func runInteractive(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	eng, cleanup, err := buildEngine(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	if err := eng.requireDomain(); err != nil {
		return err
	}

	model := tui.New(eng.registry, eng.store, eng.run, eng.bus, eng.logger)
	program := tea.NewProgram(model, tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("running walkthrough: %w", err)
	}
	return nil
}
