package cli

import (
	"fmt"

	"claimcheck/internal/models"

	"github.com/spf13/cobra"
)

var fixCmd = &cobra.Command{
	Use:   "fix [file|-]",
	Short: "Verify a text and print it with every refuted claim corrected",
	Long: `Fix runs the same pipeline as check, then accepts the correction of each
refuted claim in the order they appear in the text and prints the result.
With --output json or yaml the verdicts are printed along with the corrected text.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runFix,
}

func init() {
	rootCmd.AddCommand(fixCmd)
	addRunFlags(fixCmd)
}

func runFix(cmd *cobra.Command, args []string) error {
	input, err := readInput(args, cmd.InOrStdin())
	if err != nil {
		return err
	}

	state, err := verify(cmd, input)
	if err != nil && state.Status == "" {
		return err
	}
	if state.Status == models.RunFailed {
		return fmt.Errorf("run failed: %s", state.Error)
	}

	report := NewReport(state)
	report.Buffer, report.Fixed = ApplyFixes(input, state.Claims)
	fmt.Fprintf(cmd.ErrOrStderr(), "%d of %d claims corrected\n", len(report.Fixed), len(state.Claims))

	return Render(cmd.OutOrStdout(), report, output)
}
