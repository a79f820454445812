package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"claimcheck/internal/config"
	"claimcheck/internal/models"
	"claimcheck/internal/pipeline"
	"claimcheck/internal/services"

	"github.com/spf13/cobra"
)

var (
	timeout      time.Duration
	showProgress bool
)

var checkCmd = &cobra.Command{
	Use:   "check [file|-]",
	Short: "Verify the claims in a text",
	Long: `Check extracts the claims of a text, gathers evidence for each one and
prints the verdicts. The text is read from the file argument, or from stdin
when the argument is "-" or missing.

Example:
  claimcheck check article.txt
  echo "The Eiffel Tower is 324 meters tall." | claimcheck check -o json`,
	Args: cobra.MaximumNArgs(1),
	RunE: runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)
	addRunFlags(checkCmd)
}

func addRunFlags(cmd *cobra.Command) {
	cmd.Flags().DurationVar(&timeout, "timeout", 5*time.Minute, "overall run timeout")
	cmd.Flags().BoolVar(&showProgress, "progress", false, "print claim progress to stderr")
}

func runCheck(cmd *cobra.Command, args []string) error {
	input, err := readInput(args, cmd.InOrStdin())
	if err != nil {
		return err
	}

	state, err := verify(cmd, input)
	if err != nil && state.Status == "" {
		return err
	}

	if renderErr := Render(cmd.OutOrStdout(), NewReport(state), output); renderErr != nil {
		return renderErr
	}
	if state.Status == models.RunFailed {
		return fmt.Errorf("run failed: %s", state.Error)
	}
	return nil
}

// verify runs the whole pipeline in process
func verify(cmd *cobra.Command, input string) (models.RunState, error) {
	cfg, err := config.Load()
	if err != nil {
		return models.RunState{}, err
	}

	components, err := services.BuildComponents(cfg)
	if err != nil {
		return models.RunState{}, err
	}
	defer components.Close()

	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	var observers []pipeline.Observer
	if showProgress {
		observers = append(observers, progressPrinter(cmd.ErrOrStderr()))
	}

	return components.Orchestrator.Run(ctx, "", input, observers...)
}

func progressPrinter(w io.Writer) pipeline.Observer {
	return pipeline.ObserverFunc(func(state models.RunState) {
		counts := state.Counts()
		fmt.Fprintf(w, "%s: %d/%d claims done\n", state.Status, counts.Success+counts.Error, len(state.Claims))
	})
}

func readInput(args []string, stdin io.Reader) (string, error) {
	var (
		data []byte
		err  error
	)
	if len(args) == 0 || args[0] == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(args[0])
	}
	if err != nil {
		return "", fmt.Errorf("failed to read input: %w", err)
	}
	if strings.TrimSpace(string(data)) == "" {
		return "", fmt.Errorf("input is empty")
	}
	return string(data), nil
}
