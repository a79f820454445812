package cli

import (
	"fmt"

	"claimcheck/internal/config"
	"claimcheck/internal/logger"

	"github.com/spf13/cobra"
)

var (
	logLevel string
	output   string
)

var rootCmd = &cobra.Command{
	Use:   "claimcheck",
	Short: "Extract factual claims from text and verify them against web evidence",
	Long: `claimcheck extracts checkable claims from a text, searches the web for
evidence on each one and asks a language model whether the evidence supports
or refutes it. Refuted claims come with a corrected version of the sentence.

Provider keys and pipeline settings are read from the environment or a .env file.`,
	SilenceErrors: true,
	SilenceUsage:  true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logger.SetLevel(logLevel)
	},
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "claimcheck v%s\n", config.Version)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "WARN", "log level (DEBUG, INFO, WARN, ERROR)")
	rootCmd.PersistentFlags().StringVarP(&output, "output", "o", "text", "output format: text, json or yaml")

	rootCmd.AddCommand(versionCmd)
}
