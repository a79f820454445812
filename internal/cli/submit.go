package cli

import (
	"context"
	"fmt"
	"time"

	"claimcheck/internal/config"
	"claimcheck/internal/queue"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var sessionID string

var submitCmd = &cobra.Command{
	Use:   "submit [file|-]",
	Short: "Queue a text for verification by a worker",
	Long: `Submit publishes a run request to the Kafka runs topic and prints the
session id. Progress is published by the worker on the progress topic.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runSubmit,
}

func init() {
	rootCmd.AddCommand(submitCmd)
	submitCmd.Flags().StringVar(&sessionID, "session", "", "session id (default: a new UUID)")
}

func runSubmit(cmd *cobra.Command, args []string) error {
	input, err := readInput(args, cmd.InOrStdin())
	if err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if !cfg.KafkaEnabled() {
		return fmt.Errorf("KAFKA_BROKERS is not configured")
	}

	service := queue.NewService(queue.Config{
		Brokers:       cfg.KafkaBrokers,
		RunsTopic:     cfg.KafkaTopicRuns,
		ProgressTopic: cfg.KafkaTopicProgress,
		GroupID:       cfg.KafkaGroupID,
	})
	defer service.Close()

	id := sessionID
	if id == "" {
		id = uuid.New().String()
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
	defer cancel()

	err = service.PublishRunRequest(ctx, queue.RunRequest{
		SessionID:     id,
		Content:       input,
		CorrelationID: uuid.New().String(),
		CreatedAt:     time.Now().UTC(),
	})
	if err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), id)
	return nil
}
