package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vdavid/replydesk/internal/models"
)

var runOnceCmd = &cobra.Command{
	Use:   "run-once",
	Short: "Process the unread inbox once and print the report",
	Long: `Run a single pipeline pass over the unread inbox and print the outcome of
every message as JSON.

Examples:
  replydesk run-once
  replydesk run-once | jq '.outcomes[] | select(.state != "replied")'`,
	RunE: runRunOnce,
}

func runRunOnce(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	orch, err := a.newOrchestrator(nil)
	if err != nil {
		return err
	}

	report, err := orch.Run(ctx)
	if err != nil {
		return fmt.Errorf("pipeline run failed: %w", err)
	}

	a.logger.Info().
		Int("replied", report.Count(models.StateReplied)).
		Int("pending", report.Count(models.StateReplyPending)).
		Int("blocked", report.Count(models.StateBlocked)).
		Int("failed", report.Count(models.StateFailed)).
		Msg("Run finished")

	return printJSON(cmd.OutOrStdout(), report)
}
