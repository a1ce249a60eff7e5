package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

// Reply command flags.
var (
	replyMessageID string
	replyBody      string
	replyBodyFile  string
)

var replyCmd = &cobra.Command{
	Use:   "reply",
	Short: "Send a manual threaded reply to a message",
	Long: `Send an operator-written reply to a message. The reply is threaded the same
way automatic replies are (In-Reply-To, References and the provider thread).

Examples:
  replydesk reply --message-id 18c2f1 --body "Your exam is on Monday."
  replydesk reply --message-id 18c2f1 --body-file answer.txt`,
	RunE: runReply,
}

func init() {
	replyCmd.Flags().StringVar(&replyMessageID, "message-id", "", "provider ID of the message to reply to (required)")
	replyCmd.Flags().StringVar(&replyBody, "body", "", "reply text")
	replyCmd.Flags().StringVar(&replyBodyFile, "body-file", "", "read the reply text from a file")
	_ = replyCmd.MarkFlagRequired("message-id")
	replyCmd.MarkFlagsMutuallyExclusive("body", "body-file")
}

// replyText resolves the reply body from the flags.
func replyText() (string, error) {
	body := replyBody
	if replyBodyFile != "" {
		b, err := os.ReadFile(replyBodyFile)
		if err != nil {
			return "", fmt.Errorf("failed to read body file: %w", err)
		}
		body = string(b)
	}
	if strings.TrimSpace(body) == "" {
		return "", errors.New("reply body is empty; use --body or --body-file")
	}
	return body, nil
}

func runReply(cmd *cobra.Command, _ []string) error {
	body, err := replyText()
	if err != nil {
		return err
	}

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

	sent, err := orch.ReplyToMessage(ctx, replyMessageID, body)
	if err != nil {
		return fmt.Errorf("failed to send reply: %w", err)
	}
	return printJSON(cmd.OutOrStdout(), sent)
}
