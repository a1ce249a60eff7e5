// Command replydesk answers student enquiries that arrive in a shared mailbox.
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

// Global flags.
var (
	logLevel string
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "replydesk",
	Short: "Automatic threaded replies for a student enquiry mailbox",
	Long: `replydesk reads unread mail from the configured mailbox, keeps per-thread
state in Postgres, extracts student details with a language model and sends
threaded replies.

Configuration comes from REPLYDESK_* environment variables. In development a
.env file in the working directory is loaded first.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override REPLYDESK_LOG_LEVEL (debug, info, warn, error)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(runOnceCmd)
	rootCmd.AddCommand(replyCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(AuthCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// printJSON writes v as indented JSON.
func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}
	return nil
}
