package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var historyCmd = &cobra.Command{
	Use:   "history [session-id]",
	Short: "Show the conversation history of a session",
	Args:  cobra.ExactArgs(1),
	RunE:  runHistory,
}

func init() {
	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, args []string) error {
	h, err := newClient().History(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("load history failed: %w", err)
	}
	if len(h.Turns) == 0 {
		cmd.Printf("No history for session %s.\n", h.SessionID)
		return nil
	}
	for _, turn := range h.Turns {
		cmd.Printf("%s: %s\n", roleLabel(turn.Role), turn.Content)
	}
	return nil
}
