package cli

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"kbqa/internal/client"
)

var askSession string

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask one question about the uploaded documents",
	Long: `Asks a single question. Pass --session to continue an earlier
conversation; without it a fresh session id is generated and printed.`,
	Args: cobra.ExactArgs(1),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().StringVarP(&askSession, "session", "s", "", "session id to continue")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	sessionID := askSession
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	ans, err := newClient().Ask(cmd.Context(), args[0], sessionID)
	if client.IsNotice(err) {
		cmd.Println(noticeStyle.Render(err.Error()))
		return nil
	}
	if err != nil {
		return fmt.Errorf("ask failed: %w", err)
	}

	cmd.Println(ans.Answer)
	cmd.Println()
	cmd.Println(dimStyle.Render(fmt.Sprintf("session %s, %d sources", ans.SessionID, ans.SourceCount)))
	return nil
}
