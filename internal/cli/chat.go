package cli

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"kbqa/internal/client"
	"kbqa/internal/model"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start an interactive question and answer session",
	Long: `Reads questions from standard input until "/quit" or end of input.
All questions share one session id, so follow-ups see earlier turns.

Commands inside the loop:
  /upload <file>   upload a document
  /files           list uploaded documents
  /quit            leave`,
	Args: cobra.NoArgs,
	RunE: runChat,
}

func init() {
	rootCmd.AddCommand(chatCmd)
}

func runChat(cmd *cobra.Command, _ []string) error {
	c := newClient()
	sessionID := uuid.NewString()
	cmd.Println(dimStyle.Render(fmt.Sprintf("connected to %s, session %s", c.BaseURL(), sessionID)))

	scanner := bufio.NewScanner(cmd.InOrStdin())
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for {
		cmd.Print(userStyle.Render("you") + "> ")
		if !scanner.Scan() {
			cmd.Println()
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		switch {
		case line == "":
			continue
		case line == "/quit" || line == "/exit":
			return nil
		case line == "/files":
			files, err := c.Files(cmd.Context())
			if err != nil {
				cmd.PrintErrln("list files failed:", err)
				continue
			}
			printFiles(cmd, files)
		case strings.HasPrefix(line, "/upload"):
			path := strings.TrimSpace(strings.TrimPrefix(line, "/upload"))
			if path == "" {
				cmd.PrintErrln("usage: /upload <file>")
				continue
			}
			res, err := c.Upload(cmd.Context(), path)
			if err != nil {
				cmd.PrintErrln("upload failed:", err)
				continue
			}
			cmd.Println(res.Message)
		default:
			ans, err := c.Ask(cmd.Context(), line, sessionID)
			if client.IsNotice(err) {
				cmd.Println(noticeStyle.Render(err.Error()))
				continue
			}
			if err != nil {
				cmd.PrintErrln("ask failed:", err)
				continue
			}
			cmd.Printf("%s: %s\n", roleLabel(model.RoleAssistant), ans.Answer)
		}
	}
}
