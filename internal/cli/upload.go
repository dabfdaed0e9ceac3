package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var uploadCmd = &cobra.Command{
	Use:   "upload [file]",
	Short: "Upload a document to the knowledge base",
	Long:  `Uploads a PDF, DOCX or plain text file. The server chunks, embeds and indexes it.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runUpload,
}

func init() {
	rootCmd.AddCommand(uploadCmd)
}

func runUpload(cmd *cobra.Command, args []string) error {
	res, err := newClient().Upload(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("upload failed: %w", err)
	}
	cmd.Println(res.Message)
	cmd.Println(dimStyle.Render(fmt.Sprintf("%d chunks indexed", res.Chunks)))
	return nil
}
