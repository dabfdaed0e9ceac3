package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var filesCmd = &cobra.Command{
	Use:   "files",
	Short: "List uploaded documents",
	Args:  cobra.NoArgs,
	RunE:  runFiles,
}

func init() {
	rootCmd.AddCommand(filesCmd)
}

func runFiles(cmd *cobra.Command, _ []string) error {
	files, err := newClient().Files(cmd.Context())
	if err != nil {
		return fmt.Errorf("list files failed: %w", err)
	}
	printFiles(cmd, files)
	return nil
}

func printFiles(cmd *cobra.Command, files []string) {
	if len(files) == 0 {
		cmd.Println("No documents uploaded yet.")
		return
	}
	cmd.Println("Documents:")
	for _, f := range files {
		cmd.Printf("  - %s\n", f)
	}
}
