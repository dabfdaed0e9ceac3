// Package cli implements kbctl, a terminal client for the kbqa HTTP API.
package cli

import (
	"time"

	"github.com/spf13/cobra"

	"kbqa/internal/client"
)

const defaultServer = "http://localhost:8000"

var (
	serverURL      string
	requestTimeout time.Duration
)

var rootCmd = &cobra.Command{
	Use:   "kbctl",
	Short: "Terminal client for the knowledge base QA service",
	Long: `kbctl uploads documents to a running kbqa server and asks questions
about them. Use "kbctl chat" for an interactive session.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", defaultServer, "kbqa server base URL")
	rootCmd.PersistentFlags().DurationVar(&requestTimeout, "timeout", client.DefaultTimeout, "request timeout")
}

func Execute() error {
	return rootCmd.Execute()
}

func newClient() *client.Client {
	return client.New(serverURL, requestTimeout)
}
