package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/thruflo/wordcloud/internal/client"
)

var (
	resetServer  string
	resetTimeout time.Duration
)

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Clear the word cloud on a running server",
	Long: `Clears every word, connection and the submission counter on a running
server. Every connected participant immediately receives the empty cloud.

Example:
  wordcloud reset
  wordcloud reset --server http://wordcloud.local:3000`,
	Args: cobra.NoArgs,
	RunE: runReset,
}

func init() {
	resetCmd.Flags().StringVarP(&resetServer, "server", "s", defaultServerURL, "word cloud server URL")
	resetCmd.Flags().DurationVar(&resetTimeout, "timeout", 10*time.Second, "request timeout")
	rootCmd.AddCommand(resetCmd)
}

func runReset(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, resetTimeout)
	defer cancel()

	resp, err := client.New(resetServer).AdminReset(ctx)
	if err != nil {
		return fmt.Errorf("failed to reset word cloud: %w", err)
	}

	fmt.Fprintln(cmd.OutOrStdout(), resp.Message)
	return nil
}
