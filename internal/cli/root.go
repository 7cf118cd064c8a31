package cli

import (
	"github.com/spf13/cobra"
)

// Version is set at build time via ldflags.
var Version = "dev"

// defaultServerURL is where reset and tail look for a server.
const defaultServerURL = "http://localhost:3000"

var rootCmd = &cobra.Command{
	Use:   "wordcloud",
	Short: "Real-time collaborative word cloud server",
	Long: `Wordcloud serves a shared word cloud to every connected browser.
Participants submit words, link them and color them; every change is
broadcast to all participants in the same order.

Word embeddings are computed by a separate embedding service, which
wordcloud exposes under a path prefix so browsers need only one origin.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.Version = Version
	rootCmd.SetVersionTemplate("wordcloud version {{.Version}}\n")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
