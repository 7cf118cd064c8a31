package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/thruflo/wordcloud/internal/gateway"
)

var (
	embedUpstream string
	embedHealth   bool
	embedCompare  []string
	embedJSON     bool
	embedTimeout  time.Duration
)

var embedCmd = &cobra.Command{
	Use:   "embed [text]",
	Short: "Query the embedding service",
	Long: `Asks the embedding service for the vector of a word or phrase, the same
call browsers make before submitting a word.

The upstream may be the embedding service itself or a word cloud server's
proxy prefix.

Example:
  wordcloud embed cat
  wordcloud embed "ice cream" --json
  wordcloud embed cat --compare dog,car,tree
  wordcloud embed --health
  wordcloud embed cat --upstream http://localhost:3000/spacy`,
	Args: func(cmd *cobra.Command, args []string) error {
		if embedHealth {
			return cobra.NoArgs(cmd, args)
		}
		return cobra.ExactArgs(1)(cmd, args)
	},
	RunE: runEmbed,
}

func init() {
	embedCmd.Flags().StringVarP(&embedUpstream, "upstream", "u", "http://localhost:5000", "embedding service URL")
	embedCmd.Flags().BoolVar(&embedHealth, "health", false, "show the service's model instead")
	embedCmd.Flags().StringSliceVar(&embedCompare, "compare", nil, "rank these words by similarity to text")
	embedCmd.Flags().BoolVar(&embedJSON, "json", false, "print the raw response")
	embedCmd.Flags().DurationVar(&embedTimeout, "timeout", 30*time.Second, "request timeout")
	rootCmd.AddCommand(embedCmd)
}

func runEmbed(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, embedTimeout)
	defer cancel()

	c := gateway.NewClient(embedUpstream)
	out := cmd.OutOrStdout()

	switch {
	case embedHealth:
		resp, err := c.Health(ctx)
		if err != nil {
			return fmt.Errorf("health check failed: %w", err)
		}
		if embedJSON {
			return printJSON(out, resp)
		}
		fmt.Fprintf(out, "Status:  %s\nModel:   %s\nVectors: %d dimensions\n", resp.Status, resp.Model, resp.VectorSize)
		return nil

	case len(embedCompare) > 0:
		resp, err := c.BatchSimilarity(ctx, args[0], embedCompare)
		if err != nil {
			return fmt.Errorf("similarity failed: %w", err)
		}
		if embedJSON {
			return printJSON(out, resp)
		}
		fmt.Fprintf(out, "Similarity to %q:\n", resp.Target)
		for _, s := range resp.Similarities {
			fmt.Fprintf(out, "  %-20s %.3f\n", s.Word, s.Similarity)
		}
		return nil
	}

	resp, err := c.Embedding(ctx, args[0])
	if err != nil {
		return fmt.Errorf("embedding failed: %w", err)
	}
	if embedJSON {
		return printJSON(out, resp)
	}
	fmt.Fprintf(out, "Text:      %s\n", resp.Text)
	fmt.Fprintf(out, "HasVector: %t\n", resp.HasVector)
	fmt.Fprintf(out, "Dims:      %d\n", len(resp.Embedding))
	fmt.Fprintf(out, "Preview:   %s\n", previewVector(resp.Embedding, 5))
	return nil
}

func previewVector(v []float64, n int) string {
	parts := make([]string, 0, n+1)
	for i, x := range v {
		if i == n {
			parts = append(parts, "...")
			break
		}
		parts = append(parts, fmt.Sprintf("%.4f", x))
	}
	return "[" + strings.Join(parts, " ") + "]"
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
